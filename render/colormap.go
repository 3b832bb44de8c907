/*
	Package render turns sliced planes into images on the CPU: per-channel
	normalization with contrast limits and gamma, colormap application, and
	additive compositing of visible channels.
*/

package render

import (
	"image/color"

	"github.com/tlambert03/ndv/ndv"
)

// Colormap is a linear ramp from black to a full intensity color.
type Colormap struct {
	name    string
	r, g, b float64
}

var colormaps = map[string]Colormap{
	"gray":    {"gray", 1, 1, 1},
	"green":   {"green", 0, 1, 0},
	"magenta": {"magenta", 1, 0, 1},
	"cyan":    {"cyan", 0, 1, 1},
	"red":     {"red", 1, 0, 0},
	"blue":    {"blue", 0, 0, 1},
	"yellow":  {"yellow", 1, 1, 0},
}

// ByName looks up a colormap.  Unknown names fall back to gray with a
// warning, matching how the display model treats other bad input.
func ByName(name string) Colormap {
	if cm, ok := colormaps[name]; ok {
		return cm
	}
	ndv.Warningf("unknown colormap %q, using gray\n", name)
	return colormaps["gray"]
}

// Name returns the colormap's registered name.
func (c Colormap) Name() string { return c.name }

// At maps a normalized value in [0, 1] to a color.
func (c Colormap) At(v float64) color.NRGBA {
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	return color.NRGBA{
		R: uint8(v*c.r*255 + 0.5),
		G: uint8(v*c.g*255 + 0.5),
		B: uint8(v*c.b*255 + 0.5),
		A: 255,
	}
}

// Components returns the color scaled by a normalized value, for additive
// blending.
func (c Colormap) Components(v float64) (r, g, b float64) {
	return v * c.r, v * c.g, v * c.b
}
