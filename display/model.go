/*
	Package display holds the declarative model of how to view an
	n-dimensional array: which axes are shown spatially, the current position
	along the others, how left-over axes are reduced, and how each channel is
	colorized.  The model carries no pixels; it is reconciled against a data
	wrapper and compiled into concrete slice requests.
*/

package display

import (
	"fmt"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
)

// ChannelMode selects how positions along the channel axis are displayed.
type ChannelMode string

const (
	// Grayscale ignores the channel axis; a single LUT (the default LUT)
	// applies and every non-visible axis gets a slider.
	Grayscale ChannelMode = "grayscale"

	// Composite blends all visible channels, each with its own LUT.  The
	// channel axis slider is hidden.
	Composite ChannelMode = "composite"

	// Color shows one channel at a time with that channel's LUT; the channel
	// axis keeps its slider.
	Color ChannelMode = "color"

	// RGBA treats the channel axis as color components of a single image.
	// Only valid when the channel axis has length <= 4.
	RGBA ChannelMode = "rgba"
)

// ParseChannelMode normalizes a mode string, accepting "rgb" as an alias for
// rgba and "" as grayscale.
func ParseChannelMode(s string) (ChannelMode, error) {
	switch ChannelMode(s) {
	case Grayscale, Composite, Color, RGBA:
		return ChannelMode(s), nil
	case "rgb":
		return RGBA, nil
	case "":
		return Grayscale, nil
	}
	return "", fmt.Errorf("unknown channel mode %q", s)
}

// IsMultichannel returns whether this mode displays multiple channel
// positions at once, which implies the channel axis slider is hidden.
func (m ChannelMode) IsMultichannel() bool {
	return m == Composite || m == RGBA
}

// DefaultChannelColors is the colormap cycle assigned to channels that have
// no explicit LUT.
var DefaultChannelColors = []string{"green", "magenta", "cyan", "red", "blue", "yellow"}

// ArrayDisplayModel is the declarative description of how to slice, reduce,
// and colorize an n-dimensional array.
type ArrayDisplayModel struct {
	// VisibleAxes is the ordered list of 2 or 3 axes rendered spatially, from
	// slowest to fastest varying, e.g. ("z", -2, -1).
	VisibleAxes []ndv.AxisKey

	// CurrentIndex is the displayed position or range along each axis.  Axes
	// not present are assumed to span their full extent.
	CurrentIndex map[ndv.AxisKey]ndv.Index

	// ChannelMode selects how the channel axis is displayed.
	ChannelMode ChannelMode

	// ChannelAxis designates the axis whose positions each get an independent
	// LUT.  nil means no channel axis: all data uses DefaultLUT.  It is an
	// error for the channel axis to also be a visible axis; Validate clears
	// it with a warning.
	ChannelAxis *ndv.AxisKey

	// Reducers collapse non-visible, non-singleton sliced axes to a single
	// value.  Axes with no entry use DefaultReducer.
	Reducers map[ndv.AxisKey]data.Reducer

	// DefaultReducer applies where Reducers has no entry.
	DefaultReducer data.Reducer

	// LUTs maps position along the channel axis to that channel's display
	// spec.
	LUTs map[int]*LUTModel

	// DefaultLUT is the distinguished fallback entry, used whenever
	// ChannelAxis is nil or a channel has no LUTs entry.  It must always be
	// present.
	DefaultLUT *LUTModel
}

// NewModel returns a display model with viewer defaults: the trailing two
// axes visible, grayscale mode, max projection, and the standard channel
// colormap cycle.
func NewModel() *ArrayDisplayModel {
	luts := make(map[int]*LUTModel, len(DefaultChannelColors))
	for i, color := range DefaultChannelColors {
		luts[i] = NewChannelLUT(color)
	}
	return &ArrayDisplayModel{
		VisibleAxes:    []ndv.AxisKey{ndv.Axis(-2), ndv.Axis(-1)},
		CurrentIndex:   make(map[ndv.AxisKey]ndv.Index),
		ChannelMode:    Grayscale,
		Reducers:       make(map[ndv.AxisKey]data.Reducer),
		DefaultReducer: data.Max,
		LUTs:           luts,
		DefaultLUT:     NewLUTModel(),
	}
}

// NVisibleAxes is 2 for plane views and 3 for volume views.
func (m *ArrayDisplayModel) NVisibleAxes() int {
	return len(m.VisibleAxes)
}

// LUTFor returns the LUT governing the given channel position, falling back
// to DefaultLUT for channel -1 or channels without an entry.
func (m *ArrayDisplayModel) LUTFor(channel int) *LUTModel {
	if channel >= 0 {
		if lut, ok := m.LUTs[channel]; ok {
			return lut
		}
	}
	return m.DefaultLUT
}

// SetIndex records the current position or range along one axis.
func (m *ArrayDisplayModel) SetIndex(axis ndv.AxisKey, x ndv.Index) {
	if m.CurrentIndex == nil {
		m.CurrentIndex = make(map[ndv.AxisKey]ndv.Index)
	}
	m.CurrentIndex[axis] = x
}

// Validate repairs the model invariants in place and returns a warning for
// each repair made.  Invalid input defaults rather than failing, since the
// model is mutated interactively.
func (m *ArrayDisplayModel) Validate() []string {
	var warnings []string

	if n := len(m.VisibleAxes); n != 2 && n != 3 {
		warnings = append(warnings, fmt.Sprintf(
			"number of visible axes must be 2 or 3, got %d; defaulting to the last two axes", n))
		m.VisibleAxes = []ndv.AxisKey{ndv.Axis(-2), ndv.Axis(-1)}
	}

	if m.ChannelAxis != nil {
		for _, ax := range m.VisibleAxes {
			if *m.ChannelAxis == ax {
				warnings = append(warnings, fmt.Sprintf(
					"channel axis %s cannot be in visible axes; clearing channel axis", ax))
				m.ChannelAxis = nil
				break
			}
		}
	}

	if m.DefaultLUT == nil {
		warnings = append(warnings, "default LUT must always be present; restoring it")
		m.DefaultLUT = NewLUTModel()
	}
	if m.CurrentIndex == nil {
		m.CurrentIndex = make(map[ndv.AxisKey]ndv.Index)
	}
	if m.Reducers == nil {
		m.Reducers = make(map[ndv.AxisKey]data.Reducer)
	}
	if m.LUTs == nil {
		m.LUTs = make(map[int]*LUTModel)
	}
	if m.ChannelMode == "" {
		m.ChannelMode = Grayscale
	}

	for _, w := range warnings {
		ndv.Warningf("display model: %s\n", w)
	}
	return warnings
}
