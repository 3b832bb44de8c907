package render

import (
	"fmt"
	"image"
	"image/png"
	"io"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/display"
	"github.com/tlambert03/ndv/ndv"
)

// Plane is one renderable channel: a 2-d array and the LUT to draw it with.
type Plane struct {
	Data *data.Array
	LUT  *display.LUTModel
}

// ApplyLUT renders a single 2-d plane through its LUT.
func ApplyLUT(arr *data.Array, lut *display.LUTModel) (*image.NRGBA, error) {
	if arr.NDim() != 2 {
		return nil, fmt.Errorf("can only render 2-d planes, got shape %v", arr.Shape())
	}
	shape := arr.Shape()
	h, w := shape[0], shape[1]
	cmap := ByName(cmapName(lut))
	lo, hi := Clims(arr, lut)
	gamma := gammaOf(lut)

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	values := arr.Values()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := cmap.At(Normalize(values[y*w+x], lo, hi, gamma))
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

// Composite renders visible planes additively into one image.  All planes
// must share one shape.
func Composite(planes []Plane) (*image.NRGBA, error) {
	visible := planes[:0:0]
	for _, p := range planes {
		if p.LUT == nil || p.LUT.Visible {
			visible = append(visible, p)
		}
	}
	if len(visible) == 0 {
		return nil, fmt.Errorf("no visible channels to composite")
	}
	shape := visible[0].Data.Shape()
	if len(shape) != 2 {
		return nil, fmt.Errorf("can only composite 2-d planes, got shape %v", shape)
	}
	h, w := shape[0], shape[1]
	for _, p := range visible[1:] {
		s := p.Data.Shape()
		if len(s) != 2 || s[0] != h || s[1] != w {
			return nil, fmt.Errorf("plane shapes differ: %v vs %v", shape, s)
		}
	}

	timer := ndv.NewTimeLog()
	sumR := make([]float64, h*w)
	sumG := make([]float64, h*w)
	sumB := make([]float64, h*w)
	for _, p := range visible {
		cmap := ByName(cmapName(p.LUT))
		lo, hi := Clims(p.Data, p.LUT)
		gamma := gammaOf(p.LUT)
		values := p.Data.Values()
		for i, v := range values {
			r, g, b := cmap.Components(Normalize(v, lo, hi, gamma))
			sumR[i] += r
			sumG[i] += g
			sumB[i] += b
		}
	}

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < h*w; i++ {
		o := i * 4
		img.Pix[o] = clamp8(sumR[i])
		img.Pix[o+1] = clamp8(sumG[i])
		img.Pix[o+2] = clamp8(sumB[i])
		img.Pix[o+3] = 255
	}
	timer.Debugf("composited %d channels into %dx%d image", len(visible), w, h)
	return img, nil
}

// RGBImage renders a 3-d array whose last dimension holds 3 (RGB) or 4
// (RGBA) samples.  One set of contrast limits applies to all components.
func RGBImage(arr *data.Array, lut *display.LUTModel) (*image.NRGBA, error) {
	shape := arr.Shape()
	if len(shape) != 3 || (shape[2] != 3 && shape[2] != 4) {
		return nil, fmt.Errorf("rgb data must be (y, x, 3|4), got shape %v", shape)
	}
	h, w, nc := shape[0], shape[1], shape[2]
	lo, hi := Clims(arr, lut)
	gamma := gammaOf(lut)

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	values := arr.Values()
	for i := 0; i < h*w; i++ {
		o := i * 4
		for c := 0; c < nc; c++ {
			img.Pix[o+c] = clamp8(Normalize(values[i*nc+c], lo, hi, gamma))
		}
		if nc == 3 {
			img.Pix[o+3] = 255
		}
	}
	return img, nil
}

// EncodePNG writes an image as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return png.Encode(w, img)
}

func cmapName(lut *display.LUTModel) string {
	if lut == nil {
		return "gray"
	}
	return lut.Cmap
}

func gammaOf(lut *display.LUTModel) float64 {
	if lut == nil {
		return 1
	}
	return lut.Gamma
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
