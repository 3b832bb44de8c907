package render

import (
	"math"
	"sort"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/display"
)

// Clims resolves the contrast limits for one plane: fixed limits when the
// LUT carries them, otherwise autoscaled from the data over the LUT's
// quantile range.
func Clims(arr *data.Array, lut *display.LUTModel) (lo, hi float64) {
	if lut != nil && lut.Clims != nil {
		return lut.Clims[0], lut.Clims[1]
	}
	qlo, qhi := 0.0, 1.0
	if lut != nil {
		qlo, qhi = lut.Autoscale[0], lut.Autoscale[1]
	}
	if qlo <= 0 && qhi >= 1 {
		return arr.MinMax()
	}
	return quantiles(arr.Values(), qlo, qhi)
}

// quantiles returns the values at the low and high quantiles of the data,
// using nearest-rank on a sorted copy.
func quantiles(values []float64, qlo, qhi float64) (lo, hi float64) {
	if len(values) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	rank := func(q float64) float64 {
		if q < 0 {
			q = 0
		} else if q > 1 {
			q = 1
		}
		return sorted[int(q*float64(len(sorted)-1)+0.5)]
	}
	return rank(qlo), rank(qhi)
}

// Normalize maps a raw value into [0, 1] given contrast limits, applying
// gamma correction.  Degenerate limits map everything at or above hi to 1.
func Normalize(v, lo, hi, gamma float64) float64 {
	var n float64
	if hi <= lo {
		if v >= hi {
			n = 1
		}
	} else {
		n = (v - lo) / (hi - lo)
	}
	if n < 0 {
		n = 0
	} else if n > 1 {
		n = 1
	}
	if gamma > 0 && gamma != 1 {
		n = math.Pow(n, gamma)
	}
	return n
}
