/*
	This file defines what the viewer requires of a data source.  A Wrapper
	hides whether the values live in memory, in a local zarr directory, or
	behind an object store, and resolves the loosely typed axis keys of the
	display model into canonical dimension indices.
*/

package data

import (
	"context"
	"fmt"
	"strings"

	"github.com/tlambert03/ndv/ndv"
)

// Wrapper is the protocol a data source must satisfy to be displayed.
type Wrapper interface {
	// Shape returns the size of each dimension.
	Shape() []int

	// Labels returns the label for each dimension, with "" for unlabeled
	// dimensions.  len(Labels()) == len(Shape()).
	Labels() []string

	// AxisIndex resolves an axis key (integer position, possibly negative, or
	// string label) to a canonical non-negative dimension index.  It returns
	// an error for unknown labels or out-of-bounds positions.
	AxisIndex(key ndv.AxisKey) (int, error)

	// ISel copies out the hyperslab selected by per-dimension slices, keyed
	// by canonical dimension index.  Missing dimensions keep their full
	// extent.  The result has the same dimensionality as the source.
	ISel(ctx context.Context, sel map[int]ndv.Slice) (*Array, error)

	// DType describes the element type of the underlying store, e.g. "uint16".
	DType() string
}

// NormalizeAxis resolves a possibly negative integer position against ndim.
func NormalizeAxis(i, ndim int) (int, error) {
	if i < -ndim || i >= ndim {
		return 0, fmt.Errorf("axis %d out of range for %d-d data", i, ndim)
	}
	if i < 0 {
		return ndim + i, nil
	}
	return i, nil
}

// channel-ish dimension labels, lowercased
var channelLabels = map[string]bool{"c": true, "ch": true, "channel": true, "channels": true}

// maxGuessedChannels bounds how large a dimension can be and still be taken
// for a channel axis when guessing by size.
const maxGuessedChannels = 8

// GuessChannelAxis guesses which dimension of w is a channel axis, returning
// -1 if no plausible candidate exists.  A labeled "c"/"channel" dimension
// wins; otherwise the smallest non-spatial dimension of size <= 8 is used,
// where the trailing two dimensions are assumed spatial.
func GuessChannelAxis(w Wrapper) int {
	labels := w.Labels()
	for d, label := range labels {
		if channelLabels[strings.ToLower(label)] {
			return d
		}
	}
	shape := w.Shape()
	best := -1
	for d := 0; d < len(shape)-2; d++ {
		if shape[d] < 2 || shape[d] > maxGuessedChannels {
			continue
		}
		if best < 0 || shape[d] < shape[best] {
			best = d
		}
	}
	return best
}

// RAM is a Wrapper over an in-memory Array with optional axis labels.
type RAM struct {
	arr    *Array
	labels []string
	dtype  string
}

// NewRAM wraps an in-memory array.  If labels are given there must be one per
// dimension.
func NewRAM(arr *Array, labels ...string) (*RAM, error) {
	if len(labels) == 0 {
		labels = make([]string, arr.NDim())
	}
	if len(labels) != arr.NDim() {
		return nil, fmt.Errorf("got %d labels for %d-d array", len(labels), arr.NDim())
	}
	return &RAM{arr: arr, labels: append([]string(nil), labels...), dtype: "float64"}, nil
}

func (r *RAM) Shape() []int     { return r.arr.Shape() }
func (r *RAM) Labels() []string { return append([]string(nil), r.labels...) }
func (r *RAM) DType() string    { return r.dtype }

func (r *RAM) AxisIndex(key ndv.AxisKey) (int, error) {
	if key.ByLabel() {
		for d, label := range r.labels {
			if label == key.Label() {
				return d, nil
			}
		}
		return 0, fmt.Errorf("no axis labeled %q", key.Label())
	}
	return NormalizeAxis(key.Index(), r.arr.NDim())
}

func (r *RAM) ISel(ctx context.Context, sel map[int]ndv.Slice) (*Array, error) {
	return r.arr.ISel(sel)
}
