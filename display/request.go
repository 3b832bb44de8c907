/*
	This file compiles display state into concrete data-slicing requests: the
	reconciliation of an abstract "current index / visible axes / channel
	axis" onto per-channel hyperslab reads.  All axis keys are canonicalized
	to non-negative dimension indices and every selection is widened to a
	slice so no dimensions are lost before transposition and squeezing.
*/

package display

import (
	"context"
	"fmt"
	"sort"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
)

// DataRequest asks a wrapper for one renderable plane or volume.  Index keys
// are canonical dimension indices and every value is a slice; dimensions not
// present keep their full extent.
type DataRequest struct {
	Wrapper data.Wrapper

	// Index selects the hyperslab to read.
	Index map[int]ndv.Slice

	// VisibleAxes are the canonical dimensions rendered spatially, ordered
	// slowest to fastest.
	VisibleAxes []int

	// ChannelAxis is the canonical channel dimension, or -1 when the request
	// is not split by channel.
	ChannelAxis int

	// Channel is the channel position this request belongs to, or -1 when
	// the default LUT applies.
	Channel int

	// Reducers collapse the listed non-visible dimensions after slicing.
	Reducers map[int]data.Reducer
}

// DataResponse carries the result of one executed request.
type DataResponse struct {
	Channel int
	Data    *data.Array
	Err     error
}

// SliceRequests reconciles CurrentIndex, VisibleAxes and ChannelAxis against
// the wrapper's dimensions and returns one request per renderable channel.
// Visible axes are always slices in the result; point selections are widened
// to width-1 slices.
func (m *ArrayDisplayModel) SliceRequests(w data.Wrapper) ([]DataRequest, error) {
	shape := w.Shape()
	ndim := len(shape)

	visible := make([]int, 0, len(m.VisibleAxes))
	isVisible := make(map[int]bool, len(m.VisibleAxes))
	for _, ax := range m.VisibleAxes {
		d, err := w.AxisIndex(ax)
		if err != nil {
			return nil, fmt.Errorf("cannot visualize axis %s: %v", ax, err)
		}
		visible = append(visible, d)
		isVisible[d] = true
	}

	chDim := -1
	if m.ChannelAxis != nil && m.ChannelMode != Grayscale {
		d, err := w.AxisIndex(*m.ChannelAxis)
		if err != nil {
			ndv.Warningf("ignoring channel axis %s: %v\n", *m.ChannelAxis, err)
		} else {
			chDim = d
		}
	}

	// Canonicalize the current index, keeping ranges but widening points so
	// that no dimensions are lost.
	requested := make(map[int]ndv.Slice, len(m.CurrentIndex))
	points := make(map[int]int, len(m.CurrentIndex))
	for key, x := range m.CurrentIndex {
		d, err := w.AxisIndex(key)
		if err != nil {
			ndv.Warningf("ignoring index for unknown axis %s: %v\n", key, err)
			continue
		}
		if !x.IsSlice() {
			points[d] = x.Point()
		}
		requested[d] = x.AsSlice()
	}

	// Visible axes must be ranges; a leftover point selection means "show the
	// whole axis".
	for _, d := range visible {
		if _, wasPoint := points[d]; wasPoint || !hasSlice(requested, d) {
			requested[d] = ndv.FullSlice()
			delete(points, d)
		}
	}

	// Reducers for every non-visible, non-channel dimension; they only fire
	// where the sliced extent is non-singleton.
	reducers := make(map[int]data.Reducer, ndim)
	for key, r := range m.Reducers {
		d, err := w.AxisIndex(key)
		if err != nil || isVisible[d] || d == chDim {
			continue
		}
		reducers[d] = r
	}
	for d := 0; d < ndim; d++ {
		if isVisible[d] || d == chDim {
			continue
		}
		if _, ok := reducers[d]; !ok {
			reducers[d] = m.DefaultReducer
		}
	}

	base := DataRequest{
		Wrapper:     w,
		Index:       requested,
		VisibleAxes: visible,
		ChannelAxis: -1,
		Channel:     -1,
		Reducers:    reducers,
	}

	if chDim < 0 {
		return []DataRequest{base}, nil
	}

	switch {
	case m.ChannelMode == RGBA:
		// one request carrying the whole channel axis, rendered with the
		// default LUT as color components
		idx := cloneIndex(requested)
		idx[chDim] = ndv.FullSlice()
		req := base
		req.Index = idx
		req.ChannelAxis = chDim
		return []DataRequest{req}, nil

	case m.ChannelMode.IsMultichannel():
		// composite: one request per visible channel position
		lo, hi := channelBounds(requested, points, chDim, shape[chDim])
		reqs := make([]DataRequest, 0, hi-lo)
		for ch := lo; ch < hi; ch++ {
			if lut := m.LUTFor(ch); !lut.Visible {
				continue
			}
			idx := cloneIndex(requested)
			idx[chDim] = ndv.Slice{Start: ch, Stop: ch + 1}
			req := base
			req.Index = idx
			req.ChannelAxis = chDim
			req.Channel = ch
			reqs = append(reqs, req)
		}
		return reqs, nil

	default:
		// color mode: a single channel at a time, with that channel's LUT
		ch := 0
		if p, ok := points[chDim]; ok {
			ch = p
		}
		idx := cloneIndex(requested)
		idx[chDim] = ndv.Slice{Start: ch, Stop: ch + 1}
		req := base
		req.Index = idx
		req.ChannelAxis = chDim
		req.Channel = ch
		return []DataRequest{req}, nil
	}
}

func hasSlice(index map[int]ndv.Slice, d int) bool {
	_, ok := index[d]
	return ok
}

func cloneIndex(index map[int]ndv.Slice) map[int]ndv.Slice {
	out := make(map[int]ndv.Slice, len(index))
	for d, s := range index {
		out[d] = s
	}
	return out
}

// channelBounds picks which channel positions a multichannel request covers:
// an explicit range in the current index wins, a point collapses to itself,
// and otherwise every position is shown.
func channelBounds(requested map[int]ndv.Slice, points map[int]int, chDim, size int) (lo, hi int) {
	if _, wasPoint := points[chDim]; wasPoint {
		// a slider position left over from single-channel mode; show all
		return 0, size
	}
	if s, ok := requested[chDim]; ok {
		return s.Resolve(size)
	}
	return 0, size
}

// Execute reads, reduces, transposes, and squeezes the requested data into
// render order: visible axes first (slowest to fastest), the channel axis
// last when it is carried through.
func (r DataRequest) Execute(ctx context.Context) (*data.Array, error) {
	arr, err := r.Wrapper.ISel(ctx, r.Index)
	if err != nil {
		return nil, err
	}

	// reduce leftover non-singleton axes
	dims := make([]int, 0, len(r.Reducers))
	for d := range r.Reducers {
		dims = append(dims, d)
	}
	sort.Ints(dims)
	for _, d := range dims {
		if arr.Shape()[d] > 1 {
			if arr, err = arr.ReduceAxis(d, r.Reducers[d]); err != nil {
				return nil, err
			}
		}
	}

	// transpose to visible-axes-first order, channel (if carried) last
	ndim := arr.NDim()
	used := make(map[int]bool, ndim)
	order := make([]int, 0, ndim)
	for _, d := range r.VisibleAxes {
		order = append(order, d)
		used[d] = true
	}
	for d := 0; d < ndim; d++ {
		if !used[d] && d != r.ChannelAxis {
			order = append(order, d)
		}
	}
	if r.ChannelAxis >= 0 && !used[r.ChannelAxis] {
		order = append(order, r.ChannelAxis)
	}
	if arr, err = arr.Transpose(order...); err != nil {
		return nil, err
	}
	return arr.Squeeze(), nil
}
