/*
	This file defines how the viewer refers to dimensions of an array and to
	positions or ranges along them.  An axis can be named by integer position
	(negative counts from the end, as in numpy) or by string label (for labeled
	arrays); it is up to a dataset wrapper to resolve either form to a canonical
	non-negative index.
*/

package ndv

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// AxisKey identifies one dimension of an array, either by integer position or
// by string label.  The zero value is axis 0.
type AxisKey struct {
	index   int
	label   string
	byLabel bool
}

// Axis returns an AxisKey for an integer dimension position.  Negative
// positions count back from the last dimension.
func Axis(i int) AxisKey {
	return AxisKey{index: i}
}

// NamedAxis returns an AxisKey for a labeled dimension.
func NamedAxis(label string) AxisKey {
	return AxisKey{label: label, byLabel: true}
}

// ByLabel returns true if this key refers to a dimension by string label.
func (k AxisKey) ByLabel() bool { return k.byLabel }

// Label returns the string label, valid only when ByLabel() is true.
func (k AxisKey) Label() string { return k.label }

// Index returns the integer position, valid only when ByLabel() is false.
func (k AxisKey) Index() int { return k.index }

func (k AxisKey) String() string {
	if k.byLabel {
		return k.label
	}
	return strconv.Itoa(k.index)
}

// MarshalJSON encodes integer keys as JSON numbers and labels as strings.
func (k AxisKey) MarshalJSON() ([]byte, error) {
	if k.byLabel {
		return json.Marshal(k.label)
	}
	return json.Marshal(k.index)
}

func (k *AxisKey) UnmarshalJSON(b []byte) error {
	var i int
	if err := json.Unmarshal(b, &i); err == nil {
		*k = Axis(i)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*k = NamedAxis(s)
		return nil
	}
	return fmt.Errorf("axis key must be an integer or string, got %s", string(b))
}

// SliceEnd marks an open upper bound in a Slice, i.e. "through the end of
// this axis".
const SliceEnd = -1

// Slice selects the half-open range [Start, Stop) along one axis.
// Stop == SliceEnd selects through the last element.
type Slice struct {
	Start int
	Stop  int
}

// FullSlice selects an entire axis.
func FullSlice() Slice {
	return Slice{0, SliceEnd}
}

// IsFull returns true if the slice selects an entire axis of any size.
func (s Slice) IsFull() bool {
	return s.Start == 0 && s.Stop == SliceEnd
}

// Resolve clamps the slice against an axis of the given size, returning
// concrete [lo, hi) bounds.
func (s Slice) Resolve(size int) (lo, hi int) {
	lo = s.Start
	if lo < 0 {
		lo = 0
	}
	if lo > size {
		lo = size
	}
	hi = s.Stop
	if hi == SliceEnd || hi > size {
		hi = size
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Len returns the number of elements selected from an axis of the given size.
func (s Slice) Len(size int) int {
	lo, hi := s.Resolve(size)
	return hi - lo
}

func (s Slice) String() string {
	if s.Stop == SliceEnd {
		return fmt.Sprintf("[%d:]", s.Start)
	}
	return fmt.Sprintf("[%d:%d]", s.Start, s.Stop)
}

// MarshalJSON encodes a slice as a two-element array [start, stop], with null
// standing in for an open stop.
func (s Slice) MarshalJSON() ([]byte, error) {
	if s.Stop == SliceEnd {
		return json.Marshal([2]interface{}{s.Start, nil})
	}
	return json.Marshal([2]int{s.Start, s.Stop})
}

func (s *Slice) UnmarshalJSON(b []byte) error {
	var bounds [2]*int
	if err := json.Unmarshal(b, &bounds); err != nil {
		return fmt.Errorf("slice must be a [start, stop] array: %v", err)
	}
	out := FullSlice()
	if bounds[0] != nil {
		out.Start = *bounds[0]
	}
	if bounds[1] != nil {
		out.Stop = *bounds[1]
	}
	*s = out
	return nil
}

// Index is a selection along one axis: either a single point or a Slice.
// The zero value selects point 0.
type Index struct {
	point   int
	slice   Slice
	isSlice bool
}

// At returns an Index selecting a single position.
func At(i int) Index {
	return Index{point: i}
}

// Span returns an Index selecting a range.
func Span(s Slice) Index {
	return Index{slice: s, isSlice: true}
}

// IsSlice returns true if this index selects a range rather than a point.
func (x Index) IsSlice() bool { return x.isSlice }

// Point returns the selected position, valid only when IsSlice() is false.
func (x Index) Point() int { return x.point }

// Slice returns the selected range, valid only when IsSlice() is true.
func (x Index) Slice() Slice { return x.slice }

// AsSlice widens the index to a Slice, turning point i into [i, i+1) so that
// no dimensions are lost when slicing.
func (x Index) AsSlice() Slice {
	if x.isSlice {
		return x.slice
	}
	return Slice{x.point, x.point + 1}
}

func (x Index) String() string {
	if x.isSlice {
		return x.slice.String()
	}
	return strconv.Itoa(x.point)
}

// MarshalJSON encodes points as JSON numbers and ranges as [start, stop]
// arrays.
func (x Index) MarshalJSON() ([]byte, error) {
	if x.isSlice {
		return x.slice.MarshalJSON()
	}
	return json.Marshal(x.point)
}

func (x *Index) UnmarshalJSON(b []byte) error {
	var i int
	if err := json.Unmarshal(b, &i); err == nil {
		*x = At(i)
		return nil
	}
	var s Slice
	if err := s.UnmarshalJSON(b); err != nil {
		return fmt.Errorf("index must be an integer or [start, stop] array, got %s", string(b))
	}
	*x = Span(s)
	return nil
}
