/*
	This file implements a small dense n-dimensional array used as the common
	currency of the display pipeline.  Values are held as float64 regardless of
	the source dtype: every downstream operation (axis reduction, autoscaling,
	LUT application) is floating-point math, so sources convert once at read
	time.
*/

package data

import (
	"fmt"

	"github.com/tlambert03/ndv/ndv"
)

// Array is a dense n-dimensional array in row-major order.  Transposing
// produces a strided view sharing the same backing values.
type Array struct {
	shape  []int
	stride []int
	values []float64
}

// NewArray returns a zero-filled array of the given shape.
func NewArray(shape ...int) (*Array, error) {
	size := 1
	for _, s := range shape {
		if s < 0 {
			return nil, fmt.Errorf("negative dimension size %d in shape %v", s, shape)
		}
		size *= s
	}
	return &Array{
		shape:  append([]int(nil), shape...),
		stride: rowMajorStrides(shape),
		values: make([]float64, size),
	}, nil
}

// FromValues wraps a flat row-major value slice in an array of the given
// shape.  The slice is used directly, not copied.
func FromValues(values []float64, shape ...int) (*Array, error) {
	size := 1
	for _, s := range shape {
		if s < 0 {
			return nil, fmt.Errorf("negative dimension size %d in shape %v", s, shape)
		}
		size *= s
	}
	if len(values) != size {
		return nil, fmt.Errorf("shape %v requires %d values, got %d", shape, size, len(values))
	}
	return &Array{
		shape:  append([]int(nil), shape...),
		stride: rowMajorStrides(shape),
		values: values,
	}, nil
}

func rowMajorStrides(shape []int) []int {
	stride := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		stride[i] = acc
		acc *= shape[i]
	}
	return stride
}

// NDim returns the number of dimensions.
func (a *Array) NDim() int { return len(a.shape) }

// Shape returns a copy of the dimension sizes.
func (a *Array) Shape() []int { return append([]int(nil), a.shape...) }

// Size returns the total number of elements.
func (a *Array) Size() int {
	size := 1
	for _, s := range a.shape {
		size *= s
	}
	return size
}

func (a *Array) offset(ix []int) (int, error) {
	if len(ix) != len(a.shape) {
		return 0, fmt.Errorf("index %v does not match %d-d array", ix, len(a.shape))
	}
	off := 0
	for d, i := range ix {
		if i < 0 || i >= a.shape[d] {
			return 0, fmt.Errorf("index %d out of range for axis %d (size %d)", i, d, a.shape[d])
		}
		off += i * a.stride[d]
	}
	return off, nil
}

// At returns the element at the given index.
func (a *Array) At(ix ...int) (float64, error) {
	off, err := a.offset(ix)
	if err != nil {
		return 0, err
	}
	return a.values[off], nil
}

// SetAt stores v at the given index.
func (a *Array) SetAt(v float64, ix ...int) error {
	off, err := a.offset(ix)
	if err != nil {
		return err
	}
	a.values[off] = v
	return nil
}

// Fill sets every element to v.
func (a *Array) Fill(v float64) {
	a.each(func(off int) {
		a.values[off] = v
	})
}

// each visits the backing offset of every element in row-major logical order.
func (a *Array) each(f func(off int)) {
	if len(a.shape) == 0 {
		f(0)
		return
	}
	ix := make([]int, len(a.shape))
	for {
		off := 0
		for d, i := range ix {
			off += i * a.stride[d]
		}
		f(off)
		d := len(ix) - 1
		for d >= 0 {
			ix[d]++
			if ix[d] < a.shape[d] {
				break
			}
			ix[d] = 0
			d--
		}
		if d < 0 {
			return
		}
	}
}

// Contiguous returns a row-major copy of the array.  Transposed views become
// freshly packed arrays.
func (a *Array) Contiguous() *Array {
	out, _ := NewArray(a.shape...)
	n := 0
	a.each(func(off int) {
		out.values[n] = a.values[off]
		n++
	})
	return out
}

// Values returns the flat row-major values of the array, copying if the array
// is a non-contiguous view.
func (a *Array) Values() []float64 {
	packed := rowMajorStrides(a.shape)
	for d := range a.stride {
		if a.stride[d] != packed[d] {
			return a.Contiguous().values
		}
	}
	return a.values
}

// ISel copies out the hyperslab selected by per-axis slices.  Axes missing
// from sel keep their full extent.  The result has the same dimensionality as
// the source.
func (a *Array) ISel(sel map[int]ndv.Slice) (*Array, error) {
	lo := make([]int, len(a.shape))
	outShape := make([]int, len(a.shape))
	for d, size := range a.shape {
		s, ok := sel[d]
		if !ok {
			s = ndv.FullSlice()
		}
		start, stop := s.Resolve(size)
		lo[d] = start
		outShape[d] = stop - start
	}
	for d := range sel {
		if d < 0 || d >= len(a.shape) {
			return nil, fmt.Errorf("selection axis %d out of range for %d-d array", d, len(a.shape))
		}
	}

	out, err := NewArray(outShape...)
	if err != nil {
		return nil, err
	}
	if out.Size() == 0 {
		return out, nil
	}
	ix := make([]int, len(outShape))
	for n := 0; ; n++ {
		off := 0
		for d, i := range ix {
			off += (lo[d] + i) * a.stride[d]
		}
		out.values[n] = a.values[off]
		d := len(ix) - 1
		for d >= 0 {
			ix[d]++
			if ix[d] < outShape[d] {
				break
			}
			ix[d] = 0
			d--
		}
		if d < 0 {
			break
		}
	}
	return out, nil
}

// Transpose returns a view with dimensions reordered so that order[i] becomes
// dimension i.  order must be a permutation of the dimensions.
func (a *Array) Transpose(order ...int) (*Array, error) {
	if len(order) != len(a.shape) {
		return nil, fmt.Errorf("transpose order %v does not match %d-d array", order, len(a.shape))
	}
	seen := make([]bool, len(a.shape))
	shape := make([]int, len(a.shape))
	stride := make([]int, len(a.shape))
	for i, d := range order {
		if d < 0 || d >= len(a.shape) || seen[d] {
			return nil, fmt.Errorf("transpose order %v is not a permutation", order)
		}
		seen[d] = true
		shape[i] = a.shape[d]
		stride[i] = a.stride[d]
	}
	return &Array{shape: shape, stride: stride, values: a.values}, nil
}

// Squeeze returns a view with all size-1 dimensions removed.  A scalar array
// keeps zero dimensions.
func (a *Array) Squeeze() *Array {
	shape := make([]int, 0, len(a.shape))
	stride := make([]int, 0, len(a.shape))
	for d, s := range a.shape {
		if s != 1 {
			shape = append(shape, s)
			stride = append(stride, a.stride[d])
		}
	}
	return &Array{shape: shape, stride: stride, values: a.values}
}

// ReduceAxis collapses one axis to size 1 by applying the reducer to each run
// of values along it.
func (a *Array) ReduceAxis(axis int, r Reducer) (*Array, error) {
	if axis < 0 || axis >= len(a.shape) {
		return nil, fmt.Errorf("reduce axis %d out of range for %d-d array", axis, len(a.shape))
	}
	outShape := a.Shape()
	outShape[axis] = 1
	out, err := NewArray(outShape...)
	if err != nil {
		return nil, err
	}
	if a.Size() == 0 {
		return out, nil
	}

	run := make([]float64, a.shape[axis])
	ix := make([]int, len(a.shape))
	n := 0
	for {
		base := 0
		for d, i := range ix {
			base += i * a.stride[d]
		}
		for j := 0; j < a.shape[axis]; j++ {
			run[j] = a.values[base+j*a.stride[axis]]
		}
		out.values[n] = r.Apply(run)
		n++

		// advance all axes except the reduced one
		d := len(ix) - 1
		for d >= 0 {
			if d == axis {
				d--
				continue
			}
			ix[d]++
			if ix[d] < a.shape[d] {
				break
			}
			ix[d] = 0
			d--
		}
		if d < 0 {
			return out, nil
		}
	}
}

// MinMax returns the smallest and largest values in the array.
func (a *Array) MinMax() (lo, hi float64) {
	first := true
	a.each(func(off int) {
		v := a.values[off]
		if first {
			lo, hi = v, v
			first = false
			return
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	})
	return lo, hi
}
