package data

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Reducer collapses a run of values along one axis into a single value, e.g.
// a maximum projection.  Reducers are identified by name so display state can
// round trip through JSON.
type Reducer struct {
	name string
	fn   func([]float64) float64
}

// Name returns the registry name of the reducer.
func (r Reducer) Name() string { return r.name }

// IsZero reports whether the reducer is unset.
func (r Reducer) IsZero() bool { return r.fn == nil }

// Apply reduces a run of values.  An unset reducer falls back to Max.
func (r Reducer) Apply(run []float64) float64 {
	if r.fn == nil {
		return Max.Apply(run)
	}
	return r.fn(run)
}

func (r Reducer) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.name)
}

func (r *Reducer) UnmarshalJSON(b []byte) error {
	var name string
	if err := json.Unmarshal(b, &name); err != nil {
		return err
	}
	red, err := ReducerByName(name)
	if err != nil {
		return err
	}
	*r = red
	return nil
}

var (
	Max = Reducer{"max", func(run []float64) float64 {
		out := run[0]
		for _, v := range run[1:] {
			if v > out {
				out = v
			}
		}
		return out
	}}
	Min = Reducer{"min", func(run []float64) float64 {
		out := run[0]
		for _, v := range run[1:] {
			if v < out {
				out = v
			}
		}
		return out
	}}
	Mean = Reducer{"mean", func(run []float64) float64 {
		sum := 0.0
		for _, v := range run {
			sum += v
		}
		return sum / float64(len(run))
	}}
	Sum = Reducer{"sum", func(run []float64) float64 {
		sum := 0.0
		for _, v := range run {
			sum += v
		}
		return sum
	}}
	Mid = Reducer{"mid", func(run []float64) float64 {
		return run[len(run)/2]
	}}
)

var reducers = map[string]Reducer{
	"max":  Max,
	"min":  Min,
	"mean": Mean,
	"sum":  Sum,
	"mid":  Mid,
}

// ReducerByName looks up a reducer in the registry.  Names from numpy-style
// serializations like "numpy.max" are accepted for compatibility with saved
// viewer state.
func ReducerByName(name string) (Reducer, error) {
	key := strings.ToLower(name)
	if i := strings.LastIndex(key, "."); i >= 0 {
		key = key[i+1:]
	}
	if key == "amax" {
		key = "max"
	}
	if key == "amin" {
		key = "min"
	}
	r, ok := reducers[key]
	if !ok {
		return Reducer{}, fmt.Errorf("unknown reducer %q", name)
	}
	return r, nil
}
