package zarr

import (
	"context"
	"fmt"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
)

// Wrapper adapts a zarr Array to the data source protocol of the viewer.
// Dimension labels come from surrounding metadata (e.g. NGFF axes) since a
// bare zarr array carries none.
type Wrapper struct {
	arr    *Array
	labels []string
}

// NewWrapper wraps arr, optionally attaching one label per dimension.
func NewWrapper(arr *Array, labels ...string) (*Wrapper, error) {
	nd := len(arr.meta.Shape)
	if len(labels) == 0 {
		labels = make([]string, nd)
	}
	if len(labels) != nd {
		return nil, fmt.Errorf("got %d labels for %d-d array", len(labels), nd)
	}
	return &Wrapper{arr: arr, labels: append([]string(nil), labels...)}, nil
}

func (w *Wrapper) Shape() []int     { return w.arr.Shape() }
func (w *Wrapper) Labels() []string { return append([]string(nil), w.labels...) }
func (w *Wrapper) DType() string    { return w.arr.meta.DType.Name() }

func (w *Wrapper) AxisIndex(key ndv.AxisKey) (int, error) {
	if key.ByLabel() {
		for d, label := range w.labels {
			if label == key.Label() {
				return d, nil
			}
		}
		return 0, fmt.Errorf("no axis labeled %q", key.Label())
	}
	return data.NormalizeAxis(key.Index(), len(w.arr.meta.Shape))
}

func (w *Wrapper) ISel(ctx context.Context, sel map[int]ndv.Slice) (*data.Array, error) {
	return w.arr.ReadSlice(ctx, sel)
}
