package display

import (
	"context"
	"testing"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
)

// tzyx returns a wrapper over a 4-d (t, c, y, x) ramp volume.
func tcyx(t *testing.T) data.Wrapper {
	t.Helper()
	shape := []int{5, 3, 8, 8}
	size := 5 * 3 * 8 * 8
	values := make([]float64, size)
	for i := range values {
		values[i] = float64(i)
	}
	arr, err := data.FromValues(values, shape...)
	if err != nil {
		t.Fatal(err)
	}
	w, err := data.NewRAM(arr, "t", "c", "y", "x")
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestSliceRequestsGrayscale(t *testing.T) {
	w := tcyx(t)
	m := NewModel()
	m.SetIndex(ndv.NamedAxis("t"), ndv.At(2))

	reqs, err := m.SliceRequests(w)
	if err != nil {
		t.Fatalf("SliceRequests: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("grayscale mode: got %d requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Channel != -1 || req.ChannelAxis != -1 {
		t.Errorf("grayscale request must not split channels: %+v", req)
	}
	// the point on t is widened to a width-1 slice
	if got := req.Index[0]; got != (ndv.Slice{Start: 2, Stop: 3}) {
		t.Errorf("t selection: got %v, want [2:3]", got)
	}
	// visible axes y, x are not constrained
	if _, ok := req.Index[2]; ok {
		t.Errorf("visible axis y must not carry a point selection")
	}
	if len(req.VisibleAxes) != 2 || req.VisibleAxes[0] != 2 || req.VisibleAxes[1] != 3 {
		t.Errorf("visible axes: got %v", req.VisibleAxes)
	}
	// non-visible c axis gets the default reducer
	if req.Reducers[1].Name() != "max" {
		t.Errorf("c reducer: got %q", req.Reducers[1].Name())
	}

	arr, err := req.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if arr.NDim() != 2 {
		t.Fatalf("executed shape: got %v, want 2-d", arr.Shape())
	}
	if got := arr.Shape(); got[0] != 8 || got[1] != 8 {
		t.Errorf("executed shape: got %v, want [8 8]", got)
	}
}

func TestSliceRequestsVisiblePointBecomesFullSlice(t *testing.T) {
	w := tcyx(t)
	m := NewModel()
	m.SetIndex(ndv.NamedAxis("y"), ndv.At(4)) // y is visible

	reqs, err := m.SliceRequests(w)
	if err != nil {
		t.Fatalf("SliceRequests: %v", err)
	}
	if got := reqs[0].Index[2]; !got.IsFull() {
		t.Errorf("point on a visible axis must widen to the full slice, got %v", got)
	}
}

func TestSliceRequestsComposite(t *testing.T) {
	w := tcyx(t)
	m := NewModel()
	m.ChannelMode = Composite
	ax := ndv.NamedAxis("c")
	m.ChannelAxis = &ax
	m.SetIndex(ndv.NamedAxis("t"), ndv.At(0))
	m.LUTs[1].Visible = false

	reqs, err := m.SliceRequests(w)
	if err != nil {
		t.Fatalf("SliceRequests: %v", err)
	}
	// channels 0 and 2; channel 1 is hidden
	if len(reqs) != 2 {
		t.Fatalf("composite requests: got %d, want 2", len(reqs))
	}
	if reqs[0].Channel != 0 || reqs[1].Channel != 2 {
		t.Errorf("request channels: got %d, %d", reqs[0].Channel, reqs[1].Channel)
	}
	for _, req := range reqs {
		if req.ChannelAxis != 1 {
			t.Errorf("channel axis: got %d", req.ChannelAxis)
		}
		if got := req.Index[1]; got != (ndv.Slice{Start: req.Channel, Stop: req.Channel + 1}) {
			t.Errorf("channel %d selection: got %v", req.Channel, got)
		}
	}

	arr, err := reqs[1].Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if arr.NDim() != 2 {
		t.Fatalf("executed shape: got %v, want 2-d", arr.Shape())
	}
	// value at (t=0, c=2, y=0, x=0) == 2*64 == 128
	if v, _ := arr.At(0, 0); v != 128 {
		t.Errorf("channel 2 origin: got %v, want 128", v)
	}
}

func TestSliceRequestsColor(t *testing.T) {
	w := tcyx(t)
	m := NewModel()
	m.ChannelMode = Color
	ax := ndv.NamedAxis("c")
	m.ChannelAxis = &ax
	m.SetIndex(ndv.NamedAxis("c"), ndv.At(1))

	reqs, err := m.SliceRequests(w)
	if err != nil {
		t.Fatalf("SliceRequests: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("color mode: got %d requests, want 1", len(reqs))
	}
	if reqs[0].Channel != 1 {
		t.Errorf("color mode channel: got %d, want 1", reqs[0].Channel)
	}
}

func TestSliceRequestsRGBA(t *testing.T) {
	w := tcyx(t)
	m := NewModel()
	m.ChannelMode = RGBA
	ax := ndv.NamedAxis("c")
	m.ChannelAxis = &ax
	m.SetIndex(ndv.NamedAxis("t"), ndv.At(0))

	reqs, err := m.SliceRequests(w)
	if err != nil {
		t.Fatalf("SliceRequests: %v", err)
	}
	if len(reqs) != 1 {
		t.Fatalf("rgba mode: got %d requests, want 1", len(reqs))
	}
	req := reqs[0]
	if req.Channel != -1 {
		t.Errorf("rgba request uses the default LUT: channel got %d", req.Channel)
	}
	if got := req.Index[1]; !got.IsFull() {
		t.Errorf("rgba request must carry the whole channel axis, got %v", got)
	}

	arr, err := req.Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// channel axis carried through, ordered last
	if got := arr.Shape(); len(got) != 3 || got[0] != 8 || got[1] != 8 || got[2] != 3 {
		t.Errorf("rgba executed shape: got %v, want [8 8 3]", got)
	}
}

func TestExecuteAppliesReducer(t *testing.T) {
	w := tcyx(t)
	m := NewModel()
	m.Reducers[ndv.NamedAxis("t")] = data.Mean
	m.SetIndex(ndv.NamedAxis("c"), ndv.At(0))

	reqs, err := m.SliceRequests(w)
	if err != nil {
		t.Fatalf("SliceRequests: %v", err)
	}
	if reqs[0].Reducers[0].Name() != "mean" {
		t.Errorf("t reducer: got %q", reqs[0].Reducers[0].Name())
	}
	arr, err := reqs[0].Execute(context.Background())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	// mean over t of values at (t, 0, 0, 0): t stride is 192, mean of
	// {0, 192, ..., 768} == 384
	if v, _ := arr.At(0, 0); v != 384 {
		t.Errorf("mean projection origin: got %v, want 384", v)
	}
}
