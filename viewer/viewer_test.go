package viewer

import (
	"context"
	"testing"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/display"
	"github.com/tlambert03/ndv/ndv"
)

func rampWrapper(t *testing.T, labels ...string) data.Wrapper {
	t.Helper()
	n := 1
	shape := []int{4, 3, 8, 8}
	for _, s := range shape {
		n *= s
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = float64(i)
	}
	arr, err := data.FromValues(values, shape...)
	if err != nil {
		t.Fatal(err)
	}
	w, err := data.NewRAM(arr, labels...)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestViewerRenderGrayscale(t *testing.T) {
	ctx := context.Background()
	v := New(WithWorkers(2))
	defer v.Close()

	if err := v.SetData(ctx, rampWrapper(t, "t", "c", "y", "x")); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	if err := v.SetIndex(ctx, ndv.NamedAxis("t"), ndv.At(0)); err != nil {
		t.Fatalf("SetIndex: %v", err)
	}
	img, err := v.Render(ctx)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Errorf("image bounds: got %v, want 8x8", img.Bounds())
	}
}

func TestViewerRenderComposite(t *testing.T) {
	ctx := context.Background()
	v := New(WithResponseCache(1))
	defer v.Close()

	if err := v.SetData(ctx, rampWrapper(t, "t", "c", "y", "x")); err != nil {
		t.Fatal(err)
	}
	m := v.Model()
	m.ChannelMode = display.Composite
	ax := ndv.NamedAxis("c")
	m.ChannelAxis = &ax
	if err := v.SetModel(ctx, m); err != nil {
		t.Fatalf("SetModel: %v", err)
	}

	img, err := v.Render(ctx)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	// channel 0 is green, channel 1 magenta, channel 2 cyan; the blend of
	// saturated corners is white-ish, just check we got a real image
	if img.Bounds().Dx() != 8 {
		t.Errorf("image bounds: got %v", img.Bounds())
	}

	// rendering again hits the response cache and still works
	if _, err := v.Render(ctx); err != nil {
		t.Errorf("second Render: %v", err)
	}
}

func TestViewerSetDataReconciles(t *testing.T) {
	ctx := context.Background()
	v := New()
	defer v.Close()

	m := v.Model()
	m.SetIndex(ndv.NamedAxis("z"), ndv.At(40))
	ax := ndv.NamedAxis("c")
	m.ChannelAxis = &ax
	m.ChannelMode = display.Composite

	// the new data has no z axis; the stale index must be dropped
	if err := v.SetData(ctx, rampWrapper(t, "t", "c", "y", "x")); err != nil {
		t.Fatal(err)
	}
	if _, ok := v.Model().CurrentIndex[ndv.NamedAxis("z")]; ok {
		t.Errorf("stale z index survived reconciliation")
	}

	if err := v.SetIndex(ctx, ndv.NamedAxis("nope"), ndv.At(0)); err == nil {
		t.Errorf("unknown axis must be rejected")
	}
}

func TestViewerRenderWithoutData(t *testing.T) {
	v := New()
	defer v.Close()
	if _, err := v.Render(context.Background()); err == nil {
		t.Errorf("rendering with no data must error")
	}
}
