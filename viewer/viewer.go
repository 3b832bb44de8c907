/*
	Package viewer ties a display model, a data source and the request pool
	together.  An ArrayViewer owns the model, reconciles it whenever the data
	or the model changes, and renders the current display state to an image.
*/

package viewer

import (
	"context"
	"fmt"
	"image"
	"sync"

	"github.com/tlambert03/ndv/chunker"
	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/display"
	"github.com/tlambert03/ndv/ndv"
	"github.com/tlambert03/ndv/render"
)

// Option configures an ArrayViewer.
type Option func(*options)

type options struct {
	model   *display.ArrayDisplayModel
	workers int
	cacheMB int
}

// WithModel starts the viewer from an existing display model instead of the
// defaults.
func WithModel(m *display.ArrayDisplayModel) Option {
	return func(o *options) { o.model = m }
}

// WithWorkers sets the number of concurrent slicing requests.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithResponseCache enables a slice response cache of the given size.
func WithResponseCache(megabytes int) Option {
	return func(o *options) { o.cacheMB = megabytes }
}

// ArrayViewer owns a display model and the data source it views.
type ArrayViewer struct {
	pool *chunker.Chunker

	mu      sync.Mutex
	model   *display.ArrayDisplayModel
	wrapper data.Wrapper
	planes  map[int]*data.Array
}

// New returns a viewer with no data attached.
func New(opts ...Option) *ArrayViewer {
	o := options{model: display.NewModel(), workers: 4}
	for _, opt := range opts {
		opt(&o)
	}
	v := &ArrayViewer{
		model:  o.model,
		planes: make(map[int]*data.Array),
	}
	v.pool = chunker.New(o.workers, o.cacheMB, v.onResponse)
	v.model.Validate()
	return v
}

func (v *ArrayViewer) onResponse(resp display.DataResponse) {
	if resp.Err != nil {
		ndv.Errorf("slice request for channel %d failed: %v\n", resp.Channel, resp.Err)
		return
	}
	v.mu.Lock()
	v.planes[resp.Channel] = resp.Data
	v.mu.Unlock()
}

// SetData attaches a data source, reconciling the current model against its
// shape.  State referring to axes the new data does not have is dropped.
func (v *ArrayViewer) SetData(ctx context.Context, w data.Wrapper) error {
	v.mu.Lock()
	warnings, err := display.Reconcile(v.model, w)
	if err != nil {
		v.mu.Unlock()
		return err
	}
	v.wrapper = w
	v.planes = make(map[int]*data.Array)
	v.mu.Unlock()

	ndv.Infof("Viewing %s data %v (%d reconcile warnings)\n",
		w.DType(), w.Shape(), len(warnings))
	return nil
}

// SetModel replaces the display model, reconciling it against the attached
// data.
func (v *ArrayViewer) SetModel(ctx context.Context, m *display.ArrayDisplayModel) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.wrapper != nil {
		if _, err := display.Reconcile(m, v.wrapper); err != nil {
			return err
		}
	} else {
		m.Validate()
	}
	v.model = m
	v.planes = make(map[int]*data.Array)
	return nil
}

// Model returns the live display model.  Callers mutating it should follow
// with SetModel or SetIndex so the change is reconciled.
func (v *ArrayViewer) Model() *display.ArrayDisplayModel {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.model
}

// Wrapper returns the attached data source, or nil.
func (v *ArrayViewer) Wrapper() data.Wrapper {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.wrapper
}

// SetIndex moves the current position along one axis, the slider equivalent.
func (v *ArrayViewer) SetIndex(ctx context.Context, axis ndv.AxisKey, x ndv.Index) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.wrapper != nil {
		if _, err := v.wrapper.AxisIndex(axis); err != nil {
			return err
		}
	}
	v.model.SetIndex(axis, x)
	return nil
}

// Refresh submits slice requests for the current display state to the pool.
// Responses arrive asynchronously; Render waits for them.
func (v *ArrayViewer) Refresh(ctx context.Context) error {
	v.mu.Lock()
	w := v.wrapper
	m := v.model
	v.mu.Unlock()
	if w == nil {
		return fmt.Errorf("no data attached")
	}
	reqs, err := m.SliceRequests(w)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.planes = make(map[int]*data.Array)
	v.mu.Unlock()
	v.pool.Submit(ctx, reqs)
	return nil
}

// Render produces the image for the current display state, waiting for all
// slice requests to complete.
func (v *ArrayViewer) Render(ctx context.Context) (*image.NRGBA, error) {
	if err := v.Refresh(ctx); err != nil {
		return nil, err
	}
	v.pool.Wait()

	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.planes) == 0 {
		return nil, fmt.Errorf("no slice responses for the current display state")
	}

	if v.model.ChannelMode == display.RGBA {
		arr, ok := v.planes[-1]
		if !ok {
			return nil, fmt.Errorf("missing rgb response")
		}
		return render.RGBImage(arr, v.model.DefaultLUT)
	}

	planes := make([]render.Plane, 0, len(v.planes))
	for channel, arr := range v.planes {
		planes = append(planes, render.Plane{Data: arr, LUT: v.model.LUTFor(channel)})
	}
	return render.Composite(planes)
}

// Close releases the request pool.
func (v *ArrayViewer) Close() {
	v.pool.Shutdown()
}
