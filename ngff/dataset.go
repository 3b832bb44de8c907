package ngff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
	"github.com/tlambert03/ndv/storage"
	"github.com/tlambert03/ndv/zarr"
)

// Level is one resolution level of a multiscale image.
type Level struct {
	// Path of the zarr array within the dataset.
	Path string
	// Scale maps axis name to the physical size of one array element.
	Scale map[string]float64
	// Ratio is the per-axis downsampling ratio relative to the full
	// resolution level, so the first level is all ones.
	Ratio []float64
}

// Dataset is a multiscale image resolved against a Store.  Resolution levels
// open lazily on first use.
type Dataset struct {
	store storage.Store
	ms    Multiscale
	axes  []Axis

	levels []Level

	mu     sync.Mutex
	arrays map[string]*zarr.Array
}

// OpenDataset reads the multiscale metadata at the store root.  When the
// attributes hold more than one multiscales entry only the first is used.
func OpenDataset(ctx context.Context, store storage.Store) (*Dataset, error) {
	if err := checkGroup(ctx, store); err != nil {
		return nil, err
	}
	multiscales, err := GetMultiscales(ctx, store)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no multiscales found in %s store: %w", store.Type(), err)
		}
		return nil, err
	}
	if len(multiscales) > 1 {
		ndv.Warningf("Found %d multiscales entries, only the first is used\n", len(multiscales))
	}
	ms := multiscales[0]

	d := &Dataset{
		store:  store,
		ms:     ms,
		axes:   ms.Axes,
		arrays: make(map[string]*zarr.Array),
	}

	var scale0 []float64
	for i, entry := range ms.Datasets {
		scale, err := scaleTransform(entry)
		if err != nil {
			return nil, fmt.Errorf("dataset %q: %v", entry.Path, err)
		}
		if len(scale) != len(d.axes) {
			return nil, fmt.Errorf("dataset %q: scale has %d entries for %d axes",
				entry.Path, len(scale), len(d.axes))
		}
		level := Level{
			Path:  entry.Path,
			Scale: make(map[string]float64, len(d.axes)),
			Ratio: make([]float64, len(d.axes)),
		}
		for a, ax := range d.axes {
			level.Scale[ax.Name] = scale[a]
		}
		if i == 0 {
			scale0 = scale
			for a := range level.Ratio {
				level.Ratio[a] = 1
			}
		} else {
			for a := range scale {
				level.Ratio[a] = scale[a] / scale0[a]
			}
		}
		d.levels = append(d.levels, level)
	}
	ndv.Infof("Opened multiscale dataset %q with %d levels, axes %v\n",
		d.Name(), len(d.levels), d.AxisNames())
	return d, nil
}

// checkGroup verifies a ".zgroup" document, when present, declares a zarr
// format this reader supports.  An absent group marker is tolerated.
func checkGroup(ctx context.Context, store storage.Store) error {
	raw, err := store.Get(ctx, zarr.GroupMetaKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	var g zarr.Group
	if err := json.Unmarshal(raw, &g); err != nil {
		return fmt.Errorf("bad .zgroup document: %v", err)
	}
	if g.ZarrFormat != 2 {
		return fmt.Errorf("unsupported zarr format: %d", g.ZarrFormat)
	}
	return nil
}

// Name returns the multiscale name, which may be empty.
func (d *Dataset) Name() string { return d.ms.Name }

// Axes returns the axis metadata in dimension order.
func (d *Dataset) Axes() []Axis { return append([]Axis(nil), d.axes...) }

// AxisNames returns the axis names in dimension order.
func (d *Dataset) AxisNames() []string {
	names := make([]string, len(d.axes))
	for a, ax := range d.axes {
		names[a] = ax.Name
	}
	return names
}

// Levels returns the resolution levels, finest first.
func (d *Dataset) Levels() []Level { return append([]Level(nil), d.levels...) }

// PickLevel returns the path of the coarsest level whose downsampling ratio
// along space axes does not exceed maxRatio.  The full resolution path is
// returned when no coarser level qualifies.
func (d *Dataset) PickLevel(maxRatio float64) string {
	best := d.levels[0]
	for _, level := range d.levels[1:] {
		r := d.spaceRatio(level)
		if r <= maxRatio && r > d.spaceRatio(best) {
			best = level
		}
	}
	return best.Path
}

// spaceRatio is the largest downsampling ratio among space axes, or among all
// axes if none are typed.
func (d *Dataset) spaceRatio(level Level) float64 {
	r := 0.0
	typed := false
	for a, ax := range d.axes {
		if ax.Type == "space" {
			typed = true
			if level.Ratio[a] > r {
				r = level.Ratio[a]
			}
		}
	}
	if !typed {
		for _, ratio := range level.Ratio {
			if ratio > r {
				r = ratio
			}
		}
	}
	return r
}

// Array returns the zarr array for a level path, opening it on first use.
func (d *Dataset) Array(ctx context.Context, path string) (*zarr.Array, error) {
	for _, level := range d.levels {
		if level.Path == path {
			d.mu.Lock()
			defer d.mu.Unlock()
			if arr, ok := d.arrays[path]; ok {
				return arr, nil
			}
			arr, err := zarr.Open(ctx, d.store, path)
			if err != nil {
				return nil, err
			}
			d.arrays[path] = arr
			return arr, nil
		}
	}
	return nil, fmt.Errorf("no level %q in multiscale %q", path, d.Name())
}

// Wrapper returns a display data source for one level, labeled with the
// multiscale axis names.
func (d *Dataset) Wrapper(ctx context.Context, path string) (data.Wrapper, error) {
	arr, err := d.Array(ctx, path)
	if err != nil {
		return nil, err
	}
	return zarr.NewWrapper(arr, d.AxisNames()...)
}

func (d *Dataset) String() string {
	return fmt.Sprintf("Dataset(%q on %s store, %d levels)",
		d.Name(), d.store.Type(), len(d.levels))
}
