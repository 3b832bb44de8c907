package zarr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/ndv"
	"github.com/tlambert03/ndv/storage"
)

// Array is a read-only view of one stored zarr array.
type Array struct {
	store storage.Store
	path  string
	meta  *ArrayMeta
}

func metaKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "/" + key
}

// Open reads and validates the ".zarray" document at path within the store.
// An empty path opens an array at the store root.
func Open(ctx context.Context, store storage.Store, path string) (*Array, error) {
	path = strings.Trim(path, "/")
	raw, err := store.Get(ctx, metaKey(path, ArrayMetaKey))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("no zarr array at %q: %w", path, err)
		}
		return nil, err
	}
	meta := &ArrayMeta{}
	if err := json.Unmarshal(raw, meta); err != nil {
		return nil, fmt.Errorf("bad .zarray at %q: %v", path, err)
	}
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("array at %q: %v", path, err)
	}
	ndv.Debugf("Opened %s zarr array %v (chunks %v) at %q\n",
		meta.DType.Name(), meta.Shape, meta.Chunks, path)
	return &Array{store: store, path: path, meta: meta}, nil
}

// OpenGroup reads the ".zgroup" document at path, verifying a group exists
// there.
func OpenGroup(ctx context.Context, store storage.Store, path string) (*Group, error) {
	path = strings.Trim(path, "/")
	raw, err := store.Get(ctx, metaKey(path, GroupMetaKey))
	if err != nil {
		return nil, err
	}
	g := &Group{}
	if err := json.Unmarshal(raw, g); err != nil {
		return nil, fmt.Errorf("bad .zgroup at %q: %v", path, err)
	}
	if g.ZarrFormat != 2 {
		return nil, fmt.Errorf("unsupported zarr format %d at %q", g.ZarrFormat, path)
	}
	return g, nil
}

// Meta returns the array metadata.
func (a *Array) Meta() *ArrayMeta { return a.meta }

// Shape returns the size of each dimension.
func (a *Array) Shape() []int {
	return append([]int(nil), a.meta.Shape...)
}

// chunk fetches and decodes the chunk at the given grid coordinates.  A
// missing chunk returns nil values, which stand for the fill value.
func (a *Array) chunk(ctx context.Context, coords []int) ([]float64, error) {
	key := metaKey(a.path, ChunkKey(coords, a.meta.Separator()))
	raw, err := a.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	decoded, err := Decompress(a.meta.Compressor, raw)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %v", key, err)
	}
	values, err := a.meta.DType.Decode(decoded, prod(a.meta.Chunks))
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %v", key, err)
	}
	return values, nil
}

// ReadSlice copies out the hyperslab selected by per-dimension slices keyed
// by dimension index.  Dimensions without an entry keep their full extent.
// The result keeps the source dimensionality; chunks never written yield the
// fill value.
func (a *Array) ReadSlice(ctx context.Context, sel map[int]ndv.Slice) (*data.Array, error) {
	nd := len(a.meta.Shape)
	lo := make([]int, nd)
	hi := make([]int, nd)
	outShape := make([]int, nd)
	for d := 0; d < nd; d++ {
		s, ok := sel[d]
		if !ok {
			s = ndv.FullSlice()
		}
		lo[d], hi[d] = s.Resolve(a.meta.Shape[d])
		outShape[d] = hi[d] - lo[d]
		if outShape[d] == 0 {
			return nil, fmt.Errorf("empty selection %s in dimension %d (size %d)",
				s, d, a.meta.Shape[d])
		}
	}

	timer := ndv.NewTimeLog()
	values := make([]float64, prod(outShape))
	outStrides := rowMajorStrides(outShape)
	chunkStrides := rowMajorStrides(a.meta.Chunks)
	fill := a.meta.Fill()

	// walk the grid of chunks overlapping the selection
	coords := make([]int, nd)
	for d := 0; d < nd; d++ {
		coords[d] = lo[d] / a.meta.Chunks[d]
	}
	for {
		chunk, err := a.chunk(ctx, coords)
		if err != nil {
			return nil, err
		}
		a.copyIntersection(values, chunk, fill, coords, lo, hi, outStrides, chunkStrides)

		// advance to the next overlapping chunk, last dimension fastest
		d := nd - 1
		for ; d >= 0; d-- {
			coords[d]++
			if coords[d]*a.meta.Chunks[d] < hi[d] {
				break
			}
			coords[d] = lo[d] / a.meta.Chunks[d]
		}
		if d < 0 {
			break
		}
	}
	timer.Debugf("read %v of zarr array %q", outShape, a.path)
	return data.FromValues(values, outShape...)
}

// copyIntersection copies the part of one chunk that falls inside [lo, hi)
// into the output buffer, substituting fill for missing chunks.  Runs along
// the last dimension are copied contiguously.
func (a *Array) copyIntersection(out, chunk []float64, fill float64,
	coords, lo, hi, outStrides, chunkStrides []int) {

	nd := len(coords)
	isectLo := make([]int, nd)
	isectHi := make([]int, nd)
	for d := 0; d < nd; d++ {
		isectLo[d] = max(lo[d], coords[d]*a.meta.Chunks[d])
		isectHi[d] = min(hi[d], (coords[d]+1)*a.meta.Chunks[d])
	}

	pos := append([]int(nil), isectLo...)
	last := nd - 1
	runLen := isectHi[last] - isectLo[last]
	for {
		outOff := 0
		chunkOff := 0
		for d := 0; d < nd; d++ {
			outOff += (pos[d] - lo[d]) * outStrides[d]
			chunkOff += (pos[d] - coords[d]*a.meta.Chunks[d]) * chunkStrides[d]
		}
		if chunk == nil {
			for i := 0; i < runLen; i++ {
				out[outOff+i] = fill
			}
		} else {
			copy(out[outOff:outOff+runLen], chunk[chunkOff:chunkOff+runLen])
		}

		d := last - 1
		for ; d >= 0; d-- {
			pos[d]++
			if pos[d] < isectHi[d] {
				break
			}
			pos[d] = isectLo[d]
		}
		if d < 0 {
			break
		}
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
