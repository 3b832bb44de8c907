package chunker

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/DmitriyVTitov/size"
	"github.com/coocood/freecache"
	"github.com/dustin/go-humanize"

	"github.com/tlambert03/ndv/data"
	"github.com/tlambert03/ndv/display"
	"github.com/tlambert03/ndv/ndv"
)

// responseCache holds executed slices keyed by a request signature so that
// scrubbing back to a recent index is served without touching the store.
type responseCache struct {
	cache *freecache.Cache
}

func newResponseCache(megabytes int) *responseCache {
	ndv.Infof("Initializing response cache with %s...\n",
		humanize.Bytes(uint64(megabytes)<<20))
	return &responseCache{cache: freecache.NewCache(megabytes << 20)}
}

// signature builds a stable cache key from everything that determines a
// request's result.  The wrapper is identified by address; a new data source
// gets fresh keys.
func signature(req display.DataRequest) []byte {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%p|ch%d|ax%d|", req.Wrapper, req.Channel, req.ChannelAxis)

	dims := make([]int, 0, len(req.Index))
	for d := range req.Index {
		dims = append(dims, d)
	}
	sort.Ints(dims)
	for _, d := range dims {
		fmt.Fprintf(&sb, "%d%s", d, req.Index[d])
	}
	sb.WriteByte('|')
	for _, d := range req.VisibleAxes {
		fmt.Fprintf(&sb, "v%d", d)
	}
	sb.WriteByte('|')
	dims = dims[:0]
	for d := range req.Reducers {
		dims = append(dims, d)
	}
	sort.Ints(dims)
	for _, d := range dims {
		fmt.Fprintf(&sb, "r%d:%s", d, req.Reducers[d].Name())
	}
	return []byte(sb.String())
}

func (rc *responseCache) get(req display.DataRequest) (*data.Array, bool) {
	entry, err := rc.cache.Get(signature(req))
	if err != nil {
		return nil, false
	}
	arr, err := decodeArray(entry)
	if err != nil {
		ndv.Errorf("corrupt response cache entry: %v\n", err)
		return nil, false
	}
	return arr, true
}

func (rc *responseCache) put(req display.DataRequest, arr *data.Array) {
	entry, err := encodeArray(arr)
	if err != nil {
		return
	}
	if err := rc.cache.Set(signature(req), entry, 0); err != nil {
		ndv.Debugf("response cache: could not store %s entry: %v\n",
			humanize.Bytes(uint64(len(entry))), err)
		return
	}
	ndv.Debugf("response cache: stored %s (in-memory size %s), %d entries cached\n",
		humanize.Bytes(uint64(len(entry))),
		humanize.Bytes(uint64(size.Of(arr))),
		rc.cache.EntryCount())
}

// encodeArray packs shape and values little-endian: ndim, then each extent,
// then the row-major float64 data.
func encodeArray(arr *data.Array) ([]byte, error) {
	buf := new(bytes.Buffer)
	shape := arr.Shape()
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(shape))); err != nil {
		return nil, err
	}
	for _, s := range shape {
		if err := binary.Write(buf, binary.LittleEndian, uint32(s)); err != nil {
			return nil, err
		}
	}
	if err := binary.Write(buf, binary.LittleEndian, arr.Values()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeArray(entry []byte) (*data.Array, error) {
	buf := bytes.NewReader(entry)
	var ndim uint32
	if err := binary.Read(buf, binary.LittleEndian, &ndim); err != nil {
		return nil, err
	}
	shape := make([]int, ndim)
	n := 1
	for d := range shape {
		var s uint32
		if err := binary.Read(buf, binary.LittleEndian, &s); err != nil {
			return nil, err
		}
		shape[d] = int(s)
		n *= int(s)
	}
	values := make([]float64, n)
	if err := binary.Read(buf, binary.LittleEndian, values); err != nil {
		return nil, err
	}
	return data.FromValues(values, shape...)
}
