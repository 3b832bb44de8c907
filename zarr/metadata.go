/*
	Package zarr reads version 2 zarr arrays through a storage.Store.  Only the
	subset the viewer needs is implemented: C-order chunks, simple dtypes, no
	filters.
*/

package zarr

import (
	"encoding/json"
	"fmt"
	"math"
)

// Keys for the metadata documents of a zarr hierarchy.
const (
	ArrayMetaKey  = ".zarray"
	GroupMetaKey  = ".zgroup"
	AttributesKey = ".zattrs"
)

// ArrayMeta is the ".zarray" metadata document describing one stored array.
type ArrayMeta struct {
	// Version of the storage specification, must be 2.
	ZarrFormat int `json:"zarr_format"`
	// Length of each dimension of the array.
	Shape []int `json:"shape"`
	// Length of each dimension of a chunk.  All chunks of an array share one
	// shape; chunks overhanging the array edge are stored at full size.
	Chunks []int `json:"chunks"`
	// Element type as a numpy typestr, e.g. "<u2".
	DType DType `json:"dtype"`
	// Primary compression codec, or null for raw chunks.
	Compressor *CompressorMeta `json:"compressor"`
	// Default value for chunks that were never written, or null.
	FillValue interface{} `json:"fill_value"`
	// "C" for row-major chunk layout, "F" for column-major.
	Order string `json:"order"`
	// Filter codec configurations applied before compression, or null.
	Filters []json.RawMessage `json:"filters"`
	// Separator between dimensions in chunk keys, "." unless set to "/".
	DimensionSeparator string `json:"dimension_separator"`
}

// CompressorMeta identifies a compression codec and its configuration.  Only
// the id matters for decoding; the remaining fields are encoder settings.
type CompressorMeta struct {
	ID      string `json:"id"`
	CName   string `json:"cname,omitempty"`
	CLevel  int    `json:"clevel,omitempty"`
	Level   int    `json:"level,omitempty"`
	Shuffle int    `json:"shuffle,omitempty"`
}

// Validate checks that the metadata describes an array this reader can
// handle.
func (m *ArrayMeta) Validate() error {
	if m.ZarrFormat != 2 {
		return fmt.Errorf("unsupported zarr format %d, want 2", m.ZarrFormat)
	}
	if len(m.Shape) == 0 {
		return fmt.Errorf("scalar (0-d) arrays are not supported")
	}
	if len(m.Chunks) != len(m.Shape) {
		return fmt.Errorf("chunk shape %v does not match array shape %v", m.Chunks, m.Shape)
	}
	for d, c := range m.Chunks {
		if c < 1 || m.Shape[d] < 0 {
			return fmt.Errorf("bad extent in dimension %d: shape %d, chunk %d",
				d, m.Shape[d], c)
		}
	}
	if m.Order == "F" {
		return fmt.Errorf("column-major (F order) arrays are not supported")
	}
	if m.Order != "" && m.Order != "C" {
		return fmt.Errorf("unknown chunk order %q", m.Order)
	}
	if len(m.Filters) > 0 {
		return fmt.Errorf("filter codecs are not supported")
	}
	switch m.DimensionSeparator {
	case "", ".", "/":
	default:
		return fmt.Errorf("invalid dimension separator %q", m.DimensionSeparator)
	}
	return nil
}

// Separator returns the chunk key separator, defaulting to ".".
func (m *ArrayMeta) Separator() string {
	if m.DimensionSeparator == "" {
		return "."
	}
	return m.DimensionSeparator
}

// Fill returns the fill value for unwritten chunks as a float64.
func (m *ArrayMeta) Fill() float64 {
	switch v := m.FillValue.(type) {
	case float64:
		return v
	case bool:
		if v {
			return 1
		}
	case string:
		// "NaN", "Infinity" and "-Infinity" per the format spec
		switch v {
		case "NaN":
			return math.NaN()
		case "Infinity":
			return math.Inf(1)
		case "-Infinity":
			return math.Inf(-1)
		}
	}
	return 0
}

// Group is the ".zgroup" document marking a logical path as a group.
type Group struct {
	ZarrFormat int `json:"zarr_format"`
}
