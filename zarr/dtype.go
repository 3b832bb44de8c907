package zarr

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
)

// DType is a parsed numpy array protocol type string ("typestr").  The format
// has three parts: a byte order character ("<" little-endian, ">" big-endian,
// "|" not relevant), a kind character ("b" boolean, "i" integer, "u" unsigned
// integer, "f" floating point), and the element size in bytes.  Byte order
// MUST be specified in stored metadata, so "|" is only accepted for
// single-byte types.
type DType struct {
	order binary.ByteOrder
	kind  byte
	size  int
}

// ParseDType parses a typestr such as "<u2" or ">f8".
func ParseDType(s string) (DType, error) {
	if len(s) < 3 {
		return DType{}, fmt.Errorf("invalid dtype %q: too short", s)
	}
	var dt DType
	switch s[0] {
	case '<', '|':
		dt.order = binary.LittleEndian
	case '>':
		dt.order = binary.BigEndian
	default:
		return DType{}, fmt.Errorf("invalid dtype %q: unknown byte order %q", s, s[0])
	}

	dt.kind = s[1]
	switch dt.kind {
	case 'b', 'i', 'u', 'f':
	default:
		return DType{}, fmt.Errorf("unsupported dtype kind %q in %q", s[1], s)
	}

	switch s[2:] {
	case "1":
		dt.size = 1
	case "2":
		dt.size = 2
	case "4":
		dt.size = 4
	case "8":
		dt.size = 8
	default:
		return DType{}, fmt.Errorf("unsupported dtype size %q in %q", s[2:], s)
	}

	switch {
	case dt.kind == 'b' && dt.size != 1:
		return DType{}, fmt.Errorf("invalid dtype %q: booleans are single bytes", s)
	case dt.kind == 'f' && dt.size < 4:
		return DType{}, fmt.Errorf("unsupported dtype %q: float size must be 4 or 8", s)
	case s[0] == '|' && dt.size != 1:
		return DType{}, fmt.Errorf("invalid dtype %q: multi-byte types need a byte order", s)
	}
	return dt, nil
}

// Size returns the element size in bytes.
func (dt DType) Size() int { return dt.size }

func (dt DType) String() string {
	order := "<"
	if dt.order == binary.BigEndian {
		order = ">"
	}
	if dt.size == 1 {
		order = "|"
	}
	return fmt.Sprintf("%s%c%d", order, dt.kind, dt.size)
}

// MarshalJSON encodes the type as its typestr.
func (dt DType) MarshalJSON() ([]byte, error) {
	return json.Marshal(dt.String())
}

// UnmarshalJSON parses a typestr such as "<u2" from a JSON string.
func (dt *DType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDType(s)
	if err != nil {
		return err
	}
	*dt = parsed
	return nil
}

// Name returns the numpy-style name of the type, e.g. "uint16".
func (dt DType) Name() string {
	switch dt.kind {
	case 'b':
		return "bool"
	case 'i':
		return fmt.Sprintf("int%d", dt.size*8)
	case 'u':
		return fmt.Sprintf("uint%d", dt.size*8)
	case 'f':
		return fmt.Sprintf("float%d", dt.size*8)
	}
	return "unknown"
}

func (dt DType) uint(raw []byte) uint64 {
	switch dt.size {
	case 1:
		return uint64(raw[0])
	case 2:
		return uint64(dt.order.Uint16(raw))
	case 4:
		return uint64(dt.order.Uint32(raw))
	default:
		return dt.order.Uint64(raw)
	}
}

// Decode interprets raw as n packed elements, widening each to float64.
func (dt DType) Decode(raw []byte, n int) ([]float64, error) {
	if len(raw) < n*dt.size {
		return nil, fmt.Errorf("chunk holds %d bytes, need %d for %d %s values",
			len(raw), n*dt.size, n, dt.Name())
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := dt.uint(raw[i*dt.size:])
		switch dt.kind {
		case 'b':
			if bits != 0 {
				out[i] = 1
			}
		case 'u':
			out[i] = float64(bits)
		case 'i':
			// sign-extend from the element width
			shift := 64 - uint(dt.size*8)
			out[i] = float64(int64(bits<<shift) >> shift)
		case 'f':
			if dt.size == 4 {
				out[i] = float64(math.Float32frombits(uint32(bits)))
			} else {
				out[i] = math.Float64frombits(bits)
			}
		}
	}
	return out, nil
}
