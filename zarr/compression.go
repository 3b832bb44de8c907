package zarr

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Decompress decodes one raw chunk according to the compressor metadata.  A
// nil compressor means chunks are stored raw.
func Decompress(c *CompressorMeta, raw []byte) ([]byte, error) {
	if c == nil {
		return raw, nil
	}
	switch c.ID {
	case "", "none":
		return raw, nil
	case "zlib":
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer gr.Close()
		return io.ReadAll(gr)
	case "zstd":
		zr, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return zr.DecodeAll(raw, nil)
	case "blosc":
		// the numcodecs default; needs the c-blosc library
		return nil, fmt.Errorf("blosc-compressed chunks are not supported, " +
			"re-encode with zlib, gzip or zstd")
	default:
		return nil, fmt.Errorf("unknown compressor %q", c.ID)
	}
}
