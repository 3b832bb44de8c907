package storage

import (
	"bytes"
	"testing"
)

func TestSerializeDeserialize(t *testing.T) {
	data := []byte("a moderately compressible payload payload payload payload")
	for _, compress := range []Compression{Uncompressed, Snappy, Gzip} {
		for _, checksum := range []Checksum{NoChecksum, CRC32} {
			s, err := SerializeData(data, compress, checksum)
			if err != nil {
				t.Fatalf("SerializeData(%s, %s): %v", compress, checksum, err)
			}
			got, err := DeserializeData(s)
			if err != nil {
				t.Fatalf("DeserializeData(%s, %s): %v", compress, checksum, err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("round trip (%s, %s): got %q", compress, checksum, got)
			}
		}
	}
}

func TestSerializationFormat(t *testing.T) {
	format := EncodeSerializationFormat(Snappy, CRC32)
	compress, checksum := DecodeSerializationFormat(format)
	if compress != Snappy {
		t.Errorf("decoded compression: got %s", compress)
	}
	if checksum != CRC32 {
		t.Errorf("decoded checksum: got %s", checksum)
	}
}

func TestDeserializeBadChecksum(t *testing.T) {
	s, err := SerializeData([]byte("payload"), Uncompressed, CRC32)
	if err != nil {
		t.Fatal(err)
	}
	s[len(s)-1] ^= 0xff
	if _, err := DeserializeData(s); err == nil {
		t.Errorf("corrupted payload must fail the checksum")
	}
}

func TestDeserializeTruncated(t *testing.T) {
	if _, err := DeserializeData(nil); err == nil {
		t.Errorf("empty input must error")
	}
	s, _ := SerializeData([]byte("payload"), Uncompressed, CRC32)
	if _, err := DeserializeData(s[:3]); err == nil {
		t.Errorf("truncated input must error")
	}
}
