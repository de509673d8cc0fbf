// Package save implements the .egb battery-RAM persistence format: a
// 4-byte magic header followed by raw-deflate compressed cartridge RAM.
package save

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"
)

var magic = [4]byte{0xFF, 'E', 'G', 'B'}

// Encode compresses ram and prefixes it with the .egb magic header.
func Encode(ram []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(magic[:])
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(ram); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode validates the magic header and inflates the RAM image. Callers
// should treat any error as "no usable save" and continue with zeroed RAM.
func Decode(data []byte) ([]byte, error) {
	if len(data) < 4 || data[0] != magic[0] || data[1] != magic[1] || data[2] != magic[2] || data[3] != magic[3] {
		return nil, fmt.Errorf("save: bad magic")
	}
	r := flate.NewReader(bytes.NewReader(data[4:]))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("save: inflate: %w", err)
	}
	return out, nil
}
