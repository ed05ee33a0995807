package wire

import (
	"fmt"
	"io"
	"os"
)

// WriteFile stores v at path using the wire encoding.
func WriteFile(path string, v []float32) error {
	if err := os.WriteFile(path, Encode(nil, v), 0o644); err != nil {
		return fmt.Errorf("wire: failed to write %s: %w", path, err)
	}
	return nil
}

// ReadFile loads a vector stored with WriteFile. The parameter count is
// derived from the file size.
func ReadFile(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wire: failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadAll(f)
}

// ReadAll decodes vectors from r until EOF.
func ReadAll(r io.Reader) ([]float32, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}
	if len(b)%FloatSize != 0 {
		return nil, protocolErrorf("%d bytes is not a whole number of parameters", len(b))
	}
	v := make([]float32, len(b)/FloatSize)
	if err := Decode(v, b); err != nil {
		return nil, err
	}
	return v, nil
}
