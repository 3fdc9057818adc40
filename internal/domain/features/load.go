package features

import (
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// LoadSchema reads the training-time column list from path.
func LoadSchema(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactMissing, err)
	}
	defer f.Close()
	return DecodeSchema(f)
}

// DecodeSchema reads a JSON array of column names from r.
func DecodeSchema(r io.Reader) (*Schema, error) {
	var cols []string
	if err := json.NewDecoder(r).Decode(&cols); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return NewSchema(cols)
}
