// Package catalog holds the item id -> title lookup that doubles as the
// recommendation candidate pool.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
)

// Catalog is an immutable, ordered mapping from item id to display title.
// Iteration order is the key order of the source document.
type Catalog struct {
	ids      []int64
	titles   map[string]string
	nonCanon []string
}

// Load reads a catalog artifact from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrArtifactMissing, err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads a JSON object {"<id>": "<title>", ...} from r, keeping key order.
// Keys must parse as integers. Keys that are integers but not in canonical
// decimal form (e.g. "007") are kept, but cannot be projected back to a title.
// A null title is rejected.
func Decode(r io.Reader) (*Catalog, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidArtifact)
	}

	c := &Catalog{titles: make(map[string]string)}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
		}
		key := tok.(string) // object keys are always strings

		var title *string
		if err := dec.Decode(&title); err != nil {
			return nil, fmt.Errorf("%w: title for %q: %w", ErrInvalidArtifact, key, err)
		}
		if title == nil {
			return nil, fmt.Errorf("%w: title for %q is null", ErrInvalidArtifact, key)
		}

		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: item id %q is not an integer", ErrInvalidArtifact, key)
		}
		if _, dup := c.titles[key]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %q", ErrInvalidArtifact, key)
		}
		if strconv.FormatInt(id, 10) != key {
			c.nonCanon = append(c.nonCanon, key)
		}
		c.ids = append(c.ids, id)
		c.titles[key] = *title
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArtifact, err)
	}
	return c, nil
}

// New builds a catalog from ordered pairs; used by tests and tooling.
func New(ids []int64, titles []string) (*Catalog, error) {
	if len(ids) != len(titles) {
		return nil, fmt.Errorf("%w: %d ids for %d titles", ErrInvalidArtifact, len(ids), len(titles))
	}
	c := &Catalog{ids: slices.Clone(ids), titles: make(map[string]string, len(ids))}
	for i, id := range ids {
		key := strconv.FormatInt(id, 10)
		if _, dup := c.titles[key]; dup {
			return nil, fmt.Errorf("%w: duplicate item id %d", ErrInvalidArtifact, id)
		}
		c.titles[key] = titles[i]
	}
	return c, nil
}

// IDs returns the candidate ids in catalog order. The slice must not be modified.
func (c *Catalog) IDs() []int64 { return c.ids }

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.ids) }

// Title projects id to its display title.
func (c *Catalog) Title(id int64) (string, bool) {
	t, ok := c.titles[strconv.FormatInt(id, 10)]
	return t, ok
}

// NonCanonicalKeys lists keys whose integer form does not round-trip.
func (c *Catalog) NonCanonicalKeys() []string { return slices.Clone(c.nonCanon) }
