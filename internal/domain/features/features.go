// Package features assembles the single-row feature vector fed to the
// revenue model from the training-time column schema and form input.
package features

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Column names written from user input.
const (
	ColBudget    = "budget"
	ColRuntime   = "runtime"
	ColYear      = "release_year"
	ColMonth     = "release_month"
	ColDayOfWeek = "release_dayofweek"
	GenrePrefix  = "genre_"
)

// Row is one complete feature vector keyed by column name.
type Row map[string]float64

// Input bounds and defaults offered by the estimator form.
const (
	MinBudget        = 10_000
	MaxBudget        = 400_000_000
	DefaultBudget    = 50_000_000
	BudgetStep       = 1_000_000
	MinRuntime       = 60
	MaxRuntime       = 240
	DefaultRuntime   = 120
	MinYear          = 1980
	MaxYear          = 2025
	DefaultYear      = 2023
	DefaultMonth     = 6
	DefaultDayOfWeek = 4
)

// Input is the user-supplied part of a row. DayOfWeek counts from
// 0=Monday.
type Input struct {
	Budget    float64  `json:"budget" validate:"gte=10000,lte=400000000"`
	Runtime   float64  `json:"runtime" validate:"gte=60,lte=240"`
	Year      int      `json:"release_year" validate:"gte=1980,lte=2025"`
	Month     int      `json:"release_month" validate:"gte=1,lte=12"`
	DayOfWeek int      `json:"release_dayofweek" validate:"gte=0,lte=6"`
	Genres    []string `json:"genres" validate:"dive,required"`
}

// DefaultInput returns the form's initial values.
func DefaultInput() Input {
	return Input{
		Budget:    DefaultBudget,
		Runtime:   DefaultRuntime,
		Year:      DefaultYear,
		Month:     DefaultMonth,
		DayOfWeek: DefaultDayOfWeek,
	}
}

// Schema is the ordered set of columns the model was trained on.
type Schema struct {
	columns []string
	index   map[string]struct{}
}

// NewSchema validates columns and builds a Schema. Column order is kept.
func NewSchema(columns []string) (*Schema, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: no columns", ErrInvalidSchema)
	}
	s := &Schema{
		columns: make([]string, 0, len(columns)),
		index:   make(map[string]struct{}, len(columns)),
	}
	for i, c := range columns {
		if strings.TrimSpace(c) == "" {
			return nil, fmt.Errorf("%w: empty column at position %d", ErrInvalidSchema, i)
		}
		if _, dup := s.index[c]; dup {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidSchema, c)
		}
		s.index[c] = struct{}{}
		s.columns = append(s.columns, c)
	}
	return s, nil
}

// Columns returns a copy of the schema columns in training order.
func (s *Schema) Columns() []string {
	return slices.Clone(s.columns)
}

// Len returns the number of columns.
func (s *Schema) Len() int { return len(s.columns) }

// Has reports whether column is part of the schema.
func (s *Schema) Has(column string) bool {
	_, ok := s.index[column]
	return ok
}

// Genres returns the display labels of the one-hot genre columns, in schema
// order. A bare "genre_" column has no label and is not offered.
func (s *Schema) Genres() []string {
	var out []string
	for _, c := range s.columns {
		if label, ok := strings.CutPrefix(c, GenrePrefix); ok && label != "" {
			out = append(out, label)
		}
	}
	return out
}

// Equal reports whether columns names exactly the schema's set, ignoring order.
func (s *Schema) Equal(columns []string) bool {
	if len(columns) != len(s.columns) {
		return false
	}
	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if !s.Has(c) {
			return false
		}
		seen[c] = struct{}{}
	}
	return len(seen) == len(s.columns)
}

// Assemble builds a complete row: every schema column is present and zero
// unless written by in. Numeric inputs land on their columns when the schema
// has them; each selected genre sets genre_<label> to 1 when that column
// exists. Labels without a column are ignored.
func Assemble(s *Schema, in Input) Row {
	row := make(Row, len(s.columns))
	for _, c := range s.columns {
		row[c] = 0
	}

	set := func(col string, v float64) {
		if s.Has(col) {
			row[col] = v
		}
	}
	set(ColBudget, in.Budget)
	set(ColRuntime, in.Runtime)
	set(ColYear, float64(in.Year))
	set(ColMonth, float64(in.Month))
	set(ColDayOfWeek, float64(in.DayOfWeek))

	for _, g := range in.Genres {
		set(GenrePrefix+g, 1)
	}
	return row
}

// Columns returns the row's column names sorted, mostly for diagnostics.
func (r Row) Columns() []string {
	return slices.Sorted(maps.Keys(r))
}

// Vector returns the row's values in the given column order. Missing
// columns are reported rather than defaulted.
func (r Row) Vector(columns []string) ([]float64, error) {
	out := make([]float64, len(columns))
	for i, c := range columns {
		v, ok := r[c]
		if !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrColumnMismatch, c)
		}
		out[i] = v
	}
	return out, nil
}
