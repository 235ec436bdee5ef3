// Package schema implements sample-based type inference.
//
// Inference classifies each column position from the first N records using
// a strict widening order: Int64 (every sampled value parses as an integer),
// then Float64 (every sampled value parses as a real), then Utf8 as the
// unconditional fallback. A single non-conforming value widens the entire
// column. The decision is one-shot: once a schema is locked it is never
// re-inferred, and a value outside the sample that fails to parse under the
// locked dtype is a fail-fast ingestion error, never a silent coercion.
package schema

import (
	"fmt"
	"strconv"

	"github.com/pardox/pardox/internal/arena"
)

// Field is one (name, dtype) pair of a locked schema.
type Field struct {
	Name  string
	DType arena.DType
}

// Schema is the ordered sequence of fields produced once during ingestion.
type Schema struct {
	Fields []Field
}

// NumFields returns the column count.
func (s *Schema) NumFields() int {
	return len(s.Fields)
}

// Names returns the field names in order.
func (s *Schema) Names() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Options control inference behavior.
type Options struct {
	// NullToken, in addition to the empty string, marks a field as null.
	NullToken string
}

// IsNull reports whether a raw field is a null marker under the options.
func (o Options) IsNull(field string) bool {
	return field == "" || (o.NullToken != "" && field == o.NullToken)
}

// SyntheticName returns the positional column name used when the input has
// no header row.
func SyntheticName(i int) string {
	return fmt.Sprintf("column_%d", i)
}

// Infer locks a schema from sampled records. Every record must have
// len(names) fields; the caller guarantees rectangularity. Null markers do
// not affect classification, so an all-null sample stays Int64 and later
// non-null values must conform or widen never happens — they fail fast.
func Infer(names []string, sample [][]string, opts Options) *Schema {
	fields := make([]Field, len(names))
	for col, name := range names {
		fields[col] = Field{Name: name, DType: inferColumn(sample, col, opts)}
	}
	return &Schema{Fields: fields}
}

func inferColumn(sample [][]string, col int, opts Options) arena.DType {
	canBeInt := true
	canBeFloat := true

	for _, record := range sample {
		value := record[col]
		if opts.IsNull(value) {
			continue
		}

		if canBeInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				canBeInt = false
			}
		}
		if canBeFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				canBeFloat = false
			}
		}
		if !canBeFloat {
			break
		}
	}

	switch {
	case canBeInt:
		return arena.Int64
	case canBeFloat:
		return arena.Float64
	default:
		return arena.Utf8
	}
}
