// Package testutil provides common testing utilities to reduce code duplication
// across test files in the pardox DataFrame engine.
//
// It consolidates the recurring test patterns: allocator setup, arena and
// column construction from Go slices, and null placement.
package testutil

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/dataframe"
)

// Alloc returns the allocator used by tests.
func Alloc(tb testing.TB) memory.Allocator {
	tb.Helper()
	return memory.NewGoAllocator()
}

// Int64Column builds an Int64 column from values; a nil entry is a null.
func Int64Column(tb testing.TB, mem memory.Allocator, name string, values []*int64) *arena.Column {
	tb.Helper()

	col, err := arena.NewColumn(mem, name, arena.Int64, len(values))
	require.NoError(tb, err)

	data := col.Int64s()
	for i, v := range values {
		if v == nil {
			continue
		}
		data[i] = *v
		col.SetValid(i)
	}
	return col
}

// Float64Column builds a Float64 column from values; a nil entry is a null.
func Float64Column(tb testing.TB, mem memory.Allocator, name string, values []*float64) *arena.Column {
	tb.Helper()

	col, err := arena.NewColumn(mem, name, arena.Float64, len(values))
	require.NoError(tb, err)

	data := col.Float64s()
	for i, v := range values {
		if v == nil {
			continue
		}
		data[i] = *v
		col.SetValid(i)
	}
	return col
}

// Utf8Column builds a Utf8 column from values; a nil entry is a null.
// Null slots contribute a zero-length value to the offsets.
func Utf8Column(tb testing.TB, mem memory.Allocator, name string, values []*string) *arena.Column {
	tb.Helper()

	col, err := arena.NewColumn(mem, name, arena.Utf8, len(values))
	require.NoError(tb, err)

	offsets := col.ValueOffsets()
	total := 0
	for _, v := range values {
		if v != nil {
			total += len(*v)
		}
	}
	col.Data.Resize(total)

	pos := int32(0)
	buf := col.Data.Bytes()
	for i, v := range values {
		offsets[i] = pos
		if v == nil {
			continue
		}
		copy(buf[pos:], *v)
		pos += int32(len(*v))
		col.SetValid(i)
	}
	offsets[len(values)] = pos
	return col
}

// Frame builds a DataFrame owning the given columns.
func Frame(tb testing.TB, mem memory.Allocator, cols ...*arena.Column) *dataframe.DataFrame {
	tb.Helper()

	a := arena.New(mem)
	for _, col := range cols {
		require.NoError(tb, a.AppendColumn(col))
	}
	return dataframe.New(a)
}

// I returns a pointer to v, for building nullable int64 fixtures.
func I(v int64) *int64 { return &v }

// F returns a pointer to v, for building nullable float64 fixtures.
func F(v float64) *float64 { return &v }

// S returns a pointer to v, for building nullable string fixtures.
func S(v string) *string { return &v }
