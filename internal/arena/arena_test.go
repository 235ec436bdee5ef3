package arena_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/errors"
)

func TestAllocateColumn(t *testing.T) {
	a := arena.New(memory.NewGoAllocator())
	defer a.Release()

	col, err := a.AllocateColumn("x", arena.Int64, 5)
	require.NoError(t, err)

	assert.Equal(t, 5, col.Length)
	assert.Equal(t, 5, col.Nulls, "fresh columns start all null")
	assert.Equal(t, 5, a.NumRows())
	assert.Equal(t, 1, a.NumCols())
	assert.True(t, a.Has("x"))

	t.Run("duplicate name rejected", func(t *testing.T) {
		_, err := a.AllocateColumn("x", arena.Float64, 5)
		assert.ErrorIs(t, err, errors.ErrDuplicateColumn)
	})

	t.Run("length mismatch rejected", func(t *testing.T) {
		_, err := a.AllocateColumn("y", arena.Int64, 6)
		assert.ErrorIs(t, err, errors.ErrLengthMismatch)
	})

	t.Run("invalid dtype rejected", func(t *testing.T) {
		_, err := a.AllocateColumn("z", arena.DType(99), 5)
		assert.ErrorIs(t, err, errors.ErrUnsupportedType)
	})
}

func TestColumnOrderIsInsertionOrder(t *testing.T) {
	a := arena.New(nil)
	defer a.Release()

	for _, name := range []string{"c", "a", "b"} {
		_, err := a.AllocateColumn(name, arena.Int64, 2)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"c", "a", "b"}, a.Names())
}

func TestViewAndMutationThroughSeries(t *testing.T) {
	a := arena.New(nil)
	defer a.Release()

	col, err := a.AllocateColumn("x", arena.Int64, 3)
	require.NoError(t, err)

	data := col.Int64s()
	data[0], data[2] = 10, 30
	col.SetValid(0)
	col.SetValid(2)

	s, err := a.View("x")
	require.NoError(t, err)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.NullCount())
	assert.False(t, s.IsNull(0))
	assert.True(t, s.IsNull(1))
	assert.Equal(t, int64(10), s.Int64s()[0])

	// Writing through the view mutates the arena buffer in place.
	s.Int64s()[0] = 99
	assert.Equal(t, int64(99), col.Int64s()[0])

	v, ok := s.Value(2)
	require.True(t, ok)
	assert.Equal(t, int64(30), v.I)

	_, ok = s.Value(1)
	assert.False(t, ok)

	_, err = a.View("missing")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)
}

func TestUtf8Column(t *testing.T) {
	mem := memory.NewGoAllocator()
	a := arena.New(mem)
	defer a.Release()

	col, err := a.AllocateColumn("s", arena.Utf8, 2)
	require.NoError(t, err)

	col.Data.Resize(8)
	copy(col.Data.Bytes(), "hiworld!")
	offsets := col.ValueOffsets()
	offsets[0], offsets[1], offsets[2] = 0, 2, 8
	col.SetValid(0)
	col.SetValid(1)

	assert.Equal(t, "hi", col.ValueString(0))
	assert.Equal(t, "world!", col.ValueString(1))
}

func TestAppendAndReplaceColumn(t *testing.T) {
	mem := memory.NewGoAllocator()
	a := arena.New(mem)
	defer a.Release()

	first, err := arena.NewColumn(mem, "a", arena.Int64, 4)
	require.NoError(t, err)
	require.NoError(t, a.AppendColumn(first))

	second, err := arena.NewColumn(mem, "b", arena.Float64, 4)
	require.NoError(t, err)
	require.NoError(t, a.AppendColumn(second))

	t.Run("append length mismatch", func(t *testing.T) {
		bad, err := arena.NewColumn(mem, "c", arena.Int64, 3)
		require.NoError(t, err)
		assert.ErrorIs(t, a.AppendColumn(bad), errors.ErrLengthMismatch)
		bad.Release()
	})

	t.Run("replace keeps slot position and may change dtype", func(t *testing.T) {
		repl, err := arena.NewColumn(mem, "a", arena.Utf8, 4)
		require.NoError(t, err)
		require.NoError(t, a.ReplaceColumn(repl))

		assert.Equal(t, []string{"a", "b"}, a.Names())
		got, err := a.Column("a")
		require.NoError(t, err)
		assert.Equal(t, arena.Utf8, got.DType)
	})

	t.Run("replace of a new name appends", func(t *testing.T) {
		extra, err := arena.NewColumn(mem, "c", arena.Int64, 4)
		require.NoError(t, err)
		require.NoError(t, a.ReplaceColumn(extra))
		assert.Equal(t, []string{"a", "b", "c"}, a.Names())
	})
}

func TestReleaseRunsClosers(t *testing.T) {
	a := arena.New(nil)
	_, err := a.AllocateColumn("x", arena.Int64, 1)
	require.NoError(t, err)

	var order []int
	a.OnRelease(func() { order = append(order, 1) })
	a.OnRelease(func() { order = append(order, 2) })

	a.Release()

	assert.Equal(t, []int{2, 1}, order, "closers run in reverse registration order")
	assert.Zero(t, a.NumRows())
	assert.Zero(t, a.NumCols())
}

func TestSetValidSetNullBookkeeping(t *testing.T) {
	col, err := arena.NewColumn(memory.NewGoAllocator(), "x", arena.Float64, 3)
	require.NoError(t, err)
	defer col.Release()

	col.SetValid(0)
	col.SetValid(0) // idempotent
	assert.Equal(t, 2, col.Nulls)

	col.SetNull(0)
	col.SetNull(0) // idempotent
	assert.Equal(t, 3, col.Nulls)

	col.SetValid(1)
	col.SetValid(2)
	col.RecountNulls()
	assert.Equal(t, 1, col.Nulls)
}

func TestScalar(t *testing.T) {
	i := arena.Int64Scalar(7)
	assert.Equal(t, arena.Int64, i.DType)
	assert.Equal(t, 7.0, i.AsFloat())

	f := arena.Float64Scalar(2.5)
	assert.Equal(t, arena.Float64, f.DType)
	assert.Equal(t, 2.5, f.AsFloat())
}

func TestDTypeProperties(t *testing.T) {
	assert.True(t, arena.Int64.Numeric())
	assert.True(t, arena.Float64.Numeric())
	assert.False(t, arena.Utf8.Numeric())

	assert.Equal(t, 8, arena.Int64.FixedWidth())
	assert.Equal(t, 8, arena.Float64.FixedWidth())
	assert.Equal(t, 0, arena.Utf8.FixedWidth())

	assert.False(t, arena.DType(42).Valid())

	for _, d := range []arena.DType{arena.Int64, arena.Float64, arena.Utf8} {
		got, ok := arena.DTypeFromArrow(d.ArrowType())
		require.True(t, ok)
		assert.Equal(t, d, got)
	}
}
