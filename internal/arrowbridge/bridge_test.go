package arrowbridge_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/arrowbridge"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/testutil"
)

func TestColumnFromArrayInt64(t *testing.T) {
	mem := memory.NewGoAllocator()

	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues([]int64{1, 2, 3}, []bool{true, false, true})
	arr := b.NewArray()
	defer arr.Release()

	col, err := arrowbridge.ColumnFromArray(mem, "x", arr)
	require.NoError(t, err)
	defer col.Release()

	assert.Equal(t, arena.Int64, col.DType)
	assert.Equal(t, 3, col.Length)
	assert.Equal(t, 1, col.Nulls)
	assert.Equal(t, int64(1), col.Int64s()[0])
	assert.Equal(t, int64(3), col.Int64s()[2])
	assert.False(t, col.Valid(1))

	// Zero-copy: the column aliases the array's data buffer.
	assert.Equal(t, &arr.Data().Buffers()[1].Bytes()[0], &col.Data.Bytes()[0])
}

func TestColumnFromArrayUtf8(t *testing.T) {
	mem := memory.NewGoAllocator()

	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.Append("hello")
	b.AppendNull()
	b.Append("world")
	arr := b.NewArray()
	defer arr.Release()

	col, err := arrowbridge.ColumnFromArray(mem, "s", arr)
	require.NoError(t, err)
	defer col.Release()

	assert.Equal(t, arena.Utf8, col.DType)
	assert.Equal(t, "hello", col.ValueString(0))
	assert.Equal(t, "world", col.ValueString(2))
	assert.False(t, col.Valid(1))
}

func TestColumnFromArrayAllValid(t *testing.T) {
	mem := memory.NewGoAllocator()

	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues([]float64{1.5, 2.5}, nil)
	arr := b.NewArray()
	defer arr.Release()

	col, err := arrowbridge.ColumnFromArray(mem, "f", arr)
	require.NoError(t, err)
	defer col.Release()

	assert.Zero(t, col.Nulls)
	assert.True(t, col.Valid(0))
	assert.True(t, col.Valid(1))
}

func TestColumnFromArraySlicedCopies(t *testing.T) {
	mem := memory.NewGoAllocator()

	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues([]int64{10, 20, 30, 40}, []bool{true, true, false, true})
	arr := b.NewArray()
	defer arr.Release()

	sliced := array.NewSlice(arr, 1, 4)
	defer sliced.Release()

	col, err := arrowbridge.ColumnFromArray(mem, "x", sliced)
	require.NoError(t, err)
	defer col.Release()

	assert.Equal(t, 3, col.Length)
	assert.Equal(t, []int64{20, 0, 40}, col.Int64s())
	assert.False(t, col.Valid(1))
	assert.Equal(t, 1, col.Nulls)
}

func TestColumnFromArrayUnsupported(t *testing.T) {
	mem := memory.NewGoAllocator()

	b := array.NewBooleanBuilder(mem)
	defer b.Release()
	b.Append(true)
	arr := b.NewArray()
	defer arr.Release()

	_, err := arrowbridge.ColumnFromArray(mem, "b", arr)
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

func TestArrayFromColumnRoundTrip(t *testing.T) {
	mem := memory.NewGoAllocator()

	t.Run("float64", func(t *testing.T) {
		col := testutil.Float64Column(t, mem, "f", []*float64{testutil.F(1.5), nil, testutil.F(-2.5)})
		defer col.Release()

		arr := arrowbridge.ArrayFromColumn(col)
		defer arr.Release()

		f64 := arr.(*array.Float64)
		assert.Equal(t, 3, f64.Len())
		assert.Equal(t, 1, f64.NullN())
		assert.Equal(t, 1.5, f64.Value(0))
		assert.True(t, f64.IsNull(1))
		assert.Equal(t, -2.5, f64.Value(2))
	})

	t.Run("utf8", func(t *testing.T) {
		col := testutil.Utf8Column(t, mem, "s", []*string{testutil.S("a"), testutil.S("bc"), nil})
		defer col.Release()

		arr := arrowbridge.ArrayFromColumn(col)
		defer arr.Release()

		str := arr.(*array.String)
		assert.Equal(t, "a", str.Value(0))
		assert.Equal(t, "bc", str.Value(1))
		assert.True(t, str.IsNull(2))
	})
}

func TestColumnsFromRecord(t *testing.T) {
	mem := memory.NewGoAllocator()

	sch := arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "score", Type: arrow.PrimitiveTypes.Float64, Nullable: true},
		{Name: "label", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)

	rb := array.NewRecordBuilder(mem, sch)
	defer rb.Release()
	rb.Field(0).(*array.Int64Builder).AppendValues([]int64{1, 2}, nil)
	rb.Field(1).(*array.Float64Builder).AppendValues([]float64{0.5, 0}, []bool{true, false})
	rb.Field(2).(*array.StringBuilder).AppendValues([]string{"a", "b"}, nil)
	rec := rb.NewRecord()
	defer rec.Release()

	cols, err := arrowbridge.ColumnsFromRecord(mem, rec)
	require.NoError(t, err)
	defer func() {
		for _, c := range cols {
			c.Release()
		}
	}()

	require.Len(t, cols, 3)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "score", cols[1].Name)
	assert.Equal(t, "label", cols[2].Name)
	assert.Equal(t, []int64{1, 2}, cols[0].Int64s())
	assert.Equal(t, 1, cols[1].Nulls)
	assert.Equal(t, "b", cols[2].ValueString(1))
}
