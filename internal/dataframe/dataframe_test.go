package dataframe_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/compute"
	"github.com/pardox/pardox/internal/dataframe"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/testutil"
)

func sampleFrame(t *testing.T) *dataframe.DataFrame {
	t.Helper()
	mem := testutil.Alloc(t)
	return testutil.Frame(t, mem,
		testutil.Int64Column(t, mem, "id", []*int64{testutil.I(1), testutil.I(2), nil, testutil.I(4)}),
		testutil.Float64Column(t, mem, "score", []*float64{testutil.F(0.5), nil, testutil.F(2.5), testutil.F(3.5)}),
		testutil.Utf8Column(t, mem, "label", []*string{testutil.S("a"), testutil.S("bb"), testutil.S("ccc"), nil}),
	)
}

func TestShapeAndColumns(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	rows, cols := df.Shape()
	assert.Equal(t, 4, rows)
	assert.Equal(t, 3, cols)
	assert.Equal(t, 4, df.Len())
	assert.Equal(t, 3, df.Width())
	assert.Equal(t, []string{"id", "score", "label"}, df.Columns())
	assert.True(t, df.HasColumn("id"))
	assert.False(t, df.HasColumn("missing"))

	_, err := df.Column("missing")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)
}

func TestStringSummary(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	s := df.String()
	assert.Contains(t, s, "DataFrame[4x3]")
	assert.Contains(t, s, "id: int64")
	assert.Contains(t, s, "score: float64")
	assert.Contains(t, s, "label: utf8")

	empty := dataframe.New(nil)
	defer empty.Release()
	assert.Equal(t, "DataFrame[empty]", empty.String())
}

func TestHeadTail(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	t.Run("head", func(t *testing.T) {
		head, err := df.Head(2)
		require.NoError(t, err)
		defer head.Release()

		assert.Equal(t, 2, head.Len())
		id, err := head.Column("id")
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2}, id.Int64s())

		label, err := head.Column("label")
		require.NoError(t, err)
		assert.Equal(t, "a", label.ValueString(0))
		assert.Equal(t, "bb", label.ValueString(1))
	})

	t.Run("tail rebases string offsets", func(t *testing.T) {
		tail, err := df.Tail(2)
		require.NoError(t, err)
		defer tail.Release()

		assert.Equal(t, 2, tail.Len())
		label, err := tail.Column("label")
		require.NoError(t, err)
		assert.Equal(t, "ccc", label.ValueString(0))
		assert.True(t, label.IsNull(1))

		id, err := tail.Column("id")
		require.NoError(t, err)
		assert.True(t, id.IsNull(0))
		assert.Equal(t, int64(4), id.Int64s()[1])
	})

	t.Run("n larger than frame clamps", func(t *testing.T) {
		head, err := df.Head(100)
		require.NoError(t, err)
		defer head.Release()
		assert.Equal(t, 4, head.Len())
	})

	t.Run("copies do not alias the source", func(t *testing.T) {
		head, err := df.Head(1)
		require.NoError(t, err)
		defer head.Release()

		id, err := head.Column("id")
		require.NoError(t, err)
		id.Int64s()[0] = 999

		orig, err := df.Column("id")
		require.NoError(t, err)
		assert.Equal(t, int64(1), orig.Int64s()[0])
	})
}

func TestAssign(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()
	mem := df.Allocator()

	t.Run("appends a new column", func(t *testing.T) {
		col := testutil.Int64Column(t, mem, "extra", []*int64{testutil.I(1), testutil.I(2), testutil.I(3), testutil.I(4)})
		require.NoError(t, df.Assign(col))
		assert.Equal(t, []string{"id", "score", "label", "extra"}, df.Columns())
	})

	t.Run("replaces in place", func(t *testing.T) {
		col := testutil.Float64Column(t, mem, "extra", []*float64{testutil.F(1), testutil.F(2), testutil.F(3), testutil.F(4)})
		require.NoError(t, df.Assign(col))

		assert.Equal(t, []string{"id", "score", "label", "extra"}, df.Columns())
		s, err := df.Column("extra")
		require.NoError(t, err)
		assert.Equal(t, arena.Float64, s.DType())
	})

	t.Run("length mismatch rejected", func(t *testing.T) {
		col := testutil.Int64Column(t, mem, "bad", []*int64{testutil.I(1)})
		err := df.Assign(col)
		assert.ErrorIs(t, err, errors.ErrLengthMismatch)
		col.Release()
	})
}

func TestBinaryOps(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	require.NoError(t, df.BinaryOp("total", "id", "score", compute.OpAdd))

	total, err := df.Column("total")
	require.NoError(t, err)
	assert.Equal(t, arena.Float64, total.DType())
	assert.Equal(t, 1.5, total.Float64s()[0])
	assert.True(t, total.IsNull(1), "null score propagates")
	assert.True(t, total.IsNull(2), "null id propagates")
	assert.Equal(t, 7.5, total.Float64s()[3])

	require.NoError(t, df.BinaryScalarOp("doubled", "id", arena.Int64Scalar(2), compute.OpMul))
	doubled, err := df.Column("doubled")
	require.NoError(t, err)
	assert.Equal(t, arena.Int64, doubled.DType())
	assert.Equal(t, int64(8), doubled.Int64s()[3])

	t.Run("missing operand", func(t *testing.T) {
		err := df.BinaryOp("x", "id", "missing", compute.OpAdd)
		assert.ErrorIs(t, err, errors.ErrColumnNotFound)
	})

	t.Run("utf8 operand", func(t *testing.T) {
		err := df.BinaryOp("x", "id", "label", compute.OpAdd)
		assert.ErrorIs(t, err, errors.ErrDtypeMismatch)
	})
}

func TestAggregations(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	count, err := df.Count("id")
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	sum, err := df.Sum("id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), sum.I)

	minV, err := df.Min("score")
	require.NoError(t, err)
	assert.Equal(t, 0.5, minV.F)

	maxV, err := df.Max("score")
	require.NoError(t, err)
	assert.Equal(t, 3.5, maxV.F)

	mean, err := df.Mean("id")
	require.NoError(t, err)
	assert.InDelta(t, 7.0/3.0, mean, 1e-12)

	std, err := df.Std("id")
	require.NoError(t, err)
	assert.Greater(t, std, 0.0)

	_, err = df.Sum("missing")
	assert.ErrorIs(t, err, errors.ErrColumnNotFound)

	_, err = df.Sum("label")
	assert.ErrorIs(t, err, errors.ErrUnsupportedType)
}

func TestFillNullAndRound(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	require.NoError(t, df.FillNull(arena.Float64Scalar(0)))

	id, err := df.Column("id")
	require.NoError(t, err)
	assert.Zero(t, id.NullCount())
	assert.Equal(t, int64(0), id.Int64s()[2])

	score, err := df.Column("score")
	require.NoError(t, err)
	assert.Zero(t, score.NullCount())

	label, err := df.Column("label")
	require.NoError(t, err)
	assert.Equal(t, 1, label.NullCount(), "utf8 columns are skipped")

	require.NoError(t, df.Round(0))
	assert.Equal(t, []float64{1, 0, 3, 4}, score.Float64s())
	assert.Equal(t, int64(1), id.Int64s()[0], "int64 columns are untouched by round")
}

func TestFillNullRejectsLossyValue(t *testing.T) {
	df := sampleFrame(t)
	defer df.Release()

	err := df.FillNull(arena.Float64Scalar(0.5))
	assert.ErrorIs(t, err, errors.ErrDtypeMismatch)

	id, err := df.Column("id")
	require.NoError(t, err)
	assert.Equal(t, 1, id.NullCount(), "int64 column is untouched")
}

func TestFillNullManyColumns(t *testing.T) {
	// Columns are filled on the worker pool; the result must not depend
	// on how they are scheduled.
	mem := testutil.Alloc(t)
	cols := make([]*arena.Column, 0, 16)
	for i := 0; i < 16; i++ {
		name := string(rune('a' + i))
		cols = append(cols, testutil.Int64Column(t, mem, name,
			[]*int64{testutil.I(int64(i)), nil, nil, testutil.I(int64(-i))}))
	}
	df := testutil.Frame(t, mem, cols...)
	defer df.Release()

	require.NoError(t, df.FillNull(arena.Int64Scalar(9)))
	for _, name := range df.Columns() {
		col, err := df.Column(name)
		require.NoError(t, err)
		assert.Zero(t, col.NullCount(), "column %s", name)
	}
}
