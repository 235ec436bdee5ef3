package ingest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/ingest"
)

func TestFromRowsInference(t *testing.T) {
	rs := ingest.RowSet{
		Names: []string{"id", "score", "label"},
		Rows: [][]any{
			{int64(1), 0.5, "a"},
			{int64(2), nil, "b"},
			{nil, 1.5, nil},
		},
	}

	a, err := ingest.FromRows(context.Background(), nil, rs, ingest.DefaultOptions())
	require.NoError(t, err)
	defer a.Release()

	assert.Equal(t, 3, a.NumRows())
	assert.Equal(t, []string{"id", "score", "label"}, a.Names())

	id, err := a.View("id")
	require.NoError(t, err)
	assert.Equal(t, arena.Int64, id.DType())
	assert.Equal(t, int64(2), id.Int64s()[1])
	assert.True(t, id.IsNull(2))

	score, err := a.View("score")
	require.NoError(t, err)
	assert.Equal(t, arena.Float64, score.DType())
	assert.True(t, score.IsNull(1))

	label, err := a.View("label")
	require.NoError(t, err)
	assert.Equal(t, arena.Utf8, label.DType())
	assert.Equal(t, "b", label.ValueString(1))
	assert.True(t, label.IsNull(2))
}

func TestFromRowsHints(t *testing.T) {
	rs := ingest.RowSet{
		Names: []string{"x"},
		Hints: []arena.DType{arena.Float64},
		Rows:  [][]any{{int64(1)}, {2.5}},
	}

	a, err := ingest.FromRows(context.Background(), nil, rs, ingest.DefaultOptions())
	require.NoError(t, err)
	defer a.Release()

	s, err := a.View("x")
	require.NoError(t, err)
	assert.Equal(t, arena.Float64, s.DType())
	assert.Equal(t, []float64{1, 2.5}, s.Float64s())
}

func TestFromRowsErrors(t *testing.T) {
	t.Run("ragged rows", func(t *testing.T) {
		rs := ingest.RowSet{
			Names: []string{"a", "b"},
			Rows:  [][]any{{int64(1), int64(2)}, {int64(3)}},
		}
		_, err := ingest.FromRows(context.Background(), nil, rs, ingest.DefaultOptions())
		assert.ErrorIs(t, err, errors.ErrMalformedRow)
	})

	t.Run("value does not fit locked dtype", func(t *testing.T) {
		rs := ingest.RowSet{
			Names: []string{"a"},
			Hints: []arena.DType{arena.Int64},
			Rows:  [][]any{{int64(1)}, {3.5}},
		}
		_, err := ingest.FromRows(context.Background(), nil, rs, ingest.DefaultOptions())
		assert.ErrorIs(t, err, errors.ErrMalformedRow)
	})

	t.Run("hint count mismatch", func(t *testing.T) {
		rs := ingest.RowSet{
			Names: []string{"a", "b"},
			Hints: []arena.DType{arena.Int64},
			Rows:  [][]any{{int64(1), int64(2)}},
		}
		_, err := ingest.FromRows(context.Background(), nil, rs, ingest.DefaultOptions())
		assert.ErrorIs(t, err, errors.ErrLengthMismatch)
	})
}

func TestFromRowsEmpty(t *testing.T) {
	rs := ingest.RowSet{Names: []string{"a"}, Hints: []arena.DType{arena.Utf8}}

	a, err := ingest.FromRows(context.Background(), nil, rs, ingest.DefaultOptions())
	require.NoError(t, err)
	defer a.Release()

	assert.Equal(t, 0, a.NumRows())
	assert.Equal(t, []string{"a"}, a.Names())
}
