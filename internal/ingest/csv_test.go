package ingest_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/ingest"
)

func readString(t *testing.T, input string, opts ingest.Options) *arena.Arena {
	t.Helper()
	a, err := ingest.ReadCSV(context.Background(), memory.NewGoAllocator(), strings.NewReader(input), opts)
	require.NoError(t, err)
	return a
}

func TestReadCSVBasic(t *testing.T) {
	a := readString(t, "a,b\n1,2.5\n,3.0\n3,\n", ingest.DefaultOptions())
	defer a.Release()

	assert.Equal(t, 3, a.NumRows())
	assert.Equal(t, []string{"a", "b"}, a.Names())

	sa, err := a.View("a")
	require.NoError(t, err)
	assert.Equal(t, arena.Int64, sa.DType())
	assert.Equal(t, int64(1), sa.Int64s()[0])
	assert.True(t, sa.IsNull(1))
	assert.Equal(t, int64(3), sa.Int64s()[2])

	sb, err := a.View("b")
	require.NoError(t, err)
	assert.Equal(t, arena.Float64, sb.DType())
	assert.Equal(t, 2.5, sb.Float64s()[0])
	assert.Equal(t, 3.0, sb.Float64s()[1])
	assert.True(t, sb.IsNull(2))
}

func TestReadCSVNoTrailingNewline(t *testing.T) {
	a := readString(t, "a\n1\n2", ingest.DefaultOptions())
	defer a.Release()

	s, err := a.View("a")
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(2), s.Int64s()[1])
}

func TestReadCSVQuoting(t *testing.T) {
	input := "name,note\n\"Smith, Jane\",\"line one\nline two\"\n\"say \"\"hi\"\"\",plain\n"
	a := readString(t, input, ingest.DefaultOptions())
	defer a.Release()

	assert.Equal(t, 2, a.NumRows())

	name, err := a.View("name")
	require.NoError(t, err)
	assert.Equal(t, arena.Utf8, name.DType())
	assert.Equal(t, "Smith, Jane", name.ValueString(0))
	assert.Equal(t, `say "hi"`, name.ValueString(1))

	note, err := a.View("note")
	require.NoError(t, err)
	assert.Equal(t, "line one\nline two", note.ValueString(0))
	assert.Equal(t, "plain", note.ValueString(1))
}

func TestReadCSVNoHeader(t *testing.T) {
	opts := ingest.DefaultOptions()
	opts.Header = false

	a := readString(t, "1,x\n2,y\n", opts)
	defer a.Release()

	assert.Equal(t, []string{"column_0", "column_1"}, a.Names())
	assert.Equal(t, 2, a.NumRows())
}

func TestReadCSVNullToken(t *testing.T) {
	opts := ingest.DefaultOptions()
	opts.NullToken = "NA"

	a := readString(t, "x\n1\nNA\n3\n", opts)
	defer a.Release()

	s, err := a.View("x")
	require.NoError(t, err)
	assert.Equal(t, arena.Int64, s.DType())
	assert.True(t, s.IsNull(1))
	assert.Equal(t, 1, s.NullCount())
}

func TestReadCSVCustomDelimiter(t *testing.T) {
	opts := ingest.DefaultOptions()
	opts.Delimiter = ';'

	a := readString(t, "a;b\n1;2\n", opts)
	defer a.Release()

	assert.Equal(t, []string{"a", "b"}, a.Names())
	assert.Equal(t, 1, a.NumRows())
}

func TestReadCSVHeaderOnly(t *testing.T) {
	a := readString(t, "a,b\n", ingest.DefaultOptions())
	defer a.Release()

	assert.Equal(t, []string{"a", "b"}, a.Names())
	assert.Equal(t, 0, a.NumRows())
}

func TestReadCSVEmptyInput(t *testing.T) {
	a := readString(t, "", ingest.DefaultOptions())
	defer a.Release()

	assert.Equal(t, 0, a.NumCols())
	assert.Equal(t, 0, a.NumRows())
}

func TestReadCSVDeterministicAcrossWorkerCounts(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("id,score,tag\n")
	for i := 0; i < 5000; i++ {
		switch i % 5 {
		case 0:
			fmt.Fprintf(&sb, "%d,,tag_%d\n", i, i)
		case 1:
			fmt.Fprintf(&sb, ",%d.25,\"quoted, %d\"\n", i, i)
		default:
			fmt.Fprintf(&sb, "%d,%d.5,tag_%d\n", i, i, i)
		}
	}
	input := sb.String()

	baseline := readString(t, input, ingest.DefaultOptions())
	defer baseline.Release()

	for _, workers := range []int{1, 2, 8, 17} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			opts := ingest.DefaultOptions()
			opts.Workers = workers

			a := readString(t, input, opts)
			defer a.Release()

			require.Equal(t, baseline.NumRows(), a.NumRows())
			require.Equal(t, baseline.Names(), a.Names())

			for _, name := range baseline.Names() {
				want, err := baseline.View(name)
				require.NoError(t, err)
				got, err := a.View(name)
				require.NoError(t, err)

				require.Equal(t, want.DType(), got.DType())
				require.Equal(t, want.NullCount(), got.NullCount())
				for i := 0; i < want.Len(); i++ {
					require.Equal(t, want.IsNull(i), got.IsNull(i), "row %d", i)
					if want.IsNull(i) {
						continue
					}
					wv, _ := want.Value(i)
					gv, _ := got.Value(i)
					require.Equal(t, wv, gv, "row %d", i)
				}
			}
		})
	}
}

func TestReadCSVFailFast(t *testing.T) {
	t.Run("value outside sample fails under locked schema", func(t *testing.T) {
		opts := ingest.DefaultOptions()
		opts.SampleRows = 1
		opts.Workers = 1

		_, err := ingest.ReadCSV(context.Background(), nil, strings.NewReader("a\n1\n2\nabc\n"), opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, errors.ErrMalformedRow)

		var fe *errors.FrameError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, int64(4), fe.Row)
		assert.GreaterOrEqual(t, fe.Offset, int64(0))
	})

	t.Run("wrong field count", func(t *testing.T) {
		opts := ingest.DefaultOptions()
		opts.SampleRows = 1
		opts.Workers = 2

		_, err := ingest.ReadCSV(context.Background(), nil, strings.NewReader("a,b\n1,2\n3\n"), opts)
		assert.ErrorIs(t, err, errors.ErrMalformedRow)
	})

	t.Run("lowest failing row wins with many workers", func(t *testing.T) {
		var sb strings.Builder
		sb.WriteString("x\n")
		for i := 0; i < 4000; i++ {
			if i == 100 || i == 3900 {
				sb.WriteString("bad\n")
				continue
			}
			fmt.Fprintf(&sb, "%d\n", i)
		}

		opts := ingest.DefaultOptions()
		opts.SampleRows = 10
		opts.Workers = 8

		_, err := ingest.ReadCSV(context.Background(), nil, strings.NewReader(sb.String()), opts)
		require.Error(t, err)

		var fe *errors.FrameError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, int64(102), fe.Row, "header is record 1, data row i sits at record i+2")
	})
}

func TestReadCSVCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ingest.ReadCSV(ctx, nil, strings.NewReader("a\n1\n2\n"), ingest.DefaultOptions())
	assert.ErrorIs(t, err, context.Canceled)
}
