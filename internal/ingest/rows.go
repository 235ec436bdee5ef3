package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/logging"
	"github.com/pardox/pardox/internal/parallel"
	"github.com/pardox/pardox/internal/schema"
)

// RowSet is an already-materialized rectangular result, the shape handed
// over by the SQL boundary: column names, optional per-column dtype
// hints, and row values where nil marks a null.
type RowSet struct {
	Names []string
	// Hints fixes the dtype per column. When empty, dtypes are inferred
	// from the leading rows the same way CSV ingestion infers them.
	Hints []arena.DType
	Rows  [][]any
}

// FromRows builds an arena from a materialized row set. It shares the
// CSV path from the post-parse stage on: per-chunk partial columns built
// against a locked schema, concatenated in chunk order.
func FromRows(ctx context.Context, mem memory.Allocator, rs RowSet, opts Options) (*arena.Arena, error) {
	const op = "FromRows"
	start := time.Now()

	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	if opts.SampleRows <= 0 {
		opts.SampleRows = DefaultOptions().SampleRows
	}

	for i, row := range rs.Rows {
		if len(row) != len(rs.Names) {
			return nil, errors.NewMalformedRowError(op, int64(i+1), -1, "wrong field count", nil)
		}
	}

	sch, err := rowSchema(rs, opts)
	if err != nil {
		return nil, err
	}

	a := arena.New(mem)
	if len(rs.Rows) == 0 {
		if err := appendEmptyColumns(a, mem, sch, opts); err != nil {
			a.Release()
			return nil, err
		}
		return a, nil
	}

	chunks := planRowChunks(len(rs.Rows), opts.Workers)

	pool := parallel.NewWorkerPool(opts.Workers)
	defer pool.Close()

	results, err := parallel.ProcessIndexedErr(ctx, pool, chunks,
		func(ctx context.Context, _ int, c rowChunk) (chunkResult, error) {
			return buildRowChunk(ctx, mem, rs, c, sch, opts)
		})
	if err != nil {
		releaseResults(results)
		return nil, err
	}

	if err := mergeChunks(a, mem, sch, results); err != nil {
		releaseResults(results)
		a.Release()
		return nil, err
	}

	logging.Named("ingest").Debug("rows ingested",
		zap.Int("rows", a.NumRows()),
		zap.Int("columns", a.NumCols()),
		zap.Duration("elapsed", time.Since(start)))

	return a, nil
}

// rowSchema locks the schema from hints when supplied, otherwise from the
// Go types of the sampled leading rows.
func rowSchema(rs RowSet, opts Options) (*schema.Schema, error) {
	const op = "FromRows"

	fields := make([]schema.Field, len(rs.Names))
	if len(rs.Hints) > 0 {
		if len(rs.Hints) != len(rs.Names) {
			return nil, errors.NewLengthMismatchError(op, "", len(rs.Names), len(rs.Hints))
		}
		for i, name := range rs.Names {
			if !rs.Hints[i].Valid() {
				return nil, errors.NewUnsupportedTypeError(op, fmt.Sprintf("dtype tag %d", rs.Hints[i]))
			}
			fields[i] = schema.Field{Name: name, DType: rs.Hints[i]}
		}
		return &schema.Schema{Fields: fields}, nil
	}

	sample := len(rs.Rows)
	if sample > opts.SampleRows {
		sample = opts.SampleRows
	}
	for i, name := range rs.Names {
		fields[i] = schema.Field{Name: name, DType: inferValueDType(rs.Rows[:sample], i)}
	}
	return &schema.Schema{Fields: fields}, nil
}

func inferValueDType(sample [][]any, col int) arena.DType {
	canBeInt := true
	canBeFloat := true

	for _, row := range sample {
		switch row[col].(type) {
		case nil:
		case int64, int, int32:
		case float64, float32:
			canBeInt = false
		default:
			canBeInt = false
			canBeFloat = false
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

type rowChunk struct{ lo, hi int }

func planRowChunks(n, workers int) []rowChunk {
	if workers <= 0 {
		workers = parallel.NewWorkerPool(0).NumWorkers()
	}
	if workers > n {
		workers = n
	}
	per := (n + workers - 1) / workers

	chunks := make([]rowChunk, 0, workers)
	for lo := 0; lo < n; lo += per {
		hi := lo + per
		if hi > n {
			hi = n
		}
		chunks = append(chunks, rowChunk{lo, hi})
	}
	return chunks
}

func buildRowChunk(ctx context.Context, mem memory.Allocator, rs RowSet, c rowChunk, sch *schema.Schema, opts Options) (chunkResult, error) {
	const op = "FromRows"

	apps := make([]fieldAppender, sch.NumFields())
	for i, f := range sch.Fields {
		apps[i] = newFieldAppender(mem, f.DType, opts.schemaOptions())
	}
	releaseApps := func() {
		for _, a := range apps {
			a.release()
		}
	}

	for i := c.lo; i < c.hi; i++ {
		if (i-c.lo)%1024 == 0 {
			select {
			case <-ctx.Done():
				releaseApps()
				return chunkResult{}, nil
			default:
			}
		}

		for j, v := range rs.Rows[i] {
			if err := apps[j].appendValue(v); err != nil {
				releaseApps()
				return chunkResult{}, errors.NewMalformedRowError(op, int64(i+1), -1,
					"value does not fit column '"+sch.Fields[j].Name+"'", err)
			}
		}
	}

	result := chunkResult{rows: c.hi - c.lo}
	result.arrays = make([]arrow.Array, len(apps))
	for i, a := range apps {
		result.arrays[i] = a.newArray()
		a.release()
	}
	return result, nil
}

func errValueType(v any, want arena.DType) error {
	return fmt.Errorf("cannot store %T in %s column", v, want)
}
