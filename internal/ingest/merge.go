package ingest

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/arrowbridge"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/schema"
)

// mergeChunks concatenates per-chunk partial columns in original chunk
// order and installs the final columns into the arena. Because the order
// is the chunk order, not completion order, the assembled frame does not
// depend on worker scheduling.
func mergeChunks(a *arena.Arena, mem memory.Allocator, sch *schema.Schema, results []chunkResult) error {
	const op = "mergeChunks"

	for j, field := range sch.Fields {
		parts := make([]arrow.Array, 0, len(results))
		for _, r := range results {
			if r.arrays != nil {
				parts = append(parts, r.arrays[j])
			}
		}

		merged, err := array.Concatenate(parts, mem)
		if err != nil {
			return errors.NewInternalError(op, err)
		}

		col, err := arrowbridge.ColumnFromArray(mem, field.Name, merged)
		merged.Release()
		if err != nil {
			return err
		}
		if err := a.AppendColumn(col); err != nil {
			col.Release()
			return err
		}
	}
	return nil
}

// appendEmptyColumns installs zero-row columns for every schema field,
// used when the input has a header but no data records.
func appendEmptyColumns(a *arena.Arena, mem memory.Allocator, sch *schema.Schema, opts Options) error {
	for _, field := range sch.Fields {
		app := newFieldAppender(mem, field.DType, opts.schemaOptions())
		arr := app.newArray()
		app.release()

		col, err := arrowbridge.ColumnFromArray(mem, field.Name, arr)
		arr.Release()
		if err != nil {
			return err
		}
		if err := a.AppendColumn(col); err != nil {
			col.Release()
			return err
		}
	}
	return nil
}
