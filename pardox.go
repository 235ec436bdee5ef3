// Package pardox provides a columnar DataFrame engine with parallel CSV
// ingestion, a zero-parse binary persistence format, and vectorized
// null-aware compute. This package is the sole public API of the engine.
package pardox

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/arrowbridge"
	"github.com/pardox/pardox/internal/compute"
	"github.com/pardox/pardox/internal/dataframe"
	"github.com/pardox/pardox/internal/ingest"
	"github.com/pardox/pardox/internal/prdx"
)

// DType identifies the physical type of a column.
type DType = arena.DType

// Column dtypes.
const (
	Int64   = arena.Int64
	Float64 = arena.Float64
	Utf8    = arena.Utf8
)

// Scalar is a typed scalar value for arithmetic and fill operations.
type Scalar = arena.Scalar

// Int64Scalar wraps an int64 for scalar operations.
func Int64Scalar(v int64) Scalar { return arena.Int64Scalar(v) }

// Float64Scalar wraps a float64 for scalar operations.
func Float64Scalar(v float64) Scalar { return arena.Float64Scalar(v) }

// Op is a binary arithmetic operator.
type Op = compute.Op

// Binary arithmetic operators.
const (
	Add = compute.OpAdd
	Sub = compute.OpSub
	Mul = compute.OpMul
	Div = compute.OpDiv
)

// CSVOptions configure CSV ingestion.
type CSVOptions = ingest.Options

// DefaultCSVOptions returns the standard CSV contract: comma-delimited
// with a header row, nulls marked by empty fields.
func DefaultCSVOptions() CSVOptions {
	return ingest.DefaultOptions()
}

// Series is a read view of one column.
type Series = arena.Series

// DataFrame is the public handle for a table of typed columns. It wraps
// the internal frame to hide implementation details.
type DataFrame struct {
	df *dataframe.DataFrame
}

// RowQuerier is the SQL boundary. *sql.DB satisfies it through a thin
// adapter (see SQLAdapter); tests use in-memory fakes.
type RowQuerier interface {
	// Query runs the statement and materializes the full result:
	// column names plus rows of driver values, nil marking NULL.
	Query(ctx context.Context, query string, args ...any) (columns []string, rows [][]any, err error)
}

// ReadCSV parses CSV from r into a new DataFrame using the configured
// worker pool. The result is identical for any worker count.
func ReadCSV(ctx context.Context, r io.Reader, opts CSVOptions) (*DataFrame, error) {
	a, err := ingest.ReadCSV(ctx, nil, r, opts)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: dataframe.New(a)}, nil
}

// ReadCSVFile parses a CSV file into a new DataFrame.
func ReadCSVFile(ctx context.Context, path string, opts CSVOptions) (*DataFrame, error) {
	a, err := ingest.ReadCSVFile(ctx, nil, path, opts)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: dataframe.New(a)}, nil
}

// ReadSQL runs a query through q and materializes the result set into a
// DataFrame. Column dtypes are inferred from the leading rows unless the
// driver values already carry int64/float64/string types throughout.
func ReadSQL(ctx context.Context, q RowQuerier, query string, args ...any) (*DataFrame, error) {
	names, rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	a, err := ingest.FromRows(ctx, nil, ingest.RowSet{Names: names, Rows: rows}, ingest.DefaultOptions())
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: dataframe.New(a)}, nil
}

// ReadPRDX loads a .prdx file into a DataFrame without parsing values:
// column buffers alias the file image (memory-mapped where supported).
func ReadPRDX(path string) (*DataFrame, error) {
	a, err := prdx.ReadFile(nil, path)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: dataframe.New(a)}, nil
}

// ReadPRDXFrom loads a .prdx stream. The bytes are copied into aligned
// buffers first, since a generic reader cannot be mapped.
func ReadPRDXFrom(r io.Reader) (*DataFrame, error) {
	a, err := prdx.Read(nil, r)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: dataframe.New(a)}, nil
}

// FromArrow builds a DataFrame from an Arrow record. Buffers are aliased
// without copying when the physical layout matches (the record must stay
// retained by the caller only until FromArrow returns).
func FromArrow(rec arrow.Record) (*DataFrame, error) {
	mem := memory.NewGoAllocator()
	cols, err := arrowbridge.ColumnsFromRecord(mem, rec)
	if err != nil {
		return nil, err
	}

	a := arena.New(mem)
	for _, col := range cols {
		if err := a.AppendColumn(col); err != nil {
			col.Release()
			a.Release()
			return nil, err
		}
	}
	return &DataFrame{df: dataframe.New(a)}, nil
}

// New creates an empty DataFrame.
func New() *DataFrame {
	return &DataFrame{df: dataframe.New(nil)}
}

// ToPRDX writes the frame to path in the PRDX binary format.
func (d *DataFrame) ToPRDX(path string) error {
	return prdx.WriteFile(path, d.df.Arena())
}

// WritePRDX writes the frame to w in the PRDX binary format.
func (d *DataFrame) WritePRDX(w io.Writer) error {
	return prdx.Write(w, d.df.Arena())
}

// ToArrow exposes the named column as an arrow.Array without copying.
// The caller releases the returned array.
func (d *DataFrame) ToArrow(name string) (arrow.Array, error) {
	s, err := d.df.Column(name)
	if err != nil {
		return nil, err
	}
	return arrowbridge.ArrayFromColumn(s.Column()), nil
}

// Columns returns the column names in insertion order.
func (d *DataFrame) Columns() []string { return d.df.Columns() }

// Len returns the number of rows.
func (d *DataFrame) Len() int { return d.df.Len() }

// Width returns the number of columns.
func (d *DataFrame) Width() int { return d.df.Width() }

// Shape returns (rows, columns).
func (d *DataFrame) Shape() (int, int) { return d.df.Shape() }

// HasColumn checks if a column exists.
func (d *DataFrame) HasColumn(name string) bool { return d.df.HasColumn(name) }

// Column returns a zero-copy view of the named column.
func (d *DataFrame) Column(name string) (*Series, error) { return d.df.Column(name) }

// String returns a short schema summary.
func (d *DataFrame) String() string { return d.df.String() }

// Head returns a new frame with the first n rows.
func (d *DataFrame) Head(n int) (*DataFrame, error) {
	df, err := d.df.Head(n)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// Tail returns a new frame with the last n rows.
func (d *DataFrame) Tail(n int) (*DataFrame, error) {
	df, err := d.df.Tail(n)
	if err != nil {
		return nil, err
	}
	return &DataFrame{df: df}, nil
}

// BinaryOp computes left op right between two columns and installs the
// result under target (append or replace). Integer division widens the
// result to Float64.
func (d *DataFrame) BinaryOp(target, left, right string, op Op) error {
	return d.df.BinaryOp(target, left, right, op)
}

// BinaryScalarOp computes column op scalar and installs the result
// under target.
func (d *DataFrame) BinaryScalarOp(target, left string, scalar Scalar, op Op) error {
	return d.df.BinaryScalarOp(target, left, scalar, op)
}

// Count returns the number of valid (non-null) rows in a column.
func (d *DataFrame) Count(name string) (int, error) { return d.df.Count(name) }

// Sum returns the null-skipping sum of a numeric column.
func (d *DataFrame) Sum(name string) (Scalar, error) { return d.df.Sum(name) }

// Min returns the smallest valid value of a numeric column.
func (d *DataFrame) Min(name string) (Scalar, error) { return d.df.Min(name) }

// Max returns the largest valid value of a numeric column.
func (d *DataFrame) Max(name string) (Scalar, error) { return d.df.Max(name) }

// Mean returns the null-skipping mean of a numeric column.
func (d *DataFrame) Mean(name string) (float64, error) { return d.df.Mean(name) }

// Std returns the population standard deviation of a numeric column.
func (d *DataFrame) Std(name string) (float64, error) { return d.df.Std(name) }

// FillNull writes value into every null slot of every numeric column,
// in place. A float value must be integral and finite to fill an Int64
// column. Mutating methods require exclusive access to the frame.
func (d *DataFrame) FillNull(value Scalar) error { return d.df.FillNull(value) }

// Round rounds every Float64 column in place to the given number of
// decimal places, half away from zero. Nulls, NaN and Inf pass through.
func (d *DataFrame) Round(decimals int) error { return d.df.Round(decimals) }

// Release frees every buffer and bitmap owned by the frame.
func (d *DataFrame) Release() { d.df.Release() }
