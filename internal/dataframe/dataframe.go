// Package dataframe implements the frame layer over the memory arena:
// an ordered mapping from column name to typed column, with vectorized
// arithmetic, null-skipping aggregation, and in-place mutation surfaced
// as methods.
//
// A DataFrame exclusively owns its arena. Mutating methods (Assign,
// FillNull, Round) require exclusive access — callers serialize them on a
// given frame — while reads of views are always safe concurrently because
// buffers only change through those explicit calls.
package dataframe

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/pardox/pardox/internal/agg"
	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/compute"
	"github.com/pardox/pardox/internal/config"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/parallel"
)

// DataFrame is a table of data with typed columns backed by one arena.
type DataFrame struct {
	arena *arena.Arena
}

// New creates a DataFrame over an arena. The frame takes ownership; the
// arena must not be released independently afterwards.
func New(a *arena.Arena) *DataFrame {
	if a == nil {
		a = arena.New(nil)
	}
	return &DataFrame{arena: a}
}

// Arena exposes the owning arena for the persistence and bridge layers.
func (df *DataFrame) Arena() *arena.Arena {
	return df.arena
}

// Allocator returns the allocator backing the frame's buffers.
func (df *DataFrame) Allocator() memory.Allocator {
	return df.arena.Allocator()
}

// Columns returns the column names in insertion order.
func (df *DataFrame) Columns() []string {
	return df.arena.Names()
}

// Len returns the number of rows.
func (df *DataFrame) Len() int {
	return df.arena.NumRows()
}

// Width returns the number of columns.
func (df *DataFrame) Width() int {
	return df.arena.NumCols()
}

// Shape returns (rows, columns).
func (df *DataFrame) Shape() (int, int) {
	return df.arena.NumRows(), df.arena.NumCols()
}

// HasColumn checks if a column exists.
func (df *DataFrame) HasColumn(name string) bool {
	return df.arena.Has(name)
}

// Column returns a zero-copy view of the named column.
func (df *DataFrame) Column(name string) (*arena.Series, error) {
	return df.arena.View(name)
}

// Assign installs a computed column under its name, appending a new
// column or replacing an existing one (the slot keeps its position).
func (df *DataFrame) Assign(col *arena.Column) error {
	return df.arena.ReplaceColumn(col)
}

// String returns a short schema summary.
func (df *DataFrame) String() string {
	if df.Width() == 0 {
		return "DataFrame[empty]"
	}

	parts := []string{fmt.Sprintf("DataFrame[%dx%d]", df.Len(), df.Width())}
	for _, name := range df.Columns() {
		s, err := df.arena.View(name)
		if err != nil {
			continue
		}
		parts = append(parts, fmt.Sprintf("  %s: %s", name, s.DType()))
	}
	return strings.Join(parts, "\n")
}

// Head returns a new frame with the first n rows (copying).
func (df *DataFrame) Head(n int) (*DataFrame, error) {
	if n > df.Len() {
		n = df.Len()
	}
	return df.slice(0, n)
}

// Tail returns a new frame with the last n rows (copying).
func (df *DataFrame) Tail(n int) (*DataFrame, error) {
	if n > df.Len() {
		n = df.Len()
	}
	return df.slice(df.Len()-n, df.Len())
}

// Release frees the arena: every buffer and bitmap together.
func (df *DataFrame) Release() {
	df.arena.Release()
}

// BinaryOp computes left op right between two columns into a new column
// named target, then installs it (append or replace).
func (df *DataFrame) BinaryOp(target, left, right string, op compute.Op) error {
	ls, err := df.arena.View(left)
	if err != nil {
		return err
	}
	rs, err := df.arena.View(right)
	if err != nil {
		return err
	}
	col, err := compute.Binary(df.Allocator(), target, op, ls, rs)
	if err != nil {
		return err
	}
	if err := df.arena.ReplaceColumn(col); err != nil {
		col.Release()
		return err
	}
	return nil
}

// BinaryScalarOp computes column op scalar into a new column named
// target, then installs it.
func (df *DataFrame) BinaryScalarOp(target, left string, scalar arena.Scalar, op compute.Op) error {
	ls, err := df.arena.View(left)
	if err != nil {
		return err
	}
	col, err := compute.BinaryScalar(df.Allocator(), target, op, ls, scalar)
	if err != nil {
		return err
	}
	if err := df.arena.ReplaceColumn(col); err != nil {
		col.Release()
		return err
	}
	return nil
}

// Count returns the number of valid rows in a column.
func (df *DataFrame) Count(name string) (int, error) {
	s, err := df.arena.View(name)
	if err != nil {
		return 0, err
	}
	return agg.Count(s), nil
}

// Sum returns the null-skipping sum of a numeric column.
func (df *DataFrame) Sum(name string) (arena.Scalar, error) {
	s, err := df.arena.View(name)
	if err != nil {
		return arena.Scalar{}, err
	}
	return agg.Sum(s)
}

// Min returns the smallest valid value of a numeric column.
func (df *DataFrame) Min(name string) (arena.Scalar, error) {
	s, err := df.arena.View(name)
	if err != nil {
		return arena.Scalar{}, err
	}
	return agg.Min(s)
}

// Max returns the largest valid value of a numeric column.
func (df *DataFrame) Max(name string) (arena.Scalar, error) {
	s, err := df.arena.View(name)
	if err != nil {
		return arena.Scalar{}, err
	}
	return agg.Max(s)
}

// Mean returns the null-skipping mean of a numeric column.
func (df *DataFrame) Mean(name string) (float64, error) {
	s, err := df.arena.View(name)
	if err != nil {
		return 0, err
	}
	return agg.Mean(s)
}

// Std returns the population standard deviation of a numeric column.
func (df *DataFrame) Std(name string) (float64, error) {
	s, err := df.arena.View(name)
	if err != nil {
		return 0, err
	}
	return agg.Std(s)
}

// FillNull writes value into every null slot of every numeric column, in
// place. Utf8 columns are left untouched; the operation is idempotent.
// Fill values that cannot convert losslessly to a column's dtype are
// rejected.
func (df *DataFrame) FillNull(value arena.Scalar) error {
	cols, err := df.columnsWhere(func(col *arena.Column) bool {
		return col.DType.Numeric()
	})
	if err != nil {
		return err
	}
	return mutateColumns(cols, func(col *arena.Column) error {
		return compute.FillNull(col, value)
	})
}

// Round rounds every Float64 column in place to decimals decimal places.
// Int64 and Utf8 columns are untouched.
func (df *DataFrame) Round(decimals int) error {
	cols, err := df.columnsWhere(func(col *arena.Column) bool {
		return col.DType == arena.Float64
	})
	if err != nil {
		return err
	}
	return mutateColumns(cols, func(col *arena.Column) error {
		return compute.Round(col, decimals)
	})
}

func (df *DataFrame) columnsWhere(keep func(*arena.Column) bool) ([]*arena.Column, error) {
	cols := make([]*arena.Column, 0, df.Width())
	for _, name := range df.Columns() {
		col, err := df.arena.Column(name)
		if err != nil {
			return nil, err
		}
		if keep(col) {
			cols = append(cols, col)
		}
	}
	return cols, nil
}

// mutateColumns runs an in-place kernel over every column on the worker
// pool. Columns never share buffers, so unordered execution is safe; the
// kernels validate before writing, and a given fill value is rejected
// identically by every column of the same dtype, so which failure is
// reported does not depend on scheduling.
func mutateColumns(cols []*arena.Column, kernel func(*arena.Column) error) error {
	if len(cols) == 0 {
		return nil
	}

	pool := parallel.NewWorkerPool(config.GetGlobalConfig().WorkerPoolSize)
	defer pool.Close()
	for _, err := range parallel.Process(pool, cols, kernel) {
		if err != nil {
			return err
		}
	}
	return nil
}

// slice copies rows [start, end) of every column into a new frame. The
// new frame owns fresh buffers; it does not alias the source arena.
func (df *DataFrame) slice(start, end int) (*DataFrame, error) {
	if start < 0 || end < start {
		return nil, errors.NewInternalError("Slice", fmt.Errorf("invalid range [%d, %d)", start, end))
	}

	out := arena.New(df.Allocator())
	n := end - start

	for _, name := range df.Columns() {
		src, err := df.arena.Column(name)
		if err != nil {
			out.Release()
			return nil, err
		}
		dst, err := copyRows(df.Allocator(), src, start, n)
		if err != nil {
			out.Release()
			return nil, err
		}
		if err := out.AppendColumn(dst); err != nil {
			dst.Release()
			out.Release()
			return nil, err
		}
	}

	return New(out), nil
}

func copyRows(mem memory.Allocator, src *arena.Column, start, n int) (*arena.Column, error) {
	dst, err := arena.NewColumn(mem, src.Name, src.DType, n)
	if err != nil {
		return nil, err
	}

	switch src.DType {
	case arena.Int64:
		copy(dst.Int64s(), src.Int64s()[start:start+n])
	case arena.Float64:
		copy(dst.Float64s(), src.Float64s()[start:start+n])
	case arena.Utf8:
		srcOff := src.ValueOffsets()
		lo, hi := srcOff[start], srcOff[start+n]
		dst.Data.Resize(int(hi - lo))
		copy(dst.Data.Bytes(), src.Data.Bytes()[lo:hi])
		dstOff := dst.ValueOffsets()
		for i := 0; i <= n; i++ {
			dstOff[i] = srcOff[start+i] - lo
		}
	}

	for i := 0; i < n; i++ {
		if src.Valid(start + i) {
			dst.SetValid(i)
		}
	}
	return dst, nil
}
