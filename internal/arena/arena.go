// Package arena implements the memory block manager: the single owner of
// every column buffer and validity bitmap belonging to one DataFrame.
//
// Buffers are allocated through an Apache Arrow memory.Allocator, whose
// allocations are 64-byte aligned. That one policy serves both the batch
// compute kernels (fixed-width lane processing) and the persistence layer
// (the on-disk data section mirrors the in-memory buffers byte for byte).
//
// A Series is a non-owning view into one column of the arena. It has no
// independent lifetime: once the arena is released every Series into it
// is invalid. Selecting a column never copies; mutating through a Series
// writes the arena's buffer in place.
package arena

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/pardox/pardox/internal/errors"
)

// Arena owns all column storage for one DataFrame instance. Column order
// is insertion order and is preserved across every operation, including
// persistence round-trips.
//
// The arena is exclusively owned by one frame; concurrent mutation is not
// supported and callers must serialize mutating calls. Concurrent reads of
// views are safe.
type Arena struct {
	mem     memory.Allocator
	columns map[string]*Column
	order   []string
	rows    int
	hasRows bool

	// closers run on Release, after the columns are freed. The mmap-backed
	// persistence reader uses this to unmap the file image the buffers
	// alias.
	closers []func()
}

// New creates an empty arena backed by the given allocator.
// A nil allocator falls back to the Go allocator.
func New(mem memory.Allocator) *Arena {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &Arena{
		mem:     mem,
		columns: make(map[string]*Column),
	}
}

// Allocator returns the allocator owning this arena's buffers.
func (a *Arena) Allocator() memory.Allocator {
	return a.mem
}

// NumRows returns the frame row count (0 for an empty arena).
func (a *Arena) NumRows() int {
	return a.rows
}

// NumCols returns the number of columns.
func (a *Arena) NumCols() int {
	return len(a.order)
}

// Names returns the column names in insertion order.
func (a *Arena) Names() []string {
	return append([]string(nil), a.order...)
}

// Has reports whether a column with the given name exists.
func (a *Arena) Has(name string) bool {
	_, ok := a.columns[name]
	return ok
}

// AllocateColumn allocates a new all-null column of the frame's row count
// and installs it. On an empty arena the given length fixes the row count.
func (a *Arena) AllocateColumn(name string, dtype DType, length int) (*Column, error) {
	const op = "AllocateColumn"
	if _, ok := a.columns[name]; ok {
		return nil, errors.NewDuplicateColumnError(op, name)
	}
	if !dtype.Valid() {
		return nil, errUnsupportedDType(op, dtype)
	}
	if a.hasRows && length != a.rows {
		return nil, errors.NewLengthMismatchError(op, name, a.rows, length)
	}

	col, err := NewColumn(a.mem, name, dtype, length)
	if err != nil {
		return nil, err
	}
	a.install(col)
	return col, nil
}

// AppendColumn installs an already-populated column. The column's length
// must match the frame row count; on an empty arena it fixes the row count.
// The arena takes over the caller's reference.
func (a *Arena) AppendColumn(col *Column) error {
	const op = "AppendColumn"
	if _, ok := a.columns[col.Name]; ok {
		return errors.NewDuplicateColumnError(op, col.Name)
	}
	if !col.DType.Valid() {
		return errUnsupportedDType(op, col.DType)
	}
	if a.hasRows && col.Length != a.rows {
		return errors.NewLengthMismatchError(op, col.Name, a.rows, col.Length)
	}
	a.install(col)
	return nil
}

// ReplaceColumn installs a column under a name that may already exist.
// Replacing is logically a delete of the old column followed by an append
// of the new one; the slot keeps its position in the column order, and the
// new column may have a different dtype.
func (a *Arena) ReplaceColumn(col *Column) error {
	const op = "ReplaceColumn"
	old, exists := a.columns[col.Name]
	if !exists {
		return a.AppendColumn(col)
	}
	if col.Length != a.rows {
		return errors.NewLengthMismatchError(op, col.Name, a.rows, col.Length)
	}
	old.Release()
	a.columns[col.Name] = col
	return nil
}

// View returns a zero-copy Series over the named column.
func (a *Arena) View(name string) (*Series, error) {
	col, ok := a.columns[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError("View", name)
	}
	return &Series{col: col}, nil
}

// Column returns the named column, or a ColumnNotFound error.
func (a *Arena) Column(name string) (*Column, error) {
	col, ok := a.columns[name]
	if !ok {
		return nil, errors.NewColumnNotFoundError("Column", name)
	}
	return col, nil
}

// OnRelease registers fn to run when the arena is released, after all
// column buffers have been freed.
func (a *Arena) OnRelease(fn func()) {
	a.closers = append(a.closers, fn)
}

// Release frees every column buffer and bitmap together and runs any
// registered closers. There is no per-column independent ownership.
func (a *Arena) Release() {
	for _, name := range a.order {
		a.columns[name].Release()
	}
	a.columns = make(map[string]*Column)
	a.order = nil
	a.rows = 0
	a.hasRows = false
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *Arena) install(col *Column) {
	a.columns[col.Name] = col
	a.order = append(a.order, col.Name)
	if !a.hasRows {
		a.rows = col.Length
		a.hasRows = true
	}
}

func errUnsupportedDType(op string, dtype DType) *errors.FrameError {
	return errors.NewUnsupportedTypeError(op, dtype.String())
}
