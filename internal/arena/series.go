package arena

// Series is a non-owning, zero-copy view of one column inside an arena.
// It carries no lifetime of its own and must not outlive the owning arena.
// Writes through a Series mutate the arena's buffers in place.
type Series struct {
	col *Column
}

// NewSeries wraps a column in a view. Used by kernels that operate on
// freestanding columns before they are installed into an arena.
func NewSeries(col *Column) *Series {
	return &Series{col: col}
}

// Name returns the column name.
func (s *Series) Name() string { return s.col.Name }

// DType returns the column dtype.
func (s *Series) DType() DType { return s.col.DType }

// Len returns the number of rows.
func (s *Series) Len() int { return s.col.Length }

// NullCount returns the number of null rows.
func (s *Series) NullCount() int { return s.col.Nulls }

// IsNull reports whether row i is null.
func (s *Series) IsNull(i int) bool { return !s.col.Valid(i) }

// Column exposes the underlying column. The caller must not release it;
// ownership stays with the arena.
func (s *Series) Column() *Column { return s.col }

// Int64s returns the data buffer as an int64 slice aliasing arena memory.
func (s *Series) Int64s() []int64 { return s.col.Int64s() }

// Float64s returns the data buffer as a float64 slice aliasing arena memory.
func (s *Series) Float64s() []float64 { return s.col.Float64s() }

// ValueString returns the string at row i (Utf8 columns).
func (s *Series) ValueString(i int) string { return s.col.ValueString(i) }

// Value returns the value at row i boxed as a Scalar, or ok=false for null.
func (s *Series) Value(i int) (Scalar, bool) {
	if !s.col.Valid(i) {
		return Scalar{}, false
	}
	switch s.col.DType {
	case Int64:
		return Int64Scalar(s.col.Int64s()[i]), true
	case Float64:
		return Float64Scalar(s.col.Float64s()[i]), true
	default:
		return Scalar{DType: Utf8, S: s.col.ValueString(i)}, true
	}
}
