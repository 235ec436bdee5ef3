package arena

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Column is one typed attribute of a frame: a densely packed data buffer
// plus a validity bitmap (bit set = value present). For Utf8 the data is
// an int32 offsets buffer and a bytes buffer, matching the Arrow layout.
//
// All buffers come from an arrow memory.Allocator, which hands out
// 64-byte-aligned memory; that alignment is what the batch kernels and
// the persistence layer rely on.
type Column struct {
	Name   string
	DType  DType
	Length int
	Nulls  int

	// Data holds fixed-width values, or the raw bytes for Utf8.
	Data *memory.Buffer
	// Offsets holds Length+1 int32 byte offsets for Utf8; nil otherwise.
	Offsets *memory.Buffer
	// Validity holds one bit per row; never nil.
	Validity *memory.Buffer
}

// NewColumn allocates a column of the given length with every row null.
// Callers fill values and set validity bits afterwards.
func NewColumn(mem memory.Allocator, name string, dtype DType, length int) (*Column, error) {
	if !dtype.Valid() {
		return nil, errUnsupportedDType("NewColumn", dtype)
	}

	col := &Column{
		Name:   name,
		DType:  dtype,
		Length: length,
		Nulls:  length,
	}

	col.Validity = memory.NewResizableBuffer(mem)
	col.Validity.Resize(int(bitutil.BytesForBits(int64(length))))

	switch dtype {
	case Int64, Float64:
		col.Data = memory.NewResizableBuffer(mem)
		col.Data.Resize(length * dtype.FixedWidth())
	case Utf8:
		col.Offsets = memory.NewResizableBuffer(mem)
		col.Offsets.Resize((length + 1) * arrow.Int32SizeBytes)
		col.Data = memory.NewResizableBuffer(mem)
	}

	return col, nil
}

// WrapColumn builds a Column around already-populated buffers without
// copying. The buffers must follow the Arrow physical layout for the
// dtype; ownership follows the buffers' own retain counts.
func WrapColumn(name string, dtype DType, length, nulls int, data, offsets, validity *memory.Buffer) *Column {
	return &Column{
		Name:     name,
		DType:    dtype,
		Length:   length,
		Nulls:    nulls,
		Data:     data,
		Offsets:  offsets,
		Validity: validity,
	}
}

// Retain increments the reference count of every buffer.
func (c *Column) Retain() {
	if c.Data != nil {
		c.Data.Retain()
	}
	if c.Offsets != nil {
		c.Offsets.Retain()
	}
	if c.Validity != nil {
		c.Validity.Retain()
	}
}

// Release releases every buffer. The column must not be used afterwards.
func (c *Column) Release() {
	if c.Data != nil {
		c.Data.Release()
		c.Data = nil
	}
	if c.Offsets != nil {
		c.Offsets.Release()
		c.Offsets = nil
	}
	if c.Validity != nil {
		c.Validity.Release()
		c.Validity = nil
	}
}

// Valid reports whether row i holds a value.
func (c *Column) Valid(i int) bool {
	return bitutil.BitIsSet(c.Validity.Bytes(), i)
}

// SetValid marks row i as holding a value.
func (c *Column) SetValid(i int) {
	if !bitutil.BitIsSet(c.Validity.Bytes(), i) {
		bitutil.SetBit(c.Validity.Bytes(), i)
		c.Nulls--
	}
}

// SetNull marks row i as null. The data slot keeps whatever bytes it holds.
func (c *Column) SetNull(i int) {
	if bitutil.BitIsSet(c.Validity.Bytes(), i) {
		bitutil.ClearBit(c.Validity.Bytes(), i)
		c.Nulls++
	}
}

// RecountNulls recomputes the null count from the bitmap. Used after bulk
// bitmap writes where per-bit bookkeeping would be wasteful.
func (c *Column) RecountNulls() {
	c.Nulls = c.Length - bitutil.CountSetBits(c.Validity.Bytes(), 0, c.Length)
}

// Int64s reinterprets the data buffer as int64 values. Only valid for
// Int64 columns; the slice aliases arena memory.
func (c *Column) Int64s() []int64 {
	return arrow.Int64Traits.CastFromBytes(c.Data.Bytes())[:c.Length]
}

// Float64s reinterprets the data buffer as float64 values.
func (c *Column) Float64s() []float64 {
	return arrow.Float64Traits.CastFromBytes(c.Data.Bytes())[:c.Length]
}

// ValueOffsets reinterprets the offsets buffer as int32 offsets (Utf8 only).
func (c *Column) ValueOffsets() []int32 {
	return arrow.Int32Traits.CastFromBytes(c.Offsets.Bytes())[:c.Length+1]
}

// ValueString returns the string value at row i (Utf8 only). The result
// shares the arena's byte buffer.
func (c *Column) ValueString(i int) string {
	off := c.ValueOffsets()
	return string(c.Data.Bytes()[off[i]:off[i+1]])
}
