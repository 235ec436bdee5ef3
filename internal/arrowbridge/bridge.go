// Package arrowbridge converts between arena columns and Apache Arrow
// arrays.
//
// The engine's buffers already use Arrow physical layouts (fixed-width
// values, int32 offsets + bytes for strings, one-bit validity), so the
// bridge aliases memory in both directions whenever the incoming array is
// compatible: supported dtype, zero slice offset. Incompatible arrays are
// copied through builders instead. The bridge never assumes ownership of
// externally supplied memory — aliased buffers are retained, and the
// caller keeps its own reference.
package arrowbridge

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/errors"
)

// ColumnFromArray builds an arena column from an Arrow array, aliasing its
// buffers when the layout is compatible and copying otherwise.
func ColumnFromArray(mem memory.Allocator, name string, arr arrow.Array) (*arena.Column, error) {
	const op = "ColumnFromArray"

	dtype, ok := arena.DTypeFromArrow(arr.DataType())
	if !ok {
		return nil, errors.NewUnsupportedTypeError(op, arr.DataType().String())
	}

	if arr.Data().Offset() != 0 {
		return copyArray(mem, name, dtype, arr)
	}

	buffers := arr.Data().Buffers()
	validity := buffers[0]
	if validity == nil {
		validity = allValidBitmap(mem, arr.Len())
	} else {
		validity.Retain()
	}

	switch dtype {
	case arena.Int64, arena.Float64:
		data := retainOrEmpty(mem, buffers[1])
		return arena.WrapColumn(name, dtype, arr.Len(), arr.NullN(), data, nil, validity), nil
	default:
		offsets := retainOrEmpty(mem, buffers[1])
		data := retainOrEmpty(mem, buffers[2])
		return arena.WrapColumn(name, dtype, arr.Len(), arr.NullN(), data, offsets, validity), nil
	}
}

// retainOrEmpty retains buf, or substitutes a fresh empty buffer when an
// empty array carries a nil one.
func retainOrEmpty(mem memory.Allocator, buf *memory.Buffer) *memory.Buffer {
	if buf == nil {
		return memory.NewResizableBuffer(mem)
	}
	buf.Retain()
	return buf
}

// ArrayFromColumn exposes an arena column as an Arrow array without
// copying. The array retains the column's buffers, so it stays valid even
// if released after the owning arena.
func ArrayFromColumn(col *arena.Column) arrow.Array {
	var buffers []*memory.Buffer
	if col.DType == arena.Utf8 {
		buffers = []*memory.Buffer{col.Validity, col.Offsets, col.Data}
	} else {
		buffers = []*memory.Buffer{col.Validity, col.Data}
	}

	data := array.NewData(col.DType.ArrowType(), col.Length, buffers, nil, col.Nulls, 0)
	defer data.Release()
	return array.MakeFromData(data)
}

// ColumnsFromRecord converts every column of an Arrow record, preserving
// field order.
func ColumnsFromRecord(mem memory.Allocator, rec arrow.Record) ([]*arena.Column, error) {
	cols := make([]*arena.Column, 0, rec.NumCols())
	for i := 0; i < int(rec.NumCols()); i++ {
		col, err := ColumnFromArray(mem, rec.ColumnName(i), rec.Column(i))
		if err != nil {
			for _, c := range cols {
				c.Release()
			}
			return nil, err
		}
		cols = append(cols, col)
	}
	return cols, nil
}

func copyArray(mem memory.Allocator, name string, dtype arena.DType, arr arrow.Array) (*arena.Column, error) {
	switch src := arr.(type) {
	case *array.Int64:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		for i := 0; i < src.Len(); i++ {
			if src.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(src.Value(i))
			}
		}
		compact := b.NewArray()
		defer compact.Release()
		return ColumnFromArray(mem, name, compact)
	case *array.Float64:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		for i := 0; i < src.Len(); i++ {
			if src.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(src.Value(i))
			}
		}
		compact := b.NewArray()
		defer compact.Release()
		return ColumnFromArray(mem, name, compact)
	case *array.String:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		for i := 0; i < src.Len(); i++ {
			if src.IsNull(i) {
				b.AppendNull()
			} else {
				b.Append(src.Value(i))
			}
		}
		compact := b.NewArray()
		defer compact.Release()
		return ColumnFromArray(mem, name, compact)
	default:
		return nil, errors.NewUnsupportedTypeError("ColumnFromArray", arr.DataType().String())
	}
}

func allValidBitmap(mem memory.Allocator, length int) *memory.Buffer {
	buf := memory.NewResizableBuffer(mem)
	buf.Resize(int(bitutil.BytesForBits(int64(length))))
	bitutil.SetBitsTo(buf.Bytes(), 0, int64(length), true)
	return buf
}
