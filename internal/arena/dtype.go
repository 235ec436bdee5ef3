package arena

import (
	"github.com/apache/arrow-go/v18/arrow"
)

// DType is the closed set of column types supported by the engine.
// The schema is locked after inference; downstream code switches
// exhaustively over this enum.
type DType uint8

const (
	// Int64 is a 64-bit signed integer column.
	Int64 DType = iota
	// Float64 is a 64-bit IEEE float column.
	Float64
	// Utf8 is a variable-width string column (int32 offsets + bytes).
	Utf8
)

// numDTypes bounds the valid tag range for decoding persisted files.
const numDTypes = 3

func (d DType) String() string {
	switch d {
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Utf8:
		return "utf8"
	default:
		return "invalid"
	}
}

// Valid reports whether d is a known dtype tag.
func (d DType) Valid() bool {
	return d < numDTypes
}

// FixedWidth returns the value width in bytes, or 0 for variable-width types.
func (d DType) FixedWidth() int {
	switch d {
	case Int64, Float64:
		return 8
	default:
		return 0
	}
}

// Numeric reports whether the dtype participates in arithmetic and fillna.
func (d DType) Numeric() bool {
	return d == Int64 || d == Float64
}

// ArrowType maps the dtype onto its Arrow physical type. The mapping is
// what makes the Arrow bridge zero-copy: column buffers already use the
// corresponding Arrow layouts.
func (d DType) ArrowType() arrow.DataType {
	switch d {
	case Int64:
		return arrow.PrimitiveTypes.Int64
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Utf8:
		return arrow.BinaryTypes.String
	default:
		return nil
	}
}

// DTypeFromArrow maps an Arrow type onto the engine dtype.
// The second return is false for unsupported Arrow types.
func DTypeFromArrow(t arrow.DataType) (DType, bool) {
	switch t.ID() {
	case arrow.INT64:
		return Int64, true
	case arrow.FLOAT64:
		return Float64, true
	case arrow.STRING:
		return Utf8, true
	default:
		return 0, false
	}
}

// Scalar is a single value of one of the supported dtypes, used for
// broadcast arithmetic and aggregation results.
type Scalar struct {
	DType DType
	I     int64
	F     float64
	S     string
}

// Int64Scalar wraps an int64 into a Scalar.
func Int64Scalar(v int64) Scalar { return Scalar{DType: Int64, I: v} }

// Float64Scalar wraps a float64 into a Scalar.
func Float64Scalar(v float64) Scalar { return Scalar{DType: Float64, F: v} }

// AsFloat widens the scalar to float64 regardless of its dtype.
func (s Scalar) AsFloat() float64 {
	if s.DType == Int64 {
		return float64(s.I)
	}
	return s.F
}
