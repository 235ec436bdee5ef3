package compute

import (
	"math"

	"github.com/apache/arrow-go/v18/arrow/bitutil"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/errors"
)

// FillNull writes value into every null slot of a numeric column and marks
// those rows valid, in place. No new column is allocated; a column without
// nulls is untouched, which makes the operation idempotent. A Float64 fill
// value is accepted for an Int64 column only when it is integral and
// finite; anything that would lose precision in the conversion is
// rejected. Utf8 columns are rejected here too, the frame-level fill
// policy skips them instead.
func FillNull(col *arena.Column, value arena.Scalar) error {
	const op = "FillNull"
	if !col.DType.Numeric() {
		return errors.NewUnsupportedTypeError(op, col.DType.String())
	}
	if col.DType == arena.Int64 && value.DType == arena.Float64 {
		if value.F != math.Trunc(value.F) || math.IsInf(value.F, 0) {
			return errors.NewDtypeMismatchError(op, "cannot fill int64 column with non-integral value")
		}
	}
	if col.Nulls == 0 {
		return nil
	}

	validity := col.Validity.Bytes()
	switch col.DType {
	case arena.Int64:
		v := value.I
		if value.DType == arena.Float64 {
			v = int64(value.F)
		}
		data := col.Int64s()
		for i := range data {
			if !bitutil.BitIsSet(validity, i) {
				data[i] = v
				bitutil.SetBit(validity, i)
			}
		}
	case arena.Float64:
		v := value.AsFloat()
		data := col.Float64s()
		for i := range data {
			if !bitutil.BitIsSet(validity, i) {
				data[i] = v
				bitutil.SetBit(validity, i)
			}
		}
	}
	col.Nulls = 0
	return nil
}

// Round rounds every valid value of a Float64 column in place to decimals
// decimal places, half away from zero. The validity bitmap is untouched
// and the transform is idempotent for a fixed decimals.
func Round(col *arena.Column, decimals int) error {
	const op = "Round"
	if col.DType != arena.Float64 {
		return errors.NewUnsupportedTypeError(op, col.DType.String())
	}

	pow := math.Pow10(decimals)
	validity := col.Validity.Bytes()
	data := col.Float64s()
	runSpans(len(data), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if !bitutil.BitIsSet(validity, i) {
				continue
			}
			if v := data[i]; !math.IsNaN(v) && !math.IsInf(v, 0) {
				data[i] = math.Round(v*pow) / pow
			}
		}
	})
	return nil
}
