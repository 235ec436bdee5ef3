// Package compute implements the vectorized kernels: elementwise binary
// arithmetic between columns or against a broadcast scalar, and the
// in-place mutation kernels (fill-null, round).
//
// Values are processed in fixed-size lanes with the remainder handled by
// the same span logic; lane width is an internal detail, not part of the
// observable contract. Null propagation: a result row is null whenever
// either operand row is null, and its data slot is left at zero.
package compute

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/exp/constraints"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/config"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/parallel"
)

// LaneWidth is the batch size of the elementwise kernels.
const LaneWidth = 8

// Op identifies a binary arithmetic operation.
type Op uint8

const (
	// OpAdd is elementwise addition.
	OpAdd Op = iota
	// OpSub is elementwise subtraction.
	OpSub
	// OpMul is elementwise multiplication.
	OpMul
	// OpDiv is elementwise division. Division always produces Float64:
	// integer operands widen first, and division by zero on valid rows
	// yields IEEE ±Inf or NaN rather than failing.
	OpDiv
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "add"
	case OpSub:
		return "sub"
	case OpMul:
		return "mul"
	case OpDiv:
		return "div"
	default:
		return "invalid"
	}
}

type number interface {
	constraints.Integer | constraints.Float
}

// Binary computes left op right into a new column named name. Operands
// must be numeric and of equal length. Int64⊗Int64 stays Int64 except for
// division; any Float64 operand widens the result to Float64.
func Binary(mem memory.Allocator, name string, op Op, left, right *arena.Series) (*arena.Column, error) {
	opName := "Binary(" + op.String() + ")"
	if left.Len() != right.Len() {
		return nil, errors.NewLengthMismatchError(opName, name, left.Len(), right.Len())
	}
	if !left.DType().Numeric() || !right.DType().Numeric() {
		return nil, errors.NewDtypeMismatchError(opName,
			"arithmetic requires numeric operands, got "+left.DType().String()+" and "+right.DType().String())
	}

	outType := resultDType(op, left.DType(), right.DType())
	out, err := arena.NewColumn(mem, name, outType, left.Len())
	if err != nil {
		return nil, err
	}

	intersectValidity(out, left.Column().Validity.Bytes(), right.Column().Validity.Bytes())

	if outType == arena.Int64 {
		runSpans(left.Len(), func(lo, hi int) {
			binarySpan(op, out.Int64s()[lo:hi], left.Int64s()[lo:hi], right.Int64s()[lo:hi])
		})
	} else {
		lf := asFloats(mem, left)
		rf := asFloats(mem, right)
		runSpans(left.Len(), func(lo, hi int) {
			binarySpan(op, out.Float64s()[lo:hi], lf.values[lo:hi], rf.values[lo:hi])
		})
		lf.release()
		rf.release()
	}

	zeroNullSlots(out)
	return out, nil
}

// BinaryScalar computes column op scalar (broadcast) into a new column.
// The scalar is always a valid operand, so the result validity equals the
// column's validity.
func BinaryScalar(mem memory.Allocator, name string, op Op, left *arena.Series, scalar arena.Scalar) (*arena.Column, error) {
	opName := "BinaryScalar(" + op.String() + ")"
	if !left.DType().Numeric() || !scalar.DType.Numeric() {
		return nil, errors.NewDtypeMismatchError(opName,
			"arithmetic requires numeric operands, got "+left.DType().String()+" and "+scalar.DType.String())
	}

	outType := resultDType(op, left.DType(), scalar.DType)
	out, err := arena.NewColumn(mem, name, outType, left.Len())
	if err != nil {
		return nil, err
	}

	copyValidity(out, left.Column().Validity.Bytes())

	if outType == arena.Int64 {
		v := scalar.I
		runSpans(left.Len(), func(lo, hi int) {
			scalarSpan(op, out.Int64s()[lo:hi], left.Int64s()[lo:hi], v)
		})
	} else {
		lf := asFloats(mem, left)
		v := scalar.AsFloat()
		runSpans(left.Len(), func(lo, hi int) {
			scalarSpan(op, out.Float64s()[lo:hi], lf.values[lo:hi], v)
		})
		lf.release()
	}

	zeroNullSlots(out)
	return out, nil
}

func resultDType(op Op, l, r arena.DType) arena.DType {
	if op == OpDiv || l == arena.Float64 || r == arena.Float64 {
		return arena.Float64
	}
	return arena.Int64
}

// runSpans walks [0, n) in lane-width spans, in parallel above the
// configured threshold. Spans are disjoint, so parallel execution writes
// non-overlapping slices and needs no merge step.
func runSpans(n int, fn func(lo, hi int)) {
	cfg := config.GetGlobalConfig()
	if n < cfg.ParallelThreshold {
		forEachSpan(0, n, fn)
		return
	}

	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = config.DefaultChunkSize
	}
	// Align chunk boundaries to lanes so every span has one owner.
	chunk -= chunk % LaneWidth
	if chunk < LaneWidth {
		chunk = LaneWidth
	}

	type rng struct{ lo, hi int }
	var ranges []rng
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		ranges = append(ranges, rng{lo, hi})
	}

	pool := parallel.NewWorkerPool(cfg.WorkerPoolSize)
	defer pool.Close()
	parallel.ProcessIndexed(pool, ranges, func(_ int, r rng) struct{} {
		forEachSpan(r.lo, r.hi, fn)
		return struct{}{}
	})
}

func forEachSpan(lo, hi int, fn func(lo, hi int)) {
	for start := lo; start < hi; start += LaneWidth {
		end := start + LaneWidth
		if end > hi {
			end = hi
		}
		fn(start, end)
	}
}

func binarySpan[T number](op Op, dst, a, b []T) {
	switch op {
	case OpAdd:
		for i := range dst {
			dst[i] = a[i] + b[i]
		}
	case OpSub:
		for i := range dst {
			dst[i] = a[i] - b[i]
		}
	case OpMul:
		for i := range dst {
			dst[i] = a[i] * b[i]
		}
	case OpDiv:
		for i := range dst {
			dst[i] = a[i] / b[i]
		}
	}
}

func scalarSpan[T number](op Op, dst, a []T, v T) {
	switch op {
	case OpAdd:
		for i := range dst {
			dst[i] = a[i] + v
		}
	case OpSub:
		for i := range dst {
			dst[i] = a[i] - v
		}
	case OpMul:
		for i := range dst {
			dst[i] = a[i] * v
		}
	case OpDiv:
		for i := range dst {
			dst[i] = a[i] / v
		}
	}
}

// intersectValidity writes and(l, r) into the column's bitmap and updates
// the null count.
func intersectValidity(out *arena.Column, l, r []byte) {
	dst := out.Validity.Bytes()
	for i := range dst {
		dst[i] = l[i] & r[i]
	}
	out.RecountNulls()
}

func copyValidity(out *arena.Column, src []byte) {
	copy(out.Validity.Bytes(), src)
	out.RecountNulls()
}

// zeroNullSlots clears data slots whose validity bit is unset, so null
// rows always read as zero.
func zeroNullSlots(col *arena.Column) {
	if col.Nulls == 0 {
		return
	}
	validity := col.Validity.Bytes()
	switch col.DType {
	case arena.Int64:
		data := col.Int64s()
		for i := range data {
			if !bitutil.BitIsSet(validity, i) {
				data[i] = 0
			}
		}
	case arena.Float64:
		data := col.Float64s()
		for i := range data {
			if !bitutil.BitIsSet(validity, i) {
				data[i] = 0
			}
		}
	}
}

// floatView is a float64 reading of a numeric series: a zero-copy alias
// for Float64 columns, a widened scratch buffer for Int64 columns.
type floatView struct {
	values  []float64
	scratch *memory.Buffer
}

func asFloats(mem memory.Allocator, s *arena.Series) floatView {
	if s.DType() == arena.Float64 {
		return floatView{values: s.Float64s()}
	}

	buf := memory.NewResizableBuffer(mem)
	buf.Resize(s.Len() * 8)
	values := float64sOf(buf, s.Len())
	src := s.Int64s()
	forEachSpan(0, len(src), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			values[i] = float64(src[i])
		}
	})
	return floatView{values: values, scratch: buf}
}

func (v floatView) release() {
	if v.scratch != nil {
		v.scratch.Release()
	}
}

func float64sOf(buf *memory.Buffer, n int) []float64 {
	return arrow.Float64Traits.CastFromBytes(buf.Bytes())[:n]
}
