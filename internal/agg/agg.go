// Package agg implements the null-skipping aggregation kernels: count,
// sum, min, max, mean and population standard deviation.
//
// Every kernel folds only over rows whose validity bit is set. Columns are
// partitioned into row ranges processed on the worker pool; partial states
// are merged in range order with associative combination rules — addition
// for count/sum, pairwise comparison for min/max, and the parallel
// variance-combination formula for the (count, mean, M2) triples behind
// mean/std. Results are therefore independent of worker scheduling up to
// floating-point rounding of the combine itself.
package agg

import (
	"math"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/config"
	"github.com/pardox/pardox/internal/errors"
	"github.com/pardox/pardox/internal/parallel"
)

// Count returns the number of valid (non-null) rows.
func Count(s *arena.Series) int {
	return s.Len() - s.NullCount()
}

// Sum accumulates the valid rows. Int64 columns sum in int64 (wrapping on
// overflow); Float64 columns sum with compensated (Kahan) accumulation to
// bound error on large inputs. An all-null column sums to zero.
func Sum(s *arena.Series) (arena.Scalar, error) {
	const op = "Sum"
	switch s.DType() {
	case arena.Int64:
		partials := mapRanges(s.Len(), func(lo, hi int) int64 {
			var sum int64
			data := s.Int64s()
			for i := lo; i < hi; i++ {
				if !s.IsNull(i) {
					sum += data[i]
				}
			}
			return sum
		})
		var total int64
		for _, p := range partials {
			total += p
		}
		return arena.Int64Scalar(total), nil

	case arena.Float64:
		partials := mapRanges(s.Len(), func(lo, hi int) float64 {
			var sum, comp float64
			data := s.Float64s()
			for i := lo; i < hi; i++ {
				if s.IsNull(i) {
					continue
				}
				y := data[i] - comp
				t := sum + y
				comp = (t - sum) - y
				sum = t
			}
			return sum
		})
		var total float64
		for _, p := range partials {
			total += p
		}
		return arena.Float64Scalar(total), nil

	default:
		return arena.Scalar{}, errors.NewUnsupportedTypeError(op, s.DType().String())
	}
}

// Min returns the smallest valid value. NaN values are never selected.
// An all-null column yields an EmptyAggregation error.
func Min(s *arena.Series) (arena.Scalar, error) {
	return extremum(s, "Min", true)
}

// Max returns the largest valid value. NaN values are never selected.
// An all-null column yields an EmptyAggregation error.
func Max(s *arena.Series) (arena.Scalar, error) {
	return extremum(s, "Max", false)
}

// Mean returns sum/count over the valid rows, or an EmptyAggregation
// error when no row is valid.
func Mean(s *arena.Series) (float64, error) {
	const op = "Mean"
	m, err := moments(s, op)
	if err != nil {
		return 0, err
	}
	if m.n == 0 {
		return 0, errors.NewEmptyAggregationError(op, s.Name())
	}
	return m.mean, nil
}

// Std returns the population standard deviation over the valid rows,
// computed with Welford's single-pass update, or an EmptyAggregation
// error when no row is valid.
func Std(s *arena.Series) (float64, error) {
	const op = "Std"
	m, err := moments(s, op)
	if err != nil {
		return 0, err
	}
	if m.n == 0 {
		return 0, errors.NewEmptyAggregationError(op, s.Name())
	}
	return math.Sqrt(m.m2 / float64(m.n)), nil
}

type extremumPartial struct {
	value float64
	iv    int64
	seen  bool
}

func extremum(s *arena.Series, op string, wantMin bool) (arena.Scalar, error) {
	switch s.DType() {
	case arena.Int64:
		partials := mapRanges(s.Len(), func(lo, hi int) extremumPartial {
			var p extremumPartial
			data := s.Int64s()
			for i := lo; i < hi; i++ {
				if s.IsNull(i) {
					continue
				}
				v := data[i]
				if !p.seen || (wantMin && v < p.iv) || (!wantMin && v > p.iv) {
					p.iv = v
					p.seen = true
				}
			}
			return p
		})
		var acc extremumPartial
		for _, p := range partials {
			if !p.seen {
				continue
			}
			if !acc.seen || (wantMin && p.iv < acc.iv) || (!wantMin && p.iv > acc.iv) {
				acc.iv = p.iv
				acc.seen = true
			}
		}
		if !acc.seen {
			return arena.Scalar{}, errors.NewEmptyAggregationError(op, s.Name())
		}
		return arena.Int64Scalar(acc.iv), nil

	case arena.Float64:
		partials := mapRanges(s.Len(), func(lo, hi int) extremumPartial {
			var p extremumPartial
			data := s.Float64s()
			for i := lo; i < hi; i++ {
				if s.IsNull(i) {
					continue
				}
				v := data[i]
				if math.IsNaN(v) {
					continue
				}
				if !p.seen || (wantMin && v < p.value) || (!wantMin && v > p.value) {
					p.value = v
					p.seen = true
				}
			}
			return p
		})
		var acc extremumPartial
		for _, p := range partials {
			if !p.seen {
				continue
			}
			if !acc.seen || (wantMin && p.value < acc.value) || (!wantMin && p.value > acc.value) {
				acc.value = p.value
				acc.seen = true
			}
		}
		if !acc.seen {
			return arena.Scalar{}, errors.NewEmptyAggregationError(op, s.Name())
		}
		return arena.Float64Scalar(acc.value), nil

	default:
		return arena.Scalar{}, errors.NewUnsupportedTypeError(op, s.DType().String())
	}
}

// momentPartial is the (count, mean, M2) triple of Welford's algorithm.
type momentPartial struct {
	n    int64
	mean float64
	m2   float64
}

func (a momentPartial) combine(b momentPartial) momentPartial {
	if a.n == 0 {
		return b
	}
	if b.n == 0 {
		return a
	}
	n := a.n + b.n
	delta := b.mean - a.mean
	return momentPartial{
		n:    n,
		mean: a.mean + delta*float64(b.n)/float64(n),
		m2:   a.m2 + b.m2 + delta*delta*float64(a.n)*float64(b.n)/float64(n),
	}
}

func moments(s *arena.Series, op string) (momentPartial, error) {
	if !s.DType().Numeric() {
		return momentPartial{}, errors.NewUnsupportedTypeError(op, s.DType().String())
	}

	value := valueAt(s)
	partials := mapRanges(s.Len(), func(lo, hi int) momentPartial {
		var p momentPartial
		for i := lo; i < hi; i++ {
			if s.IsNull(i) {
				continue
			}
			v := value(i)
			p.n++
			delta := v - p.mean
			p.mean += delta / float64(p.n)
			p.m2 += delta * (v - p.mean)
		}
		return p
	})

	var acc momentPartial
	for _, p := range partials {
		acc = acc.combine(p)
	}
	return acc, nil
}

func valueAt(s *arena.Series) func(int) float64 {
	if s.DType() == arena.Int64 {
		data := s.Int64s()
		return func(i int) float64 { return float64(data[i]) }
	}
	data := s.Float64s()
	return func(i int) float64 { return data[i] }
}

// mapRanges folds fn over row ranges, in parallel above the configured
// threshold. Partials come back in range order so the caller's merge is
// deterministic.
func mapRanges[R any](n int, fn func(lo, hi int) R) []R {
	if n == 0 {
		return nil
	}

	cfg := config.GetGlobalConfig()
	if n < cfg.ParallelThreshold {
		return []R{fn(0, n)}
	}

	chunk := cfg.ChunkSize
	if chunk <= 0 {
		chunk = config.DefaultChunkSize
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
	return parallel.ProcessIndexed(pool, ranges, func(_ int, r rng) R {
		return fn(r.lo, r.hi)
	})
}
