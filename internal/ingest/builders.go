package ingest

import (
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/pardox/pardox/internal/arena"
	"github.com/pardox/pardox/internal/schema"
)

// fieldAppender accumulates parsed fields for one column of one chunk.
// Appenders parse against the locked schema: a field that fails to parse
// under the locked dtype is an error, never a coercion.
type fieldAppender interface {
	appendField(field string) error
	appendValue(v any) error
	newArray() arrow.Array
	release()
}

func newFieldAppender(mem memory.Allocator, dtype arena.DType, opts schema.Options) fieldAppender {
	switch dtype {
	case arena.Int64:
		return &int64Appender{b: array.NewInt64Builder(mem), opts: opts}
	case arena.Float64:
		return &float64Appender{b: array.NewFloat64Builder(mem), opts: opts}
	default:
		return &utf8Appender{b: array.NewStringBuilder(mem), opts: opts}
	}
}

type int64Appender struct {
	b    *array.Int64Builder
	opts schema.Options
}

func (a *int64Appender) appendField(field string) error {
	if a.opts.IsNull(field) {
		a.b.AppendNull()
		return nil
	}
	v, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return err
	}
	a.b.Append(v)
	return nil
}

func (a *int64Appender) appendValue(v any) error {
	switch x := v.(type) {
	case nil:
		a.b.AppendNull()
	case int64:
		a.b.Append(x)
	case int:
		a.b.Append(int64(x))
	case int32:
		a.b.Append(int64(x))
	case []byte:
		return a.appendField(string(x))
	case string:
		return a.appendField(x)
	default:
		return errValueType(v, arena.Int64)
	}
	return nil
}

func (a *int64Appender) newArray() arrow.Array { return a.b.NewArray() }
func (a *int64Appender) release()              { a.b.Release() }

type float64Appender struct {
	b    *array.Float64Builder
	opts schema.Options
}

func (a *float64Appender) appendField(field string) error {
	if a.opts.IsNull(field) {
		a.b.AppendNull()
		return nil
	}
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return err
	}
	a.b.Append(v)
	return nil
}

func (a *float64Appender) appendValue(v any) error {
	switch x := v.(type) {
	case nil:
		a.b.AppendNull()
	case float64:
		a.b.Append(x)
	case float32:
		a.b.Append(float64(x))
	case int64:
		a.b.Append(float64(x))
	case int:
		a.b.Append(float64(x))
	case []byte:
		return a.appendField(string(x))
	case string:
		return a.appendField(x)
	default:
		return errValueType(v, arena.Float64)
	}
	return nil
}

func (a *float64Appender) newArray() arrow.Array { return a.b.NewArray() }
func (a *float64Appender) release()              { a.b.Release() }

type utf8Appender struct {
	b    *array.StringBuilder
	opts schema.Options
}

func (a *utf8Appender) appendField(field string) error {
	if a.opts.IsNull(field) {
		a.b.AppendNull()
		return nil
	}
	a.b.Append(field)
	return nil
}

func (a *utf8Appender) appendValue(v any) error {
	switch x := v.(type) {
	case nil:
		a.b.AppendNull()
	case string:
		return a.appendField(x)
	case []byte:
		return a.appendField(string(x))
	default:
		return errValueType(v, arena.Utf8)
	}
	return nil
}

func (a *utf8Appender) newArray() arrow.Array { return a.b.NewArray() }
func (a *utf8Appender) release()              { a.b.Release() }
