// Package errors provides standardized error types for DataFrame operations.
// This package defines FrameError for consistent error handling across
// all public APIs, with a closed error-kind taxonomy, operation context
// and error wrapping support.
package errors

import (
	"fmt"
)

// Kind classifies a FrameError. The set is closed: every failure surfaced
// by the core maps onto exactly one kind so callers can match with errors.Is
// against the sentinel of that kind.
type Kind int

const (
	// KindInternal covers failures that do not fit the taxonomy below.
	KindInternal Kind = iota
	// KindDuplicateColumn is returned when a column name already exists.
	KindDuplicateColumn
	// KindColumnNotFound is returned for operations on non-existent columns.
	KindColumnNotFound
	// KindLengthMismatch is returned when a buffer length differs from the frame row count.
	KindLengthMismatch
	// KindUnsupportedType is returned for dtypes outside the supported set.
	KindUnsupportedType
	// KindMalformedRow is returned by fail-fast ingestion; carries row and byte offsets.
	KindMalformedRow
	// KindFormat is returned for magic or version mismatches in persisted files.
	KindFormat
	// KindCorruptFile is returned for truncated or inconsistent persisted files.
	KindCorruptFile
	// KindEmptyAggregation is returned when mean/std run over zero valid rows.
	KindEmptyAggregation
	// KindDtypeMismatch is returned for arithmetic between incompatible dtypes.
	KindDtypeMismatch
)

func (k Kind) String() string {
	switch k {
	case KindDuplicateColumn:
		return "duplicate column"
	case KindColumnNotFound:
		return "column not found"
	case KindLengthMismatch:
		return "length mismatch"
	case KindUnsupportedType:
		return "unsupported type"
	case KindMalformedRow:
		return "malformed row"
	case KindFormat:
		return "format error"
	case KindCorruptFile:
		return "corrupt file"
	case KindEmptyAggregation:
		return "empty aggregation"
	case KindDtypeMismatch:
		return "dtype mismatch"
	default:
		return "internal error"
	}
}

// FrameError represents standardized errors across all DataFrame operations.
type FrameError struct {
	Kind    Kind   // Error classification
	Op      string // Operation name (e.g., "ReadCSV", "Sum", "AppendColumn")
	Column  string // Column name if applicable
	Message string // Human-readable error description
	Row     int64  // Row number for ingestion errors (-1 when not applicable)
	Offset  int64  // Byte offset for ingestion errors (-1 when not applicable)
	Cause   error  // Underlying error cause
}

// Error implements the error interface.
func (e *FrameError) Error() string {
	switch {
	case e.Kind == KindMalformedRow && e.Row >= 0:
		return fmt.Sprintf("%s: %s at row %d (byte offset %d): %s", e.Op, e.Kind, e.Row, e.Offset, e.Message)
	case e.Column != "":
		return fmt.Sprintf("%s: %s: column '%s': %s", e.Op, e.Kind, e.Column, e.Message)
	default:
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, e.Message)
	}
}

// Unwrap returns the underlying cause for error wrapping support.
func (e *FrameError) Unwrap() error {
	return e.Cause
}

// Is matches any FrameError of the same kind, so sentinel comparison
// with errors.Is works without equality on the full struct.
func (e *FrameError) Is(target error) bool {
	fe, ok := target.(*FrameError)
	if !ok {
		return false
	}
	return e.Kind == fe.Kind
}

// Sentinels for errors.Is matching. These carry only the kind.
var (
	ErrDuplicateColumn  = &FrameError{Kind: KindDuplicateColumn, Row: -1, Offset: -1}
	ErrColumnNotFound   = &FrameError{Kind: KindColumnNotFound, Row: -1, Offset: -1}
	ErrLengthMismatch   = &FrameError{Kind: KindLengthMismatch, Row: -1, Offset: -1}
	ErrUnsupportedType  = &FrameError{Kind: KindUnsupportedType, Row: -1, Offset: -1}
	ErrMalformedRow     = &FrameError{Kind: KindMalformedRow, Row: -1, Offset: -1}
	ErrFormat           = &FrameError{Kind: KindFormat, Row: -1, Offset: -1}
	ErrCorruptFile      = &FrameError{Kind: KindCorruptFile, Row: -1, Offset: -1}
	ErrEmptyAggregation = &FrameError{Kind: KindEmptyAggregation, Row: -1, Offset: -1}
	ErrDtypeMismatch    = &FrameError{Kind: KindDtypeMismatch, Row: -1, Offset: -1}
)

// Constructors for consistent error creation.

// NewDuplicateColumnError creates an error for re-adding an existing column.
func NewDuplicateColumnError(op, column string) *FrameError {
	return &FrameError{
		Kind: KindDuplicateColumn, Op: op, Column: column,
		Message: "column already exists", Row: -1, Offset: -1,
	}
}

// NewColumnNotFoundError creates an error for operations on non-existent columns.
func NewColumnNotFoundError(op, column string) *FrameError {
	return &FrameError{
		Kind: KindColumnNotFound, Op: op, Column: column,
		Message: "column does not exist", Row: -1, Offset: -1,
	}
}

// NewLengthMismatchError creates an error for length disagreements.
func NewLengthMismatchError(op, column string, want, got int) *FrameError {
	return &FrameError{
		Kind: KindLengthMismatch, Op: op, Column: column,
		Message: fmt.Sprintf("expected length %d, got %d", want, got),
		Row:     -1, Offset: -1,
	}
}

// NewUnsupportedTypeError creates an error for unsupported data types.
func NewUnsupportedTypeError(op, typeName string) *FrameError {
	return &FrameError{
		Kind: KindUnsupportedType, Op: op,
		Message: fmt.Sprintf("unsupported type: %s", typeName),
		Row:     -1, Offset: -1,
	}
}

// NewMalformedRowError creates a fail-fast ingestion error carrying the
// originating row number and byte offset.
func NewMalformedRowError(op string, row, offset int64, message string, cause error) *FrameError {
	return &FrameError{
		Kind: KindMalformedRow, Op: op,
		Message: message, Row: row, Offset: offset, Cause: cause,
	}
}

// NewFormatError creates an error for magic/version mismatch.
func NewFormatError(op, message string) *FrameError {
	return &FrameError{Kind: KindFormat, Op: op, Message: message, Row: -1, Offset: -1}
}

// NewCorruptFileError creates an error for truncated or inconsistent files.
func NewCorruptFileError(op, message string) *FrameError {
	return &FrameError{Kind: KindCorruptFile, Op: op, Message: message, Row: -1, Offset: -1}
}

// NewEmptyAggregationError creates an error for aggregations over zero valid rows.
func NewEmptyAggregationError(op, column string) *FrameError {
	return &FrameError{
		Kind: KindEmptyAggregation, Op: op, Column: column,
		Message: "no valid rows", Row: -1, Offset: -1,
	}
}

// NewDtypeMismatchError creates an error for arithmetic between incompatible dtypes.
func NewDtypeMismatchError(op, message string) *FrameError {
	return &FrameError{Kind: KindDtypeMismatch, Op: op, Message: message, Row: -1, Offset: -1}
}

// NewInternalError creates an error for internal operation failures.
func NewInternalError(op string, cause error) *FrameError {
	return &FrameError{
		Kind: KindInternal, Op: op,
		Message: "internal error occurred", Row: -1, Offset: -1, Cause: cause,
	}
}
