package csvbind

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrBadSource is returned when the source handed to a Decoder is nil or cannot seek.
	ErrBadSource = errors.New("csvbind: source is nil or does not support seeking")
	// ErrInvalidConfig is returned when a Config holds values that cannot work together.
	ErrInvalidConfig = errors.New("csvbind: invalid configuration")
	// ErrParsingConfig is returned when the environment cannot be parsed into a Config.
	ErrParsingConfig = errors.New("csvbind: failed to parse environment variables into config")

	// ErrDuplicateOrdinal is returned when two slots claim the same ordinal.
	ErrDuplicateOrdinal = errors.New("csvbind: duplicate ordinal")
	// ErrMissingOrdinal is returned when a slot needs an ordinal but has none.
	ErrMissingOrdinal = errors.New("csvbind: missing ordinal")
	// ErrMissingWidth is returned in fixed-width mode when a slot has no width.
	ErrMissingWidth = errors.New("csvbind: missing fixed width")
	// ErrUnknownColumn is returned when a header names a column no slot matches.
	ErrUnknownColumn = errors.New("csvbind: unknown column")
	// ErrDuplicateColumn is returned when a header names the same column twice.
	ErrDuplicateColumn = errors.New("csvbind: duplicate column")
	// ErrMissingAnnotation is returned when annotations are required and a used slot has none.
	ErrMissingAnnotation = errors.New("csvbind: missing column annotation")

	// ErrTooManyFields is returned when a row holds more fields than the schema.
	ErrTooManyFields = errors.New("csvbind: too many fields")
	// ErrOrdinalOutOfRange is returned when an ordinal points past the end of a row.
	ErrOrdinalOutOfRange = errors.New("csvbind: ordinal beyond row width")
	// ErrMissingRequired is recorded when a non-nullable slot gets no value.
	ErrMissingRequired = errors.New("csvbind: missing required value")
	// ErrWrongFormat is recorded when a value cannot be converted to its slot type.
	ErrWrongFormat = errors.New("csvbind: wrong data format")
	// ErrFieldTooWide is returned when a fixed-width value exceeds its width.
	ErrFieldTooWide = errors.New("csvbind: value wider than fixed width")
	// ErrFieldNotFixed is returned when a fixed-width value holds a line break.
	ErrFieldNotFixed = errors.New("csvbind: line break in fixed-width value")
	// ErrUnsupportedFormat is returned when an output format does not apply to a slot kind.
	ErrUnsupportedFormat = errors.New("csvbind: unsupported output format")
)

// SchemaError describes a configuration problem found while resolving a
// schema. Schema errors are fatal and are reported before any row is read
// or written, except for header problems which surface on the first row.
type SchemaError struct {
	TypeName string
	Field    string
	// Other is the second slot involved in a duplicate ordinal.
	Other   string
	Ordinal int
	Source  string
	Err     error
}

// Error formats the schema error.
func (e *SchemaError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Err.Error())
	switch {
	case errors.Is(e.Err, ErrDuplicateOrdinal):
		fmt.Fprintf(&b, ": fields %q and %q of type %q share ordinal %d", e.Other, e.Field, e.TypeName, e.Ordinal)
	case errors.Is(e.Err, ErrUnknownColumn):
		fmt.Fprintf(&b, ": header names %q, but type %q has no such field", e.Field, e.TypeName)
	case e.Field != "":
		fmt.Fprintf(&b, ": field %q of type %q", e.Field, e.TypeName)
	case e.TypeName != "":
		fmt.Fprintf(&b, ": type %q", e.TypeName)
	}
	b.WriteString(sourceSuffix(e.Source))
	return b.String()
}

// Unwrap returns the sentinel describing the problem.
func (e *SchemaError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// RecordError describes a problem with one value of one record. Missing
// required values and conversion failures are recoverable and are collected
// in an AggregateError; the other kinds abort the session.
type RecordError struct {
	TypeName string
	Field    string
	Value    string
	Line     int
	// Record is the 1-based index of the record within its session.
	Record int
	Source string
	Err    error
}

// Error formats the record error with enough context to locate the value.
func (e *RecordError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Err.Error())
	switch {
	case errors.Is(e.Err, ErrWrongFormat):
		fmt.Fprintf(&b, ": value %q in line %d has the wrong format for field %q in type %q", e.Value, e.Line, e.Field, e.TypeName)
	case errors.Is(e.Err, ErrMissingRequired):
		fmt.Fprintf(&b, ": in line %d, no value provided for required field %q in type %q", e.Line, e.Field, e.TypeName)
	case e.Line > 0 && e.Field != "":
		fmt.Fprintf(&b, ": line %d, field %q in type %q", e.Line, e.Field, e.TypeName)
	case e.Line > 0:
		fmt.Fprintf(&b, ": line %d, type %q", e.Line, e.TypeName)
	case e.Field != "":
		fmt.Fprintf(&b, ": record %d, field %q in type %q", e.Record, e.Field, e.TypeName)
	default:
		fmt.Fprintf(&b, ": record %d, type %q", e.Record, e.TypeName)
	}
	b.WriteString(sourceSuffix(e.Source))
	return b.String()
}

// Unwrap returns Err, which wraps one of the package sentinels and, for
// conversion failures, the converter's own error.
func (e *RecordError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// AggregateError batches the recoverable errors of one read session.
type AggregateError struct {
	TypeName string
	Source   string
	Errors   []*RecordError

	limit int
}

func newAggregateError(typeName, source string, limit int) *AggregateError {
	return &AggregateError{TypeName: typeName, Source: source, limit: limit}
}

// add records err and reports whether the configured cap has been reached.
func (e *AggregateError) add(err *RecordError) bool {
	e.Errors = append(e.Errors, err)
	return e.limit != -1 && len(e.Errors) >= e.limit
}

// Error summarises the batch; the individual errors are in Errors.
func (e *AggregateError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("csvbind: %d error(s) while reading data using type %q", len(e.Errors), e.TypeName)
	msg += sourceSuffix(e.Source)
	if len(e.Errors) > 0 {
		msg += ": " + e.Errors[0].Error()
		if len(e.Errors) > 1 {
			msg += fmt.Sprintf(" (and %d more)", len(e.Errors)-1)
		}
	}
	return msg
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (e *AggregateError) Unwrap() []error {
	if e == nil {
		return nil
	}
	out := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		out[i] = err
	}
	return out
}

func sourceSuffix(source string) string {
	if source == "" {
		return ""
	}
	return fmt.Sprintf(" (source %q)", source)
}
