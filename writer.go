package csvbind

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	errNilWriter      = errors.New("csvbind: writer is nil")
	errWriterNoTarget = errors.New("csvbind: writer destination cannot be nil")
)

// Writer emits rows with configurable delimiter, quoting and line endings.
type Writer struct {
	dst *bufio.Writer

	// Comma is the field delimiter. Default is ','.
	Comma rune
	// UseCRLF writes rows terminated with \r\n when set.
	UseCRLF bool
	// AlwaysQuote forces quoting for all present fields when enabled.
	AlwaysQuote bool
	// Widths switches the writer to fixed-width output: field i is padded
	// with spaces to Widths[i] characters and no delimiter or quoting is used.
	// Values holding a line break cannot be written in this mode.
	Widths []int

	err error
}

// NewWriter creates a new Writer with internal buffering tuned for bulk writes.
func NewWriter(w io.Writer) *Writer {
	if w == nil {
		panic(errWriterNoTarget.Error())
	}
	return &Writer{
		dst:   bufio.NewWriterSize(w, defaultBufferSize),
		Comma: ',',
	}
}

// Reset updates the underlying writer while preserving the configuration flags.
func (w *Writer) Reset(dst io.Writer) {
	if w == nil {
		panic(errNilWriter.Error())
	}
	if dst == nil {
		panic(errWriterNoTarget.Error())
	}
	if w.dst == nil {
		w.dst = bufio.NewWriterSize(dst, defaultBufferSize)
	} else {
		w.dst.Reset(dst)
	}
	w.err = nil
}

// WriteRow emits a single row followed by one line break. Absent fields are
// written as empty, unquoted slots.
func (w *Writer) WriteRow(row Row) error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}

	var err error
	if len(w.Widths) > 0 {
		err = w.writeFixed(row)
	} else {
		err = w.writeDelimited(row)
	}
	if err == nil {
		if w.UseCRLF {
			_, err = w.dst.WriteString("\r\n")
		} else {
			err = w.dst.WriteByte('\n')
		}
	}
	if err != nil {
		w.err = err
		return err
	}
	return nil
}

// WriteAll writes multiple rows, stopping at the first error.
func (w *Writer) WriteAll(rows []Row) error {
	if w == nil {
		return errNilWriter
	}
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes pending buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Error reports the first error encountered by the writer.
func (w *Writer) Error() error {
	if w == nil {
		return errNilWriter
	}
	return w.err
}

func (w *Writer) writeDelimited(row Row) error {
	comma := w.Comma
	if comma == 0 {
		comma = ','
	}

	for i := range row {
		if i > 0 {
			if _, err := w.dst.WriteRune(comma); err != nil {
				return err
			}
		}
		if !row[i].Valid {
			continue
		}
		if err := w.writeField(row[i].Value, comma); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeFixed(row Row) error {
	for i, f := range row {
		if i >= len(w.Widths) {
			return fmt.Errorf("%w: row has %d fields, %d widths configured", ErrTooManyFields, len(row), len(w.Widths))
		}
		if strings.ContainsAny(f.Value, "\r\n") {
			return fmt.Errorf("%w: field %d is %q", ErrFieldNotFixed, i+1, f.Value)
		}
		n := utf8.RuneCountInString(f.Value)
		if n > w.Widths[i] {
			return fmt.Errorf("%w: %q is %d characters, width is %d", ErrFieldTooWide, f.Value, n, w.Widths[i])
		}
		if _, err := w.dst.WriteString(f.Value); err != nil {
			return err
		}
		if _, err := w.dst.WriteString(strings.Repeat(" ", w.Widths[i]-n)); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeField(field string, comma rune) error {
	if !w.AlwaysQuote && !fieldNeedsQuote(field, comma) {
		_, err := w.dst.WriteString(field)
		return err
	}
	if err := w.dst.WriteByte('"'); err != nil {
		return err
	}

	start := 0
	for i := 0; i < len(field); i++ {
		if field[i] == '"' {
			if start < i {
				if _, err := w.dst.WriteString(field[start:i]); err != nil {
					return err
				}
			}
			if _, err := w.dst.WriteString(`""`); err != nil {
				return err
			}
			start = i + 1
		}
	}
	if start < len(field) {
		if _, err := w.dst.WriteString(field[start:]); err != nil {
			return err
		}
	}
	return w.dst.WriteByte('"')
}

// fieldNeedsQuote reports whether field has to be quoted to read back
// unchanged: it holds the delimiter, a quote or a line break, it starts
// with a space, or it is blank.
func fieldNeedsQuote(field string, comma rune) bool {
	if strings.TrimSpace(field) == "" || field[0] == ' ' {
		return true
	}
	return strings.ContainsRune(field, comma) || strings.ContainsAny(field, "\"\r\n")
}
