package csvbind

import (
	"bufio"
	"fmt"
	"io"
	"unicode/utf8"
)

const defaultBufferSize = 4 << 10 // 4096 bytes

// ReadError reports a failure of the underlying source while a row was being read.
type ReadError struct {
	Line int
	Err  error
}

// Error formats the read error with the line the reader had reached.
func (e *ReadError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("csvbind: read error on line %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying source error.
func (e *ReadError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// fieldEnd tells ReadRow what terminated a field.
type fieldEnd int

const (
	endComma fieldEnd = iota
	endLine
	endStream
)

// Reader splits a character stream into rows. It never rejects input:
// malformed quoting is decoded on a best-effort basis and trailing content
// after a closing quote is kept.
type Reader struct {
	src *bufio.Reader

	// Comma is the field delimiter. Default is ','.
	Comma rune
	// TrailingComma drops the empty field produced by a delimiter right
	// before the end of a row, so "a,b," reads as two fields.
	TrailingComma bool

	dataBuf  []byte
	line     int
	finished bool
}

// NewReader creates a Reader that consumes CSV data from r, panicking if r is nil.
func NewReader(r io.Reader) *Reader {
	if r == nil {
		panic("csvbind: reader source cannot be nil")
	}

	return &Reader{
		src:     bufio.NewReaderSize(r, defaultBufferSize),
		Comma:   ',',
		dataBuf: make([]byte, 0, 512),
		line:    1,
	}
}

// Line returns the line number the reader is positioned on.
func (r *Reader) Line() int {
	return r.line
}

// ReadRow replaces the contents of row with the next row of the stream and
// reports whether a row was read; false with a nil error means the stream is
// exhausted. When widths is non-empty the delimiter is ignored and every
// physical line is cut into consecutive runs of widths[i] characters; text
// beyond the last width becomes one extra field.
func (r *Reader) ReadRow(row *Row, widths []int) (bool, error) {
	row.Reset()
	if r == nil || r.src == nil || r.finished {
		return false, nil
	}
	if len(widths) > 0 {
		return r.readFixed(row, widths)
	}

	afterComma := false
	for {
		f, found, end, err := r.readField()
		if err != nil {
			return false, err
		}

		switch end {
		case endComma:
			*row = append(*row, f)
			afterComma = true
		case endLine:
			if !(r.TrailingComma && afterComma && !f.Valid) {
				*row = append(*row, f)
			}
			return true, nil
		case endStream:
			if found || afterComma {
				if !(r.TrailingComma && afterComma && !f.Valid) {
					*row = append(*row, f)
				}
			}
			return len(*row) > 0, nil
		}
	}
}

// ReadAll reads every remaining row of a delimited stream.
func (r *Reader) ReadAll() (rows []Row, err error) {
	for {
		var row Row
		ok, err := r.ReadRow(&row, nil)
		if err != nil {
			return nil, err
		}
		if !ok {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

// readField decodes one field. found reports whether any data (including an
// opening quote) was seen before the terminator.
func (r *Reader) readField() (f Field, found bool, end fieldEnd, err error) {
	comma := r.Comma
	if comma == 0 {
		comma = ','
	}

	r.dataBuf = r.dataBuf[:0]
	f.Line = r.line
	predata, quoted, postdata := true, false, false

	for {
		c, err := r.next()
		if err == io.EOF {
			r.finished = true
			return r.build(f, found), found, endStream, nil
		}
		if err != nil {
			return Field{}, false, endStream, err
		}

		if c == comma && (postdata || !quoted) {
			return r.build(f, found), found, endComma, nil
		}

		if c == '\r' || c == '\n' {
			if predata || postdata || !quoted {
				if err := r.lineBreak(c, false); err != nil {
					return Field{}, false, endStream, err
				}
				return r.build(f, found), found, endLine, nil
			}
			// Line breaks inside quotes are data.
			if err := r.lineBreak(c, true); err != nil {
				return Field{}, false, endStream, err
			}
			continue
		}

		if predata {
			switch c {
			case ' ':
				continue
			case '"':
				quoted, predata, found = true, false, true
				continue
			}
			predata, found = false, true
			r.dataBuf = utf8.AppendRune(r.dataBuf, c)
			continue
		}

		if c == '"' && quoted {
			next, err := r.peek()
			if err != nil && err != io.EOF {
				return Field{}, false, endStream, err
			}
			if err == nil && next == '"' {
				_, _ = r.next()
				r.dataBuf = append(r.dataBuf, '"')
				continue
			}
			postdata = true
			continue
		}

		r.dataBuf = utf8.AppendRune(r.dataBuf, c)
	}
}

// readFixed reads one physical line and slices it by widths.
func (r *Reader) readFixed(row *Row, widths []int) (bool, error) {
	line := r.line
	r.dataBuf = r.dataBuf[:0]
	consumed := false

	for {
		c, err := r.next()
		if err == io.EOF {
			r.finished = true
			if !consumed {
				return false, nil
			}
			break
		}
		if err != nil {
			return false, err
		}
		consumed = true
		if c == '\r' || c == '\n' {
			if err := r.lineBreak(c, false); err != nil {
				return false, err
			}
			break
		}
		r.dataBuf = utf8.AppendRune(r.dataBuf, c)
	}

	if len(r.dataBuf) == 0 {
		*row = append(*row, Field{Line: line})
		return true, nil
	}

	text := string(r.dataBuf)
	pos := 0
	for _, w := range widths {
		if pos >= len(text) {
			break
		}
		end := pos
		for n := 0; n < w && end < len(text); n++ {
			_, size := utf8.DecodeRuneInString(text[end:])
			end += size
		}
		*row = append(*row, Field{Value: text[pos:end], Valid: true, Line: line})
		pos = end
	}
	if pos < len(text) {
		*row = append(*row, Field{Value: text[pos:], Valid: true, Line: line})
	}
	return true, nil
}

// lineBreak advances the line counter for a CR, LF or CRLF sequence whose
// first character c was already consumed. A CRLF pair counts once. When keep
// is set the characters are appended to the current field.
func (r *Reader) lineBreak(c rune, keep bool) error {
	r.line++
	if keep {
		r.dataBuf = append(r.dataBuf, byte(c))
	}
	if c != '\r' {
		return nil
	}
	next, err := r.peek()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	if next == '\n' {
		_, _ = r.next()
		if keep {
			r.dataBuf = append(r.dataBuf, '\n')
		}
	}
	return nil
}

func (r *Reader) build(f Field, found bool) Field {
	if found {
		f.Value = string(r.dataBuf)
		f.Valid = true
	}
	return f
}

// next returns the next rune of the stream, wrapping source failures in a *ReadError.
func (r *Reader) next() (rune, error) {
	c, _, err := r.src.ReadRune()
	if err != nil && err != io.EOF {
		return 0, &ReadError{Line: r.line, Err: err}
	}
	return c, err
}

// peek returns the next rune without consuming it.
func (r *Reader) peek() (rune, error) {
	c, err := r.next()
	if err != nil {
		return 0, err
	}
	if err := r.src.UnreadRune(); err != nil {
		return 0, &ReadError{Line: r.line, Err: err}
	}
	return c, nil
}
