package csvbind

import (
	"fmt"
	"strings"
)

// bindRow converts row into a record. Missing required values and
// conversion failures are returned in errs and leave their field unset; err
// is a fatal problem with the row. record is the 1-based record index.
func (s *Schema[T]) bindRow(row Row, record int) (rec T, errs []*RecordError, err error) {
	if len(row) > len(s.desc) && !s.cfg.UnknownColumnTolerant {
		return rec, nil, s.recordErr("", "", row.Line(), record,
			fmt.Errorf("%w: %d fields, type has %d", ErrTooManyFields, len(row), len(s.desc)))
	}

	covered := make([]bool, len(s.desc))
	for col := range row {
		pos := col
		if s.colMap != nil && col < len(s.colMap) {
			pos = s.colMap[col]
		} else if s.colMap != nil && s.cfg.UnknownColumnTolerant {
			pos = -1
		}
		if pos < 0 || pos >= len(s.desc) {
			continue
		}
		d := &s.desc[pos]

		if s.cfg.AnnotationRequired && !d.Annotated {
			return rec, nil, s.recordErr(d.Name, "", row[col].Line, record,
				fmt.Errorf("%w: data for a field without a column annotation", ErrTooManyFields))
		}

		f := row[col]
		if s.cfg.OrdinalAddressedRead {
			if d.Ordinal == 0 {
				if !s.cfg.HeaderPresent {
					return rec, nil, s.recordErr(d.Name, "", f.Line, record, ErrMissingOrdinal)
				}
			} else {
				if d.Ordinal > len(row) {
					return rec, nil, s.recordErr(d.Name, "", f.Line, record,
						fmt.Errorf("%w: ordinal %d, row has %d fields", ErrOrdinalOutOfRange, d.Ordinal, len(row)))
				}
				f = row[d.Ordinal-1]
			}
		}
		covered[pos] = true

		if e := s.bindField(&rec, d, f, record); e != nil {
			errs = append(errs, e)
		}
	}

	// Fields the row did not reach.
	for pos := range s.desc {
		d := &s.desc[pos]
		if covered[pos] || d.Nullable || (s.cfg.AnnotationRequired && !d.Annotated) {
			continue
		}
		errs = append(errs, s.recordErr(d.Name, "", lastLine(row), record, ErrMissingRequired))
	}
	return rec, errs, nil
}

func (s *Schema[T]) bindField(rec *T, d *Descriptor, f Field, record int) *RecordError {
	value := f.Value
	if s.cfg.FixedWidth {
		// Padding alone is an empty slot, the way an empty unquoted field is.
		value = strings.TrimRight(value, " ")
		if value == "" {
			f.Valid = false
		}
	}
	if !f.Valid || value == "" {
		if !d.Nullable {
			return s.recordErr(d.Name, "", f.Line, record, ErrMissingRequired)
		}
		if f.Valid && d.Kind == KindString {
			_ = s.slots[d.slot].set(rec, "")
		}
		return nil
	}

	v, err := parseValue(d, value, s.culture, s.cfg.ExactFormatParse)
	if err == nil {
		err = s.slots[d.slot].set(rec, v)
	}
	if err != nil {
		return s.recordErr(d.Name, value, f.Line, record, fmt.Errorf("%w: %w", ErrWrongFormat, err))
	}
	return nil
}

// bindRecord converts rec into row, reusing its storage. Any failure is fatal.
func (s *Schema[T]) bindRecord(rec *T, row Row, record int) (Row, error) {
	row = row[:0]
	for i := range s.desc {
		d := &s.desc[i]
		if !s.emits(d) {
			continue
		}
		v, ok := s.slots[d.slot].get(rec)
		if !ok {
			row = append(row, Field{})
			continue
		}
		text, err := formatValue(d, v, s.culture)
		if err != nil {
			return row, s.recordErr(d.Name, "", 0, record, err)
		}
		row = append(row, FieldOf(text))
	}
	return row, nil
}

func (s *Schema[T]) recordErr(field, value string, line, record int, err error) *RecordError {
	return &RecordError{
		TypeName: s.opts.typeName,
		Field:    field,
		Value:    value,
		Line:     line,
		Record:   record,
		Source:   s.opts.source,
		Err:      err,
	}
}

func lastLine(row Row) int {
	if len(row) == 0 {
		return 0
	}
	return row[len(row)-1].Line
}
