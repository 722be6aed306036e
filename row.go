package csvbind

import "strings"

// Field is a single cell read from or written to a CSV stream.
//
// Valid is false for an absent field: an empty unquoted cell, or a slot the
// writer should leave empty. A quoted empty cell ("") is Valid with an empty
// Value.
type Field struct {
	Value string
	Valid bool
	// Line is the 1-based source line on which the field starts. Writers ignore it.
	Line int
}

// FieldOf returns a present field holding s.
func FieldOf(s string) Field {
	return Field{Value: s, Valid: true}
}

// Row is the ordered list of fields of one physical record. Readers reuse
// the backing array between calls, so copy a Row before keeping it.
type Row []Field

// Reset truncates the row while keeping its capacity.
func (r *Row) Reset() {
	*r = (*r)[:0]
}

// Values returns the field values; absent fields become empty strings.
func (r Row) Values() []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.Value
	}
	return out
}

// IsBlank reports whether the row is a single absent or white-space-only
// field, which is what an empty line decodes to.
func (r Row) IsBlank() bool {
	if len(r) != 1 {
		return false
	}
	return !r[0].Valid || strings.TrimSpace(r[0].Value) == ""
}

// Line reports the line on which the row starts, or 0 for an empty row.
func (r Row) Line() int {
	if len(r) == 0 {
		return 0
	}
	return r[0].Line
}

// RowOf builds a row of present fields, mostly useful for writing.
func RowOf(values ...string) Row {
	row := make(Row, len(values))
	for i, v := range values {
		row[i] = FieldOf(v)
	}
	return row
}
