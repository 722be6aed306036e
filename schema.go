package csvbind

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
)

// Mode tells a Schema which direction it serves; some checks differ.
type Mode int

const (
	// ModeRead resolves a schema for decoding.
	ModeRead Mode = iota
	// ModeWrite resolves a schema for encoding; only emitted slots are checked.
	ModeWrite
)

// Schema is the ordered list of descriptors for record type T within one
// session. It is built once, may be reordered once by a header row, and must
// not be shared between concurrent sessions.
type Schema[T any] struct {
	slots []Slot[T]
	desc  []Descriptor
	cfg   Config
	mode  Mode
	opts  options

	culture *culture
	allow   map[string]bool
	// colMap maps a header column to a descriptor position, -1 for skipped
	// columns. Nil until ApplyHeader runs.
	colMap []int
}

// NewSchema resolves slots against cfg. Every configuration problem is
// reported here, before any data is read or written, except header problems
// which ApplyHeader reports.
func NewSchema[T any](slots []Slot[T], cfg Config, mode Mode, opts ...Option) (*Schema[T], error) {
	return newSchema(slots, cfg, mode, newOptions[T](opts))
}

func newSchema[T any](slots []Slot[T], cfg Config, mode Mode, o options) (*Schema[T], error) {
	s := &Schema[T]{
		slots: slots,
		cfg:   cfg,
		mode:  mode,
		opts:  o,
	}
	if err := cfg.Validate(); err != nil {
		return nil, s.schemaErr("", err)
	}
	if len(slots) == 0 {
		return nil, s.schemaErr("", fmt.Errorf("%w: no slots", ErrInvalidConfig))
	}
	if len(o.columns) > 0 {
		s.allow = make(map[string]bool, len(o.columns))
		for _, name := range o.columns {
			s.allow[name] = true
		}
	}

	s.desc = make([]Descriptor, len(slots))
	byOrdinal := make(map[int]string, len(slots))
	byName := make(map[string]bool, len(slots))
	for i := range slots {
		slot := &slots[i]
		if err := slot.valid(); err != nil {
			return nil, s.schemaErr(slot.Name, err)
		}
		d := describe(i, slot.Name, slot.Kind, slot.bits, slot.Column)
		if d.Ordinal < 0 {
			return nil, s.schemaErr(d.Name, fmt.Errorf("%w: ordinal %d", ErrInvalidConfig, d.Ordinal))
		}
		if d.Ordinal > 0 {
			if other, ok := byOrdinal[d.Ordinal]; ok {
				return nil, &SchemaError{
					TypeName: o.typeName,
					Field:    d.Name,
					Other:    other,
					Ordinal:  d.Ordinal,
					Source:   o.source,
					Err:      ErrDuplicateOrdinal,
				}
			}
			byOrdinal[d.Ordinal] = d.Name
		}
		if byName[d.Name] {
			return nil, s.schemaErr(d.Name, fmt.Errorf("%w: two slots use the name %q", ErrDuplicateColumn, d.Name))
		}
		byName[d.Name] = true
		s.desc[i] = d
	}

	for _, d := range s.desc {
		if !s.cfg.HeaderPresent && s.cfg.AnnotationRequired && d.Ordinal == 0 {
			if (mode == ModeWrite && s.emits(&d)) || (mode == ModeRead && !d.Nullable) {
				return nil, s.schemaErr(d.Name, ErrMissingOrdinal)
			}
		}
		if s.cfg.FixedWidth && d.Width <= 0 && (mode == ModeRead || s.emits(&d)) {
			return nil, s.schemaErr(d.Name, ErrMissingWidth)
		}
	}

	// Numbered columns first, in ordinal order; unnumbered ones keep their
	// declaration order after them.
	slices.SortStableFunc(s.desc, func(a, b Descriptor) int {
		switch {
		case a.Ordinal == b.Ordinal:
			return 0
		case a.Ordinal == 0:
			return 1
		case b.Ordinal == 0:
			return -1
		}
		return a.Ordinal - b.Ordinal
	})

	s.culture = cultureFor(cfg.Culture)
	return s, nil
}

// clone returns a fresh copy for a new session.
func (s *Schema[T]) clone() *Schema[T] {
	c := *s
	c.desc = slices.Clone(s.desc)
	c.colMap = nil
	return &c
}

// Descriptors returns a copy of the descriptors in their current order.
func (s *Schema[T]) Descriptors() []Descriptor {
	return slices.Clone(s.desc)
}

// Names returns the column names in order. For a write schema only emitted
// columns are listed.
func (s *Schema[T]) Names() []string {
	names := make([]string, 0, len(s.desc))
	for i := range s.desc {
		if s.mode == ModeWrite && !s.emits(&s.desc[i]) {
			continue
		}
		names = append(names, s.desc[i].Name)
	}
	return names
}

// Widths returns the fixed widths in column order, or nil when cfg is not
// fixed-width.
func (s *Schema[T]) Widths() []int {
	if !s.cfg.FixedWidth {
		return nil
	}
	widths := make([]int, 0, len(s.desc))
	for i := range s.desc {
		if s.mode == ModeWrite && !s.emits(&s.desc[i]) {
			continue
		}
		widths = append(widths, s.desc[i].Width)
	}
	return widths
}

// ApplyHeader reorders the schema to follow the column names in header.
// Descriptors the header does not name keep their relative order after the
// named ones. It may be called once per session.
func (s *Schema[T]) ApplyHeader(header Row) error {
	if s.colMap != nil {
		return s.schemaErr("", fmt.Errorf("%w: header already applied", ErrInvalidConfig))
	}

	byName := make(map[string]int, len(s.desc))
	for i := range s.desc {
		byName[s.desc[i].Name] = i
	}

	colMap := make([]int, len(header))
	ordered := make([]Descriptor, 0, len(s.desc))
	used := make([]bool, len(s.desc))
	skipped := 0
	for col, f := range header {
		name := f.Value
		if s.cfg.FixedWidth {
			name = strings.TrimSpace(name)
		}
		i, ok := byName[name]
		if !ok {
			if !s.cfg.UnknownColumnTolerant {
				return s.schemaErr(name, ErrUnknownColumn)
			}
			colMap[col] = -1
			skipped++
			continue
		}
		if used[i] {
			return s.schemaErr(name, ErrDuplicateColumn)
		}
		if s.cfg.AnnotationRequired && !s.desc[i].Annotated {
			return s.schemaErr(name, ErrMissingAnnotation)
		}
		used[i] = true
		colMap[col] = len(ordered)
		ordered = append(ordered, s.desc[i])
	}
	for i := range s.desc {
		if !used[i] {
			ordered = append(ordered, s.desc[i])
		}
	}

	s.desc = ordered
	s.colMap = colMap
	s.opts.logger.Debug("csvbind: header resolved",
		slog.String("type", s.opts.typeName),
		slog.Int("columns", len(header)),
		slog.Int("skipped", skipped),
	)
	return nil
}

// emits reports whether d is written: it passes the allow-list and, when
// annotations are required, carries one.
func (s *Schema[T]) emits(d *Descriptor) bool {
	if s.allow != nil && !s.allow[d.Name] {
		return false
	}
	return !s.cfg.AnnotationRequired || d.Annotated
}

func (s *Schema[T]) schemaErr(field string, err error) *SchemaError {
	return &SchemaError{
		TypeName: s.opts.typeName,
		Field:    field,
		Source:   s.opts.source,
		Err:      err,
	}
}
