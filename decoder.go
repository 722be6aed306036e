package csvbind

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"slices"
)

// Decoder reads records of type T from a seekable source.
//
// Every call of Cursor, and every range over All, seeks the source back to
// its start and decodes it again from scratch with a fresh schema and a fresh
// error batch. Sessions over the same Decoder must not run concurrently since
// they share the source.
type Decoder[T any] struct {
	src    io.ReadSeeker
	schema *Schema[T]
	opts   options
}

// NewDecoder validates cfg and slots and returns a Decoder for src. No data
// is read until a session starts.
func NewDecoder[T any](src io.ReadSeeker, slots []Slot[T], cfg Config, opts ...Option) (*Decoder[T], error) {
	o := newOptions[T](opts)
	if src == nil {
		return nil, &SchemaError{TypeName: o.typeName, Source: o.source, Err: ErrBadSource}
	}
	schema, err := newSchema(slots, cfg, ModeRead, o)
	if err != nil {
		return nil, err
	}
	return &Decoder[T]{src: src, schema: schema, opts: o}, nil
}

// Schema returns the resolved schema in its default order.
func (d *Decoder[T]) Schema() *Schema[T] {
	return d.schema.clone()
}

// Cursor starts a new session at the beginning of the source.
func (d *Decoder[T]) Cursor() (*Cursor[T], error) {
	if _, err := d.src.Seek(0, io.SeekStart); err != nil {
		return nil, &SchemaError{
			TypeName: d.opts.typeName,
			Source:   d.opts.source,
			Err:      fmt.Errorf("%w: %w", ErrBadSource, err),
		}
	}

	cfg := d.schema.cfg
	r := NewReader(d.src)
	r.Comma = rune(cfg.Separator)
	r.TrailingComma = cfg.TrailingSeparatorTolerant

	schema := d.schema.clone()
	d.opts.logger.Debug("csvbind: read session started",
		slog.String("type", d.opts.typeName),
		slog.String("source", d.opts.source),
		slog.Bool("header", cfg.HeaderPresent),
		slog.Bool("fixed_width", cfg.FixedWidth),
	)
	return &Cursor[T]{
		r:          r,
		schema:     schema,
		log:        d.opts.logger,
		widths:     schema.Widths(),
		needHeader: cfg.HeaderPresent,
		agg:        newAggregateError(d.opts.typeName, d.opts.source, cfg.MaxErrors),
	}, nil
}

// All returns the records of a new session as a sequence. A fatal error, or
// the error batch at the end or at the cap, is yielded last with a zero
// record.
func (d *Decoder[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		c, err := d.Cursor()
		if err != nil {
			yield(zero, err)
			return
		}
		for c.Next() {
			if !yield(c.Record(), nil) {
				return
			}
		}
		if err := c.Err(); err != nil {
			yield(zero, err)
		}
	}
}

// ReadAll runs a full session. Records are returned even when err is non-nil;
// err is then a fatal error or an *AggregateError.
func (d *Decoder[T]) ReadAll() ([]T, error) {
	c, err := d.Cursor()
	if err != nil {
		return nil, err
	}
	var out []T
	for c.Next() {
		out = append(out, c.Record())
	}
	return out, c.Err()
}

// Read decodes every record of src in one call.
func Read[T any](src io.ReadSeeker, slots []Slot[T], cfg Config, opts ...Option) ([]T, error) {
	d, err := NewDecoder(src, slots, cfg, opts...)
	if err != nil {
		return nil, err
	}
	return d.ReadAll()
}

// Rows returns the raw rows of src without binding them to a record type.
// Like Decoder.All, every range over the sequence seeks src back to its
// start. Blank lines are skipped and, when cfg.HeaderPresent is set, so is
// the first row. widths are used in fixed-width mode. The yielded rows are
// copies and may be kept.
func Rows(src io.ReadSeeker, cfg Config, widths ...int) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		if src == nil {
			yield(nil, &SchemaError{Err: ErrBadSource})
			return
		}
		if err := cfg.Validate(); err != nil {
			yield(nil, &SchemaError{Err: err})
			return
		}
		if !cfg.FixedWidth {
			widths = nil
		} else if len(widths) == 0 {
			yield(nil, &SchemaError{Err: ErrMissingWidth})
			return
		}
		if _, err := src.Seek(0, io.SeekStart); err != nil {
			yield(nil, &SchemaError{Err: fmt.Errorf("%w: %w", ErrBadSource, err)})
			return
		}

		r := NewReader(src)
		r.Comma = rune(cfg.Separator)
		r.TrailingComma = cfg.TrailingSeparatorTolerant
		skipHeader := cfg.HeaderPresent
		var row Row
		for {
			ok, err := r.ReadRow(&row, widths)
			if err != nil {
				yield(nil, err)
				return
			}
			if !ok {
				return
			}
			if row.IsBlank() {
				continue
			}
			if skipHeader {
				skipHeader = false
				continue
			}
			if !yield(slices.Clone(row), nil) {
				return
			}
		}
	}
}

// Cursor walks the records of one read session.
//
//	c, err := dec.Cursor()
//	...
//	for c.Next() {
//		use(c.Record())
//	}
//	if err := c.Err(); err != nil { ... }
type Cursor[T any] struct {
	r      *Reader
	schema *Schema[T]
	log    *slog.Logger
	row    Row
	widths []int

	needHeader bool
	rec        T
	line       int
	recErrs    []*RecordError
	records    int
	agg        *AggregateError
	err        error
	done       bool
}

// Next advances to the next record. It returns false at the end of the
// source, on a fatal error, or once the error cap is reached; Err tells
// which.
func (c *Cursor[T]) Next() bool {
	if c.done {
		return false
	}
	c.recErrs = nil
	for {
		ok, err := c.r.ReadRow(&c.row, c.widths)
		if err != nil {
			return c.fail(err)
		}
		if !ok {
			c.finish()
			return false
		}
		if c.row.IsBlank() {
			continue
		}
		if c.needHeader {
			c.needHeader = false
			if err := c.schema.ApplyHeader(c.row); err != nil {
				return c.fail(err)
			}
			c.widths = c.schema.Widths()
			continue
		}

		c.records++
		rec, errs, err := c.schema.bindRow(c.row, c.records)
		if err != nil {
			return c.fail(err)
		}
		for _, e := range errs {
			c.log.Debug("csvbind: record error",
				slog.Int("line", e.Line),
				slog.String("field", e.Field),
				slog.Any("error", e.Err),
			)
			if c.agg.add(e) {
				c.log.Warn("csvbind: error limit reached",
					slog.String("type", c.agg.TypeName),
					slog.Int("errors", len(c.agg.Errors)),
				)
				c.recErrs = errs
				return c.fail(c.agg)
			}
		}
		c.rec, c.line, c.recErrs = rec, c.row.Line(), errs
		return true
	}
}

// Record returns the current record. Fields that failed to convert are left
// at their zero value; RecordErrors lists them.
func (c *Cursor[T]) Record() T {
	return c.rec
}

// Line returns the line on which the current record starts.
func (c *Cursor[T]) Line() int {
	return c.line
}

// RecordErrors returns the recoverable errors of the current record.
func (c *Cursor[T]) RecordErrors() []*RecordError {
	return c.recErrs
}

// Errors returns every recoverable error collected so far in the session.
func (c *Cursor[T]) Errors() []*RecordError {
	return c.agg.Errors
}

// Err returns the error that ended the session: a fatal error, or an
// *AggregateError when recoverable errors were collected. It is nil while
// the session runs and after a clean end.
func (c *Cursor[T]) Err() error {
	return c.err
}

func (c *Cursor[T]) fail(err error) bool {
	c.done = true
	c.err = err
	var zero T
	c.rec = zero
	c.logEnd()
	return false
}

func (c *Cursor[T]) finish() {
	c.done = true
	if len(c.agg.Errors) > 0 {
		c.err = c.agg
	}
	c.logEnd()
}

func (c *Cursor[T]) logEnd() {
	c.log.Debug("csvbind: read session finished",
		slog.String("type", c.agg.TypeName),
		slog.Int("records", c.records),
		slog.Int("errors", len(c.agg.Errors)),
		slog.Any("error", c.err),
	)
}
