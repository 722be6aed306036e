package csvbind

import (
	"io"
	"iter"
	"log/slog"
)

// Encoder writes records of type T. The header row, when configured, is
// written before the first record or by Flush if no record was written.
// The first error stops the encoder; later calls return it again.
type Encoder[T any] struct {
	w      *Writer
	schema *Schema[T]
	log    *slog.Logger
	row    Row

	headerDone bool
	records    int
	err        error
}

// NewEncoder validates cfg and slots and returns an Encoder writing to dst.
func NewEncoder[T any](dst io.Writer, slots []Slot[T], cfg Config, opts ...Option) (*Encoder[T], error) {
	if dst == nil {
		return nil, errWriterNoTarget
	}
	o := newOptions[T](opts)
	schema, err := newSchema(slots, cfg, ModeWrite, o)
	if err != nil {
		return nil, err
	}

	w := NewWriter(dst)
	w.Comma = rune(cfg.Separator)
	w.AlwaysQuote = cfg.QuoteAll
	w.UseCRLF = cfg.UseCRLF
	w.Widths = schema.Widths()

	o.logger.Debug("csvbind: write session started",
		slog.String("type", o.typeName),
		slog.String("source", o.source),
		slog.Bool("header", cfg.HeaderPresent),
		slog.Int("columns", len(schema.Names())),
	)
	return &Encoder[T]{w: w, schema: schema, log: o.logger}, nil
}

// Encode writes one record.
func (e *Encoder[T]) Encode(rec T) error {
	if e.err != nil {
		return e.err
	}
	if err := e.writeHeader(); err != nil {
		return err
	}

	e.records++
	row, err := e.schema.bindRecord(&rec, e.row, e.records)
	e.row = row
	if err != nil {
		return e.abort(err)
	}
	if err := e.w.WriteRow(row); err != nil {
		return e.abort(&RecordError{
			TypeName: e.schema.opts.typeName,
			Record:   e.records,
			Source:   e.schema.opts.source,
			Err:      err,
		})
	}
	return nil
}

// EncodeAll writes every record and flushes.
func (e *Encoder[T]) EncodeAll(records []T) error {
	for _, rec := range records {
		if err := e.Encode(rec); err != nil {
			return err
		}
	}
	return e.Flush()
}

// EncodeSeq writes every record of seq and flushes.
func (e *Encoder[T]) EncodeSeq(seq iter.Seq[T]) error {
	for rec := range seq {
		if err := e.Encode(rec); err != nil {
			return err
		}
	}
	return e.Flush()
}

// Flush writes the header if still pending and flushes buffered output.
func (e *Encoder[T]) Flush() error {
	if e.err != nil {
		return e.err
	}
	if err := e.writeHeader(); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return e.abort(err)
	}
	e.log.Debug("csvbind: write session flushed",
		slog.String("type", e.schema.opts.typeName),
		slog.Int("records", e.records),
	)
	return nil
}

func (e *Encoder[T]) writeHeader() error {
	if e.headerDone {
		return nil
	}
	e.headerDone = true
	if !e.schema.cfg.HeaderPresent {
		return nil
	}
	if err := e.w.WriteRow(RowOf(e.schema.Names()...)); err != nil {
		return e.abort(&SchemaError{
			TypeName: e.schema.opts.typeName,
			Source:   e.schema.opts.source,
			Err:      err,
		})
	}
	return nil
}

func (e *Encoder[T]) abort(err error) error {
	e.err = err
	e.log.Debug("csvbind: write session aborted",
		slog.String("type", e.schema.opts.typeName),
		slog.Int("records", e.records),
		slog.Any("error", err),
	)
	return err
}

// Write encodes records to dst in one call.
func Write[T any](dst io.Writer, records []T, slots []Slot[T], cfg Config, opts ...Option) error {
	e, err := NewEncoder(dst, slots, cfg, opts...)
	if err != nil {
		return err
	}
	return e.EncodeAll(records)
}
