package csvbind

import (
	"fmt"
	"log/slog"
)

// Option configures a Schema, Decoder or Encoder.
type Option func(*options)

type options struct {
	logger   *slog.Logger
	typeName string
	source   string
	columns  []string
}

// WithLogger sets the logger used for session events. Nil loggers are ignored;
// the default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTypeName overrides the record type name used in errors and logs.
func WithTypeName(name string) Option {
	return func(o *options) { o.typeName = name }
}

// WithSourceName names the stream (usually a file name) in errors and logs.
func WithSourceName(name string) Option {
	return func(o *options) { o.source = name }
}

// WithColumns restricts writing to the named columns. Reading ignores it.
func WithColumns(names ...string) Option {
	return func(o *options) {
		o.columns = append(o.columns, names...)
	}
}

func newOptions[T any](opts []Option) options {
	var zero T
	o := options{
		logger:   slog.New(slog.DiscardHandler),
		typeName: fmt.Sprintf("%T", zero),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}
