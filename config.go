package csvbind

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Delimiter is a field separator. It unmarshals from a single character or
// from the escapes `\t` and "tab", which keeps tab-separated files
// configurable from the environment.
type Delimiter rune

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Delimiter) UnmarshalText(text []byte) error {
	s := string(text)
	switch s {
	case `\t`, "tab", "TAB":
		*d = '\t'
		return nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size != len(s) {
		return fmt.Errorf("%w: separator %q must be a single character", ErrInvalidConfig, s)
	}
	*d = Delimiter(r)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Delimiter) MarshalText() ([]byte, error) {
	if d == '\t' {
		return []byte(`\t`), nil
	}
	return []byte(string(rune(d))), nil
}

// Config describes how a CSV stream is laid out and how its values are
// interpreted. Use DefaultConfig or LoadConfig; the zero value has no
// header and no separator.
type Config struct {
	// Separator delimits fields. Ignored when FixedWidth is set.
	Separator Delimiter `env:"SEPARATOR" envDefault:","`
	// FixedWidth cuts each line into runs of the slots' widths instead of splitting on Separator.
	FixedWidth bool `env:"FIXED_WIDTH"`
	// HeaderPresent means the first row holds column names, on read and on write.
	HeaderPresent bool `env:"HEADER_PRESENT" envDefault:"true"`
	// AnnotationRequired restricts the schema to slots carrying an explicit Column.
	AnnotationRequired bool `env:"ANNOTATION_REQUIRED"`
	// Culture drives number, currency and date conventions.
	Culture language.Tag `env:"CULTURE" envDefault:"en-US"`
	// QuoteAll quotes every present field on write.
	QuoteAll bool `env:"QUOTE_ALL"`
	// UseCRLF terminates written rows with \r\n.
	UseCRLF bool `env:"USE_CRLF"`
	// TrailingSeparatorTolerant drops an empty last field created by a trailing separator.
	TrailingSeparatorTolerant bool `env:"TRAILING_SEPARATOR_TOLERANT"`
	// UnknownColumnTolerant skips header columns and extra fields no slot claims.
	UnknownColumnTolerant bool `env:"UNKNOWN_COLUMN_TOLERANT"`
	// OrdinalAddressedRead takes each value from the column named by the slot's ordinal.
	OrdinalAddressedRead bool `env:"ORDINAL_ADDRESSED_READ"`
	// ExactFormatParse parses values with the slot's output format when the kind supports it.
	ExactFormatParse bool `env:"EXACT_FORMAT_PARSE"`
	// MaxErrors caps recoverable errors per read session; -1 means unlimited.
	MaxErrors int `env:"MAX_ERRORS" envDefault:"100"`
}

// DefaultConfig returns the documented defaults: comma separated, header
// present, en-US culture, at most 100 collected errors.
func DefaultConfig() Config {
	return Config{
		Separator:     ',',
		HeaderPresent: true,
		Culture:       language.AmericanEnglish,
		MaxErrors:     100,
	}
}

// LoadConfig reads a Config from environment variables named prefix + key
// (for example CSV_SEPARATOR with prefix "CSV_"). A .env file in the working
// directory is loaded first when present.
func LoadConfig(prefix string) (Config, error) {
	// The .env file is optional.
	_ = godotenv.Load()

	return parseConfig(env.Options{Prefix: prefix})
}

func parseConfig(opts env.Options) (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](opts)
	if err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports settings that cannot work.
func (c Config) Validate() error {
	if !c.FixedWidth {
		switch c.Separator {
		case 0:
			return fmt.Errorf("%w: separator is not set", ErrInvalidConfig)
		case '"', '\r', '\n':
			return fmt.Errorf("%w: separator %q is reserved", ErrInvalidConfig, rune(c.Separator))
		}
	}
	if c.MaxErrors < -1 {
		return fmt.Errorf("%w: max errors %d, want -1 or more", ErrInvalidConfig, c.MaxErrors)
	}
	return nil
}
