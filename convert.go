package csvbind

import (
	"encoding"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/text/currency"
	"golang.org/x/text/number"
)

// Kind is the semantic type of a slot; it selects the converter used to
// parse and format its values.
type Kind int

const (
	// KindString holds text as is.
	KindString Kind = iota
	// KindInt holds signed integers of any size.
	KindInt
	// KindUint holds unsigned integers of any size.
	KindUint
	// KindFloat holds float32 and float64 values.
	KindFloat
	// KindDecimal holds *apd.Decimal values.
	KindDecimal
	// KindBool holds booleans.
	KindBool
	// KindTime holds time.Time values.
	KindTime
	// KindDuration holds time.Duration values.
	KindDuration
	// KindText covers any type implementing encoding.TextMarshaler and
	// encoding.TextUnmarshaler.
	KindText
)

var kindNames = [...]string{"string", "int", "uint", "float", "decimal", "bool", "time", "duration", "text"}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
	return kindNames[k]
}

var errSyntax = errors.New("invalid syntax")

// decimalContext bounds the precision used when rounding decimals for output.
var decimalContext = apd.BaseContext.WithPrecision(128)

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC850,
	time.RFC822Z,
	time.RFC822,
	time.ANSIC,
	"2 Jan 2006 15:04:05",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2, 2006 15:04:05",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
}

var numericDateLayouts = map[dateOrder][]string{
	orderDMY: {"2/1/2006", "2/1/06"},
	orderMDY: {"1/2/2006", "1/2/06"},
	orderYMD: {"2006/1/2", "06/1/2"},
}

var timeSuffixes = []string{"", " 15:04:05", " 15:04", " 3:04:05 PM", " 3:04 PM"}

// parseValue converts text into the value type of d's kind: string, int64,
// uint64, float64, *apd.Decimal, bool, time.Time, time.Duration, or the raw
// string for KindText.
func parseValue(d *Descriptor, text string, c *culture, exact bool) (any, error) {
	switch d.Kind {
	case KindString, KindText:
		return text, nil
	case KindInt:
		if exact && isHexFormat(d.Format) {
			return parseHexInt(strings.TrimSpace(text), d.bits)
		}
		return parseInt(text, d.NumberStyle, c, d.bits)
	case KindUint:
		if exact && isHexFormat(d.Format) {
			return strconv.ParseUint(strings.TrimSpace(text), 16, d.bits)
		}
		return parseUint(text, d.NumberStyle, c, d.bits)
	case KindFloat:
		norm, hex, ok := c.normalizeNumber(text, d.NumberStyle)
		if !ok || hex {
			return nil, errSyntax
		}
		return strconv.ParseFloat(norm, d.bits)
	case KindDecimal:
		norm, hex, ok := c.normalizeNumber(text, d.NumberStyle)
		if !ok || hex {
			return nil, errSyntax
		}
		v, _, err := apd.NewFromString(norm)
		return v, err
	case KindBool:
		return parseBool(text)
	case KindTime:
		return parseTime(text, d, c, exact)
	case KindDuration:
		return time.ParseDuration(strings.TrimSpace(text))
	}
	return nil, fmt.Errorf("csvbind: unknown kind %v", d.Kind)
}

func parseInt(text string, style NumberStyle, c *culture, bits int) (int64, error) {
	norm, hex, ok := c.normalizeNumber(text, style)
	if !ok {
		return 0, errSyntax
	}
	if hex {
		return parseHexInt(norm, bits)
	}
	if isPlainInteger(norm) {
		return strconv.ParseInt(norm, 10, bits)
	}
	d, _, err := apd.NewFromString(norm)
	if err != nil {
		return 0, err
	}
	v, err := d.Int64()
	if err != nil {
		return 0, err
	}
	if bits < 64 && (v < -(1<<(bits-1)) || v >= 1<<(bits-1)) {
		return 0, strconv.ErrRange
	}
	return v, nil
}

func parseUint(text string, style NumberStyle, c *culture, bits int) (uint64, error) {
	norm, hex, ok := c.normalizeNumber(text, style)
	if !ok {
		return 0, errSyntax
	}
	if hex {
		return strconv.ParseUint(norm, 16, bits)
	}
	if isPlainInteger(norm) {
		return strconv.ParseUint(norm, 10, bits)
	}
	d, _, err := apd.NewFromString(norm)
	if err != nil {
		return 0, err
	}
	v, err := d.Int64()
	if err != nil {
		return 0, err
	}
	if v < 0 || (bits < 64 && uint64(v) >= 1<<bits) {
		return 0, strconv.ErrRange
	}
	return uint64(v), nil
}

// parseHexInt reads hex digits as the two's complement bit pattern of a
// signed integer of the given size, so "FF" is -1 for an 8-bit slot.
func parseHexInt(s string, bits int) (int64, error) {
	u, err := strconv.ParseUint(s, 16, bits)
	if err != nil {
		return 0, err
	}
	if bits < 64 && u >= 1<<(bits-1) {
		return int64(u) - 1<<bits, nil
	}
	return int64(u), nil
}

func isPlainInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return s != "" && strings.Trim(s, "0123456789") == ""
}

func parseBool(text string) (bool, error) {
	s := strings.TrimSpace(text)
	switch strings.ToLower(s) {
	case "true", "yes", "y":
		return true, nil
	case "false", "no", "n":
		return false, nil
	}
	return strconv.ParseBool(s)
}

func parseTime(text string, d *Descriptor, c *culture, exact bool) (time.Time, error) {
	style := d.DateStyle.orDefault()
	s := text
	if style.has(DateAllowWhite) {
		s = strings.TrimSpace(s)
	}
	loc := time.UTC
	if style.has(DateAssumeLocal) {
		loc = time.Local
	}
	adjust := func(t time.Time) time.Time {
		if style.has(DateAdjustToUTC) {
			return t.UTC()
		}
		return t
	}

	if exact && d.Format != "" {
		t, err := time.ParseInLocation(d.Format, s, loc)
		if err == nil {
			return adjust(t), nil
		}
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return adjust(t), nil
		}
	}
	for _, date := range numericDateLayouts[c.order] {
		for _, sep := range []string{"/", "-", "."} {
			layout := strings.ReplaceAll(date, "/", sep)
			for _, suffix := range timeSuffixes {
				if t, err := time.ParseInLocation(layout+suffix, s, loc); err == nil {
					return adjust(t), nil
				}
			}
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a date in culture %s", text, c.tag)
}

// formatValue renders v, which has the value type of d's kind, with d's
// output format under culture c.
func formatValue(d *Descriptor, v any, c *culture) (string, error) {
	switch d.Kind {
	case KindString:
		return v.(string), nil
	case KindInt:
		return formatInt(v.(int64), d.bits, d.Format, c)
	case KindUint:
		return formatUint(v.(uint64), d.Format, c)
	case KindFloat:
		return formatFloat(v.(float64), d.bits, d.Format, c)
	case KindDecimal:
		return formatDecimal(v.(*apd.Decimal), d.Format, c)
	case KindBool:
		return strconv.FormatBool(v.(bool)), nil
	case KindTime:
		layout := d.Format
		if layout == "" || layout == "G" {
			layout = time.RFC3339Nano
		}
		return v.(time.Time).Format(layout), nil
	case KindDuration:
		return v.(time.Duration).String(), nil
	case KindText:
		b, err := v.(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	return "", fmt.Errorf("csvbind: unknown kind %v", d.Kind)
}

// numericFormat splits a format such as "N2" into its verb and precision.
// prec is -1 when no precision was given.
func numericFormat(format string) (verb byte, prec int, err error) {
	if format == "" {
		return 'G', -1, nil
	}
	verb, prec = format[0], -1
	if len(format) > 1 {
		prec, err = strconv.Atoi(format[1:])
		if err != nil || prec < 0 || prec > 99 {
			return 0, 0, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
		}
	}
	return verb, prec, nil
}

func isHexFormat(format string) bool {
	return format != "" && (format[0] == 'X' || format[0] == 'x')
}

func precOr(prec, def int) int {
	if prec < 0 {
		return def
	}
	return prec
}

func formatInt(v int64, bits int, format string, c *culture) (string, error) {
	verb, prec, err := numericFormat(format)
	if err != nil {
		return "", err
	}
	switch verb {
	case 'G', 'g':
		return strconv.FormatInt(v, 10), nil
	case 'D', 'd':
		digits := strconv.FormatUint(absInt(v), 10)
		if pad := prec - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}
		if v < 0 {
			digits = "-" + digits
		}
		return digits, nil
	case 'X', 'x':
		u := uint64(v)
		if bits < 64 {
			u &= 1<<bits - 1
		}
		return hexDigits(u, verb, prec), nil
	}
	return formatNumber(v, float64(v), verb, prec, format, c)
}

func formatUint(v uint64, format string, c *culture) (string, error) {
	verb, prec, err := numericFormat(format)
	if err != nil {
		return "", err
	}
	switch verb {
	case 'G', 'g':
		return strconv.FormatUint(v, 10), nil
	case 'D', 'd':
		digits := strconv.FormatUint(v, 10)
		if pad := prec - len(digits); pad > 0 {
			digits = strings.Repeat("0", pad) + digits
		}
		return digits, nil
	case 'X', 'x':
		return hexDigits(v, verb, prec), nil
	}
	return formatNumber(v, float64(v), verb, prec, format, c)
}

func formatFloat(v float64, bits int, format string, c *culture) (string, error) {
	verb, prec, err := numericFormat(format)
	if err != nil {
		return "", err
	}
	switch verb {
	case 'G', 'g', 'R', 'r':
		return c.localize(strconv.FormatFloat(v, 'g', -1, bits)), nil
	case 'D', 'd', 'X', 'x':
		return "", fmt.Errorf("%w: %q for a float", ErrUnsupportedFormat, format)
	}
	return formatNumber(v, v, verb, prec, format, c)
}

// formatNumber handles the verbs shared by every numeric kind. exact is the
// value handed to the x/text formatters; f feeds strconv.
func formatNumber(exact any, f float64, verb byte, prec int, format string, c *culture) (string, error) {
	switch verb {
	case 'F', 'f':
		return c.localize(strconv.FormatFloat(f, 'f', precOr(prec, 2), 64)), nil
	case 'E', 'e':
		return c.localize(strconv.FormatFloat(f, verb, precOr(prec, 6), 64)), nil
	case 'N', 'n':
		return c.printer.Sprint(number.Decimal(exact, number.Scale(precOr(prec, 2)))), nil
	case 'P', 'p':
		return c.printer.Sprint(number.Percent(exact, number.Scale(precOr(prec, 2)))), nil
	case 'C', 'c':
		unit, ok := c.unit()
		if !ok {
			return "", fmt.Errorf("%w: culture %s has no currency", ErrUnsupportedFormat, c.tag)
		}
		return c.printer.Sprint(currency.Symbol(unit.Amount(exact))), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

func formatDecimal(v *apd.Decimal, format string, c *culture) (string, error) {
	verb, prec, err := numericFormat(format)
	if err != nil {
		return "", err
	}
	switch verb {
	case 'G', 'g':
		return c.localize(v.Text('f')), nil
	case 'E', 'e':
		return c.localize(v.Text(verb)), nil
	case 'F', 'f', 'N', 'n':
		var q apd.Decimal
		if _, err := decimalContext.Quantize(&q, v, int32(-precOr(prec, 2))); err != nil {
			return "", err
		}
		if verb == 'N' || verb == 'n' {
			return c.groupDigits(q.Text('f')), nil
		}
		return c.localize(q.Text('f')), nil
	case 'C', 'c', 'P', 'p':
		f, err := v.Float64()
		if err != nil {
			return "", err
		}
		return formatNumber(f, f, verb, prec, format, c)
	}
	return "", fmt.Errorf("%w: %q for a decimal", ErrUnsupportedFormat, format)
}

func hexDigits(u uint64, verb byte, prec int) string {
	s := strconv.FormatUint(u, 16)
	if verb == 'X' {
		s = strings.ToUpper(s)
	}
	if pad := prec - len(s); pad > 0 {
		s = strings.Repeat("0", pad) + s
	}
	return s
}

func absInt(v int64) uint64 {
	if v < 0 {
		return uint64(-(v + 1)) + 1
	}
	return uint64(v)
}
