package csvbind

import (
	"fmt"
	"strings"
)

// NumberStyle selects which decorations are accepted when parsing a number.
// The zero value means NumberAny.
type NumberStyle uint16

const (
	// AllowLeadingWhite skips white space before the number.
	AllowLeadingWhite NumberStyle = 1 << iota
	// AllowTrailingWhite skips white space after the number.
	AllowTrailingWhite
	// AllowLeadingSign accepts a '+' or '-' prefix.
	AllowLeadingSign
	// AllowTrailingSign accepts a '+' or '-' suffix.
	AllowTrailingSign
	// AllowParentheses reads "(12)" as -12.
	AllowParentheses
	// AllowDecimalPoint accepts the culture's decimal separator.
	AllowDecimalPoint
	// AllowThousands accepts the culture's group separator.
	AllowThousands
	// AllowExponent accepts an "e" or "E" exponent.
	AllowExponent
	// AllowCurrencySymbol drops the culture's currency symbol and any other currency sign.
	AllowCurrencySymbol
	// AllowHexSpecifier reads the digits as hexadecimal, with an optional "0x" prefix.
	AllowHexSpecifier
)

const (
	// NumberNone accepts plain digits only. It differs from the zero value, which means NumberAny.
	NumberNone NumberStyle = AllowHexSpecifier << 1
	// NumberInteger accepts white space and a leading sign.
	NumberInteger = AllowLeadingWhite | AllowTrailingWhite | AllowLeadingSign
	// NumberNumber adds a trailing sign, a decimal point and group separators.
	NumberNumber = NumberInteger | AllowTrailingSign | AllowDecimalPoint | AllowThousands
	// NumberFloat accepts a decimal point and an exponent.
	NumberFloat = NumberInteger | AllowDecimalPoint | AllowExponent
	// NumberCurrency is NumberNumber plus parentheses and currency symbols.
	NumberCurrency = NumberNumber | AllowParentheses | AllowCurrencySymbol
	// NumberAny accepts every decoration except hex.
	NumberAny = NumberCurrency | AllowExponent
	// NumberHex accepts hex digits surrounded by white space.
	NumberHex = AllowLeadingWhite | AllowTrailingWhite | AllowHexSpecifier
)

func (s NumberStyle) has(flag NumberStyle) bool {
	return s&flag != 0
}

func (s NumberStyle) orDefault() NumberStyle {
	if s == 0 {
		return NumberAny
	}
	return s
}

// DateStyle adjusts how times without an explicit zone are read. The zero
// value means DateDefault.
type DateStyle uint8

const (
	// DateAllowWhite trims white space around the value.
	DateAllowWhite DateStyle = 1 << iota
	// DateAssumeLocal reads zoneless values in time.Local instead of UTC.
	DateAssumeLocal
	// DateAdjustToUTC converts every parsed time to UTC.
	DateAdjustToUTC

	// DateDefault trims white space and reads zoneless values as UTC.
	DateDefault = DateAllowWhite
)

func (s DateStyle) has(flag DateStyle) bool {
	return s&flag != 0
}

func (s DateStyle) orDefault() DateStyle {
	if s == 0 {
		return DateDefault
	}
	return s
}

var numberStyleNames = map[string]NumberStyle{
	"any":             NumberAny,
	"none":            NumberNone,
	"integer":         NumberInteger,
	"number":          NumberNumber,
	"float":           NumberFloat,
	"currency":        NumberCurrency,
	"hex":             NumberHex,
	"leading_white":   AllowLeadingWhite,
	"trailing_white":  AllowTrailingWhite,
	"leading_sign":    AllowLeadingSign,
	"trailing_sign":   AllowTrailingSign,
	"parentheses":     AllowParentheses,
	"decimal_point":   AllowDecimalPoint,
	"thousands":       AllowThousands,
	"exponent":        AllowExponent,
	"currency_symbol": AllowCurrencySymbol,
	"hex_specifier":   AllowHexSpecifier,
}

// UnmarshalText accepts a style name ("any", "integer", "hex", ...) or
// flag names joined with '|' ("leading_sign|decimal_point").
func (s *NumberStyle) UnmarshalText(text []byte) error {
	var out NumberStyle
	for _, name := range strings.Split(string(text), "|") {
		v, ok := numberStyleNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return fmt.Errorf("csvbind: unknown number style %q", name)
		}
		out |= v
	}
	*s = out
	return nil
}

var dateStyleNames = map[string]DateStyle{
	"default":       DateDefault,
	"allow_white":   DateAllowWhite,
	"assume_local":  DateAssumeLocal,
	"adjust_to_utc": DateAdjustToUTC,
}

// UnmarshalText accepts "default" or flag names joined with '|'.
func (s *DateStyle) UnmarshalText(text []byte) error {
	var out DateStyle
	for _, name := range strings.Split(string(text), "|") {
		v, ok := dateStyleNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return fmt.Errorf("csvbind: unknown date style %q", name)
		}
		out |= v
	}
	*s = out
	return nil
}
