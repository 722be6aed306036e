package csvbind

import (
	"slices"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type dateOrder int

const (
	orderDMY dateOrder = iota
	orderMDY
	orderYMD
)

// culture holds the conventions of one language tag.
type culture struct {
	tag      language.Tag
	printer  *message.Printer
	decimal  string
	group    string
	currency string
	order    dateOrder
}

var cultures sync.Map // tag string -> *culture

var (
	mdyRegions   = []string{"US", "PH", "FM", "MH", "PW", "GU", "AS", "MP", "UM", "VI", "PR"}
	ymdLanguages = []string{"zh", "ja", "ko", "hu", "lt", "mn", "eu", "si"}
)

// cultureFor returns the cached conventions for tag.
func cultureFor(tag language.Tag) *culture {
	key := tag.String()
	if c, ok := cultures.Load(key); ok {
		return c.(*culture)
	}
	c := newCulture(tag)
	actual, _ := cultures.LoadOrStore(key, c)
	return actual.(*culture)
}

func newCulture(tag language.Tag) *culture {
	c := &culture{
		tag:     tag,
		printer: message.NewPrinter(tag),
		decimal: ".",
		group:   ",",
	}

	// Render a sample number and read the separators back out of it.
	var seps []string
	var run strings.Builder
	for _, r := range c.printer.Sprint(number.Decimal(1234567.5)) {
		if unicode.IsDigit(r) {
			if run.Len() > 0 {
				seps = append(seps, run.String())
				run.Reset()
			}
			continue
		}
		run.WriteRune(r)
	}
	switch len(seps) {
	case 0:
	case 1:
		c.decimal, c.group = seps[0], ""
	default:
		c.decimal, c.group = seps[len(seps)-1], seps[0]
	}

	if unit, ok := c.unit(); ok {
		c.currency = c.printer.Sprint(currency.Symbol(unit))
	}

	base, _ := tag.Base()
	region, _ := tag.Region()
	switch {
	case slices.Contains(ymdLanguages, base.String()):
		c.order = orderYMD
	case slices.Contains(mdyRegions, region.String()):
		c.order = orderMDY
	}
	return c
}

// unit returns the currency of the culture's region.
func (c *culture) unit() (currency.Unit, bool) {
	u, conf := currency.FromTag(c.tag)
	return u, conf != language.No
}

// normalizeNumber strips the decorations style allows from s and returns a
// plain number in Go syntax (optional '-', digits, '.', exponent). hex
// reports that the digits are hexadecimal.
func (c *culture) normalizeNumber(s string, style NumberStyle) (out string, hex bool, ok bool) {
	style = style.orDefault()

	if style.has(AllowLeadingWhite) {
		s = strings.TrimLeftFunc(s, unicode.IsSpace)
	}
	if style.has(AllowTrailingWhite) {
		s = strings.TrimRightFunc(s, unicode.IsSpace)
	}
	if s == "" {
		return "", false, false
	}

	if style.has(AllowHexSpecifier) {
		if len(s) > 2 && (s[:2] == "0x" || s[:2] == "0X") {
			s = s[2:]
		}
		for _, r := range s {
			if !unicode.Is(unicode.ASCII_Hex_Digit, r) {
				return "", false, false
			}
		}
		return s, true, true
	}

	if style.has(AllowCurrencySymbol) {
		if c.currency != "" {
			s = strings.Replace(s, c.currency, "", 1)
		}
		s = strings.Map(func(r rune) rune {
			if unicode.Is(unicode.Sc, r) {
				return -1
			}
			return r
		}, s)
		s = strings.TrimFunc(s, unicode.IsSpace)
	}

	negative := false
	if style.has(AllowParentheses) && len(s) > 2 && s[0] == '(' && s[len(s)-1] == ')' {
		negative = true
		s = strings.TrimFunc(s[1:len(s)-1], unicode.IsSpace)
	}
	if style.has(AllowLeadingSign) && s != "" && (s[0] == '-' || s[0] == '+') {
		negative = negative != (s[0] == '-')
		s = s[1:]
	} else if style.has(AllowTrailingSign) && s != "" && (s[len(s)-1] == '-' || s[len(s)-1] == '+') {
		negative = negative != (s[len(s)-1] == '-')
		s = s[:len(s)-1]
	}

	if style.has(AllowThousands) && c.group != "" {
		s = strings.ReplaceAll(s, c.group, "")
		if strings.TrimSpace(c.group) == "" {
			// Locales grouping with (narrow) no-break spaces also see plain spaces.
			s = strings.ReplaceAll(s, " ", "")
		}
	}
	if c.decimal != "." {
		if strings.Contains(s, ".") {
			return "", false, false
		}
		s = strings.Replace(s, c.decimal, ".", 1)
	}

	var b strings.Builder
	if negative {
		b.WriteByte('-')
	}
	digits, point, exp := 0, false, false
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch >= '0' && ch <= '9':
			digits++
		case ch == '.' && style.has(AllowDecimalPoint) && !point && !exp:
			point = true
		case (ch == 'e' || ch == 'E') && style.has(AllowExponent) && digits > 0 && !exp:
			exp = true
			if i+1 < len(s) && (s[i+1] == '-' || s[i+1] == '+') {
				b.WriteByte(ch)
				i++
				ch = s[i]
			}
		default:
			return "", false, false
		}
		b.WriteByte(ch)
	}
	if digits == 0 {
		return "", false, false
	}
	return b.String(), false, true
}

// localize rewrites a number produced by strconv to use the culture's decimal separator.
func (c *culture) localize(s string) string {
	if c.decimal == "." {
		return s
	}
	return strings.Replace(s, ".", c.decimal, 1)
}

// groupDigits inserts the culture's group separator into the integer part of
// a plain number such as "-1234567.50".
func (c *culture) groupDigits(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(c.group)
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteString(c.decimal)
		b.WriteString(frac)
	}
	return b.String()
}

