// Package format renders addresses, amounts and currency values for display, and
// converts between human decimal strings and token base units.
package format

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var ErrMalformedNumber = errors.New("malformed number")

const DefaultCurrency = "USD"

// TruncateAddress shortens a hex address to 0x1234...abcd. Strings of 10 characters or
// fewer have nothing to hide and are returned as they are.
func TruncateAddress(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

// FormatNumber rounds half away from zero to decimals places and groups thousands with
// commas. decimals <= 0 prints no fraction.
func FormatNumber(v decimal.Decimal, decimals int32) string {
	if decimals < 0 {
		decimals = 0
	}
	s := v.StringFixed(decimals)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if sign != "" && strings.Trim(whole+frac, "0") == "" {
		sign = ""
	}

	out := sign + groupThousands(whole)
	if hasFrac {
		out += "." + frac
	}
	return out
}

func FormatNumberString(s string, decimals int32) (string, error) {
	v, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return "", ErrMalformedNumber
	}
	return FormatNumber(v, decimals), nil
}

// FormatCurrency prefixes the formatted amount with a currency code, USD when empty.
func FormatCurrency(amount decimal.Decimal, currency string, decimals int32) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	return currency + " " + FormatNumber(amount, decimals)
}

// ParseDisplay reads back a value produced by FormatNumber or FormatCurrency.
func ParseDisplay(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeftFunc(s, unicode.IsLetter)
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, ErrMalformedNumber
	}
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrMalformedNumber
	}
	return v, nil
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
