package format

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

const EtherDecimals = 18

var (
	ErrEmptyAmount      = errors.New("amount is empty")
	ErrNegativeAmount   = errors.New("amount is negative")
	ErrTooManyDecimals  = errors.New("fractional component exceeds decimals")
	ErrAmountOverflow   = errors.New("amount does not fit in uint256")
	errInvalidPrecision = errors.New("invalid decimals")
)

// ParseUnits converts a human decimal string into base units with the given number of
// decimals. Only plain digits with an optional single point are accepted.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > 77 {
		return nil, errInvalidPrecision
	}
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, ErrEmptyAmount
	}
	if strings.HasPrefix(s, "-") {
		return nil, ErrNegativeAmount
	}
	if !plainDecimal(s) {
		return nil, fmt.Errorf("%w: %q", ErrMalformedNumber, amount)
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	s = strings.TrimSuffix(s, ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrMalformedNumber, amount)
	}
	d = d.Shift(int32(decimals))
	if !d.IsInteger() {
		return nil, ErrTooManyDecimals
	}

	v := d.BigInt()
	if _, overflow := uint256.FromBig(v); overflow {
		return nil, ErrAmountOverflow
	}
	return v, nil
}

func ParseEther(amount string) (*big.Int, error) {
	return ParseUnits(amount, EtherDecimals)
}

// FormatUnits renders base units as a decimal string. Trailing fraction zeros are
// dropped but one fraction digit is always kept, so 1e18 wei prints as "1.0".
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		v = new(big.Int)
	}
	if decimals <= 0 {
		return v.String() + ".0"
	}

	abs := new(big.Int).Abs(v)
	base := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	whole, frac := new(big.Int).QuoRem(abs, base, new(big.Int))

	fs := frac.String()
	fs = strings.Repeat("0", decimals-len(fs)) + fs
	fs = strings.TrimRight(fs, "0")
	if fs == "" {
		fs = "0"
	}

	sign := ""
	if v.Sign() < 0 {
		sign = "-"
	}
	return sign + whole.String() + "." + fs
}

func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// ToDecimal is FormatUnits for callers that keep computing on the value.
func ToDecimal(v *big.Int, decimals int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -int32(decimals))
}

func plainDecimal(s string) bool {
	digits, dots := 0, 0
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits++
		case r == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}
