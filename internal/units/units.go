// Package units converts between human-readable decimal amounts and
// smallest-unit (wei) integer representations.
//
// All arithmetic is exact: amounts are carried as *big.Int wei values and
// decimal strings, never as floats. Formatting produces the shortest exact
// decimal string, so FormatEther(ParseEther("1.0")) yields "1".
package units

import (
	"fmt"
	"math/big"
	"strings"
)

// Decimal places for the standard Ethereum denominations.
const (
	WeiDecimals    = 0
	KweiDecimals   = 3
	MweiDecimals   = 6
	GweiDecimals   = 9
	SzaboDecimals  = 12
	FinneyDecimals = 15
	EtherDecimals  = 18
)

// MaxDecimals is the largest supported decimal width.
const MaxDecimals = EtherDecimals

// Denomination names in increasing order of magnitude.
var denominations = map[string]int{
	"wei":    WeiDecimals,
	"kwei":   KweiDecimals,
	"mwei":   MweiDecimals,
	"gwei":   GweiDecimals,
	"szabo":  SzaboDecimals,
	"finney": FinneyDecimals,
	"ether":  EtherDecimals,
}

// DecimalsFor returns the decimal width for a named denomination.
func DecimalsFor(name string) (int, error) {
	d, ok := denominations[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown denomination %q", name)
	}
	return d, nil
}

// ParseUnits converts a decimal string into its smallest-unit integer
// representation with the given number of decimal places.
//
// Accepted forms are "1", "1.5", "-0.25", ".5", "1.": an optional
// leading minus, an optional integer part, and an optional fractional
// part separated by a single dot. At least one digit must be present.
//
// Returns an error for empty input, malformed digits, more than one dot,
// or fractional digits beyond the requested precision (no rounding is
// ever performed).
func ParseUnits(s string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("decimals must be in [0, %d], got %d", MaxDecimals, decimals)
	}
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}

	neg := false
	rest := s
	if rest[0] == '-' {
		neg = true
		rest = rest[1:]
	}

	intPart, fracPart, err := splitDecimal(rest)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", s, err)
	}

	if len(fracPart) > decimals {
		return nil, fmt.Errorf("parse %q: too many decimal places (max %d)", s, decimals)
	}

	// Scale: intPart * 10^decimals + fracPart padded to decimals digits.
	digits := intPart + fracPart + strings.Repeat("0", decimals-len(fracPart))
	if digits == "" {
		return nil, fmt.Errorf("parse %q: no digits", s)
	}

	n, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		// Unreachable: splitDecimal only admits ASCII digits.
		return nil, fmt.Errorf("parse %q: invalid digits", s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

// FormatUnits converts a smallest-unit integer into its shortest exact
// decimal string with the given number of decimal places.
//
// Trailing fractional zeros are trimmed and a whole amount carries no
// fractional part at all: one ether formats as "1", not "1.0".
func FormatUnits(n *big.Int, decimals int) string {
	if decimals <= 0 {
		return n.String()
	}

	abs := new(big.Int).Abs(n)
	scale := pow10(decimals)
	quo, rem := new(big.Int).QuoRem(abs, scale, new(big.Int))

	sign := ""
	if n.Sign() < 0 {
		sign = "-"
	}

	if rem.Sign() == 0 {
		return sign + quo.String()
	}

	frac := rem.String()
	// Left-pad the remainder to the full decimal width, then trim.
	frac = strings.Repeat("0", decimals-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")

	return sign + quo.String() + "." + frac
}

// ParseEther converts a decimal ether string to wei.
func ParseEther(s string) (*big.Int, error) {
	return ParseUnits(s, EtherDecimals)
}

// FormatEther converts a wei amount to a decimal ether string.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// ParseGwei converts a decimal gwei string to wei.
func ParseGwei(s string) (*big.Int, error) {
	return ParseUnits(s, GweiDecimals)
}

// FormatGwei converts a wei amount to a decimal gwei string.
// The amount need not be gwei-aligned; sub-gwei wei appear as extra
// fractional digits.
func FormatGwei(wei *big.Int) string {
	return FormatUnits(wei, GweiDecimals)
}

// splitDecimal splits an unsigned decimal literal into integer and
// fractional digit strings, validating every rune.
func splitDecimal(s string) (intPart, fracPart string, err error) {
	dot := -1
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.':
			if dot >= 0 {
				return "", "", fmt.Errorf("multiple decimal points")
			}
			dot = i
		default:
			return "", "", fmt.Errorf("invalid character %q", r)
		}
	}
	if dot < 0 {
		intPart = s
	} else {
		intPart = s[:dot]
		fracPart = s[dot+1:]
	}
	if intPart == "" && fracPart == "" {
		return "", "", fmt.Errorf("no digits")
	}
	return intPart, fracPart, nil
}

// pow10 returns 10^n as a big.Int.
func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
