package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Unit is a normalized per-unit billing rate.
type Unit string

const (
	UnitPer1MTokens   Unit = "per_1m_tokens"
	UnitPerImage      Unit = "per_image"
	UnitPerMegapixel  Unit = "per_megapixel"
	UnitPerStep       Unit = "per_step"
	UnitPerSecond     Unit = "per_second"
	UnitPerMinute     Unit = "per_minute"
	UnitPerCharacter  Unit = "per_character"
	UnitPerGeneration Unit = "per_generation"
)

var (
	dollarRe   = regexp.MustCompile(`\$\s*([\d,]*\.?\d+)`)
	million    = decimal.NewFromInt(1_000_000)
	thousand   = decimal.NewFromInt(1_000)
	millionRe  = regexp.MustCompile(`per\s+million|/\s*1m\b|per\s+1m\b|\b1m\s+tokens`)
	thousandRe = regexp.MustCompile(`per\s+thousand|/\s*1k\b|per\s+1k\b|\b1k\s+tokens`)
	mpRe       = regexp.MustCompile(`\bmp\b`)
)

// ParseDollars extracts the first dollar amount from s. Exact decimal
// arithmetic is used throughout unit scaling so that e.g. a per-token rate of
// $0.0000025 scales to exactly 2.5 per 1M.
func ParseDollars(s string) (decimal.Decimal, bool) {
	m := dollarRe.FindStringSubmatch(s)
	if len(m) < 2 {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseRate interprets a price amount against its descriptive unit text
// (a combined title/metric/description string) and normalizes it to a fixed
// per-unit rate. Ambiguous or unrecognized unit text yields no rate rather
// than a guess.
func ParseRate(text string, amount decimal.Decimal) (Unit, float64, bool) {
	if !amount.IsPositive() {
		return "", 0, false
	}
	t := strings.ToLower(text)

	switch {
	case strings.Contains(t, "token"):
		switch {
		case millionRe.MatchString(t):
			return UnitPer1MTokens, amount.InexactFloat64(), true
		case thousandRe.MatchString(t):
			return UnitPer1MTokens, amount.Mul(thousand).InexactFloat64(), true
		default:
			// Bare per-token rate.
			return UnitPer1MTokens, amount.Mul(million).InexactFloat64(), true
		}
	case strings.Contains(t, "megapixel") || mpRe.MatchString(t):
		return UnitPerMegapixel, amount.InexactFloat64(), true
	case strings.Contains(t, "image"):
		return UnitPerImage, amount.InexactFloat64(), true
	case strings.Contains(t, "step"):
		return UnitPerStep, amount.InexactFloat64(), true
	case strings.Contains(t, "character"):
		return UnitPerCharacter, amount.InexactFloat64(), true
	case strings.Contains(t, "minute"):
		return UnitPerMinute, amount.InexactFloat64(), true
	case strings.Contains(t, "second"):
		return UnitPerSecond, amount.InexactFloat64(), true
	case strings.Contains(t, "video") || strings.Contains(t, "generation") || strings.Contains(t, "run"):
		return UnitPerGeneration, amount.InexactFloat64(), true
	default:
		return "", 0, false
	}
}

// PerTokenToPer1M scales a per-token decimal string (the OpenRouter pricing
// shape) to a per-1M-token float rate. Returns 0 when s is empty, malformed,
// or non-positive.
func PerTokenToPer1M(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return 0
	}
	return d.Mul(million).InexactFloat64()
}
