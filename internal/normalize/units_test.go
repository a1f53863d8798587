package normalize

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseRate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		amount   string
		wantUnit Unit
		wantRate float64
		wantOK   bool
	}{
		{"per million tokens", "Input tokens, $ per million tokens", "2.50", UnitPer1MTokens, 2.50, true},
		{"per 1M shorthand", "output tokens / 1M", "10", UnitPer1MTokens, 10, true},
		{"per thousand tokens", "price per thousand tokens", "0.002", UnitPer1MTokens, 2, true},
		{"per 1k shorthand", "tokens / 1k", "0.0005", UnitPer1MTokens, 0.5, true},
		{"bare per token", "cost per input token", "0.0000025", UnitPer1MTokens, 2.5, true},
		{"per image", "Output image", "0.04", UnitPerImage, 0.04, true},
		{"per megapixel", "price per megapixel", "0.0025", UnitPerMegapixel, 0.0025, true},
		{"mp shorthand", "$ / MP generated", "0.003", UnitPerMegapixel, 0.003, true},
		{"per step", "denoising step", "0.0001", UnitPerStep, 0.0001, true},
		{"per character", "characters of speech, billed per character", "0.00003", UnitPerCharacter, 0.00003, true},
		{"per minute", "audio transcription per minute", "0.006", UnitPerMinute, 0.006, true},
		{"per second", "video output per second", "0.10", UnitPerSecond, 0.10, true},
		{"per generation", "each video generation", "1.50", UnitPerGeneration, 1.50, true},
		{"unrecognized unit", "per api call", "0.01", "", 0, false},
		{"empty text", "", "0.01", "", 0, false},
		{"zero amount", "per million tokens", "0", "", 0, false},
		{"negative amount", "per image", "-1", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, rate, ok := ParseRate(tt.text, dec(tt.amount))
			if ok != tt.wantOK {
				t.Fatalf("ParseRate() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if unit != tt.wantUnit {
				t.Errorf("unit = %q, want %q", unit, tt.wantUnit)
			}
			if rate != tt.wantRate {
				t.Errorf("rate = %v, want %v", rate, tt.wantRate)
			}
		})
	}
}

func TestParseDollars(t *testing.T) {
	tests := []struct {
		s      string
		want   string
		wantOK bool
	}{
		{"$0.25", "0.25", true},
		{"$ 3.00 per run", "3", true},
		{"$1,200.50", "1200.5", true},
		{"free", "", false},
		{"—", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.s, func(t *testing.T) {
			got, ok := ParseDollars(tt.s)
			if ok != tt.wantOK {
				t.Fatalf("ParseDollars(%q) ok = %v, want %v", tt.s, ok, tt.wantOK)
			}
			if ok && !got.Equal(dec(tt.want)) {
				t.Errorf("ParseDollars(%q) = %s, want %s", tt.s, got, tt.want)
			}
		})
	}
}

func TestPerTokenToPer1M(t *testing.T) {
	tests := []struct {
		s    string
		want float64
	}{
		{"0.0000025", 2.5},
		{"0.000015", 15},
		{"0", 0},
		{"-0.001", 0},
		{"", 0},
		{"not-a-number", 0},
	}
	for _, tt := range tests {
		if got := PerTokenToPer1M(tt.s); got != tt.want {
			t.Errorf("PerTokenToPer1M(%q) = %v, want %v", tt.s, got, tt.want)
		}
	}
}
