package catalog

import (
	"math"
	"testing"
)

func TestPrimaryPriceFallbackOrder(t *testing.T) {
	tests := []struct {
		name    string
		pricing Pricing
		want    float64
	}{
		{"text prompt rate", TextPrices(0.25, 0.38), 0.25},
		{"text missing prompt", Pricing{Kind: PricingText, Text: &TextPricing{CompletionPer1M: 2}}, math.Inf(1)},
		{"image per-image", Pricing{Kind: PricingImage, Image: &ImagePricing{PerImage: 0.04, PerMegapixel: 0.01}}, 0.04},
		{"image per-megapixel fallback", Pricing{Kind: PricingImage, Image: &ImagePricing{PerMegapixel: 0.01, PerStep: 0.002}}, 0.01},
		{"image per-step fallback", Pricing{Kind: PricingImage, Image: &ImagePricing{PerStep: 0.002}}, 0.002},
		{"video per-second", Pricing{Kind: PricingVideo, Video: &VideoPricing{PerSecond: 0.1, PerGeneration: 2}}, 0.1},
		{"video per-generation fallback", Pricing{Kind: PricingVideo, Video: &VideoPricing{PerGeneration: 2}}, 2},
		{"audio per-minute", Pricing{Kind: PricingAudio, Audio: &AudioPricing{PerMinute: 0.006, PerSecond: 0.001}}, 0.006},
		{"audio per-character fallback", Pricing{Kind: PricingAudio, Audio: &AudioPricing{PerCharacter: 0.00003, PerSecond: 0.001}}, 0.00003},
		{"audio per-second fallback", Pricing{Kind: PricingAudio, Audio: &AudioPricing{PerSecond: 0.001}}, 0.001},
		{"embedding rate", EmbeddingPrice(0.02), 0.02},
		{"nil variant", Pricing{Kind: PricingText}, math.Inf(1)},
		{"zero rates", TextPrices(0, 0), math.Inf(1)},
		{"negative rate skipped", Pricing{Kind: PricingImage, Image: &ImagePricing{PerImage: -1, PerMegapixel: 0.5}}, 0.5},
		{"nan rate skipped", Pricing{Kind: PricingText, Text: &TextPricing{PromptPer1M: math.NaN()}}, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Pricing: tt.pricing}
			got := PrimaryPrice(e)
			if got != tt.want && !(math.IsInf(got, 1) && math.IsInf(tt.want, 1)) {
				t.Errorf("PrimaryPrice() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrimaryPriceNeverNaNOrNegative(t *testing.T) {
	pricings := []Pricing{
		{},
		{Kind: PricingText, Text: &TextPricing{PromptPer1M: math.NaN(), CompletionPer1M: -3}},
		{Kind: PricingAudio, Audio: &AudioPricing{PerMinute: -0.5}},
		{Kind: PricingVideo, Video: &VideoPricing{PerSecond: math.Inf(1)}},
		TextPrices(0.5, 1.5),
	}
	for _, p := range pricings {
		got := PrimaryPrice(&Entry{Pricing: p})
		if math.IsNaN(got) || got < 0 {
			t.Errorf("PrimaryPrice(%+v) = %v, want finite non-negative or +Inf", p, got)
		}
	}
}

func TestHasUsablePrice(t *testing.T) {
	tests := []struct {
		name    string
		pricing Pricing
		want    bool
	}{
		{"usable text", TextPrices(0.25, 0.38), true},
		{"completion only", Pricing{Kind: PricingText, Text: &TextPricing{CompletionPer1M: 1}}, true},
		{"all zero", TextPrices(0, 0), false},
		{"empty union", Pricing{}, false},
		{"nil variant", Pricing{Kind: PricingImage}, false},
		{"negative only", Pricing{Kind: PricingEmbedding, Embedding: &EmbeddingPricing{Per1M: -1}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasUsablePrice(tt.pricing); got != tt.want {
				t.Errorf("HasUsablePrice() = %v, want %v", got, tt.want)
			}
		})
	}
}
