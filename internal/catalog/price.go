package catalog

import "math"

// PrimaryPrice picks one representative USD rate per pricing variant, used
// for ranking and max-price filtering. Fallback order per variant:
//
//	text      → prompt rate
//	image     → per-image, else per-megapixel, else per-step
//	video     → per-second, else per-generation
//	audio     → per-minute, else per-character, else per-second
//	embedding → the single rate
//
// When no field is present, finite, and positive the result is +Inf so the
// entry sorts last and fails any finite max-price constraint. Never NaN,
// never negative.
func PrimaryPrice(e *Entry) float64 {
	p := e.Pricing
	switch p.Kind {
	case PricingText:
		if p.Text != nil {
			return firstUsable(p.Text.PromptPer1M)
		}
	case PricingImage:
		if p.Image != nil {
			return firstUsable(p.Image.PerImage, p.Image.PerMegapixel, p.Image.PerStep)
		}
	case PricingVideo:
		if p.Video != nil {
			return firstUsable(p.Video.PerSecond, p.Video.PerGeneration)
		}
	case PricingAudio:
		if p.Audio != nil {
			return firstUsable(p.Audio.PerMinute, p.Audio.PerCharacter, p.Audio.PerSecond)
		}
	case PricingEmbedding:
		if p.Embedding != nil {
			return firstUsable(p.Embedding.Per1M)
		}
	}
	return math.Inf(1)
}

// HasUsablePrice reports whether any rate on any variant is finite and
// positive. Entries without a usable price are dropped during normalization.
func HasUsablePrice(p Pricing) bool {
	var rates []float64
	switch p.Kind {
	case PricingText:
		if p.Text != nil {
			rates = []float64{p.Text.PromptPer1M, p.Text.CompletionPer1M}
		}
	case PricingImage:
		if p.Image != nil {
			rates = []float64{p.Image.PerImage, p.Image.PerMegapixel, p.Image.PerStep}
		}
	case PricingVideo:
		if p.Video != nil {
			rates = []float64{p.Video.PerSecond, p.Video.PerGeneration}
		}
	case PricingAudio:
		if p.Audio != nil {
			rates = []float64{p.Audio.PerMinute, p.Audio.PerCharacter, p.Audio.PerSecond}
		}
	case PricingEmbedding:
		if p.Embedding != nil {
			rates = []float64{p.Embedding.Per1M}
		}
	}
	for _, r := range rates {
		if usable(r) {
			return true
		}
	}
	return false
}

func firstUsable(rates ...float64) float64 {
	for _, r := range rates {
		if usable(r) {
			return r
		}
	}
	return math.Inf(1)
}

func usable(r float64) bool {
	return r > 0 && !math.IsInf(r, 1) && !math.IsNaN(r)
}
