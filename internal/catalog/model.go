// Package catalog defines the canonical model entry every source is
// normalized into, the pricing union, and the merge/dedup engine.
package catalog

import "fmt"

// Modality is the primary capability class of a model.
type Modality string

const (
	ModalityText            Modality = "text"
	ModalityImage           Modality = "image"
	ModalityVideo           Modality = "video"
	ModalityAudioTTS        Modality = "audio-tts"
	ModalityAudioSTT        Modality = "audio-stt"
	ModalityAudioGeneration Modality = "audio-generation"
	ModalityVision          Modality = "vision"
	ModalityEmbedding       Modality = "embedding"
	ModalityMultimodal      Modality = "multimodal"
)

// AllModalities returns every recognized modality value.
func AllModalities() []Modality {
	return []Modality{
		ModalityText, ModalityImage, ModalityVideo,
		ModalityAudioTTS, ModalityAudioSTT, ModalityAudioGeneration,
		ModalityVision, ModalityEmbedding, ModalityMultimodal,
	}
}

// Entry is the canonical model entry. ID is the composite
// "source::provider/slug" key, globally unique; the same logical model seen
// by two sources yields two distinct entries.
type Entry struct {
	ID               string   `json:"id"`
	Source           string   `json:"source"`
	Name             string   `json:"name"`
	Modality         Modality `json:"modality"`
	InputModalities  []string `json:"inputModalities"`
	OutputModalities []string `json:"outputModalities"`
	Pricing          Pricing  `json:"pricing"`
	ContextLength    int      `json:"contextLength,omitempty"`
	MaxResolution    string   `json:"maxResolution,omitempty"`
	MaxDuration      float64  `json:"maxDuration,omitempty"`
	Streaming        *bool    `json:"streaming,omitempty"`
	Provider         string   `json:"provider"`
	Family           string   `json:"family"`
}

// CompositeID builds the canonical entry ID.
func CompositeID(source, id string) string {
	return fmt.Sprintf("%s::%s", source, id)
}

// PricingKind discriminates the pricing union.
type PricingKind string

const (
	PricingText      PricingKind = "text"
	PricingImage     PricingKind = "image"
	PricingVideo     PricingKind = "video"
	PricingAudio     PricingKind = "audio"
	PricingEmbedding PricingKind = "embedding"
)

// Pricing is a tagged union: Kind names the variant and exactly one variant
// pointer is set. Rates are USD; token rates are per 1M tokens.
type Pricing struct {
	Kind      PricingKind       `json:"kind"`
	Text      *TextPricing      `json:"text,omitempty"`
	Image     *ImagePricing     `json:"image,omitempty"`
	Video     *VideoPricing     `json:"video,omitempty"`
	Audio     *AudioPricing     `json:"audio,omitempty"`
	Embedding *EmbeddingPricing `json:"embedding,omitempty"`
}

// TextPricing is per-1M-token rates.
type TextPricing struct {
	PromptPer1M     float64 `json:"promptPer1M,omitempty"`
	CompletionPer1M float64 `json:"completionPer1M,omitempty"`
}

// ImagePricing is per-unit image generation rates.
type ImagePricing struct {
	PerImage     float64 `json:"perImage,omitempty"`
	PerMegapixel float64 `json:"perMegapixel,omitempty"`
	PerStep      float64 `json:"perStep,omitempty"`
}

// VideoPricing is per-unit video generation rates.
type VideoPricing struct {
	PerSecond     float64 `json:"perSecond,omitempty"`
	PerGeneration float64 `json:"perGeneration,omitempty"`
}

// AudioPricing is per-unit audio rates.
type AudioPricing struct {
	PerMinute    float64 `json:"perMinute,omitempty"`
	PerCharacter float64 `json:"perCharacter,omitempty"`
	PerSecond    float64 `json:"perSecond,omitempty"`
}

// EmbeddingPricing is the single per-1M-token rate.
type EmbeddingPricing struct {
	Per1M float64 `json:"per1M,omitempty"`
}

// TextPrices builds a text pricing union.
func TextPrices(prompt, completion float64) Pricing {
	return Pricing{Kind: PricingText, Text: &TextPricing{PromptPer1M: prompt, CompletionPer1M: completion}}
}

// EmbeddingPrice builds an embedding pricing union.
func EmbeddingPrice(per1M float64) Pricing {
	return Pricing{Kind: PricingEmbedding, Embedding: &EmbeddingPricing{Per1M: per1M}}
}

// Completeness counts the optional descriptive fields present on e, used to
// break merge ties. Maximum is 6.
func (e *Entry) Completeness() int {
	score := 0
	if e.ContextLength > 0 {
		score++
	}
	if e.MaxDuration > 0 {
		score++
	}
	if e.MaxResolution != "" {
		score++
	}
	if e.Streaming != nil {
		score++
	}
	if len(e.InputModalities) > 0 {
		score++
	}
	if len(e.OutputModalities) > 0 {
		score++
	}
	return score
}
