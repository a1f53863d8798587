// Package normalize converts provider-shaped records into canonical form:
// modality classification, provider/family extraction, and pricing-unit
// normalization.
package normalize

import (
	"strings"

	"github.com/everstacklabs/modelscout/internal/catalog"
)

// ModalitySets lower-cases, trims, and deduplicates a raw modality list,
// preserving first-seen order.
func ModalitySets(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	var out []string
	for _, m := range raw {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// ClassifyModality maps normalized input/output modality sets to the primary
// modality. Pure and total: every combination maps to exactly one modality.
// Rules are evaluated in a fixed priority order; the first match wins.
func ClassifyModality(inputs, outputs []string) catalog.Modality {
	in := ModalitySets(inputs)
	out := ModalitySets(outputs)

	if len(in) > 1 && len(out) > 1 {
		return catalog.ModalityMultimodal
	}
	if contains(out, "image") {
		return catalog.ModalityImage
	}
	if contains(out, "video") {
		return catalog.ModalityVideo
	}
	if contains(out, "music") || contains(out, "sound") {
		return catalog.ModalityAudioGeneration
	}
	if contains(out, "audio") || contains(out, "speech") {
		if audioOnly(in) {
			return catalog.ModalityAudioSTT
		}
		return catalog.ModalityAudioTTS
	}
	if contains(out, "embedding") || contains(out, "vector") {
		return catalog.ModalityEmbedding
	}
	if audioOnly(in) && textOnly(out) {
		return catalog.ModalityAudioSTT
	}
	if contains(in, "image") && contains(out, "text") {
		return catalog.ModalityVision
	}
	if distinctCount(in, out) > 2 {
		return catalog.ModalityMultimodal
	}
	return catalog.ModalityText
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func audioOnly(set []string) bool {
	if len(set) == 0 {
		return false
	}
	for _, s := range set {
		if s != "audio" && s != "speech" {
			return false
		}
	}
	return true
}

func textOnly(set []string) bool {
	return len(set) == 1 && set[0] == "text"
}

func distinctCount(in, out []string) int {
	seen := make(map[string]bool, len(in)+len(out))
	for _, s := range in {
		seen[s] = true
	}
	for _, s := range out {
		seen[s] = true
	}
	return len(seen)
}
