package recommend

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/everstacklabs/modelscout/internal/catalog"
	"github.com/everstacklabs/modelscout/internal/errs"
)

// modalityHints maps task-description patterns to the modality they imply,
// checked in order; the first match wins.
var modalityHints = []struct {
	re       *regexp.Regexp
	modality catalog.Modality
}{
	{regexp.MustCompile(`(?i)\b(video|animate|animation|clip|footage)\b`), catalog.ModalityVideo},
	{regexp.MustCompile(`(?i)\b(transcri\w*|speech[ -]to[ -]text|dictat\w*|subtitle)\b`), catalog.ModalityAudioSTT},
	{regexp.MustCompile(`(?i)\b(text[ -]to[ -]speech|tts|voice ?over|narrat\w*|read (it |this )?aloud)\b`), catalog.ModalityAudioTTS},
	{regexp.MustCompile(`(?i)\b(music|song|melody|soundtrack|sound effect)\b`), catalog.ModalityAudioGeneration},
	{regexp.MustCompile(`(?i)\b(embed\w*|semantic search|similarity|vector|retrieval)\b`), catalog.ModalityEmbedding},
	{regexp.MustCompile(`(?i)\b(image|picture|photo|illustration|logo|artwork|draw|render)\b`), catalog.ModalityImage},
	{regexp.MustCompile(`(?i)\b(describe|caption|ocr|screenshot|analy[sz]e (an? )?(image|photo|picture))\b`), catalog.ModalityVision},
}

// detectModality guesses the modality a task needs from its wording,
// defaulting to text.
func detectModality(task string) catalog.Modality {
	for _, h := range modalityHints {
		if h.re.MatchString(task) {
			return h.modality
		}
	}
	return catalog.ModalityText
}

// credentialHints names the env var that unlocks each source, for guidance
// when a modality has no coverage.
var credentialHints = map[string]string{
	"openrouter":  "OPENROUTER_API_KEY",
	"replicate":   "REPLICATE_API_TOKEN",
	"huggingface": "HF_TOKEN",
}

// Fallback produces a deterministic recommendation without the LLM: filter
// the catalog to the detected (or forced) modality, sort by primary price,
// and pick cheapest / middle / highest-capability.
func Fallback(task string, cons Constraints, entries []catalog.Entry) (*Recommendation, error) {
	modality := cons.Modality
	if modality == "" {
		modality = detectModality(task)
	}

	var pool []catalog.Entry
	for _, e := range entries {
		if matchesModality(&e, modality) {
			pool = append(pool, e)
		}
	}
	if len(pool) == 0 {
		return nil, errs.NoModels(
			fmt.Sprintf("no %s models in the catalog", modality),
			missingSourceGuidance(entries))
	}

	sort.SliceStable(pool, func(i, j int) bool {
		pi, pj := catalog.PrimaryPrice(&pool[i]), catalog.PrimaryPrice(&pool[j])
		if pi != pj {
			return pi < pj
		}
		return pool[i].ID < pool[j].ID
	})

	cheapest := &pool[0]
	balanced := &pool[len(pool)/2]
	best := pickBest(pool)

	rec := &Recommendation{
		Analysis: TaskAnalysis{
			Summary:   task,
			Modality:  string(modality),
			Reasoning: fmt.Sprintf("heuristic selection over %d %s models, ranked by price", len(pool), modality),
		},
		Cheapest: makePick(cheapest, "lowest primary price in its modality"),
		Balanced: makePick(balanced, "middle of the price-sorted field"),
		Best:     makePick(best, "largest context window (price breaks ties upward)"),
		Method:   MethodHeuristic,
	}
	return rec, nil
}

// pickBest maximizes context length, tie-broken by the higher price on the
// assumption that better capability costs more.
func pickBest(pool []catalog.Entry) *catalog.Entry {
	best := &pool[0]
	for i := 1; i < len(pool); i++ {
		e := &pool[i]
		if e.ContextLength > best.ContextLength {
			best = e
			continue
		}
		if e.ContextLength == best.ContextLength &&
			catalog.PrimaryPrice(e) > catalog.PrimaryPrice(best) {
			best = e
		}
	}
	return best
}

func makePick(e *catalog.Entry, reason string) Pick {
	return Pick{
		ID:             e.ID,
		Reason:         reason,
		PricingSummary: flattenPricing(e),
		EstimatedCost:  estimateCost(e),
	}
}

// estimateCost gives a rough per-typical-unit dollar figure keyed to the
// pricing variant.
func estimateCost(e *catalog.Entry) string {
	price := catalog.PrimaryPrice(e)
	switch e.Pricing.Kind {
	case catalog.PricingText:
		// A 1K-in/1K-out exchange.
		var completion float64
		if e.Pricing.Text != nil {
			completion = e.Pricing.Text.CompletionPer1M
		}
		return fmt.Sprintf("~$%s per 1K-token exchange", trimDollars((price+completion)/1000))
	case catalog.PricingImage:
		return fmt.Sprintf("~$%s per image", trimDollars(price))
	case catalog.PricingVideo:
		return fmt.Sprintf("~$%s per 10s clip", trimDollars(price*10))
	case catalog.PricingAudio:
		return fmt.Sprintf("~$%s per unit", trimDollars(price))
	case catalog.PricingEmbedding:
		return fmt.Sprintf("~$%s per 1M tokens", trimDollars(price))
	}
	return "unknown"
}

// missingSourceGuidance names the credentials whose sources contributed
// nothing to the catalog.
func missingSourceGuidance(entries []catalog.Entry) string {
	seen := map[string]bool{}
	for _, e := range entries {
		seen[e.Source] = true
	}
	var missing []string
	for _, source := range []string{"openrouter", "replicate", "huggingface"} {
		if !seen[source] {
			missing = append(missing, fmt.Sprintf("%s (%s)", source, credentialHints[source]))
		}
	}
	if len(missing) == 0 {
		return "try relaxing the constraints"
	}
	return "configuring these sources would add coverage: " + strings.Join(missing, ", ")
}
