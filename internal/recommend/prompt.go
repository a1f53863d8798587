package recommend

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/everstacklabs/modelscout/internal/catalog"
)

func buildSystemPrompt() string {
	return `You are a model selection assistant. Given a task description and a catalog of AI models with pricing, recommend exactly three models: the cheapest viable option, a balanced price/quality option, and the best-quality option.

Respond with a JSON object of this exact shape:
{
  "analysis": {
    "summary": "one-sentence restatement of the task",
    "modality": "the capability class the task needs (text, image, video, audio-tts, audio-stt, audio-generation, vision, embedding, multimodal)",
    "reasoning": "why this modality and these models",
    "requirements": ["specific capability requirements"],
    "costFactors": ["what drives cost for this task"]
  },
  "cheapest": {"id": "...", "reason": "...", "pricingSummary": "...", "estimatedCost": "..."},
  "balanced": {"id": "...", "reason": "...", "pricingSummary": "...", "estimatedCost": "..."},
  "best": {"id": "...", "reason": "...", "pricingSummary": "...", "estimatedCost": "..."}
}

Rules:
- Every "id" MUST be copied verbatim from the catalog below. Never invent, shorten, or reformat an ID.
- Pick models whose modality matches the task.
- "estimatedCost" is a rough dollar figure for a typical month of the described usage.

Respond ONLY with the JSON object, no other text.`
}

// promptEntry is the compressed per-model row sent to the LLM. The full
// entry is far too verbose to send three hundred times.
type promptEntry struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Pricing    string  `json:"pricing"`
	Context    int     `json:"context,omitempty"`
	Resolution string  `json:"resolution,omitempty"`
	Duration   float64 `json:"duration,omitempty"`
}

func buildUserPrompt(task string, cons Constraints, entries []catalog.Entry) string {
	var b strings.Builder

	b.WriteString("## Task\n\n")
	b.WriteString(task)
	b.WriteString("\n")

	if line := constraintLine(cons); line != "" {
		b.WriteString("\n## Constraints\n\n")
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n## Catalog\n")
	for _, m := range catalog.AllModalities() {
		var rows []promptEntry
		for _, e := range entries {
			if e.Modality != m {
				continue
			}
			rows = append(rows, promptEntry{
				ID:         e.ID,
				Name:       e.Name,
				Pricing:    flattenPricing(&e),
				Context:    e.ContextLength,
				Resolution: e.MaxResolution,
				Duration:   e.MaxDuration,
			})
		}
		if len(rows) == 0 {
			continue
		}
		jsonBytes, _ := json.MarshalIndent(rows, "", "  ")
		fmt.Fprintf(&b, "\n### %s\n\n```json\n%s\n```\n", m, jsonBytes)
	}

	return b.String()
}

func constraintLine(c Constraints) string {
	var parts []string
	if c.MaxPrice > 0 {
		parts = append(parts, fmt.Sprintf("max primary price $%g", c.MaxPrice))
	}
	if c.MinContext > 0 {
		parts = append(parts, fmt.Sprintf("min context %d tokens", c.MinContext))
	}
	if c.MinResolution > 0 {
		parts = append(parts, fmt.Sprintf("min resolution %dpx", c.MinResolution))
	}
	if c.Modality != "" {
		parts = append(parts, fmt.Sprintf("modality must be %s", c.Modality))
	}
	return strings.Join(parts, "; ")
}

// flattenPricing renders the pricing union as one human-readable string.
func flattenPricing(e *catalog.Entry) string {
	p := e.Pricing
	switch p.Kind {
	case catalog.PricingText:
		if p.Text == nil {
			return "unpriced"
		}
		return fmt.Sprintf("$%s/M input, $%s/M output",
			trimDollars(p.Text.PromptPer1M), trimDollars(p.Text.CompletionPer1M))
	case catalog.PricingImage:
		if p.Image == nil {
			return "unpriced"
		}
		switch {
		case p.Image.PerImage > 0:
			return fmt.Sprintf("$%s/image", trimDollars(p.Image.PerImage))
		case p.Image.PerMegapixel > 0:
			return fmt.Sprintf("$%s/megapixel", trimDollars(p.Image.PerMegapixel))
		case p.Image.PerStep > 0:
			return fmt.Sprintf("$%s/step", trimDollars(p.Image.PerStep))
		}
		return "unpriced"
	case catalog.PricingVideo:
		if p.Video == nil {
			return "unpriced"
		}
		if p.Video.PerSecond > 0 {
			return fmt.Sprintf("$%s/second", trimDollars(p.Video.PerSecond))
		}
		if p.Video.PerGeneration > 0 {
			return fmt.Sprintf("$%s/generation", trimDollars(p.Video.PerGeneration))
		}
		return "unpriced"
	case catalog.PricingAudio:
		if p.Audio == nil {
			return "unpriced"
		}
		switch {
		case p.Audio.PerMinute > 0:
			return fmt.Sprintf("$%s/minute", trimDollars(p.Audio.PerMinute))
		case p.Audio.PerCharacter > 0:
			return fmt.Sprintf("$%s/character", trimDollars(p.Audio.PerCharacter))
		case p.Audio.PerSecond > 0:
			return fmt.Sprintf("$%s/second", trimDollars(p.Audio.PerSecond))
		}
		return "unpriced"
	case catalog.PricingEmbedding:
		if p.Embedding == nil {
			return "unpriced"
		}
		return fmt.Sprintf("$%s/M tokens", trimDollars(p.Embedding.Per1M))
	}
	return "unpriced"
}

func trimDollars(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}
