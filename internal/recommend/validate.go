package recommend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseRecommendation extracts the recommendation JSON from LLM response
// text, tolerating markdown fences and surrounding prose.
func parseRecommendation(content string) (*Recommendation, error) {
	jsonStr, err := extractJSON(content)
	if err != nil {
		return nil, err
	}
	var rec Recommendation
	if err := json.Unmarshal([]byte(jsonStr), &rec); err != nil {
		return nil, fmt.Errorf("unmarshaling recommendation: %w", err)
	}
	return &rec, nil
}

// Validate checks the recommendation's shape and that every pick ID
// resolves to a catalog entry.
func Validate(rec *Recommendation, known map[string]bool) error {
	if rec == nil {
		return fmt.Errorf("nil recommendation")
	}
	tiers := map[string]*Pick{
		"cheapest": &rec.Cheapest,
		"balanced": &rec.Balanced,
		"best":     &rec.Best,
	}
	for _, tier := range []string{"cheapest", "balanced", "best"} {
		p := tiers[tier]
		if p.ID == "" {
			return fmt.Errorf("%s pick has no model ID", tier)
		}
		if !known[p.ID] {
			return fmt.Errorf("%s pick references unknown model %q", tier, p.ID)
		}
	}
	return nil
}

// extractJSON finds the JSON object in text that may be wrapped in markdown
// code fences or surrounded by other text.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)

	if isValidJSON(s) {
		return s, nil
	}

	if idx := strings.Index(s, "```json"); idx != -1 {
		start := idx + len("```json")
		if end := strings.Index(s[start:], "```"); end != -1 {
			candidate := strings.TrimSpace(s[start : start+end])
			if isValidJSON(candidate) {
				return candidate, nil
			}
		}
	}
	if idx := strings.Index(s, "```"); idx != -1 {
		start := idx + len("```")
		if end := strings.Index(s[start:], "```"); end != -1 {
			candidate := strings.TrimSpace(s[start : start+end])
			if isValidJSON(candidate) {
				return candidate, nil
			}
		}
	}

	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first != -1 && last > first {
		candidate := s[first : last+1]
		if isValidJSON(candidate) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no valid JSON found in response")
}

func isValidJSON(s string) bool {
	var js json.RawMessage
	return json.Unmarshal([]byte(s), &js) == nil
}
