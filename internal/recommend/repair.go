package recommend

import (
	"log/slog"
	"strings"
)

// repairThreshold is the minimum similarity score at which a hallucinated
// model ID is rewritten to its closest catalog ID. Below it the ID is left
// alone and re-validation routes to the fallback.
const repairThreshold = 0.3

// RepairIDs rewrites each pick whose ID is not in the catalog to the most
// similar known ID, when the similarity clears the threshold. Reports
// whether any pick was changed.
func RepairIDs(rec *Recommendation, known map[string]bool) bool {
	ids := make([]string, 0, len(known))
	for id := range known {
		ids = append(ids, id)
	}

	changed := false
	for _, p := range rec.Picks() {
		if p.ID == "" || known[p.ID] {
			continue
		}
		if match, score := closestID(p.ID, ids); score >= repairThreshold {
			slog.Debug("repaired model ID", "from", p.ID, "to", match, "score", score)
			p.ID = match
			changed = true
		}
	}
	return changed
}

// closestID returns the known ID most similar to id and its score.
func closestID(id string, known []string) (string, float64) {
	best, bestScore := "", 0.0
	for _, k := range known {
		if s := similarity(id, k); s > bestScore || (s == bestScore && k < best) {
			best, bestScore = k, s
		}
	}
	return best, bestScore
}

// similarity scores a candidate ID against a known ID: exact match, then
// substring containment ratio, then Jaccard over slash/underscore/hyphen/dot
// tokens. The source prefix is stripped first so "google/gemini-pro" can
// match "openrouter::google/gemini-pro".
func similarity(candidate, known string) float64 {
	a := strings.ToLower(stripSource(candidate))
	b := strings.ToLower(stripSource(known))
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}

	score := 0.0
	if strings.Contains(b, a) {
		score = float64(len(a)) / float64(len(b))
	} else if strings.Contains(a, b) {
		score = float64(len(b)) / float64(len(a))
	}

	if j := jaccard(tokenize(a), tokenize(b)); j > score {
		score = j
	}
	return score
}

func stripSource(id string) string {
	if _, rest, ok := strings.Cut(id, "::"); ok {
		return rest
	}
	return id
}

func tokenize(s string) map[string]bool {
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return r == '/' || r == '_' || r == '-' || r == '.'
	})
	set := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[t] = true
		}
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for t := range a {
		if b[t] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}
