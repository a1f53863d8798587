// Package recommend turns a task description plus the merged catalog into a
// three-tier model recommendation, using an LLM when available and a
// deterministic price/capability heuristic when not.
package recommend

import (
	"strconv"
	"strings"

	"github.com/everstacklabs/modelscout/internal/catalog"
)

// Method records how a recommendation was produced.
type Method string

const (
	MethodLLM       Method = "llm"
	MethodHeuristic Method = "heuristic"
)

// TaskAnalysis is the recommender's reading of the task.
type TaskAnalysis struct {
	Summary      string   `json:"summary"`
	Modality     string   `json:"modality"`
	Reasoning    string   `json:"reasoning"`
	Requirements []string `json:"requirements,omitempty"`
	CostFactors  []string `json:"costFactors,omitempty"`
}

// Pick is one recommended model tier.
type Pick struct {
	ID             string `json:"id"`
	Reason         string `json:"reason"`
	PricingSummary string `json:"pricingSummary"`
	EstimatedCost  string `json:"estimatedCost"`
}

// Recommendation is the full result: a task analysis plus exactly three
// tiered picks. Every pick ID resolves to an entry in the catalog the
// recommendation was produced from; Validate enforces this.
type Recommendation struct {
	Analysis TaskAnalysis `json:"analysis"`
	Cheapest Pick         `json:"cheapest"`
	Balanced Pick         `json:"balanced"`
	Best     Pick         `json:"best"`
	Method   Method       `json:"method"`
}

// Picks returns pointers to the three tiers in display order.
func (r *Recommendation) Picks() []*Pick {
	return []*Pick{&r.Cheapest, &r.Balanced, &r.Best}
}

// Constraints narrow the catalog before any recommendation happens. Zero
// values mean unconstrained.
type Constraints struct {
	MaxPrice      float64
	MinContext    int
	MinResolution int
	Modality      catalog.Modality
	Exclude       []string
	Sources       []string
}

// Filter returns the entries satisfying every constraint, preserving order.
func (c Constraints) Filter(entries []catalog.Entry) []catalog.Entry {
	sources := map[string]bool{}
	for _, s := range c.Sources {
		sources[strings.ToLower(s)] = true
	}

	var out []catalog.Entry
	for _, e := range entries {
		if len(sources) > 0 && !sources[e.Source] {
			continue
		}
		if c.Modality != "" && !matchesModality(&e, c.Modality) {
			continue
		}
		if c.MaxPrice > 0 && catalog.PrimaryPrice(&e) > c.MaxPrice {
			continue
		}
		if c.MinContext > 0 && e.ContextLength < c.MinContext {
			continue
		}
		if c.MinResolution > 0 && maxDimension(e.MaxResolution) < c.MinResolution {
			continue
		}
		if excluded(&e, c.Exclude) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// matchesModality treats vision entries as acceptable for text work; a
// vision model is a text model that also sees.
func matchesModality(e *catalog.Entry, m catalog.Modality) bool {
	if e.Modality == m {
		return true
	}
	return m == catalog.ModalityText && e.Modality == catalog.ModalityVision
}

// maxDimension parses a "WxH" resolution string into its larger dimension,
// zero when absent or unparseable.
func maxDimension(res string) int {
	w, h, ok := strings.Cut(strings.ToLower(res), "x")
	if !ok {
		return 0
	}
	wi, err1 := strconv.Atoi(strings.TrimSpace(w))
	hi, err2 := strconv.Atoi(strings.TrimSpace(h))
	if err1 != nil || err2 != nil {
		return 0
	}
	if wi > hi {
		return wi
	}
	return hi
}

func excluded(e *catalog.Entry, patterns []string) bool {
	id := strings.ToLower(e.ID)
	name := strings.ToLower(e.Name)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "" {
			continue
		}
		if strings.Contains(id, p) || strings.Contains(name, p) {
			return true
		}
	}
	return false
}
