package recommend

import (
	"context"
	"log/slog"

	"github.com/everstacklabs/modelscout/internal/catalog"
	"github.com/everstacklabs/modelscout/internal/errs"
)

// Recommender turns a task and the merged catalog into a Recommendation.
// When client is nil every request goes straight to the heuristic.
type Recommender struct {
	client LLMClient
}

// New creates a Recommender. client may be nil to disable the LLM path.
func New(client LLMClient) *Recommender {
	return &Recommender{client: client}
}

// Recommend runs the full pipeline: constraint filtering, LLM invocation,
// parse, validate, ID repair, and the heuristic fallback. LLM failures of
// any kind are never surfaced; they reroute to the fallback.
func (r *Recommender) Recommend(ctx context.Context, task string, cons Constraints, entries []catalog.Entry) (*Recommendation, error) {
	pool := cons.Filter(entries)
	if len(pool) == 0 {
		return nil, errs.NoModels("no models match the given constraints",
			missingSourceGuidance(entries))
	}

	known := make(map[string]bool, len(pool))
	for _, e := range pool {
		known[e.ID] = true
	}

	if r.client == nil {
		return Fallback(task, cons, pool)
	}

	rec, err := r.llmRecommend(ctx, task, cons, pool, known)
	if err != nil {
		slog.Warn("llm recommendation failed, using heuristic", "error", err)
		return Fallback(task, cons, pool)
	}
	return rec, nil
}

func (r *Recommender) llmRecommend(ctx context.Context, task string, cons Constraints, pool []catalog.Entry, known map[string]bool) (*Recommendation, error) {
	resp, err := r.client.Complete(ctx, buildSystemPrompt(), buildUserPrompt(task, cons, pool))
	if err != nil {
		return nil, err
	}

	rec, err := parseRecommendation(resp.Content)
	if err != nil {
		return nil, err
	}

	if err := Validate(rec, known); err != nil {
		slog.Debug("recommendation failed validation, repairing IDs", "error", err)
		RepairIDs(rec, known)
		if err := Validate(rec, known); err != nil {
			return nil, err
		}
	}

	rec.Method = MethodLLM
	return rec, nil
}
