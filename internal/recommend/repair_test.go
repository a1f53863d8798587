package recommend

import "testing"

func TestSimilarityRepairsNearMissID(t *testing.T) {
	known := map[string]bool{
		"openrouter::google/gemini-2.5-pro": true,
		"openrouter::openai/gpt-oss-120b":   true,
		"replicate::black-forest-labs/flux-schnell": true,
	}

	rec := &Recommendation{
		Cheapest: Pick{ID: "google/gemini-pro"},
		Balanced: Pick{ID: "openrouter::openai/gpt-oss-120b"},
		Best:     Pick{ID: "openrouter::google/gemini-2.5-pro"},
	}

	if !RepairIDs(rec, known) {
		t.Fatal("RepairIDs reported no change")
	}
	if rec.Cheapest.ID != "openrouter::google/gemini-2.5-pro" {
		t.Errorf("cheapest repaired to %q", rec.Cheapest.ID)
	}
	// Valid IDs are untouched.
	if rec.Balanced.ID != "openrouter::openai/gpt-oss-120b" {
		t.Errorf("balanced changed to %q", rec.Balanced.ID)
	}
}

func TestSimilarityLeavesUnrelatedIDAlone(t *testing.T) {
	known := map[string]bool{"openrouter::google/gemini-2.5-pro": true}
	rec := &Recommendation{
		Cheapest: Pick{ID: "acme/totally-unrelated-widget"},
		Balanced: Pick{ID: "openrouter::google/gemini-2.5-pro"},
		Best:     Pick{ID: "openrouter::google/gemini-2.5-pro"},
	}
	RepairIDs(rec, known)
	if rec.Cheapest.ID != "acme/totally-unrelated-widget" {
		t.Errorf("unrelated ID was rewritten to %q", rec.Cheapest.ID)
	}
	if err := Validate(rec, known); err == nil {
		t.Error("Validate accepted the unrepaired ID")
	}
}

func TestSimilarityScores(t *testing.T) {
	tests := []struct {
		candidate, known string
		min, max         float64
	}{
		{"openrouter::google/gemini-2.5-pro", "openrouter::google/gemini-2.5-pro", 1, 1},
		{"google/gemini-2.5-pro", "openrouter::google/gemini-2.5-pro", 1, 1},
		{"google/gemini-pro", "openrouter::google/gemini-2.5-pro", 0.3, 0.99},
		{"mistral/ministral-3b", "openrouter::google/gemini-2.5-pro", 0, 0.29},
	}
	for _, tt := range tests {
		got := similarity(tt.candidate, tt.known)
		if got < tt.min || got > tt.max {
			t.Errorf("similarity(%q, %q) = %v, want in [%v, %v]",
				tt.candidate, tt.known, got, tt.min, tt.max)
		}
	}
}

func TestExtractJSONVariants(t *testing.T) {
	want := `{"analysis":{"summary":"x"}}`
	tests := []string{
		want,
		"Here is my answer:\n```json\n" + want + "\n```\nHope that helps!",
		"```\n" + want + "\n```",
		"Sure! " + want + " Done.",
	}
	for _, in := range tests {
		got, err := extractJSON(in)
		if err != nil {
			t.Errorf("extractJSON(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("extractJSON(%q) = %q", in, got)
		}
	}

	if _, err := extractJSON("no json here at all"); err == nil {
		t.Error("extractJSON accepted plain prose")
	}
}
