package validate

import (
	"strings"
	"testing"

	"github.com/everstacklabs/modelscout/internal/catalog"
)

func goodEntry() catalog.Entry {
	return catalog.Entry{
		ID:               "openrouter::acme/mini",
		Source:           "openrouter",
		Name:             "Acme Mini",
		Modality:         catalog.ModalityText,
		InputModalities:  []string{"text"},
		OutputModalities: []string{"text"},
		Pricing:          catalog.TextPrices(0.25, 0.38),
		Provider:         "acme",
		Family:           "mini",
	}
}

func TestValidEntryHasNoErrors(t *testing.T) {
	e := goodEntry()
	r := ValidateEntry(&e)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %s", FormatResult(r))
	}
}

func TestValidateEntryErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*catalog.Entry)
		field  string
	}{
		{"non-composite id", func(e *catalog.Entry) { e.ID = "acme/mini" }, "id"},
		{"source mismatch", func(e *catalog.Entry) { e.Source = "replicate" }, "source"},
		{"empty name", func(e *catalog.Entry) { e.Name = "" }, "name"},
		{"unknown modality", func(e *catalog.Entry) { e.Modality = "telepathy" }, "modality"},
		{"empty inputs", func(e *catalog.Entry) { e.InputModalities = nil }, "inputModalities"},
		{"empty outputs", func(e *catalog.Entry) { e.OutputModalities = nil }, "outputModalities"},
		{"negative context", func(e *catalog.Entry) { e.ContextLength = -1 }, "contextLength"},
		{"zero price", func(e *catalog.Entry) { e.Pricing = catalog.TextPrices(0, 0) }, "pricing"},
		{"no variant", func(e *catalog.Entry) { e.Pricing = catalog.Pricing{Kind: catalog.PricingText} }, "pricing"},
		{"kind/variant mismatch", func(e *catalog.Entry) {
			e.Pricing = catalog.Pricing{Kind: catalog.PricingImage,
				Text: &catalog.TextPricing{PromptPer1M: 1}}
		}, "pricing.kind"},
		{"two variants", func(e *catalog.Entry) {
			e.Pricing.Image = &catalog.ImagePricing{PerImage: 1}
		}, "pricing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := goodEntry()
			tt.mutate(&e)
			r := ValidateEntry(&e)
			if !r.HasErrors() {
				t.Fatal("no errors reported")
			}
			found := false
			for _, i := range r.Errors() {
				if i.Field == tt.field {
					found = true
				}
			}
			if !found {
				t.Errorf("no error on field %q: %s", tt.field, FormatResult(r))
			}
		})
	}
}

func TestMissingProviderIsOnlyAWarning(t *testing.T) {
	e := goodEntry()
	e.Provider = ""
	r := ValidateEntry(&e)
	if r.HasErrors() {
		t.Fatalf("unexpected errors: %s", FormatResult(r))
	}
	if len(r.Warnings()) != 1 {
		t.Fatalf("got %d warnings, want 1", len(r.Warnings()))
	}
}

func TestValidateEntriesAggregates(t *testing.T) {
	good := goodEntry()
	bad := goodEntry()
	bad.Name = ""
	r := ValidateEntries([]catalog.Entry{good, bad})
	if len(r.Errors()) != 1 {
		t.Fatalf("got %d errors, want 1: %s", len(r.Errors()), FormatResult(r))
	}
	if !strings.Contains(FormatResult(r), "acme/mini") {
		t.Error("formatted output should name the entry")
	}
}
