// Package validate checks catalog entries against the invariants the rest
// of the pipeline assumes: composite IDs, known modalities, non-empty
// modality sets, and a well-formed pricing union.
package validate

import (
	"fmt"
	"strings"

	"github.com/everstacklabs/modelscout/internal/catalog"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // entry is unusable
	SeverityWarning                 // suspicious but usable
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	Entry    string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s — %s", sev, i.Entry, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if there are any error-severity issues.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			out = append(out, i)
		}
	}
	return out
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

var knownModalities = func() map[catalog.Modality]bool {
	m := make(map[catalog.Modality]bool)
	for _, mod := range catalog.AllModalities() {
		m[mod] = true
	}
	return m
}()

// ValidateEntry checks one catalog entry.
func ValidateEntry(e *catalog.Entry) *Result {
	r := &Result{}
	id := e.ID
	if id == "" {
		id = "(no id)"
	}

	source, _, ok := strings.Cut(e.ID, "::")
	if !ok || source == "" {
		r.add(SeverityError, id, "id", "not a source::provider/slug composite ID")
	} else if source != e.Source {
		r.add(SeverityError, id, "source", fmt.Sprintf("ID prefix %q does not match source %q", source, e.Source))
	}

	if e.Name == "" {
		r.add(SeverityError, id, "name", "required field is empty")
	}
	if !knownModalities[e.Modality] {
		r.add(SeverityError, id, "modality", fmt.Sprintf("unknown modality %q", e.Modality))
	}
	if len(e.InputModalities) == 0 {
		r.add(SeverityError, id, "inputModalities", "at least one input modality required")
	}
	if len(e.OutputModalities) == 0 {
		r.add(SeverityError, id, "outputModalities", "at least one output modality required")
	}

	r.checkPricing(e, id)

	if e.Provider == "" {
		r.add(SeverityWarning, id, "provider", "missing provider attribution")
	}
	if e.ContextLength < 0 {
		r.add(SeverityError, id, "contextLength", "negative context length")
	}

	return r
}

// ValidateEntries checks a whole catalog.
func ValidateEntries(entries []catalog.Entry) *Result {
	r := &Result{}
	for i := range entries {
		r.Issues = append(r.Issues, ValidateEntry(&entries[i]).Issues...)
	}
	return r
}

// checkPricing enforces the tagged-union shape: the kind names exactly the
// variant that is set, and the entry carries a usable price.
func (r *Result) checkPricing(e *catalog.Entry, id string) {
	p := e.Pricing
	variants := 0
	if p.Text != nil {
		variants++
	}
	if p.Image != nil {
		variants++
	}
	if p.Video != nil {
		variants++
	}
	if p.Audio != nil {
		variants++
	}
	if p.Embedding != nil {
		variants++
	}

	if variants != 1 {
		r.add(SeverityError, id, "pricing", fmt.Sprintf("%d pricing variants set, want exactly 1", variants))
		return
	}

	kindMatches := map[catalog.PricingKind]bool{
		catalog.PricingText:      p.Text != nil,
		catalog.PricingImage:     p.Image != nil,
		catalog.PricingVideo:     p.Video != nil,
		catalog.PricingAudio:     p.Audio != nil,
		catalog.PricingEmbedding: p.Embedding != nil,
	}
	if !kindMatches[p.Kind] {
		r.add(SeverityError, id, "pricing.kind", fmt.Sprintf("kind %q does not name the populated variant", p.Kind))
		return
	}

	if !catalog.HasUsablePrice(p) {
		r.add(SeverityError, id, "pricing", "no usable price; entry should have been dropped")
	}
}

func (r *Result) add(sev Severity, entry, field, msg string) {
	r.Issues = append(r.Issues, Issue{Severity: sev, Entry: entry, Field: field, Message: msg})
}

// FormatResult renders issues one per line.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "no issues"
	}
	var b strings.Builder
	for _, i := range r.Issues {
		b.WriteString(i.String())
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
