// Package replicate fetches the Replicate model listing. The listing API
// carries no pricing, so usable prices come from the price enrichment
// subsystem scraping the public model pages.
package replicate

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/everstacklabs/modelscout/internal/adapter"
	"github.com/everstacklabs/modelscout/internal/catalog"
	"github.com/everstacklabs/modelscout/internal/enrich"
	"github.com/everstacklabs/modelscout/internal/errs"
	"github.com/everstacklabs/modelscout/internal/normalize"
)

const sourceName = "replicate"

func init() {
	adapter.Register(sourceName, func(deps adapter.Deps) adapter.Adapter {
		return &Replicate{deps: deps}
	})
}

// Replicate pages through /v1/models following the response's "next" URL.
type Replicate struct {
	deps adapter.Deps
}

func (r *Replicate) Name() string { return sourceName }

type listResponse struct {
	Next    string     `json:"next"`
	Results []apiModel `json:"results"`
}

type apiModel struct {
	Owner       string `json:"owner"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Visibility  string `json:"visibility"`
	RunCount    int64  `json:"run_count"`
}

func (m apiModel) key() string { return m.Owner + "/" + m.Name }

func (r *Replicate) Fetch(ctx context.Context) ([]catalog.Entry, error) {
	if r.deps.APIKey == "" {
		return nil, errs.Auth(sourceName, "no API token configured",
			"set REPLICATE_API_TOKEN or replicate.api_key in the config file")
	}

	if r.deps.Cache != nil {
		var cached []catalog.Entry
		if _, ok := r.deps.Cache.Get(sourceName, &cached); ok {
			slog.Debug("catalog served from cache", "source", sourceName, "models", len(cached))
			return cached, nil
		}
	}

	records, err := r.page(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]adapter.Candidate[apiModel], 0, len(records))
	for _, m := range records {
		if m.Visibility != "public" {
			continue
		}
		if m.Owner == "" || m.Name == "" {
			continue
		}
		candidates = append(candidates, adapter.Candidate[apiModel]{
			Key:        m.key(),
			Popularity: m.RunCount,
			Record:     m,
		})
	}
	candidates = adapter.SortAndCap(candidates, r.deps.MaxModelsOrDefault())

	// Every surviving candidate lacks API pricing; the enrichment pool
	// resolves what it can within its budget.
	var prices map[string][]enrich.Rate
	if r.deps.Enricher != nil {
		keys := make([]string, len(candidates))
		for i, c := range candidates {
			keys[i] = c.Key
		}
		prices = r.deps.Enricher.PricesFor(ctx, keys)
	}

	var entries []catalog.Entry
	for _, c := range candidates {
		if e := normalizeModel(c.Record, prices[c.Key]); e != nil {
			entries = append(entries, *e)
		}
	}

	slog.Info("catalog fetched", "source", sourceName,
		"listed", len(records), "usable", len(entries))

	if r.deps.Cache != nil && len(entries) > 0 {
		if err := r.deps.Cache.Set(sourceName, entries); err != nil {
			slog.Warn("failed to write catalog cache", "source", sourceName, "error", err)
		}
	}
	return entries, nil
}

// page walks the listing, following "next" URLs up to the page cap.
func (r *Replicate) page(ctx context.Context) ([]apiModel, error) {
	headers := map[string]string{"Authorization": "Token " + r.deps.APIKey}
	next := r.deps.BaseURL + "/models"

	var all []apiModel
	for pages := 0; next != "" && pages < r.deps.MaxPagesOrDefault(); pages++ {
		if err := r.checkNextURL(next); err != nil {
			return nil, err
		}
		var resp listResponse
		if err := r.deps.Client.GetJSON(ctx, sourceName, next, headers, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Results...)
		if len(all) >= r.deps.MaxModelsOrDefault() {
			break
		}
		next = resp.Next
	}
	return all, nil
}

// checkNextURL refuses "next" URLs that point away from the configured API
// host.
func (r *Replicate) checkNextURL(raw string) error {
	base, err := url.Parse(r.deps.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid pagination URL: %w", err)
	}
	if u.Host != base.Host {
		return errs.Malformed(sourceName,
			fmt.Sprintf("pagination URL %q leaves host %q", raw, base.Host), nil)
	}
	return nil
}

// normalizeModel converts one record plus its enriched rates into a
// canonical entry, or nil when no usable price was resolved.
func normalizeModel(m apiModel, rates []enrich.Rate) *catalog.Entry {
	inputs, outputs := inferModalities(m)
	modality := normalize.ClassifyModality(inputs, outputs)
	pricing := pricingFromRates(rates, modality)
	if !catalog.HasUsablePrice(pricing) {
		return nil
	}

	return &catalog.Entry{
		ID:               catalog.CompositeID(sourceName, m.key()),
		Source:           sourceName,
		Name:             m.key(),
		Modality:         modality,
		InputModalities:  normalize.ModalitySets(inputs),
		OutputModalities: normalize.ModalitySets(outputs),
		Pricing:          pricing,
		Provider:         normalize.Provider(m.key(), m.Description),
		Family:           normalize.Family(m.key(), m.Description),
	}
}

// inferModalities derives input/output modality sets from the model name
// and description; the listing carries no structured modality data.
func inferModalities(m apiModel) (inputs, outputs []string) {
	text := strings.ToLower(m.key() + " " + m.Description)
	switch {
	case containsAny(text, "text-to-video", "image-to-video", "video generation", "video model"):
		return []string{"text"}, []string{"video"}
	case containsAny(text, "text-to-image", "image generation", "diffusion", "flux", "sdxl"):
		return []string{"text"}, []string{"image"}
	case containsAny(text, "upscal", "img2img", "image-to-image", "restoration", "inpaint"):
		return []string{"image"}, []string{"image"}
	case containsAny(text, "music", "song generation"):
		return []string{"text"}, []string{"music"}
	case containsAny(text, "text-to-speech", "tts", "voice clon"):
		return []string{"text"}, []string{"audio"}
	case containsAny(text, "speech-to-text", "transcri", "whisper"):
		return []string{"audio"}, []string{"text"}
	case containsAny(text, "embedding"):
		return []string{"text"}, []string{"embedding"}
	case containsAny(text, "vision", "image caption", "visual question"):
		return []string{"image", "text"}, []string{"text"}
	default:
		return []string{"text"}, []string{"text"}
	}
}

func containsAny(haystack string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// pricingFromRates maps normalized per-unit rates onto the pricing variant
// for the classified modality. For text, the lower token rate is the prompt
// side and the higher the completion side.
func pricingFromRates(rates []enrich.Rate, modality catalog.Modality) catalog.Pricing {
	byUnit := map[normalize.Unit]float64{}
	var tokenRates []float64
	for _, r := range rates {
		if r.Unit == normalize.UnitPer1MTokens {
			tokenRates = append(tokenRates, r.USD)
			continue
		}
		if _, seen := byUnit[r.Unit]; !seen {
			byUnit[r.Unit] = r.USD
		}
	}

	switch modality {
	case catalog.ModalityImage:
		return catalog.Pricing{Kind: catalog.PricingImage, Image: &catalog.ImagePricing{
			PerImage:     byUnit[normalize.UnitPerImage],
			PerMegapixel: byUnit[normalize.UnitPerMegapixel],
			PerStep:      byUnit[normalize.UnitPerStep],
		}}
	case catalog.ModalityVideo:
		return catalog.Pricing{Kind: catalog.PricingVideo, Video: &catalog.VideoPricing{
			PerSecond:     byUnit[normalize.UnitPerSecond],
			PerGeneration: byUnit[normalize.UnitPerGeneration],
		}}
	case catalog.ModalityAudioTTS, catalog.ModalityAudioSTT, catalog.ModalityAudioGeneration:
		return catalog.Pricing{Kind: catalog.PricingAudio, Audio: &catalog.AudioPricing{
			PerMinute:    byUnit[normalize.UnitPerMinute],
			PerCharacter: byUnit[normalize.UnitPerCharacter],
			PerSecond:    byUnit[normalize.UnitPerSecond],
		}}
	case catalog.ModalityEmbedding:
		per := float64(0)
		if len(tokenRates) > 0 {
			per = tokenRates[0]
		}
		return catalog.EmbeddingPrice(per)
	default:
		prompt, completion := float64(0), float64(0)
		for _, r := range tokenRates {
			if prompt == 0 || r < prompt {
				prompt = r
			}
			if r > completion {
				completion = r
			}
		}
		return catalog.TextPrices(prompt, completion)
	}
}
