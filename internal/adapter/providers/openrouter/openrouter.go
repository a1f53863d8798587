// Package openrouter fetches the OpenRouter model listing.
package openrouter

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/everstacklabs/modelscout/internal/adapter"
	"github.com/everstacklabs/modelscout/internal/catalog"
	"github.com/everstacklabs/modelscout/internal/errs"
	"github.com/everstacklabs/modelscout/internal/normalize"
)

const sourceName = "openrouter"

func init() {
	adapter.Register(sourceName, func(deps adapter.Deps) adapter.Adapter {
		return &OpenRouter{deps: deps}
	})
}

// OpenRouter lists models from the OpenRouter API. The listing is a single
// document; pricing arrives as per-token decimal strings.
type OpenRouter struct {
	deps adapter.Deps
}

func (o *OpenRouter) Name() string { return sourceName }

// API response types.
type modelsResponse struct {
	Data []apiModel `json:"data"`
}

type apiModel struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Created       int64  `json:"created"`
	ContextLength int    `json:"context_length"`
	Architecture  struct {
		Modality         string   `json:"modality"`
		InputModalities  []string `json:"input_modalities"`
		OutputModalities []string `json:"output_modalities"`
	} `json:"architecture"`
	Pricing struct {
		Prompt     string `json:"prompt"`
		Completion string `json:"completion"`
		Image      string `json:"image"`
		Request    string `json:"request"`
	} `json:"pricing"`
	TopProvider struct {
		ContextLength int `json:"context_length"`
	} `json:"top_provider"`
	SupportedParameters []string `json:"supported_parameters"`
}

func (o *OpenRouter) Fetch(ctx context.Context) ([]catalog.Entry, error) {
	if o.deps.APIKey == "" {
		return nil, errs.Auth(sourceName, "no API key configured",
			"set OPENROUTER_API_KEY or openrouter.api_key in the config file")
	}

	if o.deps.Cache != nil {
		var cached []catalog.Entry
		if _, ok := o.deps.Cache.Get(sourceName, &cached); ok {
			slog.Debug("catalog served from cache", "source", sourceName, "models", len(cached))
			return cached, nil
		}
	}

	var resp modelsResponse
	url := o.deps.BaseURL + "/models"
	headers := map[string]string{"Authorization": "Bearer " + o.deps.APIKey}
	if err := o.deps.Client.GetJSON(ctx, sourceName, url, headers, &resp); err != nil {
		return nil, err
	}

	candidates := make([]adapter.Candidate[apiModel], 0, len(resp.Data))
	for _, m := range resp.Data {
		if m.ID == "" {
			continue
		}
		// Recency is the only ranking signal the listing carries.
		candidates = append(candidates, adapter.Candidate[apiModel]{
			Key:        m.ID,
			Popularity: m.Created,
			Record:     m,
		})
	}
	candidates = adapter.SortAndCap(candidates, o.deps.MaxModelsOrDefault())

	var entries []catalog.Entry
	for _, c := range candidates {
		if e := normalizeModel(c.Record); e != nil {
			entries = append(entries, *e)
		}
	}

	slog.Info("catalog fetched", "source", sourceName,
		"listed", len(resp.Data), "usable", len(entries))

	if o.deps.Cache != nil && len(entries) > 0 {
		if err := o.deps.Cache.Set(sourceName, entries); err != nil {
			slog.Warn("failed to write catalog cache", "source", sourceName, "error", err)
		}
	}
	return entries, nil
}

// normalizeModel converts one listing record to a canonical entry, or nil
// when the record has no usable price.
func normalizeModel(m apiModel) *catalog.Entry {
	inputs, outputs := modalitySets(m)
	modality := normalize.ClassifyModality(inputs, outputs)
	pricing := buildPricing(m, modality)
	if !catalog.HasUsablePrice(pricing) {
		return nil
	}

	ctxLen := m.ContextLength
	if m.TopProvider.ContextLength > ctxLen {
		ctxLen = m.TopProvider.ContextLength
	}

	entry := &catalog.Entry{
		ID:               catalog.CompositeID(sourceName, m.ID),
		Source:           sourceName,
		Name:             m.Name,
		Modality:         modality,
		InputModalities:  normalize.ModalitySets(inputs),
		OutputModalities: normalize.ModalitySets(outputs),
		Pricing:          pricing,
		ContextLength:    ctxLen,
		Provider:         normalize.Provider(m.ID, m.Name),
		Family:           normalize.Family(m.ID, m.Name),
	}
	if supportsStreaming(m.SupportedParameters) {
		yes := true
		entry.Streaming = &yes
	}
	return entry
}

// modalitySets prefers the explicit input/output lists, falling back to the
// legacy combined "text+image->text" modality string.
func modalitySets(m apiModel) (inputs, outputs []string) {
	if len(m.Architecture.InputModalities) > 0 || len(m.Architecture.OutputModalities) > 0 {
		return m.Architecture.InputModalities, m.Architecture.OutputModalities
	}
	in, out, ok := strings.Cut(m.Architecture.Modality, "->")
	if !ok {
		return []string{"text"}, []string{"text"}
	}
	return strings.Split(in, "+"), strings.Split(out, "+")
}

func buildPricing(m apiModel, modality catalog.Modality) catalog.Pricing {
	switch modality {
	case catalog.ModalityImage:
		// The image rate is already per image, not per token.
		if d, ok := parsePositive(m.Pricing.Image); ok {
			return catalog.Pricing{Kind: catalog.PricingImage, Image: &catalog.ImagePricing{PerImage: d}}
		}
		if d, ok := parsePositive(m.Pricing.Request); ok {
			return catalog.Pricing{Kind: catalog.PricingImage, Image: &catalog.ImagePricing{PerImage: d}}
		}
		return catalog.Pricing{Kind: catalog.PricingImage}
	case catalog.ModalityEmbedding:
		return catalog.EmbeddingPrice(normalize.PerTokenToPer1M(m.Pricing.Prompt))
	default:
		return catalog.TextPrices(
			normalize.PerTokenToPer1M(m.Pricing.Prompt),
			normalize.PerTokenToPer1M(m.Pricing.Completion),
		)
	}
}

func parsePositive(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func supportsStreaming(params []string) bool {
	for _, p := range params {
		if p == "stream" {
			return true
		}
	}
	return false
}
