// Package huggingface fetches the Hugging Face inference router catalog.
package huggingface

import (
	"context"
	"log/slog"
	"net/url"

	"github.com/everstacklabs/modelscout/internal/adapter"
	"github.com/everstacklabs/modelscout/internal/catalog"
	"github.com/everstacklabs/modelscout/internal/errs"
	"github.com/everstacklabs/modelscout/internal/normalize"
)

const sourceName = "huggingface"

func init() {
	adapter.Register(sourceName, func(deps adapter.Deps) adapter.Adapter {
		return &HuggingFace{deps: deps}
	})
}

// HuggingFace pages through the router model catalog using its opaque
// cursor.
type HuggingFace struct {
	deps adapter.Deps
}

func (h *HuggingFace) Name() string { return sourceName }

type listResponse struct {
	Data   []apiModel `json:"data"`
	Cursor string     `json:"cursor"`
}

type apiModel struct {
	ID        string     `json:"id"`
	Created   int64      `json:"created"`
	OwnedBy   string     `json:"owned_by"`
	Private   bool       `json:"private"`
	Gated     bool       `json:"gated"`
	Task      string     `json:"task"`
	Providers []provider `json:"providers"`
}

type provider struct {
	Provider      string        `json:"provider"`
	Status        string        `json:"status"`
	ContextLength int           `json:"context_length"`
	SupportsTools bool          `json:"supports_tools"`
	Pricing       *offerPricing `json:"pricing"`
}

// offerPricing is USD per 1M tokens on each side.
type offerPricing struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// taskModalities maps a router task tag to input/output modality sets.
// Unmapped tasks are dropped.
var taskModalities = map[string][2][]string{
	"text-generation":          {{"text"}, {"text"}},
	"conversational":           {{"text"}, {"text"}},
	"image-text-to-text":       {{"image", "text"}, {"text"}},
	"text-to-image":            {{"text"}, {"image"}},
	"text-to-video":            {{"text"}, {"video"}},
	"automatic-speech-recognition": {{"audio"}, {"text"}},
	"text-to-speech":           {{"text"}, {"audio"}},
	"feature-extraction":       {{"text"}, {"embedding"}},
	"sentence-similarity":      {{"text"}, {"embedding"}},
}

func (h *HuggingFace) Fetch(ctx context.Context) ([]catalog.Entry, error) {
	if h.deps.APIKey == "" {
		return nil, errs.Auth(sourceName, "no access token configured",
			"set HF_TOKEN or huggingface.api_key in the config file")
	}

	if h.deps.Cache != nil {
		var cached []catalog.Entry
		if _, ok := h.deps.Cache.Get(sourceName, &cached); ok {
			slog.Debug("catalog served from cache", "source", sourceName, "models", len(cached))
			return cached, nil
		}
	}

	records, err := h.page(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]adapter.Candidate[apiModel], 0, len(records))
	for _, m := range records {
		if m.ID == "" || m.Private || m.Gated {
			continue
		}
		if _, ok := taskModalities[m.Task]; !ok {
			continue
		}
		candidates = append(candidates, adapter.Candidate[apiModel]{
			Key:        m.ID,
			Popularity: m.Created,
			Record:     m,
		})
	}
	candidates = adapter.SortAndCap(candidates, h.deps.MaxModelsOrDefault())

	var entries []catalog.Entry
	for _, c := range candidates {
		if e := normalizeModel(c.Record); e != nil {
			entries = append(entries, *e)
		}
	}

	slog.Info("catalog fetched", "source", sourceName,
		"listed", len(records), "usable", len(entries))

	if h.deps.Cache != nil && len(entries) > 0 {
		if err := h.deps.Cache.Set(sourceName, entries); err != nil {
			slog.Warn("failed to write catalog cache", "source", sourceName, "error", err)
		}
	}
	return entries, nil
}

// page follows the opaque cursor until it runs out or the caps are hit.
func (h *HuggingFace) page(ctx context.Context) ([]apiModel, error) {
	headers := map[string]string{"Authorization": "Bearer " + h.deps.APIKey}

	var all []apiModel
	cursor := ""
	for pages := 0; pages < h.deps.MaxPagesOrDefault(); pages++ {
		u := h.deps.BaseURL + "/v1/models?limit=100"
		if cursor != "" {
			u += "&cursor=" + url.QueryEscape(cursor)
		}
		var resp listResponse
		if err := h.deps.Client.GetJSON(ctx, sourceName, u, headers, &resp); err != nil {
			return nil, err
		}
		all = append(all, resp.Data...)
		if resp.Cursor == "" || len(resp.Data) == 0 || len(all) >= h.deps.MaxModelsOrDefault() {
			break
		}
		cursor = resp.Cursor
	}
	return all, nil
}

// normalizeModel converts one router record into a canonical entry, or nil
// when no live provider prices it.
func normalizeModel(m apiModel) *catalog.Entry {
	sets := taskModalities[m.Task]
	modality := normalize.ClassifyModality(sets[0], sets[1])

	input, output, ctxLen := bestOffer(m.Providers)
	var pricing catalog.Pricing
	if modality == catalog.ModalityEmbedding {
		pricing = catalog.EmbeddingPrice(input)
	} else {
		pricing = catalog.TextPrices(input, output)
	}
	if !catalog.HasUsablePrice(pricing) {
		return nil
	}

	return &catalog.Entry{
		ID:               catalog.CompositeID(sourceName, m.ID),
		Source:           sourceName,
		Name:             m.ID,
		Modality:         modality,
		InputModalities:  normalize.ModalitySets(sets[0]),
		OutputModalities: normalize.ModalitySets(sets[1]),
		Pricing:          pricing,
		ContextLength:    ctxLen,
		Provider:         normalize.Provider(m.ID, m.OwnedBy),
		Family:           normalize.Family(m.ID, m.OwnedBy),
	}
}

// bestOffer picks the cheapest live provider offer by input rate, carrying
// its context length along.
func bestOffer(providers []provider) (input, output float64, ctxLen int) {
	for _, p := range providers {
		if p.Status != "live" || p.Pricing == nil || p.Pricing.Input <= 0 {
			continue
		}
		if input == 0 || p.Pricing.Input < input {
			input = p.Pricing.Input
			output = p.Pricing.Output
			ctxLen = p.ContextLength
		}
	}
	return input, output, ctxLen
}
