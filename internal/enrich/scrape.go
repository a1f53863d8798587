package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"github.com/everstacklabs/modelscout/internal/normalize"
)

// maxPageBytes bounds a scraped page, checked against Content-Length and
// again while streaming.
const maxPageBytes = 2 << 20 // 2MB

// PageFetcher retrieves normalized rates for one model key. Implemented by
// Scraper; faked in tests.
type PageFetcher interface {
	Fetch(ctx context.Context, key string) ([]Rate, string, error)
}

// Scraper fetches a public model page and extracts structured pricing.
type Scraper struct {
	baseURL string
	client  *http.Client
}

// NewScraper creates a Scraper rooted at baseURL (e.g. https://replicate.com).
func NewScraper(baseURL string, timeout time.Duration) *Scraper {
	return &Scraper{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Fetch retrieves the page for key ("owner/name") and extracts rates.
// Returns the extraction provenance alongside the rates.
func (s *Scraper) Fetch(ctx context.Context, key string) ([]Rate, string, error) {
	pageURL, err := s.pageURL(key)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetching %s: %w", pageURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching %s: status %d", pageURL, resp.StatusCode)
	}
	if resp.ContentLength > maxPageBytes {
		return nil, "", fmt.Errorf("fetching %s: page exceeds %d bytes", pageURL, maxPageBytes)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", pageURL, err)
	}
	if len(body) > maxPageBytes {
		return nil, "", fmt.Errorf("fetching %s: page exceeds %d bytes", pageURL, maxPageBytes)
	}
	if len(body) == 0 {
		return nil, "", fmt.Errorf("fetching %s: empty body", pageURL)
	}

	rates, source := ExtractRates(body)
	if len(rates) == 0 {
		return nil, "", fmt.Errorf("no pricing found on %s", pageURL)
	}
	return rates, source, nil
}

// pageURL validates the key and builds the page URL. HTTPS only; the host
// must be the configured one; path segments are restricted to
// alphanumerics, '.', '_', and '-' so a hostile key cannot inject paths.
func (s *Scraper) pageURL(key string) (string, error) {
	base, err := url.Parse(s.baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if base.Scheme != "https" {
		return "", fmt.Errorf("refusing non-HTTPS base URL %q", s.baseURL)
	}
	if !allowedHost(base.Host) {
		return "", fmt.Errorf("host %q not in allow-list", base.Host)
	}

	owner, name, ok := strings.Cut(key, "/")
	if !ok {
		return "", fmt.Errorf("invalid model key %q", key)
	}
	for _, seg := range []string{owner, name} {
		if !safeSegment(seg) {
			return "", fmt.Errorf("invalid path segment %q in key", seg)
		}
	}
	return s.baseURL + "/" + owner + "/" + name, nil
}

var hostAllowList = map[string]bool{
	"replicate.com":     true,
	"www.replicate.com": true,
}

func allowedHost(host string) bool {
	return hostAllowList[host]
}

func safeSegment(s string) bool {
	if s == "" || s == "." || s == ".." {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '.' || r == '_' || r == '-':
		default:
			return false
		}
	}
	return true
}

// ExtractRates pulls normalized rates out of a model page. Every embedded
// JSON script block is searched for a billing-configuration shape first; the
// looser top-level price string is consulted only when no billing
// configuration exists anywhere on the page. A billing configuration that
// yields no recognized rows means no pricing, not a fallback — a wrong
// price costs more than a missing one.
func ExtractRates(page []byte) ([]Rate, string) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, ""
	}

	var blocks []any
	doc.Find(`script[type="application/json"], script[type="application/ld+json"]`).Each(func(_ int, sel *goquery.Selection) {
		var decoded any
		if err := json.Unmarshal([]byte(sel.Text()), &decoded); err == nil {
			blocks = append(blocks, decoded)
		}
	})

	billingSeen := false
	var rates []Rate
	for _, block := range blocks {
		rows, found := findBillingRows(block)
		if !found {
			continue
		}
		billingSeen = true
		rates = append(rates, rows...)
	}
	if billingSeen {
		return rates, SourceBilling
	}

	for _, block := range blocks {
		if r, ok := findTopLevelPrice(block); ok {
			return []Rate{r}, SourcePage
		}
	}
	return nil, ""
}

// findBillingRows walks decoded JSON looking for a billing-configuration
// object: a map under the key "billing_configuration" or
// "billingConfiguration" holding an "items" array of price rows.
func findBillingRows(node any) ([]Rate, bool) {
	switch n := node.(type) {
	case map[string]any:
		for _, key := range []string{"billing_configuration", "billingConfiguration"} {
			if cfg, ok := n[key].(map[string]any); ok {
				return billingRows(cfg), true
			}
		}
		for _, v := range n {
			if rows, found := findBillingRows(v); found {
				return rows, true
			}
		}
	case []any:
		for _, v := range n {
			if rows, found := findBillingRows(v); found {
				return rows, true
			}
		}
	}
	return nil, false
}

func billingRows(cfg map[string]any) []Rate {
	items, ok := cfg["items"].([]any)
	if !ok {
		return nil
	}
	var rates []Rate
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		text := strings.Join([]string{
			stringField(item, "title"),
			stringField(item, "metric"),
			stringField(item, "description"),
		}, " ")
		amount, ok := priceField(item)
		if !ok {
			continue
		}
		unit, usd, ok := normalize.ParseRate(text, amount)
		if !ok {
			continue
		}
		rates = append(rates, Rate{Unit: unit, USD: usd})
	}
	return rates
}

// findTopLevelPrice looks for a loose "price" string at the top level of a
// decoded block, or one level down under "model".
func findTopLevelPrice(node any) (Rate, bool) {
	m, ok := node.(map[string]any)
	if !ok {
		return Rate{}, false
	}
	if r, ok := priceString(m); ok {
		return r, true
	}
	if model, ok := m["model"].(map[string]any); ok {
		return priceString(model)
	}
	return Rate{}, false
}

func priceString(m map[string]any) (Rate, bool) {
	for _, key := range []string{"price", "pricing"} {
		s, ok := m[key].(string)
		if !ok || s == "" {
			continue
		}
		amount, ok := normalize.ParseDollars(s)
		if !ok {
			continue
		}
		unit, usd, ok := normalize.ParseRate(s, amount)
		if !ok {
			continue
		}
		return Rate{Unit: unit, USD: usd}, true
	}
	return Rate{}, false
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

// priceField reads a row's price as either a "$..." string or a bare number,
// under "unit_price", "price", or "amount".
func priceField(m map[string]any) (decimal.Decimal, bool) {
	for _, key := range []string{"unit_price", "unitPrice", "price", "amount"} {
		switch v := m[key].(type) {
		case string:
			if d, ok := normalize.ParseDollars(v); ok {
				return d, true
			}
			if d, err := decimal.NewFromString(v); err == nil {
				return d, true
			}
		case float64:
			return decimal.NewFromFloat(v), true
		}
	}
	return decimal.Zero, false
}
