package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"octivary-engine/internal/config"
)

func slugify(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = nonAlnumRE.ReplaceAllString(normalized, "-")
	return strings.Trim(normalized, "-")
}

func coerceList(value any) []string {
	if value == nil {
		return nil
	}
	if list, ok := value.([]any); ok {
		var out []string
		for _, item := range list {
			if item == nil {
				continue
			}
			s := strings.TrimSpace(paramString(item))
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	s := strings.TrimSpace(paramString(value))
	if s == "" {
		return nil
	}
	return []string{s}
}

func extractRange(value any) (*float64, *float64) {
	obj, ok := value.(map[string]any)
	if !ok {
		return nil, nil
	}
	return parseBound(obj["min"]), parseBound(obj["max"])
}

func parseBound(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case int:
		f := float64(n)
		return &f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

func mergeQuery(base string, extras []string) string {
	var parts []string
	if strings.TrimSpace(base) != "" {
		parts = append(parts, strings.TrimSpace(base))
	}
	for _, term := range extras {
		if cleaned := strings.TrimSpace(term); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	return strings.Join(parts, " ")
}

func paramString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		if s {
			return "true"
		}
		return "false"
	}
	return fmt.Sprint(v)
}

// BuildReverbParams translates a filter selection into Reverb listing
// query parameters. Multi-valued makes and conditions use the []-suffixed
// array form; single-term model and finish filters fold into the query.
func BuildReverbParams(fc *config.FilterConfig, query, categoryUUID string, page, perPage int, filters map[string]any) url.Values {
	params := url.Values{}
	presetQuery := ""

	if fc != nil {
		for key, value := range fc.PresetFilters {
			if value == nil {
				continue
			}
			s := paramString(value)
			if s == "" {
				continue
			}
			if key == "query" {
				presetQuery = s
			}
			params.Set(key, s)
		}
	}

	if categoryUUID != "" {
		params.Set("category_uuid", categoryUUID)
	}

	var extraTerms []string
	if query != "" {
		extraTerms = append(extraTerms, query)
	}
	extraTerms = append(extraTerms, coerceList(filters["description"])...)
	if modelTerms := coerceList(filters["model"]); len(modelTerms) == 1 {
		extraTerms = append(extraTerms, modelTerms[0])
	}
	if finishTerms := coerceList(filters["finish"]); len(finishTerms) == 1 {
		extraTerms = append(extraTerms, finishTerms[0])
	}
	if queryTerms := mergeQuery(presetQuery, extraTerms); queryTerms != "" {
		params.Set("query", queryTerms)
	}

	if makes := coerceList(filters["make"]); len(makes) == 1 {
		params.Set("make", makes[0])
	} else if len(makes) > 1 {
		params["make[]"] = makes
	}

	var conditions []string
	for _, entry := range coerceList(filters["condition_display"]) {
		conditions = append(conditions, slugify(entry))
	}
	if len(conditions) == 1 {
		params.Set("condition", conditions[0])
	} else if len(conditions) > 1 {
		params["condition[]"] = conditions
	}

	priceMin, priceMax := extractRange(filters["price"])
	if priceMin != nil {
		params.Set("price_min", strconv.FormatFloat(*priceMin, 'f', -1, 64))
	}
	if priceMax != nil {
		params.Set("price_max", strconv.FormatFloat(*priceMax, 'f', -1, 64))
	}

	yearMin, yearMax := extractRange(filters["year"])
	if yearMin != nil {
		params.Set("year_min", strconv.Itoa(int(*yearMin)))
	}
	if yearMax != nil {
		params.Set("year_max", strconv.Itoa(int(*yearMax)))
	}

	if shipping, ok := filters["free_expedited_shipping"].(bool); ok && shipping {
		params.Set("free_expedited_shipping", "true")
	}

	if perPage < 1 {
		perPage = 1
	} else if perPage > 50 {
		perPage = 50
	}
	if page < 1 {
		page = 1
	}
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))

	return params
}

// UpstreamError carries a non-2xx response from the listings provider so
// the HTTP layer can forward the original status.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}

type Reverb struct {
	http    *http.Client
	baseURL string
}

func NewReverb(cfg config.Reverb) *Reverb {
	baseURL := os.Getenv("PROVIDER_REVERB_V1_BASE_URL")
	if baseURL == "" {
		baseURL = cfg.BaseURL
	}
	return &Reverb{
		http:    &http.Client{Timeout: 12 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// FetchListings proxies a listings search to Reverb and flattens each
// listing's HTML description into description_text.
func (r *Reverb) FetchListings(ctx context.Context, params url.Values) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/listings?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept-Version", "3.0")
	if apiKey := os.Getenv("PROVIDER_REVERB_V1_API_KEY"); apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &UpstreamError{Status: resp.StatusCode, Body: string(body)}
	}

	var data map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}

	if listings, ok := data["listings"].([]any); ok {
		for _, entry := range listings {
			listing, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			if html, ok := listing["description"].(string); ok && html != "" {
				listing["description_text"] = DescriptionText(html)
			}
		}
	}
	return data, nil
}

// DescriptionText strips listing description HTML down to plain text.
func DescriptionText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(html)
	}
	text := doc.Text()
	return strings.Join(strings.Fields(text), " ")
}
