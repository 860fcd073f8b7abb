package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// WikidataClient fills publisher and publication metadata gaps via the
// public SPARQL endpoint.
type WikidataClient struct {
	endpoint   string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

func NewWikidataClient() *WikidataClient {
	return &WikidataClient{
		endpoint:   "https://query.wikidata.org/sparql",
		http:       &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		maxRetries: 3,
	}
}

type sparqlResponse struct {
	Results struct {
		Bindings []map[string]struct {
			Value string `json:"value"`
		} `json:"bindings"`
	} `json:"results"`
}

func (c *WikidataClient) query(ctx context.Context, sparql string) (sparqlResponse, error) {
	params := url.Values{}
	params.Set("query", sparql)
	params.Set("format", "json")
	u := c.endpoint + "?" + params.Encode()

	var out sparqlResponse
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return out, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return out, err
		}
		req.Header.Set("Accept", "application/sparql-results+json")
		req.Header.Set("User-Agent", "OctivaryCatalog/1.0 (metadata-only)")

		resp, err := c.http.Do(req)
		if err == nil {
			switch resp.StatusCode {
			case http.StatusTooManyRequests,
				http.StatusInternalServerError,
				http.StatusBadGateway,
				http.StatusServiceUnavailable,
				http.StatusGatewayTimeout:
				io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
				resp.Body.Close()
				err = fmt.Errorf("retryable status %d", resp.StatusCode)
			default:
				if resp.StatusCode < 200 || resp.StatusCode >= 300 {
					resp.Body.Close()
					return out, &statusError{status: resp.StatusCode}
				}
				decodeErr := json.NewDecoder(resp.Body).Decode(&out)
				resp.Body.Close()
				return out, decodeErr
			}
		}
		if attempt >= c.maxRetries {
			return out, err
		}
		backoff := time.Duration(1<<(attempt-1)) * time.Second
		if backoff > 8*time.Second {
			backoff = 8 * time.Second
		}
		if err := sleepCtx(ctx, backoff); err != nil {
			return out, err
		}
	}
}

type WikidataInfo struct {
	SourceURL   string
	Publisher   string
	PublishDate string
	Language    string
}

// LookupISBN returns whatever edition metadata Wikidata has for either
// ISBN form. A zero value means no match.
func (c *WikidataClient) LookupISBN(ctx context.Context, isbn13, isbn10 string) (WikidataInfo, error) {
	var conditions []string
	if isbn13 != "" {
		conditions = append(conditions, fmt.Sprintf(`{ ?item wdt:P957 %q. }`, isbn13))
	}
	if isbn10 != "" {
		conditions = append(conditions, fmt.Sprintf(`{ ?item wdt:P212 %q. }`, isbn10))
	}
	if len(conditions) == 0 {
		return WikidataInfo{}, nil
	}

	sparql := "SELECT ?item ?itemLabel ?publisherLabel ?publicationDate ?languageLabel WHERE {" +
		strings.Join(conditions, " UNION ") +
		" OPTIONAL { ?item wdt:P123 ?publisher. }" +
		" OPTIONAL { ?item wdt:P577 ?publicationDate. }" +
		" OPTIONAL { ?item wdt:P407 ?language. }" +
		` SERVICE wikibase:label { bd:serviceParam wikibase:language "en". }` +
		" } LIMIT 1"

	data, err := c.query(ctx, sparql)
	if err != nil {
		return WikidataInfo{}, err
	}
	if len(data.Results.Bindings) == 0 {
		return WikidataInfo{}, nil
	}
	row := data.Results.Bindings[0]
	return WikidataInfo{
		SourceURL:   row["item"].Value,
		Publisher:   row["publisherLabel"].Value,
		PublishDate: row["publicationDate"].Value,
		Language:    row["languageLabel"].Value,
	}, nil
}
