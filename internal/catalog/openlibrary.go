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

const openLibraryFields = "title,subtitle,isbn,edition_key,language,publisher,first_publish_year,subject"

// OpenLibraryClient searches Open Library and fetches edition metadata
// by ISBN.
type OpenLibraryClient struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
}

func NewOpenLibraryClient() *OpenLibraryClient {
	return &OpenLibraryClient{
		baseURL:    "https://openlibrary.org",
		http:       &http.Client{Timeout: 20 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		maxRetries: 3,
	}
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
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
					return &statusError{status: resp.StatusCode}
				}
				decodeErr := json.NewDecoder(resp.Body).Decode(out)
				resp.Body.Close()
				return decodeErr
			}
		}
		if attempt >= c.maxRetries {
			return err
		}
		backoff := time.Duration(1<<(attempt-1)) * time.Second
		if backoff > 8*time.Second {
			backoff = 8 * time.Second
		}
		if err := sleepCtx(ctx, backoff); err != nil {
			return err
		}
	}
}

type OpenLibrarySearch struct {
	NumFound int              `json:"numFound"`
	Docs     []map[string]any `json:"docs"`
}

func (c *OpenLibraryClient) Search(ctx context.Context, query string, page, limit int) (OpenLibrarySearch, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("page", fmt.Sprint(page))
	params.Set("limit", fmt.Sprint(limit))
	params.Set("fields", openLibraryFields)

	var out OpenLibrarySearch
	err := c.getJSON(ctx, "/search.json", params, &out)
	return out, err
}

// Edition is an ISBN lookup result; Source records which endpoint
// produced it since the two shapes differ.
type Edition struct {
	Source string
	Data   map[string]any
}

// GetEditionByISBN tries the richer books API first, then falls back to
// the raw edition record. A nil edition means the ISBN is unknown.
func (c *OpenLibraryClient) GetEditionByISBN(ctx context.Context, isbn string) (*Edition, error) {
	bibkey := "ISBN:" + isbn
	params := url.Values{}
	params.Set("bibkeys", bibkey)
	params.Set("format", "json")
	params.Set("jscmd", "data")

	var books map[string]map[string]any
	if err := c.getJSON(ctx, "/api/books", params, &books); err != nil {
		return nil, err
	}
	if data, ok := books[bibkey]; ok && len(data) > 0 {
		return &Edition{Source: "books", Data: data}, nil
	}

	var edition map[string]any
	if err := c.getJSON(ctx, "/isbn/"+strings.TrimSpace(isbn)+".json", nil, &edition); err != nil {
		return nil, nil
	}
	return &Edition{Source: "isbn", Data: edition}, nil
}
