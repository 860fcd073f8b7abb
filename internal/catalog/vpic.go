package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// VPICClient pulls makes and models from the NHTSA vPIC API. The API is
// free but rate limited, so requests are throttled and 429/5xx responses
// retried with backoff.
type VPICClient struct {
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	maxBackoff time.Duration
}

type VPICOption func(*VPICClient)

func WithVPICBaseURL(u string) VPICOption {
	return func(c *VPICClient) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithVPICRetries(n int) VPICOption {
	return func(c *VPICClient) { c.maxRetries = n }
}

func WithVPICThrottle(interval time.Duration) VPICOption {
	return func(c *VPICClient) { c.limiter = rate.NewLimiter(rate.Every(interval), 1) }
}

func NewVPICClient(opts ...VPICOption) *VPICClient {
	c := &VPICClient{
		baseURL:    "https://vpic.nhtsa.dot.gov/api/vehicles",
		http:       &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		maxRetries: 5,
		backoff:    time.Second,
		maxBackoff: 16 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *VPICClient) requestJSON(ctx context.Context, path string, out any) error {
	u := c.baseURL + "/" + strings.TrimLeft(path, "/")
	if strings.Contains(u, "?") {
		u += "&format=json"
	} else {
		u += "?format=json"
	}

	backoff := c.backoff
	for attempt := 1; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			if attempt > c.maxRetries {
				return err
			}
			if err := sleepCtx(ctx, backoff); err != nil {
				return err
			}
			backoff = minDuration(backoff*2, c.maxBackoff)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			retryAfter := resp.Header.Get("Retry-After")
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			if attempt > c.maxRetries {
				return fmt.Errorf("vpic request failed: status %d", resp.StatusCode)
			}
			wait := backoff
			if retryAfter != "" {
				if secs, err := strconv.ParseFloat(retryAfter, 64); err == nil {
					wait = time.Duration(secs * float64(time.Second))
				}
			}
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			backoff = minDuration(backoff*2, c.maxBackoff)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			resp.Body.Close()
			return &statusError{status: resp.StatusCode}
		}

		decodeErr := json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if decodeErr != nil {
			if attempt > c.maxRetries {
				return decodeErr
			}
			if err := sleepCtx(ctx, backoff); err != nil {
				return err
			}
			backoff = minDuration(backoff*2, c.maxBackoff)
			continue
		}
		return nil
	}
}

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.status)
}

type vpicResponse struct {
	Results []map[string]any `json:"Results"`
}

// GetMakes returns all make names, deduplicated and sorted.
func (c *VPICClient) GetMakes(ctx context.Context) ([]string, error) {
	var data vpicResponse
	if err := c.requestJSON(ctx, "GetAllMakes", &data); err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var makes []string
	for _, entry := range data.Results {
		name := strings.TrimSpace(fmt.Sprint(entry["Make_Name"]))
		if name == "" || name == "<nil>" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		makes = append(makes, name)
	}
	sort.Strings(makes)
	return makes, nil
}

type VPICModel struct {
	ModelName   string
	VehicleType string
}

func (c *VPICClient) GetModelsForMakeYear(ctx context.Context, makeName string, year int) ([]VPICModel, error) {
	path := fmt.Sprintf("GetModelsForMakeYear/make/%s/modelyear/%d", url.PathEscape(makeName), year)
	var data vpicResponse
	if err := c.requestJSON(ctx, path, &data); err != nil {
		var se *statusError
		if errors.As(err, &se) && se.status == http.StatusNotFound {
			return nil, nil
		}
		// a handful of makes return non-JSON bodies; treat those as empty
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, nil
		}
		return nil, err
	}

	seen := make(map[string]struct{})
	var models []VPICModel
	for _, entry := range data.Results {
		name := strings.TrimSpace(fmt.Sprint(entry["Model_Name"]))
		if name == "" || name == "<nil>" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		vehicleType, _ := entry["VehicleTypeName"].(string)
		models = append(models, VPICModel{ModelName: name, VehicleType: vehicleType})
	}
	return models, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
