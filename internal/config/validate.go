package config

import (
	"errors"
	"fmt"
	"strings"
)

func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if cfg.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttl_seconds must be >= 0")
	}
	if cfg.Cache.MaxEntries <= 0 {
		errs = append(errs, "cache.max_entries must be > 0")
	}
	if cfg.RateLimit.PerMinute <= 0 {
		errs = append(errs, "rate_limit.per_minute must be > 0")
	}
	if cfg.Gamebrain.FetchLimit <= 0 {
		errs = append(errs, "gamebrain.fetch_limit must be > 0")
	}
	if cfg.Gamebrain.ScoreSampleSize <= 0 {
		errs = append(errs, "gamebrain.score_sample_size must be > 0")
	}
	switch strings.ToUpper(strings.TrimSpace(cfg.Gamebrain.HTTPMethod)) {
	case "", "GET", "POST":
	default:
		errs = append(errs, fmt.Sprintf("gamebrain.http_method must be GET or POST, got %q", cfg.Gamebrain.HTTPMethod))
	}
	if cfg.Auth.Required {
		if strings.TrimSpace(cfg.Auth.CognitoUserPoolID) == "" {
			errs = append(errs, "auth.cognito_user_pool_id is required when auth.required=true")
		}
		if strings.TrimSpace(cfg.Auth.CognitoRegion) == "" {
			errs = append(errs, "auth.cognito_region is required when auth.required=true")
		}
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n- " + strings.Join(errs, "\n- "))
	}
	return nil
}
