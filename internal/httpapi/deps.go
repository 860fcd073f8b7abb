package httpapi

import (
	"context"
	"database/sql"
	"net/url"
	"sync/atomic"

	"go.uber.org/zap"

	"octivary-engine/internal/cache"
	"octivary-engine/internal/config"
	"octivary-engine/internal/events"
	"octivary-engine/internal/mcda"
	"octivary-engine/internal/ratelimit"
)

type Deps struct {
	Log *zap.SugaredLogger
	DB  *sql.DB

	Hub *events.Hub

	// Atomic store for the live config so /config updates are race-free.
	CfgVal *atomic.Value // stores config.Config

	Cache   *cache.TTL
	Limiter *ratelimit.Keyed
	JWKS    *JWKSCache

	// Listings providers (inject for testability)
	LoadLocalListings func(dataDir, providerKey string) ([]mcda.Record, error)
	FetchGamebrain    func(ctx context.Context, query string, offset, limit int, genreOptions []string) ([]mcda.Record, int, error)
	FetchReverb       func(ctx context.Context, params url.Values) (map[string]any, error)
}

func (d Deps) Cfg() config.Config {
	if v, ok := d.CfgVal.Load().(config.Config); ok {
		return v
	}
	return config.Config{}
}
