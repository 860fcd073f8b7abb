package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"

	"octivary-engine/internal/cache"
	"octivary-engine/internal/config"
	"octivary-engine/internal/events"
	"octivary-engine/internal/httpapi"
	"octivary-engine/internal/listings"
	"octivary-engine/internal/provider"
	"octivary-engine/internal/ratelimit"
	"octivary-engine/internal/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	zl, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer zl.Sync()
	log := zl.Sugar()

	// Data dir: use env if provided (a desktop shell can pass one), else local folder.
	dataDir := os.Getenv("OCTIVARY_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		return fmt.Errorf("config bootstrap failed: %w", err)
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", userCfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	var cfgVal atomic.Value
	cfgVal.Store(cfg)

	dbPath := filepath.Join(dataDir, "octivary.db")
	db, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(db.Pool); err != nil {
		return fmt.Errorf("migrate failed: %w", err)
	}

	gamebrain := provider.NewGamebrain(cfg.Gamebrain)
	reverb := provider.NewReverb(cfg.Reverb)

	d := httpapi.Deps{
		Log:               log,
		DB:                db.Pool,
		Hub:               events.NewHub(),
		CfgVal:            &cfgVal,
		Cache:             cache.NewTTL(time.Duration(cfg.Cache.TTLSeconds)*time.Second, cfg.Cache.MaxEntries),
		Limiter:           ratelimit.NewPerMinute(cfg.RateLimit.PerMinute),
		JWKS:              httpapi.NewJWKSCache(),
		LoadLocalListings: listings.LoadLocal,
		FetchGamebrain:    gamebrain.FetchListings,
		FetchReverb:       reverb.FetchListings,
	}

	handler := httpapi.Chain(httpapi.NewMux(d),
		httpapi.Cors(cfg.App.CORSAllowOrigins),
		httpapi.RequestID,
		httpapi.AccessLog(log),
		httpapi.Recover(log),
	)

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Infow("engine listening", "addr", "http://"+addr, "db", dbPath)

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case sig := <-stop:
		log.Infow("shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return err
		}
	}
	return nil
}
