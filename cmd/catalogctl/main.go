package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"octivary-engine/internal/catalog"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: catalogctl <command> [flags]

commands:
  vehicles   build the vehicle catalog from the NHTSA vPIC API
  bibles     build the Bible edition catalog from Open Library`)
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	zl, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer zl.Sync()
	log := zl.Sugar()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch os.Args[1] {
	case "vehicles":
		err = runVehicles(ctx, log, os.Args[2:])
	case "bibles":
		err = runBibles(ctx, log, os.Args[2:])
	default:
		usage()
	}
	if err != nil {
		log.Fatalw("build failed", "err", err)
	}
}

func runVehicles(ctx context.Context, log *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("vehicles", flag.ExitOnError)
	opts := catalog.VehicleBuildOptions{}
	fs.StringVar(&opts.DBPath, "db", "vehicles_catalog.db", "sqlite database path")
	fs.IntVar(&opts.Years, "years", 20, "how many model years back to fetch")
	fs.StringVar(&opts.ExportJSON, "export-json", "", "also export the catalog to this JSON file")
	fs.IntVar(&opts.MaxZeroStreak, "max-zero-streak", 10, "skip a make after this many consecutive years with no models")
	fs.DurationVar(&opts.Throttle, "throttle", 200*time.Millisecond, "minimum delay between vPIC requests")
	fs.IntVar(&opts.MaxRetries, "max-retries", 5, "retries per vPIC request")
	fs.IntVar(&opts.FetchWorkers, "workers", 4, "concurrent model-list fetches")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return catalog.BuildVehicles(ctx, log, opts)
}

func runBibles(ctx context.Context, log *zap.SugaredLogger, args []string) error {
	fs := flag.NewFlagSet("bibles", flag.ExitOnError)
	opts := catalog.BibleBuildOptions{}
	fs.StringVar(&opts.DBPath, "db", "bible_catalog.db", "sqlite database path")
	fs.IntVar(&opts.MaxResultsPerQuery, "max-results", 200, "maximum results to take per search query")
	fs.IntVar(&opts.MaxQueries, "max-queries", 50, "maximum search queries to run")
	fs.StringVar(&opts.SeedTranslations, "translations", "KJV,NKJV,ESV,NIV,NLT,NASB,CSB", "comma-separated translation codes to seed")
	fs.BoolVar(&opts.EnableWikidata, "wikidata", false, "enrich listings via Wikidata SPARQL lookups")
	fs.StringVar(&opts.ExportJSON, "export-json", "", "also export the catalog to this JSON file")
	fs.BoolVar(&opts.RefreshExisting, "refresh", false, "re-fetch listings already in the database")
	fs.IntVar(&opts.RecentYears, "recent-years", 0, "only keep editions published in the last N years (0 = no limit)")
	fs.BoolVar(&opts.NoResume, "no-resume", false, "ignore saved progress and start from the first query")
	if err := fs.Parse(args); err != nil {
		return err
	}
	return catalog.BuildBibles(ctx, log, opts)
}
