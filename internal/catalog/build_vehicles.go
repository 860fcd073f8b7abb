package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type VehicleBuildOptions struct {
	DBPath        string
	Years         int
	ExportJSON    string
	MaxZeroStreak int
	Throttle      time.Duration
	MaxRetries    int
	FetchWorkers  int
}

func (o *VehicleBuildOptions) applyDefaults() {
	if o.DBPath == "" {
		o.DBPath = "vehicles_catalog.db"
	}
	if o.Years <= 0 {
		o.Years = 20
	}
	if o.MaxZeroStreak <= 0 {
		o.MaxZeroStreak = 10
	}
	if o.Throttle <= 0 {
		o.Throttle = 200 * time.Millisecond
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 5
	}
	if o.FetchWorkers <= 0 {
		o.FetchWorkers = 4
	}
}

func computeYears(currentYear, span int) []int {
	years := make([]int, 0, span)
	for y := currentYear; y > currentYear-span; y-- {
		years = append(years, y)
	}
	return years
}

var bodyStyleChecks = []struct {
	label    string
	keywords []string
}{
	{"Pickup truck", []string{"pickup", "pick-up"}},
	{"SUV", []string{"suv", "sport utility"}},
	{"Crossover", []string{"crossover", "cuv"}},
	{"Station wagon", []string{"wagon", "estate"}},
	{"Hatchback", []string{"hatchback"}},
	{"Convertible", []string{"convertible", "cabriolet", "roadster", "spyder", "spider"}},
	{"Coupe", []string{"coupe"}},
	{"Sedan", []string{"sedan", "saloon"}},
}

func inferBodyStyle(modelName, vehicleType string) string {
	if modelName == "" {
		return ""
	}
	if strings.Contains(strings.ToLower(vehicleType), "motorcycle") {
		return ""
	}
	name := strings.ToLower(modelName)
	for _, check := range bodyStyleChecks {
		for _, keyword := range check.keywords {
			if strings.Contains(name, keyword) {
				return check.label
			}
		}
	}
	return ""
}

// BuildVehicles walks the last N model years of the vPIC catalog into a
// local sqlite file. Runs are resumable: completed years are checkpointed
// and makes with a long zero-model streak are skipped for the rest of
// the run. A file lock guards against concurrent builds on the same DB.
func BuildVehicles(ctx context.Context, log *zap.SugaredLogger, opts VehicleBuildOptions) error {
	opts.applyDefaults()

	lock := flock.New(opts.DBPath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire build lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another build is running for %s", opts.DBPath)
	}
	defer lock.Unlock()

	client := NewVPICClient(
		WithVPICRetries(opts.MaxRetries),
		WithVPICThrottle(opts.Throttle),
	)
	db, err := OpenVehicleDB(opts.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	startedAt := time.Now().UTC()
	log.Infow("vehicle build started", "db", opts.DBPath, "years", opts.Years)

	makes, err := client.GetMakes(ctx)
	if err != nil {
		return fmt.Errorf("fetch makes: %w", err)
	}
	makeIDs := make(map[string]int64, len(makes))
	for _, makeName := range makes {
		id, err := db.EnsureMake(makeName)
		if err != nil {
			return err
		}
		makeIDs[makeName] = id
	}

	zeroStreak := make(map[string]int)
	skipped := make(map[string]struct{})
	years := computeYears(time.Now().UTC().Year(), opts.Years)

	for yearIdx, year := range years {
		if db.IsYearCompleted(year) {
			continue
		}

		// fetch concurrently, write in make order so runs stay comparable
		results := make([][]VPICModel, len(makes))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.FetchWorkers)
		for i, makeName := range makes {
			if _, skip := skipped[makeName]; skip {
				continue
			}
			i, makeName := i, makeName
			g.Go(func() error {
				models, err := client.GetModelsForMakeYear(gctx, makeName, year)
				if err != nil {
					return fmt.Errorf("models for %s %d: %w", makeName, year, err)
				}
				results[i] = models
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		for i, makeName := range makes {
			if _, skip := skipped[makeName]; skip {
				continue
			}
			models := results[i]
			log.Debugw("make processed",
				"year", year, "year_progress", fmt.Sprintf("%d/%d", yearIdx+1, len(years)),
				"make", makeName, "models", len(models))

			if len(models) == 0 {
				zeroStreak[makeName]++
				if zeroStreak[makeName] >= opts.MaxZeroStreak {
					skipped[makeName] = struct{}{}
					log.Infow("skipping make", "make", makeName, "zero_streak", zeroStreak[makeName])
				}
				continue
			}
			zeroStreak[makeName] = 0

			for _, model := range models {
				modelID, err := db.EnsureModel(makeIDs[makeName], model.ModelName)
				if err != nil {
					return err
				}
				bodyStyle := inferBodyStyle(model.ModelName, model.VehicleType)
				if err := db.InsertModelYear(modelID, year, model.VehicleType, bodyStyle); err != nil {
					return err
				}
			}
		}

		if err := db.SetProgress(fmt.Sprintf("completed_year_%d", year), "true"); err != nil {
			return err
		}
		log.Infow("year completed", "year", year)
	}

	if err := db.SetProgress("last_run_iso", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}

	counts, err := db.Counts()
	if err != nil {
		return err
	}
	log.Infow("vehicle build finished",
		"makes", counts.Makes, "models", counts.Models, "model_years", counts.ModelYears,
		"elapsed", time.Since(startedAt).Round(time.Second).String())

	if opts.ExportJSON != "" {
		exported, err := db.ExportJSON(opts.ExportJSON)
		if err != nil {
			return fmt.Errorf("export catalog: %w", err)
		}
		log.Infow("catalog exported", "path", opts.ExportJSON, "records", exported)
	}
	return nil
}
