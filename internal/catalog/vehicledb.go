package catalog

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const vehicleSource = "NHTSA_vPIC"

// VehicleDB holds the make/model/year catalog built from vPIC.
type VehicleDB struct {
	db *sql.DB
}

func OpenVehicleDB(path string) (*VehicleDB, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	v := &VehicleDB{db: db}
	if err := v.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return v, nil
}

func (v *VehicleDB) Close() error {
	if v == nil || v.db == nil {
		return nil
	}
	return v.db.Close()
}

func (v *VehicleDB) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS makes (
  make_id INTEGER PRIMARY KEY AUTOINCREMENT,
  make_name TEXT NOT NULL UNIQUE
);`,
		`CREATE TABLE IF NOT EXISTS models (
  model_id INTEGER PRIMARY KEY AUTOINCREMENT,
  make_id INTEGER NOT NULL,
  model_name TEXT NOT NULL,
  UNIQUE(make_id, model_name),
  FOREIGN KEY(make_id) REFERENCES makes(make_id)
);`,
		`CREATE TABLE IF NOT EXISTS model_years (
  model_year_id INTEGER PRIMARY KEY AUTOINCREMENT,
  model_id INTEGER NOT NULL,
  year INTEGER NOT NULL,
  vehicle_type TEXT NULL,
  body_style TEXT NULL,
  source TEXT NOT NULL DEFAULT 'NHTSA_vPIC',
  created_at TEXT NOT NULL,
  UNIQUE(model_id, year),
  FOREIGN KEY(model_id) REFERENCES models(model_id)
);`,
		`CREATE TABLE IF NOT EXISTS progress (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS idx_models_make_id ON models(make_id);`,
		`CREATE INDEX IF NOT EXISTS idx_model_years_year ON model_years(year);`,
		`DROP VIEW IF EXISTS v_catalog;`,
		`CREATE VIEW v_catalog AS
SELECT
  model_years.year AS year,
  makes.make_name AS make_name,
  models.model_name AS model_name,
  model_years.vehicle_type AS vehicle_type,
  model_years.body_style AS body_style,
  model_years.source AS source
FROM model_years
JOIN models ON models.model_id = model_years.model_id
JOIN makes ON makes.make_id = models.make_id;`,
	}
	for _, stmt := range stmts {
		if _, err := v.db.Exec(stmt); err != nil {
			return fmt.Errorf("vehicle schema: %w", err)
		}
	}
	return nil
}

func (v *VehicleDB) SetProgress(key, value string) error { return setProgress(v.db, key, value) }

func (v *VehicleDB) IsYearCompleted(year int) bool {
	_, ok := getProgress(v.db, fmt.Sprintf("completed_year_%d", year))
	return ok
}

func (v *VehicleDB) EnsureMake(makeName string) (int64, error) {
	if _, err := v.db.Exec(`INSERT OR IGNORE INTO makes (make_name) VALUES (?);`, makeName); err != nil {
		return 0, err
	}
	var id int64
	err := v.db.QueryRow(`SELECT make_id FROM makes WHERE make_name = ?;`, makeName).Scan(&id)
	return id, err
}

func (v *VehicleDB) EnsureModel(makeID int64, modelName string) (int64, error) {
	if _, err := v.db.Exec(`INSERT OR IGNORE INTO models (make_id, model_name) VALUES (?, ?);`, makeID, modelName); err != nil {
		return 0, err
	}
	var id int64
	err := v.db.QueryRow(`SELECT model_id FROM models WHERE make_id = ? AND model_name = ?;`, makeID, modelName).Scan(&id)
	return id, err
}

// InsertModelYear records a model/year pair, backfilling vehicle type and
// body style on rows that were first seen without them.
func (v *VehicleDB) InsertModelYear(modelID int64, year int, vehicleType, bodyStyle string) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)
	_, err := v.db.Exec(`
INSERT OR IGNORE INTO model_years (model_id, year, vehicle_type, body_style, source, created_at)
VALUES (?, ?, ?, ?, ?, ?);`,
		modelID, year, nullable(vehicleType), nullable(bodyStyle), vehicleSource, createdAt)
	if err != nil {
		return err
	}
	if vehicleType != "" {
		if _, err := v.db.Exec(`
UPDATE model_years SET vehicle_type = ?
WHERE model_id = ? AND year = ? AND (vehicle_type IS NULL OR vehicle_type = '');`,
			vehicleType, modelID, year); err != nil {
			return err
		}
	}
	if bodyStyle != "" {
		if _, err := v.db.Exec(`
UPDATE model_years SET body_style = ?
WHERE model_id = ? AND year = ? AND (body_style IS NULL OR body_style = '');`,
			bodyStyle, modelID, year); err != nil {
			return err
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type VehicleCounts struct {
	Makes      int `json:"makes"`
	Models     int `json:"models"`
	ModelYears int `json:"model_years"`
}

func (v *VehicleDB) Counts() (VehicleCounts, error) {
	var c VehicleCounts
	if err := v.db.QueryRow(`SELECT COUNT(*) FROM makes;`).Scan(&c.Makes); err != nil {
		return c, err
	}
	if err := v.db.QueryRow(`SELECT COUNT(*) FROM models;`).Scan(&c.Models); err != nil {
		return c, err
	}
	err := v.db.QueryRow(`SELECT COUNT(*) FROM model_years;`).Scan(&c.ModelYears)
	return c, err
}

type VehicleEntry struct {
	ID          string   `json:"id"`
	Year        int      `json:"year"`
	Make        string   `json:"make"`
	Model       string   `json:"model"`
	VehicleType *string  `json:"vehicleType"`
	BodyStyle   *string  `json:"bodyStyle"`
	Source      string   `json:"source"`
	Images      []string `json:"images"`
}

// ExportJSON writes the flattened catalog view to a JSON file and returns
// the number of records written.
func (v *VehicleDB) ExportJSON(outputPath string) (int, error) {
	rows, err := v.db.Query(`
SELECT year, make_name, model_name, vehicle_type, body_style, source
FROM v_catalog
ORDER BY year DESC, make_name ASC, model_name ASC;`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	records := []VehicleEntry{}
	for rows.Next() {
		var e VehicleEntry
		if err := rows.Scan(&e.Year, &e.Make, &e.Model, &e.VehicleType, &e.BodyStyle, &e.Source); err != nil {
			return 0, err
		}
		e.ID = fmt.Sprintf("%d-%s-%s", e.Year, e.Make, e.Model)
		e.Images = []string{}
		records = append(records, e)
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}

	b, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(outputPath, b, 0o644); err != nil {
		return 0, err
	}
	return len(records), nil
}
