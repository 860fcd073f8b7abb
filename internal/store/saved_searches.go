package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("saved search not found")

type SavedSearch struct {
	SearchID        string         `json:"search_id"`
	UserID          string         `json:"user_id"`
	CategoryKey     string         `json:"category_key"`
	ConfigKey       string         `json:"config_key"`
	PriorityPayload map[string]any `json:"priority_payload"`
	FiltersPayload  map[string]any `json:"filters_payload"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type SavedSearchCreate struct {
	CategoryKey     string         `json:"category_key"`
	ConfigKey       string         `json:"config_key"`
	PriorityPayload map[string]any `json:"priority_payload"`
	FiltersPayload  map[string]any `json:"filters_payload"`
}

func ListSavedSearches(ctx context.Context, db *sql.DB, userID string) ([]SavedSearch, error) {
	rows, err := db.QueryContext(ctx, `
SELECT search_id, user_id, category_key, config_key, priority_payload, filters_payload, created_at, updated_at
FROM saved_searches
WHERE user_id = ?
ORDER BY created_at;`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []SavedSearch{}
	for rows.Next() {
		s, err := scanSavedSearch(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func GetSavedSearch(ctx context.Context, db *sql.DB, searchID string) (SavedSearch, error) {
	row := db.QueryRowContext(ctx, `
SELECT search_id, user_id, category_key, config_key, priority_payload, filters_payload, created_at, updated_at
FROM saved_searches
WHERE search_id = ?;`, searchID)

	s, err := scanSavedSearch(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedSearch{}, ErrNotFound
	}
	return s, err
}

func CreateSavedSearch(ctx context.Context, db *sql.DB, userID string, payload SavedSearchCreate) (SavedSearch, error) {
	now := time.Now().UTC()
	s := SavedSearch{
		SearchID:        uuid.NewString(),
		UserID:          userID,
		CategoryKey:     payload.CategoryKey,
		ConfigKey:       payload.ConfigKey,
		PriorityPayload: payload.PriorityPayload,
		FiltersPayload:  payload.FiltersPayload,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if s.PriorityPayload == nil {
		s.PriorityPayload = map[string]any{}
	}
	if s.FiltersPayload == nil {
		s.FiltersPayload = map[string]any{}
	}

	priorityJSON, err := json.Marshal(s.PriorityPayload)
	if err != nil {
		return SavedSearch{}, err
	}
	filtersJSON, err := json.Marshal(s.FiltersPayload)
	if err != nil {
		return SavedSearch{}, err
	}

	_, err = db.ExecContext(ctx, `
INSERT INTO saved_searches (search_id, user_id, category_key, config_key, priority_payload, filters_payload, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?);`,
		s.SearchID, s.UserID, s.CategoryKey, s.ConfigKey,
		string(priorityJSON), string(filtersJSON),
		now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return SavedSearch{}, fmt.Errorf("insert saved search: %w", err)
	}
	return s, nil
}

func DeleteSavedSearch(ctx context.Context, db *sql.DB, searchID string) (bool, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM saved_searches WHERE search_id = ?;`, searchID)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func scanSavedSearch(scan func(dest ...any) error) (SavedSearch, error) {
	var s SavedSearch
	var priorityJSON, filtersJSON, createdAt, updatedAt string
	if err := scan(
		&s.SearchID,
		&s.UserID,
		&s.CategoryKey,
		&s.ConfigKey,
		&priorityJSON,
		&filtersJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return SavedSearch{}, err
	}
	_ = json.Unmarshal([]byte(priorityJSON), &s.PriorityPayload)
	_ = json.Unmarshal([]byte(filtersJSON), &s.FiltersPayload)
	s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	s.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return s, nil
}
