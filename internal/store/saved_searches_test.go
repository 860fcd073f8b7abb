package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func TestSavedSearchRoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created, err := CreateSavedSearch(ctx, db.Pool, "user-1", SavedSearchCreate{
		CategoryKey: "guitars",
		ConfigKey:   "electric_guitars_v1",
		PriorityPayload: map[string]any{
			"selected_order": map[string]any{"brand": []any{"Fender"}},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.SearchID)
	assert.NotNil(t, created.FiltersPayload)

	got, err := GetSavedSearch(ctx, db.Pool, created.SearchID)
	require.NoError(t, err)
	assert.Equal(t, "electric_guitars_v1", got.ConfigKey)
	assert.Equal(t, created.PriorityPayload, got.PriorityPayload)
	assert.Equal(t, created.CreatedAt.Unix(), got.CreatedAt.Unix())
}

func TestListSavedSearchesScopedToUser(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := CreateSavedSearch(ctx, db.Pool, "user-1", SavedSearchCreate{CategoryKey: "a", ConfigKey: "c1"})
	require.NoError(t, err)
	_, err = CreateSavedSearch(ctx, db.Pool, "user-2", SavedSearchCreate{CategoryKey: "b", ConfigKey: "c2"})
	require.NoError(t, err)

	mine, err := ListSavedSearches(ctx, db.Pool, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "c1", mine[0].ConfigKey)

	none, err := ListSavedSearches(ctx, db.Pool, "user-3")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteSavedSearch(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	created, err := CreateSavedSearch(ctx, db.Pool, "user-1", SavedSearchCreate{CategoryKey: "a", ConfigKey: "c1"})
	require.NoError(t, err)

	deleted, err := DeleteSavedSearch(ctx, db.Pool, created.SearchID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = DeleteSavedSearch(ctx, db.Pool, created.SearchID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = GetSavedSearch(ctx, db.Pool, created.SearchID)
	assert.ErrorIs(t, err, ErrNotFound)
}
