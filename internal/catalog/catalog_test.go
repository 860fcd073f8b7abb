package catalog

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeISBN(t *testing.T) {
	assert.Equal(t, "9780310449232", NormalizeISBN("978-0-310-44923-2"))
	assert.Equal(t, "031044923X", NormalizeISBN("0-310-44923-x"))
	assert.Equal(t, "", NormalizeISBN("12345"))
	assert.Equal(t, "", NormalizeISBN(""))
}

func TestISBN10To13(t *testing.T) {
	assert.Equal(t, "9780306406157", ISBN10To13("0306406152"))
	assert.Equal(t, "", ISBN10To13("not-an-isbn"))
}

func TestComputeYears(t *testing.T) {
	assert.Equal(t, []int{2026, 2025, 2024}, computeYears(2026, 3))
}

func TestInferBodyStyle(t *testing.T) {
	assert.Equal(t, "Pickup truck", inferBodyStyle("F-150 Pickup", "Truck"))
	assert.Equal(t, "Sedan", inferBodyStyle("Accord Sedan", ""))
	assert.Equal(t, "Convertible", inferBodyStyle("911 Cabriolet", ""))
	assert.Equal(t, "", inferBodyStyle("Gold Wing", "Motorcycle"))
	assert.Equal(t, "", inferBodyStyle("Model 3", ""))
}

func TestIsProbableScripture(t *testing.T) {
	assert.True(t, isProbableScripture("Holy Bible", "", ""))
	assert.True(t, isProbableScripture("The New Testament", "pocket edition", ""))
	assert.False(t, isProbableScripture("Bible Study Workbook", "", ""))
	assert.False(t, isProbableScripture("Field Guide to Birds", "", ""))
	assert.False(t, isProbableScripture("", "", ""))
}

func TestExtractPublishYear(t *testing.T) {
	assert.Equal(t, 2019, extractPublishYear("March 2019"))
	assert.Equal(t, 2021, extractPublishYear("reprinted 2021, first published 1998"))
	assert.Equal(t, 2005, extractPublishYear(float64(2005)))
	assert.Equal(t, 0, extractPublishYear("undated"))
}

func TestVehicleDBRoundTrip(t *testing.T) {
	db, err := OpenVehicleDB(filepath.Join(t.TempDir(), "vehicles.db"))
	require.NoError(t, err)
	defer db.Close()

	makeID, err := db.EnsureMake("Honda")
	require.NoError(t, err)
	again, err := db.EnsureMake("Honda")
	require.NoError(t, err)
	assert.Equal(t, makeID, again)

	modelID, err := db.EnsureModel(makeID, "Civic Sedan")
	require.NoError(t, err)
	require.NoError(t, db.InsertModelYear(modelID, 2023, "", inferBodyStyle("Civic Sedan", "")))
	// second insert backfills the missing vehicle type
	require.NoError(t, db.InsertModelYear(modelID, 2023, "Passenger Car", "Sedan"))

	counts, err := db.Counts()
	require.NoError(t, err)
	assert.Equal(t, VehicleCounts{Makes: 1, Models: 1, ModelYears: 1}, counts)

	out := filepath.Join(t.TempDir(), "catalog.json")
	n, err := db.ExportJSON(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	var entries []VehicleEntry
	require.NoError(t, json.Unmarshal(raw, &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "2023-Honda-Civic Sedan", entries[0].ID)
	require.NotNil(t, entries[0].VehicleType)
	assert.Equal(t, "Passenger Car", *entries[0].VehicleType)
	assert.Equal(t, "Sedan", *entries[0].BodyStyle)
}

func TestBibleDBUpsertFillsGaps(t *testing.T) {
	db, err := OpenBibleDB(filepath.Join(t.TempDir(), "bibles.db"))
	require.NoError(t, err)
	defer db.Close()

	id, err := db.UpsertListing(BibleListing{
		ISBN13:    "9780306406157",
		Title:     "Holy Bible",
		Source:    "openlibrary",
		SourceKey: "/books/OL1M",
	})
	require.NoError(t, err)
	require.NotZero(t, id)

	// same ISBN updates in place and keeps existing values when empty
	again, err := db.UpsertListing(BibleListing{
		ISBN13:      "9780306406157",
		Title:       "",
		Translation: "ESV",
		Source:      "openlibrary",
		SourceKey:   "/books/OL1M",
	})
	require.NoError(t, err)
	assert.Equal(t, id, again)
	assert.True(t, db.ListingExists("9780306406157", ""))

	features, evidence := ParseFeatures([]string{"ESV study bible with concordance"})
	features["feature_evidence"] = FeatureEvidenceJSON(evidence)
	require.NoError(t, db.UpsertFeatures(id, features))
	require.NoError(t, db.UpsertFeatures(id, features))

	out := filepath.Join(t.TempDir(), "bibles.json")
	n, err := db.ExportJSON(out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestBuildQueriesDedupes(t *testing.T) {
	queries := buildQueries([]string{"KJV", "kjv", "", "ESV"})
	assert.Contains(t, queries, "study bible")
	assert.Contains(t, queries, "KJV bible")
	assert.Contains(t, queries, "ESV bible")
}
