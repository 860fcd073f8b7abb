package listings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"octivary-engine/internal/mcda"
)

// fileMap overrides the default <provider_key>.json filename for providers
// whose data files predate the naming convention.
var fileMap = map[string]string{
	"insulin_devices_v1": "insulin_devices.json",
}

type envelope struct {
	Listings []mcda.Record `json:"listings"`
	Products []mcda.Record `json:"products"`
}

// LoadLocal reads the catalog file for a local provider out of dataDir.
// Accepts either a "listings" or a "products" envelope and backfills "id"
// from "product_id" where absent.
func LoadLocal(dataDir, providerKey string) ([]mcda.Record, error) {
	filename := fileMap[providerKey]
	if filename == "" {
		filename = providerKey + ".json"
	}
	path := filepath.Join(dataDir, filename)

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("local data not found: %s", path)
		}
		return nil, err
	}

	var env envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("parse local listings %s: %w", path, err)
	}

	items := env.Listings
	if len(items) == 0 {
		items = env.Products
	}

	out := make([]mcda.Record, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, normalizeListing(item))
	}
	return out, nil
}

func normalizeListing(item mcda.Record) mcda.Record {
	if _, hasID := item["id"]; hasID {
		return item
	}
	productID, hasProductID := item["product_id"]
	if !hasProductID {
		return item
	}
	copied := make(mcda.Record, len(item)+1)
	for k, v := range item {
		copied[k] = v
	}
	copied["id"] = productID
	return copied
}
