package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FilterSpec describes one filterable section of a catalog config.
type FilterSpec struct {
	Key     string   `json:"key"`
	Label   string   `json:"label,omitempty"`
	Type    string   `json:"type"`
	Path    string   `json:"path,omitempty"`
	Options []string `json:"options,omitempty"`
}

// FilterSection groups filter keys into a named UI section. The grouping
// only matters for deriving a default section order.
type FilterSection struct {
	Key     string   `json:"key,omitempty"`
	Label   string   `json:"label,omitempty"`
	Filters []string `json:"filters,omitempty"`
}

type DataSource struct {
	Type        string `json:"type"`
	ProviderKey string `json:"provider_key"`
}

type Dataset struct {
	DataSource DataSource `json:"data_source"`
}

type FilterConfig struct {
	Key           string             `json:"key,omitempty"`
	Title         string             `json:"title,omitempty"`
	Filters       []FilterSpec       `json:"filters"`
	Sections      []FilterSection    `json:"sections,omitempty"`
	PresetFilters map[string]any     `json:"preset_filters,omitempty"`
	Datasets      map[string]Dataset `json:"datasets,omitempty"`
}

// PrimarySource returns the primary dataset's data source, zero-valued if
// the config doesn't declare one.
func (fc FilterConfig) PrimarySource() DataSource {
	return fc.Datasets["primary"].DataSource
}

// LoadFilterConfig reads config/filters/<key>.json under dir.
func LoadFilterConfig(dir, configKey string) (FilterConfig, error) {
	var fc FilterConfig
	if strings.ContainsAny(configKey, `/\`) {
		return fc, fmt.Errorf("config not found for %s", configKey)
	}
	b, err := os.ReadFile(filepath.Join(dir, configKey+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return fc, fmt.Errorf("config not found for %s", configKey)
		}
		return fc, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse filter config %s: %w", configKey, err)
	}
	if fc.Key == "" {
		fc.Key = configKey
	}
	return fc, nil
}

// ListConfigKeys returns the available filter config keys, sorted.
func ListConfigKeys(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(keys)
	return keys, nil
}
