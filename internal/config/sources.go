package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"

	"lamptruth/internal/types"
)

// LoadLocationTable reads the location source table from a JSON file and
// validates it. The file maps location name to its source list; per-location
// entries may use any of the historical shapes (bare array, "sources" key,
// legacy "APIs" key), which all decode into the unified LocationConfig.
//
// The table is loaded once at process start; hot reloading is out of scope.
func LoadLocationTable(path string) (types.LocationTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{
			Type:    ErrSourceTable,
			Message: fmt.Sprintf("reading source table %s", path),
			Err:     err,
		}
	}

	var table types.LocationTable
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, &ConfigError{
			Type:    ErrSourceTable,
			Message: fmt.Sprintf("parsing source table %s", path),
			Err:     err,
		}
	}

	if err := validateTable(table); err != nil {
		return nil, &ConfigError{
			Type:    ErrSourceTable,
			Message: fmt.Sprintf("source table %s failed validation", path),
			Err:     err,
		}
	}

	return table, nil
}

// validateTable applies the struct rules to every location entry and rejects
// conditions the tags cannot express: an empty table, duplicate source URLs,
// and mappings with empty paths. A duplicate URL would make standardization's
// URL-to-config lookup ambiguous.
func validateTable(table types.LocationTable) error {
	if len(table) == 0 {
		return fmt.Errorf("source table has no locations")
	}

	v := validator.New()
	seenURLs := make(map[string]string)

	for location, cfg := range table {
		if err := v.Struct(cfg); err != nil {
			return fmt.Errorf("location %q: %w", location, err)
		}
		for _, src := range cfg.Sources {
			if prev, dup := seenURLs[src.URL]; dup {
				return fmt.Errorf("location %q: source URL %s already configured for %q", location, src.URL, prev)
			}
			seenURLs[src.URL] = location

			for field, path := range src.FieldMappings {
				if len(path) == 0 {
					return fmt.Errorf("location %q: source %s maps %q to an empty path", location, src.URL, field)
				}
			}
		}
	}

	return nil
}
