package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/staymatch/backend/internal/storage/models"
)

// ReadCatalogFile loads a catalog from a JSON array of property records
// (id, location, type, price, capacity, environment, features, tags, booked).
func ReadCatalogFile(path string) ([]models.Property, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog file: %w", err)
	}

	var properties []models.Property
	if err := json.Unmarshal(data, &properties); err != nil {
		return nil, fmt.Errorf("decoding catalog file %s: %w", path, err)
	}

	seen := make(map[int]bool, len(properties))
	for _, p := range properties {
		if seen[p.ID] {
			return nil, fmt.Errorf("catalog file %s: duplicate property id %d", path, p.ID)
		}
		seen[p.ID] = true
		if p.Capacity < 1 {
			return nil, fmt.Errorf("catalog file %s: property %d has capacity %d", path, p.ID, p.Capacity)
		}
	}

	return properties, nil
}

// WriteCatalogFile saves the whole catalog as an indented JSON array.
// The file is written to a temporary name first and renamed into place.
func WriteCatalogFile(path string, properties []models.Property) error {
	if properties == nil {
		properties = []models.Property{}
	}
	data, err := json.MarshalIndent(properties, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding catalog: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*.json")
	if err != nil {
		return fmt.Errorf("creating temp catalog file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing catalog file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing catalog file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing catalog file: %w", err)
	}
	return nil
}
