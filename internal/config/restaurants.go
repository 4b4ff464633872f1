package config

import (
	"fmt"
	"os"

	"quicktable/internal/models"

	"gopkg.in/yaml.v2"
)

// LoadRestaurants reads a restaurants seed file of the form
// "restaurants: [...]" and checks every record.
func LoadRestaurants(path string) ([]models.Restaurant, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var seed struct {
		Restaurants []models.Restaurant `yaml:"restaurants"`
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ValidateRestaurants(seed.Restaurants); err != nil {
		return nil, err
	}
	return seed.Restaurants, nil
}

func ValidateRestaurants(restaurants []models.Restaurant) error {
	ids := make(map[string]bool, len(restaurants))
	slugs := make(map[string]bool, len(restaurants))
	for i := range restaurants {
		r := &restaurants[i]
		if r.BlockedDates == nil {
			r.BlockedDates = []string{}
		}
		if err := r.Validate(); err != nil {
			return fmt.Errorf("restaurant %q: %w", r.ID, err)
		}
		if ids[r.ID] {
			return fmt.Errorf("duplicate restaurant id: %s", r.ID)
		}
		if slugs[r.Slug] {
			return fmt.Errorf("duplicate restaurant slug: %s", r.Slug)
		}
		ids[r.ID], slugs[r.Slug] = true, true
	}
	return nil
}
