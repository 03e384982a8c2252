package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nandanugg/autotimer/module/core/domain"
)

type siteFile struct {
	Sites []site `yaml:"sites"`
}

type site struct {
	ID           string  `yaml:"id"`
	Label        string  `yaml:"label"`
	Latitude     float64 `yaml:"latitude"`
	Longitude    float64 `yaml:"longitude"`
	RadiusMeters float64 `yaml:"radius_meters"`
	DelayStart   string  `yaml:"delay_start"`
	DelayStop    string  `yaml:"delay_stop"`
}

// LoadSites reads work-site geofences from a YAML file:
//
//	sites:
//	  - id: office
//	    label: Office
//	    latitude: 47.3769
//	    longitude: 8.5417
//	    radius_meters: 100
//	    delay_start: 2m
func LoadSites(path string) ([]domain.GeofenceDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites: %w", err)
	}
	return ParseSites(data)
}

func ParseSites(data []byte) ([]domain.GeofenceDefinition, error) {
	var f siteFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse sites: %w", err)
	}

	defs := make([]domain.GeofenceDefinition, 0, len(f.Sites))
	for _, s := range f.Sites {
		delayStart, err := parseDelay(s.DelayStart)
		if err != nil {
			return nil, fmt.Errorf("site %s delay_start: %w", s.ID, err)
		}
		delayStop, err := parseDelay(s.DelayStop)
		if err != nil {
			return nil, fmt.Errorf("site %s delay_stop: %w", s.ID, err)
		}

		gf := domain.GeofenceDefinition{
			ID:           s.ID,
			Label:        s.Label,
			Center:       domain.Coordinates{Lat: s.Latitude, Lon: s.Longitude},
			RadiusMeters: s.RadiusMeters,
			DelayStart:   delayStart,
			DelayStop:    delayStop,
		}
		if gf.Label == "" {
			gf.Label = gf.ID
		}
		if err := gf.Validate(); err != nil {
			return nil, fmt.Errorf("site %s: %w", s.ID, err)
		}
		defs = append(defs, gf)
	}
	return defs, nil
}

func parseDelay(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
