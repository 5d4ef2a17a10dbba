package models

import (
	"sync"
	"time"
)

type Vehicle struct {
	ID            int64     `yaml:"id" json:"id"`
	Name          string    `yaml:"name" json:"name"`
	Type          string    `yaml:"type" json:"type"`
	Location      string    `yaml:"location" json:"location"`
	AvailableDays Weekdays  `yaml:"available_days" json:"availableDays"`
	AvailableFrom ClockTime `yaml:"available_from" json:"availableFromTime"`
	AvailableTo   ClockTime `yaml:"available_to" json:"availableToTime"`
	Timezone      string    `yaml:"timezone" json:"timezone,omitempty"`
	SortOrder     int64     `yaml:"sort_order" json:"sort_order"`
	CreatedAt     time.Time `yaml:"created_at" json:"created_at"`
	UpdatedAt     time.Time `yaml:"updated_at" json:"updated_at"`
}

// Zone resolves the vehicle's time zone, falling back to def and then UTC.
func (v *Vehicle) Zone(def *time.Location) *time.Location {
	if v.Timezone != "" {
		if loc, err := LoadZone(v.Timezone); err == nil {
			return loc
		}
	}
	if def != nil {
		return def
	}
	return time.UTC
}

// zones caches time.LoadLocation results by name; loading reads tzdata from disk.
var zones sync.Map // map[string]*time.Location

// LoadZone is time.LoadLocation with a per-name cache.
func LoadZone(name string) (*time.Location, error) {
	if loc, ok := zones.Load(name); ok {
		return loc.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	actual, _ := zones.LoadOrStore(name, loc)
	return actual.(*time.Location), nil
}
