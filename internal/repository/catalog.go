package repository

import (
	"context"
	"sort"
	"strings"
	"sync"

	"testdrive/internal/models"
)

// MemoryCatalog serves the fleet from configuration.
type MemoryCatalog struct {
	mu       sync.RWMutex
	vehicles []*models.Vehicle
}

func NewMemoryCatalog(vehicles []models.Vehicle) *MemoryCatalog {
	c := &MemoryCatalog{}
	c.Replace(vehicles)
	return c
}

// Replace swaps the whole fleet, keeping sort_order then id ordering.
func (c *MemoryCatalog) Replace(vehicles []models.Vehicle) {
	list := make([]*models.Vehicle, 0, len(vehicles))
	for i := range vehicles {
		v := vehicles[i]
		v.Type = strings.ToLower(strings.TrimSpace(v.Type))
		v.Location = strings.ToLower(strings.TrimSpace(v.Location))
		list = append(list, &v)
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].SortOrder != list[j].SortOrder {
			return list[i].SortOrder < list[j].SortOrder
		}
		return list[i].ID < list[j].ID
	})

	c.mu.Lock()
	c.vehicles = list
	c.mu.Unlock()
}

func (c *MemoryCatalog) FetchCandidates(ctx context.Context, vehicleType, location string) ([]*models.Vehicle, error) {
	return c.filter(func(v *models.Vehicle) bool {
		return v.Type == vehicleType && v.Location == location
	}), nil
}

func (c *MemoryCatalog) ListByLocation(ctx context.Context, location string) ([]*models.Vehicle, error) {
	return c.filter(func(v *models.Vehicle) bool {
		return v.Location == location
	}), nil
}

func (c *MemoryCatalog) ListLocations(ctx context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seen := make(map[string]bool)
	locations := make([]string, 0)
	for _, v := range c.vehicles {
		if !seen[v.Location] {
			seen[v.Location] = true
			locations = append(locations, v.Location)
		}
	}
	sort.Strings(locations)
	return locations, nil
}

func (c *MemoryCatalog) filter(match func(*models.Vehicle) bool) []*models.Vehicle {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]*models.Vehicle, 0)
	for _, v := range c.vehicles {
		if match(v) {
			copied := *v
			result = append(result, &copied)
		}
	}
	return result
}
