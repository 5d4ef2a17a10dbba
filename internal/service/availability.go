package service

import (
	"time"

	"testdrive/internal/models"
)

type AvailabilityChecker struct {
	defaultZone *time.Location
}

// NewAvailabilityChecker uses defaultZone for vehicles without their own timezone.
func NewAvailabilityChecker(defaultZone *time.Location) *AvailabilityChecker {
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	return &AvailabilityChecker{defaultZone: defaultZone}
}

func (c *AvailabilityChecker) IsAvailable(vehicle *models.Vehicle, slot models.Slot, existing []*models.Reservation) bool {
	return c.WithinWeeklyWindow(vehicle, slot) && !Conflicts(vehicle.ID, slot, existing)
}

// WithinWeeklyWindow checks the slot against the vehicle's days and hours in its local time.
// A slot ending exactly at local midnight is treated as ending at 24:00 of its start day.
func (c *AvailabilityChecker) WithinWeeklyWindow(vehicle *models.Vehicle, slot models.Slot) bool {
	if slot.IsEmpty() {
		return false
	}

	loc := vehicle.Zone(c.defaultZone)
	start := slot.Start.In(loc)
	end := slot.End.In(loc)

	if !vehicle.AvailableDays.Contains(start.Weekday()) {
		return false
	}
	if models.ClockOf(start) < vehicle.AvailableFrom {
		return false
	}

	var endClock models.ClockTime
	y, m, d := start.Date()
	if ey, em, ed := end.Date(); ey == y && em == m && ed == d {
		endClock = clockCeil(end)
	} else if end.Equal(time.Date(y, m, d+1, 0, 0, 0, 0, loc)) {
		endClock = models.EndOfDay
	} else {
		return false
	}

	return endClock <= vehicle.AvailableTo
}

// Conflicts reports whether slot overlaps any reservation held by vehicleID.
func Conflicts(vehicleID int64, slot models.Slot, existing []*models.Reservation) bool {
	for _, r := range existing {
		if r.VehicleID != 0 && r.VehicleID != vehicleID {
			continue
		}
		if slot.Overlaps(r.Slot()) {
			return true
		}
	}
	return false
}

// clockCeil rounds a partial minute up so 18:00:30 does not pass an 18:00 bound.
func clockCeil(t time.Time) models.ClockTime {
	c := models.ClockOf(t)
	if t.Second() != 0 || t.Nanosecond() != 0 {
		c++
	}
	return c
}
