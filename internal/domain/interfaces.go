package domain

import (
	"context"
	"time"

	"testdrive/internal/models"
)

// VehicleCatalog is the read-only view of the fleet.
// FetchCandidates must return vehicles in a stable order (sort_order, then id).
type VehicleCatalog interface {
	FetchCandidates(ctx context.Context, vehicleType, location string) ([]*models.Vehicle, error)
	ListLocations(ctx context.Context) ([]string, error)
	ListByLocation(ctx context.Context, location string) ([]*models.Vehicle, error)
}

// ReservationStore persists reservations.
// CreateIfNoOverlap is atomic with respect to every other create for the same vehicle and
// returns ErrSlotConflict when the slot overlaps an existing reservation.
type ReservationStore interface {
	FetchReservations(ctx context.Context, vehicleID int64) ([]*models.Reservation, error)
	CreateIfNoOverlap(ctx context.Context, vehicleID int64, slot models.Slot, reservation *models.Reservation) error
	GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error)
	ListReservations(ctx context.Context, from, to time.Time) ([]*models.Reservation, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type BookingService interface {
	Book(ctx context.Context, input models.BookingInput) (*models.Outcome, error)
	GetReservation(ctx context.Context, reservationID string) (*models.Reservation, error)
	ListReservations(ctx context.Context, from, to time.Time) ([]*models.Reservation, error)
	ListLocations(ctx context.Context) ([]string, error)
	ListVehiclesByLocation(ctx context.Context, location string) ([]*models.Vehicle, error)
}
