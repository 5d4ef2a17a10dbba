package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"testdrive/internal/domain"
	"testdrive/internal/metrics"
	"testdrive/internal/models"

	"github.com/rs/zerolog"
)

// Allocator walks candidates in catalog order and books the first free one.
type Allocator struct {
	store       domain.ReservationStore
	checker     *AvailabilityChecker
	ids         *ReservationIDGenerator
	defaultZone *time.Location
	logger      *zerolog.Logger
}

func NewAllocator(store domain.ReservationStore, checker *AvailabilityChecker, ids *ReservationIDGenerator, defaultZone *time.Location, logger *zerolog.Logger) *Allocator {
	if defaultZone == nil {
		defaultZone = time.UTC
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Allocator{
		store:       store,
		checker:     checker,
		ids:         ids,
		defaultZone: defaultZone,
		logger:      logger,
	}
}

func (a *Allocator) Allocate(ctx context.Context, candidates []*models.Vehicle, slot models.Slot, customer models.Customer) (*models.Reservation, error) {
	if len(candidates) == 0 {
		return nil, ErrNoVehiclesFound
	}

	for _, vehicle := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		existing, err := a.store.FetchReservations(ctx, vehicle.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch reservations for vehicle %d: %w", vehicle.ID, err)
		}
		if !a.checker.IsAvailable(vehicle, slot, existing) {
			continue
		}

		reservation, err := a.create(ctx, vehicle, slot, customer)
		if err == nil {
			return reservation, nil
		}
		if errors.Is(err, domain.ErrSlotConflict) {
			// Lost the race for this vehicle, try the next one.
			metrics.IncAllocationConflict()
			a.logger.Debug().
				Int64("vehicle_id", vehicle.ID).
				Time("start", slot.Start).
				Time("end", slot.End).
				Msg("slot taken concurrently, moving to next candidate")
			continue
		}
		return nil, err
	}

	return nil, ErrNoAvailability
}

func (a *Allocator) create(ctx context.Context, vehicle *models.Vehicle, slot models.Slot, customer models.Customer) (*models.Reservation, error) {
	year := slot.Start.In(vehicle.Zone(a.defaultZone)).Year()

	for attempt := 1; ; attempt++ {
		code, err := a.ids.Generate(year, vehicle.Type)
		if err != nil {
			return nil, err
		}

		reservation := &models.Reservation{
			ReservationID: code,
			VehicleID:     vehicle.ID,
			VehicleType:   vehicle.Type,
			Location:      vehicle.Location,
			StartAt:       slot.Start,
			EndAt:         slot.End,
			CustomerName:  customer.Name,
			CustomerEmail: customer.Email,
			CustomerPhone: customer.Phone,
		}

		err = a.store.CreateIfNoOverlap(ctx, vehicle.ID, slot, reservation)
		if errors.Is(err, domain.ErrDuplicateReservationID) && attempt < models.MaxCodeCollisionRetries {
			a.logger.Warn().Str("code", code).Int("attempt", attempt).Msg("reservation code collision, regenerating")
			continue
		}
		if err != nil {
			return nil, err
		}
		return reservation, nil
	}
}
