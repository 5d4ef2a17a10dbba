package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"testdrive/internal/domain"
	"testdrive/internal/events"
	"testdrive/internal/metrics"
	"testdrive/internal/models"

	"github.com/rs/zerolog"
)

type Options struct {
	Rules       ValidationRules
	DefaultZone *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
	// IDs defaults to a crypto/rand backed generator.
	IDs *ReservationIDGenerator
}

type BookingService struct {
	catalog   domain.VehicleCatalog
	store     domain.ReservationStore
	validator *RequestValidator
	allocator *Allocator
	eventBus  domain.EventPublisher
	logger    *zerolog.Logger
}

func NewBookingService(catalog domain.VehicleCatalog, store domain.ReservationStore, eventBus domain.EventPublisher, opts Options, logger *zerolog.Logger) *BookingService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if opts.IDs == nil {
		opts.IDs = NewReservationIDGenerator(nil)
	}
	return &BookingService{
		catalog:   catalog,
		store:     store,
		validator: NewRequestValidator(opts.Rules, opts.Now),
		allocator: NewAllocator(store, NewAvailabilityChecker(opts.DefaultZone), opts.IDs, opts.DefaultZone, logger),
		eventBus:  eventBus,
		logger:    logger,
	}
}

// Book validates input and reserves the first free matching vehicle.
// Business rejections come back as an Outcome with a nil error.
func (s *BookingService) Book(ctx context.Context, input models.BookingInput) (*models.Outcome, error) {
	started := time.Now()
	outcome, err := s.book(ctx, input)

	label := "error"
	switch {
	case err != nil:
	case outcome.Booked:
		label = "booked"
	case outcome.Rejection != nil:
		label = string(outcome.Rejection.Kind)
	}
	metrics.ObserveBooking(label, time.Since(started))

	return outcome, err
}

func (s *BookingService) book(ctx context.Context, input models.BookingInput) (*models.Outcome, error) {
	req, err := s.validator.Validate(input)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			return models.Rejected(models.Rejection{
				Kind:   models.RejectionValidation,
				Reason: string(verr.Reason),
				Field:  verr.Field,
				Detail: verr.Detail,
			}), nil
		}
		return nil, err
	}

	candidates, err := s.catalog.FetchCandidates(ctx, req.VehicleType, req.Location)
	if err != nil {
		return nil, fmt.Errorf("fetch candidates: %w", err)
	}

	reservation, err := s.allocator.Allocate(ctx, candidates, req.Slot(), req.Customer)
	switch {
	case errors.Is(err, ErrNoVehiclesFound):
		return models.Rejected(models.Rejection{
			Kind:   models.RejectionNoVehicles,
			Detail: fmt.Sprintf("No vehicles found for %s in %s", req.VehicleType, req.Location),
		}), nil
	case errors.Is(err, ErrNoAvailability):
		return models.Rejected(models.Rejection{
			Kind:   models.RejectionNoAvailability,
			Detail: fmt.Sprintf("No %s available in %s for the requested time slot", req.VehicleType, req.Location),
		}), nil
	case err != nil:
		return nil, fmt.Errorf("allocate: %w", err)
	}

	s.logger.Info().
		Str("reservation_id", reservation.ReservationID).
		Int64("vehicle_id", reservation.VehicleID).
		Str("location", reservation.Location).
		Time("start", reservation.StartAt).
		Msg("reservation created")

	s.publishEvent(models.EventReservationCreated, reservation)

	return models.Booked(reservation), nil
}

func (s *BookingService) GetReservation(ctx context.Context, reservationID string) (*models.Reservation, error) {
	return s.store.GetReservationByCode(ctx, strings.TrimSpace(reservationID))
}

func (s *BookingService) ListReservations(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	return s.store.ListReservations(ctx, from, to)
}

func (s *BookingService) ListLocations(ctx context.Context) ([]string, error) {
	return s.catalog.ListLocations(ctx)
}

// ListVehiclesByLocation returns the first vehicle of each type at location, in catalog order.
func (s *BookingService) ListVehiclesByLocation(ctx context.Context, location string) ([]*models.Vehicle, error) {
	location = strings.ToLower(strings.TrimSpace(location))
	if location == "" {
		return nil, ErrLocationRequired
	}

	vehicles, err := s.catalog.ListByLocation(ctx, location)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(vehicles))
	result := make([]*models.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if seen[v.Type] {
			continue
		}
		seen[v.Type] = true
		result = append(result, v)
	}
	return result, nil
}

func (s *BookingService) publishEvent(eventType string, reservation *models.Reservation) {
	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.PublishJSON(eventType, events.NewReservationEventPayload(reservation)); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("reservation_id", reservation.ReservationID).Msg("publish event error")
	}
}
