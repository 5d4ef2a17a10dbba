package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"testdrive/internal/events"
	"testdrive/internal/models"
	"testdrive/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) FetchCandidates(ctx context.Context, vehicleType, location string) ([]*models.Vehicle, error) {
	args := m.Called(ctx, vehicleType, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vehicle), args.Error(1)
}

func (m *mockCatalog) ListLocations(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCatalog) ListByLocation(ctx context.Context, location string) ([]*models.Vehicle, error) {
	args := m.Called(ctx, location)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Vehicle), args.Error(1)
}

func fullWeekVehicle(id int64, vehicleType, location string) models.Vehicle {
	return models.Vehicle{
		ID:            id,
		Name:          vehicleType,
		Type:          vehicleType,
		Location:      location,
		AvailableDays: models.AllWeekdays(),
		AvailableFrom: models.MustClockTime("09:00"),
		AvailableTo:   models.MustClockTime("18:00"),
	}
}

func newTestService(t *testing.T, vehicles ...models.Vehicle) (*BookingService, *repository.MemoryReservationStore, *events.EventBus) {
	t.Helper()
	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryReservationStore()
	bus := events.NewEventBus()
	svc := NewBookingService(repository.NewMemoryCatalog(vehicles), store, bus, Options{
		DefaultZone: time.UTC,
		Now:         clockAt(fixedNow),
	}, &logger)
	return svc, store, bus
}

func TestBookScenarioA(t *testing.T) {
	svc, _, _ := newTestService(t, fullWeekVehicle(1, "tesla_model3", "dublin"))

	outcome, err := svc.Book(context.Background(), validInput())
	require.NoError(t, err)
	require.True(t, outcome.Booked)
	require.NotNil(t, outcome.Reservation)
	assert.Nil(t, outcome.Rejection)

	r := outcome.Reservation
	assert.Equal(t, int64(1), r.VehicleID)
	assert.True(t, r.StartAt.Equal(utc(4, 10, 0)))
	assert.True(t, r.EndAt.Equal(utc(4, 10, 45)))
	assert.True(t, ValidReservationID(r.ReservationID), r.ReservationID)
	assert.Contains(t, r.ReservationID, "TD-2030-TESLAMODEL3-")
}

func TestBookScenarioB(t *testing.T) {
	svc, _, _ := newTestService(t, fullWeekVehicle(1, "tesla_model3", "dublin"))
	ctx := context.Background()

	first, err := svc.Book(ctx, validInput())
	require.NoError(t, err)
	require.True(t, first.Booked)

	in := validInput()
	in.StartDateTime = "2030-06-04T10:30:00Z"
	outcome, err := svc.Book(ctx, in)
	require.NoError(t, err)
	assert.False(t, outcome.Booked)
	require.NotNil(t, outcome.Rejection)
	assert.Equal(t, models.RejectionNoAvailability, outcome.Rejection.Kind)
	assert.Equal(t, "No tesla_model3 available in dublin for the requested time slot", outcome.Rejection.Detail)
}

func TestBookScenarioC(t *testing.T) {
	svc, _, _ := newTestService(t, fullWeekVehicle(1, "tesla_model3", "dublin"))

	in := validInput()
	in.VehicleType = "X"
	in.Location = "Y"
	outcome, err := svc.Book(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, outcome.Rejection)
	assert.Equal(t, models.RejectionNoVehicles, outcome.Rejection.Kind)
	assert.Equal(t, "No vehicles found for x in y", outcome.Rejection.Detail)
}

func TestBookScenarioD(t *testing.T) {
	catalog := new(mockCatalog)
	store := new(mockStore)
	svc := NewBookingService(catalog, store, nil, Options{Now: clockAt(fixedNow)}, nil)

	in := validInput()
	in.StartDateTime = fixedNow.AddDate(0, 0, -1).Format(time.RFC3339)
	outcome, err := svc.Book(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, outcome.Rejection)
	assert.Equal(t, models.RejectionValidation, outcome.Rejection.Kind)
	assert.Equal(t, string(ReasonPastDate), outcome.Rejection.Reason)
	assert.Contains(t, outcome.Rejection.Detail, "past")

	catalog.AssertNotCalled(t, "FetchCandidates", mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "FetchReservations", mock.Anything, mock.Anything)
}

func TestBookRejectsFiveDigitCodeYear(t *testing.T) {
	v := fullWeekVehicle(1, "tesla_model3", "dublin")
	v.Timezone = "Asia/Tokyo"
	v.AvailableFrom, v.AvailableTo = 0, models.EndOfDay
	svc, store, _ := newTestService(t, v)

	in := validInput()
	in.StartDateTime = "9999-12-31T20:00:00-05:00"
	outcome, err := svc.Book(context.Background(), in)
	require.NoError(t, err)
	require.False(t, outcome.Booked)
	require.NotNil(t, outcome.Rejection)
	assert.Equal(t, models.RejectionValidation, outcome.Rejection.Kind)
	assert.Equal(t, string(ReasonInvalidDate), outcome.Rejection.Reason)

	stored, err := store.FetchReservations(context.Background(), 1)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestBookOutsideWeeklyWindow(t *testing.T) {
	v := fullWeekVehicle(1, "tesla_model3", "dublin")
	v.AvailableDays = models.Weekdays{time.Monday}
	svc, _, _ := newTestService(t, v)

	outcome, err := svc.Book(context.Background(), validInput())
	require.NoError(t, err)
	require.NotNil(t, outcome.Rejection)
	assert.Equal(t, models.RejectionNoAvailability, outcome.Rejection.Kind)
}

func TestBookFallsThroughToSecondVehicle(t *testing.T) {
	svc, _, _ := newTestService(t,
		fullWeekVehicle(1, "tesla_model3", "dublin"),
		fullWeekVehicle(2, "tesla_model3", "dublin"),
	)
	ctx := context.Background()

	first, err := svc.Book(ctx, validInput())
	require.NoError(t, err)
	second, err := svc.Book(ctx, validInput())
	require.NoError(t, err)
	third, err := svc.Book(ctx, validInput())
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Reservation.VehicleID)
	assert.Equal(t, int64(2), second.Reservation.VehicleID)
	assert.Equal(t, models.RejectionNoAvailability, third.Rejection.Kind)
}

func TestBookConcurrentSingleVehicle(t *testing.T) {
	svc, store, _ := newTestService(t, fullWeekVehicle(1, "tesla_model3", "dublin"))
	ctx := context.Background()

	const requests = 2
	var wg sync.WaitGroup
	outcomes := make([]*models.Outcome, requests)
	errs := make([]error, requests)

	start := make(chan struct{})
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			outcomes[i], errs[i] = svc.Book(ctx, validInput())
		}(i)
	}
	close(start)
	wg.Wait()

	booked, rejected := 0, 0
	for i := 0; i < requests; i++ {
		require.NoError(t, errs[i])
		if outcomes[i].Booked {
			booked++
		} else if outcomes[i].Rejection.Kind == models.RejectionNoAvailability {
			rejected++
		}
	}
	assert.Equal(t, 1, booked)
	assert.Equal(t, 1, rejected)

	stored, err := store.FetchReservations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestBookPublishesEvent(t *testing.T) {
	svc, _, bus := newTestService(t, fullWeekVehicle(1, "tesla_model3", "dublin"))

	var got events.ReservationEventPayload
	bus.Subscribe(models.EventReservationCreated, func(e *events.Event) error {
		return e.Decode(&got)
	})

	outcome, err := svc.Book(context.Background(), validInput())
	require.NoError(t, err)
	require.True(t, outcome.Booked)
	assert.Equal(t, outcome.Reservation.ReservationID, got.ReservationID)
}

func TestBookInfrastructureError(t *testing.T) {
	boom := errors.New("catalog down")
	catalog := new(mockCatalog)
	catalog.On("FetchCandidates", mock.Anything, "tesla_model3", "dublin").Return(nil, boom)
	svc := NewBookingService(catalog, new(mockStore), nil, Options{Now: clockAt(fixedNow)}, nil)

	outcome, err := svc.Book(context.Background(), validInput())
	assert.Nil(t, outcome)
	assert.ErrorIs(t, err, boom)
}

func TestGetReservation(t *testing.T) {
	svc, _, _ := newTestService(t, fullWeekVehicle(1, "tesla_model3", "dublin"))
	ctx := context.Background()

	outcome, err := svc.Book(ctx, validInput())
	require.NoError(t, err)

	got, err := svc.GetReservation(ctx, " "+outcome.Reservation.ReservationID+" ")
	require.NoError(t, err)
	assert.Equal(t, outcome.Reservation.ID, got.ID)

	list, err := svc.ListReservations(ctx, utc(4, 0, 0), utc(5, 0, 0))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestListVehiclesByLocation(t *testing.T) {
	svc, _, _ := newTestService(t,
		fullWeekVehicle(1, "tesla_model3", "dublin"),
		fullWeekVehicle(2, "tesla_model3", "dublin"),
		fullWeekVehicle(3, "bmw_i4", "dublin"),
		fullWeekVehicle(4, "bmw_i4", "cork"),
	)
	ctx := context.Background()

	vehicles, err := svc.ListVehiclesByLocation(ctx, "Dublin")
	require.NoError(t, err)
	require.Len(t, vehicles, 2)
	assert.Equal(t, int64(1), vehicles[0].ID)
	assert.Equal(t, int64(3), vehicles[1].ID)

	_, err = svc.ListVehiclesByLocation(ctx, " ")
	assert.ErrorIs(t, err, ErrLocationRequired)

	locations, err := svc.ListLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cork", "dublin"}, locations)
}
