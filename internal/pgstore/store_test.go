package pgstore

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"testdrive/internal/domain"
	"testdrive/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupStore connects to TESTDRIVE_PG_DSN and skips when it is unset.
func setupStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TESTDRIVE_PG_DSN")
	if dsn == "" {
		t.Skip("TESTDRIVE_PG_DSN not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	logger := zerolog.Nop()
	store := New(pool, &logger)
	require.NoError(t, store.Migrate(ctx))

	_, err = pool.Exec(ctx, `TRUNCATE reservations, vehicles RESTART IDENTITY CASCADE`)
	require.NoError(t, err)

	week := models.AllWeekdays()
	require.NoError(t, store.SeedVehicles(ctx, []models.Vehicle{
		{ID: 1, Type: "tesla_model3", Location: "dublin", AvailableDays: week,
			AvailableFrom: models.MustClockTime("09:00"), AvailableTo: models.MustClockTime("18:00"), SortOrder: 2},
		{ID: 2, Type: "tesla_model3", Location: "dublin", AvailableDays: week,
			AvailableFrom: models.MustClockTime("09:00"), AvailableTo: models.MustClockTime("18:00"), SortOrder: 1},
		{ID: 3, Type: "bmw_i4", Location: "cork", AvailableDays: week, AvailableTo: models.EndOfDay},
	}))
	return store
}

func TestStoreCatalog(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	got, err := store.FetchCandidates(ctx, "Tesla_Model3", "DUBLIN")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID)
	assert.Len(t, got[0].AvailableDays, 7)

	locations, err := store.ListLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cork", "dublin"}, locations)
}

func TestStoreCreateIfNoOverlap(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	start := time.Date(2030, 6, 4, 10, 0, 0, 0, time.UTC)

	r := &models.Reservation{ReservationID: "TD-2030-TESLAMODEL3-0000000001", VehicleType: "tesla_model3",
		Location: "dublin", CustomerName: "Jane", CustomerEmail: "jane@example.com", CustomerPhone: "1"}
	require.NoError(t, store.CreateIfNoOverlap(ctx, 1, models.NewSlot(start, time.Hour), r))
	assert.NotZero(t, r.ID)

	clash := *r
	clash.ReservationID = "TD-2030-TESLAMODEL3-0000000002"
	err := store.CreateIfNoOverlap(ctx, 1, models.NewSlot(start.Add(30*time.Minute), time.Hour), &clash)
	assert.ErrorIs(t, err, domain.ErrSlotConflict)

	dup := *r
	err = store.CreateIfNoOverlap(ctx, 2, models.NewSlot(start, time.Hour), &dup)
	assert.ErrorIs(t, err, domain.ErrDuplicateReservationID)

	got, err := store.GetReservationByCode(ctx, r.ReservationID)
	require.NoError(t, err)
	assert.True(t, got.StartAt.Equal(start))

	_, err = store.GetReservationByCode(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStoreConcurrentCreate(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	slot := models.NewSlot(time.Date(2030, 6, 4, 10, 0, 0, 0, time.UTC), time.Hour)

	const workers = 10
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := &models.Reservation{ReservationID: fmt.Sprintf("TD-2030-T-%010d", i), VehicleType: "tesla_model3",
				Location: "dublin", CustomerName: "n", CustomerEmail: "e@x.io", CustomerPhone: "p"}
			errs <- store.CreateIfNoOverlap(ctx, 1, slot, r)
		}(i)
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
	}
	assert.Equal(t, 1, wins)
}
