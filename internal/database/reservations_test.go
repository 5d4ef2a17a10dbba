package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"testdrive/internal/domain"
	"testdrive/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var slotStart = time.Date(2030, 6, 4, 10, 0, 0, 0, time.UTC)

func newReservation(code string) *models.Reservation {
	return &models.Reservation{
		ReservationID: code,
		VehicleType:   "tesla_model3",
		Location:      "dublin",
		CustomerName:  "Jane Doe",
		CustomerEmail: "jane@example.com",
		CustomerPhone: "+353 1 234 5678",
	}
}

func TestCreateIfNoOverlap(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)
	ctx := context.Background()

	r := newReservation("TD-2030-TESLAMODEL3-0000000001")
	require.NoError(t, db.CreateIfNoOverlap(ctx, 1, models.NewSlot(slotStart, 45*time.Minute), r))
	assert.NotZero(t, r.ID)
	assert.Equal(t, int64(1), r.VehicleID)

	t.Run("Overlap", func(t *testing.T) {
		err := db.CreateIfNoOverlap(ctx, 1, models.NewSlot(slotStart.Add(30*time.Minute), 45*time.Minute),
			newReservation("TD-2030-TESLAMODEL3-0000000002"))
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
	})

	t.Run("Touching", func(t *testing.T) {
		err := db.CreateIfNoOverlap(ctx, 1, models.NewSlot(slotStart.Add(45*time.Minute), 45*time.Minute),
			newReservation("TD-2030-TESLAMODEL3-0000000003"))
		assert.NoError(t, err)
	})

	t.Run("OtherVehicleSameSlot", func(t *testing.T) {
		err := db.CreateIfNoOverlap(ctx, 2, models.NewSlot(slotStart, 45*time.Minute),
			newReservation("TD-2030-TESLAMODEL3-0000000004"))
		assert.NoError(t, err)
	})

	t.Run("DuplicateCode", func(t *testing.T) {
		err := db.CreateIfNoOverlap(ctx, 4, models.NewSlot(slotStart, 45*time.Minute),
			newReservation("TD-2030-TESLAMODEL3-0000000001"))
		assert.ErrorIs(t, err, domain.ErrDuplicateReservationID)
	})

	t.Run("UnknownVehicle", func(t *testing.T) {
		err := db.CreateIfNoOverlap(ctx, 99, models.NewSlot(slotStart, 45*time.Minute),
			newReservation("TD-2030-TESLAMODEL3-0000000005"))
		assert.Error(t, err)
	})

	existing, err := db.FetchReservations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, existing, 2)
	assert.True(t, existing[0].StartAt.Equal(slotStart))
	assert.True(t, existing[0].EndAt.Equal(slotStart.Add(45*time.Minute)))
	assert.Equal(t, "jane@example.com", existing[0].CustomerEmail)
}

func TestGetReservationByCode(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)
	ctx := context.Background()

	r := newReservation("TD-2030-TESLAMODEL3-ABCDEF0123")
	require.NoError(t, db.CreateIfNoOverlap(ctx, 1, models.NewSlot(slotStart, time.Hour), r))

	got, err := db.GetReservationByCode(ctx, "TD-2030-TESLAMODEL3-ABCDEF0123")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, "dublin", got.Location)

	_, err = db.GetReservationByCode(ctx, "TD-2030-TESLAMODEL3-0000000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListReservations(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)
	ctx := context.Background()

	for i, offset := range []time.Duration{0, 24 * time.Hour, 48 * time.Hour} {
		code := fmt.Sprintf("TD-2030-TESLAMODEL3-%010d", i)
		require.NoError(t, db.CreateIfNoOverlap(ctx, 1, models.NewSlot(slotStart.Add(offset), time.Hour), newReservation(code)))
	}

	got, err := db.ListReservations(ctx, slotStart, slotStart.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].StartAt.Before(got[1].StartAt))
}

func TestConcurrentCreateIfNoOverlap(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()
	seedFleet(t, db)

	ctx := context.Background()
	slot := models.NewSlot(slotStart, time.Hour)

	const numGoroutines = 10
	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			code := fmt.Sprintf("TD-2030-TESLAMODEL3-%010d", id)
			results <- db.CreateIfNoOverlap(ctx, 1, slot, newReservation(code))
		}(i)
	}

	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
	}
	assert.Equal(t, 1, successCount, "exactly one create should win")

	existing, err := db.FetchReservations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, existing, 1)
}
