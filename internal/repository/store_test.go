package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"testdrive/internal/domain"
	"testdrive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reservationAt(code string, start time.Time, d time.Duration) (*models.Reservation, models.Slot) {
	slot := models.NewSlot(start, d)
	return &models.Reservation{ReservationID: code, VehicleType: "tesla_model3", Location: "dublin"}, slot
}

func TestMemoryReservationStoreCreate(t *testing.T) {
	store := NewMemoryReservationStore()
	ctx := context.Background()
	start := time.Date(2030, 6, 3, 10, 0, 0, 0, time.UTC)

	r, slot := reservationAt("TD-2030-TESLAMODEL3-0000000001", start, time.Hour)
	require.NoError(t, store.CreateIfNoOverlap(ctx, 1, slot, r))
	assert.Equal(t, int64(1), r.ID)
	assert.Equal(t, int64(1), r.VehicleID)
	assert.False(t, r.CreatedAt.IsZero())

	t.Run("Overlap", func(t *testing.T) {
		r2, slot2 := reservationAt("TD-2030-TESLAMODEL3-0000000002", start.Add(30*time.Minute), time.Hour)
		assert.ErrorIs(t, store.CreateIfNoOverlap(ctx, 1, slot2, r2), domain.ErrSlotConflict)
	})

	t.Run("Touching", func(t *testing.T) {
		r3, slot3 := reservationAt("TD-2030-TESLAMODEL3-0000000003", start.Add(time.Hour), time.Hour)
		assert.NoError(t, store.CreateIfNoOverlap(ctx, 1, slot3, r3))
	})

	t.Run("OtherVehicle", func(t *testing.T) {
		r4, slot4 := reservationAt("TD-2030-TESLAMODEL3-0000000004", start, time.Hour)
		assert.NoError(t, store.CreateIfNoOverlap(ctx, 2, slot4, r4))
	})

	t.Run("DuplicateCode", func(t *testing.T) {
		r5, slot5 := reservationAt("TD-2030-TESLAMODEL3-0000000001", start.Add(24*time.Hour), time.Hour)
		assert.ErrorIs(t, store.CreateIfNoOverlap(ctx, 3, slot5, r5), domain.ErrDuplicateReservationID)
	})

	existing, err := store.FetchReservations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, existing, 2)

	got, err := store.GetReservationByCode(ctx, "TD-2030-TESLAMODEL3-0000000001")
	require.NoError(t, err)
	assert.Equal(t, start, got.StartAt)

	_, err = store.GetReservationByCode(ctx, "TD-2030-X-FFFFFFFFFF")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	all, err := store.ListReservations(ctx, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.True(t, !all[0].StartAt.After(all[2].StartAt))
}

func TestMemoryReservationStoreConcurrentCreate(t *testing.T) {
	store := NewMemoryReservationStore()
	ctx := context.Background()
	start := time.Date(2030, 6, 3, 10, 0, 0, 0, time.UTC)

	const workers = 20
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, slot := reservationAt(models.ReservationIDPrefix+"-2030-T-"+string(rune('A'+i))+"000000000", start, time.Hour)
			errs[i] = store.CreateIfNoOverlap(ctx, 1, slot, r)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotConflict)
	}
	assert.Equal(t, 1, succeeded)

	existing, err := store.FetchReservations(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, existing, 1)
}
