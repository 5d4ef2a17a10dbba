package database

import (
	"context"
	"testing"
	"time"

	"testdrive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchCandidates(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)
	ctx := context.Background()

	got, err := db.FetchCandidates(ctx, "Tesla_Model3", "Dublin")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].ID, "lower sort_order first")
	assert.Equal(t, int64(1), got[1].ID)

	v := got[1]
	assert.Equal(t, "Model 3 #1", v.Name)
	assert.Len(t, v.AvailableDays, 7)
	assert.Equal(t, models.MustClockTime("09:00"), v.AvailableFrom)
	assert.Equal(t, models.MustClockTime("18:00"), v.AvailableTo)
	assert.False(t, v.CreatedAt.IsZero())

	none, err := db.FetchCandidates(ctx, "tesla_model3", "galway")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSeedVehiclesUpserts(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)
	ctx := context.Background()

	update := []models.Vehicle{{
		ID: 3, Name: "i4 M50", Type: "bmw_i4", Location: "cork",
		AvailableDays: models.Weekdays{time.Saturday, time.Sunday},
		AvailableFrom: models.MustClockTime("08:00"), AvailableTo: models.MustClockTime("12:00"),
	}}
	require.NoError(t, db.SeedVehicles(ctx, update))

	got, err := db.FetchCandidates(ctx, "bmw_i4", "cork")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "i4 M50", got[0].Name)
	assert.Equal(t, models.Weekdays{time.Saturday, time.Sunday}, got[0].AvailableDays)
	assert.Equal(t, "", got[0].Timezone)

	dublin, err := db.FetchCandidates(ctx, "bmw_i4", "dublin")
	require.NoError(t, err)
	assert.Empty(t, dublin)
}

func TestListByLocation(t *testing.T) {
	db := setupTestDB(t)
	seedFleet(t, db)

	got, err := db.ListByLocation(context.Background(), "dublin")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, "Europe/Dublin", got[0].Timezone)
	assert.Equal(t, models.EndOfDay, got[0].AvailableTo)
}
