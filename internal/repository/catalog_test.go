package repository

import (
	"context"
	"testing"

	"testdrive/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFleet() []models.Vehicle {
	return []models.Vehicle{
		{ID: 3, Type: "tesla_model3", Location: "dublin", SortOrder: 1},
		{ID: 1, Type: "Tesla_Model3", Location: "Dublin", SortOrder: 2},
		{ID: 2, Type: "tesla_model3", Location: "dublin", SortOrder: 1},
		{ID: 4, Type: "bmw_i4", Location: "dublin"},
		{ID: 5, Type: "tesla_model3", Location: "cork"},
	}
}

func TestMemoryCatalogFetchCandidates(t *testing.T) {
	catalog := NewMemoryCatalog(testFleet())
	ctx := context.Background()

	got, err := catalog.FetchCandidates(ctx, "tesla_model3", "dublin")
	require.NoError(t, err)
	require.Len(t, got, 3)

	ids := []int64{got[0].ID, got[1].ID, got[2].ID}
	assert.Equal(t, []int64{2, 3, 1}, ids)

	got, err = catalog.FetchCandidates(ctx, "tesla_model3", "galway")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMemoryCatalogReturnsCopies(t *testing.T) {
	catalog := NewMemoryCatalog(testFleet())
	ctx := context.Background()

	got, err := catalog.FetchCandidates(ctx, "bmw_i4", "dublin")
	require.NoError(t, err)
	require.Len(t, got, 1)
	got[0].Location = "changed"

	again, err := catalog.FetchCandidates(ctx, "bmw_i4", "dublin")
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "dublin", again[0].Location)
}

func TestMemoryCatalogLocations(t *testing.T) {
	catalog := NewMemoryCatalog(testFleet())
	ctx := context.Background()

	locations, err := catalog.ListLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cork", "dublin"}, locations)

	vehicles, err := catalog.ListByLocation(ctx, "dublin")
	require.NoError(t, err)
	assert.Len(t, vehicles, 4)
	assert.Equal(t, int64(4), vehicles[0].ID)
}
