package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

func facilityAt(id string, lat, lon float64, specialties ...entities.Specialty) *entities.Facility {
	la, lo := lat, lon
	return &entities.Facility{ID: id, Latitude: &la, Longitude: &lo, Specialties: specialties}
}

func TestHaversineKm_ZeroForSamePoint(t *testing.T) {
	assert.InDelta(t, 0, HaversineKm(5.6037, -0.1870, 5.6037, -0.1870), 1e-9)
}

func TestHaversineKm_AccraToKumasi(t *testing.T) {
	d := HaversineKm(5.6037, -0.1870, 6.6885, -1.6244)
	assert.InDelta(t, 200, d, 40) // approx known distance
}

func TestSpatialIndex_RadiusRespectsBound(t *testing.T) {
	idx := NewSpatialIndex([]*entities.Facility{
		facilityAt("near", 5.61, -0.19),
		facilityAt("far", 10.0, -2.0),
	})

	hits := idx.Radius(5.6037, -0.1870, 30, "")
	require.Len(t, hits, 1)
	assert.Equal(t, "near", hits[0].Facility.ID)
	for _, h := range hits {
		assert.LessOrEqual(t, h.DistanceKm, 30.0+1e-6)
	}
}

func TestSpatialIndex_NearestSortedAscending(t *testing.T) {
	idx := NewSpatialIndex([]*entities.Facility{
		facilityAt("far", 9.0, -1.0),
		facilityAt("near", 5.65, -0.20),
	})

	hits := idx.Nearest(5.6037, -0.1870, 2, "")
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].Facility.ID)
	assert.LessOrEqual(t, hits[0].DistanceKm, hits[1].DistanceKm)
}

func TestSpatialIndex_SpecialtyFilter(t *testing.T) {
	idx := NewSpatialIndex([]*entities.Facility{
		facilityAt("cardio", 5.61, -0.19, entities.SpecialtyCardiology),
		facilityAt("dental", 5.62, -0.20, entities.SpecialtyDentistry),
	})

	hits := idx.Radius(5.6037, -0.1870, 30, entities.SpecialtyCardiology)
	require.Len(t, hits, 1)
	assert.Equal(t, "cardio", hits[0].Facility.ID)
}

func TestSpatialIndex_ExcludesFacilitiesWithoutCoordinates(t *testing.T) {
	idx := NewSpatialIndex([]*entities.Facility{
		{ID: "no-coords"},
		facilityAt("has-coords", 5.61, -0.19),
	})
	assert.Len(t, idx.all, 1)
}

func TestGhanaGrid_ProducesPointsWithinBoundingBox(t *testing.T) {
	grid := GhanaGrid(0.25)
	assert.NotEmpty(t, grid)
	for _, p := range grid {
		assert.GreaterOrEqual(t, p.Lat, ghanaMinLat)
		assert.LessOrEqual(t, p.Lat, ghanaMaxLat+0.25)
	}
}
