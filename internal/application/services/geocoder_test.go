package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeocoder_ExactCityMatch(t *testing.T) {
	g := NewGeocoder()

	result := g.Geocode("Accra", "")
	assert.Equal(t, "exact_city", result.Method)
	assert.InDelta(t, 5.6037, result.Lat, 1e-4)
	assert.InDelta(t, -0.1870, result.Lon, 1e-4)
	assert.Equal(t, 1.0, result.Confidence)
}

func TestGeocoder_ExactRegionFallback(t *testing.T) {
	g := NewGeocoder()

	result := g.Geocode("", "Ashanti Region")
	assert.Equal(t, "exact_region", result.Method)
	assert.InDelta(t, 6.7470, result.Lat, 1e-4)
}

func TestGeocoder_FuzzyMatchesMisspelling(t *testing.T) {
	g := NewGeocoder()

	result := g.Geocode("Kumase", "")
	assert.Contains(t, []string{"fuzzy", "word_boundary"}, result.Method)
	assert.InDelta(t, 6.6885, result.Lat, 0.5)
}

func TestGeocoder_NoMatchReturnsEmptyMethod(t *testing.T) {
	g := NewGeocoder()

	result := g.Geocode("Nonexistentplacexyz123", "")
	assert.Equal(t, "", result.Method)
}

func TestGeocoder_WordBoundaryDoesNotOverMatchShortNames(t *testing.T) {
	g := NewGeocoder()

	// "wa" must not match "nkawkaw" (regression the original fixed).
	result := g.Geocode("Wa", "")
	assert.Equal(t, "exact_city", result.Method)
	assert.InDelta(t, 10.0601, result.Lat, 1e-3)
}
