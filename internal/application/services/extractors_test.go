package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

func TestExtractors_ExtractSpecialty(t *testing.T) {
	e := NewExtractors(NewGeocoder())
	assert.Equal(t, entities.SpecialtyCardiology, e.ExtractSpecialty("facility with cardiac catheterization"))
	assert.Equal(t, entities.Specialty(""), e.ExtractSpecialty("nothing relevant here"))
}

func TestExtractors_ExtractRegionPrefersLongestMatch(t *testing.T) {
	e := NewExtractors(NewGeocoder())
	assert.Equal(t, "greater accra region", e.ExtractRegion("hospitals in Greater Accra Region"))
}

func TestExtractors_ExtractFacilityType(t *testing.T) {
	e := NewExtractors(NewGeocoder())
	assert.Equal(t, entities.FacilityTypeHospital, e.ExtractFacilityType("how many hospitals offer cardiology"))
}

func TestExtractors_ExtractEquipment(t *testing.T) {
	e := NewExtractors(NewGeocoder())
	assert.Equal(t, entities.EquipmentMRI, e.ExtractEquipment("does it have an MRI"))
}

func TestIsNegated_WithinWindow(t *testing.T) {
	assert.True(t, IsNegated("facilities in Ashanti without orthopedic services", "orthopedic"))
}

func TestIsNegated_OutsideWindow(t *testing.T) {
	assert.False(t, IsNegated("no data available for this region at all so let's talk about orthopedic care elsewhere entirely different topic", "orthopedic"))
}

func TestIsNegated_NoTrigger(t *testing.T) {
	assert.False(t, IsNegated("facilities offering orthopedic services", "orthopedic"))
}
