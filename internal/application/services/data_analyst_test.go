package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

func fac(id, region string, ft entities.FacilityType, capacity, doctors int, specialties ...entities.Specialty) *entities.Facility {
	return &entities.Facility{
		ID:           id,
		Name:         id,
		Region:       region,
		FacilityType: ft,
		Capacity:     capacity,
		Doctors:      doctors,
		Specialties:  specialties,
	}
}

func sampleAnalystFacilities() []*entities.Facility {
	return []*entities.Facility{
		fac("f1", "Greater Accra", entities.FacilityTypeHospital, 200, 20, entities.SpecialtyCardiology, entities.SpecialtyPediatrics),
		fac("f2", "Ashanti", entities.FacilityTypeHospital, 150, 15, entities.SpecialtyCardiology),
		fac("f3", "Greater Accra", entities.FacilityTypeClinic, 30, 1, entities.SpecialtyDentistry),
		fac("f4", "Ashanti", entities.FacilityTypeClinic, 20, 10, entities.SpecialtyDentistry),
	}
}

func TestDataAnalyst_CountFacilities(t *testing.T) {
	analyst := NewDataAnalyst(NewCorpusStore(sampleAnalystFacilities()), NewExtractors(NewGeocoder()))

	result := analyst.CountFacilities(FacilityFilter{Region: "Greater Accra"})
	assert.Equal(t, 2, result.Count)
}

func TestDataAnalyst_CountFacilitiesWithNegatedSpecialty(t *testing.T) {
	analyst := NewDataAnalyst(NewCorpusStore(sampleAnalystFacilities()), NewExtractors(NewGeocoder()))

	result := analyst.CountFacilities(FacilityFilter{Specialty: entities.SpecialtyCardiology, SpecialtyNegate: true})
	assert.Equal(t, 2, result.Count)
	for _, f := range result.Facilities {
		assert.False(t, f.HasSpecialty(entities.SpecialtyCardiology))
	}
}

func TestDataAnalyst_RegionAggregation(t *testing.T) {
	analyst := NewDataAnalyst(NewCorpusStore(sampleAnalystFacilities()), NewExtractors(NewGeocoder()))

	result := analyst.RegionAggregation()
	assert.Equal(t, 2, result.Aggregation["Greater Accra"])
	assert.Equal(t, 2, result.Aggregation["Ashanti"])
	assert.Equal(t, 2, result.TopCount)
}

func TestDataAnalyst_SpecialtyDistribution(t *testing.T) {
	analyst := NewDataAnalyst(NewCorpusStore(sampleAnalystFacilities()), NewExtractors(NewGeocoder()))

	result := analyst.SpecialtyDistribution()
	assert.Equal(t, 2, result.Distribution[string(entities.SpecialtyCardiology)])
	assert.Equal(t, 2, result.Distribution[string(entities.SpecialtyDentistry)])
}

func TestDataAnalyst_AnomalyBedDoctorRatioFlagsOutlier(t *testing.T) {
	facilities := []*entities.Facility{
		fac("f1", "Greater Accra", entities.FacilityTypeHospital, 40, 20),
		fac("f2", "Greater Accra", entities.FacilityTypeHospital, 44, 22),
		fac("f3", "Greater Accra", entities.FacilityTypeHospital, 36, 18),
		fac("f4", "Greater Accra", entities.FacilityTypeHospital, 42, 21),
		fac("f5", "Greater Accra", entities.FacilityTypeHospital, 5000, 5),
	}
	analyst := NewDataAnalyst(NewCorpusStore(facilities), NewExtractors(NewGeocoder()))

	result := analyst.AnomalyBedDoctorRatio()
	assert.NotEmpty(t, result.Anomalies)
	found := false
	for _, a := range result.Anomalies {
		if a.Facility.ID == "f5" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestDataAnalyst_AnomalyBedDoctorRatioHonorsFloor(t *testing.T) {
	facilities := []*entities.Facility{
		fac("f1", "Greater Accra", entities.FacilityTypeHospital, 10, 5),
		fac("f2", "Greater Accra", entities.FacilityTypeHospital, 12, 6),
	}
	analyst := NewDataAnalyst(NewCorpusStore(facilities), NewExtractors(NewGeocoder()))

	result := analyst.AnomalyBedDoctorRatio()
	assert.Equal(t, bedDoctorRatioFloor, result.Threshold)
	assert.Empty(t, result.Anomalies)
}

func TestDataAnalyst_SinglePointOfFailure(t *testing.T) {
	facilities := []*entities.Facility{
		fac("f1", "Greater Accra", entities.FacilityTypeHospital, 100, 10, entities.SpecialtyNeurosurgery),
		fac("f2", "Ashanti", entities.FacilityTypeHospital, 100, 10, entities.SpecialtyCardiology),
		fac("f3", "Ashanti", entities.FacilityTypeHospital, 100, 10, entities.SpecialtyCardiology),
	}
	analyst := NewDataAnalyst(NewCorpusStore(facilities), NewExtractors(NewGeocoder()))

	result := analyst.SinglePointOfFailure()
	assert.Equal(t, 1, result.RareSpecialties[string(entities.SpecialtyNeurosurgery)])

	var neuroRisk *entities.SpecialtyRisk
	for i := range result.Results {
		if result.Results[i].Specialty == string(entities.SpecialtyNeurosurgery) {
			neuroRisk = &result.Results[i]
		}
	}
	if assert.NotNil(t, neuroRisk) {
		assert.Equal(t, "critical", neuroRisk.RiskLevel)
	}
}

func TestDataAnalyst_FindBySpecialtySetsActionName(t *testing.T) {
	analyst := NewDataAnalyst(NewCorpusStore(sampleAnalystFacilities()), NewExtractors(NewGeocoder()))

	result := analyst.FindBy(FacilityFilter{Specialty: entities.SpecialtyCardiology})
	assert.Equal(t, "find_by_specialty", result.ActionName)
	assert.Equal(t, 2, result.Count)
}

func TestPercentile_Interpolates(t *testing.T) {
	values := []float64{1, 2, 3, 4}
	assert.InDelta(t, 2.5, percentile(values, 50), 1e-9)
}
