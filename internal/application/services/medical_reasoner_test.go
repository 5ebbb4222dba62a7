package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

func TestConfidenceFromIssues_NoIssuesCapped(t *testing.T) {
	confidence := confidenceFromIssues(20, nil)
	assert.Equal(t, 0.95, confidence)
}

func TestConfidenceFromIssues_DiminishingPenalties(t *testing.T) {
	issues := []entities.ValidationIssue{
		{Severity: "high"},
		{Severity: "high"},
		{Severity: "high"},
	}
	confidence := confidenceFromIssues(0, issues)
	// base 0.65, then -0.15, -0.10, -0.05 = 0.35
	assert.InDelta(t, 0.35, confidence, 1e-9)
}

func TestConfidenceFromIssues_FloorsAtOneTenth(t *testing.T) {
	issues := make([]entities.ValidationIssue, 20)
	for i := range issues {
		issues[i] = entities.ValidationIssue{Severity: "high"}
	}
	confidence := confidenceFromIssues(0, issues)
	assert.Equal(t, 0.10, confidence)
}

func TestMedicalReasoner_ValidateFacilitiesFlagsMissingEquipment(t *testing.T) {
	facility := &entities.Facility{
		ID:         "f1",
		Name:       "Rural Clinic",
		Procedures: []string{"neurosurgery"},
		Capacity:   10,
	}
	reasoner := NewMedicalReasoner(NewCorpusStore([]*entities.Facility{facility}))

	result := reasoner.ValidateFacilities([]*entities.Facility{facility})
	require.Len(t, result.Validated, 1)
	assert.NotEmpty(t, result.Validated[0].Issues)
	assert.Less(t, result.Validated[0].Confidence, 0.65)
}

func TestMedicalReasoner_ValidateFacilitiesNoIssuesWhenUnclaimed(t *testing.T) {
	facility := &entities.Facility{ID: "f1", Name: "Basic Clinic", Capacity: 10}
	reasoner := NewMedicalReasoner(NewCorpusStore([]*entities.Facility{facility}))

	result := reasoner.ValidateFacilities([]*entities.Facility{facility})
	require.Len(t, result.Validated, 1)
	assert.Empty(t, result.Validated[0].Issues)
}

func normalFacility(id string, jitter int) *entities.Facility {
	equipment := []string{"X-ray"}
	if jitter%2 == 0 {
		equipment = append(equipment, "ultrasound")
	}
	capabilities := []string{}
	if jitter%3 == 0 {
		capabilities = append(capabilities, "24/7 emergency")
	}
	procedures := []string{"checkup"}
	if jitter%4 == 1 {
		procedures = append(procedures, "vaccination")
	}
	return &entities.Facility{
		ID:           id,
		Name:         id,
		Specialties:  []entities.Specialty{entities.SpecialtyCardiology},
		Procedures:   procedures,
		Equipment:    equipment,
		Capabilities: capabilities,
		Capacity:     40 + jitter,
		Doctors:      8 + jitter%4,
	}
}

func TestMedicalReasoner_DetectAnomaliesSkipsMahalanobisWithFewFacilities(t *testing.T) {
	facilities := []*entities.Facility{normalFacility("f1", 1), normalFacility("f2", 2), normalFacility("f3", 3)}
	reasoner := NewMedicalReasoner(NewCorpusStore(facilities))

	result := reasoner.DetectAnomalies()
	assert.True(t, result.Skipped)
	assert.NotEmpty(t, result.SkipReason)
}

func TestMedicalReasoner_DetectAnomaliesRunsMahalanobisWithEnoughFacilities(t *testing.T) {
	facilities := []*entities.Facility{
		normalFacility("f1", 1), normalFacility("f2", 2), normalFacility("f3", 3),
		normalFacility("f4", 4), normalFacility("f5", 5), normalFacility("f6", 6),
		normalFacility("f7", 7), normalFacility("f8", 8),
	}
	outlier := &entities.Facility{
		ID:          "outlier",
		Name:        "outlier",
		Specialties: make([]entities.Specialty, 0),
		Procedures:  make([]string, 20),
		Equipment:   []string{"X-ray"},
		Capacity:    3000,
		Doctors:     1,
	}
	facilities = append(facilities, outlier)

	reasoner := NewMedicalReasoner(NewCorpusStore(facilities))
	result := reasoner.DetectAnomalies()
	assert.False(t, result.Skipped)
}

func TestTokenSetRatio_IdenticalStringsScoreMax(t *testing.T) {
	assert.Equal(t, 100.0, tokenSetRatio("cardiology", "cardiology"))
}

func TestTokenSetRatio_DisjointScoresZero(t *testing.T) {
	assert.Equal(t, 0.0, tokenSetRatio("cardiology", "dentistry"))
}

func TestSpecialtyAdjacentToTrigger_WithinWindow(t *testing.T) {
	text := "we do not currently offer cardiology services"
	assert.True(t, SpecialtyAdjacentToTrigger(text, "cardiology"))
}

func TestSpecialtyAdjacentToTrigger_NoTrigger(t *testing.T) {
	text := "we proudly offer full cardiology services"
	assert.False(t, SpecialtyAdjacentToTrigger(text, "cardiology"))
}

func TestMedicalReasoner_DetectRedFlagsFlagsPatternMatch(t *testing.T) {
	facility := &entities.Facility{ID: "f1", Name: "Mission Clinic", Description: "hosts a monthly surgical camp for visiting surgeons"}
	reasoner := NewMedicalReasoner(NewCorpusStore([]*entities.Facility{facility}))

	result := reasoner.DetectRedFlags(map[string]string{"f1": facility.Description})
	assert.NotEmpty(t, result.Flagged)
	assert.NotEmpty(t, result.Citations)
}

func TestMedicalReasoner_DetectRedFlagsFlagsSpecialtyAdjacentToTrigger(t *testing.T) {
	facility := &entities.Facility{
		ID:          "f1",
		Name:        "Rural Clinic",
		Specialties: []entities.Specialty{entities.SpecialtyCardiology},
		Description: "we do not currently offer cardiology services",
	}
	reasoner := NewMedicalReasoner(NewCorpusStore([]*entities.Facility{facility}))

	result := reasoner.DetectRedFlags(map[string]string{"f1": facility.Description})
	require.NotEmpty(t, result.Flagged)
	assert.Equal(t, "specialty_adjacent_to_trigger", result.Flagged[0].Category)
}

func TestMedicalReasoner_DetectRedFlags(t *testing.T) {
	facility := &entities.Facility{ID: "f1", Name: "Community Clinic"}
	reasoner := NewMedicalReasoner(NewCorpusStore([]*entities.Facility{facility}))

	descriptions := map[string]string{
		"f1": "Our visiting specialist provides cardiology consultations twice a month.",
	}
	result := reasoner.DetectRedFlags(descriptions)
	assert.NotEmpty(t, result.Flagged)
	assert.Equal(t, "visiting_specialist", result.Flagged[0].Category)
}

func TestMedicalReasoner_IdentifyCoverageGaps(t *testing.T) {
	facilities := []*entities.Facility{
		fac("f1", "Greater Accra", entities.FacilityTypeHospital, 100, 10, entities.SpecialtyCardiology),
		fac("f2", "Ashanti", entities.FacilityTypeHospital, 100, 10),
		fac("f3", "Volta", entities.FacilityTypeHospital, 100, 10),
	}
	reasoner := NewMedicalReasoner(NewCorpusStore(facilities))

	result := reasoner.IdentifyCoverageGaps(entities.SpecialtyCardiology)
	found := false
	for _, region := range result.Regions {
		if region.Region == "Ashanti" || region.Region == "Volta" {
			assert.Equal(t, "critical", region.Severity)
			found = true
		}
	}
	assert.True(t, found)
}

func TestInvertMatrix_IdentityRoundTrip(t *testing.T) {
	m := [][]float64{{2, 0}, {0, 4}}
	inv, ok := invertMatrix(m)
	require.True(t, ok)
	assert.InDelta(t, 0.5, inv[0][0], 1e-9)
	assert.InDelta(t, 0.25, inv[1][1], 1e-9)
}

func TestInvertMatrix_SingularReturnsFalse(t *testing.T) {
	m := [][]float64{{1, 2}, {2, 4}}
	_, ok := invertMatrix(m)
	assert.False(t, ok)
}
