package services

import (
	"sort"

	"github.com/careatlas/queryengine/internal/domain/entities"
	"github.com/careatlas/queryengine/internal/domain/repositories"
)

// bedDoctorRatioFloor is the minimum threshold for the IQR anomaly rule;
// it prevents noise at sparse data where the IQR itself is tiny.
const bedDoctorRatioFloor = 20.0

// singlePointFailureThreshold is the facility count at or below which a
// specialty is flagged as a single point of failure.
const singlePointFailureThreshold = 3

// DataAnalyst answers structured queries over the corpus: counts,
// aggregations, distributions, and bed/doctor-ratio anomalies.
type DataAnalyst struct {
	corpus     repositories.CorpusRepository
	extractors *Extractors
}

// NewDataAnalyst wires a corpus store and extractors into the structured
// query operations.
func NewDataAnalyst(corpus repositories.CorpusRepository, extractors *Extractors) *DataAnalyst {
	return &DataAnalyst{corpus: corpus, extractors: extractors}
}

// FacilityFilter narrows the corpus scan by any combination of specialty,
// region, and facility type, honoring specialty negation.
type FacilityFilter struct {
	Specialty       entities.Specialty
	SpecialtyNegate bool
	Region          string
	FacilityType    entities.FacilityType
}

func (a *DataAnalyst) matches(f *entities.Facility, filter FacilityFilter) bool {
	if filter.Specialty != "" {
		has := f.HasSpecialty(filter.Specialty)
		if filter.SpecialtyNegate && has {
			return false
		}
		if !filter.SpecialtyNegate && !has {
			return false
		}
	}
	if filter.Region != "" && f.Region != filter.Region {
		return false
	}
	if filter.FacilityType != "" && f.FacilityType != filter.FacilityType {
		return false
	}
	return true
}

// CountFacilities implements the count_facilities action.
func (a *DataAnalyst) CountFacilities(filter FacilityFilter) *entities.CountResult {
	facilities := a.corpus.Filter(func(f *entities.Facility) bool { return a.matches(f, filter) })
	citations := make([]entities.Citation, 0, len(facilities))
	for _, f := range facilities {
		citations = append(citations, entities.Citation{FacilityID: f.ID, Field: "facility_type", Value: string(f.FacilityType), Confidence: 1.0})
	}
	return &entities.CountResult{
		Count:          len(facilities),
		Facilities:     facilities,
		FiltersApplied: filterSummary(filter),
		Citations:      citations,
	}
}

func filterSummary(filter FacilityFilter) map[string]string {
	out := map[string]string{}
	if filter.Specialty != "" {
		key := "specialty"
		if filter.SpecialtyNegate {
			key = "specialty_excluded"
		}
		out[key] = string(filter.Specialty)
	}
	if filter.Region != "" {
		out["region"] = filter.Region
	}
	if filter.FacilityType != "" {
		out["facility_type"] = string(filter.FacilityType)
	}
	return out
}

// RegionAggregation implements the region_aggregation action.
func (a *DataAnalyst) RegionAggregation() *entities.AggregationResult {
	counts := map[string]int{}
	citations := make([]entities.Citation, 0)
	for _, f := range a.corpus.All() {
		counts[f.Region]++
		citations = append(citations, entities.Citation{FacilityID: f.ID, Field: "region", Value: f.Region, Confidence: 1.0})
	}

	topRegion, topCount := "", 0
	for region, count := range counts {
		if count > topCount {
			topRegion, topCount = region, count
		}
	}

	return &entities.AggregationResult{
		Aggregation: counts,
		TopRegion:   topRegion,
		TopCount:    topCount,
		Citations:   citations,
	}
}

// SpecialtyDistribution implements the specialty_distribution action.
func (a *DataAnalyst) SpecialtyDistribution() *entities.SpecialtyDistributionResult {
	distribution := map[string]int{}
	citations := make([]entities.Citation, 0)
	for _, f := range a.corpus.All() {
		for _, s := range f.Specialties {
			distribution[string(s)]++
			citations = append(citations, entities.Citation{FacilityID: f.ID, Field: "specialties", Value: string(s), Confidence: 1.0})
		}
	}
	return &entities.SpecialtyDistributionResult{
		Distribution:          distribution,
		TotalUniqueSpecialties: len(distribution),
		Citations:              citations,
	}
}

// AnomalyBedDoctorRatio implements the anomaly_bed_doctor_ratio action
// using an IQR rule with a noise-suppressing floor.
func (a *DataAnalyst) AnomalyBedDoctorRatio() *entities.AnomalyBedDoctorResult {
	type ratioEntry struct {
		facility *entities.Facility
		ratio    float64
	}

	entries := make([]ratioEntry, 0)
	for _, f := range a.corpus.All() {
		if f.Doctors > 0 && f.Capacity > 0 {
			entries = append(entries, ratioEntry{facility: f, ratio: float64(f.Capacity) / float64(f.Doctors)})
		}
	}
	if len(entries) == 0 {
		return &entities.AnomalyBedDoctorResult{Threshold: bedDoctorRatioFloor}
	}

	ratios := make([]float64, len(entries))
	for i, e := range entries {
		ratios[i] = e.ratio
	}
	q25 := percentile(ratios, 25)
	q75 := percentile(ratios, 75)
	iqr := q75 - q25
	threshold := q75 + 1.5*iqr
	if threshold < bedDoctorRatioFloor {
		threshold = bedDoctorRatioFloor
	}

	anomalies := make([]entities.BedDoctorAnomaly, 0)
	citations := make([]entities.Citation, 0)
	for _, e := range entries {
		if e.ratio > threshold {
			reasons := []string{"ratio exceeds IQR-derived threshold"}
			if e.ratio > 50 {
				reasons = append(reasons, "ratio > 50")
			}
			anomalies = append(anomalies, entities.BedDoctorAnomaly{
				Facility: e.facility,
				Ratio:    e.ratio,
				Reasons:  reasons,
			})
			citations = append(citations, entities.Citation{FacilityID: e.facility.ID, Field: "bed_doctor_ratio", Value: e.facility.Name, Confidence: 1.0})
		}
	}

	return &entities.AnomalyBedDoctorResult{Anomalies: anomalies, Threshold: threshold, Citations: citations}
}

// percentile computes the p-th percentile of values using linear
// interpolation between closest ranks, after sorting a copy.
func percentile(values []float64, p float64) float64 {
	sorted := append([]float64{}, values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[lower]
	}
	frac := rank - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// SinglePointOfFailure implements the single_point_of_failure action:
// specialties offered by singlePointFailureThreshold or fewer facilities.
func (a *DataAnalyst) SinglePointOfFailure() *entities.SinglePointFailureResult {
	counts := map[entities.Specialty][]*entities.Facility{}
	for _, f := range a.corpus.All() {
		for _, s := range f.Specialties {
			counts[s] = append(counts[s], f)
		}
	}

	rare := map[string]int{}
	results := make([]entities.SpecialtyRisk, 0)
	for specialty, facilities := range counts {
		if len(facilities) > singlePointFailureThreshold {
			continue
		}
		rare[string(specialty)] = len(facilities)
		level := "medium"
		switch len(facilities) {
		case 1:
			level = "critical"
		case 2:
			level = "high"
		}
		results = append(results, entities.SpecialtyRisk{
			Specialty:      string(specialty),
			FacilityCount:  len(facilities),
			Facilities:     facilities,
			RiskLevel:      level,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].FacilityCount < results[j].FacilityCount })

	citations := make([]entities.Citation, 0)
	for _, r := range results {
		for _, f := range r.Facilities {
			citations = append(citations, entities.Citation{FacilityID: f.ID, Field: "specialties", Value: r.Specialty, Confidence: 1.0})
		}
	}

	return &entities.SinglePointFailureResult{
		RareSpecialties: rare,
		Results:         results,
		Citations:       citations,
	}
}

// FindBy implements find_by_specialty / find_by_region / find_by_type,
// honoring negation when specialty is filtered. The action name reported
// on the result reflects the filter dimension that drove the lookup.
func (a *DataAnalyst) FindBy(filter FacilityFilter) *entities.FacilityListResult {
	facilities := a.corpus.Filter(func(f *entities.Facility) bool { return a.matches(f, filter) })

	action := "find_by_type"
	field := "facility_type"
	switch {
	case filter.Specialty != "":
		action = "find_by_specialty"
		field = "specialties"
	case filter.Region != "":
		action = "find_by_region"
		field = "region"
	}

	citations := make([]entities.Citation, 0, len(facilities))
	for _, f := range facilities {
		citations = append(citations, entities.Citation{FacilityID: f.ID, Field: field, Value: f.Name, Confidence: 1.0})
	}

	return &entities.FacilityListResult{ActionName: action, Facilities: facilities, Count: len(facilities), Citations: citations}
}
