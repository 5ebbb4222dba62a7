package entities

// AgentResult is a tagged union over agent actions. Each variant has a
// closed field set and always carries its own citations. This replaces the
// aggregator's dynamic "scan for facility-bearing keys" behaviour with a
// typed FacilitiesForMap method per variant.
type AgentResult interface {
	Action() string
	GetCitations() []Citation
	FacilitiesForMap() []MapFacility
}

func mapFrom(facilities []*Facility) []MapFacility {
	out := make([]MapFacility, 0, len(facilities))
	seen := make(map[string]bool, len(facilities))
	for _, f := range facilities {
		if f == nil || !f.HasCoordinates() || seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		out = append(out, MapFacility{ID: f.ID, Name: f.Name, Latitude: *f.Latitude, Longitude: *f.Longitude})
	}
	return out
}

// ── Data Analyst results (spec §4.5) ────────────────────────────────────

type CountResult struct {
	Count          int
	Facilities     []*Facility
	FiltersApplied map[string]string
	Citations      []Citation
}

func (r *CountResult) Action() string               { return "count_facilities" }
func (r *CountResult) GetCitations() []Citation      { return r.Citations }
func (r *CountResult) FacilitiesForMap() []MapFacility { return mapFrom(r.Facilities) }

type AggregationResult struct {
	Aggregation map[string]int
	TopRegion   string
	TopCount    int
	Citations   []Citation
}

func (r *AggregationResult) Action() string               { return "region_aggregation" }
func (r *AggregationResult) GetCitations() []Citation      { return r.Citations }
func (r *AggregationResult) FacilitiesForMap() []MapFacility { return nil }

type SpecialtyDistributionResult struct {
	Distribution           map[string]int
	TotalUniqueSpecialties int
	Citations              []Citation
}

func (r *SpecialtyDistributionResult) Action() string               { return "specialty_distribution" }
func (r *SpecialtyDistributionResult) GetCitations() []Citation      { return r.Citations }
func (r *SpecialtyDistributionResult) FacilitiesForMap() []MapFacility { return nil }

type BedDoctorAnomaly struct {
	Facility *Facility
	Ratio    float64
	Reasons  []string
}

type AnomalyBedDoctorResult struct {
	Anomalies []BedDoctorAnomaly
	Threshold float64
	Citations []Citation
}

func (r *AnomalyBedDoctorResult) Action() string          { return "anomaly_bed_doctor_ratio" }
func (r *AnomalyBedDoctorResult) GetCitations() []Citation { return r.Citations }
func (r *AnomalyBedDoctorResult) FacilitiesForMap() []MapFacility {
	facs := make([]*Facility, 0, len(r.Anomalies))
	for _, a := range r.Anomalies {
		facs = append(facs, a.Facility)
	}
	return mapFrom(facs)
}

type SpecialtyRisk struct {
	Specialty      string
	FacilityCount  int
	Facilities     []*Facility
	RiskLevel      string
}

type SinglePointFailureResult struct {
	RareSpecialties map[string]int
	Results         []SpecialtyRisk
	Citations       []Citation
}

func (r *SinglePointFailureResult) Action() string          { return "single_point_of_failure" }
func (r *SinglePointFailureResult) GetCitations() []Citation { return r.Citations }
func (r *SinglePointFailureResult) FacilitiesForMap() []MapFacility {
	var facs []*Facility
	for _, s := range r.Results {
		facs = append(facs, s.Facilities...)
	}
	return mapFrom(facs)
}

type FacilityListResult struct {
	ActionName string
	Facilities []*Facility
	Count      int
	Citations  []Citation
}

func (r *FacilityListResult) Action() string               { return r.ActionName }
func (r *FacilityListResult) GetCitations() []Citation      { return r.Citations }
func (r *FacilityListResult) FacilitiesForMap() []MapFacility { return mapFrom(r.Facilities) }

// ── Semantic Searcher result (spec §4.4) ────────────────────────────────

type SearchHit struct {
	Facility *Facility
	RRFScore float64
	Display  float64
}

type SemanticSearchResult struct {
	Query          string
	Hits           []SearchHit
	VectorWeights  map[string]float64
	FiltersApplied map[string]string
	SearchMethod   string
	SelfCorrected  bool
	Citations      []Citation
}

func (r *SemanticSearchResult) Action() string          { return "semantic_search" }
func (r *SemanticSearchResult) GetCitations() []Citation { return r.Citations }
func (r *SemanticSearchResult) FacilitiesForMap() []MapFacility {
	facs := make([]*Facility, 0, len(r.Hits))
	for _, h := range r.Hits {
		facs = append(facs, h.Facility)
	}
	return mapFrom(facs)
}

// ── Medical Reasoner results (spec §4.6) ────────────────────────────────

type ValidationIssue struct {
	Item     string
	Severity string // "high" | "medium"
	Reason   string
}

type FacilityValidation struct {
	Facility   *Facility
	Confidence float64
	Issues     []ValidationIssue
}

type ValidationResult struct {
	Validated []FacilityValidation
	Citations []Citation
}

func (r *ValidationResult) Action() string          { return "validate_facilities" }
func (r *ValidationResult) GetCitations() []Citation { return r.Citations }
func (r *ValidationResult) FacilitiesForMap() []MapFacility {
	facs := make([]*Facility, 0, len(r.Validated))
	for _, v := range r.Validated {
		facs = append(facs, v.Facility)
	}
	return mapFrom(facs)
}

type FlaggedAnomaly struct {
	Facility *Facility
	Reasons  []string
}

type TwoStageAnomalyResult struct {
	FlaggedFacilities []FlaggedAnomaly
	Skipped           bool // DegenerateFeatures: stage 2 skipped
	SkipReason        string
	Citations         []Citation
}

func (r *TwoStageAnomalyResult) Action() string          { return "detect_anomalies" }
func (r *TwoStageAnomalyResult) GetCitations() []Citation { return r.Citations }
func (r *TwoStageAnomalyResult) FacilitiesForMap() []MapFacility {
	facs := make([]*Facility, 0, len(r.FlaggedFacilities))
	for _, a := range r.FlaggedFacilities {
		facs = append(facs, a.Facility)
	}
	return mapFrom(facs)
}

type RedFlag struct {
	Facility *Facility
	Category string
	Pattern  string
	Excerpt  string
}

type RedFlagResult struct {
	Flagged   []RedFlag
	Citations []Citation
}

func (r *RedFlagResult) Action() string          { return "detect_red_flags" }
func (r *RedFlagResult) GetCitations() []Citation { return r.Citations }
func (r *RedFlagResult) FacilitiesForMap() []MapFacility {
	facs := make([]*Facility, 0, len(r.Flagged))
	for _, f := range r.Flagged {
		facs = append(facs, f.Facility)
	}
	return mapFrom(facs)
}

type CoverageGapRegion struct {
	Region        string
	FacilityCount int
	Severity      string
}

type CoverageGapResult struct {
	Specialty string
	Regions   []CoverageGapRegion
	Citations []Citation
}

func (r *CoverageGapResult) Action() string          { return "identify_coverage_gaps" }
func (r *CoverageGapResult) GetCitations() []Citation { return r.Citations }
func (r *CoverageGapResult) FacilitiesForMap() []MapFacility { return nil }

// ── Geospatial Analyst results (spec §4.7) ──────────────────────────────

type RadiusHit struct {
	Facility   *Facility
	DistanceKm float64
}

type RadiusSearchResult struct {
	CenterLat, CenterLng float64
	RadiusKm             float64
	Results              []RadiusHit
	Citations            []Citation
}

func (r *RadiusSearchResult) Action() string          { return "radius_search" }
func (r *RadiusSearchResult) GetCitations() []Citation { return r.Citations }
func (r *RadiusSearchResult) FacilitiesForMap() []MapFacility {
	facs := make([]*Facility, 0, len(r.Results))
	for _, h := range r.Results {
		facs = append(facs, h.Facility)
	}
	return mapFrom(facs)
}

type ColdSpot struct {
	Latitude, Longitude float64
	NearestDistanceKm   float64
}

type ColdSpotResult struct {
	Specialty string
	ColdSpots []ColdSpot
	Citations []Citation
}

func (r *ColdSpotResult) Action() string          { return "coverage_gap_analysis" }
func (r *ColdSpotResult) GetCitations() []Citation { return r.Citations }
func (r *ColdSpotResult) FacilitiesForMap() []MapFacility { return nil }

type MedicalDesert struct {
	Region            string
	NearestFacility   *Facility
	NearestDistanceKm float64
	Severity          string
}

type MedicalDesertResult struct {
	Specialty string
	Deserts   []MedicalDesert
	Citations []Citation
}

func (r *MedicalDesertResult) Action() string          { return "identify_medical_deserts" }
func (r *MedicalDesertResult) GetCitations() []Citation { return r.Citations }
func (r *MedicalDesertResult) FacilitiesForMap() []MapFacility {
	facs := make([]*Facility, 0, len(r.Deserts))
	for _, d := range r.Deserts {
		if d.NearestFacility != nil {
			facs = append(facs, d.NearestFacility)
		}
	}
	return mapFrom(facs)
}

type RegionalEquityEntry struct {
	Region              string
	FacilityDensity     float64
	SpecialtyCount      int
	DoctorTotal         int
	BedTotal            int
	MahalanobisDistance float64
	Flagged             bool
}

type RegionalEquityResult struct {
	Regions   []RegionalEquityEntry
	Citations []Citation
}

func (r *RegionalEquityResult) Action() string          { return "regional_equity" }
func (r *RegionalEquityResult) GetCitations() []Citation { return r.Citations }
func (r *RegionalEquityResult) FacilitiesForMap() []MapFacility { return nil }

type DistanceResult struct {
	CityA, CityB string
	DistanceKm   float64
	Error        string
	Citations    []Citation
}

func (r *DistanceResult) Action() string          { return "distance_between_cities" }
func (r *DistanceResult) GetCitations() []Citation { return r.Citations }
func (r *DistanceResult) FacilitiesForMap() []MapFacility { return nil }

// ── Planner results (spec §4.8) ─────────────────────────────────────────

type RoutingCandidate struct {
	Facility   *Facility
	Score      float64
	DistanceKm float64
}

type EmergencyRoutingResult struct {
	Primary             *RoutingCandidate
	Backup              *RoutingCandidate
	Alternatives        []RoutingCandidate
	TravelTimeMinutes   float64
	Citations           []Citation
}

func (r *EmergencyRoutingResult) Action() string          { return "emergency_routing" }
func (r *EmergencyRoutingResult) GetCitations() []Citation { return r.Citations }
func (r *EmergencyRoutingResult) FacilitiesForMap() []MapFacility {
	var facs []*Facility
	if r.Primary != nil {
		facs = append(facs, r.Primary.Facility)
	}
	if r.Backup != nil {
		facs = append(facs, r.Backup.Facility)
	}
	for _, a := range r.Alternatives {
		facs = append(facs, a.Facility)
	}
	return mapFrom(facs)
}

type TourResult struct {
	Specialty            string
	Stops                []*Facility
	GreedyInitialDistance float64
	FinalTourDistance     float64
	Citations             []Citation
}

func (r *TourResult) Action() string          { return "specialist_deployment" }
func (r *TourResult) GetCitations() []Citation { return r.Citations }
func (r *TourResult) FacilitiesForMap() []MapFacility { return mapFrom(r.Stops) }

type EquipmentSuggestion struct {
	Region             string
	AbsentCount        int
	RecommendedFacility *Facility
	WouldServe         int
}

type EquipmentDistributionResult struct {
	Equipment   string
	Suggestions []EquipmentSuggestion
	Citations   []Citation
}

func (r *EquipmentDistributionResult) Action() string          { return "equipment_distribution" }
func (r *EquipmentDistributionResult) GetCitations() []Citation { return r.Citations }
func (r *EquipmentDistributionResult) FacilitiesForMap() []MapFacility {
	var facs []*Facility
	for _, s := range r.Suggestions {
		if s.RecommendedFacility != nil {
			facs = append(facs, s.RecommendedFacility)
		}
	}
	return mapFrom(facs)
}

type PlacementSite struct {
	Latitude, Longitude float64
	DistanceKm          float64
	Priority            string
}

type PlacementResult struct {
	Specialty  string
	Placements []PlacementSite
	Citations  []Citation
}

func (r *PlacementResult) Action() string          { return "new_facility_placement" }
func (r *PlacementResult) GetCitations() []Citation { return r.Citations }
func (r *PlacementResult) FacilitiesForMap() []MapFacility { return nil }

type CapacityRegion struct {
	Region            string
	BedsPerFacility   float64
	DoctorsPerFacility float64
	TotalFacilities   int
	Status            string
}

type CapacityPlanningResult struct {
	Regions   []CapacityRegion
	Citations []Citation
}

func (r *CapacityPlanningResult) Action() string          { return "capacity_planning" }
func (r *CapacityPlanningResult) GetCitations() []Citation { return r.Citations }
func (r *CapacityPlanningResult) FacilitiesForMap() []MapFacility { return nil }

// ── Generic error result ────────────────────────────────────────────────

// ErrorResult is returned by an agent that cannot complete its action
// (e.g. GeocodeMiss); it always carries an explicit error string rather
// than a zero-value result the caller might mistake for "no matches".
type ErrorResult struct {
	ActionName string
	Error      string
	Citations  []Citation
}

func (r *ErrorResult) Action() string          { return r.ActionName }
func (r *ErrorResult) GetCitations() []Citation { return r.Citations }
func (r *ErrorResult) FacilitiesForMap() []MapFacility { return nil }
