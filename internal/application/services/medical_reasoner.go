package services

import (
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/careatlas/queryengine/internal/data"
	"github.com/careatlas/queryengine/internal/domain/entities"
	"github.com/careatlas/queryengine/internal/domain/repositories"
)

var (
	redFlagPatternCacheMu sync.Mutex
	redFlagPatternCache   = map[string]*regexp.Regexp{}
)

// compileRedFlagPattern compiles (and caches) a case-insensitive red-flag
// regex; a pattern that fails to compile is skipped rather than panicking.
func compileRedFlagPattern(pattern string) *regexp.Regexp {
	redFlagPatternCacheMu.Lock()
	defer redFlagPatternCacheMu.Unlock()

	if re, ok := redFlagPatternCache[pattern]; ok {
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		redFlagPatternCache[pattern] = nil
		return nil
	}
	redFlagPatternCache[pattern] = re
	return re
}

// mahalanobisChiSquareThreshold is the inverse chi-square CDF at p=0.975
// with 6 degrees of freedom, used as the stage-2 anomaly cutoff.
const mahalanobisChiSquareThreshold = 14.45

// isolationForestContamination is the expected outlier fraction used to
// pick the stage-1 score cutoff.
const isolationForestContamination = 0.05

// fuzzyTokenSetThreshold is the minimum token-set overlap ratio, in the
// same 0-100 scale fuzzywuzzy-style libraries use, for a specialty mention
// near a red-flag trigger to count as adjacent.
const fuzzyTokenSetThreshold = 75.0

// procedureConstraint is one entry in the fixed advanced-procedure
// knowledge base: the equipment and bed capacity a facility needs to
// credibly offer it.
type procedureConstraint struct {
	name             string
	requiredEquipment []entities.EquipmentTag
	minBeds          int
}

var procedureConstraints = []procedureConstraint{
	{name: "neurosurgery", requiredEquipment: []entities.EquipmentTag{entities.EquipmentCT, entities.EquipmentMRI, entities.EquipmentICU, entities.EquipmentOperatingTheater}, minBeds: 50},
	{name: "cardiac surgery", requiredEquipment: []entities.EquipmentTag{entities.EquipmentCardiacCatheterization, entities.EquipmentICU, entities.EquipmentVentilator}, minBeds: 100},
	{name: "cataract surgery", requiredEquipment: []entities.EquipmentTag{entities.EquipmentOphthalmoscope, entities.EquipmentSurgicalMicroscope}, minBeds: 5},
	{name: "dialysis", requiredEquipment: []entities.EquipmentTag{entities.EquipmentDialysisMachine}, minBeds: 10},
	{name: "orthopedic surgery", requiredEquipment: []entities.EquipmentTag{entities.EquipmentXRay, entities.EquipmentOperatingTheater}, minBeds: 30},
	{name: "oncology", requiredEquipment: []entities.EquipmentTag{entities.EquipmentCT, entities.EquipmentRadiationTherapy, entities.EquipmentLaboratory}, minBeds: 50},
}

// MedicalReasoner validates procedure claims against the constraint
// catalog, runs two-stage anomaly detection, and scans for red-flag
// language in facility descriptions.
type MedicalReasoner struct {
	corpus repositories.CorpusRepository
	rng    *rand.Rand
}

// NewMedicalReasoner wires a corpus store into the constraint-validation
// and anomaly-detection operations. The random source seeds the
// isolation forest's random splits; a fixed seed keeps runs reproducible.
func NewMedicalReasoner(corpus repositories.CorpusRepository) *MedicalReasoner {
	return &MedicalReasoner{corpus: corpus, rng: rand.New(rand.NewSource(42))}
}

// ValidateFacilities implements the validate_facilities action: for each
// facility, checks any procedure it claims against the constraint
// catalog and derives a confidence score from the issues found.
func (r *MedicalReasoner) ValidateFacilities(facilities []*entities.Facility) *entities.ValidationResult {
	validated := make([]entities.FacilityValidation, 0, len(facilities))
	citations := make([]entities.Citation, 0, len(facilities))
	for _, f := range facilities {
		issues := r.checkConstraints(f)
		confidence := confidenceFromIssues(len(f.Specialties), issues)
		validated = append(validated, entities.FacilityValidation{
			Facility:   f,
			Confidence: confidence,
			Issues:     issues,
		})
		citations = append(citations, entities.Citation{FacilityID: f.ID, Field: "procedures", Value: f.Name, Confidence: confidence})
	}
	return &entities.ValidationResult{Validated: validated, Citations: citations}
}

func (r *MedicalReasoner) checkConstraints(f *entities.Facility) []entities.ValidationIssue {
	var issues []entities.ValidationIssue
	for _, constraint := range procedureConstraints {
		if !containsFold(f.Procedures, constraint.name) {
			continue
		}
		for _, tag := range constraint.requiredEquipment {
			if !f.HasEquipment(tag) {
				issues = append(issues, entities.ValidationIssue{
					Item:     string(tag),
					Severity: "high",
					Reason:   "claims " + constraint.name + " without required equipment " + string(tag),
				})
			}
		}
		if f.Capacity < constraint.minBeds {
			issues = append(issues, entities.ValidationIssue{
				Item:     "capacity",
				Severity: "medium",
				Reason:   "claims " + constraint.name + " with capacity below the expected minimum",
			})
		}
	}
	return issues
}

// confidenceFromIssues applies the diminishing-penalty confidence model:
// a facility with no issues starts from a specialty-count-scaled base;
// each additional issue of the same severity costs less than the last.
func confidenceFromIssues(numSpecialties int, issues []entities.ValidationIssue) float64 {
	if len(issues) == 0 {
		base := 0.65 + 0.03*float64(numSpecialties)
		if base > 0.95 {
			base = 0.95
		}
		return base
	}

	confidence := 0.65 + 0.03*float64(numSpecialties)
	if confidence > 0.95 {
		confidence = 0.95
	}

	highSeen, mediumSeen := 0, 0
	for _, issue := range issues {
		switch issue.Severity {
		case "high":
			highSeen++
			switch highSeen {
			case 1:
				confidence -= 0.15
			case 2:
				confidence -= 0.10
			default:
				confidence -= 0.05
			}
		case "medium":
			mediumSeen++
			if mediumSeen == 1 {
				confidence -= 0.08
			} else {
				confidence -= 0.04
			}
		}
	}

	if confidence < 0.10 {
		confidence = 0.10
	}
	return confidence
}

// featureVector returns the 6-dimensional feature vector used by both
// anomaly-detection stages: (specialties, procedures, equipment,
// capabilities, capacity, doctors).
func featureVector(f *entities.Facility) []float64 {
	return []float64{
		float64(len(f.Specialties)),
		float64(len(f.Procedures)),
		float64(len(f.Equipment)),
		float64(len(f.Capabilities)),
		float64(f.Capacity),
		float64(f.Doctors),
	}
}

// DetectAnomalies implements the detect_anomalies action: an
// Isolation Forest outlier set intersected with a Mahalanobis-distance
// outlier set, with the Mahalanobis stage skipped on degenerate input.
func (r *MedicalReasoner) DetectAnomalies() *entities.TwoStageAnomalyResult {
	all := r.corpus.All()
	if len(all) == 0 {
		return &entities.TwoStageAnomalyResult{}
	}

	features := make([][]float64, len(all))
	for i, f := range all {
		features[i] = featureVector(f)
	}

	forest := newIsolationForest(features, r.rng)
	stage1 := forest.outliers(features, isolationForestContamination)

	mean, covInv, ok := estimateGaussian(features)
	if len(all) < 6 || !ok {
		flagged := make([]entities.FlaggedAnomaly, 0, len(stage1))
		citations := make([]entities.Citation, 0, len(stage1))
		for _, idx := range stage1 {
			flagged = append(flagged, entities.FlaggedAnomaly{
				Facility: all[idx],
				Reasons:  ruleBasedReasons(all[idx], features[idx]),
			})
			citations = append(citations, entities.Citation{FacilityID: all[idx].ID, Field: "capacity", Value: all[idx].Name, Confidence: 1.0 - isolationForestContamination})
		}
		return &entities.TwoStageAnomalyResult{
			FlaggedFacilities: flagged,
			Skipped:           true,
			SkipReason:        "fewer than 6 facilities or singular covariance: Mahalanobis stage skipped",
			Citations:         citations,
		}
	}

	stage1Set := make(map[int]bool, len(stage1))
	for _, idx := range stage1 {
		stage1Set[idx] = true
	}

	flagged := make([]entities.FlaggedAnomaly, 0)
	citations := make([]entities.Citation, 0)
	for idx, feat := range features {
		if !stage1Set[idx] {
			continue
		}
		distSq := mahalanobisDistanceSquared(feat, mean, covInv)
		if distSq <= mahalanobisChiSquareThreshold {
			continue
		}
		flagged = append(flagged, entities.FlaggedAnomaly{
			Facility: all[idx],
			Reasons:  ruleBasedReasons(all[idx], feat),
		})
		confidence := distSq / mahalanobisChiSquareThreshold
		if confidence > 1.0 {
			confidence = 1.0
		}
		citations = append(citations, entities.Citation{FacilityID: all[idx].ID, Field: "capacity", Value: all[idx].Name, Confidence: confidence})
	}

	return &entities.TwoStageAnomalyResult{FlaggedFacilities: flagged, Citations: citations}
}

func ruleBasedReasons(f *entities.Facility, feat []float64) []string {
	var reasons []string
	procedures, equipment, specialties, capacity := feat[1], feat[2], feat[0], feat[4]
	if f.Doctors > 0 {
		ratio := capacity / float64(f.Doctors)
		if ratio > 50 {
			reasons = append(reasons, "ratio > 50")
		}
	}
	if procedures > 10 && equipment < 2 {
		reasons = append(reasons, "procedures > 10 ∧ equipment < 2")
	}
	if specialties > 8 {
		reasons = append(reasons, "specialties > 8")
	}
	if procedures > 15 && capacity < 20 {
		reasons = append(reasons, "procedures > 15 ∧ capacity < 20")
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "flagged by isolation forest and Mahalanobis distance")
	}
	return reasons
}

// DetectRedFlags implements the detect_red_flags action: scans facility
// descriptions for the three red-flag pattern categories, and flags
// specialty claims that appear fuzzily adjacent to a trigger phrase.
func (r *MedicalReasoner) DetectRedFlags(descriptions map[string]string) *entities.RedFlagResult {
	var flagged []entities.RedFlag
	var citations []entities.Citation
	for id, text := range descriptions {
		facility, ok := r.corpus.Get(id)
		if !ok {
			continue
		}
		lower := strings.ToLower(text)
		for category, patterns := range data.RedFlagPatterns {
			for _, pattern := range patterns {
				re := compileRedFlagPattern(pattern)
				if re == nil {
					continue
				}
				loc := re.FindStringIndex(lower)
				if loc == nil {
					continue
				}
				excerpt := excerptAround(text, loc[0], loc[1])
				flagged = append(flagged, entities.RedFlag{
					Facility: facility,
					Category: category,
					Pattern:  pattern,
					Excerpt:  excerpt,
				})
				citations = append(citations, entities.Citation{FacilityID: facility.ID, Field: "description", Value: excerpt, Confidence: 1.0})
			}
		}
		for _, specialty := range facility.Specialties {
			if !SpecialtyAdjacentToTrigger(text, string(specialty)) {
				continue
			}
			flagged = append(flagged, entities.RedFlag{
				Facility: facility,
				Category: "specialty_adjacent_to_trigger",
				Pattern:  string(specialty),
				Excerpt:  text,
			})
			citations = append(citations, entities.Citation{FacilityID: facility.ID, Field: "specialties", Value: string(specialty), Confidence: 1.0})
		}
	}
	return &entities.RedFlagResult{Flagged: flagged, Citations: citations}
}

func excerptAround(text string, start, end int) string {
	lower := 0
	if start-30 > 0 {
		lower = start - 30
	}
	upper := len(text)
	if end+30 < upper {
		upper = end + 30
	}
	return strings.TrimSpace(text[lower:upper])
}

// tokenSetRatio computes a fuzzywuzzy-style token-set overlap ratio on a
// 0-100 scale: the fraction of the smaller token set's words that also
// appear in the larger, weighted so identical sets score 100.
func tokenSetRatio(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for token := range setA {
		if setB[token] {
			intersection++
		}
	}

	smaller := len(setA)
	if len(setB) < smaller {
		smaller = len(setB)
	}
	return 100.0 * float64(intersection) / float64(smaller)
}

func tokenSet(s string) map[string]bool {
	set := map[string]bool{}
	for _, tok := range strings.Fields(strings.ToLower(s)) {
		set[tok] = true
	}
	return set
}

// SpecialtyAdjacentToTrigger reports whether some word in text fuzzily
// matches the specialty's first word (per fuzzyTokenSetThreshold) and one
// of the negation trigger words appears exactly within the window from 5
// words before it to 4 words after it.
func SpecialtyAdjacentToTrigger(text, specialty string) bool {
	words := strings.Fields(strings.ToLower(text))
	specialtyWords := strings.Fields(strings.ToLower(specialty))
	if len(specialtyWords) == 0 {
		return false
	}
	head := specialtyWords[0]

	for i, w := range words {
		if tokenSetRatio(w, head) < fuzzyTokenSetThreshold {
			continue
		}
		windowStart := i - 5
		if windowStart < 0 {
			windowStart = 0
		}
		windowEnd := i + 5
		if windowEnd > len(words) {
			windowEnd = len(words)
		}
		for _, trigger := range negationTriggers {
			for j := windowStart; j < windowEnd; j++ {
				if words[j] == trigger {
					return true
				}
			}
		}
	}
	return false
}

// IdentifyCoverageGaps implements the coverage-gap-analysis half of the
// 4.6 action set: counts facilities offering specialty per region and
// assigns a severity to each region with none (critical), exactly one
// (high), or otherwise fewer than the corpus median (medium).
func (r *MedicalReasoner) IdentifyCoverageGaps(specialty entities.Specialty) *entities.CoverageGapResult {
	counts := map[string]int{}
	for _, f := range r.corpus.All() {
		if _, seen := counts[f.Region]; !seen {
			counts[f.Region] = 0
		}
	}
	for _, f := range r.corpus.BySpecialty(specialty) {
		counts[f.Region]++
	}

	values := make([]int, 0, len(counts))
	for _, c := range counts {
		values = append(values, c)
	}
	median := medianInt(values)

	gapRegions := map[string]bool{}
	regions := make([]entities.CoverageGapRegion, 0, len(counts))
	for region, count := range counts {
		severity := ""
		switch {
		case count == 0:
			severity = "critical"
		case count == 1:
			severity = "high"
		case count < median:
			severity = "medium"
		default:
			continue
		}
		regions = append(regions, entities.CoverageGapRegion{Region: region, FacilityCount: count, Severity: severity})
		gapRegions[region] = true
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].FacilityCount < regions[j].FacilityCount })

	citations := make([]entities.Citation, 0)
	for _, f := range r.corpus.BySpecialty(specialty) {
		if gapRegions[f.Region] {
			citations = append(citations, entities.Citation{FacilityID: f.ID, Field: "region", Value: f.Region, Confidence: 1.0})
		}
	}

	return &entities.CoverageGapResult{Specialty: string(specialty), Regions: regions, Citations: citations}
}

func medianInt(values []int) int {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]int{}, values...)
	sort.Ints(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// SinglePointOfFailureNational implements the national-level
// single-point-of-failure action described in 4.6, reusing the same
// ranking rule 4.5 applies within a filtered scope.
func (r *MedicalReasoner) SinglePointOfFailureNational() *entities.SinglePointFailureResult {
	analyst := &DataAnalyst{corpus: r.corpus}
	return analyst.SinglePointOfFailure()
}
