package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

var negationTriggers = []string{"not", "without", "no", "lacking", "absence", "absent", "missing", "don't", "doesn't"}

// equipmentKeywords maps a lowercase keyword found in free text to a
// canonical equipment tag.
var equipmentKeywords = map[string]entities.EquipmentTag{
	"ct":                  entities.EquipmentCT,
	"ct scan":             entities.EquipmentCT,
	"mri":                 entities.EquipmentMRI,
	"ultrasound":          entities.EquipmentUltrasound,
	"x-ray":               entities.EquipmentXRay,
	"xray":                entities.EquipmentXRay,
	"icu":                 entities.EquipmentICU,
	"operating theater":   entities.EquipmentOperatingTheater,
	"operating theatre":   entities.EquipmentOperatingTheater,
	"ventilator":          entities.EquipmentVentilator,
	"dialysis machine":    entities.EquipmentDialysisMachine,
	"dialysis":            entities.EquipmentDialysisMachine,
	"cardiac catheterization": entities.EquipmentCardiacCatheterization,
	"catheterization":     entities.EquipmentCardiacCatheterization,
	"ophthalmoscope":      entities.EquipmentOphthalmoscope,
	"surgical microscope":  entities.EquipmentSurgicalMicroscope,
	"radiation therapy":   entities.EquipmentRadiationTherapy,
	"scanner":             entities.EquipmentCT,
}

// specialtyKeywords maps lowercase keywords/aliases to a canonical
// specialty tag.
var specialtyKeywords = map[string]entities.Specialty{
	"cardiology":       entities.SpecialtyCardiology,
	"cardiac":          entities.SpecialtyCardiology,
	"neurosurgery":     entities.SpecialtyNeurosurgery,
	"neurosurgical":    entities.SpecialtyNeurosurgery,
	"oncology":         entities.SpecialtyOncology,
	"cancer":           entities.SpecialtyOncology,
	"orthopedics":      entities.SpecialtyOrthopedics,
	"orthopedic":       entities.SpecialtyOrthopedics,
	"ophthalmology":    entities.SpecialtyOphthalmology,
	"eye":              entities.SpecialtyOphthalmology,
	"obstetrics":       entities.SpecialtyObstetrics,
	"maternity":        entities.SpecialtyObstetrics,
	"pediatrics":       entities.SpecialtyPediatrics,
	"paediatrics":      entities.SpecialtyPediatrics,
	"dialysis":         entities.SpecialtyDialysis,
	"general surgery":  entities.SpecialtyGeneralSurgery,
	"emergency":        entities.SpecialtyEmergency,
	"dermatology":      entities.SpecialtyDermatology,
	"skin":             entities.SpecialtyDermatology,
	"psychiatry":       entities.SpecialtyPsychiatry,
	"mental health":    entities.SpecialtyPsychiatry,
	"dentistry":        entities.SpecialtyDentistry,
	"dental":           entities.SpecialtyDentistry,
	"ent":              entities.SpecialtyENT,
	"ear nose throat":  entities.SpecialtyENT,
	"urology":          entities.SpecialtyUrology,
}

var facilityTypeKeywords = map[string]entities.FacilityType{
	"hospital":      entities.FacilityTypeHospital,
	"clinic":        entities.FacilityTypeClinic,
	"health center":  entities.FacilityTypeHealthCenter,
	"health centre":  entities.FacilityTypeHealthCenter,
	"pharmacy":      entities.FacilityTypePharmacy,
	"ngo":           entities.FacilityTypeNGO,
	"laboratory":    entities.FacilityTypeLaboratory,
	"lab":           entities.FacilityTypeLaboratory,
	"dentist":       entities.FacilityTypeDentist,
}

// organizationTypeKeywords maps a lowercase keyword to the canonical
// organization_type string the corpus tags facilities with, mirroring the
// ownership categories Ghana's health facility registries use.
var organizationTypeKeywords = map[string]string{
	"government":       "government",
	"public":           "government",
	"quasi-government": "quasi-government",
	"quasi government": "quasi-government",
	"private":          "private",
	"mission":          "mission",
	"faith-based":      "mission",
	"faith based":      "mission",
	"chag":             "mission",
	"ngo":               "ngo",
	"non-governmental": "ngo",
}

// Extractors resolves canonical tags out of free-form query text, backed by
// the same gazetteer the Geocoder uses for region names.
type Extractors struct {
	geocoder     *Geocoder
	regionNames  []string // sorted longest-first
	cityNames    []string // sorted longest-first
	specialtyKws []string // sorted longest-first
	facilityKws  []string // sorted longest-first
	equipmentKws []string // sorted longest-first
	orgTypeKws   []string // sorted longest-first
}

// NewExtractors builds an Extractors instance over the known region names.
func NewExtractors(geocoder *Geocoder) *Extractors {
	seen := map[string]bool{}
	names := make([]string, 0, len(geocoder.regionCoords))
	for k := range geocoder.regionCoords {
		if !seen[k] {
			seen[k] = true
			names = append(names, k)
		}
	}
	sort.Slice(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return &Extractors{
		geocoder:     geocoder,
		regionNames:  names,
		cityNames:    sortedKeysByLengthDesc(geocoder.cityCoords),
		specialtyKws: sortedKeysByLengthDesc(specialtyKeywords),
		facilityKws:  sortedKeysByLengthDesc(facilityTypeKeywords),
		equipmentKws: sortedKeysByLengthDesc(equipmentKeywords),
		orgTypeKws:   sortedKeysByLengthDesc(organizationTypeKeywords),
	}
}

// sortedKeysByLengthDesc returns m's keys sorted longest-first, so a keyword
// lookup that ranges over the result always prefers the more specific match
// (e.g. "dialysis machine" over "dialysis") and returns the same tag on
// every call regardless of Go's randomized map iteration order.
func sortedKeysByLengthDesc[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

func containsFold(list []string, needle string) bool {
	for _, item := range list {
		if strings.EqualFold(item, needle) {
			return true
		}
	}
	return false
}

func wordBoundaryContains(text, keyword string) bool {
	pattern := `\b` + regexp.QuoteMeta(keyword) + `\b`
	matched, _ := regexp.MatchString(pattern, text)
	return matched
}

// ExtractSpecialty returns the first canonical specialty keyword found in
// text, or "" if none match.
func (e *Extractors) ExtractSpecialty(text string) entities.Specialty {
	lower := strings.ToLower(text)
	for _, kw := range e.specialtyKws {
		if wordBoundaryContains(lower, kw) {
			return specialtyKeywords[kw]
		}
	}
	return ""
}

// ExtractRegion returns the longest matching region name found in text, or
// "" if none match. Longest-match-first prevents "accra" pre-empting
// "greater accra".
func (e *Extractors) ExtractRegion(text string) string {
	lower := strings.ToLower(text)
	for _, region := range e.regionNames {
		if wordBoundaryContains(lower, region) {
			return region
		}
	}
	return ""
}

// ExtractCity returns the longest matching gazetteer city name found in
// text, or "" if none match. Longest-match-first prevents a short city
// name pre-empting a longer one that contains it as a substring (e.g.
// "cape coast" over "cape").
func (e *Extractors) ExtractCity(text string) string {
	lower := strings.ToLower(text)
	for _, city := range e.cityNames {
		if wordBoundaryContains(lower, city) {
			return city
		}
	}
	return ""
}

// ExtractOrganizationType returns the canonical organization_type tag for
// the first matching ownership keyword found in text, or "" if none match.
func (e *Extractors) ExtractOrganizationType(text string) string {
	lower := strings.ToLower(text)
	for _, kw := range e.orgTypeKws {
		if wordBoundaryContains(lower, kw) {
			return organizationTypeKeywords[kw]
		}
	}
	return ""
}

// ExtractFacilityType returns the first canonical facility type keyword
// found in text (in singular or simple "-s" plural form), or "" if none
// match.
func (e *Extractors) ExtractFacilityType(text string) entities.FacilityType {
	lower := strings.ToLower(text)
	for _, kw := range e.facilityKws {
		if wordBoundaryContains(lower, kw) || wordBoundaryContains(lower, kw+"s") {
			return facilityTypeKeywords[kw]
		}
	}
	return ""
}

// ExtractEquipment returns the first canonical equipment keyword found in
// text, or "" if none match.
func (e *Extractors) ExtractEquipment(text string) entities.EquipmentTag {
	lower := strings.ToLower(text)
	for _, kw := range e.equipmentKws {
		if wordBoundaryContains(lower, kw) {
			return equipmentKeywords[kw]
		}
	}
	return ""
}

// IsNegated reports whether tag appears within 6 tokens after any
// negation trigger word in text.
func IsNegated(text, tag string) bool {
	tokens := strings.Fields(strings.ToLower(text))
	tagTokens := strings.Fields(strings.ToLower(tag))
	if len(tagTokens) == 0 {
		return false
	}
	firstTagToken := tagTokens[0]

	for i, tok := range tokens {
		if !containsFold(negationTriggers, tok) {
			continue
		}
		window := tokens[i:min(i+7, len(tokens))]
		for _, w := range window {
			if strings.Contains(w, firstTagToken) {
				return true
			}
		}
	}
	return false
}
