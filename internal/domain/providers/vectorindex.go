package providers

import "context"

// NamedVector identifies one of the three independent embeddings kept per
// facility.
type NamedVector string

const (
	VectorFullDocument       NamedVector = "full_document"
	VectorClinicalDetail     NamedVector = "clinical_detail"
	VectorSpecialtiesContext NamedVector = "specialties_context"
)

// AllNamedVectors lists every named vector maintained per facility.
var AllNamedVectors = []NamedVector{VectorFullDocument, VectorClinicalDetail, VectorSpecialtiesContext}

// Filter is an equality/set-membership predicate over indexed payload
// fields. Fields left empty are not applied. CityOr allows OR matching
// across the two location fields the spec names.
type Filter struct {
	CityOr           []string
	Region           string
	FacilityType     string
	OrganizationType string
	SpecialtiesAnyOf []string
}

// IsEmpty reports whether no predicate is set.
func (f Filter) IsEmpty() bool {
	return len(f.CityOr) == 0 && f.Region == "" && f.FacilityType == "" &&
		f.OrganizationType == "" && len(f.SpecialtiesAnyOf) == 0
}

// ScoredID is a single vector-index search hit.
type ScoredID struct {
	ID    string
	Score float64
}

// VectorIndex returns the top-K nearest neighbours of a query vector under
// a named sub-index, restricted by an optional filter.
type VectorIndex interface {
	Search(ctx context.Context, vector NamedVector, queryVec []float32, filter Filter, k int) ([]ScoredID, error)
	Upsert(ctx context.Context, id string, vectors map[NamedVector][]float32, payload map[string]any) error
}
