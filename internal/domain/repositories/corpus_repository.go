package repositories

import (
	"context"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

// CorpusRepository is the read-only, in-memory table of Facility records
// the corpus store implements. The corpus is built once at startup from an
// external snapshot and never mutated for the life of the process.
type CorpusRepository interface {
	Get(id string) (*entities.Facility, bool)
	All() []*entities.Facility
	ByRegion(name string) []*entities.Facility
	BySpecialty(tag entities.Specialty) []*entities.Facility
	ByType(t entities.FacilityType) []*entities.Facility
	Filter(pred func(*entities.Facility) bool) []*entities.Facility
	Len() int
}

// CorpusLoader loads Facility records from an external snapshot at startup.
// Its concrete implementation (CSV/tabular parsing) is out of scope for this
// core; the core only depends on this narrow contract.
type CorpusLoader interface {
	Load(ctx context.Context) ([]*entities.Facility, error)
}
