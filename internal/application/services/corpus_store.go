package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

// CorpusStore is the in-memory, immutable table of facility records built
// once at startup. All lookups are pre-indexed at construction time since
// the corpus never mutates for the life of the process.
type CorpusStore struct {
	byID        map[string]*entities.Facility
	all         []*entities.Facility
	byRegion    map[string][]*entities.Facility
	bySpecialty map[entities.Specialty][]*entities.Facility
	byType      map[entities.FacilityType][]*entities.Facility
}

// NewCorpusStore indexes facilities by id, region, specialty, and type.
func NewCorpusStore(facilities []*entities.Facility) *CorpusStore {
	store := &CorpusStore{
		byID:        make(map[string]*entities.Facility, len(facilities)),
		all:         facilities,
		byRegion:    make(map[string][]*entities.Facility),
		bySpecialty: make(map[entities.Specialty][]*entities.Facility),
		byType:      make(map[entities.FacilityType][]*entities.Facility),
	}
	for _, f := range facilities {
		store.byID[f.ID] = f
		store.byRegion[f.Region] = append(store.byRegion[f.Region], f)
		for _, s := range f.Specialties {
			store.bySpecialty[s] = append(store.bySpecialty[s], f)
		}
		store.byType[f.FacilityType] = append(store.byType[f.FacilityType], f)
	}
	return store
}

func (s *CorpusStore) Get(id string) (*entities.Facility, bool) {
	f, ok := s.byID[id]
	return f, ok
}

func (s *CorpusStore) All() []*entities.Facility {
	return s.all
}

func (s *CorpusStore) ByRegion(name string) []*entities.Facility {
	return s.byRegion[name]
}

func (s *CorpusStore) BySpecialty(tag entities.Specialty) []*entities.Facility {
	return s.bySpecialty[tag]
}

func (s *CorpusStore) ByType(t entities.FacilityType) []*entities.Facility {
	return s.byType[t]
}

func (s *CorpusStore) Filter(pred func(*entities.Facility) bool) []*entities.Facility {
	out := make([]*entities.Facility, 0)
	for _, f := range s.all {
		if pred(f) {
			out = append(out, f)
		}
	}
	return out
}

func (s *CorpusStore) Len() int {
	return len(s.all)
}

// JSONSnapshotLoader loads a Facility table from a JSON snapshot file: a
// flat array of Facility objects. Producing that snapshot from the raw CSV
// corpus is out of scope for this core; the snapshot is the load-bearing
// external artifact this loader depends on.
type JSONSnapshotLoader struct {
	path string
}

// NewJSONSnapshotLoader creates a loader reading from path.
func NewJSONSnapshotLoader(path string) *JSONSnapshotLoader {
	return &JSONSnapshotLoader{path: path}
}

// Load reads and decodes the snapshot file, respecting ctx cancellation
// before the (synchronous) file read begins.
func (l *JSONSnapshotLoader) Load(ctx context.Context) ([]*entities.Facility, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	raw, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("read corpus snapshot %s: %w", l.path, err)
	}

	var facilities []*entities.Facility
	if err := json.Unmarshal(raw, &facilities); err != nil {
		return nil, fmt.Errorf("decode corpus snapshot %s: %w", l.path, err)
	}

	for _, f := range facilities {
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
	}
	return facilities, nil
}
