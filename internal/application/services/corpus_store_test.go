package services

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

func sampleFacilities() []*entities.Facility {
	return []*entities.Facility{
		{ID: "f1", Name: "Korle Bu Teaching Hospital", Region: "Greater Accra", FacilityType: entities.FacilityTypeHospital, Specialties: []entities.Specialty{entities.SpecialtyCardiology, entities.SpecialtyOncology}},
		{ID: "f2", Name: "Komfo Anokye Teaching Hospital", Region: "Ashanti", FacilityType: entities.FacilityTypeHospital, Specialties: []entities.Specialty{entities.SpecialtyCardiology}},
		{ID: "f3", Name: "Accra Dental Clinic", Region: "Greater Accra", FacilityType: entities.FacilityTypeDentist, Specialties: []entities.Specialty{entities.SpecialtyDentistry}},
	}
}

func TestCorpusStore_Indexing(t *testing.T) {
	store := NewCorpusStore(sampleFacilities())

	assert.Equal(t, 3, store.Len())

	f, ok := store.Get("f2")
	require.True(t, ok)
	assert.Equal(t, "Komfo Anokye Teaching Hospital", f.Name)

	_, ok = store.Get("missing")
	assert.False(t, ok)

	assert.Len(t, store.ByRegion("Greater Accra"), 2)
	assert.Len(t, store.BySpecialty(entities.SpecialtyCardiology), 2)
	assert.Len(t, store.ByType(entities.FacilityTypeDentist), 1)
}

func TestCorpusStore_Filter(t *testing.T) {
	store := NewCorpusStore(sampleFacilities())

	hospitals := store.Filter(func(f *entities.Facility) bool {
		return f.FacilityType == entities.FacilityTypeHospital
	})
	assert.Len(t, hospitals, 2)
}

func TestJSONSnapshotLoader_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	raw, err := json.Marshal(sampleFacilities())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	loader := NewJSONSnapshotLoader(path)
	facilities, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, facilities, 3)
}

func TestJSONSnapshotLoader_MissingFile(t *testing.T) {
	loader := NewJSONSnapshotLoader("/nonexistent/path.json")
	_, err := loader.Load(context.Background())
	assert.Error(t, err)
}

func TestJSONSnapshotLoader_BackfillsMissingIDs(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	raw, err := json.Marshal([]*entities.Facility{
		{Name: "Unlisted Clinic", Region: "Volta", FacilityType: entities.FacilityTypeClinic},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	loader := NewJSONSnapshotLoader(path)
	facilities, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, facilities, 1)
	assert.NotEmpty(t, facilities[0].ID)
}
