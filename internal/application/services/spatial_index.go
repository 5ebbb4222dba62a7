package services

import (
	"math"
	"sort"
	"sync"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

// earthRadiusKm is the sphere radius used for every Haversine calculation
// in this module.
const earthRadiusKm = 6371.0

// ghana bounding box, per the corpus's coordinate invariant.
const (
	ghanaMinLat = 4.74
	ghanaMaxLat = 11.17
	ghanaMinLon = -3.26
	ghanaMaxLon = 1.20
)

// SpatialIndex answers radius and k-nearest-neighbour queries over
// facilities with valid coordinates. The underlying structure is a flat
// slice scanned with Haversine distance: at the corpus's few-hundred-row
// scale a ball-tree's asymptotic advantage does not materialize, but the
// public shape mirrors one (build once, query many, specialty sub-indexes
// cached lazily) so a real tree can be dropped in without touching
// callers.
type SpatialIndex struct {
	all []*entities.Facility

	mu           sync.Mutex
	bySpecialty  map[entities.Specialty][]*entities.Facility
	buildingLock map[entities.Specialty]*sync.Once
}

// NewSpatialIndex builds an index over every facility with both
// coordinates set.
func NewSpatialIndex(facilities []*entities.Facility) *SpatialIndex {
	valid := make([]*entities.Facility, 0, len(facilities))
	for _, f := range facilities {
		if f.HasCoordinates() {
			valid = append(valid, f)
		}
	}
	return &SpatialIndex{
		all:          valid,
		bySpecialty:  make(map[entities.Specialty][]*entities.Facility),
		buildingLock: make(map[entities.Specialty]*sync.Once),
	}
}

// HaversineKm returns the great-circle distance between two coordinates in
// kilometers.
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// pool returns the base search population for an optional specialty
// filter, building (and caching, at-most-once) the specialty sub-index on
// first use.
func (idx *SpatialIndex) pool(specialty entities.Specialty) []*entities.Facility {
	if specialty == "" {
		return idx.all
	}

	idx.mu.Lock()
	once, ok := idx.buildingLock[specialty]
	if !ok {
		once = &sync.Once{}
		idx.buildingLock[specialty] = once
	}
	idx.mu.Unlock()

	once.Do(func() {
		sub := make([]*entities.Facility, 0)
		for _, f := range idx.all {
			if f.HasSpecialty(specialty) {
				sub = append(sub, f)
			}
		}
		idx.mu.Lock()
		idx.bySpecialty[specialty] = sub
		idx.mu.Unlock()
	})

	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.bySpecialty[specialty]
}

// SpatialHit pairs a facility with its distance from a query point.
type SpatialHit struct {
	Facility   *entities.Facility
	DistanceKm float64
}

const radiusResultCap = 30

// Radius returns every facility within km of (lat, lon), sorted by
// distance ascending, capped at 30 results.
func (idx *SpatialIndex) Radius(lat, lon, km float64, specialty entities.Specialty) []SpatialHit {
	hits := make([]SpatialHit, 0)
	for _, f := range idx.pool(specialty) {
		d := HaversineKm(lat, lon, *f.Latitude, *f.Longitude)
		if d <= km {
			hits = append(hits, SpatialHit{Facility: f, DistanceKm: d})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].DistanceKm < hits[j].DistanceKm })
	if len(hits) > radiusResultCap {
		hits = hits[:radiusResultCap]
	}
	return hits
}

// Nearest returns the k closest facilities to (lat, lon).
func (idx *SpatialIndex) Nearest(lat, lon float64, k int, specialty entities.Specialty) []SpatialHit {
	pool := idx.pool(specialty)
	hits := make([]SpatialHit, 0, len(pool))
	for _, f := range pool {
		hits = append(hits, SpatialHit{Facility: f, DistanceKm: HaversineKm(lat, lon, *f.Latitude, *f.Longitude)})
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].DistanceKm < hits[j].DistanceKm })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// NearestOne is a convenience wrapper for the common single-nearest case,
// used by the cold-spot and placement grid scans and the per-region
// medical-desert scan.
func (idx *SpatialIndex) NearestOne(lat, lon float64, specialty entities.Specialty) (SpatialHit, bool) {
	hits := idx.Nearest(lat, lon, 1, specialty)
	if len(hits) == 0 {
		return SpatialHit{}, false
	}
	return hits[0], true
}

// GhanaGrid generates lat/lon points across Ghana's bounding box at the
// given step, in degrees.
func GhanaGrid(step float64) []struct{ Lat, Lon float64 } {
	points := make([]struct{ Lat, Lon float64 }, 0)
	for lat := ghanaMinLat; lat <= ghanaMaxLat; lat += step {
		for lon := ghanaMinLon; lon <= ghanaMaxLon; lon += step {
			points = append(points, struct{ Lat, Lon float64 }{Lat: lat, Lon: lon})
		}
	}
	return points
}
