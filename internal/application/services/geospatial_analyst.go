package services

import (
	"fmt"
	"sort"

	"github.com/careatlas/queryengine/internal/domain/entities"
	"github.com/careatlas/queryengine/internal/domain/repositories"
)

const (
	coverageGapThresholdKm  = 55.0
	coverageGapGridStep     = 0.25
	coverageGapTopN         = 15
	medicalDesertThresholdKm = 75.0
	placementGridStep       = 0.3
	placementTopN           = 10
)

// ghanaCanonicalRegions is the 16-region administrative list used for
// region-scoped analyses; it deliberately omits the pre-2019 "brong ahafo"
// name since Bono, Bono East, and Ahafo supersede it.
var ghanaCanonicalRegions = []string{
	"greater accra", "ashanti", "western", "western north", "central",
	"eastern", "northern", "upper east", "upper west", "volta",
	"bono", "bono east", "ahafo", "oti", "savannah", "north east",
}

// GeospatialAnalyst answers location-based queries: radius/k-NN search,
// grid-based coverage-gap and medical-desert scans, regional equity, and
// city-to-city distance.
type GeospatialAnalyst struct {
	corpus   repositories.CorpusRepository
	spatial  *SpatialIndex
	geocoder *Geocoder
}

// NewGeospatialAnalyst wires a corpus, its spatial index, and a geocoder
// into the location-based operations.
func NewGeospatialAnalyst(corpus repositories.CorpusRepository, spatial *SpatialIndex, geocoder *Geocoder) *GeospatialAnalyst {
	return &GeospatialAnalyst{corpus: corpus, spatial: spatial, geocoder: geocoder}
}

// RadiusSearch implements the radius_search action.
func (g *GeospatialAnalyst) RadiusSearch(lat, lon, km float64, specialty entities.Specialty) *entities.RadiusSearchResult {
	hits := g.spatial.Radius(lat, lon, km, specialty)
	results := make([]entities.RadiusHit, 0, len(hits))
	citations := make([]entities.Citation, 0, len(hits))
	for _, h := range hits {
		results = append(results, entities.RadiusHit{Facility: h.Facility, DistanceKm: h.DistanceKm})
		citations = append(citations, entities.Citation{FacilityID: h.Facility.ID, Field: "distance_km", Value: h.Facility.Name, Confidence: 1.0})
	}
	return &entities.RadiusSearchResult{CenterLat: lat, CenterLng: lon, RadiusKm: km, Results: results, Citations: citations}
}

// CoverageGaps implements the coverage_gaps action: a lat/lng grid scan
// over Ghana's bounding box, returning the cells farthest from any
// facility offering specialty.
func (g *GeospatialAnalyst) CoverageGaps(specialty entities.Specialty) *entities.ColdSpotResult {
	grid := GhanaGrid(coverageGapGridStep)

	coldSpots := make([]entities.ColdSpot, 0)
	citations := make([]entities.Citation, 0)
	for _, cell := range grid {
		hit, ok := g.spatial.NearestOne(cell.Lat, cell.Lon, specialty)
		if !ok || hit.DistanceKm <= coverageGapThresholdKm {
			continue
		}
		coldSpots = append(coldSpots, entities.ColdSpot{
			Latitude:          cell.Lat,
			Longitude:         cell.Lon,
			NearestDistanceKm: hit.DistanceKm,
		})
		citations = append(citations, entities.Citation{FacilityID: hit.Facility.ID, Field: "distance_km", Value: hit.Facility.Name, Confidence: 1.0})
	}

	sort.Slice(coldSpots, func(i, j int) bool { return coldSpots[i].NearestDistanceKm > coldSpots[j].NearestDistanceKm })
	if len(coldSpots) > coverageGapTopN {
		coldSpots = coldSpots[:coverageGapTopN]
	}

	return &entities.ColdSpotResult{Specialty: string(specialty), ColdSpots: coldSpots, Citations: citations}
}

// MedicalDeserts implements the medical_deserts action: for each of the
// 16 region centroids, the distance to the nearest facility offering
// specialty, with a severity tier per that distance.
func (g *GeospatialAnalyst) MedicalDeserts(specialty entities.Specialty) *entities.MedicalDesertResult {
	deserts := make([]entities.MedicalDesert, 0, len(ghanaCanonicalRegions))
	citations := make([]entities.Citation, 0, len(ghanaCanonicalRegions))
	for _, region := range ghanaCanonicalRegions {
		centroid, ok := g.geocoder.regionCoords[region]
		if !ok {
			continue
		}
		hit, found := g.spatial.NearestOne(centroid.Lat, centroid.Lon, specialty)
		if !found {
			continue
		}

		severity := ""
		switch {
		case hit.DistanceKm > 150:
			severity = "critical"
		case hit.DistanceKm > 100:
			severity = "high"
		case hit.DistanceKm > medicalDesertThresholdKm:
			severity = "medium"
		default:
			continue
		}

		deserts = append(deserts, entities.MedicalDesert{
			Region:            region,
			NearestFacility:   hit.Facility,
			NearestDistanceKm: hit.DistanceKm,
			Severity:          severity,
		})
		citations = append(citations, entities.Citation{FacilityID: hit.Facility.ID, Field: "region", Value: hit.Facility.Name, Confidence: 1.0})
	}

	sort.Slice(deserts, func(i, j int) bool { return deserts[i].NearestDistanceKm > deserts[j].NearestDistanceKm })
	return &entities.MedicalDesertResult{Specialty: string(specialty), Deserts: deserts, Citations: citations}
}

// RegionalEquity implements the regional_equity action: per-region
// feature vectors, flagged by Mahalanobis distance from the national
// centroid.
func (g *GeospatialAnalyst) RegionalEquity() *entities.RegionalEquityResult {
	type regionStats struct {
		region        string
		facilities    int
		specialtySet  map[entities.Specialty]bool
		doctorTotal   int
		bedTotal      int
	}

	stats := map[string]*regionStats{}
	for _, f := range g.corpus.All() {
		s, ok := stats[f.Region]
		if !ok {
			s = &regionStats{region: f.Region, specialtySet: map[entities.Specialty]bool{}}
			stats[f.Region] = s
		}
		s.facilities++
		s.doctorTotal += f.Doctors
		s.bedTotal += f.Capacity
		for _, sp := range f.Specialties {
			s.specialtySet[sp] = true
		}
	}

	if len(stats) == 0 {
		return &entities.RegionalEquityResult{}
	}

	regions := make([]string, 0, len(stats))
	for r := range stats {
		regions = append(regions, r)
	}
	sort.Strings(regions)

	features := make([][]float64, len(regions))
	for i, r := range regions {
		s := stats[r]
		features[i] = []float64{
			float64(s.facilities),
			float64(len(s.specialtySet)),
			float64(s.doctorTotal),
			float64(s.bedTotal),
		}
	}

	mean, covInv, ok := estimateGaussian(features)

	flaggedRegions := map[string]bool{}
	entries := make([]entities.RegionalEquityEntry, 0, len(regions))
	for i, r := range regions {
		s := stats[r]
		var distSq float64
		flagged := false
		if ok {
			distSq = mahalanobisDistanceSquared(features[i], mean, covInv)
			flagged = distSq > mahalanobisChiSquareThreshold
		}
		entries = append(entries, entities.RegionalEquityEntry{
			Region:              r,
			FacilityDensity:     float64(s.facilities),
			SpecialtyCount:      len(s.specialtySet),
			DoctorTotal:         s.doctorTotal,
			BedTotal:            s.bedTotal,
			MahalanobisDistance: distSq,
			Flagged:             flagged,
		})
		if flagged {
			flaggedRegions[r] = true
		}
	}

	citations := make([]entities.Citation, 0)
	if len(flaggedRegions) > 0 {
		for _, f := range g.corpus.All() {
			if flaggedRegions[f.Region] {
				citations = append(citations, entities.Citation{FacilityID: f.ID, Field: "region", Value: f.Region, Confidence: 1.0})
			}
		}
	}

	return &entities.RegionalEquityResult{Regions: entries, Citations: citations}
}

// CityDistance implements the city_distance action: geocode two names and
// return the geodesic distance between them.
func (g *GeospatialAnalyst) CityDistance(cityA, cityB string) *entities.DistanceResult {
	from := g.geocoder.Geocode(cityA, "")
	to := g.geocoder.Geocode(cityB, "")

	if from.Method == "" {
		return &entities.DistanceResult{CityA: cityA, CityB: cityB, Error: fmt.Sprintf("could not resolve %q", cityA)}
	}
	if to.Method == "" {
		return &entities.DistanceResult{CityA: cityA, CityB: cityB, Error: fmt.Sprintf("could not resolve %q", cityB)}
	}

	distance := HaversineKm(from.Lat, from.Lon, to.Lat, to.Lon)
	return &entities.DistanceResult{CityA: cityA, CityB: cityB, DistanceKm: distance}
}
