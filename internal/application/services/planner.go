package services

import (
	"math"
	"sort"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

const (
	ghanaCentroidLat = 7.9465
	ghanaCentroidLon = -1.0232

	accraLat = 5.6037
	accraLon = -0.1870

	emergencyRadiusKm = 100.0
	twoOptEpsilon     = 1e-9
	twoOptMaxPasses   = 1000
	tspDefaultStops   = 8

	assumedTravelSpeedKmh = 60.0
)

// accraStart is the specialist-deployment tour's fixed origin: every tour
// starts at Accra regardless of which facilities the greedy/2-opt search
// visits, since deployments launch from the capital.
var accraStart = &entities.Facility{
	ID:        "accra-start",
	Name:      "Accra (deployment origin)",
	City:      "Accra",
	Region:    "Greater Accra",
	Latitude:  floatPtr(accraLat),
	Longitude: floatPtr(accraLon),
}

func floatPtr(f float64) *float64 { return &f }

// Planner turns a routed request into an actionable recommendation:
// emergency routing, specialist deployment tours, equipment distribution,
// new-facility placement, and capacity planning.
type Planner struct {
	spatial *SpatialIndex
	geocoder *Geocoder
}

// NewPlanner wires a spatial index and geocoder into the planning
// operations.
func NewPlanner(spatial *SpatialIndex, geocoder *Geocoder) *Planner {
	return &Planner{spatial: spatial, geocoder: geocoder}
}

// CapabilityScore rates a facility's fitness for specialty on a 0-100
// scale, per the planner's scoring rule.
func CapabilityScore(f *entities.Facility, specialty entities.Specialty) float64 {
	score := 20.0
	if f.HasSpecialty(specialty) {
		score += 35
	}
	if f.HasCapability("ICU") || f.HasCapability("operating_theater") {
		score += 20
	}
	if f.Capacity > 20 {
		score += 10
	}
	if f.Doctors > 0 {
		score += 10
	}
	if f.HasEquipment(entities.EquipmentCT) || f.HasEquipment(entities.EquipmentMRI) {
		score += 5
	}
	return score
}

// EmergencyRouting implements the emergency_routing action: geocode the
// patient location (falling back to the national centroid), find nearby
// candidates within 100km, rank by score then distance, and split into
// primary/backup/alternatives.
func (p *Planner) EmergencyRouting(city, region string, specialty entities.Specialty) *entities.EmergencyRoutingResult {
	lat, lon := ghanaCentroidLat, ghanaCentroidLon
	if geo := p.geocoder.Geocode(city, region); geo.Method != "" {
		lat, lon = geo.Lat, geo.Lon
	}

	hits := p.spatial.Radius(lat, lon, emergencyRadiusKm, specialty)
	candidates := make([]entities.RoutingCandidate, 0, len(hits))
	for _, h := range hits {
		candidates = append(candidates, entities.RoutingCandidate{
			Facility:   h.Facility,
			Score:      CapabilityScore(h.Facility, specialty),
			DistanceKm: h.DistanceKm,
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].DistanceKm < candidates[j].DistanceKm
	})

	result := &entities.EmergencyRoutingResult{}
	if len(candidates) > 0 {
		result.Primary = &candidates[0]
		result.TravelTimeMinutes = candidates[0].DistanceKm / assumedTravelSpeedKmh * 60
		result.Citations = append(result.Citations, entities.Citation{FacilityID: candidates[0].Facility.ID, Field: "capability_score", Value: candidates[0].Facility.Name, Confidence: candidates[0].Score / 100})
	}
	if len(candidates) > 1 {
		result.Backup = &candidates[1]
		result.Citations = append(result.Citations, entities.Citation{FacilityID: candidates[1].Facility.ID, Field: "capability_score", Value: candidates[1].Facility.Name, Confidence: candidates[1].Score / 100})
	}
	if len(candidates) > 2 {
		end := len(candidates)
		if end > 5 {
			end = 5
		}
		result.Alternatives = append(result.Alternatives, candidates[2:end]...)
		for _, c := range result.Alternatives {
			result.Citations = append(result.Citations, entities.Citation{FacilityID: c.Facility.ID, Field: "capability_score", Value: c.Facility.Name, Confidence: c.Score / 100})
		}
	}
	return result
}

// SpecialistDeployment implements the specialist_deployment (2-opt TSP)
// action: pick the top maxStops facilities by capability score, build a
// nearest-neighbour tour from Accra, then refine it with 2-opt.
func (p *Planner) SpecialistDeployment(facilities []*entities.Facility, specialty entities.Specialty, maxStops int) *entities.TourResult {
	if maxStops <= 0 {
		maxStops = tspDefaultStops
	}

	type scoredFacility struct {
		facility *entities.Facility
		score    float64
	}
	scored := make([]scoredFacility, 0, len(facilities))
	for _, f := range facilities {
		if !f.HasCoordinates() {
			continue
		}
		scored = append(scored, scoredFacility{facility: f, score: CapabilityScore(f, specialty)})
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if len(scored) > maxStops {
		scored = scored[:maxStops]
	}

	stops := make([]*entities.Facility, len(scored))
	for i, s := range scored {
		stops[i] = s.facility
	}
	citations := make([]entities.Citation, 0, len(scored))
	for _, s := range scored {
		citations = append(citations, entities.Citation{FacilityID: s.facility.ID, Field: "capability_score", Value: s.facility.Name, Confidence: s.score / 100})
	}
	if len(stops) < 2 {
		return &entities.TourResult{Specialty: string(specialty), Stops: prependAccra(stops), Citations: citations}
	}

	initial := greedyNearestNeighbourTour(stops)
	initialDistance := tourDistance(initial)
	final := twoOptImprove(initial)
	finalDistance := tourDistance(final)

	return &entities.TourResult{
		Specialty:             string(specialty),
		Stops:                 prependAccra(final),
		GreedyInitialDistance: initialDistance,
		FinalTourDistance:     finalDistance,
		Citations:             citations,
	}
}

// prependAccra puts the fixed Accra origin at stops[0], ahead of the
// 2-opt-refined visiting order, so the returned tour always literally
// starts at Accra without Accra itself being subject to reordering.
func prependAccra(stops []*entities.Facility) []*entities.Facility {
	out := make([]*entities.Facility, 0, len(stops)+1)
	out = append(out, accraStart)
	out = append(out, stops...)
	return out
}

func greedyNearestNeighbourTour(stops []*entities.Facility) []*entities.Facility {
	remaining := append([]*entities.Facility{}, stops...)
	tour := make([]*entities.Facility, 0, len(stops))

	currentLat, currentLon := accraLat, accraLon
	for len(remaining) > 0 {
		bestIdx, bestDist := 0, math.MaxFloat64
		for i, f := range remaining {
			d := HaversineKm(currentLat, currentLon, *f.Latitude, *f.Longitude)
			if d < bestDist {
				bestDist, bestIdx = d, i
			}
		}
		next := remaining[bestIdx]
		tour = append(tour, next)
		currentLat, currentLon = *next.Latitude, *next.Longitude
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
	}
	return tour
}

func tourDistance(tour []*entities.Facility) float64 {
	total := 0.0
	lat, lon := accraLat, accraLon
	for _, f := range tour {
		total += HaversineKm(lat, lon, *f.Latitude, *f.Longitude)
		lat, lon = *f.Latitude, *f.Longitude
	}
	return total
}

// twoOptImprove runs 2-opt local search on the tour (an open path
// implicitly starting at Accra, with no return leg), reversing segments whenever that reduces the
// total path length by more than twoOptEpsilon, until no improvement is
// found or twoOptMaxPasses full passes have run.
func twoOptImprove(tour []*entities.Facility) []*entities.Facility {
	current := append([]*entities.Facility{}, tour...)
	for pass := 0; pass < twoOptMaxPasses; pass++ {
		improved := false
		for i := 0; i < len(current)-1; i++ {
			for j := i + 2; j < len(current); j++ {
				before := tourDistance(current)
				reversed := reverseSegment(current, i+1, j)
				after := tourDistance(reversed)
				if before-after > twoOptEpsilon {
					current = reversed
					improved = true
				}
			}
		}
		if !improved {
			break
		}
	}
	return current
}

func reverseSegment(tour []*entities.Facility, i, j int) []*entities.Facility {
	out := append([]*entities.Facility{}, tour...)
	for i < j {
		out[i], out[j] = out[j], out[i]
		i++
		j--
	}
	return out
}

// EquipmentDistribution implements the equipment_distribution action:
// rank regions by how many facilities lack the given equipment tag, and
// for the top 5, recommend the highest-capacity facility that lacks it.
func (p *Planner) EquipmentDistribution(facilities []*entities.Facility, equipment entities.EquipmentTag) *entities.EquipmentDistributionResult {
	byRegion := map[string][]*entities.Facility{}
	for _, f := range facilities {
		if !f.HasEquipment(equipment) {
			byRegion[f.Region] = append(byRegion[f.Region], f)
		}
	}

	type regionAbsence struct {
		region string
		lacking []*entities.Facility
	}
	regions := make([]regionAbsence, 0, len(byRegion))
	for region, lacking := range byRegion {
		regions = append(regions, regionAbsence{region: region, lacking: lacking})
	}
	sort.Slice(regions, func(i, j int) bool { return len(regions[i].lacking) > len(regions[j].lacking) })
	if len(regions) > 5 {
		regions = regions[:5]
	}

	suggestions := make([]entities.EquipmentSuggestion, 0, len(regions))
	citations := make([]entities.Citation, 0, len(regions))
	for _, r := range regions {
		best := r.lacking[0]
		for _, f := range r.lacking {
			if f.Capacity > best.Capacity {
				best = f
			}
		}
		suggestions = append(suggestions, entities.EquipmentSuggestion{
			Region:              r.region,
			AbsentCount:         len(r.lacking),
			RecommendedFacility: best,
			WouldServe:          len(r.lacking) - 1,
		})
		citations = append(citations, entities.Citation{FacilityID: best.ID, Field: "equipment", Value: best.Name, Confidence: 1.0})
	}

	return &entities.EquipmentDistributionResult{Equipment: string(equipment), Suggestions: suggestions, Citations: citations}
}

// NewFacilityPlacement implements the new_facility_placement (maximin)
// action: grid-scan Ghana, ranking cells by distance to the nearest
// existing facility offering specialty (if any), farthest first.
func (p *Planner) NewFacilityPlacement(specialty entities.Specialty) *entities.PlacementResult {
	grid := GhanaGrid(placementGridStep)

	type placementCandidate struct {
		site            entities.PlacementSite
		nearestFacility *entities.Facility
	}

	candidates := make([]placementCandidate, 0, len(grid))
	for _, cell := range grid {
		hit, ok := p.spatial.NearestOne(cell.Lat, cell.Lon, specialty)
		distance := 0.0
		var nearest *entities.Facility
		if ok {
			distance = hit.DistanceKm
			nearest = hit.Facility
		}

		priority := "medium"
		switch {
		case distance > 100:
			priority = "critical"
		case distance > 50:
			priority = "high"
		}

		candidates = append(candidates, placementCandidate{
			site:            entities.PlacementSite{Latitude: cell.Lat, Longitude: cell.Lon, DistanceKm: distance, Priority: priority},
			nearestFacility: nearest,
		})
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].site.DistanceKm > candidates[j].site.DistanceKm })
	if len(candidates) > placementTopN {
		candidates = candidates[:placementTopN]
	}

	sites := make([]entities.PlacementSite, 0, len(candidates))
	citations := make([]entities.Citation, 0, len(candidates))
	for _, c := range candidates {
		sites = append(sites, c.site)
		if c.nearestFacility != nil {
			citations = append(citations, entities.Citation{FacilityID: c.nearestFacility.ID, Field: "distance_km", Value: c.nearestFacility.Name, Confidence: 1.0})
		}
	}

	return &entities.PlacementResult{Specialty: string(specialty), Placements: sites, Citations: citations}
}

// CapacityPlanning implements the capacity_planning action: per-region
// beds/doctors-per-facility ratios, with a status tier per region.
func (p *Planner) CapacityPlanning(facilities []*entities.Facility) *entities.CapacityPlanningResult {
	type regionTotals struct {
		beds, doctors, count int
	}
	totals := map[string]*regionTotals{}
	citations := make([]entities.Citation, 0, len(facilities))
	for _, f := range facilities {
		t, ok := totals[f.Region]
		if !ok {
			t = &regionTotals{}
			totals[f.Region] = t
		}
		t.beds += f.Capacity
		t.doctors += f.Doctors
		t.count++
		citations = append(citations, entities.Citation{FacilityID: f.ID, Field: "capacity", Value: f.Region, Confidence: 1.0})
	}

	regions := make([]entities.CapacityRegion, 0, len(totals))
	for region, t := range totals {
		if t.count == 0 {
			continue
		}
		bedsPerFacility := float64(t.beds) / float64(t.count)
		doctorsPerFacility := float64(t.doctors) / float64(t.count)

		status := "adequate"
		switch {
		case bedsPerFacility < 5 && t.count > 3:
			status = "critical"
		case bedsPerFacility < 15:
			status = "warning"
		}

		regions = append(regions, entities.CapacityRegion{
			Region:             region,
			BedsPerFacility:    bedsPerFacility,
			DoctorsPerFacility: doctorsPerFacility,
			TotalFacilities:    t.count,
			Status:             status,
		})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Region < regions[j].Region })

	return &entities.CapacityPlanningResult{Regions: regions, Citations: citations}
}
