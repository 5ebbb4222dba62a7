package services

import (
	"regexp"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/careatlas/queryengine/internal/data"
)

// levenshteinCutoff is the minimum similarity ratio (1 - distance/maxLen)
// a fuzzy candidate must clear to be accepted.
const levenshteinCutoff = 0.80

var whitespaceOrHyphen = regexp.MustCompile(`[\s\-]+`)

// Geocoder resolves a facility's free-text city/region into an approximate
// coordinate against a static Ghana gazetteer, without any network call.
type Geocoder struct {
	cityCoords   map[string]data.Coordinate
	regionCoords map[string]data.Coordinate
	cityKeys     []string // sorted shortest-first, for word-boundary matching
}

// NewGeocoder builds a Geocoder over the embedded Ghana gazetteer.
func NewGeocoder() *Geocoder {
	keys := make([]string, 0, len(data.GhanaCityCoords))
	for k := range data.GhanaCityCoords {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return len(keys[i]) < len(keys[j]) })

	return &Geocoder{
		cityCoords:   data.GhanaCityCoords,
		regionCoords: data.GhanaRegionCoords,
		cityKeys:     keys,
	}
}

// GeocodeResult reports both the resolved coordinate and how confidently it
// was resolved, so callers (self-correction, validation) can distinguish an
// exact hit from a fuzzy guess.
type GeocodeResult struct {
	Lat        float64
	Lon        float64
	Confidence float64 // 1.0 exact, 0.7 word-boundary, levenshtein ratio for fuzzy
	Method     string  // "exact_city", "exact_region", "word_boundary", "fuzzy", ""
}

// Geocode resolves city and, failing that, region to an approximate
// coordinate using a three-stage lookup: exact match, word-boundary partial
// match (shortest candidate key wins), then Levenshtein fuzzy match.
// Reports Method == "" when nothing clears the fuzzy cutoff.
func (g *Geocoder) Geocode(city, region string) GeocodeResult {
	if city != "" {
		normalized := normalizePlaceName(city)
		if coord, ok := g.cityCoords[normalized]; ok {
			return GeocodeResult{Lat: coord.Lat, Lon: coord.Lon, Confidence: 1.0, Method: "exact_city"}
		}
	}

	if region != "" {
		normalized := normalizePlaceName(region)
		if coord, ok := g.regionCoords[normalized]; ok {
			return GeocodeResult{Lat: coord.Lat, Lon: coord.Lon, Confidence: 1.0, Method: "exact_region"}
		}
	}

	if city != "" {
		normalized := normalizePlaceName(city)
		wordBoundary := regexp.MustCompile(`\b` + regexp.QuoteMeta(normalized) + `\b`)
		for _, key := range g.cityKeys {
			if wordBoundary.MatchString(key) {
				coord := g.cityCoords[key]
				return GeocodeResult{Lat: coord.Lat, Lon: coord.Lon, Confidence: 0.7, Method: "word_boundary"}
			}
		}
	}

	if city != "" {
		normalized := normalizePlaceName(city)
		bestKey := ""
		bestRatio := 0.0
		for _, key := range g.cityKeys {
			ratio := levenshteinRatio(normalized, key)
			if ratio > bestRatio {
				bestRatio = ratio
				bestKey = key
			}
		}
		if bestKey != "" && bestRatio >= levenshteinCutoff {
			coord := g.cityCoords[bestKey]
			return GeocodeResult{Lat: coord.Lat, Lon: coord.Lon, Confidence: bestRatio, Method: "fuzzy"}
		}
	}

	return GeocodeResult{}
}

func normalizePlaceName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = whitespaceOrHyphen.ReplaceAllString(n, " ")
	n = strings.ReplaceAll(n, "gt.", "greater")
	n = strings.ReplaceAll(n, "st.", "saint")
	return n
}

func levenshteinRatio(a, b string) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1.0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(maxLen)
}
