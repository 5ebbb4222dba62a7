package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/careatlas/queryengine/internal/domain/entities"
	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/domain/repositories"
)

const (
	rrfK              = 60
	defaultSearchK    = 30
	candidateMultiple = 3
)

var clinicalKeywords = []string{
	"procedure", "surgery", "treatment", "catheterization", "dialysis", "scan", "therapy",
	"transplant", "chemotherapy", "radiation",
}

var specialtyKeywordList = func() []string {
	out := make([]string, 0, len(specialtyKeywords))
	for k := range specialtyKeywords {
		out = append(out, k)
	}
	return out
}()

// SemanticSearcher runs multi-vector Reciprocal Rank Fusion search across
// the three named vectors kept per facility.
type SemanticSearcher struct {
	embedder    providers.Embedder
	index       providers.VectorIndex
	corpus      repositories.CorpusRepository
	extractors  *Extractors
}

// NewSemanticSearcher wires an embedder, vector index and corpus store
// together into the fused search operation.
func NewSemanticSearcher(embedder providers.Embedder, index providers.VectorIndex, corpus repositories.CorpusRepository, extractors *Extractors) *SemanticSearcher {
	return &SemanticSearcher{embedder: embedder, index: index, corpus: corpus, extractors: extractors}
}

var locationQualifier = regexp.MustCompile(`(?i)^(.*?)\s+(?:in|near)\s+([A-Za-z][A-Za-z\s]*)$`)

// StripLocationQualifiers removes a trailing " in X" / " near X" clause,
// used by the orchestrator's self-correction retry.
func StripLocationQualifiers(query string) string {
	stripped, _, ok := ExtractLocationQualifier(query)
	if !ok {
		return query
	}
	return stripped
}

// ExtractLocationQualifier splits a trailing " in X" / " near X" clause off
// query, reporting both the stripped query and the captured location text
// X so a caller can confirm X is itself geocodable before acting on it.
func ExtractLocationQualifier(query string) (stripped string, location string, ok bool) {
	matches := locationQualifier.FindStringSubmatch(query)
	if matches == nil {
		return query, "", false
	}
	return strings.TrimSpace(matches[1]), strings.TrimSpace(matches[2]), true
}

// Search runs the fused multi-vector search described in the semantic
// searcher's design: per-vector query templates, keyword-weighted RRF, and
// a filter predicate built from the query text.
func (s *SemanticSearcher) Search(ctx context.Context, query string, k int) (*entities.SemanticSearchResult, error) {
	if k <= 0 {
		k = defaultSearchK
	}

	filter := s.buildFilter(query)
	weights := s.computeWeights(query)

	rrfScores := make(map[string]float64)
	for _, vector := range providers.AllNamedVectors {
		template := vectorTemplate(vector, query)
		vec, err := s.embedder.Embed(ctx, template)
		if err != nil {
			return nil, fmt.Errorf("embed query for %s: %w", vector, err)
		}

		hits, err := s.index.Search(ctx, vector, vec, filter, k*candidateMultiple)
		if err != nil {
			return nil, fmt.Errorf("search %s: %w", vector, err)
		}

		weight := weights[vector]
		for rank, hit := range hits {
			rrfScores[hit.ID] += weight / float64(rrfK+rank+1)
		}
	}

	type scored struct {
		id    string
		score float64
	}
	scoredList := make([]scored, 0, len(rrfScores))
	for id, score := range rrfScores {
		scoredList = append(scoredList, scored{id: id, score: score})
	}
	sortDescByScore(scoredList, func(x scored) float64 { return x.score })
	if len(scoredList) > k {
		scoredList = scoredList[:k]
	}

	hits := make([]entities.SearchHit, 0, len(scoredList))
	citations := make([]entities.Citation, 0)
	for _, item := range scoredList {
		facility, ok := s.corpus.Get(item.id)
		if !ok {
			continue
		}
		displayScore := item.score * 100
		if displayScore > 1 {
			displayScore = 1
		}
		hits = append(hits, entities.SearchHit{Facility: facility, RRFScore: item.score, Display: displayScore})
		citations = append(citations, entities.Citation{FacilityID: facility.ID, Field: "name", Value: facility.Name, Confidence: displayScore})
	}

	return &entities.SemanticSearchResult{
		Query:          query,
		Hits:           hits,
		VectorWeights:  weightsAsStrings(weights),
		FiltersApplied: filterAsMap(filter),
		SearchMethod:   "reciprocal_rank_fusion",
		Citations:      citations,
	}, nil
}

func filterAsMap(filter providers.Filter) map[string]string {
	out := map[string]string{}
	if filter.Region != "" {
		out["region"] = filter.Region
	}
	if filter.FacilityType != "" {
		out["facility_type"] = filter.FacilityType
	}
	if filter.OrganizationType != "" {
		out["organization_type"] = filter.OrganizationType
	}
	if len(filter.CityOr) > 0 {
		out["city"] = strings.Join(filter.CityOr, ",")
	}
	return out
}

func vectorTemplate(vector providers.NamedVector, query string) string {
	switch vector {
	case providers.VectorClinicalDetail:
		return fmt.Sprintf("Procedures: %s | Equipment: %s", query, query)
	case providers.VectorSpecialtiesContext:
		return fmt.Sprintf("facility with specialties: %s", query)
	default:
		return query
	}
}

// computeWeights assigns each named vector a raw weight (base 1.0 plus
// keyword hits, capped at 3) then normalizes so the three weights sum to
// 3.0.
func (s *SemanticSearcher) computeWeights(query string) map[providers.NamedVector]float64 {
	lower := strings.ToLower(query)

	clinicalHits := countKeywordHits(lower, clinicalKeywords)
	specialtyHits := countKeywordHits(lower, specialtyKeywordList)
	if clinicalHits > 3 {
		clinicalHits = 3
	}
	if specialtyHits > 3 {
		specialtyHits = 3
	}

	raw := map[providers.NamedVector]float64{
		providers.VectorFullDocument:       1.0,
		providers.VectorClinicalDetail:     1.0 + float64(clinicalHits),
		providers.VectorSpecialtiesContext: 1.0 + float64(specialtyHits),
	}

	sum := raw[providers.VectorFullDocument] + raw[providers.VectorClinicalDetail] + raw[providers.VectorSpecialtiesContext]
	normalized := make(map[providers.NamedVector]float64, 3)
	for k, v := range raw {
		normalized[k] = v / sum * 3.0
	}
	return normalized
}

func countKeywordHits(lower string, keywords []string) int {
	count := 0
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			count++
		}
	}
	return count
}

// buildFilter extracts a city/region/facility-type/organization-type
// predicate from the query text, the four filter dimensions named in
// spec.md §4.4 step 3 and §6. City and region matching against multi-word
// names is longest-match-first, via ExtractCity/ExtractRegion.
func (s *SemanticSearcher) buildFilter(query string) providers.Filter {
	filter := providers.Filter{}
	if region := s.extractors.ExtractRegion(query); region != "" {
		filter.Region = region
	}
	if city := s.extractors.ExtractCity(query); city != "" {
		filter.CityOr = []string{city}
	}
	if ft := s.extractors.ExtractFacilityType(query); ft != "" {
		filter.FacilityType = string(ft)
	}
	if org := s.extractors.ExtractOrganizationType(query); org != "" {
		filter.OrganizationType = org
	}
	return filter
}

func weightsAsStrings(weights map[providers.NamedVector]float64) map[string]float64 {
	out := make(map[string]float64, len(weights))
	for k, v := range weights {
		out[string(k)] = v
	}
	return out
}

func sortDescByScore[T any](items []T, key func(T) float64) {
	for i := 1; i < len(items); i++ {
		for j := i; j > 0 && key(items[j]) > key(items[j-1]); j-- {
			items[j], items[j-1] = items[j-1], items[j]
		}
	}
}
