package evaluation

import (
	"context"
	"time"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

// SearchResultProvider is the retrieval surface a runner scores against.
// SemanticSearcher.Search satisfies this directly.
type SearchResultProvider interface {
	Search(ctx context.Context, query string, k int) (*entities.SemanticSearchResult, error)
}

// Runner runs evaluation across a set of golden queries against the
// semantic searcher, scoring each by Recall@10 / MRR@10 over facility ids.
type Runner struct {
	searcher SearchResultProvider
}

func NewRunner(searcher SearchResultProvider) *Runner {
	return &Runner{searcher: searcher}
}

func (r *Runner) Run(ctx context.Context, queries []GoldenQuery) (*EvalSummary, error) {
	summary := &EvalSummary{
		TotalQueries: len(queries),
		ByIntent:     make(map[entities.Intent]*IntentSummary),
	}

	for _, gq := range queries {
		start := time.Now()
		searchResult, err := r.searcher.Search(ctx, gq.Query, 10)
		duration := time.Since(start)
		if err != nil {
			continue
		}

		retrievedIDs := make([]string, len(searchResult.Hits))
		for i, hit := range searchResult.Hits {
			retrievedIDs[i] = hit.Facility.ID
		}

		recall := RecallAtK(gq.ExpectedFacilityIDs, retrievedIDs, 10)
		mrr := MRRAtK(gq.ExpectedFacilityIDs, retrievedIDs, 10)

		result := EvalResult{
			QueryID:      gq.ID,
			Query:        gq.Query,
			Intent:       gq.Intent,
			RecallAt10:   recall,
			MRRAt10:      mrr,
			ResultCount:  len(retrievedIDs),
			RetrievedIDs: retrievedIDs,
			Latency:      duration,
		}

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	s.AvgRecallAt10 += res.RecallAt10
	s.AvgMRRAt10 += res.MRRAt10
	s.AvgLatency += res.Latency
	if res.ResultCount > 0 {
		s.QueriesWithHits++
	}

	if _, ok := s.ByIntent[res.Intent]; !ok {
		s.ByIntent[res.Intent] = &IntentSummary{}
	}
	is := s.ByIntent[res.Intent]
	is.Count++
	is.AvgRecallAt10 += res.RecallAt10
	is.AvgMRRAt10 += res.MRRAt10
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalQueries > 0 {
		n := float64(s.TotalQueries)
		s.AvgRecallAt10 /= n
		s.AvgMRRAt10 /= n
		s.AvgLatency /= time.Duration(s.TotalQueries)
	}

	for _, is := range s.ByIntent {
		if is.Count > 0 {
			n := float64(is.Count)
			is.AvgRecallAt10 /= n
			is.AvgMRRAt10 /= n
		}
	}
}
