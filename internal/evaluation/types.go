package evaluation

import (
	"time"

	"github.com/careatlas/queryengine/internal/domain/entities"
)

// GoldenQuery is a labeled query used to score the semantic searcher's
// retrieval quality against a hand-picked set of relevant facility ids.
type GoldenQuery struct {
	ID                  string          `json:"id"`
	Query               string          `json:"query"`
	Intent              entities.Intent `json:"intent"`
	ExpectedFacilityIDs []string        `json:"expected_facility_ids"`
	Difficulty          string          `json:"difficulty"` // easy, medium, hard
}

// EvalResult holds the evaluation outcome for a single query.
type EvalResult struct {
	QueryID      string
	Query        string
	Intent       entities.Intent
	RecallAt10   float64
	MRRAt10      float64
	ResultCount  int
	RetrievedIDs []string
	Latency      time.Duration
}

// EvalSummary holds aggregate metrics across all golden queries.
type EvalSummary struct {
	TotalQueries    int
	AvgRecallAt10   float64
	AvgMRRAt10      float64
	AvgLatency      time.Duration
	QueriesWithHits int // queries that returned at least 1 result
	ByIntent        map[entities.Intent]*IntentSummary
}

// IntentSummary holds metrics grouped by intent type.
type IntentSummary struct {
	Count         int
	AvgRecallAt10 float64
	AvgMRRAt10    float64
}
