package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/careatlas/queryengine/internal/domain/entities"
	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/openai"
)

// summaryCharBudget bounds the fact text sent to the LLM for summarization;
// the aggregator binary-searches down to a prefix of facts within this
// budget when the collected agent facts overflow it.
const summaryCharBudget = 3000

const aggregatorTimeout = 4 * time.Second

// aggregateMapFacilities merges every agent's map-ready facilities into a
// single deduplicated list, walking outcomes in plan order so the result
// is deterministic regardless of which agent ran in what goroutine.
func aggregateMapFacilities(outcomes []agentOutcome) []entities.MapFacility {
	seen := map[string]bool{}
	merged := make([]entities.MapFacility, 0)
	for _, outcome := range outcomes {
		if outcome.result == nil {
			continue
		}
		for _, mf := range outcome.result.FacilitiesForMap() {
			if seen[mf.ID] {
				continue
			}
			seen[mf.ID] = true
			merged = append(merged, mf)
		}
	}
	return merged
}

// summarize produces the response's natural-language summary. When an LLM
// collaborator is available it asks for a short synthesis grounded in the
// collected agent facts; otherwise, and on any LLM failure, it falls back
// to a concatenation of those same facts.
func (o *Orchestrator) summarize(ctx context.Context, query string, plan entities.Plan, outcomes []agentOutcome) (string, entities.TraceStep) {
	start := timeNow()
	facts := factLines(outcomes)
	fallback := strings.Join(facts, " ")
	if fallback == "" {
		fallback = "No results were produced for this query."
	}

	if o.llm == nil {
		return fallback, entities.TraceStep{Agent: "aggregator", Action: "concatenate_facts", DurationMs: sinceMs(start)}
	}

	prompt := budgetedFactPrompt(facts, summaryCharBudget)
	llmCtx, cancel := context.WithTimeout(ctx, aggregatorTimeout)
	defer cancel()

	summary, err := o.llm.Chat(llmCtx, []providers.ChatMessage{
		{Role: "system", Content: openai.AggregatorSummarySystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Query: %s\n\nResults:\n%s", query, prompt)},
	}, 300, 0.2)

	step := entities.TraceStep{Agent: "aggregator", Action: "summarize", DurationMs: sinceMs(start)}
	if err != nil || strings.TrimSpace(summary) == "" {
		step.Action = "concatenate_facts_after_llm_error"
		if err != nil {
			step.Error = err.Error()
		}
		return fallback, step
	}
	return summary, step
}

// factLines flattens each agent's outcome into short, citable fact
// strings the aggregator can hand to an LLM or concatenate directly.
func factLines(outcomes []agentOutcome) []string {
	facts := make([]string, 0, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.result == nil {
			continue
		}
		if outcome.trace.Error != "" {
			facts = append(facts, fmt.Sprintf("%s failed: %s.", outcome.agent, outcome.trace.Error))
			continue
		}
		facts = append(facts, factLine(outcome.agent, outcome.result))
	}
	return facts
}

func factLine(agent entities.AgentName, result entities.AgentResult) string {
	switch r := result.(type) {
	case *entities.CountResult:
		return fmt.Sprintf("Found %d matching facilities.", r.Count)
	case *entities.AggregationResult:
		return fmt.Sprintf("Top region is %s with %d facilities.", r.TopRegion, r.TopCount)
	case *entities.SpecialtyDistributionResult:
		return fmt.Sprintf("%d distinct specialties are represented.", r.TotalUniqueSpecialties)
	case *entities.AnomalyBedDoctorResult:
		return fmt.Sprintf("%d facilities show anomalous bed-to-doctor ratios above %.1f.", len(r.Anomalies), r.Threshold)
	case *entities.SinglePointFailureResult:
		return fmt.Sprintf("%d specialties have 3 or fewer offering facilities nationwide.", len(r.RareSpecialties))
	case *entities.FacilityListResult:
		return fmt.Sprintf("%s returned %d facilities.", r.ActionName, r.Count)
	case *entities.SemanticSearchResult:
		return fmt.Sprintf("Search for %q returned %d results.", r.Query, len(r.Hits))
	case *entities.ValidationResult:
		flagged := 0
		for _, v := range r.Validated {
			if len(v.Issues) > 0 {
				flagged++
			}
		}
		return fmt.Sprintf("%d of %d facilities had at least one validation issue.", flagged, len(r.Validated))
	case *entities.TwoStageAnomalyResult:
		if r.Skipped {
			return fmt.Sprintf("Anomaly detection skipped Mahalanobis scoring: %s.", r.SkipReason)
		}
		return fmt.Sprintf("%d facilities flagged as statistical outliers.", len(r.FlaggedFacilities))
	case *entities.RedFlagResult:
		return fmt.Sprintf("%d facility descriptions matched red-flag language patterns.", len(r.Flagged))
	case *entities.CoverageGapResult:
		return fmt.Sprintf("Coverage gap analysis for %s covered %d regions.", r.Specialty, len(r.Regions))
	case *entities.RadiusSearchResult:
		return fmt.Sprintf("%d facilities found within %.0fkm.", len(r.Results), r.RadiusKm)
	case *entities.ColdSpotResult:
		return fmt.Sprintf("%d cold spots identified for %s.", len(r.ColdSpots), r.Specialty)
	case *entities.MedicalDesertResult:
		return fmt.Sprintf("%d regions identified as medical deserts for %s.", len(r.Deserts), r.Specialty)
	case *entities.RegionalEquityResult:
		flagged := 0
		for _, e := range r.Regions {
			if e.Flagged {
				flagged++
			}
		}
		return fmt.Sprintf("%d of %d regions flagged as statistical outliers in resource equity.", flagged, len(r.Regions))
	case *entities.DistanceResult:
		if r.Error != "" {
			return fmt.Sprintf("Could not compute distance: %s.", r.Error)
		}
		return fmt.Sprintf("%s to %s is %.1fkm.", r.CityA, r.CityB, r.DistanceKm)
	case *entities.EmergencyRoutingResult:
		if r.Primary == nil {
			return "No emergency routing candidate found."
		}
		return fmt.Sprintf("Recommended facility %s is %.1fkm away (%.0f minutes).", r.Primary.Facility.Name, r.Primary.DistanceKm, r.TravelTimeMinutes)
	case *entities.TourResult:
		return fmt.Sprintf("Deployment tour covers %d stops over %.1fkm.", len(r.Stops), r.FinalTourDistance)
	case *entities.EquipmentDistributionResult:
		return fmt.Sprintf("%d regions recommended for %s distribution.", len(r.Suggestions), r.Equipment)
	case *entities.PlacementResult:
		return fmt.Sprintf("%d candidate sites identified for a new %s facility.", len(r.Placements), r.Specialty)
	case *entities.CapacityPlanningResult:
		return fmt.Sprintf("Capacity assessed across %d regions.", len(r.Regions))
	case *entities.ErrorResult:
		return fmt.Sprintf("%s failed: %s.", r.ActionName, r.Error)
	default:
		return fmt.Sprintf("%s produced a result.", agent)
	}
}

// budgetedFactPrompt joins facts and, if the joined text exceeds budget,
// binary-searches the largest prefix of facts that fits within it.
func budgetedFactPrompt(facts []string, budget int) string {
	joined := strings.Join(facts, "\n")
	if len(joined) <= budget {
		return joined
	}

	lo, hi := 0, len(facts)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if len(strings.Join(facts[:mid], "\n")) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return strings.Join(facts[:lo], "\n")
}
