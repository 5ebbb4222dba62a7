package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/careatlas/queryengine/internal/domain/entities"
	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/domain/repositories"
	"github.com/careatlas/queryengine/internal/infrastructure/observability"
)

// planBudget is the default total time allotted to running a query's
// entire plan, agents included.
const planBudget = 10 * time.Second

// Orchestrator runs the router -> agents -> aggregator pipeline for a
// single query: it classifies intent, dispatches the routed agents in
// plan order (sequential or parallel per the plan's flow), applies the
// searcher's self-correction retry, and aggregates results into a
// Response.
type Orchestrator struct {
	classifier *IntentClassifier
	searcher   *SemanticSearcher
	analyst    *DataAnalyst
	reasoner   *MedicalReasoner
	geo        *GeospatialAnalyst
	planner    *Planner
	extractors *Extractors
	geocoder   *Geocoder
	corpus     repositories.CorpusRepository
	llm        providers.LLM
	metrics    *observability.Metrics
}

// NewOrchestrator wires every agent-facing service into the pipeline.
// metrics may be nil, in which case RecordAgentMetric/RecordPlanMetric are
// no-ops.
func NewOrchestrator(
	classifier *IntentClassifier,
	searcher *SemanticSearcher,
	analyst *DataAnalyst,
	reasoner *MedicalReasoner,
	geo *GeospatialAnalyst,
	planner *Planner,
	extractors *Extractors,
	geocoder *Geocoder,
	corpus repositories.CorpusRepository,
	llm providers.LLM,
	metrics *observability.Metrics,
) *Orchestrator {
	return &Orchestrator{
		classifier: classifier,
		searcher:   searcher,
		analyst:    analyst,
		reasoner:   reasoner,
		geo:        geo,
		planner:    planner,
		extractors: extractors,
		geocoder:   geocoder,
		corpus:     corpus,
		llm:        llm,
		metrics:    metrics,
	}
}

// agentOutcome pairs a completed agent's result with the trace step it
// produced, keeping the two together across the parallel-flow fan-out.
type agentOutcome struct {
	agent  entities.AgentName
	result entities.AgentResult
	trace  entities.TraceStep
}

// Run executes the full router -> agents -> aggregator pipeline for
// query and returns the structured Response.
func (o *Orchestrator) Run(ctx context.Context, query string) *entities.Response {
	start := timeNow()
	logger := observability.LoggerFromContext(ctx)

	ctx, cancel := context.WithTimeout(ctx, planBudget)
	defer cancel()

	routerStart := timeNow()
	plan := o.classifier.Classify(ctx, query)
	trace := []entities.TraceStep{{
		Agent:      "router",
		Action:     "classify_intent",
		DurationMs: sinceMs(routerStart),
		Summary:    "routed to intent " + string(plan.Intent),
	}}

	var outcomes []agentOutcome
	if plan.Flow == entities.FlowParallel && len(plan.Agents) > 1 {
		outcomes = o.runParallel(ctx, plan, query)
	} else {
		outcomes = o.runSequential(ctx, plan, query)
	}

	agentResults := make(map[string]entities.AgentResult, len(outcomes))
	agentsUsed := make([]string, 0, len(outcomes))
	partial := false
	for _, outcome := range outcomes {
		agentResults[string(outcome.agent)] = outcome.result
		agentsUsed = append(agentsUsed, string(outcome.agent))
		trace = append(trace, outcome.trace)
		if outcome.trace.Error != "" || outcome.trace.TimedOut {
			partial = true
		}
	}

	mapFacilities := aggregateMapFacilities(outcomes)
	summary, aggTrace := o.summarize(ctx, query, plan, outcomes)
	trace = append(trace, aggTrace)

	if err := ctx.Err(); err != nil {
		logger.Warn().Err(err).Str("query", query).Msg("plan deadline exceeded")
		partial = true
	}

	observability.RecordPlanMetric(ctx, o.metrics, string(plan.Intent), timeNow().Sub(start))

	return &entities.Response{
		Query:           query,
		Intent:          plan.Intent,
		Confidence:      plan.Confidence,
		AgentsUsed:      agentsUsed,
		AgentResults:    agentResults,
		MapFacilities:   mapFacilities,
		Summary:         summary,
		Trace:           trace,
		TotalDurationMs: sinceMs(start),
		Timestamp:       timeNow().Format(time.RFC3339),
		Partial:         partial,
	}
}

func (o *Orchestrator) runSequential(ctx context.Context, plan entities.Plan, query string) []agentOutcome {
	outcomes := make([]agentOutcome, 0, len(plan.Agents))
	for _, agent := range plan.Agents {
		if ctx.Err() != nil {
			outcomes = append(outcomes, agentOutcome{
				agent: agent,
				trace: entities.TraceStep{Agent: string(agent), Error: ctx.Err().Error(), TimedOut: true},
			})
			continue
		}
		outcomes = append(outcomes, o.dispatch(ctx, agent, plan, query))
	}
	return outcomes
}

// runParallel executes every agent in its own goroutine (per the
// concurrency model's requirement that parallel agents share no mutable
// state), then merges outcomes back in the plan's declared agent order so
// downstream aggregation stays deterministic regardless of completion
// order.
func (o *Orchestrator) runParallel(ctx context.Context, plan entities.Plan, query string) []agentOutcome {
	outcomes := make([]agentOutcome, len(plan.Agents))
	var wg sync.WaitGroup
	for i, agent := range plan.Agents {
		wg.Add(1)
		go func(i int, agent entities.AgentName) {
			defer wg.Done()
			outcomes[i] = o.dispatch(ctx, agent, plan, query)
		}(i, agent)
	}
	wg.Wait()
	return outcomes
}

func (o *Orchestrator) dispatch(ctx context.Context, agent entities.AgentName, plan entities.Plan, query string) agentOutcome {
	ctx, span := observability.StartSpan(ctx, "agent."+string(agent))
	defer span.End()

	agentStart := timeNow()
	result, action, err := func() (res entities.AgentResult, act string, runErr error) {
		defer func() {
			if rec := recover(); rec != nil {
				res, act, runErr = nil, "agent_panic", fmt.Errorf("agent %s panicked: %v", agent, rec)
			}
		}()
		return o.runAgent(ctx, agent, plan, query)
	}()
	duration := timeNow().Sub(agentStart)

	step := entities.TraceStep{
		Agent:      string(agent),
		Action:     action,
		DurationMs: sinceMs(agentStart),
	}
	outcome := "success"
	if err != nil {
		step.Error = err.Error()
		result = &entities.ErrorResult{ActionName: action, Error: err.Error()}
		outcome = "error"
	} else {
		step.Summary = action + " completed"
		step.Citations = result.GetCitations()
	}
	if ctx.Err() != nil {
		outcome = "timeout"
	}
	observability.RecordAgentMetric(ctx, o.metrics, string(agent), outcome, duration)
	return agentOutcome{agent: agent, result: result, trace: step}
}

// runAgent picks the concrete action a given agent performs for the
// current plan's intent, extracting whatever query parameters that
// action needs.
func (o *Orchestrator) runAgent(ctx context.Context, agent entities.AgentName, plan entities.Plan, query string) (entities.AgentResult, string, error) {
	filter := o.buildAnalystFilter(query)

	switch agent {
	case entities.AgentSearcher:
		return o.searchWithSelfCorrection(ctx, query)

	case entities.AgentAnalyst:
		switch plan.Intent {
		case entities.IntentAggregate:
			if filter.Specialty != "" {
				return o.analyst.SpecialtyDistribution(), "specialty_distribution", nil
			}
			return o.analyst.RegionAggregation(), "region_aggregation", nil
		case entities.IntentAnomalyDetection:
			return o.analyst.AnomalyBedDoctorRatio(), "anomaly_bed_doctor_ratio", nil
		case entities.IntentSinglePointFailure:
			return o.analyst.SinglePointOfFailure(), "single_point_of_failure", nil
		case entities.IntentCount:
			return o.analyst.CountFacilities(filter), "count_facilities", nil
		default:
			return o.analyst.FindBy(filter), "find_by", nil
		}

	case entities.AgentValidator:
		switch plan.Intent {
		case entities.IntentValidation:
			candidates := o.analyst.FindBy(filter).Facilities
			if isRedFlagQuery(query) {
				return o.reasoner.DetectRedFlags(descriptionsByID(candidates)), "detect_red_flags", nil
			}
			return o.reasoner.ValidateFacilities(candidates), "validate_facilities", nil
		case entities.IntentAnomalyDetection:
			return o.reasoner.DetectAnomalies(), "detect_anomalies", nil
		case entities.IntentCoverageGap, entities.IntentMedicalDesert:
			return o.reasoner.IdentifyCoverageGaps(filter.Specialty), "identify_coverage_gaps", nil
		default:
			return o.reasoner.SinglePointOfFailureNational(), "single_point_of_failure", nil
		}

	case entities.AgentGeo:
		switch plan.Intent {
		case entities.IntentDistanceQuery:
			cityA, cityB := extractTwoCities(query)
			return o.geo.CityDistance(cityA, cityB), "distance_between_cities", nil
		case entities.IntentCoverageGap:
			return o.geo.CoverageGaps(filter.Specialty), "coverage_gap_analysis", nil
		case entities.IntentMedicalDesert:
			return o.geo.MedicalDeserts(filter.Specialty), "identify_medical_deserts", nil
		case entities.IntentComparison:
			return o.geo.RegionalEquity(), "regional_equity", nil
		default:
			lat, lon := o.centroidForQuery(query)
			return o.geo.RadiusSearch(lat, lon, emergencyRadiusKm, filter.Specialty), "radius_search", nil
		}

	case entities.AgentPlanner:
		return o.runPlanner(query, filter)
	}

	return &entities.ErrorResult{ActionName: "unknown_agent", Error: "no handler for agent " + string(agent)}, "unknown_agent", nil
}

func (o *Orchestrator) runPlanner(query string, filter FacilityFilter) (entities.AgentResult, string, error) {
	lower := strings.ToLower(query)
	switch {
	case strings.Contains(lower, "emergency") || strings.Contains(lower, "nearest"):
		city, region := o.extractPlaceForRouting(query)
		return o.planner.EmergencyRouting(city, region, filter.Specialty), "emergency_routing", nil
	case strings.Contains(lower, "deploy") || strings.Contains(lower, "route") || strings.Contains(lower, "tour"):
		candidates := o.corpus.All()
		if filter.Specialty != "" {
			candidates = o.corpus.BySpecialty(filter.Specialty)
		}
		return o.planner.SpecialistDeployment(candidates, filter.Specialty, tspDefaultStops), "specialist_deployment", nil
	case strings.Contains(lower, "equipment") || strings.Contains(lower, "distribute"):
		equipment := o.extractors.ExtractEquipment(query)
		return o.planner.EquipmentDistribution(o.corpus.All(), equipment), "equipment_distribution", nil
	case strings.Contains(lower, "new facility") || strings.Contains(lower, "placement") || strings.Contains(lower, "build"):
		return o.planner.NewFacilityPlacement(filter.Specialty), "new_facility_placement", nil
	case strings.Contains(lower, "capacity"):
		return o.planner.CapacityPlanning(o.corpus.All()), "capacity_planning", nil
	default:
		city, region := o.extractPlaceForRouting(query)
		return o.planner.EmergencyRouting(city, region, filter.Specialty), "emergency_routing", nil
	}
}

// searchWithSelfCorrection wraps the semantic searcher: per the
// concurrency model, self-correction applies to this agent only. If the
// first attempt returns zero hits with a non-empty filter, the retry
// strips a trailing location qualifier from the query text once, but only
// when the geocoder can actually resolve the stripped location — an
// ungeocodable qualifier is more likely a clinical or facility term than a
// place name, so stripping it would just discard a real constraint.
func (o *Orchestrator) searchWithSelfCorrection(ctx context.Context, query string) (entities.AgentResult, string, error) {
	result, err := o.searcher.Search(ctx, query, defaultSearchK)
	if err != nil {
		return nil, "semantic_search", err
	}
	if len(result.Hits) == 0 && len(result.FiltersApplied) > 0 {
		stripped, location, ok := ExtractLocationQualifier(query)
		if ok && o.geocoder.Geocode(location, location).Method != "" {
			retry, retryErr := o.searcher.Search(ctx, stripped, defaultSearchK)
			if retryErr == nil {
				retry.SelfCorrected = true
				return retry, "semantic_search", nil
			}
		}
	}
	return result, "semantic_search", nil
}

func (o *Orchestrator) buildAnalystFilter(query string) FacilityFilter {
	filter := FacilityFilter{}
	if specialty := o.extractors.ExtractSpecialty(query); specialty != "" {
		filter.Specialty = specialty
		filter.SpecialtyNegate = IsNegated(query, string(specialty))
	}
	if region := o.extractors.ExtractRegion(query); region != "" {
		filter.Region = region
	}
	if ft := o.extractors.ExtractFacilityType(query); ft != "" {
		filter.FacilityType = ft
	}
	return filter
}

func (o *Orchestrator) centroidForQuery(query string) (float64, float64) {
	city, region := o.extractPlaceForRouting(query)
	if geo := o.geocoder.Geocode(city, region); geo.Method != "" {
		return geo.Lat, geo.Lon
	}
	return ghanaCentroidLat, ghanaCentroidLon
}

// extractPlaceForRouting pulls a city and a region out of free text for
// the planner's geocoding step.
func (o *Orchestrator) extractPlaceForRouting(query string) (city, region string) {
	return o.extractors.ExtractCity(query), o.extractors.ExtractRegion(query)
}

// extractTwoCities makes a best-effort split of a distance query into two
// place names around a connecting word ("to", "and", "vs").
func extractTwoCities(query string) (string, string) {
	lower := strings.ToLower(query)
	for _, sep := range []string{" to ", " and ", " vs ", " versus "} {
		if idx := strings.Index(lower, sep); idx != -1 {
			return strings.TrimSpace(query[:idx]), strings.TrimSpace(query[idx+len(sep):])
		}
	}
	return query, ""
}

// redFlagQueryKeywords are the phrases that route a VALIDATION-intent query
// to the description-scanning detect_red_flags action instead of
// validate_facilities's procedure-constraint check.
var redFlagQueryKeywords = []string{"red flag", "suspicious", "vague claim", "misleading", "false advertis"}

func isRedFlagQuery(query string) bool {
	lower := strings.ToLower(query)
	for _, kw := range redFlagQueryKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// descriptionsByID collects the free-text description of every facility
// that has one, keyed by ID, for DetectRedFlags's pattern scan.
func descriptionsByID(facilities []*entities.Facility) map[string]string {
	descriptions := make(map[string]string, len(facilities))
	for _, f := range facilities {
		if f.Description != "" {
			descriptions[f.ID] = f.Description
		}
	}
	return descriptions
}

func timeNow() time.Time { return time.Now() }

func sinceMs(start time.Time) int64 { return time.Since(start).Milliseconds() }
