package entities

// Flow describes how the agents in a Plan are executed.
type Flow string

const (
	FlowSingle     Flow = "single"
	FlowSequential Flow = "sequential"
	FlowParallel   Flow = "parallel"
)

// AgentName is one of the five analyst roles the orchestrator can dispatch to.
type AgentName string

const (
	AgentAnalyst  AgentName = "analyst"
	AgentSearcher AgentName = "searcher"
	AgentValidator AgentName = "validator"
	AgentGeo      AgentName = "geo"
	AgentPlanner  AgentName = "planner"
)

// Plan is the ordered list of agents plus execution flow chosen for a query.
type Plan struct {
	Intent               Intent
	Confidence           float64
	Agents               []AgentName
	Flow                 Flow
	ExtractedParameters  map[string]string
}

// TraceStep records one step of plan execution: one per agent invocation,
// plus one for the router and one for the aggregator.
type TraceStep struct {
	Agent      string     `json:"agent"`
	Action     string     `json:"action"`
	DurationMs int64      `json:"duration_ms"`
	Summary    string     `json:"summary"`
	Citations  []Citation `json:"citations,omitempty"`
	Error      string     `json:"error,omitempty"`
	TimedOut   bool       `json:"timed_out,omitempty"`
}

// Response is the top-level structured, cited, map-ready answer returned
// for a single query.
type Response struct {
	Query           string                    `json:"query"`
	Intent          Intent                    `json:"intent"`
	Confidence      float64                   `json:"confidence"`
	AgentsUsed      []string                  `json:"agents_used"`
	AgentResults    map[string]AgentResult    `json:"agent_results"`
	MapFacilities   []MapFacility             `json:"map_facilities"`
	Summary         string                    `json:"summary"`
	Trace           []TraceStep               `json:"trace"`
	TotalDurationMs int64                     `json:"total_duration_ms"`
	Timestamp       string                    `json:"timestamp"`
	Partial         bool                      `json:"partial,omitempty"`
}

// MapFacility is the minimal projection of a Facility placed on the response map.
type MapFacility struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
