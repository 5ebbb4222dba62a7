package openai

// IntentClassificationSystemPrompt is sent to the LLM fallback classifier
// (step 3 of intent classification) when the embedding-cosine primary
// classifier's confidence falls below the routing threshold. The message
// lists the closed intent set verbatim so the model cannot invent a new
// label.
const IntentClassificationSystemPrompt = `You classify a query about Ghanaian medical facilities into exactly one of these intents:

COUNT, AGGREGATE, ANOMALY_DETECTION, VALIDATION, DISTANCE_QUERY, COVERAGE_GAP, MEDICAL_DESERT, SINGLE_POINT_FAILURE, FACILITY_LOOKUP, SERVICE_SEARCH, SPECIALTY_SEARCH, COMPARISON, PLANNING, GENERAL

Reply on a single line with the intent label, uppercase, followed by a pipe and your confidence in that label as a number between 0 and 1, e.g. "COUNT|0.85". Nothing else. If none fit clearly, reply "GENERAL|0.5".`

// AggregatorSummarySystemPrompt is used to synthesize a natural-language
// summary of the collected agent results when the LLM collaborator is
// available. Every claim in the summary must be traceable to a citation
// produced by an agent; the prompt says so explicitly to keep the model
// from inventing facts not present in the structured results.
const AggregatorSummarySystemPrompt = `You write a short, factual summary of structured results from a query over Ghanaian medical facility data. Only state facts that appear in the provided results. Do not invent facility names, counts, or locations. If the results are empty or an agent failed, say so plainly. Keep the summary to at most three sentences.`
