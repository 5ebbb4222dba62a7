package data

import (
	_ "embed"
	"encoding/json"
)

//go:embed intent_regex_patterns.json
var intentFallbackPatternsJSON []byte

// IntentFallbackPatterns groups case-insensitive regular expressions the
// regex-fallback classifier matches against a lowercased query when the
// embedding model is unavailable. Keyed by the same intent labels defined
// in the entities package, loaded once at startup from the
// version-controlled intent_regex_patterns.json rather than inlined as a Go
// map literal, matching the teacher's own pattern of loading
// concept/spelling dictionaries from JSON on disk.
var IntentFallbackPatterns = mustLoadPatterns(intentFallbackPatternsJSON)

func mustLoadPatterns(raw []byte) map[string][]string {
	var patterns map[string][]string
	if err := json.Unmarshal(raw, &patterns); err != nil {
		panic("data: malformed pattern JSON: " + err.Error())
	}
	return patterns
}
