package data

import (
	_ "embed"
)

//go:embed red_flag_patterns.json
var redFlagPatternsJSON []byte

// RedFlagPatterns groups case-insensitive regular expressions the medical
// reasoner scans facility text against, by category. Sourced from the
// original reasoning agent's pattern catalog and loaded once at startup
// from the version-controlled red_flag_patterns.json.
var RedFlagPatterns = mustLoadPatterns(redFlagPatternsJSON)
