package data

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIntentFallbackPatterns_LoadsFromEmbeddedJSON(t *testing.T) {
	assert.NotEmpty(t, IntentFallbackPatterns)
	assert.Contains(t, IntentFallbackPatterns, "COUNT")
	assert.Contains(t, IntentFallbackPatterns["COUNT"], "how many")
}

func TestIntentFallbackPatterns_EveryPatternCompiles(t *testing.T) {
	for intent, patterns := range IntentFallbackPatterns {
		for _, p := range patterns {
			_, err := regexp.Compile("(?i)" + p)
			assert.NoError(t, err, "intent %s pattern %q should compile", intent, p)
		}
	}
}

func TestRedFlagPatterns_LoadsFromEmbeddedJSON(t *testing.T) {
	assert.NotEmpty(t, RedFlagPatterns)
	assert.Contains(t, RedFlagPatterns, "vague_claim")
}

func TestRedFlagPatterns_EveryPatternCompiles(t *testing.T) {
	for category, patterns := range RedFlagPatterns {
		for _, p := range patterns {
			_, err := regexp.Compile("(?i)" + p)
			assert.NoError(t, err, "category %s pattern %q should compile", category, p)
		}
	}
}
