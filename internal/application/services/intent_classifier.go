package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/careatlas/queryengine/internal/data"
	"github.com/careatlas/queryengine/internal/domain/entities"
	"github.com/careatlas/queryengine/internal/domain/providers"
	"github.com/careatlas/queryengine/internal/infrastructure/clients/openai"
)

// llmClassificationTTLSeconds bounds how long a cached LLM fallback
// classification is trusted before the model is asked again.
const llmClassificationTTLSeconds = 3600

type cachedLLMClassification struct {
	Intent     entities.Intent `json:"intent"`
	Confidence float64         `json:"confidence"`
}

// buildRegexPatterns compiles the intent fallback pattern catalog once at
// classifier construction time.
func buildRegexPatterns() map[entities.Intent][]*regexp.Regexp {
	compiled := make(map[entities.Intent][]*regexp.Regexp)
	for label, patterns := range data.IntentFallbackPatterns {
		intent := entities.Intent(label)
		for _, p := range patterns {
			if re, err := regexp.Compile("(?i)" + p); err == nil {
				compiled[intent] = append(compiled[intent], re)
			}
		}
	}
	return compiled
}

// llmFallbackThreshold is the embedding classifier confidence below which
// the LLM collaborator is consulted.
const llmFallbackThreshold = 0.45

// multiIntentThreshold is the similarity a non-winning intent must clear
// to be folded into the plan alongside the winner.
const multiIntentThreshold = 0.40

// minConfidenceFloor bounds the classifier's reported confidence from
// below; GENERAL is always a valid catch-all so the classifier never
// truly fails.
const minConfidenceFloor = 0.10

// IntentClassifier maps free-form queries to a Plan using an
// embedding-similarity primary classifier with LLM and regex fallbacks.
type IntentClassifier struct {
	embedder      providers.Embedder
	llm           providers.LLM
	cache         providers.CacheProvider
	exemplarVecs  map[entities.Intent][][]float32
	regexPatterns map[entities.Intent][]*regexp.Regexp
}

// NewIntentClassifier precomputes exemplar embeddings for every intent.
// cache may be nil, in which case the LLM fallback classification is never
// cached and every low-confidence query re-consults the model.
func NewIntentClassifier(ctx context.Context, embedder providers.Embedder, llm providers.LLM, cache providers.CacheProvider) (*IntentClassifier, error) {
	c := &IntentClassifier{
		embedder:      embedder,
		llm:           llm,
		cache:         cache,
		exemplarVecs:  make(map[entities.Intent][][]float32),
		regexPatterns: buildRegexPatterns(),
	}

	for intent, exemplars := range intentExemplars {
		vecs, err := embedder.EmbedBatch(ctx, exemplars)
		if err != nil {
			return nil, err
		}
		c.exemplarVecs[intent] = vecs
	}
	return c, nil
}

type intentScore struct {
	intent entities.Intent
	score  float64
}

// Classify returns the plan for query: winning intent, confidence, agent
// list and flow, after applying LLM and multi-intent expansion steps.
func (c *IntentClassifier) Classify(ctx context.Context, query string) entities.Plan {
	scores, ok := c.embeddingScores(ctx, query)
	if !ok || len(scores) == 0 {
		return c.regexFallback(query)
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	winner := scores[0].intent
	gap := scores[0].score
	if len(scores) > 1 {
		gap = scores[0].score - scores[1].score
	}
	confidence := sigmoid(20 * (gap - 0.05))

	if confidence < llmFallbackThreshold && c.llm != nil {
		if fallbackIntent, fallbackConfidence, ok := c.llmClassify(ctx, query); ok && fallbackConfidence >= 0.5 {
			winner = fallbackIntent
			confidence = fallbackConfidence
		}
	}

	agents, flow := c.expandMultiIntent(winner, scores)
	if confidence < minConfidenceFloor {
		confidence = minConfidenceFloor
	}

	return entities.Plan{
		Intent:     winner,
		Confidence: confidence,
		Agents:     agents,
		Flow:       flow,
	}
}

func (c *IntentClassifier) embeddingScores(ctx context.Context, query string) ([]intentScore, bool) {
	if c.embedder == nil || len(c.exemplarVecs) == 0 {
		return nil, false
	}

	queryVec, err := c.embedder.Embed(ctx, query)
	if err != nil {
		return nil, false
	}

	scores := make([]intentScore, 0, len(c.exemplarVecs))
	for intent, exemplarVecs := range c.exemplarVecs {
		sims := make([]float64, 0, len(exemplarVecs))
		for _, ev := range exemplarVecs {
			sims = append(sims, cosine64(queryVec, ev))
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(sims)))
		top := sims
		if len(top) > 2 {
			top = top[:2]
		}
		mean := 0.0
		for _, s := range top {
			mean += s
		}
		if len(top) > 0 {
			mean /= float64(len(top))
		}
		scores = append(scores, intentScore{intent: intent, score: mean})
	}
	return scores, true
}

// expandMultiIntent folds in non-winning intents whose similarity clears
// multiIntentThreshold and whose routed agent set is disjoint from the
// winner's, preserving first-occurrence agent order.
func (c *IntentClassifier) expandMultiIntent(winner entities.Intent, scores []intentScore) ([]entities.AgentName, entities.Flow) {
	route := entities.RoutingTable[winner]
	agents := append([]entities.AgentName{}, route.Agents...)
	flow := route.Flow

	seen := map[entities.AgentName]bool{}
	for _, a := range agents {
		seen[a] = true
	}

	expanded := false
	for _, s := range scores {
		if s.intent == winner || s.score < multiIntentThreshold {
			continue
		}
		candidateRoute := entities.RoutingTable[s.intent]
		disjoint := true
		for _, a := range candidateRoute.Agents {
			if seen[a] {
				disjoint = false
				break
			}
		}
		if !disjoint {
			continue
		}
		for _, a := range candidateRoute.Agents {
			agents = append(agents, a)
			seen[a] = true
		}
		expanded = true
	}

	if expanded {
		flow = entities.FlowSequential
		if winner == entities.IntentComparison {
			flow = entities.FlowParallel
		}
	}
	return agents, flow
}

func (c *IntentClassifier) llmClassify(ctx context.Context, query string) (entities.Intent, float64, bool) {
	key := llmClassificationCacheKey(query)
	if c.cache != nil {
		if raw, err := c.cache.Get(ctx, key); err == nil {
			var cached cachedLLMClassification
			if json.Unmarshal(raw, &cached) == nil && cached.Intent.IsValid() {
				return cached.Intent, cached.Confidence, true
			}
		}
	}

	reply, err := c.llm.Chat(ctx, []providers.ChatMessage{
		{Role: "system", Content: openai.IntentClassificationSystemPrompt},
		{Role: "user", Content: query},
	}, 20, 0.0)
	if err != nil {
		return "", 0, false
	}

	label, confidence, ok := parseLLMIntentReply(reply)
	if !ok || !label.IsValid() {
		return "", 0, false
	}

	if c.cache != nil {
		if raw, marshalErr := json.Marshal(cachedLLMClassification{Intent: label, Confidence: confidence}); marshalErr == nil {
			_ = c.cache.Set(ctx, key, raw, llmClassificationTTLSeconds)
		}
	}
	return label, confidence, true
}

// llmClassificationCacheKey keys the LLM fallback cache on the trimmed,
// lowercased query text; unlike the vector index's cache key it needs no filter or vector
// dimension, since the LLM fallback is invoked with the query text alone.
func llmClassificationCacheKey(query string) string {
	return "intent:llm:" + fnv1a(strings.ToLower(strings.TrimSpace(query)))
}

// fnv1a produces a short, stable, non-cryptographic digest suitable for
// cache keys, mirroring the vector index cache's own hashString.
func fnv1a(s string) string {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= 1099511628211
	}
	return fmt.Sprintf("%016x", h)
}

// parseLLMIntentReply parses the "LABEL|confidence" reply the intent
// classification prompt asks for. A reply missing the confidence field, or
// with one that doesn't parse as a float, is treated as self-reporting no
// confidence at all rather than guessing one on the model's behalf.
func parseLLMIntentReply(reply string) (entities.Intent, float64, bool) {
	trimmed := strings.TrimSpace(reply)
	parts := strings.SplitN(trimmed, "|", 2)
	if len(parts) != 2 {
		return "", 0, false
	}

	label := entities.Intent(strings.ToUpper(strings.TrimSpace(parts[0])))
	confidence, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return "", 0, false
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return label, confidence, true
}

// regexFallback is used when the embedding model is unavailable or scores
// no intent at all: each intent's hand-written pattern set is matched
// against query, ties broken by AllIntents order; a query no pattern
// matches falls back to GENERAL.
func (c *IntentClassifier) regexFallback(query string) entities.Plan {
	lower := strings.ToLower(query)
	bestIntent := entities.IntentGeneral
	bestCount := 0

	for _, intent := range entities.AllIntents {
		count := 0
		for _, pattern := range c.regexPatterns[intent] {
			if pattern.MatchString(lower) {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestIntent = intent
		}
	}

	route := entities.RoutingTable[bestIntent]
	confidence := minConfidenceFloor
	if bestCount > 0 {
		confidence = math.Min(0.3+0.1*float64(bestCount), 0.6)
	}

	return entities.Plan{
		Intent:     bestIntent,
		Confidence: confidence,
		Agents:     route.Agents,
		Flow:       route.Flow,
	}
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func cosine64(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
