package pipeline

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"notepipe/internal/ledger"
)

// Header keys written by the analysis stage.
const (
	keySemanticSummary   = "semantic_summary"
	keyKeyTopics         = "key_topics"
	keySuggestedTopic    = "suggested_topic"
	keyContentType       = "content_type"
	keyContentDensity    = "content_density"
	keyTemporalRelevance = "temporal_relevance"
	keyKeyEntities       = "key_entities"
	keyAnalyzedBy        = "analyzed_by"
	keyAnalyzedAt        = "analyzed_at"
)

const analyzedBy = "gemini_cli"

// Analysis is the structured result the model returns for one transcript.
type Analysis struct {
	SemanticSummary   string   `json:"semantic_summary"`
	KeyTopics         []string `json:"key_topics"`
	SuggestedTopic    string   `json:"suggested_topic"`
	ContentType       string   `json:"content_type"`
	ContentDensity    string   `json:"content_density"`
	TemporalRelevance string   `json:"temporal_relevance"`
	KeyEntities       []string `json:"key_entities,omitempty"`
}

// ParseError reports model output that carried no usable JSON object.
type ParseError struct {
	Snippet string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("no parsable analysis in model output: %s", e.Snippet)
}

var (
	jsonFencePattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	bareFencePattern = regexp.MustCompile("(?s)```\\s*(\\{.*?\\})\\s*```")
)

// ParseAnalysis extracts the analysis JSON from raw model output. Models wrap
// the payload any number of ways: a ```json fence, a bare fence, leading
// commentary before the object, or nothing at all. Each strategy is tried in
// turn, preferring the last fenced block when several appear.
func ParseAnalysis(output string) (*Analysis, error) {
	for _, candidate := range jsonCandidates(output) {
		var analysis Analysis
		if err := json.Unmarshal([]byte(candidate), &analysis); err == nil && analysis.SemanticSummary != "" {
			return &analysis, nil
		}
	}
	return nil, &ParseError{Snippet: snippet(output)}
}

func jsonCandidates(output string) []string {
	var candidates []string
	if matches := jsonFencePattern.FindAllStringSubmatch(output, -1); len(matches) > 0 {
		candidates = append(candidates, matches[len(matches)-1][1])
	}
	if matches := bareFencePattern.FindAllStringSubmatch(output, -1); len(matches) > 0 {
		candidates = append(candidates, matches[len(matches)-1][1])
	}
	if block, ok := lastBraceBlock(output); ok {
		candidates = append(candidates, block)
	}
	candidates = append(candidates, strings.TrimSpace(output))
	return candidates
}

// lastBraceBlock scans backwards for the last balanced {...} region.
func lastBraceBlock(text string) (string, bool) {
	depth := 0
	end := -1
	for i := len(text) - 1; i >= 0; i-- {
		switch text[i] {
		case '}':
			if depth == 0 {
				end = i + 1
			}
			depth++
		case '{':
			depth--
			if depth == 0 && end > 0 {
				return text[i:end], true
			}
		}
	}
	return "", false
}

func snippet(output string) string {
	trimmed := strings.TrimSpace(output)
	if len(trimmed) > 200 {
		return trimmed[:200] + "..."
	}
	return trimmed
}

// Fields renders the analysis as header updates.
func (a *Analysis) Fields(analyzedAt time.Time) []ledger.Field {
	fields := []ledger.Field{
		ledger.F(keySemanticSummary, a.SemanticSummary),
		ledger.F(keyKeyTopics, a.KeyTopics),
		ledger.F(keySuggestedTopic, a.SuggestedTopic),
		ledger.F(keyContentType, a.ContentType),
		ledger.F(keyContentDensity, a.ContentDensity),
		ledger.F(keyTemporalRelevance, a.TemporalRelevance),
		ledger.F(keyAnalyzedBy, analyzedBy),
		ledger.F(keyAnalyzedAt, analyzedAt.UTC().Format(time.RFC3339)),
	}
	if len(a.KeyEntities) > 0 {
		fields = append(fields, ledger.F(keyKeyEntities, a.KeyEntities))
	}
	return fields
}

// Topics returns the topic list for the upload stage: the suggested topic
// first, then the key topics with duplicates dropped.
func Topics(header *ledger.Header) []string {
	var topics []string
	if suggested := header.GetString(keySuggestedTopic); suggested != "" {
		topics = append(topics, suggested)
	}
	for _, topic := range header.GetStringList(keyKeyTopics) {
		if !slices.Contains(topics, topic) {
			topics = append(topics, topic)
		}
	}
	return topics
}
