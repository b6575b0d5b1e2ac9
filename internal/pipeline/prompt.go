package pipeline

import (
	"fmt"
	"regexp"
	"strings"

	"notepipe/internal/discovery"
)

var timestampPattern = regexp.MustCompile(`^\s*\[\d{1,2}:\d{2}(?::\d{2})?\]\s*`)

// stripTimestamps removes leading [MM:SS] / [HH:MM:SS] markers so the model
// sees clean prose.
func stripTimestamps(content string) string {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = timestampPattern.ReplaceAllString(line, "")
	}
	return strings.Join(lines, "\n")
}

// buildPrompt assembles the analysis instruction for one transcript. The
// response contract is spelled out inline so the output parser has a stable
// shape to look for.
func buildPrompt(candidate discovery.Candidate) string {
	var sb strings.Builder
	sb.WriteString("You are analyzing a podcast transcript. Read it and respond with a single JSON object, nothing else.\n\n")
	fmt.Fprintf(&sb, "Channel: %s\nTitle: %s\nWord count: %d\n\n", candidate.Channel, candidate.Title, candidate.WordCount)
	sb.WriteString("Required JSON fields:\n")
	sb.WriteString("- semantic_summary: 100-200 word summary of the content\n")
	sb.WriteString("- key_topics: 3-5 short topic strings\n")
	sb.WriteString("- suggested_topic: single best archival category id\n")
	sb.WriteString("- content_type: one of technical_analysis, opinion_discussion, news, educational, interview\n")
	sb.WriteString("- content_density: one of high, medium, low\n")
	sb.WriteString("- temporal_relevance: one of evergreen, time_sensitive, news\n")
	sb.WriteString("- key_entities: optional list of named entities\n\n")
	sb.WriteString("Transcript:\n\n")
	sb.WriteString(stripTimestamps(candidate.Body))
	return sb.String()
}
