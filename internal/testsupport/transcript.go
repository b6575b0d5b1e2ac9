package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Transcript describes a test transcript file. Zero-value fields fall back
// to plausible defaults so most tests only set what they assert on.
type Transcript struct {
	Channel     string
	VideoID     string
	Title       string
	PublishedAt string
	WordCount   int
	Status      string
	SourceID    string
	Body        string
	// Extra appends raw frontmatter lines verbatim.
	Extra []string
}

// WriteTranscript renders the transcript as a Markdown file with YAML
// frontmatter and writes it to path.
func WriteTranscript(t testing.TB, path string, tr Transcript) string {
	t.Helper()

	if tr.Channel == "" {
		tr.Channel = "tech_talks"
	}
	if tr.VideoID == "" {
		tr.VideoID = "dQw4w9WgXcQ"
	}
	if tr.Title == "" {
		tr.Title = "An Ordinary Episode"
	}
	if tr.PublishedAt == "" {
		tr.PublishedAt = "2026-02-11"
	}
	if tr.Body == "" {
		tr.Body = "Welcome back to the show. Today we dig into protocol design.\n"
	}
	if tr.WordCount == 0 {
		tr.WordCount = len(strings.Fields(tr.Body))
	}

	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "channel: %s\n", tr.Channel)
	fmt.Fprintf(&sb, "video_id: %s\n", tr.VideoID)
	fmt.Fprintf(&sb, "title: %s\n", tr.Title)
	fmt.Fprintf(&sb, "published_at: %q\n", tr.PublishedAt)
	fmt.Fprintf(&sb, "word_count: %d\n", tr.WordCount)
	if tr.Status != "" {
		fmt.Fprintf(&sb, "status: %s\n", tr.Status)
	}
	if tr.SourceID != "" {
		fmt.Fprintf(&sb, "source_id: %s\n", tr.SourceID)
	}
	for _, line := range tr.Extra {
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	sb.WriteString("---\n\n")
	sb.WriteString(tr.Body)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		t.Fatalf("write transcript %s: %v", path, err)
	}
	return path
}
