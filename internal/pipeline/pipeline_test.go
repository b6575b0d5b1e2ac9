package pipeline

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"notepipe/internal/config"
	"notepipe/internal/ledger"
	"notepipe/internal/services"
	"notepipe/internal/services/gemini"
	"notepipe/internal/services/notebook"
	"notepipe/internal/state"
	"notepipe/internal/testsupport"
)

type fakeAnalyzer struct {
	responses map[string]string
	err       error
	calls     int
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	for marker, response := range f.responses {
		if strings.Contains(prompt, marker) {
			return response, nil
		}
	}
	return sampleJSON, nil
}

func (f *fakeAnalyzer) Health(ctx context.Context) error { return nil }

type fakeUploader struct {
	createErr     error
	created       []string
	topicsBySrc   map[string][]string
	linked        []string
	embedded      []string
	ensuredNames  []string
	nextSourceNum int
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{topicsBySrc: make(map[string][]string)}
}

func (f *fakeUploader) Health(ctx context.Context) error { return nil }

func (f *fakeUploader) EnsureNotebook(ctx context.Context, name string) (string, error) {
	f.ensuredNames = append(f.ensuredNames, name)
	return "notebook:test", nil
}

func (f *fakeUploader) CreateSource(ctx context.Context, req notebook.SourceRequest) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextSourceNum++
	id := "source:" + strings.Repeat("x", f.nextSourceNum)
	f.created = append(f.created, req.Title)
	return id, nil
}

func (f *fakeUploader) UpdateSourceTopics(ctx context.Context, sourceID string, topics []string) error {
	f.topicsBySrc[sourceID] = topics
	return nil
}

func (f *fakeUploader) LinkSource(ctx context.Context, notebookID, sourceID string) error {
	f.linked = append(f.linked, notebookID+"/"+sourceID)
	return nil
}

func (f *fakeUploader) TriggerEmbedding(ctx context.Context, sourceID string) error {
	f.embedded = append(f.embedded, sourceID)
	return nil
}

func newTestPipeline(t *testing.T, cfg *config.Config, analyzer Analyzer, uploader Uploader) *Pipeline {
	t.Helper()
	opts := []Option{WithSleeper(func(time.Duration) {})}
	if analyzer != nil {
		opts = append(opts, WithAnalyzer(analyzer))
	}
	if uploader != nil {
		opts = append(opts, WithUploader(uploader))
	}
	return New(cfg, nil, opts...)
}

func TestAnalyzeMovesFilesToPending(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "a.md"), testsupport.Transcript{
		Channel: "bankless", VideoID: "vid1", Title: "Agents", PublishedAt: "2026-02-11", WordCount: 1200,
	})

	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, newFakeUploader())
	stats, err := p.Analyze(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Analyzed != 1 || stats.Failed != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	pendingDir := filepath.Join(cfg.StageDir(state.StagePending), "bankless", "2026-02")
	entries, err := os.ReadDir(pendingDir)
	if err != nil || len(entries) != 1 {
		t.Fatalf("pending dir entries = %v, err = %v", entries, err)
	}
	moved := filepath.Join(pendingDir, entries[0].Name())
	header, _, err := ledger.Read(moved)
	if err != nil {
		t.Fatal(err)
	}
	if status, _ := header.Status(); status != ledger.StatusPending {
		t.Fatalf("status = %q", status)
	}
	if header.GetString(keySemanticSummary) == "" {
		t.Fatal("analysis fields missing from header")
	}
}

func TestAnalyzeMarksQuotaFailureWithHint(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "a.md"), testsupport.Transcript{WordCount: 1200})

	analyzer := &fakeAnalyzer{err: &gemini.RateLimitError{RetryAfter: 12 * time.Second}}
	p := newTestPipeline(t, cfg, analyzer, newFakeUploader())

	stats, err := p.Analyze(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Failed != 1 || stats.Analyzed != 0 {
		t.Fatalf("stats = %+v", stats)
	}

	header, _, err := ledger.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if status, _ := header.Status(); status != ledger.StatusFailed {
		t.Fatalf("status = %q", status)
	}
	if header.GetString(ledger.KeyErrorCode) != "RATE_LIMIT" {
		t.Fatalf("error_code = %q", header.GetString(ledger.KeyErrorCode))
	}
	if header.GetString(ledger.KeyRetryAfter) != "12s" {
		t.Fatalf("retry_after = %q", header.GetString(ledger.KeyRetryAfter))
	}
}

func TestAnalyzeOneBadItemDoesNotAbortBatch(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "bad.md"), testsupport.Transcript{
		Title: "Broken One", Body: "trigger-parse-failure words words words\n", WordCount: 1200,
	})
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "good.md"), testsupport.Transcript{
		Title: "Good One", WordCount: 1200,
	})

	analyzer := &fakeAnalyzer{responses: map[string]string{"trigger-parse-failure": "no json in this reply"}}
	p := newTestPipeline(t, cfg, analyzer, newFakeUploader())

	stats, err := p.Analyze(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Analyzed != 1 || stats.Failed != 1 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestAnalyzeUnknownErrorPropagates(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "a.md"), testsupport.Transcript{WordCount: 1200})

	analyzer := &fakeAnalyzer{err: errors.New("nil map write")}
	p := newTestPipeline(t, cfg, analyzer, newFakeUploader())

	if _, err := p.Analyze(context.Background(), false); err == nil {
		t.Fatal("unknown errors must abort the run")
	}
}

func TestAnalyzePacingBetweenItems(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithItemDelay(2))
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "a.md"), testsupport.Transcript{Title: "A", WordCount: 1200})
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "b.md"), testsupport.Transcript{Title: "B", WordCount: 1200})

	var slept []time.Duration
	p := New(cfg, nil,
		WithAnalyzer(&fakeAnalyzer{}),
		WithUploader(newFakeUploader()),
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }))

	if _, err := p.Analyze(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if len(slept) != 1 || slept[0] != 2*time.Second {
		t.Fatalf("slept = %v, want one inter-item delay", slept)
	}
}

func writeApproved(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	path := testsupport.WriteTranscript(t,
		filepath.Join(cfg.StageDir(state.StagePending), "bankless", "2026-02", name),
		testsupport.Transcript{
			Channel: "bankless", PublishedAt: "2026-02-11", Status: "approved",
			Extra: []string{"suggested_topic: crypto_tech", `key_topics: ["ERC-8004", "AI Agents"]`},
		})
	return path
}

func TestUploadApprovedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writeApproved(t, cfg, "item.md")

	uploader := newFakeUploader()
	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, uploader)

	stats, err := p.Upload(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Uploaded != 1 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(uploader.created) != 1 || !strings.HasPrefix(uploader.created[0], "bankless | ") {
		t.Fatalf("created = %v", uploader.created)
	}
	topics := uploader.topicsBySrc["source:x"]
	if len(topics) != 3 || topics[0] != "crypto_tech" {
		t.Fatalf("topics = %v", topics)
	}
	if len(uploader.linked) != 1 {
		t.Fatalf("linked = %v", uploader.linked)
	}

	approvedDir := filepath.Join(cfg.StageDir(state.StageApproved), "bankless", "2026-02")
	if entries, err := os.ReadDir(approvedDir); err != nil || len(entries) != 1 {
		t.Fatalf("approved dir = %v, err = %v", entries, err)
	}
}

func TestUploadReplaySkipsAPI(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteTranscript(t,
		filepath.Join(cfg.StageDir(state.StagePending), "bankless", "2026-02", "done.md"),
		testsupport.Transcript{Channel: "bankless", PublishedAt: "2026-02-11", Status: "uploaded", SourceID: "source:old"})

	uploader := newFakeUploader()
	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, uploader)

	stats, err := p.Upload(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Restored != 1 || stats.Uploaded != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(uploader.created) != 0 || len(uploader.ensuredNames) != 0 {
		t.Fatal("already-uploaded files must never reach the API")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("relocation should have been re-issued")
	}
	restored := filepath.Join(cfg.StageDir(state.StageApproved), "bankless", "2026-02", "done.md")
	if _, err := os.Stat(restored); err != nil {
		t.Fatalf("restored copy missing: %v", err)
	}
}

func TestUploadSkipsUnreviewedAndFailed(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTranscript(t,
		filepath.Join(cfg.StageDir(state.StagePending), "c", "2026-02", "pending.md"),
		testsupport.Transcript{Status: "pending"})
	testsupport.WriteTranscript(t,
		filepath.Join(cfg.StageDir(state.StagePending), "c", "2026-02", "failed.md"),
		testsupport.Transcript{Status: "failed"})

	uploader := newFakeUploader()
	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, uploader)

	stats, err := p.Upload(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.SkippedPending != 1 || stats.SkippedFailed != 1 || stats.Uploaded != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(uploader.created) != 0 {
		t.Fatal("no API calls expected")
	}
}

func TestUploadDryRun(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := writeApproved(t, cfg, "item.md")

	uploader := newFakeUploader()
	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, uploader)

	stats, err := p.Upload(context.Background(), true)
	if err != nil {
		t.Fatal(err)
	}
	if stats.WouldUpload != 1 || stats.Uploaded != 0 {
		t.Fatalf("stats = %+v", stats)
	}
	if len(uploader.created) != 0 {
		t.Fatal("dry run must not call the API")
	}
	header, _, err := ledger.Read(path)
	if err != nil {
		t.Fatal(err)
	}
	if status, _ := header.Status(); status != ledger.StatusApproved {
		t.Fatal("dry run must not mutate the ledger")
	}
}

type timeoutNetError struct{}

func (timeoutNetError) Error() string   { return "dial tcp: i/o timeout" }
func (timeoutNetError) Timeout() bool   { return true }
func (timeoutNetError) Temporary() bool { return true }

func TestUploadAPIFailureMarksFile(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{
			name:     "server error",
			err:      &notebook.StatusError{Code: 500, Body: "boom"},
			wantCode: "API_500",
		},
		{
			name:     "connection timeout",
			err:      &url.Error{Op: "Post", URL: "http://localhost:5055/api/sources/json", Err: timeoutNetError{}},
			wantCode: "API_TIMEOUT",
		},
		{
			name:     "connection refused",
			err:      &url.Error{Op: "Post", URL: "http://localhost:5055/api/sources/json", Err: errors.New("connect: connection refused")},
			wantCode: "API_TRANSIENT",
		},
		{
			name:     "undecodable response",
			err:      services.Wrap(services.ErrTransient, "uploading", "decode response", "Failed to decode API response", nil),
			wantCode: "API_TRANSIENT",
		},
		{
			name:     "rejected payload",
			err:      services.Wrap(services.ErrValidation, "uploading", "create source", "Source title must not be empty", nil),
			wantCode: "INVALID",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t)
			path := writeApproved(t, cfg, "item.md")

			uploader := newFakeUploader()
			uploader.createErr = tt.err
			p := newTestPipeline(t, cfg, &fakeAnalyzer{}, uploader)

			stats, err := p.Upload(context.Background(), false)
			if err != nil {
				t.Fatal(err)
			}
			if stats.Failed != 1 {
				t.Fatalf("stats = %+v", stats)
			}
			header, _, err := ledger.Read(path)
			if err != nil {
				t.Fatal(err)
			}
			if status, _ := header.Status(); status != ledger.StatusFailed {
				t.Fatalf("status = %q", status)
			}
			if got := header.GetString(ledger.KeyErrorCode); got != tt.wantCode {
				t.Fatalf("error_code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestUploadEmptyPendingDir(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, newFakeUploader())

	stats, err := p.Upload(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Scanned != 0 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestApproveStampsPendingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	pending := testsupport.WriteTranscript(t,
		filepath.Join(cfg.StageDir(state.StagePending), "c", "2026-02", "a.md"),
		testsupport.Transcript{Status: "pending"})
	alreadyDone := testsupport.WriteTranscript(t,
		filepath.Join(cfg.StageDir(state.StagePending), "c", "2026-02", "b.md"),
		testsupport.Transcript{Status: "approved"})

	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, newFakeUploader())
	approved, err := p.Approve(context.Background(), []string{pending, alreadyDone})
	if err != nil {
		t.Fatal(err)
	}
	if approved != 1 {
		t.Fatalf("approved = %d", approved)
	}

	header, _, err := ledger.Read(pending)
	if err != nil {
		t.Fatal(err)
	}
	if status, _ := header.Status(); status != ledger.StatusApproved {
		t.Fatalf("status = %q", status)
	}
}

func TestApproveRejectsUnanalyzedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	path := testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "raw.md"), testsupport.Transcript{})

	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, newFakeUploader())
	if _, err := p.Approve(context.Background(), []string{path}); err == nil {
		t.Fatal("expected error for a file that was never analyzed")
	}
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "a.md"), testsupport.Transcript{
		Channel: "bankless", VideoID: "vid1", Title: "Agents", PublishedAt: "2026-02-11", WordCount: 1200,
	})

	uploader := newFakeUploader()
	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, uploader)

	analyzeStats, uploadStats, err := p.Run(context.Background(), false)
	if err != nil {
		t.Fatal(err)
	}
	if analyzeStats.Analyzed != 1 {
		t.Fatalf("analyze stats = %+v", analyzeStats)
	}
	// Freshly analyzed files await review; the same run must not upload them.
	if uploadStats.SkippedPending != 1 || uploadStats.Uploaded != 0 {
		t.Fatalf("upload stats = %+v", uploadStats)
	}
	if len(uploader.created) != 0 {
		t.Fatal("unreviewed files must not be uploaded")
	}
}

func TestStatusReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "new.md"), testsupport.Transcript{})
	testsupport.WriteTranscript(t, filepath.Join(cfg.Paths.TranscriptsDir, "failed.md"), testsupport.Transcript{Status: "failed"})
	testsupport.WriteTranscript(t,
		filepath.Join(cfg.StageDir(state.StagePending), "c", "2026-02", "pending.md"),
		testsupport.Transcript{Status: "pending"})
	testsupport.WriteTranscript(t,
		filepath.Join(cfg.StageDir(state.StageApproved), "c", "2026-02", "done.md"),
		testsupport.Transcript{Status: "uploaded", SourceID: "source:x"})

	p := newTestPipeline(t, cfg, &fakeAnalyzer{}, newFakeUploader())
	report, err := p.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Transcripts.New != 1 || report.Transcripts.Failed != 1 {
		t.Fatalf("transcripts = %+v", report.Transcripts)
	}
	if report.PendingDir.Pending != 1 {
		t.Fatalf("pending dir = %+v", report.PendingDir)
	}
	if report.ApprovedDir.Uploaded != 1 {
		t.Fatalf("approved dir = %+v", report.ApprovedDir)
	}
}
