package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"notepipe/internal/config"
	"notepipe/internal/discovery"
	"notepipe/internal/ledger"
	"notepipe/internal/logging"
	"notepipe/internal/services"
	"notepipe/internal/services/gemini"
	"notepipe/internal/services/notebook"
	"notepipe/internal/state"
)

const lockFileName = "notepipe.lock"

// Analyzer is the LLM boundary the analysis stage talks to.
type Analyzer interface {
	Analyze(ctx context.Context, prompt string) (string, error)
	Health(ctx context.Context) error
}

// Uploader is the Open Notebook boundary the upload stage talks to.
type Uploader interface {
	Health(ctx context.Context) error
	EnsureNotebook(ctx context.Context, name string) (string, error)
	CreateSource(ctx context.Context, req notebook.SourceRequest) (string, error)
	UpdateSourceTopics(ctx context.Context, sourceID string, topics []string) error
	LinkSource(ctx context.Context, notebookID, sourceID string) error
	TriggerEmbedding(ctx context.Context, sourceID string) error
}

// AnalyzeStats summarizes one analysis batch.
type AnalyzeStats struct {
	Discovery discovery.Statistics
	Analyzed  int
	Failed    int
}

// UploadStats summarizes one upload batch.
type UploadStats struct {
	Scanned        int
	Uploaded       int
	Restored       int
	WouldUpload    int
	SkippedPending int
	SkippedFailed  int
	ParseFailed    int
	Failed         int
}

// Option customizes the pipeline.
type Option func(*Pipeline)

// WithAnalyzer overrides the LLM boundary (useful for tests).
func WithAnalyzer(analyzer Analyzer) Option {
	return func(p *Pipeline) {
		if analyzer != nil {
			p.analyzer = analyzer
		}
	}
}

// WithUploader overrides the Open Notebook boundary (useful for tests).
func WithUploader(uploader Uploader) Option {
	return func(p *Pipeline) {
		if uploader != nil {
			p.uploader = uploader
		}
	}
}

// WithSleeper overrides how pacing sleeps are performed (useful for tests).
func WithSleeper(sleep func(time.Duration)) Option {
	return func(p *Pipeline) {
		if sleep != nil {
			p.sleep = sleep
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// Pipeline orchestrates the discover, analyze, and upload stages as
// sequential batches. One failing item never aborts the rest of its batch;
// errors outside the failure taxonomy propagate and abort the run.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	discover *discovery.Service
	state    *state.Manager
	analyzer Analyzer
	uploader Uploader
	sleep    func(time.Duration)
	now      func() time.Time
}

// New wires a pipeline from configuration. A nil logger disables logging.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:      cfg,
		logger:   logger,
		discover: discovery.NewService(logging.NewComponentLogger(logger, "discovery")),
		state:    state.NewManager(cfg.Paths.IntermediateDir, logging.NewComponentLogger(logger, "state")),
		analyzer: gemini.NewClient(gemini.Config{
			Binary:     cfg.Gemini.Binary,
			WorkDir:    cfg.Paths.TempDir,
			Timeout:    time.Duration(cfg.Gemini.TimeoutSeconds) * time.Second,
			MaxRetries: cfg.Gemini.MaxRetries,
			RetryBase:  time.Duration(cfg.Gemini.RetryBaseSeconds) * time.Second,
			RetryMax:   time.Duration(cfg.Gemini.RetryMaxSeconds) * time.Second,
		}),
		uploader: notebook.NewClient(notebook.Config{
			BaseURL:        cfg.Notebook.BaseURL,
			Password:       cfg.Notebook.Password,
			MaxAttempts:    cfg.Notebook.MaxAttempts,
			RetryDelay:     time.Duration(cfg.Notebook.RetryDelay) * time.Second,
			RequestTimeout: time.Duration(cfg.Notebook.RequestTimeout) * time.Second,
		}),
		sleep: time.Sleep,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Discover scans the transcripts root and reports what would be admitted.
// Read-only; safe to run alongside another instance.
func (p *Pipeline) Discover(ctx context.Context, force bool) ([]discovery.Candidate, discovery.Statistics, error) {
	return p.discover.Discover(ctx, p.discoveryOptions(force))
}

// Analyze discovers eligible transcripts and runs each through the model,
// marking survivors pending and failures failed.
func (p *Pipeline) Analyze(ctx context.Context, force bool) (AnalyzeStats, error) {
	var stats AnalyzeStats
	err := p.withLock(ctx, func(ctx context.Context) error {
		var innerErr error
		stats, innerErr = p.analyzeBatch(ctx, force)
		return innerErr
	})
	return stats, err
}

// Upload pushes approved files to Open Notebook. dryRun reports what would
// be uploaded without touching the API or the files.
func (p *Pipeline) Upload(ctx context.Context, dryRun bool) (UploadStats, error) {
	var stats UploadStats
	err := p.withLock(ctx, func(ctx context.Context) error {
		var innerErr error
		stats, innerErr = p.uploadBatch(ctx, dryRun)
		return innerErr
	})
	return stats, err
}

// Approve stamps pending files approved so the next upload run takes them.
// Files already approved or uploaded are left alone. Returns the number of
// files whose status changed.
func (p *Pipeline) Approve(ctx context.Context, paths []string) (int, error) {
	approved := 0
	err := p.withLock(ctx, func(ctx context.Context) error {
		for _, path := range paths {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			st, err := p.state.GetState(path)
			if err != nil {
				return err
			}
			switch st.Status {
			case ledger.StatusPending:
				if err := p.state.MarkApproved(path); err != nil {
					return err
				}
				approved++
				p.logger.Info("transcript approved", logging.String(logging.FieldItemPath, path))
			case ledger.StatusApproved, ledger.StatusUploaded:
				// Re-approving is a no-op.
			default:
				return fmt.Errorf("approve %s: status is %q, expected pending", path, st.Status)
			}
		}
		return nil
	})
	return approved, err
}

// Run executes analysis then upload under a single lock.
func (p *Pipeline) Run(ctx context.Context, force bool) (AnalyzeStats, UploadStats, error) {
	var analyzeStats AnalyzeStats
	var uploadStats UploadStats
	err := p.withLock(ctx, func(ctx context.Context) error {
		var innerErr error
		analyzeStats, innerErr = p.analyzeBatch(ctx, force)
		if innerErr != nil {
			return innerErr
		}
		uploadStats, innerErr = p.uploadBatch(ctx, false)
		return innerErr
	})
	return analyzeStats, uploadStats, err
}

// Health checks both external boundaries.
func (p *Pipeline) Health(ctx context.Context) error {
	if err := p.AnalyzerHealth(ctx); err != nil {
		return err
	}
	return p.UploaderHealth(ctx)
}

// AnalyzerHealth reports whether the model CLI responds.
func (p *Pipeline) AnalyzerHealth(ctx context.Context) error {
	return p.analyzer.Health(ctx)
}

// UploaderHealth reports whether the Open Notebook API responds.
func (p *Pipeline) UploaderHealth(ctx context.Context) error {
	return p.uploader.Health(ctx)
}

func (p *Pipeline) discoveryOptions(force bool) discovery.Options {
	return discovery.Options{
		Root:             p.cfg.Paths.TranscriptsDir,
		Pattern:          p.cfg.Discovery.Pattern,
		MinWordCount:     p.cfg.Discovery.MinWordCount,
		ChannelWhitelist: p.cfg.Discovery.ChannelWhitelist,
		Force:            force,
	}
}

// withLock serializes pipeline mutations behind a file lock under the
// intermediate root and stamps the context with a run id for log
// correlation.
func (p *Pipeline) withLock(ctx context.Context, fn func(context.Context) error) error {
	if err := os.MkdirAll(p.cfg.Paths.IntermediateDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "pipeline", "prepare intermediate dir", "Failed to create intermediate directory", err)
	}
	lock := flock.New(filepath.Join(p.cfg.Paths.IntermediateDir, lockFileName))
	locked, err := lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrTransient, "pipeline", "acquire lock", "Failed to acquire the pipeline lock", err)
	}
	if !locked {
		return services.Wrap(services.ErrTransient, "pipeline", "acquire lock", "Another notepipe instance is running", nil)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	runID := uuid.NewString()
	p.logger.Info("pipeline run starting", logging.String(logging.FieldRunID, runID))
	return fn(services.WithRunID(ctx, runID))
}

func (p *Pipeline) analyzeBatch(ctx context.Context, force bool) (AnalyzeStats, error) {
	var stats AnalyzeStats
	ctx = services.WithStage(ctx, "analyzing")

	candidates, discoveryStats, err := p.discover.Discover(ctx, p.discoveryOptions(force))
	if err != nil {
		return stats, err
	}
	stats.Discovery = discoveryStats

	delay := time.Duration(p.cfg.Pipeline.ItemDelaySeconds) * time.Second
	for i, candidate := range candidates {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		itemCtx := services.WithItemPath(ctx, candidate.Path)
		logger := p.logger.With(logging.Args(logging.ContextFields(itemCtx)...)...)

		if err := p.analyzeOne(itemCtx, candidate); err != nil {
			code, extra, known := classifyFailure(err)
			if !known {
				return stats, err
			}
			if markErr := p.state.MarkFailed(candidate.Path, err.Error(), code, extra...); markErr != nil {
				return stats, markErr
			}
			stats.Failed++
			logger.Warn("analysis failed", logging.String("code", code), logging.Error(err))
		} else {
			stats.Analyzed++
		}

		if delay > 0 && i < len(candidates)-1 {
			p.sleep(delay)
		}
	}

	p.logger.Info("analysis batch finished",
		logging.Int("analyzed", stats.Analyzed),
		logging.Int("failed", stats.Failed),
		logging.Int("scanned", stats.Discovery.TotalScanned),
	)
	return stats, nil
}

func (p *Pipeline) analyzeOne(ctx context.Context, candidate discovery.Candidate) error {
	prompt := buildPrompt(candidate)
	output, err := p.analyzer.Analyze(ctx, prompt)
	if err != nil {
		return err
	}

	analysis, err := ParseAnalysis(output)
	if err != nil {
		return err
	}
	if p.cfg.Gemini.ConversationLogs {
		p.writeConversationLog(candidate.Path, prompt, output)
	}

	if err := ledger.Write(candidate.Path, analysis.Fields(p.now())...); err != nil {
		return err
	}
	newPath, err := p.state.MarkPending(candidate.Path)
	if err != nil {
		return err
	}
	p.logger.Info("transcript analyzed",
		logging.String(logging.FieldItemPath, newPath),
		logging.String("channel", candidate.Channel),
	)
	return nil
}

func (p *Pipeline) uploadBatch(ctx context.Context, dryRun bool) (UploadStats, error) {
	var stats UploadStats
	ctx = services.WithStage(ctx, "uploading")

	pendingRoot := p.cfg.StageDir(state.StagePending)
	walker := discovery.NewWalker(logging.NewComponentLogger(p.logger, "upload-scan"))
	seq, _, err := walker.Walk(pendingRoot, "*.md")
	if err != nil {
		// Nothing analyzed yet means nothing to upload.
		var rootErr *discovery.RootNotFoundError
		if errors.As(err, &rootErr) {
			return stats, nil
		}
		return stats, err
	}

	notebookID := ""
	for path := range seq {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Scanned++
		itemCtx := services.WithItemPath(ctx, path)
		logger := p.logger.With(logging.Args(logging.ContextFields(itemCtx)...)...)

		st, err := p.state.GetState(path)
		if err != nil {
			stats.ParseFailed++
			logger.Warn("skipping unreadable ledger", logging.Error(err))
			continue
		}

		switch st.Status {
		case ledger.StatusUploaded:
			// Header says done; only the relocation is missing. Re-issue it
			// without touching the API.
			if dryRun {
				continue
			}
			if _, err := p.state.MarkUploaded(path, st.SourceID); err != nil {
				return stats, err
			}
			stats.Restored++
		case ledger.StatusApproved:
			if dryRun {
				stats.WouldUpload++
				continue
			}
			if notebookID == "" {
				notebookID, err = p.uploader.EnsureNotebook(itemCtx, p.cfg.Notebook.DefaultNotebook)
				if err != nil {
					return stats, err
				}
			}
			if err := p.uploadOne(itemCtx, path, notebookID); err != nil {
				code, extra, known := classifyFailure(err)
				if !known {
					return stats, err
				}
				if markErr := p.state.MarkFailed(path, err.Error(), code, extra...); markErr != nil {
					return stats, markErr
				}
				stats.Failed++
				logger.Warn("upload failed", logging.String("code", code), logging.Error(err))
			} else {
				stats.Uploaded++
			}
		case ledger.StatusFailed:
			stats.SkippedFailed++
		default:
			stats.SkippedPending++
		}
	}

	p.logger.Info("upload batch finished",
		logging.Int("uploaded", stats.Uploaded),
		logging.Int("failed", stats.Failed),
		logging.Int("awaiting_review", stats.SkippedPending),
	)
	return stats, nil
}

func (p *Pipeline) uploadOne(ctx context.Context, path, notebookID string) error {
	header, _, err := ledger.Read(path)
	if err != nil {
		return err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	sourceID, err := p.uploader.CreateSource(ctx, notebook.SourceRequest{
		Type:    "text",
		Title:   sourceTitle(header),
		Content: string(content),
	})
	if err != nil {
		return err
	}
	if topics := Topics(header); len(topics) > 0 {
		if err := p.uploader.UpdateSourceTopics(ctx, sourceID, topics); err != nil {
			return err
		}
	}
	if err := p.uploader.LinkSource(ctx, notebookID, sourceID); err != nil {
		return err
	}
	if p.cfg.Notebook.EmbedOnCreate {
		if err := p.uploader.TriggerEmbedding(ctx, sourceID); err != nil {
			return err
		}
	}

	finalPath, err := p.state.MarkUploaded(path, sourceID)
	if err != nil {
		return err
	}
	p.logger.Info("transcript uploaded",
		logging.String(logging.FieldItemPath, finalPath),
		logging.String("source_id", sourceID),
	)
	return nil
}

// sourceTitle builds "{channel} | {title} | {published_at}".
func sourceTitle(header *ledger.Header) string {
	return fmt.Sprintf("%s | %s | %s",
		header.GetString(ledger.KeyChannel),
		header.GetString(ledger.KeyTitle),
		header.GetString(ledger.KeyPublishedAt),
	)
}

// writeConversationLog records the prompt and raw response next to the log
// directory for later review. Failures are logged, never fatal.
func (p *Pipeline) writeConversationLog(itemPath, prompt, response string) {
	dir := filepath.Join(p.cfg.Paths.LogDir, "conversations")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		p.logger.Warn("conversation log dir", logging.Error(err))
		return
	}
	name := fmt.Sprintf("%s_%s.md", p.now().UTC().Format("20060102T150405"), filepath.Base(itemPath))
	body := fmt.Sprintf("# Conversation\n\n## Prompt\n\n%s\n\n## Response\n\n%s\n", prompt, response)
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
		p.logger.Warn("conversation log write", logging.Error(err))
	}
}
