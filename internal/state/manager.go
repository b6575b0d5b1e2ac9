package state

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"notepipe/internal/fileutil"
	"notepipe/internal/ledger"
	"notepipe/internal/logging"
)

// Stage directory names under the intermediate root.
const (
	StagePending  = "pending"
	StageApproved = "approved"
)

const fallbackChannel = "unknown"

// FileState is a read-only projection of a file's pipeline position.
type FileState struct {
	Status   ledger.Status
	SourceID string
	Error    *ledger.ErrorInfo
	CanRetry bool
}

// Option customizes the manager.
type Option func(*Manager)

// WithClock overrides the time source (useful for tests).
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager performs status transitions and stage relocation.
type Manager struct {
	intermediateDir string
	logger          *slog.Logger
	now             func() time.Time
}

// NewManager constructs a Manager rooted at the intermediate directory.
// A nil logger disables logging.
func NewManager(intermediateDir string, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		intermediateDir: intermediateDir,
		logger:          logger,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// MarkPending stamps the file pending and relocates it into
// pending/{channel}/{YYYY-MM}/ under the intermediate root, renaming it to
// the analyzed-file convention. Returns the file's new path.
func (m *Manager) MarkPending(path string) (string, error) {
	if err := ledger.Write(path, ledger.F(ledger.KeyStatus, string(ledger.StatusPending))); err != nil {
		return "", err
	}

	header, _, err := ledger.Read(path)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(m.stageDir(StagePending, header), m.analyzedName(header, path))
	if dest == path {
		return path, nil
	}
	if err := fileutil.MoveFile(path, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// MarkApproved stamps the file approved in place. Reviewers move files
// between stage directories by hand; the header is what upload trusts.
func (m *Manager) MarkApproved(path string) error {
	return ledger.Write(path, ledger.F(ledger.KeyStatus, string(ledger.StatusApproved)))
}

// MarkUploaded records the upload before anything else: the header write
// lands first, so a crash mid-transition leaves a file that re-runs as
// already uploaded instead of double-posting. Relocation into
// approved/{channel}/{YYYY-MM}/ happens after and is best-effort; a move
// failure is logged and the original path returned.
func (m *Manager) MarkUploaded(path, sourceID string) (string, error) {
	if strings.TrimSpace(sourceID) == "" {
		return "", fmt.Errorf("mark uploaded %s: source id required", path)
	}
	err := ledger.Write(path,
		ledger.F(ledger.KeyStatus, string(ledger.StatusUploaded)),
		ledger.F(ledger.KeySourceID, sourceID),
	)
	if err != nil {
		return "", err
	}

	header, _, err := ledger.Read(path)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(m.stageDir(StageApproved, header), filepath.Base(path))
	if dest == path {
		return path, nil
	}
	if moveErr := fileutil.MoveFile(path, dest); moveErr != nil {
		m.logger.Warn("uploaded file left in place",
			logging.String(logging.FieldItemPath, path),
			logging.Error(moveErr),
		)
		return path, nil
	}
	return dest, nil
}

// MarkFailed records a terminal failure without relocating the file. Extra
// fields (such as a retry-after hint) are written in the same atomic update.
func (m *Manager) MarkFailed(path, message, code string, extra ...ledger.Field) error {
	updates := append([]ledger.Field{
		ledger.F(ledger.KeyStatus, string(ledger.StatusFailed)),
		ledger.F(ledger.KeyError, message),
		ledger.F(ledger.KeyErrorCode, code),
		ledger.F(ledger.KeyFailedAt, m.now().UTC().Format(time.RFC3339)),
	}, extra...)
	return ledger.Write(path, updates...)
}

// GetState projects the file's header into a FileState. Failed files report
// CanRetry=false; readmitting them takes an explicit force at discovery.
func (m *Manager) GetState(path string) (FileState, error) {
	header, _, err := ledger.Read(path)
	if err != nil {
		return FileState{}, err
	}
	status, _ := header.Status()
	return FileState{
		Status:   status,
		SourceID: header.SourceID(),
		Error:    header.Error(),
		CanRetry: status == ledger.StatusNone,
	}, nil
}

// stageDir returns {intermediate}/{stage}/{channel}/{YYYY-MM} for the file's
// grouping keys.
func (m *Manager) stageDir(stage string, header *ledger.Header) string {
	channel := strings.TrimSpace(header.GetString(ledger.KeyChannel))
	if channel == "" {
		channel = fallbackChannel
	}
	return filepath.Join(m.intermediateDir, stage, channel, m.publishedAt(header).Format("2006-01"))
}

// analyzedName builds {YYYYMMDD}_{videoID}_{slug}_analyzed.md, falling back
// to the current base name when the header lacks a video id.
func (m *Manager) analyzedName(header *ledger.Header, path string) string {
	videoID := strings.TrimSpace(header.GetString(ledger.KeyVideoID))
	if videoID == "" {
		return filepath.Base(path)
	}
	date := m.publishedAt(header).Format("20060102")
	slug := Slugify(header.GetString(ledger.KeyTitle))
	return fmt.Sprintf("%s_%s_%s_analyzed.md", date, videoID, slug)
}

func (m *Manager) publishedAt(header *ledger.Header) time.Time {
	raw := strings.TrimSpace(header.GetString(ledger.KeyPublishedAt))
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts
		}
	}
	return m.now().UTC()
}
