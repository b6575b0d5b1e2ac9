package discovery

import (
	"fmt"
	"io/fs"
	"iter"
	"log/slog"
	"os"
	"path/filepath"

	"notepipe/internal/logging"
	"notepipe/internal/services"
)

// DefaultPattern matches transcript Markdown files.
const DefaultPattern = "*.md"

// RootNotFoundError reports a scan root that is missing or not a directory.
type RootNotFoundError struct {
	Root string
}

func (e *RootNotFoundError) Error() string {
	return fmt.Sprintf("scan root %q does not exist or is not a directory", e.Root)
}

func (e *RootNotFoundError) Is(target error) bool {
	return target == services.ErrNotFound
}

// WalkStats counts entries the walker had to skip. Populated as the returned
// sequence is consumed.
type WalkStats struct {
	Unreadable int
}

// Walker produces lazy recursive file listings.
type Walker struct {
	logger *slog.Logger
}

// NewWalker constructs a Walker. A nil logger disables logging.
func NewWalker(logger *slog.Logger) *Walker {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Walker{logger: logger}
}

// Walk returns a lazy sequence of files under root whose base name matches
// pattern. The root is validated up front; everything else happens as the
// sequence is consumed. Unreadable entries are recorded in stats and skipped.
func (w *Walker) Walk(root, pattern string) (iter.Seq[string], *WalkStats, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	if _, err := filepath.Match(pattern, "probe.md"); err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "discovering", "compile pattern", "Invalid file name pattern", err)
	}

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, nil, &RootNotFoundError{Root: root}
	}

	stats := &WalkStats{}
	seq := func(yield func(string) bool) {
		_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				stats.Unreadable++
				w.logger.Warn("skipping unreadable entry", logging.String("path", path), logging.Error(walkErr))
				return nil
			}
			if entry.IsDir() {
				return nil
			}
			ok, matchErr := filepath.Match(pattern, entry.Name())
			if matchErr != nil || !ok {
				return nil
			}
			if !yield(path) {
				return fs.SkipAll
			}
			return nil
		})
	}
	return seq, stats, nil
}
