package discovery

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"notepipe/internal/ledger"
	"notepipe/internal/logging"
)

// Candidate is a transcript admitted for processing.
type Candidate struct {
	Path      string
	Channel   string
	Title     string
	WordCount int
	Status    ledger.Status
	Header    *ledger.Header
	Body      string
}

// Options controls a discovery run.
type Options struct {
	Root             string
	Pattern          string
	MinWordCount     int
	ChannelWhitelist []string
	// Force readmits failed items alongside new ones.
	Force bool
}

// Statistics summarizes one discovery run.
type Statistics struct {
	TotalScanned        int
	Unreadable          int
	ParseFailed         int
	FilteredByStatus    int
	FilteredByWordCount int
	FilteredByChannel   int
	Ready               int
}

// Service pairs the walker with the eligibility filter.
type Service struct {
	walker *Walker
	logger *slog.Logger
}

// NewService constructs a Service. A nil logger disables logging.
func NewService(logger *slog.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{
		walker: NewWalker(logger),
		logger: logger,
	}
}

// Discover scans the root and returns the transcripts eligible for analysis.
// Files with a corrupt header are counted and skipped untouched; one bad file
// never aborts the scan. Running Discover again after a clean pipeline pass
// admits nothing, because every processed file carries a terminal status.
func (s *Service) Discover(ctx context.Context, opts Options) ([]Candidate, Statistics, error) {
	var stats Statistics

	seq, walkStats, err := s.walker.Walk(opts.Root, opts.Pattern)
	if err != nil {
		return nil, stats, err
	}

	var candidates []Candidate
	for path := range seq {
		if ctx.Err() != nil {
			return candidates, stats, ctx.Err()
		}
		stats.TotalScanned++

		header, body, readErr := ledger.Read(path)
		if readErr != nil {
			stats.ParseFailed++
			s.logger.Warn("skipping unparsable transcript", logging.String("path", path), logging.Error(readErr))
			continue
		}

		switch ledger.Classify(header, opts.Force) {
		case ledger.DecisionNew, ledger.DecisionRetry:
		default:
			stats.FilteredByStatus++
			continue
		}

		candidate := newCandidate(path, header, body)
		if opts.MinWordCount > 0 && candidate.WordCount < opts.MinWordCount {
			stats.FilteredByWordCount++
			continue
		}
		if len(opts.ChannelWhitelist) > 0 && !slices.Contains(opts.ChannelWhitelist, candidate.Channel) {
			stats.FilteredByChannel++
			continue
		}

		candidates = append(candidates, candidate)
		stats.Ready++
	}

	stats.Unreadable = walkStats.Unreadable
	s.logger.Info("discovery finished",
		logging.Int("scanned", stats.TotalScanned),
		logging.Int("ready", stats.Ready),
		logging.Int("parse_failed", stats.ParseFailed),
		logging.Int("unreadable", stats.Unreadable),
	)
	return candidates, stats, nil
}

func newCandidate(path string, header *ledger.Header, body string) Candidate {
	status, _ := header.Status()
	candidate := Candidate{
		Path:    path,
		Channel: header.GetString(ledger.KeyChannel),
		Title:   header.GetString(ledger.KeyTitle),
		Status:  status,
		Header:  header,
		Body:    body,
	}
	if count, ok := header.GetInt(ledger.KeyWordCount); ok {
		candidate.WordCount = count
	} else {
		candidate.WordCount = len(strings.Fields(body))
	}
	return candidate
}
