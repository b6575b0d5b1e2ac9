package pipeline

import (
	"context"

	"notepipe/internal/discovery"
	"notepipe/internal/ledger"
	"notepipe/internal/state"
)

// StageCounts tallies files by ledger status within one root.
type StageCounts struct {
	New      int
	Pending  int
	Approved int
	Uploaded int
	Failed   int
	Unknown  int
	Corrupt  int
}

// Total returns the number of files counted.
func (c StageCounts) Total() int {
	return c.New + c.Pending + c.Approved + c.Uploaded + c.Failed + c.Unknown + c.Corrupt
}

// StatusReport is a point-in-time census of the three pipeline roots.
type StatusReport struct {
	Transcripts StageCounts
	PendingDir  StageCounts
	ApprovedDir StageCounts
}

// Status walks the transcripts root and both stage directories and counts
// files by their ledger status. Missing roots count as empty.
func (p *Pipeline) Status(ctx context.Context) (StatusReport, error) {
	var report StatusReport
	roots := []struct {
		path   string
		counts *StageCounts
	}{
		{p.cfg.Paths.TranscriptsDir, &report.Transcripts},
		{p.cfg.StageDir(state.StagePending), &report.PendingDir},
		{p.cfg.StageDir(state.StageApproved), &report.ApprovedDir},
	}

	walker := discovery.NewWalker(p.logger)
	for _, root := range roots {
		seq, _, err := walker.Walk(root.path, p.cfg.Discovery.Pattern)
		if err != nil {
			continue
		}
		for path := range seq {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			status, ok, err := ledger.QuickStatus(path)
			if err != nil {
				root.counts.Corrupt++
				continue
			}
			switch {
			case !ok:
				root.counts.Unknown++
			case status == ledger.StatusNone:
				root.counts.New++
			case status == ledger.StatusPending:
				root.counts.Pending++
			case status == ledger.StatusApproved:
				root.counts.Approved++
			case status == ledger.StatusUploaded:
				root.counts.Uploaded++
			case status == ledger.StatusFailed:
				root.counts.Failed++
			}
		}
	}
	return report, nil
}
