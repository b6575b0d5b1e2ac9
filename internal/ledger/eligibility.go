package ledger

// Decision classifies a header for (re)processing. The three-way split for
// previously seen files is what makes re-running the pipeline idempotent:
// anything downstream of discovery is never silently reprocessed, and failed
// items retry only under an explicit force flag so a permanently bad input
// cannot loop forever.
type Decision string

const (
	// DecisionNew admits a file that has never been processed.
	DecisionNew Decision = "new"
	// DecisionDone rejects a file already downstream of discovery.
	DecisionDone Decision = "done"
	// DecisionRetry readmits a failed file under force.
	DecisionRetry Decision = "retry"
	// DecisionSkip rejects a failed file when force is not given.
	DecisionSkip Decision = "skip"
)

// Classify is a pure function of the header; it performs no I/O. Unrecognized
// status strings classify as done: something else stamped the file, and
// reprocessing it could double an external side effect.
func Classify(header *Header, force bool) Decision {
	if header == nil {
		return DecisionNew
	}
	status, known := header.Status()
	if !known {
		return DecisionDone
	}
	switch status {
	case StatusNone:
		return DecisionNew
	case StatusFailed:
		if force {
			return DecisionRetry
		}
		return DecisionSkip
	default:
		return DecisionDone
	}
}
