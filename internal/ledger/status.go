package ledger

import "strings"

// Status represents the lifecycle of a transcript in the pipeline.
type Status string

const (
	// StatusNone marks a file that carries no status key: never processed.
	StatusNone     Status = ""
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusUploaded Status = "uploaded"
	StatusFailed   Status = "failed"
)

var allStatuses = []Status{
	StatusPending,
	StatusApproved,
	StatusUploaded,
	StatusFailed,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known non-empty statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status. An empty string parses
// to StatusNone; anything unrecognized reports ok=false.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return StatusNone, true
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}
