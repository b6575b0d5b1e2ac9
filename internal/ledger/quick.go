package ledger

import (
	"fmt"
	"os"

	"github.com/adrg/frontmatter"
)

// QuickStatus reads only the status key from a file's frontmatter. It avoids
// the full node round-trip of Read and is meant for scan paths that filter
// large trees by status before doing real work. Unrecognized status strings
// are returned as-is with ok=false so callers can decide how to treat them.
func QuickStatus(path string) (Status, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return StatusNone, false, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var probe struct {
		Status string `yaml:"status"`
	}
	if _, err := frontmatter.Parse(f, &probe); err != nil {
		return StatusNone, false, &CorruptError{Path: path, Reason: "invalid frontmatter", Err: err}
	}
	status, ok := ParseStatus(probe.Status)
	return status, ok, nil
}
