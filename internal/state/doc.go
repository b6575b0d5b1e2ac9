// Package state applies pipeline status transitions to transcript files.
//
// The frontmatter header is the single source of truth. Every transition
// writes the header first; relocating the file into its stage directory is a
// convenience that can be re-issued after a crash, never a prerequisite for
// correctness.
package state
