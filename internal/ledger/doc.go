// Package ledger reads and writes the YAML frontmatter block that records a
// transcript's pipeline state inside the content file itself.
//
// The frontmatter is the only persisted state in notepipe; there is no
// database. The codec therefore guarantees two properties everything else
// depends on: writes are atomic (temp file + rename, so a crash mid-write
// never leaves a torn file), and rewrites are lossless (unknown keys owned
// by other tools are preserved with their insertion order intact).
package ledger
