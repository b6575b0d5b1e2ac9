// Package pipeline orchestrates the content stages end to end.
//
// Batches run sequentially under a single-instance file lock. Item failures
// inside the taxonomy (LLM call, timeout, quota, HTTP status) are recorded
// in the file's own ledger and the batch moves on; anything else is treated
// as a programming error and aborts the run.
package pipeline
