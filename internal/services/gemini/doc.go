// Package gemini wraps the Gemini CLI for headless semantic analysis.
//
// The CLI is invoked with -p so it runs non-interactively and prints the
// model response on stdout. Quota exhaustion is reported on stderr and is
// retried with exponential backoff; any other non-zero exit surfaces as a
// typed CallError.
package gemini
