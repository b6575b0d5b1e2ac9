// Package retry implements the two retry policies notepipe binds to its
// external failure domains: an exponential backoff with quota awareness for
// the Gemini CLI subprocess, and a fixed-delay policy for the Open Notebook
// HTTP API.
//
// Policies never classify by string matching; they inspect the sentinel
// markers from internal/services and the HTTPStatus method exposed by API
// errors. Exhausting a policy always surfaces the original typed failure,
// so callers can branch on failure kind rather than succeeded/failed.
package retry
