// Package notebook talks to the Open Notebook HTTP API.
//
// All requests carry bearer authentication and are retried on 5xx, 429, and
// connection timeouts with a fixed delay. Any other non-2xx response surfaces
// immediately as a StatusError so callers can branch on the status code.
package notebook
