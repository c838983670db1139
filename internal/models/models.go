// Package models defines the data structures shared between the decision
// engine, the adapters, and the trigger surfaces.
package models

// Status codes carried in the Result body. The numeric values are part of
// the external contract (scheduler integrations match on them literally).
const (
	// StatusOK marks a completed evaluation, whether or not it notified.
	StatusOK = 200

	// StatusError marks an evaluation that hit an external I/O failure.
	StatusError = 300
)

// Snapshot is the per-invocation view of the watched game server.
// It is produced fresh on every evaluation and never persisted.
type Snapshot struct {
	// ServerName is the human-readable label reported by the server itself.
	ServerName string

	// PlayerNames holds the connected player names with anonymous
	// (empty) entries already filtered out. It may be shorter than
	// PlayerCount when the server hides names.
	PlayerNames []string

	// PlayerCount is the number of connected players as reported by A2S_INFO.
	PlayerCount int
}

// Result is the outcome of a single evaluation, shaped for use as a CLI
// exit status, an HTTP response body, or a function-as-a-service return.
type Result struct {
	Body       string `json:"body"`
	StatusCode int    `json:"statusCode"`
}

// OK returns a success Result with the given body.
func OK(body string) Result {
	return Result{StatusCode: StatusOK, Body: body}
}

// Error returns a failure Result with the given body.
func Error(body string) Result {
	return Result{StatusCode: StatusError, Body: body}
}

// Failed reports whether the result belongs to the error family.
func (r Result) Failed() bool {
	return r.StatusCode != StatusOK
}
