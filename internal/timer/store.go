// Package timer defines the durable cooldown timer store and its backends.
//
// The store holds a single well-known object containing one line of text:
// the decimal Unix timestamp (seconds) before which the player count must
// not be re-evaluated. The absence of the object is meaningful (first run)
// and is reported with ErrNotFound, never invented as a zero value.
package timer

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"time"
)

var (
	// ErrNotFound is returned when no timer record exists yet.
	ErrNotFound = errors.New("timer not found")

	// ErrCorrupt is returned when a timer record exists but does not hold
	// a decimal Unix timestamp. Handled like a read failure, but kept
	// distinct so diagnostics can tell the two apart.
	ErrCorrupt = errors.New("timer payload corrupt")
)

// Store persists the next eligible check timestamp. A single fixed key,
// last write wins; no versioning or conditional writes.
type Store interface {
	// Read returns the stored Unix timestamp. It fails with ErrNotFound
	// when no record exists and ErrCorrupt when the payload is unusable.
	Read() (int64, error)

	// Write durably replaces the stored timestamp.
	Write(ts int64) error
}

// Parse extracts the timestamp from a raw timer payload.
func Parse(payload []byte) (int64, error) {
	raw := string(bytes.TrimSpace(payload))
	if raw == "" {
		return 0, fmt.Errorf("%w: empty payload", ErrCorrupt)
	}

	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a Unix timestamp", ErrCorrupt, raw)
	}

	return ts, nil
}

// Format renders a timestamp as the single-line timer payload.
func Format(ts int64) []byte {
	return []byte(strconv.FormatInt(ts, 10))
}

// HumanTime renders a Unix timestamp for notification bodies and logs.
func HumanTime(ts int64) string {
	return time.Unix(ts, 0).UTC().Format(time.UnixDate)
}
