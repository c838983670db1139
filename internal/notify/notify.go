// Package notify delivers notifications to external channels.
// The notification channel is the escalation path of the whole system, so
// delivery failures are surfaced as errors rather than swallowed.
package notify

import "errors"

// Notifier sends a single message to a downstream channel.
type Notifier interface {
	Send(subject, body string) error
}

// Nop is a no-op notifier useful in tests and for running without a
// configured channel.
type Nop struct{}

// Send implements Notifier.
func (Nop) Send(_, _ string) error { return nil }

// Multi fans a notification out to several channels. Every channel is
// attempted; the errors of failed ones are joined.
type Multi []Notifier

// Send implements Notifier.
func (m Multi) Send(subject, body string) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(subject, body); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
