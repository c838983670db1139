// Package engine implements the threshold-crossing decision logic: on each
// invocation it checks the persisted cooldown timer, conditionally queries
// the game server, and conditionally re-arms the timer and notifies.
//
// Every external failure is caught here and converted into a models.Result;
// nothing escapes to the invoker as a fault. Read and query failures notify
// out-of-band (a monitor that fails silently is useless); a timer write
// failure after a decided notification does not re-notify.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/fragwatch/fragwatch/internal/config"
	"github.com/fragwatch/fragwatch/internal/models"
	"github.com/fragwatch/fragwatch/internal/notify"
	"github.com/fragwatch/fragwatch/internal/timer"
	"github.com/fragwatch/fragwatch/internal/vars"
	"github.com/rs/zerolog/log"
)

// MetricSource produces a fresh snapshot of the watched server.
type MetricSource interface {
	Query() (models.Snapshot, error)
}

// Roster persists the set of player names already notified about ("all" mode).
type Roster interface {
	RosterNames() ([]string, error)
	RosterAdd(name string) error
	RosterRemove(name string) error
	RosterClear() (int64, error)
}

// Options carries the immutable evaluation policy, built once at startup.
type Options struct {
	// Now overrides the wall clock. Nil means time.Now.
	Now func() time.Time

	Mode          string
	ServerAddress string
	SubjectPrefix string
	Threshold     int
	Cooldown      time.Duration
}

// Engine evaluates the watched server against the policy. It holds no
// mutable state of its own; everything durable lives behind the timer store
// and the roster.
type Engine struct {
	timer    timer.Store
	source   MetricSource
	notifier notify.Notifier
	roster   Roster
	now      func() time.Time
	opts     Options
}

// New wires an engine from its three collaborators. roster may be nil
// unless opts.Mode is "all".
func New(store timer.Store, source MetricSource, notifier notify.Notifier, roster Roster, opts Options) *Engine {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Engine{
		timer:    store,
		source:   source,
		notifier: notifier,
		roster:   roster,
		now:      now,
		opts:     opts,
	}
}

// Run executes one evaluation in the configured mode.
func (e *Engine) Run() models.Result {
	if e.opts.Mode == config.ModeAll {
		return e.EvaluateAll()
	}

	return e.Evaluate()
}

// Evaluate runs one threshold-mode invocation. Safe to call repeatedly;
// each call is independent and all durable state crosses the timer store.
func (e *Engine) Evaluate() models.Result {
	// One clock reading per invocation, every comparison uses it.
	now := e.now().Unix()

	nextCheckAt, err := e.timer.Read()
	if errors.Is(err, timer.ErrNotFound) {
		// First run: establish the timer, do not query the metric yet.
		return e.initializeTimer(now)
	}
	if err != nil {
		return e.fail(fmt.Sprintf("Failed to read the cooldown timer: %v", err))
	}

	if now < nextCheckAt {
		log.Info().
			Str("next_check", timer.HumanTime(nextCheckAt)).
			Msg("Cooldown still active, nothing to do")

		return models.OK("We haven't passed the target time yet. Don't do anything.")
	}

	snap, err := e.source.Query()
	if err != nil {
		return e.fail(fmt.Sprintf("Failed to query server %s: %v", e.opts.ServerAddress, err))
	}

	log.Info().
		Int("players", snap.PlayerCount).
		Int("threshold", e.opts.Threshold).
		Str("server", snap.ServerName).
		Msg("Server queried")

	switch {
	case snap.PlayerCount == 0:
		return models.OK("There were no players")
	case snap.PlayerCount < e.opts.Threshold:
		return models.OK(fmt.Sprintf(
			"There are %d players, but the threshold is %d, so don't send an email",
			snap.PlayerCount, e.opts.Threshold))
	}

	return e.notifyThreshold(now, snap)
}

// notifyThreshold re-arms the cooldown and sends the threshold notification.
func (e *Engine) notifyThreshold(now int64, snap models.Snapshot) models.Result {
	nextCheckAt := now + int64(e.opts.Cooldown/time.Second)

	writeErr := e.timer.Write(nextCheckAt)
	if writeErr != nil {
		// The threshold event is real even though the write failed: better
		// to risk a duplicate on the next run than to drop the notification.
		log.Error().Err(writeErr).Msg("Failed to write the cooldown timer, notifying anyway")
	}

	subject := e.opts.SubjectPrefix + "Player count has reached the threshold"
	body := fmt.Sprintf(
		"Player count is %d in server: %s, address: %s. The next check will happen after %s",
		snap.PlayerCount, snap.ServerName, e.opts.ServerAddress, timer.HumanTime(nextCheckAt))

	sendErr := e.notifier.Send(subject, body)
	if sendErr != nil {
		log.Error().Err(sendErr).Msg("Failed to deliver the notification")
	}

	switch {
	case writeErr != nil && sendErr != nil:
		return models.Error(fmt.Sprintf(
			"Failed to update the cooldown timer (%v) and to send the notification (%v)",
			writeErr, sendErr))
	case writeErr != nil:
		return models.Error(fmt.Sprintf(
			"Notification sent, but failed to update the cooldown timer: %v", writeErr))
	case sendErr != nil:
		return models.Error(fmt.Sprintf(
			"Cooldown timer updated, but failed to send the notification: %v", sendErr))
	}

	log.Info().
		Str("next_check", timer.HumanTime(nextCheckAt)).
		Msg("Notification sent, cooldown re-armed")

	return models.OK("Email sent successfully")
}

// initializeTimer handles the first-run condition: no timer record exists,
// so one is written as immediately eligible. The metric is not queried on
// this path.
func (e *Engine) initializeTimer(now int64) models.Result {
	log.Info().Msg("No cooldown timer found, initializing")

	if err := e.timer.Write(now); err != nil {
		return e.fail(fmt.Sprintf("Failed to initialize the cooldown timer: %v", err))
	}

	// Heads-up for operators about the first run (or a vanished timer
	// object). Best effort, does not fail the invocation.
	subject := e.opts.SubjectPrefix + "No timer found, created a new one"
	body := fmt.Sprintf("No cooldown timer was found for %s. Created one with the time %s.",
		e.opts.ServerAddress, timer.HumanTime(now))
	if err := e.notifier.Send(subject, body); err != nil {
		log.Warn().Err(err).Msg("Failed to send the first-run notification")
	}

	return models.OK(fmt.Sprintf("Timer initialized to %s", timer.HumanTime(now)))
}

// fail converts an invocation-fatal error into an ERROR result and makes a
// best-effort out-of-band notification attempt.
func (e *Engine) fail(message string) models.Result {
	log.Error().Msg(message)

	subject := e.opts.SubjectPrefix + vars.Name + " had an error"
	if err := e.notifier.Send(subject, message); err != nil {
		log.Error().Err(err).Msg("Failed to send the error notification")
	}

	return models.Error(message)
}
