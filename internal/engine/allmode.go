package engine

import (
	"fmt"
	"strings"

	"github.com/fragwatch/fragwatch/internal/models"
	"github.com/rs/zerolog/log"
)

// EvaluateAll runs one "all" mode invocation: notify about every player that
// joined since the last run, deduplicated by the persisted roster. A player
// that disconnects is forgotten, so rejoining notifies again.
func (e *Engine) EvaluateAll() models.Result {
	snap, err := e.source.Query()
	if err != nil {
		return e.fail(fmt.Sprintf("Failed to query server %s: %v", e.opts.ServerAddress, err))
	}

	log.Info().
		Int("players", snap.PlayerCount).
		Str("server", snap.ServerName).
		Msg("Server queried")

	known, err := e.roster.RosterNames()
	if err != nil {
		return e.fail(fmt.Sprintf("Failed to read the notified player roster: %v", err))
	}

	if snap.PlayerCount == 0 {
		if len(known) == 0 {
			return models.OK("There were no players")
		}

		// Everyone left since the last run, reset the roster.
		deleted, err := e.roster.RosterClear()
		if err != nil {
			return e.fail(fmt.Sprintf("Failed to clear the notified player roster: %v", err))
		}
		log.Info().Int64("deleted", deleted).Msg("Server is empty, cleared the roster")

		return models.OK("There were no players. Cleared the roster")
	}

	current := make(map[string]struct{}, len(snap.PlayerNames))
	for _, name := range snap.PlayerNames {
		current[name] = struct{}{}
	}

	knownSet := make(map[string]struct{}, len(known))
	for _, name := range known {
		knownSet[name] = struct{}{}

		if _, connected := current[name]; connected {
			continue
		}
		if err := e.roster.RosterRemove(name); err != nil {
			return e.fail(fmt.Sprintf("Failed to remove %q from the roster: %v", name, err))
		}
		log.Debug().Str("player", name).Msg("Player disconnected, removed from roster")
	}

	var pending []string
	for _, name := range snap.PlayerNames {
		if _, seen := knownSet[name]; seen {
			continue
		}
		if err := e.roster.RosterAdd(name); err != nil {
			return e.fail(fmt.Sprintf("Failed to add %q to the roster: %v", name, err))
		}
		pending = append(pending, name)
	}

	if len(pending) == 0 {
		log.Info().Msg("No new players since the last run")
		return models.OK("Don't need to notify")
	}

	subject := e.opts.SubjectPrefix + "Player has joined the server"

	var body strings.Builder
	fmt.Fprintf(&body, "Players have joined the server: %s, address: %s\nPlayers:\n",
		snap.ServerName, e.opts.ServerAddress)
	for _, name := range pending {
		fmt.Fprintf(&body, "[%s]\n", name)
	}

	if err := e.notifier.Send(subject, body.String()); err != nil {
		log.Error().Err(err).Msg("Failed to deliver the notification")
		return models.Error(fmt.Sprintf("Roster updated, but failed to send the notification: %v", err))
	}

	log.Info().Int("new_players", len(pending)).Msg("Notification sent")

	return models.OK("Email sent successfully")
}
