// Package maintenance provides one-shot administrative tasks for the
// persisted timer and roster state.
package maintenance

import (
	"errors"
	"fmt"
	"time"

	"github.com/fragwatch/fragwatch/internal/config"
	"github.com/fragwatch/fragwatch/internal/storage"
	"github.com/fragwatch/fragwatch/internal/timer"
	"github.com/rs/zerolog/log"
)

// Run checks if any maintenance flags are set and executes the corresponding
// tasks. Returns true if a task ran (indicating the program should exit).
func Run(cfg *config.Config, store timer.Store, repo *storage.Repository) bool {
	switch {
	case cfg.Storage.ShowTimer:
		showTimer(store)
	case cfg.Storage.ResetTimer:
		resetTimer(store)
	case cfg.Storage.ClearRoster:
		clearRoster(repo)
	default:
		return false
	}

	return true
}

// showTimer prints the persisted cooldown state (ARMED or COOLING).
func showTimer(store timer.Store) {
	nextCheckAt, err := store.Read()
	if errors.Is(err, timer.ErrNotFound) {
		fmt.Println("state: ARMED (no timer yet, next run initializes it)")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to read the cooldown timer")
		return
	}

	now := time.Now().Unix()
	if now >= nextCheckAt {
		fmt.Printf("state: ARMED (elapsed %s)\n", timer.HumanTime(nextCheckAt))
		return
	}

	remaining := time.Duration(nextCheckAt-now) * time.Second
	fmt.Printf("state: COOLING until %s (%s remaining)\n", timer.HumanTime(nextCheckAt), remaining)
}

// resetTimer makes the next evaluation immediately eligible.
func resetTimer(store timer.Store) {
	now := time.Now().Unix()
	if err := store.Write(now); err != nil {
		log.Error().Err(err).Msg("Failed to reset the cooldown timer")
		return
	}

	log.Info().Str("next_check", timer.HumanTime(now)).Msg("Cooldown timer reset")
}

// clearRoster drops every notified-player record.
func clearRoster(repo *storage.Repository) {
	if repo == nil {
		log.Error().Msg("Roster maintenance needs the SQLite database, none is open")
		return
	}

	deleted, err := repo.RosterClear()
	if err != nil {
		log.Error().Err(err).Msg("Failed to clear the roster")
		return
	}

	log.Info().Int64("deleted", deleted).Msg("Roster cleared")
}
