// Package fake provides a synthetic metric source for testing and development,
// enabled with the hidden --fake-players flag.
package fake

import (
	"fmt"
	"math/rand"

	"github.com/fragwatch/fragwatch/internal/models"
)

var names = []string{
	"Sova", "Breach", "Gambit", "Krieg", "Otto", "Pemulis", "Vector",
	"Madrigal", "Husk", "Tonya", "Quorra", "Blixt", "Nadja", "Ratio",
}

// Source fabricates snapshots with a fixed player count and random names,
// standing in for a live game server.
type Source struct {
	Label string
	Count int
}

// Query implements the metric source contract with generated data.
// Roughly one in five generated players is anonymous, exercising the
// blank-name filtering downstream.
func (s *Source) Query() (models.Snapshot, error) {
	snap := models.Snapshot{
		ServerName:  s.Label,
		PlayerCount: s.Count,
	}

	for i := 0; i < s.Count; i++ {
		if rand.Float32() < 0.2 {
			continue
		}
		name := fmt.Sprintf("%s-%d", names[rand.Intn(len(names))], rand.Intn(100))
		snap.PlayerNames = append(snap.PlayerNames, name)
	}

	return snap, nil
}
