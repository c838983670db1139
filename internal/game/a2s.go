// Package game queries the watched game server using the Source Engine Query
// (A2S) protocol and shapes the response into a metric snapshot.
package game

import (
	"fmt"

	"github.com/fragwatch/fragwatch/internal/config"
	"github.com/fragwatch/fragwatch/internal/models"
	"github.com/woozymasta/a2s/pkg/a2s"
)

// Client is the metric source for a single configured game server.
type Client struct {
	host    string
	port    int
	options config.A2S
}

// NewClient returns a metric source for the given server address.
func NewClient(host string, port int, options config.A2S) *Client {
	return &Client{host: host, port: port, options: options}
}

// Query connects to the game server via UDP, requests A2S_INFO and
// A2S_PLAYER, and returns the snapshot for this invocation. Anonymous
// (blank) player names are filtered out.
func (c *Client) Query() (models.Snapshot, error) {
	client, err := a2s.New(c.host, c.port)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("connect to %s:%d: %w", c.host, c.port, err)
	}
	defer func() { _ = client.Close() }()

	client.BufferSize = c.options.BufferSize
	client.Timeout = c.options.Timeout

	info, err := client.GetInfo()
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("query server info: %w", err)
	}

	players, err := client.GetPlayers()
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("query player list: %w", err)
	}

	return newSnapshot(info, players), nil
}

// newSnapshot shapes the raw A2S responses into a metric snapshot,
// dropping anonymous (blank) player names. The count comes from A2S_INFO,
// so it may exceed the number of named players.
func newSnapshot(info *a2s.Info, players *[]a2s.Player) models.Snapshot {
	snap := models.Snapshot{
		ServerName:  info.Name,
		PlayerCount: int(info.Players),
	}

	if players == nil {
		return snap
	}

	for _, p := range *players {
		if p.Name != "" {
			snap.PlayerNames = append(snap.PlayerNames, p.Name)
		}
	}

	return snap
}
