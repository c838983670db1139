// Package config handles the parsing and validation of application configuration
// from command-line arguments and environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/fragwatch/fragwatch/internal/logger"
	"github.com/fragwatch/fragwatch/internal/vars"
	"github.com/jessevdk/go-flags"
)

// Operating modes.
const (
	// ModeThreshold notifies once the player count reaches the threshold,
	// rate-limited by the persisted cooldown timer.
	ModeThreshold = "threshold"

	// ModeAll notifies for every player that joins, deduplicated by the
	// persisted roster of already-notified names.
	ModeAll = "all"
)

// Timer storage backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendHTTP   = "http"
)

// Config represents the complete application flags configuration.
type Config struct {
	// betteralign:ignore

	Watch   Watch         `group:"Watch Options" env-namespace:"FRAGWATCH"`
	Storage Storage       `group:"Storage Options" namespace:"store" env-namespace:"FRAGWATCH_STORE"`
	Notify  Notify        `group:"Notification Options" namespace:"notify" env-namespace:"FRAGWATCH_NOTIFY"`
	HTTP    HTTP          `group:"HTTP Trigger Options" namespace:"http" env-namespace:"FRAGWATCH_HTTP"`
	A2S     A2S           `group:"A2S Options" namespace:"a2s" env-namespace:"FRAGWATCH_A2S"`
	Logger  logger.Config `group:"Logger Options" namespace:"log" env-namespace:"FRAGWATCH_LOG"`

	Version bool `short:"v" long:"version" description:"Print version and build info"`
}

// Watch holds the watched server and notification policy configuration.
type Watch struct {
	// betteralign:ignore

	Address         string        `short:"s" long:"server" env:"SERVER_ADDRESS" description:"Game server address to watch (host:port)"`
	Mode            string        `short:"m" long:"mode" env:"MODE" description:"Operating mode" choice:"threshold" choice:"all" default:"threshold"`
	Threshold       int           `short:"n" long:"threshold" env:"PLAYER_COUNT_THRESHOLD" description:"Player count that triggers a notification" default:"1"`
	CooldownMinutes int           `short:"c" long:"cooldown-minutes" env:"COOLDOWN_MINUTES" description:"Minutes to wait before the next threshold check" default:"30"`
	SubjectPrefix   string        `long:"subject-prefix" env:"EMAIL_SUBJECT_PREFIX" description:"Prefix prepended to every notification subject" default:"[URGENT]"`
	Interval        time.Duration `short:"i" long:"interval" env:"INTERVAL" description:"Evaluate every interval instead of once (0 runs once and exits)" default:"0"`
	FakePlayers     int           `long:"fake-players" hidden:"true"`
}

// Storage holds cooldown timer and roster persistence configuration.
type Storage struct {
	// betteralign:ignore

	Backend string `short:"b" long:"backend" env:"BACKEND" description:"Timer storage backend" choice:"file" choice:"sqlite" choice:"http" default:"file"`
	Path    string `short:"d" long:"path" env:"PATH" description:"Path to the SQLite database (sqlite backend and 'all' mode roster)" default:"fragwatch.db"`
	URL     string `long:"url" env:"URL" description:"Base URL of the object store (http backend)"`
	Key     string `short:"k" long:"key" env:"KEY" description:"Object key (or local file name) holding the cooldown timer" default:"timer.txt"`

	ShowTimer   bool `long:"show-timer" description:"Print the persisted timer state and exit"`
	ResetTimer  bool `long:"reset-timer" description:"Reset the cooldown timer to now and exit"`
	ClearRoster bool `long:"clear-roster" description:"Delete all notified player records and exit"`
}

// Notify holds notification delivery configuration. Configuring both the
// webhook channel and SMTP fans every notification out to both.
type Notify struct {
	// betteralign:ignore

	Channel   string        `short:"w" long:"channel" env:"CHANNEL" description:"Webhook URL notifications are POSTed to"`
	Timeout   time.Duration `long:"timeout" env:"TIMEOUT" description:"Delivery timeout per attempt" default:"5s"`
	RateCount int           `long:"rate-count" env:"RATE_COUNT" description:"Max outgoing notifications per rate window" default:"6"`
	RateWin   time.Duration `long:"rate-window" env:"RATE_WINDOW" description:"Outgoing notification rate window" default:"1m"`

	SMTPAddr string   `long:"smtp-addr" env:"SMTP_ADDR" description:"SMTP server address (host:port)"`
	SMTPFrom string   `long:"smtp-from" env:"SMTP_FROM" description:"Sender address for SMTP notifications"`
	SMTPTo   []string `long:"smtp-to" env:"SMTP_TO" description:"Recipient addresses for SMTP notifications" env-delim:","`
	SMTPUser string   `long:"smtp-user" env:"SMTP_USER" description:"SMTP username (empty disables authentication)"`
	SMTPPass string   `long:"smtp-pass" env:"SMTP_PASS" description:"SMTP password"`
}

// HTTP holds the optional HTTP trigger configuration.
type HTTP struct {
	// betteralign:ignore

	Listen     string        `short:"l" long:"listen" env:"LISTEN_ADDRESS" description:"Serve the HTTP trigger on this address (empty disables it)"`
	AuthToken  string        `short:"t" long:"auth-token" env:"AUTH_TOKEN" description:"Bearer token protecting the trigger endpoints"`
	RateCount  int           `long:"rate-count" env:"RATE_COUNT" description:"Hard IP limit: requests count" default:"8"`
	RateWin    time.Duration `long:"rate-window" env:"RATE_WINDOW" description:"Hard IP limit: window duration" default:"1m"`
	TrustProxy bool          `long:"trust-proxy" env:"TRUST_PROXY" description:"Trust X-Forwarded-For headers"`
}

// A2S holds Source Query protocol configuration.
type A2S struct {
	// betteralign:ignore

	Timeout    time.Duration `long:"timeout" env:"TIMEOUT" description:"Query timeout" default:"3s"`
	BufferSize uint16        `long:"buffer-size" env:"BUFFER_SIZE" description:"Response body buffer size" default:"1400"`
}

// Cooldown returns the configured cooldown converted from minutes.
func (w *Watch) Cooldown() time.Duration {
	return time.Duration(w.CooldownMinutes) * time.Minute
}

// HostPort splits the validated server address into host and numeric port.
func (w *Watch) HostPort() (string, int) {
	host, portStr, err := net.SplitHostPort(w.Address)
	if err != nil {
		return w.Address, 0
	}

	port, _ := strconv.Atoi(portStr)

	return host, port
}

// Parse reads the configuration from flags and environment variables.
// It terminates the application if the configuration is invalid or if the help flag is invoked.
func Parse() *Config {
	var cfg Config
	parser := flags.NewParser(&cfg, flags.Default)
	parser.NamespaceDelimiter = "-"

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				os.Exit(0)
			}
		}
		os.Exit(1)
	}

	if cfg.Version {
		vars.Print()
		os.Exit(0)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	return &cfg
}

// Validate checks cross-field constraints that go-flags tags cannot express.
func (c *Config) Validate() error {
	if c.Watch.Address == "" {
		return fmt.Errorf("required flag `-s, --server' or environment variable `FRAGWATCH_SERVER_ADDRESS` was not specified")
	}

	host, portStr, err := net.SplitHostPort(c.Watch.Address)
	if err != nil {
		return fmt.Errorf("invalid server address %q: %w", c.Watch.Address, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || host == "" || port < 1 || port > 65535 {
		return fmt.Errorf("invalid server address %q, expected host:port", c.Watch.Address)
	}

	if c.Watch.Threshold < 1 {
		return fmt.Errorf("player count threshold must be at least 1, got %d", c.Watch.Threshold)
	}

	if c.Watch.CooldownMinutes < 0 {
		return fmt.Errorf("cooldown minutes must not be negative, got %d", c.Watch.CooldownMinutes)
	}

	if c.Storage.Backend == BackendHTTP && c.Storage.URL == "" {
		return fmt.Errorf("storage backend %q requires `--store-url' or `FRAGWATCH_STORE_URL`", BackendHTTP)
	}

	if c.Storage.Key == "" {
		return fmt.Errorf("storage key must not be empty")
	}

	if c.HTTP.Listen != "" && c.HTTP.AuthToken == "" {
		return fmt.Errorf("the HTTP trigger requires `--http-auth-token' or `FRAGWATCH_HTTP_AUTH_TOKEN`")
	}

	if c.Notify.SMTPAddr != "" && (c.Notify.SMTPFrom == "" || len(c.Notify.SMTPTo) == 0) {
		return fmt.Errorf("SMTP notifications require both a sender and at least one recipient")
	}

	return nil
}
