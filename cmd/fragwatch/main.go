// main is the entry point of the fragwatch application.
// It initializes the configuration, logger, stores, and notifier, then runs
// the decision engine once, on an interval, or behind the HTTP trigger.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fragwatch/fragwatch/internal/config"
	"github.com/fragwatch/fragwatch/internal/engine"
	"github.com/fragwatch/fragwatch/internal/fake"
	"github.com/fragwatch/fragwatch/internal/game"
	"github.com/fragwatch/fragwatch/internal/logger"
	"github.com/fragwatch/fragwatch/internal/maintenance"
	"github.com/fragwatch/fragwatch/internal/models"
	"github.com/fragwatch/fragwatch/internal/notify"
	"github.com/fragwatch/fragwatch/internal/server"
	"github.com/fragwatch/fragwatch/internal/storage"
	"github.com/fragwatch/fragwatch/internal/timer"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Parse()

	logger.Setup(cfg.Logger)
	log.Info().Msg("Starting fragwatch...")

	// The SQLite repository backs the sqlite timer backend, the "all" mode
	// roster, and roster maintenance. Other setups never open it.
	var repo *storage.Repository
	if cfg.Storage.Backend == config.BackendSQLite ||
		cfg.Watch.Mode == config.ModeAll ||
		cfg.Storage.ClearRoster {
		var err error
		repo, err = storage.New(cfg.Storage.Path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer func() {
			if err := repo.Close(); err != nil {
				log.Error().Err(err).Msg("Error closing database")
			}
		}()
	}

	store := buildTimerStore(cfg, repo)

	if maintenance.Run(cfg, store, repo) {
		return 0
	}

	var source engine.MetricSource
	if cfg.Watch.FakePlayers > 0 {
		log.Warn().Int("players", cfg.Watch.FakePlayers).Msg("Using the fake metric source")
		source = &fake.Source{Label: "fake server", Count: cfg.Watch.FakePlayers}
	} else {
		host, port := cfg.Watch.HostPort()
		source = game.NewClient(host, port, cfg.A2S)
	}

	var roster engine.Roster
	if repo != nil {
		roster = repo
	}

	eng := engine.New(store, source, buildNotifier(cfg), roster, engine.Options{
		Mode:          cfg.Watch.Mode,
		ServerAddress: cfg.Watch.Address,
		SubjectPrefix: cfg.Watch.SubjectPrefix,
		Threshold:     cfg.Watch.Threshold,
		Cooldown:      cfg.Watch.Cooldown(),
	})

	switch {
	case cfg.HTTP.Listen != "":
		serveHTTP(cfg, eng, store)
		return 0
	case cfg.Watch.Interval > 0:
		runLoop(eng, cfg.Watch.Interval)
		return 0
	default:
		res := eng.Run()
		fmt.Println(res.Body)
		if res.Failed() {
			return 1
		}
		return 0
	}
}

// buildTimerStore selects the cooldown timer backend from the configuration.
func buildTimerStore(cfg *config.Config, repo *storage.Repository) timer.Store {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		return repo.Timer(cfg.Storage.Key)
	case config.BackendHTTP:
		return timer.NewHTTPStore(cfg.Storage.URL, cfg.Storage.Key, cfg.Notify.Timeout)
	default:
		return timer.NewFileStore(cfg.Storage.Key)
	}
}

// buildNotifier wires the configured notification channels. With none
// configured the engine runs with a no-op notifier, which is only useful
// for dry runs and is loudly logged.
func buildNotifier(cfg *config.Config) notify.Notifier {
	var channels notify.Multi

	if cfg.Notify.Channel != "" {
		channels = append(channels, notify.NewWebhook(
			cfg.Notify.Channel, cfg.Notify.Timeout, cfg.Notify.RateCount, cfg.Notify.RateWin))
	}

	if cfg.Notify.SMTPAddr != "" {
		channels = append(channels, notify.NewSMTP(
			cfg.Notify.SMTPAddr, cfg.Notify.SMTPFrom, cfg.Notify.SMTPTo,
			cfg.Notify.SMTPUser, cfg.Notify.SMTPPass))
	}

	if len(channels) == 0 {
		log.Warn().Msg("No notification channel configured, notifications are dropped")
		return notify.Nop{}
	}

	return channels
}

// runLoop evaluates on a fixed interval until SIGINT/SIGTERM. Evaluations
// run strictly one at a time; a slow one simply delays the next tick.
func runLoop(eng *engine.Engine, interval time.Duration) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().Dur("interval", interval).Msg("Evaluating on interval")
	logResult(eng.Run())

	for {
		select {
		case <-quit:
			log.Info().Msg("Shutting down")
			return
		case <-ticker.C:
			logResult(eng.Run())
		}
	}
}

// serveHTTP runs the HTTP trigger with graceful shutdown.
func serveHTTP(cfg *config.Config, eng *engine.Engine, store timer.Store) {
	srvHandler := server.New(eng, store, cfg.HTTP)

	httpServer := &http.Server{
		Addr:         cfg.HTTP.Listen,
		Handler:      srvHandler.Run(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("address", cfg.HTTP.Listen).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// logResult reports one evaluation outcome at the right level.
func logResult(res models.Result) {
	if res.Failed() {
		log.Error().Int("status", res.StatusCode).Msg(res.Body)
		return
	}

	log.Info().Int("status", res.StatusCode).Msg(res.Body)
}
