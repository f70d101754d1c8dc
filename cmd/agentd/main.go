// Command agentd is the background capture agent: it serves the typed
// request bus, watches the companion web app's session state, and keeps
// buffered submissions flowing to the backend.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NicholasARossi/leetloop-sub000/internal/agent"
	"github.com/NicholasARossi/leetloop-sub000/internal/api"
	"github.com/NicholasARossi/leetloop-sub000/internal/auth"
	"github.com/NicholasARossi/leetloop-sub000/internal/bridge"
	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/NicholasARossi/leetloop-sub000/internal/config"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
	"github.com/NicholasARossi/leetloop-sub000/internal/migration"
	"github.com/NicholasARossi/leetloop-sub000/internal/storage"
	"github.com/NicholasARossi/leetloop-sub000/internal/syncer"

	_ "modernc.org/sqlite"
)

func main() {
	cfg := config.LoadConfig()
	log := logging.NewDefault(slog.LevelInfo)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error(ctx, "agent exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log logging.Logger) error {
	db, err := storage.OpenDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	store := storage.NewStore(db, log)
	apiClient := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	tokens := auth.NewTokenStore(store, apiClient, log)
	migrator := migration.NewCoordinator(store, tokens, apiClient, log)
	engine := syncer.NewEngine(store, tokens, apiClient, log)

	a := agent.New(store, tokens, migrator, engine, log)
	a.SetSyncInterval(cfg.SyncInterval)

	b := bus.New(log)
	go b.Serve(ctx, a)

	if cfg.WebAppStatePath != "" {
		br := bridge.New(&bridge.FileSource{Path: cfg.WebAppStatePath}, b, log)
		br.SetPollInterval(cfg.BridgePollInterval)
		go br.Run(ctx)
		log.Info(ctx, "session bridge watching web app state", "path", cfg.WebAppStatePath)
	}

	log.Info(ctx, "agent started", "db", cfg.DatabasePath, "api", cfg.APIBaseURL)
	a.Run(ctx)
	return nil
}
