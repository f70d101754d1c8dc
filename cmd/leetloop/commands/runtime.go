// Package commands implements the leetloop CLI subcommands. Every command
// builds the same router the daemon serves and dispatches a typed request
// to it, so results come back in the same structured shape either way. The
// durable store is shared with the daemon; convergence relies on the
// subsystem's idempotent checks, not on cross-process locking.
package commands

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/NicholasARossi/leetloop-sub000/internal/agent"
	"github.com/NicholasARossi/leetloop-sub000/internal/api"
	"github.com/NicholasARossi/leetloop-sub000/internal/auth"
	"github.com/NicholasARossi/leetloop-sub000/internal/config"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
	"github.com/NicholasARossi/leetloop-sub000/internal/migration"
	"github.com/NicholasARossi/leetloop-sub000/internal/storage"
	"github.com/NicholasARossi/leetloop-sub000/internal/syncer"

	_ "modernc.org/sqlite"
)

type runtime struct {
	cfg    *config.Config
	log    logging.Logger
	db     *sql.DB
	store  *storage.Store
	tokens *auth.TokenStore
	engine *syncer.Engine
	agent  *agent.Agent
}

func newRuntime(ctx context.Context) (*runtime, error) {
	cfg := config.LoadConfig()
	log := logging.NewDefault(slog.LevelWarn)

	db, err := storage.OpenDatabase(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	store := storage.NewStore(db, log)
	apiClient := api.NewClient(cfg.APIBaseURL, cfg.RequestTimeout)
	tokens := auth.NewTokenStore(store, apiClient, log)
	migrator := migration.NewCoordinator(store, tokens, apiClient, log)
	engine := syncer.NewEngine(store, tokens, apiClient, log)

	return &runtime{
		cfg:    cfg,
		log:    log,
		db:     db,
		store:  store,
		tokens: tokens,
		engine: engine,
		agent:  agent.New(store, tokens, migrator, engine, log),
	}, nil
}

func (r *runtime) Close() {
	_ = r.db.Close()
}
