// Package agent is the background coordinator: it routes typed requests to
// the token store, migration coordinator, and sync engine, reacts to
// auth-state changes, and runs the periodic sync timer.
//
// Failures inside background-triggered flows (timer, auth-state reaction)
// are logged only; failures inside explicitly requested flows come back to
// the caller as a structured Result. Nothing escapes a handler as a panic
// or error value.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/NicholasARossi/leetloop-sub000/internal/auth"
	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
	"github.com/NicholasARossi/leetloop-sub000/internal/migration"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
	"github.com/NicholasARossi/leetloop-sub000/internal/storage"
	"github.com/NicholasARossi/leetloop-sub000/internal/syncer"
	"github.com/google/uuid"
)

// DefaultSyncInterval matches the original recurring alarm: sync fires
// unconditionally every 5 minutes even if no explicit request ever arrives.
const DefaultSyncInterval = 5 * time.Minute

// Agent wires the subsystem together. All collaborators are injected at
// construction; there is no lazily built shared client.
type Agent struct {
	store        *storage.Store
	tokens       *auth.TokenStore
	migrator     *migration.Coordinator
	engine       *syncer.Engine
	log          logging.Logger
	syncInterval time.Duration
}

func New(store *storage.Store, tokens *auth.TokenStore, migrator *migration.Coordinator, engine *syncer.Engine, log logging.Logger) *Agent {
	return &Agent{
		store:        store,
		tokens:       tokens,
		migrator:     migrator,
		engine:       engine,
		log:          log,
		syncInterval: DefaultSyncInterval,
	}
}

// SetSyncInterval overrides the periodic sync cadence. Zero disables it.
func (a *Agent) SetSyncInterval(d time.Duration) {
	a.syncInterval = d
}

// Handle dispatches one typed request. It implements bus.Handler.
func (a *Agent) Handle(ctx context.Context, req bus.Request) bus.Result {
	switch req.Kind {
	case bus.KindSubmissionCaptured:
		return a.handleSubmissionCaptured(ctx, req.Submission)
	case bus.KindSyncPending:
		return a.handleSyncPending(ctx)
	case bus.KindGetConfig:
		return a.handleGetConfig(ctx)
	case bus.KindCheckMigration:
		return a.handleCheckMigration(ctx)
	case bus.KindWebSessionSync:
		return a.handleWebSessionSync(ctx, req.Session)
	case bus.KindWebSignedOut:
		return a.handleWebSignedOut(ctx)
	case bus.KindGuestIDSync:
		return a.handleGuestIDSync(ctx, req.GuestID)
	default:
		return bus.Result{Success: false, Error: fmt.Sprintf("unknown request kind %q", req.Kind)}
	}
}

func (a *Agent) handleSubmissionCaptured(ctx context.Context, sub *models.StoredSubmission) bus.Result {
	if sub == nil {
		return bus.Result{Success: false, Error: "missing submission payload"}
	}
	s := *sub
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CapturedAt == 0 {
		s.CapturedAt = time.Now().Unix()
	}
	s.Synced = false

	if err := a.store.PrependSubmission(ctx, s); err != nil {
		return bus.Failure(err)
	}
	a.log.Info(ctx, "submission captured", "id", s.ID, "problem", s.ProblemSlug)
	return bus.Result{Success: true}
}

func (a *Agent) handleSyncPending(ctx context.Context) bus.Result {
	n, err := a.engine.SyncPendingSubmissions(ctx)
	if err != nil {
		return bus.Failure(err)
	}
	return bus.Result{Success: true, Synced: n}
}

func (a *Agent) handleGetConfig(ctx context.Context) bus.Result {
	cfg, guestID, err := a.store.Config(ctx)
	if err != nil {
		return bus.Failure(err)
	}
	return bus.Result{Success: true, Config: &cfg, GuestID: guestID}
}

func (a *Agent) handleCheckMigration(ctx context.Context) bus.Result {
	res := a.migrator.CheckAndMigrateGuestData(ctx)
	if !res.Success {
		return bus.Result{Success: false, Error: res.Error}
	}

	// A completed migration leaves previously synced submissions
	// re-flagged as pending, so chain straight into a sync.
	n, err := a.engine.SyncPendingSubmissions(ctx)
	if err != nil {
		a.log.Warn(ctx, "post-migration sync failed", "err", err)
	}
	return bus.Result{Success: true, Migrated: &res.Migrated, Synced: n}
}

func (a *Agent) handleWebSessionSync(ctx context.Context, session *models.SessionPayload) bus.Result {
	if session == nil || session.AccessToken == "" {
		return bus.Result{Success: false, Error: "missing session payload"}
	}
	// Last write wins. Replays and concurrent relays from multiple
	// watchers carry the same canonical session, so re-persisting is the
	// idempotent outcome the bridge relies on.
	err := a.tokens.SetTokens(ctx, models.AuthTokens{
		AccessToken:  session.AccessToken,
		RefreshToken: session.RefreshToken,
	})
	if err != nil {
		return bus.Failure(err)
	}
	return bus.Result{Success: true}
}

func (a *Agent) handleWebSignedOut(ctx context.Context) bus.Result {
	if err := a.tokens.ClearTokens(ctx); err != nil {
		return bus.Failure(err)
	}
	return bus.Result{Success: true}
}

// handleGuestIDSync adopts the web app's guest identity, but only when the
// agent has none of its own yet: an established local identity stays the
// migration source key.
func (a *Agent) handleGuestIDSync(ctx context.Context, guestID string) bus.Result {
	if guestID == "" {
		return bus.Result{Success: false, Error: "missing guest id"}
	}
	existing, err := a.store.GuestUserID(ctx)
	if err != nil {
		return bus.Failure(err)
	}
	if existing == "" {
		if err := a.store.SetGuestUserID(ctx, guestID); err != nil {
			return bus.Failure(err)
		}
		a.log.Info(ctx, "adopted web app guest identity", "guestUserId", guestID)
	}
	return bus.Result{Success: true}
}

// Run reacts to auth-state changes and drives the periodic sync timer
// until ctx is cancelled. Request dispatch happens separately via
// bus.Serve with this agent as the handler.
func (a *Agent) Run(ctx context.Context) {
	unsubscribe := a.tokens.OnAuthStateChange(func(user *models.AuthUser) {
		if user == nil {
			a.log.Info(ctx, "signed out")
			return
		}
		a.log.Info(ctx, "signed in", "userId", user.ID)
		// Run off the notification path: the callback fires inside the
		// write that persisted the tokens.
		go a.onSignIn(ctx)
	})
	defer unsubscribe()

	if a.syncInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(a.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := a.engine.SyncPendingSubmissions(ctx); err != nil {
				a.log.Warn(ctx, "periodic sync failed", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// onSignIn runs the migration check and then a sync. Both tolerate
// overlapping invocations, so no guard is needed against the periodic
// timer or an explicit request firing mid-way.
func (a *Agent) onSignIn(ctx context.Context) {
	if res := a.migrator.CheckAndMigrateGuestData(ctx); !res.Success {
		a.log.Warn(ctx, "migration check failed", "error", res.Error)
		return
	}
	if _, err := a.engine.SyncPendingSubmissions(ctx); err != nil {
		a.log.Warn(ctx, "post-sign-in sync failed", "err", err)
	}
}
