// Package migration performs the one-time merge of data recorded under the
// anonymous guest identity into the authenticated account.
//
// The central invariant: the migrationComplete flag is set if and only if
// a prior migration attempt is known to have fully succeeded. No
// intermediate or ambiguous backend response may set it, which is what
// makes the whole check safe to re-run from any trigger at any time.
package migration

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NicholasARossi/leetloop-sub000/internal/auth"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
	"github.com/NicholasARossi/leetloop-sub000/internal/storage"
)

// MigrateClient calls the backend migration endpoint, which is expected to
// be transactional and idempotent server-side.
type MigrateClient interface {
	MigrateGuestData(ctx context.Context, guestID, accessToken string) (*models.MigrationResult, error)
}

// Result is what a migration check returns to its trigger. Background
// triggers only log it; user-initiated triggers surface it.
type Result struct {
	Success  bool
	Migrated models.MigratedCounts
	Error    string
}

func failure(format string, args ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Coordinator checks for and performs the guest-to-account migration.
type Coordinator struct {
	store  *storage.Store
	tokens *auth.TokenStore
	client MigrateClient
	log    logging.Logger
}

func NewCoordinator(store *storage.Store, tokens *auth.TokenStore, client MigrateClient, log logging.Logger) *Coordinator {
	return &Coordinator{store: store, tokens: tokens, client: client, log: log}
}

// CheckAndMigrateGuestData runs the migration check. Each step is a
// short-circuit exit; the sequence is idempotent and safe to repeat from
// scratch, including after the agent is killed mid-run. Two interleaved
// runs converge: the second either finds the flag already set or re-sends
// the idempotent backend request.
func (c *Coordinator) CheckAndMigrateGuestData(ctx context.Context) Result {
	user := c.tokens.GetAuthUser(ctx)
	if user == nil {
		return failure("not authenticated")
	}

	complete, err := c.store.MigrationComplete(ctx)
	if err != nil {
		return failure("reading migration flag: %v", err)
	}
	if complete {
		return Result{Success: true}
	}

	guestID, err := c.store.GuestUserID(ctx)
	if err != nil {
		return failure("reading guest id: %v", err)
	}

	// Nothing was ever recorded under a guest identity, or the backend
	// already unified the two ids. Either way there is nothing to merge.
	if guestID == "" || guestID == user.ID {
		if err := c.store.SetMigrationComplete(ctx, true); err != nil {
			return failure("marking migration complete: %v", err)
		}
		return Result{Success: true}
	}

	accessToken, err := c.tokens.GetValidAccessToken(ctx)
	if err != nil || accessToken == "" {
		return failure("no valid access token for migration")
	}

	c.log.Info(ctx, "migrating guest data", "guestUserId", guestID, "userId", user.ID)

	res, err := c.client.MigrateGuestData(ctx, guestID, accessToken)
	if err != nil {
		c.log.Warn(ctx, "migration request failed, will retry on next trigger", "err", err)
		return failure("migration request: %v", err)
	}
	if !res.Success {
		c.log.Warn(ctx, "backend rejected migration", "error", res.Error)
		return failure("backend rejected migration: %s", res.Error)
	}

	if err := c.finalize(ctx, user.ID); err != nil {
		// The backend merge succeeded but local bookkeeping did not; the
		// flag stays unset so the next run repeats the idempotent call.
		return failure("finalizing migration: %v", err)
	}

	c.log.Info(ctx, "guest migration complete",
		"submissions", res.Migrated.Submissions, "problems", res.Migrated.Problems)
	return Result{Success: true, Migrated: res.Migrated}
}

// finalize records local state after a confirmed backend merge: the flag
// flips true, the stored guest id is re-keyed to the account id, and every
// buffered submission drops back to unsynced so the sync engine re-pushes
// it under the corrected identity. The three writes share one transaction
// so a crash cannot set the flag while leaving the rest stale.
func (c *Coordinator) finalize(ctx context.Context, userID string) error {
	subs, err := c.store.Submissions(ctx)
	if err != nil {
		return err
	}
	for i := range subs {
		subs[i].Synced = false
	}
	raw, err := json.Marshal(subs)
	if err != nil {
		return err
	}

	return c.store.WithTx(ctx, func(ctx context.Context, repo *storage.SQLiteRepository) error {
		if err := repo.Set(ctx, storage.KeyMigrationComplete, []byte("true")); err != nil {
			return err
		}
		if err := repo.Set(ctx, storage.KeyGuestUserID, []byte(userID)); err != nil {
			return err
		}
		return repo.Set(ctx, storage.KeySubmissions, raw)
	})
}
