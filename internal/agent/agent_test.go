package agent

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/NicholasARossi/leetloop-sub000/internal/auth"
	"github.com/NicholasARossi/leetloop-sub000/internal/bus"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
	"github.com/NicholasARossi/leetloop-sub000/internal/migration"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
	"github.com/NicholasARossi/leetloop-sub000/internal/storage"
	"github.com/NicholasARossi/leetloop-sub000/internal/syncer"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeBackend is shared between the dispatch tests and the Run-loop
// tests, where background goroutines hit it; counters are mutex-guarded.
type fakeBackend struct {
	mu         sync.Mutex
	migrations int
	pushes     int
	migrateOK  bool
}

func (f *fakeBackend) MigrateGuestData(ctx context.Context, guestID, accessToken string) (*models.MigrationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.migrations++
	return &models.MigrationResult{Success: f.migrateOK, Migrated: models.MigratedCounts{Submissions: 1}}, nil
}

func (f *fakeBackend) PushSubmission(ctx context.Context, sub models.StoredSubmission, userID, accessToken string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes++
	return nil
}

func (f *fakeBackend) counts() (migrations, pushes int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.migrations, f.pushes
}

func setupAgent(t *testing.T) (*Agent, *storage.Store, *fakeBackend) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE kv (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);`)
	require.NoError(t, err)

	log := testLogger()
	store := storage.NewStore(db, log)
	backend := &fakeBackend{migrateOK: true}
	tokens := auth.NewTokenStore(store, nil, log)
	migrator := migration.NewCoordinator(store, tokens, backend, log)
	engine := syncer.NewEngine(store, tokens, backend, log)

	return New(store, tokens, migrator, engine, log), store, backend
}

func sessionFor(t *testing.T, sub string) *models.SessionPayload {
	t.Helper()
	claims := jwt.MapClaims{"sub": sub, "exp": time.Now().Add(time.Hour).Unix()}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	require.NoError(t, err)
	return &models.SessionPayload{AccessToken: access, RefreshToken: "r"}
}

func TestHandle_WebSessionSync_PersistsAndIsIdempotent(t *testing.T) {
	a, store, _ := setupAgent(t)
	ctx := context.Background()
	session := sessionFor(t, "u1")

	res := a.Handle(ctx, bus.Request{Kind: bus.KindWebSessionSync, Session: session})
	require.True(t, res.Success, res.Error)

	// replaying the same message must not corrupt state
	res = a.Handle(ctx, bus.Request{Kind: bus.KindWebSessionSync, Session: session})
	require.True(t, res.Success, res.Error)

	raw, err := store.Get(ctx, storage.KeyAuthTokens)
	require.NoError(t, err)
	require.NotNil(t, raw)
}

func TestHandle_WebSignedOut_TwiceIsNoop(t *testing.T) {
	a, store, _ := setupAgent(t)
	ctx := context.Background()

	res := a.Handle(ctx, bus.Request{Kind: bus.KindWebSessionSync, Session: sessionFor(t, "u1")})
	require.True(t, res.Success)

	res = a.Handle(ctx, bus.Request{Kind: bus.KindWebSignedOut})
	require.True(t, res.Success, res.Error)
	res = a.Handle(ctx, bus.Request{Kind: bus.KindWebSignedOut})
	require.True(t, res.Success, "second sign-out is a no-op")

	raw, err := store.Get(ctx, storage.KeyAuthTokens)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestHandle_SubmissionCaptured_AssignsIDAndBuffers(t *testing.T) {
	a, store, _ := setupAgent(t)
	ctx := context.Background()

	res := a.Handle(ctx, bus.Request{
		Kind:       bus.KindSubmissionCaptured,
		Submission: &models.StoredSubmission{ProblemSlug: "two-sum", Synced: true},
	})
	require.True(t, res.Success, res.Error)

	subs, err := store.Submissions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.NotEmpty(t, subs[0].ID)
	assert.NotZero(t, subs[0].CapturedAt)
	assert.False(t, subs[0].Synced, "captured entries always start unsynced")
}

func TestHandle_CheckMigration_ChainsIntoSync(t *testing.T) {
	a, store, backend := setupAgent(t)
	ctx := context.Background()

	require.NoError(t, store.SetGuestUserID(ctx, "g1"))
	require.NoError(t, store.SaveSubmissions(ctx, []models.StoredSubmission{
		{ID: "s1", Synced: true},
	}))

	res := a.Handle(ctx, bus.Request{Kind: bus.KindWebSessionSync, Session: sessionFor(t, "a1")})
	require.True(t, res.Success)

	res = a.Handle(ctx, bus.Request{Kind: bus.KindCheckMigration})
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Migrated)
	assert.Equal(t, 1, res.Migrated.Submissions)
	assert.Equal(t, 1, res.Synced, "re-flagged submission pushed right after migration")
	m, p := backend.counts()
	assert.Equal(t, 1, m)
	assert.Equal(t, 1, p)
}

func TestHandle_GetConfig_IssuesGuestID(t *testing.T) {
	a, _, _ := setupAgent(t)

	res := a.Handle(context.Background(), bus.Request{Kind: bus.KindGetConfig})
	require.True(t, res.Success, res.Error)
	require.NotNil(t, res.Config)
	assert.True(t, res.Config.Enabled)
	assert.NotEmpty(t, res.GuestID)
}

func TestHandle_GuestIDSync_DoesNotOverwriteExisting(t *testing.T) {
	a, store, _ := setupAgent(t)
	ctx := context.Background()

	res := a.Handle(ctx, bus.Request{Kind: bus.KindGuestIDSync, GuestID: "web-guest"})
	require.True(t, res.Success)

	got, err := store.GuestUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "web-guest", got)

	res = a.Handle(ctx, bus.Request{Kind: bus.KindGuestIDSync, GuestID: "other-guest"})
	require.True(t, res.Success)

	got, err = store.GuestUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "web-guest", got, "established identity is kept")
}

func TestHandle_UnknownKind_StructuredFailure(t *testing.T) {
	a, _, _ := setupAgent(t)

	res := a.Handle(context.Background(), bus.Request{Kind: "NOPE"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "NOPE")
}
