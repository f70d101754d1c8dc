// Package storage implements the agent's durable key–value store: a small
// SQLite-backed table holding the config record, the submission buffer,
// the guest identity, the migration flag, and the persisted auth tokens.
//
// Every component may write to it and no locking spans processes, so each
// read-modify-write here must assume its snapshot can be stale; callers
// are designed for eventual convergence (idempotent checks), not strict
// serializability.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/NicholasARossi/leetloop-sub000/internal/dbx"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
	"github.com/google/uuid"
)

// Storage keys. KeyAuthTokens holds the single persisted AuthTokens value;
// KeyLegacySession is a prior storage scheme's name for it and is only
// ever deleted, never written, so sign-out leaves no orphaned state.
const (
	KeyConfig            = "config"
	KeySubmissions       = "submissions"
	KeyGuestUserID       = "guestUserId"
	KeyMigrationComplete = "migrationComplete"
	KeyAuthTokens        = "authTokens"
	KeyLegacySession     = "session"
)

// WatchFunc receives the new raw value for a watched key, or nil when the
// key was removed.
type WatchFunc func(value []byte)

type watcher struct {
	key string
	fn  WatchFunc
}

// Store wraps the key–value repository with typed accessors and in-process
// change notification. Notifications fire only for writes that go through
// this Store instance; cross-process observers converge by re-reading.
type Store struct {
	db   *sql.DB
	repo *SQLiteRepository
	log  logging.Logger

	mu       sync.Mutex
	watchers map[int]watcher
	nextID   int
}

func NewStore(db *sql.DB, log logging.Logger) *Store {
	return &Store{
		db:       db,
		repo:     NewSQLiteRepository(db),
		log:      log,
		watchers: make(map[int]watcher),
	}
}

// Get returns the raw value for key, or (nil, nil) if absent.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	return s.repo.Get(ctx, key)
}

// Set upserts the raw value for key and notifies watchers.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.repo.Set(ctx, key, value); err != nil {
		return err
	}
	s.notify(key, value)
	return nil
}

// Delete removes key and notifies watchers with a nil value.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	s.notify(key, nil)
	return nil
}

// List returns every key–value pair. Debug surface only.
func (s *Store) List(ctx context.Context) (map[string][]byte, error) {
	return s.repo.List(ctx)
}

// Watch subscribes fn to changes of key. The returned function removes the
// subscription and is safe to call more than once.
func (s *Store) Watch(key string, fn WatchFunc) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = watcher{key: key, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify(key string, value []byte) {
	s.mu.Lock()
	fns := make([]WatchFunc, 0, len(s.watchers))
	for _, w := range s.watchers {
		if w.key == key {
			fns = append(fns, w.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Submissions returns the buffered submission list, newest first. An absent
// key yields an empty list.
func (s *Store) Submissions(ctx context.Context) ([]models.StoredSubmission, error) {
	raw, err := s.repo.Get(ctx, KeySubmissions)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return []models.StoredSubmission{}, nil
	}

	var subs []models.StoredSubmission
	if err := json.Unmarshal(raw, &subs); err != nil {
		return nil, fmt.Errorf("failed to decode submissions: %w", err)
	}
	return subs, nil
}

// SaveSubmissions persists the full submission list in one write, trimming
// it to the cap first.
func (s *Store) SaveSubmissions(ctx context.Context, subs []models.StoredSubmission) error {
	if len(subs) > models.MaxStoredSubmissions {
		subs = subs[:models.MaxStoredSubmissions]
	}
	raw, err := json.Marshal(subs)
	if err != nil {
		return fmt.Errorf("failed to encode submissions: %w", err)
	}
	return s.Set(ctx, KeySubmissions, raw)
}

// PrependSubmission inserts sub at index 0 and drops entries beyond the cap.
func (s *Store) PrependSubmission(ctx context.Context, sub models.StoredSubmission) error {
	subs, err := s.Submissions(ctx)
	if err != nil {
		return err
	}
	subs = append([]models.StoredSubmission{sub}, subs...)
	return s.SaveSubmissions(ctx, subs)
}

// GuestUserID returns the stored guest identity, or "" if none was ever
// recorded. It never issues one; see EnsureGuestUserID.
func (s *Store) GuestUserID(ctx context.Context) (string, error) {
	raw, err := s.repo.Get(ctx, KeyGuestUserID)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

// SetGuestUserID overwrites the stored guest identity. Used after a
// successful migration to re-key the source identity to the account id.
func (s *Store) SetGuestUserID(ctx context.Context, id string) error {
	return s.Set(ctx, KeyGuestUserID, []byte(id))
}

// EnsureGuestUserID returns the stored guest identity, generating and
// persisting a fresh UUID the first time it is needed. The value persists
// across sign-in/out: it is the migration source key.
func (s *Store) EnsureGuestUserID(ctx context.Context) (string, error) {
	id, err := s.GuestUserID(ctx)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}

	id = uuid.NewString()
	if err := s.Set(ctx, KeyGuestUserID, []byte(id)); err != nil {
		return "", err
	}
	s.log.Info(ctx, "issued guest identity", "guestUserId", id)
	return id, nil
}

// MigrationComplete reports whether a prior guest migration is known to
// have fully succeeded. Absent key means false.
func (s *Store) MigrationComplete(ctx context.Context) (bool, error) {
	raw, err := s.repo.Get(ctx, KeyMigrationComplete)
	if err != nil {
		return false, err
	}
	return string(raw) == "true", nil
}

// SetMigrationComplete writes the migration flag. The flag is monotonic in
// normal operation; only the explicit debug reset clears it.
func (s *Store) SetMigrationComplete(ctx context.Context, complete bool) error {
	if !complete {
		return s.Delete(ctx, KeyMigrationComplete)
	}
	return s.Set(ctx, KeyMigrationComplete, []byte("true"))
}

// Config returns the stored config record, creating the default one on
// first read. Guest identity is issued lazily here as well, so any surface
// that reads config has an effective id to attribute writes to.
func (s *Store) Config(ctx context.Context) (models.StoredConfig, string, error) {
	guestID, err := s.EnsureGuestUserID(ctx)
	if err != nil {
		return models.StoredConfig{}, "", err
	}

	raw, err := s.repo.Get(ctx, KeyConfig)
	if err != nil {
		return models.StoredConfig{}, "", err
	}
	if raw == nil {
		cfg := models.DefaultStoredConfig()
		if err := s.SaveConfig(ctx, cfg); err != nil {
			return models.StoredConfig{}, "", err
		}
		return cfg, guestID, nil
	}

	var cfg models.StoredConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return models.StoredConfig{}, "", fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, guestID, nil
}

// SaveConfig persists the stored config record.
func (s *Store) SaveConfig(ctx context.Context, cfg models.StoredConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return s.Set(ctx, KeyConfig, raw)
}

// WithTx runs fn against a transactional repository. The submission
// re-flagging done after a migration uses this to keep the flag update and
// the list rewrite in one transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repo *SQLiteRepository) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, NewSQLiteRepository(tx))
	})
}
