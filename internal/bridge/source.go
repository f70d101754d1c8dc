// Package bridge watches the companion web app's exported session state
// and relays it into the agent. It is the one component that runs against
// state the agent does not own: the file is written by the web app (and by
// any of its tabs), so its contents are treated as untrusted input that
// may be missing, partial, or stale at any read.
package bridge

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"

	"github.com/NicholasARossi/leetloop-sub000/internal/models"
)

// State mirrors the web app's locally stored session representation: the
// session blob, its guest id, and its own migration flag (informational
// only on this side).
type State struct {
	Session           *models.SessionPayload `json:"session"`
	GuestUserID       string                 `json:"guestUserId"`
	MigrationComplete bool                   `json:"migrationComplete"`
}

// Equal reports whether two observations carry the same content. Change
// detection compares content rather than file timestamps: two writes
// landing within one timestamp tick must still both be observed.
func (s *State) Equal(other *State) bool {
	if other == nil {
		return false
	}
	if (s.Session == nil) != (other.Session == nil) {
		return false
	}
	if s.Session != nil && *s.Session != *other.Session {
		return false
	}
	return s.GuestUserID == other.GuestUserID &&
		s.MigrationComplete == other.MigrationComplete
}

// StateSource yields the current web app state.
type StateSource interface {
	// Load returns the state. A source that has never been written
	// returns (nil, nil): absence is normal, not an error.
	Load() (*State, error)
}

// FileSource reads the state from a JSON file, the rendition of the web
// app's local storage. Any tab's write mutates the same file, so sign-ins
// performed elsewhere are still observed here.
type FileSource struct {
	Path string
}

func (f *FileSource) Load() (*State, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var state State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, err
	}
	return &state, nil
}
