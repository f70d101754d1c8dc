package models

// MaxStoredSubmissions caps the local submission buffer. The list is kept
// newest-first; entries beyond the cap are dropped from the tail.
const MaxStoredSubmissions = 100

// StoredSubmission is one captured coding-practice submission buffered
// locally. Synced starts false and flips true only after a confirmed
// successful backend write. A successful guest migration resets Synced to
// false on every entry so they are re-pushed under the new identity.
type StoredSubmission struct {
	ID          string `json:"id"`
	ProblemSlug string `json:"problem_slug"`
	Title       string `json:"title,omitempty"`
	Language    string `json:"language,omitempty"`
	Status      string `json:"status,omitempty"`
	CapturedAt  int64  `json:"captured_at"`
	Synced      bool   `json:"synced"`
}

// MigratedCounts summarizes what a successful guest migration merged
// server-side.
type MigratedCounts struct {
	Submissions int `json:"submissions"`
	Problems    int `json:"problems"`
}

// MigrationResult is the body of the migration endpoint's response.
// Success must be explicitly true for the migration to count; anything
// else (including a 2xx with a malformed body) is a failure.
type MigrationResult struct {
	Success  bool           `json:"success"`
	Migrated MigratedCounts `json:"migrated"`
	Error    string         `json:"error,omitempty"`
}
