package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/NicholasARossi/leetloop-sub000/internal/common"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestRefreshSession_Success(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/refresh", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "rt-1", body["refresh_token"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-2",
			"refresh_token": "rt-2",
			"expires_in":    3600,
		})
	})

	tokens, err := client.RefreshSession(context.Background(), "rt-1")
	require.NoError(t, err)
	assert.Equal(t, "at-2", tokens.AccessToken)
	assert.Equal(t, "rt-2", tokens.RefreshToken)
	assert.InDelta(t, time.Now().Unix()+3600, tokens.ExpiresAt, 5)
}

func TestRefreshSession_401IsUnauthorizedSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.RefreshSession(context.Background(), "rt-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorUnauthorized))
}

func TestRefreshSession_ServerErrorIsPlainError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.RefreshSession(context.Background(), "rt-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, common.ErrorUnauthorized))
}

func TestRefreshSession_Malformed2xxIsFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unexpected":`))
	})

	_, err := client.RefreshSession(context.Background(), "rt-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorBadResponse))
}

func TestRefreshSession_MissingAccessTokenIsFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"expires_in": 3600})
	})

	_, err := client.RefreshSession(context.Background(), "rt-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorBadResponse))
}

func TestMigrateGuestData_SendsBearerAndGuestID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/auth/migrate", r.URL.Path)
		require.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "g1", body["guest_id"])

		_ = json.NewEncoder(w).Encode(models.MigrationResult{
			Success:  true,
			Migrated: models.MigratedCounts{Submissions: 3},
		})
	})

	res, err := client.MigrateGuestData(context.Background(), "g1", "at-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Migrated.Submissions)
}

func TestMigrateGuestData_Malformed2xxIsFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	})

	_, err := client.MigrateGuestData(context.Background(), "g1", "at-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrorBadResponse))
}

func TestPushSubmission_AttachesUserID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/submissions", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "u1", body["user_id"])
		assert.Equal(t, "two-sum", body["problem_slug"])

		w.WriteHeader(http.StatusCreated)
	})

	err := client.PushSubmission(context.Background(),
		models.StoredSubmission{ID: "s1", ProblemSlug: "two-sum"}, "u1", "at-1")
	require.NoError(t, err)
}

func TestPushSubmission_Non2xxIsError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	err := client.PushSubmission(context.Background(),
		models.StoredSubmission{ID: "s1"}, "u1", "")
	require.Error(t, err)
}
