// Package api is the HTTP client for the three backend endpoints the agent
// consumes: session refresh, guest migration, and submission push. All
// requests are JSON; where a token is available it travels as a bearer
// Authorization header.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/NicholasARossi/leetloop-sub000/internal/common"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
)

// Client talks to the capture backend. It is constructed once at startup
// and passed to every component that needs it; there is no package-level
// shared instance.
type Client struct {
	baseURL string
	http    *http.Client
	now     func() time.Time
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body any, bearer string) (*http.Response, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	return c.http.Do(req)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// RefreshSession exchanges a refresh token for a new token pair.
//
// A 401 response returns common.ErrorUnauthorized so callers can treat it
// as terminal revocation; every other failure (network, non-2xx, malformed
// body) is a plain error and must be treated as transient.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*models.AuthTokens, error) {
	resp, err := c.postJSON(ctx, "/api/auth/refresh", refreshRequest{RefreshToken: refreshToken}, "")
	if err != nil {
		return nil, fmt.Errorf("refresh request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, common.ErrorUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("refresh failed: %s", resp.Status)
	}

	var body refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding refresh response: %v", common.ErrorBadResponse, err)
	}
	if body.AccessToken == "" {
		return nil, fmt.Errorf("%w: refresh response missing access token", common.ErrorBadResponse)
	}

	return &models.AuthTokens{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    c.now().Unix() + body.ExpiresIn,
	}, nil
}

type migrateRequest struct {
	GuestID string `json:"guest_id"`
}

// MigrateGuestData asks the backend to merge guest-scoped rows into the
// authenticated account. The endpoint is expected to be transactional and
// idempotent server-side. A 2xx status alone is not success: the body must
// carry an explicit success flag, which the caller checks.
func (c *Client) MigrateGuestData(ctx context.Context, guestID, accessToken string) (*models.MigrationResult, error) {
	resp, err := c.postJSON(ctx, "/api/auth/migrate", migrateRequest{GuestID: guestID}, accessToken)
	if err != nil {
		return nil, fmt.Errorf("migrate request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("migrate failed: %s; body: %s", resp.Status, string(b))
	}

	var result models.MigrationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decoding migrate response: %v", common.ErrorBadResponse, err)
	}
	return &result, nil
}

type submissionRequest struct {
	models.StoredSubmission
	UserID string `json:"user_id"`
}

// PushSubmission posts one captured submission attributed to userID
// (authenticated id when signed in, guest id otherwise).
func (c *Client) PushSubmission(ctx context.Context, sub models.StoredSubmission, userID, accessToken string) error {
	resp, err := c.postJSON(ctx, "/api/submissions", submissionRequest{StoredSubmission: sub, UserID: userID}, accessToken)
	if err != nil {
		return fmt.Errorf("submission request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("submission push failed: %s", resp.Status)
	}
	return nil
}
