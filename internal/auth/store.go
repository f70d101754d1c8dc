package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/NicholasARossi/leetloop-sub000/internal/common"
	"github.com/NicholasARossi/leetloop-sub000/internal/logging"
	"github.com/NicholasARossi/leetloop-sub000/internal/models"
	"github.com/NicholasARossi/leetloop-sub000/internal/storage"
	"golang.org/x/sync/singleflight"
)

// refreshSkew is how long before expiry a token is already considered
// stale. It absorbs clock skew and in-flight request latency.
const refreshSkew = 60

// fallbackTokenTTL is assumed when the backend sends no expiry and the
// access token's exp claim cannot be decoded.
const fallbackTokenTTL = 3600

// Refresher exchanges a refresh token for a new token pair. Implemented by
// the backend api.Client; a 401 must surface as common.ErrorUnauthorized.
type Refresher interface {
	RefreshSession(ctx context.Context, refreshToken string) (*models.AuthTokens, error)
}

// TokenStore persists the single AuthTokens value and derives the advisory
// AuthUser projection from it. All reads fail soft: an undecodable or
// missing token means "unauthenticated", never an error.
type TokenStore struct {
	store     *storage.Store
	refresher Refresher
	log       logging.Logger
	now       func() time.Time

	// Collapses concurrent refreshes into one in-flight call so parallel
	// requests cannot burn the same refresh token twice.
	refreshGroup singleflight.Group
}

func NewTokenStore(store *storage.Store, refresher Refresher, log logging.Logger) *TokenStore {
	return &TokenStore{
		store:     store,
		refresher: refresher,
		log:       log,
		now:       time.Now,
	}
}

// SetTokens persists tokens, deriving ExpiresAt from the access token's
// exp claim when the caller did not supply one. Last write wins: replayed
// session relays simply re-persist the same canonical value.
func (t *TokenStore) SetTokens(ctx context.Context, tokens models.AuthTokens) error {
	if tokens.ExpiresAt == 0 {
		if claims, err := decodeClaims(tokens.AccessToken); err == nil && claims.Expiry > 0 {
			tokens.ExpiresAt = claims.Expiry
		} else {
			tokens.ExpiresAt = t.now().Unix() + fallbackTokenTTL
		}
	}

	raw, err := json.Marshal(tokens)
	if err != nil {
		return err
	}
	return t.store.Set(ctx, storage.KeyAuthTokens, raw)
}

// GetTokens returns the persisted tokens, or nil if absent or undecodable.
func (t *TokenStore) GetTokens(ctx context.Context) (*models.AuthTokens, error) {
	raw, err := t.store.Get(ctx, storage.KeyAuthTokens)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	var tokens models.AuthTokens
	if err := json.Unmarshal(raw, &tokens); err != nil {
		t.log.Warn(ctx, "stored tokens undecodable, treating as signed out", "err", err)
		return nil, nil
	}
	return &tokens, nil
}

// ClearTokens removes the current token entry and the legacy-named one, so
// profiles migrated off the prior storage scheme hold no orphaned state.
func (t *TokenStore) ClearTokens(ctx context.Context) error {
	if err := t.store.Delete(ctx, storage.KeyAuthTokens); err != nil {
		return err
	}
	return t.store.Delete(ctx, storage.KeyLegacySession)
}

// GetAuthUser returns the advisory user projection, or nil when there are
// no tokens or the claims cannot be decoded.
func (t *TokenStore) GetAuthUser(ctx context.Context) *models.AuthUser {
	tokens, err := t.GetTokens(ctx)
	if err != nil || tokens == nil {
		return nil
	}
	return userFromAccessToken(tokens.AccessToken)
}

func userFromAccessToken(accessToken string) *models.AuthUser {
	claims, err := decodeClaims(accessToken)
	if err != nil {
		return nil
	}
	return &models.AuthUser{ID: claims.Subject, Email: claims.Email}
}

// GetValidAccessToken returns a usable access token, refreshing first when
// the current one is within refreshSkew seconds of expiry.
//
// Outcomes of a refresh attempt:
//   - success: new tokens persisted, new access token returned;
//   - 401: terminal revocation, all tokens cleared, "" returned;
//   - anything else: "" returned with tokens left intact, so a transient
//     outage does not force a sign-out.
func (t *TokenStore) GetValidAccessToken(ctx context.Context) (string, error) {
	tokens, err := t.GetTokens(ctx)
	if err != nil {
		return "", err
	}
	if tokens == nil {
		return "", nil
	}

	if tokens.ExpiresAt-t.now().Unix() >= refreshSkew {
		return tokens.AccessToken, nil
	}
	if tokens.RefreshToken == "" {
		return "", nil
	}

	v, err, _ := t.refreshGroup.Do(storage.KeyAuthTokens, func() (any, error) {
		return t.refresh(ctx, tokens.RefreshToken)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (t *TokenStore) refresh(ctx context.Context, refreshToken string) (string, error) {
	fresh, err := t.refresher.RefreshSession(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, common.ErrorUnauthorized) {
			t.log.Info(ctx, "refresh token revoked, clearing session")
			if clearErr := t.ClearTokens(ctx); clearErr != nil {
				return "", clearErr
			}
			return "", nil
		}
		t.log.Warn(ctx, "session refresh failed, keeping tokens", "err", err)
		return "", nil
	}

	if err := t.SetTokens(ctx, *fresh); err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// OnAuthStateChange subscribes callback to changes of the persisted
// tokens. It receives the new advisory user, or nil when tokens were
// removed or became undecodable. Returns an unsubscribe handle.
func (t *TokenStore) OnAuthStateChange(callback func(user *models.AuthUser)) (unsubscribe func()) {
	return t.store.Watch(storage.KeyAuthTokens, func(value []byte) {
		if value == nil {
			callback(nil)
			return
		}
		var tokens models.AuthTokens
		if err := json.Unmarshal(value, &tokens); err != nil {
			callback(nil)
			return
		}
		callback(userFromAccessToken(tokens.AccessToken))
	})
}
