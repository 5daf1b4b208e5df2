package auth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/sptool/internal/models"
	"golang.org/x/oauth2"
)

// Storage keys. The names match the ones the original browser tool used so an exported store stays readable.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyExpiresIn    = "expires_in"
	KeyExpires      = "expires"
	KeyVerifier     = "code_verifier"
	KeyState        = "oauth_state"
	KeyProfile      = "user-data"
	KeyArtists      = "artists-array"
	KeyLastInput    = "last-artist-input"
)

// TokenStore persists the session, the PKCE verifier and the cached profile through a [models.Store].
type TokenStore struct {
	store models.Store
	now   func() time.Time
}

// NewTokenStore wraps store. A nil now defaults to [time.Now].
func NewTokenStore(store models.Store, now func() time.Time) *TokenStore {
	if now == nil {
		now = time.Now
	}
	return &TokenStore{store: store, now: now}
}

// Store returns the underlying key-value store
func (t *TokenStore) Store() models.Store { return t.store }

// Now returns the current time according to the store's clock
func (t *TokenStore) Now() time.Time { return t.now() }

// Session returns the persisted session. ok is false when no access token is stored.
func (t *TokenStore) Session() (models.Session, bool, error) {
	var s models.Session

	access, ok, err := t.store.Get(KeyAccessToken)
	if err != nil {
		return s, false, fmt.Errorf("failed to read access token: %w", err)
	}
	if !ok || access == "" {
		return s, false, nil
	}
	s.AccessToken = access

	if s.RefreshToken, _, err = t.store.Get(KeyRefreshToken); err != nil {
		return s, false, fmt.Errorf("failed to read refresh token: %w", err)
	}

	if raw, ok, err := t.store.Get(KeyExpiresIn); err != nil {
		return s, false, fmt.Errorf("failed to read expires_in: %w", err)
	} else if ok && raw != "" {
		if s.ExpiresIn, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return s, false, fmt.Errorf("malformed expires_in %q: %w", raw, err)
		}
	}

	if raw, ok, err := t.store.Get(KeyExpires); err != nil {
		return s, false, fmt.Errorf("failed to read expiry: %w", err)
	} else if ok && raw != "" {
		if s.ExpiresAt, err = time.Parse(time.RFC3339, raw); err != nil {
			return s, false, fmt.Errorf("malformed expiry %q: %w", raw, err)
		}
	}

	return s, true, nil
}

// Save persists a token payload.
//
// The absolute expiry is derived from the issue time (now) plus expires_in.
// An empty refresh token in tok leaves the stored one in place.
func (t *TokenStore) Save(tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return fmt.Errorf("refusing to save a token without an access token")
	}

	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(tok.Expiry.Sub(t.now()).Round(time.Second) / time.Second)
	}

	values := [][2]string{
		{KeyAccessToken, tok.AccessToken},
		{KeyExpiresIn, strconv.FormatInt(expiresIn, 10)},
		{KeyExpires, t.now().Add(time.Duration(expiresIn) * time.Second).UTC().Format(time.RFC3339)},
	}
	if tok.RefreshToken != "" {
		values = append(values, [2]string{KeyRefreshToken, tok.RefreshToken})
	}

	for _, kv := range values {
		if err := t.store.Set(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to save %s: %w", kv[0], err)
		}
	}
	return nil
}

// Verifier returns the stored PKCE verifier
func (t *TokenStore) Verifier() (string, bool, error) {
	v, ok, err := t.store.Get(KeyVerifier)
	if err != nil {
		return "", false, fmt.Errorf("failed to read verifier: %w", err)
	}
	return v, ok && v != "", nil
}

func (t *TokenStore) SetVerifier(v string) error { return t.store.Set(KeyVerifier, v) }
func (t *TokenStore) DeleteVerifier() error { return t.store.Delete(KeyVerifier) }

// OAuthState returns the state value sent with the pending authorization request
func (t *TokenStore) OAuthState() (string, bool, error) {
	v, ok, err := t.store.Get(KeyState)
	if err != nil {
		return "", false, fmt.Errorf("failed to read oauth state: %w", err)
	}
	return v, ok && v != "", nil
}

func (t *TokenStore) SetOAuthState(s string) error { return t.store.Set(KeyState, s) }

// Profile returns the cached user profile
func (t *TokenStore) Profile() (*models.Profile, bool, error) {
	raw, ok, err := t.store.Get(KeyProfile)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read profile: %w", err)
	}
	if !ok || raw == "" {
		return nil, false, nil
	}

	var p models.Profile
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false, fmt.Errorf("malformed cached profile: %w", err)
	}
	return &p, true, nil
}

// SetProfile caches p
func (t *TokenStore) SetProfile(p *models.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	return t.store.Set(KeyProfile, string(data))
}

// ClearAll removes every persisted key, including the working set
func (t *TokenStore) ClearAll() error {
	if err := t.store.Clear(); err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}
