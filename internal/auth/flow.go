package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptool/internal/shared"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// State is the position of the session in the login lifecycle
type State int

const (
	Anonymous State = iota
	AwaitingCallback
	Authenticated
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case AwaitingCallback:
		return "awaiting callback"
	case Authenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Navigator sends the user agent to a URL
type Navigator interface {
	Navigate(url string) error
}

// DefaultScopes are requested when the configuration names none
var DefaultScopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistReadPrivate,
}

// FlowOpts configures a [Flow]
type FlowOpts struct {
	Config     shared.SpotifyConfig
	Tokens     *TokenStore
	Navigator  Navigator
	Logger     *log.Logger
	HTTPClient *http.Client // Used for token requests; nil uses [http.DefaultClient]
	OnLogout   func()       // Fired after every logout
	Busy       func() bool  // Refresh is refused while it reports true
}

// Flow drives the Authorization Code + PKCE login and the session lifecycle
type Flow struct {
	conf       *oauth2.Config
	tokens     *TokenStore
	nav        Navigator
	logger     *log.Logger
	httpClient *http.Client
	onLogout   func()
	busy       func() bool

	mu    sync.Mutex
	state State
}

// NewFlow builds a [Flow] from opts.
//
// The initial state is derived from the store: a saved session is AUTHENTICATED, a pending verifier is AWAITING_CALLBACK.
func NewFlow(opts FlowOpts) (*Flow, error) {
	if opts.Tokens == nil {
		return nil, fmt.Errorf("%w: token store is required", shared.ErrInvalidArgument)
	}
	if opts.Config.ClientID == "" {
		return nil, fmt.Errorf("%w: client_id is required", shared.ErrMissingConfig)
	}

	authURL, tokenURL := opts.Config.AuthURL, opts.Config.TokenURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}

	scopes := opts.Config.Scopes
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	f := &Flow{
		conf: &oauth2.Config{
			ClientID:     opts.Config.ClientID,
			ClientSecret: opts.Config.ClientSecret,
			RedirectURL:  opts.Config.RedirectURI,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		tokens:     opts.Tokens,
		nav:        opts.Navigator,
		logger:     logger,
		httpClient: opts.HTTPClient,
		onLogout:   opts.OnLogout,
		busy:       opts.Busy,
	}

	if _, ok, err := f.tokens.Session(); err != nil {
		return nil, err
	} else if ok {
		f.state = Authenticated
	} else if _, ok, err := f.tokens.Verifier(); err != nil {
		return nil, err
	} else if ok {
		f.state = AwaitingCallback
	}

	return f, nil
}

// State returns the current lifecycle state
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

// SetBusy installs the guard consulted by [Flow.Refresh]
func (f *Flow) SetBusy(busy func() bool) { f.busy = busy }

// SetOnLogout installs the hook fired after every logout
func (f *Flow) SetOnLogout(fn func()) { f.onLogout = fn }

// Tokens returns the flow's token store
func (f *Flow) Tokens() *TokenStore { return f.tokens }

func (f *Flow) context(ctx context.Context) context.Context {
	if f.httpClient != nil {
		return context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}
	return ctx
}

// BeginLogin generates and persists a verifier and state, then sends the user agent to the authorization URL.
//
// The URL is returned even when navigation fails so callers can print it.
func (f *Flow) BeginLogin(ctx context.Context) (string, error) {
	verifier, err := GenerateVerifier()
	if err != nil {
		return "", err
	}
	state, err := shared.GenerateState()
	if err != nil {
		return "", err
	}

	if err := f.tokens.SetVerifier(verifier); err != nil {
		return "", fmt.Errorf("failed to persist verifier: %w", err)
	}
	if err := f.tokens.SetOAuthState(state); err != nil {
		return "", fmt.Errorf("failed to persist state: %w", err)
	}

	authURL := f.conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	f.setState(AwaitingCallback)

	if f.nav == nil {
		return authURL, nil
	}
	if err := f.nav.Navigate(authURL); err != nil {
		f.logger.Warn("could not open browser", "error", err)
		return authURL, err
	}
	return authURL, nil
}

// CheckState compares got with the state sent by [Flow.BeginLogin]
func (f *Flow) CheckState(got string) error {
	want, ok, err := f.tokens.OAuthState()
	if err != nil {
		return err
	}
	if !ok || got != want {
		return shared.ErrStateMismatch
	}
	return nil
}

// CompleteLogin exchanges an authorization code and the stored verifier for a token.
//
// The verifier is single use and is deleted whatever the outcome. On failure the
// provider's message and status are logged and nil is returned with the error.
func (f *Flow) CompleteLogin(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	verifier, ok, err := f.tokens.Verifier()
	if err != nil {
		return nil, err
	}
	if !ok {
		f.logger.Error("no code verifier stored; start the login again")
		return nil, shared.ErrMissingVerifier
	}

	tok, err := f.conf.Exchange(f.context(ctx), code, oauth2.VerifierOption(verifier))
	if derr := f.tokens.DeleteVerifier(); derr != nil {
		f.logger.Warn("failed to delete verifier", "error", derr)
	}
	if err != nil {
		f.logTokenError(err)
		f.setState(Anonymous)
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return tok, nil
}

// Establish persists tok and marks the session authenticated
func (f *Flow) Establish(tok *oauth2.Token) error {
	if err := f.tokens.Save(tok); err != nil {
		return err
	}
	f.setState(Authenticated)
	return nil
}

// Refresh exchanges the stored refresh token for a new token. The caller persists the result.
//
// Refresh is refused with [shared.ErrBusy] while a playlist build is running.
func (f *Flow) Refresh(ctx context.Context) (*oauth2.Token, error) {
	if f.busy != nil && f.busy() {
		f.logger.Warn("refresh ignored while a playlist build is in progress")
		return nil, shared.ErrBusy
	}

	session, ok, err := f.tokens.Session()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrNotAuthenticated
	}
	if session.RefreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	src := f.conf.TokenSource(f.context(ctx), &oauth2.Token{RefreshToken: session.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		f.logTokenError(err)
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	return tok, nil
}

// EnsureValid logs out and returns [shared.ErrTokenExpired] when the stored expiry has passed.
//
// No refresh is attempted.
func (f *Flow) EnsureValid() error {
	session, ok, err := f.tokens.Session()
	if err != nil {
		return err
	}
	if !ok {
		return shared.ErrNotAuthenticated
	}

	if session.Expired(f.tokens.Now()) {
		f.logger.Info("session expired, logging out", "expired_at", session.ExpiresAt)
		if err := f.Logout(); err != nil {
			return err
		}
		return shared.ErrTokenExpired
	}
	return nil
}

// Logout clears every persisted key and fires the logout hook.
func (f *Flow) Logout() error {
	err := f.tokens.ClearAll()
	f.setState(Anonymous)
	if f.onLogout != nil {
		f.onLogout()
	}
	return err
}

// Resume runs the start-up sequence for a saved session: expiry check, then an unconditional refresh.
//
// A failed refresh logs the user out.
func (f *Flow) Resume(ctx context.Context) (State, error) {
	if _, ok, err := f.tokens.Session(); err != nil {
		return f.State(), err
	} else if !ok {
		return f.State(), nil
	}

	if err := f.EnsureValid(); err != nil {
		return f.State(), err
	}

	tok, err := f.Refresh(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrBusy) {
			return f.State(), nil
		}
		if lerr := f.Logout(); lerr != nil {
			f.logger.Error("logout failed", "error", lerr)
		}
		return Anonymous, err
	}

	if err := f.Establish(tok); err != nil {
		return f.State(), err
	}
	return Authenticated, nil
}

// logTokenError logs a token endpoint failure as "<message> (<status>)"
func (f *Flow) logTokenError(err error) {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		f.logger.Error("token request failed", "error", err)
		return
	}

	msg := re.ErrorDescription
	if msg == "" {
		msg = re.ErrorCode
	}
	if msg == "" {
		msg = strings.TrimSpace(string(re.Body))
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}
	f.logger.Errorf("%s (%d)", msg, status)
}

// StripCode removes the code parameter from a callback URL.
//
// Other parameters keep their order; a query left empty drops its "?".
func StripCode(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
	}

	if u.RawQuery == "" {
		u.ForceQuery = false
		return u.String(), nil
	}

	kept := make([]string, 0)
	for _, part := range strings.Split(u.RawQuery, "&") {
		if part == "" {
			continue
		}
		key := part
		if i := strings.IndexByte(part, '='); i >= 0 {
			key = part[:i]
		}
		if k, err := url.QueryUnescape(key); err == nil && k == "code" {
			continue
		}
		kept = append(kept, part)
	}

	u.RawQuery = strings.Join(kept, "&")
	u.ForceQuery = false
	return u.String(), nil
}
