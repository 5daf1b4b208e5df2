package server

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptool/internal/auth"
	"github.com/desertthunder/sptool/internal/shared"
	"golang.org/x/oauth2"
)

// Callback is the part of [auth.Flow] the callback handler drives.
type Callback interface {
	CheckState(got string) error
	CompleteLogin(ctx context.Context, code string) (*oauth2.Token, error)
	Establish(tok *oauth2.Token) error
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler handles the redirect back from the authorization server.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	flow        Callback
	path        string
	logger      *log.Logger
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// NewOAuthHandler creates a handler serving path that completes logins through flow.
// An empty path defaults to "/callback".
func NewOAuthHandler(flow Callback, path string, logger *log.Logger) *OAuthHandler {
	if path == "" {
		path = "/callback"
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &OAuthHandler{
		flow:       flow,
		path:       path,
		logger:     logger,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{h.path}
}

// ServeHTTP handles the OAuth callback request.
//
// Validates the state parameter, exchanges the code with the stored verifier, persists the session,
// and sends the result through the result channel. The success page removes the code from the
// address bar with history.replaceState.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Only handle callback once
	h.mu.Lock()
	if h.callbackHit {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.callbackHit = true
	h.mu.Unlock()

	query := r.URL.Query()

	if err := h.flow.CheckState(query.Get("state")); err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, query.Get("error"), query.Get("error_description"))
		h.Send(OAuthResult{err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.flow.CompleteLogin(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, "Token exchange failed", http.StatusInternalServerError)
		return
	}

	if err := h.flow.Establish(token); err != nil {
		h.Send(OAuthResult{err: fmt.Errorf("failed to save session: %w", err)})
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}

	h.Send(OAuthResult{Token: token})

	cleaned, err := auth.StripCode(r.URL.RequestURI())
	if err != nil {
		h.logger.Warn("could not strip code from callback URL", "error", err)
		cleaned = h.path
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := successPage.Execute(w, struct{ URL string }{cleaned}); err != nil {
		h.logger.Error("failed to render callback page", "error", err)
	}
}

// Send sends the OAuth result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving OAuth flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

// Wait blocks until the callback has been handled or ctx is done.
func (h *OAuthHandler) Wait(ctx context.Context) (*oauth2.Token, error) {
	select {
	case result := <-h.resultChan:
		if result.err != nil {
			return nil, result.err
		}
		if result.Token == nil {
			return nil, errors.New("no token received")
		}
		return result.Token, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: waiting for authorization", shared.ErrTimeout)
		}
		return nil, ctx.Err()
	}
}

var successPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
    <script>history.replaceState(null, "", {{.URL}});</script>
</head>
<body>
    <div class="container">
        <h1>✓ Authorization Successful</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`))
