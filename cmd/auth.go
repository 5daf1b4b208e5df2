package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/desertthunder/sptool/internal/auth"
	"github.com/desertthunder/sptool/internal/server"
	"github.com/desertthunder/sptool/internal/shared"
	"github.com/urfave/cli/v3"
)

const loginTimeout = 2 * time.Minute

// AuthLogin runs the Authorization Code + PKCE flow through a local callback server and saves the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = loginTimeout
	}

	if err := r.login(ctx, timeout); err != nil {
		return err
	}

	p, err := r.profile(ctx)
	if err != nil {
		r.logger.Warn("signed in but the profile could not be loaded", "error", err)
		return r.writePlainln("✓ Authorization successful")
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("Signed in as %s (%s)\n\n", p.DisplayName, p.ID)
	return r.writePlain("You can now use: sptool artists add <id or link>\n")
}

// login starts the callback server, sends the browser to the authorization page, and waits for the redirect.
func (r *Runner) login(ctx context.Context, timeout time.Duration) error {
	callbackPath, addr, err := r.callbackAddr()
	if err != nil {
		return err
	}

	handler := server.NewOAuthHandler(r.flow, callbackPath, shared.WithLogger(r.logger, "component", "callback"))
	router := server.NewBasicRouter()
	router.Use(server.Logging(r.logger))
	router.Handler(handler)

	srv, err := server.NewCallbackServer(addr, router, r.logger)
	if err != nil {
		return err
	}
	srv.Start()
	defer func() {
		if err := srv.Shutdown(context.Background()); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	authURL, err := r.flow.BeginLogin(ctx)
	if authURL == "" {
		return err
	}
	if err != nil {
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", timeout)

	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := handler.Wait(waitCtx)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("authorization failed: %w", err)
		}
		return nil
	case err := <-srv.Errors():
		return fmt.Errorf("server error: %w", err)
	}
}

// callbackAddr derives the callback route and listen address from the redirect URI,
// falling back to the [server] section for the address.
func (r *Runner) callbackAddr() (string, string, error) {
	u, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil {
		return "", "", fmt.Errorf("%w: redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	path := u.Path
	if path == "" {
		path = "/callback"
	}

	addr := u.Host
	if addr == "" || u.Port() == "" {
		addr = fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	}
	return path, addr, nil
}

// AuthLogout clears the session, the cached profile and the working set.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	if !cmd.Bool("yes") {
		ok, err := r.confirm("Log out and clear the working set?")
		if err != nil {
			return err
		}
		if !ok {
			return r.writePlain("Cancelled\n")
		}
	}

	if err := r.flow.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthRefresh exchanges the refresh token for a new access token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	if err := r.flow.EnsureValid(); err != nil {
		return err
	}

	tok, err := r.flow.Refresh(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrBusy) {
			if lerr := r.flow.Logout(); lerr != nil {
				r.logger.Error("logout failed", "error", lerr)
			}
		}
		return err
	}

	if err := r.flow.Establish(tok); err != nil {
		return err
	}

	session, _, err := r.tokens.Session()
	if err != nil {
		return err
	}
	return r.writePlain("✓ Session refreshed, expires at %s\n", session.ExpiresAt.Local().Format(time.RFC1123))
}

// AuthStatus reports the session state without contacting the provider.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.open(); err != nil {
		return err
	}

	session, ok, err := r.tokens.Session()
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		status := map[string]any{"state": r.flow.State().String(), "authenticated": ok}
		if ok {
			status["expires_at"] = session.ExpiresAt
			status["expired"] = session.Expired(r.now())
			status["refreshable"] = session.RefreshToken != ""
		}
		if p, found, _ := r.tokens.Profile(); found {
			status["user_id"] = p.ID
		}
		return r.writeJSON(status, true)
	}

	if !ok {
		return r.writePlain("Authentication: ✗ Not authenticated (%s)\n", r.flow.State())
	}

	r.writePlain("Authentication: ✓ Authenticated\n")
	if p, found, _ := r.tokens.Profile(); found {
		r.writePlain("User: %s (%s)\n", p.DisplayName, p.ID)
	}
	if session.Expired(r.now()) {
		r.writePlain("Session: expired at %s\n", session.ExpiresAt.Local().Format(time.RFC1123))
	} else if !session.ExpiresAt.IsZero() {
		r.writePlain("Session: expires at %s\n", session.ExpiresAt.Local().Format(time.RFC1123))
	}
	if session.RefreshToken == "" {
		r.writePlain("Refresh token: missing\n")
	}
	return nil
}

var _ server.Callback = (*auth.Flow)(nil)
