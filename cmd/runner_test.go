package main

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/sptool/internal/auth"
	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/repositories"
	"github.com/desertthunder/sptool/internal/shared"
	tu "github.com/desertthunder/sptool/internal/testing"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// fakeSpotify serves the token endpoint and the handful of Web API routes the commands use.
type fakeSpotify struct {
	mu         sync.Mutex
	grants     []string
	created    []map[string]any
	added      [][]string
	failTokens bool
}

func (f *fakeSpotify) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/token":
			if err := r.ParseForm(); err != nil {
				t.Errorf("bad token form: %v", err)
			}
			f.grants = append(f.grants, r.Form.Get("grant_type"))
			if f.failTokens {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"error":"invalid_grant","error_description":"Refresh token revoked"}`)
				return
			}
			if r.Form.Get("grant_type") == "authorization_code" && r.Form.Get("code_verifier") == "" {
				t.Error("expected a code_verifier in the exchange")
			}
			io.WriteString(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`)
		case r.URL.Path == "/v1/me":
			io.WriteString(w, `{"id":"user-1","display_name":"Test User","email":"user@example.com","country":"US","product":"premium"}`)
		case r.URL.Path == "/v1/artists":
			var artists []string
			for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
				switch id {
				case "a1":
					artists = append(artists, `{"id":"a1","name":"Artist One","uri":"spotify:artist:a1","genres":["rock"]}`)
				case "a2":
					artists = append(artists, `{"id":"a2","name":"Artist Two","uri":"spotify:artist:a2"}`)
				default:
					artists = append(artists, "null")
				}
			}
			fmt.Fprintf(w, `{"artists":[%s]}`, strings.Join(artists, ","))
		case strings.HasPrefix(r.URL.Path, "/v1/artists/") && strings.HasSuffix(r.URL.Path, "/albums"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/artists/"), "/albums")
			fmt.Fprintf(w, `{"items":[{"id":"al-%s","name":"Album %s"}],"next":null,"total":1}`, id, id)
		case strings.HasPrefix(r.URL.Path, "/v1/albums/"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/albums/"), "/tracks")
			fmt.Fprintf(w, `{"items":[{"id":"t-%s-1","name":"Song %s"},{"id":"t-%s-2","name":"Intro"}],"next":null,"total":2}`, id, id, id)
		case r.URL.Path == "/v1/users/user-1/playlists" && r.Method == http.MethodPost:
			var body map[string]any
			json.NewDecoder(r.Body).Decode(&body)
			f.created = append(f.created, body)
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"id":"pl-1","name":"Spotify Tool"}`)
		case r.URL.Path == "/v1/playlists/pl-1/tracks":
			var body struct {
				URIs []string `json:"uris"`
			}
			json.NewDecoder(r.Body).Decode(&body)
			f.added = append(f.added, body.URIs)
			w.WriteHeader(http.StatusCreated)
			io.WriteString(w, `{"snapshot_id":"snap-1"}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"error":{"status":404,"message":"Not found."}}`)
		}
	}
}

// calls returns copies of what the fake recorded
func (f *fakeSpotify) calls() (grants []string, created []map[string]any, added [][]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.grants...), append([]map[string]any(nil), f.created...), append([][]string(nil), f.added...)
}

type testEnv struct {
	runner *Runner
	output *bytes.Buffer
	db     *sql.DB
	api    *fakeSpotify
	server *httptest.Server
	nav    *tu.Navigator
}

// freeAddr reserves a loopback port for the callback server
func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to reserve a port: %v", err)
	}
	addr := l.Addr().String()
	l.Close()
	return addr
}

func newTestEnv(t *testing.T, input string) *testEnv {
	t.Helper()

	api := &fakeSpotify{}
	server := httptest.NewServer(api.handler(t))
	t.Cleanup(server.Close)

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "client-1"
	config.Credentials.Spotify.RedirectURI = "http://" + freeAddr(t) + "/callback"
	config.Credentials.Spotify.AuthURL = server.URL + "/authorize"
	config.Credentials.Spotify.TokenURL = server.URL + "/token"
	config.Credentials.Spotify.APIURL = server.URL + "/v1"
	config.API.RequestsPerSecond = 0

	output := &bytes.Buffer{}
	nav := &tu.Navigator{}
	runner := NewRunner(RunnerOpts{
		Config:    config,
		Logger:    shared.NewLogger(io.Discard),
		Output:    output,
		Input:     strings.NewReader(input),
		Navigator: nav,
		DB:        db,
	})

	return &testEnv{runner: runner, output: output, db: db, api: api, server: server, nav: nav}
}

// signIn stores a live session
func (e *testEnv) signIn(t *testing.T) {
	t.Helper()
	if err := e.runner.open(); err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := e.runner.flow.Establish(tokenFor("at-0", "rt-0")); err != nil {
		t.Fatalf("establish failed: %v", err)
	}
}

func (e *testEnv) run(t *testing.T, args ...string) error {
	t.Helper()
	app := &cli.Command{
		Name: "sptool",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}},
		},
		Before:   e.runner.before,
		Commands: e.runner.register(),
		Writer:   io.Discard,
	}
	return app.Run(context.Background(), append([]string{"sptool"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}
			nav := &tu.Navigator{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
				Navigator:  nav,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
			if runner.navigator != nav {
				t.Error("expected navigator to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output and input uses stdio", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
			if runner.input != os.Stdin {
				t.Error("expected input to default to os.Stdin")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})

			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if output.String() != expected {
				t.Errorf("expected %q, got %q", expected, output.String())
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			// channels cannot be marshaled to JSON
			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if output.String() != "hello world" {
				t.Errorf("expected 'hello world', got %q", output.String())
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "auth", "artists", "playlist", "history", "tui"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})

	t.Run("confirm", func(t *testing.T) {
		tests := []struct {
			input string
			want  bool
		}{
			{"y\n", true},
			{"YES\n", true},
			{"  yes  \n", true},
			{"n\n", false},
			{"\n", false},
			{"", false},
			{"maybe\n", false},
		}
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%q", tt.input), func(t *testing.T) {
				output := &bytes.Buffer{}
				runner := NewRunner(RunnerOpts{Output: output, Input: strings.NewReader(tt.input)})

				got, err := runner.confirm("Continue?")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if got != tt.want {
					t.Errorf("expected %v, got %v", tt.want, got)
				}
				if !strings.Contains(output.String(), "Continue? [y/N]") {
					t.Errorf("expected the prompt, got %q", output.String())
				}
			})
		}
	})

	t.Run("before", func(t *testing.T) {
		t.Run("loads the config named by the flag", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = "from-file"
			if err := shared.SaveConfig(path, config); err != nil {
				t.Fatalf("failed to write config: %v", err)
			}

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
			app := &cli.Command{
				Name:   "sptool",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "config"}},
				Before: runner.before,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
			if err := app.Run(context.Background(), []string{"sptool", "--config", path}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if runner.config.Credentials.Spotify.ClientID != "from-file" {
				t.Errorf("expected config from file, got %q", runner.config.Credentials.Spotify.ClientID)
			}
			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
		})

		t.Run("missing file keeps defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard)})
			app := &cli.Command{
				Name:   "sptool",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "config"}},
				Before: runner.before,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
			missing := filepath.Join(t.TempDir(), "nope.toml")
			if err := app.Run(context.Background(), []string{"sptool", "--config", missing}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if runner.config.Credentials.Spotify.ClientID != shared.DefaultConfig().Credentials.Spotify.ClientID {
				t.Error("expected default config")
			}
		})
	})

	t.Run("open", func(t *testing.T) {
		t.Run("requires a client ID", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Credentials.Spotify.ClientID = ""
			runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard)})

			if err := runner.open(); !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("wires every dependency once", func(t *testing.T) {
			env := newTestEnv(t, "")
			if err := env.runner.open(); err != nil {
				t.Fatalf("open failed: %v", err)
			}
			flow := env.runner.flow
			if err := env.runner.open(); err != nil {
				t.Fatalf("second open failed: %v", err)
			}

			if env.runner.flow != flow {
				t.Error("expected open to be idempotent")
			}
			if env.runner.tokens == nil || env.runner.spotify == nil || env.runner.builder == nil ||
				env.runner.artists == nil || env.runner.runs == nil {
				t.Error("expected every dependency to be wired")
			}
			if env.runner.flow.State() != auth.Anonymous {
				t.Errorf("expected ANONYMOUS on an empty store, got %s", env.runner.flow.State())
			}
		})

		t.Run("does not close a borrowed database", func(t *testing.T) {
			env := newTestEnv(t, "")
			if err := env.runner.open(); err != nil {
				t.Fatalf("open failed: %v", err)
			}
			if err := env.runner.Close(); err != nil {
				t.Fatalf("close failed: %v", err)
			}
			if err := env.db.Ping(); err != nil {
				t.Errorf("expected database to stay open, got %v", err)
			}
		})
	})

	t.Run("callbackAddr", func(t *testing.T) {
		tests := []struct {
			name     string
			redirect string
			path     string
			addr     string
		}{
			{"from redirect URI", "http://127.0.0.1:9999/cb", "/cb", "127.0.0.1:9999"},
			{"no path", "http://localhost:8888", "/callback", "localhost:8888"},
			{"no port falls back to server config", "http://localhost/callback", "/callback", "127.0.0.1:8080"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				config := shared.DefaultConfig()
				config.Credentials.Spotify.RedirectURI = tt.redirect
				config.Server.Host = "127.0.0.1"
				config.Server.Port = 8080
				runner := NewRunner(RunnerOpts{Config: config})

				path, addr, err := runner.callbackAddr()
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if path != tt.path || addr != tt.addr {
					t.Errorf("expected %s %s, got %s %s", tt.path, tt.addr, path, addr)
				}
			})
		}
	})
}

// callbackNavigator plays the browser: it follows the authorization URL straight back to the redirect URI.
type callbackNavigator struct {
	code     string
	state    string // overrides the state echoed back when set
	statuses chan int
}

func (n *callbackNavigator) Navigate(authURL string) error {
	u, err := url.Parse(authURL)
	if err != nil {
		return err
	}
	q := u.Query()
	state := q.Get("state")
	if n.state != "" {
		state = n.state
	}
	redirect := q.Get("redirect_uri") + "?" + url.Values{"code": {n.code}, "state": {state}}.Encode()

	go func() {
		resp, err := http.Get(redirect)
		if err != nil {
			n.statuses <- 0
			return
		}
		resp.Body.Close()
		n.statuses <- resp.StatusCode
	}()
	return nil
}

func tokenFor(access, refresh string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer", Expiry: time.Now().Add(time.Hour)}
}

func TestAuthCommands(t *testing.T) {
	t.Run("login completes the callback and saves the session", func(t *testing.T) {
		env := newTestEnv(t, "")
		nav := &callbackNavigator{code: "good-code", statuses: make(chan int, 1)}
		env.runner.navigator = nav

		if err := env.run(t, "auth", "login", "--timeout", "10s"); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		if status := <-nav.statuses; status != http.StatusOK {
			t.Errorf("expected callback page to return 200, got %d", status)
		}
		session, ok, err := env.runner.tokens.Session()
		if err != nil || !ok {
			t.Fatalf("expected a saved session, got ok=%v err=%v", ok, err)
		}
		if session.AccessToken != "at-1" || session.RefreshToken != "rt-1" {
			t.Errorf("unexpected session: %+v", session)
		}
		if _, ok, _ := env.runner.tokens.Verifier(); ok {
			t.Error("expected verifier to be consumed")
		}
		if p, ok, _ := env.runner.tokens.Profile(); !ok || p.ID != "user-1" {
			t.Errorf("expected cached profile, got %+v", p)
		}
		if !strings.Contains(env.output.String(), "Signed in as Test User (user-1)") {
			t.Errorf("unexpected output: %s", env.output.String())
		}
	})

	t.Run("login rejects a forged state", func(t *testing.T) {
		env := newTestEnv(t, "")
		nav := &callbackNavigator{code: "good-code", state: "forged", statuses: make(chan int, 1)}
		env.runner.navigator = nav

		err := env.run(t, "auth", "login", "--timeout", "5s")
		if !errors.Is(err, shared.ErrStateMismatch) {
			t.Errorf("expected ErrStateMismatch, got %v", err)
		}
		if status := <-nav.statuses; status != http.StatusBadRequest {
			t.Errorf("expected 400 for a forged state, got %d", status)
		}
		if _, ok, _ := env.runner.tokens.Session(); ok {
			t.Error("expected no session")
		}
	})

	t.Run("login prints the URL when the browser cannot open", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.nav.Err = errors.New("no browser")

		err := env.run(t, "auth", "login", "--timeout", "100ms")
		if !errors.Is(err, shared.ErrTimeout) {
			t.Errorf("expected ErrTimeout, got %v", err)
		}
		if !strings.Contains(env.output.String(), env.server.URL+"/authorize?") {
			t.Errorf("expected the authorization URL in output, got %s", env.output.String())
		}
	})

	t.Run("status", func(t *testing.T) {
		env := newTestEnv(t, "")
		if err := env.run(t, "auth", "status"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		if !strings.Contains(env.output.String(), "Not authenticated (anonymous)") {
			t.Errorf("unexpected output: %s", env.output.String())
		}

		env.signIn(t)
		env.output.Reset()
		if err := env.run(t, "auth", "status", "--json"); err != nil {
			t.Fatalf("status failed: %v", err)
		}
		var status map[string]any
		if err := json.Unmarshal(env.output.Bytes(), &status); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if status["authenticated"] != true || status["state"] != "authenticated" {
			t.Errorf("unexpected status: %v", status)
		}
	})

	t.Run("refresh saves the new token", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)

		if err := env.run(t, "auth", "refresh"); err != nil {
			t.Fatalf("refresh failed: %v", err)
		}

		session, _, _ := env.runner.tokens.Session()
		if session.AccessToken != "at-1" {
			t.Errorf("expected refreshed access token, got %s", session.AccessToken)
		}
		if got, _, _ := env.api.calls(); len(got) != 1 || got[0] != "refresh_token" {
			t.Errorf("expected one refresh_token grant, got %v", got)
		}
	})

	t.Run("refresh failure logs out", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		env.api.failTokens = true

		err := env.run(t, "auth", "refresh")
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Errorf("expected ErrRefreshFailed, got %v", err)
		}
		if _, ok, _ := env.runner.tokens.Session(); ok {
			t.Error("expected session to be cleared")
		}
		if env.runner.flow.State() != auth.Anonymous {
			t.Errorf("expected ANONYMOUS, got %s", env.runner.flow.State())
		}
	})

	t.Run("logout asks first", func(t *testing.T) {
		env := newTestEnv(t, "n\n")
		env.signIn(t)

		if err := env.run(t, "auth", "logout"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if _, ok, _ := env.runner.tokens.Session(); !ok {
			t.Error("expected session to survive a declined logout")
		}

		if err := env.run(t, "auth", "logout", "--yes"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if _, ok, _ := env.runner.tokens.Session(); ok {
			t.Error("expected session to be cleared")
		}
	})
}

func TestArtistsCommands(t *testing.T) {
	t.Run("add requires a session", func(t *testing.T) {
		env := newTestEnv(t, "")
		if err := env.run(t, "artists", "add", "a1"); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("add resolves links and skips unknown IDs", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)

		err := env.run(t, "artists", "add", "https://open.spotify.com/artist/a1?si=xyz,", "nope", "spotify:artist:a2")
		if err != nil {
			t.Fatalf("add failed: %v", err)
		}

		got := env.runner.artists.List()
		if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
			t.Errorf("unexpected working set: %+v", got)
		}
		if !strings.Contains(env.output.String(), "Added Artist One (a1)") {
			t.Errorf("unexpected output: %s", env.output.String())
		}
	})

	t.Run("add with only unknown IDs fails", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)

		if err := env.run(t, "artists", "add", "nope"); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}
	})

	t.Run("add without input", func(t *testing.T) {
		env := newTestEnv(t, "")
		if err := env.run(t, "artists", "add"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("list remove and clear", func(t *testing.T) {
		env := newTestEnv(t, "y\n")
		env.signIn(t)
		for _, a := range []models.Artist{{ID: "a1", Name: "Artist One"}, {ID: "a2", Name: "Artist Two"}, {ID: "a3", Name: "Artist Three"}} {
			if _, err := env.runner.artists.Add(a); err != nil {
				t.Fatalf("add failed: %v", err)
			}
		}

		if err := env.run(t, "artists", "list", "--json"); err != nil {
			t.Fatalf("list failed: %v", err)
		}
		var listed []models.Artist
		if err := json.Unmarshal(env.output.Bytes(), &listed); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(listed) != 3 {
			t.Errorf("expected 3 artists, got %d", len(listed))
		}

		if err := env.run(t, "artists", "remove", "a2"); err != nil {
			t.Fatalf("remove failed: %v", err)
		}
		if _, ok := env.runner.artists.Find("a2"); ok {
			t.Error("expected a2 to be removed after confirming")
		}

		if err := env.run(t, "artists", "remove", "--yes", "missing"); !errors.Is(err, shared.ErrArtistNotFound) {
			t.Errorf("expected ErrArtistNotFound, got %v", err)
		}

		if err := env.run(t, "artists", "clear", "--yes"); err != nil {
			t.Fatalf("clear failed: %v", err)
		}
		if env.runner.artists.Len() != 0 {
			t.Errorf("expected empty working set, got %d", env.runner.artists.Len())
		}
	})

	t.Run("logout empties the working set", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		if _, err := env.runner.artists.Add(models.Artist{ID: "a1", Name: "Artist One"}); err != nil {
			t.Fatalf("add failed: %v", err)
		}

		if err := env.run(t, "auth", "logout", "--yes"); err != nil {
			t.Fatalf("logout failed: %v", err)
		}
		if env.runner.artists.Len() != 0 {
			t.Errorf("expected working set to be cleared, got %+v", env.runner.artists.List())
		}
	})
}

func TestPlaylistBuild(t *testing.T) {
	t.Run("builds, records and exports", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)
		for _, a := range []models.Artist{{ID: "a1", Name: "Artist One"}, {ID: "a2", Name: "Artist Two"}} {
			if _, err := env.runner.artists.Add(a); err != nil {
				t.Fatalf("add failed: %v", err)
			}
		}
		exportPath := filepath.Join(t.TempDir(), "out", "tracks.csv")

		if err := env.run(t, "playlist", "build", "--export", exportPath, "--format", "csv"); err != nil {
			t.Fatalf("build failed: %v", err)
		}

		_, created, added := env.api.calls()
		// "Intro" appears on both albums and is kept once under name de-duplication
		if len(added) != 1 || len(added[0]) != 3 {
			t.Fatalf("expected one chunk of 3 URIs, got %v", added)
		}
		if added[0][0] != "spotify:track:t-al-a1-1" {
			t.Errorf("unexpected first URI: %s", added[0][0])
		}
		if len(created) != 1 || created[0]["public"] != false {
			t.Fatalf("expected one private playlist, got %v", created)
		}
		if desc := created[0]["description"]; desc != "Playlist generated through Spotify Tool. (Artist One, Artist Two)" {
			t.Errorf("unexpected description: %v", desc)
		}

		out := env.output.String()
		if !strings.Contains(out, "100.0%") || !strings.Contains(out, "https://open.spotify.com/playlist/pl-1") {
			t.Errorf("unexpected output: %s", out)
		}

		tu.AssertFileExists(t, exportPath)
		if csv := tu.MustReadFile(t, exportPath); !strings.Contains(csv, "Song al-a2") {
			t.Errorf("expected exported tracks, got %s", csv)
		}

		runs, err := repositories.NewRunRepository(env.db).List(map[string]any{})
		if err != nil {
			t.Fatalf("list runs failed: %v", err)
		}
		if len(runs) != 1 || runs[0].Status() != models.RunCompleted || runs[0].TracksTotal() != 3 {
			t.Errorf("unexpected build history: %+v", runs)
		}
	})

	t.Run("empty working set", func(t *testing.T) {
		env := newTestEnv(t, "")
		env.signIn(t)

		if err := env.run(t, "playlist", "build"); err == nil || !strings.Contains(err.Error(), "working set is empty") {
			t.Errorf("expected empty working set error, got %v", err)
		}
		if _, created, _ := env.api.calls(); len(created) != 0 {
			t.Error("expected no playlist to be created")
		}
	})

	t.Run("rejects an unknown export format before any work", func(t *testing.T) {
		env := newTestEnv(t, "")

		if err := env.run(t, "playlist", "build", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestHistory(t *testing.T) {
	env := newTestEnv(t, "")
	if err := env.runner.open(); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	repo := repositories.NewRunRepository(env.db)
	done := models.NewBuildRun(1, "user-1", "First")
	done.Start(time.Now())
	done.Complete(time.Now())
	failed := models.NewBuildRun(2, "user-1", "Second")
	failed.Start(time.Now())
	failed.Fail(time.Now(), errors.New("boom"))
	for _, run := range []*models.BuildRun{done, failed} {
		if err := repo.Create(run); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}

	t.Run("plain", func(t *testing.T) {
		env.output.Reset()
		if err := env.run(t, "history"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		out := env.output.String()
		if !strings.Contains(out, "#1 First [completed]") || !strings.Contains(out, "Error: boom") {
			t.Errorf("unexpected output: %s", out)
		}
	})

	t.Run("filtered JSON", func(t *testing.T) {
		env.output.Reset()
		if err := env.run(t, "history", "--status", "failed", "--json"); err != nil {
			t.Fatalf("history failed: %v", err)
		}
		var views []runView
		if err := json.Unmarshal(env.output.Bytes(), &views); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(views) != 1 || views[0].PlaylistName != "Second" {
			t.Errorf("unexpected runs: %+v", views)
		}
	})
}

func TestSetupDatabase(t *testing.T) {
	wd := tu.MustGetwd(t)
	t.Cleanup(func() { tu.MustChdir(t, wd) })
	dir := t.TempDir()
	tu.MustChdir(t, dir)

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Output: output, Logger: shared.NewLogger(io.Discard)})

	app := &cli.Command{
		Name:     "sptool",
		Flags:    []cli.Flag{&cli.StringFlag{Name: "config", Value: "config.toml"}},
		Commands: runner.register(),
	}
	if err := app.Run(context.Background(), []string{"sptool", "setup", "database"}); err != nil {
		t.Fatalf("setup failed: %v", err)
	}

	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "sptool.db"))
	if !strings.Contains(output.String(), "Next steps") {
		t.Errorf("expected next steps for a new config, got %s", output.String())
	}
}
