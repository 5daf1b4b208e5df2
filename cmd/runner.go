package main

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/sptool/internal/auth"
	"github.com/desertthunder/sptool/internal/library"
	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/repositories"
	"github.com/desertthunder/sptool/internal/services"
	"github.com/desertthunder/sptool/internal/shared"
	"github.com/desertthunder/sptool/internal/tasks"
	"github.com/urfave/cli/v3"
	"github.com/zmb3/spotify/v2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Storage-backed dependencies are created on first use by [Runner.open] so commands such as
// "setup" can run before a database exists.
type Runner struct {
	config     *shared.Config
	configPath string
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	input      io.Reader
	navigator  auth.Navigator
	now        func() time.Time

	db      *sql.DB
	ownsDB  bool
	tokens  *auth.TokenStore
	flow    *auth.Flow
	spotify *services.SpotifyClient
	builder *tasks.Builder
	artists *library.WorkingSet
	runs    *repositories.RunRepository
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Input      io.Reader      // Answers to confirmation prompts; defaults to [os.Stdin]
	Navigator  auth.Navigator // Opens the authorization URL; defaults to the system browser
	DB         *sql.DB        // Optional; opened from the config when nil
	Now        func() time.Time
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Navigator == nil {
		opts.Navigator = shared.NewBrowser()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		input:      opts.Input,
		navigator:  opts.Navigator,
		now:        opts.Now,
		db:         opts.DB,
	}
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
// Must be called before [Runner.open].
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, artistsCommand, playlistCommand, historyCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// before loads the configuration named by the --config flag. A missing file keeps the defaults.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		return ctx, nil
	}
	r.configPath = path

	if _, err := os.Stat(path); err != nil {
		r.logger.Debug("config file not found, using defaults", "path", path)
		return ctx, nil
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		return ctx, fmt.Errorf("failed to load config: %w", err)
	}
	r.config = config
	return ctx, nil
}

// open wires the store, session, API client, builder and working set. It is idempotent.
func (r *Runner) open() error {
	if r.flow != nil {
		return nil
	}

	if err := r.config.Validate(); err != nil {
		return err
	}

	if r.db == nil {
		db, err := shared.NewDatabase(r.config.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
		r.db = db
		r.ownsDB = true
	}

	if err := shared.RunMigrations(r.db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	store := repositories.NewKVRepository(r.db)
	r.tokens = auth.NewTokenStore(store, r.now)
	r.runs = repositories.NewRunRepository(r.db)

	spotifyClient, err := services.NewSpotifyClient(services.SpotifyOpts{
		BaseURL:           r.config.Credentials.Spotify.APIURL,
		Session:           r.tokens,
		HTTPClient:        r.httpClient,
		RequestsPerSecond: r.config.API.RequestsPerSecond,
		Logger:            shared.WithLogger(r.logger, "component", "api"),
	})
	if err != nil {
		return err
	}
	r.spotify = spotifyClient

	builder, err := tasks.NewBuilder(tasks.BuilderOpts{
		Catalog:     spotifyClient,
		Recorder:    r.runs,
		Logger:      shared.WithLogger(r.logger, "component", "builder"),
		Name:        r.config.Playlist.Name,
		Description: r.config.Playlist.Description,
		Dedupe:      tasks.DedupeMode(r.config.Playlist.DedupeBy),
		Now:         r.now,
	})
	if err != nil {
		return err
	}
	r.builder = builder

	artists, err := library.Load(store, r.logger)
	if err != nil {
		return err
	}
	r.artists = artists

	flow, err := auth.NewFlow(auth.FlowOpts{
		Config:     r.config.Credentials.Spotify,
		Tokens:     r.tokens,
		Navigator:  r.navigator,
		Logger:     shared.WithLogger(r.logger, "component", "auth"),
		HTTPClient: r.httpClient,
		Busy:       builder.Busy,
		OnLogout: func() {
			if err := artists.Reload(); err != nil {
				r.logger.Warn("failed to reload working set after logout", "error", err)
			}
		},
	})
	if err != nil {
		return err
	}
	r.flow = flow

	return nil
}

// Close releases the database when the runner opened it
func (r *Runner) Close() error {
	if r.db == nil || !r.ownsDB {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// resume opens the runner and restores the saved session, refreshing it once.
func (r *Runner) resume(ctx context.Context) (auth.State, error) {
	if err := r.open(); err != nil {
		return auth.Anonymous, err
	}
	return r.flow.Resume(ctx)
}

// requireSession resumes the saved session and fails unless it is authenticated.
func (r *Runner) requireSession(ctx context.Context) error {
	state, err := r.resume(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrRefreshFailed) {
			return fmt.Errorf("%w: run 'sptool auth login' again", err)
		}
		return err
	}
	if state != auth.Authenticated {
		return fmt.Errorf("%w: run 'sptool auth login' first", shared.ErrNotAuthenticated)
	}
	return nil
}

// profile returns the cached profile, fetching and caching it on a miss.
func (r *Runner) profile(ctx context.Context) (*models.Profile, error) {
	if p, ok, err := r.tokens.Profile(); err != nil {
		r.logger.Warn("ignoring unreadable cached profile", "error", err)
	} else if ok {
		return p, nil
	}

	user, err := r.spotify.GetProfile(ctx)
	if err != nil {
		return nil, err
	}

	p := toProfile(user)
	if err := r.tokens.SetProfile(p); err != nil {
		r.logger.Warn("failed to cache profile", "error", err)
	}
	return p, nil
}

func toProfile(u *spotify.PrivateUser) *models.Profile {
	return &models.Profile{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Country:     u.Country,
		Product:     u.Product,
	}
}

// confirm asks a yes/no question on the runner's input. Anything but y/yes is a no.
func (r *Runner) confirm(question string) (bool, error) {
	if err := r.writePlain("%s [y/N]: ", question); err != nil {
		return false, err
	}

	line, err := bufio.NewReader(r.input).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
