package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sptool/internal/auth"
	"github.com/desertthunder/sptool/internal/library"
	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/shared"
	"github.com/desertthunder/sptool/internal/tasks"
	"golang.org/x/oauth2"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoginView ViewState = iota
	ArtistView
	InputView
	ConfirmView
	BuildView
	ResultView
)

// Session is the part of [auth.Flow] the TUI drives.
type Session interface {
	State() auth.State
	Refresh(ctx context.Context) (*oauth2.Token, error)
	Establish(tok *oauth2.Token) error
	Logout() error
}

// ArtistSet is the working set shown in the artist list. [library.WorkingSet] implements it.
type ArtistSet interface {
	List() []models.Artist
	Remove(id string) (models.Artist, error)
	Clear() error
	Reload() error
	LastInput() (string, error)
	AddFromInput(ctx context.Context, lookup library.ArtistLookup, input string) ([]models.Artist, error)
}

// PlaylistBuilder runs builds. [tasks.Builder] implements it.
type PlaylistBuilder interface {
	Build(ctx context.Context, artists []models.Artist, userID string, progress chan<- tasks.ProgressUpdate) (*tasks.BuildResult, error)
	Busy() bool
}

// ModelOpts contains the dependencies of a [Model]
type ModelOpts struct {
	Session Session
	Artists ArtistSet
	Lookup  library.ArtistLookup
	Builder PlaylistBuilder
	Login   func(ctx context.Context) error                   // Runs the browser login and waits for the callback
	Profile func(ctx context.Context) (*models.Profile, error) // Returns the cached or freshly fetched profile
}

type confirmAction struct {
	clear  bool
	artist models.Artist
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	session      Session
	artists      ArtistSet
	lookup       library.ArtistLookup
	builder      PlaylistBuilder
	login        func(ctx context.Context) error
	loadProfile  func(ctx context.Context) (*models.Profile, error)
	profile      *models.Profile
	width        int
	height       int
	artistList   list.Model
	input        textinput.Model
	bar          progress.Model
	confirm      confirmAction
	progressChan chan tasks.ProgressUpdate
	done         chan buildData
	progress     tasks.ProgressUpdate
	result       *tasks.BuildResult
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts ModelOpts) *Model {
	artistList := list.New(artistItems(opts.Artists.List()), list.NewDefaultDelegate(), 0, 0)
	artistList.Title = "Working Set"
	artistList.SetFilteringEnabled(false)
	artistList.SetShowHelp(false)

	input := textinput.New()
	input.Placeholder = "artist IDs or links, separated by commas"
	input.CharLimit = 4096

	return &Model{
		ctx:         ctx,
		view:        LoginView,
		session:     opts.Session,
		artists:     opts.Artists,
		lookup:      opts.Lookup,
		builder:     opts.Builder,
		login:       opts.Login,
		loadProfile: opts.Profile,
		artistList:  artistList,
		input:       input,
		bar:         progress.New(progress.WithDefaultGradient()),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// Init loads the profile when a session exists; otherwise the login view is shown.
func (m *Model) Init() tea.Cmd {
	if m.session.State() == auth.Authenticated {
		return m.fetchProfile()
	}
	return nil
}

// ViewState returns the active view
func (m *Model) ViewState() ViewState { return m.view }

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.artistList.SetSize(msg.Width-4, msg.Height-8)
		m.bar.Width = min(msg.Width-4, 60)
		m.input.Width = msg.Width - 8
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case ArtistView:
			return m.handleArtistKeys(msg)
		case InputView:
			return m.handleInputKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case BuildView:
			return m.handleBuildKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProfileLoaded:
		data := msg.data.(profileData)
		if data.err != nil {
			m.setError(data.err)
			if m.session.State() != auth.Authenticated {
				m.view = LoginView
			}
			return m, nil
		}
		m.profile = data.profile
		m.view = ArtistView
		m.setStatus("Signed in as %s", displayName(data.profile))
		return m, nil

	case MsgLoginFinished:
		if err := asError(msg.data); err != nil {
			m.setError(err)
			return m, nil
		}
		if err := m.artists.Reload(); err != nil {
			m.setError(err)
		}
		m.syncList()
		return m, m.fetchProfile()

	case MsgArtistsAdded:
		data := msg.data.(artistsData)
		m.syncList()
		if data.err != nil {
			m.setError(data.err)
			return m, nil
		}
		if len(data.added) == 0 {
			m.setStatus("No new artists added")
			return m, nil
		}
		names := make([]string, len(data.added))
		for i, a := range data.added {
			names[i] = a.Name
		}
		m.setStatus("Added %s", strings.Join(names, ", "))
		return m, nil

	case MsgRefreshed:
		if err := asError(msg.data); err != nil {
			m.setError(err)
			if m.session.State() != auth.Authenticated {
				m.toLogin()
			}
			return m, nil
		}
		m.setStatus("Session refreshed")
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, waitForProgress(m.progressChan, m.done)

	case MsgBuildComplete:
		data := msg.data.(buildData)
		m.result = data.result
		m.err = data.err
		m.view = ResultView
		m.progressChan = nil
		m.done = nil
		if m.cancel != nil {
			m.cancel()
			m.cancel = nil
		}
		return m, nil
	}

	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoginView:
		return m.renderLogin()
	case ArtistView:
		return m.renderArtists()
	case InputView:
		return m.renderInput()
	case ConfirmView:
		return m.renderConfirm()
	case BuildView:
		return m.renderBuild()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.login):
		if m.login == nil {
			m.setError(fmt.Errorf("%w: login is not available here", shared.ErrNotImplemented))
			return m, nil
		}
		m.err = nil
		m.setStatus("Waiting for authorization in the browser...")
		return m, m.runLogin()
	}
	return m, nil
}

func (m *Model) handleArtistKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.add):
		last, err := m.artists.LastInput()
		if err != nil {
			m.setError(err)
		}
		m.input.SetValue(last)
		m.input.CursorEnd()
		m.view = InputView
		return m, m.input.Focus()

	case key.Matches(msg, m.keys.remove):
		item, ok := m.artistList.SelectedItem().(artistItem)
		if !ok {
			return m, nil
		}
		m.confirm = confirmAction{artist: item.artist}
		m.view = ConfirmView
		return m, nil

	case key.Matches(msg, m.keys.clear):
		if len(m.artists.List()) == 0 {
			m.setStatus("Working set is already empty")
			return m, nil
		}
		m.confirm = confirmAction{clear: true}
		m.view = ConfirmView
		return m, nil

	case key.Matches(msg, m.keys.build):
		return m, m.startBuild()

	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh()

	case key.Matches(msg, m.keys.logout):
		if err := m.session.Logout(); err != nil {
			m.setError(err)
		}
		m.toLogin()
		return m, nil
	}

	var cmd tea.Cmd
	m.artistList, cmd = m.artistList.Update(msg)
	return m, cmd
}

func (m *Model) handleInputKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.input.Blur()
		m.view = ArtistView
		return m, nil
	case tea.KeyEnter:
		value := m.input.Value()
		m.input.Blur()
		m.view = ArtistView
		m.setStatus("Looking up artists...")
		return m, m.addArtists(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.view = ArtistView
		if m.confirm.clear {
			if err := m.artists.Clear(); err != nil {
				m.setError(err)
			} else {
				m.setStatus("Working set cleared")
			}
		} else {
			removed, err := m.artists.Remove(m.confirm.artist.ID)
			if err != nil {
				m.setError(err)
			} else {
				m.setStatus("Removed %s", removed.Name)
			}
		}
		m.confirm = confirmAction{}
		m.syncList()
		return m, nil

	case key.Matches(msg, m.keys.no), msg.Type == tea.KeyCtrlC:
		m.confirm = confirmAction{}
		m.view = ArtistView
		return m, nil
	}
	return m, nil
}

func (m *Model) handleBuildKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.Type == tea.KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		return m, m.refresh()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back), key.Matches(msg, m.keys.submit):
		m.view = ArtistView
		m.result = nil
		m.err = nil
		m.status = ""
		return m, nil
	}
	return m, nil
}

func (m *Model) toLogin() {
	if err := m.artists.Reload(); err != nil {
		m.setError(err)
	}
	m.syncList()
	m.profile = nil
	m.view = LoginView
}

func (m *Model) syncList() {
	m.artistList.SetItems(artistItems(m.artists.List()))
}

func (m *Model) setStatus(format string, args ...any) {
	m.err = nil
	m.status = fmt.Sprintf(format, args...)
}

func (m *Model) setError(err error) {
	m.err = err
	m.status = ""
}

func (m *Model) fetchProfile() tea.Cmd {
	if m.loadProfile == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg {
		p, err := m.loadProfile(ctx)
		return profileLoadedMsg(p, err)
	}
}

func (m *Model) runLogin() tea.Cmd {
	ctx := m.ctx
	login := m.login
	return func() tea.Msg {
		return loginFinishedMsg(login(ctx))
	}
}

func (m *Model) addArtists(input string) tea.Cmd {
	ctx, artists, lookup := m.ctx, m.artists, m.lookup
	return func() tea.Msg {
		added, err := artists.AddFromInput(ctx, lookup, input)
		return artistsAddedMsg(added, err)
	}
}

// refresh is a no-op while a build is running.
func (m *Model) refresh() tea.Cmd {
	if m.builder != nil && m.builder.Busy() {
		m.status = "Refresh is disabled while a playlist is being built"
		return nil
	}
	ctx, session := m.ctx, m.session
	return func() tea.Msg {
		tok, err := session.Refresh(ctx)
		if err != nil {
			if !errors.Is(err, shared.ErrBusy) {
				_ = session.Logout()
			}
			return refreshedMsg(err)
		}
		return refreshedMsg(session.Establish(tok))
	}
}

func (m *Model) startBuild() tea.Cmd {
	artists := m.artists.List()
	if len(artists) == 0 {
		m.setError(tasks.ErrNoArtists)
		return nil
	}
	if m.profile == nil {
		m.setError(fmt.Errorf("%w: profile not loaded", shared.ErrNotAuthenticated))
		return nil
	}

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel
	m.progressChan = make(chan tasks.ProgressUpdate, 64)
	m.done = make(chan buildData, 1)
	m.progress = tasks.ProgressUpdate{}
	m.result = nil
	m.err = nil
	m.status = ""
	m.view = BuildView

	progressChan, done, builder, userID := m.progressChan, m.done, m.builder, m.profile.ID
	go func() {
		result, err := builder.Build(ctx, artists, userID, progressChan)
		done <- buildData{result, err}
		close(progressChan)
	}()

	return waitForProgress(progressChan, done)
}

func waitForProgress(progressChan <-chan tasks.ProgressUpdate, done <-chan buildData) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-progressChan
		if !ok {
			d := <-done
			return buildCompleteMsg(d.result, d.err)
		}
		return progressUpdateMsg(update)
	}
}

func displayName(p *models.Profile) string {
	if p == nil {
		return "unknown user"
	}
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.ID
}

func (m *Model) statusLine() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if m.status != "" {
		return styles.help.Render(m.status)
	}
	return ""
}

func (m *Model) renderLogin() string {
	title := styles.title.Render("Spotify Tool")
	body := "You are not signed in.\nPress l to open the browser and authorize this app."
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.login, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, body, m.statusLine(), helpView)
}

func (m *Model) renderArtists() string {
	header := styles.help.Render(fmt.Sprintf("Signed in as %s", displayName(m.profile)))
	helpKeys := []key.Binding{m.keys.add, m.keys.remove, m.keys.clear, m.keys.build, m.keys.refresh, m.keys.logout, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", header, m.artistList.View(), m.statusLine(), helpView)
}

func (m *Model) renderInput() string {
	title := styles.title.Render("Add artists")
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.submit, m.keys.back})
	return fmt.Sprintf("%s\n%s\n\n%s", title, m.input.View(), helpView)
}

func (m *Model) renderConfirm() string {
	question := fmt.Sprintf("Remove %s from the working set?", m.confirm.artist.Name)
	if m.confirm.clear {
		question = fmt.Sprintf("Remove all %d artists from the working set?", len(m.artists.List()))
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
	return styles.popup.Render(fmt.Sprintf("%s\n\n%s", styles.warn.Render(question), helpView))
}

func (m *Model) renderBuild() string {
	title := styles.title.Render("Building playlist")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchAlbums:
		phase = "Fetching albums"
	case tasks.FetchTracks:
		phase = "Fetching tracks"
	case tasks.CreatePlaylist:
		phase = "Creating playlist"
	case tasks.AddTracks:
		phase = "Adding tracks"
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n%s\n\n%s\n%s\n\n%s", title, m.bar.ViewAs(m.progress.Percent/100), phase, m.progress.Message, m.statusLine())
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})

	if m.err != nil {
		msg := fmt.Sprintf("Build failed: %v", m.err)
		if m.result != nil && m.result.PlaylistID != "" {
			msg += fmt.Sprintf("\n\nPlaylist %s was created with %d of %d chunks written.",
				m.result.PlaylistName, m.result.ChunksWritten, len(tasks.Chunk(m.result.URIs, tasks.ChunkSize)))
		}
		return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
	}

	if m.result == nil {
		return fmt.Sprintf("%s\n\n%s", styles.err.Render("No result available"), helpView)
	}

	title := styles.ok.Render("✓ Playlist Ready!")
	info := fmt.Sprintf(
		"\nPlaylist: %s\nDescription: %s\nArtists: %d\nAlbums: %d\nTracks: %d\nLink: https://open.spotify.com/playlist/%s",
		m.result.PlaylistName,
		m.result.Description,
		m.result.ArtistsTotal,
		m.result.AlbumsTotal,
		len(m.result.URIs),
		m.result.PlaylistID,
	)

	return fmt.Sprintf("%s\n%s\n\n%s", title, info, helpView)
}
