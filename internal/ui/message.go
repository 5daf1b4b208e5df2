package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProfileLoaded MsgKind = iota
	MsgLoginFinished
	MsgArtistsAdded
	MsgRefreshed
	MsgProgressUpdate
	MsgBuildComplete
)

type profileData struct {
	profile *models.Profile
	err     error
}

type artistsData struct {
	added []models.Artist
	err   error
}

type buildData struct {
	result *tasks.BuildResult
	err    error
}

// profileLoadedMsg is the constructor for [MsgProfileLoaded]
func profileLoadedMsg(p *models.Profile, err error) Msg {
	return Msg{kind: MsgProfileLoaded, data: profileData{p, err}}
}

// loginFinishedMsg is the constructor for [MsgLoginFinished]
func loginFinishedMsg(err error) Msg {
	return Msg{kind: MsgLoginFinished, data: err}
}

// artistsAddedMsg is the constructor for [MsgArtistsAdded]
func artistsAddedMsg(added []models.Artist, err error) Msg {
	return Msg{kind: MsgArtistsAdded, data: artistsData{added, err}}
}

// refreshedMsg is the constructor for [MsgRefreshed]
func refreshedMsg(err error) Msg {
	return Msg{kind: MsgRefreshed, data: err}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// buildCompleteMsg is the constructor for [MsgBuildComplete]
func buildCompleteMsg(result *tasks.BuildResult, err error) Msg {
	return Msg{kind: MsgBuildComplete, data: buildData{result, err}}
}

func asError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return nil
}
