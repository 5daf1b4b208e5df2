package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/sptool/internal/models"
)

var (
	_ list.Item = artistItem{}
)

// artistItem wraps [models.Artist] to implement [list.Item].
type artistItem struct {
	artist models.Artist
}

func (i artistItem) FilterValue() string { return i.artist.Name }
func (i artistItem) Title() string       { return i.artist.Name }
func (i artistItem) Description() string {
	desc := i.artist.ID
	if len(i.artist.Genres) > 0 {
		desc = fmt.Sprintf("%s • %s", desc, strings.Join(i.artist.Genres, ", "))
	}
	return desc
}

func artistItems(artists []models.Artist) []list.Item {
	items := make([]list.Item, len(artists))
	for i, a := range artists {
		items[i] = artistItem{artist: a}
	}
	return items
}
