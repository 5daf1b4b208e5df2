package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	add     key.Binding
	remove  key.Binding
	clear   key.Binding
	build   key.Binding
	refresh key.Binding
	login   key.Binding
	logout  key.Binding
	submit  key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		remove:  key.NewBinding(key.WithKeys("d", "x"), key.WithHelp("d", "remove")),
		clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear")),
		build:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "build")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		login:   key.NewBinding(key.WithKeys("l", "enter"), key.WithHelp("l", "log in")),
		logout:  key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "log out")),
		submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.add, k.remove, k.clear},
		{k.build, k.refresh, k.logout},
		{k.back, k.yes, k.no, k.quit},
	}
}
