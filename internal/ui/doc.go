// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for building a playlist from a working set of artists:
//  1. [LoginView] : Start the browser authorization when no session exists
//  2. [ArtistView] : Browse the working set, remove or clear artists, start a build
//  3. [InputView] : Add artists by ID or link, prefilled with the last input
//  4. [ConfirmView] : Confirm a removal or a clear in a popup
//  5. [BuildView] : Monitor real-time progress of a build
//  6. [ResultView] : Show the created playlist or the reason the build stopped
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the builder, and a manual refresh is refused while a build is running.
// Logging out clears every persisted key and returns to the login view.
//
// Keyboard navigation uses vim-style bindings (j/k, a, d, c, b, r, o, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
