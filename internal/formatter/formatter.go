// package formatter exports the tracks collected by a playlist build to JSON, CSV, Markdown or plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/shared"
)

// Format names an export encoding
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// Formats lists the supported formats in the order they are documented
var Formats = []Format{FormatJSON, FormatCSV, FormatMarkdown, FormatText}

// ParseFormat maps a flag value to a [Format]. "markdown" and "text" are accepted as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
}

// Export encodes export in the given format
func Export(export *models.PlaylistExport, f Format) ([]byte, error) {
	switch f {
	case FormatJSON:
		return ExportToJSON(export)
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, f)
}

// ExportToJSON encodes the playlist and its tracks as indented JSON
func ExportToJSON(export *models.PlaylistExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Name, Artists, Album, URI
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Name", "Artists", "Album", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{track.ID, track.Name, track.Artists, track.Album, track.URI}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown renders the playlist as a Markdown document with a numbered track list
func ExportToMarkdown(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Name)

	if export.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Description)
	}
	if export.ID != "" {
		fmt.Fprintf(&buf, "**Playlist**: https://open.spotify.com/playlist/%s\n", export.ID)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(export.Tracks))

	buf.WriteString("## Tracks\n\n")
	for i, track := range export.Tracks {
		albumPart := ""
		if track.Album != "" {
			albumPart = fmt.Sprintf(" (%s)", track.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s\n", i+1, artistsOrUnknown(track), track.Name, albumPart)
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Name)
	if export.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, artistsOrUnknown(track), track.Name)
	}

	return buf.Bytes(), nil
}

func artistsOrUnknown(t models.Track) string {
	if t.Artists == "" {
		return "Unknown Artist"
	}
	return t.Artists
}

// DefaultFilename returns {playlist ID}_tracks.{ext}, falling back to "playlist" without an ID
func DefaultFilename(export *models.PlaylistExport, f Format) string {
	base := export.ID
	if base == "" {
		base = "playlist"
	}
	return fmt.Sprintf("%s_tracks.%s", base, f)
}

// WriteExport encodes export and writes it to path, creating parent directories as needed.
//
// An empty path defaults to [DefaultFilename]. The written path is returned.
func WriteExport(export *models.PlaylistExport, f Format, path string) (string, error) {
	if path == "" {
		path = DefaultFilename(export, f)
	}

	data, err := Export(export, f)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s export: %w", f, err)
	}

	return path, nil
}
