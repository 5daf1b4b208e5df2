package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/sptool/internal/models"
	"github.com/desertthunder/sptool/internal/shared"
)

// RunRepository implements models.Repository[*models.BuildRun] for playlist build history.
//
// Handles build run CRUD operations with soft delete support and status-based queries.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `
	id, sequence, user_id, playlist_name, playlist_id, status,
	artists_total, albums_total, tracks_total, chunks_written,
	error_message, started_at, completed_at, created_at, updated_at, deleted_at
`

// Create inserts a new build run into the database with generated ID and sequence
func (r *RunRepository) Create(run *models.BuildRun) error {
	sequence, err := NextSequence(r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO runs (
			id, sequence, user_id, playlist_name, playlist_id, status,
			artists_total, albums_total, tracks_total, chunks_written,
			error_message, started_at, completed_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id,
		sequence,
		run.UserID(),
		run.PlaylistName(),
		nullable(run.PlaylistID()),
		run.Status(),
		run.ArtistsTotal(),
		run.AlbumsTotal(),
		run.TracksTotal(),
		run.ChunksWritten(),
		nullable(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		run.CreatedAt(),
		run.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Get retrieves a build run by ID, excluding soft-deleted runs
func (r *RunRepository) Get(id string) (*models.BuildRun, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE id = ? AND deleted_at IS NULL"

	run, err := scanRun(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	return run, nil
}

// Update modifies an existing build run in the database
func (r *RunRepository) Update(run *models.BuildRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	run.SetUpdatedAt(now)

	query := `
		UPDATE runs
		SET playlist_id = ?, status = ?, artists_total = ?, albums_total = ?,
			tracks_total = ?, chunks_written = ?, error_message = ?,
			started_at = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		nullable(run.PlaylistID()),
		run.Status(),
		run.ArtistsTotal(),
		run.AlbumsTotal(),
		run.TracksTotal(),
		run.ChunksWritten(),
		nullable(run.ErrorMessage()),
		run.StartedAt(),
		run.CompletedAt(),
		now,
		run.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found or already deleted: %s", run.ID())
	}

	return nil
}

// Delete soft-deletes a build run by ID
func (r *RunRepository) Delete(id string) error {
	query := `
		UPDATE runs
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run not found or already deleted: %s", id)
	}

	return nil
}

// List retrieves all build runs matching the given criteria, newest first, excluding soft-deleted runs.
//
// Supported criteria: "user_id" (string), "status" (string), "limit" (int).
func (r *RunRepository) List(criteria map[string]any) ([]*models.BuildRun, error) {
	query := "SELECT " + runColumns + " FROM runs WHERE deleted_at IS NULL"
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.BuildRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

// scanner is satisfied by both [sql.Row] and [sql.Rows]
type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a [models.BuildRun]
func scanRun(row scanner) (*models.BuildRun, error) {
	var (
		id            string
		sequence      int
		userID        string
		playlistName  string
		playlistID    sql.NullString
		status        string
		artistsTotal  int
		albumsTotal   int
		tracksTotal   int
		chunksWritten int
		errorMessage  sql.NullString
		startedAt     sql.NullTime
		completedAt   sql.NullTime
		createdAt     time.Time
		updatedAt     time.Time
		deletedAt     sql.NullTime
	)

	err := row.Scan(
		&id, &sequence, &userID, &playlistName, &playlistID, &status,
		&artistsTotal, &albumsTotal, &tracksTotal, &chunksWritten,
		&errorMessage, &startedAt, &completedAt, &createdAt, &updatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}

	run := models.NewBuildRun(sequence, userID, playlistName)
	run.SetID(id)
	run.SetStatus(status)
	run.SetArtistsTotal(artistsTotal)
	run.SetAlbumsTotal(albumsTotal)
	run.SetTracksTotal(tracksTotal)
	run.SetChunksWritten(chunksWritten)
	run.SetCreatedAt(createdAt)
	run.SetUpdatedAt(updatedAt)

	if playlistID.Valid {
		run.SetPlaylistID(playlistID.String)
	}
	if errorMessage.Valid {
		run.SetErrorMessage(errorMessage.String)
	}
	if startedAt.Valid {
		run.SetStartedAt(&startedAt.Time)
	}
	if completedAt.Valid {
		run.SetCompletedAt(&completedAt.Time)
	}
	if deletedAt.Valid {
		run.SetDeletedAt(&deletedAt.Time)
	}

	return run, nil
}

// nullable stores empty strings as NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
