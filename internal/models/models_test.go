package models

import (
	"errors"
	"testing"
	"time"
)

func TestSession(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Expired", func(t *testing.T) {
		tests := []struct {
			name      string
			expiresAt time.Time
			want      bool
		}{
			{"zero never expires", time.Time{}, false},
			{"future", now.Add(time.Minute), false},
			{"exact instant", now, false},
			{"past", now.Add(-time.Second), true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				s := Session{AccessToken: "a", ExpiresAt: tt.expiresAt}
				if got := s.Expired(now); got != tt.want {
					t.Errorf("Expired() = %v, want %v", got, tt.want)
				}
			})
		}
	})
}

func TestBuildRun(t *testing.T) {
	t.Run("NewBuildRun is pending", func(t *testing.T) {
		run := NewBuildRun(1, "user-1", "Spotify Tool")
		if run.Status() != RunPending {
			t.Errorf("expected status %s, got %s", RunPending, run.Status())
		}
		if run.CreatedAt().IsZero() || run.UpdatedAt().IsZero() {
			t.Error("timestamps should be set")
		}
	})

	t.Run("Lifecycle", func(t *testing.T) {
		run := NewBuildRun(1, "user-1", "Spotify Tool")
		start := time.Now()
		run.Start(start)
		if run.Status() != RunRunning || run.StartedAt() == nil {
			t.Fatalf("expected running with start time, got %s", run.Status())
		}

		run.Fail(start.Add(time.Second), errors.New("boom"))
		if run.Status() != RunFailed {
			t.Errorf("expected failed, got %s", run.Status())
		}
		if run.ErrorMessage() != "boom" {
			t.Errorf("expected error message 'boom', got %q", run.ErrorMessage())
		}
		if run.CompletedAt() == nil {
			t.Error("completed_at should be set on failure")
		}
	})

	t.Run("Validate", func(t *testing.T) {
		tests := []struct {
			name    string
			mutate  func(r *BuildRun)
			wantErr bool
		}{
			{"valid", func(r *BuildRun) {}, false},
			{"missing ID", func(r *BuildRun) { r.SetID("") }, true},
			{"missing user", func(r *BuildRun) { r.userID = "" }, true},
			{"missing playlist name", func(r *BuildRun) { r.playlistName = "" }, true},
			{"bad status", func(r *BuildRun) { r.SetStatus("paused") }, true},
			{"negative counter", func(r *BuildRun) { r.SetTracksTotal(-1) }, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				run := NewBuildRun(1, "user-1", "Spotify Tool")
				run.SetID("run-1")
				tt.mutate(run)

				err := run.Validate()
				if (err != nil) != tt.wantErr {
					t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	})
}
