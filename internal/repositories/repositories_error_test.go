package repositories

import (
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/shared"
)

func TestSessionRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("ValidationError", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))
			session := models.NewSession(0, "", "", nil, time.Hour)

			if err := repo.Create(session); err == nil {
				t.Fatal("expected validation error for empty session")
			}
		})

		t.Run("ClosedDatabase", func(t *testing.T) {
			db := setupTestDB(t)
			db.Close()

			if err := NewSessionRepository(db).Create(newSession("user-1", time.Hour)); err == nil {
				t.Fatal("expected error on closed database")
			}
		})
	})

	t.Run("Get", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			_, err := NewSessionRepository(setupTestDB(t)).Get("nonexistent-id")
			if !errors.Is(err, shared.ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound, got %v", err)
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			session := newSession("user-1", time.Hour)
			session.SetID("nonexistent-id")

			err := NewSessionRepository(setupTestDB(t)).Update(session)
			if !errors.Is(err, shared.ErrRecordNotFound) {
				t.Fatalf("expected ErrRecordNotFound, got %v", err)
			}
		})
	})

	t.Run("Delete", func(t *testing.T) {
		t.Run("AlreadyDeleted", func(t *testing.T) {
			repo := NewSessionRepository(setupTestDB(t))
			session := newSession("user-1", time.Hour)

			if err := repo.Create(session); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
			if err := repo.Delete(session.ID()); err != nil {
				t.Fatalf("failed to delete session: %v", err)
			}
			if err := repo.Delete(session.ID()); !errors.Is(err, shared.ErrRecordNotFound) {
				t.Fatalf("expected ErrRecordNotFound on second delete, got %v", err)
			}
		})
	})
}

func TestPlaylistRecordRepositoryErrors(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		t.Run("InvalidMonth", func(t *testing.T) {
			repo := NewPlaylistRecordRepository(setupTestDB(t))
			record := models.NewPlaylistRecord(0, "user-1", "January", models.MaterializedPlaylist{ID: "p1", Action: models.ActionCreated}, 0)

			if err := repo.Create(record); err == nil {
				t.Fatal("expected validation error for invalid month")
			}
		})
	})

	t.Run("Record", func(t *testing.T) {
		t.Run("InvalidAction", func(t *testing.T) {
			repo := NewPlaylistRecordRepository(setupTestDB(t))
			err := repo.Record("user-1", models.PartitionPreview{ID: "2023-01"}, models.MaterializedPlaylist{ID: "p1", Action: "moved"})
			if err == nil {
				t.Fatal("expected validation error for invalid action")
			}
		})
	})

	t.Run("Update", func(t *testing.T) {
		t.Run("NotFound", func(t *testing.T) {
			record := models.NewPlaylistRecord(0, "user-1", "2023-01", models.MaterializedPlaylist{ID: "p1", Action: models.ActionCreated}, 0)
			record.SetID("nonexistent-id")

			err := NewPlaylistRecordRepository(setupTestDB(t)).Update(record)
			if !errors.Is(err, shared.ErrRecordNotFound) {
				t.Fatalf("expected ErrRecordNotFound, got %v", err)
			}
		})
	})
}
