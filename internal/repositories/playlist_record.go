package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/monthlify/internal/models"
	"github.com/desertthunder/monthlify/internal/shared"
)

// PlaylistRecordRepository implements [models.Repository] for [models.PlaylistRecord] persistence.
type PlaylistRecordRepository struct {
	db *sql.DB
}

// NewPlaylistRecordRepository creates a new [PlaylistRecordRepository] with the given database connection
func NewPlaylistRecordRepository(db *sql.DB) *PlaylistRecordRepository {
	return &PlaylistRecordRepository{db: db}
}

const recordColumns = `id, sequence, user_id, month_id, playlist_id, name, url, action, track_count, created_at, updated_at, deleted_at`

// Create inserts a new record with generated ID and sequence
func (r *PlaylistRecordRepository) Create(record *models.PlaylistRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "playlist_records")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	record.SetID(shared.GenerateID())
	record.SetSequence(sequence)

	query := `INSERT INTO playlist_records (` + recordColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL)`

	_, err = r.db.Exec(query,
		record.ID(), sequence, record.UserID(), record.MonthID(), record.PlaylistID(), record.Name(), record.URL(),
		string(record.Action()), record.TrackCount(), record.CreatedAt(), record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert playlist record: %w", err)
	}

	return nil
}

// Record stores the outcome of materializing partition for userID.
func (r *PlaylistRecordRepository) Record(userID string, partition models.PartitionPreview, result models.MaterializedPlaylist) error {
	return r.Create(models.NewPlaylistRecord(0, userID, partition.ID, result, len(partition.URIs())))
}

// Get retrieves a record by ID, excluding soft-deleted records
func (r *PlaylistRecordRepository) Get(id string) (*models.PlaylistRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM playlist_records WHERE id = ? AND deleted_at IS NULL`

	record, err := scanRecord(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: playlist record %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist record: %w", err)
	}

	return record, nil
}

// Update modifies the action and track count of an existing record
func (r *PlaylistRecordRepository) Update(record *models.PlaylistRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE playlist_records
		SET action = ?, track_count = ?, url = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, string(record.Action()), record.TrackCount(), record.URL(), now, record.ID())
	if err != nil {
		return fmt.Errorf("failed to update playlist record: %w", err)
	}

	return expectAffected(result, record.ID())
}

// Delete soft-deletes a record by ID
func (r *PlaylistRecordRepository) Delete(id string) error {
	result, err := r.db.Exec(`UPDATE playlist_records SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist record: %w", err)
	}

	return expectAffected(result, id)
}

// List retrieves records matching the given criteria, oldest first, excluding soft-deleted records
//
// Supported criteria: "user_id" (string), "month_id" (string), "action" (models.PlaylistAction or string).
func (r *PlaylistRecordRepository) List(criteria map[string]any) ([]*models.PlaylistRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM playlist_records WHERE deleted_at IS NULL`
	args := []any{}

	if userID, ok := criteria["user_id"].(string); ok && userID != "" {
		query += " AND user_id = ?"
		args = append(args, userID)
	}
	if monthID, ok := criteria["month_id"].(string); ok && monthID != "" {
		query += " AND month_id = ?"
		args = append(args, monthID)
	}
	switch action := criteria["action"].(type) {
	case models.PlaylistAction:
		query += " AND action = ?"
		args = append(args, string(action))
	case string:
		if action != "" {
			query += " AND action = ?"
			args = append(args, action)
		}
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist records: %w", err)
	}
	defer rows.Close()

	var records []*models.PlaylistRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan playlist record: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

func scanRecord(row scanner) (*models.PlaylistRecord, error) {
	var (
		id         string
		sequence   int
		userID     string
		monthID    string
		playlistID string
		name       string
		url        string
		action     string
		trackCount int
		createdAt  time.Time
		updatedAt  time.Time
		deletedAt  sql.NullTime
	)

	err := row.Scan(&id, &sequence, &userID, &monthID, &playlistID, &name, &url, &action, &trackCount, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	p := models.MaterializedPlaylist{Name: name, ID: playlistID, URL: url, Action: models.PlaylistAction(action)}
	record := models.NewPlaylistRecord(sequence, userID, monthID, p, trackCount)
	record.SetID(id)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		record.SetDeletedAt(&deletedAt.Time)
	}

	return record, nil
}
