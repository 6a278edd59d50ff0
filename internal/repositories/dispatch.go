package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
)

const dispatchColumns = `id, sequence, action, volume, outcome, error_kind, error_message,
	device_id, track_id, was_playing, attempt, created_at, updated_at, deleted_at`

// DispatchRepository implements [models.Repository] for [models.DispatchRecord] persistence.
type DispatchRepository struct {
	db *sql.DB
}

var _ models.Repository[*models.DispatchRecord] = (*DispatchRepository)(nil)

// NewDispatchRepository creates a new [DispatchRepository] with the given database connection
func NewDispatchRepository(db *sql.DB) *DispatchRepository {
	return &DispatchRepository{db: db}
}

// Create inserts a new record with generated ID and sequence
func (r *DispatchRepository) Create(record *models.DispatchRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "dispatches")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	record.SetID(id)
	record.Sequence = sequence

	query := `
		INSERT INTO dispatches (
			id, sequence, action, volume, outcome, error_kind, error_message,
			device_id, track_id, was_playing, attempt, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id, sequence, record.Action.String(), record.Volume, string(record.Outcome),
		record.ErrorKind, record.ErrorMessage, record.DeviceID, record.TrackID,
		record.WasPlaying, record.Attempt, record.CreatedAt(), record.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dispatch: %w", err)
	}

	return nil
}

// Get retrieves a record by ID, excluding soft-deleted records
func (r *DispatchRepository) Get(id string) (*models.DispatchRecord, error) {
	query := "SELECT " + dispatchColumns + " FROM dispatches WHERE id = ? AND deleted_at IS NULL"

	record, err := scanDispatch(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: dispatch %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatch: %w", err)
	}
	return record, nil
}

// Update rewrites the outcome fields of an existing record
func (r *DispatchRepository) Update(record *models.DispatchRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	record.SetUpdatedAt(now)

	query := `
		UPDATE dispatches
		SET outcome = ?, error_kind = ?, error_message = ?, device_id = ?, attempt = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(record.Outcome), record.ErrorKind, record.ErrorMessage, record.DeviceID,
		record.Attempt, now, record.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update dispatch: %w", err)
	}

	return expectAffected(result, "dispatch", record.ID())
}

// Delete soft-deletes a record by ID
func (r *DispatchRepository) Delete(id string) error {
	query := `
		UPDATE dispatches
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete dispatch: %w", err)
	}

	return expectAffected(result, "dispatch", id)
}

// List retrieves records newest first, excluding soft-deleted ones.
//
// Supported criteria:
//   - "action": action name or [models.ActionKind]
//   - "outcome": outcome string or [models.Outcome]
//   - "since": [time.Time], only records created at or after it
//   - "limit": maximum number of rows (int)
func (r *DispatchRepository) List(criteria map[string]any) ([]*models.DispatchRecord, error) {
	query := "SELECT " + dispatchColumns + " FROM dispatches WHERE deleted_at IS NULL"
	args := []any{}

	switch action := criteria["action"].(type) {
	case models.ActionKind:
		query += " AND action = ?"
		args = append(args, action.String())
	case string:
		if action != "" {
			kind, err := models.ParseActionKind(action)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
			}
			query += " AND action = ?"
			args = append(args, kind.String())
		}
	}

	switch outcome := criteria["outcome"].(type) {
	case models.Outcome:
		query += " AND outcome = ?"
		args = append(args, string(outcome))
	case string:
		if outcome != "" {
			if !models.Outcome(outcome).Valid() {
				return nil, fmt.Errorf("%w: unknown outcome %q", shared.ErrInvalidInput, outcome)
			}
			query += " AND outcome = ?"
			args = append(args, outcome)
		}
	}

	if since, ok := criteria["since"].(time.Time); ok && !since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, since)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dispatches: %w", err)
	}
	defer rows.Close()

	var records []*models.DispatchRecord
	for rows.Next() {
		record, err := scanDispatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dispatch: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Purge hard-deletes soft-deleted records and returns how many were removed.
func (r *DispatchRepository) Purge() (int64, error) {
	result, err := r.db.Exec("DELETE FROM dispatches WHERE deleted_at IS NOT NULL")
	if err != nil {
		return 0, fmt.Errorf("failed to purge dispatches: %w", err)
	}
	return result.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDispatch(row rowScanner) (*models.DispatchRecord, error) {
	var (
		id           string
		sequence     int
		action       string
		volume       int
		outcome      string
		errorKind    string
		errorMessage string
		deviceID     string
		trackID      string
		wasPlaying   bool
		attempt      int
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &action, &volume, &outcome, &errorKind, &errorMessage,
		&deviceID, &trackID, &wasPlaying, &attempt, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	kind, err := models.ParseActionKind(action)
	if err != nil {
		return nil, err
	}

	record := &models.DispatchRecord{
		Sequence:     sequence,
		Action:       kind,
		Volume:       volume,
		Outcome:      models.Outcome(outcome),
		ErrorKind:    errorKind,
		ErrorMessage: errorMessage,
		DeviceID:     deviceID,
		TrackID:      trackID,
		WasPlaying:   wasPlaying,
		Attempt:      attempt,
	}
	record.SetID(id)
	record.SetCreatedAt(createdAt)
	record.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		record.SetDeletedAt(&deletedAt.Time)
	}
	return record, nil
}

func expectAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s not found or already deleted", shared.ErrRecordNotFound, entity, id)
	}
	return nil
}
