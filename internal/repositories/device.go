package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
)

// DeviceRepository stores the playback devices seen during device probes.
type DeviceRepository struct {
	db *sql.DB
}

func NewDeviceRepository(db *sql.DB) *DeviceRepository {
	return &DeviceRepository{db: db}
}

// Upsert inserts or refreshes each device in one transaction, stamping last_seen_at with seenAt.
func (r *DeviceRepository) Upsert(devices []models.Device, seenAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO devices (id, name, type, last_seen_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, type = excluded.type, last_seen_at = excluded.last_seen_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare device upsert: %w", err)
	}
	defer stmt.Close()

	for _, d := range devices {
		if d.ID == "" {
			continue
		}
		if _, err := stmt.Exec(d.ID, d.Name, d.Type, seenAt); err != nil {
			return fmt.Errorf("failed to upsert device %s: %w", d.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit devices: %w", err)
	}
	return nil
}

// Get retrieves a device by its Spotify id
func (r *DeviceRepository) Get(id string) (*models.Device, error) {
	var d models.Device
	err := r.db.QueryRow("SELECT id, name, type, last_seen_at FROM devices WHERE id = ?", id).
		Scan(&d.ID, &d.Name, &d.Type, &d.LastSeenAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: device %s", shared.ErrRecordNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query device: %w", err)
	}
	return &d, nil
}

// List returns every known device, most recently seen first.
func (r *DeviceRepository) List() ([]models.Device, error) {
	rows, err := r.db.Query("SELECT id, name, type, last_seen_at FROM devices ORDER BY last_seen_at DESC, name ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query devices: %w", err)
	}
	defer rows.Close()

	var devices []models.Device
	for rows.Next() {
		var d models.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return devices, nil
}
