package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotigest/internal/formatter"
	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/repositories"
	"github.com/desertthunder/spotigest/internal/shared"
)

// dispatchView is the JSON shape of a history row.
type dispatchView struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"sequence"`
	Action     string    `json:"action"`
	Volume     int       `json:"volume,omitempty"`
	Outcome    string    `json:"outcome"`
	Attempt    int       `json:"attempt"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	DeviceID   string    `json:"device_id,omitempty"`
	TrackID    string    `json:"track_id,omitempty"`
	WasPlaying bool      `json:"was_playing"`
	CreatedAt  time.Time `json:"created_at"`
}

func viewOf(r *models.DispatchRecord) dispatchView {
	return dispatchView{
		ID:         r.ID(),
		Sequence:   r.Sequence,
		Action:     r.Action.String(),
		Volume:     r.Volume,
		Outcome:    string(r.Outcome),
		Attempt:    r.Attempt,
		ErrorKind:  r.ErrorKind,
		Error:      r.ErrorMessage,
		DeviceID:   r.DeviceID,
		TrackID:    r.TrackID,
		WasPlaying: r.WasPlaying,
		CreatedAt:  r.CreatedAt(),
	}
}

// HistoryList prints recorded dispatches, newest first.
func (r *Runner) HistoryList(ctx context.Context, cmd *cli.Command) error {
	records, err := r.queryHistory(cmd)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]dispatchView, len(records))
		for i, rec := range records {
			views[i] = viewOf(rec)
		}
		return r.writeJSON(views, true)
	}

	data, err := formatter.ExportToText(records)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}

// HistoryExport writes recorded dispatches to a file.
func (r *Runner) HistoryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	records, err := r.queryHistory(cmd)
	if err != nil {
		return err
	}

	path, err := formatter.WriteExport(records, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("history exported", "path", path, "records", len(records), "format", format)
	return r.writePlain("✓ Exported %d dispatches to %s\n", len(records), path)
}

// HistoryPurge removes soft-deleted rows for good.
func (r *Runner) HistoryPurge(ctx context.Context, cmd *cli.Command) error {
	var purged int64
	err := r.withDatabase(func(db *sql.DB) error {
		var err error
		purged, err = repositories.NewDispatchRepository(db).Purge()
		return err
	})
	if err != nil {
		return err
	}
	return r.writePlain("✓ Purged %d dispatches\n", purged)
}

func (r *Runner) queryHistory(cmd *cli.Command) ([]*models.DispatchRecord, error) {
	criteria := map[string]any{
		"action":  cmd.String("action"),
		"outcome": cmd.String("outcome"),
		"limit":   cmd.Int("limit"),
	}
	if since := cmd.Duration("since"); since > 0 {
		criteria["since"] = time.Now().Add(-since)
	}

	var records []*models.DispatchRecord
	err := r.withDatabase(func(db *sql.DB) error {
		var err error
		records, err = repositories.NewDispatchRepository(db).List(criteria)
		return err
	})
	return records, err
}

// withDatabase opens the history database for the duration of fn.
func (r *Runner) withDatabase(fn func(db *sql.DB) error) error {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return fn(db)
}
