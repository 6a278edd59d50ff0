package repositories

import (
	"context"
	"time"

	"github.com/desertthunder/spotigest/internal/models"
)

// HistoryRecorder implements tasks.Recorder on top of the SQLite repositories.
type HistoryRecorder struct {
	dispatches *DispatchRepository
	devices    *DeviceRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repositories
func NewHistoryRecorder(dispatches *DispatchRepository, devices *DeviceRepository) *HistoryRecorder {
	return &HistoryRecorder{dispatches: dispatches, devices: devices}
}

// RecordDispatch stores one dispatch attempt.
func (h *HistoryRecorder) RecordDispatch(ctx context.Context, record *models.DispatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.dispatches.Create(record)
}

// RememberDevices stores the devices returned by a probe.
func (h *HistoryRecorder) RememberDevices(ctx context.Context, devices []models.Device) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return h.devices.Upsert(devices, time.Now())
}
