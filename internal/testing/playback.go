package testing

import (
	"context"
	"sync"

	"github.com/desertthunder/spotigest/internal/models"
)

// PlaybackCall is one recorded call on [MockPlayback].
type PlaybackCall struct {
	Method   string
	DeviceID string
	Volume   int
}

// MockPlayback is a scriptable test double for services.Playback.
type MockPlayback struct {
	mu          sync.Mutex
	calls       []PlaybackCall
	snapshot    *models.PlaybackSnapshot
	snapshotErr error
	devices     []models.Device
	devicesErr  error
	failures    map[string][]error
	notify      chan PlaybackCall
}

func NewMockPlayback() *MockPlayback {
	return &MockPlayback{failures: make(map[string][]error)}
}

// SetSnapshot sets what CurrentPlayback returns.
func (m *MockPlayback) SetSnapshot(s *models.PlaybackSnapshot, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshot, m.snapshotErr = s, err
}

// SetDevices sets what Devices returns.
func (m *MockPlayback) SetDevices(devices []models.Device, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices, m.devicesErr = devices, err
}

// Fail queues errors returned by successive calls to method ("next", "pause", ...).
func (m *MockPlayback) Fail(method string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[method] = append(m.failures[method], errs...)
}

// Notify returns a channel receiving every command call. Buffered; sends never block.
func (m *MockPlayback) Notify() <-chan PlaybackCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.notify == nil {
		m.notify = make(chan PlaybackCall, 64)
	}
	return m.notify
}

// Calls returns every recorded call, optionally filtered by method.
func (m *MockPlayback) Calls(method ...string) []PlaybackCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(method) == 0 {
		return append([]PlaybackCall(nil), m.calls...)
	}
	var out []PlaybackCall
	for _, c := range m.calls {
		if c.Method == method[0] {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockPlayback) record(call PlaybackCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, call)
	if m.notify != nil {
		select {
		case m.notify <- call:
		default:
		}
	}

	queue := m.failures[call.Method]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	m.failures[call.Method] = queue[1:]
	return err
}

func (m *MockPlayback) Next(_ context.Context, deviceID string) error {
	return m.record(PlaybackCall{Method: "next", DeviceID: deviceID})
}

func (m *MockPlayback) Previous(_ context.Context, deviceID string) error {
	return m.record(PlaybackCall{Method: "previous", DeviceID: deviceID})
}

func (m *MockPlayback) Pause(_ context.Context, deviceID string) error {
	return m.record(PlaybackCall{Method: "pause", DeviceID: deviceID})
}

func (m *MockPlayback) Resume(_ context.Context, deviceID string) error {
	return m.record(PlaybackCall{Method: "resume", DeviceID: deviceID})
}

func (m *MockPlayback) SetVolume(_ context.Context, percent int, deviceID string) error {
	return m.record(PlaybackCall{Method: "set_volume", DeviceID: deviceID, Volume: percent})
}

func (m *MockPlayback) CurrentPlayback(context.Context) (*models.PlaybackSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PlaybackCall{Method: "current_playback"})
	if m.snapshot == nil {
		return nil, m.snapshotErr
	}
	s := *m.snapshot
	return &s, m.snapshotErr
}

func (m *MockPlayback) Devices(context.Context) ([]models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PlaybackCall{Method: "devices"})
	return append([]models.Device(nil), m.devices...), m.devicesErr
}
