package capture

import (
	"fmt"
	"sync"

	"gocv.io/x/gocv"

	"github.com/desertthunder/spotigest/internal/shared"
)

// MockCamera produces blank frames and can be scripted to fail.
type MockCamera struct {
	mu       sync.Mutex
	open     bool
	fps      int
	reads    int
	failures []error
	openErr  error
}

func NewMockCamera() *MockCamera {
	return &MockCamera{fps: DefaultFPS}
}

// FailOpen makes Open return err.
func (c *MockCamera) FailOpen(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.openErr = err
}

// FailReads queues errors for the next len(errs) reads.
func (c *MockCamera) FailReads(errs ...error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, errs...)
}

// FailAlways makes every following read fail.
func (c *MockCamera) FailAlways() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = nil
	c.reads = -1
}

// Reads returns the number of ReadFrame calls.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reads < 0 {
		return 0
	}
	return c.reads
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openErr != nil {
		return c.openErr
	}
	c.open = true
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	return nil
}

func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, fmt.Errorf("%w: camera is not open", shared.ErrCameraUnavailable)
	}
	if c.reads < 0 {
		return nil, fmt.Errorf("%w: device lost", shared.ErrCameraUnavailable)
	}
	c.reads++

	if len(c.failures) > 0 {
		err := c.failures[0]
		c.failures = c.failures[1:]
		return nil, err
	}

	mat := gocv.NewMatWithSize(DefaultHeight, DefaultWidth, gocv.MatTypeCV8UC3)
	return &mat, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}
