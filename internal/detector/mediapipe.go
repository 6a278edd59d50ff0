package detector

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"gocv.io/x/gocv"

	"github.com/desertthunder/spotigest/internal/shared"
)

// IdleTimeout is how long the landmark service may sit unused before it is stopped.
const IdleTimeout = 30 * time.Second

// MediaPipeDetector implements [Detector] by streaming JPEG frames to a MediaPipe
// service running as a Python subprocess.
//
// The subprocess is started lazily on the first call to Detect and stopped after [IdleTimeout].
type MediaPipeDetector struct {
	config    Config
	script    string
	logger    *log.Logger
	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	idleTimer *time.Timer
}

// NewMediaPipeDetector resolves the service script and returns a detector that has not yet
// started the subprocess.
func NewMediaPipeDetector(config Config, logger *log.Logger) (*MediaPipeDetector, error) {
	script := resolveScript(config.Script)
	if script == "" {
		return nil, fmt.Errorf("%w: landmark service script %q not found", shared.ErrDetectorFailed, config.Script)
	}
	if config.Python == "" {
		config.Python = "python3"
	}
	if config.MaxHands <= 0 {
		config.MaxHands = 1
	}

	return &MediaPipeDetector{
		config: config,
		script: script,
		logger: shared.WithLogger(logger, "component", "detector"),
	}, nil
}

// Detect encodes frame as JPEG, sends it to the service and waits for the landmarks.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]Hand, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.start(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := writeFrame(d.stdin, buf.GetBytes()); err != nil {
		d.stop()
		return nil, fmt.Errorf("%w: %w", shared.ErrDetectorFailed, err)
	}

	hands, err := readHands(d.stdout)
	if err != nil {
		d.stop()
		return nil, fmt.Errorf("%w: %w", shared.ErrDetectorFailed, err)
	}

	d.armIdleTimer()
	return hands, nil
}

// Close stops the subprocess if it is running.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

func (d *MediaPipeDetector) start() error {
	if d.cmd != nil {
		return nil
	}

	cmd := exec.Command(d.config.Python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
	)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start landmark service: %w", shared.ErrDetectorFailed, err)
	}

	d.logger.Info("landmark service started", "pid", cmd.Process.Pid, "script", d.script)
	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	return nil
}

func (d *MediaPipeDetector) stop() error {
	if d.cmd == nil {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	d.stdin.Close()
	err := d.cmd.Wait()
	d.logger.Debug("landmark service stopped", "err", err)

	d.cmd = nil
	d.stdin = nil
	d.stdout = nil
	return err
}

func (d *MediaPipeDetector) armIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(IdleTimeout, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.logger.Debug("landmark service idle, stopping")
		d.stop()
	})
}

// resolveScript returns an absolute path for script, trying it as given and then next to
// the executable. Empty if nothing exists.
func resolveScript(script string) string {
	if script == "" {
		script = filepath.Join("scripts", "mediapipe_service.py")
	}

	candidates := []string{script}
	if !filepath.IsAbs(script) {
		if exe, err := os.Executable(); err == nil {
			candidates = append(candidates, filepath.Join(filepath.Dir(exe), script))
		}
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}
