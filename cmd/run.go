package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/spotigest/internal/app"
	"github.com/desertthunder/spotigest/internal/capture"
	"github.com/desertthunder/spotigest/internal/detector"
	"github.com/desertthunder/spotigest/internal/gesture"
	"github.com/desertthunder/spotigest/internal/repositories"
	"github.com/desertthunder/spotigest/internal/server"
	"github.com/desertthunder/spotigest/internal/shared"
	"github.com/desertthunder/spotigest/internal/tasks"
	"github.com/desertthunder/spotigest/internal/web"
)

const (
	updateBuffer          = 64
	statusPublishInterval = time.Second
	historySeedLimit      = 50
)

// publisher receives dispatch updates for connected clients.
type publisher interface {
	Publish(kind string, data any)
}

// Run wires the capture loop to Spotify and blocks until interrupted or the camera fails.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	if err := r.requireSpotify(); err != nil {
		return err
	}

	useTUI := cmd.Bool("tui")
	if useTUI && r.logFile == nil {
		if err := r.useLogFile(defaultTUILogPath); err != nil {
			return fmt.Errorf("failed to create file logger: %w", err)
		}
		if err := r.connect(); err != nil {
			return err
		}
	}

	if err := r.session.Reset(); err != nil {
		return fmt.Errorf("%w: run 'spotigest auth login' first", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := r.config
	logger := r.logger

	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	dispatches := repositories.NewDispatchRepository(db)
	recorder := repositories.NewHistoryRecorder(dispatches, repositories.NewDeviceRepository(db))

	updates := make(chan tasks.StatusUpdate, updateBuffer)
	retries := tasks.NewRetryScheduler(shared.RealClock{})
	defer func() {
		retries.Stop()
		retries.Wait()
	}()

	dispatcher := tasks.NewDispatcher(r.spotify, tasks.DispatcherOpts{
		Logger:     shared.WithLogger(logger, "component", "dispatcher"),
		Recorder:   recorder,
		Retries:    retries,
		MaxRetries: cfg.Playback.MaxRetries,
		Updates:    updates,
	})

	refresher := tasks.NewTokenRefresher(r.session, cfg.Playback.RefreshInterval.Duration, shared.RealClock{},
		shared.WithLogger(logger, "component", "refresher"))
	go refresher.Run(ctx)

	det, err := detector.NewMediaPipeDetector(detector.ConfigFrom(cfg.Detector), shared.WithLogger(logger, "component", "detector"))
	if err != nil {
		return err
	}

	deviceID := cfg.Camera.DeviceID
	if d := cmd.Int("device"); d >= 0 {
		deviceID = d
	}

	var overlay capture.Overlay
	if cfg.Camera.Debug || cmd.Bool("debug") {
		overlay = capture.NewWindowOverlay("spotigest")
	}

	classifier := gesture.Classifier{SwipeThreshold: cfg.Gestures.SwipeThreshold, VolumeScale: cfg.Gestures.VolumeScale}
	application, err := app.New(app.Config{
		Camera:       capture.NewCamera(deviceID, cfg.Camera.FPS),
		Detector:     det,
		Debouncer:    gesture.NewDebouncer(classifier, gesture.CooldownsFrom(cfg.Gestures)),
		Dispatcher:   dispatcher,
		Overlay:      overlay,
		Logger:       shared.WithLogger(logger, "component", "capture"),
		FPS:          cfg.Camera.FPS,
		RetryTimeout: cfg.Camera.RetryTimeout.Duration,
	})
	if err != nil {
		det.Close()
		return err
	}

	var pub publisher
	if cfg.Server.Enabled || cmd.Bool("serve") {
		hub := server.NewHub(shared.WithLogger(logger, "component", "hub"), server.HubConfig{})
		go hub.Run(ctx)
		go publishStatus(ctx, hub, application, statusPublishInterval)

		srv := server.New(cfg.Server.Addr(), newStatusRouter(application, hub, logger), logger)
		go func() {
			if err := srv.Run(ctx); err != nil {
				logger.Error("status server stopped", "error", err)
			}
		}()
		pub = hub
	}

	var monitor chan tasks.StatusUpdate
	if useTUI {
		monitor = make(chan tasks.StatusUpdate, updateBuffer)
	}
	go relayUpdates(ctx, updates, pub, monitor)

	logger.Info("spotigest running", "camera", deviceID, "fps", cfg.Camera.FPS, "tui", useTUI, "overlay", overlay != nil)

	if !useTUI {
		return application.Run(ctx)
	}

	runErr := make(chan error, 1)
	go func() {
		runErr <- application.Run(ctx)
		stop()
	}()

	history, err := dispatches.List(map[string]any{"limit": historySeedLimit})
	if err != nil {
		logger.Warn("could not load history", "error", err)
	}

	tuiErr := r.runMonitor(ctx, application, monitor, history)
	stop()

	if err := <-runErr; err != nil {
		return err
	}
	return tuiErr
}

// newStatusRouter serves the dashboard, GET /status and the GET /events websocket feed.
func newStatusRouter(source statusSource, hub *server.Hub, logger *log.Logger) *server.BasicRouter {
	status := func() any { return source.Status() }

	router := server.NewBasicRouter()
	router.Use(server.Recoverer(logger), server.RequestLogger(logger))
	router.Handler(server.NewStatusHandler(status))
	router.Handler(server.NewEventsHandler(hub, status))
	router.Handler(web.NewDashboardHandler(web.DashboardData{MaxItems: historySeedLimit}))
	return router
}

// relayUpdates fans dispatcher updates out to the websocket hub and the monitor. Neither
// consumer may stall the dispatcher, so a full monitor queue drops the update. monitor is
// closed when relaying stops.
func relayUpdates(ctx context.Context, updates <-chan tasks.StatusUpdate, pub publisher, monitor chan<- tasks.StatusUpdate) {
	if monitor != nil {
		defer close(monitor)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if pub != nil {
				pub.Publish("dispatch", update)
			}
			if monitor != nil {
				select {
				case monitor <- update:
				default:
				}
			}
		}
	}
}

// statusSource is the part of the capture loop reported to clients.
type statusSource interface {
	Status() app.Status
}

// publishStatus pushes a "status" message every interval while clients are connected.
func publishStatus(ctx context.Context, hub *server.Hub, source statusSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if hub.Clients() > 0 {
				hub.Publish("status", source.Status())
			}
		}
	}
}

func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled)
}
