package tasks

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/spotigest/internal/shared"
)

// DefaultRefreshInterval is how often the refresher checks the token when no interval is configured.
const DefaultRefreshInterval = time.Hour

// TokenSession is the part of services.Session the refresher needs.
type TokenSession interface {
	RefreshIfExpired(ctx context.Context) (bool, error)
}

// TokenRefresher periodically refreshes the OAuth token ahead of its expiry.
type TokenRefresher struct {
	session  TokenSession
	interval time.Duration
	clock    shared.Clock
	logger   *log.Logger
}

func NewTokenRefresher(session TokenSession, interval time.Duration, clock shared.Clock, logger *log.Logger) *TokenRefresher {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if clock == nil {
		clock = shared.RealClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &TokenRefresher{session: session, interval: interval, clock: clock, logger: logger}
}

// Run wakes every interval until ctx is cancelled. Refresh errors are logged and the loop continues.
func (r *TokenRefresher) Run(ctx context.Context) {
	for {
		timer := r.clock.NewTimer(r.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
		r.refresh(ctx)
	}
}

func (r *TokenRefresher) refresh(ctx context.Context) {
	refreshed, err := r.session.RefreshIfExpired(ctx)
	switch {
	case err != nil:
		r.logger.Error("token refresh failed", "error", err)
	case refreshed:
		r.logger.Info("access token refreshed")
	default:
		r.logger.Debug("access token still valid")
	}
}
