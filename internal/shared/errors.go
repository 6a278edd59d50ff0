package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")
	ErrRefreshFailed    = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken   = fmt.Errorf("no refresh token available")
	ErrTimeout          = fmt.Errorf("operation timed out")

	// Playback API errors
	ErrAPIRequest          = fmt.Errorf("API request failed")
	ErrPremiumRequired     = fmt.Errorf("premium subscription required")
	ErrRestrictionViolated = fmt.Errorf("playback restriction violated")
	ErrNoActiveDevice      = fmt.Errorf("no active device")
	ErrRateLimited         = fmt.Errorf("rate limited")

	// Capture and detection errors
	ErrCameraUnavailable = fmt.Errorf("camera unavailable")
	ErrDetectorFailed    = fmt.Errorf("landmark detection failed")

	// Storage errors
	ErrRecordNotFound = fmt.Errorf("record not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
