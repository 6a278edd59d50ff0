// Spotify Web API player client
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/desertthunder/spotigest/internal/models"
	"github.com/desertthunder/spotigest/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// IsPremium reports whether the account can use the player endpoints.
func (u SpotifyUser) IsPremium() bool {
	return u.Product == "premium"
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyTrack represents the currently playing item.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	DurationMS int             `json:"duration_ms"`
	URI        string          `json:"uri"`
}

// SpotifyDevice represents a playback device.
type SpotifyDevice struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	IsActive         bool   `json:"is_active"`
	IsRestricted     bool   `json:"is_restricted"`
	VolumePercent    *int   `json:"volume_percent"`
	SupportsVolume   bool   `json:"supports_volume"`
	IsPrivateSession bool   `json:"is_private_session"`
}

func (d SpotifyDevice) toModel() models.Device {
	device := models.Device{
		ID:           d.ID,
		Name:         d.Name,
		Type:         d.Type,
		IsActive:     d.IsActive,
		IsRestricted: d.IsRestricted,
	}
	if d.VolumePercent != nil {
		device.VolumePercent = *d.VolumePercent
	}
	return device
}

// SpotifyPlaybackState is the response of GET /me/player.
type SpotifyPlaybackState struct {
	Device       SpotifyDevice `json:"device"`
	IsPlaying    bool          `json:"is_playing"`
	ProgressMS   int           `json:"progress_ms"`
	ShuffleState bool          `json:"shuffle_state"`
	RepeatState  string        `json:"repeat_state"`
	Item         *SpotifyTrack `json:"item"`
}

// SpotifyClientOpts configures a [SpotifyClient].
type SpotifyClientOpts struct {
	BaseURL           string
	RequestsPerSecond float64
	Logger            *log.Logger
}

// SpotifyClient implements [Playback] against the Spotify Web API.
//
// Requests are paced by a token-bucket limiter. A 401 triggers one forced token refresh and a
// single repeat of the request; other failures are returned as [*APIError].
type SpotifyClient struct {
	session *Session
	baseURL string
	limiter *rate.Limiter
	logger  *log.Logger
}

// NewSpotifyClient creates a client bound to session.
func NewSpotifyClient(session *Session, opts SpotifyClientOpts) *SpotifyClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}

	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	return &SpotifyClient{
		session: session,
		baseURL: baseURL,
		limiter: rate.NewLimiter(limit, burst),
		logger:  shared.WithLogger(logger, "component", "spotify"),
	}
}

// Session returns the auth session backing the client.
func (c *SpotifyClient) Session() *Session {
	return c.session
}

// Next skips to the next track.
func (c *SpotifyClient) Next(ctx context.Context, deviceID string) error {
	return c.doRequest(ctx, http.MethodPost, "/me/player/next", deviceQuery(deviceID), nil)
}

// Previous skips to the previous track.
func (c *SpotifyClient) Previous(ctx context.Context, deviceID string) error {
	return c.doRequest(ctx, http.MethodPost, "/me/player/previous", deviceQuery(deviceID), nil)
}

// Pause pauses playback.
func (c *SpotifyClient) Pause(ctx context.Context, deviceID string) error {
	return c.doRequest(ctx, http.MethodPut, "/me/player/pause", deviceQuery(deviceID), nil)
}

// Resume resumes playback of the current context.
func (c *SpotifyClient) Resume(ctx context.Context, deviceID string) error {
	return c.doRequest(ctx, http.MethodPut, "/me/player/play", deviceQuery(deviceID), nil)
}

// SetVolume sets the volume of the target device.
func (c *SpotifyClient) SetVolume(ctx context.Context, percent int, deviceID string) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: volume %d out of range", shared.ErrInvalidArgument, percent)
	}
	q := deviceQuery(deviceID)
	q.Set("volume_percent", strconv.Itoa(percent))
	return c.doRequest(ctx, http.MethodPut, "/me/player/volume", q, nil)
}

// CurrentPlayback fetches the player state.
func (c *SpotifyClient) CurrentPlayback(ctx context.Context) (*models.PlaybackSnapshot, error) {
	var state *SpotifyPlaybackState
	if err := c.doRequest(ctx, http.MethodGet, "/me/player", nil, &state); err != nil {
		return nil, err
	}
	if state == nil {
		return nil, nil
	}

	snapshot := &models.PlaybackSnapshot{
		IsPlaying:  state.IsPlaying,
		DeviceID:   state.Device.ID,
		DeviceName: state.Device.Name,
		ProgressMs: state.ProgressMS,
		FetchedAt:  time.Now(),
	}
	if state.Device.VolumePercent != nil {
		snapshot.Volume = *state.Device.VolumePercent
	}
	if state.Item != nil {
		snapshot.TrackID = state.Item.ID
		snapshot.TrackName = state.Item.Name
		for _, a := range state.Item.Artists {
			snapshot.Artists = append(snapshot.Artists, a.Name)
		}
	}
	return snapshot, nil
}

// Devices lists the devices available to the account.
func (c *SpotifyClient) Devices(ctx context.Context) ([]models.Device, error) {
	var response struct {
		Devices []SpotifyDevice `json:"devices"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, &response); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(response.Devices))
	for _, d := range response.Devices {
		devices = append(devices, d.toModel())
	}
	return devices, nil
}

// UserProfile retrieves the current authenticated user's profile.
func (c *SpotifyClient) UserProfile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func deviceQuery(deviceID string) url.Values {
	q := url.Values{}
	if deviceID != "" {
		q.Set("device_id", deviceID)
	}
	return q
}

// doRequest performs an authenticated request and decodes a JSON body into result.
// A 204 response leaves result untouched.
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint string, query url.Values, result any) error {
	err := c.send(ctx, method, endpoint, query, result)

	if apiErr, ok := AsAPIError(err); ok && apiErr.Kind == KindAuthExpired && apiErr.Status == http.StatusUnauthorized {
		c.logger.Warn("access token rejected, refreshing", "endpoint", endpoint)
		if rerr := c.session.ForceRefresh(ctx); rerr != nil {
			c.logger.Error("token refresh failed", "err", rerr)
			return err
		}
		err = c.send(ctx, method, endpoint, query, result)
	}
	return err
}

func (c *SpotifyClient) send(ctx context.Context, method, endpoint string, query url.Values, result any) error {
	client := c.session.Client()
	if client == nil {
		return shared.ErrNotAuthenticated
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	apiURL := c.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	c.logger.Debug("spotify request", "method", method, "endpoint", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyResponse(resp)
	}

	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
