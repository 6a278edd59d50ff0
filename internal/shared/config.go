package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Gestures    GesturesConfig    `toml:"gestures"`
	Camera      CameraConfig      `toml:"camera"`
	Detector    DetectorConfig    `toml:"detector"`
	Playback    PlaybackConfig    `toml:"playback"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Logging     LoggingConfig     `toml:"logging"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and the cached OAuth token.
type SpotifyConfig struct {
	ClientID     string    `toml:"client_id"`
	ClientSecret string    `toml:"client_secret"`
	RedirectURI  string    `toml:"redirect_uri"`
	AccessToken  string    `toml:"access_token"`
	RefreshToken string    `toml:"refresh_token"`
	TokenExpiry  time.Time `toml:"token_expiry"`
}

// HasToken reports whether a token was cached by a previous login.
func (s SpotifyConfig) HasToken() bool {
	return s.AccessToken != "" || s.RefreshToken != ""
}

// UpdateToken stores a refreshed token. An empty refresh token keeps the previous one,
// since the token endpoint does not always rotate it.
func (s *SpotifyConfig) UpdateToken(access, refresh string, expiry time.Time) {
	s.AccessToken = access
	if refresh != "" {
		s.RefreshToken = refresh
	}
	s.TokenExpiry = expiry
}

// GesturesConfig holds classifier thresholds and the per-kind cooldown windows.
type GesturesConfig struct {
	NextCooldown      Duration `toml:"next_cooldown"`
	PrevCooldown      Duration `toml:"prev_cooldown"`
	PlayPauseCooldown Duration `toml:"play_pause_cooldown"`
	VolumeCooldown    Duration `toml:"volume_cooldown"`
	SwipeThreshold    float64  `toml:"swipe_threshold"`
	VolumeScale       float64  `toml:"volume_scale"`
}

// CameraConfig contains video capture settings.
type CameraConfig struct {
	DeviceID     int      `toml:"device_id"`
	FPS          int      `toml:"fps"`
	RetryTimeout Duration `toml:"retry_timeout"`
	Debug        bool     `toml:"debug"`
}

// DetectorConfig configures the external landmark detection service.
type DetectorConfig struct {
	Script        string  `toml:"script"`
	Python        string  `toml:"python"`
	MinConfidence float64 `toml:"min_confidence"`
}

// PlaybackConfig tunes the remote API client and its background tasks.
type PlaybackConfig struct {
	RequestsPerSecond float64  `toml:"requests_per_second"`
	MaxRetries        int      `toml:"max_retries"`
	RefreshInterval   Duration `toml:"refresh_interval"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig selects the log level and an optional log file.
type LoggingConfig struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Duration wraps [time.Duration] so it reads and writes as "2s", "500ms", "1h" in TOML.
type Duration struct {
	time.Duration
}

// NewDuration wraps d.
func NewDuration(d time.Duration) Duration {
	return Duration{Duration: d}
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrMissingConfig, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path. The file is replaced atomically so a crash
// mid-write never leaves a truncated token cache behind.
func SaveConfig(path string, config *Config) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := toml.NewEncoder(tmp).Encode(config); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("failed to set config permissions: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// Validate checks the values the daemon cannot run without.
func (c *Config) Validate() error {
	sp := c.Credentials.Spotify
	if sp.ClientID == "" || sp.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret are required", ErrMissingCredentials)
	}
	if sp.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri is required", ErrInvalidConfig)
	}

	g := c.Gestures
	if g.SwipeThreshold <= 0 || g.SwipeThreshold >= 1 {
		return fmt.Errorf("%w: swipe_threshold must be in (0, 1), got %v", ErrInvalidConfig, g.SwipeThreshold)
	}
	if g.VolumeScale <= 0 {
		return fmt.Errorf("%w: volume_scale must be positive", ErrInvalidConfig)
	}
	for name, d := range map[string]Duration{
		"next_cooldown":       g.NextCooldown,
		"prev_cooldown":       g.PrevCooldown,
		"play_pause_cooldown": g.PlayPauseCooldown,
		"volume_cooldown":     g.VolumeCooldown,
	} {
		if d.Duration < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidConfig, name)
		}
	}

	if c.Camera.FPS <= 0 {
		return fmt.Errorf("%w: camera fps must be positive", ErrInvalidConfig)
	}
	if c.Playback.MaxRetries < 1 {
		return fmt.Errorf("%w: playback max_retries must be at least 1", ErrInvalidConfig)
	}
	if c.Playback.RequestsPerSecond <= 0 {
		return fmt.Errorf("%w: playback requests_per_second must be positive", ErrInvalidConfig)
	}
	return nil
}
