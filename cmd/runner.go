package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/spotigest/internal/services"
	"github.com/desertthunder/spotigest/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config      *shared.Config
	configPath  string
	session     *services.Session
	spotify     *services.SpotifyClient
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	authTimeout time.Duration
	logFile     *os.File
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Session     *services.Session
	Spotify     *services.SpotifyClient
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	AuthTimeout time.Duration
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.ConfigPath == "" {
		opts.ConfigPath = defaultConfigPath
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.AuthTimeout <= 0 {
		opts.AuthTimeout = defaultAuthTimeout
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		session:     opts.Session,
		spotify:     opts.Spotify,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		authTimeout: opts.AuthTimeout,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		runCommand, authCommand, devicesCommand, historyCommand, setupCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Configure loads the config file named by --config and builds the Spotify session from it.
// A missing file keeps the defaults so that setup and auth can still run.
func (r *Runner) Configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if _, err := os.Stat(r.configPath); err == nil {
		config, err := shared.LoadConfig(r.configPath)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
	}

	if file := r.config.Logging.File; file != "" {
		if err := r.useLogFile(file); err != nil {
			return ctx, err
		}
	}
	if err := shared.ApplyLogLevel(r.logger, r.config.Logging.Level); err != nil {
		return ctx, err
	}
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if r.session == nil {
		if err := r.connect(); err != nil {
			r.logger.Debug("spotify session not configured", "error", err)
		}
	}
	return ctx, nil
}

// Close releases the log file opened by Configure, if any.
func (r *Runner) Close() {
	if r.logFile != nil {
		r.logFile.Close()
		r.logFile = nil
	}
}

// connect builds the session and client from the [credentials.spotify] section. The token
// loader reads the config at call time so tokens saved by a login are picked up.
func (r *Runner) connect() error {
	oauthConfig, err := services.NewOAuthConfig(r.config.Credentials.Spotify)
	if err != nil {
		return err
	}

	session := services.NewSession(oauthConfig, func() (*oauth2.Token, error) {
		return services.TokenFromConfig(r.config.Credentials.Spotify), nil
	})
	session.SetHTTPClient(r.httpClient)
	session.SetTokenRefreshCallback(r.persistToken)

	r.session = session
	r.spotify = services.NewSpotifyClient(session, services.SpotifyClientOpts{
		RequestsPerSecond: r.config.Playback.RequestsPerSecond,
		Logger:            r.logger,
	})
	return nil
}

// SetLogger replaces the runner's logger.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) useLogFile(path string) error {
	logger, f, err := shared.NewFileLogger(path)
	if err != nil {
		return err
	}
	logger.SetLevel(r.logger.GetLevel())
	r.Close()
	r.logFile = f
	r.SetLogger(logger)
	return nil
}

// saveTokens writes token into the config file so later runs start authenticated.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}
	if token == nil {
		return fmt.Errorf("%w: token is nil", shared.ErrInvalidInput)
	}
	if r.configPath == "" {
		return fmt.Errorf("%w: config path is empty", shared.ErrMissingConfig)
	}

	r.config.Credentials.Spotify.UpdateToken(token.AccessToken, token.RefreshToken, token.Expiry)

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}
	r.logger.Debug("tokens saved", "path", r.configPath, "expiry", token.Expiry)
	return nil
}

func (r *Runner) persistToken(token *oauth2.Token) {
	if err := r.saveTokens(token); err != nil {
		r.logger.Error("could not persist refreshed token", "error", err)
	}
}

// requireSpotify returns an error when no Spotify credentials are configured.
func (r *Runner) requireSpotify() error {
	if r.spotify == nil || r.session == nil {
		return fmt.Errorf("%w: set client_id and client_secret under [credentials.spotify] in %s",
			shared.ErrMissingCredentials, r.configPath)
	}
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
