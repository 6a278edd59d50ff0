package services

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/spotigest/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"

	// expiryLeeway refreshes tokens slightly before they actually expire.
	expiryLeeway = time.Minute
)

// Scopes requested at login.
var Scopes = []string{
	"user-modify-playback-state",
	"user-read-playback-state",
	"user-read-private",
	"streaming",
}

// NewOAuthConfig builds the Spotify OAuth2 config from the [credentials.spotify] section.
func NewOAuthConfig(c shared.SpotifyConfig) (*oauth2.Config, error) {
	if c.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if c.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := c.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://127.0.0.1:8888/callback"
	}

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}

// TokenFromConfig returns the cached token, or nil when none was stored.
func TokenFromConfig(c shared.SpotifyConfig) *oauth2.Token {
	if !c.HasToken() {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       c.TokenExpiry,
	}
}

// TokenLoader reads the persisted token. A nil token with a nil error means no login yet.
type TokenLoader func() (*oauth2.Token, error)

// refreshableTokenSource wraps an [oauth2.TokenSource] and reports every new access token.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.notify(token)
	}
	return token, nil
}

// notify runs the callback, containing a panic so a broken persistence hook cannot take
// down an API call.
func (r *refreshableTokenSource) notify(token *oauth2.Token) {
	defer func() { _ = recover() }()
	r.callback(token)
}

type sessionState struct {
	source *refreshableTokenSource
	client *http.Client
	token  *oauth2.Token
}

// Session owns the OAuth token and the authenticated HTTP client.
//
// The current (token, client) pair is swapped atomically: readers see either the previous or
// the new session, never a partial one. Writers are serialized.
type Session struct {
	config     *oauth2.Config
	load       TokenLoader
	httpClient *http.Client
	now        func() time.Time

	state atomic.Pointer[sessionState]

	mu             sync.Mutex
	onTokenRefresh func(*oauth2.Token)
}

// NewSession creates a session. It holds no token until Reset, Exchange or Install is called.
func NewSession(config *oauth2.Config, load TokenLoader) *Session {
	return &Session{
		config:     config,
		load:       load,
		httpClient: http.DefaultClient,
		now:        time.Now,
	}
}

// SetHTTPClient sets the client used for token requests and as the base transport.
func (s *Session) SetHTTPClient(c *http.Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.httpClient = c
}

// SetTokenRefreshCallback registers fn to receive every new access token, including ones
// obtained transparently by the HTTP client. nil disables it.
func (s *Session) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

func (s *Session) tokenRefreshed(token *oauth2.Token) {
	s.mu.Lock()
	fn := s.onTokenRefresh
	s.mu.Unlock()
	if fn != nil {
		fn(token)
	}
}

// AuthURL returns the authorization URL for the login flow.
func (s *Session) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token and installs it.
func (s *Session) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	s.mu.Lock()
	token, err := s.config.Exchange(s.oauthContext(ctx), code)
	if err == nil {
		s.install(token)
	}
	fn := s.onTokenRefresh
	s.mu.Unlock()

	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	if fn != nil {
		fn(token)
	}
	return token, nil
}

// Install replaces the session with one built around token.
func (s *Session) Install(token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.install(token)
}

// Client returns the current authenticated client, or nil before any token is installed.
func (s *Session) Client() *http.Client {
	if st := s.state.Load(); st != nil {
		return st.client
	}
	return nil
}

// Token returns the most recently installed token, or nil.
func (s *Session) Token() *oauth2.Token {
	if st := s.state.Load(); st != nil {
		return st.token
	}
	return nil
}

// Authenticated reports whether a token is installed.
func (s *Session) Authenticated() bool {
	return s.state.Load() != nil
}

// Reset rebuilds the session from the token loader, discarding the current one.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reset()
}

func (s *Session) reset() error {
	if s.load == nil {
		return shared.ErrNotAuthenticated
	}
	token, err := s.load()
	if err != nil {
		return fmt.Errorf("failed to load token: %w", err)
	}
	if token == nil {
		return shared.ErrNotAuthenticated
	}
	s.install(token)
	return nil
}

// RefreshIfExpired rebuilds the session when no token is cached, and refreshes the token when
// it has expired or is about to. It reports whether a new token was obtained.
func (s *Session) RefreshIfExpired(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.Load()
	if st == nil {
		if err := s.reset(); err != nil {
			return false, err
		}
		st = s.state.Load()
	}

	if !s.expiring(st.token) {
		return false, nil
	}
	if err := s.refresh(ctx, st.token); err != nil {
		return false, err
	}
	return true, nil
}

// ForceRefresh exchanges the refresh token for a new access token regardless of expiry.
func (s *Session) ForceRefresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.state.Load()
	if st == nil {
		return shared.ErrNotAuthenticated
	}
	return s.refresh(ctx, st.token)
}

func (s *Session) expiring(token *oauth2.Token) bool {
	if token.Expiry.IsZero() {
		return token.AccessToken == ""
	}
	return !s.now().Add(expiryLeeway).Before(token.Expiry)
}

// refresh must be called with mu held.
func (s *Session) refresh(ctx context.Context, current *oauth2.Token) error {
	if current.RefreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	stale := &oauth2.Token{RefreshToken: current.RefreshToken, Expiry: time.Unix(1, 0)}
	token, err := s.config.TokenSource(s.oauthContext(ctx), stale).Token()
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	if token.RefreshToken == "" {
		token.RefreshToken = current.RefreshToken
	}

	s.install(token)
	if s.onTokenRefresh != nil {
		s.onTokenRefresh(token)
	}
	return nil
}

// install must be called with mu held.
func (s *Session) install(token *oauth2.Token) {
	ctx := s.oauthContext(context.Background())
	source := &refreshableTokenSource{
		source:   oauth2.ReuseTokenSource(token, s.config.TokenSource(ctx, token)),
		callback: s.tokenRefreshed,
		last:     token.AccessToken,
	}

	s.state.Store(&sessionState{
		source: source,
		client: oauth2.NewClient(ctx, source),
		token:  token,
	})
}

func (s *Session) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}
