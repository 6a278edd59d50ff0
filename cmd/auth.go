package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/spotigest/internal/server"
	"github.com/desertthunder/spotigest/internal/shared"
)

// AuthLogin performs the OAuth2 authorization code flow for Spotify.
//
// Starts a local HTTP server on the redirect URI, opens the browser for user authorization,
// exchanges the code for tokens and caches them in the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	r.writePlain("You can now use: spotigest run\n")
	return nil
}

// AuthStatus fetches the profile of the authorized account.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSpotify(); err != nil {
		return err
	}
	if err := r.session.Reset(); err != nil {
		if errors.Is(err, shared.ErrNotAuthenticated) {
			return fmt.Errorf("%w: run 'spotigest auth login' first", err)
		}
		return err
	}

	user, err := r.spotify.UserProfile(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAPIRequest, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(user, true)
	}

	name := user.DisplayName
	if name == "" {
		name = user.ID
	}
	r.writePlain("✓ Authorized as %s\n", name)
	r.writePlain("Account: %s\n", user.Product)
	if user.IsPremium() {
		r.writePlain("Playback control: ✓ available\n")
	} else {
		r.writePlain("Playback control: ✗ requires Spotify Premium\n")
	}
	if expiry := r.session.Token().Expiry; !expiry.IsZero() {
		r.writePlain("Token expires: %s\n", expiry.Local().Format(time.DateTime))
	}
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	addr, path := r.callbackAddr()

	state := oauth2.GenerateVerifier()
	oauthHandler := server.NewOAuthHandler(r.session, state, path)
	router := server.NewBasicRouter()
	router.Use(server.Recoverer(r.logger))
	router.Handler(oauthHandler)

	srv := server.New(addr, router, r.logger)
	ln, err := srv.Listen()
	if err != nil {
		return nil, err
	}

	serveCtx, stop := context.WithCancel(ctx)
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- srv.Serve(serveCtx, ln)
	}()
	defer func() {
		stop()
		<-serverErrors
	}()

	authURL := r.session.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (%s timeout)...\n", r.authTimeout)

	timeout := time.NewTimer(r.authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		serverErrors <- err
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, r.authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}
	return result.Token, nil
}

// callbackAddr derives the listen address and callback path from the redirect URI, falling
// back to the [server] section.
func (r *Runner) callbackAddr() (addr, path string) {
	addr, path = r.config.Server.Addr(), "/callback"

	u, err := url.Parse(r.config.Credentials.Spotify.RedirectURI)
	if err != nil || u.Host == "" {
		return addr, path
	}
	if u.Path != "" {
		path = u.Path
	}
	if _, _, err := net.SplitHostPort(u.Host); err == nil {
		addr = u.Host
	}
	return addr, path
}
