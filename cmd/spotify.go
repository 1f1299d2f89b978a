package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/desertthunder/monthlify/internal/formatter"
	"github.com/desertthunder/monthlify/internal/server"
	"github.com/desertthunder/monthlify/internal/services"
	"github.com/desertthunder/monthlify/internal/shared"
	"github.com/desertthunder/monthlify/internal/web"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the redirect URI's host, opens browser for user authorization, and
// exchanges auth code for tokens.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configFile(cmd)

	config := r.config
	if config == nil {
		config = r.loadConfigAt(configPath, false)
	}

	if r.spotify == nil {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrInvalidArgument)
	}

	token, err := r.doOAuth(ctx, config, r.spotify, "authorization")
	if err != nil {
		return err
	}

	if err := config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	r.config = config
	r.configPath = configPath

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: monthlify spotify playlists\n")

	return nil
}

// SpotifyPlaylists lists playlists, prefixed by the liked songs pseudo playlist.
func (r *Runner) SpotifyPlaylists(ctx context.Context, cmd *cli.Command) error {
	query := cmd.String("search")
	useJSON := cmd.Bool("json")
	pretty := cmd.Bool("pretty")

	backend, err := r.localBackend(ctx, nil, nil)
	if err != nil {
		return err
	}

	r.logger.Debug("listing playlists", "search", query)

	playlists, err := backend.Playlists(ctx)
	if err != nil {
		if reauthed, authErr := r.handleSpotifyAuthError(ctx, err, cmd); reauthed {
			if authErr != nil {
				return authErr
			}
			if backend, err = r.localBackend(ctx, nil, nil); err != nil {
				return err
			}
			if playlists, err = backend.Playlists(ctx); err != nil {
				return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
			}
		} else {
			return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		}
	}

	playlists = web.FilterPlaylists(playlists, query)

	if useJSON {
		return r.writeJSON(playlists, pretty)
	}

	r.writePlain("Found %d playlists:\n\n", len(playlists))
	return r.writeBytes(formatter.PlaylistsToText(playlists))
}

// listenAddr returns the host:port the loopback callback server must bind to receive the redirect.
func listenAddr(config *shared.Config) string {
	u, err := url.Parse(config.Credentials.Spotify.RedirectURI)
	if err != nil || u.Host == "" {
		return config.Server.Addr()
	}
	if _, _, err := net.SplitHostPort(u.Host); err != nil {
		return net.JoinHostPort(u.Hostname(), "80")
	}
	return u.Host
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, config *shared.Config, spotify *services.SpotifyService, prefix string) (*oauth2.Token, error) {
	state := shared.GenerateState()

	authURL := spotify.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(spotify, state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(oauthHandler)

	serverAddr := listenAddr(config)
	httpServer := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth server for %s at %v", prefix, serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	r.writePlain("→ Opening browser for Spotify %s...\n", prefix)
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authTimeout)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}

// handleSpotifyAuthError reruns the authorization flow when err means the stored token is no longer accepted.
//
// It reports whether a reauthorization was attempted and, if so, its error.
func (r *Runner) handleSpotifyAuthError(ctx context.Context, err error, cmd *cli.Command) (bool, error) {
	if err == nil || services.Classify(err) != services.KindUnauthorized {
		return false, err
	}
	if r.spotify == nil || r.library != nil {
		return false, err
	}

	r.writePlainln("⚠ Authentication token expired. Starting reauthorization...")

	configPath := r.configFile(cmd)
	token, reauthErr := r.doOAuth(ctx, r.config, r.spotify, "reauthorization")
	if reauthErr != nil {
		return true, fmt.Errorf("reauthorization failed: %w", reauthErr)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return true, fmt.Errorf("failed to update spotify configuration: %w", err)
	}
	if err := shared.SaveConfig(configPath, r.config); err != nil {
		return true, fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlain("✓ Successfully reauthenticated. Retrying operation...\n\n")
	return true, nil
}
