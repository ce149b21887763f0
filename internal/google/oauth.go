package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/mahakaal/internal/instrumentation"
	"github.com/teemow/mahakaal/internal/logging"
)

const (
	// DefaultRedirectURL is the OAuth callback served by the HTTP backend.
	DefaultRedirectURL = "http://localhost:8000/auth/callback"

	// DefaultCredentialsFile is the client secret file downloaded from the
	// Google Cloud console.
	DefaultCredentialsFile = "credentials.json"
)

// ErrNoCredentials is returned when neither a credentials file nor a client
// id/secret pair is configured.
var ErrNoCredentials = errors.New("google OAuth client credentials not configured")

// OAuthConfig describes where the OAuth client comes from. CredentialsFile
// wins when it exists; otherwise ClientID and ClientSecret are used.
type OAuthConfig struct {
	CredentialsFile string
	ClientID        string
	ClientSecret    string
	RedirectURL     string
	Scopes          []string
}

// NewOAuthConfig builds the oauth2 configuration for the Google Calendar API.
func NewOAuthConfig(c OAuthConfig) (*oauth2.Config, error) {
	scopes := c.Scopes
	if len(scopes) == 0 {
		scopes = DefaultOAuthScopes
	}
	redirect := c.RedirectURL
	if redirect == "" {
		redirect = DefaultRedirectURL
	}

	if c.CredentialsFile != "" {
		data, err := os.ReadFile(c.CredentialsFile)
		switch {
		case err == nil:
			conf, err := google.ConfigFromJSON(data, scopes...)
			if err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", c.CredentialsFile, err)
			}
			conf.RedirectURL = redirect
			return conf, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read %s: %w", c.CredentialsFile, err)
		}
	}

	if c.ClientID == "" || c.ClientSecret == "" {
		return nil, ErrNoCredentials
	}

	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       scopes,
	}, nil
}

// Authenticator runs the authorization code flow and owns the stored token.
type Authenticator struct {
	config  *oauth2.Config
	tokens  *FileTokenProvider
	metrics *instrumentation.Metrics
	logger  *slog.Logger
}

// NewAuthenticator creates an Authenticator. metrics may be nil.
func NewAuthenticator(config *oauth2.Config, tokens *FileTokenProvider, metrics *instrumentation.Metrics, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		config:  config,
		tokens:  tokens,
		metrics: metrics,
		logger:  logging.WithOperation(logger, "google.oauth"),
	}
}

// LoginURL returns the consent page URL. Offline access with a forced
// consent prompt makes Google return a refresh token every time.
func (a *Authenticator) LoginURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and stores it.
func (a *Authenticator) Exchange(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return errors.New("authorization code is empty")
	}

	tok, err := a.config.Exchange(ctx, code)
	if err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	if err := a.tokens.Save(tok); err != nil {
		a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return err
	}

	a.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	a.logger.Info("stored Google OAuth token",
		slog.String("access_token", logging.SanitizeToken(tok.AccessToken)),
		slog.Bool("refresh_token", tok.RefreshToken != ""),
	)
	return nil
}

// Status reports whether a usable token is stored.
func (a *Authenticator) Status() bool {
	return a.tokens.HasToken()
}

// TokenSource returns a token source that refreshes through the OAuth client
// and writes refreshed tokens back to the token file.
func (a *Authenticator) TokenSource(ctx context.Context) oauth2.TokenSource {
	return NewTokenSource(ctx, a.config, a.tokens)
}
