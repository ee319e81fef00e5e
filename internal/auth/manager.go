// Package auth implements the PKCE login flow and the session lifecycle against the Spotify accounts service.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"songquiz/internal/core"
)

// Manager owns the verifier lifecycle, the code exchange and token refresh.
// The client is public: no secret is ever sent.
type Manager struct {
	oauth      *oauth2.Config
	sessions   core.SessionStore
	tab        core.TabStore
	httpClient *http.Client
	logger     *zap.Logger

	// epoch counts wipes of the session. A refresh that started in an
	// older epoch must not write its token back.
	mu    sync.Mutex
	epoch uint64
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the client used for token endpoint calls.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.httpClient = client
	}
}

// NewManager creates a manager for the public client described by config.
// Sessions are durable, while verifier and state live in tab storage.
func NewManager(config *core.SpotifyConfig, sessions core.SessionStore, tab core.TabStore,
	logger *zap.Logger, opts ...Option) *Manager {
	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:    config.ClientID,
			RedirectURL: config.RedirectURL,
			Scopes:      config.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   config.AuthURL,
				TokenURL:  config.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		sessions: sessions,
		tab:      tab,
		logger:   logger,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Challenge derives the S256 code challenge: base64url(SHA-256(verifier)) without padding.
func Challenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

// BeginLogin wipes all stored session and game data, creates a fresh verifier
// and returns the authorization URL the user agent must be sent to.
func (m *Manager) BeginLogin(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.epoch++
	err := m.sessions.Clear(ctx)
	m.mu.Unlock()
	if err != nil {
		return "", fmt.Errorf("failed to clear durable storage: %w", err)
	}
	if err := m.tab.Clear(ctx); err != nil {
		return "", fmt.Errorf("failed to clear tab storage: %w", err)
	}

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	if err := m.tab.SaveVerifier(ctx, verifier); err != nil {
		return "", fmt.Errorf("failed to store verifier: %w", err)
	}
	if err := m.tab.SaveState(ctx, state); err != nil {
		return "", fmt.Errorf("failed to store state: %w", err)
	}

	m.logger.Info("Starting login", zap.Strings("scopes", m.oauth.Scopes))

	return m.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

// CompleteLogin exchanges the authorization code for tokens. A missing
// verifier is a hard failure: the user has to start a new login.
func (m *Manager) CompleteLogin(ctx context.Context, code, state string) error {
	verifier, err := m.tab.Verifier(ctx)
	if err != nil {
		return fmt.Errorf("failed to read verifier: %w", err)
	}
	if verifier == "" {
		m.logger.Warn("Authorization callback without verifier")
		return core.ErrVerifierMissing
	}

	expected, err := m.tab.State(ctx)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}
	if expected != "" && state != expected {
		m.logger.Warn("Authorization callback with unexpected state")
		return core.ErrStateMismatch
	}

	token, err := m.oauth.Exchange(m.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		m.logger.Error("Authorization code exchange failed", zap.Error(err))
		return classify(core.ErrAuthExchange, err)
	}

	if err := m.sessions.SaveSession(ctx, core.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}

	if err := m.tab.DeleteVerifier(ctx); err != nil {
		m.logger.Warn("Failed to delete used verifier", zap.Error(err))
	}

	m.logger.Info("Login completed", zap.Bool("has_refresh_token", token.RefreshToken != ""))
	return nil
}

// Refresh trades the stored refresh token for a new access token. Failures
// are logged and returned but never end the session. A refresh that outlives
// a logout or a new login is discarded.
func (m *Manager) Refresh(ctx context.Context) error {
	m.mu.Lock()
	epoch := m.epoch
	m.mu.Unlock()

	session, err := m.sessions.LoadSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	if session.RefreshToken == "" {
		return core.ErrNotAuthenticated
	}

	source := m.oauth.TokenSource(m.clientContext(ctx), &oauth2.Token{RefreshToken: session.RefreshToken})
	token, err := source.Token()
	if err != nil {
		m.logger.Warn("Token refresh failed, keeping current token", zap.Error(err))
		return classify(core.ErrAuthExchange, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.epoch != epoch {
		m.logger.Debug("Discarding token of an ended session")
		return fmt.Errorf("session ended during refresh: %w", core.ErrNotAuthenticated)
	}

	if err := m.sessions.SaveSession(ctx, core.Session{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
	}); err != nil {
		return fmt.Errorf("failed to store refreshed token: %w", err)
	}

	m.logger.Debug("Access token refreshed")
	return nil
}

// Logout wipes durable and tab storage unconditionally.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.epoch++
	sessionErr := m.sessions.Clear(ctx)
	m.mu.Unlock()
	tabErr := m.tab.Clear(ctx)
	if err := errors.Join(sessionErr, tabErr); err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	m.logger.Info("Logged out")
	return nil
}

// IsAuthenticated reports whether a non-empty access token is stored. The
// token is not validated against the provider.
func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	session, err := m.sessions.LoadSession(ctx)
	if err != nil {
		m.logger.Warn("Failed to load session", zap.Error(err))
		return false
	}
	return session.AccessToken != ""
}

// TokenSource returns a source that reads the durable access token on every
// call, so API clients always send the most recently refreshed token.
func (m *Manager) TokenSource() oauth2.TokenSource {
	return &storeTokenSource{sessions: m.sessions}
}

func (m *Manager) clientContext(ctx context.Context) context.Context {
	if m.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// classify wraps transport failures as network errors and everything else as kind.
func classify(kind, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", core.ErrNetwork, err)
	}
	return fmt.Errorf("%w: %w", kind, err)
}

type storeTokenSource struct {
	sessions core.SessionStore
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	session, err := s.sessions.LoadSession(context.Background())
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session.AccessToken == "" {
		return nil, core.ErrNotAuthenticated
	}
	return &oauth2.Token{AccessToken: session.AccessToken, TokenType: "Bearer"}, nil
}
