package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"github.com/justestif/spotify-ratings/internal/db"
)

const (
	// defaultExpiresIn is used when the token endpoint omits expires_in.
	defaultExpiresIn = 3600
	// refreshTimeout bounds a shared refresh exchange.
	refreshTimeout = 15 * time.Second
)

// TokenStore persists refreshed access tokens.
type TokenStore interface {
	UpdateAccessToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error
}

// AuthError is returned when the token endpoint rejects a refresh or cannot be reached.
type AuthError struct {
	Status int    // 0 when no response was received
	Body   string // raw response body, or the transport error
	Err    error
}

func (e *AuthError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("refreshing spotify token: %s", e.Body)
	}
	return fmt.Sprintf("refreshing spotify token: status %d: %s", e.Status, e.Body)
}

func (e *AuthError) Unwrap() error { return e.Err }

// Manager keeps account access tokens valid, refreshing them against the
// Spotify token endpoint when they expire. Concurrent refreshes of the same
// account share one exchange.
type Manager struct {
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	store        TokenStore
	now          func() time.Time
	logger       *log.Logger
	group        singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) ManagerOption {
	return func(m *Manager) { m.tokenURL = u }
}

// WithHTTPClient overrides the HTTP client used for refreshes.
func WithHTTPClient(c *http.Client) ManagerOption {
	return func(m *Manager) { m.httpClient = c }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) ManagerOption {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a Manager. Returns ErrMissingCredentials if the client
// id or secret is empty.
func NewManager(clientID, clientSecret string, store TokenStore, opts ...ManagerOption) (*Manager, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ErrMissingCredentials
	}

	m := &Manager{
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     spotifyauth.TokenURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		store:        store,
		now:          time.Now,
		logger:       log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// EnsureValidToken returns the account's access token, refreshing it first
// if it has expired. No network call is made while the stored token is valid.
func (m *Manager) EnsureValidToken(ctx context.Context, account *db.Account) (string, error) {
	if m.now().Before(account.TokenExpiresAt) {
		return account.AccessToken, nil
	}
	return m.Refresh(ctx, account)
}

type refreshed struct {
	accessToken string
	expiresAt   time.Time
}

// Refresh exchanges the account's refresh token for a new access token,
// persists it, and updates account in place. Only the access token and its
// expiry change. Concurrent refreshes of one account share a single
// exchange, which outlives any one caller's cancellation.
func (m *Manager) Refresh(ctx context.Context, account *db.Account) (string, error) {
	id, refreshToken := account.ID, account.RefreshToken
	ch := m.group.DoChan(id.String(), func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.refresh(ctx, id, refreshToken)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return "", res.Err
	}

	r := res.Val.(refreshed)
	account.AccessToken = r.accessToken
	account.TokenExpiresAt = r.expiresAt

	m.logger.Debug("access token refreshed", "account", account.ID, "expires_at", r.expiresAt, "shared", res.Shared)
	return r.accessToken, nil
}

func (m *Manager) refresh(ctx context.Context, id uuid.UUID, refreshToken string) (refreshed, error) {
	conf := &oauth2.Config{
		ClientID:     m.clientID,
		ClientSecret: m.clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  m.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)

	tok, err := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			m.logger.Warn("token refresh rejected", "account", id, "status", re.Response.StatusCode)
			return refreshed{}, &AuthError{Status: re.Response.StatusCode, Body: string(re.Body), Err: err}
		}
		return refreshed{}, &AuthError{Body: err.Error(), Err: err}
	}

	now := m.now()
	var expiresAt time.Time
	switch {
	case tok.ExpiresIn > 0:
		expiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	case !tok.Expiry.IsZero():
		expiresAt = tok.Expiry
	default:
		expiresAt = now.Add(defaultExpiresIn * time.Second)
	}
	r := refreshed{accessToken: tok.AccessToken, expiresAt: expiresAt}

	if err := m.store.UpdateAccessToken(ctx, id, r.accessToken, r.expiresAt); err != nil {
		return refreshed{}, fmt.Errorf("saving refreshed token: %w", err)
	}
	return r, nil
}
