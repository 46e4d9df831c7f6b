// Package auth handles the Spotify authorization-code login, keeps stored
// access tokens fresh, and issues API session tokens.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

var (
	// ErrMissingCredentials is returned when the Spotify client id, secret, or
	// redirect URI is not configured.
	ErrMissingCredentials = errors.New("spotify is not configured correctly")
)

// Authenticator runs the browser side of the Spotify OAuth2 flow.
type Authenticator struct {
	auth *spotifyauth.Authenticator
}

// NewAuthenticator creates an Authenticator for the given app credentials.
// Returns ErrMissingCredentials if any of them is empty.
func NewAuthenticator(clientID, clientSecret, redirectURI string, scopes []string) (*Authenticator, error) {
	if clientID == "" || clientSecret == "" || redirectURI == "" {
		return nil, ErrMissingCredentials
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(clientID),
		spotifyauth.WithClientSecret(clientSecret),
		spotifyauth.WithRedirectURL(redirectURI),
		spotifyauth.WithScopes(scopes...),
	)

	return &Authenticator{auth: auth}, nil
}

// AuthURL returns the Spotify consent page URL carrying state.
func (a *Authenticator) AuthURL(state string) string {
	return a.auth.AuthURL(state)
}

// Exchange trades an authorization code for a token pair.
func (a *Authenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.auth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for token: %w", err)
	}
	return token, nil
}

// GenerateState creates a random state string for OAuth.
func GenerateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
