// Package config loads service configuration from an optional TOML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
)

// ErrMissingCredentials is returned when the Spotify client credentials are not set.
var ErrMissingCredentials = errors.New("missing SPOTIFY_ID or SPOTIFY_SECRET")

// ErrMissingJWTSecret is returned when no signing secret is configured.
var ErrMissingJWTSecret = errors.New("missing JWT_SECRET")

// Config holds all service configuration.
type Config struct {
	Server   ServerConfig   `toml:"server"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Database DatabaseConfig `toml:"database"`
	Auth     AuthConfig     `toml:"auth"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr         string   `toml:"addr" env:"ADDR"`
	FrontendURL  string   `toml:"frontend_url" env:"FRONTEND_URL"`
	CORSOrigins  []string `toml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
	OTelEndpoint string   `toml:"otel_endpoint" env:"OTEL_ENDPOINT"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string   `toml:"client_id" env:"SPOTIFY_ID"`
	ClientSecret string   `toml:"client_secret" env:"SPOTIFY_SECRET"`
	RedirectURI  string   `toml:"redirect_uri" env:"SPOTIFY_REDIRECT_URI"`
	Scopes       []string `toml:"scopes" env:"SPOTIFY_SCOPES" envSeparator:","`
	APIURL       string   `toml:"api_url" env:"SPOTIFY_API_URL"`
	TokenURL     string   `toml:"token_url" env:"SPOTIFY_TOKEN_URL"`
	// RequestsPerSecond caps outbound API calls. Zero disables the limiter.
	RequestsPerSecond float64 `toml:"requests_per_second" env:"UPSTREAM_RPS"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	// Driver is "postgres" (pgx), "sqlite" (GORM), or "gorm-postgres"
	// (GORM against PostgreSQL).
	Driver string `toml:"driver" env:"DATABASE_DRIVER"`
	URL    string `toml:"url" env:"DATABASE_URL"`
}

// AuthConfig contains API session settings.
type AuthConfig struct {
	JWTSecret     string        `toml:"jwt_secret" env:"JWT_SECRET"`
	JWTTTL        time.Duration `toml:"jwt_ttl" env:"JWT_TTL"`
	SessionSecret string        `toml:"session_secret" env:"SESSION_SECRET"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level" env:"LOG_LEVEL"`
}

// Default returns a Config with development defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        "127.0.0.1:8000",
			FrontendURL: "http://localhost:8081",
			CORSOrigins: []string{"http://localhost:8081"},
		},
		Spotify: SpotifyConfig{
			RedirectURI: "http://127.0.0.1:8000/auth/spotify/callback/",
			Scopes: []string{
				"user-read-email",
				"user-read-private",
				"user-read-currently-playing",
				"user-read-recently-played",
			},
			APIURL:   "https://api.spotify.com/v1",
			TokenURL: "https://accounts.spotify.com/api/token",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			URL:    "spotify-ratings.db",
		},
		Auth: AuthConfig{
			JWTTTL: 24 * time.Hour,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (skipped when path is empty or the file does not exist), then the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config file: %w", err)
		default:
			if err := toml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config file: %w", err)
			}
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}

	cfg.Spotify.Scopes = trimAll(cfg.Spotify.Scopes)
	cfg.Server.CORSOrigins = trimAll(cfg.Server.CORSOrigins)

	return cfg, nil
}

// Validate reports missing settings required to serve requests.
func (c *Config) Validate() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingCredentials
	}
	if c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
