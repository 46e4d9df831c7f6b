package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/spotify-ratings/internal/auth"
	"github.com/justestif/spotify-ratings/internal/config"
	"github.com/justestif/spotify-ratings/internal/db"
	"github.com/justestif/spotify-ratings/internal/gormdb"
	"github.com/justestif/spotify-ratings/internal/logging"
	"github.com/justestif/spotify-ratings/internal/ratings"
	"github.com/justestif/spotify-ratings/internal/spotify"
	"github.com/justestif/spotify-ratings/internal/telemetry"
	"github.com/justestif/spotify-ratings/internal/web"
)

const serviceName = "spotify-ratings"

// store bundles the repositories of whichever backend is configured.
type store struct {
	users    web.UserStore
	accounts accountStore
	ratings  ratings.Store
	health   web.Pinger
	close    func()
}

type accountStore interface {
	web.AccountStore
	auth.TokenStore
}

// openStore connects to the configured database and brings its schema up
// to date. "postgres" uses the pgx store, "gorm-postgres" and "sqlite" the
// GORM store.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (*store, error) {
	switch cfg.Driver {
	case "postgres":
		database, err := db.New(ctx, cfg.URL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
		return &store{
			users:    database.Users(),
			accounts: database.Accounts(),
			ratings:  database.Ratings(),
			health:   database,
			close:    database.Close,
		}, nil

	case "sqlite", "gorm-postgres":
		driver := cfg.Driver
		if driver == "gorm-postgres" {
			driver = "postgres"
		}
		database, err := gormdb.Open(driver, cfg.URL)
		if err != nil {
			return nil, err
		}
		return &store{
			users:    database.Users(),
			accounts: database.Accounts(),
			ratings:  database.Ratings(),
			health:   database,
			close:    func() { _ = database.Close() },
		}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func loadConfig(cmd *cli.Command) (*config.Config, *log.Logger, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, nil, err
	}
	return cfg, logging.New(os.Stderr, cfg.Log.Level), nil
}

func migrate(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.close()

	logger.Info("database schema up to date", "driver", cfg.Database.Driver)
	return nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	// Missing Spotify credentials only disable the Spotify endpoints.
	if err := cfg.Validate(); err != nil {
		if !errors.Is(err, config.ErrMissingCredentials) {
			return err
		}
		if cfg.Auth.JWTSecret == "" {
			return config.ErrMissingJWTSecret
		}
		logger.Warn("spotify credentials not set; login and Spotify endpoints will fail", "err", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.Server.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("setting up tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("flushing traces", "err", err)
		}
	}()

	st, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer st.close()

	deps := web.Deps{
		Sessions: auth.NewSessions(cfg.Auth.JWTSecret, cfg.Auth.JWTTTL),
		Users:    st.users,
		Accounts: st.accounts,
		Ratings:  ratings.NewService(st.ratings),
		DB:       st.health,
		Logger:   logger,
	}

	var tokens spotify.TokenManager = unconfiguredTokens{}
	manager, err := auth.NewManager(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, st.accounts,
		auth.WithTokenURL(cfg.Spotify.TokenURL),
		auth.WithLogger(logger.WithPrefix("auth")),
	)
	if err == nil {
		tokens = manager
	}
	deps.Spotify = spotify.New(tokens,
		spotify.WithBaseURL(cfg.Spotify.APIURL),
		spotify.WithRateLimit(cfg.Spotify.RequestsPerSecond),
		spotify.WithLogger(logger.WithPrefix("spotify")),
	)

	authenticator, err := auth.NewAuthenticator(cfg.Spotify.ClientID, cfg.Spotify.ClientSecret, cfg.Spotify.RedirectURI, cfg.Spotify.Scopes)
	if err == nil {
		deps.OAuth = authenticator
	}

	sessionSecret := cfg.Auth.SessionSecret
	if sessionSecret == "" {
		sessionSecret = cfg.Auth.JWTSecret
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:          cfg.Server.Addr,
		FrontendURL:   cfg.Server.FrontendURL,
		CORSOrigins:   cfg.Server.CORSOrigins,
		SessionSecret: sessionSecret,
		SecureCookies: strings.HasPrefix(cfg.Spotify.RedirectURI, "https://"),
	}, deps)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	return server.Run(ctx)
}

// unconfiguredTokens stands in for the token manager when no Spotify
// credentials are set.
type unconfiguredTokens struct{}

func (unconfiguredTokens) EnsureValidToken(context.Context, *db.Account) (string, error) {
	return "", auth.ErrMissingCredentials
}

func (unconfiguredTokens) Refresh(context.Context, *db.Account) (string, error) {
	return "", auth.ErrMissingCredentials
}
