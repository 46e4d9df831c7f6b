package db

import (
	"time"

	"github.com/google/uuid"
)

// Item types accepted for ratings.
const (
	ItemTrack  = "track"
	ItemAlbum  = "album"
	ItemArtist = "artist"
)

// User is the local user created on first Spotify login.
type User struct {
	ID        uuid.UUID
	Username  string // Spotify user id
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account holds a user's linked Spotify identity and OAuth tokens.
// A token is unusable at or after TokenExpiresAt.
type Account struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	ProviderID     string
	DisplayName    string
	Email          string
	AccessToken    string
	RefreshToken   string
	TokenExpiresAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Rating is one user's score for a track, album, or artist.
type Rating struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	ItemID   string
	ItemType string
	ItemName string
	// Score is the rating in hundredths of a star (0..500).
	Score     int
	CreatedAt time.Time
	UpdatedAt time.Time
}
