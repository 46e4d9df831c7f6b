package gormdb

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/justestif/spotify-ratings/internal/db"
)

type userRow struct {
	ID        string `gorm:"primaryKey"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toModel() *db.User {
	return &db.User{
		ID:        uuid.MustParse(r.ID),
		Username:  r.Username,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type accountRow struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"uniqueIndex;not null"`
	ProviderID     string `gorm:"uniqueIndex;not null"`
	DisplayName    string
	Email          string
	AccessToken    string `gorm:"not null"`
	RefreshToken   string `gorm:"not null"`
	TokenExpiresAt time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (accountRow) TableName() string { return "spotify_accounts" }

func (r accountRow) toModel() *db.Account {
	return &db.Account{
		ID:             uuid.MustParse(r.ID),
		UserID:         uuid.MustParse(r.UserID),
		ProviderID:     r.ProviderID,
		DisplayName:    r.DisplayName,
		Email:          r.Email,
		AccessToken:    r.AccessToken,
		RefreshToken:   r.RefreshToken,
		TokenExpiresAt: r.TokenExpiresAt,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

type ratingRow struct {
	ID        string  `gorm:"primaryKey"`
	UserID    string  `gorm:"uniqueIndex:idx_rating_item;not null"`
	ItemID    string  `gorm:"uniqueIndex:idx_rating_item;not null"`
	ItemType  string  `gorm:"uniqueIndex:idx_rating_item;not null"`
	ItemName  string
	Rating    float64 `gorm:"type:numeric(3,2);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

func (ratingRow) TableName() string { return "ratings" }

func (r ratingRow) toModel() db.Rating {
	return db.Rating{
		ID:        uuid.MustParse(r.ID),
		UserID:    uuid.MustParse(r.UserID),
		ItemID:    r.ItemID,
		ItemType:  r.ItemType,
		ItemName:  r.ItemName,
		Score:     int(math.Round(r.Rating * 100)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func scoreToNumeric(score int) float64 {
	return float64(score) / 100
}
