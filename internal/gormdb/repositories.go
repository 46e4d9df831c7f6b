package gormdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/justestif/spotify-ratings/internal/db"
)

// UserRepository handles user operations.
type UserRepository struct {
	db *DB
}

// Get retrieves a user by ID.
func (r *UserRepository) Get(ctx context.Context, id uuid.UUID) (*db.User, error) {
	var row userRow
	err := r.db.gorm.WithContext(ctx).First(&row, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return row.toModel(), nil
}

// Upsert creates the user for a username or refreshes its email.
func (r *UserRepository) Upsert(ctx context.Context, user *db.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	row := userRow{ID: user.ID.String(), Username: user.Username, Email: user.Email}

	tx := r.db.gorm.WithContext(ctx)
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "username"}},
		DoUpdates: clause.Assignments(map[string]any{
			"email":      user.Email,
			"updated_at": r.db.now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upserting user: %w", err)
	}

	var stored userRow
	if err := tx.First(&stored, "username = ?", user.Username).Error; err != nil {
		return fmt.Errorf("reloading user: %w", err)
	}
	*user = *stored.toModel()
	return nil
}

// AccountRepository handles Spotify account operations.
type AccountRepository struct {
	db *DB
}

// GetByUser retrieves the account linked to a user.
func (r *AccountRepository) GetByUser(ctx context.Context, userID uuid.UUID) (*db.Account, error) {
	var row accountRow
	err := r.db.gorm.WithContext(ctx).First(&row, "user_id = ?", userID.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying account: %w", err)
	}
	return row.toModel(), nil
}

// Upsert creates the account for a provider id or replaces its profile and tokens.
func (r *AccountRepository) Upsert(ctx context.Context, a *db.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	row := accountRow{
		ID:             a.ID.String(),
		UserID:         a.UserID.String(),
		ProviderID:     a.ProviderID,
		DisplayName:    a.DisplayName,
		Email:          a.Email,
		AccessToken:    a.AccessToken,
		RefreshToken:   a.RefreshToken,
		TokenExpiresAt: a.TokenExpiresAt,
	}

	tx := r.db.gorm.WithContext(ctx)
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"user_id":          row.UserID,
			"display_name":     row.DisplayName,
			"email":            row.Email,
			"access_token":     row.AccessToken,
			"refresh_token":    row.RefreshToken,
			"token_expires_at": row.TokenExpiresAt,
			"updated_at":       r.db.now(),
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upserting account: %w", err)
	}

	var stored accountRow
	if err := tx.First(&stored, "provider_id = ?", a.ProviderID).Error; err != nil {
		return fmt.Errorf("reloading account: %w", err)
	}
	*a = *stored.toModel()
	return nil
}

// UpdateAccessToken stores a refreshed access token. No other token field is touched.
func (r *AccountRepository) UpdateAccessToken(ctx context.Context, id uuid.UUID, token string, expiresAt time.Time) error {
	result := r.db.gorm.WithContext(ctx).
		Model(&accountRow{}).
		Where("id = ?", id.String()).
		Updates(map[string]any{
			"access_token":     token,
			"token_expires_at": expiresAt,
			"updated_at":       r.db.now(),
		})
	if result.Error != nil {
		return fmt.Errorf("updating access token: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return db.ErrNotFound
	}
	return nil
}

// RatingRepository handles rating operations.
type RatingRepository struct {
	db *DB
}

// Upsert inserts the rating or updates the existing row for the same
// (user, item, type) with one INSERT ... ON CONFLICT statement.
func (r *RatingRepository) Upsert(ctx context.Context, rating *db.Rating) error {
	if rating.ID == uuid.Nil {
		rating.ID = uuid.New()
	}
	row := ratingRow{
		ID:       rating.ID.String(),
		UserID:   rating.UserID.String(),
		ItemID:   rating.ItemID,
		ItemType: rating.ItemType,
		ItemName: rating.ItemName,
		Rating:   scoreToNumeric(rating.Score),
	}

	updates := map[string]any{
		"rating":     row.Rating,
		"updated_at": r.db.now(),
	}
	if rating.ItemName != "" {
		updates["item_name"] = rating.ItemName
	}

	tx := r.db.gorm.WithContext(ctx)
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "item_id"}, {Name: "item_type"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upserting rating: %w", err)
	}

	stored, err := r.Get(ctx, rating.UserID, rating.ItemID, rating.ItemType)
	if err != nil {
		return fmt.Errorf("reloading rating: %w", err)
	}
	*rating = *stored
	return nil
}

// Get retrieves a user's rating for one item.
func (r *RatingRepository) Get(ctx context.Context, userID uuid.UUID, itemID, itemType string) (*db.Rating, error) {
	var row ratingRow
	err := r.db.gorm.WithContext(ctx).
		Where("user_id = ? AND item_id = ? AND item_type = ?", userID.String(), itemID, itemType).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying rating: %w", err)
	}
	rating := row.toModel()
	return &rating, nil
}

// ListByUser returns a user's ratings, most recently updated first.
func (r *RatingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]db.Rating, error) {
	var rows []ratingRow
	err := r.db.gorm.WithContext(ctx).
		Where("user_id = ?", userID.String()).
		Order("updated_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("querying ratings: %w", err)
	}

	ratings := make([]db.Rating, 0, len(rows))
	for _, row := range rows {
		ratings = append(ratings, row.toModel())
	}
	return ratings, nil
}
