// Package ratings validates and stores users' star ratings of tracks,
// albums, and artists.
package ratings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/justestif/spotify-ratings/internal/db"
)

// ValidationError describes input rejected before reaching storage.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Store persists ratings. Upsert must be a single atomic insert-or-update
// keyed by (user, item, type).
type Store interface {
	Upsert(ctx context.Context, rating *db.Rating) error
	Get(ctx context.Context, userID uuid.UUID, itemID, itemType string) (*db.Rating, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]db.Rating, error)
}

// Service applies rating rules on top of a Store.
type Service struct {
	store Store
}

// NewService creates a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// ValidItemType reports whether t is track, album, or artist.
func ValidItemType(t string) bool {
	switch t {
	case db.ItemTrack, db.ItemAlbum, db.ItemArtist:
		return true
	}
	return false
}

// Upsert validates and stores a rating, replacing the value of any existing
// rating for the same item. An empty itemName keeps a previously stored name.
func (s *Service) Upsert(ctx context.Context, userID uuid.UUID, itemID, itemType string, value Value, itemName string) (*db.Rating, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		return nil, &ValidationError{Field: "spotify_id", Message: "This field is required."}
	}
	if !ValidItemType(itemType) {
		return nil, &ValidationError{Field: "item_type", Message: fmt.Sprintf("%q is not a valid choice.", itemType)}
	}
	if value < 0 || value > MaxValue {
		return nil, &ValidationError{Field: "rating", Message: "Ensure this value is between 0.00 and 5.00."}
	}

	rating := &db.Rating{
		UserID:   userID,
		ItemID:   itemID,
		ItemType: itemType,
		ItemName: strings.TrimSpace(itemName),
		Score:    int(value),
	}
	if err := s.store.Upsert(ctx, rating); err != nil {
		return nil, fmt.Errorf("saving rating: %w", err)
	}
	return rating, nil
}

// Lookup returns the user's rating for one item; ok is false when none exists.
func (s *Service) Lookup(ctx context.Context, userID uuid.UUID, itemID, itemType string) (rating *db.Rating, ok bool, err error) {
	if strings.TrimSpace(itemID) == "" {
		return nil, false, &ValidationError{Field: "spotify_id", Message: "This field is required."}
	}
	if !ValidItemType(itemType) {
		return nil, false, &ValidationError{Field: "item_type", Message: fmt.Sprintf("%q is not a valid choice.", itemType)}
	}

	rating, err = s.store.Get(ctx, userID, itemID, itemType)
	if errors.Is(err, db.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading rating: %w", err)
	}
	return rating, true, nil
}

// List returns the user's ratings, most recently updated first.
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]db.Rating, error) {
	ratings, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing ratings: %w", err)
	}
	return ratings, nil
}
