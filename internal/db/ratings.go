package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// RatingRepository handles rating database operations.
type RatingRepository struct {
	pool *pgxpool.Pool
}

// Ratings are stored as NUMERIC(3,2) and moved in and out as integer hundredths.
const ratingColumns = `id, user_id, item_id, item_type, item_name,
	(rating * 100)::int, created_at, updated_at`

// Upsert inserts the rating or updates the existing row for the same
// (user, item, type) in a single statement. An empty ItemName keeps the
// stored name.
func (r *RatingRepository) Upsert(ctx context.Context, rating *Rating) error {
	if rating.ID == uuid.Nil {
		rating.ID = uuid.New()
	}
	query := `
		INSERT INTO ratings (id, user_id, item_id, item_type, item_name, rating, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric / 100, NOW(), NOW())
		ON CONFLICT (user_id, item_id, item_type) DO UPDATE SET
			rating = EXCLUDED.rating,
			item_name = COALESCE(NULLIF(EXCLUDED.item_name, ''), ratings.item_name),
			updated_at = NOW()
		RETURNING ` + ratingColumns
	row := r.pool.QueryRow(ctx, query,
		rating.ID,
		rating.UserID,
		rating.ItemID,
		rating.ItemType,
		rating.ItemName,
		rating.Score,
	)
	if err := scanRating(row, rating); err != nil {
		return fmt.Errorf("upserting rating: %w", err)
	}
	return nil
}

// Get retrieves a user's rating for one item.
func (r *RatingRepository) Get(ctx context.Context, userID uuid.UUID, itemID, itemType string) (*Rating, error) {
	query := `SELECT ` + ratingColumns + `
		FROM ratings
		WHERE user_id = $1 AND item_id = $2 AND item_type = $3`

	var rating Rating
	err := scanRating(r.pool.QueryRow(ctx, query, userID, itemID, itemType), &rating)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying rating: %w", err)
	}
	return &rating, nil
}

// ListByUser returns a user's ratings, most recently updated first.
func (r *RatingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Rating, error) {
	query := `SELECT ` + ratingColumns + `
		FROM ratings
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying ratings: %w", err)
	}
	defer rows.Close()

	ratings := []Rating{}
	for rows.Next() {
		var rating Rating
		if err := scanRating(rows, &rating); err != nil {
			return nil, fmt.Errorf("scanning rating: %w", err)
		}
		ratings = append(ratings, rating)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating ratings: %w", err)
	}
	return ratings, nil
}

func scanRating(row pgx.Row, rating *Rating) error {
	return row.Scan(
		&rating.ID,
		&rating.UserID,
		&rating.ItemID,
		&rating.ItemType,
		&rating.ItemName,
		&rating.Score,
		&rating.CreatedAt,
		&rating.UpdatedAt,
	)
}
