package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"quicktable/internal/models"
)

// FindRestaurant resolves a restaurant by its public slug.
func (db *DB) FindRestaurant(ctx context.Context, slug string) (*models.Restaurant, error) {
	return db.scanRestaurant(db.QueryRowContext(ctx, `SELECT data FROM restaurants WHERE slug = ?`, slug))
}

func (db *DB) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	return db.scanRestaurant(db.QueryRowContext(ctx, `SELECT data FROM restaurants WHERE id = ?`, id))
}

func (db *DB) scanRestaurant(row *sql.Row) (*models.Restaurant, error) {
	var data string
	if err := row.Scan(&data); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get restaurant: %w", err)
	}
	var r models.Restaurant
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("failed to decode restaurant: %w", err)
	}
	return &r, nil
}

func (db *DB) ListRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	rows, err := db.QueryContext(ctx, `SELECT data FROM restaurants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}
	defer rows.Close()

	restaurants := []models.Restaurant{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan restaurant: %w", err)
		}
		var r models.Restaurant
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("failed to decode restaurant: %w", err)
		}
		restaurants = append(restaurants, r)
	}
	return restaurants, rows.Err()
}

// SaveRestaurant inserts or replaces the whole record keyed by ID.
func (db *DB) SaveRestaurant(ctx context.Context, r *models.Restaurant) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode restaurant: %w", err)
	}

	query := `INSERT INTO restaurants (id, slug, name, data, updated_at) VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET slug = excluded.slug, name = excluded.name,
              data = excluded.data, updated_at = excluded.updated_at`
	_, err = db.ExecContext(ctx, query, r.ID, r.Slug, r.Name, string(data), db.now().UnixMilli())
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateSlug, r.Slug)
		}
		return fmt.Errorf("failed to save restaurant: %w", err)
	}

	db.logger.Debug().Str("restaurant_id", r.ID).Str("slug", r.Slug).Msg("Restaurant saved")
	return nil
}
