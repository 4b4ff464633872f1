package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"quicktable/internal/models"
)

const reservationColumns = `id, restaurant_id, customer_name, customer_phone, date, time,
    party_size, special_requests, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReservation(s rowScanner) (models.Reservation, error) {
	var (
		r                  models.Reservation
		status             string
		created, updatedAt int64
	)
	err := s.Scan(&r.ID, &r.RestaurantID, &r.CustomerName, &r.CustomerPhone, &r.Date, &r.Time,
		&r.PartySize, &r.SpecialRequests, &status, &created, &updatedAt)
	if err != nil {
		return r, err
	}
	r.Status = models.ReservationStatus(status)
	r.CreatedAt = models.TimestampFromMillis(created)
	r.UpdatedAt = models.TimestampFromMillis(updatedAt)
	return r, nil
}

// CreateReservation stores r. Missing timestamps are stamped with the current time.
func (db *DB) CreateReservation(ctx context.Context, r *models.Reservation) error {
	now := models.NewTimestamp(db.now())
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	if r.UpdatedAt.IsZero() {
		r.UpdatedAt = r.CreatedAt
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}

	query := `INSERT INTO reservations (` + reservationColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		r.ID, r.RestaurantID, r.CustomerName, r.CustomerPhone, r.Date, r.Time,
		r.PartySize, r.SpecialRequests, string(r.Status), r.CreatedAt.Millis(), r.UpdatedAt.Millis(),
	)
	if err != nil {
		if isConstraint(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
		}
		return fmt.Errorf("failed to create reservation: %w", err)
	}

	db.logger.Info().
		Str("reservation_id", r.ID).
		Str("restaurant_id", r.RestaurantID).
		Str("date", r.Date).
		Str("time", r.Time).
		Int("party_size", r.PartySize).
		Msg("Reservation created")
	return nil
}

func (db *DB) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	row := db.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	r, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}
	return &r, nil
}

// UpdateReservationStatus sets status and bumps updated_at. Transition rules
// are enforced by the caller.
func (db *DB) UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	result, err := db.ExecContext(ctx,
		`UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), db.now().UnixMilli(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update reservation status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReservations returns a restaurant's reservations newest first. Search
// matches the customer name case-insensitively or the phone as a substring.
func (db *DB) ListReservations(ctx context.Context, restaurantID string, filter models.ReservationFilter) ([]models.Reservation, error) {
	conds := []string{"restaurant_id = ?"}
	args := []interface{}{restaurantID}

	if filter.Date != "" {
		conds = append(conds, "date = ?")
		args = append(args, filter.Date)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(filter.Status))
	}

	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE ` +
		strings.Join(conds, " AND ") + ` ORDER BY created_at DESC, id`
	reservations, err := db.queryReservations(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	// SQLite's lower() folds ASCII only, so the name match runs here.
	q := strings.TrimSpace(filter.Search)
	if q == "" {
		return reservations, nil
	}
	folded := strings.ToLower(q)
	matched := reservations[:0]
	for _, r := range reservations {
		if strings.Contains(strings.ToLower(r.CustomerName), folded) || strings.Contains(r.CustomerPhone, q) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// ListReservationsBetween returns reservations with from <= date <= to, in
// seating order.
func (db *DB) ListReservationsBetween(ctx context.Context, restaurantID, from, to string) ([]models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
              WHERE restaurant_id = ? AND date >= ? AND date <= ?
              ORDER BY date, time, created_at`
	return db.queryReservations(ctx, query, restaurantID, from, to)
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...interface{}) ([]models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	reservations := []models.Reservation{}
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		reservations = append(reservations, r)
	}
	return reservations, rows.Err()
}
