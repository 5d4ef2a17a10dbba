package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"testdrive/internal/domain"
	"testdrive/internal/models"

	"github.com/mattn/go-sqlite3"
)

const reservationColumns = `id, reservation_code, vehicle_id, vehicle_type, location, start_at, end_at,
       customer_name, customer_email, customer_phone, created_at`

// Slot bounds are stored as unix milliseconds so overlap checks are integer comparisons.
func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func (db *DB) FetchReservations(ctx context.Context, vehicleID int64) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations
              WHERE vehicle_id = ?
              ORDER BY start_at`
	return db.queryReservations(ctx, query, vehicleID)
}

// CreateIfNoOverlap runs the overlap check and insert in one BEGIN IMMEDIATE transaction.
func (db *DB) CreateIfNoOverlap(ctx context.Context, vehicleID int64, slot models.Slot, reservation *models.Reservation) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	start, end := toMillis(slot.Start), toMillis(slot.End)

	var overlapping int
	queryCount := `SELECT COUNT(*) FROM reservations WHERE vehicle_id = ? AND start_at < ? AND ? < end_at`
	if err := tx.QueryRowContext(ctx, queryCount, vehicleID, end, start).Scan(&overlapping); err != nil {
		return fmt.Errorf("failed to check overlap in tx: %w", err)
	}
	if overlapping > 0 {
		return domain.ErrSlotConflict
	}

	now := time.Now()
	queryInsert := `INSERT INTO reservations (
				reservation_code, vehicle_id, vehicle_type, location, start_at, end_at,
				customer_name, customer_email, customer_phone, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := tx.ExecContext(ctx, queryInsert,
		reservation.ReservationID,
		vehicleID,
		reservation.VehicleType,
		reservation.Location,
		start,
		end,
		reservation.CustomerName,
		reservation.CustomerEmail,
		reservation.CustomerPhone,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateReservationID
		}
		return fmt.Errorf("failed to insert reservation in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	reservation.ID = id
	reservation.VehicleID = vehicleID
	reservation.StartAt = slot.Start
	reservation.EndAt = slot.End
	reservation.CreatedAt = now
	return nil
}

func (db *DB) GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations WHERE reservation_code = ?`

	list, err := db.queryReservations(ctx, query, code)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return list[0], nil
}

// ListReservations returns reservations starting in [from, to).
func (db *DB) ListReservations(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	query := `SELECT ` + reservationColumns + `
              FROM reservations
              WHERE start_at >= ? AND start_at < ?
              ORDER BY start_at, id`
	return db.queryReservations(ctx, query, toMillis(from), toMillis(to))
}

func (db *DB) queryReservations(ctx context.Context, query string, args ...interface{}) ([]*models.Reservation, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]*models.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}
	return reservations, nil
}

func scanReservation(rows *sql.Rows) (*models.Reservation, error) {
	var (
		r          models.Reservation
		start, end int64
	)
	err := rows.Scan(
		&r.ID,
		&r.ReservationID,
		&r.VehicleID,
		&r.VehicleType,
		&r.Location,
		&start,
		&end,
		&r.CustomerName,
		&r.CustomerEmail,
		&r.CustomerPhone,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan reservation: %w", err)
	}
	r.StartAt = fromMillis(start)
	r.EndAt = fromMillis(end)
	return &r, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
