// Package pgstore implements the vehicle catalog and reservation store on PostgreSQL.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"testdrive/internal/config"
	"testdrive/internal/domain"
	"testdrive/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const uniqueViolation = "23505"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS vehicles (
		id BIGINT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		type TEXT NOT NULL,
		location TEXT NOT NULL,
		available_days TEXT NOT NULL,
		available_from INTEGER NOT NULL,
		available_to INTEGER NOT NULL,
		timezone TEXT NOT NULL DEFAULT '',
		sort_order BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGSERIAL PRIMARY KEY,
		reservation_code TEXT NOT NULL UNIQUE,
		vehicle_id BIGINT NOT NULL REFERENCES vehicles(id),
		vehicle_type TEXT NOT NULL,
		location TEXT NOT NULL,
		start_at TIMESTAMPTZ NOT NULL,
		end_at TIMESTAMPTZ NOT NULL,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		CHECK (start_at < end_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_vehicles_type_location ON vehicles(type, location, sort_order, id)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_vehicle_start ON reservations(vehicle_id, start_at)`,
}

type Store struct {
	pool   *pgxpool.Pool
	logger *zerolog.Logger
}

// NewPool creates a pgxpool connection pool and waits for the server per DefaultRetryPolicy.
func NewPool(ctx context.Context, cfg config.PostgresConfig, logger *zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse db config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConnections)
	}
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pingWithRetry(ctx, pool.Ping, DefaultRetryPolicy, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func New(pool *pgxpool.Pool, logger *zerolog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) PingContext(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) SeedVehicles(ctx context.Context, vehicles []models.Vehicle) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	for _, v := range vehicles {
		v.Type = strings.ToLower(strings.TrimSpace(v.Type))
		v.Location = strings.ToLower(strings.TrimSpace(v.Location))

		q, err := upsertVehicle(v, now)
		if err != nil {
			return fmt.Errorf("build vehicle upsert: %w", err)
		}
		if _, err := tx.Exec(ctx, q.sql, q.args...); err != nil {
			return fmt.Errorf("upsert vehicle %d: %w", v.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit vehicles: %w", err)
	}
	s.logger.Info().Int("count", len(vehicles)).Msg("Vehicles synced")
	return nil
}

func (s *Store) FetchCandidates(ctx context.Context, vehicleType, location string) ([]*models.Vehicle, error) {
	q, err := selectCandidates(strings.ToLower(vehicleType), strings.ToLower(location))
	if err != nil {
		return nil, fmt.Errorf("build candidates query: %w", err)
	}
	return s.queryVehicles(ctx, q)
}

func (s *Store) ListByLocation(ctx context.Context, location string) ([]*models.Vehicle, error) {
	q, err := selectByLocation(strings.ToLower(location))
	if err != nil {
		return nil, fmt.Errorf("build location query: %w", err)
	}
	return s.queryVehicles(ctx, q)
}

func (s *Store) ListLocations(ctx context.Context) ([]string, error) {
	q, err := selectLocations()
	if err != nil {
		return nil, fmt.Errorf("build locations query: %w", err)
	}

	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	locations, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan locations: %w", err)
	}
	return locations, nil
}

func (s *Store) FetchReservations(ctx context.Context, vehicleID int64) ([]*models.Reservation, error) {
	q, err := selectReservationsByVehicle(vehicleID)
	if err != nil {
		return nil, fmt.Errorf("build reservations query: %w", err)
	}
	return s.queryReservations(ctx, q)
}

// CreateIfNoOverlap locks the vehicle row FOR UPDATE and inserts only if no stored slot overlaps.
func (s *Store) CreateIfNoOverlap(ctx context.Context, vehicleID int64, slot models.Slot, reservation *models.Reservation) error {
	lock, err := lockVehicle(vehicleID)
	if err != nil {
		return fmt.Errorf("build lock query: %w", err)
	}
	insert, err := insertIfNoOverlap(vehicleID, slot, reservation)
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var lockedID int64
	if err := tx.QueryRow(ctx, lock.sql, lock.args...).Scan(&lockedID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("vehicle %d: %w", vehicleID, domain.ErrNotFound)
		}
		return fmt.Errorf("lock vehicle row: %w", err)
	}

	var (
		id        int64
		createdAt time.Time
	)
	err = tx.QueryRow(ctx, insert.sql, insert.args...).Scan(&id, &createdAt)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return domain.ErrSlotConflict
	case isUniqueViolation(err):
		return domain.ErrDuplicateReservationID
	case err != nil:
		return fmt.Errorf("insert reservation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	reservation.ID = id
	reservation.VehicleID = vehicleID
	reservation.StartAt = slot.Start
	reservation.EndAt = slot.End
	reservation.CreatedAt = createdAt
	return nil
}

func (s *Store) GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error) {
	q, err := selectReservationByCode(code)
	if err != nil {
		return nil, fmt.Errorf("build reservation query: %w", err)
	}

	list, err := s.queryReservations(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, domain.ErrNotFound
	}
	return list[0], nil
}

func (s *Store) ListReservations(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	q, err := selectReservationsBetween(from, to)
	if err != nil {
		return nil, fmt.Errorf("build reservations query: %w", err)
	}
	return s.queryReservations(ctx, q)
}

func (s *Store) queryVehicles(ctx context.Context, q sqlQuery) ([]*models.Vehicle, error) {
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, fmt.Errorf("query vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]*models.Vehicle, 0)
	for rows.Next() {
		var (
			v        models.Vehicle
			days     string
			from, to int32
		)
		if err := rows.Scan(&v.ID, &v.Name, &v.Type, &v.Location, &days, &from, &to,
			&v.Timezone, &v.SortOrder, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		if v.AvailableDays, err = models.ParseWeekdays(days); err != nil {
			return nil, fmt.Errorf("vehicle %d: %w", v.ID, err)
		}
		v.AvailableFrom = models.ClockTime(from)
		v.AvailableTo = models.ClockTime(to)
		vehicles = append(vehicles, &v)
	}
	return vehicles, rows.Err()
}

func (s *Store) queryReservations(ctx context.Context, q sqlQuery) ([]*models.Reservation, error) {
	rows, err := s.pool.Query(ctx, q.sql, q.args...)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	reservations := make([]*models.Reservation, 0)
	for rows.Next() {
		var r models.Reservation
		if err := rows.Scan(&r.ID, &r.ReservationID, &r.VehicleID, &r.VehicleType, &r.Location,
			&r.StartAt, &r.EndAt, &r.CustomerName, &r.CustomerEmail, &r.CustomerPhone, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		reservations = append(reservations, &r)
	}
	return reservations, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
