package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"testdrive/internal/models"
)

const vehicleColumns = `id, name, type, location, available_days, available_from, available_to,
       timezone, sort_order, created_at, updated_at`

// SeedVehicles upserts the fleet from configuration in one transaction.
func (db *DB) SeedVehicles(ctx context.Context, vehicles []models.Vehicle) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `INSERT INTO vehicles (` + vehicleColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
              ON CONFLICT(id) DO UPDATE SET
                  name = excluded.name,
                  type = excluded.type,
                  location = excluded.location,
                  available_days = excluded.available_days,
                  available_from = excluded.available_from,
                  available_to = excluded.available_to,
                  timezone = excluded.timezone,
                  sort_order = excluded.sort_order,
                  updated_at = excluded.updated_at`

	now := time.Now()
	for i := range vehicles {
		v := vehicles[i]
		_, err := tx.ExecContext(ctx, query,
			v.ID,
			v.Name,
			strings.ToLower(strings.TrimSpace(v.Type)),
			strings.ToLower(strings.TrimSpace(v.Location)),
			v.AvailableDays.String(),
			int(v.AvailableFrom),
			int(v.AvailableTo),
			v.Timezone,
			v.SortOrder,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert vehicle %d: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vehicles: %w", err)
	}

	db.logger.Info().Int("count", len(vehicles)).Msg("Vehicles synced")
	return nil
}

func (db *DB) FetchCandidates(ctx context.Context, vehicleType, location string) ([]*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + `
              FROM vehicles
              WHERE type = ? AND location = ?
              ORDER BY sort_order, id`
	return db.queryVehicles(ctx, query, strings.ToLower(vehicleType), strings.ToLower(location))
}

func (db *DB) ListByLocation(ctx context.Context, location string) ([]*models.Vehicle, error) {
	query := `SELECT ` + vehicleColumns + `
              FROM vehicles
              WHERE location = ?
              ORDER BY sort_order, id`
	return db.queryVehicles(ctx, query, strings.ToLower(location))
}

func (db *DB) ListLocations(ctx context.Context) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT DISTINCT location FROM vehicles ORDER BY location`)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	locations := make([]string, 0)
	for rows.Next() {
		var location string
		if err := rows.Scan(&location); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, location)
	}
	return locations, rows.Err()
}

func (db *DB) queryVehicles(ctx context.Context, query string, args ...interface{}) ([]*models.Vehicle, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]*models.Vehicle, 0)
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vehicles: %w", err)
	}
	return vehicles, nil
}

func scanVehicle(rows *sql.Rows) (*models.Vehicle, error) {
	var (
		v        models.Vehicle
		days     string
		from, to int
	)
	err := rows.Scan(
		&v.ID,
		&v.Name,
		&v.Type,
		&v.Location,
		&days,
		&from,
		&to,
		&v.Timezone,
		&v.SortOrder,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan vehicle: %w", err)
	}

	v.AvailableDays, err = models.ParseWeekdays(days)
	if err != nil {
		return nil, fmt.Errorf("vehicle %d: %w", v.ID, err)
	}
	v.AvailableFrom = models.ClockTime(from)
	v.AvailableTo = models.ClockTime(to)
	return &v, nil
}
