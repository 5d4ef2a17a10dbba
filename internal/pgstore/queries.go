package pgstore

import (
	"time"

	"testdrive/internal/models"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/doug-martin/goqu/v9/exp"
)

const (
	dialectPostgres = "postgres"

	tableVehicles     = "vehicles"
	tableReservations = "reservations"
)

var (
	vehicleColumns = []interface{}{
		"id", "name", "type", "location", "available_days", "available_from", "available_to",
		"timezone", "sort_order", "created_at", "updated_at",
	}
	reservationColumns = []interface{}{
		"id", "reservation_code", "vehicle_id", "vehicle_type", "location", "start_at", "end_at",
		"customer_name", "customer_email", "customer_phone", "created_at",
	}
)

type sqlQuery struct {
	sql  string
	args []interface{}
}

func build(ds interface {
	ToSQL() (string, []interface{}, error)
}) (sqlQuery, error) {
	query, args, err := ds.ToSQL()
	return sqlQuery{sql: query, args: args}, err
}

func builder() goqu.DialectWrapper {
	return goqu.Dialect(dialectPostgres)
}

func selectCandidates(vehicleType, location string) (sqlQuery, error) {
	return build(builder().
		From(tableVehicles).
		Select(vehicleColumns...).
		Where(goqu.Ex{"type": vehicleType, "location": location}).
		Order(goqu.C("sort_order").Asc(), goqu.C("id").Asc()).
		Prepared(true))
}

func selectByLocation(location string) (sqlQuery, error) {
	return build(builder().
		From(tableVehicles).
		Select(vehicleColumns...).
		Where(goqu.Ex{"location": location}).
		Order(goqu.C("sort_order").Asc(), goqu.C("id").Asc()).
		Prepared(true))
}

func selectLocations() (sqlQuery, error) {
	return build(builder().
		From(tableVehicles).
		Select(goqu.C("location")).
		Distinct().
		Order(goqu.C("location").Asc()))
}

func upsertVehicle(v models.Vehicle, now time.Time) (sqlQuery, error) {
	return build(builder().
		Insert(tableVehicles).
		Rows(goqu.Record{
			"id":             v.ID,
			"name":           v.Name,
			"type":           v.Type,
			"location":       v.Location,
			"available_days": v.AvailableDays.String(),
			"available_from": int(v.AvailableFrom),
			"available_to":   int(v.AvailableTo),
			"timezone":       v.Timezone,
			"sort_order":     v.SortOrder,
			"created_at":     now,
			"updated_at":     now,
		}).
		OnConflict(goqu.DoUpdate("id", goqu.Record{
			"name":           goqu.L("EXCLUDED.name"),
			"type":           goqu.L("EXCLUDED.type"),
			"location":       goqu.L("EXCLUDED.location"),
			"available_days": goqu.L("EXCLUDED.available_days"),
			"available_from": goqu.L("EXCLUDED.available_from"),
			"available_to":   goqu.L("EXCLUDED.available_to"),
			"timezone":       goqu.L("EXCLUDED.timezone"),
			"sort_order":     goqu.L("EXCLUDED.sort_order"),
			"updated_at":     goqu.L("EXCLUDED.updated_at"),
		})).
		Prepared(true))
}

// lockVehicle serialises creates for one vehicle on its catalog row.
func lockVehicle(vehicleID int64) (sqlQuery, error) {
	return build(builder().
		From(tableVehicles).
		Select(goqu.C("id")).
		Where(goqu.C("id").Eq(vehicleID)).
		ForUpdate(exp.Wait).
		Prepared(true))
}

// insertIfNoOverlap inserts the reservation only when no stored slot of the vehicle overlaps.
// No returned row means the slot was taken.
func insertIfNoOverlap(vehicleID int64, slot models.Slot, r *models.Reservation) (sqlQuery, error) {
	b := builder()

	overlap := b.
		From(tableReservations).
		Select(goqu.L("1")).
		Where(
			goqu.C("vehicle_id").Eq(vehicleID),
			goqu.C("start_at").Lt(slot.End),
			goqu.C("end_at").Gt(slot.Start),
		)

	values := b.
		Select(
			goqu.L("?::text", r.ReservationID),
			goqu.L("?::bigint", vehicleID),
			goqu.L("?::text", r.VehicleType),
			goqu.L("?::text", r.Location),
			goqu.L("?::timestamptz", slot.Start),
			goqu.L("?::timestamptz", slot.End),
			goqu.L("?::text", r.CustomerName),
			goqu.L("?::text", r.CustomerEmail),
			goqu.L("?::text", r.CustomerPhone),
		).
		Where(goqu.L("NOT EXISTS ?", overlap))

	return build(b.
		Insert(tableReservations).
		Cols("reservation_code", "vehicle_id", "vehicle_type", "location", "start_at", "end_at",
			"customer_name", "customer_email", "customer_phone").
		FromQuery(values).
		Returning("id", "created_at").
		Prepared(true))
}

func selectReservationsByVehicle(vehicleID int64) (sqlQuery, error) {
	return build(builder().
		From(tableReservations).
		Select(reservationColumns...).
		Where(goqu.C("vehicle_id").Eq(vehicleID)).
		Order(goqu.C("start_at").Asc()).
		Prepared(true))
}

func selectReservationByCode(code string) (sqlQuery, error) {
	return build(builder().
		From(tableReservations).
		Select(reservationColumns...).
		Where(goqu.C("reservation_code").Eq(code)).
		Prepared(true))
}

func selectReservationsBetween(from, to time.Time) (sqlQuery, error) {
	return build(builder().
		From(tableReservations).
		Select(reservationColumns...).
		Where(goqu.C("start_at").Gte(from), goqu.C("start_at").Lt(to)).
		Order(goqu.C("start_at").Asc(), goqu.C("id").Asc()).
		Prepared(true))
}
