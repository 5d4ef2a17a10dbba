package models

import "time"

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type Reservation struct {
	ID            int64     `json:"id"`
	ReservationID string    `json:"reservationId"`
	VehicleID     int64     `json:"vehicleId"`
	VehicleType   string    `json:"vehicleType"`
	Location      string    `json:"location"`
	StartAt       time.Time `json:"startDateTime"`
	EndAt         time.Time `json:"endDateTime"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail"`
	CustomerPhone string    `json:"customerPhone"`
	CreatedAt     time.Time `json:"createdAt"`
}

func (r *Reservation) Slot() Slot {
	return Slot{Start: r.StartAt, End: r.EndAt}
}
