package models

import (
	"encoding/json"
	"time"
)

// BookingInput is the raw booking payload as received from a client.
type BookingInput struct {
	Location      string      `json:"location"`
	VehicleType   string      `json:"vehicleType"`
	StartDateTime string      `json:"startDateTime"`
	DurationMins  json.Number `json:"durationMins"`
	CustomerName  string      `json:"customerName"`
	CustomerEmail string      `json:"customerEmail"`
	CustomerPhone string      `json:"customerPhone"`
}

// BookingRequest is a validated and normalised booking.
type BookingRequest struct {
	Location    string
	VehicleType string
	Start       time.Time
	Duration    time.Duration
	Customer    Customer
}

func (r BookingRequest) Slot() Slot {
	return NewSlot(r.Start, r.Duration)
}
