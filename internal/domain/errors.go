package domain

import "errors"

var (
	// ErrSlotConflict is returned by CreateIfNoOverlap when another reservation holds the slot.
	ErrSlotConflict = errors.New("slot conflicts with an existing reservation")

	// ErrDuplicateReservationID is returned when the generated code is already taken.
	ErrDuplicateReservationID = errors.New("reservation id already exists")

	ErrNotFound = errors.New("not found")
)
