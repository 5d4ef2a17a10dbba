package service

import "errors"

var (
	// ErrNoVehiclesFound means the candidate pool for type+location is empty.
	ErrNoVehiclesFound = errors.New("no vehicles found")

	// ErrNoAvailability means candidates exist but none is free for the slot.
	ErrNoAvailability = errors.New("no vehicle available for the requested slot")

	ErrLocationRequired = errors.New("location query param is required")
)

type ValidationReason string

const (
	ReasonMissingField       ValidationReason = "MissingField"
	ReasonInvalidDate        ValidationReason = "InvalidDate"
	ReasonPastDate           ValidationReason = "PastDate"
	ReasonInvalidDuration    ValidationReason = "InvalidDuration"
	ReasonDurationNotAllowed ValidationReason = "DurationNotAllowed"
	ReasonBeyondHorizon      ValidationReason = "BeyondHorizon"
	ReasonInvalidEmail       ValidationReason = "InvalidEmail"
)

// ValidationError rejects a booking request before any catalog or store access.
type ValidationError struct {
	Reason ValidationReason
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return e.Detail
}

func newValidationError(reason ValidationReason, field, detail string) *ValidationError {
	return &ValidationError{Reason: reason, Field: field, Detail: detail}
}
