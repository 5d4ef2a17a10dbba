package models

type RejectionKind string

const (
	RejectionValidation     RejectionKind = "validation_error"
	RejectionNoVehicles     RejectionKind = "no_vehicles_found"
	RejectionNoAvailability RejectionKind = "no_availability"
)

type Rejection struct {
	Kind   RejectionKind `json:"kind"`
	Reason string        `json:"reason,omitempty"`
	Field  string        `json:"field,omitempty"`
	Detail string        `json:"message"`
}

// Outcome is either Booked with a Reservation or Rejected with a Rejection.
type Outcome struct {
	Booked      bool         `json:"available"`
	Reservation *Reservation `json:"reservation,omitempty"`
	Rejection   *Rejection   `json:"rejection,omitempty"`
}

func Booked(r *Reservation) *Outcome {
	return &Outcome{Booked: true, Reservation: r}
}

func Rejected(rej Rejection) *Outcome {
	return &Outcome{Rejection: &rej}
}
