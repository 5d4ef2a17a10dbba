package service

import (
	"fmt"
	"math"
	"net/mail"
	"strings"
	"time"

	"testdrive/internal/config"
	"testdrive/internal/models"
)

// ValidationRules are the configurable parts of request validation.
// Zero values disable the corresponding rule.
type ValidationRules struct {
	HorizonDays      int
	AllowedDurations []int
	MinDurationMins  int
	MaxDurationMins  int
}

func RulesFromConfig(cfg config.BookingConfig) ValidationRules {
	return ValidationRules{
		HorizonDays:      cfg.HorizonDays,
		AllowedDurations: append([]int(nil), cfg.AllowedDurations...),
		MinDurationMins:  cfg.MinDurationMins,
		MaxDurationMins:  cfg.MaxDurationMins,
	}
}

type RequestValidator struct {
	rules ValidationRules
	now   func() time.Time
}

func NewRequestValidator(rules ValidationRules, now func() time.Time) *RequestValidator {
	if now == nil {
		now = time.Now
	}
	return &RequestValidator{rules: rules, now: now}
}

// maxDurationMins keeps minutes * time.Minute inside int64.
const maxDurationMins = math.MaxInt64 / int64(time.Minute)

// maxZoneOffset is the largest UTC offset in use (Pacific/Kiritimati). Reservation codes carry
// the start year in the vehicle's zone, which must stay four digits wide.
const (
	maxZoneOffset = 14 * time.Hour
	maxStartYear  = 9999
)

// Validate parses and normalises input. The first failing check is returned as *ValidationError.
func (v *RequestValidator) Validate(in models.BookingInput) (models.BookingRequest, error) {
	var req models.BookingRequest

	required := []struct {
		field string
		value string
	}{
		{"location", in.Location},
		{"vehicleType", in.VehicleType},
		{"startDateTime", in.StartDateTime},
		{"durationMins", in.DurationMins.String()},
		{"customerName", in.CustomerName},
		{"customerEmail", in.CustomerEmail},
		{"customerPhone", in.CustomerPhone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return req, newValidationError(ReasonMissingField, r.field,
				fmt.Sprintf("%s is required", r.field))
		}
	}

	start, err := time.Parse(time.RFC3339, strings.TrimSpace(in.StartDateTime))
	if err != nil {
		return req, newValidationError(ReasonInvalidDate, "startDateTime",
			"startDateTime must be an RFC 3339 date-time with offset")
	}
	if start.UTC().Add(maxZoneOffset).Year() > maxStartYear {
		return req, newValidationError(ReasonInvalidDate, "startDateTime",
			fmt.Sprintf("startDateTime must be before the year %d", maxStartYear+1))
	}

	now := v.now()
	if start.Before(now) {
		return req, newValidationError(ReasonPastDate, "startDateTime",
			"startDateTime must not be in the past")
	}

	mins, err := in.DurationMins.Int64()
	if err != nil || mins <= 0 || mins > maxDurationMins {
		return req, newValidationError(ReasonInvalidDuration, "durationMins",
			"durationMins must be a positive integer")
	}

	if !v.durationAllowed(mins) {
		return req, newValidationError(ReasonDurationNotAllowed, "durationMins",
			fmt.Sprintf("duration of %d minutes is not offered", mins))
	}

	if v.rules.HorizonDays > 0 && start.After(now.AddDate(0, 0, v.rules.HorizonDays)) {
		return req, newValidationError(ReasonBeyondHorizon, "startDateTime",
			fmt.Sprintf("bookings can be made at most %d days ahead", v.rules.HorizonDays))
	}

	email := strings.TrimSpace(in.CustomerEmail)
	if !validEmail(email) {
		return req, newValidationError(ReasonInvalidEmail, "customerEmail",
			"customerEmail is not a valid email address")
	}

	req = models.BookingRequest{
		Location:    strings.ToLower(strings.TrimSpace(in.Location)),
		VehicleType: strings.ToLower(strings.TrimSpace(in.VehicleType)),
		// Stores keep millisecond precision; all of them must compare the same instants.
		Start:       start.Truncate(time.Millisecond),
		Duration:    time.Duration(mins) * time.Minute,
		Customer: models.Customer{
			Name:  strings.TrimSpace(in.CustomerName),
			Email: email,
			Phone: strings.TrimSpace(in.CustomerPhone),
		},
	}
	return req, nil
}

func (v *RequestValidator) durationAllowed(mins int64) bool {
	if v.rules.MinDurationMins > 0 && mins < int64(v.rules.MinDurationMins) {
		return false
	}
	if v.rules.MaxDurationMins > 0 && mins > int64(v.rules.MaxDurationMins) {
		return false
	}
	if len(v.rules.AllowedDurations) == 0 {
		return true
	}
	for _, d := range v.rules.AllowedDurations {
		if int64(d) == mins {
			return true
		}
	}
	return false
}

// validEmail accepts a bare addr-spec only, no display name or angle brackets.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1
}
