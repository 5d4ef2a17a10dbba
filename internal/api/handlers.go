package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"testdrive/internal/domain"
	"testdrive/internal/export"
	"testdrive/internal/models"
	"testdrive/internal/service"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxBodyBytes = 1 << 20

type bookedResponse struct {
	Available   bool                `json:"available"`
	Reservation *models.Reservation `json:"reservation"`
}

type rejectedResponse struct {
	Available bool                 `json:"available"`
	Kind      models.RejectionKind `json:"kind"`
	Reason    string               `json:"reason,omitempty"`
	Field     string               `json:"field,omitempty"`
	Message   string               `json:"message"`
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleBook(w http.ResponseWriter, r *http.Request) {
	var input models.BookingInput
	if err := decodeJSON(w, r, &input); err != nil {
		writeJSON(w, http.StatusBadRequest, rejectedResponse{
			Kind:    models.RejectionValidation,
			Reason:  "invalid_body",
			Message: "invalid request body: " + err.Error(),
		})
		return
	}

	outcome, err := s.svc.Book(r.Context(), input)
	if err != nil {
		s.logger.Error().Err(err).Str("request_id", requestIDFrom(r.Context())).Msg("booking failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if outcome.Booked {
		writeJSON(w, http.StatusCreated, bookedResponse{Available: true, Reservation: outcome.Reservation})
		return
	}

	rej := outcome.Rejection
	writeJSON(w, http.StatusBadRequest, rejectedResponse{
		Kind:    rej.Kind,
		Reason:  rej.Reason,
		Field:   rej.Field,
		Message: rej.Detail,
	})
}

func (s *HTTPServer) handleVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.svc.ListVehiclesByLocation(r.Context(), r.URL.Query().Get("location"))
	if err != nil {
		if errors.Is(err, service.ErrLocationRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error().Err(err).Msg("list vehicles failed")
		writeError(w, http.StatusInternalServerError, "failed to list vehicles")
		return
	}

	if vehicles == nil {
		vehicles = []*models.Vehicle{}
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (s *HTTPServer) handleLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := s.svc.ListLocations(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("list locations failed")
		writeError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}

	if locations == nil {
		locations = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations})
}

func (s *HTTPServer) handleReservation(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "reservationId")

	reservation, err := s.svc.GetReservation(r.Context(), code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeError(w, http.StatusNotFound, "reservation not found")
			return
		}
		s.logger.Error().Err(err).Str("reservation_id", code).Msg("get reservation failed")
		writeError(w, http.StatusInternalServerError, "failed to get reservation")
		return
	}

	writeJSON(w, http.StatusOK, reservation)
}

// handleExport serves the reservations starting between from and to, both inclusive calendar days.
func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	from, err := s.parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid from date: %v", err))
		return
	}
	to, err := s.parseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid to date: %v", err))
		return
	}
	if to.Before(from) {
		writeError(w, http.StatusBadRequest, "to must not be before from")
		return
	}

	end := to.AddDate(0, 0, 1)
	reservations, err := s.svc.ListReservations(r.Context(), from, end)
	if err != nil {
		s.logger.Error().Err(err).Msg("list reservations failed")
		writeError(w, http.StatusInternalServerError, "failed to list reservations")
		return
	}

	var buf bytes.Buffer
	if err := export.WriteReservations(&buf, from, end, s.zone, reservations); err != nil {
		s.logger.Error().Err(err).Msg("export failed")
		writeError(w, http.StatusInternalServerError, "failed to build export")
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(from, to)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("date is required")
	}
	return time.ParseInLocation("2006-01-02", raw, s.zone)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
