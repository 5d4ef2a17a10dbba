package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"regexp"
	"strings"

	"testdrive/internal/models"
)

var reservationIDPattern = regexp.MustCompile(`^TD-\d{4}-[A-Z0-9]+-[A-F0-9]{10}$`)

// ValidReservationID reports whether code has the TD-YYYY-TAG-HEX shape.
func ValidReservationID(code string) bool {
	return reservationIDPattern.MatchString(code)
}

type ReservationIDGenerator struct {
	random io.Reader
}

// NewReservationIDGenerator reads randomness from r, or crypto/rand when r is nil.
func NewReservationIDGenerator(r io.Reader) *ReservationIDGenerator {
	if r == nil {
		r = rand.Reader
	}
	return &ReservationIDGenerator{random: r}
}

func (g *ReservationIDGenerator) Generate(year int, vehicleType string) (string, error) {
	buf := make([]byte, models.ReservationIDRandomBytes)
	if _, err := io.ReadFull(g.random, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	return fmt.Sprintf("%s-%04d-%s-%s",
		models.ReservationIDPrefix, year, TypeTag(vehicleType), strings.ToUpper(hex.EncodeToString(buf))), nil
}

// TypeTag upper-cases vehicleType and keeps only [A-Z0-9].
func TypeTag(vehicleType string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(vehicleType) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "VEHICLE"
	}
	return b.String()
}
