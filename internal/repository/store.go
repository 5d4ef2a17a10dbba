package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"testdrive/internal/domain"
	"testdrive/internal/models"
)

// MemoryReservationStore keeps reservations in process memory.
// Creates on the same vehicle are serialised by a per-vehicle mutex.
type MemoryReservationStore struct {
	locks sync.Map // vehicle id -> *sync.Mutex

	mu        sync.RWMutex
	byVehicle map[int64][]*models.Reservation
	byCode    map[string]*models.Reservation
	nextID    int64
	now       func() time.Time
}

func NewMemoryReservationStore() *MemoryReservationStore {
	return &MemoryReservationStore{
		byVehicle: make(map[int64][]*models.Reservation),
		byCode:    make(map[string]*models.Reservation),
		now:       time.Now,
	}
}

func (s *MemoryReservationStore) vehicleLock(vehicleID int64) *sync.Mutex {
	lock, _ := s.locks.LoadOrStore(vehicleID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func (s *MemoryReservationStore) FetchReservations(ctx context.Context, vehicleID int64) ([]*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneAll(s.byVehicle[vehicleID]), nil
}

func (s *MemoryReservationStore) CreateIfNoOverlap(ctx context.Context, vehicleID int64, slot models.Slot, reservation *models.Reservation) error {
	lock := s.vehicleLock(vehicleID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	for _, r := range s.byVehicle[vehicleID] {
		if slot.Overlaps(r.Slot()) {
			s.mu.RUnlock()
			return domain.ErrSlotConflict
		}
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byCode[reservation.ReservationID]; exists {
		return domain.ErrDuplicateReservationID
	}

	s.nextID++
	reservation.ID = s.nextID
	reservation.VehicleID = vehicleID
	reservation.StartAt = slot.Start
	reservation.EndAt = slot.End
	if reservation.CreatedAt.IsZero() {
		reservation.CreatedAt = s.now()
	}

	stored := *reservation
	s.byVehicle[vehicleID] = append(s.byVehicle[vehicleID], &stored)
	s.byCode[stored.ReservationID] = &stored
	return nil
}

func (s *MemoryReservationStore) GetReservationByCode(ctx context.Context, code string) (*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *r
	return &copied, nil
}

// ListReservations returns reservations starting in [from, to), ordered by start.
func (s *MemoryReservationStore) ListReservations(ctx context.Context, from, to time.Time) ([]*models.Reservation, error) {
	s.mu.RLock()
	result := make([]*models.Reservation, 0)
	for _, list := range s.byVehicle {
		for _, r := range list {
			if !r.StartAt.Before(from) && r.StartAt.Before(to) {
				copied := *r
				result = append(result, &copied)
			}
		}
	}
	s.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if !result[i].StartAt.Equal(result[j].StartAt) {
			return result[i].StartAt.Before(result[j].StartAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func cloneAll(list []*models.Reservation) []*models.Reservation {
	result := make([]*models.Reservation, 0, len(list))
	for _, r := range list {
		copied := *r
		result = append(result, &copied)
	}
	return result
}
