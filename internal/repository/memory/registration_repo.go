// Package memory holds an in-process RegistrationRepository for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"eventregistration/internal/domain"
)

type registrationRepository struct {
	mu      sync.RWMutex
	nextID  int64
	byID    map[int64]*domain.Registration
	byToken map[string]int64
}

// NewRegistrationRepository returns an empty in-memory repository. Records are
// copied on the way in and out, so callers never share state with the store.
func NewRegistrationRepository() domain.RegistrationRepository {
	return &registrationRepository{
		byID:    make(map[int64]*domain.Registration),
		byToken: make(map[string]int64),
	}
}

func (r *registrationRepository) Save(_ context.Context, reg *domain.Registration) (*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if reg.ID == 0 {
		if _, taken := r.byToken[reg.TicketToken]; taken {
			return nil, domain.ErrDuplicateTicketToken
		}
		r.nextID++
		stored := *reg
		stored.ID = r.nextID
		r.byID[stored.ID] = &stored
		r.byToken[stored.TicketToken] = stored.ID
		out := stored
		return &out, nil
	}

	existing, ok := r.byID[reg.ID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if !existing.Status.CanBecome(reg.Status) {
		return nil, domain.ErrStatusConflict
	}
	existing.Status = reg.Status
	out := *existing
	return &out, nil
}

func (r *registrationRepository) FindByID(_ context.Context, id int64) (*domain.Registration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *reg
	return &out, nil
}

func (r *registrationRepository) FindByUserID(_ context.Context, userID int64) ([]*domain.Registration, error) {
	return r.filter(func(reg *domain.Registration) bool { return reg.UserID == userID }), nil
}

func (r *registrationRepository) FindByEventID(_ context.Context, eventID int64) ([]*domain.Registration, error) {
	return r.filter(func(reg *domain.Registration) bool { return reg.EventID == eventID }), nil
}

func (r *registrationRepository) FindByStatus(_ context.Context, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	return r.filter(func(reg *domain.Registration) bool { return reg.Status == status }), nil
}

// filter returns matching copies ordered by id.
func (r *registrationRepository) filter(match func(*domain.Registration) bool) []*domain.Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	regs := []*domain.Registration{}
	for _, reg := range r.byID {
		if match(reg) {
			out := *reg
			regs = append(regs, &out)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	return regs
}

func (r *registrationRepository) TransitionStatus(_ context.Context, id int64, from, to domain.RegistrationStatus) (*domain.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if reg.Status != from {
		return nil, domain.ErrStatusConflict
	}
	reg.Status = to
	out := *reg
	return &out, nil
}
