package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"eventregistration/internal/domain"
)

// maxTokenAttempts bounds how often Register regenerates a ticket token after the
// store reports a collision.
const maxTokenAttempts = 3

type registrationService struct {
	repo   domain.RegistrationRepository
	events domain.EventExistenceChecker
	tokens domain.TicketTokenGenerator
	logger *slog.Logger
	now    func() time.Time
}

// NewRegistrationService creates the RegistrationService that owns the registration
// lifecycle. A nil logger discards output.
//
// Register checks event existence and then writes; the two are not atomic with the
// event's own lifecycle, so an event cancelled in between still gets the registration.
// No compensation runs for that window.
func NewRegistrationService(
	repo domain.RegistrationRepository,
	events domain.EventExistenceChecker,
	tokens domain.TicketTokenGenerator,
	logger *slog.Logger,
) domain.RegistrationService {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &registrationService{
		repo:   repo,
		events: events,
		tokens: tokens,
		logger: logger,
		now:    time.Now,
	}
}

// Register creates a REGISTERED registration with a fresh ticket token. Registering
// the same user for the same event twice is allowed and yields independent tickets.
func (s *registrationService) Register(ctx context.Context, eventID, userID int64) (*domain.Registration, error) {
	var missing []string
	if eventID <= 0 {
		missing = append(missing, "eventId is required")
	}
	if userID <= 0 {
		missing = append(missing, "userId is required")
	}
	if len(missing) > 0 {
		return nil, domain.NewError(domain.KindValidation, strings.Join(missing, "; "), nil)
	}

	exists, err := s.events.Exists(ctx, eventID)
	if err != nil {
		s.logger.ErrorContext(ctx, "event existence check failed", "event_id", eventID, "user_id", userID, "err", err)
		return nil, domain.NewError(domain.KindServiceUnavailable, "could not verify that the event exists", err)
	}
	if !exists {
		s.logger.WarnContext(ctx, "registration rejected: event not found", "event_id", eventID, "user_id", userID)
		return nil, domain.NewError(domain.KindEventNotFound, "event not found", nil)
	}

	for attempt := 1; attempt <= maxTokenAttempts; attempt++ {
		token, err := s.tokens.Generate()
		if err != nil {
			return nil, fmt.Errorf("generate ticket token: %w", err)
		}
		reg := domain.NewRegistration(eventID, userID, token, s.now())
		saved, err := s.repo.Save(ctx, reg)
		if errors.Is(err, domain.ErrDuplicateTicketToken) {
			s.logger.WarnContext(ctx, "ticket token collision, regenerating", "event_id", eventID, "attempt", attempt)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("save registration: %w", err)
		}
		s.logger.InfoContext(ctx, "registration created",
			"registration_id", saved.ID, "event_id", eventID, "user_id", userID)
		return saved, nil
	}
	return nil, fmt.Errorf("save registration: %w after %d attempts", domain.ErrDuplicateTicketToken, maxTokenAttempts)
}

// Cancel moves a registration to CANCELLED on behalf of its owner. The write is a
// conditional transition in the store, so of two concurrent cancels only one succeeds
// and the other observes AlreadyCancelled.
func (s *registrationService) Cancel(ctx context.Context, registrationID, userID int64) (*domain.Registration, error) {
	if userID <= 0 {
		return nil, domain.NewError(domain.KindValidation, "caller user id is required", nil)
	}
	reg, err := s.GetByID(ctx, registrationID)
	if err != nil {
		return nil, err
	}

	if !reg.OwnedBy(userID) {
		s.logger.WarnContext(ctx, "cancellation rejected: caller is not the owner",
			"registration_id", registrationID, "user_id", userID)
		return nil, domain.NewError(domain.KindUnauthorized, "not authorized to cancel this registration", nil)
	}
	if !reg.Status.CanTransitionTo(domain.StatusCancelled) {
		return nil, domain.NewError(domain.KindAlreadyCancelled, "registration is already cancelled", nil)
	}

	updated, err := s.repo.TransitionStatus(ctx, registrationID, domain.StatusRegistered, domain.StatusCancelled)
	switch {
	case errors.Is(err, domain.ErrStatusConflict):
		return nil, domain.NewError(domain.KindAlreadyCancelled, "registration is already cancelled", nil)
	case errors.Is(err, domain.ErrNotFound):
		return nil, domain.NewError(domain.KindNotFound, "registration not found", nil)
	case err != nil:
		return nil, fmt.Errorf("cancel registration: %w", err)
	}

	s.logger.InfoContext(ctx, "registration cancelled",
		"registration_id", registrationID, "event_id", updated.EventID, "user_id", userID)
	return updated, nil
}

func (s *registrationService) GetByID(ctx context.Context, id int64) (*domain.Registration, error) {
	if id <= 0 {
		return nil, domain.NewError(domain.KindNotFound, "registration not found", nil)
	}
	reg, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "registration not found", nil)
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return reg, nil
}

// ListByUser never fails for an unknown user, including IDs no user can have;
// the answer is an empty list.
func (s *registrationService) ListByUser(ctx context.Context, userID int64) ([]*domain.Registration, error) {
	regs, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations by user: %w", err)
	}
	return nonNil(regs), nil
}

func (s *registrationService) ListByEvent(ctx context.Context, eventID int64) ([]*domain.Registration, error) {
	regs, err := s.repo.FindByEventID(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations by event: %w", err)
	}
	return nonNil(regs), nil
}

func (s *registrationService) ListByStatus(ctx context.Context, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	if !status.Valid() {
		return nil, domain.NewError(domain.KindValidation, fmt.Sprintf("unknown status %q", status), nil)
	}
	regs, err := s.repo.FindByStatus(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list registrations by status: %w", err)
	}
	return nonNil(regs), nil
}

func nonNil(regs []*domain.Registration) []*domain.Registration {
	if regs == nil {
		return []*domain.Registration{}
	}
	return regs
}
