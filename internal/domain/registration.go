package domain

import (
	"context"
	"time"
)

// RegistrationStatus is the lifecycle state of a registration.
type RegistrationStatus string

const (
	StatusRegistered RegistrationStatus = "REGISTERED"
	StatusCancelled  RegistrationStatus = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s RegistrationStatus) Valid() bool {
	return s == StatusRegistered || s == StatusCancelled
}

// CanTransitionTo reports whether the lifecycle allows s -> next.
// The only legal transition is REGISTERED -> CANCELLED.
func (s RegistrationStatus) CanTransitionTo(next RegistrationStatus) bool {
	return s == StatusRegistered && next == StatusCancelled
}

// CanBecome reports whether a stored status may be overwritten with next: either it
// is unchanged or the move is a legal transition.
func (s RegistrationStatus) CanBecome(next RegistrationStatus) bool {
	return s == next || s.CanTransitionTo(next)
}

// StatusesThatCanBecome lists the stored statuses that may be overwritten with next.
func StatusesThatCanBecome(next RegistrationStatus) []RegistrationStatus {
	var out []RegistrationStatus
	for _, s := range []RegistrationStatus{StatusRegistered, StatusCancelled} {
		if s.CanBecome(next) {
			out = append(out, s)
		}
	}
	return out
}

// Registration links a user to an event with a ticket token.
// swagger:model Registration
type Registration struct {
	ID               int64              `json:"id"`
	EventID          int64              `json:"eventId"`
	UserID           int64              `json:"userId"`
	RegistrationDate time.Time          `json:"registrationDate"`
	Status           RegistrationStatus `json:"status"`
	TicketToken      string             `json:"ticketToken"`
}

// NewRegistration returns a REGISTERED registration. ID is set by the repository on save.
func NewRegistration(eventID, userID int64, ticketToken string, registeredAt time.Time) *Registration {
	return &Registration{
		EventID:          eventID,
		UserID:           userID,
		RegistrationDate: registeredAt,
		Status:           StatusRegistered,
		TicketToken:      ticketToken,
	}
}

// OwnedBy reports whether userID is the owner recorded at creation.
func (r *Registration) OwnedBy(userID int64) bool {
	return r.UserID == userID
}

// RegistrationRepository persists registrations. Implementations must be safe for
// concurrent use and must serialize conflicting writes to the same record.
type RegistrationRepository interface {
	// Save inserts reg when reg.ID is zero (assigning the ID) and updates its status by ID
	// otherwise. An update that would break the lifecycle returns ErrStatusConflict.
	Save(ctx context.Context, reg *Registration) (*Registration, error)
	FindByID(ctx context.Context, id int64) (*Registration, error)
	FindByUserID(ctx context.Context, userID int64) ([]*Registration, error)
	FindByEventID(ctx context.Context, eventID int64) ([]*Registration, error)
	FindByStatus(ctx context.Context, status RegistrationStatus) ([]*Registration, error)
	// TransitionStatus atomically moves the registration from one status to another.
	// It returns ErrNotFound if id is unknown and ErrStatusConflict if the current
	// status is not from.
	TransitionStatus(ctx context.Context, id int64, from, to RegistrationStatus) (*Registration, error)
}

// EventExistenceChecker asks the event service whether an event exists.
// A nil error means the answer is definitive; transport failures, timeouts and
// malformed answers are returned as errors and never as false.
type EventExistenceChecker interface {
	Exists(ctx context.Context, eventID int64) (bool, error)
}

// TicketTokenGenerator produces opaque ticket tokens with negligible collision probability.
type TicketTokenGenerator interface {
	Generate() (string, error)
}

// RegistrationService coordinates registration creation and cancellation.
type RegistrationService interface {
	Register(ctx context.Context, eventID, userID int64) (*Registration, error)
	Cancel(ctx context.Context, registrationID, userID int64) (*Registration, error)
	GetByID(ctx context.Context, id int64) (*Registration, error)
	ListByUser(ctx context.Context, userID int64) ([]*Registration, error)
	ListByEvent(ctx context.Context, eventID int64) ([]*Registration, error)
	ListByStatus(ctx context.Context, status RegistrationStatus) ([]*Registration, error)
}
