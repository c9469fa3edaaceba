package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"eventregistration/internal/domain"
)

// uniqueViolation is the Postgres SQLSTATE for unique_violation.
const uniqueViolation = "23505"

const registrationColumns = `id, event_id, user_id, registration_date, status, ticket_token`

type registrationRepository struct {
	DB *sql.DB
}

// NewRegistrationRepository returns a domain.RegistrationRepository implemented with Postgres.
func NewRegistrationRepository(db *sql.DB) domain.RegistrationRepository {
	return &registrationRepository{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRegistration(row rowScanner) (*domain.Registration, error) {
	reg := &domain.Registration{}
	var status string
	if err := row.Scan(&reg.ID, &reg.EventID, &reg.UserID, &reg.RegistrationDate, &status, &reg.TicketToken); err != nil {
		return nil, err
	}
	reg.Status = domain.RegistrationStatus(status)
	return reg, nil
}

func (r *registrationRepository) Save(ctx context.Context, reg *domain.Registration) (*domain.Registration, error) {
	if reg.ID == 0 {
		return r.insert(ctx, reg)
	}
	return r.update(ctx, reg)
}

func (r *registrationRepository) insert(ctx context.Context, reg *domain.Registration) (*domain.Registration, error) {
	query := `
		INSERT INTO registrations (event_id, user_id, registration_date, status, ticket_token)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	saved := *reg
	err := r.DB.QueryRowContext(ctx, query, reg.EventID, reg.UserID, reg.RegistrationDate, string(reg.Status), reg.TicketToken).
		Scan(&saved.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return nil, domain.ErrDuplicateTicketToken
		}
		return nil, fmt.Errorf("insert registration: %w", err)
	}
	return &saved, nil
}

// update writes status only; every other column is immutable after insert. The row
// is only touched when its current status may become the new one.
func (r *registrationRepository) update(ctx context.Context, reg *domain.Registration) (*domain.Registration, error) {
	query := `
		UPDATE registrations
		SET status = $1
		WHERE id = $2 AND status = ANY($3)
		RETURNING ` + registrationColumns
	var allowed []string
	for _, s := range domain.StatusesThatCanBecome(reg.Status) {
		allowed = append(allowed, string(s))
	}
	saved, err := scanRegistration(r.DB.QueryRowContext(ctx, query, string(reg.Status), reg.ID, pq.Array(allowed)))
	if err == nil {
		return saved, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("update registration: %w", err)
	}
	return nil, r.missingOrConflict(ctx, reg.ID)
}

func (r *registrationRepository) FindByID(ctx context.Context, id int64) (*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *registrationRepository) FindByUserID(ctx context.Context, userID int64) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE user_id = $1 ORDER BY id`
	return r.list(ctx, query, userID)
}

func (r *registrationRepository) FindByEventID(ctx context.Context, eventID int64) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY id`
	return r.list(ctx, query, eventID)
}

func (r *registrationRepository) FindByStatus(ctx context.Context, status domain.RegistrationStatus) ([]*domain.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE status = $1 ORDER BY id`
	return r.list(ctx, query, string(status))
}

func (r *registrationRepository) list(ctx context.Context, query string, arg any) ([]*domain.Registration, error) {
	rows, err := r.DB.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	regs := []*domain.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return regs, nil
}

// TransitionStatus is a single conditional UPDATE, so concurrent callers are
// serialized by the row lock and only one of them matches the expected status.
func (r *registrationRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.RegistrationStatus) (*domain.Registration, error) {
	query := `
		UPDATE registrations
		SET status = $1
		WHERE id = $2 AND status = $3
		RETURNING ` + registrationColumns
	reg, err := scanRegistration(r.DB.QueryRowContext(ctx, query, string(to), id, string(from)))
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transition registration status: %w", err)
	}

	return nil, r.missingOrConflict(ctx, id)
}

// missingOrConflict explains a conditional update that matched no row.
func (r *registrationRepository) missingOrConflict(ctx context.Context, id int64) error {
	var current string
	err := r.DB.QueryRowContext(ctx, `SELECT status FROM registrations WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("read registration status: %w", err)
	}
	return domain.ErrStatusConflict
}
