package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventregistration/internal/domain"
)

var regColumns = []string{"id", "event_id", "user_id", "registration_date", "status", "ticket_token"}

var regDate = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestRegistrationRepository_SaveInsert(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantID  int64
		wantErr bool
		errIs   error
	}{
		{
			name: "success assigns id",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO registrations \(event_id, user_id, registration_date, status, ticket_token\)`).
					WithArgs(int64(1), int64(2), regDate, "REGISTERED", "tok-1").
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
			},
			wantID: 10,
		},
		{
			name: "unique violation returns ErrDuplicateTicketToken",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			wantErr: true,
			errIs:   domain.ErrDuplicateTicketToken,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO registrations`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
			errIs:   sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			reg := domain.NewRegistration(1, 2, "tok-1", regDate)
			saved, err := repo.Save(ctx, reg)
			if tt.wantErr {
				require.Error(t, err)
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantID, saved.ID)
				assert.Equal(t, domain.StatusRegistered, saved.Status)
				assert.Equal(t, "tok-1", saved.TicketToken)
				assert.Zero(t, reg.ID, "input is not mutated")
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_SaveUpdate(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "success writes status only",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE registrations\s+SET status = \$1\s+WHERE id = \$2 AND status = ANY\(\$3\)\s+RETURNING`).
					WithArgs("CANCELLED", int64(5), pq.Array([]string{"REGISTERED", "CANCELLED"})).
					WillReturnRows(sqlmock.NewRows(regColumns).AddRow(int64(5), int64(1), int64(2), regDate, "CANCELLED", "tok-1"))
			},
		},
		{
			name: "unknown id",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE registrations`).
					WillReturnRows(sqlmock.NewRows(regColumns))
				mock.ExpectQuery(`SELECT status FROM registrations WHERE id = \$1`).
					WithArgs(int64(5)).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: true,
			errIs:   domain.ErrNotFound,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`UPDATE registrations`).
					WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
			errIs:   sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			repo := NewRegistrationRepository(db)
			reg := &domain.Registration{ID: 5, EventID: 1, UserID: 2, RegistrationDate: regDate, Status: domain.StatusCancelled, TicketToken: "tok-1"}
			saved, err := repo.Save(ctx, reg)
			if tt.wantErr {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.StatusCancelled, saved.Status)
				assert.Equal(t, int64(5), saved.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_SaveCannotReopen(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE registrations\s+SET status = \$1\s+WHERE id = \$2 AND status = ANY\(\$3\)`).
		WithArgs("REGISTERED", int64(5), pq.Array([]string{"REGISTERED"})).
		WillReturnRows(sqlmock.NewRows(regColumns))
	mock.ExpectQuery(`SELECT status FROM registrations WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))

	reg := &domain.Registration{ID: 5, Status: domain.StatusRegistered}
	saved, err := NewRegistrationRepository(db).Save(context.Background(), reg)
	require.ErrorIs(t, err, domain.ErrStatusConflict)
	assert.Nil(t, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepository_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, event_id, user_id, registration_date, status, ticket_token FROM registrations WHERE id = \$1`).
			WithArgs(int64(7)).
			WillReturnRows(sqlmock.NewRows(regColumns).AddRow(int64(7), int64(1), int64(2), regDate, "REGISTERED", "tok-7"))

		reg, err := NewRegistrationRepository(db).FindByID(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, &domain.Registration{
			ID: 7, EventID: 1, UserID: 2, RegistrationDate: regDate, Status: domain.StatusRegistered, TicketToken: "tok-7",
		}, reg)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`FROM registrations WHERE id = \$1`).
			WithArgs(int64(99)).
			WillReturnError(sql.ErrNoRows)

		_, err = NewRegistrationRepository(db).FindByID(ctx, 99)
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRegistrationRepository_Lists(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		pattern string
		arg     any
		call    func(repo domain.RegistrationRepository) ([]*domain.Registration, error)
	}{
		{
			name:    "by user",
			pattern: `WHERE user_id = \$1 ORDER BY id`,
			arg:     int64(2),
			call: func(repo domain.RegistrationRepository) ([]*domain.Registration, error) {
				return repo.FindByUserID(ctx, 2)
			},
		},
		{
			name:    "by event",
			pattern: `WHERE event_id = \$1 ORDER BY id`,
			arg:     int64(1),
			call: func(repo domain.RegistrationRepository) ([]*domain.Registration, error) {
				return repo.FindByEventID(ctx, 1)
			},
		},
		{
			name:    "by status",
			pattern: `WHERE status = \$1 ORDER BY id`,
			arg:     "REGISTERED",
			call: func(repo domain.RegistrationRepository) ([]*domain.Registration, error) {
				return repo.FindByStatus(ctx, domain.StatusRegistered)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name+" returns rows", func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(tt.pattern).
				WithArgs(tt.arg).
				WillReturnRows(sqlmock.NewRows(regColumns).
					AddRow(int64(1), int64(1), int64(2), regDate, "REGISTERED", "tok-1").
					AddRow(int64(2), int64(1), int64(2), regDate, "REGISTERED", "tok-2"))

			regs, err := tt.call(NewRegistrationRepository(db))
			require.NoError(t, err)
			require.Len(t, regs, 2)
			assert.Equal(t, "tok-1", regs[0].TicketToken)
			assert.Equal(t, "tok-2", regs[1].TicketToken)
			require.NoError(t, mock.ExpectationsWereMet())
		})

		t.Run(tt.name+" empty is non-nil", func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			mock.ExpectQuery(tt.pattern).WithArgs(tt.arg).WillReturnRows(sqlmock.NewRows(regColumns))

			regs, err := tt.call(NewRegistrationRepository(db))
			require.NoError(t, err)
			require.NotNil(t, regs)
			assert.Empty(t, regs)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRegistrationRepository_TransitionStatus(t *testing.T) {
	ctx := context.Background()
	transitionSQL := `UPDATE registrations\s+SET status = \$1\s+WHERE id = \$2 AND status = \$3`

	tests := []struct {
		name    string
		mock    func(mock sqlmock.Sqlmock)
		wantErr bool
		errIs   error
	}{
		{
			name: "applies when status matches",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(transitionSQL).
					WithArgs("CANCELLED", int64(3), "REGISTERED").
					WillReturnRows(sqlmock.NewRows(regColumns).AddRow(int64(3), int64(1), int64(2), regDate, "CANCELLED", "tok-3"))
			},
		},
		{
			name: "status already changed",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(transitionSQL).
					WithArgs("CANCELLED", int64(3), "REGISTERED").
					WillReturnRows(sqlmock.NewRows(regColumns))
				mock.ExpectQuery(`SELECT status FROM registrations WHERE id = \$1`).
					WithArgs(int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("CANCELLED"))
			},
			wantErr: true,
			errIs:   domain.ErrStatusConflict,
		},
		{
			name: "unknown id",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(transitionSQL).
					WillReturnRows(sqlmock.NewRows(regColumns))
				mock.ExpectQuery(`SELECT status FROM registrations WHERE id = \$1`).
					WillReturnError(sql.ErrNoRows)
			},
			wantErr: true,
			errIs:   domain.ErrNotFound,
		},
		{
			name: "db error",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(transitionSQL).WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
			errIs:   sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			reg, err := NewRegistrationRepository(db).TransitionStatus(ctx, 3, domain.StatusRegistered, domain.StatusCancelled)
			if tt.wantErr {
				require.ErrorIs(t, err, tt.errIs)
				assert.Nil(t, reg)
			} else {
				require.NoError(t, err)
				assert.Equal(t, domain.StatusCancelled, reg.Status)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMigrate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS registrations`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, Migrate(context.Background(), db))
	require.NoError(t, mock.ExpectationsWereMet())
}
