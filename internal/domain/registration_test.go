package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRegistrationStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to RegistrationStatus
		want     bool
	}{
		{StatusRegistered, StatusCancelled, true},
		{StatusCancelled, StatusRegistered, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusRegistered, StatusRegistered, false},
		{RegistrationStatus("PENDING"), StatusCancelled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestRegistrationStatus_Valid(t *testing.T) {
	assert.True(t, StatusRegistered.Valid())
	assert.True(t, StatusCancelled.Valid())
	assert.False(t, RegistrationStatus("registered").Valid())
	assert.False(t, RegistrationStatus("").Valid())
}

func TestNewRegistration(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	reg := NewRegistration(4, 9, "tok", at)

	assert.Zero(t, reg.ID)
	assert.Equal(t, int64(4), reg.EventID)
	assert.Equal(t, int64(9), reg.UserID)
	assert.Equal(t, StatusRegistered, reg.Status)
	assert.Equal(t, "tok", reg.TicketToken)
	assert.Equal(t, at, reg.RegistrationDate)
	assert.True(t, reg.OwnedBy(9))
	assert.False(t, reg.OwnedBy(4))
}

func TestRegistrationStatus_CanBecome(t *testing.T) {
	assert.True(t, StatusRegistered.CanBecome(StatusRegistered))
	assert.True(t, StatusRegistered.CanBecome(StatusCancelled))
	assert.True(t, StatusCancelled.CanBecome(StatusCancelled))
	assert.False(t, StatusCancelled.CanBecome(StatusRegistered))

	assert.Equal(t, []RegistrationStatus{StatusRegistered, StatusCancelled}, StatusesThatCanBecome(StatusCancelled))
	assert.Equal(t, []RegistrationStatus{StatusRegistered}, StatusesThatCanBecome(StatusRegistered))
}
