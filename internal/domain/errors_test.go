package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindInternal},
		{"plain error", errors.New("boom"), KindInternal},
		{"tagged", NewError(KindAlreadyCancelled, "registration is already cancelled", nil), KindAlreadyCancelled},
		{"tagged and wrapped", fmt.Errorf("cancel: %w", NewError(KindUnauthorized, "nope", nil)), KindUnauthorized},
		{"bare sentinel", ErrNotFound, KindNotFound},
		{"wrapped sentinel", fmt.Errorf("lookup: %w", ErrEventNotFound), KindEventNotFound},
		{"store error stays internal", ErrDuplicateTicketToken, KindInternal},
		{"tagged with cause", NewError(KindServiceUnavailable, "could not verify", cause), KindServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("timeout")
	err := fmt.Errorf("register: %w", NewError(KindServiceUnavailable, "could not verify that the event exists", cause))

	require.ErrorIs(t, err, ErrServiceUnavailable)
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEventNotFound)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "could not verify that the event exists", de.Reason)
	assert.Equal(t, "register: could not verify that the event exists: timeout", err.Error())
}

func TestError_InternalKindHasNoSentinel(t *testing.T) {
	err := NewError(KindInternal, "unexpected", nil)
	assert.Empty(t, err.Unwrap())
	assert.Equal(t, "unexpected", err.Error())
	assert.Equal(t, "internal", err.Kind.String())
}
