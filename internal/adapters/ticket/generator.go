package ticket

import (
	"fmt"

	"github.com/google/uuid"

	"eventregistration/internal/domain"
)

type uuidGenerator struct{}

// NewUUIDGenerator returns a TicketTokenGenerator that issues random (v4) UUIDs in
// canonical 8-4-4-4-12 form. Uniqueness is probabilistic; stores add a unique constraint.
func NewUUIDGenerator() domain.TicketTokenGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("failed to generate ticket token: %w", err)
	}
	return id.String(), nil
}
