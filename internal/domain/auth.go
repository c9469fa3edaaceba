package domain

import "time"

// TokenIssuer issues tokens (e.g. JWT) for a caller identity.
type TokenIssuer interface {
	Issue(userID int64, expiry time.Duration) (string, error)
}

// TokenVerifier verifies a token and returns the caller's user ID.
type TokenVerifier interface {
	Verify(token string) (userID int64, err error)
}
