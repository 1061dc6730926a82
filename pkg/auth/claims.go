package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AccessTokenPayload captures the data available when minting a JWT.
//
// Moderator is the single derived capability boolean: the auth boundary folds
// any legacy role flags into it once, and nothing downstream re-derives it.
type AccessTokenPayload struct {
	UserID    uuid.UUID
	Moderator bool
	JTI       string
}

// AccessTokenClaims represents the typed JWT issued to clients.
type AccessTokenClaims struct {
	UserID    uuid.UUID `json:"user_id"`
	Moderator bool      `json:"moderator"`
	jwt.RegisteredClaims
}
