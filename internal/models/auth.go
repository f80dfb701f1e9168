package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims is the payload of a session JWT. It carries only the stable
// account id; profile data is always re-read from the store.
type SessionClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}
