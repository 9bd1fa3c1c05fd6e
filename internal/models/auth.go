package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest carries login credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned on successful authentication.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	IssuedAt    time.Time   `json:"issued_at"`
	Profile     ProfileInfo `json:"profile"`
}

// ProfileInfo is the public slice of a profile embedded in auth responses.
type ProfileInfo struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Role     Role   `json:"role"`
	IsStaff  bool   `json:"is_staff"`
}

// JWTClaims are the claims encoded in access tokens. Permission flags ride
// along so capabilities can be resolved without a profile lookup per request.
type JWTClaims struct {
	UserID    string `json:"uid"`
	Role      Role   `json:"role"`
	FullName  string `json:"name"`
	IsStaff   bool   `json:"staff"`
	CanAttest bool   `json:"can_attest"`
	CanSign   bool   `json:"can_sign"`
	jwt.RegisteredClaims
}

// Capabilities resolves the caller's capabilities from the claims.
func (c *JWTClaims) Capabilities() Capabilities {
	return ResolveCapabilities(c.Role, c.IsStaff, c.CanAttest, c.CanSign)
}
