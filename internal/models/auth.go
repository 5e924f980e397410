package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the long-lived session token issued on login.
type LoginResponse struct {
	SessionToken string `json:"sessionToken"`
}

// SessionClaims is the JWT payload carried by session tokens. Every request
// resolves the caller's identity from these two fields before any
// authorization decision is made.
type SessionClaims struct {
	UserID string   `json:"userId"`
	Role   UserRole `json:"userRole"`
	jwt.RegisteredClaims
}

// Caller identifies the authenticated principal for access checks.
type Caller struct {
	UserID string
	Role   UserRole
}

// Caller extracts the principal from the claims.
func (c *SessionClaims) Caller() Caller {
	return Caller{UserID: c.UserID, Role: c.Role}
}
