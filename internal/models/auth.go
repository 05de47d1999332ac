package models

import "github.com/golang-jwt/jwt/v5"

// UserRole represents the staff roles recognised by this service.
type UserRole string

const (
	RoleAdmin UserRole = "ADMIN"
	RoleStaff UserRole = "STAFF"
)

// JWTClaims is the access token payload issued by the identity provider.
// This service only validates tokens; it never issues them.
type JWTClaims struct {
	UserID string   `json:"uid"`
	Email  string   `json:"email"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}
