// Package auth provides JWT authentication for the gateway's internal
// operator-only endpoints (currently just the menu reload trigger).
//
// There is no user store in this service: the only identity is "operator",
// authenticated by possession of a shared secret minted out of band.
package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// Claims represents JWT claims for an operator token.
type Claims struct {
	jwt.RegisteredClaims

	// Role is always "admin" today; kept as a field rather than a bare bool
	// so a future lower-privilege role does not require a token format change.
	Role string `json:"role"`
}

// IsAdmin returns true if the token carries the admin role.
func (c *Claims) IsAdmin() bool {
	return c.Role == "admin"
}
