package auth

import (
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims are the bearer-token claims issued by the platform's session service.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"user_id"`
	Roles  []string  `json:"roles"`
}

// HasRole checks if the claims include the specified role.
func (c Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// IsAdmin is shorthand for HasRole(RoleAdmin).
func (c Claims) IsAdmin() bool { return c.HasRole(RoleAdmin) }

// Role constants
const (
	RoleAdmin         = "admin"
	RoleOperator      = "operator"
	RoleUser          = "user"
	RoleFacilityOwner = "facility_owner"
	RoleCoach         = "coach"
)
