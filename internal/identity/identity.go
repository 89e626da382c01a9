package identity

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the coarse access level carried in the custom:role claim.
type Role string

const (
	RoleSystemAdmin Role = "SystemAdmin"
	RoleAdmin       Role = "Admin"
	RoleDoctor      Role = "Doctor"
	RoleStaff       Role = "Staff"
)

// ErrNoTenant is returned when a token carries no tenant binding. Identity
// extraction fails closed on it.
var ErrNoTenant = errors.New("identity: token has no clinic binding")

// Identity is the authenticated caller derived from verified token claims.
type Identity struct {
	Sub      string
	Email    string
	ClinicID string
	Role     Role
	Groups   []string
}

// FromClaims builds an Identity from verified claims.
//
// custom:clinicId is mandatory; a token without it is rejected rather than
// admitted tenant-less. Email falls back to cognito:username when absent, the
// role defaults to Staff, and Groups is never nil.
func FromClaims(claims jwt.MapClaims) (Identity, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return Identity{}, errors.New("identity: token has no subject")
	}

	clinicID, _ := claims["custom:clinicId"].(string)
	if clinicID == "" {
		return Identity{}, ErrNoTenant
	}

	email, _ := claims["email"].(string)
	if email == "" {
		email, _ = claims["cognito:username"].(string)
	}

	role := Role(stringClaim(claims, "custom:role"))
	if role == "" {
		role = RoleStaff
	}

	groups := []string{}
	if raw, ok := claims["cognito:groups"].([]any); ok {
		for _, g := range raw {
			if s, ok := g.(string); ok {
				groups = append(groups, s)
			}
		}
	}

	return Identity{
		Sub:      sub,
		Email:    email,
		ClinicID: clinicID,
		Role:     role,
		Groups:   groups,
	}, nil
}

// IsSystemAdmin reports whether the identity holds platform-wide access.
// Membership in the SystemAdmin group decides this, the same way the
// permission checks do; the custom:role attribute does not grant it.
func (id Identity) IsSystemAdmin() bool {
	for _, g := range id.Groups {
		if g == string(RoleSystemAdmin) {
			return true
		}
	}
	return false
}

func stringClaim(claims jwt.MapClaims, name string) string {
	s, _ := claims[name].(string)
	return s
}
