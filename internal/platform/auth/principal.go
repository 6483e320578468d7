// Package auth issues and validates bearer tokens and exposes the single
// immutable Principal value every service operation receives. No service
// reads credentials or ambient user state directly.
package auth

import (
	"context"
)

// Role is the actor class carried in the token.
type Role string

const (
	RolePaciente    Role = "paciente"
	RoleMedico      Role = "medico"
	RoleCoordinador Role = "coordinador"
	RoleAdmin       Role = "admin"
)

// Valid reports whether the role is one of the four known actor classes.
func (r Role) Valid() bool {
	switch r {
	case RolePaciente, RoleMedico, RoleCoordinador, RoleAdmin:
		return true
	}
	return false
}

// Principal is the verified identity behind a request.
type Principal struct {
	ID    int64
	Role  Role
	Email string
	Name  string
}

// Is reports whether the principal holds any of the given roles.
func (p Principal) Is(roles ...Role) bool {
	for _, r := range roles {
		if p.Role == r {
			return true
		}
	}
	return false
}

type principalKey struct{}

// ContextWithPrincipal returns a child context carrying the principal.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the request principal. ok is false when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
