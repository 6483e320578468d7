package auth

import (
	"github.com/redsalud/coordinacion/internal/domain/fault"
)

// Allow is the single service-level role gate: it returns fault.Forbidden
// unless the principal holds one of the given roles. Scope predicates beyond
// the role (e.g. "coordinator of this hospital") stay in the owning service,
// layered on top of this check.
func Allow(p Principal, roles ...Role) error {
	if p.Is(roles...) {
		return nil
	}
	return fault.Forbiddenf("operación no permitida para el rol %s", p.Role)
}
