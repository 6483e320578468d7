package identity

import (
	"context"
	"strings"
	"time"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
)

type AdminInput struct {
	Documento string  `json:"documento"`
	Nombre    string  `json:"nombre"`
	Email     string  `json:"email"`
	Telefono  *string `json:"telefono"`
	Password  string  `json:"password"`
}

type AdminUpdateInput struct {
	Nombre   *string `json:"nombre"`
	Email    *string `json:"email"`
	Telefono *string `json:"telefono"`
}

func (s *Service) ListAdmins(ctx context.Context, p auth.Principal, includeInactive bool) ([]*Admin, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.admins.List(ctx, includeInactive)
}

// GetAdmin allows an admin to read any profile; anyone else may only
// read their own.
func (s *Service) GetAdmin(ctx context.Context, p auth.Principal, id int64) (*Admin, error) {
	if p.Role != auth.RoleAdmin && p.ID != id {
		return nil, fault.Forbiddenf("No tienes permisos para ver este perfil de administrador")
	}
	return s.admins.GetByID(ctx, id)
}

func (s *Service) CreateAdmin(ctx context.Context, p auth.Principal, in AdminInput) (*Admin, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.createAdmin(ctx, in)
}

// BootstrapAdmin creates an admin account without a requesting
// principal. Reserved for the CLI, which runs with operator access.
func (s *Service) BootstrapAdmin(ctx context.Context, in AdminInput) (*Admin, error) {
	return s.createAdmin(ctx, in)
}

func (s *Service) createAdmin(ctx context.Context, in AdminInput) (*Admin, error) {
	if in.Documento == "" || in.Nombre == "" || in.Email == "" {
		return nil, fault.BadRequestf("Documento, nombre y email son obligatorios")
	}
	if existing, err := s.admins.GetByEmail(ctx, in.Email); err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	} else if existing != nil {
		return nil, fault.Conflictf("Ya existe un administrador con ese email")
	}
	if existing, err := s.admins.GetByDocumento(ctx, in.Documento); err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	} else if existing != nil {
		return nil, fault.Conflictf("Ya existe un administrador con ese documento")
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	a := &Admin{
		Documento:      in.Documento,
		Nombre:         in.Nombre,
		Email:          strings.ToLower(in.Email),
		Telefono:       in.Telefono,
		HashedPassword: hashed,
		Activo:         true,
		FechaCreacion:  time.Now().UTC(),
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info().Int64("admin_id", a.ID).Msg("admin created")
	return a, nil
}

func (s *Service) UpdateAdmin(ctx context.Context, p auth.Principal, id int64, in AdminUpdateInput) (*Admin, error) {
	if p.Role != auth.RoleAdmin && p.ID != id {
		return nil, fault.Forbiddenf("No tienes permisos para actualizar este perfil de administrador")
	}
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Email != nil && !strings.EqualFold(*in.Email, a.Email) {
		existing, err := s.admins.GetByEmail(ctx, *in.Email)
		if err != nil && fault.KindOf(err) != fault.NotFound {
			return nil, err
		}
		if existing != nil {
			return nil, fault.Conflictf("Ya existe un administrador con ese email")
		}
		a.Email = strings.ToLower(*in.Email)
	}
	if in.Nombre != nil {
		a.Nombre = *in.Nombre
	}
	if in.Telefono != nil {
		a.Telefono = in.Telefono
	}
	if err := s.admins.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// DeactivateAdmin soft-deletes an admin account. Self-deactivation is
// rejected, and the count check runs inside the same transaction as the
// update so the system can never lose its last active admin.
func (s *Service) DeactivateAdmin(ctx context.Context, p auth.Principal, id int64) error {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return err
	}
	if p.ID == id {
		return fault.BadRequestf("No puedes desactivarte a ti mismo")
	}
	err := s.tx(ctx, func(ctx context.Context) error {
		a, err := s.admins.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !a.Activo {
			return nil
		}
		active, err := s.admins.CountActive(ctx)
		if err != nil {
			return err
		}
		if active <= 1 {
			return fault.Conflictf("No se puede desactivar el último administrador activo")
		}
		a.Activo = false
		return s.admins.Update(ctx, a)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("admin_id", id).Msg("admin deactivated")
	return nil
}

func (s *Service) ReactivateAdmin(ctx context.Context, p auth.Principal, id int64) (*Admin, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	a, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !a.Activo {
		a.Activo = true
		if err := s.admins.Update(ctx, a); err != nil {
			return nil, err
		}
		s.log.Info().Int64("admin_id", id).Msg("admin reactivated")
	}
	return a, nil
}
