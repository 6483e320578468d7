package specialty

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
)

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "specialty").Logger()}
}

type Input struct {
	Nombre      string  `json:"nombre"`
	Descripcion *string `json:"descripcion"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in Input) (*Specialty, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if in.Nombre == "" {
		return nil, fault.BadRequestf("El nombre de la especialidad es obligatorio")
	}
	existing, err := s.repo.GetByNombre(ctx, in.Nombre)
	if err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	}
	if existing != nil {
		return nil, fault.Conflictf("Ya existe la especialidad %s", in.Nombre)
	}

	sp := &Specialty{Nombre: in.Nombre, Descripcion: in.Descripcion, Activo: true}
	if err := s.repo.Create(ctx, sp); err != nil {
		return nil, err
	}
	s.log.Info().Int64("especialidad_id", sp.ID).Str("nombre", sp.Nombre).Msg("specialty created")
	return sp, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Specialty, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, p auth.Principal, includeInactive bool) ([]*Specialty, error) {
	// Inactive rows are admin-only; everyone else sees the active set.
	if includeInactive && p.Role != auth.RoleAdmin {
		includeInactive = false
	}
	return s.repo.List(ctx, includeInactive)
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in Input) (*Specialty, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if in.Nombre == "" {
		return nil, fault.BadRequestf("El nombre de la especialidad es obligatorio")
	}
	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetByNombre(ctx, in.Nombre)
	if err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	}
	if existing != nil && existing.ID != id {
		return nil, fault.Conflictf("Ya existe la especialidad %s", in.Nombre)
	}

	sp.Nombre = in.Nombre
	sp.Descripcion = in.Descripcion
	if err := s.repo.Update(ctx, sp); err != nil {
		return nil, err
	}
	return sp, nil
}

// Deactivate soft-deletes a specialty. Doctors already tagged with it
// keep the tag; it just stops being assignable.
func (s *Service) Deactivate(ctx context.Context, p auth.Principal, id int64) error {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return err
	}
	sp, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !sp.Activo {
		return nil
	}
	sp.Activo = false
	if err := s.repo.Update(ctx, sp); err != nil {
		return err
	}
	s.log.Info().Int64("especialidad_id", id).Msg("specialty deactivated")
	return nil
}
