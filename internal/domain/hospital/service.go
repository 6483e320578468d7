package hospital

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
)

// Service implements hospital administration. Creation, update and
// deletion are admin operations; reads are open to any authenticated
// principal.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "hospital").Logger()}
}

type CreateInput struct {
	Nombre    string   `json:"nombre"`
	Codigo    *string  `json:"codigo"`
	Direccion *string  `json:"direccion"`
	Distrito  *string  `json:"distrito"`
	Provincia *string  `json:"provincia"`
	Latitud   *float64 `json:"latitud"`
	Longitud  *float64 `json:"longitud"`
}

func (in CreateInput) validate() error {
	if in.Nombre == "" {
		return fault.BadRequestf("El nombre del hospital es obligatorio")
	}
	if (in.Latitud == nil) != (in.Longitud == nil) {
		return fault.BadRequestf("Latitud y longitud deben indicarse juntas")
	}
	if in.Latitud != nil {
		if *in.Latitud < -90 || *in.Latitud > 90 {
			return fault.BadRequestf("Latitud fuera de rango")
		}
		if *in.Longitud < -180 || *in.Longitud > 180 {
			return fault.BadRequestf("Longitud fuera de rango")
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Hospital, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Codigo != nil {
		existing, err := s.repo.GetByCodigo(ctx, *in.Codigo)
		if err != nil && fault.KindOf(err) != fault.NotFound {
			return nil, err
		}
		if existing != nil {
			return nil, fault.Conflictf("Ya existe un hospital con el código %s", *in.Codigo)
		}
	}

	h := &Hospital{
		Nombre:    in.Nombre,
		Codigo:    in.Codigo,
		Direccion: in.Direccion,
		Distrito:  in.Distrito,
		Provincia: in.Provincia,
		Latitud:   in.Latitud,
		Longitud:  in.Longitud,
	}
	if err := s.repo.Create(ctx, h); err != nil {
		return nil, err
	}
	s.log.Info().Int64("hospital_id", h.ID).Str("nombre", h.Nombre).Msg("hospital created")
	return h, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Hospital, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	return s.repo.List(ctx, limit, offset)
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in CreateInput) (*Hospital, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	h, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Codigo != nil && (h.Codigo == nil || *h.Codigo != *in.Codigo) {
		existing, err := s.repo.GetByCodigo(ctx, *in.Codigo)
		if err != nil && fault.KindOf(err) != fault.NotFound {
			return nil, err
		}
		if existing != nil && existing.ID != id {
			return nil, fault.Conflictf("Ya existe un hospital con el código %s", *in.Codigo)
		}
	}

	h.Nombre = in.Nombre
	h.Codigo = in.Codigo
	h.Direccion = in.Direccion
	h.Distrito = in.Distrito
	h.Provincia = in.Provincia
	h.Latitud = in.Latitud
	h.Longitud = in.Longitud
	if err := s.repo.Update(ctx, h); err != nil {
		return nil, err
	}
	return h, nil
}

func (s *Service) Delete(ctx context.Context, p auth.Principal, id int64) error {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	refs, err := s.repo.References(ctx, id)
	if err != nil {
		return err
	}
	if refs.Any() {
		return fault.Conflictf(
			"No se puede eliminar el hospital: tiene %d médicos, %d pacientes y %d coordinadores asociados",
			refs.Medicos, refs.Pacientes, refs.Coordinadores)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("hospital_id", id).Msg("hospital deleted")
	return nil
}
