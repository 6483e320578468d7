package questionnaire

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/internal/platform/db"
)

var emptyJSON = json.RawMessage(`{}`)

// Service runs the questionnaire lifecycle: definitions authored by
// doctors, per-patient assignments with instance numbering, and the
// response flow that completes them.
type Service struct {
	repo        Repository
	assignments AssignmentRepository
	responses   ResponseRepository
	patients    PatientDirectory
	tx          db.TxRunner
	now         func() time.Time
	log         zerolog.Logger
}

func NewService(
	repo Repository,
	assignments AssignmentRepository,
	responses ResponseRepository,
	patients PatientDirectory,
	tx db.TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		assignments: assignments,
		responses:   responses,
		patients:    patients,
		tx:          tx,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("component", "questionnaire").Logger(),
	}
}

func requireDoctor(p auth.Principal) error {
	if p.Role != auth.RoleMedico {
		return fault.Forbiddenf("Solo los médicos pueden realizar esta acción")
	}
	return nil
}

// canEdit is the creator-or-admin rule shared by every mutation on a
// questionnaire definition.
func canEdit(p auth.Principal, q *Questionnaire) bool {
	if p.Role == auth.RoleAdmin {
		return true
	}
	return q.CreadorID != nil && *q.CreadorID == p.ID
}

type CreateInput struct {
	Tipo        string          `json:"tipo"`
	Titulo      string          `json:"titulo"`
	Descripcion *string         `json:"descripcion"`
	Preguntas   json.RawMessage `json:"preguntas"`
	Meta        json.RawMessage `json:"meta"`
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (*Questionnaire, error) {
	if err := requireDoctor(p); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Tipo) == "" || strings.TrimSpace(in.Titulo) == "" {
		return nil, fault.BadRequestf("Tipo y título son obligatorios")
	}
	if len(in.Preguntas) == 0 {
		return nil, fault.BadRequestf("El formulario debe tener preguntas")
	}
	meta := in.Meta
	if len(meta) == 0 {
		meta = emptyJSON
	}
	creador := p.ID
	q := &Questionnaire{
		Tipo:          in.Tipo,
		Titulo:        in.Titulo,
		Descripcion:   in.Descripcion,
		Preguntas:     in.Preguntas,
		CreadorID:     &creador,
		Activo:        true,
		Meta:          meta,
		FechaCreacion: s.now(),
	}
	if err := s.repo.Create(ctx, q); err != nil {
		return nil, err
	}
	s.log.Info().Int64("formulario_id", q.ID).Int64("creador_id", p.ID).Msg("questionnaire created")
	return q, nil
}

func (s *Service) Get(ctx context.Context, p auth.Principal, id int64) (*Questionnaire, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Doctors see only their own definitions; other roles may read any.
	if p.Role == auth.RoleMedico && (q.CreadorID == nil || *q.CreadorID != p.ID) {
		return nil, fault.Forbiddenf("No tienes acceso a este formulario")
	}
	return q, nil
}

func (s *Service) List(ctx context.Context, p auth.Principal, soloActivos bool) ([]*Questionnaire, error) {
	var creador *int64
	if p.Role == auth.RoleMedico {
		id := p.ID
		creador = &id
	}
	return s.repo.List(ctx, creador, soloActivos)
}

type UpdateInput struct {
	Tipo        *string         `json:"tipo"`
	Titulo      *string         `json:"titulo"`
	Descripcion *string         `json:"descripcion"`
	Preguntas   json.RawMessage `json:"preguntas"`
	Activo      *bool           `json:"activo"`
	Meta        json.RawMessage `json:"meta"`
}

func (s *Service) Update(ctx context.Context, p auth.Principal, id int64, in UpdateInput) (*Questionnaire, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canEdit(p, q) {
		return nil, fault.Forbiddenf("No tienes permiso para editar este formulario")
	}
	if in.Tipo != nil {
		q.Tipo = *in.Tipo
	}
	if in.Titulo != nil {
		q.Titulo = *in.Titulo
	}
	if in.Descripcion != nil {
		q.Descripcion = in.Descripcion
	}
	if len(in.Preguntas) > 0 {
		q.Preguntas = in.Preguntas
	}
	if in.Activo != nil {
		q.Activo = *in.Activo
	}
	if len(in.Meta) > 0 {
		q.Meta = in.Meta
	}
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

// Deactivate soft-deletes a definition. Existing assignments keep
// working; only new assignment of the form is blocked.
func (s *Service) Deactivate(ctx context.Context, p auth.Principal, id int64) error {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !canEdit(p, q) {
		return fault.Forbiddenf("No tienes permiso")
	}
	q.Activo = false
	return s.repo.Update(ctx, q)
}

type AssignInput struct {
	PacienteID      int64           `json:"paciente_id"`
	FechaExpiracion *time.Time      `json:"fecha_expiracion"`
	DatosExtra      json.RawMessage `json:"datos_extra"`
}

// Assign hands a questionnaire to a patient. The same form may be
// assigned to the same patient any number of times; each assignment gets
// the next instance number for the pair.
func (s *Service) Assign(ctx context.Context, p auth.Principal, formularioID int64, in AssignInput) (*Assignment, error) {
	if err := requireDoctor(p); err != nil {
		return nil, err
	}
	q, err := s.repo.GetByID(ctx, formularioID)
	if err != nil {
		return nil, err
	}
	if !q.Activo {
		return nil, fault.Conflictf("El formulario está desactivado")
	}
	ok, err := s.patients.Exists(ctx, in.PacienteID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fault.NotFoundf("Paciente no encontrado")
	}

	extra := in.DatosExtra
	if len(extra) == 0 {
		extra = emptyJSON
	}
	a := &Assignment{
		FormularioID:    formularioID,
		PacienteID:      in.PacienteID,
		AsignadoPor:     p.ID,
		Estado:          EstadoPendiente,
		FechaAsignacion: s.now(),
		FechaExpiracion: in.FechaExpiracion,
		DatosExtra:      extra,
	}
	// Number and insert in one transaction so concurrent assignments of
	// the same pair cannot share an instance number.
	err = s.tx(ctx, func(ctx context.Context) error {
		count, err := s.assignments.CountByPair(ctx, formularioID, in.PacienteID)
		if err != nil {
			return err
		}
		a.NumeroInstancia = count + 1
		return s.assignments.Create(ctx, a)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().
		Int64("formulario_id", formularioID).
		Int64("paciente_id", in.PacienteID).
		Int("numero_instancia", a.NumeroInstancia).
		Msg("questionnaire assigned")
	return a, nil
}

// Assignments lists every assignment of one questionnaire. Doctors may
// only inspect questionnaires they created.
func (s *Service) Assignments(ctx context.Context, p auth.Principal, formularioID int64) ([]*Assignment, error) {
	q, err := s.repo.GetByID(ctx, formularioID)
	if err != nil {
		return nil, err
	}
	if p.Role == auth.RoleMedico && (q.CreadorID == nil || *q.CreadorID != p.ID) {
		return nil, fault.Forbiddenf("No tienes acceso a este formulario")
	}
	out, err := s.assignments.ByQuestionnaire(ctx, formularioID)
	if err != nil {
		return nil, err
	}
	for _, a := range out {
		s.applyLazyExpiry(ctx, a)
	}
	return out, nil
}

// MyAssignments lists the requesting patient's assignments, optionally
// filtered by state. Expiry is evaluated at read time.
func (s *Service) MyAssignments(ctx context.Context, p auth.Principal, estado *string) ([]*AssignmentDetail, error) {
	if p.Role != auth.RolePaciente {
		return nil, fault.Forbiddenf("Solo pacientes pueden ver sus asignaciones")
	}
	rows, err := s.assignments.ByPatient(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	out := make([]*AssignmentDetail, 0, len(rows))
	for _, d := range rows {
		s.applyLazyExpiry(ctx, &d.Assignment)
		if estado != nil && d.Estado != *estado {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// applyLazyExpiry flips an overdue pendiente row to expirado. There is
// no background sweep; reads settle the state.
func (s *Service) applyLazyExpiry(ctx context.Context, a *Assignment) {
	if a.Estado != EstadoPendiente || a.FechaExpiracion == nil || !s.now().After(*a.FechaExpiracion) {
		return
	}
	a.Estado = EstadoExpirado
	if err := s.assignments.SetEstado(ctx, a.ID, EstadoExpirado, nil); err != nil {
		s.log.Warn().Err(err).Int64("asignacion_id", a.ID).Msg("persisting lazy expiry failed")
	}
}

type SubmitInput struct {
	Respuestas json.RawMessage `json:"respuestas"`
}

// SubmitResponse records a patient's answers and completes the
// assignment. The insert and the state transition commit together, so a
// completed assignment always has its response.
func (s *Service) SubmitResponse(ctx context.Context, p auth.Principal, asignacionID int64, in SubmitInput) (*Response, error) {
	if len(in.Respuestas) == 0 {
		return nil, fault.BadRequestf("Las respuestas son obligatorias")
	}
	var resp *Response
	err := s.tx(ctx, func(ctx context.Context) error {
		a, err := s.assignments.GetByID(ctx, asignacionID)
		if err != nil {
			return err
		}
		if a.PacienteID != p.ID {
			return fault.Forbiddenf("No tienes acceso a esta asignación")
		}
		if a.Estado == EstadoPendiente && a.FechaExpiracion != nil && s.now().After(*a.FechaExpiracion) {
			if err := s.assignments.SetEstado(ctx, a.ID, EstadoExpirado, nil); err != nil {
				return err
			}
			a.Estado = EstadoExpirado
		}
		if Terminal(a.Estado) {
			return fault.Conflictf("La asignación ya no admite respuestas (estado: %s)", a.Estado)
		}

		now := s.now()
		resp = &Response{
			PacienteID:   p.ID,
			FormularioID: a.FormularioID,
			AsignacionID: &a.ID,
			Respuestas:   in.Respuestas,
			Timestamp:    now,
		}
		if err := s.responses.Create(ctx, resp); err != nil {
			return err
		}
		return s.assignments.SetEstado(ctx, a.ID, EstadoCompletado, &now)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("asignacion_id", asignacionID).Int64("paciente_id", p.ID).Msg("questionnaire answered")
	return resp, nil
}

// Cancel withdraws a pending assignment. Only the doctor who created the
// questionnaire or made the assignment (or an admin) may cancel.
func (s *Service) Cancel(ctx context.Context, p auth.Principal, asignacionID int64) (*Assignment, error) {
	var out *Assignment
	err := s.tx(ctx, func(ctx context.Context) error {
		a, err := s.assignments.GetByID(ctx, asignacionID)
		if err != nil {
			return err
		}
		if p.Role != auth.RoleAdmin {
			q, err := s.repo.GetByID(ctx, a.FormularioID)
			if err != nil {
				return err
			}
			creator := q.CreadorID != nil && *q.CreadorID == p.ID
			if p.Role != auth.RoleMedico || (!creator && a.AsignadoPor != p.ID) {
				return fault.Forbiddenf("No tienes acceso a esta asignación")
			}
		}
		s.applyLazyExpiry(ctx, a)
		if Terminal(a.Estado) {
			return fault.Conflictf("La asignación ya no admite cambios (estado: %s)", a.Estado)
		}
		if err := s.assignments.SetEstado(ctx, a.ID, EstadoCancelado, nil); err != nil {
			return err
		}
		a.Estado = EstadoCancelado
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ResponseFor returns the stored response of one assignment, visible to
// the answering patient, the assigning/creating doctor, or an admin.
func (s *Service) ResponseFor(ctx context.Context, p auth.Principal, asignacionID int64) (*Response, error) {
	a, err := s.assignments.GetByID(ctx, asignacionID)
	if err != nil {
		return nil, err
	}
	switch p.Role {
	case auth.RoleAdmin:
	case auth.RolePaciente:
		if a.PacienteID != p.ID {
			return nil, fault.Forbiddenf("No tienes acceso a esta asignación")
		}
	case auth.RoleMedico:
		q, err := s.repo.GetByID(ctx, a.FormularioID)
		if err != nil {
			return nil, err
		}
		creator := q.CreadorID != nil && *q.CreadorID == p.ID
		if !creator && a.AsignadoPor != p.ID {
			return nil, fault.Forbiddenf("No tienes acceso a esta asignación")
		}
	default:
		return nil, fault.Forbiddenf("No tienes acceso a esta asignación")
	}
	return s.responses.ByAssignment(ctx, asignacionID)
}
