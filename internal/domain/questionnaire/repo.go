package questionnaire

import (
	"context"
	"time"
)

// Repository persists questionnaire definitions.
type Repository interface {
	Create(ctx context.Context, q *Questionnaire) error
	GetByID(ctx context.Context, id int64) (*Questionnaire, error)
	Update(ctx context.Context, q *Questionnaire) error
	// List returns questionnaires newest first. creadorID filters to one
	// author when non-nil.
	List(ctx context.Context, creadorID *int64, activeOnly bool) ([]*Questionnaire, error)
}

// AssignmentRepository persists per-patient questionnaire assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, a *Assignment) error
	GetByID(ctx context.Context, id int64) (*Assignment, error)
	// CountByPair counts all assignments, in any state, for one
	// (formulario, paciente) pair.
	CountByPair(ctx context.Context, formularioID, pacienteID int64) (int, error)
	ByQuestionnaire(ctx context.Context, formularioID int64) ([]*Assignment, error)
	ByPatient(ctx context.Context, pacienteID int64) ([]*AssignmentDetail, error)
	SetEstado(ctx context.Context, id int64, estado string, completadoAt *time.Time) error
}

// ResponseRepository persists submitted answers.
type ResponseRepository interface {
	Create(ctx context.Context, r *Response) error
	ByAssignment(ctx context.Context, asignacionID int64) (*Response, error)
	ByPatient(ctx context.Context, pacienteID, formularioID int64) ([]*Response, error)
}

// PatientDirectory is the slice of the identity store this package needs.
type PatientDirectory interface {
	Exists(ctx context.Context, pacienteID int64) (bool, error)
}
