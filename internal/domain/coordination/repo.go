package coordination

import (
	"context"
	"time"

	"github.com/redsalud/coordinacion/internal/domain/hospital"
	"github.com/redsalud/coordinacion/internal/domain/identity"
)

type AssignmentRepository interface {
	Create(ctx context.Context, a *Assignment) error
	GetByID(ctx context.Context, id int64) (*Assignment, error)
	// ActiveByPatient returns nil without error when the patient has no
	// active assignment.
	ActiveByPatient(ctx context.Context, pacienteID int64) (*Assignment, error)
	Deactivate(ctx context.Context, id int64, at time.Time) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Assignment, int, error)
	ActivePatientIDsByDoctor(ctx context.Context, medicoID int64) ([]int64, error)
	CountActiveByHospital(ctx context.Context, hospitalID int64) (int, error)
}

// DoctorHospitalRepository owns the medico_hospital join edge.
type DoctorHospitalRepository interface {
	Linked(ctx context.Context, medicoID, hospitalID int64) (bool, error)
	Link(ctx context.Context, medicoID, hospitalID int64) error
	Unlink(ctx context.Context, medicoID, hospitalID int64) error
	DoctorsByHospital(ctx context.Context, hospitalID int64, especialidadID *int64) ([]*identity.Doctor, error)
	CountByHospital(ctx context.Context, hospitalID int64) (int, error)
	// SpecialtyHistogram counts doctors per specialty name for one
	// hospital; a doctor with N specialties lands in N buckets.
	SpecialtyHistogram(ctx context.Context, hospitalID int64) (map[string]int, error)
}

type CoordinatorStore interface {
	Create(ctx context.Context, c *identity.Coordinator) error
	GetByID(ctx context.Context, id int64) (*identity.Coordinator, error)
	GetByEmail(ctx context.Context, email string) (*identity.Coordinator, error)
	GetByDocumento(ctx context.Context, documento string) (*identity.Coordinator, error)
	// ByHospital returns nil without error when the hospital has no
	// coordinator.
	ByHospital(ctx context.Context, hospitalID int64) (*identity.Coordinator, error)
	Update(ctx context.Context, c *identity.Coordinator) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context) ([]*identity.Coordinator, error)
}

type PatientStore interface {
	GetByID(ctx context.Context, id int64) (*identity.Patient, error)
	SetHospital(ctx context.Context, pacienteID int64, hospitalID *int64) error
	Search(ctx context.Context, query string) ([]*identity.Patient, error)
	Unassigned(ctx context.Context) ([]*identity.Patient, error)
	ByHospital(ctx context.Context, hospitalID int64) ([]*identity.Patient, error)
	CountByHospital(ctx context.Context, hospitalID int64) (int, error)
	ByIDs(ctx context.Context, ids []int64) ([]*identity.Patient, error)
}

// Narrow read views over tables owned by other packages; their pgx
// repositories satisfy these directly.
type DoctorStore interface {
	GetByID(ctx context.Context, id int64) (*identity.Doctor, error)
}

type HospitalStore interface {
	GetByID(ctx context.Context, id int64) (*hospital.Hospital, error)
	ListWithCoordinates(ctx context.Context) ([]*hospital.Hospital, error)
}
