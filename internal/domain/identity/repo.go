package identity

import "context"

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	GetByDocumento(ctx context.Context, documento string) (*Patient, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Update(ctx context.Context, p *Patient) error
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	GetByDocumento(ctx context.Context, documento string) (*Doctor, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	LinkSpecialty(ctx context.Context, doctorID, specialtyID int64) error
	LinkHospital(ctx context.Context, doctorID, hospitalID int64) error
	SpecialtyNames(ctx context.Context, doctorID int64) ([]string, error)
}

type CoordinatorRepository interface {
	GetByID(ctx context.Context, id int64) (*Coordinator, error)
	GetByEmail(ctx context.Context, email string) (*Coordinator, error)
}

type AdminRepository interface {
	Create(ctx context.Context, a *Admin) error
	GetByID(ctx context.Context, id int64) (*Admin, error)
	GetByEmail(ctx context.Context, email string) (*Admin, error)
	GetByDocumento(ctx context.Context, documento string) (*Admin, error)
	List(ctx context.Context, includeInactive bool) ([]*Admin, error)
	Update(ctx context.Context, a *Admin) error
	CountActive(ctx context.Context) (int, error)
}

// Directory lookups against tables owned by other packages. Registration
// validates referenced hospitals and specialties through these.
type HospitalDirectory interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type SpecialtyDirectory interface {
	ActiveExists(ctx context.Context, id int64) (bool, error)
}
