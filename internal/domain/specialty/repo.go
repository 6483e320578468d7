package specialty

import "context"

type Repository interface {
	Create(ctx context.Context, s *Specialty) error
	GetByID(ctx context.Context, id int64) (*Specialty, error)
	GetByNombre(ctx context.Context, nombre string) (*Specialty, error)
	Update(ctx context.Context, s *Specialty) error
	List(ctx context.Context, includeInactive bool) ([]*Specialty, error)
	DoctorCount(ctx context.Context, id int64) (int, error)
}
