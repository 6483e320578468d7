package hospital

import (
	"context"
)

// Repository defines the persistence interface for hospitals.
type Repository interface {
	Create(ctx context.Context, h *Hospital) error
	GetByID(ctx context.Context, id int64) (*Hospital, error)
	GetByCodigo(ctx context.Context, codigo string) (*Hospital, error)
	Update(ctx context.Context, h *Hospital) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*Hospital, int, error)
	ListWithCoordinates(ctx context.Context) ([]*Hospital, error)
	References(ctx context.Context, id int64) (References, error)
}
