package specialty

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

func (r *repoPG) Create(ctx context.Context, s *Specialty) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO especialidades (nombre, descripcion, activo)
		VALUES ($1, $2, $3)
		RETURNING id`,
		s.Nombre, s.Descripcion, s.Activo,
	).Scan(&s.ID)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Specialty, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT id, nombre, descripcion, activo FROM especialidades WHERE id = $1`, id))
}

func (r *repoPG) GetByNombre(ctx context.Context, nombre string) (*Specialty, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT id, nombre, descripcion, activo FROM especialidades WHERE LOWER(nombre) = LOWER($1)`, nombre))
}

func (r *repoPG) Update(ctx context.Context, s *Specialty) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE especialidades SET nombre = $2, descripcion = $3, activo = $4 WHERE id = $1`,
		s.ID, s.Nombre, s.Descripcion, s.Activo)
	return err
}

func (r *repoPG) List(ctx context.Context, includeInactive bool) ([]*Specialty, error) {
	q := `SELECT id, nombre, descripcion, activo FROM especialidades`
	if !includeInactive {
		q += ` WHERE activo`
	}
	q += ` ORDER BY nombre`

	rows, err := r.conn(ctx).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Specialty
	for rows.Next() {
		var s Specialty
		if err := rows.Scan(&s.ID, &s.Nombre, &s.Descripcion, &s.Activo); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (r *repoPG) DoctorCount(ctx context.Context, id int64) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medico_especialidad WHERE especialidad_id = $1`, id).Scan(&n)
	return n, err
}

func (r *repoPG) scan(row pgx.Row) (*Specialty, error) {
	var s Specialty
	err := row.Scan(&s.ID, &s.Nombre, &s.Descripcion, &s.Activo)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Especialidad no encontrada")
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
