package hospital

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/db"
)

const hospitalColumns = `id, nombre, codigo, direccion, distrito, provincia, latitud, longitud`

// queryable abstracts pgxpool.Pool, pgxpool.Conn and pgx.Tx.
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

func (r *repoPG) Create(ctx context.Context, h *Hospital) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO hospitales (nombre, codigo, direccion, distrito, provincia, latitud, longitud)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		h.Nombre, h.Codigo, h.Direccion, h.Distrito, h.Provincia, h.Latitud, h.Longitud,
	).Scan(&h.ID)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Hospital, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospitales WHERE id = $1`, id))
}

func (r *repoPG) GetByCodigo(ctx context.Context, codigo string) (*Hospital, error) {
	return r.scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+hospitalColumns+` FROM hospitales WHERE codigo = $1`, codigo))
}

func (r *repoPG) Update(ctx context.Context, h *Hospital) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE hospitales SET
			nombre = $2, codigo = $3, direccion = $4, distrito = $5,
			provincia = $6, latitud = $7, longitud = $8
		WHERE id = $1`,
		h.ID, h.Nombre, h.Codigo, h.Direccion, h.Distrito, h.Provincia, h.Latitud, h.Longitud,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM hospitales WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, limit, offset int) ([]*Hospital, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM hospitales`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalColumns+` FROM hospitales ORDER BY nombre LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	hospitals, err := r.collect(rows)
	if err != nil {
		return nil, 0, err
	}
	return hospitals, total, nil
}

func (r *repoPG) ListWithCoordinates(ctx context.Context) ([]*Hospital, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+hospitalColumns+` FROM hospitales
		 WHERE latitud IS NOT NULL AND longitud IS NOT NULL
		 ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *repoPG) References(ctx context.Context, id int64) (References, error) {
	var refs References
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM medico_hospital WHERE hospital_id = $1),
			(SELECT COUNT(*) FROM pacientes WHERE hospital_id = $1),
			(SELECT COUNT(*) FROM coordinadores WHERE hospital_id = $1)`,
		id,
	).Scan(&refs.Medicos, &refs.Pacientes, &refs.Coordinadores)
	return refs, err
}

func (r *repoPG) scan(row pgx.Row) (*Hospital, error) {
	var h Hospital
	err := row.Scan(&h.ID, &h.Nombre, &h.Codigo, &h.Direccion, &h.Distrito,
		&h.Provincia, &h.Latitud, &h.Longitud)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Hospital no encontrado")
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Hospital, error) {
	var hospitals []*Hospital
	for rows.Next() {
		var h Hospital
		if err := rows.Scan(&h.ID, &h.Nombre, &h.Codigo, &h.Direccion, &h.Distrito,
			&h.Provincia, &h.Latitud, &h.Longitud); err != nil {
			return nil, err
		}
		hospitals = append(hospitals, &h)
	}
	return hospitals, rows.Err()
}
