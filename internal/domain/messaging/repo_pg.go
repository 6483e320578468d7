package messaging

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redsalud/coordinacion/internal/platform/db"
)

type queryable interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

const messageColumns = `id, contenido, paciente_id, medico_id, remitente, timestamp, leido`

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, m *Message) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO mensajes (contenido, paciente_id, medico_id, remitente, timestamp, leido)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		m.Contenido, m.PacienteID, m.MedicoID, m.Remitente, m.Timestamp, m.Leido,
	).Scan(&m.ID)
}

func (r *repoPG) History(ctx context.Context, pacienteID, medicoID int64) ([]*Message, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+messageColumns+` FROM mensajes
		WHERE paciente_id = $1 AND medico_id = $2
		ORDER BY timestamp, id`, pacienteID, medicoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Contenido, &m.PacienteID, &m.MedicoID,
			&m.Remitente, &m.Timestamp, &m.Leido); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, pacienteID, medicoID int64, remitente string) (int, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE mensajes SET leido = TRUE
		WHERE paciente_id = $1 AND medico_id = $2 AND remitente = $3 AND NOT leido`,
		pacienteID, medicoID, remitente)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *repoPG) UnreadCount(ctx context.Context, pacienteID, medicoID int64, remitente string) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM mensajes
		WHERE paciente_id = $1 AND medico_id = $2 AND remitente = $3 AND NOT leido`,
		pacienteID, medicoID, remitente).Scan(&n)
	return n, err
}

func (r *repoPG) Last(ctx context.Context, pacienteID, medicoID int64) (*Message, error) {
	var m Message
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT `+messageColumns+` FROM mensajes
		WHERE paciente_id = $1 AND medico_id = $2
		ORDER BY timestamp DESC, id DESC
		LIMIT 1`, pacienteID, medicoID).
		Scan(&m.ID, &m.Contenido, &m.PacienteID, &m.MedicoID, &m.Remitente, &m.Timestamp, &m.Leido)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

type patientNamesPG struct {
	pool *pgxpool.Pool
}

func NewPatientNames(pool *pgxpool.Pool) PatientNames {
	return &patientNamesPG{pool: pool}
}

func (r *patientNamesPG) NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT id, nombre FROM pacientes WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var nombre string
		if err := rows.Scan(&id, &nombre); err != nil {
			return nil, err
		}
		out[id] = nombre
	}
	return out, rows.Err()
}
