package questionnaire

import (
	"context"
	"errors"
	"time"

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

const questionnaireColumns = `id, tipo, titulo, descripcion, preguntas, creador_id, activo, meta, fecha_creacion`

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) Create(ctx context.Context, q *Questionnaire) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO formularios (tipo, titulo, descripcion, preguntas, creador_id, activo, meta, fecha_creacion)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		q.Tipo, q.Titulo, q.Descripcion, q.Preguntas, q.CreadorID, q.Activo, q.Meta, q.FechaCreacion,
	).Scan(&q.ID)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Questionnaire, error) {
	return scanQuestionnaire(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+questionnaireColumns+` FROM formularios WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, q *Questionnaire) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE formularios
		SET tipo = $2, titulo = $3, descripcion = $4, preguntas = $5, activo = $6, meta = $7
		WHERE id = $1`,
		q.ID, q.Tipo, q.Titulo, q.Descripcion, q.Preguntas, q.Activo, q.Meta)
	return err
}

func (r *repoPG) List(ctx context.Context, creadorID *int64, activeOnly bool) ([]*Questionnaire, error) {
	q := `SELECT ` + questionnaireColumns + ` FROM formularios WHERE ($1::bigint IS NULL OR creador_id = $1)`
	if activeOnly {
		q += ` AND activo`
	}
	q += ` ORDER BY fecha_creacion DESC`

	rows, err := conn(ctx, r.pool).Query(ctx, q, creadorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Questionnaire
	for rows.Next() {
		var f Questionnaire
		if err := rows.Scan(&f.ID, &f.Tipo, &f.Titulo, &f.Descripcion, &f.Preguntas,
			&f.CreadorID, &f.Activo, &f.Meta, &f.FechaCreacion); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func scanQuestionnaire(row pgx.Row) (*Questionnaire, error) {
	var f Questionnaire
	err := row.Scan(&f.ID, &f.Tipo, &f.Titulo, &f.Descripcion, &f.Preguntas,
		&f.CreadorID, &f.Activo, &f.Meta, &f.FechaCreacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Formulario no encontrado")
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

const assignmentColumns = `id, formulario_id, paciente_id, asignado_por, estado, numero_instancia,
	fecha_asignacion, fecha_expiracion, fecha_completado, datos_extra`

type assignmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *Assignment) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO formulario_asignaciones
			(formulario_id, paciente_id, asignado_por, estado, numero_instancia,
			 fecha_asignacion, fecha_expiracion, datos_extra)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		a.FormularioID, a.PacienteID, a.AsignadoPor, a.Estado, a.NumeroInstancia,
		a.FechaAsignacion, a.FechaExpiracion, a.DatosExtra,
	).Scan(&a.ID)
}

func (r *assignmentRepoPG) GetByID(ctx context.Context, id int64) (*Assignment, error) {
	var a Assignment
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM formulario_asignaciones WHERE id = $1 FOR UPDATE`, id).
		Scan(&a.ID, &a.FormularioID, &a.PacienteID, &a.AsignadoPor, &a.Estado, &a.NumeroInstancia,
			&a.FechaAsignacion, &a.FechaExpiracion, &a.FechaCompletado, &a.DatosExtra)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Asignación no encontrada")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepoPG) CountByPair(ctx context.Context, formularioID, pacienteID int64) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM formulario_asignaciones
		WHERE formulario_id = $1 AND paciente_id = $2`,
		formularioID, pacienteID).Scan(&n)
	return n, err
}

func (r *assignmentRepoPG) ByQuestionnaire(ctx context.Context, formularioID int64) ([]*Assignment, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+assignmentColumns+` FROM formulario_asignaciones
		WHERE formulario_id = $1
		ORDER BY fecha_asignacion DESC`, formularioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.FormularioID, &a.PacienteID, &a.AsignadoPor, &a.Estado,
			&a.NumeroInstancia, &a.FechaAsignacion, &a.FechaExpiracion, &a.FechaCompletado,
			&a.DatosExtra); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *assignmentRepoPG) ByPatient(ctx context.Context, pacienteID int64) ([]*AssignmentDetail, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT a.id, a.formulario_id, a.paciente_id, a.asignado_por, a.estado, a.numero_instancia,
		       a.fecha_asignacion, a.fecha_expiracion, a.fecha_completado, a.datos_extra,
		       f.titulo, f.tipo, f.descripcion
		FROM formulario_asignaciones a
		JOIN formularios f ON f.id = a.formulario_id
		WHERE a.paciente_id = $1
		ORDER BY a.fecha_asignacion DESC`, pacienteID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*AssignmentDetail
	for rows.Next() {
		var d AssignmentDetail
		if err := rows.Scan(&d.ID, &d.FormularioID, &d.PacienteID, &d.AsignadoPor, &d.Estado,
			&d.NumeroInstancia, &d.FechaAsignacion, &d.FechaExpiracion, &d.FechaCompletado,
			&d.DatosExtra, &d.FormularioTitulo, &d.FormularioTipo, &d.FormularioDescripcion); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *assignmentRepoPG) SetEstado(ctx context.Context, id int64, estado string, completadoAt *time.Time) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE formulario_asignaciones SET estado = $2, fecha_completado = $3 WHERE id = $1`,
		id, estado, completadoAt)
	return err
}

type responseRepoPG struct {
	pool *pgxpool.Pool
}

func NewResponseRepo(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepoPG{pool: pool}
}

func (r *responseRepoPG) Create(ctx context.Context, resp *Response) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO respuestas_formularios (paciente_id, formulario_id, asignacion_id, respuestas, timestamp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		resp.PacienteID, resp.FormularioID, resp.AsignacionID, resp.Respuestas, resp.Timestamp,
	).Scan(&resp.ID)
}

func (r *responseRepoPG) ByAssignment(ctx context.Context, asignacionID int64) (*Response, error) {
	var resp Response
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, paciente_id, formulario_id, asignacion_id, respuestas, timestamp
		FROM respuestas_formularios WHERE asignacion_id = $1`, asignacionID).
		Scan(&resp.ID, &resp.PacienteID, &resp.FormularioID, &resp.AsignacionID, &resp.Respuestas, &resp.Timestamp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Respuesta no encontrada")
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (r *responseRepoPG) ByPatient(ctx context.Context, pacienteID, formularioID int64) ([]*Response, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT id, paciente_id, formulario_id, asignacion_id, respuestas, timestamp
		FROM respuestas_formularios
		WHERE paciente_id = $1 AND formulario_id = $2
		ORDER BY timestamp DESC`, pacienteID, formularioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Response
	for rows.Next() {
		var resp Response
		if err := rows.Scan(&resp.ID, &resp.PacienteID, &resp.FormularioID, &resp.AsignacionID,
			&resp.Respuestas, &resp.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, &resp)
	}
	return out, rows.Err()
}

type patientDirectoryPG struct {
	pool *pgxpool.Pool
}

func NewPatientDirectory(pool *pgxpool.Pool) PatientDirectory {
	return &patientDirectoryPG{pool: pool}
}

func (r *patientDirectoryPG) Exists(ctx context.Context, pacienteID int64) (bool, error) {
	var ok bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM pacientes WHERE id = $1)`, pacienteID).Scan(&ok)
	return ok, err
}
