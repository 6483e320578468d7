package coordination

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/domain/identity"
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

// ---- assignments ----

const assignmentColumns = `id, paciente_id, medico_id, activo, notas, fecha_asignacion, fecha_desactivacion`

type assignmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *Assignment) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO asignaciones (paciente_id, medico_id, activo, notas, fecha_asignacion)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		a.PacienteID, a.MedicoID, a.Activo, a.Notas, a.FechaAsignacion,
	).Scan(&a.ID)
}

func (r *assignmentRepoPG) GetByID(ctx context.Context, id int64) (*Assignment, error) {
	a, err := scanAssignment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM asignaciones WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fault.NotFoundf("Asignación no encontrada")
	}
	return a, nil
}

func (r *assignmentRepoPG) ActiveByPatient(ctx context.Context, pacienteID int64) (*Assignment, error) {
	// FOR UPDATE serializes concurrent reassignments of the same patient
	// when called inside a transaction.
	return scanAssignment(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM asignaciones
		 WHERE paciente_id = $1 AND activo FOR UPDATE`, pacienteID))
}

func (r *assignmentRepoPG) Deactivate(ctx context.Context, id int64, at time.Time) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE asignaciones SET activo = FALSE, fecha_desactivacion = $2 WHERE id = $1`,
		id, at)
	return err
}

func (r *assignmentRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Assignment, int, error) {
	where := ``
	if activeOnly {
		where = ` WHERE activo`
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM asignaciones`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+assignmentColumns+` FROM asignaciones`+where+
			` ORDER BY fecha_asignacion DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Assignment
	for rows.Next() {
		var a Assignment
		if err := rows.Scan(&a.ID, &a.PacienteID, &a.MedicoID, &a.Activo, &a.Notas,
			&a.FechaAsignacion, &a.FechaDesactivacion); err != nil {
			return nil, 0, err
		}
		out = append(out, &a)
	}
	return out, total, rows.Err()
}

func (r *assignmentRepoPG) ActivePatientIDsByDoctor(ctx context.Context, medicoID int64) ([]int64, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT DISTINCT paciente_id FROM asignaciones WHERE medico_id = $1 AND activo`, medicoID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *assignmentRepoPG) CountActiveByHospital(ctx context.Context, hospitalID int64) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT COUNT(*) FROM asignaciones a
		JOIN pacientes p ON p.id = a.paciente_id
		WHERE p.hospital_id = $1 AND a.activo`, hospitalID).Scan(&n)
	return n, err
}

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.PacienteID, &a.MedicoID, &a.Activo, &a.Notas,
		&a.FechaAsignacion, &a.FechaDesactivacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ---- doctor-hospital edges ----

type doctorHospitalRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorHospitalRepo(pool *pgxpool.Pool) DoctorHospitalRepository {
	return &doctorHospitalRepoPG{pool: pool}
}

func (r *doctorHospitalRepoPG) Linked(ctx context.Context, medicoID, hospitalID int64) (bool, error) {
	var ok bool
	err := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM medico_hospital WHERE medico_id = $1 AND hospital_id = $2)`,
		medicoID, hospitalID).Scan(&ok)
	return ok, err
}

func (r *doctorHospitalRepoPG) Link(ctx context.Context, medicoID, hospitalID int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medico_hospital (medico_id, hospital_id) VALUES ($1, $2)
		ON CONFLICT DO NOTHING`, medicoID, hospitalID)
	return err
}

func (r *doctorHospitalRepoPG) Unlink(ctx context.Context, medicoID, hospitalID int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM medico_hospital WHERE medico_id = $1 AND hospital_id = $2`,
		medicoID, hospitalID)
	return err
}

func (r *doctorHospitalRepoPG) DoctorsByHospital(ctx context.Context, hospitalID int64, especialidadID *int64) ([]*identity.Doctor, error) {
	q := `
		SELECT m.id, m.documento, m.nombre, m.email, m.telefono, m.hashed_password
		FROM medicos m
		JOIN medico_hospital mh ON mh.medico_id = m.id
		WHERE mh.hospital_id = $1`
	args := []interface{}{hospitalID}
	if especialidadID != nil {
		q += ` AND EXISTS(SELECT 1 FROM medico_especialidad me
			WHERE me.medico_id = m.id AND me.especialidad_id = $2)`
		args = append(args, *especialidadID)
	}
	q += ` ORDER BY m.nombre`

	rows, err := conn(ctx, r.pool).Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*identity.Doctor
	for rows.Next() {
		var d identity.Doctor
		if err := rows.Scan(&d.ID, &d.Documento, &d.Nombre, &d.Email, &d.Telefono, &d.HashedPassword); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *doctorHospitalRepoPG) CountByHospital(ctx context.Context, hospitalID int64) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM medico_hospital WHERE hospital_id = $1`, hospitalID).Scan(&n)
	return n, err
}

func (r *doctorHospitalRepoPG) SpecialtyHistogram(ctx context.Context, hospitalID int64) (map[string]int, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT e.nombre, COUNT(*)
		FROM medico_hospital mh
		JOIN medico_especialidad me ON me.medico_id = mh.medico_id
		JOIN especialidades e ON e.id = me.especialidad_id
		WHERE mh.hospital_id = $1
		GROUP BY e.nombre`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hist := map[string]int{}
	for rows.Next() {
		var name string
		var count int
		if err := rows.Scan(&name, &count); err != nil {
			return nil, err
		}
		hist[name] = count
	}
	return hist, rows.Err()
}

// ---- coordinators ----

const coordinatorColumns = `id, documento, nombre, email, hashed_password, hospital_id`

type coordinatorStorePG struct {
	pool *pgxpool.Pool
}

func NewCoordinatorStore(pool *pgxpool.Pool) CoordinatorStore {
	return &coordinatorStorePG{pool: pool}
}

func (r *coordinatorStorePG) Create(ctx context.Context, c *identity.Coordinator) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO coordinadores (documento, nombre, email, hashed_password, hospital_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		c.Documento, c.Nombre, c.Email, c.HashedPassword, c.HospitalID,
	).Scan(&c.ID)
}

func (r *coordinatorStorePG) GetByID(ctx context.Context, id int64) (*identity.Coordinator, error) {
	c, err := scanCoordinator(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+coordinatorColumns+` FROM coordinadores WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fault.NotFoundf("Coordinador no encontrado")
	}
	return c, nil
}

func (r *coordinatorStorePG) GetByEmail(ctx context.Context, email string) (*identity.Coordinator, error) {
	c, err := scanCoordinator(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+coordinatorColumns+` FROM coordinadores WHERE LOWER(email) = LOWER($1)`, email))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fault.NotFoundf("Coordinador no encontrado")
	}
	return c, nil
}

func (r *coordinatorStorePG) GetByDocumento(ctx context.Context, documento string) (*identity.Coordinator, error) {
	c, err := scanCoordinator(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+coordinatorColumns+` FROM coordinadores WHERE documento = $1`, documento))
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, fault.NotFoundf("Coordinador no encontrado")
	}
	return c, nil
}

func (r *coordinatorStorePG) ByHospital(ctx context.Context, hospitalID int64) (*identity.Coordinator, error) {
	return scanCoordinator(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+coordinatorColumns+` FROM coordinadores WHERE hospital_id = $1`, hospitalID))
}

func (r *coordinatorStorePG) Update(ctx context.Context, c *identity.Coordinator) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE coordinadores SET documento = $2, nombre = $3, email = $4, hospital_id = $5
		WHERE id = $1`,
		c.ID, c.Documento, c.Nombre, c.Email, c.HospitalID)
	return err
}

func (r *coordinatorStorePG) Delete(ctx context.Context, id int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM coordinadores WHERE id = $1`, id)
	return err
}

func (r *coordinatorStorePG) List(ctx context.Context) ([]*identity.Coordinator, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+coordinatorColumns+` FROM coordinadores ORDER BY nombre`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*identity.Coordinator
	for rows.Next() {
		var c identity.Coordinator
		if err := rows.Scan(&c.ID, &c.Documento, &c.Nombre, &c.Email, &c.HashedPassword, &c.HospitalID); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func scanCoordinator(row pgx.Row) (*identity.Coordinator, error) {
	var c identity.Coordinator
	err := row.Scan(&c.ID, &c.Documento, &c.Nombre, &c.Email, &c.HashedPassword, &c.HospitalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ---- patients ----

const patientColumns = `id, documento, nombre, fecha_nacimiento, genero, direccion,
	email, telefono, latitud, longitud, hospital_id, hashed_password`

type patientStorePG struct {
	pool *pgxpool.Pool
}

func NewPatientStore(pool *pgxpool.Pool) PatientStore {
	return &patientStorePG{pool: pool}
}

func (r *patientStorePG) GetByID(ctx context.Context, id int64) (*identity.Patient, error) {
	p, err := scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM pacientes WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fault.NotFoundf("Paciente no encontrado")
	}
	return p, nil
}

func (r *patientStorePG) SetHospital(ctx context.Context, pacienteID int64, hospitalID *int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx,
		`UPDATE pacientes SET hospital_id = $2 WHERE id = $1`, pacienteID, hospitalID)
	return err
}

func (r *patientStorePG) Search(ctx context.Context, query string) ([]*identity.Patient, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT `+patientColumns+` FROM pacientes
		WHERE documento ILIKE '%' || $1 || '%' OR nombre ILIKE '%' || $1 || '%'
		ORDER BY nombre`, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *patientStorePG) Unassigned(ctx context.Context) ([]*identity.Patient, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+patientColumns+` FROM pacientes WHERE hospital_id IS NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *patientStorePG) ByHospital(ctx context.Context, hospitalID int64) ([]*identity.Patient, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+patientColumns+` FROM pacientes WHERE hospital_id = $1 ORDER BY nombre`, hospitalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func (r *patientStorePG) CountByHospital(ctx context.Context, hospitalID int64) (int, error) {
	var n int
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT COUNT(*) FROM pacientes WHERE hospital_id = $1`, hospitalID).Scan(&n)
	return n, err
}

func (r *patientStorePG) ByIDs(ctx context.Context, ids []int64) ([]*identity.Patient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+patientColumns+` FROM pacientes WHERE id = ANY($1) ORDER BY nombre`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPatients(rows)
}

func scanPatient(row pgx.Row) (*identity.Patient, error) {
	var p identity.Patient
	err := row.Scan(&p.ID, &p.Documento, &p.Nombre, &p.FechaNacimiento, &p.Genero,
		&p.Direccion, &p.Email, &p.Telefono, &p.Latitud, &p.Longitud,
		&p.HospitalID, &p.HashedPassword)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectPatients(rows pgx.Rows) ([]*identity.Patient, error) {
	var out []*identity.Patient
	for rows.Next() {
		var p identity.Patient
		if err := rows.Scan(&p.ID, &p.Documento, &p.Nombre, &p.FechaNacimiento, &p.Genero,
			&p.Direccion, &p.Email, &p.Telefono, &p.Latitud, &p.Longitud,
			&p.HospitalID, &p.HashedPassword); err != nil {
			return nil, err
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
