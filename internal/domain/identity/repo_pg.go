package identity

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

func conn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

// ---- patients ----

const patientColumns = `id, documento, nombre, fecha_nacimiento, genero, direccion,
	email, telefono, latitud, longitud, hospital_id, hashed_password`

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO pacientes (documento, nombre, fecha_nacimiento, genero, direccion,
			email, telefono, latitud, longitud, hospital_id, hashed_password)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		p.Documento, p.Nombre, p.FechaNacimiento, p.Genero, p.Direccion,
		p.Email, p.Telefono, p.Latitud, p.Longitud, p.HospitalID, p.HashedPassword,
	).Scan(&p.ID)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM pacientes WHERE id = $1`, id))
}

func (r *patientRepoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	return scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM pacientes WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *patientRepoPG) GetByDocumento(ctx context.Context, documento string) (*Patient, error) {
	return scanPatient(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientColumns+` FROM pacientes WHERE documento = $1`, documento))
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM pacientes`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+patientColumns+` FROM pacientes ORDER BY nombre LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Patient
	for rows.Next() {
		p, err := scanPatientRow(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE pacientes SET nombre = $2, direccion = $3, telefono = $4,
			latitud = $5, longitud = $6, hospital_id = $7
		WHERE id = $1`,
		p.ID, p.Nombre, p.Direccion, p.Telefono, p.Latitud, p.Longitud, p.HospitalID)
	return err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Documento, &p.Nombre, &p.FechaNacimiento, &p.Genero,
		&p.Direccion, &p.Email, &p.Telefono, &p.Latitud, &p.Longitud,
		&p.HospitalID, &p.HashedPassword)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Paciente no encontrado")
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPatientRow(rows pgx.Rows) (*Patient, error) {
	var p Patient
	err := rows.Scan(&p.ID, &p.Documento, &p.Nombre, &p.FechaNacimiento, &p.Genero,
		&p.Direccion, &p.Email, &p.Telefono, &p.Latitud, &p.Longitud,
		&p.HospitalID, &p.HashedPassword)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ---- doctors ----

const doctorColumns = `id, documento, nombre, email, telefono, hashed_password`

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepo(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medicos (documento, nombre, email, telefono, hashed_password)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		d.Documento, d.Nombre, d.Email, d.Telefono, d.HashedPassword,
	).Scan(&d.ID)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	return scanDoctor(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM medicos WHERE id = $1`, id))
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	return scanDoctor(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM medicos WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *doctorRepoPG) GetByDocumento(ctx context.Context, documento string) (*Doctor, error) {
	return scanDoctor(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+doctorColumns+` FROM medicos WHERE documento = $1`, documento))
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM medicos`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+doctorColumns+` FROM medicos ORDER BY nombre LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Documento, &d.Nombre, &d.Email, &d.Telefono, &d.HashedPassword); err != nil {
			return nil, 0, err
		}
		out = append(out, &d)
	}
	return out, total, rows.Err()
}

func (r *doctorRepoPG) LinkSpecialty(ctx context.Context, doctorID, specialtyID int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medico_especialidad (medico_id, especialidad_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		doctorID, specialtyID)
	return err
}

func (r *doctorRepoPG) LinkHospital(ctx context.Context, doctorID, hospitalID int64) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO medico_hospital (medico_id, hospital_id)
		VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		doctorID, hospitalID)
	return err
}

func (r *doctorRepoPG) SpecialtyNames(ctx context.Context, doctorID int64) ([]string, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `
		SELECT e.nombre FROM especialidades e
		JOIN medico_especialidad me ON me.especialidad_id = e.id
		WHERE me.medico_id = $1
		ORDER BY e.nombre`, doctorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.Documento, &d.Nombre, &d.Email, &d.Telefono, &d.HashedPassword)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Médico no encontrado")
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// ---- coordinators ----

type coordinatorRepoPG struct {
	pool *pgxpool.Pool
}

func NewCoordinatorRepo(pool *pgxpool.Pool) CoordinatorRepository {
	return &coordinatorRepoPG{pool: pool}
}

func (r *coordinatorRepoPG) GetByID(ctx context.Context, id int64) (*Coordinator, error) {
	return scanCoordinator(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, documento, nombre, email, hashed_password, hospital_id
		 FROM coordinadores WHERE id = $1`, id))
}

func (r *coordinatorRepoPG) GetByEmail(ctx context.Context, email string) (*Coordinator, error) {
	return scanCoordinator(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, documento, nombre, email, hashed_password, hospital_id
		 FROM coordinadores WHERE LOWER(email) = LOWER($1)`, email))
}

func scanCoordinator(row pgx.Row) (*Coordinator, error) {
	var c Coordinator
	err := row.Scan(&c.ID, &c.Documento, &c.Nombre, &c.Email, &c.HashedPassword, &c.HospitalID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Coordinador no encontrado")
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ---- admins ----

const adminColumns = `id, documento, nombre, email, telefono, hashed_password, activo, fecha_creacion`

type adminRepoPG struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) AdminRepository {
	return &adminRepoPG{pool: pool}
}

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	return conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO admins (documento, nombre, email, telefono, hashed_password, activo, fecha_creacion)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		a.Documento, a.Nombre, a.Email, a.Telefono, a.HashedPassword, a.Activo, a.FechaCreacion,
	).Scan(&a.ID)
}

func (r *adminRepoPG) GetByID(ctx context.Context, id int64) (*Admin, error) {
	return scanAdmin(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = $1`, id))
}

func (r *adminRepoPG) GetByEmail(ctx context.Context, email string) (*Admin, error) {
	return scanAdmin(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE LOWER(email) = LOWER($1)`, email))
}

func (r *adminRepoPG) GetByDocumento(ctx context.Context, documento string) (*Admin, error) {
	return scanAdmin(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE documento = $1`, documento))
}

func (r *adminRepoPG) List(ctx context.Context, includeInactive bool) ([]*Admin, error) {
	q := `SELECT ` + adminColumns + ` FROM admins`
	if !includeInactive {
		q += ` WHERE activo`
	}
	q += ` ORDER BY nombre`

	rows, err := conn(ctx, r.pool).Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Admin
	for rows.Next() {
		var a Admin
		if err := rows.Scan(&a.ID, &a.Documento, &a.Nombre, &a.Email, &a.Telefono,
			&a.HashedPassword, &a.Activo, &a.FechaCreacion); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *adminRepoPG) Update(ctx context.Context, a *Admin) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE admins SET documento = $2, nombre = $3, email = $4, telefono = $5, activo = $6
		WHERE id = $1`,
		a.ID, a.Documento, a.Nombre, a.Email, a.Telefono, a.Activo)
	return err
}

// CountActive takes a row lock on every active admin so a concurrent
// deactivation cannot slip past the last-active-admin guard.
func (r *adminRepoPG) CountActive(ctx context.Context) (int, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT id FROM admins WHERE activo FOR UPDATE`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		n++
	}
	return n, rows.Err()
}

func scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	err := row.Scan(&a.ID, &a.Documento, &a.Nombre, &a.Email, &a.Telefono,
		&a.HashedPassword, &a.Activo, &a.FechaCreacion)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fault.NotFoundf("Administrador no encontrado")
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ---- directories ----

type hospitalDirectoryPG struct {
	pool *pgxpool.Pool
}

func NewHospitalDirectory(pool *pgxpool.Pool) HospitalDirectory {
	return &hospitalDirectoryPG{pool: pool}
}

func (r *hospitalDirectoryPG) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM hospitales WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}

type specialtyDirectoryPG struct {
	pool *pgxpool.Pool
}

func NewSpecialtyDirectory(pool *pgxpool.Pool) SpecialtyDirectory {
	return &specialtyDirectoryPG{pool: pool}
}

func (r *specialtyDirectoryPG) ActiveExists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM especialidades WHERE id = $1 AND activo)`, id).Scan(&ok)
	return ok, err
}
