package identity

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/internal/platform/db"
)

type memPatients struct {
	rows   map[int64]*Patient
	nextID int64
}

func (m *memPatients) Create(_ context.Context, p *Patient) error {
	p.ID = m.nextID
	m.nextID++
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memPatients) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.rows[id]
	if !ok {
		return nil, fault.NotFoundf("Paciente no encontrado")
	}
	cp := *p
	return &cp, nil
}

func (m *memPatients) GetByEmail(_ context.Context, email string) (*Patient, error) {
	for _, p := range m.rows {
		if strings.EqualFold(p.Email, email) {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Paciente no encontrado")
}

func (m *memPatients) GetByDocumento(_ context.Context, documento string) (*Patient, error) {
	for _, p := range m.rows {
		if p.Documento == documento {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Paciente no encontrado")
}

func (m *memPatients) List(_ context.Context, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.rows {
		cp := *p
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memPatients) Update(_ context.Context, p *Patient) error {
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

type memDoctors struct {
	rows        map[int64]*Doctor
	specialties map[int64][]int64
	hospitals   map[int64][]int64
	nextID      int64
}

func (m *memDoctors) Create(_ context.Context, d *Doctor) error {
	d.ID = m.nextID
	m.nextID++
	cp := *d
	m.rows[d.ID] = &cp
	return nil
}

func (m *memDoctors) GetByID(_ context.Context, id int64) (*Doctor, error) {
	d, ok := m.rows[id]
	if !ok {
		return nil, fault.NotFoundf("Médico no encontrado")
	}
	cp := *d
	return &cp, nil
}

func (m *memDoctors) GetByEmail(_ context.Context, email string) (*Doctor, error) {
	for _, d := range m.rows {
		if strings.EqualFold(d.Email, email) {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Médico no encontrado")
}

func (m *memDoctors) GetByDocumento(_ context.Context, documento string) (*Doctor, error) {
	for _, d := range m.rows {
		if d.Documento == documento {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Médico no encontrado")
}

func (m *memDoctors) List(_ context.Context, limit, offset int) ([]*Doctor, int, error) {
	var out []*Doctor
	for _, d := range m.rows {
		cp := *d
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *memDoctors) LinkSpecialty(_ context.Context, doctorID, specialtyID int64) error {
	m.specialties[doctorID] = append(m.specialties[doctorID], specialtyID)
	return nil
}

func (m *memDoctors) LinkHospital(_ context.Context, doctorID, hospitalID int64) error {
	m.hospitals[doctorID] = append(m.hospitals[doctorID], hospitalID)
	return nil
}

func (m *memDoctors) SpecialtyNames(_ context.Context, doctorID int64) ([]string, error) {
	return nil, nil
}

type memCoordinators struct {
	rows map[int64]*Coordinator
}

func (m *memCoordinators) GetByID(_ context.Context, id int64) (*Coordinator, error) {
	c, ok := m.rows[id]
	if !ok {
		return nil, fault.NotFoundf("Coordinador no encontrado")
	}
	cp := *c
	return &cp, nil
}

func (m *memCoordinators) GetByEmail(_ context.Context, email string) (*Coordinator, error) {
	for _, c := range m.rows {
		if strings.EqualFold(c.Email, email) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Coordinador no encontrado")
}

type memAdmins struct {
	rows   map[int64]*Admin
	nextID int64
}

func (m *memAdmins) Create(_ context.Context, a *Admin) error {
	a.ID = m.nextID
	m.nextID++
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memAdmins) GetByID(_ context.Context, id int64) (*Admin, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, fault.NotFoundf("Administrador no encontrado")
	}
	cp := *a
	return &cp, nil
}

func (m *memAdmins) GetByEmail(_ context.Context, email string) (*Admin, error) {
	for _, a := range m.rows {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Administrador no encontrado")
}

func (m *memAdmins) GetByDocumento(_ context.Context, documento string) (*Admin, error) {
	for _, a := range m.rows {
		if a.Documento == documento {
			cp := *a
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Administrador no encontrado")
}

func (m *memAdmins) List(_ context.Context, includeInactive bool) ([]*Admin, error) {
	var out []*Admin
	for _, a := range m.rows {
		if !includeInactive && !a.Activo {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memAdmins) Update(_ context.Context, a *Admin) error {
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memAdmins) CountActive(_ context.Context) (int, error) {
	n := 0
	for _, a := range m.rows {
		if a.Activo {
			n++
		}
	}
	return n, nil
}

type memDirectory struct {
	hospitals   map[int64]bool
	specialties map[int64]bool
}

func (m *memDirectory) Exists(_ context.Context, id int64) (bool, error) {
	return m.hospitals[id], nil
}

func (m *memDirectory) ActiveExists(_ context.Context, id int64) (bool, error) {
	return m.specialties[id], nil
}

type fixture struct {
	svc          *Service
	patients     *memPatients
	doctors      *memDoctors
	coordinators *memCoordinators
	admins       *memAdmins
	dir          *memDirectory
	issuer       *auth.TokenIssuer
}

func newFixture() *fixture {
	f := &fixture{
		patients:     &memPatients{rows: map[int64]*Patient{}, nextID: 1},
		doctors:      &memDoctors{rows: map[int64]*Doctor{}, specialties: map[int64][]int64{}, hospitals: map[int64][]int64{}, nextID: 1},
		coordinators: &memCoordinators{rows: map[int64]*Coordinator{}},
		admins:       &memAdmins{rows: map[int64]*Admin{}, nextID: 1},
		dir:          &memDirectory{hospitals: map[int64]bool{}, specialties: map[int64]bool{}},
		issuer:       auth.NewTokenIssuer("test-secret", time.Hour),
	}
	f.svc = NewService(f.patients, f.doctors, f.coordinators, f.admins,
		f.dir, f.dir, f.issuer, db.PassthroughRunner(), zerolog.Nop())
	return f
}

func validPatientInput() RegisterPatientInput {
	return RegisterPatientInput{
		Documento:       "12345678",
		Nombre:          "Ana Torres",
		FechaNacimiento: "1990-05-14",
		Genero:          GeneroFemenino,
		Email:           "ana@example.com",
		Password:        "secreta1",
	}
}

func TestRegisterPatientIssuesToken(t *testing.T) {
	f := newFixture()
	tok, err := f.svc.RegisterPatient(context.Background(), validPatientInput())
	if err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}
	p, err := f.issuer.Parse(tok.AccessToken)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Role != auth.RolePaciente || p.Email != "ana@example.com" {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestRegisterPatientDuplicates(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.RegisterPatient(context.Background(), validPatientInput()); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}

	dup := validPatientInput()
	dup.Documento = "99999999"
	if _, err := f.svc.RegisterPatient(context.Background(), dup); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict on email, got %v", err)
	}

	dup = validPatientInput()
	dup.Email = "otra@example.com"
	if _, err := f.svc.RegisterPatient(context.Background(), dup); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict on documento, got %v", err)
	}
}

func TestRegisterPatientValidation(t *testing.T) {
	f := newFixture()
	in := validPatientInput()
	in.Genero = "desconocido"
	if _, err := f.svc.RegisterPatient(context.Background(), in); fault.KindOf(err) != fault.BadRequest {
		t.Fatalf("expected BadRequest on genero, got %v", err)
	}

	in = validPatientInput()
	in.FechaNacimiento = "14/05/1990"
	if _, err := f.svc.RegisterPatient(context.Background(), in); fault.KindOf(err) != fault.BadRequest {
		t.Fatalf("expected BadRequest on fecha, got %v", err)
	}

	in = validPatientInput()
	in.Password = "abc"
	if _, err := f.svc.RegisterPatient(context.Background(), in); fault.KindOf(err) != fault.BadRequest {
		t.Fatalf("expected BadRequest on short password, got %v", err)
	}
}

func TestRegisterDoctorValidatesReferences(t *testing.T) {
	f := newFixture()
	in := RegisterDoctorInput{
		Documento:       "44455566",
		Nombre:          "Luis Paredes",
		Email:           "luis@example.com",
		Password:        "secreta1",
		EspecialidadIDs: []int64{7},
	}
	if _, err := f.svc.RegisterDoctor(context.Background(), in); fault.KindOf(err) != fault.NotFound {
		t.Fatalf("expected NotFound on missing specialty, got %v", err)
	}

	f.dir.specialties[7] = true
	in.HospitalIDs = []int64{3}
	if _, err := f.svc.RegisterDoctor(context.Background(), in); fault.KindOf(err) != fault.NotFound {
		t.Fatalf("expected NotFound on missing hospital, got %v", err)
	}

	f.dir.hospitals[3] = true
	if _, err := f.svc.RegisterDoctor(context.Background(), in); err != nil {
		t.Fatalf("RegisterDoctor: %v", err)
	}
	if len(f.doctors.specialties[1]) != 1 || len(f.doctors.hospitals[1]) != 1 {
		t.Fatalf("expected linked edges, got %+v %+v", f.doctors.specialties, f.doctors.hospitals)
	}
}

func TestRegisterDoctorRejectsPatientEmail(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.RegisterPatient(context.Background(), validPatientInput()); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}
	in := RegisterDoctorInput{
		Documento: "44455566",
		Nombre:    "Luis Paredes",
		Email:     "ana@example.com",
		Password:  "secreta1",
	}
	if _, err := f.svc.RegisterDoctor(context.Background(), in); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestLoginAcrossTables(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.RegisterPatient(context.Background(), validPatientInput()); err != nil {
		t.Fatalf("RegisterPatient: %v", err)
	}

	tok, err := f.svc.Login(context.Background(), "ana@example.com", "secreta1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	p, err := f.issuer.Parse(tok.AccessToken)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Role != auth.RolePaciente {
		t.Fatalf("expected paciente role, got %s", p.Role)
	}

	if _, err := f.svc.Login(context.Background(), "ana@example.com", "incorrecta"); fault.KindOf(err) != fault.Unauthorized {
		t.Fatalf("expected Unauthorized on bad password, got %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "nadie@example.com", "secreta1"); fault.KindOf(err) != fault.Unauthorized {
		t.Fatalf("expected Unauthorized on unknown email, got %v", err)
	}
}

func TestLoginInactiveAdmin(t *testing.T) {
	f := newFixture()
	a, err := f.svc.BootstrapAdmin(context.Background(), AdminInput{
		Documento: "11122233", Nombre: "Root", Email: "root@example.com", Password: "secreta1",
	})
	if err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	a.Activo = false
	if err := f.admins.Update(context.Background(), a); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, err := f.svc.Login(context.Background(), "root@example.com", "secreta1"); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden for inactive admin, got %v", err)
	}
}

func TestDeactivateAdminGuards(t *testing.T) {
	f := newFixture()
	first, err := f.svc.BootstrapAdmin(context.Background(), AdminInput{
		Documento: "11122233", Nombre: "Root", Email: "root@example.com", Password: "secreta1",
	})
	if err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}
	requester := auth.Principal{ID: first.ID, Role: auth.RoleAdmin}

	// Self-deactivation is rejected outright.
	if err := f.svc.DeactivateAdmin(context.Background(), requester, first.ID); fault.KindOf(err) != fault.BadRequest {
		t.Fatalf("expected BadRequest on self-deactivation, got %v", err)
	}

	second, err := f.svc.CreateAdmin(context.Background(), requester, AdminInput{
		Documento: "44455566", Nombre: "Backup", Email: "backup@example.com", Password: "secreta1",
	})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if err := f.svc.DeactivateAdmin(context.Background(), requester, second.ID); err != nil {
		t.Fatalf("DeactivateAdmin: %v", err)
	}

	// first is now the last active admin; second (inactive) cannot act,
	// and no one can deactivate first through another admin principal.
	other := auth.Principal{ID: second.ID, Role: auth.RoleAdmin}
	if err := f.svc.DeactivateAdmin(context.Background(), other, first.ID); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict on last active admin, got %v", err)
	}

	reactivated, err := f.svc.ReactivateAdmin(context.Background(), requester, second.ID)
	if err != nil {
		t.Fatalf("ReactivateAdmin: %v", err)
	}
	if !reactivated.Activo {
		t.Fatal("expected admin active after reactivation")
	}
}

func TestGetAdminSelfOrAdminOnly(t *testing.T) {
	f := newFixture()
	a, err := f.svc.BootstrapAdmin(context.Background(), AdminInput{
		Documento: "11122233", Nombre: "Root", Email: "root@example.com", Password: "secreta1",
	})
	if err != nil {
		t.Fatalf("BootstrapAdmin: %v", err)
	}

	stranger := auth.Principal{ID: 99, Role: auth.RoleCoordinador}
	if _, err := f.svc.GetAdmin(context.Background(), stranger, a.ID); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	self := auth.Principal{ID: a.ID, Role: auth.RoleAdmin}
	if _, err := f.svc.GetAdmin(context.Background(), self, a.ID); err != nil {
		t.Fatalf("GetAdmin: %v", err)
	}
}
