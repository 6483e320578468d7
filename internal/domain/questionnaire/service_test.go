package questionnaire

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/internal/platform/db"
)

type memRepo struct {
	rows   map[int64]*Questionnaire
	nextID int64
}

func (m *memRepo) Create(_ context.Context, q *Questionnaire) error {
	q.ID = m.nextID
	m.nextID++
	cp := *q
	m.rows[q.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Questionnaire, error) {
	q, ok := m.rows[id]
	if !ok {
		return nil, fault.NotFoundf("Formulario no encontrado")
	}
	cp := *q
	return &cp, nil
}

func (m *memRepo) Update(_ context.Context, q *Questionnaire) error {
	cp := *q
	m.rows[q.ID] = &cp
	return nil
}

func (m *memRepo) List(_ context.Context, creadorID *int64, activeOnly bool) ([]*Questionnaire, error) {
	var out []*Questionnaire
	for _, q := range m.rows {
		if activeOnly && !q.Activo {
			continue
		}
		if creadorID != nil && (q.CreadorID == nil || *q.CreadorID != *creadorID) {
			continue
		}
		cp := *q
		out = append(out, &cp)
	}
	return out, nil
}

type memAssignments struct {
	rows   map[int64]*Assignment
	nextID int64
}

func (m *memAssignments) Create(_ context.Context, a *Assignment) error {
	a.ID = m.nextID
	m.nextID++
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memAssignments) GetByID(_ context.Context, id int64) (*Assignment, error) {
	a, ok := m.rows[id]
	if !ok {
		return nil, fault.NotFoundf("Asignación no encontrada")
	}
	cp := *a
	return &cp, nil
}

func (m *memAssignments) CountByPair(_ context.Context, formularioID, pacienteID int64) (int, error) {
	n := 0
	for _, a := range m.rows {
		if a.FormularioID == formularioID && a.PacienteID == pacienteID {
			n++
		}
	}
	return n, nil
}

func (m *memAssignments) ByQuestionnaire(_ context.Context, formularioID int64) ([]*Assignment, error) {
	var out []*Assignment
	for _, a := range m.rows {
		if a.FormularioID == formularioID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memAssignments) ByPatient(_ context.Context, pacienteID int64) ([]*AssignmentDetail, error) {
	var out []*AssignmentDetail
	for _, a := range m.rows {
		if a.PacienteID == pacienteID {
			out = append(out, &AssignmentDetail{Assignment: *a, FormularioTitulo: "t", FormularioTipo: "y"})
		}
	}
	return out, nil
}

func (m *memAssignments) SetEstado(_ context.Context, id int64, estado string, completadoAt *time.Time) error {
	if a, ok := m.rows[id]; ok {
		a.Estado = estado
		a.FechaCompletado = completadoAt
	}
	return nil
}

type memResponses struct {
	rows   map[int64]*Response
	nextID int64
}

func (m *memResponses) Create(_ context.Context, r *Response) error {
	r.ID = m.nextID
	m.nextID++
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memResponses) ByAssignment(_ context.Context, asignacionID int64) (*Response, error) {
	for _, r := range m.rows {
		if r.AsignacionID != nil && *r.AsignacionID == asignacionID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Respuesta no encontrada")
}

func (m *memResponses) ByPatient(_ context.Context, pacienteID, formularioID int64) ([]*Response, error) {
	var out []*Response
	for _, r := range m.rows {
		if r.PacienteID == pacienteID && r.FormularioID == formularioID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memPatients struct {
	ids map[int64]bool
}

func (m *memPatients) Exists(_ context.Context, pacienteID int64) (bool, error) {
	return m.ids[pacienteID], nil
}

type fixture struct {
	svc         *Service
	repo        *memRepo
	assignments *memAssignments
	responses   *memResponses
	clock       *time.Time
}

func newFixture() *fixture {
	f := &fixture{
		repo:        &memRepo{rows: map[int64]*Questionnaire{}, nextID: 1},
		assignments: &memAssignments{rows: map[int64]*Assignment{}, nextID: 1},
		responses:   &memResponses{rows: map[int64]*Response{}, nextID: 1},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	f.clock = &now
	f.svc = NewService(f.repo, f.assignments, f.responses,
		&memPatients{ids: map[int64]bool{10: true, 11: true}},
		db.PassthroughRunner(), zerolog.Nop())
	f.svc.now = func() time.Time { return *f.clock }
	return f
}

var (
	doctor  = auth.Principal{ID: 1, Role: auth.RoleMedico}
	doctor2 = auth.Principal{ID: 2, Role: auth.RoleMedico}
	patient = auth.Principal{ID: 10, Role: auth.RolePaciente}
	admin   = auth.Principal{ID: 99, Role: auth.RoleAdmin}
)

func mustCreate(t *testing.T, f *fixture) *Questionnaire {
	t.Helper()
	q, err := f.svc.Create(context.Background(), doctor, CreateInput{
		Tipo:      "triaje",
		Titulo:    "Triaje inicial",
		Preguntas: json.RawMessage(`[{"campo":"dolor","tipo":"escala"}]`),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return q
}

func TestCreateRequiresDoctor(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Create(context.Background(), patient, CreateInput{
		Tipo: "x", Titulo: "y", Preguntas: json.RawMessage(`[]`),
	})
	if fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestGetScopedToCreatorForDoctors(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)

	if _, err := f.svc.Get(context.Background(), doctor2, q.ID); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden for other doctor, got %v", err)
	}
	if _, err := f.svc.Get(context.Background(), admin, q.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}
	if _, err := f.svc.Get(context.Background(), patient, q.ID); err != nil {
		t.Fatalf("patient read: %v", err)
	}
}

func TestUpdateCreatorOrAdmin(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)

	titulo := "Triaje v2"
	if _, err := f.svc.Update(context.Background(), doctor2, q.ID, UpdateInput{Titulo: &titulo}); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
	updated, err := f.svc.Update(context.Background(), admin, q.ID, UpdateInput{Titulo: &titulo})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Titulo != titulo || updated.Tipo != "triaje" {
		t.Fatalf("partial update wrong: %+v", updated)
	}
}

func TestInstanceNumbersPerPair(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)
	ctx := context.Background()

	for want := 1; want <= 3; want++ {
		a, err := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 10})
		if err != nil {
			t.Fatalf("Assign %d: %v", want, err)
		}
		if a.NumeroInstancia != want {
			t.Fatalf("expected instance %d, got %d", want, a.NumeroInstancia)
		}
	}

	// A different patient starts its own sequence.
	a, err := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 11})
	if err != nil {
		t.Fatalf("Assign other patient: %v", err)
	}
	if a.NumeroInstancia != 1 {
		t.Fatalf("expected instance 1 for new pair, got %d", a.NumeroInstancia)
	}
}

func TestAssignGuards(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)
	ctx := context.Background()

	if _, err := f.svc.Assign(ctx, patient, q.ID, AssignInput{PacienteID: 10}); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden for patient, got %v", err)
	}
	if _, err := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 404}); fault.KindOf(err) != fault.NotFound {
		t.Fatalf("expected NotFound for missing patient, got %v", err)
	}

	if err := f.svc.Deactivate(ctx, doctor, q.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 10}); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict for inactive questionnaire, got %v", err)
	}
}

func TestSubmitResponseCompletesAtomically(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)
	ctx := context.Background()

	a, err := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 10})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// Only the assigned patient can answer.
	other := auth.Principal{ID: 11, Role: auth.RolePaciente}
	if _, err := f.svc.SubmitResponse(ctx, other, a.ID, SubmitInput{Respuestas: json.RawMessage(`{"dolor":3}`)}); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	resp, err := f.svc.SubmitResponse(ctx, patient, a.ID, SubmitInput{Respuestas: json.RawMessage(`{"dolor":3}`)})
	if err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}
	if resp.AsignacionID == nil || *resp.AsignacionID != a.ID {
		t.Fatalf("response not linked to assignment: %+v", resp)
	}

	stored, _ := f.assignments.GetByID(ctx, a.ID)
	if stored.Estado != EstadoCompletado || stored.FechaCompletado == nil {
		t.Fatalf("expected completado with timestamp, got %+v", stored)
	}

	// Terminal: a second submission is rejected.
	if _, err := f.svc.SubmitResponse(ctx, patient, a.ID, SubmitInput{Respuestas: json.RawMessage(`{}`)}); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict on completed assignment, got %v", err)
	}
}

func TestLazyExpiry(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)
	ctx := context.Background()

	expiry := f.clock.Add(24 * time.Hour)
	a, err := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 10, FechaExpiracion: &expiry})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// Before expiry the row reads pendiente.
	rows, err := f.svc.MyAssignments(ctx, patient, nil)
	if err != nil {
		t.Fatalf("MyAssignments: %v", err)
	}
	if len(rows) != 1 || rows[0].Estado != EstadoPendiente {
		t.Fatalf("expected pendiente, got %+v", rows)
	}

	*f.clock = f.clock.Add(48 * time.Hour)

	rows, err = f.svc.MyAssignments(ctx, patient, nil)
	if err != nil {
		t.Fatalf("MyAssignments after expiry: %v", err)
	}
	if len(rows) != 1 || rows[0].Estado != EstadoExpirado {
		t.Fatalf("expected expirado at read time, got %+v", rows)
	}
	// And the transition was persisted.
	stored, _ := f.assignments.GetByID(ctx, a.ID)
	if stored.Estado != EstadoExpirado {
		t.Fatalf("expiry not persisted: %+v", stored)
	}

	// An expired assignment no longer accepts answers.
	if _, err := f.svc.SubmitResponse(ctx, patient, a.ID, SubmitInput{Respuestas: json.RawMessage(`{}`)}); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict on expired assignment, got %v", err)
	}
}

func TestMyAssignmentsStateFilter(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)
	ctx := context.Background()

	a1, _ := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 10})
	if _, err := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 10}); err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if _, err := f.svc.SubmitResponse(ctx, patient, a1.ID, SubmitInput{Respuestas: json.RawMessage(`{}`)}); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	pendiente := EstadoPendiente
	rows, err := f.svc.MyAssignments(ctx, patient, &pendiente)
	if err != nil {
		t.Fatalf("MyAssignments: %v", err)
	}
	if len(rows) != 1 || rows[0].Estado != EstadoPendiente {
		t.Fatalf("expected one pendiente row, got %+v", rows)
	}

	if _, err := f.svc.MyAssignments(ctx, doctor, nil); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden for doctor, got %v", err)
	}
}

func TestCancelAssignment(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)
	ctx := context.Background()

	a, err := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 10})
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	// An unrelated doctor cannot cancel.
	if _, err := f.svc.Cancel(ctx, doctor2, a.ID); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}

	out, err := f.svc.Cancel(ctx, doctor, a.ID)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if out.Estado != EstadoCancelado {
		t.Fatalf("expected cancelado, got %s", out.Estado)
	}

	// Terminal states never transition out.
	if _, err := f.svc.Cancel(ctx, doctor, a.ID); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict on cancelled assignment, got %v", err)
	}
	if _, err := f.svc.SubmitResponse(ctx, patient, a.ID, SubmitInput{Respuestas: json.RawMessage(`{}`)}); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestResponseVisibility(t *testing.T) {
	f := newFixture()
	q := mustCreate(t, f)
	ctx := context.Background()

	a, _ := f.svc.Assign(ctx, doctor, q.ID, AssignInput{PacienteID: 10})
	if _, err := f.svc.SubmitResponse(ctx, patient, a.ID, SubmitInput{Respuestas: json.RawMessage(`{"dolor":5}`)}); err != nil {
		t.Fatalf("SubmitResponse: %v", err)
	}

	for _, p := range []auth.Principal{patient, doctor, admin} {
		if _, err := f.svc.ResponseFor(ctx, p, a.ID); err != nil {
			t.Fatalf("ResponseFor %s: %v", p.Role, err)
		}
	}
	if _, err := f.svc.ResponseFor(ctx, doctor2, a.ID); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden for unrelated doctor, got %v", err)
	}
	other := auth.Principal{ID: 11, Role: auth.RolePaciente}
	if _, err := f.svc.ResponseFor(ctx, other, a.ID); fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden for other patient, got %v", err)
	}
}
