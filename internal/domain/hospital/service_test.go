package hospital

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
)

type memRepo struct {
	hospitals map[int64]*Hospital
	refs      map[int64]References
	nextID    int64
}

func newMemRepo() *memRepo {
	return &memRepo{hospitals: map[int64]*Hospital{}, refs: map[int64]References{}, nextID: 1}
}

func (m *memRepo) Create(_ context.Context, h *Hospital) error {
	h.ID = m.nextID
	m.nextID++
	cp := *h
	m.hospitals[h.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Hospital, error) {
	h, ok := m.hospitals[id]
	if !ok {
		return nil, fault.NotFoundf("Hospital no encontrado")
	}
	cp := *h
	return &cp, nil
}

func (m *memRepo) GetByCodigo(_ context.Context, codigo string) (*Hospital, error) {
	for _, h := range m.hospitals {
		if h.Codigo != nil && *h.Codigo == codigo {
			cp := *h
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Hospital no encontrado")
}

func (m *memRepo) Update(_ context.Context, h *Hospital) error {
	cp := *h
	m.hospitals[h.ID] = &cp
	return nil
}

func (m *memRepo) Delete(_ context.Context, id int64) error {
	delete(m.hospitals, id)
	return nil
}

func (m *memRepo) List(_ context.Context, limit, offset int) ([]*Hospital, int, error) {
	var out []*Hospital
	for _, h := range m.hospitals {
		cp := *h
		out = append(out, &cp)
	}
	return out, len(m.hospitals), nil
}

func (m *memRepo) ListWithCoordinates(_ context.Context) ([]*Hospital, error) {
	var out []*Hospital
	for _, h := range m.hospitals {
		if h.HasCoordinates() {
			cp := *h
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memRepo) References(_ context.Context, id int64) (References, error) {
	return m.refs[id], nil
}

var (
	admin  = auth.Principal{ID: 1, Role: auth.RoleAdmin}
	doctor = auth.Principal{ID: 2, Role: auth.RoleMedico}
)

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return NewService(repo, zerolog.Nop()), repo
}

func strPtr(s string) *string    { return &s }
func f64Ptr(f float64) *float64 { return &f }

func TestCreateRequiresAdmin(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), doctor, CreateInput{Nombre: "Hospital Central"})
	if fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService()
	h, err := svc.Create(context.Background(), admin, CreateInput{
		Nombre:   "Hospital Central",
		Codigo:   strPtr("HC-01"),
		Latitud:  f64Ptr(-12.05),
		Longitud: f64Ptr(-77.03),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h.ID == 0 {
		t.Fatal("expected assigned ID")
	}
	got, err := svc.Get(context.Background(), h.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Nombre != "Hospital Central" || !got.HasCoordinates() {
		t.Fatalf("unexpected hospital: %+v", got)
	}
}

func TestCreateDuplicateCodigo(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Create(context.Background(), admin, CreateInput{Nombre: "A", Codigo: strPtr("X")}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(context.Background(), admin, CreateInput{Nombre: "B", Codigo: strPtr("X")})
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService()
	cases := []struct {
		name string
		in   CreateInput
	}{
		{"empty name", CreateInput{}},
		{"lat without lon", CreateInput{Nombre: "A", Latitud: f64Ptr(1)}},
		{"lat out of range", CreateInput{Nombre: "A", Latitud: f64Ptr(95), Longitud: f64Ptr(0)}},
		{"lon out of range", CreateInput{Nombre: "A", Latitud: f64Ptr(0), Longitud: f64Ptr(200)}},
	}
	for _, tc := range cases {
		if _, err := svc.Create(context.Background(), admin, tc.in); fault.KindOf(err) != fault.BadRequest {
			t.Errorf("%s: expected BadRequest, got %v", tc.name, err)
		}
	}
}

func TestUpdateKeepsOwnCodigo(t *testing.T) {
	svc, _ := newTestService()
	h, err := svc.Create(context.Background(), admin, CreateInput{Nombre: "A", Codigo: strPtr("X")})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	updated, err := svc.Update(context.Background(), admin, h.ID, CreateInput{Nombre: "A renovado", Codigo: strPtr("X")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Nombre != "A renovado" {
		t.Fatalf("unexpected nombre %q", updated.Nombre)
	}
}

func TestDeleteWithReferences(t *testing.T) {
	svc, repo := newTestService()
	h, err := svc.Create(context.Background(), admin, CreateInput{Nombre: "A"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	repo.refs[h.ID] = References{Pacientes: 3}
	if err := svc.Delete(context.Background(), admin, h.ID); fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict, got %v", err)
	}

	repo.refs[h.ID] = References{}
	if err := svc.Delete(context.Background(), admin, h.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), h.ID); fault.KindOf(err) != fault.NotFound {
		t.Fatalf("expected NotFound after delete, got %v", err)
	}
}
