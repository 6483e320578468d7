package specialty

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
)

type memRepo struct {
	specialties map[int64]*Specialty
	nextID      int64
}

func newMemRepo() *memRepo {
	return &memRepo{specialties: map[int64]*Specialty{}, nextID: 1}
}

func (m *memRepo) Create(_ context.Context, s *Specialty) error {
	s.ID = m.nextID
	m.nextID++
	cp := *s
	m.specialties[s.ID] = &cp
	return nil
}

func (m *memRepo) GetByID(_ context.Context, id int64) (*Specialty, error) {
	s, ok := m.specialties[id]
	if !ok {
		return nil, fault.NotFoundf("Especialidad no encontrada")
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) GetByNombre(_ context.Context, nombre string) (*Specialty, error) {
	for _, s := range m.specialties {
		if strings.EqualFold(s.Nombre, nombre) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fault.NotFoundf("Especialidad no encontrada")
}

func (m *memRepo) Update(_ context.Context, s *Specialty) error {
	cp := *s
	m.specialties[s.ID] = &cp
	return nil
}

func (m *memRepo) List(_ context.Context, includeInactive bool) ([]*Specialty, error) {
	var out []*Specialty
	for _, s := range m.specialties {
		if !includeInactive && !s.Activo {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memRepo) DoctorCount(_ context.Context, id int64) (int, error) { return 0, nil }

var (
	admin       = auth.Principal{ID: 1, Role: auth.RoleAdmin}
	coordinator = auth.Principal{ID: 2, Role: auth.RoleCoordinador}
)

func newTestService() *Service {
	return NewService(newMemRepo(), zerolog.Nop())
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), coordinator, Input{Nombre: "Cardiología"})
	if fault.KindOf(err) != fault.Forbidden {
		t.Fatalf("expected Forbidden, got %v", err)
	}
}

func TestCreateDuplicateNombre(t *testing.T) {
	svc := newTestService()
	if _, err := svc.Create(context.Background(), admin, Input{Nombre: "Cardiología"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	_, err := svc.Create(context.Background(), admin, Input{Nombre: "cardiología"})
	if fault.KindOf(err) != fault.Conflict {
		t.Fatalf("expected Conflict on case-insensitive duplicate, got %v", err)
	}
}

func TestDeactivateHidesFromDefaultList(t *testing.T) {
	svc := newTestService()
	sp, err := svc.Create(context.Background(), admin, Input{Nombre: "Cardiología"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Deactivate(context.Background(), admin, sp.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	// idempotent
	if err := svc.Deactivate(context.Background(), admin, sp.ID); err != nil {
		t.Fatalf("second Deactivate: %v", err)
	}

	active, err := svc.List(context.Background(), coordinator, false)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected deactivated specialty hidden, got %d rows", len(active))
	}

	all, err := svc.List(context.Background(), admin, true)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 1 || all[0].Activo {
		t.Fatalf("expected one inactive row for admin, got %+v", all)
	}
}

func TestListInactiveRequiresAdmin(t *testing.T) {
	svc := newTestService()
	sp, err := svc.Create(context.Background(), admin, Input{Nombre: "Cardiología"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Deactivate(context.Background(), admin, sp.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	out, err := svc.List(context.Background(), coordinator, true)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("non-admin should not see inactive rows, got %d", len(out))
	}
}
