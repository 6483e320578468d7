package coordination

import (
	"context"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/redsalud/coordinacion/internal/config"
	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/domain/identity"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/internal/platform/db"
	"github.com/redsalud/coordinacion/internal/platform/geo"
)

const (
	DefaultSearchRadiusKm = 50.0
	nearbyLimit           = 5
)

// Service enforces who may bind doctors, patients and hospitals
// together, and answers proximity and coverage queries.
type Service struct {
	assignments    AssignmentRepository
	doctorHospital DoctorHospitalRepository
	coordinators   CoordinatorStore
	patients       PatientStore
	doctors        DoctorStore
	hospitals      HospitalStore
	policy         config.DoctorHospitalPolicy
	tx             db.TxRunner
	log            zerolog.Logger
}

func NewService(
	assignments AssignmentRepository,
	doctorHospital DoctorHospitalRepository,
	coordinators CoordinatorStore,
	patients PatientStore,
	doctors DoctorStore,
	hospitals HospitalStore,
	policy config.DoctorHospitalPolicy,
	tx db.TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		assignments:    assignments,
		doctorHospital: doctorHospital,
		coordinators:   coordinators,
		patients:       patients,
		doctors:        doctors,
		hospitals:      hospitals,
		policy:         policy,
		tx:             tx,
		log:            log.With().Str("component", "coordination").Logger(),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// requireCoordinator resolves the requesting principal to a stored
// coordinator row.
func (s *Service) requireCoordinator(ctx context.Context, p auth.Principal) (*identity.Coordinator, error) {
	if err := auth.Allow(p, auth.RoleCoordinador); err != nil {
		return nil, err
	}
	return s.coordinators.GetByID(ctx, p.ID)
}

// requireHospitalScope checks the coordinator-of-hospital rule: the
// requester must be the coordinator assigned to hospitalID.
func (s *Service) requireHospitalScope(ctx context.Context, p auth.Principal, hospitalID int64) (*identity.Coordinator, error) {
	coord, err := s.requireCoordinator(ctx, p)
	if err != nil {
		return nil, err
	}
	if coord.HospitalID == nil || *coord.HospitalID != hospitalID {
		return nil, fault.Forbiddenf("No tienes permiso para operar en este hospital")
	}
	return coord, nil
}

// ---- coordinator management ----

type CoordinatorInput struct {
	Documento  string `json:"documento"`
	Nombre     string `json:"nombre"`
	Email      string `json:"email"`
	Password   string `json:"password"`
	HospitalID *int64 `json:"hospital_id"`
}

func (s *Service) CreateCoordinator(ctx context.Context, p auth.Principal, in CoordinatorInput) (*identity.Coordinator, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if in.Documento == "" || in.Nombre == "" || in.Email == "" {
		return nil, fault.BadRequestf("Documento, nombre y email son obligatorios")
	}
	if len(in.Password) < 6 {
		return nil, fault.BadRequestf("La contraseña debe tener al menos 6 caracteres")
	}

	if existing, err := s.coordinators.GetByDocumento(ctx, in.Documento); err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	} else if existing != nil {
		return nil, fault.Conflictf("Ya existe un coordinador con el documento %s", in.Documento)
	}
	if existing, err := s.coordinators.GetByEmail(ctx, in.Email); err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	} else if existing != nil {
		return nil, fault.Conflictf("Ya existe un coordinador con el email %s", in.Email)
	}

	if in.HospitalID != nil {
		h, err := s.hospitals.GetByID(ctx, *in.HospitalID)
		if err != nil {
			if fault.KindOf(err) == fault.NotFound {
				return nil, fault.NotFoundf("Hospital con ID %d no encontrado", *in.HospitalID)
			}
			return nil, err
		}
		owner, err := s.coordinators.ByHospital(ctx, *in.HospitalID)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			return nil, fault.Conflictf("El hospital '%s' ya tiene un coordinador asignado", h.Nombre)
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	coord := &identity.Coordinator{
		Documento:      in.Documento,
		Nombre:         in.Nombre,
		Email:          strings.ToLower(in.Email),
		HashedPassword: string(hashed),
		HospitalID:     in.HospitalID,
	}
	if err := s.coordinators.Create(ctx, coord); err != nil {
		return nil, err
	}
	s.log.Info().Int64("coordinador_id", coord.ID).Msg("coordinator created")
	return coord, nil
}

// AssignHospitalToCoordinator hands a hospital to a coordinator.
// Re-assigning a coordinator to the hospital they already own succeeds.
func (s *Service) AssignHospitalToCoordinator(ctx context.Context, p auth.Principal, coordinadorID, hospitalID int64) (*identity.Coordinator, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	coord, err := s.coordinators.GetByID(ctx, coordinadorID)
	if err != nil {
		return nil, err
	}
	h, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	owner, err := s.coordinators.ByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	if owner != nil && owner.ID != coordinadorID {
		return nil, fault.Conflictf("El hospital '%s' ya tiene un coordinador asignado", h.Nombre)
	}

	coord.HospitalID = &hospitalID
	if err := s.coordinators.Update(ctx, coord); err != nil {
		return nil, err
	}
	s.log.Info().Int64("coordinador_id", coordinadorID).Int64("hospital_id", hospitalID).
		Msg("hospital assigned to coordinator")
	return coord, nil
}

func (s *Service) ListCoordinators(ctx context.Context, p auth.Principal) ([]*identity.Coordinator, error) {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return nil, err
	}
	return s.coordinators.List(ctx)
}

func (s *Service) GetCoordinator(ctx context.Context, p auth.Principal, id int64) (*identity.Coordinator, error) {
	if p.Role != auth.RoleAdmin && !(p.Role == auth.RoleCoordinador && p.ID == id) {
		return nil, fault.Forbiddenf("No tienes permisos para ver este coordinador")
	}
	return s.coordinators.GetByID(ctx, id)
}

func (s *Service) DeleteCoordinator(ctx context.Context, p auth.Principal, id int64) error {
	if err := auth.Allow(p, auth.RoleAdmin); err != nil {
		return err
	}
	if _, err := s.coordinators.GetByID(ctx, id); err != nil {
		return err
	}
	if err := s.coordinators.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("coordinador_id", id).Msg("coordinator deleted")
	return nil
}

func (s *Service) CoordinatorProfile(ctx context.Context, p auth.Principal) (*identity.Coordinator, error) {
	return s.requireCoordinator(ctx, p)
}

// ---- doctor-hospital binding ----

// authorizeDoctorHospital applies the deployment policy for managing
// the doctor-hospital roster.
func (s *Service) authorizeDoctorHospital(ctx context.Context, p auth.Principal, hospitalID int64) error {
	if s.policy == config.PolicyAdmin {
		return auth.Allow(p, auth.RoleAdmin)
	}
	_, err := s.requireHospitalScope(ctx, p, hospitalID)
	return err
}

func (s *Service) AssignDoctorToHospital(ctx context.Context, p auth.Principal, medicoID, hospitalID int64) (*identity.Doctor, error) {
	if err := s.authorizeDoctorHospital(ctx, p, hospitalID); err != nil {
		return nil, err
	}
	doctor, err := s.doctors.GetByID(ctx, medicoID)
	if err != nil {
		return nil, err
	}
	h, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	linked, err := s.doctorHospital.Linked(ctx, medicoID, hospitalID)
	if err != nil {
		return nil, err
	}
	if linked {
		return nil, fault.Conflictf("El médico '%s' ya está asignado al hospital '%s'", doctor.Nombre, h.Nombre)
	}
	if err := s.doctorHospital.Link(ctx, medicoID, hospitalID); err != nil {
		return nil, err
	}
	s.log.Info().Int64("medico_id", medicoID).Int64("hospital_id", hospitalID).Msg("doctor linked to hospital")
	return doctor, nil
}

func (s *Service) RemoveDoctorFromHospital(ctx context.Context, p auth.Principal, medicoID, hospitalID int64) (*identity.Doctor, error) {
	if err := s.authorizeDoctorHospital(ctx, p, hospitalID); err != nil {
		return nil, err
	}
	doctor, err := s.doctors.GetByID(ctx, medicoID)
	if err != nil {
		return nil, err
	}
	h, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	linked, err := s.doctorHospital.Linked(ctx, medicoID, hospitalID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, fault.BadRequestf("El médico '%s' no está asignado al hospital '%s'", doctor.Nombre, h.Nombre)
	}
	if err := s.doctorHospital.Unlink(ctx, medicoID, hospitalID); err != nil {
		return nil, err
	}
	s.log.Info().Int64("medico_id", medicoID).Int64("hospital_id", hospitalID).Msg("doctor unlinked from hospital")
	return doctor, nil
}

func (s *Service) AvailableDoctors(ctx context.Context, p auth.Principal, hospitalID int64, especialidadID *int64) ([]*identity.Doctor, error) {
	if _, err := s.requireHospitalScope(ctx, p, hospitalID); err != nil {
		return nil, err
	}
	if _, err := s.hospitals.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}
	return s.doctorHospital.DoctorsByHospital(ctx, hospitalID, especialidadID)
}

// ---- patient-hospital binding ----

func (s *Service) AssignPatientToHospital(ctx context.Context, p auth.Principal, pacienteID, hospitalID int64) (*identity.Patient, error) {
	if _, err := s.requireHospitalScope(ctx, p, hospitalID); err != nil {
		return nil, err
	}
	patient, err := s.patients.GetByID(ctx, pacienteID)
	if err != nil {
		return nil, err
	}
	if _, err := s.hospitals.GetByID(ctx, hospitalID); err != nil {
		return nil, err
	}
	if err := s.patients.SetHospital(ctx, pacienteID, &hospitalID); err != nil {
		return nil, err
	}
	patient.HospitalID = &hospitalID
	s.log.Info().Int64("paciente_id", pacienteID).Int64("hospital_id", hospitalID).Msg("patient assigned to hospital")
	return patient, nil
}

// ---- doctor-patient assignment ----

// AssignDoctorToPatient creates the patient's new active assignment,
// deactivating any prior one in the same transaction so the at most one
// active row per patient rule holds under concurrency.
func (s *Service) AssignDoctorToPatient(ctx context.Context, p auth.Principal, pacienteID, medicoID int64, notas *string) (*Assignment, error) {
	coord, err := s.requireCoordinator(ctx, p)
	if err != nil {
		return nil, err
	}
	if coord.HospitalID == nil {
		return nil, fault.BadRequestf("El coordinador no tiene un hospital asignado")
	}

	patient, err := s.patients.GetByID(ctx, pacienteID)
	if err != nil {
		return nil, err
	}
	if patient.HospitalID == nil || *patient.HospitalID != *coord.HospitalID {
		return nil, fault.Forbiddenf("El paciente no pertenece a tu hospital")
	}
	if _, err := s.doctors.GetByID(ctx, medicoID); err != nil {
		return nil, err
	}
	linked, err := s.doctorHospital.Linked(ctx, medicoID, *coord.HospitalID)
	if err != nil {
		return nil, err
	}
	if !linked {
		return nil, fault.Forbiddenf("El médico no trabaja en tu hospital")
	}

	assignment := &Assignment{
		PacienteID:      pacienteID,
		MedicoID:        medicoID,
		Activo:          true,
		Notas:           notas,
		FechaAsignacion: time.Now().UTC(),
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		current, err := s.assignments.ActiveByPatient(ctx, pacienteID)
		if err != nil {
			return err
		}
		if current != nil {
			if err := s.assignments.Deactivate(ctx, current.ID, time.Now().UTC()); err != nil {
				return err
			}
		}
		return s.assignments.Create(ctx, assignment)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("paciente_id", pacienteID).Int64("medico_id", medicoID).
		Int64("asignacion_id", assignment.ID).Msg("doctor assigned to patient")
	return assignment, nil
}

// ActiveAssignment returns the patient's current assignment. Coordinators
// and admins only; other roles use their own read paths.
func (s *Service) ActiveAssignment(ctx context.Context, p auth.Principal, pacienteID int64) (*Assignment, error) {
	if err := auth.Allow(p, auth.RoleCoordinador, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if _, err := s.patients.GetByID(ctx, pacienteID); err != nil {
		return nil, err
	}
	a, err := s.assignments.ActiveByPatient(ctx, pacienteID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fault.NotFoundf("El paciente no tiene una asignación activa")
	}
	return a, nil
}

func (s *Service) DeactivateAssignment(ctx context.Context, p auth.Principal, asignacionID int64) (*Assignment, error) {
	coord, err := s.requireCoordinator(ctx, p)
	if err != nil {
		return nil, err
	}
	assignment, err := s.assignments.GetByID(ctx, asignacionID)
	if err != nil {
		return nil, err
	}
	patient, err := s.patients.GetByID(ctx, assignment.PacienteID)
	if err != nil {
		return nil, err
	}
	if coord.HospitalID == nil || patient.HospitalID == nil || *patient.HospitalID != *coord.HospitalID {
		return nil, fault.Forbiddenf("No tienes permiso para modificar esta asignación")
	}

	now := time.Now().UTC()
	if err := s.assignments.Deactivate(ctx, asignacionID, now); err != nil {
		return nil, err
	}
	assignment.Activo = false
	assignment.FechaDesactivacion = &now
	s.log.Info().Int64("asignacion_id", asignacionID).Msg("assignment deactivated")
	return assignment, nil
}

func (s *Service) ListAssignments(ctx context.Context, p auth.Principal, activeOnly bool, limit, offset int) ([]*Assignment, int, error) {
	if err := auth.Allow(p, auth.RoleAdmin, auth.RoleCoordinador); err != nil {
		return nil, 0, err
	}
	return s.assignments.List(ctx, activeOnly, limit, offset)
}

// ---- search ----

func (s *Service) SearchPatients(ctx context.Context, p auth.Principal, query string, soloSinHospital bool) ([]*PatientSearchResult, error) {
	if err := auth.Allow(p, auth.RoleCoordinador, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return nil, fault.BadRequestf("El término de búsqueda es obligatorio")
	}
	patients, err := s.patients.Search(ctx, query)
	if err != nil {
		return nil, err
	}

	var out []*PatientSearchResult
	for _, patient := range patients {
		if soloSinHospital && patient.HospitalID != nil {
			continue
		}
		result, err := s.searchResult(ctx, patient)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

// MyPatients lists the patients a doctor is actively responsible for.
func (s *Service) MyPatients(ctx context.Context, p auth.Principal) ([]*PatientSearchResult, error) {
	if err := auth.Allow(p, auth.RoleMedico); err != nil {
		return nil, err
	}
	ids, err := s.assignments.ActivePatientIDsByDoctor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	patients, err := s.patients.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	var out []*PatientSearchResult
	for _, patient := range patients {
		result, err := s.searchResult(ctx, patient)
		if err != nil {
			return nil, err
		}
		out = append(out, result)
	}
	return out, nil
}

func (s *Service) searchResult(ctx context.Context, patient *identity.Patient) (*PatientSearchResult, error) {
	result := &PatientSearchResult{
		ID:        patient.ID,
		Documento: patient.Documento,
		Nombre:    patient.Nombre,
		Email:     patient.Email,
		Telefono:  patient.Telefono,
	}
	if patient.HospitalID != nil {
		h, err := s.hospitals.GetByID(ctx, *patient.HospitalID)
		if err != nil && fault.KindOf(err) != fault.NotFound {
			return nil, err
		}
		result.Hospital = h
	}
	assignment, err := s.assignments.ActiveByPatient(ctx, patient.ID)
	if err != nil {
		return nil, err
	}
	if assignment != nil {
		result.AsignacionActiva = assignment
		doctor, err := s.doctors.GetByID(ctx, assignment.MedicoID)
		if err != nil && fault.KindOf(err) != fault.NotFound {
			return nil, err
		}
		result.MedicoAsignado = doctor
	}
	return result, nil
}

// ---- proximity ----

// NearbyHospitals keeps hospitals within radiusKm of the point, sorted
// by ascending distance with hospital ID breaking ties.
func (s *Service) NearbyHospitals(ctx context.Context, lat, lon, radiusKm float64, limit int) ([]HospitalDistance, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}
	if limit <= 0 {
		limit = nearbyLimit
	}
	hospitals, err := s.hospitals.ListWithCoordinates(ctx)
	if err != nil {
		return nil, err
	}

	var out []HospitalDistance
	for _, h := range hospitals {
		d := geo.Haversine(lat, lon, *h.Latitud, *h.Longitud)
		if d <= radiusKm {
			out = append(out, HospitalDistance{Hospital: *h, DistanciaKm: round2(d)})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DistanciaKm != out[j].DistanciaKm {
			return out[i].DistanciaKm < out[j].DistanciaKm
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UnassignedPatients lists patients without a hospital. With a
// reference point, only patients whose own coordinates fall inside
// radiusKm are returned. Each located patient is annotated with their
// closest hospitals.
func (s *Service) UnassignedPatients(ctx context.Context, p auth.Principal, lat, lon *float64, radiusKm float64) ([]*UnassignedPatient, error) {
	if err := auth.Allow(p, auth.RoleCoordinador, auth.RoleAdmin); err != nil {
		return nil, err
	}
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}
	patients, err := s.patients.Unassigned(ctx)
	if err != nil {
		return nil, err
	}

	var out []*UnassignedPatient
	for _, patient := range patients {
		if lat != nil && lon != nil {
			if !patient.HasCoordinates() {
				continue
			}
			if geo.Haversine(*lat, *lon, *patient.Latitud, *patient.Longitud) > radiusKm {
				continue
			}
		}

		entry := &UnassignedPatient{
			ID:        patient.ID,
			Documento: patient.Documento,
			Nombre:    patient.Nombre,
			Email:     patient.Email,
			Telefono:  patient.Telefono,
			Latitud:   patient.Latitud,
			Longitud:  patient.Longitud,
			Direccion: patient.Direccion,
		}
		if patient.HasCoordinates() {
			// Suggest hospitals in a wider radius than the patient filter.
			nearby, err := s.NearbyHospitals(ctx, *patient.Latitud, *patient.Longitud, 100.0, nearbyLimit)
			if err != nil {
				return nil, err
			}
			entry.HospitalesCercanos = nearby
		}
		out = append(out, entry)
	}
	return out, nil
}

// ---- statistics ----

func (s *Service) HospitalStatistics(ctx context.Context, p auth.Principal, hospitalID int64) (*Statistics, error) {
	if _, err := s.requireHospitalScope(ctx, p, hospitalID); err != nil {
		return nil, err
	}
	return s.statistics(ctx, hospitalID)
}

func (s *Service) statistics(ctx context.Context, hospitalID int64) (*Statistics, error) {
	h, err := s.hospitals.GetByID(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	totalMedicos, err := s.doctorHospital.CountByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	totalPacientes, err := s.patients.CountByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	asignados, err := s.assignments.CountActiveByHospital(ctx, hospitalID)
	if err != nil {
		return nil, err
	}
	hist, err := s.doctorHospital.SpecialtyHistogram(ctx, hospitalID)
	if err != nil {
		return nil, err
	}

	cobertura := 0.0
	if totalPacientes > 0 {
		cobertura = round2(float64(asignados) / float64(totalPacientes) * 100)
	}
	return &Statistics{
		HospitalID:             hospitalID,
		HospitalNombre:         h.Nombre,
		TotalMedicos:           totalMedicos,
		TotalPacientes:         totalPacientes,
		PacientesAsignados:     asignados,
		PacientesSinMedico:     totalPacientes - asignados,
		PorcentajeCobertura:    cobertura,
		MedicosPorEspecialidad: hist,
	}, nil
}

// Dashboard bundles the coordinator's own hospital statistics.
func (s *Service) Dashboard(ctx context.Context, p auth.Principal) (*Dashboard, error) {
	coord, err := s.requireCoordinator(ctx, p)
	if err != nil {
		return nil, err
	}
	if coord.HospitalID == nil {
		return nil, fault.BadRequestf("El coordinador no tiene un hospital asignado")
	}
	stats, err := s.statistics(ctx, *coord.HospitalID)
	if err != nil {
		return nil, err
	}
	h, err := s.hospitals.GetByID(ctx, *coord.HospitalID)
	if err != nil {
		return nil, err
	}
	return &Dashboard{
		Coordinador:         coord,
		Hospital:            h,
		TotalMedicos:        stats.TotalMedicos,
		TotalPacientes:      stats.TotalPacientes,
		PacientesAsignados:  stats.PacientesAsignados,
		PacientesSinAsignar: stats.PacientesSinMedico,
	}, nil
}

// MyHospital returns the coordinator's hospital with its roster.
func (s *Service) MyHospital(ctx context.Context, p auth.Principal) (*HospitalDetail, error) {
	coord, err := s.requireCoordinator(ctx, p)
	if err != nil {
		return nil, err
	}
	if coord.HospitalID == nil {
		return nil, fault.BadRequestf("No tienes un hospital asignado")
	}
	h, err := s.hospitals.GetByID(ctx, *coord.HospitalID)
	if err != nil {
		return nil, err
	}
	doctors, err := s.doctorHospital.DoctorsByHospital(ctx, h.ID, nil)
	if err != nil {
		return nil, err
	}
	count, err := s.patients.CountByHospital(ctx, h.ID)
	if err != nil {
		return nil, err
	}
	return &HospitalDetail{
		Hospital:       *h,
		Coordinadores:  []*identity.Coordinator{coord},
		Medicos:        doctors,
		PacientesCount: count,
	}, nil
}

// MyDoctors lists the coordinator's hospital roster, optionally
// filtered by specialty.
func (s *Service) MyDoctors(ctx context.Context, p auth.Principal, especialidadID *int64) ([]*identity.Doctor, error) {
	coord, err := s.requireCoordinator(ctx, p)
	if err != nil {
		return nil, err
	}
	if coord.HospitalID == nil {
		return nil, fault.BadRequestf("No tienes un hospital asignado")
	}
	return s.doctorHospital.DoctorsByHospital(ctx, *coord.HospitalID, especialidadID)
}

// HospitalPatients lists the patients of the coordinator's hospital.
func (s *Service) HospitalPatients(ctx context.Context, p auth.Principal) ([]*identity.Patient, error) {
	coord, err := s.requireCoordinator(ctx, p)
	if err != nil {
		return nil, err
	}
	if coord.HospitalID == nil {
		return nil, fault.BadRequestf("No tienes un hospital asignado")
	}
	return s.patients.ByHospital(ctx, *coord.HospitalID)
}

// ActiveDoctorFor reports the doctor currently assigned to a patient,
// if any. Used by the messaging gateway to derive conversations.
func (s *Service) ActiveDoctorFor(ctx context.Context, pacienteID int64) (*Assignment, error) {
	return s.assignments.ActiveByPatient(ctx, pacienteID)
}

// ActivePatientsFor reports the patient IDs a doctor currently covers.
func (s *Service) ActivePatientsFor(ctx context.Context, medicoID int64) ([]int64, error) {
	return s.assignments.ActivePatientIDsByDoctor(ctx, medicoID)
}
