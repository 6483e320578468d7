package coordination

import (
	"time"

	"github.com/redsalud/coordinacion/internal/domain/hospital"
	"github.com/redsalud/coordinacion/internal/domain/identity"
)

// Assignment binds a patient to their current responsible doctor. Rows
// are never deleted; replacing a doctor deactivates the previous row.
type Assignment struct {
	ID                 int64      `db:"id" json:"id"`
	PacienteID         int64      `db:"paciente_id" json:"paciente_id"`
	MedicoID           int64      `db:"medico_id" json:"medico_id"`
	Activo             bool       `db:"activo" json:"activo"`
	Notas              *string    `db:"notas" json:"notas"`
	FechaAsignacion    time.Time  `db:"fecha_asignacion" json:"fecha_asignacion"`
	FechaDesactivacion *time.Time `db:"fecha_desactivacion" json:"fecha_desactivacion"`
}

// PatientSearchResult joins a patient with their hospital and currently
// assigned doctor.
type PatientSearchResult struct {
	ID               int64              `json:"id"`
	Documento        string             `json:"documento"`
	Nombre           string             `json:"nombre"`
	Email            string             `json:"email"`
	Telefono         *string            `json:"telefono"`
	Hospital         *hospital.Hospital `json:"hospital"`
	MedicoAsignado   *identity.Doctor   `json:"medico_asignado"`
	AsignacionActiva *Assignment        `json:"asignacion_activa"`
}

// HospitalDistance is a hospital annotated with its great-circle
// distance from a reference point, rounded to two decimals.
type HospitalDistance struct {
	hospital.Hospital
	DistanciaKm float64 `json:"distancia_km"`
}

// UnassignedPatient is a patient without a hospital, annotated with the
// hospitals closest to their recorded location.
type UnassignedPatient struct {
	ID                 int64              `json:"id"`
	Documento          string             `json:"documento"`
	Nombre             string             `json:"nombre"`
	Email              string             `json:"email"`
	Telefono           *string            `json:"telefono"`
	Latitud            *float64           `json:"latitud"`
	Longitud           *float64           `json:"longitud"`
	Direccion          *string            `json:"direccion"`
	HospitalesCercanos []HospitalDistance `json:"hospitales_cercanos"`
}

// Statistics is the coverage report for one hospital.
type Statistics struct {
	HospitalID              int64          `json:"hospital_id"`
	HospitalNombre          string         `json:"hospital_nombre"`
	TotalMedicos            int            `json:"total_medicos"`
	TotalPacientes          int            `json:"total_pacientes"`
	PacientesAsignados      int            `json:"pacientes_asignados"`
	PacientesSinMedico      int            `json:"pacientes_sin_medico"`
	PorcentajeCobertura     float64        `json:"porcentaje_cobertura"`
	MedicosPorEspecialidad  map[string]int `json:"medicos_por_especialidad"`
}

// Dashboard bundles a coordinator's profile with their hospital's
// headline numbers.
type Dashboard struct {
	Coordinador         *identity.Coordinator `json:"coordinador"`
	Hospital            *hospital.Hospital    `json:"hospital"`
	TotalMedicos        int                   `json:"total_medicos"`
	TotalPacientes      int                   `json:"total_pacientes"`
	PacientesAsignados  int                   `json:"pacientes_asignados"`
	PacientesSinAsignar int                   `json:"pacientes_sin_asignar"`
}

// HospitalDetail is a hospital with its roster, as served to its
// coordinator.
type HospitalDetail struct {
	hospital.Hospital
	Coordinadores  []*identity.Coordinator `json:"coordinadores"`
	Medicos        []*identity.Doctor      `json:"medicos"`
	PacientesCount int                     `json:"pacientes_count"`
}
