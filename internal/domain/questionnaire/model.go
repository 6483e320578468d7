package questionnaire

import (
	"encoding/json"
	"time"
)

// Estado values for a questionnaire assignment. Completado, expirado and
// cancelado are terminal.
const (
	EstadoPendiente  = "pendiente"
	EstadoCompletado = "completado"
	EstadoExpirado   = "expirado"
	EstadoCancelado  = "cancelado"
)

// Terminal reports whether an assignment state admits no further
// transitions.
func Terminal(estado string) bool {
	return estado == EstadoCompletado || estado == EstadoExpirado || estado == EstadoCancelado
}

// Questionnaire is a reusable form definition authored by a doctor. The
// question list is stored as an opaque JSON document; the service never
// interprets individual fields.
type Questionnaire struct {
	ID            int64           `json:"id"`
	Tipo          string          `json:"tipo"`
	Titulo        string          `json:"titulo"`
	Descripcion   *string         `json:"descripcion"`
	Preguntas     json.RawMessage `json:"preguntas"`
	CreadorID     *int64          `json:"creador_id"`
	Activo        bool            `json:"activo"`
	Meta          json.RawMessage `json:"meta"`
	FechaCreacion time.Time       `json:"fecha_creacion"`
}

// Assignment hands a questionnaire to one patient. Instance numbers count
// up per (formulario, paciente) pair so the same form can be issued
// repeatedly over a treatment.
type Assignment struct {
	ID              int64           `json:"id"`
	FormularioID    int64           `json:"formulario_id"`
	PacienteID      int64           `json:"paciente_id"`
	AsignadoPor     int64           `json:"asignado_por"`
	Estado          string          `json:"estado"`
	NumeroInstancia int             `json:"numero_instancia"`
	FechaAsignacion time.Time       `json:"fecha_asignacion"`
	FechaExpiracion *time.Time      `json:"fecha_expiracion"`
	FechaCompletado *time.Time      `json:"fecha_completado"`
	DatosExtra      json.RawMessage `json:"datos_extra"`
}

// AssignmentDetail is an assignment joined with the headline fields of
// its questionnaire, shaped for the patient-facing listing.
type AssignmentDetail struct {
	Assignment
	FormularioTitulo      string  `json:"formulario_titulo"`
	FormularioTipo        string  `json:"formulario_tipo"`
	FormularioDescripcion *string `json:"formulario_descripcion"`
}

// Response is a patient's submitted answers for one assignment.
type Response struct {
	ID           int64           `json:"id"`
	PacienteID   int64           `json:"paciente_id"`
	FormularioID int64           `json:"formulario_id"`
	AsignacionID *int64          `json:"asignacion_id"`
	Respuestas   json.RawMessage `json:"respuestas"`
	Timestamp    time.Time       `json:"timestamp"`
}
