package messaging

import "time"

// Remitente values identify which side of the conversation sent a
// message.
const (
	RemitentePaciente = "paciente"
	RemitenteMedico   = "medico"
)

// Message is one chat message between a patient and a doctor. The
// (paciente_id, medico_id) pair identifies the conversation.
type Message struct {
	ID         int64     `json:"id"`
	Contenido  string    `json:"contenido"`
	PacienteID int64     `json:"paciente_id"`
	MedicoID   int64     `json:"medico_id"`
	Remitente  string    `json:"remitente"`
	Timestamp  time.Time `json:"timestamp"`
	Leido      bool      `json:"leido"`
}

// Conversation is a doctor-facing summary of one patient chat.
type Conversation struct {
	PacienteID      int64      `json:"paciente_id"`
	PacienteNombre  string     `json:"paciente_nombre"`
	UltimoMensaje   *Message   `json:"ultimo_mensaje"`
	NoLeidos        int        `json:"no_leidos"`
	UltimaActividad *time.Time `json:"ultima_actividad"`
}
