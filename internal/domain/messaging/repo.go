package messaging

import "context"

// Repository persists chat messages.
type Repository interface {
	Create(ctx context.Context, m *Message) error
	// History returns the conversation oldest first.
	History(ctx context.Context, pacienteID, medicoID int64) ([]*Message, error)
	// MarkRead flips every unread message sent BY remitente in the
	// conversation, i.e. the caller acknowledges the other side's
	// messages. Returns the number of rows touched.
	MarkRead(ctx context.Context, pacienteID, medicoID int64, remitente string) (int, error)
	// UnreadCount counts unread messages sent by remitente.
	UnreadCount(ctx context.Context, pacienteID, medicoID int64, remitente string) (int, error)
	// Last returns the newest message of the conversation, nil when the
	// conversation is empty.
	Last(ctx context.Context, pacienteID, medicoID int64) (*Message, error)
}

// AssignmentSource exposes the active doctor-patient bindings messaging
// needs to authorize conversations. Satisfied by the coordination
// service.
type AssignmentSource interface {
	ActivePatientsFor(ctx context.Context, medicoID int64) ([]int64, error)
}

// PatientNames resolves patient display names for conversation listings.
type PatientNames interface {
	NamesByIDs(ctx context.Context, ids []int64) (map[int64]string, error)
}
