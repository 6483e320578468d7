package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/internal/platform/websocket"
)

// Topic returns the hub topic of one doctor-patient conversation.
func Topic(pacienteID, medicoID int64) string {
	return fmt.Sprintf("chat:%d:%d", pacienteID, medicoID)
}

// Service is the chat gateway: it persists messages, fans them out over
// the websocket hub, and answers history and conversation queries.
type Service struct {
	repo        Repository
	assignments AssignmentSource
	names       PatientNames
	hub         *websocket.Hub
	now         func() time.Time
	log         zerolog.Logger
}

func NewService(
	repo Repository,
	assignments AssignmentSource,
	names PatientNames,
	hub *websocket.Hub,
	log zerolog.Logger,
) *Service {
	return &Service{
		repo:        repo,
		assignments: assignments,
		names:       names,
		hub:         hub,
		now:         func() time.Time { return time.Now().UTC() },
		log:         log.With().Str("component", "messaging").Logger(),
	}
}

// remitenteFor maps the requesting principal to its side of the
// conversation, rejecting anyone who is not a participant.
func remitenteFor(p auth.Principal, pacienteID, medicoID int64) (string, error) {
	switch p.Role {
	case auth.RolePaciente:
		if p.ID == pacienteID {
			return RemitentePaciente, nil
		}
	case auth.RoleMedico:
		if p.ID == medicoID {
			return RemitenteMedico, nil
		}
	}
	return "", fault.Forbiddenf("No participas en esta conversación")
}

// canRead allows the two participants plus coordinators and admins.
func canRead(p auth.Principal, pacienteID, medicoID int64) error {
	if p.Role == auth.RoleAdmin || p.Role == auth.RoleCoordinador {
		return nil
	}
	_, err := remitenteFor(p, pacienteID, medicoID)
	return err
}

// Send persists a message and broadcasts it to the conversation topic.
func (s *Service) Send(ctx context.Context, p auth.Principal, pacienteID, medicoID int64, contenido string) (*Message, error) {
	remitente, err := remitenteFor(p, pacienteID, medicoID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(contenido) == "" {
		return nil, fault.BadRequestf("El mensaje no puede estar vacío")
	}

	m := &Message{
		Contenido:  contenido,
		PacienteID: pacienteID,
		MedicoID:   medicoID,
		Remitente:  remitente,
		Timestamp:  s.now(),
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, err
	}

	if data, err := json.Marshal(m); err == nil {
		s.hub.Broadcast(Topic(pacienteID, medicoID), websocket.Event{
			Type:      "mensaje",
			Topic:     Topic(pacienteID, medicoID),
			Timestamp: m.Timestamp,
			Data:      data,
		})
	}
	return m, nil
}

// History returns the conversation oldest first.
func (s *Service) History(ctx context.Context, p auth.Principal, pacienteID, medicoID int64) ([]*Message, error) {
	if err := canRead(p, pacienteID, medicoID); err != nil {
		return nil, err
	}
	return s.repo.History(ctx, pacienteID, medicoID)
}

// MarkRead acknowledges the other side's messages in a conversation.
func (s *Service) MarkRead(ctx context.Context, p auth.Principal, pacienteID, medicoID int64) (int, error) {
	remitente, err := remitenteFor(p, pacienteID, medicoID)
	if err != nil {
		return 0, err
	}
	return s.repo.MarkRead(ctx, pacienteID, medicoID, otherSide(remitente))
}

// UnreadCount counts the other side's unread messages.
func (s *Service) UnreadCount(ctx context.Context, p auth.Principal, pacienteID, medicoID int64) (int, error) {
	remitente, err := remitenteFor(p, pacienteID, medicoID)
	if err != nil {
		return 0, err
	}
	return s.repo.UnreadCount(ctx, pacienteID, medicoID, otherSide(remitente))
}

func otherSide(remitente string) string {
	if remitente == RemitentePaciente {
		return RemitenteMedico
	}
	return RemitentePaciente
}

// Conversations summarizes the requesting doctor's chats: one row per
// actively assigned patient, newest activity first.
func (s *Service) Conversations(ctx context.Context, p auth.Principal) ([]*Conversation, error) {
	if err := auth.Allow(p, auth.RoleMedico); err != nil {
		return nil, err
	}
	ids, err := s.assignments.ActivePatientsFor(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	names, err := s.names.NamesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*Conversation, 0, len(ids))
	for _, pacienteID := range ids {
		last, err := s.repo.Last(ctx, pacienteID, p.ID)
		if err != nil {
			return nil, err
		}
		unread, err := s.repo.UnreadCount(ctx, pacienteID, p.ID, RemitentePaciente)
		if err != nil {
			return nil, err
		}
		conv := &Conversation{
			PacienteID:     pacienteID,
			PacienteNombre: names[pacienteID],
			UltimoMensaje:  last,
			NoLeidos:       unread,
		}
		if last != nil {
			t := last.Timestamp
			conv.UltimaActividad = &t
		}
		out = append(out, conv)
	}

	// Most recent activity first; silent conversations trail.
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].UltimaActividad, out[j].UltimaActividad
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}
