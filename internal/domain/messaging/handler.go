package messaging

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/internal/platform/websocket"
)

var upgrader = gws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect from the frontend origin; token auth is
	// what gates the socket.
	CheckOrigin: func(*http.Request) bool { return true },
}

type Handler struct {
	svc    *Service
	issuer *auth.TokenIssuer
	hub    *websocket.Hub
	log    zerolog.Logger
}

func NewHandler(svc *Service, issuer *auth.TokenIssuer, hub *websocket.Hub, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, issuer: issuer, hub: hub, log: log.With().Str("component", "chat-ws").Logger()}
}

// RegisterRoutes mounts the REST surface behind the auth middleware.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/mensajes/conversaciones", h.conversations)
	g.GET("/mensajes/historial/:paciente_id/:medico_id", h.history)
	g.POST("/mensajes", h.send)
	g.POST("/mensajes/marcar-leido", h.markRead)
	g.GET("/mensajes/no-leidos", h.unread)
}

// RegisterWS mounts the websocket endpoint. It authenticates via a token
// query parameter because browser websocket clients cannot set headers.
func (h *Handler) RegisterWS(e *echo.Echo) {
	e.GET("/ws/chat/:paciente_id/:medico_id", h.chat)
}

type sendRequest struct {
	Contenido  string `json:"contenido"`
	PacienteID int64  `json:"paciente_id"`
	MedicoID   int64  `json:"medico_id"`
}

func (h *Handler) send(c echo.Context) error {
	p := auth.MustPrincipal(c)
	var in sendRequest
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	m, err := h.svc.Send(c.Request().Context(), p, in.PacienteID, in.MedicoID, in.Contenido)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) history(c echo.Context) error {
	p := auth.MustPrincipal(c)
	pacienteID, medicoID, err := conversationParams(c)
	if err != nil {
		return err
	}
	out, err := h.svc.History(c.Request().Context(), p, pacienteID, medicoID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) conversations(c echo.Context) error {
	out, err := h.svc.Conversations(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

type conversationRequest struct {
	PacienteID int64 `json:"paciente_id" query:"paciente_id"`
	MedicoID   int64 `json:"medico_id" query:"medico_id"`
}

func (h *Handler) markRead(c echo.Context) error {
	p := auth.MustPrincipal(c)
	var in conversationRequest
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	n, err := h.svc.MarkRead(c.Request().Context(), p, in.PacienteID, in.MedicoID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"marcados": n})
}

func (h *Handler) unread(c echo.Context) error {
	p := auth.MustPrincipal(c)
	var in conversationRequest
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Parámetros inválidos")
	}
	n, err := h.svc.UnreadCount(c.Request().Context(), p, in.PacienteID, in.MedicoID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"no_leidos": n})
}

// inboundFrame is what clients write on the socket.
type inboundFrame struct {
	Contenido string `json:"contenido"`
}

func (h *Handler) chat(c echo.Context) error {
	p, err := h.issuer.Parse(c.QueryParam("token"))
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
	}
	pacienteID, medicoID, err := conversationParams(c)
	if err != nil {
		return err
	}
	if _, err := remitenteFor(p, pacienteID, medicoID); err != nil {
		return err
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	topic := Topic(pacienteID, medicoID)
	client := &websocket.Client{
		ID:     uuid.NewString(),
		Topics: []string{topic},
		Send:   make(chan []byte, 64),
		Conn:   ws,
	}
	h.hub.Register(client)
	h.log.Info().Str("client_id", client.ID).Str("topic", topic).Msg("chat client connected")

	go func() {
		for data := range client.Send {
			if err := ws.WriteMessage(gws.TextMessage, data); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.hub.Unregister(client)
		ws.Close()
		h.log.Info().Str("client_id", client.ID).Str("topic", topic).Msg("chat client disconnected")
	}()

	ctx := c.Request().Context()
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			return nil
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		// Send persists and broadcasts back on the topic, which echoes
		// the stored message to both sides.
		if _, err := h.svc.Send(ctx, p, pacienteID, medicoID, frame.Contenido); err != nil {
			h.log.Warn().Err(err).Str("client_id", client.ID).Msg("inbound chat message rejected")
		}
	}
}

func conversationParams(c echo.Context) (pacienteID, medicoID int64, err error) {
	pacienteID, err = strconv.ParseInt(c.Param("paciente_id"), 10, 64)
	if err != nil || pacienteID <= 0 {
		return 0, 0, fault.BadRequestf("Identificador de paciente inválido")
	}
	medicoID, err = strconv.ParseInt(c.Param("medico_id"), 10, 64)
	if err != nil || medicoID <= 0 {
		return 0, 0, fault.BadRequestf("Identificador de médico inválido")
	}
	return pacienteID, medicoID, nil
}
