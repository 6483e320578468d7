package questionnaire

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/formularios", h.list)
	g.POST("/formularios", h.create)
	g.GET("/formularios/mis-asignaciones", h.myAssignments)
	g.POST("/formularios/asignaciones/:id/responder", h.respond)
	g.POST("/formularios/asignaciones/:id/cancelar", h.cancel)
	g.GET("/formularios/asignaciones/:id/respuesta", h.response)
	g.GET("/formularios/:id", h.get)
	g.PUT("/formularios/:id", h.update)
	g.DELETE("/formularios/:id", h.delete)
	g.POST("/formularios/:id/asignaciones", h.assign)
	g.GET("/formularios/:id/asignaciones", h.assignments)
}

func (h *Handler) list(c echo.Context) error {
	p := auth.MustPrincipal(c)
	soloActivos := c.QueryParam("solo_activos") != "false"
	out, err := h.svc.List(c.Request().Context(), p, soloActivos)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) create(c echo.Context) error {
	p := auth.MustPrincipal(c)
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	created, err := h.svc.Create(c.Request().Context(), p, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}

func (h *Handler) get(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	q, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, q)
}

func (h *Handler) update(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	updated, err := h.svc.Update(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) delete(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), p, id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Formulario desactivado", "id": id})
}

func (h *Handler) assign(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in AssignInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	a, err := h.svc.Assign(c.Request().Context(), p, id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) assignments(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	out, err := h.svc.Assignments(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) myAssignments(c echo.Context) error {
	p := auth.MustPrincipal(c)
	var estado *string
	if v := c.QueryParam("estado"); v != "" {
		estado = &v
	}
	out, err := h.svc.MyAssignments(c.Request().Context(), p, estado)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) respond(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in SubmitInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	if _, err := h.svc.SubmitResponse(c.Request().Context(), p, id, in); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Respuesta guardada exitosamente"})
}

func (h *Handler) cancel(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.Cancel(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) response(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	resp, err := h.svc.ResponseFor(c.Request().Context(), p, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fault.BadRequestf("Identificador inválido")
	}
	return id, nil
}
