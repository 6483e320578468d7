package specialty

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
	g.GET("/especialidades", h.list)
	g.GET("/especialidades/:id", h.get)
	g.POST("/especialidades", h.create)
	g.PUT("/especialidades/:id", h.update)
	g.DELETE("/especialidades/:id", h.deactivate)
}

func (h *Handler) create(c echo.Context) error {
	var in Input
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	sp, err := h.svc.Create(c.Request().Context(), auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sp)
}

func (h *Handler) get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	sp, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) list(c echo.Context) error {
	includeInactive := c.QueryParam("incluir_inactivas") == "true"
	out, err := h.svc.List(c.Request().Context(), auth.MustPrincipal(c), includeInactive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in Input
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	sp, err := h.svc.Update(c.Request().Context(), auth.MustPrincipal(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sp)
}

func (h *Handler) deactivate(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Deactivate(c.Request().Context(), auth.MustPrincipal(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fault.BadRequestf("Identificador inválido")
	}
	return id, nil
}
