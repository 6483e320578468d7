package hospital

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/hospitales", h.list)
	g.GET("/hospitales/:id", h.get)
	g.POST("/hospitales", h.create)
	g.PUT("/hospitales/:id", h.update)
	g.DELETE("/hospitales/:id", h.delete)
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
	id, err := pathID(c)
	if err != nil {
		return err
	}
	hosp, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hosp)
}

func (h *Handler) list(c echo.Context) error {
	params := pagination.FromContext(c)
	hospitals, total, err := h.svc.List(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(hospitals, total, params.Limit, params.Offset))
}

func (h *Handler) update(c echo.Context) error {
	p := auth.MustPrincipal(c)
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in CreateInput
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
	if err := h.svc.Delete(c.Request().Context(), p, id); err != nil {
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
