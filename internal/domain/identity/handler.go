package identity

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

// RegisterPublicRoutes mounts the endpoints reachable without a token.
func (h *Handler) RegisterPublicRoutes(g *echo.Group) {
	g.POST("/auth/register", h.registerPatient)
	g.POST("/auth/register/paciente", h.registerPatient)
	g.POST("/auth/register/medico", h.registerDoctor)
	g.POST("/auth/login", h.login)
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/auth/me", h.me)

	g.GET("/pacientes", h.listPatients)
	g.GET("/pacientes/:id", h.getPatient)
	g.GET("/medicos", h.listDoctors)
	g.GET("/medicos/:id", h.getDoctor)
	g.GET("/medicos/:id/especialidades", h.doctorSpecialties)

	g.GET("/admins", h.listAdmins)
	g.GET("/admins/:id", h.getAdmin)
	g.POST("/admins", h.createAdmin)
	g.PUT("/admins/:id", h.updateAdmin)
	g.DELETE("/admins/:id", h.deactivateAdmin)
	g.POST("/admins/:id/reactivar", h.reactivateAdmin)
}

func (h *Handler) registerPatient(c echo.Context) error {
	var in RegisterPatientInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	tok, err := h.svc.RegisterPatient(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tok)
}

func (h *Handler) registerDoctor(c echo.Context) error {
	var in RegisterDoctorInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	tok, err := h.svc.RegisterDoctor(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, tok)
}

type loginRequest struct {
	Email    string `json:"email" form:"username"`
	Password string `json:"password" form:"password"`
}

func (h *Handler) login(c echo.Context) error {
	var in loginRequest
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	tok, err := h.svc.Login(c.Request().Context(), in.Email, in.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tok)
}

func (h *Handler) me(c echo.Context) error {
	info, err := h.svc.Me(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, info)
}

func (h *Handler) listPatients(c echo.Context) error {
	params := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), auth.MustPrincipal(c), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, params.Limit, params.Offset))
}

func (h *Handler) getPatient(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	p := auth.MustPrincipal(c)
	// Patients may only read themselves; staff roles may read anyone.
	if p.Role == auth.RolePaciente && p.ID != id {
		return fault.Forbiddenf("No tienes permisos para ver este paciente")
	}
	patient, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patient)
}

func (h *Handler) listDoctors(c echo.Context) error {
	params := pagination.FromContext(c)
	doctors, total, err := h.svc.ListDoctors(c.Request().Context(), params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(doctors, total, params.Limit, params.Offset))
}

func (h *Handler) getDoctor(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	d, err := h.svc.GetDoctor(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) doctorSpecialties(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	names, err := h.svc.DoctorSpecialties(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, names)
}

func (h *Handler) listAdmins(c echo.Context) error {
	includeInactive := c.QueryParam("incluir_inactivos") == "true"
	admins, err := h.svc.ListAdmins(c.Request().Context(), auth.MustPrincipal(c), includeInactive)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, admins)
}

func (h *Handler) getAdmin(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.GetAdmin(c.Request().Context(), auth.MustPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) createAdmin(c echo.Context) error {
	var in AdminInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	a, err := h.svc.CreateAdmin(c.Request().Context(), auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) updateAdmin(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in AdminUpdateInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	a, err := h.svc.UpdateAdmin(c.Request().Context(), auth.MustPrincipal(c), id, in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) deactivateAdmin(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeactivateAdmin(c.Request().Context(), auth.MustPrincipal(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Administrador desactivado exitosamente",
		"id":      id,
	})
}

func (h *Handler) reactivateAdmin(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.ReactivateAdmin(c.Request().Context(), auth.MustPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fault.BadRequestf("Identificador inválido")
	}
	return id, nil
}
