package coordination

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
	g.POST("/asignaciones/medico-hospital", h.assignDoctorToHospital)
	g.DELETE("/asignaciones/medico-hospital", h.removeDoctorFromHospital)
	g.POST("/asignaciones/paciente-hospital", h.assignPatientToHospital)
	g.POST("/asignaciones/medico-paciente", h.assignDoctorToPatient)
	g.GET("/asignaciones/paciente/:id", h.activeAssignment)
	g.DELETE("/asignaciones/medico-paciente/:id", h.deactivateAssignment)
	g.GET("/asignaciones/buscar-paciente", h.searchPatients)
	g.GET("/asignaciones/mis-pacientes", h.myPatients)
	g.GET("/asignaciones/pacientes-sin-hospital", h.unassignedPatients)
	g.GET("/asignaciones/medicos-disponibles", h.availableDoctors)
	g.GET("/asignaciones", h.listAssignments)

	g.POST("/coordinadores", h.createCoordinator)
	g.GET("/coordinadores", h.listCoordinators)
	g.GET("/coordinadores/me", h.myProfile)
	g.GET("/coordinadores/me/dashboard", h.dashboard)
	g.GET("/coordinadores/me/hospital", h.myHospital)
	g.GET("/coordinadores/me/medicos", h.myDoctors)
	g.GET("/coordinadores/me/pacientes", h.hospitalPatients)
	g.GET("/coordinadores/:id", h.getCoordinator)
	g.PUT("/coordinadores/:id/hospital", h.assignHospitalToCoordinator)
	g.DELETE("/coordinadores/:id", h.deleteCoordinator)

	g.GET("/hospitales/:id/estadisticas", h.hospitalStatistics)
	g.GET("/hospitales-cercanos", h.nearbyHospitals)
}

type doctorHospitalRequest struct {
	MedicoID   int64 `json:"medico_id"`
	HospitalID int64 `json:"hospital_id"`
}

func (h *Handler) assignDoctorToHospital(c echo.Context) error {
	var in doctorHospitalRequest
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	doctor, err := h.svc.AssignDoctorToHospital(c.Request().Context(), auth.MustPrincipal(c), in.MedicoID, in.HospitalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doctor)
}

func (h *Handler) removeDoctorFromHospital(c echo.Context) error {
	var in doctorHospitalRequest
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	doctor, err := h.svc.RemoveDoctorFromHospital(c.Request().Context(), auth.MustPrincipal(c), in.MedicoID, in.HospitalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Médico removido del hospital exitosamente",
		"medico":  doctor,
	})
}

func (h *Handler) assignPatientToHospital(c echo.Context) error {
	pacienteID, err := queryID(c, "paciente_id")
	if err != nil {
		return err
	}
	hospitalID, err := queryID(c, "hospital_id")
	if err != nil {
		return err
	}
	patient, err := h.svc.AssignPatientToHospital(c.Request().Context(), auth.MustPrincipal(c), pacienteID, hospitalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":  "Paciente asignado al hospital exitosamente",
		"paciente": patient,
	})
}

type doctorPatientRequest struct {
	PacienteID int64   `json:"paciente_id"`
	MedicoID   int64   `json:"medico_id"`
	Notas      *string `json:"notas"`
}

func (h *Handler) assignDoctorToPatient(c echo.Context) error {
	var in doctorPatientRequest
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	assignment, err := h.svc.AssignDoctorToPatient(c.Request().Context(), auth.MustPrincipal(c), in.PacienteID, in.MedicoID, in.Notas)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, assignment)
}

func (h *Handler) activeAssignment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	assignment, err := h.svc.ActiveAssignment(c.Request().Context(), auth.MustPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, assignment)
}

func (h *Handler) deactivateAssignment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	assignment, err := h.svc.DeactivateAssignment(c.Request().Context(), auth.MustPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "Asignación desactivada exitosamente",
		"asignacion": assignment,
	})
}

func (h *Handler) searchPatients(c echo.Context) error {
	query := c.QueryParam("q")
	soloSinHospital := c.QueryParam("solo_sin_hospital") == "true"
	results, err := h.svc.SearchPatients(c.Request().Context(), auth.MustPrincipal(c), query, soloSinHospital)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) myPatients(c echo.Context) error {
	results, err := h.svc.MyPatients(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) unassignedPatients(c echo.Context) error {
	var lat, lon *float64
	if v := c.QueryParam("lat"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fault.BadRequestf("Latitud inválida")
		}
		lat = &f
	}
	if v := c.QueryParam("lon"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fault.BadRequestf("Longitud inválida")
		}
		lon = &f
	}
	radius := DefaultSearchRadiusKm
	if v := c.QueryParam("radio_km"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 1 || f > 200 {
			return fault.BadRequestf("Radio de búsqueda inválido")
		}
		radius = f
	}
	results, err := h.svc.UnassignedPatients(c.Request().Context(), auth.MustPrincipal(c), lat, lon, radius)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, results)
}

func (h *Handler) availableDoctors(c echo.Context) error {
	hospitalID, err := queryID(c, "hospital_id")
	if err != nil {
		return err
	}
	var especialidadID *int64
	if v := c.QueryParam("especialidad_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fault.BadRequestf("Identificador de especialidad inválido")
		}
		especialidadID = &id
	}
	doctors, err := h.svc.AvailableDoctors(c.Request().Context(), auth.MustPrincipal(c), hospitalID, especialidadID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) listAssignments(c echo.Context) error {
	params := pagination.FromContext(c)
	activeOnly := c.QueryParam("solo_activas") == "true"
	assignments, total, err := h.svc.ListAssignments(c.Request().Context(), auth.MustPrincipal(c), activeOnly, params.Limit, params.Offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(assignments, total, params.Limit, params.Offset))
}

func (h *Handler) createCoordinator(c echo.Context) error {
	var in CoordinatorInput
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	coord, err := h.svc.CreateCoordinator(c.Request().Context(), auth.MustPrincipal(c), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, coord)
}

func (h *Handler) listCoordinators(c echo.Context) error {
	coords, err := h.svc.ListCoordinators(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, coords)
}

func (h *Handler) getCoordinator(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	coord, err := h.svc.GetCoordinator(c.Request().Context(), auth.MustPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, coord)
}

type assignHospitalRequest struct {
	HospitalID int64 `json:"hospital_id"`
}

func (h *Handler) assignHospitalToCoordinator(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var in assignHospitalRequest
	if err := c.Bind(&in); err != nil {
		return fault.BadRequestf("Cuerpo de la solicitud inválido")
	}
	coord, err := h.svc.AssignHospitalToCoordinator(c.Request().Context(), auth.MustPrincipal(c), id, in.HospitalID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, coord)
}

func (h *Handler) deleteCoordinator(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteCoordinator(c.Request().Context(), auth.MustPrincipal(c), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Coordinador eliminado exitosamente",
		"id":      id,
	})
}

func (h *Handler) myProfile(c echo.Context) error {
	coord, err := h.svc.CoordinatorProfile(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, coord)
}

func (h *Handler) dashboard(c echo.Context) error {
	d, err := h.svc.Dashboard(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) myHospital(c echo.Context) error {
	detail, err := h.svc.MyHospital(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, detail)
}

func (h *Handler) myDoctors(c echo.Context) error {
	var especialidadID *int64
	if v := c.QueryParam("especialidad_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fault.BadRequestf("Identificador de especialidad inválido")
		}
		especialidadID = &id
	}
	doctors, err := h.svc.MyDoctors(c.Request().Context(), auth.MustPrincipal(c), especialidadID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doctors)
}

func (h *Handler) hospitalPatients(c echo.Context) error {
	patients, err := h.svc.HospitalPatients(c.Request().Context(), auth.MustPrincipal(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, patients)
}

func (h *Handler) hospitalStatistics(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	stats, err := h.svc.HospitalStatistics(c.Request().Context(), auth.MustPrincipal(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, stats)
}

func (h *Handler) nearbyHospitals(c echo.Context) error {
	lat, err := queryFloat(c, "lat")
	if err != nil {
		return err
	}
	lon, err := queryFloat(c, "lon")
	if err != nil {
		return err
	}
	radius := DefaultSearchRadiusKm
	if v := c.QueryParam("radio_km"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			return fault.BadRequestf("Radio de búsqueda inválido")
		}
		radius = f
	}
	limit := nearbyLimit
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fault.BadRequestf("Límite inválido")
		}
		limit = n
	}
	hospitals, err := h.svc.NearbyHospitals(c.Request().Context(), lat, lon, radius, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hospitals)
}

func pathID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fault.BadRequestf("Identificador inválido")
	}
	return id, nil
}

func queryID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.QueryParam(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fault.BadRequestf("Parámetro %s inválido", name)
	}
	return id, nil
}

func queryFloat(c echo.Context, name string) (float64, error) {
	f, err := strconv.ParseFloat(c.QueryParam(name), 64)
	if err != nil {
		return 0, fault.BadRequestf("Parámetro %s inválido", name)
	}
	return f, nil
}
