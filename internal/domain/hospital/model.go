package hospital

// Hospital maps to the hospitales table.
type Hospital struct {
	ID        int64    `db:"id" json:"id"`
	Nombre    string   `db:"nombre" json:"nombre"`
	Codigo    *string  `db:"codigo" json:"codigo,omitempty"`
	Direccion *string  `db:"direccion" json:"direccion,omitempty"`
	Distrito  *string  `db:"distrito" json:"distrito,omitempty"`
	Provincia *string  `db:"provincia" json:"provincia,omitempty"`
	Latitud   *float64 `db:"latitud" json:"latitud,omitempty"`
	Longitud  *float64 `db:"longitud" json:"longitud,omitempty"`
}

// HasCoordinates reports whether the hospital can participate in proximity
// queries.
func (h *Hospital) HasCoordinates() bool {
	return h.Latitud != nil && h.Longitud != nil
}

// References counts rows in other tables still pointing at a hospital.
// A hospital with references cannot be deleted.
type References struct {
	Medicos       int `json:"medicos"`
	Pacientes     int `json:"pacientes"`
	Coordinadores int `json:"coordinadores"`
}

// Any reports whether anything still references the hospital.
func (r References) Any() bool {
	return r.Medicos > 0 || r.Pacientes > 0 || r.Coordinadores > 0
}
