package specialty

// Specialty is a medical specialty doctors can be tagged with.
// Deactivated specialties stay on record but are hidden from listings
// and cannot be attached to new doctors.
type Specialty struct {
	ID          int64   `db:"id" json:"id"`
	Nombre      string  `db:"nombre" json:"nombre"`
	Descripcion *string `db:"descripcion" json:"descripcion"`
	Activo      bool    `db:"activo" json:"activo"`
}
