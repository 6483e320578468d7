package identity

import "time"

// Gender values accepted for patients.
const (
	GeneroMasculino = "masculino"
	GeneroFemenino  = "femenino"
	GeneroOtro      = "otro"
)

func ValidGenero(g string) bool {
	switch g {
	case GeneroMasculino, GeneroFemenino, GeneroOtro:
		return true
	}
	return false
}

type Patient struct {
	ID              int64     `db:"id" json:"id"`
	Documento       string    `db:"documento" json:"documento"`
	Nombre          string    `db:"nombre" json:"nombre"`
	FechaNacimiento time.Time `db:"fecha_nacimiento" json:"fecha_nacimiento"`
	Genero          string    `db:"genero" json:"genero"`
	Direccion       *string   `db:"direccion" json:"direccion"`
	Email           string    `db:"email" json:"email"`
	Telefono        *string   `db:"telefono" json:"telefono"`
	Latitud         *float64  `db:"latitud" json:"latitud"`
	Longitud        *float64  `db:"longitud" json:"longitud"`
	HospitalID      *int64    `db:"hospital_id" json:"hospital_id"`
	HashedPassword  string    `db:"hashed_password" json:"-"`
}

func (p *Patient) HasCoordinates() bool {
	return p.Latitud != nil && p.Longitud != nil
}

type Doctor struct {
	ID             int64   `db:"id" json:"id"`
	Documento      string  `db:"documento" json:"documento"`
	Nombre         string  `db:"nombre" json:"nombre"`
	Email          string  `db:"email" json:"email"`
	Telefono       *string `db:"telefono" json:"telefono"`
	HashedPassword string  `db:"hashed_password" json:"-"`
}

type Coordinator struct {
	ID             int64  `db:"id" json:"id"`
	Documento      string `db:"documento" json:"documento"`
	Nombre         string `db:"nombre" json:"nombre"`
	Email          string `db:"email" json:"email"`
	HashedPassword string `db:"hashed_password" json:"-"`
	HospitalID     *int64 `db:"hospital_id" json:"hospital_id"`
}

type Admin struct {
	ID             int64     `db:"id" json:"id"`
	Documento      string    `db:"documento" json:"documento"`
	Nombre         string    `db:"nombre" json:"nombre"`
	Email          string    `db:"email" json:"email"`
	Telefono       *string   `db:"telefono" json:"telefono"`
	HashedPassword string    `db:"hashed_password" json:"-"`
	Activo         bool      `db:"activo" json:"activo"`
	FechaCreacion  time.Time `db:"fecha_creacion" json:"fecha_creacion"`
}

// UserInfo is the profile shape GET /auth/me returns for every role.
type UserInfo struct {
	ID        int64   `json:"id"`
	Email     string  `json:"email"`
	Nombre    string  `json:"nombre"`
	Rol       string  `json:"rol"`
	Documento *string `json:"documento"`
	Telefono  *string `json:"telefono"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}
