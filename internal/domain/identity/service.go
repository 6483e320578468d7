package identity

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/redsalud/coordinacion/internal/domain/fault"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/internal/platform/db"
)

// Service is the identity provider: registration, the universal login,
// profile lookup and admin account management.
type Service struct {
	patients     PatientRepository
	doctors      DoctorRepository
	coordinators CoordinatorRepository
	admins       AdminRepository
	hospitals    HospitalDirectory
	specialties  SpecialtyDirectory
	issuer       *auth.TokenIssuer
	tx           db.TxRunner
	log          zerolog.Logger
}

func NewService(
	patients PatientRepository,
	doctors DoctorRepository,
	coordinators CoordinatorRepository,
	admins AdminRepository,
	hospitals HospitalDirectory,
	specialties SpecialtyDirectory,
	issuer *auth.TokenIssuer,
	tx db.TxRunner,
	log zerolog.Logger,
) *Service {
	return &Service{
		patients:     patients,
		doctors:      doctors,
		coordinators: coordinators,
		admins:       admins,
		hospitals:    hospitals,
		specialties:  specialties,
		issuer:       issuer,
		tx:           tx,
		log:          log.With().Str("component", "identity").Logger(),
	}
}

func hashPassword(plain string) (string, error) {
	if len(plain) < 6 {
		return "", fault.BadRequestf("La contraseña debe tener al menos 6 caracteres")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (s *Service) token(id int64, role auth.Role, email, nombre string) (TokenResponse, error) {
	tok, err := s.issuer.Issue(auth.Principal{ID: id, Role: role, Email: email, Name: nombre})
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{AccessToken: tok, TokenType: "bearer"}, nil
}

type RegisterPatientInput struct {
	Documento       string   `json:"documento"`
	Nombre          string   `json:"nombre"`
	FechaNacimiento string   `json:"fecha_nacimiento"`
	Genero          string   `json:"genero"`
	Direccion       *string  `json:"direccion"`
	Email           string   `json:"email"`
	Telefono        *string  `json:"telefono"`
	Latitud         *float64 `json:"latitud"`
	Longitud        *float64 `json:"longitud"`
	Password        string   `json:"password"`
}

func (s *Service) RegisterPatient(ctx context.Context, in RegisterPatientInput) (TokenResponse, error) {
	if in.Documento == "" || in.Nombre == "" || in.Email == "" {
		return TokenResponse{}, fault.BadRequestf("Documento, nombre y email son obligatorios")
	}
	if !ValidGenero(in.Genero) {
		return TokenResponse{}, fault.BadRequestf("Género inválido")
	}
	birth, err := time.Parse("2006-01-02", in.FechaNacimiento)
	if err != nil {
		return TokenResponse{}, fault.BadRequestf("Fecha de nacimiento inválida, se espera YYYY-MM-DD")
	}

	if existing, err := s.patients.GetByEmail(ctx, in.Email); err != nil && fault.KindOf(err) != fault.NotFound {
		return TokenResponse{}, err
	} else if existing != nil {
		return TokenResponse{}, fault.Conflictf("El email ya está registrado")
	}
	if existing, err := s.patients.GetByDocumento(ctx, in.Documento); err != nil && fault.KindOf(err) != fault.NotFound {
		return TokenResponse{}, err
	} else if existing != nil {
		return TokenResponse{}, fault.Conflictf("El documento de identidad ya está registrado")
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return TokenResponse{}, err
	}
	p := &Patient{
		Documento:       in.Documento,
		Nombre:          in.Nombre,
		FechaNacimiento: birth,
		Genero:          in.Genero,
		Direccion:       in.Direccion,
		Email:           strings.ToLower(in.Email),
		Telefono:        in.Telefono,
		Latitud:         in.Latitud,
		Longitud:        in.Longitud,
		HashedPassword:  hashed,
	}
	if err := s.patients.Create(ctx, p); err != nil {
		return TokenResponse{}, err
	}
	s.log.Info().Int64("paciente_id", p.ID).Msg("patient registered")
	return s.token(p.ID, auth.RolePaciente, p.Email, p.Nombre)
}

type RegisterDoctorInput struct {
	Documento       string  `json:"documento"`
	Nombre          string  `json:"nombre"`
	Email           string  `json:"email"`
	Telefono        *string `json:"telefono"`
	Password        string  `json:"password"`
	EspecialidadIDs []int64 `json:"especialidad_ids"`
	HospitalIDs     []int64 `json:"hospital_ids"`
}

func (s *Service) RegisterDoctor(ctx context.Context, in RegisterDoctorInput) (TokenResponse, error) {
	if in.Documento == "" || in.Nombre == "" || in.Email == "" {
		return TokenResponse{}, fault.BadRequestf("Documento, nombre y email son obligatorios")
	}

	if existing, err := s.doctors.GetByEmail(ctx, in.Email); err != nil && fault.KindOf(err) != fault.NotFound {
		return TokenResponse{}, err
	} else if existing != nil {
		return TokenResponse{}, fault.Conflictf("El email ya está registrado")
	}
	// The login path resolves an email across all principal tables, so a
	// doctor may not reuse a patient's email either.
	if existing, err := s.patients.GetByEmail(ctx, in.Email); err != nil && fault.KindOf(err) != fault.NotFound {
		return TokenResponse{}, err
	} else if existing != nil {
		return TokenResponse{}, fault.Conflictf("El email ya está registrado")
	}
	if existing, err := s.doctors.GetByDocumento(ctx, in.Documento); err != nil && fault.KindOf(err) != fault.NotFound {
		return TokenResponse{}, err
	} else if existing != nil {
		return TokenResponse{}, fault.Conflictf("El documento de identidad ya está registrado")
	}

	for _, id := range in.EspecialidadIDs {
		ok, err := s.specialties.ActiveExists(ctx, id)
		if err != nil {
			return TokenResponse{}, err
		}
		if !ok {
			return TokenResponse{}, fault.NotFoundf("Especialidad con ID %d no encontrada o inactiva", id)
		}
	}
	for _, id := range in.HospitalIDs {
		ok, err := s.hospitals.Exists(ctx, id)
		if err != nil {
			return TokenResponse{}, err
		}
		if !ok {
			return TokenResponse{}, fault.NotFoundf("Hospital con ID %d no encontrado", id)
		}
	}

	hashed, err := hashPassword(in.Password)
	if err != nil {
		return TokenResponse{}, err
	}
	d := &Doctor{
		Documento:      in.Documento,
		Nombre:         in.Nombre,
		Email:          strings.ToLower(in.Email),
		Telefono:       in.Telefono,
		HashedPassword: hashed,
	}
	err = s.tx(ctx, func(ctx context.Context) error {
		if err := s.doctors.Create(ctx, d); err != nil {
			return err
		}
		for _, id := range in.EspecialidadIDs {
			if err := s.doctors.LinkSpecialty(ctx, d.ID, id); err != nil {
				return err
			}
		}
		for _, id := range in.HospitalIDs {
			if err := s.doctors.LinkHospital(ctx, d.ID, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return TokenResponse{}, err
	}
	s.log.Info().Int64("medico_id", d.ID).Msg("doctor registered")
	return s.token(d.ID, auth.RoleMedico, d.Email, d.Nombre)
}

type credential struct {
	id     int64
	role   auth.Role
	email  string
	nombre string
	hashed string
}

// Login resolves an email across the patient, doctor, coordinator and
// admin tables, in that order, and verifies the password against the
// first match.
func (s *Service) Login(ctx context.Context, email, password string) (TokenResponse, error) {
	cred, err := s.lookupCredential(ctx, email)
	if err != nil {
		return TokenResponse{}, err
	}
	if cred == nil {
		return TokenResponse{}, fault.Unauthorizedf("Credenciales incorrectas")
	}
	if bcrypt.CompareHashAndPassword([]byte(cred.hashed), []byte(password)) != nil {
		return TokenResponse{}, fault.Unauthorizedf("Credenciales incorrectas")
	}
	return s.token(cred.id, cred.role, cred.email, cred.nombre)
}

func (s *Service) lookupCredential(ctx context.Context, email string) (*credential, error) {
	p, err := s.patients.GetByEmail(ctx, email)
	if err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	}
	if p != nil {
		return &credential{p.ID, auth.RolePaciente, p.Email, p.Nombre, p.HashedPassword}, nil
	}

	d, err := s.doctors.GetByEmail(ctx, email)
	if err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	}
	if d != nil {
		return &credential{d.ID, auth.RoleMedico, d.Email, d.Nombre, d.HashedPassword}, nil
	}

	c, err := s.coordinators.GetByEmail(ctx, email)
	if err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	}
	if c != nil {
		return &credential{c.ID, auth.RoleCoordinador, c.Email, c.Nombre, c.HashedPassword}, nil
	}

	a, err := s.admins.GetByEmail(ctx, email)
	if err != nil && fault.KindOf(err) != fault.NotFound {
		return nil, err
	}
	if a != nil {
		if !a.Activo {
			return nil, fault.Forbiddenf("Cuenta de administrador desactivada. Contacta al sistema.")
		}
		return &credential{a.ID, auth.RoleAdmin, a.Email, a.Nombre, a.HashedPassword}, nil
	}
	return nil, nil
}

// Me returns the authenticated principal's stored profile.
func (s *Service) Me(ctx context.Context, p auth.Principal) (*UserInfo, error) {
	switch p.Role {
	case auth.RolePaciente:
		pat, err := s.patients.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &UserInfo{ID: pat.ID, Email: pat.Email, Nombre: pat.Nombre,
			Rol: string(p.Role), Documento: &pat.Documento, Telefono: pat.Telefono}, nil
	case auth.RoleMedico:
		d, err := s.doctors.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &UserInfo{ID: d.ID, Email: d.Email, Nombre: d.Nombre,
			Rol: string(p.Role), Documento: &d.Documento, Telefono: d.Telefono}, nil
	case auth.RoleCoordinador:
		c, err := s.coordinators.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &UserInfo{ID: c.ID, Email: c.Email, Nombre: c.Nombre,
			Rol: string(p.Role), Documento: &c.Documento}, nil
	case auth.RoleAdmin:
		a, err := s.admins.GetByID(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return &UserInfo{ID: a.ID, Email: a.Email, Nombre: a.Nombre,
			Rol: string(p.Role), Documento: &a.Documento, Telefono: a.Telefono}, nil
	}
	return nil, fault.NotFoundf("Usuario no encontrado")
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, p auth.Principal, limit, offset int) ([]*Patient, int, error) {
	if err := auth.Allow(p, auth.RoleAdmin, auth.RoleCoordinador); err != nil {
		return nil, 0, err
	}
	return s.patients.List(ctx, limit, offset)
}

func (s *Service) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	return s.doctors.GetByID(ctx, id)
}

func (s *Service) ListDoctors(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return s.doctors.List(ctx, limit, offset)
}

func (s *Service) DoctorSpecialties(ctx context.Context, doctorID int64) ([]string, error) {
	if _, err := s.doctors.GetByID(ctx, doctorID); err != nil {
		return nil, err
	}
	return s.doctors.SpecialtyNames(ctx, doctorID)
}
