package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DoctorHospitalPolicy selects who may bind doctors to hospitals. The
// product has not settled this, so it is configuration, not code.
type DoctorHospitalPolicy string

const (
	// PolicyCoordinator allows only the coordinator of the target hospital.
	PolicyCoordinator DoctorHospitalPolicy = "coordinator"
	// PolicyAdmin allows only admins.
	PolicyAdmin DoctorHospitalPolicy = "admin"
)

type Config struct {
	Port                 string  `mapstructure:"PORT"`
	Env                  string  `mapstructure:"ENV"`
	DatabaseURL          string  `mapstructure:"DATABASE_URL"`
	DBMaxConns           int32   `mapstructure:"DB_MAX_CONNS"`
	DBMinConns           int32   `mapstructure:"DB_MIN_CONNS"`
	JWTSecret            string  `mapstructure:"JWT_SECRET"`
	JWTExpireMinutes     int     `mapstructure:"JWT_EXPIRE_MINUTES"`
	DefaultTenant        string  `mapstructure:"DEFAULT_TENANT"`
	CORSOrigins          []string `mapstructure:"CORS_ORIGINS"`
	SearchRadiusKm       float64 `mapstructure:"SEARCH_RADIUS_KM"`
	DoctorHospitalAssign string  `mapstructure:"DOCTOR_HOSPITAL_ASSIGN_POLICY"`
	MigrationsDir        string  `mapstructure:"MIGRATIONS_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_EXPIRE_MINUTES", 60)
	v.SetDefault("DEFAULT_TENANT", "default")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SEARCH_RADIUS_KM", 50.0)
	v.SetDefault("DOCTOR_HOSPITAL_ASSIGN_POLICY", string(PolicyCoordinator))
	v.SetDefault("MIGRATIONS_DIR", "./migrations")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"JWT_SECRET", "JWT_EXPIRE_MINUTES", "DEFAULT_TENANT", "CORS_ORIGINS",
		"SEARCH_RADIUS_KM", "DOCTOR_HOSPITAL_ASSIGN_POLICY", "MIGRATIONS_DIR",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required; refusing to start without token signing configuration")
	}
	switch DoctorHospitalPolicy(c.DoctorHospitalAssign) {
	case PolicyCoordinator, PolicyAdmin:
	default:
		return fmt.Errorf("DOCTOR_HOSPITAL_ASSIGN_POLICY must be %q or %q, got %q",
			PolicyCoordinator, PolicyAdmin, c.DoctorHospitalAssign)
	}
	if c.SearchRadiusKm <= 0 {
		return fmt.Errorf("SEARCH_RADIUS_KM must be positive, got %v", c.SearchRadiusKm)
	}
	return nil
}

// DoctorHospitalPolicyValue returns the parsed assignment policy.
func (c *Config) DoctorHospitalPolicyValue() DoctorHospitalPolicy {
	return DoctorHospitalPolicy(c.DoctorHospitalAssign)
}
