package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/redsalud/coordinacion/internal/config"
	"github.com/redsalud/coordinacion/internal/domain/coordination"
	"github.com/redsalud/coordinacion/internal/domain/hospital"
	"github.com/redsalud/coordinacion/internal/domain/identity"
	"github.com/redsalud/coordinacion/internal/domain/messaging"
	"github.com/redsalud/coordinacion/internal/domain/questionnaire"
	"github.com/redsalud/coordinacion/internal/domain/specialty"
	"github.com/redsalud/coordinacion/internal/platform/auth"
	"github.com/redsalud/coordinacion/internal/platform/db"
	"github.com/redsalud/coordinacion/internal/platform/middleware"
	"github.com/redsalud/coordinacion/internal/platform/websocket"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coordinacion-server",
		Short: "Healthcare coordination API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tenantCmd())
	rootCmd.AddCommand(adminCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the coordination API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "tenant_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func tenantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a tenant schema and run migrations on it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating tenant schema: tenant_%s\n", name)
			if err := db.CreateTenantSchema(ctx, pool, name, cfg.MigrationsDir); err != nil {
				return err
			}
			fmt.Println("Tenant created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Tenant identifier (alphanumeric)")
	cmd.AddCommand(createCmd)
	return cmd
}

// adminCmd bootstraps the first admin account. Everything after that goes
// through the API.
func adminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			documento, _ := cmd.Flags().GetString("documento")
			nombre, _ := cmd.Flags().GetString("nombre")
			email, _ := cmd.Flags().GetString("email")
			password, _ := cmd.Flags().GetString("password")
			if documento == "" || nombre == "" || email == "" || password == "" {
				return fmt.Errorf("--documento, --nombre, --email and --password are required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
			svc := identityService(pool, cfg, logger)

			a, err := svc.BootstrapAdmin(ctx, identity.AdminInput{
				Documento: documento,
				Nombre:    nombre,
				Email:     email,
				Password:  password,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Admin created: id=%d email=%s\n", a.ID, a.Email)
			return nil
		},
	}
	createCmd.Flags().String("documento", "", "Identity document")
	createCmd.Flags().String("nombre", "", "Full name")
	createCmd.Flags().String("email", "", "Email address")
	createCmd.Flags().String("password", "", "Password (at least 6 characters)")
	cmd.AddCommand(createCmd)
	return cmd
}

func identityService(pool *pgxpool.Pool, cfg *config.Config, logger zerolog.Logger) *identity.Service {
	issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpireMinutes)*time.Minute)
	return identity.NewService(
		identity.NewPatientRepo(pool),
		identity.NewDoctorRepo(pool),
		identity.NewCoordinatorRepo(pool),
		identity.NewAdminRepo(pool),
		identity.NewHospitalDirectory(pool),
		identity.NewSpecialtyDirectory(pool),
		issuer,
		db.RunnerFromPool(pool),
		logger,
	)
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	issuer := auth.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.JWTExpireMinutes)*time.Minute)
	runner := db.RunnerFromPool(pool)
	hub := websocket.NewHub()

	identitySvc := identityService(pool, cfg, logger)
	hospitalSvc := hospital.NewService(hospital.NewRepo(pool), logger)
	specialtySvc := specialty.NewService(specialty.NewRepo(pool), logger)
	coordinationSvc := coordination.NewService(
		coordination.NewAssignmentRepo(pool),
		coordination.NewDoctorHospitalRepo(pool),
		coordination.NewCoordinatorStore(pool),
		coordination.NewPatientStore(pool),
		identity.NewDoctorRepo(pool),
		hospital.NewRepo(pool),
		cfg.DoctorHospitalPolicyValue(),
		runner,
		logger,
	)
	questionnaireSvc := questionnaire.NewService(
		questionnaire.NewRepo(pool),
		questionnaire.NewAssignmentRepo(pool),
		questionnaire.NewResponseRepo(pool),
		questionnaire.NewPatientDirectory(pool),
		runner,
		logger,
	)
	messagingSvc := messaging.NewService(
		messaging.NewRepo(pool),
		coordinationSvc,
		messaging.NewPatientNames(pool),
		hub,
		logger,
	)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler(logger)

	e.Use(middleware.Recovery(logger))
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "version": "0.1.0"})
	})
	e.GET("/health/db", db.HealthHandler(pool))

	tenant := db.TenantMiddleware(pool, cfg.DefaultTenant)

	public := e.Group("", tenant)
	protected := e.Group("", tenant, auth.Middleware(issuer))

	identityHandler := identity.NewHandler(identitySvc)
	identityHandler.RegisterPublicRoutes(public)
	identityHandler.RegisterRoutes(protected)

	hospital.NewHandler(hospitalSvc).RegisterRoutes(protected)
	specialty.NewHandler(specialtySvc).RegisterRoutes(protected)
	coordination.NewHandler(coordinationSvc).RegisterRoutes(protected)
	questionnaire.NewHandler(questionnaireSvc).RegisterRoutes(protected)

	messagingHandler := messaging.NewHandler(messagingSvc, issuer, hub, logger)
	messagingHandler.RegisterRoutes(protected)
	// The websocket route authenticates via query token and runs outside
	// the tenant middleware: pinning a pooled connection for the lifetime
	// of a socket would starve the pool.
	messagingHandler.RegisterWS(e)

	// Start
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
