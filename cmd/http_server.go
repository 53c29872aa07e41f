package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/santerec/dep-backend/internal"
	"github.com/santerec/dep-backend/internal/access"
	"github.com/santerec/dep-backend/internal/audit"
	auditPostgres "github.com/santerec/dep-backend/internal/audit/postgres"
	"github.com/santerec/dep-backend/internal/auth"
	"github.com/santerec/dep-backend/internal/consent"
	consentPostgres "github.com/santerec/dep-backend/internal/consent/postgres"
	"github.com/santerec/dep-backend/internal/core/events"
	"github.com/santerec/dep-backend/internal/records"
	recordsPostgres "github.com/santerec/dep-backend/internal/records/postgres"
	"github.com/santerec/dep-backend/internal/transport/rest"
	"github.com/santerec/dep-backend/internal/user"
	userPostgres "github.com/santerec/dep-backend/internal/user/postgres"
	"github.com/santerec/dep-backend/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config *internal.Config
	DB     *sqlx.DB
	GormDB *gorm.DB
	Router *chi.Mux
	Logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	setupRoutes(deps)

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.Router,
		ReadTimeout:  deps.Config.Server.ReadTimeout,
		WriteTimeout: deps.Config.Server.WriteTimeout,
		IdleTimeout:  deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := deps.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func setupRoutes(deps *Dependencies) {
	lg := deps.Logger
	cfg := deps.Config

	bus := events.NewEventBus(lg)

	auditRepo := auditPostgres.NewAuditRepository(deps.GormDB)
	recorder := audit.NewRecorder(bus, auditRepo, lg)
	auditHandler := audit.NewHandler(auditRepo)

	userRepo := userPostgres.NewUserRepository(deps.GormDB)
	userService := user.NewService(userRepo, recorder, lg, cfg.Security.BCryptCost)
	userHandler := user.NewHandler(userService)

	tokenGen := auth.NewJWTTokenGenerator(
		cfg.Security.AccessTokenSecret,
		cfg.Security.RefreshTokenSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(userService, tokenGen, recorder)
	authHandler := auth.NewHandler(authService)
	rbac := auth.NewRoleAuthorization(lg)

	consentRepo := consentPostgres.NewConsentRepository(deps.GormDB)
	consentService := consent.NewService(consentRepo, userService, recorder, lg)
	consentHandler := consent.NewHandler(consentService)

	engine := access.NewEngine(consentService, recorder, lg)

	recordsRepo := recordsPostgres.NewRecordsRepository(deps.GormDB)
	recordsService := records.NewService(recordsRepo, engine, userService, recorder, lg)
	recordsHandler := records.NewHandler(recordsService)

	rest.RegisterAllRoutes(
		deps.Router, deps.DB.DB,
		authHandler, rbac,
		userHandler, consentHandler, recordsHandler, auditHandler,
		lg,
	)
}

func initializeDependencies() (*Dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize orm: %w", err)
	}

	return &Dependencies{
		Config: config,
		Logger: logger.LoggerWrapper(),
		DB:     db,
		GormDB: gormDB,
		Router: chi.NewRouter(),
	}, nil
}

// initDB opens the pgx stdlib connection shared by the ORM and the health
// check.
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
