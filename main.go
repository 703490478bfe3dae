// Package main provides the entry point of the rotalink campaign redirect service
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/amirphl/rotalink/app/handlers"
	"github.com/amirphl/rotalink/app/middleware"
	"github.com/amirphl/rotalink/app/router"
	"github.com/amirphl/rotalink/app/services"
	businessflow "github.com/amirphl/rotalink/business_flow"
	"github.com/amirphl/rotalink/config"
	"github.com/amirphl/rotalink/migrations"
	"github.com/amirphl/rotalink/repository"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var rootCmd = &cobra.Command{
	Use:           "rotalink",
	Short:         "Weighted round-robin redirect of campaign visitors to operators",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server (default)",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE:  runMigrate,
}

var createUserCmd = &cobra.Command{
	Use:   "create-user",
	Short: "Create an admin account for the management API",
	RunE:  runCreateUser,
}

func init() {
	createUserCmd.Flags().String("username", "", "admin username")
	createUserCmd.Flags().String("password", "", "admin password")
	_ = createUserCmd.MarkFlagRequired("username")
	_ = createUserCmd.MarkFlagRequired("password")

	rootCmd.AddCommand(serveCmd, migrateCmd, createUserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger shared by every command
func bootstrap() (*config.ProductionConfig, *zap.Logger, error) {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := services.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting rotalink",
		zap.String("environment", cfg.Deployment.Environment),
		zap.String("version", cfg.Deployment.Version),
	)

	app, err := initializeApplication(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	app.router.SetupRoutes()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := app.router.Start(cfg.Server.Address()); err != nil {
			serverErr <- err
		}
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("Server stopped unexpectedly", zap.Error(err))
		app.stop(logger)
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.router.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	app.stop(logger)

	logger.Info("Server stopped")
	return nil
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	defer sqlDB.Close()

	applied, err := migrations.Apply(cmd.Context(), sqlDB)
	if err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}
	if len(applied) == 0 {
		logger.Info("Database schema is up to date")
		return nil
	}
	logger.Info("Applied migrations", zap.Strings("migrations", applied))
	return nil
}

func runCreateUser(cmd *cobra.Command, _ []string) error {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")

	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	flow := businessflow.NewAdminAuthFlow(
		repository.NewAdminRepository(db),
		nil,
		cfg.Security.BcryptCost,
		cfg.Security.PasswordMinLen,
		logger,
	)
	admin, err := flow.CreateAdmin(cmd.Context(), username, password)
	if err != nil {
		var bizErr *businessflow.BusinessError
		if errors.As(err, &bizErr) {
			return fmt.Errorf("%s: %s", bizErr.Code, bizErr.Message)
		}
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Username, admin.UUID)
	return nil
}

// Application holds the running server and the cleanup of its background resources
type Application struct {
	router    router.Router
	stopFuncs []func()
}

func (a *Application) stop(logger *zap.Logger) {
	for i := len(a.stopFuncs) - 1; i >= 0; i-- {
		a.stopFuncs[i]()
	}
	logger.Debug("Background resources released")
}

func initializeDatabase(cfg config.DatabaseConfig, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		TranslateError: true,
		Logger: gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
			SlowThreshold:             cfg.SlowQueryTime,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
	)

	return db, nil
}

func initializeCache(cfg config.CacheConfig, logger *zap.Logger) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis connection established", zap.Int("db", opt.DB))
	return rc, nil
}

func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration, logger *zap.Logger) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(monitorCtx, 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					logger.Warn("Redis healthcheck failed", zap.Error(err))
				}
				c()
			}
		}
	}()
	return cancel
}

func initializeGeoResolver(cfg *config.ProductionConfig, rc *redis.Client, logger *zap.Logger) services.GeoResolver {
	if !cfg.Geo.Enabled {
		return services.NoopGeoResolver{}
	}
	return services.NewIPAPIGeoResolver(&cfg.Geo, cfg.Cache.RedisPrefix, rc, logger)
}

func initializePublisher(cfg *config.EventsConfig, logger *zap.Logger) services.VisitEventPublisher {
	if !cfg.Enabled {
		return services.NoopVisitPublisher{}
	}
	publisher, err := services.NewAMQPVisitPublisher(cfg, logger)
	if err != nil {
		// Routing must not depend on the broker being up.
		logger.Error("Visit events disabled, broker unavailable", zap.Error(err))
		return services.NoopVisitPublisher{}
	}
	return publisher
}

func initializeApplication(ctx context.Context, cfg *config.ProductionConfig, logger *zap.Logger) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	stopFuncs = append(stopFuncs, func() { _ = sqlDB.Close() })

	rc, err := initializeCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	checks := map[string]router.HealthCheck{
		"database": sqlDB.PingContext,
	}
	if rc != nil {
		stopFuncs = append(stopFuncs,
			func() { _ = rc.Close() },
			startCacheHealthMonitor(ctx, rc, cfg.Cache.HealthInterval, logger),
		)
		checks["cache"] = func(ctx context.Context) error { return rc.Ping(ctx).Err() }
	}

	publisher := initializePublisher(&cfg.Events, logger)
	stopFuncs = append(stopFuncs, func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("Failed to close visit publisher", zap.Error(err))
		}
	})

	geo := initializeGeoResolver(cfg, rc, logger)

	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	logger.Info("Token service initialized", zap.String("issuer", cfg.JWT.Issuer), zap.String("audience", cfg.JWT.Audience))

	adminRepo := repository.NewAdminRepository(db)
	campaignRepo := repository.NewCampaignRepository(db)
	operatorRepo := repository.NewOperatorRepository(db)
	assignmentRepo := repository.NewCampaignOperatorRepository(db)
	visitRepo := repository.NewVisitRepository(db)
	tx := repository.NewTransactor(db)

	routeFlow := businessflow.NewCampaignRouteFlow(assignmentRepo, tx, geo, publisher, &cfg.Routing, logger)
	campaignFlow := businessflow.NewCampaignFlow(campaignRepo, operatorRepo, assignmentRepo, tx, logger)
	operatorFlow := businessflow.NewOperatorFlow(operatorRepo, assignmentRepo, tx, logger)
	reportFlow := businessflow.NewReportFlow(campaignRepo, operatorRepo, assignmentRepo, visitRepo, rc, &cfg.Cache, &cfg.Routing, logger)
	adminAuthFlow := businessflow.NewAdminAuthFlow(adminRepo, tokenService, cfg.Security.BcryptCost, cfg.Security.PasswordMinLen, logger)

	v := handlers.NewValidator()
	appRouter := router.NewFiberRouter(cfg, router.Handlers{
		Redirect: handlers.NewRedirectHandler(routeFlow, v, logger),
		Admin:    handlers.NewAdminHandler(adminAuthFlow, v, logger),
		Operator: handlers.NewOperatorHandler(operatorFlow, v, logger),
		Campaign: handlers.NewCampaignHandler(campaignFlow, v, logger),
		Report:   handlers.NewReportHandler(reportFlow, v, logger),
	}, middleware.NewAuthMiddleware(tokenService), checks, logger)

	return &Application{
		router:    appRouter,
		stopFuncs: stopFuncs,
	}, nil
}
