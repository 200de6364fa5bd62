package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"gateway/docs"
	"gateway/internal/backend"
	"gateway/internal/config"
	"gateway/internal/database"
	"gateway/internal/database/migration"
	handlers "gateway/internal/http/handler"
	"gateway/internal/http/middleware"
	"gateway/internal/logging"
	"gateway/internal/notifier"
	"gateway/internal/otel"
	"gateway/internal/repository"
	"gateway/internal/repository/postgres"
	"gateway/internal/service"
	"gateway/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// @title Interception Gateway
// @version 1.0
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New(os.Stdout, logging.Config{})
		bootLog.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logging.New(os.Stdout, logging.Config{
		Level:    cfg.Server.LogLevel,
		Pretty:   cfg.Server.Environment == "development" && os.Getenv("LOG_PRETTY") == "true",
		Location: cfg.Location(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, cfg.Server.ServiceName, logging.Component(log, "otel"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize tracing")
	}

	store, err := newStorage(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Upload.Driver).Msg("failed to initialize document storage")
	}

	// The side-effect journal is optional; without a database results are only logged and counted.
	var (
		db         *sql.DB
		journal    repository.SideEffectRepository
		journalSvc service.SideEffectService
	)
	if cfg.Database.Enabled() {
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := migration.EnsureMigrated(ctx, db, logging.Component(log, "migration"), cfg.Database.Host); err != nil {
			log.Fatal().Err(err).Msg("failed to migrate database")
		}
		repo := postgres.NewSideEffectPostgres(db)
		journal = repo
		journalSvc = service.NewSideEffectService(repo)
	}

	notify, err := notifier.New(cfg.Email, cfg.SMS, logging.Component(log, "notifier"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize notifier")
	}

	caller, err := backend.NewHTTPCaller(cfg.Backend, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize backend caller")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics, err := service.NewMetrics(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register gateway metrics")
	}
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to register http metrics")
	}

	gateway := service.NewGatewayService(service.GatewayDeps{
		Caller:            caller,
		Notifier:          notify,
		Documents:         service.NewDocumentStore(store),
		Journal:           journal,
		Metrics:           metrics,
		Logger:            logging.Component(log, "gateway"),
		SideEffectTimeout: cfg.SideEffectTimeout(),
	})

	docs.SwaggerInfo.Title = cfg.Server.SwaggerTitle

	app := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		DisableStartupMessage: true,
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// Logger sits outside SecurityHeaders, which runs the error handler, so it sees final statuses.
	app.Use(middleware.Logger(logging.Component(log, "http")))
	app.Use(middleware.SecurityHeaders())
	app.Use(promMiddleware.Handler())
	if len(cfg.CORS.AllowedOrigins) > 0 {
		app.Use(cors.New(cors.Config{
			AllowOrigins: strings.Join(cfg.CORS.AllowedOrigins, ","),
			// fiber rejects credentials combined with a wildcard origin
			AllowCredentials: !slices.Contains(cfg.CORS.AllowedOrigins, "*"),
		}))
	}

	deps := handlers.Deps{
		APIPrefix: cfg.Server.APIPrefix,
		Gateway:   gateway,
		Journal:   journalSvc,
		DB:        db,
		Store:     store,
		Gatherer:  reg,
	}
	handlers.RegisterRoutes(app, deps)
	// Everything not claimed above is forwarded unchanged.
	handlers.RegisterForwarding(app, cfg.Backend.BaseURL, cfg.Proxy, logging.Component(log, "proxy"))

	// Operational endpoints live on their own listener.
	admin := fiber.New(fiber.Config{
		ErrorHandler:          handlers.ErrorHandler(),
		DisableStartupMessage: true,
	})
	admin.Use(middleware.RequestID())
	admin.Use(middleware.Logger(logging.Component(log, "admin")))
	handlers.RegisterAdminRoutes(admin, deps)

	addr := ":" + cfg.Server.Port
	adminAddr := ":" + cfg.Server.AdminPort
	serveErr := make(chan error, 2)
	go func() {
		log.Info().Str("event", "server_started").Str("addr", addr).Str("backend", cfg.Backend.BaseURL).Send()
		serveErr <- app.Listen(addr)
	}()
	go func() {
		log.Info().Str("event", "admin_server_started").Str("addr", adminAddr).Send()
		serveErr <- admin.Listen(adminAddr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.Error().Err(err).Msg("failed to start server")
		}
	case <-ctx.Done():
		log.Info().Str("event", "server_stopping").Send()
	}

	if err := admin.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("admin server shutdown")
	}
	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Error().Err(err).Msg("tracer shutdown")
	}
}

func newStorage(cfg *config.AppConfig) (storage.Storage, error) {
	if cfg.Upload.Driver == "minio" {
		return storage.NewMinIO(cfg.MinIO, strings.Trim(cfg.Upload.Root, "/"))
	}
	return storage.NewLocal(cfg.Upload.Root)
}
