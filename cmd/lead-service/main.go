package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/leadflow/leadflow-backend/internal/auth/jwt"
	"github.com/leadflow/leadflow-backend/internal/intake/agreement"
	"github.com/leadflow/leadflow-backend/internal/intake/capture"
	"github.com/leadflow/leadflow-backend/internal/intake/events"
	"github.com/leadflow/leadflow-backend/internal/intake/extraction"
	"github.com/leadflow/leadflow-backend/internal/intake/handler"
	"github.com/leadflow/leadflow-backend/internal/intake/repository"
	"github.com/leadflow/leadflow-backend/internal/intake/service"
	"github.com/leadflow/leadflow-backend/internal/intake/storage"
	"github.com/leadflow/leadflow-backend/pkg/config"
	"github.com/leadflow/leadflow-backend/pkg/database"
	"github.com/leadflow/leadflow-backend/pkg/httputil"
	"github.com/leadflow/leadflow-backend/pkg/i18n"
	"github.com/leadflow/leadflow-backend/pkg/logger"
	"github.com/leadflow/leadflow-backend/pkg/messaging"
)

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation("lead-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("lead-service", cfg.Server.Environment)
	log.Info().Msg("starting Lead Service")

	if err := i18n.LoadError(); err != nil {
		log.Fatal().Err(err).Msg("failed to load message catalogs")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Connect to database
	db, err := database.New(ctx, &cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	leadRepo := repository.NewLeadRepository(db)
	if err := leadRepo.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	auditRepo := repository.NewAuditRepository(db)

	// Connect to RabbitMQ
	rmq, err := messaging.New(ctx, &cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	publisher, err := events.NewLeadEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Object storage for lead images
	images, err := storage.NewImageStore(cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create image store")
	}
	if err := images.EnsureBucket(ctx); err != nil {
		log.Fatal().Err(err).Str("bucket", cfg.Storage.Bucket).Msg("failed to prepare bucket")
	}

	extractor, err := extraction.NewFromConfig(cfg.Recognition)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create extraction client")
	}
	log.Info().Str("provider", cfg.Recognition.Provider).Msg("document recognition configured")

	drafts := storage.NewDraftStorage(cfg.Intake.DraftTTL)
	defer drafts.Close()
	go drafts.Run(ctx, cfg.Intake.CleanupInterval)

	creator := service.NewLeadCreator(leadRepo, images, publisher, log)
	intake := service.NewIntakeService(
		drafts,
		cameraFactory(cfg.Camera),
		extractor,
		auditRepo,
		creator,
		cfg.Intake.ExtractionTimeout,
		log,
	)

	renderer, err := agreement.NewRenderer(images)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load agreement template")
	}

	tokens := jwt.NewManager(&cfg.JWT)
	intakeHandler := handler.NewHandler(intake, renderer, cfg.Intake.MaxUploadBytes, log)

	// Create router
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Language", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(i18n.Middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		objects := map[string]string{"status": "healthy"}
		if err := images.Ping(r.Context()); err != nil {
			objects = map[string]string{"status": "unhealthy", "error": err.Error()}
		}
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "lead-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
			"storage":  objects,
			"drafts":   drafts.Len(),
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(tokens.Authenticate)
		intakeHandler.Routes(r)
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := intake.Drain(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("extractions still running at shutdown")
	}
	stop()

	log.Info().Msg("server stopped")
}

func cameraFactory(cfg config.CameraConfig) service.CameraFactory {
	constraints := capture.Constraints{
		FacingMode: cfg.FacingMode,
		Width:      cfg.Width,
		Height:     cfg.Height,
	}
	if cfg.SnapshotURL == "" {
		return func() *capture.Camera {
			return capture.NewCamera(capture.Unavailable, constraints)
		}
	}
	device := capture.NewSnapshotDevice(cfg.SnapshotURL, cfg.Timeout)
	return func() *capture.Camera {
		return capture.NewCamera(device, constraints)
	}
}
