package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventra/eventra-api/internal/config"
	"github.com/eventra/eventra-api/internal/handlers"
	"github.com/eventra/eventra-api/internal/lifecycle"
	"github.com/eventra/eventra-api/internal/middleware"
	"github.com/eventra/eventra-api/internal/migration"
	"github.com/eventra/eventra-api/internal/notification"
	"github.com/eventra/eventra-api/internal/registry"
	"github.com/eventra/eventra-api/internal/repository"
	"github.com/eventra/eventra-api/internal/repository/memory"
	"github.com/eventra/eventra-api/internal/routes"
	"github.com/eventra/eventra-api/internal/sweeper"
	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"

	_ "github.com/lib/pq" // PostgreSQL driver
)

type application struct {
	config        *config.Config
	logger        zerolog.Logger
	notifications notification.Service

	users            repository.UserRepository
	catalog          repository.CatalogRepository
	orders           repository.OrderRepository
	invitations      repository.InvitationRepository
	guests           repository.GuestRepository
	notificationRepo repository.NotificationRepository
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	app := &application{
		config: cfg,
		logger: logger,
	}

	// An empty database URL selects the in-memory store; useful for local
	// development without a Postgres instance.
	var db *sql.DB
	if cfg.DatabaseURL == "" {
		logger.Warn().Msg("No database URL configured; using in-memory store")
		app.initMemoryRepositories()
	} else {
		var err error
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to connect to the database")
		}
		defer db.Close()
		if err := db.Ping(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to ping database")
		}

		// Run database migrations.
		migration.RunMigrations(cfg.DatabaseURL, logger)

		app.initPostgresRepositories(db)
	}

	app.notifications = notification.NewService(app.notificationRepo, logger)

	// Background expiry sweeps. The admission path re-derives expiry on its
	// own, so the sweeper only keeps stored statuses honest.
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	sw := sweeper.New(app.invitations, cfg.Sweeper.Interval, logger)
	go sw.Start(sweepCtx)

	// Initialize the HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins(cfg.CORSOrigins),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	// Start the HTTP server and handle graceful shutdown.
	app.startServer(corsHandler, stopSweeper, logger)

	logger.Info().Msg("Application terminated.")
}

func (app *application) initPostgresRepositories(db *sql.DB) {
	app.users = repository.NewUserRepository(db)
	app.catalog = repository.NewCatalogRepository(db)
	app.orders = repository.NewOrderRepository(db)
	app.invitations = repository.NewInvitationRepository(db)
	app.guests = repository.NewGuestRepository(db)
	app.notificationRepo = repository.NewNotificationRepository(db)
}

func (app *application) initMemoryRepositories() {
	store := memory.NewStore()
	app.users = store.Users()
	app.catalog = store.Catalog()
	app.orders = store.Orders()
	app.invitations = store.Invitations()
	app.guests = store.Guests()
	app.notificationRepo = store.Notifications()
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	lifecycleService := lifecycle.NewService(app.orders, app.invitations, app.catalog, app.notifications, logger).
		WithValidityFallback(time.Duration(app.config.Invitation.ValidityHours) * time.Hour)
	guestRegistry := registry.New(app.invitations, app.guests, logger)

	authHandler := handlers.NewAuthHandler(app.users, app.config.JWTSecret, logger)
	orderHandler := handlers.NewOrderHandler(lifecycleService, app.orders, app.invitations, logger)
	inviteHandler := handlers.NewInviteHandler(guestRegistry, app.invitations, app.orders, logger)
	paymentHandler := handlers.NewPaymentHandler(lifecycleService, logger)
	adminHandler := handlers.NewAdminHandler(lifecycleService, app.orders, app.invitations, logger)
	catalogHandler := handlers.NewCatalogHandler(app.catalog, logger)
	notificationHandler := handlers.NewNotificationHandler(app.notifications, logger)

	return routes.NewRouter(authHandler, orderHandler, inviteHandler, paymentHandler, adminHandler, catalogHandler, notificationHandler)
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, stopSweeper context.CancelFunc, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	// Channel to listen for server errors
	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// Wait for an interrupt signal or a server error.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	stopSweeper()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
	}
}
