package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Godfather59/score-app/internal/api"
	"github.com/Godfather59/score-app/internal/auth"
	"github.com/Godfather59/score-app/internal/config"
	"github.com/Godfather59/score-app/internal/database"
	"github.com/Godfather59/score-app/internal/logger"
	"github.com/Godfather59/score-app/internal/messaging"
	"github.com/Godfather59/score-app/internal/monitoring"
	"github.com/Godfather59/score-app/internal/services"
	"github.com/Godfather59/score-app/internal/storage"
	"github.com/Godfather59/score-app/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.Init(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().Stringer("config", cfg).Msg("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up database
	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.MaxOpenConns)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up logo storage
	var (
		store      storage.Service
		uploadsDir string
	)
	switch cfg.Storage.Driver {
	case "s3":
		store, err = storage.NewS3Service(ctx, storage.S3Options{
			Bucket:   cfg.Storage.Bucket,
			Region:   cfg.Storage.Region,
			Endpoint: cfg.Storage.Endpoint,
			BaseURL:  cfg.Storage.PublicBaseURL,
		})
	default:
		var local *storage.LocalService
		local, err = storage.NewLocalService(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
		if local != nil {
			store, uploadsDir = local, local.Root()
		}
	}
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Storage.Driver).Msg("Failed to initialize storage")
	}

	// Set up event forwarding
	var publisher messaging.Publisher = messaging.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = messaging.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("Forwarding events to Kafka")
	}
	defer publisher.Close()

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	loc, err := time.LoadLocation(cfg.Jobs.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load timezone")
	}

	// Set up services
	hasher := auth.NewPasswordHasher(cfg.Auth.BcryptCost)
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	eventService := services.NewEventService(db, publisher)
	userService := services.NewUserService(db, hasher, tokens, eventService)
	teamService := services.NewTeamService(db, store, eventService)
	playerService := services.NewPlayerService(db, eventService)
	refereeService := services.NewRefereeService(db, eventService)
	matchService := services.NewMatchService(db, store, hub, eventService, loc)

	if cfg.Auth.Admin.Username != "" {
		created, err := userService.EnsureAdmin(ctx, cfg.Auth.Admin.Username, cfg.Auth.Admin.Email, cfg.Auth.Admin.Password)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap admin account")
		}
		if created {
			log.Info().Str("username", cfg.Auth.Admin.Username).Msg("Created admin account")
		}
	}

	// Set up and run the background host sampler
	sampler := monitoring.NewStatSampler(eventService, cfg.Monitoring.SampleInterval, cfg.Monitoring.CPUAlertPct)
	go sampler.Run()

	// Set up and run the background scheduler
	scheduler := monitoring.NewScheduler(matchService, eventService, monitoring.SchedulerConfig{
		MatchStatusSpec:  cfg.Jobs.MatchStatusSpec,
		MatchDuration:    cfg.Jobs.MatchDuration,
		EventPruningSpec: cfg.Jobs.EventPruningSpec,
		EventRetention:   cfg.Jobs.EventRetention,
	})
	if err := scheduler.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	dashboardService := services.NewDashboardService(db, matchService, sampler, hub)

	// Set up router
	router := api.NewRouter(api.Dependencies{
		Hub:            hub,
		Tokens:         tokens,
		Users:          userService,
		Teams:          teamService,
		Players:        playerService,
		Matches:        matchService,
		Referees:       refereeService,
		Events:         eventService,
		Dashboard:      dashboardService,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		UploadsDir:     uploadsDir,
	})

	// Set up server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down server...")
	case err := <-serverErr:
		log.Error().Err(err).Msg("Server failed")
	}

	sampler.Stop()
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
