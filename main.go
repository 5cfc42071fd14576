package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scribeapp/scribe-be/internal/api"
	"github.com/scribeapp/scribe-be/internal/auth"
	"github.com/scribeapp/scribe-be/internal/config"
	"github.com/scribeapp/scribe-be/internal/database"
	"github.com/scribeapp/scribe-be/internal/logger"
	"github.com/scribeapp/scribe-be/internal/monitoring"
	"github.com/scribeapp/scribe-be/internal/services"
	"github.com/scribeapp/scribe-be/internal/storage"
	"github.com/scribeapp/scribe-be/internal/websocket"
	"github.com/scribeapp/scribe-be/web"
)

func main() {
	logger.Init()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Set up database
	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply database migrations")
	}

	// Set up upload storage
	uploads, err := storage.NewUploadStore(cfg.UploadPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize upload storage")
	}

	// Set up WebSocket Hub
	hub := websocket.NewHub()
	go hub.Run()

	// Set up services
	userService := services.NewUserService(db)
	eventService := services.NewEventService(db)
	postService := services.NewPostService(db, uploads, eventService)
	commentService := services.NewCommentService(db, postService, eventService)

	tokenAuth := auth.New(cfg.JWTSecret, userService)

	// Set up and run the background upload sweeper
	sweeper, err := monitoring.NewSweeper(uploads, postService, cfg.SweepSchedule)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid upload sweep schedule")
	}
	go sweeper.Run()

	// Set up router
	router := api.NewRouter(api.RouterConfig{
		Auth:          tokenAuth,
		Users:         userService,
		Posts:         postService,
		Comments:      commentService,
		Events:        eventService,
		Hub:           hub,
		UploadDir:     cfg.UploadPath,
		AllowedOrigin: cfg.AllowedOrigin,
		Frontend:      web.Handler(),
	})

	// Set up server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: router,
	}

	// Graceful shutdown
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Server starting")
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("ListenAndServe()")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	sweeper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")
}
