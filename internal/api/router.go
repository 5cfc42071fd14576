package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/scribeapp/scribe-be/internal/api/handlers"
	"github.com/scribeapp/scribe-be/internal/auth"
	"github.com/scribeapp/scribe-be/internal/services"
	"github.com/scribeapp/scribe-be/internal/websocket"
)

// RouterConfig carries everything the router wires together.
type RouterConfig struct {
	Auth          *auth.Auth
	Users         services.UserServiceProvider
	Posts         services.PostServiceProvider
	Comments      services.CommentServiceProvider
	Events        services.EventServiceProvider
	Hub           *websocket.Hub
	UploadDir     string
	AllowedOrigin string
	Frontend      http.Handler
}

// NewRouter creates and configures a new Chi router.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg.Users, cfg.Events, cfg.Auth)
	postHandler := handlers.NewPostHandler(cfg.Posts, cfg.Hub)
	commentHandler := handlers.NewCommentHandler(cfg.Comments, cfg.Hub)
	eventHandler := handlers.NewEventHandler(cfg.Events)
	wsHandler := handlers.NewWebSocketHandler(cfg.Hub)

	requireAuth := cfg.Auth.Middleware()

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Get("/activity", eventHandler.GetRecent)

		// WebSocket connection endpoint
		r.Get("/ws", wsHandler.Serve)

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", postHandler.GetAll)
			r.With(requireAuth).Post("/", postHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.With(requireAuth).Put("/", postHandler.Update)
				r.With(requireAuth).Delete("/", postHandler.Delete)
				r.Get("/comments", commentHandler.GetAllForPost)
				r.With(requireAuth).Post("/comments", commentHandler.Create)
			})
		})
	})

	// Uploaded cover images
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))

	// Single-page frontend
	if cfg.Frontend != nil {
		r.Handle("/*", cfg.Frontend)
	}

	return r
}
