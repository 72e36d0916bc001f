package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/Godfather59/score-app/internal/api/handlers"
	"github.com/Godfather59/score-app/internal/auth"
	"github.com/Godfather59/score-app/internal/models"
	"github.com/Godfather59/score-app/internal/services"
	"github.com/Godfather59/score-app/internal/websocket"
)

// Dependencies holds everything the router needs to build its handlers.
type Dependencies struct {
	Hub       *websocket.Hub
	Tokens    auth.Verifier
	Users     services.UserServiceProvider
	Teams     services.TeamServiceProvider
	Players   services.PlayerServiceProvider
	Matches   services.MatchServiceProvider
	Referees  services.RefereeServiceProvider
	Events    services.EventServiceProvider
	Dashboard services.DashboardServiceProvider

	AllowedOrigins []string
	MaxUploadBytes int64

	// UploadsDir is served at /uploads when logos are stored on local disk.
	UploadsDir string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.RequestIDHandler("request_id", "X-Request-Id"))
	r.Use(middleware.RealIP)
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(deps.UploadsDir))))
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(deps.Users)
	userHandler := handlers.NewUserHandler(deps.Users)
	teamHandler := handlers.NewTeamHandler(deps.Teams, deps.MaxUploadBytes)
	playerHandler := handlers.NewPlayerHandler(deps.Players)
	matchHandler := handlers.NewMatchHandler(deps.Matches)
	refereeHandler := handlers.NewRefereeHandler(deps.Referees)
	eventHandler := handlers.NewEventHandler(deps.Events)
	dashboardHandler := handlers.NewDashboardHandler(deps.Dashboard)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub, deps.Matches, deps.AllowedOrigins)

	authenticate := auth.Authenticate(deps.Tokens)
	staff := auth.RequireRoles(models.RoleAdmin, models.RoleEditor)
	adminOnly := auth.RequireRoles(models.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Get("/me", authHandler.Me)
				r.Put("/password", authHandler.ChangePassword)
			})
		})

		// The websocket handshake cannot carry custom headers from a
		// browser, so the token may also arrive as ?token=.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(deps.Tokens, auth.FromAuthHeader, auth.FromQuery("token")))
			r.Get("/ws/matches", wsHandler.Serve)
			r.Get("/ws/matches/{id}", wsHandler.Serve)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)

			r.Route("/teams", func(r chi.Router) {
				r.Get("/", teamHandler.GetAll)
				r.Get("/search", teamHandler.Search)
				r.Get("/{id}", teamHandler.Get)
				r.With(staff).Post("/", teamHandler.Create)
				r.With(staff).Put("/{id}", teamHandler.Update)
				r.With(staff).Delete("/{id}", teamHandler.Delete)
			})

			r.Route("/players", func(r chi.Router) {
				r.Get("/", playerHandler.GetAll)
				r.Get("/search", playerHandler.Search)
				r.Get("/{id}", playerHandler.Get)
				r.With(staff).Post("/", playerHandler.Create)
				r.With(staff).Put("/{id}", playerHandler.Update)
				r.With(staff).Delete("/{id}", playerHandler.Delete)
			})

			r.Route("/matches", func(r chi.Router) {
				r.Get("/", matchHandler.GetAll)
				r.Get("/{id}", matchHandler.Get)
				r.With(staff).Post("/", matchHandler.Create)
				r.With(staff).Put("/{id}", matchHandler.Update)
				r.With(staff).Delete("/{id}", matchHandler.Delete)
			})

			r.Route("/referees", func(r chi.Router) {
				r.Get("/", refereeHandler.GetAll)
				r.Get("/{id}", refereeHandler.Get)
				r.With(adminOnly).Post("/", refereeHandler.Create)
				r.With(adminOnly).Put("/{id}", refereeHandler.Update)
				r.With(adminOnly).Delete("/{id}", refereeHandler.Delete)
			})

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)

				r.Route("/users", func(r chi.Router) {
					r.Get("/", userHandler.GetAll)
					r.Post("/", userHandler.Create)
					r.Get("/{id}", userHandler.Get)
					r.Put("/{id}", userHandler.Update)
					r.Delete("/{id}", userHandler.Delete)
				})

				r.Get("/events", eventHandler.GetRecent)
				r.Get("/admin/dashboard", dashboardHandler.Get)
			})
		})
	})

	return r
}
