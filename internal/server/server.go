package server

import (
	"log/slog"
	"net/http"

	"github.com/Vigno04/Cooplyst-sub000/internal/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"gorm.io/gorm"
)

type Server struct {
	db     *gorm.DB
	cfg    config.Config
	logger *slog.Logger
	tokens *tokenCache
}

func New(conn *gorm.DB, cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		db:     conn,
		cfg:    cfg,
		logger: logger,
		tokens: newTokenCache(),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleBoard)
	r.Get("/health", s.handleHealth)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.Route("/games", func(r chi.Router) {
				r.Get("/", s.handleListGames)
				r.Post("/", s.handleProposeGame)

				r.Route("/{gameID}", func(r chi.Router) {
					r.Get("/", s.handleGetGame)
					r.Post("/votes", s.handleCastVote)
					r.Get("/media", s.handleListMedia)
					r.Post("/media", s.handleAddMedia)
					r.Delete("/media/{mediaID}", s.handleDeleteMedia)
					r.Get("/downloads", s.handleListDownloads)
					r.Post("/downloads", s.handleAddDownload)
					r.Delete("/downloads/{downloadID}", s.handleDeleteDownload)
					r.Put("/runs/{runNumber}/rating", s.handleSubmitRating)

					r.Group(func(r chi.Router) {
						r.Use(s.requireAdmin)
						r.Delete("/", s.handleDeleteGame)
						r.Put("/status", s.handleSetStatus)
						r.Delete("/votes", s.handleResetVotes)
						r.Post("/runs", s.handleStartRun)
						r.Post("/runs/{runNumber}/complete", s.handleCompleteRun)
						r.Delete("/runs/{runNumber}", s.handleDeleteRun)
						r.Post("/players", s.handleAddPlayer)
						r.Delete("/players/{userID}", s.handleRemovePlayer)
						r.Post("/metadata/refresh", s.handleRefreshMetadata)
						r.Put("/metadata/images", s.handlePickImages)
					})
				})
			})

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)
				r.Get("/providers", s.handleGetProviders)
				r.Put("/providers", s.handlePutProviders)
				r.Post("/providers/test", s.handleTestProvider)
				r.Get("/settings", s.handleGetSettings)
				r.Put("/settings", s.handlePutSettings)
			})
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
