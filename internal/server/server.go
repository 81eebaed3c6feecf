// Package server provides the HTTP API for the Montero portal.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/montero/internal/config"
	"github.com/hyperjump/montero/internal/directory"
	"github.com/hyperjump/montero/internal/importer"
	"github.com/hyperjump/montero/internal/storage"
	"github.com/hyperjump/montero/pkg/utils"
)

// UserHeader names the acting portal user recorded in case history.
const UserHeader = "X-Portal-User"

// DefaultUser is recorded when a request carries no UserHeader.
const DefaultUser = "unknown user"

// Server is the HTTP server for the portal API.
type Server struct {
	storage   storage.Storage
	directory *directory.Index
	importer  *importer.Importer
	config    *config.Config
	logger    *zap.Logger
	now       func() time.Time
	server    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithDirectory enables name search on /api/usuarios.
func WithDirectory(d *directory.Index) Option {
	return func(s *Server) { s.directory = d }
}

// WithImporter enables workbook uploads on /api/importaciones.
func WithImporter(im *importer.Importer) Option {
	return func(s *Server) { s.importer = im }
}

// WithClock sets the time source used for case dates.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

// NewServer creates a server with the given dependencies.
func NewServer(store storage.Storage, cfg *config.Config, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		storage: store,
		config:  cfg,
		logger:  utils.OrNop(logger),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/status", s.handleStatus)

		r.Get("/usuarios", s.handleListUsuarios)
		r.Get("/usuarios/buscar", s.handleFindUsuario)
		r.Get("/depuraciones/buscar-usuario", s.handleFindCaseUsuario)

		r.Get("/empresas", s.handleListEmpresas)
		r.Get("/empresas/{nit}", s.handleGetEmpresa)

		r.Get("/novedades", s.handleListCases)
		r.Post("/novedades", s.handleCreateCase)
		r.Get("/novedades/{id}", s.handleGetCase)
		r.Put("/novedades/{id}", s.handleUpdateCase)
		r.Delete("/novedades/{id}", s.handleDeleteCase)

		r.Post("/importaciones", s.handleImport)
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
