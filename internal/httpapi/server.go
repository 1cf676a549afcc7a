// Package httpapi exposes the translation pipeline, quota usage, history and
// async jobs over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MimeLyc/sentence-sub-translator/internal/auth"
	"github.com/MimeLyc/sentence-sub-translator/internal/history"
	"github.com/MimeLyc/sentence-sub-translator/internal/jobs"
	"github.com/MimeLyc/sentence-sub-translator/internal/quota"
	"github.com/MimeLyc/sentence-sub-translator/internal/service"
)

const defaultMaxUploadBytes = 10 << 20

type translationService interface {
	Translate(ctx context.Context, req service.TranslationRequest) (*service.TranslationResult, error)
	Usage(ctx context.Context, userID string) (quota.Usage, error)
	History(ctx context.Context, userID string, skip, limit int) ([]history.Record, int, error)
}

type Server struct {
	translations translationService
	queue        *jobs.Queue
	jwt          *auth.JWTService

	maxUploadBytes  int64
	corsOrigins     []string
	defaultLanguage string
	streamInterval  time.Duration

	uiEnabled   bool
	uiStaticDir string

	router *chi.Mux
	server *http.Server
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

// WithJobQueue enables the async job routes.
func WithJobQueue(queue *jobs.Queue) Option {
	return func(s *Server) {
		s.queue = queue
	}
}

func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

func WithCORSOrigins(origins []string) Option {
	return func(s *Server) {
		s.corsOrigins = origins
	}
}

// WithDefaultTargetLanguage is used when a request omits target_language.
func WithDefaultTargetLanguage(lang string) Option {
	return func(s *Server) {
		s.defaultLanguage = lang
	}
}

func NewServer(translations translationService, jwtService *auth.JWTService, opts ...Option) *Server {
	s := &Server{
		translations:   translations,
		jwt:            jwtService,
		maxUploadBytes: defaultMaxUploadBytes,
		streamInterval: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(requestLogger)
	r.Use(cors.Handler(corsOptions(s.corsOrigins)))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(s.jwt))

			r.Route("/translation", func(r chi.Router) {
				r.With(bodyLimit(s.maxUploadBytes)).Post("/translate", s.handleTranslate)
				r.Get("/usage", s.handleUsage)
				r.Get("/history", s.handleHistory)

				if s.queue != nil {
					r.With(bodyLimit(s.maxUploadBytes)).Post("/jobs", s.handleCreateJob)
					r.Get("/jobs", s.handleListJobs)
					r.Get("/jobs/stream", s.handleJobStream)
					r.Get("/jobs/{id}", s.handleGetJob)
					r.Get("/jobs/{id}/download", s.handleDownloadJob)
				}
			})
		})
	})

	r.NotFound(s.handleStatic)
	s.router = r
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" || strings.HasPrefix(r.URL.Path, "/api/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
