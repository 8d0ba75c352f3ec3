package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/KaramelBytes/mathmatrix/internal/chat"
	"github.com/KaramelBytes/mathmatrix/internal/markup"
	"github.com/KaramelBytes/mathmatrix/internal/metrics"
	"github.com/KaramelBytes/mathmatrix/internal/parser"
)

// Config holds the HTTP surface settings.
type Config struct {
	Addr           string
	MetricsCSV     string
	FeedbackCSV    string
	RecentFeedback int
	CORSOrigins    []string
	SanitizeHTML   bool
}

// Deps are the collaborators a Server routes requests to.
type Deps struct {
	Session  *chat.Session
	Examples chat.ExampleStore
	Loader   *parser.Loader
	Logger   *zap.Logger
}

type Server struct {
	router   *chi.Mux
	cfg      Config
	session  *chat.Session
	examples chat.ExampleStore
	loader   *parser.Loader
	pipeline *markup.Pipeline
	log      *zap.Logger
}

func New(cfg Config, d Deps) *Server {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Examples == nil {
		d.Examples = chat.NewMemoryExampleStore()
	}
	if d.Loader == nil {
		d.Loader = parser.NewLoader(nil, d.Logger)
	}
	if d.Session == nil {
		d.Session = chat.NewSession(chat.Options{Sanitize: cfg.SanitizeHTML, Logger: d.Logger})
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{"*"}
	}
	metrics.Init()

	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		session:  d.Session,
		examples: d.Examples,
		loader:   d.Loader,
		pipeline: markup.NewPipeline(markup.Options{EscapeHTML: cfg.SanitizeHTML}),
		log:      d.Logger,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.health)
	r.Handle("/metrics", metrics.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.dashboard)
		r.Post("/solve", s.solve)
		r.Post("/format", s.format)
		r.Post("/preview", s.preview)
		r.Put("/example", s.putExample)
		r.Get("/example", s.takeExample)
		r.Get("/transcript", s.transcript)
		r.Delete("/transcript", s.clearTranscript)
	})
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("API server starting", zap.String("addr", s.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("API server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				log.Info("HTTP request",
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
