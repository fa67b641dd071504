package server

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Options configures a Server. Zero values select the in-memory repository,
// the rotating recognizer, the rule assistant and a no-op logger.
type Options struct {
	Repository     Repository
	Recognizer     Recognizer
	Assistant      Assistant
	Logger         *zap.Logger
	Metrics        *Metrics
	AllowedOrigins []string
	// Now stamps new records. Defaults to time.Now.
	Now func() time.Time
}

// Server serves the BubbleMind REST surface.
type Server struct {
	repo       Repository
	recognizer Recognizer
	assistant  Assistant
	logger     *zap.Logger
	metrics    *Metrics
	validate   *validator.Validate
	origins    []string
	now        func() time.Time

	// mu serializes mutations that touch several records.
	mu sync.Mutex
}

// New creates a server from opts.
func New(opts Options) *Server {
	s := &Server{
		repo:       opts.Repository,
		recognizer: opts.Recognizer,
		assistant:  opts.Assistant,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		validate:   validator.New(),
		origins:    opts.AllowedOrigins,
		now:        opts.Now,
	}
	if s.repo == nil {
		s.repo = NewMemoryRepository()
	}
	if s.recognizer == nil {
		s.recognizer = NewRotatingRecognizer()
	}
	if s.assistant == nil {
		s.assistant = RuleAssistant{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.metrics == nil {
		s.metrics = NewMetrics("bubblemind")
	}
	if len(s.origins) == 0 {
		s.origins = []string{"*"}
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// Handler builds the HTTP handler with all routes and middleware.
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))
	router.Use(instrument(s.metrics))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	router.Get("/ping", s.ping)
	router.Handle("/metrics", s.metrics.Handler())

	router.Post("/ocr", s.ocr)
	router.Post("/post", s.createNode)
	router.Post("/delete", s.deleteNode)
	router.Post("/archive", s.archiveNode)
	router.Post("/update", s.updateNode)
	router.Post("/connect", s.connect)
	router.Get("/topics", s.topics)
	router.Get("/solutions", s.solutions)

	router.Route("/agent", func(r chi.Router) {
		r.Post("/chat", s.chat)
		r.Post("/advice", s.advice)
	})

	return router
}
