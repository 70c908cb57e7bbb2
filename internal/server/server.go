package server

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/medilabel-reader/internal/imaging"
	"github.com/ironsheep/medilabel-reader/internal/labels"
	"github.com/ironsheep/medilabel-reader/internal/pipeline"
)

// LabelService runs the label pipeline for one upload.
type LabelService interface {
	Analyze(ctx context.Context, data []byte) (*pipeline.Analysis, error)
	Extract(ctx context.Context, data []byte) (*pipeline.Extraction, error)
	Annotate(ctx context.Context, data []byte) (*imaging.AnnotateResult, error)
	Profile() labels.Profile
}

// EngineInfo describes the recognition engine for GET /api/v1/ocr.
type EngineInfo interface {
	Version(ctx context.Context) (string, error)
	Languages() string
	Workers() int
}

// Server is the HTTP front end of the label reader.
type Server struct {
	app     *fiber.App
	service LabelService
	engine  EngineInfo
	log     logrus.FieldLogger

	bodyLimit  int
	rateLimit  float64
	rateBurst  int
	llmBackend string
	version    string
}

// ServerOption configures a Server.
type ServerOption func(*Server) error

// WithService sets the label pipeline. It is required.
func WithService(service LabelService) ServerOption {
	return func(s *Server) error {
		if service == nil {
			return errors.New("label service is nil")
		}
		s.service = service
		return nil
	}
}

// WithEngineInfo sets the recognition engine reported by GET /api/v1/ocr.
func WithEngineInfo(engine EngineInfo) ServerOption {
	return func(s *Server) error {
		s.engine = engine
		return nil
	}
}

// WithLogger sets the logger.
func WithLogger(log logrus.FieldLogger) ServerOption {
	return func(s *Server) error {
		if log == nil {
			return errors.New("logger is nil")
		}
		s.log = log
		return nil
	}
}

// WithBodyLimit sets the maximum request body size in bytes.
func WithBodyLimit(n int) ServerOption {
	return func(s *Server) error {
		if n <= 0 {
			return errors.New("body limit must be positive")
		}
		s.bodyLimit = n
		return nil
	}
}

// WithRateLimit limits label requests per client IP. A non-positive rps
// disables the limit.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) error {
		s.rateLimit = rps
		s.rateBurst = burst
		return nil
	}
}

// WithLLMBackend sets the language model name reported by GET /api/v1/ocr.
func WithLLMBackend(name string) ServerOption {
	return func(s *Server) error {
		s.llmBackend = name
		return nil
	}
}

// WithVersion sets the version reported by the health route.
func WithVersion(version string) ServerOption {
	return func(s *Server) error {
		s.version = version
		return nil
	}
}

// New creates a server and registers its routes.
func New(options ...ServerOption) (*Server, error) {
	s := &Server{
		bodyLimit: 10 * 1024 * 1024,
		log:       discardLogger(),
	}
	for _, opt := range options {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.service == nil {
		return nil, errors.New("label service is required")
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "medilabel-reader",
		BodyLimit:             s.bodyLimit,
		JSONEncoder:           jsoniter.Marshal,
		JSONDecoder:           jsoniter.Unmarshal,
		ErrorHandler:          s.errorHandler,
		DisableStartupMessage: true,
	})
	s.routes()
	return s, nil
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) routes() {
	s.app.Use(requestIDMiddleware())
	s.app.Use(loggerMiddleware(s.log))

	s.app.Get("/", s.handleHealth)

	api := s.app.Group("/api/v1")
	api.Get("/ocr", s.handleOCRInfo)

	group := api.Group("/labels")
	if s.rateLimit > 0 {
		group.Use(newRateLimiter(s.rateLimit, s.rateBurst).middleware())
	}
	group.Post("/analyze", s.handleAnalyze)
	group.Post("/extract", s.handleExtract)
	group.Post("/annotate", s.handleAnnotate)
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.log.WithField("addr", addr).Info("server listening")
	return s.app.Listen(addr)
}

// Shutdown stops accepting requests and waits up to timeout for in-flight
// requests to finish.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.app.ShutdownWithTimeout(timeout)
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
