package server

import (
	"context"
	"errors"
	"strings"

	"brevio/internal/pipeline"
	"brevio/internal/queue"
	"brevio/pkg/logger"
	"brevio/pkg/model"
	"brevio/pkg/resilience"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDLocal  = "requestid"
)

// Summarizer runs the summarization pipeline.
type Summarizer interface {
	Summarize(ctx context.Context, url string) (*pipeline.Result, error)
	RecognizerReady() bool
	GeneratorReady() bool
}

// Journal records request status. It never sees summary or transcript text.
type Journal interface {
	CreateRequest(ctx context.Context, req *model.SummaryRequest) error
	UpdateRequest(ctx context.Context, req *model.SummaryRequest) error
	GetRequestByID(ctx context.Context, id string) (*model.SummaryRequest, error)
}

// EventPublisher announces finished requests.
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *queue.SummaryEvent) error
}

// Options configures optional integrations. Nil integrations are disabled.
type Options struct {
	CORSOrigins []string
	BodyLimit   int
	Journal     Journal
	Events      EventPublisher
	Limiter     resilience.Limiter
}

type Server struct {
	app        *fiber.App
	summarizer Summarizer
	journal    Journal
	events     EventPublisher
	limiter    resilience.Limiter
}

// New builds the HTTP server and registers its routes.
func New(summarizer Summarizer, opts Options) *Server {
	s := &Server{
		summarizer: summarizer,
		journal:    opts.Journal,
		events:     opts.Events,
		limiter:    opts.Limiter,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "brevio",
		BodyLimit:             opts.BodyLimit,
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	origins := "*"
	if len(opts.CORSOrigins) > 0 {
		origins = strings.Join(opts.CORSOrigins, ",")
	}

	s.app.Use(recover.New())
	s.app.Use(requestid.New(requestid.Config{
		Header:     requestIDHeader,
		Generator:  uuid.NewString,
		ContextKey: requestIDLocal,
	}))
	s.app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, " + requestIDHeader,
	}))

	s.app.Get("/healthz", s.handleHealth)
	s.app.Post("/summarize", s.rateLimit, s.handleSummarize)
	s.app.Get("/requests/:id", s.handleGetRequest)

	return s
}

// App exposes the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves HTTP on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	logger.Info("HTTP server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown waits for in-flight requests until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := err.Error()

	var fErr *fiber.Error
	if errors.As(err, &fErr) {
		code = fErr.Code
		msg = fErr.Message
	} else {
		logger.Error("Unhandled request error",
			zap.String("path", c.Path()),
			zap.Error(err))
		msg = "An unexpected error occurred: " + msg
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func requestID(c *fiber.Ctx) string {
	id, _ := c.Locals(requestIDLocal).(string)
	normalized := pipeline.NormalizeRequestID(id)
	if normalized != id {
		c.Locals(requestIDLocal, normalized)
		c.Set(requestIDHeader, normalized)
	}
	return normalized
}
