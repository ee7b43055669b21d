package http

import (
	"context"
	"net/http"
	"time"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/sheetshim/pkg/domain/interfaces"
)

// config holds internal HTTP server configuration
type config struct {
	addr         string
	writeTimeout time.Duration
}

// Option is a functional option for Server configuration
type Option func(*config)

// WithAddr sets the server address
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithWriteTimeout bounds the time spent on a whole request, including the pipeline run
func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *config) {
		c.writeTimeout = timeout
	}
}

// Server represents the HTTP server
type Server struct {
	*http.Server
}

// NewServer creates a new HTTP server
func NewServer(
	ctx context.Context,
	workbookUC interfaces.WorkbookUseCase,
	opts ...Option,
) (*Server, error) {
	// Default configuration
	cfg := &config{
		addr:         "localhost:8080",
		writeTimeout: 2 * time.Minute,
	}

	// Apply options
	for _, opt := range opts {
		opt(cfg)
	}

	if workbookUC == nil {
		return nil, goerr.New("workbook use case is required")
	}

	doc, err := loadOpenAPI(ctx)
	if err != nil {
		return nil, err
	}
	specHandler, err := openAPIHandler(doc)
	if err != nil {
		return nil, err
	}

	router := chi.NewRouter()

	// Global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggingMiddleware(ctx))
	router.Use(middleware.Recoverer)
	router.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	router.Use(NoStoreMiddleware)

	router.Get("/heartbeat", handleHeartbeat)
	router.Get("/openapi.json", specHandler)

	workbookHandler := NewWorkbookHandler(workbookUC)
	router.Route("/api", func(r chi.Router) {
		r.Use(AppContextMiddleware)
		r.Get("/webdav/{fileId}", workbookHandler.Handle)
	})

	server := &Server{
		Server: &http.Server{
			Addr:              cfg.addr,
			Handler:           router,
			ReadHeaderTimeout: 15 * time.Second,
			WriteTimeout:      cfg.writeTimeout,
		},
	}

	return server, nil
}
