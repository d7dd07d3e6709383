// Package server exposes the stream hub over HTTP with a server-sent events
// feed per session.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/ajujo/teaching-system/internal/logger"
	"github.com/ajujo/teaching-system/internal/persona"
	"github.com/ajujo/teaching-system/internal/progress"
	"github.com/ajujo/teaching-system/internal/stream"
)

// Students loads the students document.
type Students interface {
	Load(ctx context.Context) (*progress.StudentsState, error)
}

type Options struct {
	Hub      *stream.Hub
	Personas *persona.Registry
	Students Students
	Log      *logger.Logger

	// IdleInterval is the gap between idle events on a quiet stream.
	IdleInterval time.Duration
	// AllowOrigins lists browser origins allowed by CORS.
	AllowOrigins []string
	ServiceName  string
}

type Server struct {
	opts   Options
	log    *logger.Logger
	engine *gin.Engine
}

func New(opts Options) *Server {
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = 15 * time.Second
	}
	if len(opts.AllowOrigins) == 0 {
		opts.AllowOrigins = []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"}
	}
	if opts.ServiceName == "" {
		opts.ServiceName = "tutor"
	}
	s := &Server{opts: opts, log: opts.Log.With("component", "http")}
	s.engine = s.router()
	return s
}

func (s *Server) router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(s.opts.ServiceName))
	r.Use(s.requestLog())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  s.opts.AllowOrigins,
		AllowMethods:  []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", "Last-Event-ID"},
		ExposeHeaders: []string{"Content-Type"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", s.health)

	api := r.Group("/api")
	{
		api.GET("/personas", s.listPersonas)
		api.GET("/students", s.listStudents)

		api.POST("/sessions", s.startSession)
		api.GET("/sessions/:id", s.getSession)
		api.POST("/sessions/:id/input", s.submitInput)
		api.DELETE("/sessions/:id", s.endSession)
		api.GET("/sessions/:id/events", s.streamEvents)
	}
	return r
}

// requestLog logs every request at debug level, and server errors at warn.
func (s *Server) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		kv := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.log.Warn("request failed", kv...)
			return
		}
		s.log.Debug("request", kv...)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is done, then drains open requests.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Info("http listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
