// Package httpserver assembles the gin engine and its lifecycle.
package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/fieldstock/inventory-api/internal/config"
	"github.com/fieldstock/inventory-api/internal/infrastructure/auth"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/authhandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/rolehandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/handlers/teamhandler"
	"github.com/fieldstock/inventory-api/internal/interfaces/httpserver/middlewares"
	v1 "github.com/fieldstock/inventory-api/internal/interfaces/httpserver/routes/v1"
)

// HttpServer wraps the gin engine with graceful shutdown helpers.
type HttpServer struct {
	cfg      *config.Config
	engine   *gin.Engine
	log      zerolog.Logger
	verifier *auth.CognitoVerifier
}

// New constructs the HTTP server with default middleware and routes.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	verifier *auth.CognitoVerifier,
	gate gin.HandlerFunc,
	tokens *authhandler.TokenHandler,
	roles *rolehandler.RoleHandler,
	teams *teamhandler.TeamHandler,
) *HttpServer {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), middlewares.Metrics())

	routeProvider := v1.NewRoutes(tokens, roles, teams, gate)
	registerCoreRoutes(engine, cfg, routeProvider, verifier)

	return &HttpServer{
		cfg:      cfg,
		engine:   engine,
		log:      log,
		verifier: verifier,
	}
}

// Engine exposes the underlying engine for the Lambda adapter.
func (s *HttpServer) Engine() *gin.Engine {
	return s.engine
}

// Run starts the HTTP listener and handles graceful shutdown via context cancellation.
func (s *HttpServer) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.cfg.Addr(),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr()).Msg("inventory-api HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		s.log.Info().Msg("context cancelled, shutting down HTTP server")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func registerCoreRoutes(engine *gin.Engine, cfg *config.Config, routes *v1.Routes, verifier *auth.CognitoVerifier) {
	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": cfg.ServiceName, "status": "ok"})
	})
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	engine.GET("/readyz", func(c *gin.Context) {
		if verifier == nil || verifier.Ready() {
			c.JSON(http.StatusOK, gin.H{"status": "ready"})
			return
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	routes.Register(engine.Group("/"))
}
