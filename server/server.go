// Package server assembles the HTTP server and its collaborators.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/coverline/coverline/internal/profile"
	"github.com/coverline/coverline/plugin/ai"
	"github.com/coverline/coverline/plugin/guardrail"
	"github.com/coverline/coverline/plugin/nlu"
	"github.com/coverline/coverline/plugin/registry"
	"github.com/coverline/coverline/server/dialog"
	"github.com/coverline/coverline/server/retrieval"
	"github.com/coverline/coverline/server/router/apiv1"
	"github.com/coverline/coverline/server/session"
)

// Server is the top-level HTTP server.
type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	store      session.Store
	sweeper    *session.Sweeper
}

// NewServer wires every component from the profile.
func NewServer(_ context.Context, p *profile.Profile) (*Server, error) {
	reg, err := registry.Load(p.IntentConfigPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load intent configuration")
	}

	chat := ai.NewProvider(&ai.Config{
		BaseURL:    p.NLUBaseURL,
		APIKey:     p.NLUAPIKey,
		Model:      p.NLUModel,
		MaxRetries: p.NLUMaxRetries,
		Timeout:    p.NLUTimeout,
		RateLimit:  p.NLURateLimit,
	})

	if p.DynamicQuestions {
		reg.SetQuestionFunc(registry.DynamicQuestion(chat))
	} else {
		reg.SetQuestionFunc(registry.StaticQuestion())
	}

	store := session.NewMemoryStore(p.SessionTTL)

	searchClient := retrieval.NewSearchClient(retrieval.SearchConfig{
		BaseURL: p.SearchBaseURL,
		APIKey:  p.SearchAPIKey,
		Timeout: p.SearchTimeout,
	})
	retriever := retrieval.NewService(searchClient, chat, retrieval.DefaultMaxConcurrent)

	extractor := nlu.NewExtractor(chat, reg)
	orchestrator := dialog.NewOrchestrator(
		guardrail.NewClassifier(),
		extractor,
		store,
		reg,
		retriever,
		dialog.Options{RetainSlotsAfterComplete: p.RetainSlotsAfterComplete},
	)

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(requestLogger())

	apiService := apiv1.NewAPIV1Service(p, orchestrator, store, reg, extractor)
	apiService.Register(echoServer)

	return &Server{
		Profile:    p,
		echoServer: echoServer,
		store:      store,
		sweeper:    session.NewSweeper(store, p.SessionSweepInterval),
	}, nil
}

// Start begins serving and launches the session sweeper. It blocks until the
// listener fails or is shut down.
func (s *Server) Start(ctx context.Context) error {
	s.sweeper.Start(ctx)

	addr := s.Profile.ListenAddr()
	slog.Info("server started",
		"address", addr,
		"mode", s.Profile.Mode,
		"version", s.Profile.Version)

	if err := s.echoServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "failed to start server")
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s.sweeper.Stop()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server gracefully", "error", err)
	}
	slog.Info("server stopped")
}

// requestLogger logs one line per request with method, path, status, and
// latency.
func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
				slog.Error("request failed", attrs...)
			} else {
				slog.Info("request completed", attrs...)
			}
			return nil
		},
	})
}
