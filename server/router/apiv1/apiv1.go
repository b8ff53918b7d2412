// Package apiv1 exposes the conversation service over a JSON HTTP API.
package apiv1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/coverline/coverline/internal/profile"
	"github.com/coverline/coverline/plugin/nlu"
	"github.com/coverline/coverline/plugin/registry"
	"github.com/coverline/coverline/server/dialog"
	"github.com/coverline/coverline/server/session"
)

// APIV1Service holds the handlers for the v1 API surface.
type APIV1Service struct {
	Profile      *profile.Profile
	Orchestrator *dialog.Orchestrator
	Store        session.Store
	Registry     *registry.Registry
	Extractor    dialog.Extractor
}

// NewAPIV1Service wires the service.
func NewAPIV1Service(p *profile.Profile, orchestrator *dialog.Orchestrator, store session.Store, reg *registry.Registry, extractor dialog.Extractor) *APIV1Service {
	return &APIV1Service{
		Profile:      p,
		Orchestrator: orchestrator,
		Store:        store,
		Registry:     reg,
		Extractor:    extractor,
	}
}

// Register attaches the routes to the echo instance.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/", s.serviceInfo)
	e.GET("/healthz", s.health)

	group := e.Group("/api/v1")
	group.Use(middleware.CORS())
	group.POST("/chat", s.chat)
	group.POST("/extract", s.extract)
	group.GET("/sessions/:id", s.getSession)
	group.DELETE("/sessions/:id", s.deleteSession)
	group.POST("/config/reload", s.reloadConfig)
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`
}

func (s *APIV1Service) chat(c echo.Context) error {
	var req chatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	result, err := s.Orchestrator.Turn(c.Request().Context(), req.SessionID, req.Query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to process turn").SetInternal(err)
	}
	return c.JSON(http.StatusOK, result)
}

type extractRequest struct {
	Query string `json:"query"`
}

type extractResponse struct {
	Intent   string            `json:"intent"`
	Entities map[string]string `json:"entities"`
	Missing  []string          `json:"missing_entities"`
}

// extract runs a stateless extraction: no session is touched.
func (s *APIV1Service) extract(c echo.Context) error {
	var req extractRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}

	result, err := s.Extractor.Extract(c.Request().Context(), req.Query, nlu.TurnContext{})
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "extraction service unavailable").SetInternal(err)
	}

	var missing []string
	for _, id := range s.Registry.RequiredSlots(result.Topic) {
		if result.Entities[id] == "" {
			missing = append(missing, id)
		}
	}
	return c.JSON(http.StatusOK, extractResponse{
		Intent:   result.Topic,
		Entities: result.Entities,
		Missing:  missing,
	})
}

func (s *APIV1Service) getSession(c echo.Context) error {
	id := c.Param("id")

	// Snapshot under the per-session lock so a concurrent turn cannot mutate
	// the session while it is being serialized.
	unlock := s.Store.Lock(id)
	sess, err := s.Store.Get(c.Request().Context(), id)
	if err != nil {
		unlock()
		if errors.Is(err, session.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load session").SetInternal(err)
	}
	snapshot := sess.Clone()
	unlock()

	return c.JSON(http.StatusOK, snapshot)
}

func (s *APIV1Service) deleteSession(c echo.Context) error {
	err := s.Store.Delete(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete session").SetInternal(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Session deleted"})
}

type reloadResponse struct {
	Topics []string `json:"topics"`
	Slots  []string `json:"slots"`
}

func (s *APIV1Service) reloadConfig(c echo.Context) error {
	if err := s.Registry.Reload(); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "configuration reload failed").SetInternal(err)
	}
	return c.JSON(http.StatusOK, reloadResponse{
		Topics: s.Registry.Topics(),
		Slots:  s.Registry.Slots(),
	})
}

type healthResponse struct {
	Status           string `json:"status"`
	NLUConfigured    bool   `json:"nlu_configured"`
	SearchConfigured bool   `json:"search_configured"`
	Message          string `json:"message"`
}

func (s *APIV1Service) health(c echo.Context) error {
	nluOK := s.Profile.IsNLUConfigured()
	searchOK := s.Profile.IsSearchConfigured()

	status := "ready"
	message := "Ready"
	if !nluOK || !searchOK {
		status = "degraded"
		message = "API keys not configured"
	}
	return c.JSON(http.StatusOK, healthResponse{
		Status:           status,
		NLUConfigured:    nluOK,
		SearchConfigured: searchOK,
		Message:          message,
	})
}

func (s *APIV1Service) serviceInfo(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"name":    "coverline",
		"version": s.Profile.Version,
		"mode":    s.Profile.Mode,
		"topics":  s.Registry.Topics(),
		"slots":   s.Registry.Slots(),
	})
}
