package api

import (
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/scaiflow/orchestrator/pkg/upstream"
)

// connectHandler handles POST /api/snowflake/connect.
func (s *Server) connectHandler(c *echo.Context) error {
	var req ConnectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Account == "" || req.User == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "account and user are required")
	}

	conn, err := s.connFactory(c.Request().Context(), req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "snowflake authentication failed: "+err.Error())
	}

	model := upstream.ModelConfig{
		Model:       firstNonEmpty(req.Model, s.cfg.CortexModel),
		Function:    firstNonEmpty(req.Function, s.cfg.CortexFunction),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}

	sessionID := uuid.New().String()
	sess := s.upstream.CreateOrReplace(sessionID, conn, model)
	s.setSessionCookie(c, sessionID, sess.ExpiresAt)

	return c.JSON(http.StatusOK, &ConnectResponse{
		Connected: true,
		ExpiresAt: sess.ExpiresAt,
		SessionID: sessionID,
	})
}

// statusHandler handles GET /api/snowflake/status.
func (s *Server) statusHandler(c *echo.Context) error {
	sessionID := sessionIDFromCookie(c, s.sessionCookieName())
	if sessionID == "" {
		return c.JSON(http.StatusOK, &StatusResponse{Connected: false})
	}

	status, err := s.upstream.BuildStatus(sessionID)
	if err != nil {
		return c.JSON(http.StatusOK, &StatusResponse{Connected: false})
	}

	expiresAt := status.ExpiresAt
	return c.JSON(http.StatusOK, &StatusResponse{
		Connected: true,
		ExpiresAt: &expiresAt,
		SessionID: status.ID,
		ModelDefaults: &ModelDefaults{
			Model:    status.Model,
			Function: s.cfg.CortexFunction,
		},
	})
}

// disconnectHandler handles POST /api/snowflake/disconnect.
func (s *Server) disconnectHandler(c *echo.Context) error {
	sessionID := sessionIDFromCookie(c, s.sessionCookieName())
	if sessionID != "" {
		_ = s.upstream.Disconnect(sessionID)
	}
	s.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
