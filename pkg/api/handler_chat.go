package api

import (
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"

	"github.com/scaiflow/orchestrator/pkg/events"
	"github.com/scaiflow/orchestrator/pkg/llmclient"
)

// chatHandler handles POST /api/chat: starts the chat/agent loop (§4.4) and
// streams its events back over SSE. Requires an active Snowflake session.
func (s *Server) chatHandler(c *echo.Context) error {
	sessionID := sessionIDFromCookie(c, s.sessionCookieName())
	if sessionID == "" {
		return echo.NewHTTPError(http.StatusConflict, "no active snowflake session")
	}

	sess, err := s.upstream.Get(sessionID)
	if err != nil {
		return echo.NewHTTPError(http.StatusConflict, "no active snowflake session")
	}

	agent, ok := chatAgentFor(sess, s.ptys)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "upstream connection does not support chat")
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	chatID := firstNonEmpty(req.ID, c.QueryParam("id"), uuid.New().String())

	messages := make([]llmclient.Message, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = llmclient.Message{Role: m.Role, Content: m.Content}
	}

	s.streams.Register(chatID)
	defer s.streams.Unregister(chatID)

	events.SetHeaders(c.Response().Header())
	c.Response().WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	stream := agent.Run(ctx, sessionID, messages)

	formatter := events.NewFormatter(c.Response(), c.Response())
	return formatter.Pump(ctx, stream, s.cfg.SSEPingInterval)
}

// chatStreamProbeHandler handles GET /api/chat/{chatId}/stream: a lightweight
// reconnect probe the client polls to check whether a stream is still worth
// attaching to, rather than a stream endpoint itself.
func (s *Server) chatStreamProbeHandler(c *echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}
