// Package api exposes the orchestrator's HTTP/WS surface (§6): Snowflake
// session lifecycle, file upload, the chat/agent endpoint, the migration
// workflow endpoints, and the terminal WebSocket. Ported from
// original_source/backend/main.py and new-backend/main.py's FastAPI route
// table, structured the way the teacher's pkg/api lays out one file per
// concern with a shared *Server receiver.
package api

import (
	"context"
	"net"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/scaiflow/orchestrator/pkg/chatagent"
	"github.com/scaiflow/orchestrator/pkg/config"
	"github.com/scaiflow/orchestrator/pkg/llmclient"
	"github.com/scaiflow/orchestrator/pkg/ptyio"
	"github.com/scaiflow/orchestrator/pkg/streamreg"
	"github.com/scaiflow/orchestrator/pkg/upstream"
	"github.com/scaiflow/orchestrator/pkg/workflow"
)

// ConnFactory opens the upstream provider connection for a connect request.
// The concrete driver is out of scope (spec §1 Non-goals); the composition
// root supplies the real implementation. The returned Conn must additionally
// implement llmclient.SQLRunner for the chat endpoint to drive Cortex
// completions over it — Server type-asserts for this at request time.
type ConnFactory func(ctx context.Context, req ConnectRequest) (upstream.Conn, error)

// Server is the orchestrator's HTTP/WS API server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server

	cfg         *config.Config
	upstream    *upstream.Manager
	workflows   *workflow.Runner
	ptys        *ptyio.Registry
	streams     *streamreg.Registry
	connFactory ConnFactory
}

// NewServer builds the API server and registers every route.
func NewServer(cfg *config.Config, upstreamMgr *upstream.Manager, workflows *workflow.Runner, ptys *ptyio.Registry, streams *streamreg.Registry, connFactory ConnFactory) *Server {
	e := echo.New()

	s := &Server{
		echo:        e,
		cfg:         cfg,
		upstream:    upstreamMgr,
		workflows:   workflows,
		ptys:        ptys,
		streams:     streams,
		connFactory: connFactory,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.Use(middleware.BodyLimit(10 * 1024 * 1024))
	if len(s.cfg.FrontendOrigins) > 0 {
		s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     s.cfg.FrontendOrigins,
			AllowCredentials: true,
		}))
	}

	s.echo.POST("/api/snowflake/connect", s.connectHandler)
	s.echo.GET("/api/snowflake/status", s.statusHandler)
	s.echo.POST("/api/snowflake/disconnect", s.disconnectHandler)

	s.echo.POST("/api/upload/:chatId", s.uploadHandler)

	s.echo.POST("/api/chat", s.chatHandler)
	s.echo.GET("/api/chat/:chatId/stream", s.chatStreamProbeHandler)

	s.echo.POST("/api/scai/start", s.scaiStartHandler)
	s.echo.GET("/api/scai/run/:runId", s.scaiRunHandler)
	s.echo.GET("/api/scai/status/:runId", s.scaiStatusHandler)
	s.echo.POST("/api/scai/upload-ddl/:runId", s.scaiUploadDDLHandler)
	s.echo.POST("/api/scai/resume/:runId", s.scaiResumeHandler)

	s.echo.GET("/ws/terminal", s.wsTerminalHandler)
}

// Start starts the HTTP server on addr (blocking).
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.echo}
	return s.httpServer.ListenAndServe()
}

// StartWithListener starts the HTTP server on a pre-created listener,
// mirroring the teacher's test-infrastructure entry point.
func (s *Server) StartWithListener(ln net.Listener) error {
	s.httpServer = &http.Server{Handler: s.echo}
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// sessionCookieName returns the configured cookie name, defaulting the way
// config.Initialize's resolveCookieConfig does if cfg is somehow zero-valued.
func (s *Server) sessionCookieName() string {
	if s.cfg.SessionCookie.Name == "" {
		return config.DefaultSessionCookieName
	}
	return s.cfg.SessionCookie.Name
}

// sessionIDFromCookie reads the session-id cookie, returning "" if absent.
func sessionIDFromCookie(c *echo.Context, name string) string {
	cookie, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) setSessionCookie(c *echo.Context, sessionID string, expiresAt time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     s.sessionCookieName(),
		Value:    sessionID,
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   s.cfg.SessionCookie.Secure,
		SameSite: sameSite(s.cfg.SessionCookie.SameSite),
		Path:     "/",
	})
}

func (s *Server) clearSessionCookie(c *echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.sessionCookieName(),
		Value:    "",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Path:     "/",
	})
}

func sameSite(v string) http.SameSite {
	switch v {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// chatAgentFor builds a request-scoped chat agent over sess's upstream
// connection, which must also satisfy llmclient.SQLRunner.
func chatAgentFor(sess *upstream.Session, ptys *ptyio.Registry) (*chatagent.Agent, bool) {
	runner, ok := sess.Conn.(llmclient.SQLRunner)
	if !ok {
		return nil, false
	}
	model := llmclient.ModelConfig{
		Model:          sess.Model.Model,
		CortexFunction: sess.Model.Function,
		Temperature:    sess.Model.Temperature,
		TopP:           sess.Model.TopP,
		MaxTokens:      sess.Model.MaxTokens,
	}
	return chatagent.NewAgent(llmclient.New(runner, model), ptys), true
}
