package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/coder/websocket"
	echo "github.com/labstack/echo/v5"

	"github.com/scaiflow/orchestrator/pkg/ptyio"
)

// terminalClientMessage is a keystroke or resize notification sent by the
// browser over the terminal WebSocket.
type terminalClientMessage struct {
	Type string `json:"type"`
	Data string `json:"data"`
	Cols uint16 `json:"cols"`
	Rows uint16 `json:"rows"`
}

// wsTerminalHandler handles GET /ws/terminal: upgrades to a WebSocket, spawns
// a PTY session keyed by the caller's session cookie, and bridges PTY I/O to
// the socket until either side closes.
func (s *Server) wsTerminalHandler(c *echo.Context) error {
	sessionID := sessionIDFromCookie(c, s.sessionCookieName())
	if sessionID == "" {
		return echo.NewHTTPError(409, "no active snowflake session")
	}

	cols := parseDimension(c.QueryParam("cols"), 80)
	rows := parseDimension(c.QueryParam("rows"), 24)

	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	session := ptyio.New(cols, rows)
	if err := session.Spawn("/bin/bash", nil, "", nil); err != nil {
		conn.Close(websocket.StatusInternalError, "failed to start terminal")
		return nil
	}
	s.ptys.Register(sessionID, session)
	defer s.ptys.Unregister(sessionID)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	go pumpPTYOutput(ctx, conn, session)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return nil
		}

		var msg terminalClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}

		switch msg.Type {
		case "resize":
			_ = session.Resize(msg.Cols, msg.Rows)
		case "input":
			if _, err := session.Write([]byte(msg.Data)); err != nil {
				return nil
			}
		}
	}
}

// pumpPTYOutput reads session output and forwards it to conn until the
// session dies, the socket closes, or ctx is cancelled.
func pumpPTYOutput(ctx context.Context, conn *websocket.Conn, session *ptyio.Session) {
	buf := make([]byte, 4096)
	for {
		if ctx.Err() != nil {
			return
		}
		n, err := session.Read(buf)
		if n > 0 {
			if werr := conn.Write(ctx, websocket.MessageText, buf[:n]); werr != nil {
				return
			}
		}
		if err != nil {
			if ctx.Err() == nil {
				slog.Debug("terminal pty read ended", "error", err)
			}
			return
		}
	}
}

func parseDimension(raw string, fallback uint16) uint16 {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return fallback
	}
	return uint16(v)
}
