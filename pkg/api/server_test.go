package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scaiflow/orchestrator/pkg/config"
	"github.com/scaiflow/orchestrator/pkg/ptyio"
	"github.com/scaiflow/orchestrator/pkg/streamreg"
	"github.com/scaiflow/orchestrator/pkg/upstream"
	"github.com/scaiflow/orchestrator/pkg/workflow"
)

// fakeConn satisfies both upstream.Conn and llmclient.SQLRunner, standing in
// for the out-of-scope concrete Snowflake driver.
type fakeConn struct {
	pingErr error
}

func (c *fakeConn) Ping() error { return c.pingErr }
func (c *fakeConn) Close() error { return nil }
func (c *fakeConn) RunScalar(ctx context.Context, sql string) (any, error) {
	return `{"choices":[{"messages":"ack"}]}`, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := &config.Config{
		SessionCookie: config.CookieConfig{
			Name:     "snowflake_session_id",
			TTL:      30 * 24 * time.Hour,
			SameSite: "lax",
		},
		SSEPingInterval: 12 * time.Second,
		CortexModel:     "claude-4-sonnet",
		CortexFunction:  "complete",
		UploadDir:       t.TempDir(),
	}

	upstreamMgr := upstream.NewManager(cfg.SessionCookie.TTL)
	workflows := workflow.NewRunner(workflow.Dependencies{
		ProjectsRoot: t.TempDir(),
		OutputsRoot:  t.TempDir(),
	})
	ptys := ptyio.NewRegistry()
	streams := streamreg.New()

	connFactory := func(ctx context.Context, req ConnectRequest) (upstream.Conn, error) {
		return &fakeConn{}, nil
	}

	return NewServer(cfg, upstreamMgr, workflows, ptys, streams, connFactory)
}

func TestConnectHandlerRequiresAccountAndUser(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(&ConnectRequest{})
	req := httptest.NewRequest(http.MethodPost, "/api/snowflake/connect", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestConnectHandlerSetsSessionCookie(t *testing.T) {
	s := newTestServer(t)

	body, _ := json.Marshal(&ConnectRequest{Account: "acct", User: "user"})
	req := httptest.NewRequest(http.MethodPost, "/api/snowflake/connect", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp ConnectResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Connected)
	assert.NotEmpty(t, resp.SessionID)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "snowflake_session_id", cookies[0].Name)
	assert.Equal(t, resp.SessionID, cookies[0].Value)
}

func TestStatusHandlerReportsDisconnectedWithoutCookie(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/snowflake/status", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Connected)
}

func TestStatusHandlerReportsConnectedAfterConnect(t *testing.T) {
	s := newTestServer(t)

	connectBody, _ := json.Marshal(&ConnectRequest{Account: "acct", User: "user"})
	connectReq := httptest.NewRequest(http.MethodPost, "/api/snowflake/connect", bytes.NewReader(connectBody))
	connectReq.Header.Set("Content-Type", "application/json")
	connectRec := httptest.NewRecorder()
	s.echo.ServeHTTP(connectRec, connectReq)
	require.Equal(t, http.StatusOK, connectRec.Code)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/snowflake/status", nil)
	for _, ck := range connectRec.Result().Cookies() {
		statusReq.AddCookie(ck)
	}
	statusRec := httptest.NewRecorder()
	s.echo.ServeHTTP(statusRec, statusReq)

	require.Equal(t, http.StatusOK, statusRec.Code)
	var resp StatusResponse
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &resp))
	assert.True(t, resp.Connected)
	require.NotNil(t, resp.ModelDefaults)
	assert.Equal(t, "claude-4-sonnet", resp.ModelDefaults.Model)
}

func TestDisconnectHandlerClearsSession(t *testing.T) {
	s := newTestServer(t)

	connectBody, _ := json.Marshal(&ConnectRequest{Account: "acct", User: "user"})
	connectReq := httptest.NewRequest(http.MethodPost, "/api/snowflake/connect", bytes.NewReader(connectBody))
	connectReq.Header.Set("Content-Type", "application/json")
	connectRec := httptest.NewRecorder()
	s.echo.ServeHTTP(connectRec, connectReq)
	require.Equal(t, http.StatusOK, connectRec.Code)

	disconnectReq := httptest.NewRequest(http.MethodPost, "/api/snowflake/disconnect", nil)
	for _, ck := range connectRec.Result().Cookies() {
		disconnectReq.AddCookie(ck)
	}
	disconnectRec := httptest.NewRecorder()
	s.echo.ServeHTTP(disconnectRec, disconnectReq)
	assert.Equal(t, http.StatusNoContent, disconnectRec.Code)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/snowflake/status", nil)
	for _, ck := range connectRec.Result().Cookies() {
		statusReq.AddCookie(ck)
	}
	statusRec := httptest.NewRecorder()
	s.echo.ServeHTTP(statusRec, statusReq)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(statusRec.Body.Bytes(), &resp))
	assert.False(t, resp.Connected)
}

func TestUploadHandlerStoresFilesAndReturnsPreview(t *testing.T) {
	s := newTestServer(t)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", "schema.sql")
	require.NoError(t, err)
	_, err = io.WriteString(part, "CREATE TABLE t (id INT);")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload/chat-1", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	s.echo.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Files, 1)
	assert.Equal(t, "schema.sql", resp.Files[0].Name)
	assert.Contains(t, resp.Files[0].Preview, "CREATE TABLE")

	stored := s.cfg.UploadDir + "/chat-1/schema.sql"
	data, err := os.ReadFile(stored)
	require.NoError(t, err)
	assert.Equal(t, "CREATE TABLE t (id INT);", string(data))
}

func TestUploadHandlerRejectsMissingChatID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/upload/", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestScaiStartAndStatusHandlers(t *testing.T) {
	s := newTestServer(t)

	startBody, _ := json.Marshal(&ScaiStartRequest{ProjectName: "demo"})
	startReq := httptest.NewRequest(http.MethodPost, "/api/scai/start", bytes.NewReader(startBody))
	startReq.Header.Set("Content-Type", "application/json")
	startRec := httptest.NewRecorder()
	s.echo.ServeHTTP(startRec, startReq)
	require.Equal(t, http.StatusOK, startRec.Code)

	var startResp ScaiStartResponse
	require.NoError(t, json.Unmarshal(startRec.Body.Bytes(), &startResp))
	assert.NotEmpty(t, startResp.RunID)
	assert.Equal(t, "pending", startResp.Status)

	statusReq := httptest.NewRequest(http.MethodGet, "/api/scai/status/"+startResp.RunID, nil)
	statusRec := httptest.NewRecorder()
	s.echo.ServeHTTP(statusRec, statusReq)
	assert.Equal(t, http.StatusOK, statusRec.Code)
}

func TestScaiStatusHandlerReturns404ForUnknownRun(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/scai/status/does-not-exist", nil)
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
