package api

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v5"

	"github.com/scaiflow/orchestrator/pkg/events"
	"github.com/scaiflow/orchestrator/pkg/workflow"
)

// scaiStartHandler handles POST /api/scai/start: registers a new migration
// run. The run does not execute until its event stream is opened.
func (s *Server) scaiStartHandler(c *echo.Context) error {
	var req ScaiStartRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ProjectName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "project_name is required")
	}

	params := workflow.StartParams{
		SessionID:       sessionIDFromCookie(c, s.sessionCookieName()),
		SourceLanguage:  req.SourceLanguage,
		TargetPlatform:  req.TargetPlatform,
		SourceFiles:     req.SourceFiles,
		MappingCSVPath:  req.MappingCSVPath,
		SFAccount:       s.cfg.Upstream.Account,
		SFUser:          s.cfg.Upstream.User,
		SFRole:          s.cfg.Upstream.Role,
		SFWarehouse:     s.cfg.Upstream.Warehouse,
		SFDatabase:      s.cfg.Upstream.Database,
		SFSchema:        s.cfg.Upstream.Schema,
		SFAuthenticator: s.cfg.Upstream.Authenticator,
	}

	run := s.workflows.Start(req.ProjectName, params)
	return c.JSON(http.StatusOK, &ScaiStartResponse{
		RunID:  run.ID,
		Status: string(run.StatusValue()),
	})
}

// scaiRunHandler handles GET /api/scai/run/{runId}: opens the run's event
// stream over SSE, starting graph execution on first attach.
func (s *Server) scaiRunHandler(c *echo.Context) error {
	runID := c.Param("runId")
	ctx := c.Request().Context()

	stream, err := s.workflows.Stream(ctx, runID)
	if err != nil {
		if errors.Is(err, workflow.ErrRunNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	events.SetHeaders(c.Response().Header())
	c.Response().WriteHeader(http.StatusOK)

	formatter := events.NewFormatter(c.Response(), c.Response())
	return formatter.Pump(ctx, stream, s.cfg.SSEPingInterval)
}

// scaiStatusHandler handles GET /api/scai/status/{runId}.
func (s *Server) scaiStatusHandler(c *echo.Context) error {
	runID := c.Param("runId")

	snapshot, err := s.workflows.Status(runID)
	if err != nil {
		if errors.Is(err, workflow.ErrRunNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, &snapshot)
}

// scaiUploadDDLHandler handles POST /api/scai/upload-ddl/{runId}: stores the
// human-reviewed DDL file and records its path on the run.
func (s *Server) scaiUploadDDLHandler(c *echo.Context) error {
	runID := c.Param("runId")
	if runID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "run id is required")
	}

	multipart, err := c.MultipartForm()
	if err != nil || len(multipart.File) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no file uploaded")
	}

	var path string
	for _, headers := range multipart.File {
		for _, fh := range headers {
			src, err := fh.Open()
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to read uploaded file")
			}
			dstPath := s.cfg.UploadDir + "/" + runID + "/" + fh.Filename
			_, _, err = writeUploadWithPreview(dstPath, src)
			src.Close()
			if err != nil {
				return echo.NewHTTPError(http.StatusInternalServerError, "failed to store uploaded file")
			}
			path = dstPath
		}
	}

	if err := s.workflows.SetDDLUploadPath(runID, path); err != nil {
		if errors.Is(err, workflow.ErrRunNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		if errors.Is(err, workflow.ErrNotAwaitingDDL) {
			return echo.NewHTTPError(http.StatusBadRequest, "run is not awaiting a DDL upload")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.NoContent(http.StatusNoContent)
}

// scaiResumeHandler handles POST /api/scai/resume/{runId}: resumes a run
// paused at execute_sql and re-attaches its event stream.
func (s *Server) scaiResumeHandler(c *echo.Context) error {
	runID := c.Param("runId")
	ctx := c.Request().Context()

	stream, err := s.workflows.Resume(ctx, runID)
	if err != nil {
		if errors.Is(err, workflow.ErrRunNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "run not found")
		}
		if errors.Is(err, workflow.ErrRunNotPaused) {
			return echo.NewHTTPError(http.StatusBadRequest, "run is not paused")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	events.SetHeaders(c.Response().Header())
	c.Response().WriteHeader(http.StatusOK)

	formatter := events.NewFormatter(c.Response(), c.Response())
	return formatter.Pump(ctx, stream, s.cfg.SSEPingInterval)
}
