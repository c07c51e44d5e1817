package workflow

import "errors"

var (
	// ErrRunNotFound is returned for an unknown run-id.
	ErrRunNotFound = errors.New("workflow run not found")
	// ErrRunNotPaused is returned by Resume when the run is not awaiting resume.
	ErrRunNotPaused = errors.New("workflow run is not paused")
	// ErrNotAwaitingDDL is returned by SetDDLUploadPath when the run has not
	// requested a DDL upload.
	ErrNotAwaitingDDL = errors.New("workflow run is not awaiting a DDL upload")
	// ErrAlreadyStreaming is returned by Stream when a run is already being
	// executed by a prior Stream/Resume call.
	ErrAlreadyStreaming = errors.New("workflow run is already streaming")
)
