package api

import "time"

// ConnectRequest is the body of POST /api/snowflake/connect.
type ConnectRequest struct {
	Account       string  `json:"account"`
	User          string  `json:"user"`
	Role          string  `json:"role,omitempty"`
	Warehouse     string  `json:"warehouse,omitempty"`
	Database      string  `json:"database,omitempty"`
	Schema        string  `json:"schema,omitempty"`
	Authenticator string  `json:"authenticator,omitempty"`
	Password      string  `json:"password,omitempty"`
	Model         string  `json:"model,omitempty"`
	Function      string  `json:"function,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	MaxTokens     int     `json:"max_tokens,omitempty"`
}

// ConnectResponse is the body of POST /api/snowflake/connect.
type ConnectResponse struct {
	Connected bool      `json:"connected"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
}

// StatusResponse is the body of GET /api/snowflake/status.
type StatusResponse struct {
	Connected     bool           `json:"connected"`
	ExpiresAt     *time.Time     `json:"expiresAt,omitempty"`
	SessionID     string         `json:"sessionId,omitempty"`
	ModelDefaults *ModelDefaults `json:"modelDefaults,omitempty"`
}

// ModelDefaults surfaces the session's Cortex model configuration.
type ModelDefaults struct {
	Model    string `json:"model"`
	Function string `json:"function"`
}

// UploadResponse is the body of POST /api/upload/{chatId}.
type UploadResponse struct {
	Files []UploadedFile `json:"files"`
}

// UploadedFile describes one stored upload.
type UploadedFile struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Preview string `json:"preview,omitempty"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	ID       string        `json:"id,omitempty"`
	Messages []ChatMessage `json:"messages"`
}

// ChatMessage is one Vercel-AI-SDK-shaped chat message.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ScaiStartRequest is the body of POST /api/scai/start.
type ScaiStartRequest struct {
	ProjectName     string   `json:"project_name"`
	SourceLanguage  string   `json:"source_language,omitempty"`
	TargetPlatform  string   `json:"target_platform,omitempty"`
	SourceFiles     []string `json:"source_files"`
	MappingCSVPath  string   `json:"mapping_csv_path,omitempty"`
}

// ScaiStartResponse is the body of POST /api/scai/start.
type ScaiStartResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}
