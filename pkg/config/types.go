package config

import "time"

// Config is the fully resolved, ready-to-use configuration for the
// orchestrator process: environment-derived runtime settings plus the
// migration-domain files (ignored report codes, and migration.yaml's
// self-heal budget).
type Config struct {
	// HTTP/session surface
	FrontendOrigins  []string
	SessionCookie    CookieConfig
	SSEPingInterval  time.Duration

	// Cortex / LLM defaults
	CortexModel    string
	CortexFunction string

	// Upstream connection defaults, used when a session does not override them
	Upstream UpstreamConfig

	// UploadDir is where staged DDL/crosswalk uploads are written.
	UploadDir string

	// IgnoredReportCodes is the set of assessment-report codes (uppercased)
	// that are never surfaced as actionable issues.
	IgnoredReportCodes map[string]struct{}

	// SelfHeal bounds the self-heal stage's iteration budget.
	SelfHeal SelfHealConfig
}

// CookieConfig controls the session cookie issued on connect.
type CookieConfig struct {
	Name     string
	TTL      time.Duration
	Secure   bool
	SameSite string // "lax", "strict", "none"
}

// UpstreamConfig holds default upstream-provider connection parameters,
// read from SF_ACCOUNT/SF_USER/SF_ROLE/SF_WAREHOUSE/SF_DATABASE/SF_SCHEMA/SF_AUTHENTICATOR.
type UpstreamConfig struct {
	Account       string
	User          string
	Role          string
	Warehouse     string
	Database      string
	Schema        string
	Authenticator string
}

// SelfHealConfig bounds the self-heal stage.
type SelfHealConfig struct {
	MaxIterations int `yaml:"max_iterations,omitempty" validate:"omitempty,min=1"`
}

// MigrationYAMLConfig represents the optional migration.yaml file structure.
// Every field is optional; absence falls back to built-in defaults.
type MigrationYAMLConfig struct {
	SelfHeal *SelfHealConfig `yaml:"self_heal,omitempty"`
}
