package config

// Built-in defaults, overridden by environment variables and migration.yaml.
const (
	DefaultSessionCookieName = "snowflake_session_id"
	DefaultSessionTTLDays    = 30
	DefaultCookieSameSite    = "lax"
	DefaultSSEPingSeconds    = 12
	DefaultCortexModel       = "claude-4-sonnet"
	DefaultCortexFunction    = "complete"
	DefaultUploadDir         = "./uploads"

	// DefaultSelfHealMaxIterations bounds the self-heal loop absent an
	// explicit migration.yaml override.
	DefaultSelfHealMaxIterations = 5
)

// DefaultSelfHealConfig returns the built-in self-heal budget.
func DefaultSelfHealConfig() *SelfHealConfig {
	return &SelfHealConfig{MaxIterations: DefaultSelfHealMaxIterations}
}
