package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitializeDefaults(t *testing.T) {
	configDir := t.TempDir()

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, DefaultSessionCookieName, cfg.SessionCookie.Name)
	assert.Equal(t, DefaultCookieSameSite, cfg.SessionCookie.SameSite)
	assert.Equal(t, DefaultCortexModel, cfg.CortexModel)
	assert.Equal(t, DefaultCortexFunction, cfg.CortexFunction)
	assert.Equal(t, DefaultUploadDir, cfg.UploadDir)
	assert.Equal(t, DefaultSelfHealMaxIterations, cfg.SelfHeal.MaxIterations)
	assert.NotNil(t, cfg.IgnoredReportCodes)
	assert.Empty(t, cfg.IgnoredReportCodes)
}

func TestInitializeEnvOverrides(t *testing.T) {
	configDir := t.TempDir()

	t.Setenv("FRONTEND_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("SESSION_COOKIE_NAME", "migrator_session")
	t.Setenv("SESSION_TTL_DAYS", "7")
	t.Setenv("COOKIE_SECURE", "true")
	t.Setenv("COOKIE_SAMESITE", "strict")
	t.Setenv("SSE_PING_INTERVAL_SECONDS", "5")
	t.Setenv("CORTEX_MODEL", "claude-4-opus")
	t.Setenv("SF_ACCOUNT", "acme-prod")
	t.Setenv("SF_DATABASE", "ANALYTICS")
	t.Setenv("UPLOAD_DIR", "/tmp/uploads")

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.FrontendOrigins)
	assert.Equal(t, "migrator_session", cfg.SessionCookie.Name)
	assert.Equal(t, 7*24*time.Hour, cfg.SessionCookie.TTL)
	assert.True(t, cfg.SessionCookie.Secure)
	assert.Equal(t, "strict", cfg.SessionCookie.SameSite)
	assert.Equal(t, 5*time.Second, cfg.SSEPingInterval)
	assert.Equal(t, "claude-4-opus", cfg.CortexModel)
	assert.Equal(t, "acme-prod", cfg.Upstream.Account)
	assert.Equal(t, "ANALYTICS", cfg.Upstream.Database)
	assert.Equal(t, "/tmp/uploads", cfg.UploadDir)
}

func TestInitializeLoadsIgnoredReportCodes(t *testing.T) {
	configDir := t.TempDir()
	writeFile(t, configDir, "ignored_report_codes.json", `{"ignored_codes": ["sql0100", " SQL0204 ", "sql0100"]}`)

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	_, hasFirst := cfg.IgnoredReportCodes["SQL0100"]
	_, hasSecond := cfg.IgnoredReportCodes["SQL0204"]
	assert.True(t, hasFirst)
	assert.True(t, hasSecond)
	assert.Len(t, cfg.IgnoredReportCodes, 2)
}

func TestInitializeLoadsMigrationYAML(t *testing.T) {
	configDir := t.TempDir()
	writeFile(t, configDir, "migration.yaml", "self_heal:\n  max_iterations: 9\n")

	ctx := context.Background()
	cfg, err := Initialize(ctx, configDir)

	require.NoError(t, err)
	assert.Equal(t, 9, cfg.SelfHeal.MaxIterations)
}

func TestInitializeInvalidYAML(t *testing.T) {
	configDir := t.TempDir()
	writeFile(t, configDir, "migration.yaml", "self_heal: [this is not a map")

	ctx := context.Background()
	_, err := Initialize(ctx, configDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load configuration")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
