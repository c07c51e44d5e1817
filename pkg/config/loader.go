package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"dario.cat/mergo"
	"gopkg.in/yaml.v3"
)

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Resolve environment variables (spec.md §6)
//  2. Load migration.yaml, if present, expanding env vars first
//  3. Merge built-in defaults with the YAML overrides
//  4. Load ignored_report_codes.json, if present
//  5. Validate all configuration
//  6. Return Config ready for use
func Initialize(ctx context.Context, configDir string) (*Config, error) {
	log := slog.With("component", "config", "config_dir", configDir)
	log.Info("initializing configuration")

	cfg, err := load(ctx, configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.Info("configuration initialized",
		"cortex_model", cfg.CortexModel,
		"upload_dir", cfg.UploadDir,
		"ignored_codes", len(cfg.IgnoredReportCodes),
		"self_heal_max_iterations", cfg.SelfHeal.MaxIterations)

	return cfg, nil
}

func load(_ context.Context, configDir string) (*Config, error) {
	loader := &configLoader{configDir: configDir}

	yamlCfg, err := loader.loadMigrationYAML()
	if err != nil {
		return nil, err
	}

	selfHeal := DefaultSelfHealConfig()
	if yamlCfg.SelfHeal != nil {
		if err := mergo.Merge(selfHeal, yamlCfg.SelfHeal, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("failed to merge self_heal config: %w", err)
		}
	}

	ignoredCodes, err := loader.loadIgnoredReportCodes()
	if err != nil {
		return nil, err
	}

	return &Config{
		FrontendOrigins: resolveOrigins(),
		SessionCookie:   resolveCookieConfig(),
		SSEPingInterval: resolveDuration("SSE_PING_INTERVAL_SECONDS", DefaultSSEPingSeconds),
		CortexModel:     resolveString("CORTEX_MODEL", DefaultCortexModel),
		CortexFunction:  resolveString("CORTEX_FUNCTION", DefaultCortexFunction),
		Upstream:        resolveUpstreamConfig(),
		UploadDir:       resolveString("UPLOAD_DIR", DefaultUploadDir),
		IgnoredReportCodes: ignoredCodes,
		SelfHeal:        *selfHeal,
	}, nil
}

func validate(cfg *Config) error {
	v := NewValidator(cfg)
	return v.ValidateAll()
}

type configLoader struct {
	configDir string
}

// loadMigrationYAML loads migration.yaml if present. A missing file is not
// an error; every field in the result falls back to the built-in default.
func (l *configLoader) loadMigrationYAML() (*MigrationYAMLConfig, error) {
	var cfg MigrationYAMLConfig
	path := filepath.Join(l.configDir, "migration.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, NewLoadError("migration.yaml", err)
	}

	data = ExpandEnv(data)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, NewLoadError("migration.yaml", fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	return &cfg, nil
}

// loadIgnoredReportCodes loads ignored_report_codes.json, shaped
// {"ignored_codes": [string, ...]}, a set of assessment-report codes that
// are never surfaced as actionable issues. A missing file yields an empty,
// non-nil set.
func (l *configLoader) loadIgnoredReportCodes() (map[string]struct{}, error) {
	result := make(map[string]struct{})
	path := filepath.Join(l.configDir, "ignored_report_codes.json")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return result, nil
		}
		return nil, NewLoadError("ignored_report_codes.json", err)
	}

	var payload struct {
		IgnoredCodes []string `json:"ignored_codes"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, NewLoadError("ignored_report_codes.json", err)
	}

	for _, code := range payload.IgnoredCodes {
		result[strings.ToUpper(strings.TrimSpace(code))] = struct{}{}
	}

	return result, nil
}

func resolveOrigins() []string {
	raw := os.Getenv("FRONTEND_ORIGINS")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func resolveCookieConfig() CookieConfig {
	ttlDays := DefaultSessionTTLDays
	if raw := os.Getenv("SESSION_TTL_DAYS"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			ttlDays = v
		} else {
			slog.Warn("invalid SESSION_TTL_DAYS, using default", "value", raw, "default", DefaultSessionTTLDays)
		}
	}

	secure := false
	if raw := os.Getenv("COOKIE_SECURE"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			secure = v
		} else {
			slog.Warn("invalid COOKIE_SECURE, using default", "value", raw, "default", false)
		}
	}

	return CookieConfig{
		Name:     resolveString("SESSION_COOKIE_NAME", DefaultSessionCookieName),
		TTL:      time.Duration(ttlDays) * 24 * time.Hour,
		Secure:   secure,
		SameSite: resolveString("COOKIE_SAMESITE", DefaultCookieSameSite),
	}
}

func resolveUpstreamConfig() UpstreamConfig {
	return UpstreamConfig{
		Account:       os.Getenv("SF_ACCOUNT"),
		User:          os.Getenv("SF_USER"),
		Role:          os.Getenv("SF_ROLE"),
		Warehouse:     os.Getenv("SF_WAREHOUSE"),
		Database:      os.Getenv("SF_DATABASE"),
		Schema:        os.Getenv("SF_SCHEMA"),
		Authenticator: os.Getenv("SF_AUTHENTICATOR"),
	}
}

func resolveString(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func resolveDuration(envVar string, defaultSeconds int) time.Duration {
	seconds := defaultSeconds
	if raw := os.Getenv(envVar); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			seconds = v
		} else {
			slog.Warn("invalid duration env var, using default", "var", envVar, "value", raw, "default", defaultSeconds)
		}
	}
	return time.Duration(seconds) * time.Second
}
