package config

import "os"

// ExpandEnv expands environment variables in YAML content using Go's standard library.
// Supports both ${VAR} and $VAR syntax (standard shell-style).
//
// Examples:
//   - ${SF_ACCOUNT} → value of SF_ACCOUNT environment variable
//   - $UPLOAD_DIR → value of UPLOAD_DIR environment variable
//   - ${SF_DATABASE}.${SF_SCHEMA} → expanded with both variables resolved
//
// Missing variables expand to empty string. Validation should catch required fields that are empty.
func ExpandEnv(data []byte) []byte {
	expanded := os.ExpandEnv(string(data))
	return []byte(expanded)
}
