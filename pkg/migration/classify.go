package migration

import "strings"

// missingObjectPatterns are the substrings that mark a Snowflake error as a
// missing-object error rather than a generic execution error, ported
// verbatim from classify_snowflake_error.
var missingObjectPatterns = []string{
	"does not exist or not authorized",
	"does not exist",
	"object does not exist",
	"table does not exist",
	"schema does not exist",
}

// objectNameTokens are tried in order to find the quoted object name that
// follows one of these lead-in phrases.
var objectNameTokens = []string{"Object '", "object '", "Table '", "table '", `"`}

// ClassifyError inspects a Snowflake execution error message and returns an
// error type ("missing_object" or "execution_error") plus, for missing
// objects, the best-effort extracted object name. Ported from
// classify_snowflake_error.
func ClassifyError(message string) (errType, objectName string) {
	lowered := strings.ToLower(message)

	missing := false
	for _, pattern := range missingObjectPatterns {
		if strings.Contains(lowered, pattern) {
			missing = true
			break
		}
	}
	if !missing {
		return "execution_error", ""
	}

	for _, token := range objectNameTokens {
		start := strings.Index(message, token)
		if start < 0 {
			continue
		}
		start += len(token)
		closing := token[len(token)-1:]
		end := strings.Index(message[start:], closing)
		if end < 0 {
			continue
		}
		return "missing_object", message[start : start+end]
	}
	return "missing_object", ""
}
