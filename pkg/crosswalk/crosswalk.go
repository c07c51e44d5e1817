// Package crosswalk applies a CSV schema-mapping crosswalk to SQL text:
// every occurrence of a source schema qualifier is rewritten to its target
// database.schema, the way the original teradata-to-snowflake migration
// script does it with pandas + a per-row compiled regex.
package crosswalk

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// Mapping is one row of the crosswalk CSV: SOURCE_SCHEMA, TARGET_DB_SCHEMA.
type Mapping struct {
	SourceSchema  string
	TargetDBSchema string

	pattern *regexp.Regexp
}

// Crosswalk holds the compiled mapping rows, cached per apply_schema_mapping
// invocation so the regex compilation cost is paid once per file batch.
type Crosswalk struct {
	mappings []Mapping
}

// Load reads a crosswalk CSV with a header row containing at least the
// columns SOURCE_SCHEMA and TARGET_DB_SCHEMA (any column order, extra
// columns ignored).
func Load(path string) (*Crosswalk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open crosswalk %s: %w", path, err)
	}
	defer f.Close()

	return LoadReader(f)
}

// LoadReader parses a crosswalk CSV from r.
func LoadReader(r io.Reader) (*Crosswalk, error) {
	reader := csv.NewReader(r)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse crosswalk csv: %w", err)
	}
	if len(rows) == 0 {
		return &Crosswalk{}, nil
	}

	header := rows[0]
	sourceIdx, targetIdx := -1, -1
	for i, col := range header {
		switch strings.ToUpper(strings.TrimSpace(col)) {
		case "SOURCE_SCHEMA":
			sourceIdx = i
		case "TARGET_DB_SCHEMA":
			targetIdx = i
		}
	}
	if sourceIdx < 0 || targetIdx < 0 {
		return nil, fmt.Errorf("crosswalk csv missing SOURCE_SCHEMA/TARGET_DB_SCHEMA columns")
	}

	cw := &Crosswalk{}
	for _, row := range rows[1:] {
		if sourceIdx >= len(row) || targetIdx >= len(row) {
			continue
		}
		source := strings.TrimSpace(row[sourceIdx])
		target := strings.TrimSpace(row[targetIdx])
		if source == "" {
			continue
		}

		// Word-boundary + a required trailing "." — matches only schema
		// qualifiers (SCHEMA.TABLE), not bare identifiers that merely share
		// the schema's name. Go's regexp has no lookahead, so the dot is part
		// of the match and Apply writes it back after the target.
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(source) + `\.`)
		if err != nil {
			return nil, fmt.Errorf("compile pattern for %s: %w", source, err)
		}

		cw.mappings = append(cw.mappings, Mapping{
			SourceSchema:   source,
			TargetDBSchema: target,
			pattern:        pattern,
		})
	}

	return cw, nil
}

// Summary reports how many qualifier occurrences were matched and replaced
// for one Apply call.
type Summary struct {
	MatchCount       int
	ReplacementCount int
}

// Apply rewrites every schema qualifier occurrence in sql per the loaded
// mapping rows, returning the rewritten text and a match/replacement summary.
func (c *Crosswalk) Apply(sql string) (string, Summary) {
	var summary Summary

	for _, m := range c.mappings {
		matches := m.pattern.FindAllStringIndex(sql, -1)
		summary.MatchCount += len(matches)
		if len(matches) == 0 {
			continue
		}
		sql = m.pattern.ReplaceAllLiteralString(sql, m.TargetDBSchema+".")
		summary.ReplacementCount += len(matches)
	}

	return sql, summary
}
