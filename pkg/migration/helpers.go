package migration

import (
	"bufio"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// PTYWriter is the subset of ptyio.Session the stage nodes need to echo
// command lines and output back to the terminal. Tests substitute a no-op
// or recording implementation.
type PTYWriter interface {
	Write(p []byte) (int, error)
}

// LogEvent appends a structured activity entry and, if a sink is wired,
// forwards it — the Go equivalent of the Python log_event helper, which
// fans events out to the SSE stream via state.activity_log_sink.
func LogEvent(c *Context, level, message string, data map[string]any) {
	entry := ActivityLogEntry{
		Timestamp: time.Now(),
		Level:     level,
		Message:   message,
		Stage:     c.CurrentStage,
		Data:      data,
	}
	c.ActivityLog = append(c.ActivityLog, entry)
	if c.ActivityLogSink != nil {
		c.ActivityLogSink(entry)
	}
}

// IsErrorState reports whether the workflow has already failed.
func IsErrorState(c *Context) bool {
	return c.CurrentStage == StageError
}

// PTYEcho writes a line to the PTY session if one is attached. A nil writer
// (no session registered, e.g. in tests) is a silent no-op, matching the
// original's try/except-around-get_session behavior.
func PTYEcho(w PTYWriter, text string) {
	if w == nil {
		return
	}
	_, _ = w.Write([]byte(text + "\r\n"))
}

// sqlFileExtensions matches the original's read_sql_files/list_sql_files
// filter: .sql, .ddl, .btq, .txt, case-insensitive.
var sqlFileExtensions = map[string]bool{
	".sql": true, ".ddl": true, ".btq": true, ".txt": true,
}

// ReadSQLFiles concatenates every SQL-like file under directory into one
// string, each preceded by a "-- FILE: <name>" marker, matching the
// original's read_sql_files.
func ReadSQLFiles(directory string) string {
	files := ListSQLFiles(directory)
	var b strings.Builder
	for _, path := range files {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		b.WriteString("-- FILE: ")
		b.WriteString(filepath.Base(path))
		b.WriteString("\n")
		b.Write(content)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// ListSQLFiles returns sorted SQL-like file paths under directory.
func ListSQLFiles(directory string) []string {
	if directory == "" {
		return nil
	}
	info, err := os.Stat(directory)
	if err != nil || !info.IsDir() {
		return nil
	}

	var files []string
	_ = filepath.Walk(directory, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if sqlFileExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files
}

// lineScanner splits text, with surrounding whitespace trimmed, into lines
// (blank lines in between are kept, lines are not trimmed), used to echo
// subprocess output line-by-line to the PTY the way run_subprocess_with_echo
// does.
func lineScanner(text string) []string {
	var lines []string
	scanner := bufio.NewScanner(strings.NewReader(strings.TrimSpace(text)))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
