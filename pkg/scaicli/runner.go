// Package scaicli is the thin wrapper around the external scai migration
// CLI, the direct Go analogue of subprocess.run(capture_output=True,
// text=True, timeout=...) in the original orchestrator.
package scaicli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/scaiflow/orchestrator/pkg/migration"
)

// ExecRunner runs scai via os/exec, satisfying migration.CLIRunner.
type ExecRunner struct {
	Binary string
}

// NewExecRunner returns a runner that invokes the named scai binary
// ("scai" if binary is empty).
func NewExecRunner(binary string) *ExecRunner {
	if binary == "" {
		binary = "scai"
	}
	return &ExecRunner{Binary: binary}
}

// Run invokes the scai binary with args in dir, bounded by timeout.
func (r *ExecRunner) Run(ctx context.Context, args []string, dir string, timeout time.Duration) (migration.CLIResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.Binary, args...)
	cmd.Dir = dir

	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := migration.CLIResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if exitErr, ok := err.(*exec.ExitError); ok {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("run %s %v: %w", r.Binary, args, err)
	}
	return result, nil
}
