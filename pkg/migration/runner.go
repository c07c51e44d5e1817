package migration

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// CLIResult mirrors subprocess.CompletedProcess: the pieces the scai node
// functions need to decide success/failure and what to echo.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CLIRunner executes the external scai binary. pkg/scaicli provides the
// production implementation backed by os/exec; tests substitute a fake.
type CLIRunner interface {
	Run(ctx context.Context, args []string, dir string, timeout time.Duration) (CLIResult, error)
}

// runWithEcho runs cmd via runner, echoing the command line and its output
// to the PTY, mirroring run_subprocess_with_echo.
func runWithEcho(ctx context.Context, runner CLIRunner, pty PTYWriter, args []string, dir string, timeout time.Duration) (CLIResult, error) {
	PTYEcho(pty, "$ scai "+strings.Join(args, " "))

	result, err := runner.Run(ctx, args, dir, timeout)
	if err != nil {
		PTYEcho(pty, fmt.Sprintf("[ERROR] Failed to run command: %v", err))
		return result, err
	}

	for _, line := range lineScanner(result.Stdout) {
		PTYEcho(pty, line)
	}
	for _, line := range lineScanner(result.Stderr) {
		PTYEcho(pty, "[stderr] "+line)
	}
	return result, nil
}
