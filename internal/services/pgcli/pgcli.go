// Package pgcli runs the PostgreSQL client tools as child processes.
package pgcli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	"github.com/fgeck/pg-mirror/internal/models"
)

// PostgreSQL client tool names.
const (
	ToolDump    = "pg_dump"
	ToolRestore = "pg_restore"
	ToolQuery   = "psql"
)

// RequiredTools lists every executable a mirror run depends on, in check order.
var RequiredTools = []string{ToolDump, ToolRestore, ToolQuery}

// PasswordEnvVar carries the password into a single child process.
const PasswordEnvVar = "PGPASSWORD"

// AdminDatabase is the maintenance database used for catalog queries and
// CREATE/DROP DATABASE statements.
const AdminDatabase = "postgres"

// Result holds the captured output of a finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int // -1 if the process could not be started
}

// Executor allows mocking exec.Command in tests.
type Executor interface {
	Execute(ctx context.Context, env []string, name string, args ...string) (*Result, error)
}

// DefaultExecutor is the default command executor using os/exec.
type DefaultExecutor struct{}

// Execute runs a command with the parent environment extended by env.
// The returned error is non-nil if the command could not be started or
// exited with a non-zero status; the Result is always populated.
func (e *DefaultExecutor) Execute(ctx context.Context, env []string, name string, args ...string) (*Result, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(os.Environ(), env...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return result, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, fmt.Errorf("%s exited with code %d: %w", name, result.ExitCode, err)
	}

	result.ExitCode = -1
	return result, fmt.Errorf("failed to run %s: %w", name, err)
}

// ConnArgs builds the connection flags shared by all client tools.
func ConnArgs(conn models.ConnectionSpec, database string) []string {
	return []string{
		"-h", conn.Host,
		"-p", strconv.Itoa(conn.Port),
		"-U", conn.User,
		"-d", database,
	}
}

// PasswordEnv returns the environment overlay for one child process.
func PasswordEnv(password string) []string {
	if password == "" {
		return nil
	}
	return []string{fmt.Sprintf("%s=%s", PasswordEnvVar, password)}
}

// Diagnostics returns the most useful text from a failed command.
func Diagnostics(result *Result, err error) string {
	if result != nil && result.Stderr != "" {
		return result.Stderr
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
