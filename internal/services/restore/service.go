// Package restore loads a pg_dump artifact into the target database.
package restore

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/pg-mirror/internal/models"
	"github.com/fgeck/pg-mirror/internal/services/pgcli"
	"github.com/rs/zerolog"
)

// errorMarker in pg_restore diagnostics marks a failed restore.
const errorMarker = "ERROR"

// Service defines the interface for restore operations.
type Service interface {
	Restore(ctx context.Context, artifact models.BackupArtifact, conn models.ConnectionSpec, database string, parallelJobs int) *models.RestoreOutcome
}

// Impl implements the restore Service interface.
type Impl struct {
	executor pgcli.Executor
	logger   zerolog.Logger
}

// New creates a new restore service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &pgcli.DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new restore service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor pgcli.Executor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

// Classify maps a pg_restore exit into an outcome status.
//
// pg_restore exits non-zero for warnings too, so a non-zero exit only counts
// as a failure when the diagnostics contain "ERROR" anywhere. A command that
// never started (exit code -1) is always a failure.
func Classify(exitCode int, diagnostics string) models.RestoreStatus {
	switch {
	case exitCode == 0:
		return models.RestoreSuccess
	case exitCode < 0:
		return models.RestoreFailure
	case strings.Contains(diagnostics, errorMarker):
		return models.RestoreFailure
	default:
		return models.RestoreSuccessWithWarnings
	}
}

// Restore runs pg_restore in parallel without owners or ACLs. Failures are
// reported in the outcome, never as an error.
func (s *Impl) Restore(
	ctx context.Context,
	artifact models.BackupArtifact,
	conn models.ConnectionSpec,
	database string,
	parallelJobs int,
) *models.RestoreOutcome {
	s.logger.Info().
		Str("host", conn.Host).
		Str("database", database).
		Int("jobs", parallelJobs).
		Msg("restoring backup")

	start := time.Now()

	args := pgcli.ConnArgs(conn, database)
	args = append(args,
		"-j", strconv.Itoa(parallelJobs),
		"-v",
		"--no-owner",
		"--no-acl",
		artifact.Path,
	)

	result, err := s.executor.Execute(ctx, pgcli.PasswordEnv(conn.Password), pgcli.ToolRestore, args...)

	outcome := &models.RestoreOutcome{Duration: time.Since(start)}
	exitCode := 0
	if err != nil {
		s.logger.Debug().Err(err).Msg("pg_restore returned an error")
		exitCode = -1
		if result != nil {
			exitCode = result.ExitCode
		}
		outcome.Diagnostics = pgcli.Diagnostics(result, err)
	} else if result != nil {
		outcome.Diagnostics = result.Stderr
	}
	outcome.Status = Classify(exitCode, outcome.Diagnostics)

	switch outcome.Status {
	case models.RestoreSuccess:
		s.logger.Info().Dur("duration", outcome.Duration).Msg("restore completed")
	case models.RestoreSuccessWithWarnings:
		s.logger.Warn().
			Dur("duration", outcome.Duration).
			Str("stderr", outcome.Diagnostics).
			Msg("restore completed with warnings")
	case models.RestoreFailure:
		s.logger.Error().
			Dur("duration", outcome.Duration).
			Str("stderr", outcome.Diagnostics).
			Msg("restore failed")
	}

	return outcome
}
