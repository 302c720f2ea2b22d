// Package backup produces compressed pg_dump artifacts of the source database.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/pg-mirror/internal/models"
	"github.com/fgeck/pg-mirror/internal/services/pgcli"
	"github.com/rs/zerolog"
)

// Dump settings: custom format at compression level 6 of 0-9.
const (
	ArtifactSuffix   = ".dump"
	CompressionLevel = "6"
)

// FailedError is returned when pg_dump fails. The partial artifact has
// already been removed when this error is returned.
type FailedError struct {
	Diagnostics string
	Err         error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("backup failed: %s", strings.TrimSpace(e.Diagnostics))
}

func (e *FailedError) Unwrap() error {
	return e.Err
}

// Service defines the interface for backup operations.
type Service interface {
	CreateBackup(ctx context.Context, conn models.ConnectionSpec) (*models.BackupArtifact, error)
	Cleanup(artifact *models.BackupArtifact)
}

// Impl implements the backup Service interface.
type Impl struct {
	executor pgcli.Executor
	logger   zerolog.Logger
	tempDir  string
}

// New creates a new backup service writing artifacts to the system temp dir.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &pgcli.DefaultExecutor{},
		logger:   logger,
		tempDir:  os.TempDir(),
	}
}

// NewWithExecutor creates a new backup service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor pgcli.Executor, tempDir string) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
		tempDir:  tempDir,
	}
}

// CreateBackup dumps conn.Database into a uniquely named temporary file.
func (s *Impl) CreateBackup(ctx context.Context, conn models.ConnectionSpec) (*models.BackupArtifact, error) {
	start := time.Now()

	path, err := s.allocate(conn.Database)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("host", conn.Host).
		Int("port", conn.Port).
		Str("database", conn.Database).
		Msg("creating backup")
	s.logger.Debug().Str("output", path).Msg("using temporary file")

	args := pgcli.ConnArgs(conn, conn.Database)
	args = append(args,
		"-Fc",
		"-Z", CompressionLevel,
		"-b",
		"-v",
		"-f", path,
	)

	result, execErr := s.executor.Execute(ctx, pgcli.PasswordEnv(conn.Password), pgcli.ToolDump, args...)
	if execErr != nil {
		// Clean up partial file
		s.remove(path)
		failed := &FailedError{
			Diagnostics: pgcli.Diagnostics(result, execErr),
			Err:         execErr,
		}
		s.logger.Error().Str("stderr", failed.Diagnostics).Msg("pg_dump failed")
		return nil, failed
	}

	artifact := &models.BackupArtifact{
		Path:     path,
		Duration: time.Since(start),
	}
	if info, err := os.Stat(path); err == nil {
		artifact.SizeBytes = info.Size()
	}

	s.logger.Info().
		Str("output", artifact.Path).
		Int64("size_bytes", artifact.SizeBytes).
		Str("size", fmt.Sprintf("%.2f MB", float64(artifact.SizeBytes)/(1024*1024))).
		Dur("duration", artifact.Duration).
		Msg("backup created")

	return artifact, nil
}

// allocate reserves a unique artifact path. The file exists but is empty.
func (s *Impl) allocate(database string) (string, error) {
	f, err := os.CreateTemp(s.tempDir, database+"_*"+ArtifactSuffix)
	if err != nil {
		return "", fmt.Errorf("failed to allocate backup file: %w", err)
	}
	path := f.Name()
	if err := f.Close(); err != nil {
		s.remove(path)
		return "", fmt.Errorf("failed to allocate backup file: %w", err)
	}
	return path, nil
}

// Cleanup removes the artifact. It is safe to call more than once.
func (s *Impl) Cleanup(artifact *models.BackupArtifact) {
	if artifact == nil || artifact.Path == "" {
		return
	}
	if s.remove(artifact.Path) {
		s.logger.Info().Str("path", artifact.Path).Msg("temporary backup removed")
	}
}

func (s *Impl) remove(path string) bool {
	err := os.Remove(path)
	if err == nil {
		return true
	}
	if !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Err(err).Str("path", path).Msg("failed to remove backup file")
	}
	return false
}
