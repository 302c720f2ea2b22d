// Package database checks for, creates and recreates the target database.
//
// Database names are interpolated into the SQL text sent to psql. A name
// containing quotes changes the statement; callers must only pass names
// taken from trusted configuration.
package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fgeck/pg-mirror/internal/models"
	"github.com/fgeck/pg-mirror/internal/services/pgcli"
	"github.com/rs/zerolog"
)

// existsSentinel is the row selected when the database exists.
const existsSentinel = "1"

var (
	// ErrCreateFailed is returned when CREATE DATABASE fails.
	ErrCreateFailed = errors.New("failed to create database")
	// ErrRecreateFailed is returned when DROP or CREATE fails during a recreate.
	ErrRecreateFailed = errors.New("failed to recreate database")
)

// Service defines the interface for target database lifecycle operations.
type Service interface {
	Exists(ctx context.Context, conn models.ConnectionSpec, database string) bool
	Create(ctx context.Context, conn models.ConnectionSpec, database string) error
	DropAndRecreate(ctx context.Context, conn models.ConnectionSpec, database string) error
}

// Impl implements the database Service interface.
type Impl struct {
	executor pgcli.Executor
	logger   zerolog.Logger
}

// New creates a new database service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		executor: &pgcli.DefaultExecutor{},
		logger:   logger,
	}
}

// NewWithExecutor creates a new database service with a custom executor (for testing).
func NewWithExecutor(logger zerolog.Logger, executor pgcli.Executor) *Impl {
	return &Impl{
		executor: executor,
		logger:   logger,
	}
}

func existsQuery(database string) string {
	return fmt.Sprintf("SELECT 1 FROM pg_database WHERE datname='%s';", database)
}

func createStatement(database string) string {
	return fmt.Sprintf(`CREATE DATABASE "%s";`, database)
}

func dropStatement(database string) string {
	return fmt.Sprintf(`DROP DATABASE IF EXISTS "%s";`, database)
}

func terminateStatement(database string) string {
	return fmt.Sprintf(`SELECT pg_terminate_backend(pg_stat_activity.pid)
FROM pg_stat_activity
WHERE pg_stat_activity.datname = '%s'
AND pid <> pg_backend_pid();`, database)
}

// psql runs one statement against the administrative database.
func (s *Impl) psql(ctx context.Context, conn models.ConnectionSpec, flag, sql string) (*pgcli.Result, error) {
	args := pgcli.ConnArgs(conn, pgcli.AdminDatabase)
	args = append(args, flag, sql)
	return s.executor.Execute(ctx, pgcli.PasswordEnv(conn.Password), pgcli.ToolQuery, args...)
}

// Exists reports whether database exists on the server. Any failure to
// run the query is logged and reported as "does not exist".
func (s *Impl) Exists(ctx context.Context, conn models.ConnectionSpec, database string) bool {
	result, err := s.psql(ctx, conn, "-tAc", existsQuery(database))
	if err != nil {
		s.logger.Error().
			Err(err).
			Str("database", database).
			Str("stderr", pgcli.Diagnostics(result, err)).
			Msg("failed to check database existence")
	}

	exists := result != nil && strings.TrimSpace(result.Stdout) == existsSentinel
	s.logger.Debug().Str("database", database).Bool("exists", exists).Msg("database existence checked")
	return exists
}

// Create issues CREATE DATABASE.
func (s *Impl) Create(ctx context.Context, conn models.ConnectionSpec, database string) error {
	result, err := s.psql(ctx, conn, "-c", createStatement(database))
	if err != nil {
		diag := strings.TrimSpace(pgcli.Diagnostics(result, err))
		s.logger.Error().Str("database", database).Str("stderr", diag).Msg("failed to create database")
		return fmt.Errorf("%w %q: %s", ErrCreateFailed, database, diag)
	}

	s.logger.Info().Str("database", database).Msg("database created")
	return nil
}

// DropAndRecreate terminates other sessions, drops and creates database.
// Termination is best effort; a failing DROP or CREATE is returned.
func (s *Impl) DropAndRecreate(ctx context.Context, conn models.ConnectionSpec, database string) error {
	s.logger.Debug().Str("database", database).Msg("terminating existing connections")
	if result, err := s.psql(ctx, conn, "-c", terminateStatement(database)); err != nil {
		s.logger.Debug().
			Err(err).
			Str("stderr", pgcli.Diagnostics(result, err)).
			Msg("terminating connections failed, continuing")
	}

	s.logger.Debug().Str("database", database).Msg("dropping database")
	if result, err := s.psql(ctx, conn, "-c", dropStatement(database)); err != nil {
		diag := strings.TrimSpace(pgcli.Diagnostics(result, err))
		s.logger.Error().Str("database", database).Str("stderr", diag).Msg("failed to drop database")
		return fmt.Errorf("%w %q: drop: %s", ErrRecreateFailed, database, diag)
	}

	s.logger.Debug().Str("database", database).Msg("creating database")
	if result, err := s.psql(ctx, conn, "-c", createStatement(database)); err != nil {
		diag := strings.TrimSpace(pgcli.Diagnostics(result, err))
		s.logger.Error().Str("database", database).Str("stderr", diag).Msg("failed to create database")
		return fmt.Errorf("%w %q: create: %s", ErrRecreateFailed, database, diag)
	}

	s.logger.Info().Str("database", database).Msg("database recreated")
	return nil
}
