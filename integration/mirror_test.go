//go:build integration

package integration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/fgeck/pg-mirror/internal/models"
	"github.com/fgeck/pg-mirror/internal/services/backup"
	"github.com/fgeck/pg-mirror/internal/services/database"
	"github.com/fgeck/pg-mirror/internal/services/mirror"
	"github.com/fgeck/pg-mirror/internal/services/pgcli"
	"github.com/fgeck/pg-mirror/internal/services/system"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func getConnection(t *testing.T, prefix string) models.ConnectionSpec {
	t.Helper()

	host := os.Getenv(prefix + "_HOST")
	if host == "" {
		t.Skip(prefix + "_HOST not set")
	}

	portStr := os.Getenv(prefix + "_PORT")
	if portStr == "" {
		portStr = "5432"
	}
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)

	user := os.Getenv(prefix + "_USER")
	if user == "" {
		user = "postgres"
	}

	return models.ConnectionSpec{
		Host:     host,
		Port:     port,
		Database: os.Getenv(prefix + "_DB"),
		User:     user,
		Password: os.Getenv(prefix + "_PASSWORD"),
	}
}

func getMirrorConfig(t *testing.T) models.MirrorConfig {
	t.Helper()

	source := getConnection(t, "TEST_POSTGRES")
	if source.Database == "" {
		t.Skip("TEST_POSTGRES_DB not set")
	}

	return models.MirrorConfig{
		Source:  source,
		Target:  getConnection(t, "TEST_POSTGRES_TARGET"),
		Options: models.MirrorOptions{ParallelJobs: 2},
	}
}

func TestSystemVerify_Integration(t *testing.T) {
	svc := system.New(testLogger(), io.Discard)

	err := svc.Verify(context.Background(), false)
	if err != nil {
		var missing *system.MissingToolsError
		require.True(t, errors.As(err, &missing))
		t.Skipf("client tools not installed: %v", missing.Names)
	}

	for name, status := range svc.ProbeTools(context.Background()) {
		assert.True(t, status.Installed, name)
		assert.NotEmpty(t, status.Version, name)
	}
}

func TestBackup_Integration(t *testing.T) {
	cfg := getMirrorConfig(t)
	tmpDir := t.TempDir()

	svc := backup.NewWithExecutor(testLogger(), &pgcli.DefaultExecutor{}, tmpDir)

	artifact, err := svc.CreateBackup(context.Background(), cfg.Source)

	require.NoError(t, err)
	assert.Greater(t, artifact.SizeBytes, int64(0))
	assert.Greater(t, artifact.Duration, time.Duration(0))
	assert.Equal(t, tmpDir, filepath.Dir(artifact.Path))

	svc.Cleanup(artifact)
	_, err = os.Stat(artifact.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestBackup_InvalidHost_Integration(t *testing.T) {
	tmpDir := t.TempDir()
	conn := models.ConnectionSpec{
		Host:     "invalid-host-that-does-not-exist",
		Port:     5432,
		Database: "testdb",
		User:     "postgres",
	}

	svc := backup.NewWithExecutor(testLogger(), &pgcli.DefaultExecutor{}, tmpDir)

	artifact, err := svc.CreateBackup(context.Background(), conn)

	require.Error(t, err)
	assert.Nil(t, artifact)
	var failed *backup.FailedError
	require.True(t, errors.As(err, &failed))
	assert.NotEmpty(t, failed.Diagnostics)

	// Verify partial file was cleaned up
	entries, err := os.ReadDir(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDatabaseLifecycle_Integration(t *testing.T) {
	cfg := getMirrorConfig(t)
	name := fmt.Sprintf("pg_mirror_it_%d", time.Now().UnixNano())
	ctx := context.Background()

	svc := database.New(testLogger())

	assert.False(t, svc.Exists(ctx, cfg.Target, name))

	require.NoError(t, svc.Create(ctx, cfg.Target, name))
	assert.True(t, svc.Exists(ctx, cfg.Target, name))

	// Creating twice fails.
	assert.ErrorIs(t, svc.Create(ctx, cfg.Target, name), database.ErrCreateFailed)

	require.NoError(t, svc.DropAndRecreate(ctx, cfg.Target, name))
	assert.True(t, svc.Exists(ctx, cfg.Target, name))

	_, err := (&pgcli.DefaultExecutor{}).Execute(ctx, pgcli.PasswordEnv(cfg.Target.Password), pgcli.ToolQuery,
		append(pgcli.ConnArgs(cfg.Target, pgcli.AdminDatabase), "-c", fmt.Sprintf(`DROP DATABASE "%s";`, name))...)
	require.NoError(t, err)
}

func TestMirror_Integration(t *testing.T) {
	cfg := getMirrorConfig(t)
	cfg.Options.DropExisting = true

	svc := mirror.New(testLogger(), io.Discard)

	result, err := svc.Run(context.Background(), cfg, models.RunOptions{})

	require.NoError(t, err)
	assert.NotEmpty(t, result.RunID)
	assert.True(t, result.Outcome.Succeeded())
	assert.Contains(t, []models.TargetAction{models.TargetActionCreate, models.TargetActionRecreate}, result.TargetAction)

	// Artifact is gone after the run.
	_, err = os.Stat(result.Artifact.Path)
	assert.True(t, os.IsNotExist(err))

	// A second run finds the database and recreates it.
	result, err = svc.Run(context.Background(), cfg, models.RunOptions{SkipChecks: true})

	require.NoError(t, err)
	assert.Equal(t, models.TargetActionRecreate, result.TargetAction)
}
