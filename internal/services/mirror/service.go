// Package mirror orchestrates one backup-then-restore mirroring run.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/fgeck/pg-mirror/internal/models"
	"github.com/fgeck/pg-mirror/internal/services/backup"
	"github.com/fgeck/pg-mirror/internal/services/database"
	"github.com/fgeck/pg-mirror/internal/services/restore"
	"github.com/fgeck/pg-mirror/internal/services/system"
	"github.com/fgeck/pg-mirror/internal/services/telegram"
	"github.com/fgeck/pg-mirror/internal/services/wol"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Stage names one state of a mirroring run.
type Stage string

// Run stages in the order they are entered.
const (
	StageInit            Stage = "init"
	StageVerifying       Stage = "verifying"
	StageWaking          Stage = "waking"
	StageBackingUp       Stage = "backing_up"
	StagePreparingTarget Stage = "preparing_target"
	StageRestoring       Stage = "restoring"
	StageCleaningUp      Stage = "cleaning_up"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// ErrRestoreFailed is returned when pg_restore reported errors.
var ErrRestoreFailed = errors.New("restore failed")

// Service defines the interface for the mirror orchestrator.
type Service interface {
	Run(ctx context.Context, cfg models.MirrorConfig, opts models.RunOptions) (*models.MirrorResult, error)
}

// Impl implements the mirror Service interface.
type Impl struct {
	systemSvc   system.Service
	backupSvc   backup.Service
	databaseSvc database.Service
	restoreSvc  restore.Service
	wolSvc      wol.Service
	telegramSvc telegram.Service
	logger      zerolog.Logger
}

// New creates a new mirror service. System check reports are written to out.
func New(logger zerolog.Logger, out io.Writer) *Impl {
	return &Impl{
		systemSvc:   system.New(logger, out),
		backupSvc:   backup.New(logger),
		databaseSvc: database.New(logger),
		restoreSvc:  restore.New(logger),
		wolSvc:      wol.New(logger),
		telegramSvc: telegram.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new mirror service with custom services (for testing).
func NewWithServices(
	logger zerolog.Logger,
	systemSvc system.Service,
	backupSvc backup.Service,
	databaseSvc database.Service,
	restoreSvc restore.Service,
	wolSvc wol.Service,
	telegramSvc telegram.Service,
) *Impl {
	return &Impl{
		systemSvc:   systemSvc,
		backupSvc:   backupSvc,
		databaseSvc: databaseSvc,
		restoreSvc:  restoreSvc,
		wolSvc:      wolSvc,
		telegramSvc: telegramSvc,
		logger:      logger,
	}
}

// DecideTargetAction maps the existence check and drop flag to an action.
func DecideTargetAction(exists, dropExisting bool) models.TargetAction {
	switch {
	case exists && dropExisting:
		return models.TargetActionRecreate
	case exists:
		return models.TargetActionNone
	default:
		return models.TargetActionCreate
	}
}

// Run executes one mirroring run. The backup artifact is removed before Run
// returns on every path after it was created. A restore classified as a
// failure is returned as ErrRestoreFailed together with the result.
//
//nolint:gocognit,gocyclo // mirror workflow has multiple steps by design
func (s *Impl) Run(ctx context.Context, cfg models.MirrorConfig, opts models.RunOptions) (*models.MirrorResult, error) {
	startTime := time.Now()
	result := &models.MirrorResult{
		RunID:    uuid.NewString(),
		Database: cfg.Database(),
		Stage:    string(StageInit),
	}
	log := s.logger.With().Str("run_id", result.RunID).Str("database", result.Database).Logger()

	var failedStage string
	var runErr error
	fail := func(err error) (*models.MirrorResult, error) {
		failedStage = result.Stage
		runErr = err
		return result, err
	}
	enter := func(stage Stage) {
		result.Stage = string(stage)
		log.Debug().Str("stage", result.Stage).Msg("entering stage")
	}

	log.Info().
		Str("source", cfg.Source.Host).
		Str("target", cfg.Target.Host).
		Int("jobs", cfg.Options.ParallelJobs).
		Bool("drop_existing", cfg.Options.DropExisting).
		Msg("starting mirror run")

	defer func() {
		result.Duration = time.Since(startTime)
		if runErr != nil {
			result.Stage = string(StageFailed)
		} else {
			result.Stage = string(StageDone)
		}

		if cfg.Telegram != nil {
			s.sendNotification(ctx, log, cfg, result, startTime, failedStage, runErr)
		}
	}()

	// Step 1: Verify client tools (unless skipped)
	if opts.SkipChecks {
		log.Warn().Msg("skipping PostgreSQL client tool checks")
	} else {
		enter(StageVerifying)
		if err := s.systemSvc.Verify(ctx, opts.Verbose); err != nil {
			return fail(fmt.Errorf("system check failed: %w", err))
		}
		log.Info().Msg("all required client tools are installed")
	}

	// Step 2: Wake the target server (if configured)
	if cfg.WOL != nil {
		enter(StageWaking)
		if err := s.runWOL(ctx, log, cfg); err != nil {
			return fail(err)
		}
	}

	// Step 3: Backup the source database
	enter(StageBackingUp)
	artifact, err := s.backupSvc.CreateBackup(ctx, cfg.Source)
	if err != nil {
		return fail(err)
	}
	result.Artifact = artifact
	defer func() {
		log.Debug().Str("stage", string(StageCleaningUp)).Msg("entering stage")
		s.backupSvc.Cleanup(artifact)
	}()

	// Step 4: Prepare the target database
	enter(StagePreparingTarget)
	db := cfg.Database()
	exists := s.databaseSvc.Exists(ctx, cfg.Target, db)
	result.TargetAction = DecideTargetAction(exists, cfg.Options.DropExisting)

	switch result.TargetAction {
	case models.TargetActionRecreate:
		log.Warn().Msg("target database exists, recreating")
		if err := s.databaseSvc.DropAndRecreate(ctx, cfg.Target, db); err != nil {
			return fail(err)
		}
	case models.TargetActionCreate:
		log.Info().Msg("target database does not exist, creating")
		if err := s.databaseSvc.Create(ctx, cfg.Target, db); err != nil {
			return fail(err)
		}
	case models.TargetActionNone:
		log.Info().Msg("target database exists, restoring into it")
	}

	// Step 5: Restore into the target
	enter(StageRestoring)
	outcome := s.restoreSvc.Restore(ctx, *artifact, cfg.Target, db, cfg.Options.ParallelJobs)
	result.Outcome = outcome

	if !outcome.Succeeded() {
		return fail(fmt.Errorf("%w: %s", ErrRestoreFailed, strings.TrimSpace(outcome.Diagnostics)))
	}

	log.Info().
		Str("restore", outcome.Status.String()).
		Int64("size_bytes", artifact.SizeBytes).
		Dur("duration", time.Since(startTime)).
		Msg("mirror run completed successfully")

	return result, nil
}

func (s *Impl) runWOL(ctx context.Context, log zerolog.Logger, cfg models.MirrorConfig) error {
	addr := net.JoinHostPort(cfg.Target.Host, strconv.Itoa(cfg.Target.Port))

	wolResult, err := s.wolSvc.Wake(ctx, *cfg.WOL, addr)
	if err != nil {
		return fmt.Errorf("WOL failed: %w", err)
	}
	if wolResult.Error != nil {
		return fmt.Errorf("WOL failed: %w", wolResult.Error)
	}
	if !wolResult.TargetReady {
		return fmt.Errorf("target %s did not become ready after WOL", addr)
	}

	log.Info().
		Bool("packet_sent", wolResult.PacketSent).
		Dur("wait_duration", wolResult.WaitDuration).
		Msg("WOL completed")

	return nil
}

func (s *Impl) sendNotification(
	ctx context.Context,
	log zerolog.Logger,
	cfg models.MirrorConfig,
	result *models.MirrorResult,
	startTime time.Time,
	failedStage string,
	runErr error,
) {
	msg := models.TelegramMessage{
		Success:      runErr == nil,
		RunID:        result.RunID,
		Database:     result.Database,
		SourceHost:   cfg.Source.Host,
		TargetHost:   cfg.Target.Host,
		StartTime:    startTime,
		Duration:     result.Duration,
		TargetAction: result.TargetAction,
	}

	if result.Artifact != nil {
		msg.ArtifactSize = result.Artifact.SizeBytes
	}
	if result.Outcome != nil {
		msg.RestoreStatus = result.Outcome.Status.String()
	}
	if runErr != nil {
		msg.FailedStage = failedStage
		msg.ErrorMessage = runErr.Error()
	}

	sendResult, err := s.telegramSvc.SendNotification(ctx, *cfg.Telegram, msg)
	if err != nil {
		log.Error().Err(err).Msg("failed to send Telegram notification")
		return
	}
	if sendResult.Error != nil {
		log.Error().Err(sendResult.Error).Msg("failed to send Telegram notification")
		return
	}

	log.Info().Msg("Telegram notification sent")
}
