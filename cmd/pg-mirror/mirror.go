package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/fgeck/pg-mirror/internal/config"
	"github.com/fgeck/pg-mirror/internal/models"
	"github.com/fgeck/pg-mirror/internal/services/mirror"
	"github.com/fgeck/pg-mirror/internal/services/system"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	jobs         int
	dropExisting bool
	skipChecks   bool
)

var mirrorCmd = &cobra.Command{
	Use:   "mirror",
	Short: "Mirror the source database to the target server",
	Long: `Execute the complete mirroring workflow:
1. Verify pg_dump, pg_restore and psql are installed (unless --skip-checks)
2. Wake-on-LAN the target (if configured)
3. Back up the source database with pg_dump
4. Create the target database, or drop and recreate it with --drop-existing
5. Restore the backup with pg_restore
6. Remove the temporary backup file
7. Send Telegram notification (if configured)`,
	RunE: runMirror,
}

func init() {
	mirrorCmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "parallel restore jobs (overrides config)")
	mirrorCmd.Flags().BoolVar(&dropExisting, "drop-existing", false, "drop and recreate the target database if it exists")
	mirrorCmd.Flags().BoolVar(&skipChecks, "skip-checks", false, "skip PostgreSQL client tool checks")
}

// applyOverrides copies explicitly set command line flags onto cfg.
func applyOverrides(cmd *cobra.Command, cfg *models.MirrorConfig) {
	if cmd.Flags().Changed("jobs") {
		cfg.Options.ParallelJobs = jobs
	}
	if cmd.Flags().Changed("drop-existing") {
		cfg.Options.DropExisting = dropExisting
	}
}

func runMirror(cmd *cobra.Command, args []string) error {
	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	applyOverrides(cmd, cfg)

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	printSummary(cmd.OutOrStdout(), cfg)

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
			cancel()
		case <-ctx.Done():
		}
	}()

	// Run mirror
	mirrorSvc := mirror.New(log.Logger, cmd.OutOrStdout())
	result, err := mirrorSvc.Run(ctx, *cfg, models.RunOptions{
		SkipChecks: skipChecks,
		Verbose:    verbose,
	})
	if err != nil {
		var missing *system.MissingToolsError
		if errors.As(err, &missing) && !verbose {
			system.New(log.Logger, cmd.OutOrStdout()).PrintInstallationHelp()
		}
		log.Error().Err(err).Msg("mirror failed")
		return err
	}

	log.Info().
		Str("run_id", result.RunID).
		Str("restore", result.Outcome.Status.String()).
		Dur("duration", result.Duration).
		Msg("mirror completed successfully")
	return nil
}
