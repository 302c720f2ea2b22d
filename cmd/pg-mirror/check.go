package main

import (
	"github.com/fgeck/pg-mirror/internal/services/system"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that the PostgreSQL client tools are installed",
	Long:  `Probe pg_dump, pg_restore and psql and print their versions without touching any database.`,
	RunE:  checkTools,
}

func checkTools(cmd *cobra.Command, args []string) error {
	// Verbose verification renders the installation guide on failure.
	systemSvc := system.New(log.Logger, cmd.OutOrStdout())
	if err := systemSvc.Verify(cmd.Context(), true); err != nil {
		log.Error().Err(err).Msg("system check failed")
		return err
	}

	return nil
}
