package main

import (
	"fmt"
	"io"

	"github.com/fgeck/pg-mirror/internal/models"
)

// printSummary writes the loaded configuration without secrets.
func printSummary(w io.Writer, cfg *models.MirrorConfig) {
	fmt.Fprintln(w, "Summary:")
	fmt.Fprintf(w, "  Database: %s\n", cfg.Database())
	fmt.Fprintf(w, "  Source: %s@%s:%d\n", cfg.Source.User, cfg.Source.Host, cfg.Source.Port)
	fmt.Fprintf(w, "  Target: %s@%s:%d\n", cfg.Target.User, cfg.Target.Host, cfg.Target.Port)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Options:")
	fmt.Fprintf(w, "  Drop existing: %v\n", cfg.Options.DropExisting)
	fmt.Fprintf(w, "  Parallel jobs: %d\n", cfg.Options.ParallelJobs)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Optional Features:")
	fmt.Fprintf(w, "  Wake-on-LAN: %v\n", cfg.WOL != nil)
	fmt.Fprintf(w, "  Telegram: %v\n", cfg.Telegram != nil)

	if cfg.WOL != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "WOL Configuration:")
		fmt.Fprintf(w, "  MAC Address: %s\n", cfg.WOL.MACAddress)
		fmt.Fprintf(w, "  Broadcast IP: %s\n", cfg.WOL.BroadcastIP)
		fmt.Fprintf(w, "  Timeout: %s\n", cfg.WOL.Timeout)
	}

	if cfg.Telegram != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Telegram Configuration:")
		fmt.Fprintf(w, "  Chat ID: %s\n", cfg.Telegram.ChatID)
		fmt.Fprintf(w, "  Bot Token: (configured)\n")
	}
}
