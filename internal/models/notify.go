package models

import "time"

// TelegramMessage holds the data for a mirror notification.
type TelegramMessage struct {
	Success    bool
	RunID      string
	Database   string
	SourceHost string
	TargetHost string
	StartTime  time.Time
	Duration   time.Duration

	// Mirror stats (if a backup was taken).
	ArtifactSize  int64
	TargetAction  TargetAction
	RestoreStatus string

	// Error info (if failed).
	ErrorMessage string
	FailedStage  string
}

// TelegramResult holds the result of a Telegram notification.
type TelegramResult struct {
	MessageSent bool
	Error       error
}

// WOLResult holds the result of a Wake-on-LAN operation.
type WOLResult struct {
	PacketSent   bool
	TargetReady  bool
	WaitDuration time.Duration
	Error        error
}
