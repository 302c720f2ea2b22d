// Package models contains the data structures used throughout pg-mirror.
package models

import "time"

// MirrorConfig holds the complete configuration for a mirroring run.
type MirrorConfig struct {
	Source   ConnectionSpec
	Target   ConnectionSpec
	Options  MirrorOptions
	WOL      *WOLConfig      // nil if not configured
	Telegram *TelegramConfig // nil if not configured
}

// Database returns the database name used on both servers.
// The target always inherits the source database name.
func (c MirrorConfig) Database() string {
	return c.Source.Database
}

// ConnectionSpec holds the connection parameters of one PostgreSQL server.
type ConnectionSpec struct {
	Host     string
	Port     int
	Database string // optional on target, ignored by the mirror
	User     string
	Password string
}

// MirrorOptions holds mirroring behavior switches.
type MirrorOptions struct {
	DropExisting bool
	ParallelJobs int
}

// RunOptions holds per-invocation flags that are not part of the config file.
type RunOptions struct {
	SkipChecks bool
	Verbose    bool
}

// WOLConfig holds Wake-on-LAN configuration for the target server.
type WOLConfig struct {
	MACAddress    string
	BroadcastIP   string
	Timeout       time.Duration // max time to wait for the target port
	PollInterval  time.Duration // how often to dial the target port
	StabilizeWait time.Duration // wait after the port accepts connections
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	BotToken string
	ChatID   string
}
