// Package config provides configuration file parsing.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fgeck/pg-mirror/internal/models"
	"github.com/spf13/viper"
)

// Defaults applied when the document omits a field.
const (
	DefaultPort         = 5432
	DefaultParallelJobs = 4
)

var (
	// ErrNotFound is returned when the config file cannot be read.
	ErrNotFound = errors.New("config file not found")
	// ErrMalformed is returned when the config document is not valid JSON.
	ErrMalformed = errors.New("config file is malformed")
)

// InvalidError names the first missing or invalid configuration field.
type InvalidError struct {
	Field  string
	Reason string
}

func (e *InvalidError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid configuration: %s is required", e.Field)
	}
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// requiredFields lists the mandatory keys in the order they are checked.
var requiredFields = []string{
	"source.host",
	"source.database",
	"source.user",
	"source.password",
	"target.host",
	"target.user",
	"target.password",
}

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("json")
	return &Parser{v: v}
}

// LoadFile loads configuration from a file path.
func (p *Parser) LoadFile(path string) (*models.MirrorConfig, error) {
	content, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotFound, path, err)
	}

	return p.load(content)
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.MirrorConfig, error) {
	return p.load([]byte(content))
}

func (p *Parser) load(content []byte) (*models.MirrorConfig, error) {
	if err := p.v.ReadConfig(bytes.NewReader(content)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.MirrorConfig, error) {
	for _, key := range requiredFields {
		if !p.v.IsSet(key) {
			return nil, &InvalidError{Field: key}
		}
	}

	cfg := &models.MirrorConfig{
		Source: p.connection("source"),
		Target: p.connection("target"),
		Options: models.MirrorOptions{
			DropExisting: p.v.GetBool("options.drop_existing"),
			ParallelJobs: DefaultParallelJobs,
		},
	}

	if p.v.IsSet("options.parallel_jobs") {
		cfg.Options.ParallelJobs = p.v.GetInt("options.parallel_jobs")
	}

	// Parse optional WOL config.
	if p.v.IsSet("wake_on_lan") {
		cfg.WOL = &models.WOLConfig{
			MACAddress:    p.v.GetString("wake_on_lan.mac_address"),
			BroadcastIP:   p.v.GetString("wake_on_lan.broadcast_ip"),
			Timeout:       p.v.GetDuration("wake_on_lan.timeout"),
			PollInterval:  p.v.GetDuration("wake_on_lan.poll_interval"),
			StabilizeWait: p.v.GetDuration("wake_on_lan.stabilize_wait"),
		}

		if cfg.WOL.MACAddress == "" {
			return nil, &InvalidError{Field: "wake_on_lan.mac_address", Reason: "is required when wake_on_lan is configured"}
		}

		if cfg.WOL.BroadcastIP == "" {
			cfg.WOL.BroadcastIP = "255.255.255.255"
		}
		if cfg.WOL.Timeout == 0 {
			cfg.WOL.Timeout = 5 * time.Minute
		}
		if cfg.WOL.PollInterval == 0 {
			cfg.WOL.PollInterval = 10 * time.Second
		}
		if cfg.WOL.StabilizeWait == 0 {
			cfg.WOL.StabilizeWait = 10 * time.Second
		}
	}

	// Parse optional Telegram config.
	if p.v.IsSet("telegram") {
		cfg.Telegram = &models.TelegramConfig{
			BotToken: p.v.GetString("telegram.bot_token"),
			ChatID:   p.v.GetString("telegram.chat_id"),
		}

		if cfg.Telegram.BotToken == "" {
			return nil, &InvalidError{Field: "telegram.bot_token", Reason: "is required when telegram is configured"}
		}
		if cfg.Telegram.ChatID == "" {
			return nil, &InvalidError{Field: "telegram.chat_id", Reason: "is required when telegram is configured"}
		}
	}

	return cfg, nil
}

func (p *Parser) connection(section string) models.ConnectionSpec {
	conn := models.ConnectionSpec{
		Host:     p.v.GetString(section + ".host"),
		Port:     DefaultPort,
		Database: p.v.GetString(section + ".database"),
		User:     p.v.GetString(section + ".user"),
		Password: p.v.GetString(section + ".password"),
	}

	if p.v.IsSet(section + ".port") {
		conn.Port = p.v.GetInt(section + ".port")
	}

	return conn
}

// Validate performs semantic validation on a loaded configuration,
// including values overridden from the command line.
func Validate(cfg *models.MirrorConfig) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if strings.TrimSpace(cfg.Source.Database) == "" {
		return &InvalidError{Field: "source.database", Reason: "must not be empty"}
	}

	for _, c := range []struct {
		key  string
		port int
	}{
		{"source.port", cfg.Source.Port},
		{"target.port", cfg.Target.Port},
	} {
		if c.port < 1 || c.port > 65535 {
			return &InvalidError{Field: c.key, Reason: fmt.Sprintf("must be between 1 and 65535, got %d", c.port)}
		}
	}

	if cfg.Options.ParallelJobs < 1 {
		return &InvalidError{Field: "options.parallel_jobs", Reason: fmt.Sprintf("must be at least 1, got %d", cfg.Options.ParallelJobs)}
	}

	return nil
}
