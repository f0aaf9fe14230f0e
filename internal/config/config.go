// Package config provides configuration management for adfleet.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config represents the application configuration structure
type Config struct {
	Server   string `mapstructure:"server"`   // Directory server hostname/IP
	Port     int    `mapstructure:"port"`     // Directory server port
	UseTLS   bool   `mapstructure:"tls"`      // Use LDAPS for the directory connection
	Domain   string `mapstructure:"domain"`   // AD domain (e.g. CORP.LOCAL)
	Username string `mapstructure:"username"` // Account name without domain prefix
	Password string `mapstructure:"password"` // Session password (env/.env only, never a flag)

	Transport    string        `mapstructure:"transport"`     // Remote transport (winrm, ssh)
	RemotePort   int           `mapstructure:"remote-port"`   // Remote transport port (0 for transport default)
	Concurrency  int           `mapstructure:"concurrency"`   // Worker cap (0 = one worker per target)
	CmdTimeout   time.Duration `mapstructure:"cmd-timeout"`   // Per-target command timeout
	RoundTimeout time.Duration `mapstructure:"round-timeout"` // Ceiling for a whole dispatch round (0 = none)

	ExportDir   string `mapstructure:"export-dir"`  // Directory for CSV exports
	HistoryPath string `mapstructure:"history"`     // Path to the round history database ("" disables)
	Inventory   string `mapstructure:"inventory"`   // Static fleet inventory file (YAML)
	Quiet       bool   `mapstructure:"quiet"`       // Suppress non-error output
	LogLevel    string `mapstructure:"log-level"`   // Log level (info, error)
	LogFormat   string `mapstructure:"log-format"`  // Log format (json, text)
	Progress    string `mapstructure:"progress"`    // Progress display (auto, on, off)
}

// Manager defines the interface for configuration management
type Manager interface {
	// Load reads configuration from all sources (files, env vars, CLI flags)
	Load() (*Config, error)

	// SetDefaults establishes default configuration values
	SetDefaults()

	// Validate ensures configuration values are valid and consistent
	Validate(config *Config) error
}

// ViperManager implements the Manager interface using Viper
type ViperManager struct {
	v *viper.Viper
}

// NewManager creates a new configuration manager
func NewManager() Manager {
	return &ViperManager{
		v: viper.New(),
	}
}

// SetDefaults establishes default configuration values
func (m *ViperManager) SetDefaults() {
	m.v.SetDefault("port", 389)
	m.v.SetDefault("tls", false)
	m.v.SetDefault("transport", "winrm")
	m.v.SetDefault("remote-port", 0)
	m.v.SetDefault("concurrency", 0) // one worker per target
	m.v.SetDefault("cmd-timeout", 60*time.Second)
	m.v.SetDefault("round-timeout", time.Duration(0))
	m.v.SetDefault("export-dir", ".")
	m.v.SetDefault("history", "")
	m.v.SetDefault("inventory", "")
	m.v.SetDefault("quiet", false)
	m.v.SetDefault("log-level", "info")
	m.v.SetDefault("log-format", "text")
	m.v.SetDefault("progress", "auto")
}

// Load reads configuration from all sources with proper precedence
func (m *ViperManager) Load() (*Config, error) {
	// A .env next to the binary keeps the session password out of flags and
	// shell history. Missing files are fine.
	_ = godotenv.Load()

	m.SetDefaults()

	m.v.SetConfigName("config")
	m.v.AddConfigPath(".")

	if homeDir, err := os.UserHomeDir(); err == nil {
		m.v.AddConfigPath(filepath.Join(homeDir, ".config", "adfleet"))
	}
	m.v.AddConfigPath("/etc/adfleet/")

	m.v.SetEnvPrefix("ADFLEET")
	m.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	m.v.AutomaticEnv()

	// Keys without defaults are invisible to Unmarshal unless bound
	// explicitly; the password in particular only ever arrives this way.
	for _, key := range []string{"server", "domain", "username", "password"} {
		_ = m.v.BindEnv(key)
	}

	formats := []string{"yaml", "yml", "json", "toml"}
	for _, format := range formats {
		m.v.SetConfigType(format)
		if err := m.v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading %s config file: %w", format, err)
			}
		} else {
			break
		}
	}

	var config Config
	if err := m.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := m.Validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// Validate ensures configuration values are valid and consistent
func (m *ViperManager) Validate(config *Config) error {
	if config.Port < 1 || config.Port > 65535 {
		return fmt.Errorf("port %d out of valid range (1-65535)", config.Port)
	}

	if config.RemotePort < 0 || config.RemotePort > 65535 {
		return fmt.Errorf("remote-port %d out of valid range (0-65535)", config.RemotePort)
	}

	validTransports := map[string]bool{
		"winrm": true,
		"ssh":   true,
	}
	if !validTransports[config.Transport] {
		return fmt.Errorf("invalid transport '%s': must be 'winrm' or 'ssh'", config.Transport)
	}

	if config.Concurrency < 0 {
		return fmt.Errorf("concurrency must be non-negative, got %d", config.Concurrency)
	}

	if config.CmdTimeout <= 0 {
		return fmt.Errorf("cmd-timeout must be positive, got %v", config.CmdTimeout)
	}
	if config.RoundTimeout < 0 {
		return fmt.Errorf("round-timeout must be non-negative, got %v", config.RoundTimeout)
	}

	validLogLevels := map[string]bool{
		"info":  true,
		"error": true,
	}
	if !validLogLevels[config.LogLevel] {
		return fmt.Errorf("invalid log level '%s': must be one of 'info' or 'error'", config.LogLevel)
	}

	validLogFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validLogFormats[config.LogFormat] {
		return fmt.Errorf("invalid log format '%s': must be one of 'json' or 'text'", config.LogFormat)
	}

	validProgress := map[string]bool{
		"auto": true,
		"on":   true,
		"off":  true,
	}
	if !validProgress[config.Progress] {
		return fmt.Errorf("invalid progress mode '%s': must be one of 'auto', 'on' or 'off'", config.Progress)
	}

	return nil
}

// BindIdentity returns the DOMAIN\user identity used for the directory bind
// and remote sessions.
func (c *Config) BindIdentity() string {
	if c.Domain == "" {
		return c.Username
	}
	return fmt.Sprintf("%s\\%s", strings.ToUpper(c.Domain), c.Username)
}

// BaseDN derives the search base from the domain name
// (CORP.LOCAL -> DC=CORP,DC=LOCAL).
func (c *Config) BaseDN() string {
	if c.Domain == "" {
		return ""
	}
	parts := strings.Split(c.Domain, ".")
	for i, p := range parts {
		parts[i] = "DC=" + p
	}
	return strings.Join(parts, ",")
}
