package config

import (
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Server:     "dc01.corp.local",
		Port:       389,
		Domain:     "CORP.LOCAL",
		Username:   "svc_fleet",
		Transport:  "winrm",
		CmdTimeout: 60 * time.Second,
		ExportDir:  ".",
		LogLevel:   "info",
		LogFormat:  "text",
		Progress:   "auto",
	}
}

func TestValidate(t *testing.T) {
	m := NewManager()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"ssh transport", func(c *Config) { c.Transport = "ssh" }, false},
		{"port zero", func(c *Config) { c.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Port = 70000 }, true},
		{"negative remote port", func(c *Config) { c.RemotePort = -1 }, true},
		{"bad transport", func(c *Config) { c.Transport = "telnet" }, true},
		{"negative concurrency", func(c *Config) { c.Concurrency = -1 }, true},
		{"zero cmd timeout", func(c *Config) { c.CmdTimeout = 0 }, true},
		{"negative round timeout", func(c *Config) { c.RoundTimeout = -time.Second }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "debug" }, true},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, true},
		{"bad progress mode", func(c *Config) { c.Progress = "maybe" }, true},
		{"round timeout allowed", func(c *Config) { c.RoundTimeout = 5 * time.Minute }, false},
		{"unbounded concurrency", func(c *Config) { c.Concurrency = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := m.Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_EnvironmentOnly(t *testing.T) {
	t.Setenv("ADFLEET_SERVER", "dc01.corp.local")
	t.Setenv("ADFLEET_DOMAIN", "CORP.LOCAL")
	t.Setenv("ADFLEET_USERNAME", "svc_fleet")
	t.Setenv("ADFLEET_PASSWORD", "s3cret")

	cfg, err := NewManager().Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server != "dc01.corp.local" {
		t.Errorf("Server = %q, want the environment value", cfg.Server)
	}
	if cfg.Domain != "CORP.LOCAL" {
		t.Errorf("Domain = %q, want the environment value", cfg.Domain)
	}
	if cfg.Username != "svc_fleet" {
		t.Errorf("Username = %q, want the environment value", cfg.Username)
	}
	if cfg.Password != "s3cret" {
		t.Errorf("Password not loaded from environment, got %q", cfg.Password)
	}

	// Defaults still apply alongside environment-only keys.
	if cfg.Transport != "winrm" {
		t.Errorf("Transport default = %q", cfg.Transport)
	}
	if cfg.CmdTimeout != 60*time.Second {
		t.Errorf("CmdTimeout default = %v", cfg.CmdTimeout)
	}
}

func TestLoad_EnvOverridesDefault(t *testing.T) {
	t.Setenv("ADFLEET_SERVER", "dc01.corp.local")
	t.Setenv("ADFLEET_USERNAME", "svc_fleet")
	t.Setenv("ADFLEET_PASSWORD", "s3cret")
	t.Setenv("ADFLEET_CMD_TIMEOUT", "90s")
	t.Setenv("ADFLEET_TRANSPORT", "ssh")

	cfg, err := NewManager().Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.CmdTimeout != 90*time.Second {
		t.Errorf("CmdTimeout = %v, want 90s from environment", cfg.CmdTimeout)
	}
	if cfg.Transport != "ssh" {
		t.Errorf("Transport = %q, want ssh from environment", cfg.Transport)
	}
}

func TestBindIdentity(t *testing.T) {
	cfg := &Config{Domain: "corp.local", Username: "svc_fleet"}
	if got := cfg.BindIdentity(); got != `CORP.LOCAL\svc_fleet` {
		t.Errorf("BindIdentity() = %q", got)
	}

	cfg = &Config{Username: "svc_fleet"}
	if got := cfg.BindIdentity(); got != "svc_fleet" {
		t.Errorf("BindIdentity() without domain = %q", got)
	}
}

func TestBaseDN(t *testing.T) {
	tests := []struct {
		domain string
		want   string
	}{
		{"CORP.LOCAL", "DC=CORP,DC=LOCAL"},
		{"sub.corp.example.com", "DC=sub,DC=corp,DC=example,DC=com"},
		{"", ""},
	}

	for _, tt := range tests {
		cfg := &Config{Domain: tt.domain}
		if got := cfg.BaseDN(); got != tt.want {
			t.Errorf("BaseDN(%q) = %q, want %q", tt.domain, got, tt.want)
		}
	}
}
