package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.DBDriver != "sqlite" || cfg.DSN() != "/tmp/netmap.db" {
		t.Errorf("DB = %s %s", cfg.DBDriver, cfg.DSN())
	}
	if cfg.PollInterval != 600*time.Second || cfg.SNMPTimeout != 2*time.Second {
		t.Errorf("PollInterval = %v, SNMPTimeout = %v", cfg.PollInterval, cfg.SNMPTimeout)
	}
	if cfg.SNMPPort != 161 || cfg.SNMPCommunity != "public" {
		t.Errorf("SNMP = %s:%d", cfg.SNMPCommunity, cfg.SNMPPort)
	}
	if !cfg.Seed {
		t.Error("Seed should default to true")
	}
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("WEB_PORT", "9090")
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://u:p@db:5432/netmap")
	t.Setenv("POLL_INTERVAL", "30")
	t.Setenv("SEED", "false")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Port != "9090" {
		t.Errorf("Port = %q", cfg.Port)
	}
	if cfg.DSN() != "postgres://u:p@db:5432/netmap" {
		t.Errorf("DSN() = %q", cfg.DSN())
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.Seed {
		t.Error("Seed should be false")
	}
}

func TestLoad_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv("DB_PATH", "/from/env.db")
	t.Setenv("WEB_HOST", "127.0.0.1")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db-path", "/default.db", "")
	flags.String("web-host", "0.0.0.0", "")
	if err := flags.Parse([]string{"--db-path", "/from/flag.db"}); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	cfg, err := Load(flags)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.DBPath != "/from/flag.db" {
		t.Errorf("DBPath = %q, want flag value", cfg.DBPath)
	}
	if cfg.Host != "127.0.0.1" {
		t.Errorf("Host = %q, unset flag should not override env", cfg.Host)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"unknown driver", "DB_DRIVER", "mysql"},
		{"negative interval", "POLL_INTERVAL", "-5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := Load(nil); err == nil {
				t.Errorf("Expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}

func TestFlagKey(t *testing.T) {
	tests := map[string]string{
		"db-path":       "DB_PATH",
		"poll-interval": "POLL_INTERVAL",
		"seed":          "SEED",
	}
	for in, want := range tests {
		if got := flagKey(in); got != want {
			t.Errorf("flagKey(%q) = %q, want %q", in, got, want)
		}
	}
}
