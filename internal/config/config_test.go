package config

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BoardURL != DefaultBoardURL {
		t.Fatalf("BoardURL = %q", cfg.BoardURL)
	}
	if cfg.HTTPTimeout != 60*time.Second {
		t.Fatalf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
	if cfg.PollInterval != 5*time.Minute {
		t.Fatalf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.StorageType != "bbolt" {
		t.Fatalf("StorageType = %q", cfg.StorageType)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("BOARD_URL", "http://localhost:8080/")
	t.Setenv("POLL_INTERVAL", "30")
	t.Setenv("HTTP_TIMEOUT_SECONDS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BoardURL != "http://localhost:8080" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.BoardURL)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("PollInterval = %v", cfg.PollInterval)
	}
	if cfg.HTTPTimeout != 5*time.Second {
		t.Fatalf("HTTPTimeout = %v", cfg.HTTPTimeout)
	}
}

func TestLoadRejectsInvalidPollInterval(t *testing.T) {
	t.Setenv("POLL_INTERVAL", "0")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for zero poll interval")
	}
}

func TestLoadWithFlagsOverridesEnv(t *testing.T) {
	t.Setenv("BOARD_URL", "http://env.example")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs)
	if err := fs.Parse([]string{"--board-url", "http://flag.example", "--email", "a@b.c"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadWithFlags(fs)
	if err != nil {
		t.Fatalf("LoadWithFlags: %v", err)
	}
	if cfg.BoardURL != "http://flag.example" {
		t.Fatalf("BoardURL = %q", cfg.BoardURL)
	}
	if cfg.BoardEmail != "a@b.c" {
		t.Fatalf("BoardEmail = %q", cfg.BoardEmail)
	}
}

func TestSummaryRedactsCredentials(t *testing.T) {
	t.Setenv("BOARD_EMAIL", "writer@example.com")
	t.Setenv("BOARD_PASSWORD", "hunter2-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	summary := cfg.Summary()
	if summary["board_password_set"] != true || summary["board_email_set"] != true {
		t.Fatalf("expected credential flags set, got %v", summary)
	}

	encoded, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("marshal summary: %v", err)
	}
	for _, leaked := range []string{"hunter2-secret", "writer@example.com", `"board_password"`} {
		if strings.Contains(string(encoded), leaked) {
			t.Fatalf("summary leaks %s: %s", leaked, encoded)
		}
	}

	whole, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if strings.Contains(string(whole), "hunter2-secret") {
		t.Fatalf("encoded config leaks the password: %s", whole)
	}
}
