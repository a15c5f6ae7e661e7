package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("missing file falls back to defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Lock.TTL.Std() != 10*time.Minute {
			t.Fatalf("expected default lock ttl, got %v", cfg.Lock.TTL.Std())
		}
		if cfg.Payment.ConfirmAttempts != 3 {
			t.Fatalf("expected default confirm attempts, got %d", cfg.Payment.ConfirmAttempts)
		}
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := "lock:\n  ttl: 5m\npayment:\n  confirm_delay: 1s\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Lock.TTL.Std() != 5*time.Minute {
			t.Fatalf("expected 5m lock ttl, got %v", cfg.Lock.TTL.Std())
		}
		if cfg.Payment.ConfirmDelay.Std() != time.Second {
			t.Fatalf("expected 1s confirm delay, got %v", cfg.Payment.ConfirmDelay.Std())
		}
		if cfg.RedisAddr != "redis:6379" {
			t.Fatalf("untouched keys must keep defaults, got %s", cfg.RedisAddr)
		}
	})

	t.Run("env wins over file", func(t *testing.T) {
		t.Setenv("REDIS_ADDR", "localhost:6380")
		cfg, err := Load("")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.RedisAddr != "localhost:6380" {
			t.Fatalf("expected env override, got %s", cfg.RedisAddr)
		}
	})

	t.Run("bad duration rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		if err := os.WriteFile(path, []byte("lock:\n  ttl: soon\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path); err == nil {
			t.Fatal("expected parse error for invalid duration")
		}
	})
}
