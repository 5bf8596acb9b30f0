package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	werrors "github.com/liverelay/webcast/internal/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webcast.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != DefaultListen {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Transport.PingInterval.Duration() != DefaultPingInterval {
		t.Errorf("PingInterval = %v", cfg.Transport.PingInterval)
	}
	if cfg.Reconnect.RemovalGrace.Duration() != DefaultRemovalGrace {
		t.Errorf("RemovalGrace = %v", cfg.Reconnect.RemovalGrace)
	}
	if cfg.Reconnect.MaxAttempts != 0 {
		t.Errorf("MaxAttempts = %d, want unbounded default", cfg.Reconnect.MaxAttempts)
	}
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
listen: "0.0.0.0:9000"
signer:
  addr: "ws://firma:8080"
  timeout: 10s
reconnect:
  max_attempts: 5
  removal_grace: 20s
  sweep_interval: 5s
  sweep_rate: 2
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "0.0.0.0:9000" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Signer.Addr != "ws://firma:8080" || cfg.Signer.Timeout.Duration() != 10*time.Second {
		t.Errorf("Signer = %+v", cfg.Signer)
	}
	if cfg.Reconnect.MaxAttempts != 5 || cfg.Reconnect.RemovalGrace.Duration() != 20*time.Second {
		t.Errorf("Reconnect = %+v", cfg.Reconnect)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if werrors.CodeOf(err) != werrors.CodeInvalidConfig {
		t.Fatalf("err = %v, want %s", err, werrors.CodeInvalidConfig)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	path := writeConfig(t, "listen: [oops")
	_, err := Load(path)
	if werrors.CodeOf(err) != werrors.CodeInvalidConfig {
		t.Fatalf("err = %v, want %s", err, werrors.CodeInvalidConfig)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	cases := []string{
		"log:\n  level: loud\n",
		"log:\n  format: xml\n",
		"reconnect:\n  max_attempts: -1\n",
		"reconnect:\n  sweep_interval: -5s\n",
	}
	for _, content := range cases {
		path := writeConfig(t, content)
		if _, err := Load(path); werrors.CodeOf(err) != werrors.CodeInvalidConfig {
			t.Errorf("Load(%q) = %v, want %s", content, err, werrors.CodeInvalidConfig)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("WEBCAST_LISTEN", "127.0.0.1:7070")
	t.Setenv("WEBCAST_SIGNER_ADDR", "ws://env-signer:9001")
	t.Setenv("WEBCAST_MAX_RECONNECT_ATTEMPTS", "7")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Listen != "127.0.0.1:7070" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.Signer.Addr != "ws://env-signer:9001" {
		t.Errorf("Signer.Addr = %q", cfg.Signer.Addr)
	}
	if cfg.Reconnect.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d", cfg.Reconnect.MaxAttempts)
	}
}
