package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/liverelay/webcast/internal/errors"
)

// Duration is a time.Duration that unmarshals from YAML duration strings
// ("10s") or bare numeric seconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node == nil {
		*d = Duration(0)
		return nil
	}
	raw := strings.TrimSpace(node.Value)
	if raw == "" {
		*d = Duration(0)
		return nil
	}
	if td, err := time.ParseDuration(raw); err == nil {
		*d = Duration(td)
		return nil
	}
	// allow numeric seconds
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		*d = Duration(time.Duration(f * float64(time.Second)))
		return nil
	}
	return errors.New(errors.CodeInvalidConfig).WithDetail("invalid duration %q", node.Value)
}

// Duration returns the wrapped time.Duration.
func (d Duration) Duration() time.Duration { return time.Duration(d) }

const (
	// ConfigFileName is the default configuration file name.
	ConfigFileName = "webcast.yaml"

	// DefaultListen is the default admin listen address.
	DefaultListen = "localhost:8077"

	// DefaultSignerTimeout bounds each signing request.
	DefaultSignerTimeout = 30 * time.Second

	// DefaultPingInterval is the transport keep-alive interval.
	DefaultPingInterval = 10 * time.Second

	// DefaultRemovalGrace is the reconnect grace window before a failed
	// connection is dropped.
	DefaultRemovalGrace = 10 * time.Second

	// DefaultSweepInterval is how often the reconnect sweep runs.
	DefaultSweepInterval = 15 * time.Second
)

// Config is the complete webcast.yaml configuration.
type Config struct {
	// Listen is the admin HTTP listen address.
	Listen string `yaml:"listen"`

	// Signer configures the remote signing collaborator.
	Signer SignerConfig `yaml:"signer"`

	// Transport configures the push socket sessions.
	Transport TransportConfig `yaml:"transport"`

	// Reconnect configures the orchestrator's reconnect policy.
	Reconnect ReconnectConfig `yaml:"reconnect"`

	// Kick configures the Kick connection variant.
	Kick KickConfig `yaml:"kick"`

	// Log configures logging.
	Log LogConfig `yaml:"log"`
}

// SignerConfig configures the remote signing collaborator.
type SignerConfig struct {
	// Addr is the collaborator's ws:// or wss:// address.
	Addr string `yaml:"addr"`

	// Timeout bounds each signing request.
	Timeout Duration `yaml:"timeout"`
}

// TransportConfig configures push socket sessions.
type TransportConfig struct {
	// PingInterval is the keep-alive interval.
	PingInterval Duration `yaml:"ping_interval"`
}

// ReconnectConfig configures the reconnect sweep.
type ReconnectConfig struct {
	// MaxAttempts bounds consecutive failed reconnects per connection.
	// 0 means unbounded.
	MaxAttempts int `yaml:"max_attempts"`

	// RemovalGrace is the delay before a failed connection is dropped.
	RemovalGrace Duration `yaml:"removal_grace"`

	// SweepInterval is how often the sweep runs.
	SweepInterval Duration `yaml:"sweep_interval"`

	// SweepRate caps reconnect attempts per second. 0 means no cap.
	SweepRate float64 `yaml:"sweep_rate"`
}

// KickConfig configures the Kick variant.
type KickConfig struct {
	// APIBase overrides the channel API endpoint.
	APIBase string `yaml:"api_base"`

	// WSURL overrides the pusher endpoint.
	WSURL string `yaml:"ws_url"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// Default returns the configuration with every default applied.
func Default() *Config {
	return &Config{
		Listen: DefaultListen,
		Signer: SignerConfig{Timeout: Duration(DefaultSignerTimeout)},
		Transport: TransportConfig{
			PingInterval: Duration(DefaultPingInterval),
		},
		Reconnect: ReconnectConfig{
			RemovalGrace:  Duration(DefaultRemovalGrace),
			SweepInterval: Duration(DefaultSweepInterval),
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads the configuration file at path, falling back to defaults when
// path is empty or the file does not exist, then applies environment
// overrides. A .env file next to the process, if present, is loaded first.
func Load(path string) (*Config, error) {
	// Missing .env is fine; a malformed one is not worth failing over.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		if _, err := os.Stat(ConfigFileName); err == nil {
			path = ConfigFileName
		}
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidConfig).WithDetail("read %s", path).Wrap(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.New(errors.CodeInvalidConfig).WithDetail("parse %s", path).Wrap(err)
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays WEBCAST_* environment variables on the config.
func applyEnv(cfg *Config) {
	if v := os.Getenv("WEBCAST_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("WEBCAST_SIGNER_ADDR"); v != "" {
		cfg.Signer.Addr = v
	}
	if v := os.Getenv("WEBCAST_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("WEBCAST_MAX_RECONNECT_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Reconnect.MaxAttempts = n
		}
	}
}

func (c *Config) validate() error {
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return errors.New(errors.CodeInvalidConfig).WithDetail("log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return errors.New(errors.CodeInvalidConfig).WithDetail("log format %q", c.Log.Format)
	}
	if c.Reconnect.MaxAttempts < 0 {
		return errors.New(errors.CodeInvalidConfig).WithDetail("max_attempts %d", c.Reconnect.MaxAttempts)
	}
	if c.Reconnect.RemovalGrace < 0 || c.Reconnect.SweepInterval <= 0 {
		return errors.New(errors.CodeInvalidConfig).WithDetail("reconnect timing")
	}
	return nil
}
