package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the harness configuration.
type Config struct {
	Link    LinkConfig    `yaml:"link"`
	Console ConsoleConfig `yaml:"console"`
	Log     LogConfig     `yaml:"log"`
	Store   StoreConfig   `yaml:"store"`
	Metrics MetricsConfig `yaml:"metrics"`
	Wait    WaitConfig    `yaml:"wait"`
}

// LinkConfig holds telemetry link settings.
type LinkConfig struct {
	Transport    string `yaml:"transport"` // "udp-client", "udp-server", "tcp", "serial", "websocket"
	Address      string `yaml:"address"`
	SerialDevice string `yaml:"serial_device"`
	SerialBaud   int    `yaml:"serial_baud"`
	Vehicle      string `yaml:"vehicle"` // "copter", "rover", "plane"
}

// ConsoleConfig holds ground-station console settings.
type ConsoleConfig struct {
	Address       string   `yaml:"address"`
	ExpectTimeout Duration `yaml:"expect_timeout"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Harness  LogSettings `yaml:"harness"`
	Progress LogSettings `yaml:"progress"`
}

// LogSettings holds settings for a specific logger.
type LogSettings struct {
	Path  string `yaml:"path"`
	Level string `yaml:"level"`
}

// StoreConfig holds result database settings. Results older than
// Retention are pruned at startup; zero keeps everything.
type StoreConfig struct {
	Path      string   `yaml:"path"`
	Retention Duration `yaml:"retention"`
}

// MetricsConfig holds Prometheus exposure settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

// WaitConfig holds condition-wait tuning. Timeouts are simulated
// seconds, not wall-clock time.
type WaitConfig struct {
	EKFRequiredFlags uint32   `yaml:"ekf_required_flags"`
	ReadyTimeout     float64  `yaml:"ready_timeout_s"`
	WaypointRadius   Distance `yaml:"waypoint_radius"`
	LegTimeout       float64  `yaml:"leg_timeout_s"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Link: LinkConfig{
			Transport:  "tcp",
			Address:    "127.0.0.1:5760",
			SerialBaud: 57600,
			Vehicle:    "copter",
		},
		Console: ConsoleConfig{
			Address:       "127.0.0.1:5761",
			ExpectTimeout: Duration(60 * time.Second),
		},
		Log: LogConfig{
			Harness: LogSettings{
				Path:  "./logs/harness.log",
				Level: "INFO",
			},
			Progress: LogSettings{
				Path:  "./logs/progress.log",
				Level: "DEBUG",
			},
		},
		Store: StoreConfig{
			Path:      "./data/results.db",
			Retention: Duration(90 * 24 * time.Hour),
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "localhost:9223",
		},
		Wait: WaitConfig{
			EKFRequiredFlags: 831,
			ReadyTimeout:     120,
			WaypointRadius:   Distance(2),
			LegTimeout:       400,
		},
	}
}

// Load loads the configuration from the given path.
// If the file does not exist, it creates it with default values.
// If the file exists, it merges defaults with existing values but does
// NOT save back to disk (to preserve user formatting and comments).
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
		return cfg, cfg.validate()
	}

	// If file does not exist, save defaults
	if err := Save(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to save config file: %w", err)
	}
	return cfg, cfg.validate()
}

var validTransports = map[string]bool{
	"udp-client": true,
	"udp-server": true,
	"tcp":        true,
	"serial":     true,
	"websocket":  true,
}

func (c *Config) validate() error {
	if !validTransports[c.Link.Transport] {
		return fmt.Errorf("unknown link transport %q", c.Link.Transport)
	}
	if c.Link.Transport == "serial" && c.Link.SerialDevice == "" {
		return fmt.Errorf("serial transport requires serial_device")
	}
	if c.Wait.LegTimeout <= 0 {
		return fmt.Errorf("leg_timeout_s must be positive, got %v", c.Wait.LegTimeout)
	}
	return nil
}

// Save writes the configuration to the path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# sitlcheck Configuration
# ----------------------
# Supported Units:
#   Duration: ns, us (or µs), ms, s, m, h, d (day), w (week)
#   Distance: m (meters), km (kilometers), nm (nautical miles)
# Fields suffixed _s are simulated seconds, not wall-clock time.

`)
	data = append(header, data...)

	// Inject comments for enum fields
	reTransport := regexp.MustCompile(`(?m)^(\s+)transport:`)
	data = reTransport.ReplaceAll(data, []byte("${1}# Options: udp-client, udp-server, tcp, serial, websocket\n${1}transport:"))

	reVehicle := regexp.MustCompile(`(?m)^(\s+)vehicle:`)
	data = reVehicle.ReplaceAll(data, []byte("${1}# Options: copter, rover, plane\n${1}vehicle:"))

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateDefault creates a default config file at the given path.
// Returns nil if the file already exists.
func GenerateDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return Save(path, DefaultConfig())
}
