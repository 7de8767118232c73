package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "sitlcheck.yaml")

	tests := []struct {
		name          string
		setup         func()
		validate      func(*testing.T, *Config)
		checkFile     func(*testing.T)
		expectedError bool
	}{
		{
			name:  "NewFile_Defaults",
			setup: func() {}, // No file
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Link.Transport != "tcp" {
					t.Errorf("expected default transport 'tcp', got '%s'", cfg.Link.Transport)
				}
				if cfg.Wait.EKFRequiredFlags != 831 {
					t.Errorf("expected default EKF flags 831, got %d", cfg.Wait.EKFRequiredFlags)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "transport: tcp") {
					t.Error("config file missing default values")
				}
				if !strings.Contains(string(content), "ekf_required_flags: 831") {
					t.Error("config file missing ekf_required_flags default")
				}
			},
		},
		{
			name: "ExistingFile_Override",
			setup: func() {
				err := os.WriteFile(configPath, []byte("link:\n  transport: udp-client\n  address: 10.0.0.1:14550\nwait:\n  leg_timeout_s: 600\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if cfg.Link.Transport != "udp-client" {
					t.Errorf("expected transport 'udp-client', got '%s'", cfg.Link.Transport)
				}
				if cfg.Link.Address != "10.0.0.1:14550" {
					t.Errorf("expected custom address, got '%s'", cfg.Link.Address)
				}
				if cfg.Wait.LegTimeout != 600 {
					t.Errorf("expected LegTimeout 600, got %v", cfg.Wait.LegTimeout)
				}
				// untouched fields keep defaults
				if cfg.Console.Address != "127.0.0.1:5761" {
					t.Errorf("expected default console address, got '%s'", cfg.Console.Address)
				}
			},
			checkFile: func(t *testing.T) {
				content, err := os.ReadFile(configPath)
				if err != nil {
					t.Fatalf("failed to read config file: %v", err)
				}
				if !strings.Contains(string(content), "transport: udp-client") {
					t.Error("config file should persist custom value")
				}
			},
		},
		{
			name: "InvalidTransport",
			setup: func() {
				err := os.WriteFile(configPath, []byte("link:\n  transport: carrier-pigeon\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "SerialWithoutDevice",
			setup: func() {
				err := os.WriteFile(configPath, []byte("link:\n  transport: serial\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			expectedError: true,
		},
		{
			name: "DurationUnits",
			setup: func() {
				err := os.WriteFile(configPath, []byte("console:\n  expect_timeout: 2m\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if got := time.Duration(cfg.Console.ExpectTimeout); got != 2*time.Minute {
					t.Errorf("expected 2m expect timeout, got %v", got)
				}
			},
		},
		{
			name: "DistanceUnits",
			setup: func() {
				err := os.WriteFile(configPath, []byte("wait:\n  waypoint_radius: 0.01km\n"), 0o644)
				if err != nil {
					t.Fatalf("failed to setup test file: %v", err)
				}
			},
			validate: func(t *testing.T, cfg *Config) {
				if float64(cfg.Wait.WaypointRadius) != 10 {
					t.Errorf("expected 10m waypoint radius, got %v", cfg.Wait.WaypointRadius)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Remove(configPath)
			tt.setup()

			cfg, err := Load(configPath)
			if tt.expectedError {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
			if tt.checkFile != nil {
				tt.checkFile(t)
			}
		})
	}
}

func TestGenerateDefaultIdempotent(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "sitlcheck.yaml")

	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() failed: %v", err)
	}
	if err := os.WriteFile(configPath, []byte("link:\n  transport: websocket\n"), 0o644); err != nil {
		t.Fatalf("failed to overwrite config: %v", err)
	}
	if err := GenerateDefault(configPath); err != nil {
		t.Fatalf("GenerateDefault() (again) failed: %v", err)
	}

	content, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatalf("failed to read config file: %v", err)
	}
	if !strings.Contains(string(content), "websocket") {
		t.Error("GenerateDefault must not clobber an existing file")
	}
}
