package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// Defaults mirror the empirical kdump budget: copying a large dump to disk
// can take over 10 minutes on slow distros, so the session timeout must be
// generous while polls stay cheap.
const (
	DefaultSessionTimeout    = 800 * time.Second
	DefaultPollInterval      = 5 * time.Second
	DefaultReconnectInterval = 10 * time.Second
	DefaultScanTimeout       = 30 * time.Second
	DefaultMaxStallPolls     = 10
	DefaultArtifactDir       = "/var/crash"
	DefaultMinArtifactBytes  = 10 * 1024 * 1024
	DefaultInProgressPattern = "*incomplete*"
)

// DefaultFinalNames returns the canonical final-artifact name patterns.
func DefaultFinalNames() []string {
	return []string{"vmcore", "dump.*", "vmcore.*"}
}

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ApplyDefaults()

	for i, t := range cfg.Targets {
		if t.Name == "" {
			return nil, fmt.Errorf("target %d is missing a name", i)
		}
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with default values.
func (cfg *AppConfig) ApplyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.LogDir == "" {
		cfg.LogDir = "logs"
	}

	v := &cfg.Verify
	if v.SessionTimeout == 0 {
		v.SessionTimeout = DefaultSessionTimeout
	}
	if v.PollInterval == 0 {
		v.PollInterval = DefaultPollInterval
	}
	if v.ReconnectInterval == 0 {
		v.ReconnectInterval = DefaultReconnectInterval
	}
	if v.ScanTimeout == 0 {
		v.ScanTimeout = DefaultScanTimeout
	}
	if v.MaxStallPolls == 0 {
		v.MaxStallPolls = DefaultMaxStallPolls
	}
	if v.ArtifactDir == "" {
		v.ArtifactDir = DefaultArtifactDir
	}
	if len(v.FinalNames) == 0 {
		v.FinalNames = DefaultFinalNames()
	}
	if v.MinArtifactBytes == 0 {
		v.MinArtifactBytes = DefaultMinArtifactBytes
	}
	if v.InProgressPattern == "" {
		v.InProgressPattern = DefaultInProgressPattern
	}

	for i := range cfg.Targets {
		if cfg.Targets[i].Port == 0 {
			cfg.Targets[i].Port = 22
		}
		if cfg.Targets[i].User == "" {
			cfg.Targets[i].User = "root"
		}
	}
}
