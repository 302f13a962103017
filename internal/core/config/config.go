package config

import (
	"time"

	"github.com/vietddude/crashwatch/internal/core/domain"
	redisclient "github.com/vietddude/crashwatch/internal/infra/redis"
	"github.com/vietddude/crashwatch/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	LogDir   string             `yaml:"log_dir"`
	// LogRetention bounds how long console transcripts are kept; 0 disables pruning.
	LogRetention time.Duration `yaml:"log_retention"`
	Verify   VerifyConfig       `yaml:"verify"`
	Targets  []TargetConfig     `yaml:"targets"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// VerifyConfig holds the recovery verification budget and artifact shape.
type VerifyConfig struct {
	SessionTimeout    time.Duration `yaml:"session_timeout"`
	PollInterval      time.Duration `yaml:"poll_interval"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
	ScanTimeout       time.Duration `yaml:"scan_timeout"`
	MaxStallPolls     int           `yaml:"max_stall_polls"`
	ArtifactDir       string        `yaml:"artifact_dir"`
	FinalNames        []string      `yaml:"final_artifact_names"`
	MinArtifactBytes  int64         `yaml:"min_artifact_bytes"`
	InProgressPattern string        `yaml:"in_progress_pattern"`
}

// TargetConfig holds settings for a machine under test.
type TargetConfig struct {
	Name        string `yaml:"name"`
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	KeyFile     string `yaml:"key_file"`
	Password    string `yaml:"password"`
	ConsoleURL  string `yaml:"console_url"`
	TriggerCPU  *int   `yaml:"trigger_cpu"`
	CrashKernel string `yaml:"crash_kernel"`
}

// Target converts the config entry into a domain target.
func (c TargetConfig) Target() domain.Target {
	cpu := -1
	if c.TriggerCPU != nil {
		cpu = *c.TriggerCPU
	}
	return domain.Target{
		Name:        c.Name,
		Host:        c.Host,
		Port:        c.Port,
		User:        c.User,
		KeyFile:     c.KeyFile,
		Password:    c.Password,
		ConsoleURL:  c.ConsoleURL,
		TriggerCPU:  cpu,
		CrashKernel: c.CrashKernel,
	}
}
