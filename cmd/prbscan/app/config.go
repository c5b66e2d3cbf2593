package app

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/telcofield/prb-survey/internal/analysis"
	"github.com/telcofield/prb-survey/internal/element"
)

const (
	defaultSSHPort        = 22
	defaultPromptTimeout  = 30 * time.Second
	defaultCommandTimeout = 180 * time.Second
)

// Config represents the main application configuration
type Config struct {
	Settings    Settings          `yaml:"settings"`
	Connection  ConnectionConfig  `yaml:"connection"`
	Element     ElementConfig     `yaml:"element"`
	Managers    []element.Manager `yaml:"managers"`
	Targets     []analysis.Target `yaml:"targets"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Timeouts    TimeoutConfig     `yaml:"timeouts"`
	Storage     StorageConfig     `yaml:"storage"`
}

// Settings represents global application settings
type Settings struct {
	LogLevel string `yaml:"logLevel"`
}

// Level parses the configured log level, defaulting to info.
func (s Settings) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ConnectionConfig holds the scripting host connection parameters. The
// engine performs no credential prompting: username and password are
// supplied here by whatever provisioned the file.
type ConnectionConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// ElementConfig selects the network element under survey.
type ElementConfig struct {
	ID               string `yaml:"id"`
	PrimaryPath      bool   `yaml:"primaryPath"`
	PreferredManager string `yaml:"preferredManager"`
	WholeElement     bool   `yaml:"wholeElement"`
}

// CalibrationConfig bounds the calibrated chart in dBm.
type CalibrationConfig struct {
	FloorDBm   float64 `yaml:"floorDBm"`
	CeilingDBm float64 `yaml:"ceilingDBm"`
}

// TimeoutConfig bounds the prompt waits.
type TimeoutConfig struct {
	PromptSeconds  int `yaml:"promptSeconds"`
	CommandSeconds int `yaml:"commandSeconds"`
}

// Prompt returns the login/short-command prompt timeout.
func (t TimeoutConfig) Prompt() time.Duration {
	if t.PromptSeconds <= 0 {
		return defaultPromptTimeout
	}
	return time.Duration(t.PromptSeconds) * time.Second
}

// Command returns the survey command timeout.
func (t TimeoutConfig) Command() time.Duration {
	if t.CommandSeconds <= 0 {
		return defaultCommandTimeout
	}
	return time.Duration(t.CommandSeconds) * time.Second
}

// StorageConfig represents run archive settings
type StorageConfig struct {
	DataDirectory string `yaml:"dataDirectory"`
	Disabled      bool   `yaml:"disabled"`
}

// LoadConfig reads and validates the YAML configuration at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading configuration: %w", err)
	}

	config := Config{
		Connection: ConnectionConfig{Port: defaultSSHPort},
		Calibration: CalibrationConfig{
			FloorDBm:   -125,
			CeilingDBm: -95,
		},
	}
	if err = yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if config.Connection.Host == "" {
		return nil, fmt.Errorf("connection.host is required")
	}
	if config.Connection.Username == "" {
		return nil, fmt.Errorf("connection.username is required")
	}
	if config.Element.ID == "" {
		return nil, fmt.Errorf("element.id is required")
	}
	if !config.Element.WholeElement && len(config.Targets) == 0 {
		return nil, fmt.Errorf("either targets or element.wholeElement must be set")
	}
	if config.Calibration.FloorDBm >= config.Calibration.CeilingDBm {
		return nil, fmt.Errorf("calibration floor must be below ceiling")
	}

	return &config, nil
}
