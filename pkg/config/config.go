// Package config loads and saves the pathtrack configuration file.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/gwillem/pathtrack/pkg/logging"
	"github.com/gwillem/pathtrack/pkg/speed"
	"github.com/gwillem/pathtrack/pkg/steering"
)

// Config holds the pathtrack configuration
type Config struct {
	Robot   RobotConfig    `yaml:"robot"`
	Control ControlConfig  `yaml:"control"`
	Log     logging.Config `yaml:"log"`
	Output  OutputConfig   `yaml:"output"`
}

// RobotConfig holds the robot endpoint
type RobotConfig struct {
	URL string `yaml:"url"`
	// Timeout per HTTP round-trip; zero waits forever.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ControlConfig holds the control loop constants and the default policy and
// profile used when the command line does not pick one.
type ControlConfig struct {
	Period       time.Duration `yaml:"period"`
	LookAhead    float64       `yaml:"look_ahead"`
	AngularGain  float64       `yaml:"angular_gain"`
	Adaptive     bool          `yaml:"adaptive_look_ahead"`
	Steering     string        `yaml:"steering"`
	SpeedProfile string        `yaml:"speed_profile"`
}

// OutputConfig holds where run artifacts are written. Empty disables them.
type OutputConfig struct {
	Database string `yaml:"database,omitempty"`
	Plot     string `yaml:"plot,omitempty"`
}

// Default returns the configuration for a local MRDS simulator.
func Default() *Config {
	return &Config{
		Robot: RobotConfig{URL: "http://localhost:50000"},
		Control: ControlConfig{
			Period:       10 * time.Millisecond,
			LookAhead:    0.7,
			AngularGain:  0.4,
			Steering:     steering.NamePurePursuit,
			SpeedProfile: speed.NameConstant,
		},
		Log: logging.DefaultConfig(),
	}
}

// LoadConfigFrom loads configuration from a specific file. Fields missing
// from the file keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid %s", path)
	}
	return cfg, nil
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	if c.Robot.URL == "" {
		return errors.New("robot.url is required")
	}
	if c.Control.Period < 0 {
		return errors.New("control.period must not be negative")
	}
	if c.Control.LookAhead <= 0 {
		return errors.New("control.look_ahead must be positive")
	}
	if c.Control.AngularGain == 0 {
		return errors.New("control.angular_gain must not be zero")
	}
	if _, err := steering.Parse(c.Control.Steering); err != nil {
		return errors.Wrap(err, "control.steering")
	}
	if _, err := speed.Parse(c.Control.SpeedProfile); err != nil {
		return errors.Wrap(err, "control.speed_profile")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}
	return nil
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Exists returns true if path exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
