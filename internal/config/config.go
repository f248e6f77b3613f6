// Package config loads the shell's settings from an optional YAML file and
// JOBSHELL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	EnvPrefix  = "JOBSHELL"
	ConfigName = "config"
	AppDirName = "jobshell"

	DefaultPrompt       = "jobshell> "
	DefaultPollInterval = 10 * time.Millisecond
	DefaultColor        = "auto"
)

type Config struct {
	Prompt       string        `mapstructure:"prompt" validate:"required"`
	PollInterval time.Duration `mapstructure:"poll_interval" validate:"gte=1ms,lte=1s"`
	// JobControl hands the terminal to foreground jobs when stdin is a TTY.
	JobControl bool   `mapstructure:"job_control"`
	LogFile    string `mapstructure:"log_file"`
	Color      string `mapstructure:"color" validate:"oneof=always auto never"`

	// ConfigPath is the file the settings were read from, if any.
	ConfigPath string `mapstructure:"-"`
}

// Load reads path, or the first config.yaml found in the user's config
// directory when path is empty. Environment variables override the file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("prompt", DefaultPrompt)
	v.SetDefault("poll_interval", DefaultPollInterval)
	v.SetDefault("job_control", true)
	v.SetDefault("log_file", "")
	v.SetDefault("color", DefaultColor)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigName)
		for _, dir := range searchDirs() {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func searchDirs() []string {
	var dirs []string
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, AppDirName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, "."+AppDirName))
	}
	return dirs
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
	})

	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// MarshalYAML renders durations the way they are written in the file.
func (c Config) MarshalYAML() (interface{}, error) {
	return struct {
		Prompt       string `yaml:"prompt"`
		PollInterval string `yaml:"poll_interval"`
		JobControl   bool   `yaml:"job_control"`
		LogFile      string `yaml:"log_file,omitempty"`
		Color        string `yaml:"color"`
	}{
		Prompt:       c.Prompt,
		PollInterval: c.PollInterval.String(),
		JobControl:   c.JobControl,
		LogFile:      c.LogFile,
		Color:        c.Color,
	}, nil
}
