// ABOUTME: Settings loading: built-in defaults, then config.yaml, then GITSTALLER_* env vars
// ABOUTME: Backed by spf13/viper; nested keys map to env vars with dots as underscores

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Color modes for status output.
const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

const envPrefix = "GITSTALLER"

// Settings holds the effective configuration.
type Settings struct {
	DefaultBranch string          `mapstructure:"default_branch"`
	Git           GitSettings     `mapstructure:"git"`
	Build         BuildSettings   `mapstructure:"build"`
	Output        OutputSettings  `mapstructure:"output"`
	Metrics       MetricsSettings `mapstructure:"metrics"`
	Doctor        DoctorSettings  `mapstructure:"doctor"`

	// Source is the config file that was read, empty when none existed.
	Source string `mapstructure:"-"`
}

// GitSettings configures the version-control collaborator.
type GitSettings struct {
	Binary  string        `mapstructure:"binary"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BuildSettings configures the build collaborator.
type BuildSettings struct {
	Sudo   bool   `mapstructure:"sudo"`
	Python string `mapstructure:"python"`
	Make   string `mapstructure:"make"`
}

// OutputSettings configures status output.
type OutputSettings struct {
	Color string `mapstructure:"color"`
}

// MetricsSettings configures the optional metrics textfile.
type MetricsSettings struct {
	Textfile string `mapstructure:"textfile"`
}

// DoctorSettings configures the doctor command.
type DoctorSettings struct {
	Concurrency int `mapstructure:"concurrency"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("default_branch", "main")
	v.SetDefault("git.binary", "git")
	v.SetDefault("git.timeout", "10m")
	v.SetDefault("build.sudo", true)
	v.SetDefault("build.python", "python3")
	v.SetDefault("build.make", "make")
	v.SetDefault("output.color", ColorAuto)
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("doctor.concurrency", 4)
}

// Load reads settings for the state directory base. A missing config.yaml
// is not an error.
func Load(base string) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := ConfigFile(base)
	source := ""
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		source = path
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	s.Source = source
	ResolveEnvVars(&s)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks value ranges that the decoder cannot.
func (s *Settings) Validate() error {
	switch s.Output.Color {
	case ColorAuto, ColorAlways, ColorNever:
	default:
		return fmt.Errorf("output.color must be %s, %s or %s; got %q", ColorAuto, ColorAlways, ColorNever, s.Output.Color)
	}
	if strings.TrimSpace(s.DefaultBranch) == "" {
		return fmt.Errorf("default_branch must not be empty")
	}
	if s.Git.Timeout <= 0 {
		return fmt.Errorf("git.timeout must be positive; got %s", s.Git.Timeout)
	}
	if s.Doctor.Concurrency < 1 {
		return fmt.Errorf("doctor.concurrency must be at least 1; got %d", s.Doctor.Concurrency)
	}
	return nil
}
