package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "inkshift"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "INKSHIFT"
)

// Loader handles loading configuration from files, environment
// variables and bound flags.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra flag
// bindings take part in precedence.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load reads configuration from the search paths, the environment and
// defaults, validates it and returns it.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		// Missing config file is fine; defaults and env vars apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshal()
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	return l.unmarshal()
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Viper exposes the underlying viper instance so the CLI can
// re-unmarshal after flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "inkshift"))
		l.v.AddConfigPath(home)
	}
	l.v.AddConfigPath("/etc/inkshift")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()
}

func (l *Loader) setDefaults() {
	def := Default()
	l.v.SetDefault("verbose", def.Verbose)
	l.v.SetDefault("log_level", def.LogLevel)
	l.v.SetDefault("metrics_addr", def.MetricsAddr)
	l.v.SetDefault("api.key", def.API.Key)
	l.v.SetDefault("api.model", def.API.Model)
	l.v.SetDefault("api.base_url", def.API.BaseURL)
	l.v.SetDefault("api.resolution", def.API.Resolution)
	l.v.SetDefault("batch.max_width", def.Batch.MaxWidth)
	l.v.SetDefault("batch.max_dimension", def.Batch.MaxDimension)
	l.v.SetDefault("output.dir", def.Output.Dir)
	l.v.SetDefault("output.format", def.Output.Format)
	l.v.SetDefault("output.progress", def.Output.Progress)
	l.v.SetDefault("output.quiet", def.Output.Quiet)
	l.v.SetDefault("translate.from", def.Translate.From)
	l.v.SetDefault("translate.to", def.Translate.To)
}
