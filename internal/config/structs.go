package config

import (
	"errors"
	"fmt"

	"golang.org/x/text/language"
)

// Valid resolution hints for the transformation service.
var validResolutions = []string{"1K", "2K", "4K"}

// Valid manifest formats.
var validFormats = []string{"json", "yaml"}

// Config is the complete application configuration.
type Config struct {
	Verbose     bool   `mapstructure:"verbose"`
	LogLevel    string `mapstructure:"log_level"`
	MetricsAddr string `mapstructure:"metrics_addr"`

	API       APIConfig       `mapstructure:"api"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Output    OutputConfig    `mapstructure:"output"`
	Translate TranslateConfig `mapstructure:"translate"`
}

// APIConfig holds settings for the remote transformation service.
type APIConfig struct {
	Key        string `mapstructure:"key"`
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	Resolution string `mapstructure:"resolution"`
}

// BatchConfig holds batching settings.
type BatchConfig struct {
	// MaxWidth caps how many pages run concurrently within a batch.
	MaxWidth int `mapstructure:"max_width"`
	// MaxDimension downscales pages whose longest side exceeds it
	// before submission. 0 keeps original sizes.
	MaxDimension int `mapstructure:"max_dimension"`
}

// OutputConfig holds result output settings.
type OutputConfig struct {
	Dir      string `mapstructure:"dir"`
	Format   string `mapstructure:"format"`
	Progress bool   `mapstructure:"progress"`
	Quiet    bool   `mapstructure:"quiet"`
}

// TranslateConfig holds the language pair for translation runs.
type TranslateConfig struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		API: APIConfig{
			Model:      "gemini-2.5-flash-image",
			Resolution: "2K",
		},
		Batch: BatchConfig{
			MaxWidth: 4,
		},
		Output: OutputConfig{
			Dir:    "out",
			Format: "json",
		},
	}
}

// Validate checks the configuration for values no run can work with.
func (c *Config) Validate() error {
	if c.Batch.MaxWidth < 1 {
		return fmt.Errorf("batch.max_width must be at least 1, got %d", c.Batch.MaxWidth)
	}
	if c.Batch.MaxDimension < 0 {
		return fmt.Errorf("batch.max_dimension must not be negative, got %d", c.Batch.MaxDimension)
	}
	if c.API.Resolution != "" && !contains(validResolutions, c.API.Resolution) {
		return fmt.Errorf("api.resolution must be one of %v, got %q", validResolutions, c.API.Resolution)
	}
	if !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("output.format must be one of %v, got %q", validFormats, c.Output.Format)
	}
	if err := c.Translate.validate(); err != nil {
		return err
	}
	return nil
}

// Languages parses the configured language pair. Only valid once both
// sides are set.
func (t TranslateConfig) Languages() (from, to language.Tag, err error) {
	if t.From == "" || t.To == "" {
		return language.Und, language.Und, errors.New("translate.from and translate.to must both be set")
	}
	from, err = language.Parse(t.From)
	if err != nil {
		return language.Und, language.Und, fmt.Errorf("translate.from: invalid language %q: %w", t.From, err)
	}
	to, err = language.Parse(t.To)
	if err != nil {
		return language.Und, language.Und, fmt.Errorf("translate.to: invalid language %q: %w", t.To, err)
	}
	return from, to, nil
}

func (t TranslateConfig) validate() error {
	// The pair is optional at load time; colorize runs never use it.
	if t.From == "" && t.To == "" {
		return nil
	}
	_, _, err := t.Languages()
	return err
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
