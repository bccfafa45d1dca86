// Package config loads host configuration from YAML files with sensible
// defaults, and turns it into the concrete pieces the rest of the host
// consumes: an engine config, a zap logger, and an assertion handler.
package config

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/luaugo/luauhost/assert"
	"github.com/luaugo/luauhost/engine"
	"github.com/luaugo/luauhost/errors"
)

// Config is the top-level host configuration.
type Config struct {
	LogLevel string        `mapstructure:"log_level" yaml:"log_level"`
	Assert   AssertConfig  `mapstructure:"assert" yaml:"assert"`
	Runtime  RuntimeConfig `mapstructure:"runtime" yaml:"runtime"`
}

// AssertConfig controls where assertion diagnostics go.
type AssertConfig struct {
	// Output is "stdout", "stderr", or "log". With "log" the diagnostic is
	// emitted through the host logger instead of a raw stream.
	Output string `mapstructure:"output" yaml:"output"`
}

// RuntimeConfig holds runtime engine configuration.
type RuntimeConfig struct {
	// Memory limit per instance (in pages, 64KB each). 0 means no limit.
	MemoryPages uint32 `mapstructure:"memory_pages" yaml:"memory_pages"`
}

// Load reads configPath, or returns pure defaults when it is empty.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("assert.output", "stdout")
	v.SetDefault("runtime.memory_pages", 256) // 16MB

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "read config")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "decode config")
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Assert.Output {
	case "stdout", "stderr", "log":
	default:
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("assert.output %q (want stdout, stderr, or log)", c.Assert.Output))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("log_level %q", c.LogLevel))
	}
	return nil
}

// EngineConfig maps the runtime section onto an engine config.
func (c *Config) EngineConfig() *engine.Config {
	return &engine.Config{
		MemoryLimitPages: c.Runtime.MemoryPages,
	}
}

// BuildLogger builds a zap logger at the configured level.
func (c *Config) BuildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, errors.InvalidInput(errors.PhaseConfig,
			fmt.Sprintf("log_level %q", c.LogLevel))
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// AssertHandler builds the assertion handler the configuration describes.
// log is only consulted for the "log" output.
func (c *Config) AssertHandler(log *zap.Logger) assert.Handler {
	switch c.Assert.Output {
	case "stderr":
		return assert.Writer(os.Stderr)
	case "log":
		return assert.Logged(log, assert.Writer(io.Discard))
	default:
		return assert.Stdout()
	}
}

// Dump renders the effective configuration as YAML.
func (c *Config) Dump(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(errors.PhaseConfig, errors.KindInvalidData, err, "encode config")
	}
	return enc.Close()
}
