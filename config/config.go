// Package config loads pagsurface settings from a YAML file and the
// environment.
package config

import (
	"os"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v2"

	"github.com/wippyai/pag-surface/errors"
	"github.com/wippyai/pag-surface/target"
)

// EnvPrefix prefixes every environment variable the config reads.
const EnvPrefix = "PAG_SURFACE_"

// Engine kinds.
const (
	EngineWasm     = "wasm"
	EngineSoftware = "software"
)

// Config is the top-level configuration.
type Config struct {
	// Engine selects the rendering engine: wasm or software.
	Engine string `yaml:"engine"`

	// Module is the path of the compiled engine module. Required for wasm.
	Module string `yaml:"module"`

	// Class is the export prefix of the engine's surface entry points.
	Class string `yaml:"class"`

	// MemoryLimitPages caps guest memory in 64KB pages. 0 means no cap.
	MemoryLimitPages uint32 `yaml:"memory_limit_pages"`

	Log     LogConfig     `yaml:"log"`
	Tracing TracingConfig `yaml:"tracing"`

	// Render targets the host owns at startup.
	Canvases     []CanvasConfig `yaml:"canvases"`
	Textures     []TargetConfig `yaml:"textures"`
	FrameBuffers []TargetConfig `yaml:"framebuffers"`
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level" env:"LEVEL"`   // debug, info, warn, error
	Format string `yaml:"format" env:"FORMAT"` // console, json
}

// TracingConfig contains OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled" env:"ENABLED"`
	Endpoint    string `yaml:"endpoint" env:"ENDPOINT"`
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
}

// CanvasConfig declares a named canvas
type CanvasConfig struct {
	Name   string `yaml:"name"`
	Width  int32  `yaml:"width"`
	Height int32  `yaml:"height"`
}

// TargetConfig declares a texture or framebuffer by id
type TargetConfig struct {
	ID     uint32 `yaml:"id"`
	Width  int32  `yaml:"width"`
	Height int32  `yaml:"height"`
}

// DefaultConfig creates a default configuration
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineSoftware,
		Class:  "_PAGSurface",
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Tracing: TracingConfig{
			ServiceName: "pagsurface",
		},
	}
}

// Override adjusts a loaded configuration before validation.
type Override func(*Config)

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty), PAG_SURFACE_* environment variables and overrides,
// in that order, then validates it.
func Load(path string, overrides ...Override) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Config("read "+path, err)
		}
		if err := yaml.UnmarshalStrict(data, cfg); err != nil {
			return nil, errors.New(errors.PhaseConfig, errors.KindInvalidData).
				Detail("parse %s", path).Cause(err).Build()
		}
	}

	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// envConfig holds the settings that can be overridden from the
// environment. Render targets are file-only.
type envConfig struct {
	Engine           string        `env:"ENGINE"`
	Module           string        `env:"MODULE"`
	Class            string        `env:"CLASS"`
	MemoryLimitPages uint32        `env:"MEMORY_LIMIT_PAGES"`
	Log              LogConfig     `envPrefix:"LOG_"`
	Tracing          TracingConfig `envPrefix:"TRACING_"`
}

// ApplyEnv overrides cfg with any PAG_SURFACE_* variables that are set.
func ApplyEnv(cfg *Config) error {
	ec := envConfig{
		Engine:           cfg.Engine,
		Module:           cfg.Module,
		Class:            cfg.Class,
		MemoryLimitPages: cfg.MemoryLimitPages,
		Log:              cfg.Log,
		Tracing:          cfg.Tracing,
	}
	if err := env.ParseWithOptions(&ec, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.Config("parse env", err)
	}
	cfg.Engine = ec.Engine
	cfg.Module = ec.Module
	cfg.Class = ec.Class
	cfg.MemoryLimitPages = ec.MemoryLimitPages
	cfg.Log = ec.Log
	cfg.Tracing = ec.Tracing
	return nil
}

// Save writes cfg to path as YAML.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Config("serialize config", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Config("write "+path, err)
	}
	return nil
}

// Validate checks the configuration for values no engine can run with.
func (c *Config) Validate() error {
	switch c.Engine {
	case EngineSoftware:
	case EngineWasm:
		if c.Module == "" {
			return invalid("engine %q needs a module path", c.Engine)
		}
	default:
		return invalid("unknown engine %q, want %s or %s", c.Engine, EngineWasm, EngineSoftware)
	}

	if c.Class == "" {
		return invalid("empty export class")
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return invalid("log level %q: %v", c.Log.Level, err)
	}
	if c.Log.Format != "console" && c.Log.Format != "json" {
		return invalid("unknown log format %q", c.Log.Format)
	}
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return invalid("tracing enabled without an endpoint")
	}

	seen := make(map[string]bool)
	for _, cv := range c.Canvases {
		if cv.Name == "" {
			return invalid("canvas with empty name")
		}
		if seen[cv.Name] {
			return invalid("duplicate canvas %q", cv.Name)
		}
		seen[cv.Name] = true
		if !(target.Size{Width: cv.Width, Height: cv.Height}).Valid() {
			return invalid("canvas %q has size %dx%d", cv.Name, cv.Width, cv.Height)
		}
	}
	for _, t := range append(append([]TargetConfig{}, c.Textures...), c.FrameBuffers...) {
		if !(target.Size{Width: t.Width, Height: t.Height}).Valid() {
			return invalid("target %d has size %dx%d", t.ID, t.Width, t.Height)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Detail(format, args...).Build()
}

// Registry returns a target registry holding the configured render targets.
func (c *Config) Registry() *target.Registry {
	r := target.NewRegistry()
	for _, cv := range c.Canvases {
		r.SetCanvas(cv.Name, cv.Width, cv.Height)
	}
	for _, t := range c.Textures {
		r.SetTexture(t.ID, t.Width, t.Height)
	}
	for _, fb := range c.FrameBuffers {
		r.SetFrameBuffer(fb.ID, fb.Width, fb.Height)
	}
	return r
}
