package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wippyai/pag-surface/errors"
	"github.com/wippyai/pag-surface/target"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pagsurface.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine != EngineSoftware {
		t.Errorf("Engine = %q, want %q", cfg.Engine, EngineSoftware)
	}
	if cfg.Class != "_PAGSurface" {
		t.Errorf("Class = %q", cfg.Class)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "console" {
		t.Errorf("Log = %+v", cfg.Log)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeFile(t, `
engine: wasm
module: engine.wasm
memory_limit_pages: 512
log:
  level: debug
  format: json
canvases:
  - name: main
    width: 640
    height: 480
textures:
  - id: 1
    width: 100
    height: 200
framebuffers:
  - id: 0
    width: 800
    height: 600
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine != EngineWasm || cfg.Module != "engine.wasm" || cfg.MemoryLimitPages != 512 {
		t.Errorf("engine settings = %q %q %d", cfg.Engine, cfg.Module, cfg.MemoryLimitPages)
	}
	if cfg.Class != "_PAGSurface" {
		t.Errorf("Class default lost: %q", cfg.Class)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}

	reg := cfg.Registry()
	if reg.Len() != 3 {
		t.Errorf("registry has %d targets, want 3", reg.Len())
	}
	if size, ok := reg.Lookup(target.Canvas, "main"); !ok || size != (target.Size{Width: 640, Height: 480}) {
		t.Errorf("canvas main = %+v, %v", size, ok)
	}
	if size, ok := reg.Lookup(target.FrameBuffer, target.IDKey(0)); !ok || size.Width != 800 {
		t.Errorf("framebuffer 0 = %+v, %v", size, ok)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeFile(t, "engine: software\nlog:\n  level: warn\n")
	t.Setenv("PAG_SURFACE_ENGINE", "wasm")
	t.Setenv("PAG_SURFACE_MODULE", "/opt/pag/engine.wasm")
	t.Setenv("PAG_SURFACE_LOG_LEVEL", "debug")
	t.Setenv("PAG_SURFACE_TRACING_ENABLED", "true")
	t.Setenv("PAG_SURFACE_TRACING_ENDPOINT", "http://localhost:4318")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine != EngineWasm || cfg.Module != "/opt/pag/engine.wasm" {
		t.Errorf("engine = %q %q", cfg.Engine, cfg.Module)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.Endpoint != "http://localhost:4318" {
		t.Errorf("Tracing = %+v", cfg.Tracing)
	}
	if cfg.Tracing.ServiceName != "pagsurface" {
		t.Errorf("Tracing.ServiceName default lost: %q", cfg.Tracing.ServiceName)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PAG_SURFACE_ENGINE", "software")

	cfg, err := Load("", func(c *Config) {
		c.Engine = EngineWasm
		c.Module = "engine.wasm"
	})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine != EngineWasm {
		t.Errorf("Engine = %q, override should win over env", cfg.Engine)
	}

	_, err = Load("", func(c *Config) { c.Engine = EngineWasm })
	if !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("override is not validated: %v", err)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		kind errors.Kind
	}{
		{"bad yaml", "engine: [", errors.KindInvalidData},
		{"unknown field", "engines: wasm\n", errors.KindInvalidData},
		{"unknown engine", "engine: gpu\n", errors.KindInvalidInput},
		{"wasm without module", "engine: wasm\n", errors.KindInvalidInput},
		{"bad log level", "log:\n  level: loud\n", errors.KindInvalidInput},
		{"bad log format", "log:\n  format: xml\n", errors.KindInvalidInput},
		{"tracing without endpoint", "tracing:\n  enabled: true\n", errors.KindInvalidInput},
		{"empty canvas name", "canvases:\n  - width: 1\n    height: 1\n", errors.KindInvalidInput},
		{"duplicate canvas", "canvases:\n  - {name: a, width: 1, height: 1}\n  - {name: a, width: 2, height: 2}\n", errors.KindInvalidInput},
		{"zero texture size", "textures:\n  - {id: 1, width: 0, height: 5}\n", errors.KindInvalidInput},
		{"oversized framebuffer", "framebuffers:\n  - {id: 0, width: 16385, height: 5}\n", errors.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.yaml))
			if !errors.IsKind(err, tt.kind) {
				t.Errorf("err = %v, want kind %s", err, tt.kind)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.KindOf(err) != errors.KindInvalidData {
		t.Errorf("kind = %s", errors.KindOf(err))
	}
}

func TestSave(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Canvases = []CanvasConfig{{Name: "main", Width: 320, Height: 240}}

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(loaded.Canvases) != 1 || loaded.Canvases[0] != cfg.Canvases[0] {
		t.Errorf("Canvases = %+v", loaded.Canvases)
	}
}
