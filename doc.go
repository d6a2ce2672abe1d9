// Package pagsurface binds the drawable surfaces of a compiled PAG rendering
// engine to Go.
//
// The engine is an opaque WebAssembly module. This module loads it, forwards
// surface operations to its exports and gives Go callers a typed, validated
// handle with explicit lifetime.
//
// # Architecture Overview
//
//	pagsurface/
//	├── surface/         Surface handle: factories, queries, clear, free, destroy
//	├── engine/          Engine interface, wazero-backed engine, software engine
//	├── target/          Registry of host render targets and their sizes
//	├── resource/        Handle table owning native instances
//	├── config/          YAML and environment configuration
//	├── errors/          Structured error types
//	└── cmd/pagsurface/  Command line runner and interactive TUI
//
// # Quick Start
//
//	targets := target.NewRegistry()
//	targets.SetCanvas("main", 640, 480)
//
//	eng, err := engine.NewWazeroEngine(ctx, wasmBytes, &engine.Config{Targets: targets})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Close(ctx)
//
//	s, err := surface.FromCanvas(ctx, eng, "main")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	w, _ := s.Width(ctx)  // 640
//	changed, _ := s.ClearAll(ctx)
//
// engine.NewSoftwareEngine implements the same contract in pure Go and is a
// drop-in replacement where the compiled engine is not available.
//
// # Render Targets
//
// Canvases are known by name, textures and framebuffers by id. The engine
// asks the host for a target's current size through the target.Registry, so
// a host that resizes a canvas calls Registry.Resize and then
// Surface.UpdateSize.
//
// # Thread Safety
//
// Surfaces, engines and registries are safe for concurrent use. Calls into a
// single engine are serialized.
package pagsurface
