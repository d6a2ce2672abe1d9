package engine

import (
	"context"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/emscripten"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/pag-surface/errors"
	"github.com/wippyai/pag-surface/target"
)

// Config holds configuration for a WazeroEngine
type Config struct {
	// Targets resolves canvas ids and target sizes for the engine's host
	// imports. Nil means every lookup fails.
	Targets *target.Registry

	// Names overrides the exported entry points. Zero value means
	// DefaultExportNames.
	Names *ExportNames

	// ModuleName is the wazero instance name. Defaults to "pag".
	ModuleName string

	// MemoryLimitPages sets the maximum guest memory in pages (64KB each).
	// 0 means the wazero default (65536 pages = 4GB).
	MemoryLimitPages uint32
}

// WazeroEngine runs a compiled engine module with wazero and forwards
// surface operations to its exports. Calls are serialized; the engine is
// safe for concurrent use.
type WazeroEngine struct {
	runtime wazero.Runtime
	module  api.Module
	fns     wazeroFuncs
	names   ExportNames
	live    map[Handle]target.Kind
	mu      sync.Mutex
	closed  bool
}

type wazeroFuncs struct {
	fromCanvas      api.Function
	fromTexture     api.Function
	fromFrameBuffer api.Function
	width           api.Function
	height          api.Function
	updateSize      api.Function
	clearAll        api.Function
	freeCache       api.Function
	delete          api.Function
	malloc          api.Function
	free            api.Function
}

// NewWazeroEngine compiles and instantiates the engine module.
//
// Emscripten ("env") and WASI preview1 imports are satisfied automatically
// when the module declares them; the pag_host module is always provided.
func NewWazeroEngine(ctx context.Context, wasmBytes []byte, cfg *Config) (*WazeroEngine, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	names := DefaultExportNames()
	if cfg.Names != nil {
		names = *cfg.Names
	}
	moduleName := cfg.ModuleName
	if moduleName == "" {
		moduleName = "pag"
	}

	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	r := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	compiled, err := r.CompileModule(ctx, wasmBytes)
	if err != nil {
		r.Close(ctx)
		return nil, errors.Load("compile engine module", err)
	}

	if err := rejectEmbind(compiled); err != nil {
		r.Close(ctx)
		return nil, err
	}
	if err := instantiateImports(ctx, r, compiled, cfg.Targets); err != nil {
		r.Close(ctx)
		return nil, err
	}

	mod, err := r.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(moduleName).WithStartFunctions("_initialize"))
	if err != nil {
		r.Close(ctx)
		return nil, errors.Instantiation(err)
	}

	fns, err := resolveExports(mod, names)
	if err != nil {
		r.Close(ctx)
		return nil, err
	}

	Logger().Debug("engine module loaded",
		zap.String("module", moduleName),
		zap.Int("exports", len(compiled.ExportedFunctions())))

	return &WazeroEngine{
		runtime: r,
		module:  mod,
		fns:     fns,
		names:   names,
		live:    make(map[Handle]target.Kind),
	}, nil
}

// rejectEmbind fails for builds that register the surface class at runtime
// through embind instead of exporting its entry points.
func rejectEmbind(compiled wazero.CompiledModule) error {
	for _, def := range compiled.ImportedFunctions() {
		_, name, _ := def.Import()
		if strings.HasPrefix(name, "_embind_register_") {
			return errors.New(errors.PhaseLoad, errors.KindUnsupported).
				Detail("embind build (imports %s); the engine must export its entry points", name).Build()
		}
	}
	return nil
}

func instantiateImports(ctx context.Context, r wazero.Runtime, compiled wazero.CompiledModule, targets *target.Registry) error {
	if _, err := instantiateHost(ctx, r, targets); err != nil {
		return errors.New(errors.PhaseHost, errors.KindInstantiation).
			Detail("instantiate %s", HostModule).Cause(err).Build()
	}

	needs := make(map[string]bool)
	for _, def := range compiled.ImportedFunctions() {
		mod, _, _ := def.Import()
		needs[mod] = true
	}

	if needs[wasi_snapshot_preview1.ModuleName] {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			return errors.New(errors.PhaseHost, errors.KindInstantiation).
				Detail("instantiate %s", wasi_snapshot_preview1.ModuleName).Cause(err).Build()
		}
	}
	if needs["env"] {
		if _, err := emscripten.InstantiateForModule(ctx, r, compiled); err != nil {
			return errors.New(errors.PhaseHost, errors.KindInstantiation).
				Detail("instantiate emscripten env").Cause(err).Build()
		}
	}
	return nil
}

func resolveExports(mod api.Module, names ExportNames) (wazeroFuncs, error) {
	found := make(map[string]api.Function)
	for _, sig := range names.signatures() {
		fn := mod.ExportedFunction(sig.name)
		if fn == nil {
			if sig.optional {
				continue
			}
			return wazeroFuncs{}, errors.NotFound(errors.PhaseLoad, "engine export", sig.name)
		}
		def := fn.Definition()
		if !sameTypes(def.ParamTypes(), sig.params) || !sameTypes(def.ResultTypes(), sig.results) {
			return wazeroFuncs{}, errors.SignatureMismatch(sig.name,
				formatSig(sig.params, sig.results),
				formatSig(def.ParamTypes(), def.ResultTypes()))
		}
		found[sig.name] = fn
	}

	return wazeroFuncs{
		fromCanvas:      found[names.FromCanvas],
		fromTexture:     found[names.FromTexture],
		fromFrameBuffer: found[names.FromFrameBuffer],
		width:           found[names.Width],
		height:          found[names.Height],
		updateSize:      found[names.UpdateSize],
		clearAll:        found[names.ClearAll],
		freeCache:       found[names.FreeCache],
		delete:          found[names.Delete],
		malloc:          found[names.Malloc],
		free:            found[names.Free],
	}, nil
}

// Names returns the entry points this engine resolved.
func (e *WazeroEngine) Names() ExportNames {
	return e.names
}

// Live returns the number of native instances created and not yet deleted.
func (e *WazeroEngine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// call invokes fn with e.mu held.
func (e *WazeroEngine) call(ctx context.Context, phase errors.Phase, name string, fn api.Function, args ...uint64) ([]uint64, error) {
	if e.closed {
		return nil, errors.Closed(phase, name)
	}
	results, err := fn.Call(ctx, args...)
	if err != nil {
		return nil, errors.Trap(phase, name, err)
	}
	return results, nil
}

// instance checks h is live and calls fn on it with e.mu held.
func (e *WazeroEngine) instance(ctx context.Context, name string, fn api.Function, h Handle) ([]uint64, error) {
	if e.closed {
		return nil, errors.Closed(errors.PhaseCall, name)
	}
	if _, ok := e.live[h]; !ok {
		return nil, errors.UnknownHandle(name, uint32(h))
	}
	return e.call(ctx, errors.PhaseCall, name, fn, api.EncodeU32(uint32(h)))
}

func (e *WazeroEngine) track(kind target.Kind, results []uint64) Handle {
	h := Handle(api.DecodeU32(results[0]))
	if h != 0 {
		e.live[h] = kind
	}
	return h
}

// FromCanvas copies canvasID into guest memory and asks the engine to bind
// a surface to that canvas.
func (e *WazeroEngine) FromCanvas(ctx context.Context, canvasID string) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := uint32(len(canvasID))
	// NUL-terminated so C-string consumers in the guest see the same id.
	res, err := e.call(ctx, errors.PhaseCreate, e.names.Malloc, e.fns.malloc, api.EncodeU32(n+1))
	if err != nil {
		return 0, err
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, errors.New(errors.PhaseCreate, errors.KindAllocation).
			Op(e.names.Malloc).Detail("allocate %d bytes for canvas id", n+1).Build()
	}
	defer e.release(ctx, ptr)

	mem := e.module.Memory()
	if mem == nil {
		return 0, errors.New(errors.PhaseCreate, errors.KindUnsupported).
			Op(e.names.FromCanvas).Detail("engine module has no memory").Build()
	}
	buf := append([]byte(canvasID), 0)
	if !mem.Write(ptr, buf) {
		return 0, errors.New(errors.PhaseCreate, errors.KindAllocation).
			Op(e.names.FromCanvas).Detail("canvas id at %d out of memory bounds", ptr).Build()
	}

	res, err = e.call(ctx, errors.PhaseCreate, e.names.FromCanvas, e.fns.fromCanvas,
		api.EncodeU32(ptr), api.EncodeU32(n))
	if err != nil {
		return 0, err
	}
	return e.track(target.Canvas, res), nil
}

func (e *WazeroEngine) release(ctx context.Context, ptr uint32) {
	if e.fns.free == nil {
		return
	}
	if _, err := e.call(ctx, errors.PhaseCreate, e.names.Free, e.fns.free, api.EncodeU32(ptr)); err != nil {
		Logger().Warn("free canvas id", zap.Uint32("ptr", ptr), zap.Error(err))
	}
}

// FromTexture asks the engine to bind a surface to an existing texture.
func (e *WazeroEngine) FromTexture(ctx context.Context, textureID uint32, width, height int32, flipY bool) (Handle, error) {
	return e.fromTarget(ctx, target.Texture, e.names.FromTexture, e.fns.fromTexture, textureID, width, height, flipY)
}

// FromFrameBuffer asks the engine to bind a surface to a framebuffer object.
func (e *WazeroEngine) FromFrameBuffer(ctx context.Context, frameBufferID uint32, width, height int32, flipY bool) (Handle, error) {
	return e.fromTarget(ctx, target.FrameBuffer, e.names.FromFrameBuffer, e.fns.fromFrameBuffer, frameBufferID, width, height, flipY)
}

func (e *WazeroEngine) fromTarget(ctx context.Context, kind target.Kind, name string, fn api.Function, id uint32, width, height int32, flipY bool) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var flip uint32
	if flipY {
		flip = 1
	}
	res, err := e.call(ctx, errors.PhaseCreate, name, fn,
		api.EncodeU32(id), api.EncodeI32(width), api.EncodeI32(height), api.EncodeU32(flip))
	if err != nil {
		return 0, err
	}
	return e.track(kind, res), nil
}

// Width returns the engine-reported width of the instance.
func (e *WazeroEngine) Width(ctx context.Context, h Handle) (int32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.instance(ctx, e.names.Width, e.fns.width, h)
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

// Height returns the engine-reported height of the instance.
func (e *WazeroEngine) Height(ctx context.Context, h Handle) (int32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.instance(ctx, e.names.Height, e.fns.height, h)
	if err != nil {
		return 0, err
	}
	return api.DecodeI32(res[0]), nil
}

// UpdateSize asks the guest to resync the instance with its target's size.
func (e *WazeroEngine) UpdateSize(ctx context.Context, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.instance(ctx, e.names.UpdateSize, e.fns.updateSize, h)
	return err
}

// ClearAll reports whether the engine changed any pixel.
func (e *WazeroEngine) ClearAll(ctx context.Context, h Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res, err := e.instance(ctx, e.names.ClearAll, e.fns.clearAll, h)
	if err != nil {
		return false, err
	}
	return api.DecodeU32(res[0]) != 0, nil
}

// FreeCache asks the guest to release caches held for the instance.
func (e *WazeroEngine) FreeCache(ctx context.Context, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, err := e.instance(ctx, e.names.FreeCache, e.fns.freeCache, h)
	return err
}

// Delete releases the native instance. The handle is forgotten even if the
// engine traps, so a failed delete is never retried against freed memory.
func (e *WazeroEngine) Delete(ctx context.Context, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.Closed(errors.PhaseRelease, e.names.Delete)
	}
	if _, ok := e.live[h]; !ok {
		return errors.UnknownHandle(e.names.Delete, uint32(h))
	}
	delete(e.live, h)
	_, err := e.call(ctx, errors.PhaseRelease, e.names.Delete, e.fns.delete, api.EncodeU32(uint32(h)))
	return err
}

// Close tears down the wazero runtime. Instances still live are released
// with the guest memory.
func (e *WazeroEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if n := len(e.live); n > 0 {
		Logger().Warn("closing engine with live surfaces", zap.Int("live", n))
	}
	e.live = nil
	return e.runtime.Close(ctx)
}
