// Package engine provides the rendering engines a surface forwards to.
//
// The compiled PAG engine is an opaque WebAssembly module. WazeroEngine loads
// it with wazero and binds each surface operation to one exported function:
//
//	Operation          Export                          Signature
//	───────────────────────────────────────────────────────────────────────
//	from canvas        _PAGSurface._FromCanvas         (ptr, len) -> handle
//	from texture       _PAGSurface._FromTexture        (id, w, h, flipY) -> handle
//	from framebuffer   _PAGSurface._FromFrameBuffer    (id, w, h, flipY) -> handle
//	width / height     _PAGSurface._width / _height    (handle) -> i32
//	update size        _PAGSurface._updateSize         (handle)
//	clear all          _PAGSurface._clearAll           (handle) -> bool as i32
//	free cache         _PAGSurface._freeCache          (handle)
//	destroy            _PAGSurface.delete              (handle)
//	                   malloc / free                   canvas id marshalling
//
// The class prefix is configurable through ExportNames. Missing exports and
// signature mismatches fail at load time rather than at first call.
//
// # Host Imports
//
// The engine asks the host for render target sizes through the pag_host
// module:
//
//	target_width(kind, a, b) -> i32
//	target_height(kind, a, b) -> i32
//
// kind is a target.Kind. For canvases (a, b) is the canvas id in guest
// memory; for textures and framebuffers a is the object id. Both return 0 for
// unknown targets. Answers come from the target.Registry passed in Config.
//
// Modules built with Emscripten get the wazero emscripten and WASI preview1
// host modules when they import them.
//
// # Software Engine
//
// SoftwareEngine implements the same contract in Go on top of gg software
// raster contexts. It adds Paint and Snapshot for drawing into and reading
// back an instance.
//
// # Thread Safety
//
// Both engines serialize calls internally and are safe for concurrent use.
package engine
