package wasmtest

import (
	"github.com/tetratelabs/wazero/api"
)

// Exported globals of the surface engine module.
const (
	GlobalCacheFrees = "cache_frees"
	GlobalDeletes    = "deletes"
	PaintExport      = "test_paint"
)

// Target kinds as the engine passes them to the host.
const (
	kindCanvas      = 1
	kindTexture     = 2
	kindFrameBuffer = 3
)

// Instance record layout, one 32-byte slot per handle from address 0.
const (
	recSize    = 32
	offKind    = 0
	offA       = 4
	offB       = 8
	offWidth   = 12
	offHeight  = 16
	offContent = 20
	offAlive   = 24
	heapStart  = 4096
)

// SurfaceOptions shapes the generated surface engine module.
type SurfaceOptions struct {
	// Class is the export prefix. Defaults to "_PAGSurface".
	Class string

	// OmitMalloc leaves out the malloc export.
	OmitMalloc bool

	// WidthReturnsNothing declares _width with no result.
	WidthReturnsNothing bool

	// TrapOnClear makes _clearAll execute unreachable.
	TrapOnClear bool

	// EmbindImports adds an env._embind_register_class import as an embind
	// build would.
	EmbindImports bool
}

// SurfaceModule builds a minimal engine module implementing the surface
// entry points. Instances start with content so the first clearAll reports a
// change. Canvas sizes and size resyncs come from the pag_host imports.
// freeCache and delete bump the cache_frees and deletes globals.
func SurfaceModule(opts SurfaceOptions) []byte {
	class := opts.Class
	if class == "" {
		class = "_PAGSurface"
	}
	i32 := api.ValueTypeI32
	one := []api.ValueType{i32}

	b := NewBuilder()
	hostWidth := b.ImportFunc("pag_host", "target_width", FuncType{Params: []api.ValueType{i32, i32, i32}, Results: one})
	hostHeight := b.ImportFunc("pag_host", "target_height", FuncType{Params: []api.ValueType{i32, i32, i32}, Results: one})
	if opts.EmbindImports {
		b.ImportFunc("env", "_embind_register_class", FuncType{Params: one})
	}

	b.SetMemory(1, "memory")
	nextHandle := b.AddGlobal("", true, 1)
	heap := b.AddGlobal("", true, heapStart)
	frees := b.AddGlobal(GlobalCacheFrees, true, 0)
	deletes := b.AddGlobal(GlobalDeletes, true, 0)

	if !opts.OmitMalloc {
		// malloc(size) -> ptr: bump allocator, never frees
		b.AddFunc("malloc", FuncType{Params: one, Results: one}, nil, new(Code).
			GlobalGet(heap).
			GlobalGet(heap).LocalGet(0).I32Add().GlobalSet(heap).
			Bytes())
	}

	// create(kind, a, b, w, h) -> handle, 0 for an empty size
	create := func() uint32 {
		c := new(Code).
			LocalGet(3).I32Eqz().If().I32Const(0).Return().End().
			LocalGet(4).I32Eqz().If().I32Const(0).Return().End().
			GlobalGet(nextHandle).LocalTee(5).I32Const(recSize).I32Mul().LocalSet(6).
			GlobalGet(nextHandle).I32Const(1).I32Add().GlobalSet(nextHandle)
		for i, off := range []uint32{offKind, offA, offB, offWidth, offHeight} {
			c.LocalGet(6).LocalGet(uint32(i)).I32Store(off)
		}
		c.LocalGet(6).I32Const(1).I32Store(offContent).
			LocalGet(6).I32Const(1).I32Store(offAlive).
			LocalGet(5)
		return b.AddFunc("", FuncType{Params: []api.ValueType{i32, i32, i32, i32, i32}, Results: one},
			[]api.ValueType{i32, i32}, c.Bytes())
	}()

	// _FromCanvas(ptr, len): size comes from the host
	fromCanvas := new(Code)
	for _, fn := range []uint32{hostWidth, hostHeight} {
		fromCanvas.I32Const(kindCanvas).LocalGet(0).LocalGet(1).Call(fn)
	}
	fromCanvas.LocalSet(3).LocalSet(2).
		I32Const(kindCanvas).LocalGet(0).LocalGet(1).LocalGet(2).LocalGet(3).Call(create)
	b.AddFunc(class+"._FromCanvas", FuncType{Params: []api.ValueType{i32, i32}, Results: one},
		[]api.ValueType{i32, i32}, fromCanvas.Bytes())

	fromTarget := func(kind int32) []byte {
		return new(Code).
			I32Const(kind).LocalGet(0).I32Const(0).LocalGet(1).LocalGet(2).Call(create).
			Bytes()
	}
	targetType := FuncType{Params: []api.ValueType{i32, i32, i32, i32}, Results: one}
	b.AddFunc(class+"._FromTexture", targetType, nil, fromTarget(kindTexture))
	b.AddFunc(class+"._FromFrameBuffer", targetType, nil, fromTarget(kindFrameBuffer))

	field := func(off uint32) []byte {
		return new(Code).LocalGet(0).I32Const(recSize).I32Mul().I32Load(off).Bytes()
	}
	widthType := FuncType{Params: one, Results: one}
	widthBody := field(offWidth)
	if opts.WidthReturnsNothing {
		widthType = FuncType{Params: one}
		widthBody = append(widthBody, 0x1a) // drop
	}
	b.AddFunc(class+"._width", widthType, nil, widthBody)
	b.AddFunc(class+"._height", FuncType{Params: one, Results: one}, nil, field(offHeight))

	// _updateSize(h): re-query the host; a zero width keeps the old size
	hostArgs := func(c *Code) *Code {
		return c.LocalGet(1).I32Load(offKind).LocalGet(1).I32Load(offA).LocalGet(1).I32Load(offB)
	}
	update := new(Code).LocalGet(0).I32Const(recSize).I32Mul().LocalSet(1)
	hostArgs(update).Call(hostWidth).LocalSet(2)
	update.LocalGet(2).If().
		LocalGet(1).LocalGet(2).I32Store(offWidth).
		LocalGet(1)
	hostArgs(update).Call(hostHeight).I32Store(offHeight)
	update.End()
	b.AddFunc(class+"._updateSize", FuncType{Params: one}, []api.ValueType{i32, i32}, update.Bytes())

	// _clearAll(h) -> previous content flag
	clear := new(Code)
	if opts.TrapOnClear {
		clear.Unreachable()
	} else {
		clear.LocalGet(0).I32Const(recSize).I32Mul().LocalTee(1).I32Load(offContent).
			LocalGet(1).I32Const(0).I32Store(offContent)
	}
	b.AddFunc(class+"._clearAll", FuncType{Params: one, Results: one}, []api.ValueType{i32}, clear.Bytes())

	counter := func(g uint32) *Code {
		return new(Code).GlobalGet(g).I32Const(1).I32Add().GlobalSet(g)
	}
	b.AddFunc(class+"._freeCache", FuncType{Params: one}, nil, counter(frees).Bytes())

	del := new(Code).LocalGet(0).I32Const(recSize).I32Mul().I32Const(0).I32Store(offAlive)
	del.buf = append(del.buf, counter(deletes).Bytes()...)
	b.AddFunc(class+".delete", FuncType{Params: one}, nil, del.Bytes())

	b.AddFunc(PaintExport, FuncType{Params: one}, nil, new(Code).
		LocalGet(0).I32Const(recSize).I32Mul().I32Const(1).I32Store(offContent).
		Bytes())

	return b.Build()
}
