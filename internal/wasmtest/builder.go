// Package wasmtest builds small core WebAssembly modules for tests.
package wasmtest

import (
	"github.com/tetratelabs/wazero/api"
)

// FuncType is a function signature.
type FuncType struct {
	Params  []api.ValueType
	Results []api.ValueType
}

// Builder assembles a module from imported functions, defined functions,
// i32 globals and an optional memory. All imports must be added before the
// first defined function so indices stay stable.
type Builder struct {
	imports      []funcImport
	funcs        []funcDef
	globals      []global
	memoryExport string
	memoryPages  uint32
}

type funcImport struct {
	module string
	name   string
	typ    FuncType
}

type funcDef struct {
	export string
	typ    FuncType
	locals []api.ValueType
	body   []byte
}

type global struct {
	export  string
	mutable bool
	init    int32
}

// NewBuilder creates an empty module builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// ImportFunc adds a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, typ FuncType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmtest: imports must precede defined functions")
	}
	b.imports = append(b.imports, funcImport{module: module, name: name, typ: typ})
	return uint32(len(b.imports) - 1)
}

// AddFunc defines a function and returns its index. An empty export name
// keeps the function internal. body must not include the final end opcode.
func (b *Builder) AddFunc(export string, typ FuncType, locals []api.ValueType, body []byte) uint32 {
	b.funcs = append(b.funcs, funcDef{export: export, typ: typ, locals: locals, body: body})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// AddGlobal defines an i32 global and returns its index.
func (b *Builder) AddGlobal(export string, mutable bool, init int32) uint32 {
	b.globals = append(b.globals, global{export: export, mutable: mutable, init: init})
	return uint32(len(b.globals) - 1)
}

// SetMemory defines a memory of the given minimum size, exported under name
// when name is non-empty.
func (b *Builder) SetMemory(pages uint32, name string) {
	b.memoryPages = pages
	b.memoryExport = name
}

// Build generates the WASM module bytes.
func (b *Builder) Build() []byte {
	var wasm []byte

	// Magic and version
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	wasm = appendSection(wasm, 0x01, b.typeSection())
	if len(b.imports) > 0 {
		wasm = appendSection(wasm, 0x02, b.importSection())
	}
	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, 0x03, b.funcSection())
	}
	if b.memoryPages > 0 {
		wasm = appendSection(wasm, 0x05, b.memorySection())
	}
	if len(b.globals) > 0 {
		wasm = appendSection(wasm, 0x06, b.globalSection())
	}
	wasm = appendSection(wasm, 0x07, b.exportSection())
	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, 0x0a, b.codeSection())
	}
	return wasm
}

func appendSection(wasm []byte, id byte, section []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, EncodeULEB128(uint32(len(section)))...)
	return append(wasm, section...)
}

func appendName(section []byte, name string) []byte {
	section = append(section, EncodeULEB128(uint32(len(name)))...)
	return append(section, name...)
}

func appendFuncType(section []byte, t FuncType) []byte {
	section = append(section, 0x60)
	section = append(section, EncodeULEB128(uint32(len(t.Params)))...)
	section = append(section, t.Params...)
	section = append(section, EncodeULEB128(uint32(len(t.Results)))...)
	return append(section, t.Results...)
}

// typeSection emits one type per function, imports first.
func (b *Builder) typeSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.imports)+len(b.funcs)))...)
	for _, imp := range b.imports {
		section = appendFuncType(section, imp.typ)
	}
	for _, f := range b.funcs {
		section = appendFuncType(section, f.typ)
	}
	return section
}

func (b *Builder) importSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.imports)))...)
	for i, imp := range b.imports {
		section = appendName(section, imp.module)
		section = appendName(section, imp.name)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

func (b *Builder) funcSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)
	for i := range b.funcs {
		section = append(section, EncodeULEB128(uint32(len(b.imports)+i))...)
	}
	return section
}

func (b *Builder) memorySection() []byte {
	var section []byte
	section = append(section, 0x01, 0x00)
	return append(section, EncodeULEB128(b.memoryPages)...)
}

func (b *Builder) globalSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.globals)))...)
	for _, g := range b.globals {
		section = append(section, api.ValueTypeI32)
		if g.mutable {
			section = append(section, 0x01)
		} else {
			section = append(section, 0x00)
		}
		section = append(section, 0x41)
		section = append(section, EncodeSLEB128(int64(g.init))...)
		section = append(section, 0x0b)
	}
	return section
}

func (b *Builder) exportSection() []byte {
	var entries []byte
	count := 0

	if b.memoryPages > 0 && b.memoryExport != "" {
		entries = appendName(entries, b.memoryExport)
		entries = append(entries, 0x02, 0x00)
		count++
	}
	for i, g := range b.globals {
		if g.export == "" {
			continue
		}
		entries = appendName(entries, g.export)
		entries = append(entries, 0x03)
		entries = append(entries, EncodeULEB128(uint32(i))...)
		count++
	}
	for i, f := range b.funcs {
		if f.export == "" {
			continue
		}
		entries = appendName(entries, f.export)
		entries = append(entries, 0x00)
		entries = append(entries, EncodeULEB128(uint32(len(b.imports)+i))...)
		count++
	}

	section := EncodeULEB128(uint32(count))
	return append(section, entries...)
}

func (b *Builder) codeSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)
	for _, f := range b.funcs {
		body := funcBody(f)
		section = append(section, EncodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}

func funcBody(f funcDef) []byte {
	var body []byte
	body = append(body, EncodeULEB128(uint32(len(f.locals)))...)
	for _, l := range f.locals {
		body = append(body, 0x01, l)
	}
	body = append(body, f.body...)
	return append(body, 0x0b)
}

// EncodeULEB128 encodes an unsigned LEB128 value.
func EncodeULEB128(v uint32) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}

// EncodeSLEB128 encodes a signed LEB128 value.
func EncodeSLEB128(v int64) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			return append(out, c)
		}
		out = append(out, c|0x80)
	}
}
