package engine

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
)

// DefaultClass is the class prefix the compiled PAG engine exports its
// surface entry points under.
const DefaultClass = "_PAGSurface"

// Host import module and functions the engine may call back into.
const (
	HostModule       = "pag_host"
	HostTargetWidth  = "target_width"
	HostTargetHeight = "target_height"
)

// ExportNames maps surface operations to the engine's exported functions.
type ExportNames struct {
	FromCanvas      string
	FromTexture     string
	FromFrameBuffer string
	Width           string
	Height          string
	UpdateSize      string
	ClearAll        string
	FreeCache       string
	Delete          string
	Malloc          string
	Free            string
}

// DefaultExportNames returns the entry points of the stock engine build.
func DefaultExportNames() ExportNames {
	return ExportNamesFor(DefaultClass)
}

// ExportNamesFor returns entry point names under a custom class prefix.
// Static factories and instance methods share the "<class>._name" form:
//
//	_PAGSurface._FromCanvas(ptr, len) -> handle
//	_PAGSurface._width(handle) -> i32
//	_PAGSurface.delete(handle)
func ExportNamesFor(class string) ExportNames {
	class = strings.TrimSuffix(class, ".")
	return ExportNames{
		FromCanvas:      class + "._FromCanvas",
		FromTexture:     class + "._FromTexture",
		FromFrameBuffer: class + "._FromFrameBuffer",
		Width:           class + "._width",
		Height:          class + "._height",
		UpdateSize:      class + "._updateSize",
		ClearAll:        class + "._clearAll",
		FreeCache:       class + "._freeCache",
		Delete:          class + ".delete",
		Malloc:          "malloc",
		Free:            "free",
	}
}

type exportSig struct {
	name     string
	params   []api.ValueType
	results  []api.ValueType
	optional bool
}

var (
	i32  = api.ValueTypeI32
	none []api.ValueType
)

func (n ExportNames) signatures() []exportSig {
	return []exportSig{
		{name: n.FromCanvas, params: []api.ValueType{i32, i32}, results: []api.ValueType{i32}},
		{name: n.FromTexture, params: []api.ValueType{i32, i32, i32, i32}, results: []api.ValueType{i32}},
		{name: n.FromFrameBuffer, params: []api.ValueType{i32, i32, i32, i32}, results: []api.ValueType{i32}},
		{name: n.Width, params: []api.ValueType{i32}, results: []api.ValueType{i32}},
		{name: n.Height, params: []api.ValueType{i32}, results: []api.ValueType{i32}},
		{name: n.UpdateSize, params: []api.ValueType{i32}, results: none},
		{name: n.ClearAll, params: []api.ValueType{i32}, results: []api.ValueType{i32}},
		{name: n.FreeCache, params: []api.ValueType{i32}, results: none},
		{name: n.Delete, params: []api.ValueType{i32}, results: none},
		{name: n.Malloc, params: []api.ValueType{i32}, results: []api.ValueType{i32}},
		{name: n.Free, params: []api.ValueType{i32}, results: none, optional: true},
	}
}

func formatSig(params, results []api.ValueType) string {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(p))
	}
	b.WriteString(") -> (")
	for i, r := range results {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(api.ValueTypeName(r))
	}
	b.WriteByte(')')
	return b.String()
}

func sameTypes(a, b []api.ValueType) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
