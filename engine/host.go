package engine

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/pag-surface/target"
)

// hostTargets answers the engine's questions about render target sizes.
// For canvas targets the engine passes the canvas id as (ptr, len) in its
// own memory; for textures and framebuffers a is the object id.
type hostTargets struct {
	targets *target.Registry
}

func (h *hostTargets) lookup(m api.Module, kind, a, b uint32) (target.Size, bool) {
	if h.targets == nil {
		return target.Size{}, false
	}

	k := target.Kind(kind)
	switch k {
	case target.Canvas:
		mem := m.Memory()
		if mem == nil {
			return target.Size{}, false
		}
		name, ok := mem.Read(a, b)
		if !ok {
			Logger().Warn("canvas id out of guest memory bounds",
				zap.Uint32("ptr", a), zap.Uint32("len", b))
			return target.Size{}, false
		}
		return h.targets.Lookup(k, string(name))
	case target.Texture, target.FrameBuffer:
		return h.targets.Lookup(k, target.IDKey(a))
	default:
		Logger().Warn("engine asked for unknown target kind", zap.Uint32("kind", kind))
		return target.Size{}, false
	}
}

func (h *hostTargets) width(_ context.Context, m api.Module, kind, a, b uint32) uint32 {
	s, ok := h.lookup(m, kind, a, b)
	if !ok {
		return 0
	}
	return uint32(s.Width)
}

func (h *hostTargets) height(_ context.Context, m api.Module, kind, a, b uint32) uint32 {
	s, ok := h.lookup(m, kind, a, b)
	if !ok {
		return 0
	}
	return uint32(s.Height)
}

func instantiateHost(ctx context.Context, r wazero.Runtime, targets *target.Registry) (api.Module, error) {
	h := &hostTargets{targets: targets}
	return r.NewHostModuleBuilder(HostModule).
		NewFunctionBuilder().WithFunc(h.width).Export(HostTargetWidth).
		NewFunctionBuilder().WithFunc(h.height).Export(HostTargetHeight).
		Instantiate(ctx)
}
