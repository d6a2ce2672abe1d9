package surface

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/pag-surface/engine"
	"github.com/wippyai/pag-surface/errors"
	"github.com/wippyai/pag-surface/target"
)

// Surface is a drawable render target backed by one native engine instance.
//
// A Surface owns its instance: Destroy (or Close) releases it exactly once.
// Every operation after that fails with a destroyed error. Surfaces that
// are garbage collected without being released have their instance deleted
// and a warning logged.
type Surface struct {
	st      *state
	desc    target.Descriptor
	cleanup runtime.Cleanup
	mu      sync.Mutex
}

// state is what the drop guard needs to release a leaked instance. It must
// not point back at the Surface.
type state struct {
	eng      engine.Engine
	handle   engine.Handle
	kind     target.Kind
	released bool
}

// FromCanvas creates a surface bound to the named canvas.
func FromCanvas(ctx context.Context, eng engine.Engine, canvasID string) (*Surface, error) {
	if eng == nil {
		return nil, errors.InvalidInput(errors.PhaseValidate, "nil engine")
	}
	if canvasID == "" {
		return nil, errors.New(errors.PhaseValidate, errors.KindInvalidInput).
			Op("from-canvas").Detail("empty canvas id").Build()
	}
	desc := target.Descriptor{Kind: target.Canvas, Name: canvasID}
	return create(ctx, eng, "from-canvas", desc, func(ctx context.Context) (engine.Handle, error) {
		return eng.FromCanvas(ctx, canvasID)
	})
}

// FromTexture creates a surface bound to an existing texture. flipY marks a
// target whose rows are stored bottom-up. Both sides must be in
// 1..target.MaxDimension.
func FromTexture(ctx context.Context, eng engine.Engine, textureID uint32, width, height int32, flipY bool) (*Surface, error) {
	if eng == nil {
		return nil, errors.InvalidInput(errors.PhaseValidate, "nil engine")
	}
	if !(target.Size{Width: width, Height: height}).Valid() {
		return nil, errors.InvalidDimensions("from-texture", width, height)
	}
	desc := target.Descriptor{
		Kind:  target.Texture,
		ID:    textureID,
		Size:  target.Size{Width: width, Height: height},
		FlipY: flipY,
	}
	return create(ctx, eng, "from-texture", desc, func(ctx context.Context) (engine.Handle, error) {
		return eng.FromTexture(ctx, textureID, width, height, flipY)
	})
}

// FromFrameBuffer creates a surface bound to a framebuffer object. ID 0 is
// the default framebuffer.
func FromFrameBuffer(ctx context.Context, eng engine.Engine, frameBufferID uint32, width, height int32, flipY bool) (*Surface, error) {
	if eng == nil {
		return nil, errors.InvalidInput(errors.PhaseValidate, "nil engine")
	}
	if !(target.Size{Width: width, Height: height}).Valid() {
		return nil, errors.InvalidDimensions("from-framebuffer", width, height)
	}
	desc := target.Descriptor{
		Kind:  target.FrameBuffer,
		ID:    frameBufferID,
		Size:  target.Size{Width: width, Height: height},
		FlipY: flipY,
	}
	return create(ctx, eng, "from-framebuffer", desc, func(ctx context.Context) (engine.Handle, error) {
		return eng.FromFrameBuffer(ctx, frameBufferID, width, height, flipY)
	})
}

func create(ctx context.Context, eng engine.Engine, op string, desc target.Descriptor, fn func(context.Context) (engine.Handle, error)) (s *Surface, err error) {
	ctx, span := startSpan(ctx, op, desc.Kind, 0)
	defer func() { endSpan(span, err) }()
	if desc.Size.Valid() {
		span.SetAttributes(AttrWidth.Int64(int64(desc.Size.Width)), AttrHeight.Int64(int64(desc.Size.Height)))
	}

	h, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if h == 0 {
		return nil, errors.NullHandle(op)
	}
	span.SetAttributes(AttrHandle.Int64(int64(h)))

	s = &Surface{
		st:   &state{eng: eng, handle: h, kind: desc.Kind},
		desc: desc,
	}
	s.cleanup = runtime.AddCleanup(s, releaseLeaked, s.st)

	Logger().Debug("surface created",
		zap.Stringer("kind", desc.Kind),
		zap.Uint32("handle", uint32(h)),
		zap.String("target", desc.Key()))
	return s, nil
}

// releaseLeaked runs when a Surface becomes unreachable without Destroy.
func releaseLeaked(st *state) {
	if st.released {
		return
	}
	st.released = true
	Logger().Warn("surface garbage collected without Destroy",
		zap.Stringer("kind", st.kind),
		zap.Uint32("handle", uint32(st.handle)))
	if err := st.eng.Delete(context.Background(), st.handle); err != nil {
		Logger().Warn("release leaked surface", zap.Uint32("handle", uint32(st.handle)), zap.Error(err))
	}
}

// Kind returns the kind of target the surface was created from.
func (s *Surface) Kind() target.Kind {
	return s.desc.Kind
}

// Handle returns the native instance handle. It stays readable after
// Destroy but must not be passed to the engine again.
func (s *Surface) Handle() engine.Handle {
	return s.st.handle
}

// Engine returns the engine that owns the native instance.
func (s *Surface) Engine() engine.Engine {
	return s.st.eng
}

// Descriptor returns the target the surface was created from. Sizes are the
// ones requested at creation; use Width and Height for the current size.
func (s *Surface) Descriptor() target.Descriptor {
	return s.desc
}

// Destroyed reports whether the surface has been released.
func (s *Surface) Destroyed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.released
}

// do runs fn against the live instance under the surface lock and inside a
// span named after op.
func (s *Surface) do(ctx context.Context, op string, fn func(ctx context.Context, eng engine.Engine, h engine.Handle) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := startSpan(ctx, op, s.desc.Kind, s.st.handle)
	defer func() { endSpan(span, err) }()

	if s.st.released {
		return errors.Destroyed(op, uint32(s.st.handle))
	}
	return fn(ctx, s.st.eng, s.st.handle)
}

// Width returns the current width in pixels as reported by the engine.
func (s *Surface) Width(ctx context.Context) (int32, error) {
	var w int32
	err := s.do(ctx, "width", func(ctx context.Context, eng engine.Engine, h engine.Handle) (err error) {
		if w, err = eng.Width(ctx, h); err == nil {
			recordSize(ctx, AttrWidth, w)
		}
		return err
	})
	return w, err
}

// Height returns the current height in pixels as reported by the engine.
func (s *Surface) Height(ctx context.Context) (int32, error) {
	var v int32
	err := s.do(ctx, "height", func(ctx context.Context, eng engine.Engine, h engine.Handle) (err error) {
		if v, err = eng.Height(ctx, h); err == nil {
			recordSize(ctx, AttrHeight, v)
		}
		return err
	})
	return v, err
}

// UpdateSize tells the engine to resync with the external target's size.
// Call it after the host resizes the canvas or reallocates the texture.
func (s *Surface) UpdateSize(ctx context.Context) error {
	return s.do(ctx, "update-size", func(ctx context.Context, eng engine.Engine, h engine.Handle) error {
		return eng.UpdateSize(ctx, h)
	})
}

// ClearAll erases every pixel to transparent. It reports whether any pixel
// actually changed.
func (s *Surface) ClearAll(ctx context.Context) (bool, error) {
	var changed bool
	err := s.do(ctx, "clear-all", func(ctx context.Context, eng engine.Engine, h engine.Handle) (err error) {
		changed, err = eng.ClearAll(ctx, h)
		return err
	})
	return changed, err
}

// FreeCache releases engine caches held for this surface. The surface stays
// usable and keeps its dimensions.
func (s *Surface) FreeCache(ctx context.Context) error {
	return s.do(ctx, "free-cache", func(ctx context.Context, eng engine.Engine, h engine.Handle) error {
		return eng.FreeCache(ctx, h)
	})
}

// Destroy releases the native instance. A second call returns a destroyed
// error without reaching the engine. The surface counts as released even if
// the engine fails to delete the instance.
func (s *Surface) Destroy(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, span := startSpan(ctx, "destroy", s.desc.Kind, s.st.handle)
	defer func() { endSpan(span, err) }()

	if s.st.released {
		return errors.Destroyed("destroy", uint32(s.st.handle))
	}
	s.st.released = true
	s.cleanup.Stop()

	Logger().Debug("surface destroyed",
		zap.Stringer("kind", s.desc.Kind),
		zap.Uint32("handle", uint32(s.st.handle)))
	return s.st.eng.Delete(ctx, s.st.handle)
}

// Close releases the surface like Destroy. Closing an already released
// surface is a no-op, so Close can be deferred after an explicit Destroy.
func (s *Surface) Close() error {
	s.mu.Lock()
	released := s.st.released
	s.mu.Unlock()
	if released {
		return nil
	}
	err := s.Destroy(context.Background())
	if errors.IsKind(err, errors.KindDestroyed) {
		return nil
	}
	return err
}
