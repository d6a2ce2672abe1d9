package engine

import (
	"context"
	"image"
	"sync"

	"github.com/gogpu/gg"
	"go.uber.org/zap"
	xdraw "golang.org/x/image/draw"

	"github.com/wippyai/pag-surface/errors"
	"github.com/wippyai/pag-surface/resource"
	"github.com/wippyai/pag-surface/target"
)

// SoftwareEngine is an in-process engine backed by gg software raster
// contexts. It models the surface behavior the compiled engine exposes and
// is used where the compiled module is not available.
type SoftwareEngine struct {
	table   *resource.Table
	targets *target.Registry
	mu      sync.Mutex
	closed  bool
	frees   int
}

type softSurface struct {
	dc       *gg.Context
	snapshot *image.RGBA
	desc     target.Descriptor
}

func (s *softSurface) Drop() {
	s.dc.Close()
	s.snapshot = nil
}

// NewSoftwareEngine creates a software engine resolving canvases and target
// sizes through targets. A nil registry gets an empty one.
func NewSoftwareEngine(targets *target.Registry) *SoftwareEngine {
	if targets == nil {
		targets = target.NewRegistry()
	}
	e := &SoftwareEngine{
		table:   resource.NewTable(),
		targets: targets,
	}
	e.table.Subscribe(resource.ObserverFunc(func(ev resource.Event) {
		Logger().Debug("software surface "+ev.Type.String(),
			zap.Uint32("handle", uint32(ev.Handle)),
			zap.Stringer("kind", target.Kind(ev.Tag)))
	}))
	return e
}

// Targets returns the registry the engine resolves targets through.
func (e *SoftwareEngine) Targets() *target.Registry {
	return e.targets
}

// FromCanvas creates an instance sized to the registered canvas. An unknown
// canvas yields a null handle.
func (e *SoftwareEngine) FromCanvas(ctx context.Context, canvasID string) (Handle, error) {
	size, ok := e.targets.Lookup(target.Canvas, canvasID)
	if !ok {
		Logger().Debug("unknown canvas", zap.String("canvas", canvasID))
		return 0, e.checkOpen(errors.PhaseCreate, "from-canvas")
	}
	return e.create(target.Descriptor{Kind: target.Canvas, Name: canvasID, Size: size})
}

// FromTexture creates an instance for a texture of the given size. Sizes
// outside 1..target.MaxDimension yield a null handle.
func (e *SoftwareEngine) FromTexture(ctx context.Context, textureID uint32, width, height int32, flipY bool) (Handle, error) {
	return e.create(target.Descriptor{
		Kind:  target.Texture,
		ID:    textureID,
		Size:  target.Size{Width: width, Height: height},
		FlipY: flipY,
	})
}

// FromFrameBuffer creates an instance for a framebuffer of the given size.
func (e *SoftwareEngine) FromFrameBuffer(ctx context.Context, frameBufferID uint32, width, height int32, flipY bool) (Handle, error) {
	return e.create(target.Descriptor{
		Kind:  target.FrameBuffer,
		ID:    frameBufferID,
		Size:  target.Size{Width: width, Height: height},
		FlipY: flipY,
	})
}

func (e *SoftwareEngine) checkOpen(phase errors.Phase, op string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return errors.Closed(phase, op)
	}
	return nil
}

func (e *SoftwareEngine) create(desc target.Descriptor) (Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return 0, errors.Closed(errors.PhaseCreate, "from-"+desc.Kind.String())
	}
	if !desc.Size.Valid() {
		Logger().Debug("target size out of range", zap.Stringer("kind", desc.Kind), zap.Stringer("size", desc.Size))
		return 0, nil
	}

	s := &softSurface{
		desc: desc,
		dc:   gg.NewContext(int(desc.Size.Width), int(desc.Size.Height)),
	}
	return Handle(e.table.Insert(uint32(desc.Kind), s)), nil
}

// get returns the live instance with e.mu held.
func (e *SoftwareEngine) get(op string, h Handle) (*softSurface, error) {
	if e.closed {
		return nil, errors.Closed(errors.PhaseCall, op)
	}
	v, ok := e.table.Get(resource.Handle(h))
	if !ok {
		return nil, errors.UnknownHandle(op, uint32(h))
	}
	return v.(*softSurface), nil
}

// Width returns the width of the instance's pixel buffer.
func (e *SoftwareEngine) Width(ctx context.Context, h Handle) (int32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.get("width", h)
	if err != nil {
		return 0, err
	}
	return int32(s.dc.Width()), nil
}

// Height returns the height of the instance's pixel buffer.
func (e *SoftwareEngine) Height(ctx context.Context, h Handle) (int32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.get("height", h)
	if err != nil {
		return 0, err
	}
	return int32(s.dc.Height()), nil
}

// UpdateSize resyncs the instance with the registry's current size for its
// target. Existing pixels are kept at the origin; targets missing from the
// registry keep their last known size.
func (e *SoftwareEngine) UpdateSize(ctx context.Context, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.get("update-size", h)
	if err != nil {
		return err
	}

	size, ok := e.targets.Lookup(s.desc.Kind, s.desc.Key())
	if !ok || !size.Valid() {
		Logger().Debug("target size unavailable, keeping current size",
			zap.Stringer("kind", s.desc.Kind), zap.String("key", s.desc.Key()))
		return nil
	}
	if int(size.Width) == s.dc.Width() && int(size.Height) == s.dc.Height() {
		return nil
	}

	old := s.dc.Image()
	resized := image.NewRGBA(image.Rect(0, 0, int(size.Width), int(size.Height)))
	xdraw.Copy(resized, image.Point{}, old, old.Bounds(), xdraw.Src, nil)

	s.dc.Close()
	s.dc = gg.NewContextForImage(resized)
	s.desc.Size = size
	s.snapshot = nil
	return nil
}

// ClearAll wipes the instance to transparent and reports whether any byte of
// the pixel buffer was non-zero beforehand.
func (e *SoftwareEngine) ClearAll(ctx context.Context, h Handle) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.get("clear-all", h)
	if err != nil {
		return false, err
	}

	changed := false
	for _, b := range toRGBA(s.dc.Image()).Pix {
		if b != 0 {
			changed = true
			break
		}
	}
	if changed {
		s.dc.Clear()
		s.snapshot = nil
	}
	return changed, nil
}

// FreeCache drops the cached snapshot of the instance.
func (e *SoftwareEngine) FreeCache(ctx context.Context, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.get("free-cache", h)
	if err != nil {
		return err
	}
	if s.snapshot != nil {
		s.snapshot = nil
		e.frees++
	}
	return nil
}

// Delete releases the instance. Its handle is never issued again.
func (e *SoftwareEngine) Delete(ctx context.Context, h Handle) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.Closed(errors.PhaseRelease, "delete")
	}
	if _, ok := e.table.Remove(resource.Handle(h)); !ok {
		return errors.UnknownHandle("delete", uint32(h))
	}
	return nil
}

// Paint runs fn against the instance's drawing context.
func (e *SoftwareEngine) Paint(ctx context.Context, h Handle, fn func(dc *gg.Context) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.get("paint", h)
	if err != nil {
		return err
	}
	s.snapshot = nil
	return fn(s.dc)
}

// Snapshot returns the instance's pixels, flipped vertically for targets
// created with flipY. The image is cached until the next paint, clear,
// resize or FreeCache and must not be modified.
func (e *SoftwareEngine) Snapshot(ctx context.Context, h Handle) (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.get("snapshot", h)
	if err != nil {
		return nil, err
	}
	if s.snapshot == nil {
		img := toRGBA(s.dc.Image())
		if s.desc.FlipY {
			img = flipVertical(img)
		}
		s.snapshot = img
	}
	return s.snapshot, nil
}

// Descriptor returns the target an instance was created from, with its
// current size.
func (e *SoftwareEngine) Descriptor(h Handle) (target.Descriptor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.get("descriptor", h)
	if err != nil {
		return target.Descriptor{}, false
	}
	return s.desc, true
}

// Live returns the number of instances not yet deleted.
func (e *SoftwareEngine) Live() int {
	return e.table.Len()
}

// CacheFrees returns how many FreeCache calls released a snapshot.
func (e *SoftwareEngine) CacheFrees() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.frees
}

// Close releases every live instance. Later calls fail with a closed error.
func (e *SoftwareEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true

	if n := e.table.Len(); n > 0 {
		Logger().Warn("closing engine with live surfaces", zap.Int("live", n))
	}
	return e.table.Close()
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Copy(rgba, image.Point{}, img, b, xdraw.Src, nil)
	return rgba
}

func flipVertical(src *image.RGBA) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	rowLen := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		s := src.PixOffset(b.Min.X, b.Min.Y+y)
		d := dst.PixOffset(0, b.Dy()-1-y)
		copy(dst.Pix[d:d+rowLen], src.Pix[s:s+rowLen])
	}
	return dst
}
