package engine

import (
	"context"
)

// Handle is an opaque reference to a native surface instance owned by an
// Engine. Handle 0 is the null instance.
type Handle uint32

// Engine is the rendering engine a surface forwards to.
//
// Factories return Handle 0 with a nil error when the engine declines to
// build an instance (unknown canvas, zero size); the surface package turns
// that into a null_handle error. Instance methods fail with a not_found error
// for handles the engine did not issue or already deleted.
type Engine interface {
	FromCanvas(ctx context.Context, canvasID string) (Handle, error)
	FromTexture(ctx context.Context, textureID uint32, width, height int32, flipY bool) (Handle, error)
	FromFrameBuffer(ctx context.Context, frameBufferID uint32, width, height int32, flipY bool) (Handle, error)

	Width(ctx context.Context, h Handle) (int32, error)
	Height(ctx context.Context, h Handle) (int32, error)
	UpdateSize(ctx context.Context, h Handle) error
	ClearAll(ctx context.Context, h Handle) (bool, error)
	FreeCache(ctx context.Context, h Handle) error
	Delete(ctx context.Context, h Handle) error

	// Close releases the engine and every instance it still owns.
	Close(ctx context.Context) error
}

var (
	_ Engine = (*WazeroEngine)(nil)
	_ Engine = (*SoftwareEngine)(nil)
)
