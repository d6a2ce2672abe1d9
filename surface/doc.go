// Package surface exposes drawable render targets backed by a rendering
// engine instance.
//
// A Surface is created from a canvas, a texture or a framebuffer through an
// explicit engine.Engine:
//
//	eng := engine.NewSoftwareEngine(targets)
//	s, err := surface.FromTexture(ctx, eng, 1, 100, 200, false)
//	if err != nil {
//	    return err
//	}
//	defer s.Close()
//
//	w, _ := s.Width(ctx) // 100
//
// Width and Height always query the engine, so after the host resizes a
// target, UpdateSize followed by Width reports the new size.
//
// # Lifecycle
//
// Destroy releases the native instance. Any later call, including a second
// Destroy, fails with an error of kind errors.KindDestroyed and never
// reaches the engine. Close is the io.Closer form and ignores surfaces that
// are already released. A surface dropped without either is released by a
// runtime cleanup and a warning is logged.
//
// # Errors
//
// Factories reject a nil engine, an empty canvas id and non-positive
// dimensions before calling the engine. An engine that declines to build an
// instance yields errors.KindNullHandle. Engine errors are returned as is.
//
// # Tracing
//
// Every operation records an OpenTelemetry span named "surface.<op>" with
// the target kind and instance handle. Spans go to the global provider
// unless SetTracerProvider installs another.
//
// Surfaces are safe for concurrent use.
package surface
