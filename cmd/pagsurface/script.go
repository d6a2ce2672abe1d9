package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/gg"

	"github.com/wippyai/pag-surface/engine"
	"github.com/wippyai/pag-surface/surface"
	"github.com/wippyai/pag-surface/target"
)

// Operations accepted by -ops and the interactive mode.
var operations = []string{
	"width", "height", "size", "update", "resize", "clear", "free", "paint", "png", "destroy",
}

// parseTarget parses a target spec:
//
//	canvas:<name>[:<w>x<h>]
//	texture:<id>:<w>x<h>[:flip]
//	framebuffer:<id>:<w>x<h>[:flip]
func parseTarget(spec string) (target.Descriptor, error) {
	parts := strings.Split(spec, ":")
	var d target.Descriptor

	switch parts[0] {
	case "canvas":
		if len(parts) < 2 || len(parts) > 3 || parts[1] == "" {
			return d, fmt.Errorf("canvas target %q: want canvas:<name>[:<w>x<h>]", spec)
		}
		d.Kind = target.Canvas
		d.Name = parts[1]
		if len(parts) == 3 {
			size, err := parseSize(parts[2])
			if err != nil {
				return d, fmt.Errorf("canvas target %q: %w", spec, err)
			}
			d.Size = size
		}
		return d, nil

	case "texture", "framebuffer":
		if len(parts) < 3 || len(parts) > 4 {
			return d, fmt.Errorf("%s target %q: want %s:<id>:<w>x<h>[:flip]", parts[0], spec, parts[0])
		}
		d.Kind = target.Texture
		if parts[0] == "framebuffer" {
			d.Kind = target.FrameBuffer
		}
		id, err := strconv.ParseUint(parts[1], 10, 32)
		if err != nil {
			return d, fmt.Errorf("%s target %q: bad id: %w", parts[0], spec, err)
		}
		d.ID = uint32(id)
		if d.Size, err = parseSize(parts[2]); err != nil {
			return d, fmt.Errorf("%s target %q: %w", parts[0], spec, err)
		}
		if len(parts) == 4 {
			if parts[3] != "flip" {
				return d, fmt.Errorf("%s target %q: unknown option %q", parts[0], spec, parts[3])
			}
			d.FlipY = true
		}
		return d, nil

	default:
		return d, fmt.Errorf("unknown target kind %q", parts[0])
	}
}

// parseSize parses "<w>x<h>".
func parseSize(s string) (target.Size, error) {
	ws, hs, ok := strings.Cut(s, "x")
	if !ok {
		return target.Size{}, fmt.Errorf("size %q: want <w>x<h>", s)
	}
	w, err := strconv.ParseInt(ws, 10, 32)
	if err != nil {
		return target.Size{}, fmt.Errorf("size %q: %w", s, err)
	}
	h, err := strconv.ParseInt(hs, 10, 32)
	if err != nil {
		return target.Size{}, fmt.Errorf("size %q: %w", s, err)
	}
	return target.Size{Width: int32(w), Height: int32(h)}, nil
}

// session is one surface plus the engine and targets it was created with.
type session struct {
	eng     engine.Engine
	targets *target.Registry
	surf    *surface.Surface
}

// openSession registers d with targets when it carries a size and creates
// the surface.
func openSession(ctx context.Context, eng engine.Engine, targets *target.Registry, d target.Descriptor) (*session, error) {
	var (
		s   *surface.Surface
		err error
	)
	switch d.Kind {
	case target.Canvas:
		if d.Size.Width > 0 && d.Size.Height > 0 {
			targets.SetCanvas(d.Name, d.Size.Width, d.Size.Height)
		}
		s, err = surface.FromCanvas(ctx, eng, d.Name)
	case target.Texture:
		targets.SetTexture(d.ID, d.Size.Width, d.Size.Height)
		s, err = surface.FromTexture(ctx, eng, d.ID, d.Size.Width, d.Size.Height, d.FlipY)
	case target.FrameBuffer:
		targets.SetFrameBuffer(d.ID, d.Size.Width, d.Size.Height)
		s, err = surface.FromFrameBuffer(ctx, eng, d.ID, d.Size.Width, d.Size.Height, d.FlipY)
	default:
		return nil, fmt.Errorf("unsupported target kind %v", d.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("create surface: %w", err)
	}
	return &session{eng: eng, targets: targets, surf: s}, nil
}

// apply runs a single operation of the form name[=arg] and describes the
// outcome.
func (s *session) apply(ctx context.Context, op string) (string, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(op), "=")

	switch name {
	case "width":
		w, err := s.surf.Width(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("width %d", w), nil

	case "height":
		h, err := s.surf.Height(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("height %d", h), nil

	case "size":
		w, err := s.surf.Width(ctx)
		if err != nil {
			return "", err
		}
		h, err := s.surf.Height(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("size %dx%d", w, h), nil

	case "update":
		if err := s.surf.UpdateSize(ctx); err != nil {
			return "", err
		}
		return "size updated", nil

	case "resize":
		size, err := parseSize(arg)
		if err != nil {
			return "", err
		}
		d := s.surf.Descriptor()
		if !s.targets.Resize(d.Kind, d.Key(), size.Width, size.Height) {
			return "", fmt.Errorf("%s %s is not registered", d.Kind, d.Key())
		}
		return fmt.Sprintf("%s %s resized to %s", d.Kind, d.Key(), size), nil

	case "clear":
		changed, err := s.surf.ClearAll(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("cleared, changed=%t", changed), nil

	case "free":
		if err := s.surf.FreeCache(ctx); err != nil {
			return "", err
		}
		return "cache freed", nil

	case "paint":
		soft, err := s.software(name)
		if err != nil {
			return "", err
		}
		col := "#ff0000"
		if arg != "" {
			col = arg
		}
		c := gg.Hex(col)
		err = soft.Paint(ctx, s.surf.Handle(), func(dc *gg.Context) error {
			dc.SetRGBA(c.R, c.G, c.B, c.A)
			dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
			return dc.Fill()
		})
		if err != nil {
			return "", err
		}
		return "painted " + col, nil

	case "png":
		soft, err := s.software(name)
		if err != nil {
			return "", err
		}
		if arg == "" {
			return "", fmt.Errorf("png needs a path: png=<file>")
		}
		img, err := soft.Snapshot(ctx, s.surf.Handle())
		if err != nil {
			return "", err
		}
		f, err := os.Create(arg)
		if err != nil {
			return "", fmt.Errorf("create %s: %w", arg, err)
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return "", fmt.Errorf("encode png: %w", err)
		}
		if err := f.Close(); err != nil {
			return "", err
		}
		return "wrote " + arg, nil

	case "destroy":
		if err := s.surf.Destroy(ctx); err != nil {
			return "", err
		}
		return "destroyed", nil

	default:
		return "", fmt.Errorf("unknown operation %q (want one of %s)", name, strings.Join(operations, ", "))
	}
}

func (s *session) software(op string) (*engine.SoftwareEngine, error) {
	soft, ok := s.eng.(*engine.SoftwareEngine)
	if !ok {
		return nil, fmt.Errorf("%s needs the software engine", op)
	}
	return soft, nil
}

// close releases the surface if the script did not destroy it.
func (s *session) close() error {
	return s.surf.Close()
}
