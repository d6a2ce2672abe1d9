package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wippyai/pag-surface/engine"
	"github.com/wippyai/pag-surface/errors"
	"github.com/wippyai/pag-surface/internal/wasmtest"
	"github.com/wippyai/pag-surface/target"
)

func TestParseTarget(t *testing.T) {
	tests := []struct {
		spec    string
		want    target.Descriptor
		wantErr bool
	}{
		{spec: "canvas:main", want: target.Descriptor{Kind: target.Canvas, Name: "main"}},
		{spec: "canvas:main:640x480", want: target.Descriptor{Kind: target.Canvas, Name: "main", Size: target.Size{Width: 640, Height: 480}}},
		{spec: "texture:1:100x200", want: target.Descriptor{Kind: target.Texture, ID: 1, Size: target.Size{Width: 100, Height: 200}}},
		{spec: "framebuffer:0:800x600:flip", want: target.Descriptor{Kind: target.FrameBuffer, Size: target.Size{Width: 800, Height: 600}, FlipY: true}},
		{spec: "canvas:", wantErr: true},
		{spec: "texture:1", wantErr: true},
		{spec: "texture:x:1x1", wantErr: true},
		{spec: "texture:1:100", wantErr: true},
		{spec: "framebuffer:0:1x1:mirror", wantErr: true},
		{spec: "window:1:1x1", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			got, err := parseTarget(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRunScript_Software(t *testing.T) {
	ctx := context.Background()
	targets := target.NewRegistry()
	eng := engine.NewSoftwareEngine(targets)
	defer eng.Close(ctx)

	sess, err := openSession(ctx, eng, targets, target.Descriptor{
		Kind: target.Canvas, Name: "main", Size: target.Size{Width: 32, Height: 16},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.close()

	out := filepath.Join(t.TempDir(), "surface.png")
	ops := []string{"size", "paint=#00ff00", "png=" + out, "clear", "clear", "resize=64x8", "update", "size", "free"}

	var buf bytes.Buffer
	if err := runScript(ctx, sess, ops, &buf); err != nil {
		t.Fatalf("runScript: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	wants := []string{
		"size 32x16",
		"painted #00ff00",
		"wrote " + out,
		"changed=true",
		"changed=false",
		"resized to 64x8",
		"size updated",
		"size 64x8",
		"cache freed",
	}
	if len(lines) != len(wants) {
		t.Fatalf("got %d lines:\n%s", len(lines), buf.String())
	}
	for i, want := range wants {
		if !strings.Contains(lines[i], want) {
			t.Errorf("line %d = %q, want it to contain %q", i, lines[i], want)
		}
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 16 {
		t.Errorf("png bounds = %v", b)
	}
	if _, g, _, _ := img.At(5, 5).RGBA(); g == 0 {
		t.Error("png is missing the painted color")
	}
}

func TestRunScript_StopsAtFirstError(t *testing.T) {
	ctx := context.Background()
	targets := target.NewRegistry()
	eng := engine.NewSoftwareEngine(targets)
	defer eng.Close(ctx)

	sess, err := openSession(ctx, eng, targets, target.Descriptor{
		Kind: target.Texture, ID: 1, Size: target.Size{Width: 4, Height: 4},
	})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	err = runScript(ctx, sess, []string{"destroy", "width", "height"}, &buf)
	if !errors.IsKind(err, errors.KindDestroyed) {
		t.Fatalf("err = %v, want destroyed", err)
	}
	if !strings.HasPrefix(err.Error(), "width: ") {
		t.Errorf("error does not name the failing op: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("output = %q", buf.String())
	}
}

func TestSession_WazeroEngine(t *testing.T) {
	ctx := context.Background()
	targets := target.NewRegistry()
	eng, err := engine.NewWazeroEngine(ctx, wasmtest.SurfaceModule(wasmtest.SurfaceOptions{}),
		&engine.Config{Targets: targets})
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close(ctx)

	sess, err := openSession(ctx, eng, targets, target.Descriptor{
		Kind: target.FrameBuffer, ID: 2, Size: target.Size{Width: 10, Height: 20},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer sess.close()

	for _, op := range []string{"resize=30x40", "update"} {
		if _, err := sess.apply(ctx, op); err != nil {
			t.Fatalf("%s: %v", op, err)
		}
	}
	got, err := sess.apply(ctx, "size")
	if err != nil {
		t.Fatal(err)
	}
	if got != "size 30x40" {
		t.Errorf("size = %q", got)
	}

	for _, op := range []string{"paint", "png=x.png"} {
		if _, err := sess.apply(ctx, op); err == nil || !strings.Contains(err.Error(), "software engine") {
			t.Errorf("%s on wasm engine: %v", op, err)
		}
	}
	if _, err := sess.apply(ctx, "explode"); err == nil {
		t.Error("unknown op accepted")
	}
}
