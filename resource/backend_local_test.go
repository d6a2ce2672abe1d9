package resource

import (
	"math"
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := NewLocalBackend()

	h, err := b.Create(1, "value")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if h == 0 {
		t.Fatal("expected non-zero handle")
	}

	v, ok := b.Get(h)
	if !ok || v != "value" {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	tag, ok := b.Tag(h)
	if !ok || tag != 1 {
		t.Fatalf("Tag = %d, %v", tag, ok)
	}

	v, ok = b.Drop(h)
	if !ok || v != "value" {
		t.Fatalf("Drop = %v, %v", v, ok)
	}

	if _, ok := b.Get(h); ok {
		t.Error("Get succeeded after Drop")
	}
	if _, ok := b.Drop(h); ok {
		t.Error("second Drop succeeded")
	}
}

func TestLocalBackend_NoHandleReuse(t *testing.T) {
	b := NewLocalBackend()

	h1, _ := b.Create(1, "a")
	h2, _ := b.Create(1, "b")
	if h1 == h2 {
		t.Fatal("handles must differ")
	}

	b.Drop(h1)
	h3, _ := b.Create(2, "c")
	if h3 == h1 || h3 == h2 {
		t.Fatalf("handle %d reissued", h3)
	}

	if _, ok := b.Get(h1); ok {
		t.Error("dropped handle resolves after a later Create")
	}
	if _, ok := b.Tag(h1); ok {
		t.Error("dropped handle has a tag after a later Create")
	}
	v, _ := b.Get(h3)
	if v != "c" {
		t.Errorf("new handle holds %v", v)
	}
}

func TestLocalBackend_Exhausted(t *testing.T) {
	b := NewLocalBackend()
	b.next = math.MaxUint32 - 1

	h, err := b.Create(1, "last")
	if err != nil || h != math.MaxUint32 {
		t.Fatalf("Create = %d, %v", h, err)
	}
	if _, err := b.Create(1, "more"); err != ErrExhausted {
		t.Errorf("Create past the last handle = %v, want ErrExhausted", err)
	}
}

type dropCounter struct{ n *int }

func (d dropCounter) Drop() { *d.n++ }

func TestLocalBackend_Close(t *testing.T) {
	b := NewLocalBackend()
	var drops int
	b.Create(1, dropCounter{&drops})
	b.Create(1, dropCounter{&drops})

	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if drops != 2 {
		t.Errorf("drops = %d, want 2", drops)
	}

	if _, err := b.Create(1, "x"); err != ErrClosed {
		t.Errorf("Create after Close = %v, want ErrClosed", err)
	}
	if err := b.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := NewLocalBackend()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h, err := b.Create(1, j)
				if err != nil {
					t.Error(err)
					return
				}
				b.Get(h)
				b.Drop(h)
			}
		}()
	}
	wg.Wait()

	if b.Len() != 0 {
		t.Errorf("Len = %d, want 0", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := NewLocalBackend()
	b.Create(1, "a")
	h, _ := b.Create(1, "b")
	b.Create(1, "c")
	b.Drop(h)

	var seen []any
	b.Each(func(_ Handle, _ uint32, v any) bool {
		seen = append(seen, v)
		return true
	})
	if len(seen) != 2 {
		t.Fatalf("Each visited %d, want 2", len(seen))
	}

	count := 0
	b.Each(func(Handle, uint32, any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Errorf("Each did not stop early: %d", count)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := NewLocalBackend()

	for _, h := range []Handle{0, 1, 100} {
		if _, ok := b.Get(h); ok {
			t.Errorf("Get(%d) succeeded on empty backend", h)
		}
		if _, ok := b.Tag(h); ok {
			t.Errorf("Tag(%d) succeeded on empty backend", h)
		}
		if _, ok := b.Drop(h); ok {
			t.Errorf("Drop(%d) succeeded on empty backend", h)
		}
	}
}
