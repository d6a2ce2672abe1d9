package resource

import (
	"errors"
	"maps"
	"math"
	"slices"
	"sync"
)

var (
	ErrClosed    = errors.New("resource backend closed")
	ErrExhausted = errors.New("resource handles exhausted")
)

// LocalBackend is an in-memory store. Handles increase monotonically and are
// never reissued, so a removed handle stays invalid for the life of the
// backend.
type LocalBackend struct {
	entries map[Handle]entry
	next    Handle
	mu      sync.RWMutex
	closed  bool
}

type entry struct {
	value any
	tag   uint32
}

// NewLocalBackend creates a new in-memory backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries: make(map[Handle]entry, 16),
	}
}

// Create stores a value and returns its handle.
func (b *LocalBackend) Create(tag uint32, value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	if b.next == math.MaxUint32 {
		return 0, ErrExhausted
	}

	b.next++
	b.entries[b.next] = entry{tag: tag, value: value}
	return b.next, nil
}

func (b *LocalBackend) lookup(handle Handle) (entry, bool) {
	e, ok := b.entries[handle]
	return e, ok
}

// Get retrieves a value by handle.
func (b *LocalBackend) Get(handle Handle) (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	return e.value, ok
}

// Tag returns the tag a handle was created with.
func (b *LocalBackend) Tag(handle Handle) (uint32, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	e, ok := b.lookup(handle)
	return e.tag, ok
}

// Drop invalidates a handle and returns its value.
func (b *LocalBackend) Drop(handle Handle) (any, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.lookup(handle)
	if !ok {
		return nil, false
	}
	delete(b.entries, handle)
	return e.value, true
}

// Len returns the number of live handles.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

// Each iterates over live handles in creation order until fn returns false.
func (b *LocalBackend) Each(fn func(Handle, uint32, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, h := range slices.Sorted(maps.Keys(b.entries)) {
		e := b.entries[h]
		if !fn(h, e.tag, e.value) {
			return
		}
	}
}

// Close drops every live value, calling Drop on those that implement Dropper.
func (b *LocalBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for _, e := range b.entries {
		if d, ok := e.value.(Dropper); ok {
			d.Drop()
		}
	}
	b.entries = nil
	return nil
}
