package resource

import (
	"sync"
)

// Table maps handles to native instances and notifies observers of
// creation and removal.
type Table struct {
	backend   *LocalBackend
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates a new table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend: NewLocalBackend(),
	}
}

// Insert adds a value and returns its handle, or 0 if the table is closed.
func (t *Table) Insert(tag uint32, value any) Handle {
	handle, err := t.backend.Create(tag, value)
	if err != nil {
		return 0
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Tag:    tag,
		Value:  value,
	})

	return handle
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	return t.backend.Get(handle)
}

// GetTagged retrieves a value only if it was inserted with the given tag.
func (t *Table) GetTagged(handle Handle, tag uint32) (any, bool) {
	actual, ok := t.backend.Tag(handle)
	if !ok || actual != tag {
		return nil, false
	}
	return t.backend.Get(handle)
}

// Tag returns the tag of a live handle.
func (t *Table) Tag(handle Handle) (uint32, bool) {
	return t.backend.Tag(handle)
}

// Remove drops a value and returns (value, true) if the handle was live.
// Values implementing Dropper are dropped before observers run.
func (t *Table) Remove(handle Handle) (any, bool) {
	tag, _ := t.backend.Tag(handle)
	value, ok := t.backend.Drop(handle)
	if !ok {
		return nil, false
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDropped,
		Handle: handle,
		Tag:    tag,
		Value:  value,
	})

	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Each iterates over live handles until fn returns false.
func (t *Table) Each(fn func(Handle, uint32, any) bool) {
	t.backend.Each(fn)
}

// Clear removes every live value.
func (t *Table) Clear() {
	// Collect handles first to avoid holding the backend lock during Remove
	var handles []Handle
	t.backend.Each(func(h Handle, _ uint32, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Remove(h)
	}
}

// Close removes every live value and stops accepting inserts.
func (t *Table) Close() error {
	t.Clear()
	return t.backend.Close()
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
