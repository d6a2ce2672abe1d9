package resource

// Handle is an opaque reference to a native instance in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// Event represents an instance lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Tag    uint32
	Type   EventType
}

// Observer receives notifications about instance lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) { f(e) }

// Dropper is optionally implemented by values that need cleanup when removed.
type Dropper interface {
	Drop()
}
