package resource

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.events = append(o.events, e)
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert(1, "surface")
	if h == 0 {
		t.Fatal("expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok || val != "surface" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	if _, ok := table.GetTagged(h, 1); !ok {
		t.Fatal("GetTagged with correct tag failed")
	}
	if _, ok := table.GetTagged(h, 2); ok {
		t.Fatal("GetTagged with wrong tag should fail")
	}

	val, ok = table.Remove(h)
	if !ok || val != "surface" {
		t.Fatalf("Remove = %v, %v", val, ok)
	}
	if table.Len() != 0 {
		t.Fatalf("Len = %d after Remove", table.Len())
	}
	if _, ok := table.Remove(h); ok {
		t.Fatal("second Remove succeeded")
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert(3, "x")
	if len(obs.events) != 1 || obs.events[0].Type != EventCreated {
		t.Fatalf("expected created event, got %+v", obs.events)
	}
	if obs.events[0].Handle != h || obs.events[0].Tag != 3 {
		t.Fatalf("wrong event payload %+v", obs.events[0])
	}

	table.Remove(h)
	if len(obs.events) != 2 || obs.events[1].Type != EventDropped {
		t.Fatalf("expected dropped event, got %+v", obs.events)
	}

	// Removing a dead handle must not notify.
	table.Remove(h)
	if len(obs.events) != 2 {
		t.Fatalf("unexpected event for dead handle: %+v", obs.events)
	}
}

func TestTable_ObserverFunc(t *testing.T) {
	table := NewTable()
	var types []EventType
	table.Subscribe(ObserverFunc(func(e Event) { types = append(types, e.Type) }))

	table.Remove(table.Insert(1, nil))

	if len(types) != 2 || types[0] != EventCreated || types[1] != EventDropped {
		t.Fatalf("events = %v", types)
	}
	if EventCreated.String() != "created" || EventDropped.String() != "dropped" {
		t.Error("unexpected EventType names")
	}
}

func TestTable_DropperInterface(t *testing.T) {
	table := NewTable()
	var drops int
	h := table.Insert(1, dropCounter{&drops})

	table.Remove(h)
	if drops != 1 {
		t.Errorf("drops = %d, want 1", drops)
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	var drops int
	table.Insert(1, dropCounter{&drops})
	table.Insert(2, dropCounter{&drops})

	if err := table.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if drops != 2 {
		t.Errorf("drops = %d, want 2", drops)
	}
	if len(obs.events) != 4 {
		t.Errorf("events = %d, want 4", len(obs.events))
	}
	if h := table.Insert(1, "late"); h != 0 {
		t.Errorf("Insert after Close returned %d", h)
	}
}
