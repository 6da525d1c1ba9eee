package events

import (
	"testing"
	"time"
)

func waitEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}

func TestSubscribeReceivesMatchingType(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventPatternFound, func(ev Event) { got <- ev })

	bus.PublishPatternFound("NVDA", 83.3, 5)

	ev := waitEvent(t, got)
	if ev.Type != EventPatternFound {
		t.Fatalf("type = %q, want %q", ev.Type, EventPatternFound)
	}
	if ev.Data["symbol"] != "NVDA" {
		t.Fatalf("symbol = %v, want NVDA", ev.Data["symbol"])
	}
	if ev.Timestamp.IsZero() {
		t.Fatal("publish should stamp the event")
	}
}

func TestSubscribeIgnoresOtherTypes(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventScanCompleted, func(ev Event) { got <- ev })

	bus.PublishError("screener", "fetch failed", nil)

	select {
	case ev := <-got:
		t.Fatalf("unexpected event %q delivered to typed subscriber", ev.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeAllSeesEveryType(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 2)
	bus.SubscribeAll(func(ev Event) { got <- ev })

	bus.PublishScanStarted("job-1", 10, 10000)
	bus.PublishScanCompleted("job-1", 250, 10250, 0)

	seen := map[EventType]bool{}
	for i := 0; i < 2; i++ {
		seen[waitEvent(t, got).Type] = true
	}
	if !seen[EventScanStarted] || !seen[EventScanCompleted] {
		t.Fatalf("all-subscriber missed events, saw %v", seen)
	}
}

func TestPublishFansOut(t *testing.T) {
	bus := NewEventBus()
	a := make(chan Event, 1)
	b := make(chan Event, 1)
	bus.Subscribe(EventScanProgress, func(ev Event) { a <- ev })
	bus.Subscribe(EventScanProgress, func(ev Event) { b <- ev })

	bus.PublishScanProgress("job-1", "TSLA", 3, 10, 10100)

	for _, ch := range []<-chan Event{a, b} {
		ev := waitEvent(t, ch)
		if ev.Data["done"] != 3 {
			t.Fatalf("done = %v, want 3", ev.Data["done"])
		}
	}
}

func TestPublishErrorIncludesCause(t *testing.T) {
	bus := NewEventBus()
	got := make(chan Event, 1)
	bus.Subscribe(EventError, func(ev Event) { got <- ev })

	bus.PublishError("provider", "bars unavailable", errTest{})

	ev := waitEvent(t, got)
	if ev.Data["error"] != "boom" {
		t.Fatalf("error = %v, want boom", ev.Data["error"])
	}
}

type errTest struct{}

func (errTest) Error() string { return "boom" }
