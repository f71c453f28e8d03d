package realtime

import (
	"fmt"
	"testing"

	"go.uber.org/zap"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop())
}

func TestEmitReachesEveryRoomSubscriber(t *testing.T) {
	hub := newTestHub()
	a := hub.Join("req-1")
	b := hub.Join("req-1")
	other := hub.Join("req-2")

	hub.Emit("req-1", EventLocationUpdate, map[string]float64{"lat": -1.28, "lon": 36.82})

	for _, sub := range []*Subscriber{a, b} {
		select {
		case ev := <-sub.Events:
			if ev.Name != EventLocationUpdate || ev.RequestID != "req-1" {
				t.Fatalf("unexpected event %+v", ev)
			}
		default:
			t.Fatal("subscriber did not receive the event")
		}
	}

	select {
	case ev := <-other.Events:
		t.Fatalf("event leaked into another room: %+v", ev)
	default:
	}
}

func TestEmitToEmptyRoomIsHarmless(t *testing.T) {
	hub := newTestHub()
	hub.Emit("nobody-here", EventServiceStarted, nil)
}

func TestSlowSubscriberLosesOldestEvent(t *testing.T) {
	hub := newTestHub()
	sub := hub.Join("req-1")

	for i := 0; i <= subscriberBuffer; i++ {
		hub.Emit("req-1", EventLocationUpdate, fmt.Sprintf("point-%d", i))
	}

	first := <-sub.Events
	if first.Payload == "point-0" {
		t.Fatal("oldest event survived a full buffer")
	}

	// Drain the rest; the newest emit must be present.
	last := first
	for {
		select {
		case ev := <-sub.Events:
			last = ev
		default:
			if want := fmt.Sprintf("point-%d", subscriberBuffer); last.Payload != want {
				t.Fatalf("newest event missing: got %v, want %v", last.Payload, want)
			}
			return
		}
	}
}

func TestLeaveIsIdempotent(t *testing.T) {
	hub := newTestHub()
	sub := hub.Join("req-1")

	hub.Leave(sub)
	hub.Leave(sub)
	hub.Leave(nil)

	if hub.RoomSize("req-1") != 0 {
		t.Fatalf("room not empty after leave: %d", hub.RoomSize("req-1"))
	}
	select {
	case <-sub.Kill:
	default:
		t.Fatal("kill channel not closed after leave")
	}
}

func TestCloseRoomKillsAllSubscribers(t *testing.T) {
	hub := newTestHub()
	a := hub.Join("req-1")
	b := hub.Join("req-1")
	if hub.RoomSize("req-1") != 2 {
		t.Fatalf("room size = %d, want 2", hub.RoomSize("req-1"))
	}

	hub.CloseRoom("req-1")

	if hub.RoomSize("req-1") != 0 {
		t.Fatalf("room size after close = %d, want 0", hub.RoomSize("req-1"))
	}
	for _, sub := range []*Subscriber{a, b} {
		select {
		case <-sub.Kill:
		default:
			t.Fatal("subscriber not killed by room close")
		}
	}

	// Leaving after close must not panic.
	hub.Leave(a)
}
