// Package realtime implements the room-scoped publish/subscribe layer used by
// the tracking core. Rooms are keyed by request ID; every subscriber holds a
// buffered event channel with latest-state-wins overflow (a viewer that misses
// an update simply sees a newer one next time).
package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event names emitted to tracking rooms.
const (
	EventLocationUpdate   = "nurse:location:update"
	EventNurseArrived     = "nurse:arrived"
	EventServiceStarted   = "service:started"
	EventServiceCompleted = "service:completed"
	EventNurseETA         = "nurse:eta"
	EventTrackingJoin     = "tracking:join"
	EventTrackingLeave    = "tracking:leave"
)

// subscriberBuffer bounds how many undelivered events a slow viewer may hold.
const subscriberBuffer = 8

// Event is one message fanned out to a room.
type Event struct {
	Name      string      `json:"event"`
	RequestID string      `json:"requestId"`
	Payload   interface{} `json:"payload,omitempty"`
	Created   time.Time   `json:"created"`
}

// Subscriber is one connected viewer of a room.
type Subscriber struct {
	ID        string
	RequestID string
	Events    chan *Event
	Kill      chan struct{}

	closeOnce sync.Once
}

func (s *Subscriber) close() {
	s.closeOnce.Do(func() { close(s.Kill) })
}

// Hub fans events out to room subscribers.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[string]*Subscriber
	log   *zap.Logger
}

// NewHub returns an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[string]*Subscriber),
		log:   logger,
	}
}

// Join registers a new subscriber in the room for requestID.
func (h *Hub) Join(requestID string) *Subscriber {
	sub := &Subscriber{
		ID:        uuid.New().String(),
		RequestID: requestID,
		Events:    make(chan *Event, subscriberBuffer),
		Kill:      make(chan struct{}),
	}

	h.mu.Lock()
	room, ok := h.rooms[requestID]
	if !ok {
		room = make(map[string]*Subscriber)
		h.rooms[requestID] = room
	}
	room[sub.ID] = sub
	h.mu.Unlock()

	h.log.Debug("realtime: subscriber joined",
		zap.String("requestId", requestID), zap.String("subscriber", sub.ID))
	return sub
}

// Leave removes a subscriber from its room. Safe to call more than once or
// after the room has been closed.
func (h *Hub) Leave(sub *Subscriber) {
	if sub == nil {
		return
	}
	h.mu.Lock()
	if room, ok := h.rooms[sub.RequestID]; ok {
		delete(room, sub.ID)
		if len(room) == 0 {
			delete(h.rooms, sub.RequestID)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Emit delivers an event to every subscriber of the room. Slow subscribers
// lose their oldest buffered event rather than blocking the publisher.
func (h *Hub) Emit(requestID, name string, payload interface{}) {
	event := &Event{
		Name:      name,
		RequestID: requestID,
		Payload:   payload,
		Created:   time.Now(),
	}

	h.mu.RLock()
	room := h.rooms[requestID]
	subs := make([]*Subscriber, 0, len(room))
	for _, sub := range room {
		subs = append(subs, sub)
	}
	h.mu.RUnlock()

	for _, sub := range subs {
		select {
		case sub.Events <- event:
		default:
			select {
			case <-sub.Events:
			default:
			}
			select {
			case sub.Events <- event:
			default:
			}
		}
	}
}

// CloseRoom kills every subscriber of a room and drops it. Called when the
// session reaches a terminal state so no fan-out survives teardown.
func (h *Hub) CloseRoom(requestID string) {
	h.mu.Lock()
	room := h.rooms[requestID]
	delete(h.rooms, requestID)
	h.mu.Unlock()

	for _, sub := range room {
		sub.close()
	}
	if len(room) > 0 {
		h.log.Info("realtime: room closed",
			zap.String("requestId", requestID), zap.Int("subscribers", len(room)))
	}
}

// RoomSize reports the current subscriber count for a room.
func (h *Hub) RoomSize(requestID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[requestID])
}
