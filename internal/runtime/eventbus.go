package runtime

import (
	"sync"
	"time"
)

// EventType names a solve lifecycle event.
type EventType string

const (
	EventSolveStarted    EventType = "solve_started"
	EventSolveProgress   EventType = "solve_progress"
	EventSolveCompleted  EventType = "solve_completed"
	EventSolveFailed     EventType = "solve_failed"
	EventSolveSuperseded EventType = "solve_superseded"
	EventGuardViolation  EventType = "guard_violation"
)

// Event describes one step of a solve. Fields that do not apply to the
// event type are left zero.
type Event struct {
	Type       EventType
	Timestamp  time.Time
	SolveID    string
	Generation uint64
	States     int
	Solutions  int
	Rule       string // guard rule, for EventGuardViolation
	Err        string
}

// EventHandler is a function that handles events.
type EventHandler func(Event)

// EventBus fans solve events out to subscribers. Handlers run synchronously
// on the publishing goroutine, which for solve events is the solving
// goroutine, so they must not block.
type EventBus struct {
	mu          sync.RWMutex
	nextID      int
	handlers    map[EventType]map[int]EventHandler
	allHandlers map[int]EventHandler
}

func NewEventBus() *EventBus {
	return &EventBus{
		handlers:    make(map[EventType]map[int]EventHandler),
		allHandlers: make(map[int]EventHandler),
	}
}

// Subscribe registers a handler for one event type. The returned func
// removes it again.
func (eb *EventBus) Subscribe(eventType EventType, handler EventHandler) (unsubscribe func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.nextID
	eb.nextID++
	if eb.handlers[eventType] == nil {
		eb.handlers[eventType] = make(map[int]EventHandler)
	}
	eb.handlers[eventType][id] = handler

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.handlers[eventType], id)
	}
}

// SubscribeAll registers a handler for every event type.
func (eb *EventBus) SubscribeAll(handler EventHandler) (unsubscribe func()) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	id := eb.nextID
	eb.nextID++
	eb.allHandlers[id] = handler

	return func() {
		eb.mu.Lock()
		defer eb.mu.Unlock()
		delete(eb.allHandlers, id)
	}
}

// Publish delivers e to the handlers of its type, then to the catch-all
// handlers, in subscription order.
func (eb *EventBus) Publish(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	eb.mu.RLock()
	handlers := ordered(eb.handlers[e.Type])
	handlers = append(handlers, ordered(eb.allHandlers)...)
	eb.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

// ordered returns the handlers sorted by subscription id.
func ordered(m map[int]EventHandler) []EventHandler {
	if len(m) == 0 {
		return nil
	}
	maxID := -1
	for id := range m {
		if id > maxID {
			maxID = id
		}
	}
	out := make([]EventHandler, 0, len(m))
	for id := 0; id <= maxID; id++ {
		if h, ok := m[id]; ok {
			out = append(out, h)
		}
	}
	return out
}
