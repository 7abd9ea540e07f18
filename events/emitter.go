package events

import (
	"sync"

	"github.com/whiskylabs/whisky-protocol-core-sub001/internal/logger"
)

// EventType labels what happened.
type EventType string

// Event carries a typed payload emitted after a state change. Data holds one
// of the payload structs in types.go.
type Event struct {
	Type   EventType `json:"type"`
	TxID   string    `json:"tx_id"`
	Height int64     `json:"height"`
	Data   any       `json:"data"`
}

// Handler is a callback invoked for matching events.
type Handler func(Event)

// Emitter is a simple pub/sub broker. Subscribe before Emit.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	all      []Handler
}

// NewEmitter creates an Emitter with no subscribers.
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[EventType][]Handler)}
}

// Subscribe registers h to be called whenever typ is emitted.
func (e *Emitter) Subscribe(typ EventType, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[typ] = append(e.handlers[typ], h)
}

// SubscribeAll registers h for every event type.
func (e *Emitter) SubscribeAll(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.all = append(e.all, h)
}

// Emit delivers ev to all subscribers for ev.Type synchronously, then to the
// catch-all subscribers. A panicking handler is logged and skipped.
func (e *Emitter) Emit(ev Event) {
	e.mu.RLock()
	handlers := append(append([]Handler(nil), e.handlers[ev.Type]...), e.all...)
	e.mu.RUnlock()
	for _, h := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("event handler panicked", "type", ev.Type, "tx", ev.TxID, "panic", r)
				}
			}()
			h(ev)
		}()
	}
}
