package router

import "sync"

// Handler receives public events. Handlers may be called from any router
// task and must not block for long.
type Handler func(Event)

// Emitter fans public events out to registered handlers.
type Emitter struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	any      []Handler
}

func newEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]Handler)}
}

// On registers h for events named name.
func (e *Emitter) On(name string, h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.handlers[name] = append(e.handlers[name], h)
}

// OnAny registers h for every event.
func (e *Emitter) OnAny(h Handler) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.any = append(e.any, h)
}

func (e *Emitter) emit(name string, params map[string]any) {
	e.mu.RLock()
	named := e.handlers[name]
	all := e.any
	e.mu.RUnlock()

	ev := Event{Type: name, Params: params}
	for _, h := range named {
		h(ev)
	}
	for _, h := range all {
		h(ev)
	}
}
