package janode

import (
	"fmt"
	"sync"
)

// EventHandler receives the payload published for an event name. The
// concrete payload type depends on the event (see the Connection/Session/
// Handle event name constants); callers type-assert it.
type EventHandler func(payload any)

// EventBus is the per-component publish/subscribe primitive Connection,
// Session and Handle each embed. Subscriptions are matched and invoked in
// registration order; emit is synchronous with respect to the caller, which
// keeps inbound dispatch ordered.
type EventBus struct {
	mu   sync.Mutex
	subs map[string][]*subscription
}

type subscription struct {
	handler EventHandler
	once    bool
}

func newEventBus() *EventBus {
	return &EventBus{subs: make(map[string][]*subscription)}
}

// On registers a handler invoked every time event fires.
func (b *EventBus) On(event string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[event] = append(b.subs[event], &subscription{handler: handler})
}

// Once registers a handler invoked at most once, then automatically removed.
func (b *EventBus) Once(event string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[event] = append(b.subs[event], &subscription{handler: handler, once: true})
}

// Off removes a previously registered handler. If handler is nil, every
// handler for event is removed.
func (b *EventBus) Off(event string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if handler == nil {
		delete(b.subs, event)
		return
	}

	remaining := b.subs[event][:0]
	for _, s := range b.subs[event] {
		if funcsEqual(s.handler, handler) {
			continue
		}
		remaining = append(remaining, s)
	}
	b.subs[event] = remaining
}

// emit delivers payload to every subscriber of event, in registration order,
// removing any "once" subscriptions after they fire.
func (b *EventBus) emit(event string, payload any) {
	b.mu.Lock()
	subs := append([]*subscription(nil), b.subs[event]...)
	var remaining []*subscription
	for _, s := range subs {
		if !s.once {
			remaining = append(remaining, s)
		}
	}
	b.subs[event] = remaining
	b.mu.Unlock()

	for _, s := range subs {
		s.handler(payload)
	}
}

// funcsEqual compares two EventHandler values for identity. Go function
// values aren't comparable with ==, so callers that need Off(event, fn) to
// find a specific registration should keep the original EventHandler value
// around and pass that same value back. The comparison is on the %p
// formatting of each function value (its code pointer), so two closures
// built from the same function literal compare equal.
func funcsEqual(a, b EventHandler) bool {
	return fmt.Sprintf("%p", a) == fmt.Sprintf("%p", b)
}
