// Copyright (c) 2025 StockPulse
// Licensed under the MIT License. See LICENSE file in the project root for details.

package auth

import "sync"

// EventType enumerates the auth events broadcast to decoupled consumers.
type EventType string

const (
	// EventLoginSuccess fires once after a credential exchange succeeds.
	EventLoginSuccess EventType = "login_success"
	// EventLogoutSuccess fires once after local state has been cleared.
	EventLogoutSuccess EventType = "logout_success"
	// EventStateChanged fires whenever the reconciled snapshot changes.
	EventStateChanged EventType = "state_changed"
)

// Event is the payload delivered to subscribers. Snapshot is nil for
// logout notifications.
type Event struct {
	Type     EventType
	Snapshot *Snapshot
}

// Bus is a typed publish/subscribe channel for auth events. Subscribers
// register and unregister deterministically; there are no global event names.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]func(Event)
	nextID int
}

// NewBus creates an empty event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for all subsequent events and returns an
// unsubscribe function. Unsubscribing twice is a no-op.
func (b *Bus) Subscribe(fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
	}
}

// Publish delivers e to every current subscriber synchronously; delivery
// order is unspecified.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}
