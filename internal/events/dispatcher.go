package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler reacts to a committed complaint or role-request change.
type EventHandler func(context.Context, Event) error

// Dispatcher fans events out to in-process subscribers.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	// Subscribe registers handler for every listed event type.
	Subscribe(handler EventHandler, types ...EventType)
}

// inMemoryDispatcher runs handlers synchronously on the publishing goroutine.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[EventType][]EventHandler),
	}
}

// Publish runs every handler for event.Type in subscription order. The
// change behind the event is already committed, so a failing or panicking
// handler never stops the others; their errors come back joined.
func (d *inMemoryDispatcher) Publish(ctx context.Context, event Event) error {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	var errs []error
	for i, handler := range handlers {
		if err := runHandler(ctx, handler, event); err != nil {
			errs = append(errs, fmt.Errorf("%s handler %d: %w", event.Type, i, err))
		}
	}
	return errors.Join(errs...)
}

func runHandler(ctx context.Context, handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, event)
}

// Subscribe registers handler for every listed event type.
func (d *inMemoryDispatcher) Subscribe(handler EventHandler, types ...EventType) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, eventType := range types {
		d.listeners[eventType] = append(d.listeners[eventType], handler)
	}
}
