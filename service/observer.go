package service

import (
	"context"
	"sync"

	"github.com/avast/retry-go/v4"

	"github.com/datakit-io/datakit/logger"
)

// ChangeOp is the kind of write that triggered a change notification.
type ChangeOp string

const (
	// OpCreate signals newly inserted entities.
	OpCreate ChangeOp = "create"
	// OpUpdate signals modified entities.
	OpUpdate ChangeOp = "update"
	// OpDelete signals removed entities.
	OpDelete ChangeOp = "delete"
)

// ChangeEvent describes a committed write to an entity type. Services emit
// one after every successful write so dependent components can drop caches
// derived from that entity.
type ChangeEvent struct {
	// Entity is the entity (cache region) name.
	Entity string
	// Op is the kind of write.
	Op ChangeOp
	// Keys identifies the affected rows when known; empty for bulk writes.
	Keys []string
}

// Observer reacts to change events of entities it depends on.
// Implementations are typically other services that cache joined or derived
// data and must drop it when a peer entity changes.
type Observer interface {
	OnEntityChanged(ctx context.Context, event ChangeEvent) error
}

// ObserverFunc adapts a plain function to the Observer interface.
type ObserverFunc func(ctx context.Context, event ChangeEvent) error

// OnEntityChanged implements Observer.
func (f ObserverFunc) OnEntityChanged(ctx context.Context, event ChangeEvent) error {
	return f(ctx, event)
}

const defaultNotifyAttempts = 3

// Notifier fans change events out to registered observers.
//
// Delivery is asynchronous per observer with bounded retries: at-least-once
// after a successful write, with no ordering guarantee across observers.
// That is sufficient for cache eviction, which is idempotent.
type Notifier struct {
	mu        sync.RWMutex
	observers []Observer

	attempts uint
	log      logger.Logger
	wg       sync.WaitGroup
}

// NewNotifier creates a notifier with the given retry attempts per observer.
// Non-positive attempts fall back to the default of 3.
func NewNotifier(attempts int) *Notifier {
	a := uint(defaultNotifyAttempts)
	if attempts > 0 {
		a = uint(attempts)
	}
	return &Notifier{
		attempts: a,
		log:      logger.Named("notifier"),
	}
}

// Register adds observers to the fan-out set.
func (n *Notifier) Register(observers ...Observer) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, observers...)
}

// Notify delivers the event to every registered observer.
//
// Each observer runs in its own goroutine and is retried on failure. The
// request context's cancellation is detached so in-flight deliveries survive
// the end of the triggering request; its metadata is kept for logging.
func (n *Notifier) Notify(ctx context.Context, event ChangeEvent) {
	n.mu.RLock()
	observers := make([]Observer, len(n.observers))
	copy(observers, n.observers)
	n.mu.RUnlock()

	if len(observers) == 0 {
		return
	}

	detached := context.WithoutCancel(ctx)

	for _, obs := range observers {
		n.wg.Add(1)
		go func(obs Observer) {
			defer n.wg.Done()

			err := retry.Do(
				func() error { return obs.OnEntityChanged(detached, event) },
				retry.Attempts(n.attempts),
				retry.Context(detached),
				retry.LastErrorOnly(true),
			)
			if err != nil {
				n.log.WithContext(detached).
					With("entity", event.Entity).
					With("op", string(event.Op)).
					With("error", err).
					Error("observer notification failed")
			}
		}(obs)
	}
}

// Wait blocks until all in-flight notifications are delivered.
// Intended for graceful shutdown and tests.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
