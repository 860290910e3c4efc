// Package observable provides a value holder that broadcasts every
// replacement to its subscribers.
//
// A Value holds exactly one current value. Set replaces it and invokes every
// subscriber synchronously, on the caller's goroutine, before returning.
// Concurrent Set calls are serialized, so each subscriber observes every
// value in write order and no value is skipped. Subscribers must not call
// Set on the same Value from inside their callback.
package observable

import (
	"context"
	"sync"
)

// Source is the read side of a Value.
type Source[T any] interface {
	// Get returns the current value.
	Get() T
	// Subscribe delivers the current value to fn immediately and every
	// subsequent value as it is set. The returned function unsubscribes.
	Subscribe(fn func(T)) (unsubscribe func())
	// Watch is like Subscribe but delivers values on a channel. Values are
	// queued without bound, so a slow reader never blocks writers. The
	// channel is closed once ctx is done.
	Watch(ctx context.Context) <-chan T
}

var _ Source[int] = (*Value[int])(nil)

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Value is a concurrency-safe observable value.
type Value[T any] struct {
	// emit serializes Set and Subscribe so notifications never interleave.
	emit sync.Mutex

	// mu protects current and subs. It is never held while callbacks run.
	mu      sync.RWMutex
	current T
	subs    []subscriber[T]
	nextID  uint64
}

// New returns a Value holding initial.
func New[T any](initial T) *Value[T] {
	return &Value[T]{current: initial}
}

// Get returns the current value.
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.current
}

// Set replaces the current value and notifies every subscriber.
func (v *Value[T]) Set(x T) {
	v.emit.Lock()
	defer v.emit.Unlock()

	v.mu.Lock()
	v.current = x
	subs := make([]subscriber[T], len(v.subs))
	copy(subs, v.subs)
	v.mu.Unlock()

	for _, s := range subs {
		s.fn(x)
	}
}

// Subscribe registers fn. See Source.
func (v *Value[T]) Subscribe(fn func(T)) func() {
	v.emit.Lock()
	defer v.emit.Unlock()

	v.mu.Lock()
	id := v.nextID
	v.nextID++
	v.subs = append(v.subs, subscriber[T]{id: id, fn: fn})
	current := v.current
	v.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() { v.remove(id) })
	}
}

func (v *Value[T]) remove(id uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for i, s := range v.subs {
		if s.id == id {
			v.subs = append(v.subs[:i:i], v.subs[i+1:]...)
			return
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (v *Value[T]) Subscribers() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.subs)
}

// Watch delivers values on a channel. See Source.
func (v *Value[T]) Watch(ctx context.Context) <-chan T {
	var (
		mu    sync.Mutex
		queue []T
		wake  = make(chan struct{}, 1)
		out   = make(chan T)
	)

	unsubscribe := v.Subscribe(func(x T) {
		mu.Lock()
		queue = append(queue, x)
		mu.Unlock()

		select {
		case wake <- struct{}{}:
		default:
		}
	})

	go func() {
		defer close(out)
		defer unsubscribe()

		for {
			mu.Lock()
			pending := queue
			queue = nil
			mu.Unlock()

			for _, x := range pending {
				select {
				case out <- x:
				case <-ctx.Done():
					return
				}
			}

			select {
			case <-wake:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
