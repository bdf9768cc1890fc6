package notify

import (
	"sync"
	"sync/atomic"
)

// State holds an immutable snapshot. Reads are lock free; Update serialises
// writers and notifies subscribers before releasing the lock, so subscribers
// see snapshots in the order they were published. Subscribers must not call
// Update on the same State.
type State[T any] struct {
	mu   sync.Mutex
	cur  atomic.Pointer[T]
	subs Registry[T]
}

func NewState[T any](initial T) *State[T] {
	s := &State[T]{}
	s.cur.Store(&initial)
	return s
}

func (s *State[T]) Load() T {
	if p := s.cur.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Update computes the next snapshot from the current one. When fn reports no
// change nothing is stored or published.
func (s *State[T]) Update(fn func(cur T) (next T, changed bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := fn(s.Load())
	if !changed {
		return false
	}
	s.cur.Store(&next)
	s.subs.Publish(next)
	return true
}

// Set replaces the snapshot unconditionally and notifies.
func (s *State[T]) Set(v T) {
	s.Update(func(T) (T, bool) { return v, true })
}

func (s *State[T]) Subscribe(fn func(T)) Token { return s.subs.Subscribe(fn) }

func (s *State[T]) Unsubscribe(tok Token) bool { return s.subs.Unsubscribe(tok) }

func (s *State[T]) Clear() { s.subs.Clear() }
