// Package notify provides token based listener registries.
//
// Subscribe returns a Token that is the only handle for removal, so a listener
// can never be left behind because two closures failed to compare equal.
package notify

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Token identifies one subscription. Tokens are unique process wide.
type Token uint64

var lastToken atomic.Uint64

func nextToken() Token { return Token(lastToken.Add(1)) }

type entry[T any] struct {
	tok Token
	fn  func(T)
}

// Registry fans a value out to its listeners in subscription order.
type Registry[T any] struct {
	mu        sync.RWMutex
	listeners []entry[T]
}

func (r *Registry[T]) Subscribe(fn func(T)) Token {
	tok := nextToken()
	r.mu.Lock()
	r.listeners = append(r.listeners, entry[T]{tok: tok, fn: fn})
	r.mu.Unlock()
	return tok
}

// Unsubscribe reports whether the token belonged to this registry.
func (r *Registry[T]) Unsubscribe(tok Token) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := slices.IndexFunc(r.listeners, func(e entry[T]) bool { return e.tok == tok })
	if idx < 0 {
		return false
	}
	r.listeners = slices.Delete(r.listeners, idx, idx+1)
	return true
}

// Publish calls every listener registered at the time of the call.
// Listeners run outside the registry lock and may unsubscribe themselves.
func (r *Registry[T]) Publish(v T) {
	r.mu.RLock()
	snapshot := slices.Clone(r.listeners)
	r.mu.RUnlock()
	for _, e := range snapshot {
		e.fn(v)
	}
}

func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

func (r *Registry[T]) Clear() {
	r.mu.Lock()
	r.listeners = nil
	r.mu.Unlock()
}

// Topics keeps one Registry per key, e.g. per event kind or command tag.
type Topics[K comparable, T any] struct {
	mu   sync.RWMutex
	regs map[K]*Registry[T]
}

func (t *Topics[K, T]) Subscribe(key K, fn func(T)) Token {
	t.mu.Lock()
	if t.regs == nil {
		t.regs = make(map[K]*Registry[T])
	}
	reg, ok := t.regs[key]
	if !ok {
		reg = &Registry[T]{}
		t.regs[key] = reg
	}
	t.mu.Unlock()
	return reg.Subscribe(fn)
}

func (t *Topics[K, T]) Unsubscribe(tok Token) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, reg := range t.regs {
		if reg.Unsubscribe(tok) {
			return true
		}
	}
	return false
}

func (t *Topics[K, T]) Publish(key K, v T) {
	t.mu.RLock()
	reg, ok := t.regs[key]
	t.mu.RUnlock()
	if ok {
		reg.Publish(v)
	}
}

func (t *Topics[K, T]) Len(key K) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if reg, ok := t.regs[key]; ok {
		return reg.Len()
	}
	return 0
}

func (t *Topics[K, T]) Clear() {
	t.mu.Lock()
	t.regs = nil
	t.mu.Unlock()
}
