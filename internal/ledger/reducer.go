// Package ledger holds a user's accounts and transactions in memory and keeps
// them in step with persistence.
//
// Every change to a registry is expressed as an Action and applied by Reduce,
// a pure function. Services only dispatch actions built from results the store
// has already confirmed.
package ledger

import "sync"

// Entity is anything addressable by an opaque id.
type Entity interface {
	EntityID() string
}

// Action is a closed set of registry mutations: Add, Update, Delete and SetAll.
type Action[T Entity] interface {
	apply(state []T) []T
}

// Add appends Item.
type Add[T Entity] struct{ Item T }

// Update replaces the entry whose id matches Item's id.
type Update[T Entity] struct{ Item T }

// Delete removes the entry with ID.
type Delete[T Entity] struct{ ID string }

// SetAll replaces the whole sequence.
type SetAll[T Entity] struct{ Items []T }

func (a Add[T]) apply(state []T) []T {
	next := make([]T, 0, len(state)+1)
	next = append(next, state...)
	return append(next, a.Item)
}

func (a Update[T]) apply(state []T) []T {
	next := make([]T, len(state))
	copy(next, state)
	id := a.Item.EntityID()
	for i := range next {
		if next[i].EntityID() == id {
			next[i] = a.Item
		}
	}
	return next
}

func (a Delete[T]) apply(state []T) []T {
	next := make([]T, 0, len(state))
	for _, item := range state {
		if item.EntityID() != a.ID {
			next = append(next, item)
		}
	}
	return next
}

func (a SetAll[T]) apply(_ []T) []T {
	next := make([]T, len(a.Items))
	copy(next, a.Items)
	return next
}

// Reduce returns the state that results from applying a. The input slice is
// never modified.
func Reduce[T Entity](state []T, a Action[T]) []T {
	return a.apply(state)
}

// Registry is an ordered, concurrency-safe sequence driven by Reduce.
type Registry[T Entity] struct {
	mu    sync.RWMutex
	items []T
}

// Dispatch applies a to the registry.
func (r *Registry[T]) Dispatch(a Action[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = Reduce(r.items, a)
}

// Items returns a copy of the current sequence.
func (r *Registry[T]) Items() []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, len(r.items))
	copy(out, r.items)
	return out
}

// Find returns the entry with id.
func (r *Registry[T]) Find(id string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, item := range r.items {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Len returns the number of entries.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
