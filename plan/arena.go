package plan

import "iter"

// slot holds one entry of an Arena, alive or freed.
type slot[T any] struct {
	gen   uint32
	alive bool
	value T
}

// Arena is a generational-index container: the sole owner of every entity
// of kind T in a Plan. Arena never reuses a Key's generation after removal,
// so a Key captured before a Remove is reliably distinguishable from
// whatever later reoccupies the slot.
//
// Arena is not safe for concurrent use; a Plan (and the Datastore built
// from it) is owned by one goroutine at a time per §5 of the spec.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
}

// NewArena returns an empty arena.
func NewArena[T any]() *Arena[T] {
	return &Arena[T]{}
}

// Insert appends v and returns a fresh Key for it. If a freed slot is
// available it is reused with a bumped generation; otherwise the arena
// grows.
func (a *Arena[T]) Insert(v T) Key[T] {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.alive = true
		s.value = v
		return Key[T]{idx: idx, gen: s.gen}
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot[T]{gen: 1, alive: true, value: v})
	return Key[T]{idx: idx, gen: 1}
}

// lookup returns the slot for k if it is alive and the generation matches.
func (a *Arena[T]) lookup(k Key[T]) (*slot[T], bool) {
	if int(k.idx) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[k.idx]
	if !s.alive || s.gen != k.gen {
		return nil, false
	}
	return s, true
}

// Get returns a pointer to the entity for k. It panics on a stale or
// out-of-range key: per §4.1, this is a contract violation by the caller
// (the plan builder), never a condition a DSL author can trigger, so there
// is nothing useful to recover from.
func (a *Arena[T]) Get(k Key[T]) *T {
	s, ok := a.lookup(k)
	if !ok {
		panic("plan: stale or invalid key " + k.String())
	}
	return &s.value
}

// TryGet returns the entity for k and whether it was found, without
// panicking. Used by code that legitimately expects keys to go stale
// (e.g. table-ref dereference at runtime).
func (a *Arena[T]) TryGet(k Key[T]) (*T, bool) {
	s, ok := a.lookup(k)
	if !ok {
		return nil, false
	}
	return &s.value, true
}

// Remove deletes the entity at k, invalidating k and every other
// outstanding copy of it. Returns false if k was already stale.
func (a *Arena[T]) Remove(k Key[T]) bool {
	s, ok := a.lookup(k)
	if !ok {
		return false
	}
	var zero T
	s.value = zero
	s.alive = false
	s.gen++
	a.free = append(a.free, k.idx)
	return true
}

// Len returns the number of live entities.
func (a *Arena[T]) Len() int {
	n := 0
	for i := range a.slots {
		if a.slots[i].alive {
			n++
		}
	}
	return n
}

// All iterates live (Key, *T) pairs in insertion order. The pointer must
// not be retained past the iteration if the caller also mutates the arena.
func (a *Arena[T]) All() iter.Seq2[Key[T], *T] {
	return func(yield func(Key[T], *T) bool) {
		for i := range a.slots {
			s := &a.slots[i]
			if !s.alive {
				continue
			}
			if !yield(Key[T]{idx: uint32(i), gen: s.gen}, &s.value) {
				return
			}
		}
	}
}
