// Package plan holds the arena-backed logical intermediate representation
// that the frontend lowers into and the table composer and query emitter
// consume. Nothing in this package mutates after a Plan is sealed.
package plan

import "fmt"

// Key is a generational handle to an entity of kind T living in an Arena[T].
// Keys are cheap to copy, hashable, and comparable, but carry no ordering.
// Deleting the slot a Key points at invalidates every outstanding Key for
// that slot: the generation counter is bumped, so a later Get with the
// stale Key is distinguishable from a Get against whatever now occupies the
// reused slot.
type Key[T any] struct {
	idx uint32
	gen uint32
}

// zeroKey reports whether k is the zero value (no entity), useful for
// optional-key struct fields that embed a Key directly instead of *Key.
func (k Key[T]) zeroKey() bool {
	return k.idx == 0 && k.gen == 0
}

// String renders a Key for diagnostics; the internal layout is not part of
// any public contract.
func (k Key[T]) String() string {
	return fmt.Sprintf("#%d.%d", k.idx, k.gen)
}
