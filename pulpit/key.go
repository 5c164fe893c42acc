// Package pulpit is the physical storage layer (§4.4-§4.5 of the spec):
// the column kinds, the table composer that picks a layout per table, and
// the generated per-table operation surface (§6). Grounded in spirit on
// the "column/table generator" component the spec names, and in Go idiom
// on the teacher's generic, capability-struct style (no interface{}
// boxing at the hot path — a composed Table dispatches straight to the
// concrete column-kind struct selected once at construction time).
package pulpit

import "fmt"

// RowKey is a generational handle to one row of a composed Table. It is
// the runtime analogue of plan.Key: small, copyable, hashable, with no
// useful order, invalidated on Delete.
type RowKey struct {
	idx uint32
	gen uint32
}

func (k RowKey) String() string {
	return fmt.Sprintf("row#%d.%d", k.idx, k.gen)
}

// IsZero reports whether k is the zero value.
func (k RowKey) IsZero() bool { return k.idx == 0 && k.gen == 0 }
