package pulpit

// ContigVec is the cheapest-scan column kind: a single growable slice.
// Insertion-ordered, but data may relocate on growth (no pointer
// stability), and it does not support deletion — see §4.4's kind table.
// It is offered to the composer as the low-overhead alternative to
// FixedBlocks for append-only tables that never take a long-lived borrow
// (selected when a table's backend options set Compact, see
// composer.go).
type ContigVec[R any] struct {
	rows []R
	gens []uint32
}

// NewContigVec returns an empty ContigVec.
func NewContigVec[R any]() *ContigVec[R] {
	return &ContigVec[R]{}
}

// Insert appends a row and returns its key.
func (c *ContigVec[R]) Insert(r R) RowKey {
	idx := uint32(len(c.rows))
	c.rows = append(c.rows, r)
	c.gens = append(c.gens, 1)
	return RowKey{idx: idx, gen: 1}
}

// Get returns a copy of the row for k.
func (c *ContigVec[R]) Get(k RowKey) (R, bool) {
	var zero R
	if int(k.idx) >= len(c.rows) || c.gens[k.idx] != k.gen {
		return zero, false
	}
	return c.rows[k.idx], true
}

// Borrow returns a pointer to the row for k. Because ContigVec may
// relocate its backing array on growth, this pointer is only valid until
// the next Insert — callers that need a longer-lived reference must use
// FixedBlocks or BlocksWithFree instead.
func (c *ContigVec[R]) Borrow(k RowKey) (*R, bool) {
	if int(k.idx) >= len(c.rows) || c.gens[k.idx] != k.gen {
		return nil, false
	}
	return &c.rows[k.idx], true
}

// Count returns the number of live rows.
func (c *ContigVec[R]) Count() int { return len(c.rows) }

// Truncate rolls the column back to exactly n rows, for undoing the
// inserts of an aborted transaction.
func (c *ContigVec[R]) Truncate(n int) {
	c.rows = c.rows[:n]
	c.gens = c.gens[:n]
}

// Scan calls yield for every live key in insertion order.
func (c *ContigVec[R]) Scan(yield func(RowKey) bool) {
	for i := range c.rows {
		if !yield(RowKey{idx: uint32(i), gen: c.gens[i]}) {
			return
		}
	}
}
