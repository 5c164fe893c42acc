package pulpit

// AppendAdapter is the trivial primary used when a table has only
// associated columns and no deletions (composer rule 1): it owns no
// field data of its own, just hands out sequentially increasing RowKeys
// and tracks which have been "deleted" at the adapter level (never, for
// this table shape — deletion requires an arena primary, rule 2/3) versus
// how many are currently live for Count/Scan.
type AppendAdapter struct {
	n uint32
}

// NewAppendAdapter returns an adapter with no rows yet.
func NewAppendAdapter() *AppendAdapter {
	return &AppendAdapter{}
}

// Next mints the next sequential RowKey.
func (a *AppendAdapter) Next() RowKey {
	idx := a.n
	a.n++
	return RowKey{idx: idx, gen: 1}
}

// Count returns the number of keys minted.
func (a *AppendAdapter) Count() int { return int(a.n) }

// Scan calls yield for every minted key in order.
func (a *AppendAdapter) Scan(yield func(RowKey) bool) {
	for i := uint32(0); i < a.n; i++ {
		if !yield(RowKey{idx: i, gen: 1}) {
			return
		}
	}
}

// Valid reports whether k could have been minted by this adapter (it does
// not by itself know about deletion; the associated column is the source
// of truth for liveness in the append-only composition).
func (a *AppendAdapter) Valid(k RowKey) bool {
	return k.gen == 1 && k.idx < a.n
}

// Truncate rolls the minting counter back to n, for undoing the inserts of
// an aborted transaction: the next Next() call resumes at n instead of the
// pre-abort high-water mark, so it mints the same key the associated
// column's own Truncate(n) just freed up rather than one beyond it.
func (a *AppendAdapter) Truncate(n uint32) {
	a.n = n
}
