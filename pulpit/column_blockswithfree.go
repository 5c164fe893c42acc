package pulpit

// BlocksWithFree extends FixedBlocks with a free-list of holes, enabling
// deletion while keeping pointer stability for everything still live.
// Used by the composer's rule 3 (PrimaryRetain) to hold the immutable
// partition of a table's columns, and by abort() to re-insert a deleted
// row at its original index (Place), which is why it — like GenArena, and
// unlike the append-only kinds — supports placing at a caller-chosen index
// rather than only appending.
type BlocksWithFree[R any] struct {
	blocks [][]R
	n      int // high-water mark; some slots below n may be free
	alive  []bool
	gens   []uint32
	free   []uint32
}

// NewBlocksWithFree returns an empty BlocksWithFree column.
func NewBlocksWithFree[R any]() *BlocksWithFree[R] {
	return &BlocksWithFree[R]{}
}

func (b *BlocksWithFree[R]) ensure(idx int) {
	blk, off := idx/blockSize, idx%blockSize
	for blk >= len(b.blocks) {
		b.blocks = append(b.blocks, make([]R, blockSize))
	}
	_ = off
}

func (b *BlocksWithFree[R]) at(idx int) *R {
	blk, off := idx/blockSize, idx%blockSize
	return &b.blocks[blk][off]
}

// Insert appends or reuses a free slot and returns its key.
func (b *BlocksWithFree[R]) Insert(r R) RowKey {
	if n := len(b.free); n > 0 {
		idx := b.free[n-1]
		b.free = b.free[:n-1]
		b.alive[idx] = true
		b.gens[idx]++
		*b.at(int(idx)) = r
		return RowKey{idx: idx, gen: b.gens[idx]}
	}
	idx := b.n
	b.ensure(idx)
	*b.at(idx) = r
	b.alive = append(b.alive, true)
	b.gens = append(b.gens, 1)
	b.n++
	return RowKey{idx: uint32(idx), gen: 1}
}

// Place inserts r at a specific, caller-chosen index with a specific
// generation, used only by transaction abort to undo a Delete by
// restoring the row to the slot it previously occupied. idx must either
// be within range and free, or exactly b.n (extending the column).
func (b *BlocksWithFree[R]) Place(idx uint32, gen uint32, r R) {
	i := int(idx)
	if i == b.n {
		b.ensure(i)
		b.alive = append(b.alive, true)
		b.gens = append(b.gens, gen)
		b.n++
		*b.at(i) = r
		return
	}
	b.ensure(i)
	*b.at(i) = r
	b.alive[i] = true
	b.gens[i] = gen
	for j, f := range b.free {
		if f == idx {
			b.free = append(b.free[:j], b.free[j+1:]...)
			break
		}
	}
}

func (b *BlocksWithFree[R]) slot(k RowKey) (*R, bool) {
	i := int(k.idx)
	if i >= b.n || !b.alive[i] || b.gens[i] != k.gen {
		return nil, false
	}
	return b.at(i), true
}

// Get returns a copy of the row for k.
func (b *BlocksWithFree[R]) Get(k RowKey) (R, bool) {
	var zero R
	p, ok := b.slot(k)
	if !ok {
		return zero, false
	}
	return *p, true
}

// Borrow returns a pointer to the row for k, valid until the row is
// deleted.
func (b *BlocksWithFree[R]) Borrow(k RowKey) (*R, bool) {
	return b.slot(k)
}

// Pull removes the row for k and returns it, for transaction-log capture.
func (b *BlocksWithFree[R]) Pull(k RowKey) (R, bool) {
	var zero R
	p, ok := b.slot(k)
	if !ok {
		return zero, false
	}
	r := *p
	i := int(k.idx)
	*p = zero
	b.alive[i] = false
	b.free = append(b.free, k.idx)
	return r, true
}

// Count returns the number of live rows.
func (b *BlocksWithFree[R]) Count() int {
	n := 0
	for _, a := range b.alive {
		if a {
			n++
		}
	}
	return n
}

// Scan calls yield for every live key in insertion (slot) order.
func (b *BlocksWithFree[R]) Scan(yield func(RowKey) bool) {
	for i := 0; i < b.n; i++ {
		if !b.alive[i] {
			continue
		}
		if !yield(RowKey{idx: uint32(i), gen: b.gens[i]}) {
			return
		}
	}
}
