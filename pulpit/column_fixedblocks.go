package pulpit

const blockSize = 1024

// FixedBlocks is the pointer-stable, append-only column kind: rows are
// stored in fixed-size blocks, allocated one at a time and never moved or
// resized, so a *R handed out by Borrow stays valid for the column's
// entire lifetime. It does not support deletion (§4.4's kind table) — the
// table composer only ever selects it for tables with Deletions==false
// (rule 1).
type FixedBlocks[R any] struct {
	blocks [][]R // each inner slice is allocated once at blockSize and never regrown
	n      int
	gens   []uint32
}

// NewFixedBlocks returns an empty FixedBlocks column.
func NewFixedBlocks[R any]() *FixedBlocks[R] {
	return &FixedBlocks[R]{}
}

func (f *FixedBlocks[R]) blockFor(idx int) (block, offset int) {
	return idx / blockSize, idx % blockSize
}

// Insert appends a row, allocating a new block if the current one is full.
func (f *FixedBlocks[R]) Insert(r R) RowKey {
	idx := f.n
	b, off := f.blockFor(idx)
	if b == len(f.blocks) {
		f.blocks = append(f.blocks, make([]R, blockSize))
	}
	f.blocks[b][off] = r
	f.gens = append(f.gens, 1)
	f.n++
	return RowKey{idx: uint32(idx), gen: 1}
}

func (f *FixedBlocks[R]) slot(k RowKey) (*R, bool) {
	if int(k.idx) >= f.n || f.gens[k.idx] != k.gen {
		return nil, false
	}
	b, off := f.blockFor(int(k.idx))
	return &f.blocks[b][off], true
}

// Get returns a copy of the row for k.
func (f *FixedBlocks[R]) Get(k RowKey) (R, bool) {
	var zero R
	p, ok := f.slot(k)
	if !ok {
		return zero, false
	}
	return *p, true
}

// Borrow returns a pointer to the row for k, valid for the column's
// lifetime (blocks are never reallocated).
func (f *FixedBlocks[R]) Borrow(k RowKey) (*R, bool) {
	return f.slot(k)
}

// Count returns the number of rows ever inserted (FixedBlocks never
// shrinks outside of Truncate).
func (f *FixedBlocks[R]) Count() int { return f.n }

// Truncate rolls the column back to exactly n rows, for undoing the
// inserts of an aborted transaction. Blocks already allocated beyond n
// stay allocated (FixedBlocks never frees a block) but become unreachable
// through Get/Borrow/Scan/Count until a later Insert overwrites them.
func (f *FixedBlocks[R]) Truncate(n int) {
	f.n = n
	f.gens = f.gens[:n]
}

// Scan calls yield for every key in insertion order.
func (f *FixedBlocks[R]) Scan(yield func(RowKey) bool) {
	for i := 0; i < f.n; i++ {
		if !yield(RowKey{idx: uint32(i), gen: f.gens[i]}) {
			return
		}
	}
}
