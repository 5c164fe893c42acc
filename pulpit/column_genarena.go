package pulpit

// GenArena is the slot-order, generational-key column kind: rows live in
// a growable slice of slots, deleted slots go on a free-list and are
// reused with a bumped generation. Unlike FixedBlocks/BlocksWithFree it
// does not promise pointer stability across reuse (a freed slot's memory
// is simply overwritten), matching §4.4's kind table. The composer's rule
// 2 selects it as the sole primary column when every declared column is
// mutable.
type GenArena[R any] struct {
	rows  []R
	alive []bool
	gens  []uint32
	free  []uint32
}

// NewGenArena returns an empty GenArena column.
func NewGenArena[R any]() *GenArena[R] {
	return &GenArena[R]{}
}

// Insert stores r in a free slot (if any) or appends, returning its key.
func (g *GenArena[R]) Insert(r R) RowKey {
	if n := len(g.free); n > 0 {
		idx := g.free[n-1]
		g.free = g.free[:n-1]
		g.rows[idx] = r
		g.alive[idx] = true
		g.gens[idx]++
		return RowKey{idx: idx, gen: g.gens[idx]}
	}
	idx := uint32(len(g.rows))
	g.rows = append(g.rows, r)
	g.alive = append(g.alive, true)
	g.gens = append(g.gens, 1)
	return RowKey{idx: idx, gen: 1}
}

// Place re-inserts r at a specific index/generation, used by abort() to
// undo a Delete.
func (g *GenArena[R]) Place(idx uint32, gen uint32, r R) {
	i := int(idx)
	for i >= len(g.rows) {
		var zero R
		g.rows = append(g.rows, zero)
		g.alive = append(g.alive, false)
		g.gens = append(g.gens, 0)
	}
	g.rows[i] = r
	g.alive[i] = true
	g.gens[i] = gen
	for j, f := range g.free {
		if f == idx {
			g.free = append(g.free[:j], g.free[j+1:]...)
			break
		}
	}
}

func (g *GenArena[R]) valid(k RowKey) bool {
	i := int(k.idx)
	return i < len(g.rows) && g.alive[i] && g.gens[i] == k.gen
}

// Get returns a copy of the row for k.
func (g *GenArena[R]) Get(k RowKey) (R, bool) {
	var zero R
	if !g.valid(k) {
		return zero, false
	}
	return g.rows[k.idx], true
}

// Borrow returns a pointer to the row for k.
func (g *GenArena[R]) Borrow(k RowKey) (*R, bool) {
	if !g.valid(k) {
		return nil, false
	}
	return &g.rows[k.idx], true
}

// Update writes a new value for an existing, live row in place.
func (g *GenArena[R]) Update(k RowKey, r R) bool {
	if !g.valid(k) {
		return false
	}
	g.rows[k.idx] = r
	return true
}

// Pull removes and returns the row for k.
func (g *GenArena[R]) Pull(k RowKey) (R, bool) {
	var zero R
	if !g.valid(k) {
		return zero, false
	}
	r := g.rows[k.idx]
	g.rows[k.idx] = zero
	g.alive[k.idx] = false
	g.free = append(g.free, k.idx)
	return r, true
}

// Count returns the number of live rows.
func (g *GenArena[R]) Count() int {
	n := 0
	for _, a := range g.alive {
		if a {
			n++
		}
	}
	return n
}

// Scan calls yield for every live key in slot order.
func (g *GenArena[R]) Scan(yield func(RowKey) bool) {
	for i, a := range g.alive {
		if !a {
			continue
		}
		if !yield(RowKey{idx: uint32(i), gen: g.gens[i]}) {
			return
		}
	}
}
