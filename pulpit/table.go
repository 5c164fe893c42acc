package pulpit

import (
	"fmt"

	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/plan"
)

// Table is the composed, generated-equivalent operation surface of §6: one
// physical table built from whichever column-kind combination composer.go
// chose for its schema, plus its unique indexes and transaction log. The
// codegen path (package codegen) emits the same operation surface as typed
// Go source against a per-table struct; Table is the hand-written,
// dynamically-typed equivalent the interpreted engine drives directly.
type Table struct {
	Schema      *plan.Table
	Composition Composition
	Compact     bool

	// CompAppendOnly
	appendPrimary *AppendAdapter
	fixedAssoc    *FixedBlocks[Row]
	contigAssoc   *ContigVec[Row]

	// CompFullArena
	arena *GenArena[Row]

	// CompRetainSplit
	immutable       *BlocksWithFree[Row]
	mutable         *GenArena[Row]
	immutableFields []string
	mutableFields   []string

	uniques map[string]*UniqueIndex // column name -> index
	log     *TransactionLog
	txOn    bool
}

// NewTable builds a Table for schema, selecting its physical layout via
// Choose and wiring one UniqueIndex per declared Unique constraint.
func NewTable(schema *plan.Table, opts Options) *Table {
	t := &Table{
		Schema:      schema,
		Composition: Choose(schema),
		Compact:     opts.Compact,
		uniques:     make(map[string]*UniqueIndex, len(schema.Uniques)),
		log:         &TransactionLog{},
		txOn:        opts.Transactional,
	}
	switch t.Composition {
	case CompAppendOnly:
		t.appendPrimary = NewAppendAdapter()
		if opts.Compact {
			t.contigAssoc = NewContigVec[Row]()
		} else {
			t.fixedAssoc = NewFixedBlocks[Row]()
		}
	case CompFullArena:
		t.arena = NewGenArena[Row]()
	case CompRetainSplit:
		t.immutable = NewBlocksWithFree[Row]()
		t.mutable = NewGenArena[Row]()
		t.immutableFields, t.mutableFields = partitionColumns(schema)
	}
	for _, u := range schema.Uniques {
		t.uniques[u.Column] = NewUniqueIndex(u.Alias)
	}
	return t
}

// checkPredicates evaluates every row-level predicate against row, failing
// on the first violated or non-boolean one.
func (t *Table) checkPredicates(row Row) error {
	for _, p := range t.Schema.Predicates {
		v, err := expr.Eval(p.Expr, row.Env())
		if err != nil {
			return &InsertError{Table: t.Schema.Name, Kind: InsertErrPredicate, Alias: p.Alias}
		}
		if ok, isBool := v.Any().(bool); !isBool || !ok {
			return &InsertError{Table: t.Schema.Name, Kind: InsertErrPredicate, Alias: p.Alias}
		}
	}
	return nil
}

// checkLimits evaluates every row-level limit against the table's current
// Count, failing once a limit would be exceeded by one more row.
func (t *Table) checkLimits() error {
	n := int64(t.Count())
	for _, l := range t.Schema.Limits {
		v, err := expr.Eval(l.Expr, expr.Env{})
		if err != nil {
			return &InsertError{Table: t.Schema.Name, Kind: InsertErrLimit, Alias: l.Alias}
		}
		bound, ok := v.Any().(int64)
		if !ok {
			return &InsertError{Table: t.Schema.Name, Kind: InsertErrLimit, Alias: l.Alias}
		}
		if n >= bound {
			return &InsertError{Table: t.Schema.Name, Kind: InsertErrLimit, Alias: l.Alias}
		}
	}
	return nil
}

// checkUniques verifies row's unique-constrained fields are not already
// taken by a different row. except, if non-zero, is the row's own key
// (consulted by Update, which must not reject a field kept unchanged).
func (t *Table) checkUniques(row Row, except RowKey) error {
	for col, idx := range t.uniques {
		v, ok := row[col]
		if !ok {
			continue
		}
		if k, taken := idx.Lookup(v.Any()); taken && k != except {
			return &InsertError{Table: t.Schema.Name, Kind: InsertErrUnique, Alias: idx.Alias}
		}
	}
	return nil
}

func (t *Table) insertUniques(row Row, key RowKey) {
	for col, idx := range t.uniques {
		if v, ok := row[col]; ok {
			idx.Insert(v.Any(), key)
		}
	}
}

func (t *Table) removeUniques(row Row) {
	for col, idx := range t.uniques {
		if v, ok := row[col]; ok {
			idx.Remove(v.Any())
		}
	}
}

// Insert validates row against every predicate, limit and unique
// constraint, then stores it, returning its RowKey. See InsertError for
// the ways validation can fail.
func (t *Table) Insert(row Row) (RowKey, error) {
	if err := t.checkPredicates(row); err != nil {
		return RowKey{}, err
	}
	if err := t.checkLimits(); err != nil {
		return RowKey{}, err
	}
	if err := t.checkUniques(row, RowKey{}); err != nil {
		return RowKey{}, err
	}

	var key RowKey
	switch t.Composition {
	case CompAppendOnly:
		key = t.appendPrimary.Next()
		if t.fixedAssoc != nil {
			t.fixedAssoc.Insert(row)
		} else {
			t.contigAssoc.Insert(row)
		}
	case CompFullArena:
		key = t.arena.Insert(row)
	case CompRetainSplit:
		key = t.immutable.Insert(row.Project(t.immutableFields))
		t.mutable.Place(key.idx, key.gen, row.Project(t.mutableFields))
	}

	t.insertUniques(row, key)
	if t.txOn {
		t.log.Record(LogItem{Kind: LogInsert, Key: key})
	}
	return key, nil
}

// Get returns a copy of the row stored at key.
func (t *Table) Get(key RowKey) (Row, error) {
	switch t.Composition {
	case CompAppendOnly:
		var r Row
		var ok bool
		if t.fixedAssoc != nil {
			r, ok = t.fixedAssoc.Get(key)
		} else {
			r, ok = t.contigAssoc.Get(key)
		}
		if !ok {
			return nil, &KeyError{Table: t.Schema.Name, Key: key}
		}
		return r, nil
	case CompFullArena:
		r, ok := t.arena.Get(key)
		if !ok {
			return nil, &KeyError{Table: t.Schema.Name, Key: key}
		}
		return r, nil
	case CompRetainSplit:
		im, ok := t.immutable.Get(key)
		if !ok {
			return nil, &KeyError{Table: t.Schema.Name, Key: key}
		}
		mu, _ := t.mutable.Get(key)
		return mergeRows(im, mu), nil
	}
	panic("pulpit: unreachable composition")
}

// Borrow returns a read view of the row stored at key. Callers must treat
// the returned Row as immutable: every field write goes through Update, so
// predicates, uniques and the transaction log stay consistent. For
// CompAppendOnly/CompFullArena this is a genuine zero-copy borrow of the
// column's backing storage; for CompRetainSplit the immutable half is
// zero-copy and the mutable half is merged in by value.
func (t *Table) Borrow(key RowKey) (Row, error) {
	switch t.Composition {
	case CompAppendOnly:
		var r *Row
		var ok bool
		if t.fixedAssoc != nil {
			r, ok = t.fixedAssoc.Borrow(key)
		} else {
			r, ok = t.contigAssoc.Borrow(key)
		}
		if !ok {
			return nil, &KeyError{Table: t.Schema.Name, Key: key}
		}
		return *r, nil
	case CompFullArena:
		r, ok := t.arena.Borrow(key)
		if !ok {
			return nil, &KeyError{Table: t.Schema.Name, Key: key}
		}
		return *r, nil
	case CompRetainSplit:
		imp, ok := t.immutable.Borrow(key)
		if !ok {
			return nil, &KeyError{Table: t.Schema.Name, Key: key}
		}
		mu, _ := t.mutable.Get(key)
		return mergeRows(*imp, mu), nil
	}
	panic("pulpit: unreachable composition")
}

func mergeRows(immutable, mutable Row) Row {
	out := make(Row, len(immutable)+len(mutable))
	for k, v := range immutable {
		out[k] = v
	}
	for k, v := range mutable {
		out[k] = v
	}
	return out
}

// Update applies assignments (field name -> new value) to the row at key,
// re-checks every predicate and every unique constraint (not only the
// touched fields — §4.5 re-validates the whole row), and logs the previous
// values of the mutated fields. A CompAppendOnly table's single FixedBlocks/
// ContigVec associated column has no delete, but §4.4's rule 1 says nothing
// about forbidding Update, so it is mutated in place through Borrow.
func (t *Table) Update(key RowKey, assignments Row) error {
	current, err := t.Get(key)
	if err != nil {
		return &UpdateError{Table: t.Schema.Name, Kind: UpdateErrKey}
	}
	next := current.Clone()
	old := make(Row, len(assignments))
	for field, v := range assignments {
		old[field] = current[field]
		next[field] = v
	}

	if err := t.checkPredicatesUpdate(next); err != nil {
		return err
	}
	if err := t.checkUniques(next, key); err != nil {
		return &UpdateError{Table: t.Schema.Name, Kind: UpdateErrPredicate, Alias: err.(*InsertError).Alias}
	}

	t.removeUniques(current)
	switch t.Composition {
	case CompAppendOnly:
		if t.fixedAssoc != nil {
			p, _ := t.fixedAssoc.Borrow(key)
			*p = next
		} else {
			p, _ := t.contigAssoc.Borrow(key)
			*p = next
		}
	case CompFullArena:
		t.arena.Update(key, next)
	case CompRetainSplit:
		t.mutable.Update(key, next.Project(t.mutableFields))
	}
	t.insertUniques(next, key)

	if t.txOn {
		t.log.Record(LogItem{Kind: LogUpdate, Key: key, OldFields: old})
	}
	return nil
}

func (t *Table) checkPredicatesUpdate(row Row) error {
	if err := t.checkPredicates(row); err != nil {
		ie := err.(*InsertError)
		return &UpdateError{Table: t.Schema.Name, Kind: UpdateErrPredicate, Alias: ie.Alias}
	}
	return nil
}

// Delete removes the row at key, logging its full prior contents so Abort
// can restore it. CompAppendOnly tables reject every Delete (their column
// kinds have no deletion), although they accept Update.
func (t *Table) Delete(key RowKey) error {
	if t.Composition == CompAppendOnly {
		return &UpdateError{Table: t.Schema.Name, Kind: UpdateErrKey}
	}

	var full Row
	switch t.Composition {
	case CompFullArena:
		r, ok := t.arena.Pull(key)
		if !ok {
			return &KeyError{Table: t.Schema.Name, Key: key}
		}
		full = r
	case CompRetainSplit:
		im, ok := t.immutable.Pull(key)
		if !ok {
			return &KeyError{Table: t.Schema.Name, Key: key}
		}
		mu, _ := t.mutable.Pull(key)
		full = mergeRows(im, mu)
	}

	t.removeUniques(full)
	if t.txOn {
		t.log.Record(LogItem{Kind: LogDelete, Key: key, OldRow: full, OldGen: key.gen})
	}
	return nil
}

// UniqueLookup resolves alias's unique index against v, returning the
// matching row's key.
func (t *Table) UniqueLookup(alias string, v expr.Value) (RowKey, error) {
	for _, idx := range t.uniques {
		if idx.Alias != alias {
			continue
		}
		k, ok := idx.Lookup(v.Any())
		if !ok {
			return RowKey{}, &NotFoundError{Table: t.Schema.Name, Alias: alias}
		}
		return k, nil
	}
	return RowKey{}, fmt.Errorf("pulpit: %s: no unique constraint aliased %q", t.Schema.Name, alias)
}

// Count returns the number of live rows.
func (t *Table) Count() int {
	switch t.Composition {
	case CompAppendOnly:
		if t.fixedAssoc != nil {
			return t.fixedAssoc.Count()
		}
		return t.contigAssoc.Count()
	case CompFullArena:
		return t.arena.Count()
	case CompRetainSplit:
		return t.immutable.Count()
	}
	return 0
}

// Scan calls yield for every live row's key, in the underlying column
// kind's iteration order, stopping early if yield returns false.
func (t *Table) Scan(yield func(RowKey) bool) {
	switch t.Composition {
	case CompAppendOnly:
		if t.fixedAssoc != nil {
			t.fixedAssoc.Scan(yield)
		} else {
			t.contigAssoc.Scan(yield)
		}
	case CompFullArena:
		t.arena.Scan(yield)
	case CompRetainSplit:
		t.immutable.Scan(yield)
	}
}

// Commit clears the transaction log without undoing anything.
func (t *Table) Commit() {
	if t.txOn {
		t.log.Commit()
	}
}

// Abort replays the transaction log newest-to-oldest, undoing every logged
// Insert/Update/Delete (§4.5): an Insert is undone by deleting its row, an
// Update by writing back OldFields, a Delete by re-placing OldRow at its
// original key. Logging is disabled for the duration so the undo itself
// does not get logged.
func (t *Table) Abort() {
	if !t.txOn {
		return
	}
	t.log.BeginRollback()
	defer t.log.EndRollback()

	for _, item := range t.log.ItemsNewestFirst() {
		switch item.Kind {
		case LogInsert:
			t.undoInsert(item.Key)
		case LogUpdate:
			_ = t.Update(item.Key, item.OldFields)
		case LogDelete:
			t.undoDelete(item.Key, item.OldRow)
		}
	}
}

func (t *Table) undoInsert(key RowKey) {
	row, err := t.Get(key)
	if err == nil {
		t.removeUniques(row)
	}
	switch t.Composition {
	case CompAppendOnly:
		// CompAppendOnly keys are strictly insertion-ordered and the log is
		// replayed newest-to-oldest, so truncating back to this row's own
		// index on every undone Insert converges to the pre-transaction row
		// count: the last undoInsert call in the loop truncates to the
		// index of the oldest row this transaction inserted.
		t.appendPrimary.Truncate(key.idx)
		if t.fixedAssoc != nil {
			t.fixedAssoc.Truncate(int(key.idx))
		} else {
			t.contigAssoc.Truncate(int(key.idx))
		}
	case CompFullArena:
		t.arena.Pull(key)
	case CompRetainSplit:
		t.immutable.Pull(key)
		t.mutable.Pull(key)
	}
}

func (t *Table) undoDelete(key RowKey, row Row) {
	switch t.Composition {
	case CompFullArena:
		t.arena.Place(key.idx, key.gen, row)
	case CompRetainSplit:
		t.immutable.Place(key.idx, key.gen, row.Project(t.immutableFields))
		t.mutable.Place(key.idx, key.gen, row.Project(t.mutableFields))
	}
	t.insertUniques(row, key)
}
