package pulpit

import (
	"bytes"
	"fmt"
	"iter"
	"sort"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/syssam/emdb/expr"
)

// Datastore owns every composed Table of one database instance. Per §5 it
// is accessed exclusively through a Window, never directly.
type Datastore struct {
	tables map[string]*Table
	order  []string // table names in registration order, for deterministic Snapshot
}

// NewDatastore returns an empty datastore.
func NewDatastore() *Datastore {
	return &Datastore{tables: make(map[string]*Table)}
}

// AddTable registers a composed table, keyed by its schema name.
func (d *Datastore) AddTable(t *Table) {
	if _, exists := d.tables[t.Schema.Name]; !exists {
		d.order = append(d.order, t.Schema.Name)
	}
	d.tables[t.Schema.Name] = t
}

// Begin acquires a Window over the whole datastore. Per §5 this is a
// scoped, non-reentrant mutable borrow in spirit only: Go has no borrow
// checker, so misuse across goroutines is a caller error, not something
// Window itself guards against.
func (d *Datastore) Begin() Window {
	return Window{ds: d}
}

// Window is a short-lived handle into a Datastore exposing the generated
// table operation surface of §6, looked up dynamically by table name (the
// codegen path emits the same surface as typed per-table methods instead).
type Window struct {
	ds *Datastore
}

func (w Window) table(name string) (*Table, error) {
	t, ok := w.ds.tables[name]
	if !ok {
		return nil, fmt.Errorf("pulpit: no table %q in this datastore", name)
	}
	return t, nil
}

// Insert inserts row into table and returns its key.
func (w Window) Insert(table string, row Row) (RowKey, error) {
	t, err := w.table(table)
	if err != nil {
		return RowKey{}, err
	}
	return t.Insert(row)
}

// Get returns a copy of the row at key in table.
func (w Window) Get(table string, key RowKey) (Row, error) {
	t, err := w.table(table)
	if err != nil {
		return nil, err
	}
	return t.Get(key)
}

// Borrow returns a read view of the row at key in table.
func (w Window) Borrow(table string, key RowKey) (Row, error) {
	t, err := w.table(table)
	if err != nil {
		return nil, err
	}
	return t.Borrow(key)
}

// Update applies assignments to the row at key in table.
func (w Window) Update(table string, key RowKey, assignments Row) error {
	t, err := w.table(table)
	if err != nil {
		return err
	}
	return t.Update(key, assignments)
}

// Delete removes the row at key in table.
func (w Window) Delete(table string, key RowKey) error {
	t, err := w.table(table)
	if err != nil {
		return err
	}
	return t.Delete(key)
}

// Unique resolves alias's unique index in table against v.
func (w Window) Unique(table, alias string, v expr.Value) (RowKey, error) {
	t, err := w.table(table)
	if err != nil {
		return RowKey{}, err
	}
	return t.UniqueLookup(alias, v)
}

// Count returns the number of live rows in table.
func (w Window) Count(table string) (int, error) {
	t, err := w.table(table)
	if err != nil {
		return 0, err
	}
	return t.Count(), nil
}

// Scan iterates the live keys of table in the underlying column kind's
// order, as a Go 1.23 range-over-func iterator.
func (w Window) Scan(table string) iter.Seq[RowKey] {
	return func(yield func(RowKey) bool) {
		t, err := w.table(table)
		if err != nil {
			return
		}
		t.Scan(yield)
	}
}

// ScanRows iterates (key, row) pairs of table.
func (w Window) ScanRows(table string) iter.Seq2[RowKey, Row] {
	return func(yield func(RowKey, Row) bool) {
		t, err := w.table(table)
		if err != nil {
			return
		}
		t.Scan(func(k RowKey) bool {
			r, getErr := t.Get(k)
			if getErr != nil {
				return true
			}
			return yield(k, r)
		})
	}
}

// Commit clears table's own transaction log. There is no global
// transaction manager: committing one table has no effect on any other
// table sharing this Window, matching the "own log only" invariant of
// §4.5.
func (w Window) Commit(table string) error {
	t, err := w.table(table)
	if err != nil {
		return err
	}
	t.Commit()
	return nil
}

// Abort reverts table to the state it held before the window's mutations,
// via that table's own transaction log only — a sibling table's log is
// untouched.
func (w Window) Abort(table string) error {
	t, err := w.table(table)
	if err != nil {
		return err
	}
	t.Abort()
	return nil
}

// snapshotRow is the msgpack wire shape of one row: field name -> dynamic
// value, plus the row's key so Snapshot catches a key mismatch (e.g. a
// rollback that restored the wrong generation) as a byte difference.
type snapshotRow struct {
	Key    string
	Fields map[string]any
}

// Snapshot msgpack-encodes the full visible row set of every table, tables
// sorted by name, rows in scan order, map keys sorted, for the bitwise
// "snapshot(); ...; abort(); state == snapshot()" property of §8. This is
// an in-memory byte-equality check, not a persistence format.
func (w Window) Snapshot() ([]byte, error) {
	out := make(map[string][]snapshotRow, len(w.ds.order))
	for _, name := range w.ds.order {
		t := w.ds.tables[name]
		var rows []snapshotRow
		t.Scan(func(k RowKey) bool {
			row, err := t.Get(k)
			if err != nil {
				return true
			}
			fields := make(map[string]any, len(row))
			for f, v := range row {
				fields[f] = v.Any()
			}
			rows = append(rows, snapshotRow{Key: k.String(), Fields: fields})
			return true
		})
		out[name] = rows
	}
	names := make([]string, 0, len(out))
	for name := range out {
		names = append(names, name)
	}
	sort.Strings(names)
	ordered := make([]struct {
		Table string
		Rows  []snapshotRow
	}, len(names))
	for i, name := range names {
		ordered[i].Table = name
		ordered[i].Rows = out[name]
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(ordered); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
