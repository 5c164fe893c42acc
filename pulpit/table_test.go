package pulpit

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/plan"
)

func row(id int64, name string, stock int64) Row {
	return Row{"id": expr.Int(id), "name": expr.Str(name), "stock": expr.Int(stock)}
}

func TestTableAppendOnlyInsertGetScan(t *testing.T) {
	schema := tableSchema(false)
	tb := NewTable(schema, Options{})
	require.Equal(t, CompAppendOnly, tb.Composition)

	k1, err := tb.Insert(row(1, "gadget", 10))
	require.NoError(t, err)
	k2, err := tb.Insert(row(2, "widget", 5))
	require.NoError(t, err)

	got, err := tb.Get(k1)
	require.NoError(t, err)
	assert.Equal(t, expr.Str("gadget"), got["name"])

	assert.Equal(t, 2, tb.Count())

	var seen []RowKey
	tb.Scan(func(k RowKey) bool {
		seen = append(seen, k)
		return true
	})
	assert.Equal(t, []RowKey{k1, k2}, seen)
}

func TestTableAppendOnlyUpdateAllowedDeleteRejected(t *testing.T) {
	tb := NewTable(tableSchema(false, "stock"), Options{})
	k, err := tb.Insert(row(1, "gadget", 10))
	require.NoError(t, err)

	err = tb.Update(k, Row{"stock": expr.Int(20)})
	require.NoError(t, err)
	got, _ := tb.Get(k)
	assert.Equal(t, expr.Int(20), got["stock"])

	err = tb.Delete(k)
	require.Error(t, err)
	var ue *UpdateError
	require.True(t, errors.As(err, &ue))
}

func TestTableFullArenaInsertUpdateDelete(t *testing.T) {
	tb := NewTable(tableSchema(true, "id", "name", "stock"), Options{})
	require.Equal(t, CompFullArena, tb.Composition)

	k, err := tb.Insert(row(1, "gadget", 10))
	require.NoError(t, err)

	require.NoError(t, tb.Update(k, Row{"stock": expr.Int(3)}))
	got, err := tb.Get(k)
	require.NoError(t, err)
	assert.Equal(t, expr.Int(3), got["stock"])

	require.NoError(t, tb.Delete(k))
	_, err = tb.Get(k)
	require.Error(t, err)
	var ke *KeyError
	require.True(t, errors.As(err, &ke))
	assert.Equal(t, 0, tb.Count())
}

func TestTableRetainSplitBorrowMergesPartitions(t *testing.T) {
	tb := NewTable(tableSchema(true, "stock"), Options{})
	require.Equal(t, CompRetainSplit, tb.Composition)

	k, err := tb.Insert(row(1, "gadget", 10))
	require.NoError(t, err)

	view, err := tb.Borrow(k)
	require.NoError(t, err)
	assert.Equal(t, expr.Str("gadget"), view["name"])
	assert.Equal(t, expr.Int(10), view["stock"])

	require.NoError(t, tb.Update(k, Row{"stock": expr.Int(1)}))
	view, err = tb.Borrow(k)
	require.NoError(t, err)
	assert.Equal(t, expr.Int(1), view["stock"])
	assert.Equal(t, expr.Str("gadget"), view["name"])

	require.NoError(t, tb.Delete(k))
	_, err = tb.Borrow(k)
	require.Error(t, err)
}

func TestTableUniqueConstraint(t *testing.T) {
	schema := tableSchema(true, "stock")
	schema.Uniques = []plan.Unique{{Column: "name", Alias: "by_name"}}
	tb := NewTable(schema, Options{})

	k1, err := tb.Insert(row(1, "gadget", 10))
	require.NoError(t, err)

	_, err = tb.Insert(row(2, "gadget", 1))
	require.Error(t, err)
	var ie *InsertError
	require.True(t, errors.As(err, &ie))
	assert.True(t, errors.Is(err, ErrUnique))

	found, err := tb.UniqueLookup("by_name", expr.Str("gadget"))
	require.NoError(t, err)
	assert.Equal(t, k1, found)

	_, err = tb.UniqueLookup("by_name", expr.Str("nope"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestTablePredicateConstraint(t *testing.T) {
	schema := tableSchema(true, "stock")
	schema.Predicates = []plan.Predicate{
		{Expr: expr.GTE(expr.F("stock"), expr.LitInt(0)), Alias: "non_negative"},
	}
	tb := NewTable(schema, Options{})

	_, err := tb.Insert(row(1, "gadget", -1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPredicate))

	k, err := tb.Insert(row(1, "gadget", 5))
	require.NoError(t, err)

	err = tb.Update(k, Row{"stock": expr.Int(-5)})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPredicate))
	got, _ := tb.Get(k)
	assert.Equal(t, expr.Int(5), got["stock"])
}

func TestTableLimitConstraint(t *testing.T) {
	schema := tableSchema(false)
	schema.Limits = []plan.Limit{{Expr: expr.LitInt(1), Alias: "max_one"}}
	tb := NewTable(schema, Options{})

	_, err := tb.Insert(row(1, "gadget", 1))
	require.NoError(t, err)

	_, err = tb.Insert(row(2, "widget", 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrLimit))
}

func TestTableTransactionAbortUndoesInsertUpdateDelete(t *testing.T) {
	schema := tableSchema(true, "stock")
	schema.Uniques = []plan.Unique{{Column: "name", Alias: "by_name"}}
	tb := NewTable(schema, Options{Transactional: true})

	k1, err := tb.Insert(row(1, "gadget", 10))
	require.NoError(t, err)
	tb.Commit()
	before, err := tb.Get(k1)
	require.NoError(t, err)

	k2, err := tb.Insert(row(2, "widget", 1))
	require.NoError(t, err)
	require.NoError(t, tb.Update(k1, Row{"stock": expr.Int(99)}))
	require.NoError(t, tb.Delete(k2))

	tb.Abort()

	got, err := tb.Get(k1)
	require.NoError(t, err)
	assert.Equal(t, before, got)

	_, err = tb.Get(k2)
	require.Error(t, err, "abort should not resurrect an insert that was logged before the delete it undoes separately")

	found, err := tb.UniqueLookup("by_name", expr.Str("gadget"))
	require.NoError(t, err)
	assert.Equal(t, k1, found)

	assert.Equal(t, 0, tb.log.Len())
}

func TestTableTransactionCommitClearsLog(t *testing.T) {
	tb := NewTable(tableSchema(true, "stock"), Options{Transactional: true})
	_, err := tb.Insert(row(1, "gadget", 10))
	require.NoError(t, err)
	assert.Equal(t, 1, tb.log.Len())

	tb.Commit()
	assert.Equal(t, 0, tb.log.Len())
}

func TestTableTransactionAbortAppendOnlyUndoesInsert(t *testing.T) {
	schema := tableSchema(false, "stock") // Deletions: false -> CompAppendOnly
	tb := NewTable(schema, Options{Transactional: true})
	require.Equal(t, CompAppendOnly, tb.Composition)

	k1, err := tb.Insert(row(1, "gadget", 10))
	require.NoError(t, err)
	tb.Commit()

	k2, err := tb.Insert(row(2, "widget", 1))
	require.NoError(t, err)
	require.NoError(t, tb.Update(k1, Row{"stock": expr.Int(99)}))

	tb.Abort()

	got, err := tb.Get(k1)
	require.NoError(t, err)
	assert.Equal(t, expr.Int(10), got["stock"], "update logged before the abort must also be undone")

	_, err = tb.Get(k2)
	require.Error(t, err, "the aborted insert must no longer be reachable through Get")

	assert.Equal(t, 1, tb.Count(), "Count must not include the undone insert")

	var seen []RowKey
	tb.Scan(func(k RowKey) bool {
		seen = append(seen, k)
		return true
	})
	assert.Equal(t, []RowKey{k1}, seen, "Scan must not yield the undone insert")

	k3, err := tb.Insert(row(3, "sprocket", 2))
	require.NoError(t, err)
	assert.Equal(t, k2, k3, "Next() must resume minting from the truncated count, reusing the freed key")
}
