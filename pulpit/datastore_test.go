package pulpit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/plan"
)

func TestDatastoreWindowDelegatesToNamedTable(t *testing.T) {
	ds := NewDatastore()
	ds.AddTable(NewTable(tableSchema(true, "stock"), Options{Transactional: true}))

	win := ds.Begin()
	k, err := win.Insert("widgets", row(1, "gadget", 10))
	require.NoError(t, err)

	got, err := win.Get("widgets", k)
	require.NoError(t, err)
	assert.Equal(t, expr.Str("gadget"), got["name"])

	n, err := win.Count("widgets")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = win.Get("nope", k)
	assert.Error(t, err)
}

func TestDatastoreWindowScanAndScanRows(t *testing.T) {
	ds := NewDatastore()
	ds.AddTable(NewTable(tableSchema(false), Options{}))
	win := ds.Begin()
	k1, _ := win.Insert("widgets", row(1, "a", 1))
	k2, _ := win.Insert("widgets", row(2, "b", 2))

	var keys []RowKey
	for k := range win.Scan("widgets") {
		keys = append(keys, k)
	}
	assert.Equal(t, []RowKey{k1, k2}, keys)

	names := map[RowKey]expr.Value{}
	for k, r := range win.ScanRows("widgets") {
		names[k] = r["name"]
	}
	assert.Equal(t, expr.Str("a"), names[k1])
	assert.Equal(t, expr.Str("b"), names[k2])
}

func TestDatastoreWindowSnapshotStableAcrossAbort(t *testing.T) {
	ds := NewDatastore()
	ds.AddTable(NewTable(tableSchema(true, "stock"), Options{Transactional: true}))
	win := ds.Begin()

	_, err := win.Insert("widgets", row(1, "gadget", 10))
	require.NoError(t, err)
	require.NoError(t, win.Commit("widgets"))

	before, err := win.Snapshot()
	require.NoError(t, err)

	k2, err := win.Insert("widgets", row(2, "widget", 1))
	require.NoError(t, err)
	require.NoError(t, win.Update("widgets", k2, Row{"stock": expr.Int(99)}))

	require.NoError(t, win.Abort("widgets"))

	after, err := win.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDatastoreWindowAbortScopedToOneTable(t *testing.T) {
	ds := NewDatastore()
	ds.AddTable(NewTable(tableSchema(true, "stock"), Options{Transactional: true}))
	ds.AddTable(NewTable(&plan.Table{
		Name:      "gadgets",
		Columns:   []plan.Column{{Name: "id"}, {Name: "name"}},
		Deletions: true,
		Mutated:   map[string]bool{"name": true},
	}, Options{Transactional: true}))
	win := ds.Begin()

	_, err := win.Insert("widgets", row(1, "gadget", 10))
	require.NoError(t, err)
	k2, err := win.Insert("gadgets", Row{"id": expr.Int(1), "name": expr.Str("sprocket")})
	require.NoError(t, err)

	require.NoError(t, win.Abort("widgets"))

	n, err := win.Count("widgets")
	require.NoError(t, err)
	assert.Equal(t, 0, n, "widgets' own insert should have been undone")

	got, err := win.Get("gadgets", k2)
	require.NoError(t, err, "gadgets' insert must survive an abort scoped to widgets")
	assert.Equal(t, expr.Str("sprocket"), got["name"])

	assert.Error(t, win.Commit("nope"))
}
