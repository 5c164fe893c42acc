package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/emdb/engine"
	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/plan"
	"github.com/syssam/emdb/pulpit"
)

// edgeFrom inserts a Connected edge whose producer is from; engine only
// ever consults From when resolving an operator's Inputs, so To is left
// zero here the way these tests build plans by hand instead of through a
// lowering pass.
func edgeFrom(p *plan.Plan, from plan.OperatorKey) plan.EdgeKey {
	return p.Edges.Insert(plan.DataflowEdge{State: plan.EdgeConnected, From: from})
}

func TestEngineRowInsertReturn(t *testing.T) {
	p := plan.New()
	tk := p.Tables.Insert(plan.Table{Name: "events", Columns: []plan.Column{{Name: "ts"}}})
	ds := pulpit.NewDatastore()
	ds.AddTable(pulpit.NewTable(p.Tables.Get(tk), pulpit.Options{}))

	ctxKey := p.Contexts.Insert(plan.Context{Name: "add", Params: []plan.Param{{Name: "ts"}}})

	rowOp := p.Operators.Insert(plan.Operator{
		Kind:    plan.OpRow,
		Context: ctxKey,
		Payload: &plan.RowPayload{Fields: []plan.FieldAssign{{Field: "ts", Expr: expr.F("ts")}}},
	})
	e1 := edgeFrom(p, rowOp)

	insertOp := p.Operators.Insert(plan.Operator{
		Kind:    plan.OpInsert,
		Context: ctxKey,
		Inputs:  []plan.EdgeKey{e1},
		Payload: &plan.InsertPayload{Table: tk},
	})
	e2 := edgeFrom(p, insertOp)

	retOp := p.Operators.Insert(plan.Operator{
		Kind:    plan.OpReturn,
		Context: ctxKey,
		Inputs:  []plan.EdgeKey{e2},
		Payload: &plan.ReturnPayload{},
	})

	ctx := p.Contexts.Get(ctxKey)
	ctx.Operators = []plan.OperatorKey{rowOp, insertOp, retOp}
	ctx.Return = &retOp

	qk := p.Queries.Insert(plan.Query{Name: "add", Context: ctxKey})

	in := engine.New(p, ds)
	for i := int64(0); i < 100; i++ {
		out, err := in.Run(qk, expr.Env{"ts": expr.Int(i)})
		require.NoError(t, err)
		ref, ok := out["key"].(engine.Ref)
		require.True(t, ok)
		assert.Equal(t, "events", ref.Table)
	}

	win := ds.Begin()
	n, err := win.Count("events")
	require.NoError(t, err)
	assert.Equal(t, 100, n)
}

func TestEngineUniqueConflict(t *testing.T) {
	p := plan.New()
	tk := p.Tables.Insert(plan.Table{
		Name:    "users",
		Columns: []plan.Column{{Name: "name"}},
		Uniques: []plan.Unique{{Column: "name", Alias: "by_name"}},
	})
	ds := pulpit.NewDatastore()
	ds.AddTable(pulpit.NewTable(p.Tables.Get(tk), pulpit.Options{}))

	ctxKey := p.Contexts.Insert(plan.Context{Name: "add", Params: []plan.Param{{Name: "name"}}})
	rowOp := p.Operators.Insert(plan.Operator{
		Kind:    plan.OpRow,
		Context: ctxKey,
		Payload: &plan.RowPayload{Fields: []plan.FieldAssign{{Field: "name", Expr: expr.F("name")}}},
	})
	e1 := edgeFrom(p, rowOp)
	insertOp := p.Operators.Insert(plan.Operator{
		Kind: plan.OpInsert, Context: ctxKey, Inputs: []plan.EdgeKey{e1},
		Payload: &plan.InsertPayload{Table: tk},
	})
	e2 := edgeFrom(p, insertOp)
	retOp := p.Operators.Insert(plan.Operator{
		Kind: plan.OpReturn, Context: ctxKey, Inputs: []plan.EdgeKey{e2}, Payload: &plan.ReturnPayload{},
	})
	ctx := p.Contexts.Get(ctxKey)
	ctx.Operators = []plan.OperatorKey{rowOp, insertOp, retOp}
	ctx.Return = &retOp
	qk := p.Queries.Insert(plan.Query{Name: "add", Context: ctxKey})

	in := engine.New(p, ds)
	_, err := in.Run(qk, expr.Env{"name": expr.Str("Alice")})
	require.NoError(t, err)

	_, err = in.Run(qk, expr.Env{"name": expr.Str("Alice")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unique")

	win := ds.Begin()
	n, _ := win.Count("users")
	assert.Equal(t, 1, n)
}

func TestEngineScanDeRefMapPipeline(t *testing.T) {
	p := plan.New()
	tk := p.Tables.Insert(plan.Table{Name: "logs", Columns: []plan.Column{{Name: "min"}, {Name: "level"}}})
	ds := pulpit.NewDatastore()
	ds.AddTable(pulpit.NewTable(p.Tables.Get(tk), pulpit.Options{}))

	win := ds.Begin()
	rows := []struct {
		min, level int64
	}{{0, 0}, {0, 0}, {1, 1}, {1, 0}, {2, 0}}
	for _, r := range rows {
		_, err := win.Insert("logs", pulpit.Row{"min": expr.Int(r.min), "level": expr.Int(r.level)})
		require.NoError(t, err)
	}

	ctxKey := p.Contexts.Insert(plan.Context{Name: "errors_by_minute"})
	scanOp := p.Operators.Insert(plan.Operator{
		Kind: plan.OpScanRefs, Context: ctxKey, Payload: &plan.ScanRefsPayload{Table: tk},
	})
	e1 := edgeFrom(p, scanOp)
	derefOp := p.Operators.Insert(plan.Operator{
		Kind: plan.OpDeRef, Context: ctxKey, Inputs: []plan.EdgeKey{e1},
		Payload: &plan.DeRefPayload{KeyField: "key", As: "row"},
	})
	e2 := edgeFrom(p, derefOp)
	mapOp := p.Operators.Insert(plan.Operator{
		Kind: plan.OpMap, Context: ctxKey, Inputs: []plan.EdgeKey{e2},
		Payload: &plan.MapPayload{Fields: []plan.FieldAssign{
			{Field: "min", Expr: expr.F("min")},
			{Field: "level", Expr: expr.F("level")},
		}},
	})
	ctx := p.Contexts.Get(ctxKey)
	ctx.Operators = []plan.OperatorKey{scanOp, derefOp, mapOp}

	qk := p.Queries.Insert(plan.Query{Name: "scan_test", Context: ctxKey})
	in := engine.New(p, ds)
	_, err := in.Run(qk, expr.Env{})
	require.NoError(t, err)
}

func TestEngineTransactionAbort(t *testing.T) {
	p := plan.New()
	tk := p.Tables.Insert(plan.Table{
		Name:      "people",
		Columns:   []plan.Column{{Name: "age"}},
		Deletions: true,
		Mutated:   map[string]bool{"age": true},
	})
	ds := pulpit.NewDatastore()
	ds.AddTable(pulpit.NewTable(p.Tables.Get(tk), pulpit.Options{Transactional: true}))

	win := ds.Begin()
	k, err := win.Insert("people", pulpit.Row{"age": expr.Int(50)})
	require.NoError(t, err)
	require.NoError(t, win.Commit("people"))

	win.Update("people", k, pulpit.Row{"age": expr.Int(99)})
	require.NoError(t, win.Abort("people"))

	got, err := win.Get("people", k)
	require.NoError(t, err)
	assert.Equal(t, expr.Int(50), got["age"])
}
