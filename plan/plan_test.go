package plan_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/emdb/plan"
)

func TestArenaGenerationalKeys(t *testing.T) {
	a := plan.NewArena[string]()
	k1 := a.Insert("alice")
	require.Equal(t, "alice", *a.Get(k1))

	a.Remove(k1)
	_, ok := a.TryGet(k1)
	assert.False(t, ok, "removed key should not resolve")

	k2 := a.Insert("bob")
	assert.NotEqual(t, k1, k2, "reused slot must carry a different generation")

	assert.Panics(t, func() { a.Get(k1) })
}

func TestArenaAllPreservesInsertionOrder(t *testing.T) {
	a := plan.NewArena[int]()
	for i := 0; i < 5; i++ {
		a.Insert(i)
	}
	var got []int
	for _, v := range a.All() {
		got = append(got, *v)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestResolveScalarChasesRefChain(t *testing.T) {
	p := plan.New()
	leaf := p.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarGo, GoType: "int64"})
	mid := p.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarRef, Ref: leaf})
	top := p.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarRef, Ref: mid})

	resolved, ty := p.ResolveScalar(top)
	assert.Equal(t, leaf, resolved)
	assert.Equal(t, "int64", ty.GoType)
}

func TestResolveScalarDetectsCycle(t *testing.T) {
	p := plan.New()
	a := p.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarRef})
	b := p.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarRef, Ref: a})
	*p.ScalarTypes.Get(a) = plan.ScalarType{Kind: plan.ScalarRef, Ref: b}

	assert.Panics(t, func() { p.ResolveScalar(a) })
}

func TestValidateRejectsUnconnectedEdge(t *testing.T) {
	p := plan.New()
	rec := p.RecordTypes.Insert(plan.RecordType{Kind: plan.RecordConcrete})
	p.Edges.Insert(plan.DataflowEdge{State: plan.EdgeIncomplete, Data: plan.Data{Record: rec}})

	errs := p.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not connected")
}

func TestValidateRejectsMultipleReturns(t *testing.T) {
	p := plan.New()
	rec := p.RecordTypes.Insert(plan.RecordType{Kind: plan.RecordConcrete})
	edge := p.Edges.Insert(plan.DataflowEdge{State: plan.EdgeConnected, Data: plan.Data{Record: rec}})

	ctxKey := p.Contexts.Insert(plan.Context{Name: "q"})
	ret1 := p.Operators.Insert(plan.Operator{Kind: plan.OpReturn, Context: ctxKey, Inputs: []plan.EdgeKey{edge}})
	ret2 := p.Operators.Insert(plan.Operator{Kind: plan.OpReturn, Context: ctxKey, Inputs: []plan.EdgeKey{edge}})

	ctx := p.Contexts.Get(ctxKey)
	ctx.Operators = []plan.OperatorKey{ret1, ret2}
	ctx.Return = &ret1

	errs := p.Validate()
	require.NotEmpty(t, errs)
	found := false
	for _, e := range errs {
		if strings.Contains(e.Error(), "at most 1") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestTableAllMutable(t *testing.T) {
	tbl := plan.Table{
		Columns: []plan.Column{{Name: "a"}, {Name: "b"}},
		Mutated: map[string]bool{"a": true, "b": true},
	}
	assert.True(t, tbl.AllMutable())

	tbl.Mutated = map[string]bool{"a": true}
	assert.False(t, tbl.AllMutable())
}
