package frontend_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/emdb/engine"
	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/frontend"
	"github.com/syssam/emdb/pulpit"
)

func parseAndLower(t *testing.T, src string) *frontend.Program {
	t.Helper()
	p, err := frontend.NewParser("test.edb", src)
	require.NoError(t, err)
	prog, err := p.ParseProgram()
	require.NoError(t, err)
	return prog
}

func TestLowerSimpleInsertQuery(t *testing.T) {
	src := `
table events {
	minute: int,
	level: int
} @[pred(*minute >= 0) as nonneg];

query add(minute: int, level: int) {
	row(minute = minute, level = level) ~> insert(events as ref k) ~> return;
}
`
	prog := parseAndLower(t, src)
	p, diags := frontend.Lower(prog)
	require.Empty(t, diags, diags.String())
	require.NotNil(t, p)

	require.Equal(t, 1, p.Tables.Len())
	require.Equal(t, 1, p.Queries.Len())

	ds := pulpit.NewDatastore()
	for _, tbl := range p.Tables.All() {
		ds.AddTable(pulpit.NewTable(tbl, pulpit.Options{}))
	}

	var qk *struct{}
	_ = qk
	for k := range p.Queries.All() {
		in := engine.New(p, ds)
		out, err := in.Run(k, expr.Env{"minute": expr.Int(1), "level": expr.Int(2)})
		require.NoError(t, err)
		ref, ok := out["key"].(engine.Ref)
		require.True(t, ok)
		assert.Equal(t, "events", ref.Table)
	}

	win := ds.Begin()
	n, err := win.Count("events")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestLowerDeRefFilterReturnsCollect(t *testing.T) {
	src := `
table logs {
	minute: int,
	level: int
};

query errorCount() {
	ref logs as l |> deref(l as row) |> filter(*level == 1) |> collect(bag) ~> return;
}
`
	prog := parseAndLower(t, src)
	p, diags := frontend.Lower(prog)
	require.Empty(t, diags, diags.String())
	require.NotNil(t, p)

	ds := pulpit.NewDatastore()
	for _, tbl := range p.Tables.All() {
		ds.AddTable(pulpit.NewTable(tbl, pulpit.Options{}))
	}
	win := ds.Begin()
	rows := []struct{ minute, level int64 }{{0, 0}, {1, 1}, {1, 0}, {2, 1}}
	for _, r := range rows {
		_, err := win.Insert("logs", pulpit.Row{"minute": expr.Int(r.minute), "level": expr.Int(r.level)})
		require.NoError(t, err)
	}

	for k := range p.Queries.All() {
		in := engine.New(p, ds)
		out, err := in.Run(k, expr.Env{})
		require.NoError(t, err)
		bag, ok := out["bag"].(engine.Bag)
		require.True(t, ok)
		assert.Len(t, bag, 2)
	}
}

func TestLowerDetectsUndefinedTable(t *testing.T) {
	src := `
query bad() {
	ref missing as m ~> return;
}
`
	prog := parseAndLower(t, src)
	_, diags := frontend.Lower(prog)
	require.NotEmpty(t, diags)
	assert.Contains(t, diags.String(), "unknown table")
}

func TestLowerDetectsStreamReturnWithoutCollect(t *testing.T) {
	src := `
table events { minute: int };

query bad() {
	ref events as e |> return;
}
`
	prog := parseAndLower(t, src)
	_, diags := frontend.Lower(prog)
	require.NotEmpty(t, diags)
}

func TestLowerDetectsReuseOfConsumedVariable(t *testing.T) {
	src := `
table events { minute: int };

query bad() {
	ref events as e;
	use e ~> return;
	use e ~> return;
}
`
	prog := parseAndLower(t, src)
	_, diags := frontend.Lower(prog)
	require.NotEmpty(t, diags)
}

func TestLowerImplTransactionsOptionMarksEveryTable(t *testing.T) {
	src := `
impl memory as tx { transactions: true };

table events { minute: int };
table logs { level: int };
`
	prog := parseAndLower(t, src)
	p, diags := frontend.Lower(prog)
	require.Empty(t, diags, diags.String())

	for _, tbl := range p.Tables.All() {
		assert.True(t, tbl.Transactional, "table %q should be transactional", tbl.Name)
	}
}

func TestLowerWithoutImplLeavesTablesNonTransactional(t *testing.T) {
	src := `table events { minute: int };`
	prog := parseAndLower(t, src)
	p, diags := frontend.Lower(prog)
	require.Empty(t, diags, diags.String())

	for _, tbl := range p.Tables.All() {
		assert.False(t, tbl.Transactional)
	}
}
