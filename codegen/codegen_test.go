package codegen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/emdb/plan"
)

func TestNamerExportedIdentifiers(t *testing.T) {
	assert.Equal(t, "User", TableTypeName("users"))
	assert.Equal(t, "ScanUserKeys", ScanIteratorName("users"))
	assert.Equal(t, "ByName", UniqueAccessorName("by_name"))
	assert.Equal(t, "Minute", FieldName("minute"))
	assert.Equal(t, "AddOrder", QueryFuncName("add_order"))
}

func TestConfigRequiresPackageAndTarget(t *testing.T) {
	_, err := NewConfig(WithTarget("out"))
	require.Error(t, err)

	_, err = NewConfig(WithPackage("queries"))
	require.Error(t, err)

	cfg, err := NewConfig(WithPackage("queries"), WithTarget("out"), WithWorkers(4))
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Workers)
}

func TestRenderTableProducesExpectedShape(t *testing.T) {
	p := plan.New()
	strType := p.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarGo, GoType: "string"})
	intType := p.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarGo, GoType: "int64"})

	tk := p.Tables.Insert(plan.Table{
		Name: "users",
		Columns: []plan.Column{
			{Name: "name", Type: strType},
			{Name: "age", Type: intType},
		},
		Uniques:       []plan.Unique{{Column: "name", Alias: "by_name"}},
		Mutated:       map[string]bool{"age": true},
		Transactional: true,
	})

	cfg, err := NewConfig(WithPackage("queries"), WithTarget("out"))
	require.NoError(t, err)
	g := NewGenerator(p, cfg)

	f := g.renderTable(tk, p.Tables.Get(tk))
	var buf strings.Builder
	require.NoError(t, f.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "type User struct")
	assert.Contains(t, out, "Name string")
	assert.Contains(t, out, "Age  int64")
	assert.Contains(t, out, "func InsertUser(")
	assert.Contains(t, out, "func GetUser(")
	assert.Contains(t, out, "func BorrowUser(")
	assert.Contains(t, out, "func DeleteUser(")
	assert.Contains(t, out, "func CountUser(")
	assert.Contains(t, out, "func CommitUser(")
	assert.Contains(t, out, "func AbortUser(")
	assert.Contains(t, out, "func ScanUserKeys(")
	assert.Contains(t, out, "func ByName(")
	assert.Contains(t, out, "type UpdateUserFields struct")
	assert.Contains(t, out, "func UpdateUser(")
	assert.Contains(t, out, "Age *int64")
}

func TestRenderDatastoreBakesTransactionalFlag(t *testing.T) {
	p := plan.New()
	p.Tables.Insert(plan.Table{Name: "users", Transactional: true})
	p.Tables.Insert(plan.Table{Name: "logs"})

	cfg, err := NewConfig(WithPackage("queries"), WithTarget("out"))
	require.NoError(t, err)
	g := NewGenerator(p, cfg)

	f := g.renderDatastore()
	var buf strings.Builder
	require.NoError(t, f.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "func NewSeededDatastore()")
	assert.Contains(t, out, "func tableKey(")
	assert.Contains(t, out, `tableKey("logs")`)
	assert.Contains(t, out, `tableKey("users")`)
	assert.Contains(t, out, "Transactional: true")
	assert.Contains(t, out, "Transactional: false")
}

func TestRenderQueryProducesExpectedShape(t *testing.T) {
	p := plan.New()
	intType := p.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarGo, GoType: "int64"})
	ctxKey := p.Contexts.Insert(plan.Context{
		Name:   "add",
		Params: []plan.Param{{Name: "minute", Type: intType}},
	})
	qk := p.Queries.Insert(plan.Query{Name: "add", Context: ctxKey})

	cfg, err := NewConfig(WithPackage("queries"), WithTarget("out"))
	require.NoError(t, err)
	g := NewGenerator(p, cfg)

	f := g.renderQuery(qk, p.Queries.Get(qk))
	var buf strings.Builder
	require.NoError(t, f.Render(&buf))
	out := buf.String()

	assert.Contains(t, out, "func Add(")
	assert.Contains(t, out, "minute int64")
	assert.Contains(t, out, `queryKey("add")`)
}
