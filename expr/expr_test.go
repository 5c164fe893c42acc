package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/emdb/expr"
)

func TestString(t *testing.T) {
	tests := []struct {
		name string
		e    expr.Expr
		want string
	}{
		{
			name: "and",
			e:    expr.And(expr.EQ(expr.F("name"), expr.LitString("a8m")), expr.GT(expr.F("age"), expr.LitInt(30))),
			want: `(name == "a8m" && age > 30)`,
		},
		{
			name: "or-not",
			e:    expr.Or(expr.NewNot(expr.EQ(expr.F("name"), expr.LitString("x"))), expr.LT(expr.F("age"), expr.LitInt(1))),
			want: `(!(name == "x") || age < 1)`,
		},
		{
			name: "call",
			e:    expr.NewCall("has_prefix", expr.F("path"), expr.LitString("/api/")),
			want: `has_prefix(path, "/api/")`,
		},
		{
			name: "negate-double",
			e:    expr.Negate(expr.NewNot(expr.EQ(expr.F("a"), expr.LitInt(1)))),
			want: `!(!(a == 1))`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.e.String())
		})
	}
}

func TestEval(t *testing.T) {
	env := expr.Env{"age": expr.Int(42), "name": expr.Str("a8m")}

	v, err := expr.Eval(expr.GT(expr.F("age"), expr.LitInt(30)), env)
	assert.NoError(t, err)
	assert.Equal(t, expr.Bool(true), v)

	v, err = expr.Eval(expr.And(expr.EQ(expr.F("name"), expr.LitString("a8m")), expr.LT(expr.F("age"), expr.LitInt(100))), env)
	assert.NoError(t, err)
	assert.Equal(t, expr.Bool(true), v)

	v, err = expr.Eval(expr.Add(expr.F("age"), expr.LitInt(8)), env)
	assert.NoError(t, err)
	assert.Equal(t, expr.Int(50), v)

	_, err = expr.Eval(expr.F("missing"), env)
	assert.Error(t, err)
}

func TestFields(t *testing.T) {
	e := expr.And(expr.GT(expr.F("age"), expr.LitInt(1)), expr.NewCall("contains", expr.F("name"), expr.LitString("x")))
	got := expr.Fields(e)
	assert.ElementsMatch(t, []string{"age", "name"}, got)
}
