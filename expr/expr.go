// Package expr implements the small value-and-predicate expression
// language used inside row/map/fold/filter/pred operator payloads (the
// spec's grammar leaves "expr" an unspecified placeholder). The shape is
// grounded on the pack's querylanguage predicate builder — a String()-able
// tree of nullary field references, literals, n-ary combinators, binary
// comparisons, and named function calls — generalized from boolean-only
// predicates to value-producing expressions.
package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Expr is any node in the expression tree. Every Expr can render itself
// back to source-like text (for diagnostics and for the jennifer-based
// codegen emitter) and can be evaluated against a row environment.
type Expr interface {
	fmt.Stringer
	eval(env Env) (Value, error)
}

// Env resolves a field name to its current value, e.g. the row being
// matched against a predicate, or the accumulator+row pair fed into a
// fold step (merged into one flat env by the engine's Fold case, an
// accumulator field winning over a row field of the same name).
type Env map[string]Value

// Value is the dynamically-typed result of evaluating an Expr. The
// concrete Go type held is one of: int64, float64, string, bool, nil.
type Value struct {
	v any
}

// Nil is the absent/null value.
var Nil = Value{}

func Int(i int64) Value     { return Value{i} }
func Float(f float64) Value { return Value{f} }
func Str(s string) Value    { return Value{s} }
func Bool(b bool) Value     { return Value{b} }

// Any exposes the underlying dynamic value.
func (v Value) Any() any { return v.v }

// IsNil reports whether v holds the absent value.
func (v Value) IsNil() bool { return v.v == nil }

func (v Value) String() string {
	switch x := v.v.(type) {
	case nil:
		return "nil"
	case string:
		return strconv.Quote(x)
	case bool:
		if x {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(x)
	}
}

// Field is a bare or "*"-prefixed reference to a field of the current row.
// Current (bare, e.g. in a map/row assignment target context) vs explicit
// "*field" (inside update/fold/pred, referring unambiguously to the
// borrowed row rather than a local variable of the same name) are both
// represented the same way; the distinction lives in the DSL grammar, not
// in the AST.
type Field struct {
	Name string
}

func F(name string) Field { return Field{Name: name} }

func (f Field) String() string { return f.Name }

func (f Field) eval(env Env) (Value, error) {
	v, ok := env[f.Name]
	if !ok {
		return Nil, fmt.Errorf("expr: unbound field %q", f.Name)
	}
	return v, nil
}

// Lit is a literal constant.
type Lit struct {
	Value Value
}

func LitInt(i int64) Lit      { return Lit{Int(i)} }
func LitFloat(f float64) Lit  { return Lit{Float(f)} }
func LitString(s string) Lit  { return Lit{Str(s)} }
func LitBool(b bool) Lit      { return Lit{Bool(b)} }
func LitNil() Lit             { return Lit{Nil} }

func (l Lit) String() string       { return l.Value.String() }
func (l Lit) eval(Env) (Value, error) { return l.Value, nil }

// BinOp is the operator of a Binary expression.
type BinOp string

const (
	OpEQ  BinOp = "=="
	OpNEQ BinOp = "!="
	OpGT  BinOp = ">"
	OpGTE BinOp = ">="
	OpLT  BinOp = "<"
	OpLTE BinOp = "<="
	OpAdd BinOp = "+"
	OpSub BinOp = "-"
	OpMul BinOp = "*"
	OpDiv BinOp = "/"
)

// Binary is a two-operand expression: comparisons or arithmetic.
type Binary struct {
	Op    BinOp
	L, R  Expr
}

func EQ(l, r Expr) Binary  { return Binary{OpEQ, l, r} }
func NEQ(l, r Expr) Binary { return Binary{OpNEQ, l, r} }
func GT(l, r Expr) Binary  { return Binary{OpGT, l, r} }
func GTE(l, r Expr) Binary { return Binary{OpGTE, l, r} }
func LT(l, r Expr) Binary  { return Binary{OpLT, l, r} }
func LTE(l, r Expr) Binary { return Binary{OpLTE, l, r} }
func Add(l, r Expr) Binary { return Binary{OpAdd, l, r} }
func Sub(l, r Expr) Binary { return Binary{OpSub, l, r} }
func Mul(l, r Expr) Binary { return Binary{OpMul, l, r} }
func Div(l, r Expr) Binary { return Binary{OpDiv, l, r} }

func (b Binary) String() string {
	return fmt.Sprintf("%s %s %s", b.L, b.Op, b.R)
}

// Not negates a boolean expression.
type Not struct {
	X Expr
}

func NewNot(x Expr) Not { return Not{x} }

func (n Not) String() string { return fmt.Sprintf("!(%s)", n.X) }

// Neg is unary arithmetic negation.
type Neg struct {
	X Expr
}

func (n Neg) String() string { return fmt.Sprintf("-(%s)", n.X) }

// Nary is an n-ary logical combinator (And/Or), mirroring the pack's
// variadic And()/Or() predicate builders.
type Nary struct {
	Op   string // "&&" or "||"
	Args []Expr
}

func And(args ...Expr) Nary { return Nary{"&&", args} }
func Or(args ...Expr) Nary  { return Nary{"||", args} }

func (n Nary) String() string {
	parts := make([]string, len(n.Args))
	for i, a := range n.Args {
		parts[i] = a.String()
	}
	return "(" + strings.Join(parts, " "+n.Op+" ") + ")"
}

// Call is a fixed-set builtin function call: contains, has_prefix,
// has_suffix, len.
type Call struct {
	Func string
	Args []Expr
}

func NewCall(fn string, args ...Expr) Call { return Call{fn, args} }

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, a := range c.Args {
		parts[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Func, strings.Join(parts, ", "))
}

// Negate wraps e in a boolean negation. A double negation is nested, not
// collapsed (Negate(Negate(x)) is Not{Not{x}}), so negating a predicate
// twice reads as the source wrote it rather than being simplified away.
func Negate(e Expr) Expr {
	return Not{e}
}
