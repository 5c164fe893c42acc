package expr

import (
	"fmt"
	"strings"
)

// Eval evaluates e against env, the public entry point (eval is kept
// unexported on the Expr interface so only this package's node types may
// implement it).
func Eval(e Expr, env Env) (Value, error) {
	return e.eval(env)
}

func toFloat(v Value) (float64, bool) {
	switch x := v.v.(type) {
	case int64:
		return float64(x), true
	case float64:
		return x, true
	default:
		return 0, false
	}
}

func compare(op BinOp, l, r Value) (Value, error) {
	if op == OpEQ || op == OpNEQ {
		eq := l.v == r.v
		if op == OpEQ {
			return Bool(eq), nil
		}
		return Bool(!eq), nil
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if lok && rok {
		switch op {
		case OpGT:
			return Bool(lf > rf), nil
		case OpGTE:
			return Bool(lf >= rf), nil
		case OpLT:
			return Bool(lf < rf), nil
		case OpLTE:
			return Bool(lf <= rf), nil
		}
	}
	ls, lok := l.v.(string)
	rs, rok := r.v.(string)
	if lok && rok {
		switch op {
		case OpGT:
			return Bool(ls > rs), nil
		case OpGTE:
			return Bool(ls >= rs), nil
		case OpLT:
			return Bool(ls < rs), nil
		case OpLTE:
			return Bool(ls <= rs), nil
		}
	}
	return Nil, fmt.Errorf("expr: cannot compare %v %s %v", l, op, r)
}

func arith(op BinOp, l, r Value) (Value, error) {
	if ls, ok := l.v.(string); ok && op == OpAdd {
		if rs, ok := r.v.(string); ok {
			return Str(ls + rs), nil
		}
	}
	li, liok := l.v.(int64)
	ri, riok := r.v.(int64)
	if liok && riok {
		switch op {
		case OpAdd:
			return Int(li + ri), nil
		case OpSub:
			return Int(li - ri), nil
		case OpMul:
			return Int(li * ri), nil
		case OpDiv:
			if ri == 0 {
				return Nil, fmt.Errorf("expr: division by zero")
			}
			return Int(li / ri), nil
		}
	}
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if lok && rok {
		switch op {
		case OpAdd:
			return Float(lf + rf), nil
		case OpSub:
			return Float(lf - rf), nil
		case OpMul:
			return Float(lf * rf), nil
		case OpDiv:
			if rf == 0 {
				return Nil, fmt.Errorf("expr: division by zero")
			}
			return Float(lf / rf), nil
		}
	}
	return Nil, fmt.Errorf("expr: cannot apply %s to %v and %v", op, l, r)
}

func (b Binary) eval(env Env) (Value, error) {
	l, err := b.L.eval(env)
	if err != nil {
		return Nil, err
	}
	r, err := b.R.eval(env)
	if err != nil {
		return Nil, err
	}
	switch b.Op {
	case OpEQ, OpNEQ, OpGT, OpGTE, OpLT, OpLTE:
		return compare(b.Op, l, r)
	default:
		return arith(b.Op, l, r)
	}
}

func (n Not) eval(env Env) (Value, error) {
	v, err := n.X.eval(env)
	if err != nil {
		return Nil, err
	}
	b, ok := v.v.(bool)
	if !ok {
		return Nil, fmt.Errorf("expr: ! applied to non-bool %v", v)
	}
	return Bool(!b), nil
}

func (n Neg) eval(env Env) (Value, error) {
	v, err := n.X.eval(env)
	if err != nil {
		return Nil, err
	}
	switch x := v.v.(type) {
	case int64:
		return Int(-x), nil
	case float64:
		return Float(-x), nil
	default:
		return Nil, fmt.Errorf("expr: unary - applied to non-numeric %v", v)
	}
}

func (n Nary) eval(env Env) (Value, error) {
	if len(n.Args) == 0 {
		return Bool(n.Op == "&&"), nil
	}
	for i, a := range n.Args {
		v, err := a.eval(env)
		if err != nil {
			return Nil, err
		}
		b, ok := v.v.(bool)
		if !ok {
			return Nil, fmt.Errorf("expr: %s operand %d is non-bool %v", n.Op, i, v)
		}
		if n.Op == "&&" && !b {
			return Bool(false), nil
		}
		if n.Op == "||" && b {
			return Bool(true), nil
		}
	}
	return Bool(n.Op == "&&"), nil
}

func (c Call) eval(env Env) (Value, error) {
	args := make([]Value, len(c.Args))
	for i, a := range c.Args {
		v, err := a.eval(env)
		if err != nil {
			return Nil, err
		}
		args[i] = v
	}
	switch c.Func {
	case "contains":
		s, sok := args[0].v.(string)
		sub, subok := args[1].v.(string)
		if !sok || !subok {
			return Nil, fmt.Errorf("expr: contains expects two strings")
		}
		return Bool(strings.Contains(s, sub)), nil
	case "has_prefix":
		s, sok := args[0].v.(string)
		p, pok := args[1].v.(string)
		if !sok || !pok {
			return Nil, fmt.Errorf("expr: has_prefix expects two strings")
		}
		return Bool(strings.HasPrefix(s, p)), nil
	case "has_suffix":
		s, sok := args[0].v.(string)
		p, pok := args[1].v.(string)
		if !sok || !pok {
			return Nil, fmt.Errorf("expr: has_suffix expects two strings")
		}
		return Bool(strings.HasSuffix(s, p)), nil
	case "len":
		s, ok := args[0].v.(string)
		if !ok {
			return Nil, fmt.Errorf("expr: len expects a string")
		}
		return Int(int64(len(s))), nil
	default:
		return Nil, fmt.Errorf("expr: unknown function %q", c.Func)
	}
}

// Fields returns every Field referenced in e, used by the frontend to
// type-check a predicate/map/fold expression against its input record.
func Fields(e Expr) []string {
	var out []string
	var walk func(Expr)
	walk = func(e Expr) {
		switch x := e.(type) {
		case Field:
			out = append(out, x.Name)
		case Lit:
		case Binary:
			walk(x.L)
			walk(x.R)
		case Not:
			walk(x.X)
		case Neg:
			walk(x.X)
		case Nary:
			for _, a := range x.Args {
				walk(a)
			}
		case Call:
			for _, a := range x.Args {
				walk(a)
			}
		}
	}
	walk(e)
	return out
}
