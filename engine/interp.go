package engine

import (
	"fmt"
	"sort"

	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/plan"
	"github.com/syssam/emdb/pulpit"
)

// Interp walks a sealed Plan's contexts and executes them against a
// Datastore, realizing §4.6's "interpreted execution" path.
type Interp struct {
	Plan *plan.Plan
	DS   *pulpit.Datastore
}

// New returns an Interp over p and ds.
func New(p *plan.Plan, ds *pulpit.Datastore) *Interp {
	return &Interp{Plan: p, DS: ds}
}

// Run executes the named query's context with args bound as its
// declared parameters, returning its Return value (nil if the context has
// no Return).
func (in *Interp) Run(qk plan.QueryKey, args expr.Env) (Record, error) {
	q := in.Plan.Queries.Get(qk)
	win := in.DS.Begin()
	val, err := in.runContext(q.Context, nil, args, win)
	if err != nil {
		return nil, wrapErr(q.Name, "?", err)
	}
	if val == nil {
		return nil, nil
	}
	return val.Single, nil
}

// runContext executes every operator of ctx in order, threading values
// between them by producer OperatorKey. seed supplies the value for
// whichever operator(s) begin the chain with zero declared Inputs (the
// context's own Row/ScanRefs, or — engine's convention for the nested
// contexts GroupBy/ForEach instantiate, since the plan's grammar leaves
// how a bound partition/record variable reaches its inner context's first
// operator unspecified at the plan level — the partition stream or
// per-record seed those operators pass down). paramEnv supplies scalar
// values for Row/Take/Fold-init expressions that reference declared
// parameters rather than a dataflow edge.
func (in *Interp) runContext(ctxKey plan.ContextKey, seed *Value, paramEnv expr.Env, win pulpit.Window) (*Value, error) {
	ctx := in.Plan.Contexts.Get(ctxKey)
	produced := make(map[plan.OperatorKey]*Value, len(ctx.Operators))

	single := func(op *plan.Operator) (*Value, error) {
		if len(op.Inputs) == 0 {
			return seed, nil
		}
		edge := in.Plan.Edges.Get(op.Inputs[0])
		v, ok := produced[edge.From]
		if !ok {
			return nil, fmt.Errorf("unresolved input edge for %s", op.Kind)
		}
		return v, nil
	}
	all := func(op *plan.Operator) ([]*Value, error) {
		out := make([]*Value, 0, len(op.Inputs))
		for _, ek := range op.Inputs {
			edge := in.Plan.Edges.Get(ek)
			v, ok := produced[edge.From]
			if !ok {
				return nil, fmt.Errorf("unresolved input edge for %s", op.Kind)
			}
			out = append(out, v)
		}
		return out, nil
	}

	var walkErr error
	var opKeys []plan.OperatorKey
	in.Plan.WalkOperators(ctxKey, func(ok plan.OperatorKey, op *plan.Operator) {
		if walkErr != nil {
			return
		}
		opKeys = append(opKeys, ok)
		val, err := in.execOperator(op, single, all, paramEnv, win)
		if err != nil {
			walkErr = wrapErr(ctx.Name, op.Kind.String(), err)
			return
		}
		produced[ok] = val
	})
	if walkErr != nil {
		return nil, walkErr
	}

	if ctx.Return != nil {
		return produced[*ctx.Return], nil
	}
	return nil, nil
}

func (in *Interp) execOperator(
	op *plan.Operator,
	single func(*plan.Operator) (*Value, error),
	all func(*plan.Operator) ([]*Value, error),
	paramEnv expr.Env,
	win pulpit.Window,
) (*Value, error) {
	switch op.Kind {
	case plan.OpRow:
		p := op.Payload.(*plan.RowPayload)
		rec, err := evalFields(p.Fields, paramEnv)
		if err != nil {
			return nil, err
		}
		v := One(rec)
		return &v, nil

	case plan.OpInsert:
		p := op.Payload.(*plan.InsertPayload)
		table := in.Plan.Tables.Get(p.Table)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		do := func(r Record) (Record, error) {
			key, err := win.Insert(table.Name, toPulpitRow(r))
			if err != nil {
				return nil, err
			}
			return Record{"key": Ref{Table: table.Name, Key: key}}, nil
		}
		return mapStreamOrSingle(in0, do)

	case plan.OpUpdate:
		p := op.Payload.(*plan.UpdatePayload)
		table := in.Plan.Tables.Get(p.Table)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		do := func(r Record) (Record, error) {
			ref, ok := r["key"].(Ref)
			if !ok {
				return nil, fmt.Errorf("update: row has no key reference")
			}
			current, err := win.Get(table.Name, ref.Key)
			if err != nil {
				return nil, err
			}
			env := mergeEnv(current.Env(), r.Env())
			assigns, err := evalFields(p.Mapping, env)
			if err != nil {
				return nil, err
			}
			if err := win.Update(table.Name, ref.Key, toPulpitRow(assigns)); err != nil {
				return nil, err
			}
			return r, nil
		}
		return mapStreamOrSingle(in0, do)

	case plan.OpDelete:
		p := op.Payload.(*plan.DeletePayload)
		table := in.Plan.Tables.Get(p.Table)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		do := func(r Record) (Record, error) {
			ref, ok := r["key"].(Ref)
			if !ok {
				return nil, fmt.Errorf("delete: row has no key reference")
			}
			if err := win.Delete(table.Name, ref.Key); err != nil {
				return nil, err
			}
			return r, nil
		}
		return mapStreamOrSingle(in0, do)

	case plan.OpUniqueRef:
		p := op.Payload.(*plan.UniqueRefPayload)
		table := in.Plan.Tables.Get(p.Table)
		u, ok := table.UniqueByColumn(p.Field)
		if !ok {
			return nil, fmt.Errorf("uniqueref: column %q has no unique constraint", p.Field)
		}
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		do := func(r Record) (Record, error) {
			v, ok := r[p.Field].(expr.Value)
			if !ok {
				return nil, fmt.Errorf("uniqueref: row has no field %q", p.Field)
			}
			key, err := win.Unique(table.Name, u.Alias, v)
			if err != nil {
				return nil, err
			}
			return Record{"key": Ref{Table: table.Name, Key: key}}, nil
		}
		return mapStreamOrSingle(in0, do)

	case plan.OpScanRefs:
		p := op.Payload.(*plan.ScanRefsPayload)
		table := in.Plan.Tables.Get(p.Table)
		var rows []Record
		for k := range win.Scan(table.Name) {
			rows = append(rows, Record{"key": Ref{Table: table.Name, Key: k}})
		}
		v := Many(rows)
		return &v, nil

	case plan.OpDeRef:
		p := op.Payload.(*plan.DeRefPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		do := func(r Record) (Record, error) {
			ref, ok := r[p.KeyField].(Ref)
			if !ok {
				return nil, fmt.Errorf("deref: row has no field %q", p.KeyField)
			}
			full, err := win.Get(ref.Table, ref.Key)
			if err != nil {
				return nil, err
			}
			sub := pulpitRowToRecord(full)
			if len(p.Subset) > 0 {
				filtered := make(Record, len(p.Subset))
				for _, f := range p.Subset {
					if v, ok := sub[f]; ok {
						filtered[f] = v
					}
				}
				sub = filtered
			}
			out := r.Clone()
			out[p.As] = sub
			for f, v := range sub {
				if _, taken := out[f]; !taken {
					out[f] = v
				}
			}
			return out, nil
		}
		return mapStreamOrSingle(in0, do)

	case plan.OpMap:
		p := op.Payload.(*plan.MapPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		return mapFields(in0, p.Fields)

	case plan.OpExpand:
		p := op.Payload.(*plan.ExpandPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		return expandBag(in0, p.Fields)

	case plan.OpFilter:
		p := op.Payload.(*plan.FilterPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		return filterRows(in0, p.Predicate)

	case plan.OpSort:
		p := op.Payload.(*plan.SortPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		return sortRows(in0, p.Keys)

	case plan.OpAssert:
		p := op.Payload.(*plan.AssertPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		rows := asRows(in0)
		for _, r := range rows {
			ok, err := evalBool(p.Predicate, r.Env())
			if err != nil {
				return nil, err
			}
			if !ok {
				return nil, fmt.Errorf("assert: predicate %s violated", p.Predicate)
			}
		}
		return in0, nil

	case plan.OpTake:
		p := op.Payload.(*plan.TakePayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		n, err := evalInt(p.Limit, paramEnv)
		if err != nil {
			return nil, err
		}
		rows := in0.Rows
		if n < int64(len(rows)) {
			rows = rows[:n]
		}
		v := Many(append([]Record{}, rows...))
		return &v, nil

	case plan.OpFold:
		p := op.Payload.(*plan.FoldPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		acc, err := evalFields(p.Init, paramEnv)
		if err != nil {
			return nil, err
		}
		for _, r := range in0.Rows {
			env := mergeEnv(r.Env(), acc.Env())
			acc, err = evalFields(p.Step, env)
			if err != nil {
				return nil, err
			}
		}
		v := One(acc)
		return &v, nil

	case plan.OpCollect:
		p := op.Payload.(*plan.CollectPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		v := One(Record{p.As: Bag(append([]Record{}, in0.Rows...))})
		return &v, nil

	case plan.OpGroupBy:
		p := op.Payload.(*plan.GroupByPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		return in.groupBy(p, in0, paramEnv, win)

	case plan.OpForEach:
		p := op.Payload.(*plan.ForEachPayload)
		in0, err := single(op)
		if err != nil {
			return nil, err
		}
		for _, r := range in0.Rows {
			seed := One(r)
			if _, err := in.runContext(p.Inner, &seed, paramEnv, win); err != nil {
				return nil, err
			}
		}
		return in0, nil

	case plan.OpJoin:
		p := op.Payload.(*plan.JoinPayload)
		ins, err := all(op)
		if err != nil {
			return nil, err
		}
		if len(ins) != 2 {
			return nil, fmt.Errorf("join: expected 2 inputs, got %d", len(ins))
		}
		return joinRows(ins[0], ins[1], p)

	case plan.OpFork:
		return single(op)

	case plan.OpUnion:
		ins, err := all(op)
		if err != nil {
			return nil, err
		}
		var rows []Record
		for _, in0 := range ins {
			rows = append(rows, asRows(in0)...)
		}
		v := Many(rows)
		return &v, nil

	case plan.OpReturn:
		return single(op)

	case plan.OpDiscard:
		return single(op)
	}
	return nil, fmt.Errorf("engine: unhandled operator kind %s", op.Kind)
}

func asRows(v *Value) []Record {
	if v == nil {
		return nil
	}
	if v.Stream {
		return v.Rows
	}
	if v.Single == nil {
		return nil
	}
	return []Record{v.Single}
}

func mapStreamOrSingle(v *Value, fn func(Record) (Record, error)) (*Value, error) {
	if v.Stream {
		out := make([]Record, 0, len(v.Rows))
		for _, r := range v.Rows {
			nr, err := fn(r)
			if err != nil {
				return nil, err
			}
			out = append(out, nr)
		}
		res := Many(out)
		return &res, nil
	}
	nr, err := fn(v.Single)
	if err != nil {
		return nil, err
	}
	res := One(nr)
	return &res, nil
}

func mapFields(v *Value, fields []plan.FieldAssign) (*Value, error) {
	if v.Stream {
		out, err := mapMorsels(v.Rows, func(r Record) (Record, bool, error) {
			nr, err := evalFields(fields, r.Env())
			return nr, true, err
		})
		if err != nil {
			return nil, err
		}
		res := Many(out)
		return &res, nil
	}
	nr, err := evalFields(fields, v.Single.Env())
	if err != nil {
		return nil, err
	}
	res := One(nr)
	return &res, nil
}

func filterRows(v *Value, pred expr.Expr) (*Value, error) {
	rows := asRows(v)
	out, err := mapMorsels(rows, func(r Record) (Record, bool, error) {
		ok, err := evalBool(pred, r.Env())
		return r, ok, err
	})
	if err != nil {
		return nil, err
	}
	if !v.Stream {
		if len(out) == 0 {
			res := One(nil)
			return &res, nil
		}
		res := One(out[0])
		return &res, nil
	}
	res := Many(out)
	return &res, nil
}

// expandBag flattens the single bag-valued field fields[0] names, one
// level, discarding the rest of the incoming record's fields — Expand is
// documented as "unnesting a Bag field," and this engine only supports
// that one shape of expression (a bare field reference to a prior
// Collect's output), not arbitrary bag-producing expressions.
func expandBag(v *Value, fields []plan.FieldAssign) (*Value, error) {
	if len(fields) != 1 {
		return nil, fmt.Errorf("expand: expected exactly one field assign")
	}
	fieldExpr, ok := fields[0].Expr.(expr.Field)
	if !ok {
		return nil, fmt.Errorf("expand: only a bare field reference to a Bag is supported")
	}
	var out []Record
	for _, r := range asRows(v) {
		bag, ok := r[fieldExpr.Name].(Bag)
		if !ok {
			return nil, fmt.Errorf("expand: field %q is not a Bag", fieldExpr.Name)
		}
		out = append(out, bag...)
	}
	res := Many(out)
	return &res, nil
}

func sortRows(v *Value, keys []plan.SortKey) (*Value, error) {
	rows := append([]Record{}, v.Rows...)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, k := range keys {
			vi, oki := rows[i][k.Field].(expr.Value)
			vj, okj := rows[j][k.Field].(expr.Value)
			if !oki || !okj {
				continue
			}
			c := compareValues(vi, vj)
			if c == 0 {
				continue
			}
			if k.Desc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
	res := Many(rows)
	return &res, nil
}

// compareValues orders two scalar values; equal or incomparable values
// return 0 (Sort then falls through to the next key, or insertion order).
func compareValues(a, b expr.Value) int {
	af, aok := a.Any().(int64)
	bf, bok := b.Any().(int64)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, asok := a.Any().(string)
	bs, bsok := b.Any().(string)
	if asok && bsok {
		switch {
		case as < bs:
			return -1
		case as > bs:
			return 1
		default:
			return 0
		}
	}
	return 0
}

func evalBool(e expr.Expr, env expr.Env) (bool, error) {
	v, err := expr.Eval(e, env)
	if err != nil {
		return false, err
	}
	b, ok := v.Any().(bool)
	if !ok {
		return false, fmt.Errorf("engine: expression %s did not evaluate to bool", e)
	}
	return b, nil
}

func evalInt(e expr.Expr, env expr.Env) (int64, error) {
	v, err := expr.Eval(e, env)
	if err != nil {
		return 0, err
	}
	n, ok := v.Any().(int64)
	if !ok {
		return 0, fmt.Errorf("engine: expression %s did not evaluate to int", e)
	}
	return n, nil
}

func toPulpitRow(r Record) pulpit.Row {
	out := make(pulpit.Row, len(r))
	for k, v := range r {
		if ev, ok := v.(expr.Value); ok {
			out[k] = ev
		}
	}
	return out
}

func pulpitRowToRecord(r pulpit.Row) Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (in *Interp) groupBy(p *plan.GroupByPayload, v *Value, paramEnv expr.Env, win pulpit.Window) (*Value, error) {
	var order []any
	partitions := map[any][]Record{}
	for _, r := range asRows(v) {
		kv, ok := r[p.KeyField].(expr.Value)
		if !ok {
			return nil, fmt.Errorf("groupby: row has no field %q", p.KeyField)
		}
		key := kv.Any()
		if _, seen := partitions[key]; !seen {
			order = append(order, key)
		}
		partitions[key] = append(partitions[key], r)
	}

	var out []Record
	for _, key := range order {
		seed := Many(partitions[key])
		res, err := in.runContext(p.Inner, &seed, paramEnv, win)
		if err != nil {
			return nil, err
		}
		if res != nil && res.Single != nil {
			out = append(out, res.Single)
		}
	}
	res := Many(out)
	return &res, nil
}

func joinRows(left, right *Value, p *plan.JoinPayload) (*Value, error) {
	var out []Record

	match := func(l, r Record) (bool, error) {
		switch p.Kind {
		case plan.JoinEqui:
			for _, eq := range p.Equi {
				lv, lok := l[eq.Left].(expr.Value)
				rv, rok := r[eq.Right].(expr.Value)
				if !lok || !rok || lv.Any() != rv.Any() {
					return false, nil
				}
			}
			return true, nil
		case plan.JoinCross:
			return true, nil
		default: // JoinInner, JoinLeftOuter
			return evalBool(p.Predicate, mergeEnv(l.Env(), r.Env()))
		}
	}

	for _, l := range left.Rows {
		matched := false
		for _, r := range right.Rows {
			ok, err := match(l, r)
			if err != nil {
				return nil, err
			}
			if ok {
				matched = true
				merged := l.Clone()
				for k, v := range r {
					merged[k] = v
				}
				out = append(out, merged)
			}
		}
		if !matched && p.Kind == plan.JoinLeftOuter {
			out = append(out, l.Clone())
		}
	}
	res := Many(out)
	return &res, nil
}
