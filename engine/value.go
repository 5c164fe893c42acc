// Package engine is the interpreted realization of §4.6's query emission:
// a direct walker over a Context's operator ordering, calling straight
// into a pulpit-composed Datastore, with no intermediate Go source ever
// written to disk. It is the only caller of plan.WalkOperators; package
// codegen's generated query functions call Interp.Run instead of walking
// the plan themselves, so the two execution paths share one ordering.
package engine

import (
	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/plan"
	"github.com/syssam/emdb/pulpit"
)

// Record is one dynamic row flowing along a dataflow edge. Scalar fields
// hold expr.Value; a field produced by Insert/UniqueRef/ScanRefs holds a
// Ref; a field produced by Collect holds a Bag; a field produced by
// DeRef's "as" binding holds a nested Record, and DeRef also copies that
// row's fields to the top level wherever the incoming record has no field
// of the same name.
type Record map[string]any

// Clone returns a shallow copy of r.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Ref is a table-qualified row handle, engine's runtime stand-in for a
// plan ScalarTableRef value: the plan's type system knows which table a
// TableRef scalar points at statically, but engine.Record is untyped, so
// Ref carries the table name alongside the key so DeRef can resolve the
// right Datastore table at runtime without re-deriving it from plan scalar
// types (Update and Delete take the table from their own payload).
type Ref struct {
	Table string
	Key   pulpit.RowKey
}

// Bag is a materialized stream value, produced by Collect and consumed by
// Expand.
type Bag []Record

// Value is what flows along one dataflow edge: either exactly one Record
// or a stream of them, mirroring plan.Data's stream bool.
type Value struct {
	Stream bool
	Single Record
	Rows   []Record
}

// One wraps a single record.
func One(r Record) Value { return Value{Single: r} }

// Many wraps a stream of records.
func Many(rows []Record) Value { return Value{Stream: true, Rows: rows} }

// Env projects a Record's scalar fields into an expr.Env; non-scalar
// fields (Ref, Bag, nested Record) are invisible to expr evaluation, which
// matches the frontend's validity pass only ever type-checking expressions
// against scalar record fields.
func (r Record) Env() expr.Env {
	out := make(expr.Env, len(r))
	for k, v := range r {
		if ev, ok := v.(expr.Value); ok {
			out[k] = ev
		}
	}
	return out
}

// mergeEnv overlays extra onto base, extra winning conflicts.
func mergeEnv(base, extra expr.Env) expr.Env {
	out := make(expr.Env, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// evalFields evaluates a Row/Map/Update/Fold field-assign list against env,
// producing one scalar Record.
func evalFields(fields []plan.FieldAssign, env expr.Env) (Record, error) {
	out := make(Record, len(fields))
	for _, f := range fields {
		v, err := expr.Eval(f.Expr, env)
		if err != nil {
			return nil, err
		}
		out[f.Field] = v
	}
	return out, nil
}
