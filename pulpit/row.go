package pulpit

import "github.com/syssam/emdb/expr"

// Row is the runtime representation of one table row: a field-name to
// value map. The ahead-of-time codegen path (package codegen) emits a
// concrete Go struct per table instead of this map — Row is what the
// interpreted engine and the pulpit column kinds operate on directly,
// since there is no compiled, per-table struct type at the point pulpit
// itself runs.
type Row map[string]expr.Value

// Clone returns a shallow copy of r (expr.Value is itself an immutable
// value type, so a shallow copy is a full copy for every scalar this
// system supports).
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Project returns a new Row containing only the named fields.
func (r Row) Project(fields []string) Row {
	out := make(Row, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			out[f] = v
		}
	}
	return out
}

// Env adapts a Row to an expr.Env for predicate/map/fold evaluation.
func (r Row) Env() expr.Env {
	return expr.Env(r)
}
