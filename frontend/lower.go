package frontend

import (
	"fmt"

	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/frontend/diagnostic"
	"github.com/syssam/emdb/plan"
)

// varBinding is one entry of a query's variable map, modeling §4.3's
// Available/Used StreamState machine. A binding with hasEdge=false is the
// implicit per-partition/per-record value a GroupBy/ForEach inner context
// receives as its seed rather than through a wired dataflow edge (engine's
// own convention, see engine.runContext's doc comment) — consuming it
// still requires the consuming operator to declare zero Inputs, which
// lowering arranges by leaving cur unset.
type varBinding struct {
	edge        plan.EdgeKey
	hasEdge     bool
	stream      bool
	definedSpan diagnostic.Span
	used        bool
	usedSpan    diagnostic.Span
}

// lowerState carries the accumulating Plan and diagnostics across all
// three passes of §4.3.
type lowerState struct {
	plan        *plan.Plan
	diags       diagnostic.List
	tables      map[string]plan.TableKey
	scalarCache map[string]plan.ScalarKey
}

func (ls *lowerState) errorf(span diagnostic.Span, code, format string, args ...any) {
	ls.diags = append(ls.diags, diagnostic.New(code, span, fmt.Sprintf(format, args...)))
}

// Lower runs the table pass, query pass and validity pass over prog,
// returning a sealed Plan once the diagnostic list is empty, per §4.3's
// "only a non-empty diagnostic list after the validity pass prevents
// Lower from returning a sealed *plan.Plan."
func Lower(prog *Program) (*plan.Plan, diagnostic.List) {
	ls := &lowerState{
		plan:        plan.New(),
		tables:      map[string]plan.TableKey{},
		scalarCache: map[string]plan.ScalarKey{},
	}

	ls.lowerTableNames(prog.Tables)
	ls.lowerTableDetails(prog.Tables)
	ls.applyImpls(prog.Impls)

	for _, q := range prog.Queries {
		ls.lowerQuery(q)
	}

	if ls.diags.HasErrors() {
		return nil, ls.diags
	}

	for _, verr := range ls.plan.Validate() {
		ls.errorf(diagnostic.Span{}, "E0500", "%s", verr)
	}
	if ls.diags.HasErrors() {
		return nil, ls.diags
	}
	return ls.plan, ls.diags
}

// --- table pass ---

// lowerTableNames pre-registers every table name so a later table's field
// may reference an earlier- or later-declared table (forward references
// are allowed; table names share one flat namespace per §4.3).
func (ls *lowerState) lowerTableNames(tables []TableDecl) {
	for _, t := range tables {
		if _, dup := ls.tables[t.Name]; dup {
			ls.errorf(t.Span, "E0101", "duplicate table name %q", t.Name)
			continue
		}
		ls.tables[t.Name] = ls.plan.Tables.Insert(plan.Table{Name: t.Name, Mutated: map[string]bool{}})
	}
}

func (ls *lowerState) lowerTableDetails(tables []TableDecl) {
	for _, td := range tables {
		tk, ok := ls.tables[td.Name]
		if !ok {
			continue // duplicate, already diagnosed
		}
		table := ls.plan.Tables.Get(tk)

		seenCol := map[string]bool{}
		for _, f := range td.Fields {
			if seenCol[f.Name] {
				ls.errorf(f.Span, "E0102", "table %q: duplicate column %q", td.Name, f.Name)
				continue
			}
			seenCol[f.Name] = true
			table.Columns = append(table.Columns, plan.Column{
				Name: f.Name,
				Type: ls.internFieldType(f.Type),
			})
		}

		seenAlias := map[string]bool{}
		checkAlias := func(span diagnostic.Span, alias string) bool {
			if seenAlias[alias] {
				ls.errorf(span, "E0103", "table %q: duplicate constraint alias %q", td.Name, alias)
				return false
			}
			seenAlias[alias] = true
			return true
		}
		for _, c := range td.Constraints {
			switch c.Kind {
			case ConstraintUnique:
				if checkAlias(c.Span, c.Alias) {
					table.Uniques = append(table.Uniques, plan.Unique{Column: c.Column, Alias: c.Alias})
				}
			case ConstraintPred:
				if checkAlias(c.Span, c.Alias) {
					table.Predicates = append(table.Predicates, plan.Predicate{Expr: c.Expr, Alias: c.Alias})
				}
			case ConstraintLimit:
				if checkAlias(c.Span, c.Alias) {
					table.Limits = append(table.Limits, plan.Limit{Expr: c.Expr, Alias: c.Alias})
				}
			}
		}
	}
}

// --- impl pass ---

// applyImpls reads every "impl Backend as Name { opts };" declaration and
// applies any option this compiler recognizes to the whole plan. The
// grammar has no per-table scoping for impl blocks — Opts is a flat
// key/value map attached to the backend/name pair, not to a table list —
// so a "transactions: true" option anywhere in the program turns on
// transaction logging for every table, matching the one option this pass
// currently interprets.
func (ls *lowerState) applyImpls(impls []ImplDecl) {
	for _, impl := range impls {
		if !optTruthy(impl.Opts["transactions"]) {
			continue
		}
		for _, tk := range ls.tables {
			ls.plan.Tables.Get(tk).Transactional = true
		}
	}
}

func optTruthy(v string) bool {
	switch v {
	case "true", "on", "1", "yes":
		return true
	default:
		return false
	}
}

// internFieldType maps a DSL type name to a ScalarKey, hash-consing the
// common Go-backed scalars (int/float/string/bool) and resolving a type
// name that matches a declared table into a ScalarTableRef.
func (ls *lowerState) internFieldType(name string) plan.ScalarKey {
	if tk, ok := ls.tables[name]; ok {
		return ls.plan.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarTableRef, Table: tk})
	}
	if k, ok := ls.scalarCache[name]; ok {
		return k
	}
	goType := name
	switch name {
	case "int":
		goType = "int64"
	case "float":
		goType = "float64"
	}
	k := ls.plan.ScalarTypes.Insert(plan.ScalarType{Kind: plan.ScalarGo, GoType: goType})
	ls.scalarCache[name] = k
	return k
}

// --- query pass ---

func (ls *lowerState) lowerQuery(q QueryDecl) {
	ctx := plan.Context{Name: q.Name}
	for _, pm := range q.Params {
		ctx.Params = append(ctx.Params, plan.Param{Name: pm.Name, Type: ls.internFieldType(pm.Type)})
	}
	ctxKey := ls.plan.Contexts.Insert(ctx)

	vars := map[string]*varBinding{}
	var returnOp *plan.OperatorKey

	for _, s := range q.Streams {
		ls.lowerStream(ctxKey, s, vars, "", false, &returnOp)
	}

	c := ls.plan.Contexts.Get(ctxKey)
	c.Return = returnOp

	// Discards: any binding that still has a wired edge and was never
	// consumed becomes an explicit Discard sink, per §3's Context.Discards.
	for _, b := range vars {
		if !b.hasEdge || b.used {
			continue
		}
		op := plan.Operator{
			Kind:    plan.OpDiscard,
			Context: ctxKey,
			Inputs:  []plan.EdgeKey{b.edge},
			Payload: &plan.DiscardPayload{},
		}
		ok := ls.plan.Operators.Insert(op)
		c.Operators = append(c.Operators, ok)
		c.Discards = append(c.Discards, ok)
		ls.connectEdgeTo(b.edge, ok)
	}
}

// connectEdgeTo fixes the consumer end of an edge once its consuming
// operator is known, and appends it to that operator's Inputs bookkeeping
// is done by the caller; this only flips the edge's own state.
func (ls *lowerState) connectEdgeTo(ek plan.EdgeKey, to plan.OperatorKey) {
	e := ls.plan.Edges.Get(ek)
	e.Connect(to)
}

// newEdge allocates an Incomplete-then-Connected edge from the operator
// that is about to produce it; From is fixed immediately since lowering
// always knows the producer when it allocates an edge, and To is fixed by
// connectEdgeTo (or left for a later pass, e.g. Discard) once the consumer
// is known. An edge with exactly one live consumer is connected as soon as
// that consumer operator is inserted.
func (ls *lowerState) newEdge(from plan.OperatorKey, stream bool) plan.EdgeKey {
	return ls.plan.Edges.Insert(plan.DataflowEdge{
		State: plan.EdgeIncomplete,
		From:  from,
		Data:  plan.Data{Stream: stream},
	})
}

func (ls *lowerState) lowerAssigns(assigns []Assign) []plan.FieldAssign {
	out := make([]plan.FieldAssign, len(assigns))
	for i, a := range assigns {
		out[i] = plan.FieldAssign{Field: a.Field, Expr: a.Expr}
	}
	return out
}

// lowerStream walks one "op connector op ... ;" chain, threading cur (the
// edge or seed-sentinel the next operator consumes) between ops. innerVar,
// when non-empty, names the bound variable a GroupBy/ForEach inner
// context's "use" resolves to the implicit seed rather than a vars lookup.
func (ls *lowerState) lowerStream(ctxKey plan.ContextKey, s StreamDecl, vars map[string]*varBinding, innerVar string, innerVarStream bool, returnOp *(*plan.OperatorKey)) {
	c := ls.plan.Contexts.Get(ctxKey)

	var cur plan.EdgeKey
	haveCur := false
	curStream := false
	curIsSeed := false // true once we've consumed the implicit seed and haven't rewired cur to a real edge since

	appendOp := func(op plan.Operator) plan.OperatorKey {
		ok := ls.plan.Operators.Insert(op)
		c.Operators = append(c.Operators, ok)
		return ok
	}

	wireInput := func(op *plan.Operator) {
		if curIsSeed || !haveCur {
			return // zero Inputs: engine falls back to the context seed
		}
		op.Inputs = []plan.EdgeKey{cur}
	}

	connectCurIfWired := func(to plan.OperatorKey) {
		if haveCur && !curIsSeed {
			ls.connectEdgeTo(cur, to)
		}
	}

	for i, op := range s.Ops {
		if i > 0 {
			wantStream := s.Connectors[i-1] == ConnStream
			if wantStream != curStream {
				ls.errorf(op.Span, "E0201", "connector expects %s but producer yields %s",
					cardName(wantStream), cardName(curStream))
			}
		}

		switch op.Kind {
		case OpUse:
			name := op.Idents[0]
			if name == innerVar {
				haveCur, curIsSeed = false, true
				curStream = innerVarStream
				continue
			}
			b, ok := vars[name]
			if !ok {
				ls.errorf(op.Span, "E0202", "use of undefined variable %q", name)
				continue
			}
			if b.used {
				d := diagnostic.New("E0203", op.Span, fmt.Sprintf("variable %q already used", name)).WithNote(b.usedSpan, "first used here")
				ls.diags = append(ls.diags, d)
				continue
			}
			b.used = true
			b.usedSpan = op.Span
			if b.hasEdge {
				cur, haveCur, curIsSeed = b.edge, true, false
			} else {
				haveCur, curIsSeed = false, true
			}
			curStream = b.stream

		case OpRow:
			o := plan.Operator{Kind: plan.OpRow, Context: ctxKey, Payload: &plan.RowPayload{Fields: ls.lowerAssigns(op.Assigns)}}
			ok := appendOp(o)
			cur, haveCur, curIsSeed, curStream = ls.newEdge(ok, false), true, false, false

		case OpRef:
			tk, found := ls.tables[op.Ident]
			if !found {
				ls.errorf(op.Span, "E0204", "unknown table %q", op.Ident)
				continue
			}
			o := plan.Operator{Kind: plan.OpScanRefs, Context: ctxKey, Payload: &plan.ScanRefsPayload{Table: tk}}
			ok := appendOp(o)
			cur, haveCur, curIsSeed, curStream = ls.newEdge(ok, true), true, false, true
			if op.As != "" {
				vars[op.As] = &varBinding{edge: cur, hasEdge: true, stream: true, definedSpan: op.Span}
			}

		case OpInsert:
			tk, found := ls.tables[op.Ident]
			if !found {
				ls.errorf(op.Span, "E0204", "unknown table %q", op.Ident)
				continue
			}
			o := plan.Operator{Kind: plan.OpInsert, Context: ctxKey, Payload: &plan.InsertPayload{Table: tk}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, curStream), true, false
			if op.As != "" {
				vars[op.As] = &varBinding{edge: cur, hasEdge: true, stream: curStream, definedSpan: op.Span}
			}

		case OpUpdate:
			tk, found := ls.tables[op.Ident]
			if !found {
				ls.errorf(op.Span, "E0204", "unknown table %q", op.Ident)
				continue
			}
			table := ls.plan.Tables.Get(tk)
			for _, a := range op.Assigns {
				table.Mutated[a.Field] = true
			}
			o := plan.Operator{Kind: plan.OpUpdate, Context: ctxKey, Payload: &plan.UpdatePayload{Table: tk, Mapping: ls.lowerAssigns(op.Assigns)}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, curStream), true, false

		case OpDelete:
			tk, found := ls.tables[op.Ident]
			if !found {
				ls.errorf(op.Span, "E0204", "unknown table %q", op.Ident)
				continue
			}
			ls.plan.Tables.Get(tk).Deletions = true
			o := plan.Operator{Kind: plan.OpDelete, Context: ctxKey, Payload: &plan.DeletePayload{Table: tk}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, curStream), true, false

		case OpDeRef:
			// DeRef always projects the flowing record's conventional "key"
			// field (see engine.Ref and engine's Insert/ScanRefs/UniqueRef
			// output binding) — the identifier named in the DSL source is a
			// restatement of the stream variable already flowing through
			// cur, not a second lookup.
			o := plan.Operator{Kind: plan.OpDeRef, Context: ctxKey, Payload: &plan.DeRefPayload{KeyField: "key", As: op.As, Subset: op.Idents}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, curStream), true, false

		case OpUnique:
			tk, found := ls.tables[op.Ident]
			if !found {
				ls.errorf(op.Span, "E0204", "unknown table %q", op.Ident)
				continue
			}
			field := op.Idents[1]
			o := plan.Operator{Kind: plan.OpUniqueRef, Context: ctxKey, Payload: &plan.UniqueRefPayload{Table: tk, Field: field}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed, curStream = ls.newEdge(ok, curStream), true, false, curStream
			if op.As != "" {
				vars[op.As] = &varBinding{edge: cur, hasEdge: true, stream: curStream, definedSpan: op.Span}
			}

		case OpMap:
			o := plan.Operator{Kind: plan.OpMap, Context: ctxKey, Payload: &plan.MapPayload{Fields: ls.lowerAssigns(op.Assigns)}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, curStream), true, false

		case OpFilter:
			o := plan.Operator{Kind: plan.OpFilter, Context: ctxKey, Payload: &plan.FilterPayload{Predicate: op.Expr}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, curStream), true, false

		case OpSort:
			if !curStream {
				ls.errorf(op.Span, "E0205", "sort requires a stream input")
			}
			o := plan.Operator{Kind: plan.OpSort, Context: ctxKey, Payload: &plan.SortPayload{Keys: []plan.SortKey{{Field: op.Ident, Desc: op.SortDesc}}}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, true), true, false
			curStream = true

		case OpTake:
			o := plan.Operator{Kind: plan.OpTake, Context: ctxKey, Payload: &plan.TakePayload{Limit: op.Expr}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, true), true, false
			curStream = true

		case OpFold:
			if !curStream {
				ls.errorf(op.Span, "E0206", "fold requires a stream input")
			}
			o := plan.Operator{Kind: plan.OpFold, Context: ctxKey, Payload: &plan.FoldPayload{Init: ls.lowerAssigns(op.Assigns), Step: ls.lowerAssigns(op.FoldStep)}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, false), true, false
			curStream = false

		case OpCollect:
			o := plan.Operator{Kind: plan.OpCollect, Context: ctxKey, Payload: &plan.CollectPayload{As: op.As}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, false), true, false
			curStream = false

		case OpGroupBy:
			if !curStream {
				ls.errorf(op.Span, "E0207", "groupby requires a stream input")
			}
			innerCtx := plan.Context{Name: fmt.Sprintf("%s.groupby.%s", c.Name, FreshField().Internal)}
			innerKey := ls.plan.Contexts.Insert(innerCtx)
			innerVars := map[string]*varBinding{}
			var innerReturn *plan.OperatorKey
			for _, is := range op.InnerStreams {
				ls.lowerStream(innerKey, is, innerVars, op.InnerVar, true, &innerReturn)
			}
			ic := ls.plan.Contexts.Get(innerKey)
			ic.Return = innerReturn

			o := plan.Operator{Kind: plan.OpGroupBy, Context: ctxKey, Payload: &plan.GroupByPayload{KeyField: op.Ident, Inner: innerKey}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, true), true, false
			curStream = true

		case OpForEach:
			if !curStream {
				ls.errorf(op.Span, "E0208", "foreach requires a stream input")
			}
			innerCtx := plan.Context{Name: fmt.Sprintf("%s.foreach.%s", c.Name, FreshField().Internal)}
			innerKey := ls.plan.Contexts.Insert(innerCtx)
			innerVars := map[string]*varBinding{}
			var innerReturn *plan.OperatorKey
			for _, is := range op.InnerStreams {
				ls.lowerStream(innerKey, is, innerVars, op.InnerVar, false, &innerReturn)
			}
			ic := ls.plan.Contexts.Get(innerKey)
			ic.Return = innerReturn

			o := plan.Operator{Kind: plan.OpForEach, Context: ctxKey, Payload: &plan.ForEachPayload{Inner: innerKey}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			cur, haveCur, curIsSeed = ls.newEdge(ok, curStream), true, false

		case OpJoin:
			left, lok := vars[op.Ident]
			right, rok := vars[op.JoinOther]
			if !lok {
				ls.errorf(op.Span, "E0202", "use of undefined variable %q", op.Ident)
				continue
			}
			if !rok {
				ls.errorf(op.Span, "E0202", "use of undefined variable %q", op.JoinOther)
				continue
			}
			left.used, left.usedSpan = true, op.Span
			right.used, right.usedSpan = true, op.Span
			kind := joinKindOf(op.Idents[0])
			o := plan.Operator{Kind: plan.OpJoin, Context: ctxKey, Payload: &plan.JoinPayload{Kind: kind, Predicate: expr.LitBool(true)}}
			if left.hasEdge {
				o.Inputs = append(o.Inputs, left.edge)
			}
			if right.hasEdge {
				o.Inputs = append(o.Inputs, right.edge)
			}
			ok := appendOp(o)
			if left.hasEdge {
				ls.connectEdgeTo(left.edge, ok)
			}
			if right.hasEdge {
				ls.connectEdgeTo(right.edge, ok)
			}
			cur, haveCur, curIsSeed = ls.newEdge(ok, true), true, false
			curStream = true

		case OpFork:
			o := plan.Operator{Kind: plan.OpFork, Context: ctxKey, Payload: &plan.ForkPayload{Outputs: op.Idents}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			produced := ls.newEdge(ok, curStream)
			for _, name := range op.Idents {
				vars[name] = &varBinding{edge: produced, hasEdge: true, stream: curStream, definedSpan: op.Span}
			}
			cur, haveCur, curIsSeed = produced, true, false

		case OpUnion:
			o := plan.Operator{Kind: plan.OpUnion, Context: ctxKey, Payload: &plan.UnionPayload{}}
			for _, name := range op.Idents {
				b, ok := vars[name]
				if !ok {
					ls.errorf(op.Span, "E0202", "use of undefined variable %q", name)
					continue
				}
				b.used, b.usedSpan = true, op.Span
				if b.hasEdge {
					o.Inputs = append(o.Inputs, b.edge)
				}
			}
			ok := appendOp(o)
			for _, ek := range o.Inputs {
				ls.connectEdgeTo(ek, ok)
			}
			cur, haveCur, curIsSeed = ls.newEdge(ok, true), true, false
			curStream = true

		case OpLet:
			if _, dup := vars[op.Ident]; dup {
				ls.errorf(op.Span, "E0209", "variable %q already defined", op.Ident)
				continue
			}
			if curIsSeed || !haveCur {
				vars[op.Ident] = &varBinding{hasEdge: false, stream: curStream, definedSpan: op.Span}
			} else {
				vars[op.Ident] = &varBinding{edge: cur, hasEdge: true, stream: curStream, definedSpan: op.Span}
			}

		case OpReturn:
			if curStream {
				ls.errorf(op.Span, "E0210", "return of a stream; wrap in collect()")
			}
			o := plan.Operator{Kind: plan.OpReturn, Context: ctxKey, Payload: &plan.ReturnPayload{}}
			wireInput(&o)
			ok := appendOp(o)
			connectCurIfWired(ok)
			*returnOp = &ok
		}
	}
}

func cardName(stream bool) string {
	if stream {
		return "a stream"
	}
	return "a single value"
}

func joinKindOf(text string) plan.JoinKind {
	switch text {
	case "left":
		return plan.JoinLeftOuter
	case "cross":
		return plan.JoinCross
	case "equi":
		return plan.JoinEqui
	default:
		return plan.JoinInner
	}
}
