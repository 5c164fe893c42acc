package plan

import "fmt"

// Plan is the container of all seven arenas described in §4.1: the single
// pivot populated by the frontend and consumed immutably by the table
// composer and query emitter. A Plan has no notion of "sealed" as a field
// — by convention, frontend.Lower returns a *Plan only once Validate
// passes, and nothing after that point calls any Insert* method on it.
type Plan struct {
	Queries     *Arena[Query]
	Contexts    *Arena[Context]
	Tables      *Arena[Table]
	Operators   *Arena[Operator]
	Edges       *Arena[DataflowEdge]
	ScalarTypes *Arena[ScalarType]
	RecordTypes *Arena[RecordType]
}

// New returns an empty Plan.
func New() *Plan {
	return &Plan{
		Queries:     NewArena[Query](),
		Contexts:    NewArena[Context](),
		Tables:      NewArena[Table](),
		Operators:   NewArena[Operator](),
		Edges:       NewArena[DataflowEdge](),
		ScalarTypes: NewArena[ScalarType](),
		RecordTypes: NewArena[RecordType](),
	}
}

// ResolveScalar chases a chain of ScalarRef indirections to the concrete
// ScalarType at its end. Panics if the chain cycles, which Validate
// forbids from ever reaching a sealed Plan.
func (p *Plan) ResolveScalar(k ScalarKey) (ScalarKey, *ScalarType) {
	seen := map[ScalarKey]bool{}
	for {
		if seen[k] {
			panic("plan: cyclic scalar type reference at " + k.String())
		}
		seen[k] = true
		t := p.ScalarTypes.Get(k)
		if t.Kind != ScalarRef {
			return k, t
		}
		k = t.Ref
	}
}

// ResolveRecord chases a chain of RecordRef indirections to the concrete
// RecordType at its end.
func (p *Plan) ResolveRecord(k RecordKey) (RecordKey, *RecordType) {
	seen := map[RecordKey]bool{}
	for {
		if seen[k] {
			panic("plan: cyclic record type reference at " + k.String())
		}
		seen[k] = true
		t := p.RecordTypes.Get(k)
		if t.Kind != RecordRef {
			return k, t
		}
		k = t.Ref
	}
}

// WalkOperators calls fn for each operator of ctx in declared order. The
// engine interpreter drives its traversal through this helper; codegen's
// generated query functions call the interpreter rather than walking
// operators themselves, so the two execution paths share one ordering
// (see SPEC_FULL.md §4.6).
func (p *Plan) WalkOperators(ctx ContextKey, fn func(OperatorKey, *Operator)) {
	c := p.Contexts.Get(ctx)
	for _, ok := range c.Operators {
		fn(ok, p.Operators.Get(ok))
	}
}

// ValidationError describes one violated plan invariant.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validate sweeps the whole plan for the structural invariants §4.1
// promises are maintained "by construction": every edge reaching the
// final plan is Connected, no scalar/record Ref cycles, every Context has
// at most one Return, and a Context with a Return must have produced a
// single (non-stream) value at that point.
func (p *Plan) Validate() []error {
	var errs []error

	for k, e := range p.Edges.All() {
		if e.State != EdgeConnected {
			errs = append(errs, &ValidationError{fmt.Sprintf("edge %s is not connected (state=%d)", k, e.State)})
		}
	}

	for k := range p.ScalarTypes.All() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					errs = append(errs, &ValidationError{fmt.Sprintf("scalar type %s: %v", k, r)})
				}
			}()
			p.ResolveScalar(k)
		}()
	}
	for k := range p.RecordTypes.All() {
		func() {
			defer func() {
				if r := recover(); r != nil {
					errs = append(errs, &ValidationError{fmt.Sprintf("record type %s: %v", k, r)})
				}
			}()
			p.ResolveRecord(k)
		}()
	}

	for k, c := range p.Contexts.All() {
		returns := 0
		for _, ok := range c.Operators {
			op := p.Operators.Get(ok)
			if op.Kind == OpReturn {
				returns++
			}
		}
		if returns > 1 {
			errs = append(errs, &ValidationError{fmt.Sprintf("context %s has %d Return operators, want at most 1", k, returns)})
		}
		if c.Return != nil {
			op := p.Operators.Get(*c.Return)
			if len(op.Inputs) != 1 {
				errs = append(errs, &ValidationError{fmt.Sprintf("context %s Return must have exactly one input edge", k)})
			} else {
				in := p.Edges.Get(op.Inputs[0])
				if in.Data.Stream {
					errs = append(errs, &ValidationError{fmt.Sprintf("context %s returns a stream; wrap in collect()", k)})
				}
			}
		}
	}

	return errs
}
