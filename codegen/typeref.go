package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/emdb/plan"
)

const enginePkg = "github.com/syssam/emdb/engine"

// goType renders the Go type of a resolved scalar as a jennifer Code,
// qualifying engine.Ref/engine.Record/engine.Bag for the non-primitive
// cases. Table-ref, record and bag scalars render to the engine's own
// runtime types rather than a bespoke generated struct per record shape —
// codegen emits a typed façade over the shared interpreter (see
// DESIGN.md), not a second independent evaluator, so reusing engine's
// dynamic record representation for nested/streamed values is the right
// boundary: only top-level query parameters and scalar columns need a
// fully concrete Go type.
func goType(p *plan.Plan, k plan.ScalarKey) jen.Code {
	_, t := p.ResolveScalar(k)
	switch t.Kind {
	case plan.ScalarGo:
		return jen.Id(t.GoType)
	case plan.ScalarTableRef:
		return jen.Qual(enginePkg, "Ref")
	case plan.ScalarRecord:
		return jen.Qual(enginePkg, "Record")
	case plan.ScalarBag:
		return jen.Qual(enginePkg, "Bag")
	default:
		return jen.Id("any")
	}
}
