package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/emdb/plan"
)

// renderQuery emits one typed Go function per declared query. Its
// parameters are fully typed from the query Context's declared Params;
// its result is engine.Record rather than a generated struct, because
// lowering deliberately leaves every edge's Data.Record at its zero value
// (see DESIGN.md) — there is no RecordType to read a concrete return
// shape from, so codegen is honest about returning the interpreter's own
// dynamic record rather than inventing an unsupported typed one. Callers
// that need a concrete field still get full static typing on the way in.
func (g *Generator) renderQuery(qk plan.QueryKey, q *plan.Query) *jen.File {
	f := jen.NewFile(g.cfg.Package)
	g.header(f)

	ctx := g.plan.Contexts.Get(q.Context)
	funcName := QueryFuncName(q.Name)

	params := []jen.Code{jen.Id("in").Op("*").Qual(enginePkg, "Interp")}
	var envEntries []jen.Code
	for _, p := range ctx.Params {
		goName := exportedParamIdent(p.Name)
		params = append(params, jen.Id(goName).Add(goType(g.plan, p.Type)))
		_, st := g.plan.ResolveScalar(p.Type)
		if st.Kind == plan.ScalarGo {
			if ctor, ok := exprCtor(st.GoType); ok {
				envEntries = append(envEntries, jen.Lit(p.Name).Op(":").Qual(exprPkg, ctor).Call(jen.Id(goName)))
			}
		}
	}

	f.Commentf("%s runs the %q query against in.", funcName, q.Name)
	f.Func().Id(funcName).Params(params...).Params(jen.Qual(enginePkg, "Record"), jen.Error()).Block(
		jen.Return(jen.Id("in").Dot("Run").Call(
			jen.Id("queryKey").Call(jen.Lit(q.Name)),
			jen.Qual(exprPkg, "Env").Values(envEntries...),
		)),
	)
	return f
}

// exportedParamIdent lower-cases the first rune back down after
// exportedIdent, since Go parameter names are conventionally unexported.
func exportedParamIdent(name string) string {
	id := exportedIdent(name)
	if id == "" {
		return id
	}
	return string(id[0]+('a'-'A')) + id[1:]
}

// renderPlanAccessor emits the one package-level hook generated query
// functions share: SetPlan, wiring the compiled *plan.Plan each
// queryKey(name) lookup resolves against.
func (g *Generator) renderPlanAccessor() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	g.header(f)

	f.Var().Id("currentPlan").Op("*").Qual("github.com/syssam/emdb/plan", "Plan")

	f.Commentf("SetPlan wires the compiled plan generated query functions resolve their QueryKeys against. Call it once at startup before invoking any generated query function.")
	f.Func().Id("SetPlan").Params(jen.Id("p").Op("*").Qual("github.com/syssam/emdb/plan", "Plan")).Block(
		jen.Id("currentPlan").Op("=").Id("p"),
	)

	f.Func().Id("queryKey").Params(jen.Id("name").String()).Qual("github.com/syssam/emdb/plan", "QueryKey").Block(
		jen.For(jen.List(jen.Id("k"), jen.Id("q")).Op(":=").Range().Id("currentPlan").Dot("Queries").Dot("All").Call()).Block(
			jen.If(jen.Id("q").Dot("Name").Op("==").Id("name")).Block(
				jen.Return(jen.Id("k")),
			),
		),
		jen.Panic(jen.Lit("queries: no such query ").Op("+").Id("name")),
	)
	return f
}
