package codegen

import (
	"sort"

	"github.com/dave/jennifer/jen"
)

// renderDatastore emits tableKey (mirroring queryKey in generate_query.go)
// and NewSeededDatastore, a package-level constructor that builds a
// *pulpit.Datastore with every table from the compiled plan already
// registered — each pulpit.Options{Transactional: ...} baked in as a
// literal from that table's own Transactional flag, instead of requiring
// every caller to hand-assemble options per table the way cmd/emdbc/run.go
// still does for the interpreted "emdbc run" path.
func (g *Generator) renderDatastore() *jen.File {
	f := jen.NewFile(g.cfg.Package)
	g.header(f)

	f.Func().Id("tableKey").Params(jen.Id("name").String()).Qual("github.com/syssam/emdb/plan", "TableKey").Block(
		jen.For(jen.List(jen.Id("k"), jen.Id("t")).Op(":=").Range().Id("currentPlan").Dot("Tables").Dot("All").Call()).Block(
			jen.If(jen.Id("t").Dot("Name").Op("==").Id("name")).Block(
				jen.Return(jen.Id("k")),
			),
		),
		jen.Panic(jen.Lit("tables: no such table ").Op("+").Id("name")),
	)

	type tableEntry struct {
		name          string
		transactional bool
	}
	var tables []tableEntry
	for _, t := range g.plan.Tables.All() {
		tables = append(tables, tableEntry{name: t.Name, transactional: t.Transactional})
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].name < tables[j].name })

	body := []jen.Code{jen.Id("ds").Op(":=").Qual(pulpitPkg, "NewDatastore").Call()}
	for _, t := range tables {
		body = append(body, jen.Id("ds").Dot("AddTable").Call(
			jen.Qual(pulpitPkg, "NewTable").Call(
				jen.Id("currentPlan").Dot("Tables").Dot("Get").Call(jen.Id("tableKey").Call(jen.Lit(t.name))),
				jen.Qual(pulpitPkg, "Options").Values(jen.Dict{
					jen.Id("Transactional"): jen.Lit(t.transactional),
				}),
			),
		))
	}
	body = append(body, jen.Return(jen.Id("ds")))

	f.Commentf("NewSeededDatastore builds a *pulpit.Datastore with every table from the compiled plan already registered, each carrying the Transactional flag its own impl block (or the emdbc.toml override) set. Call SetPlan before this.")
	f.Func().Id("NewSeededDatastore").Params().Op("*").Qual(pulpitPkg, "Datastore").Block(body...)
	return f
}
