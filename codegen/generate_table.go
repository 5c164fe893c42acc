package codegen

import (
	"github.com/dave/jennifer/jen"

	"github.com/syssam/emdb/plan"
)

// exprCtor returns the expr constructor function name for a ScalarGo
// column's Go type. expr.Value only wraps the four concrete kinds pulpit
// rows carry (int64, float64, string, bool); a column declared with any
// other Go type expression is out of codegen's scope (it can still be
// driven through the interpreted engine path, which stores expr.Value
// dynamically rather than via a typed constructor call).
func exprCtor(goType string) (string, bool) {
	switch goType {
	case "int64", "int":
		return "Int", true
	case "float64":
		return "Float", true
	case "string":
		return "Str", true
	case "bool":
		return "Bool", true
	default:
		return "", false
	}
}

// renderTable emits the struct, row marshaling and accessor methods for
// one declared table.
func (g *Generator) renderTable(tk plan.TableKey, t *plan.Table) *jen.File {
	f := jen.NewFile(g.cfg.Package)
	g.header(f)

	typeName := TableTypeName(t.Name)

	// struct Foo { Field Type; ... }
	var structFields []jen.Code
	for _, col := range t.Columns {
		structFields = append(structFields, jen.Id(FieldName(col.Name)).Add(goType(g.plan, col.Type)))
	}
	f.Commentf("%s is the generated row type of the %q table.", typeName, t.Name)
	f.Type().Id(typeName).Struct(structFields...)

	g.renderToRow(f, t, typeName)
	g.renderFromRow(f, t, typeName)
	g.renderAccessors(f, t, typeName)

	return f
}

func (g *Generator) renderToRow(f *jen.File, t *plan.Table, typeName string) {
	recv := jen.Id("r").Id(typeName)
	var fields []jen.Code
	for _, col := range t.Columns {
		_, st := g.plan.ResolveScalar(col.Type)
		if st.Kind != plan.ScalarGo {
			continue
		}
		ctor, ok := exprCtor(st.GoType)
		if !ok {
			continue
		}
		fields = append(fields, jen.Lit(col.Name).Op(":").Qual(exprPkg, ctor).Call(jen.Id("r").Dot(FieldName(col.Name))))
	}
	f.Commentf("toRow converts r to the dynamic pulpit.Row shape the storage layer operates on.")
	f.Func().Params(recv).Id("toRow").Params().Qual(pulpitPkg, "Row").Block(
		jen.Return(jen.Qual(pulpitPkg, "Row").Values(fields...)),
	)
}

func (g *Generator) renderFromRow(f *jen.File, t *plan.Table, typeName string) {
	fnName := "rowTo" + typeName
	var assigns []jen.Code
	for _, col := range t.Columns {
		_, st := g.plan.ResolveScalar(col.Type)
		if st.Kind != plan.ScalarGo {
			continue
		}
		if _, ok := exprCtor(st.GoType); !ok {
			continue
		}
		assigns = append(assigns, jen.Id(FieldName(col.Name)).Op(":").Id("row").Index(jen.Lit(col.Name)).Dot("Any").Call().Assert(jen.Id(st.GoType)))
	}
	f.Commentf("%s converts a dynamic pulpit.Row back into a %s.", fnName, typeName)
	f.Func().Id(fnName).Params(jen.Id("row").Qual(pulpitPkg, "Row")).Id(typeName).Block(
		jen.Return(jen.Id(typeName).Values(assigns...)),
	)
}

func (g *Generator) renderAccessors(f *jen.File, t *plan.Table, typeName string) {
	table := t.Name
	fromRowFn := "rowTo" + typeName

	// Insert
	f.Commentf("Insert%s inserts v into the %q table and returns its ref.", typeName, table)
	f.Func().Id("Insert"+typeName).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
		jen.Id("v").Id(typeName),
	).Params(jen.Qual(enginePkg, "Ref"), jen.Error()).Block(
		jen.List(jen.Id("k"), jen.Err()).Op(":=").Id("win").Dot("Insert").Call(jen.Lit(table), jen.Id("v").Dot("toRow").Call()),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Qual(enginePkg, "Ref").Values(), jen.Err()),
		),
		jen.Return(jen.Qual(enginePkg, "Ref").Values(jen.Dict{
			jen.Id("Table"): jen.Lit(table),
			jen.Id("Key"):   jen.Id("k"),
		}), jen.Nil()),
	)

	// Get
	f.Commentf("Get%s returns a copy of the %s at ref.", typeName, typeName)
	f.Func().Id("Get"+typeName).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
		jen.Id("ref").Qual(enginePkg, "Ref"),
	).Params(jen.Id(typeName), jen.Error()).Block(
		jen.List(jen.Id("row"), jen.Err()).Op(":=").Id("win").Dot("Get").Call(jen.Lit(table), jen.Id("ref").Dot("Key")),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Id(typeName).Values(), jen.Err()),
		),
		jen.Return(jen.Id(fromRowFn).Call(jen.Id("row")), jen.Nil()),
	)

	// Borrow
	f.Commentf("Borrow%s returns a read view of the %s at ref.", typeName, typeName)
	f.Func().Id("Borrow"+typeName).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
		jen.Id("ref").Qual(enginePkg, "Ref"),
	).Params(jen.Id(typeName), jen.Error()).Block(
		jen.List(jen.Id("row"), jen.Err()).Op(":=").Id("win").Dot("Borrow").Call(jen.Lit(table), jen.Id("ref").Dot("Key")),
		jen.If(jen.Err().Op("!=").Nil()).Block(
			jen.Return(jen.Id(typeName).Values(), jen.Err()),
		),
		jen.Return(jen.Id(fromRowFn).Call(jen.Id("row")), jen.Nil()),
	)

	// Delete
	f.Commentf("Delete%s removes the row at ref from the %q table.", typeName, table)
	f.Func().Id("Delete"+typeName).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
		jen.Id("ref").Qual(enginePkg, "Ref"),
	).Error().Block(
		jen.Return(jen.Id("win").Dot("Delete").Call(jen.Lit(table), jen.Id("ref").Dot("Key"))),
	)

	// Count
	f.Commentf("Count%s returns the number of live rows in the %q table.", typeName, table)
	f.Func().Id("Count"+typeName).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
	).Params(jen.Int(), jen.Error()).Block(
		jen.Return(jen.Id("win").Dot("Count").Call(jen.Lit(table))),
	)

	// Commit / Abort
	f.Commentf("Commit%s clears the %q table's own transaction log; it has no effect on any other table.", typeName, table)
	f.Func().Id("Commit"+typeName).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
	).Error().Block(
		jen.Return(jen.Id("win").Dot("Commit").Call(jen.Lit(table))),
	)

	f.Commentf("Abort%s reverts the %q table to the state it held before this window's mutations, via its own transaction log only.", typeName, table)
	f.Func().Id("Abort"+typeName).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
	).Error().Block(
		jen.Return(jen.Id("win").Dot("Abort").Call(jen.Lit(table))),
	)

	if len(t.Mutated) > 0 {
		g.renderUpdate(f, t, typeName, table)
	}

	// Scan
	f.Commentf("%s iterates every live ref of the %q table.", ScanIteratorName(table), table)
	f.Func().Id(ScanIteratorName(table)).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
	).Qual(iterPkg, "Seq").Index(jen.Qual(enginePkg, "Ref")).Block(
		jen.Return(jen.Func().Params(jen.Id("yield").Func().Params(jen.Qual(enginePkg, "Ref")).Bool()).Block(
			jen.For(jen.Id("k").Op(":=").Range().Id("win").Dot("Scan").Call(jen.Lit(table))).Block(
				jen.If(jen.Op("!").Id("yield").Call(jen.Qual(enginePkg, "Ref").Values(jen.Dict{
					jen.Id("Table"): jen.Lit(table),
					jen.Id("Key"):   jen.Id("k"),
				}))).Block(jen.Return()),
			),
		)),
	)

	for _, u := range t.Uniques {
		ctor, ok := uniqueCtor(g.plan, t, u.Column)
		if !ok {
			continue
		}
		methodName := UniqueAccessorName(u.Alias)
		f.Commentf("%s looks up the %q table's %q unique constraint.", methodName, table, u.Alias)
		f.Func().Id(methodName).Params(
			jen.Id("win").Qual(pulpitPkg, "Window"),
			jen.Id("v").Id(ctor.goType),
		).Params(jen.Qual(enginePkg, "Ref"), jen.Error()).Block(
			jen.List(jen.Id("k"), jen.Err()).Op(":=").Id("win").Dot("Unique").Call(
				jen.Lit(table), jen.Lit(u.Alias), jen.Qual(exprPkg, ctor.fn).Call(jen.Id("v")),
			),
			jen.If(jen.Err().Op("!=").Nil()).Block(
				jen.Return(jen.Qual(enginePkg, "Ref").Values(), jen.Err()),
			),
			jen.Return(jen.Qual(enginePkg, "Ref").Values(jen.Dict{
				jen.Id("Table"): jen.Lit(table),
				jen.Id("Key"):   jen.Id("k"),
			}), jen.Nil()),
		)
	}
}

// renderUpdate emits a typed Update<Type>Fields struct covering exactly the
// table's Mutated columns (the composer's "M" set, §4.4) plus an
// Update<Type> method applying only the fields the caller set. The DSL has
// no table-level "named update" declaration — only inline
// "update(table use field = expr)" inside a query, whose mapping
// expressions the engine evaluates at run time against the current row
// and the incoming record, never against caller-supplied parameters (see
// engine.Interp's OpUpdate case) — so this is the
// adaptation of spec.md's per-alias update accessor to this grammar: one
// struct per table instead of one per declared update alias.
func (g *Generator) renderUpdate(f *jen.File, t *plan.Table, typeName, table string) {
	fieldsType := "Update" + typeName + "Fields"

	var structFields []jen.Code
	for _, col := range t.Columns {
		if !t.Mutated[col.Name] {
			continue
		}
		structFields = append(structFields, jen.Id(FieldName(col.Name)).Op("*").Add(goType(g.plan, col.Type)))
	}
	f.Commentf("%s holds the %q table's mutable columns; a nil field leaves that column unchanged.", fieldsType, table)
	f.Type().Id(fieldsType).Struct(structFields...)

	body := []jen.Code{jen.Id("row").Op(":=").Qual(pulpitPkg, "Row").Values()}
	for _, col := range t.Columns {
		if !t.Mutated[col.Name] {
			continue
		}
		_, st := g.plan.ResolveScalar(col.Type)
		if st.Kind != plan.ScalarGo {
			continue
		}
		ctor, ok := exprCtor(st.GoType)
		if !ok {
			continue
		}
		fieldName := FieldName(col.Name)
		body = append(body, jen.If(jen.Id("fields").Dot(fieldName).Op("!=").Nil()).Block(
			jen.Id("row").Index(jen.Lit(col.Name)).Op("=").Qual(exprPkg, ctor).Call(jen.Op("*").Id("fields").Dot(fieldName)),
		))
	}
	body = append(body, jen.Return(jen.Id("win").Dot("Update").Call(jen.Lit(table), jen.Id("ref").Dot("Key"), jen.Id("row"))))

	f.Commentf("Update%s applies fields to the row at ref in the %q table.", typeName, table)
	f.Func().Id("Update"+typeName).Params(
		jen.Id("win").Qual(pulpitPkg, "Window"),
		jen.Id("ref").Qual(enginePkg, "Ref"),
		jen.Id("fields").Id(fieldsType),
	).Error().Block(body...)
}

type uniqueCtorInfo struct {
	fn     string
	goType string
}

func uniqueCtor(p *plan.Plan, t *plan.Table, column string) (uniqueCtorInfo, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return uniqueCtorInfo{}, false
	}
	_, st := p.ResolveScalar(t.Columns[idx].Type)
	if st.Kind != plan.ScalarGo {
		return uniqueCtorInfo{}, false
	}
	fn, ok := exprCtor(st.GoType)
	if !ok {
		return uniqueCtorInfo{}, false
	}
	return uniqueCtorInfo{fn: fn, goType: st.GoType}, true
}
