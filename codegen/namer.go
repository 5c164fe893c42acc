package codegen

import (
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// exportedIdent turns a snake_case or lowerCamel DSL identifier into an
// exported Go identifier, e.g. "order_line" -> "OrderLine".
func exportedIdent(name string) string {
	parts := strings.FieldsFunc(name, func(r rune) bool {
		return r == '_' || r == '-'
	})
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(titleCaser.String(p))
	}
	if b.Len() == 0 {
		return titleCaser.String(name)
	}
	return b.String()
}

// TableTypeName is the exported Go struct name generated for a declared
// table, e.g. "users" -> "User" (singularized, since one struct describes
// one row).
func TableTypeName(table string) string {
	return exportedIdent(inflect.Singularize(table))
}

// ScanIteratorName is the exported name of a table's scan-result iterator
// accessor, pluralized per SPEC_FULL.md's codegen naming note: a "Users"
// table scan produces "ScanUserKeys".
func ScanIteratorName(table string) string {
	return "Scan" + exportedIdent(inflect.Singularize(table)) + "Keys"
}

// UniqueAccessorName is the exported method name for a unique-constraint
// lookup, e.g. alias "by_name" -> "ByName". Singularized so "by_emails"
// (a DSL author's plural alias) still reads as a single-row accessor.
func UniqueAccessorName(alias string) string {
	return exportedIdent(inflect.Singularize(alias))
}

// FieldName is the exported Go struct field name for a declared column.
func FieldName(column string) string {
	return exportedIdent(column)
}

// QueryFuncName is the exported Go function name for a declared query.
func QueryFuncName(query string) string {
	return exportedIdent(query)
}

// PackageDoc returns the lower-cased plural form of a table name, for use
// in a natural-reading doc sentence. None of the generators in this
// package call it.
func PackageDoc(table string) string {
	return inflect.Pluralize(strings.ToLower(table))
}
