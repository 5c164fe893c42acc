package frontend

import (
	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/frontend/diagnostic"
)

// Program is a parsed DSL source: an unordered sequence of backend impls,
// tables and queries, per §6's grammar sketch.
type Program struct {
	Impls   []ImplDecl
	Tables  []TableDecl
	Queries []QueryDecl
}

// ImplDecl is a "impl Backend as Name { opts };" declaration. Options are
// kept as raw key/value pairs; lowering interprets only the
// "transactions" key.
type ImplDecl struct {
	Backend string
	Name    string
	Opts    map[string]string
	Span    diagnostic.Span
}

// TableDecl is a "table Name { field: type, ... } @[constraints];" decl.
type TableDecl struct {
	Name        string
	Fields      []FieldDecl
	Constraints []ConstraintDecl
	Span        diagnostic.Span
}

type FieldDecl struct {
	Name string
	Type string
	Span diagnostic.Span
}

// ConstraintKind tags a table-level constraint.
type ConstraintKind int

const (
	ConstraintUnique ConstraintKind = iota
	ConstraintPred
	ConstraintLimit
)

type ConstraintDecl struct {
	Kind   ConstraintKind
	Column string    // ConstraintUnique
	Expr   expr.Expr // ConstraintPred / ConstraintLimit
	Alias  string
	Span   diagnostic.Span
}

// QueryDecl is a "query Name(params) { stream; stream; }" declaration.
type QueryDecl struct {
	Name    string
	Params  []ParamDecl
	Streams []StreamDecl
	Span    diagnostic.Span
}

type ParamDecl struct {
	Name string
	Type string
	Span diagnostic.Span
}

// StreamDecl is one "op connector op connector op" chain terminated by ";".
type StreamDecl struct {
	Ops        []OpNode
	Connectors []ConnectorKind // len(Connectors) == len(Ops)-1
	Span       diagnostic.Span
}

type ConnectorKind int

const (
	ConnStream ConnectorKind = iota // |>
	ConnSingle                      // ~>
)

// OpKind tags the variant of one stream operator, the AST-level mirror of
// plan.OperatorKind plus the two purely-lexical binder forms (Let/Use)
// that §4.3's query pass resolves away into dataflow-edge wiring before
// any plan.Operator is ever inserted.
type OpKind int

const (
	OpRow OpKind = iota
	OpUse
	OpRef
	OpInsert
	OpUpdate
	OpDelete
	OpDeRef
	OpUnique
	OpMap
	OpFilter
	OpSort
	OpTake
	OpFold
	OpCollect
	OpGroupBy
	OpForEach
	OpJoin
	OpFork
	OpUnion
	OpLet
	OpReturn
)

// Assign is one "field = expr" binding inside row/map/fold/update.
type Assign struct {
	Field string
	Expr  expr.Expr
}

// OpNode is one stream operator, modeled as a single tagged-variant struct
// (rather than one Go type per kind) the way a hand-written recursive-
// descent parser's AST commonly stays flat; only the fields OpKind needs
// are meaningful on any given node.
type OpNode struct {
	Kind OpKind
	Span diagnostic.Span

	Assigns  []Assign // Row, Map, Fold(init), Update(mapping)
	FoldStep []Assign // Fold(step)

	Ident  string   // Use/Ref/Insert/Delete/DeRef/UniqueField/Sort/Let target, table name
	Idents []string // Use(tuple)/Fork/Union targets
	As     string   // "as" binding name

	Expr expr.Expr // Filter predicate, Take limit

	SortDesc bool

	CollectType string // collect(_ as type Foo)

	JoinKind  int // mirrors plan.JoinKind once resolved; parser stores the keyword
	JoinOther string

	InnerVar     string // groupby/foreach bound variable
	InnerStreams []StreamDecl
}
