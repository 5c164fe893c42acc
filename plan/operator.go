package plan

import (
	"github.com/syssam/emdb/expr"
	"github.com/syssam/emdb/frontend/diagnostic"
)

// OperatorKey references an Operator in a Plan's operator arena.
type OperatorKey = Key[Operator]

// EdgeKey references a DataflowEdge in a Plan's edge arena.
type EdgeKey = Key[DataflowEdge]

// ContextKey references a Context in a Plan's context arena.
type ContextKey = Key[Context]

// QueryKey references a Query in a Plan's query arena.
type QueryKey = Key[Query]

// OperatorKind tags the variant of an Operator, the full closed set named
// in §3/§4.2 of the spec.
type OperatorKind int

const (
	OpRow OperatorKind = iota
	OpInsert
	OpUpdate
	OpDelete
	OpUniqueRef
	OpScanRefs
	OpDeRef
	OpMap
	OpExpand
	OpFold
	OpFilter
	OpSort
	OpAssert
	OpTake
	OpCollect
	OpGroupBy
	OpForEach
	OpJoin
	OpFork
	OpUnion
	OpReturn
	OpDiscard
)

func (k OperatorKind) String() string {
	names := [...]string{
		"Row", "Insert", "Update", "Delete", "UniqueRef", "ScanRefs", "DeRef",
		"Map", "Expand", "Fold", "Filter", "Sort", "Assert", "Take", "Collect",
		"GroupBy", "ForEach", "Join", "Fork", "Union", "Return", "Discard",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "?"
}

// FieldAssign is one "field = expr" binding, used by Row, Map, Update's
// mapping, and Fold's init/step.
type FieldAssign struct {
	Field string
	Type  ScalarKey
	Expr  expr.Expr
}

// SortKey is one comparison key of a Sort operator.
type SortKey struct {
	Field string
	Desc  bool
}

// JoinKind is the kind of a Join operator.
type JoinKind int

const (
	JoinInner JoinKind = iota
	JoinLeftOuter
	JoinCross
	JoinEqui
)

// EquiField pairs a left and right field name compared by an equi-join.
type EquiField struct {
	Left, Right string
}

// Operator payload types. Exactly one is meaningful per Operator, selected
// by its Kind; modeled as separate structs (rather than one struct with
// every field) per the design note in §9: "model it as a tagged variant
// rather than a trait-object hierarchy".

type RowPayload struct{ Fields []FieldAssign }
type InsertPayload struct{ Table TableKey }
type UpdatePayload struct {
	Table   TableKey
	Mapping []FieldAssign
}
type DeletePayload struct{ Table TableKey }
type UniqueRefPayload struct {
	Table TableKey
	Field string
}
type ScanRefsPayload struct{ Table TableKey }
type DeRefPayload struct {
	KeyField string
	As       string
	Subset   []string // empty means "all fields"
}
type MapPayload struct{ Fields []FieldAssign }
type ExpandPayload struct{ Fields []FieldAssign }
type FoldPayload struct {
	Init []FieldAssign
	Step []FieldAssign
}
type FilterPayload struct{ Predicate expr.Expr }
type SortPayload struct{ Keys []SortKey }
type AssertPayload struct{ Predicate expr.Expr }
type TakePayload struct{ Limit expr.Expr }
type CollectPayload struct{ As string }
type GroupByPayload struct {
	KeyField string
	Inner    ContextKey
}
type ForEachPayload struct{ Inner ContextKey }
type JoinPayload struct {
	Kind      JoinKind
	Predicate expr.Expr
	Equi      []EquiField
}
type ForkPayload struct{ Outputs []string }
type UnionPayload struct{}
type ReturnPayload struct{}
type DiscardPayload struct{}

// Operator is one node of the dataflow graph. Payload holds one of the
// *Payload structs above, selected by Kind.
type Operator struct {
	Kind    OperatorKind
	Span    diagnostic.Span
	Context ContextKey
	Inputs  []EdgeKey
	Outputs []EdgeKey
	Payload any
}
