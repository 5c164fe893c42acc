package plan

import "fmt"

// ScalarKey references a ScalarType in a Plan's scalar-type arena.
type ScalarKey = Key[ScalarType]

// RecordKey references a RecordType in a Plan's record-type arena.
type RecordKey = Key[RecordType]

// TableKey references a Table in a Plan's table arena.
type TableKey = Key[Table]

// ScalarKind tags the variant of a ScalarType.
type ScalarKind int

const (
	// ScalarGo is a concrete Go type, the equivalent of the spec's
	// Rust(opaque-type-token): a scalar backed directly by a host-language
	// type rather than by another plan entity.
	ScalarGo ScalarKind = iota
	// ScalarTableRef is a key into another (or the same) table.
	ScalarTableRef
	// ScalarRecord is exactly one record of a given RecordType.
	ScalarRecord
	// ScalarBag is the materialized-stream type produced by Collect.
	ScalarBag
	// ScalarRef points at another ScalarType, resolved via ResolveScalar.
	ScalarRef
)

// ScalarType is the spec's "Scalar type": either one of the four concrete
// variants or a Ref indirection. Only one of the payload fields is
// meaningful, selected by Kind.
type ScalarType struct {
	Kind   ScalarKind
	GoType string     // ScalarGo: a Go type expression, e.g. "string", "int64", "time.Time"
	Table  TableKey   // ScalarTableRef
	Record RecordKey  // ScalarRecord / ScalarBag
	Ref    ScalarKey  // ScalarRef
}

// IsConcrete reports whether t is not a Ref indirection.
func (t ScalarType) IsConcrete() bool { return t.Kind != ScalarRef }

func (t ScalarType) String() string {
	switch t.Kind {
	case ScalarGo:
		return t.GoType
	case ScalarTableRef:
		return fmt.Sprintf("ref(%s)", t.Table)
	case ScalarRecord:
		return fmt.Sprintf("record(%s)", t.Record)
	case ScalarBag:
		return fmt.Sprintf("bag(%s)", t.Record)
	case ScalarRef:
		return fmt.Sprintf("ref->(%s)", t.Ref)
	default:
		return "?"
	}
}

// RecordField names one field of a RecordType. User-supplied fields carry
// a plain Name; internally-generated fields carry a non-empty Internal tag
// instead, minted from a uuid so the internal identifier space never
// collides with a user-chosen one (see frontend.FreshField, which lowering
// uses to name the nested GroupBy/ForEach contexts).
type RecordField struct {
	Name     string
	Internal string
}

func (f RecordField) String() string {
	if f.Internal != "" {
		return f.Internal
	}
	return f.Name
}

// RecordKind tags the variant of a RecordType.
type RecordKind int

const (
	RecordConcrete RecordKind = iota
	RecordRef
)

// RecordType is the spec's "Record type": either a concrete mapping from
// RecordField to ScalarKey (field order preserved for deterministic code
// emission) or a Ref indirection.
type RecordType struct {
	Kind RecordKind

	// Concrete only:
	FieldOrder []RecordField
	Fields     map[RecordField]ScalarKey

	// Ref only:
	Ref RecordKey

	// Name, if non-empty, is a user-assigned nominal alias introduced by
	// collect(_ as type Foo). Two distinct RecordKeys may carry the same
	// structural Fields but different Names; structural sharing happens
	// at hash-consing time in the frontend, not here.
	Name string
}

// FieldType looks up the ScalarKey for a user-named field of a concrete
// record.
func (r *RecordType) FieldType(name string) (ScalarKey, bool) {
	k, ok := r.Fields[RecordField{Name: name}]
	return k, ok
}
