package frontend

import (
	"github.com/google/uuid"

	"github.com/syssam/emdb/plan"
)

// FreshField mints a RecordField in the internal identifier space, used
// wherever lowering needs a name that cannot collide with anything a DSL
// author could type — e.g. naming the nested Context a GroupBy/ForEach
// instantiates, since two sibling group-bys keyed on the same field would
// otherwise produce identically-named contexts.
func FreshField() plan.RecordField {
	return plan.RecordField{Internal: uuid.NewString()}
}
