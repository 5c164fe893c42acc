package plan

import "github.com/syssam/emdb/expr"

// Column is one declared column of a Table: a name and its scalar type.
type Column struct {
	Name string
	Type ScalarKey
}

// Predicate is a row-level "pred(e) as alias" constraint: e must hold for
// every live row, enforced on insert and on any update that could change
// its truth.
type Predicate struct {
	Expr  expr.Expr
	Alias string
}

// Limit is a row-level "limit(e) as alias" constraint: an insert is
// rejected once the table holds e live rows.
type Limit struct {
	Expr  expr.Expr
	Alias string
}

// Unique is a column-level "unique(col) as alias" constraint.
type Unique struct {
	Column string
	Alias  string
}

// Table is the spec's declared table: its columns plus row- and
// column-level constraints. Deletions is filled in by the frontend's query
// pass once every query referencing the table has been walked (the table
// composer needs to know, for the whole plan, not just the table
// declaration, whether any Delete operator ever targets this table — see
// plan.Table.Composition in the pulpit package). Transactional is filled
// in by the frontend's impl pass, which reads every "impl ... { opts };"
// declaration in the program.
type Table struct {
	Name    string
	Columns []Column

	Predicates []Predicate
	Limits     []Limit
	Uniques    []Unique

	// Deletions is true if any Delete operator in the plan targets this
	// table.
	Deletions bool
	// Transactional is true if any impl block's options (or the emdbc.toml
	// config, applied as an override by cmd/emdbc) enable transaction
	// logging.
	Transactional bool
	// Mutated holds the set of column names written by any Update
	// operator targeting this table — the "M" set of §4.4's composer
	// rules.
	Mutated map[string]bool
}

// ColumnIndex returns the position of a column by name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

// ColumnNames returns the declared column names in order.
func (t *Table) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// UniqueByColumn returns the Unique constraint on a column, if any.
func (t *Table) UniqueByColumn(name string) (Unique, bool) {
	for _, u := range t.Uniques {
		if u.Column == name {
			return u, true
		}
	}
	return Unique{}, false
}

// UniqueByAlias returns the Unique constraint with the given alias.
func (t *Table) UniqueByAlias(alias string) (Unique, bool) {
	for _, u := range t.Uniques {
		if u.Alias == alias {
			return u, true
		}
	}
	return Unique{}, false
}

// AllMutable reports whether every declared column is in the Mutated set
// (the "I \ M is empty" condition of the composer's rule 2).
func (t *Table) AllMutable() bool {
	if len(t.Mutated) == 0 {
		return len(t.Columns) == 0
	}
	for _, c := range t.Columns {
		if !t.Mutated[c.Name] {
			return false
		}
	}
	return true
}
