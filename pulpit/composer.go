package pulpit

import "github.com/syssam/emdb/plan"

// Composition names which of §4.4's three composer rules a Table uses.
type Composition int

const (
	// CompAppendOnly is rule 1: no Delete anywhere touches this table, so
	// an AppendAdapter primary plus one associated column (FixedBlocks by
	// default, ContigVec if Compact) holds every column.
	CompAppendOnly Composition = iota
	// CompFullArena is rule 2: every declared column is in the mutated
	// set, so a single GenArena holds the whole row.
	CompFullArena
	// CompRetainSplit is rule 3: the table has both deletions and an
	// immutable partition, so a BlocksWithFree holds the immutable
	// columns and a GenArena (keyed the same) holds the mutable ones.
	CompRetainSplit
)

// Options configures a Table's physical layout beyond what's derivable
// from the plan alone.
type Options struct {
	// Compact requests ContigVec instead of FixedBlocks for the
	// append-only composition's associated column: cheaper scans, no
	// pointer-stable borrows. Only consulted when Composition works out
	// to CompAppendOnly.
	Compact bool
	// Transactional enables the per-table transaction log.
	Transactional bool
}

// Choose applies §4.4's composer rules to a plan.Table and returns which
// Composition to build.
func Choose(t *plan.Table) Composition {
	switch {
	case !t.Deletions:
		return CompAppendOnly
	case t.AllMutable():
		return CompFullArena
	default:
		return CompRetainSplit
	}
}

// partitionColumns splits a table's declared columns into the immutable
// and mutable partitions CompRetainSplit needs.
func partitionColumns(t *plan.Table) (immutable, mutable []string) {
	for _, c := range t.Columns {
		if t.Mutated[c.Name] {
			mutable = append(mutable, c.Name)
		} else {
			immutable = append(immutable, c.Name)
		}
	}
	return
}
