package pulpit

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/emdb/plan"
)

func tableSchema(deletions bool, mutated ...string) *plan.Table {
	m := make(map[string]bool, len(mutated))
	for _, f := range mutated {
		m[f] = true
	}
	return &plan.Table{
		Name:      "widgets",
		Columns:   []plan.Column{{Name: "id"}, {Name: "name"}, {Name: "stock"}},
		Deletions: deletions,
		Mutated:   m,
	}
}

func TestChooseAppendOnly(t *testing.T) {
	assert.Equal(t, CompAppendOnly, Choose(tableSchema(false)))
	assert.Equal(t, CompAppendOnly, Choose(tableSchema(false, "stock")))
}

func TestChooseFullArena(t *testing.T) {
	assert.Equal(t, CompFullArena, Choose(tableSchema(true, "id", "name", "stock")))
}

func TestChooseRetainSplit(t *testing.T) {
	assert.Equal(t, CompRetainSplit, Choose(tableSchema(true, "stock")))
}

func TestPartitionColumns(t *testing.T) {
	im, mu := partitionColumns(tableSchema(true, "stock"))
	assert.Equal(t, []string{"id", "name"}, im)
	assert.Equal(t, []string{"stock"}, mu)
}
