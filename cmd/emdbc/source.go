package main

import (
	"fmt"
	"os"

	"github.com/syssam/emdb/frontend"
	"github.com/syssam/emdb/frontend/diagnostic"
	"github.com/syssam/emdb/plan"
)

// compile reads path, parses it, and lowers it to a sealed plan. A
// non-empty diagnostic.List with HasErrors true means p is nil; a
// diagnostic.List may still carry warnings/notes even when p is non-nil.
func compile(path string) (*plan.Plan, diagnostic.List, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("emdbc: read %q: %w", path, err)
	}

	parser, err := frontend.NewParser(path, string(src))
	if err != nil {
		return nil, nil, fmt.Errorf("emdbc: %w", err)
	}
	prog, err := parser.ParseProgram()
	if err != nil {
		return nil, nil, fmt.Errorf("emdbc: %w", err)
	}

	p, diags := frontend.Lower(prog)
	return p, diags, nil
}

func findQuery(p *plan.Plan, name string) (plan.QueryKey, bool) {
	for k, q := range p.Queries.All() {
		if q.Name == name {
			return k, true
		}
	}
	return plan.QueryKey{}, false
}
