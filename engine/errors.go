package engine

import (
	"errors"
	"fmt"
)

// QueryError wraps a failure from any operator reached while running a
// query: the §7 "per-query error enum that unions the per-table errors
// reachable from that query's operators," realized in Go as one wrapped
// struct rather than a generated union type.
type QueryError struct {
	Query    string
	Operator string
	Err      error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("engine: query %q: %s: %v", e.Query, e.Operator, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

func wrapErr(query, op string, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return err
	}
	return &QueryError{Query: query, Operator: op, Err: err}
}
