package pulpit

import (
	"errors"
	"fmt"
)

// Sentinel errors, following the teacher's errors.go convention: a
// sentinel var per error family plus a *XError struct that satisfies
// errors.Is(err, ErrX) through an Is method, so callers may match either
// loosely (errors.Is(err, pulpit.ErrNotFound)) or precisely
// (errors.As(err, &notFound)).
var (
	ErrKey        = errors.New("pulpit: stale or unknown key")
	ErrUnique     = errors.New("pulpit: unique constraint violated")
	ErrPredicate  = errors.New("pulpit: row predicate violated")
	ErrLimit      = errors.New("pulpit: row limit reached")
	ErrNotFound   = errors.New("pulpit: no row for that unique value")
)

// KeyError reports a stale or unknown RowKey, e.g. Get/Borrow/Delete/DeRef
// against a key whose row has since been deleted (Update reports a stale
// key as an UpdateError instead).
type KeyError struct {
	Table string
	Key   RowKey
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("pulpit: %s: no live row for %s", e.Table, e.Key)
}

func (e *KeyError) Is(target error) bool { return target == ErrKey }

// InsertError reports why an Insert was rejected.
type InsertError struct {
	Table string
	Kind  InsertErrorKind
	Alias string // constraint alias, for Unique/Predicate/Limit
}

// InsertErrorKind distinguishes the three ways an Insert can fail, per §4.2.
type InsertErrorKind int

const (
	InsertErrUnique InsertErrorKind = iota
	InsertErrPredicate
	InsertErrLimit
)

func (e *InsertError) Error() string {
	switch e.Kind {
	case InsertErrUnique:
		return fmt.Sprintf("pulpit: %s: unique constraint %q violated", e.Table, e.Alias)
	case InsertErrPredicate:
		return fmt.Sprintf("pulpit: %s: predicate %q violated", e.Table, e.Alias)
	case InsertErrLimit:
		return fmt.Sprintf("pulpit: %s: limit %q reached", e.Table, e.Alias)
	default:
		return fmt.Sprintf("pulpit: %s: insert failed", e.Table)
	}
}

func (e *InsertError) Is(target error) bool {
	switch e.Kind {
	case InsertErrUnique:
		return target == ErrUnique
	case InsertErrPredicate:
		return target == ErrPredicate
	case InsertErrLimit:
		return target == ErrLimit
	}
	return false
}

// UpdateError reports why an Update was rejected. It shares the same
// constraint-violation shape as InsertError (a predicate re-checked after
// mutation can fail the same way an insert's initial check can) plus the
// stale-key case.
type UpdateError struct {
	Table string
	Kind  UpdateErrorKind
	Alias string
}

type UpdateErrorKind int

const (
	UpdateErrKey UpdateErrorKind = iota
	UpdateErrPredicate
)

func (e *UpdateError) Error() string {
	if e.Kind == UpdateErrKey {
		return fmt.Sprintf("pulpit: %s: no live row to update", e.Table)
	}
	return fmt.Sprintf("pulpit: %s: predicate %q violated on update", e.Table, e.Alias)
}

func (e *UpdateError) Is(target error) bool {
	if e.Kind == UpdateErrKey {
		return target == ErrKey
	}
	return target == ErrPredicate
}

// NotFoundError reports a unique-index lookup that found no row.
type NotFoundError struct {
	Table string
	Alias string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("pulpit: %s: no row with that value of %q", e.Table, e.Alias)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
