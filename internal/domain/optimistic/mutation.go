// Package optimistic applies a change before the server confirms it and
// undoes it when the confirming request fails.
package optimistic

import (
	"context"
	"errors"
	"fmt"
)

// Outcome of an optimistic mutation once the backing request settles.
type Outcome int

const (
	Ok Outcome = iota
	Failed
)

func (o Outcome) String() string {
	if o == Ok {
		return "ok"
	}
	return "failed"
}

// Result is what Run returns; Err is set only when Outcome is Failed.
type Result struct {
	Outcome Outcome
	Err     error
}

func (r Result) OK() bool { return r.Outcome == Ok }

// ErrNoRequest is returned when a Mutation has nothing to confirm it.
var ErrNoRequest = errors.New("optimistic mutation has no request")

// Mutation bundles the three steps of an optimistic update. Apply and
// Rollback must be each other's inverse; Request records the change remotely.
type Mutation struct {
	Apply    func()
	Request  func(ctx context.Context) error
	Rollback func()
}

// Run applies the mutation, issues the request and rolls back on failure.
// There is no retry. A request that panics is treated as failed.
func Run(ctx context.Context, m Mutation) (result Result) {
	if m.Request == nil {
		return Result{Outcome: Failed, Err: ErrNoRequest}
	}

	if m.Apply != nil {
		m.Apply()
	}

	defer func() {
		if r := recover(); r != nil {
			if m.Rollback != nil {
				m.Rollback()
			}
			result = Result{Outcome: Failed, Err: fmt.Errorf("optimistic request panicked: %v", r)}
		}
	}()

	if err := m.Request(ctx); err != nil {
		if m.Rollback != nil {
			m.Rollback()
		}
		return Result{Outcome: Failed, Err: err}
	}
	return Result{Outcome: Ok}
}
