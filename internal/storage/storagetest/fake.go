// Package storagetest provides an in-memory storage.Storage for handler tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aanand-mishra/records-api/internal/storage"
	"github.com/aanand-mishra/records-api/internal/types"
)

// Call is one recorded statement execution.
type Call struct {
	Stmt storage.Statement
	Args []any
}

// Fake answers each statement from a canned response.
type Fake struct {
	mu      sync.Mutex
	rows    map[storage.Statement][]types.Row
	results map[storage.Statement]types.Result
	errs    map[storage.Statement]error
	calls   []Call
	PingErr error
}

var _ storage.Storage = (*Fake)(nil)

func New() *Fake {
	return &Fake{
		rows:    map[storage.Statement][]types.Row{},
		results: map[storage.Statement]types.Result{},
		errs:    map[storage.Statement]error{},
	}
}

// Rows sets the result set returned for stmt.
func (f *Fake) Rows(stmt storage.Statement, rows ...types.Row) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[stmt] = rows
	return f
}

// Result sets the outcome returned for stmt.
func (f *Fake) Result(stmt storage.Statement, res types.Result) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[stmt] = res
	return f
}

// Fail makes stmt return err.
func (f *Fake) Fail(stmt storage.Statement, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[stmt] = err
	return f
}

// Calls returns a copy of every recorded call.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Last returns the most recent call for stmt.
func (f *Fake) Last(stmt storage.Statement) (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Stmt == stmt {
			return f.calls[i], true
		}
	}
	return Call{}, false
}

func (f *Fake) record(stmt storage.Statement, args []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Stmt: stmt, Args: args})
	return f.errs[stmt]
}

func (f *Fake) Query(ctx context.Context, stmt storage.Statement, args ...any) ([]types.Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.record(stmt, args); err != nil {
		return nil, fmt.Errorf("fake query %s: %w", stmt, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]types.Row, 0, len(f.rows[stmt]))
	for _, r := range f.rows[stmt] {
		cp := make(types.Row, len(r))
		for k, v := range r {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out, nil
}

func (f *Fake) Exec(ctx context.Context, stmt storage.Statement, args ...any) (types.Result, error) {
	if err := ctx.Err(); err != nil {
		return types.Result{}, err
	}
	if err := f.record(stmt, args); err != nil {
		return types.Result{}, fmt.Errorf("fake exec %s: %w", stmt, err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.results[stmt], nil
}

func (f *Fake) Ping(context.Context) error { return f.PingErr }

func (f *Fake) Close() error { return nil }
