// Package enginetest provides a scripted Engine fake for package tests.
package enginetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// Response scripts the fake's reaction to queries containing Match.
type Response struct {
	// Match is a substring looked up against the incoming query text.
	Match string
	// Rows is returned by Query; the first cell also feeds the scalar calls.
	Rows [][]string
	// Scalar is returned by ScalarInt64 when set.
	Scalar int64
	// Err fails the call when set.
	Err error
	// Hook runs on match, for scripting statement side effects such as
	// COPY writing a file.
	Hook func(query string)
}

// Fake is a scripted Engine. Queries are matched against responses in
// registration order; unmatched queries succeed with empty results so DDL
// statements pass through without scripting.
type Fake struct {
	mu        sync.Mutex
	responses []Response
	executed  []string
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{}
}

// Script appends a response rule.
func (f *Fake) Script(r Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses = append(f.responses, r)
	return f
}

// Executed returns every statement the fake has seen, in order.
func (f *Fake) Executed() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.executed))
	copy(out, f.executed)
	return out
}

// ExecutedMatching returns executed statements containing the substring.
func (f *Fake) ExecutedMatching(sub string) []string {
	var out []string
	for _, q := range f.Executed() {
		if strings.Contains(q, sub) {
			out = append(out, q)
		}
	}
	return out
}

func (f *Fake) record(query string) *Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.executed = append(f.executed, query)
	for i := range f.responses {
		if strings.Contains(query, f.responses[i].Match) {
			if f.responses[i].Hook != nil {
				f.responses[i].Hook(query)
			}
			return &f.responses[i]
		}
	}
	return nil
}

func (f *Fake) Exec(ctx context.Context, query string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r := f.record(query); r != nil {
		return r.Err
	}
	return nil
}

func (f *Fake) Query(ctx context.Context, query string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r := f.record(query); r != nil {
		return r.Rows, r.Err
	}
	return nil, nil
}

func (f *Fake) ScalarInt64(ctx context.Context, query string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if r := f.record(query); r != nil {
		return r.Scalar, r.Err
	}
	return 0, nil
}

func (f *Fake) ScalarString(ctx context.Context, query string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if r := f.record(query); r != nil {
		if r.Err != nil {
			return "", r.Err
		}
		if len(r.Rows) > 0 && len(r.Rows[0]) > 0 {
			return r.Rows[0][0], nil
		}
		return "", nil
	}
	return "", nil
}

// String renders the scripted state for debugging.
func (f *Fake) String() string {
	return fmt.Sprintf("enginetest.Fake{%d responses, %d executed}", len(f.responses), len(f.executed))
}
