// Package muxtest provides a scripted mux.Runner for tests.
package muxtest

import (
	"context"
	"strings"
	"sync"
)

// Runner records every command it is asked to run and answers with
// scripted exit statuses. Commands without a script exit 0.
type Runner struct {
	mu      sync.Mutex
	calls   [][]string
	scripts map[string][]int
	errs    map[string]error
	hook    func(call int, argv []string)
}

// NewRunner returns an empty Runner.
func NewRunner() *Runner {
	return &Runner{
		scripts: make(map[string][]int),
		errs:    make(map[string]error),
	}
}

// Key joins argv the way scripts are looked up.
func Key(argv ...string) string {
	return strings.Join(argv, " ")
}

// Script makes successive runs of argv exit with the given statuses.
// Once the script is used up the last status repeats.
func (r *Runner) Script(argv []string, statuses ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scripts[Key(argv...)] = append([]int(nil), statuses...)
}

// Fail makes every run of argv return err instead of a status.
func (r *Runner) Fail(argv []string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs[Key(argv...)] = err
}

// OnRun registers a function called before each run with the 1-based call
// number across all commands.
func (r *Runner) OnRun(fn func(call int, argv []string)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hook = fn
}

// Run implements mux.Runner.
func (r *Runner) Run(_ context.Context, name string, args ...string) (int, error) {
	argv := append([]string{name}, args...)

	r.mu.Lock()
	r.calls = append(r.calls, argv)
	n := len(r.calls)
	hook := r.hook
	k := Key(argv...)
	err := r.errs[k]
	status := 0
	if seq := r.scripts[k]; len(seq) > 0 {
		status = seq[0]
		if len(seq) > 1 {
			r.scripts[k] = seq[1:]
		}
	}
	r.mu.Unlock()

	if hook != nil {
		hook(n, argv)
	}
	if err != nil {
		return -1, err
	}
	return status, nil
}

// Calls returns a copy of every recorded argv, in order.
func (r *Runner) Calls() [][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]string, len(r.calls))
	for i, c := range r.calls {
		out[i] = append([]string(nil), c...)
	}
	return out
}

// Count returns how many times argv was run.
func (r *Runner) Count(argv ...string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := Key(argv...)
	n := 0
	for _, c := range r.calls {
		if Key(c...) == k {
			n++
		}
	}
	return n
}
