// Package runnertest provides a scripted runner.Runner for tests.
package runnertest

import (
	"context"
	"strings"
	"sync"

	"github.com/eolab-hsrw/easypx4/internal/runner"
)

var _ runner.Runner = (*Recorder)(nil)

// Call is one recorded invocation.
type Call struct {
	Command runner.Command
	Options runner.Options
}

type response struct {
	prefix string
	result runner.Result
	hook   func(runner.Command)
}

// Recorder records commands and answers them with scripted results. Commands
// without a scripted result succeed with empty output.
type Recorder struct {
	mu        sync.Mutex
	calls     []Call
	responses []response
}

// On scripts the result for every command whose rendered form starts with prefix.
// Later registrations win.
func (r *Recorder) On(prefix string, result runner.Result) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{prefix: prefix, result: result})
	return r
}

// Do runs hook whenever a command matching prefix is run, e.g. to fake files the
// command would have produced.
func (r *Recorder) Do(prefix string, hook func(runner.Command)) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, response{prefix: prefix, hook: hook})
	return r
}

func (r *Recorder) Run(_ context.Context, cmd runner.Command, opts runner.Options) (runner.Result, error) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Command: cmd, Options: opts})
	rendered := cmd.String()
	var (
		result runner.Result
		hooks  []func(runner.Command)
		found  bool
	)
	for i := len(r.responses) - 1; i >= 0; i-- {
		resp := r.responses[i]
		if !strings.HasPrefix(rendered, resp.prefix) {
			continue
		}
		if resp.hook != nil {
			hooks = append(hooks, resp.hook)
			continue
		}
		if !found {
			result = resp.result
			found = true
		}
	}
	r.mu.Unlock()

	for _, hook := range hooks {
		hook(cmd)
	}
	if opts.Sink != nil && result.Stdout != "" {
		for _, line := range strings.Split(strings.TrimRight(result.Stdout, "\n"), "\n") {
			opts.Sink.Line(line)
		}
		opts.Sink.Done()
	}
	if opts.FailFast && result.Failed() {
		return result, &runner.FailFastError{Command: cmd, Result: result}
	}
	return result, nil
}

// Calls returns every recorded invocation.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Commands returns the rendered form of every recorded command.
func (r *Recorder) Commands() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.calls))
	for i, call := range r.calls {
		out[i] = call.Command.String()
	}
	return out
}

// Ran reports whether a command starting with prefix was recorded.
func (r *Recorder) Ran(prefix string) bool {
	for _, cmd := range r.Commands() {
		if strings.HasPrefix(cmd, prefix) {
			return true
		}
	}
	return false
}
