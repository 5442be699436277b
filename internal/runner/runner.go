// Package runner executes external commands (git, make, setup scripts) and reports
// their outcome as a Result instead of an error, leaving the exit code policy to the
// caller.
package runner

import (
	"context"
	"fmt"
	"strings"
)

// Command is an argument vector and the directory it runs in.
type Command struct {
	Args []string
	Dir  string
}

// Split turns a plain command string into an argument vector by splitting on
// whitespace. No quoting rules apply.
func Split(command string) []string {
	return strings.Fields(command)
}

// String renders the command for logs.
func (c Command) String() string {
	return strings.Join(c.Args, " ")
}

// LineSink receives streamed output lines of a live command.
type LineSink interface {
	Line(line string)
	Done()
}

// Options control how a command is run.
type Options struct {
	// Live merges stderr into stdout and streams it line by line to Sink.
	Live bool
	// FailFast turns a non-zero exit code into a *FailFastError.
	FailFast bool
	Sink     LineSink
}

// Result is the outcome of a finished command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
	// Error describes a failure to launch or wait for the process.
	Error string
}

// Failed reports whether the command did not exit cleanly.
func (r Result) Failed() bool {
	return r.ExitCode != 0
}

// Output returns everything the command printed, for diagnostics.
func (r Result) Output() string {
	parts := make([]string, 0, 3)
	for _, part := range []string{r.Stdout, r.Stderr, r.Error} {
		if s := strings.TrimSpace(part); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// Runner runs external commands.
type Runner interface {
	Run(ctx context.Context, cmd Command, opts Options) (Result, error)
}

// FailFastError is returned when a command run with Options.FailFast exits non-zero.
type FailFastError struct {
	Command Command
	Result  Result
}

func (e *FailFastError) Error() string {
	msg := fmt.Sprintf("%s: exit code %d", e.Command, e.Result.ExitCode)
	if out := e.Result.Output(); out != "" {
		msg += ": " + out
	}
	return msg
}

func checkFailFast(cmd Command, opts Options, result Result) (Result, error) {
	if opts.FailFast && result.Failed() {
		return result, &FailFastError{Command: cmd, Result: result}
	}
	return result, nil
}
