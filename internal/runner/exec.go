package runner

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os/exec"
	"strings"
)

var _ Runner = Exec{}

// tailLines is the number of live output lines kept in Result.Stdout.
const tailLines = 200

// Exec runs commands as child processes. The zero value is ready to use and
// safe for concurrent use.
type Exec struct {
	// Env is appended to the inherited environment when non-empty.
	Env []string
}

// Run executes cmd and waits for it to exit. A non-zero exit code is reported in
// the Result; an error is only returned for FailFast commands.
func (e Exec) Run(ctx context.Context, cmd Command, opts Options) (Result, error) {
	if len(cmd.Args) == 0 {
		return checkFailFast(cmd, opts, Result{ExitCode: -1, Error: "no command provided"})
	}

	proc := exec.CommandContext(ctx, cmd.Args[0], cmd.Args[1:]...)
	proc.Dir = cmd.Dir
	if len(e.Env) > 0 {
		proc.Env = append(proc.Environ(), e.Env...)
	}

	var result Result
	if opts.Live {
		result = runLive(proc, opts.Sink)
	} else {
		result = runCaptured(proc)
	}
	return checkFailFast(cmd, opts, result)
}

func runCaptured(proc *exec.Cmd) Result {
	var stdout, stderr bytes.Buffer
	proc.Stdout = &stdout
	proc.Stderr = &stderr

	err := proc.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	result.ExitCode, result.Error = exitStatus(err)
	return result
}

func runLive(proc *exec.Cmd, sink LineSink) Result {
	stdout, err := proc.StdoutPipe()
	if err != nil {
		return Result{ExitCode: -1, Error: err.Error()}
	}
	proc.Stderr = proc.Stdout

	if err := proc.Start(); err != nil {
		return Result{ExitCode: -1, Error: err.Error()}
	}

	tail := make([]string, 0, tailLines)
	reader := bufio.NewReader(stdout)
	for {
		line, readErr := reader.ReadString('\n')
		if line != "" {
			line = strings.TrimRight(line, "\r\n")
			if sink != nil {
				sink.Line(line)
			}
			if len(tail) == tailLines {
				tail = tail[1:]
			}
			tail = append(tail, line)
		}
		if readErr != nil {
			if !errors.Is(readErr, io.EOF) {
				tail = append(tail, readErr.Error())
			}
			break
		}
	}
	if sink != nil {
		sink.Done()
	}

	result := Result{Stdout: strings.Join(tail, "\n")}
	result.ExitCode, result.Error = exitStatus(proc.Wait())
	return result
}

func exitStatus(err error) (int, string) {
	if err == nil {
		return 0, ""
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if code := exitErr.ExitCode(); code >= 0 {
			return code, ""
		}
		// killed by a signal
		return -1, exitErr.Error()
	}
	return -1, err.Error()
}
