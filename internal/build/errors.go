package build

import (
	"errors"
	"fmt"
	"strings"
)

// ErrComponentsDirRequired is returned when the descriptor declares components but
// no components directory was given.
var ErrComponentsDirRequired = errors.New("descriptor declares components but no components directory was provided")

// BuildError describes a failed stage of the run together with the output of the
// tool that failed.
type BuildError struct {
	Stage   Stage
	Message string
	Output  string
	Err     error
}

func (e *BuildError) Error() string {
	msg := e.Message
	if e.Stage != "" {
		msg = fmt.Sprintf("%s: %s", e.Stage, msg)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	} else if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// ComponentsError lists declared components missing from the components directory.
type ComponentsError struct {
	Missing []string
	Dir     string
}

func (e *ComponentsError) Error() string {
	return fmt.Sprintf("missing components %s in %s", strings.Join(e.Missing, ", "), e.Dir)
}
