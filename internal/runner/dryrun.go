package runner

import (
	"context"
	"log/slog"
	"sync"

	"github.com/eolab-hsrw/easypx4/internal/logging"
)

var _ Runner = (*DryRun)(nil)

// DryRun logs commands instead of running them. Every command succeeds with
// empty output.
type DryRun struct {
	Logger *slog.Logger

	mu       sync.Mutex
	commands []Command
}

func (d *DryRun) Run(_ context.Context, cmd Command, _ Options) (Result, error) {
	d.mu.Lock()
	d.commands = append(d.commands, cmd)
	d.mu.Unlock()

	logging.Ensure(d.Logger).Info("dry run: skipping command", "command", cmd.String(), "dir", cmd.Dir)
	return Result{}, nil
}

// Commands returns the commands seen so far.
func (d *DryRun) Commands() []Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Command(nil), d.commands...)
}
