// Package vcs drives git in the PX4 checkout: it moves the working tree to the
// requested upstream version, renames the version tag so the PX4 build system embeds
// the custom version, and restores the tag namespace afterwards.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/eolab-hsrw/easypx4/internal/descriptor"
	"github.com/eolab-hsrw/easypx4/internal/logging"
	"github.com/eolab-hsrw/easypx4/internal/runner"
)

// StepError names the git step that failed.
type StepError struct {
	Step   string
	Hint   string
	Result runner.Result
	Err    error
}

func (e *StepError) Error() string {
	msg := e.Step + " failed"
	if e.Hint != "" {
		msg += " (" + e.Hint + ")"
	}
	if e.Err != nil {
		var ff *runner.FailFastError
		if !errors.As(e.Err, &ff) {
			return msg + ": " + e.Err.Error()
		}
	}
	if out := e.Result.Output(); out != "" {
		msg += ": " + out
	}
	return msg
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Controller runs git inside Dir.
type Controller struct {
	Dir    string
	Runner runner.Runner
	Logger *slog.Logger
	// StrictSubmodules turns submodule sync failures into hard errors.
	StrictSubmodules bool
	// DryRun is set when Runner only logs commands. Revisions then resolve to a
	// placeholder instead of failing on the empty output.
	DryRun bool
}

// Prepare checks out the version named by d and tags its commit with the custom
// version. The returned TagState must be passed to Restore.
func (c *Controller) Prepare(ctx context.Context, d descriptor.Descriptor) (TagState, error) {
	logger := c.logger()

	// edits left by an earlier run would block the checkout
	if _, err := c.mustGit(ctx, "restore working tree", "", "restore", "."); err != nil {
		return TagState{}, err
	}

	logger.Info("fetching tags")
	if _, err := c.mustGit(ctx, "fetch tags", "check network access to the remote", "fetch", "--tags", "--force"); err != nil {
		return TagState{}, err
	}

	original, target := ComposeTags(d)
	state := TagState{OriginalTag: original, TargetTag: target}
	if d.PX4Commit != "" {
		state.OriginalTag = d.PX4Commit
		state.FromCommit = true
	}

	logger.Info("checking out", "ref", state.OriginalTag)
	if _, err := c.mustGit(ctx, "checkout "+state.OriginalTag, "verify the tag/commit is valid", "checkout", state.OriginalTag); err != nil {
		return TagState{}, err
	}

	if err := c.syncSubmodules(ctx); err != nil {
		return TagState{}, err
	}

	hash, err := c.ResolveTag(ctx, state.OriginalTag)
	if err != nil {
		return TagState{}, err
	}
	state.CommitHash = hash

	if !state.Renamed() {
		logger.Info("building tag as is", "tag", state.TargetTag, "commit", hash)
		return state, nil
	}

	if err := c.dropStaleTag(ctx, state.TargetTag); err != nil {
		return TagState{}, err
	}
	if !state.FromCommit {
		if _, err := c.mustGit(ctx, "delete tag "+state.OriginalTag, "", "tag", "-d", state.OriginalTag); err != nil {
			return TagState{}, err
		}
	}
	if _, err := c.mustGit(ctx, "create tag "+state.TargetTag, "", "tag", state.TargetTag, hash); err != nil {
		// put the original tag back so the checkout is left as it was found
		if !state.FromCommit {
			_, _ = c.git(ctx, runner.Options{}, "tag", state.OriginalTag, hash)
		}
		return TagState{}, err
	}
	logger.Info("tagged build commit", "from", state.OriginalTag, "to", state.TargetTag, "commit", hash)
	return state, nil
}

// Restore undoes the tag rename performed by Prepare. The checkout and submodules
// are left untouched.
func (c *Controller) Restore(ctx context.Context, state TagState) error {
	if !state.Renamed() {
		return nil
	}
	logger := c.logger()

	if _, err := c.mustGit(ctx, "delete tag "+state.TargetTag, "", "tag", "-d", state.TargetTag); err != nil {
		return err
	}
	if state.FromCommit {
		logger.Info("removed build tag", "tag", state.TargetTag)
		return nil
	}
	if _, err := c.mustGit(ctx, "recreate tag "+state.OriginalTag, "", "tag", state.OriginalTag, state.CommitHash); err != nil {
		return err
	}
	logger.Info("restored tag", "tag", state.OriginalTag, "commit", state.CommitHash)
	return nil
}

// TagExists reports whether a local tag called name exists.
func (c *Controller) TagExists(ctx context.Context, name string) (bool, error) {
	res, err := c.mustGit(ctx, "list tags", "", "tag", "-l", name)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(res.Stdout, "\n") {
		if strings.TrimSpace(line) == name {
			return true, nil
		}
	}
	return false, nil
}

// dropStaleTag deletes a build tag left behind by a run that ended before Restore.
func (c *Controller) dropStaleTag(ctx context.Context, name string) error {
	exists, err := c.TagExists(ctx, name)
	if err != nil || !exists {
		return err
	}
	c.logger().Warn("removing stale build tag", "tag", name)
	_, err = c.mustGit(ctx, "delete stale tag "+name, "", "tag", "-d", name)
	return err
}

// ResolveTag returns the commit hash a tag or commit reference points at.
func (c *Controller) ResolveTag(ctx context.Context, ref string) (string, error) {
	res, err := c.mustGit(ctx, "resolve "+ref, "", "rev-list", "-n", "1", ref)
	if err != nil {
		return "", err
	}
	hash := strings.TrimSpace(res.Stdout)
	if hash == "" && c.DryRun {
		return "<" + ref + ">", nil
	}
	if hash == "" {
		return "", &StepError{Step: "resolve " + ref, Hint: "no commit found", Result: res}
	}
	return hash, nil
}

func (c *Controller) syncSubmodules(ctx context.Context) error {
	logger := c.logger()
	logger.Info("synchronizing submodules")

	steps := [][]string{
		{"submodule", "deinit", "-f", "--all"},
		{"submodule", "sync", "--recursive"},
		{"submodule", "update", "--init", "--recursive"},
	}
	for _, args := range steps {
		res, err := c.git(ctx, runner.Options{}, args...)
		if err != nil {
			return err
		}
		if !res.Failed() {
			continue
		}
		step := "git " + strings.Join(args, " ")
		if c.StrictSubmodules {
			return &StepError{Step: step, Result: res}
		}
		logger.Warn("submodule step failed, continuing", "step", step, "exit_code", res.ExitCode, "output", res.Output())
	}
	return nil
}

// mustGit runs a git command that has to succeed.
func (c *Controller) mustGit(ctx context.Context, step, hint string, args ...string) (runner.Result, error) {
	res, err := c.git(ctx, runner.Options{FailFast: true}, args...)
	if err != nil {
		return res, &StepError{Step: step, Hint: hint, Result: res, Err: err}
	}
	return res, nil
}

func (c *Controller) git(ctx context.Context, opts runner.Options, args ...string) (runner.Result, error) {
	if c.Runner == nil {
		return runner.Result{}, fmt.Errorf("vcs: runner is not configured")
	}
	cmd := runner.Command{Args: append([]string{"git"}, args...), Dir: c.Dir}
	c.logger().Debug("running git", "command", cmd.String())
	return c.Runner.Run(ctx, cmd, opts)
}

func (c *Controller) logger() *slog.Logger {
	return logging.Ensure(c.Logger).With("component", "vcs")
}
