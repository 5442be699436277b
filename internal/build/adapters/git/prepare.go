package git

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/eolab-hsrw/easypx4/internal/build"
	"github.com/eolab-hsrw/easypx4/internal/descriptor"
	"github.com/eolab-hsrw/easypx4/internal/vcs"
)

// Ensure CheckoutPreparer implements the build.CheckoutPreparer interface.
var _ build.CheckoutPreparer = (*CheckoutPreparer)(nil)

// TagController abstracts the version controller to simplify testing.
type TagController interface {
	Prepare(ctx context.Context, d descriptor.Descriptor) (vcs.TagState, error)
	Restore(ctx context.Context, state vcs.TagState) error
}

// CheckoutPreparer prepares the PX4 git checkout at Dir for a build.
type CheckoutPreparer struct {
	Dir        string
	Controller TagController
}

// Prepare checks that Dir is a git checkout and moves it to the descriptor's version.
func (p *CheckoutPreparer) Prepare(ctx context.Context, d descriptor.Descriptor) (build.Checkout, error) {
	if p.Controller == nil {
		return nil, errors.New("version controller is not configured")
	}

	info, err := os.Stat(filepath.Join(p.Dir, ".git"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%q is not a git checkout, run setup first", p.Dir)
		}
		return nil, fmt.Errorf("stat checkout %q: %w", p.Dir, err)
	}
	// submodule style checkouts use a .git file
	if !info.IsDir() && !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%q is not a git checkout", p.Dir)
	}

	state, err := p.Controller.Prepare(ctx, d)
	if err != nil {
		return nil, err
	}
	return &Checkout{state: state, controller: p.Controller}, nil
}

var _ build.Checkout = (*Checkout)(nil)

// Checkout is a prepared PX4 tree.
type Checkout struct {
	state      vcs.TagState
	controller TagController

	once sync.Once
	err  error
}

func (c *Checkout) Tags() vcs.TagState {
	return c.state
}

// Cleanup restores the tags renamed by Prepare. Calling it again returns the first
// result.
func (c *Checkout) Cleanup(ctx context.Context) error {
	c.once.Do(func() {
		if err := c.controller.Restore(ctx, c.state); err != nil {
			c.err = fmt.Errorf("restore tags: %w", err)
		}
	})
	return c.err
}
