package build

import (
	"context"

	"github.com/eolab-hsrw/easypx4/internal/descriptor"
	"github.com/eolab-hsrw/easypx4/internal/vcs"
)

// CheckoutPreparer moves the firmware checkout to the version a descriptor asks for.
type CheckoutPreparer interface {
	Prepare(ctx context.Context, d descriptor.Descriptor) (Checkout, error)
}

// Checkout is a prepared firmware tree. Cleanup undoes the version control changes
// made by Prepare.
type Checkout interface {
	Tags() vcs.TagState
	Cleanup(ctx context.Context) error
}
