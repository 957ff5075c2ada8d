package notification

import (
	"context"

	"github.com/subtrackr/subtrackr/internal/errors"
)

// Adapter wraps one delivery channel's credential lifecycle and send path.
// Implementations must be safe for concurrent use by multiple goroutines.
type Adapter interface {
	// Name returns the channel kind this adapter serves.
	Name() Channel

	// Initialize validates and stores channel credentials. On error the
	// adapter keeps its previous state. It never performs network I/O.
	Initialize(creds Credentials) error

	// Send delivers a single message. Delivery failures are returned as
	// errors; the Manager owns the catch-and-degrade policy.
	Send(ctx context.Context, msg *Message) error

	// Ready reports whether the adapter holds everything it needs to send.
	Ready() bool
}

func errNotInitialized(ch Channel) error {
	return errors.Newf("%s adapter not initialized", ch).
		Component("notification").
		Category(errors.CategoryConfiguration).
		Context("channel", string(ch)).
		Build()
}
