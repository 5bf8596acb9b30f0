package live

import (
	"context"

	"github.com/liverelay/webcast/pkg/sign"
)

// Conn is the capability surface every platform variant implements. Variants
// are independent types selected by Platform; there is no shared base.
type Conn interface {
	// Connect brings the connection live, performing whatever handshake the
	// platform requires. Calling Connect on a live connection is a no-op.
	Connect(ctx context.Context) error

	// Disconnect closes the connection. With preventReconnect the connection
	// is dead for good: the keep-alive stops, the socket closes before
	// Disconnect returns, and no sweep will revive it.
	Disconnect(preventReconnect bool)

	// Connected reports whether the connection is currently live.
	Connected() bool

	// ReconnectEligible reports whether a sweep should try to revive the
	// connection.
	ReconnectEligible() bool

	// Events returns the channel connection events are delivered on. The
	// channel survives reconnects.
	Events() <-chan Event

	// Target returns the canonical target identifier.
	Target() string

	// State returns a snapshot of platform-specific connection state.
	State() map[string]any
}

// Factory builds the connection variant for one target. onTerminal fires
// when the platform ends the stream for good; the orchestrator uses it to
// drop the connection from the registry.
type Factory func(target string, onTerminal func()) (Conn, error)

// CredentialSource produces the (socket URL, cookies, sticker URL) triple a
// connection needs. The remote signing client is one source; a browser
// capture collaborator is another.
type CredentialSource interface {
	Fetch(ctx context.Context, target string) (*sign.Credentials, error)
}

// CredentialSourceFunc adapts a function to CredentialSource.
type CredentialSourceFunc func(ctx context.Context, target string) (*sign.Credentials, error)

// Fetch implements CredentialSource.
func (f CredentialSourceFunc) Fetch(ctx context.Context, target string) (*sign.Credentials, error) {
	return f(ctx, target)
}
