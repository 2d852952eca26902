package interfaces

import (
	"context"

	"github.com/ternarybob/courier/internal/models"
)

// SessionService owns the single browser automation context against the
// target site. The browser is launched lazily on first use and must be
// re-creatable after a crash.
type SessionService interface {
	// EnsureSession returns a browser context that is logged in to the
	// target site, launching the browser and performing login as needed.
	// The returned context is borrowed; callers must not retain it across
	// worker-loop iterations.
	EnsureSession(ctx context.Context) (context.Context, error)

	// Login authenticates against the target site with the given
	// credentials. Returns an AuthenticationError when login definitively
	// failed; transport errors are absorbed into the error result.
	Login(ctx context.Context, creds models.Credentials) error

	// IsAuthenticated is a best-effort check; returns false on any error
	// rather than failing, since callers use it for branching only.
	IsAuthenticated(ctx context.Context) bool

	// Logout navigates to the site's logout endpoint
	Logout(ctx context.Context) error

	// Close releases the browser and all pages. Idempotent.
	Close() error
}
