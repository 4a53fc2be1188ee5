package humanoid

import (
	"context"
	"time"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// Executor is the contract between the input simulator and the browser
// automation layer. It is deliberately agnostic of the underlying engine so
// the simulator can be driven against CDP, the mock engine, or a recording
// mock in tests.
type Executor interface {
	// Sleep pauses execution, respecting context cancellation.
	Sleep(ctx context.Context, d time.Duration) error

	// DispatchMouse sends a single low-level mouse event.
	DispatchMouse(ctx context.Context, data schemas.MouseEventData) error

	// DispatchKey sends a single key to the currently focused element.
	DispatchKey(ctx context.Context, data schemas.KeyEventData) error

	// ElementGeometry locates the first element matching the selector and
	// returns its content-box geometry in viewport coordinates.
	ElementGeometry(ctx context.Context, selector string) (*schemas.ElementGeometry, error)

	// Scroll scrolls the page by the given deltas.
	Scroll(ctx context.Context, dx, dy float64) error
}

// Control characters understood by the keyboard layer. These match the raw
// runes the CDP key dispatcher resolves to named keys.
const (
	KeyBackspace = "\b"
	KeyEnter     = "\r"
	KeyTab       = "\t"
	KeyEscape    = "\x1b"
)
