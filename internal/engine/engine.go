// File: internal/engine/engine.go

// Package engine defines the backend abstraction the rest of the system
// drives: a minimal page-oriented protocol with mock, CDP and native
// implementations selected at startup.
package engine

import (
	"context"
	"errors"

	json "github.com/json-iterator/go"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// Sentinel errors shared across backends. Callers classify failures with
// errors.Is and react per the taxonomy; backends wrap these with detail.
var (
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNavigationTimeout  = errors.New("navigation timeout")
	ErrElementNotFound    = errors.New("element not found")
	ErrInvalidSelector    = errors.New("invalid selector")
	ErrScriptError        = errors.New("script evaluation failed")
	ErrProxyAuthFailure   = errors.New("proxy authentication failed")
	ErrPageNotFound       = errors.New("page not found")
)

// Kind identifies the backend implementation.
type Kind string

const (
	KindMock   Kind = "mock"
	KindCDP    Kind = "cdp"
	KindNative Kind = "native"
)

// PageID names a live page inside a backend. It matches the owning tab's id
// so the dispatcher can use one identifier for both layers.
type PageID string

// CrashHandler is invoked when a page's renderer or target dies without a
// corresponding ClosePage call. Implementations must not block; the backend
// may deliver the notification from its own event goroutine.
type CrashHandler func(id PageID, reason string)

// PageOptions configures page creation.
type PageOptions struct {
	Width  int
	Height int
}

// ElementInfo is the geometry a backend reports for a located element.
type ElementInfo struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	// TagName of the matched element, upper-cased as the DOM reports it.
	TagName string `json:"tagName"`
}

// Geometry converts the info into the shared interaction schema.
func (e *ElementInfo) Geometry() *schemas.ElementGeometry {
	return &schemas.ElementGeometry{
		Vertices: []float64{
			e.X, e.Y,
			e.X + e.Width, e.Y,
			e.X + e.Width, e.Y + e.Height,
			e.X, e.Y + e.Height,
		},
		Width:   int64(e.Width),
		Height:  int64(e.Height),
		TagName: e.TagName,
	}
}

// Backend is the protocol every engine implementation satisfies. Every call
// takes a context; blocking operations honor cancellation and deadlines.
type Backend interface {
	// Start brings the backend up. Stop tears it down; it is safe to call
	// Stop after a failed Start.
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Healthy() bool
	Kind() Kind

	// SetCrashHandler registers the callback for unsolicited page loss.
	// Call before Start; at most one handler is active.
	SetCrashHandler(fn CrashHandler)

	NewPage(ctx context.Context, id PageID, opts PageOptions) error
	ClosePage(ctx context.Context, id PageID) error

	Navigate(ctx context.Context, id PageID, url string) error
	NavigateBack(ctx context.Context, id PageID) error
	NavigateForward(ctx context.Context, id PageID) error
	Reload(ctx context.Context, id PageID) error
	PageInfo(ctx context.Context, id PageID) (*schemas.PageInfo, error)

	DispatchMouse(ctx context.Context, id PageID, ev schemas.MouseEventData) error
	DispatchKey(ctx context.Context, id PageID, ev schemas.KeyEventData) error
	TypeText(ctx context.Context, id PageID, text string) error
	Scroll(ctx context.Context, id PageID, dx, dy float64) error

	// EvaluateScript runs script in the page. With awaitPromise set, a
	// returned promise is awaited and its settled value is the result; a
	// rejection surfaces as ErrScriptError carrying the page-side message.
	EvaluateScript(ctx context.Context, id PageID, script string, awaitPromise bool) (json.RawMessage, error)
	QueryElement(ctx context.Context, id PageID, selector string) (*ElementInfo, error)
	CaptureScreenshot(ctx context.Context, id PageID, opts schemas.ScreenshotOptions) ([]byte, error)
	SetViewport(ctx context.Context, id PageID, width, height int) error

	Cookies(ctx context.Context, id PageID) ([]schemas.Cookie, error)
	SetCookie(ctx context.Context, id PageID, c schemas.Cookie) error
	ClearCookies(ctx context.Context, id PageID) error
}
