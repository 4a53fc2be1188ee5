// File: internal/engine/native.go
package engine

import (
	"context"
	"fmt"

	json "github.com/json-iterator/go"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// NativeBackend reserves the embedded-renderer slot. No native engine ships
// yet; every operation reports ErrBackendUnavailable so auto selection and
// explicit configuration degrade the same way.
type NativeBackend struct{}

var _ Backend = (*NativeBackend)(nil)

// NewNative returns the native backend stub.
func NewNative() *NativeBackend { return &NativeBackend{} }

func (n *NativeBackend) err(op string) error {
	return fmt.Errorf("%w: native engine not built in (%s)", ErrBackendUnavailable, op)
}

func (n *NativeBackend) Start(ctx context.Context) error { return n.err("start") }
func (n *NativeBackend) Stop(ctx context.Context) error { return nil }
func (n *NativeBackend) Healthy() bool { return false }
func (n *NativeBackend) Kind() Kind { return KindNative }
func (n *NativeBackend) SetCrashHandler(fn CrashHandler) {}

func (n *NativeBackend) NewPage(ctx context.Context, id PageID, opts PageOptions) error {
	return n.err("new page")
}
func (n *NativeBackend) ClosePage(ctx context.Context, id PageID) error { return n.err("close page") }
func (n *NativeBackend) Navigate(ctx context.Context, id PageID, url string) error {
	return n.err("navigate")
}
func (n *NativeBackend) NavigateBack(ctx context.Context, id PageID) error { return n.err("back") }
func (n *NativeBackend) NavigateForward(ctx context.Context, id PageID) error {
	return n.err("forward")
}
func (n *NativeBackend) Reload(ctx context.Context, id PageID) error { return n.err("reload") }
func (n *NativeBackend) PageInfo(ctx context.Context, id PageID) (*schemas.PageInfo, error) {
	return nil, n.err("page info")
}
func (n *NativeBackend) DispatchMouse(ctx context.Context, id PageID, ev schemas.MouseEventData) error {
	return n.err("mouse")
}
func (n *NativeBackend) DispatchKey(ctx context.Context, id PageID, ev schemas.KeyEventData) error {
	return n.err("key")
}
func (n *NativeBackend) TypeText(ctx context.Context, id PageID, text string) error {
	return n.err("type")
}
func (n *NativeBackend) Scroll(ctx context.Context, id PageID, dx, dy float64) error {
	return n.err("scroll")
}
func (n *NativeBackend) EvaluateScript(ctx context.Context, id PageID, script string, awaitPromise bool) (json.RawMessage, error) {
	return nil, n.err("evaluate")
}
func (n *NativeBackend) QueryElement(ctx context.Context, id PageID, selector string) (*ElementInfo, error) {
	return nil, n.err("query")
}
func (n *NativeBackend) CaptureScreenshot(ctx context.Context, id PageID, opts schemas.ScreenshotOptions) ([]byte, error) {
	return nil, n.err("screenshot")
}
func (n *NativeBackend) SetViewport(ctx context.Context, id PageID, width, height int) error {
	return n.err("viewport")
}
func (n *NativeBackend) Cookies(ctx context.Context, id PageID) ([]schemas.Cookie, error) {
	return nil, n.err("cookies")
}
func (n *NativeBackend) SetCookie(ctx context.Context, id PageID, c schemas.Cookie) error {
	return n.err("set cookie")
}
func (n *NativeBackend) ClearCookies(ctx context.Context, id PageID) error {
	return n.err("clear cookies")
}
