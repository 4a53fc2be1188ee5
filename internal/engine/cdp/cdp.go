// File: internal/engine/cdp/cdp.go

// Package cdp drives a real Chromium over the DevTools protocol via
// chromedp. One allocator hosts the browser process; every page gets its own
// chromedp context with the stealth persona applied before first navigation.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/inspector"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
	"github.com/7blacky7/ki-browser-standalone/internal/config"
	"github.com/7blacky7/ki-browser-standalone/internal/engine"
	"github.com/7blacky7/ki-browser-standalone/internal/stealth"
)

// Backend is the chromedp-based engine implementation.
type Backend struct {
	mu       sync.RWMutex
	pages    map[engine.PageID]*pageHandle
	started  bool
	browser  context.Context
	cancelFn []context.CancelFunc

	cfg     config.BrowserSettings
	proxy   config.ProxyConfig
	persona *stealth.Persona
	onCrash engine.CrashHandler
	logger  *zap.Logger
}

type pageHandle struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ engine.Backend = (*Backend)(nil)

// New creates a CDP backend. The persona may be nil when stealth is
// disabled.
func New(cfg config.BrowserSettings, proxy config.ProxyConfig, persona *stealth.Persona, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		pages:   make(map[engine.PageID]*pageHandle),
		cfg:     cfg,
		proxy:   proxy,
		persona: persona,
		logger:  logger.Named("cdp"),
	}
}

// Start launches the browser process. A failure to allocate maps to
// ErrBackendUnavailable so callers can fall back.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.WindowSize(b.cfg.WindowWidth, b.cfg.WindowHeight),
		chromedp.Flag("headless", b.cfg.Headless),
	)
	if b.cfg.ProfilePath != "" {
		opts = append(opts, chromedp.UserDataDir(b.cfg.ProfilePath))
	}
	if b.proxy.Enabled() {
		opts = append(opts, chromedp.ProxyServer(b.proxy.URL()))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		b.logger.Debug(fmt.Sprintf(format, args...))
	}))

	// Run with no actions forces the browser to actually launch.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return fmt.Errorf("%w: failed to launch browser: %v", engine.ErrBackendUnavailable, err)
	}

	b.browser = browserCtx
	b.cancelFn = []context.CancelFunc{cancelBrowser, cancelAlloc}
	b.started = true
	b.logger.Info("CDP backend started",
		zap.Bool("headless", b.cfg.Headless),
		zap.Bool("stealth", b.persona != nil),
	)
	return nil
}

func (b *Backend) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return nil
	}
	for _, h := range b.pages {
		h.cancel()
	}
	b.pages = make(map[engine.PageID]*pageHandle)
	for _, cancel := range b.cancelFn {
		cancel()
	}
	b.cancelFn = nil
	b.started = false
	b.logger.Info("CDP backend stopped")
	return nil
}

func (b *Backend) Healthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

func (b *Backend) Kind() engine.Kind { return engine.KindCDP }

func (b *Backend) SetCrashHandler(fn engine.CrashHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onCrash = fn
}

// reportCrash forwards an unsolicited page loss to the registered handler and
// retires the dead handle. Runs off the chromedp event goroutine.
func (b *Backend) reportCrash(id engine.PageID, reason string) {
	b.mu.Lock()
	h, live := b.pages[id]
	if live {
		delete(b.pages, id)
	}
	fn := b.onCrash
	b.mu.Unlock()

	if !live {
		return
	}
	h.cancel()
	b.logger.Warn("Page lost", zap.String("page_id", string(id)), zap.String("reason", reason))
	if fn != nil {
		fn(id, reason)
	}
}

func (b *Backend) NewPage(ctx context.Context, id engine.PageID, opts engine.PageOptions) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return engine.ErrBackendUnavailable
	}
	if _, exists := b.pages[id]; exists {
		b.mu.Unlock()
		return fmt.Errorf("page %s already exists", id)
	}
	pageCtx, cancel := chromedp.NewContext(b.browser)
	b.pages[id] = &pageHandle{ctx: pageCtx, cancel: cancel}
	b.mu.Unlock()

	// Crash and detach notifications arrive on chromedp's event goroutine;
	// hand them off so the listener never blocks.
	chromedp.ListenTarget(pageCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *inspector.EventTargetCrashed:
			go b.reportCrash(id, "renderer crashed")
		case *inspector.EventDetached:
			go b.reportCrash(id, fmt.Sprintf("target detached: %s", e.Reason))
		}
	})

	tasks := chromedp.Tasks{}
	// The persona must be installed before any navigation so the evasion
	// script is registered ahead of document scripts.
	if b.persona != nil {
		tasks = append(tasks, b.persona.Apply(b.logger))
	}
	if opts.Width > 0 && opts.Height > 0 {
		tasks = append(tasks, emulation.SetDeviceMetricsOverride(int64(opts.Width), int64(opts.Height), 1.0, false))
	}
	if len(tasks) > 0 {
		if err := chromedp.Run(pageCtx, tasks); err != nil {
			_ = b.ClosePage(context.Background(), id)
			return fmt.Errorf("failed to initialize page %s: %w", id, err)
		}
	} else if err := chromedp.Run(pageCtx); err != nil {
		_ = b.ClosePage(context.Background(), id)
		return fmt.Errorf("failed to open page %s: %w", id, err)
	}
	return nil
}

func (b *Backend) ClosePage(ctx context.Context, id engine.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	h.cancel()
	delete(b.pages, id)
	return nil
}

// run executes actions against a page context, honoring the caller's
// deadline and translating protocol failures into the shared taxonomy.
func (b *Backend) run(ctx context.Context, id engine.PageID, actions ...chromedp.Action) error {
	b.mu.RLock()
	h, ok := b.pages[id]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}

	runCtx := h.ctx
	if deadline, has := ctx.Deadline(); has {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithDeadline(runCtx, deadline)
		defer cancel()
	}
	return chromedp.Run(runCtx, actions...)
}

func (b *Backend) Navigate(ctx context.Context, id engine.PageID, url string) error {
	err := b.run(ctx, id, chromedp.Navigate(url))
	return mapNavigationError(err, url)
}

func (b *Backend) NavigateBack(ctx context.Context, id engine.PageID) error {
	return mapNavigationError(b.run(ctx, id, chromedp.NavigateBack()), "back")
}

func (b *Backend) NavigateForward(ctx context.Context, id engine.PageID) error {
	return mapNavigationError(b.run(ctx, id, chromedp.NavigateForward()), "forward")
}

func (b *Backend) Reload(ctx context.Context, id engine.PageID) error {
	return mapNavigationError(b.run(ctx, id, chromedp.Reload()), "reload")
}

func (b *Backend) PageInfo(ctx context.Context, id engine.PageID) (*schemas.PageInfo, error) {
	var info schemas.PageInfo
	err := b.run(ctx, id,
		chromedp.Location(&info.URL),
		chromedp.Title(&info.Title),
	)
	if err != nil {
		return nil, err
	}
	return &info, nil
}

func (b *Backend) DispatchMouse(ctx context.Context, id engine.PageID, ev schemas.MouseEventData) error {
	params := input.DispatchMouseEvent(input.MouseType(ev.Type), ev.X, ev.Y).
		WithButton(input.MouseButton(ev.Button)).
		WithButtons(ev.Buttons).
		WithClickCount(int64(ev.ClickCount))
	if ev.Type == schemas.MouseWheel {
		params = params.WithDeltaX(ev.DeltaX).WithDeltaY(ev.DeltaY)
	}
	return b.run(ctx, id, params)
}

func (b *Backend) DispatchKey(ctx context.Context, id engine.PageID, ev schemas.KeyEventData) error {
	return b.run(ctx, id, chromedp.KeyEvent(ev.Key, chromedp.KeyModifiers(input.Modifier(ev.Modifiers))))
}

func (b *Backend) TypeText(ctx context.Context, id engine.PageID, text string) error {
	return b.run(ctx, id, chromedp.KeyEvent(text))
}

func (b *Backend) Scroll(ctx context.Context, id engine.PageID, dx, dy float64) error {
	return b.run(ctx, id, chromedp.ActionFunc(func(ctx context.Context) error {
		return chromedp.Evaluate(fmt.Sprintf("window.scrollBy(%f, %f)", dx, dy), nil).Do(ctx)
	}))
}

func (b *Backend) EvaluateScript(ctx context.Context, id engine.PageID, script string, awaitPromise bool) (json.RawMessage, error) {
	var raw json.RawMessage
	evalOpts := []chromedp.EvaluateOption{}
	if awaitPromise {
		evalOpts = append(evalOpts, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
			return p.WithAwaitPromise(true)
		})
	}
	err := b.run(ctx, id, chromedp.Evaluate(script, &raw, evalOpts...))
	if err != nil {
		if isScriptException(err) {
			return nil, fmt.Errorf("%w: %v", engine.ErrScriptError, err)
		}
		return nil, err
	}
	if raw == nil {
		raw = json.RawMessage("null")
	}
	return raw, nil
}

// queryElementJS resolves a selector to geometry. It distinguishes syntax
// errors from missing elements so they map to different failure classes.
const queryElementJS = `(() => {
	let el;
	try {
		el = document.querySelector(%q);
	} catch (e) {
		return { invalid: true };
	}
	if (!el) {
		return null;
	}
	const r = el.getBoundingClientRect();
	return { x: r.x, y: r.y, width: r.width, height: r.height, tagName: el.tagName };
})()`

func (b *Backend) QueryElement(ctx context.Context, id engine.PageID, selector string) (*engine.ElementInfo, error) {
	if selector == "" {
		return nil, fmt.Errorf("%w: empty selector", engine.ErrInvalidSelector)
	}
	var result struct {
		engine.ElementInfo
		Invalid bool `json:"invalid"`
	}
	var raw json.RawMessage
	err := b.run(ctx, id, chromedp.Evaluate(fmt.Sprintf(queryElementJS, selector), &raw))
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return nil, fmt.Errorf("%w: %q", engine.ErrElementNotFound, selector)
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to decode element geometry: %w", err)
	}
	if result.Invalid {
		return nil, fmt.Errorf("%w: %q", engine.ErrInvalidSelector, selector)
	}
	info := result.ElementInfo
	return &info, nil
}

func (b *Backend) CaptureScreenshot(ctx context.Context, id engine.PageID, opts schemas.ScreenshotOptions) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var buf []byte
	err := b.run(ctx, id, chromedp.ActionFunc(func(ctx context.Context) error {
		capture := page.CaptureScreenshot().
			WithFormat(page.CaptureScreenshotFormat(opts.Format)).
			WithCaptureBeyondViewport(opts.FullPage)
		if opts.Format != schemas.FormatPNG {
			capture = capture.WithQuality(int64(opts.Quality))
		}
		if opts.Clip != nil {
			capture = capture.WithClip(&page.Viewport{
				X:      opts.Clip.X,
				Y:      opts.Clip.Y,
				Width:  opts.Clip.Width,
				Height: opts.Clip.Height,
				Scale:  1,
			})
		}
		var err error
		buf, err = capture.Do(ctx)
		return err
	}))
	if err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *Backend) SetViewport(ctx context.Context, id engine.PageID, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("viewport dimensions must be positive, got %dx%d", width, height)
	}
	return b.run(ctx, id, emulation.SetDeviceMetricsOverride(int64(width), int64(height), 1.0, false))
}

func (b *Backend) Cookies(ctx context.Context, id engine.PageID) ([]schemas.Cookie, error) {
	var out []schemas.Cookie
	err := b.run(ctx, id, chromedp.ActionFunc(func(ctx context.Context) error {
		cookies, err := storage.GetCookies().Do(ctx)
		if err != nil {
			return err
		}
		out = make([]schemas.Cookie, 0, len(cookies))
		for _, c := range cookies {
			out = append(out, schemas.Cookie{
				Name:     c.Name,
				Value:    c.Value,
				Domain:   c.Domain,
				Path:     c.Path,
				Expires:  c.Expires,
				HTTPOnly: c.HTTPOnly,
				Secure:   c.Secure,
				Session:  c.Session,
				SameSite: schemas.CookieSameSite(c.SameSite),
			})
		}
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (b *Backend) SetCookie(ctx context.Context, id engine.PageID, c schemas.Cookie) error {
	return b.run(ctx, id, chromedp.ActionFunc(func(ctx context.Context) error {
		param := network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(c.Path).
			WithHTTPOnly(c.HTTPOnly).
			WithSecure(c.Secure)
		if c.SameSite != "" {
			param = param.WithSameSite(network.CookieSameSite(c.SameSite))
		}
		return param.Do(ctx)
	}))
}

func (b *Backend) ClearCookies(ctx context.Context, id engine.PageID) error {
	return b.run(ctx, id, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.ClearBrowserCookies().Do(ctx)
	}))
}

// mapNavigationError folds chromedp failures into the shared taxonomy.
func mapNavigationError(err error, target string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", engine.ErrNavigationTimeout, target)
	}
	if isProxyAuthError(err) {
		return fmt.Errorf("%w: %s", engine.ErrProxyAuthFailure, target)
	}
	return err
}
