// File: internal/engine/mock/mock.go

// Package mock implements the engine backend against an in-memory page
// table. Behavior is deterministic: the same calls yield the same synthetic
// titles, geometries and screenshot bytes, which makes it the backend of
// choice for tests and for hosts without a usable Chrome.
package mock

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
	"github.com/7blacky7/ki-browser-standalone/internal/engine"
)

// Options tunes the mock's simulated environment.
type Options struct {
	// UserAgent is what navigator.userAgent evaluates to.
	UserAgent string
	// Latency is added to every navigation, simulating network delay.
	Latency time.Duration
	// ProxyUsername mirrors the configured proxy credential. The literal
	// value "invalid" makes every navigation fail with a proxy auth error,
	// matching how a misconfigured upstream proxy behaves.
	ProxyUsername string
}

// ScrollStep records one wheel delta applied to a page.
type ScrollStep struct {
	DX float64
	DY float64
}

type page struct {
	url       string
	title     string
	history   []string
	histIdx   int
	width     int
	height    int
	scrollX   float64
	scrollY   float64
	cookies   []schemas.Cookie
	mouseLog  []schemas.MouseEventData
	keyLog    []schemas.KeyEventData
	scrollLog []ScrollStep
}

// Backend is the mock engine implementation.
type Backend struct {
	mu      sync.RWMutex
	pages   map[engine.PageID]*page
	started bool

	opts    Options
	failNav map[string]error
	onCrash engine.CrashHandler
	logger  *zap.Logger
}

var _ engine.Backend = (*Backend)(nil)

// New creates a mock backend.
func New(opts Options, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	}
	return &Backend{
		pages:   make(map[engine.PageID]*page),
		opts:    opts,
		failNav: make(map[string]error),
		logger:  logger.Named("mock"),
	}
}

// FailNavigation arranges for navigations to a URL to fail with err. Used by
// tests to exercise error paths.
func (b *Backend) FailNavigation(url string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNav[url] = err
}

func (b *Backend) SetCrashHandler(fn engine.CrashHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onCrash = fn
}

// CrashPage simulates an unsolicited renderer death: the page disappears from
// the table and the crash handler fires, exactly as a real backend would
// report it.
func (b *Backend) CrashPage(id engine.PageID, reason string) error {
	b.mu.Lock()
	if _, ok := b.pages[id]; !ok {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	delete(b.pages, id)
	fn := b.onCrash
	b.mu.Unlock()

	if fn != nil {
		fn(id, reason)
	}
	return nil
}

func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	b.logger.Info("Mock backend started")
	return nil
}

func (b *Backend) Stop(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	b.pages = make(map[engine.PageID]*page)
	b.logger.Info("Mock backend stopped")
	return nil
}

func (b *Backend) Healthy() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.started
}

func (b *Backend) Kind() engine.Kind { return engine.KindMock }

func (b *Backend) NewPage(ctx context.Context, id engine.PageID, opts engine.PageOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return engine.ErrBackendUnavailable
	}
	if _, exists := b.pages[id]; exists {
		return fmt.Errorf("page %s already exists", id)
	}
	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 1920
	}
	if height <= 0 {
		height = 1080
	}
	b.pages[id] = &page{
		url:     "about:blank",
		history: []string{"about:blank"},
		width:   width,
		height:  height,
	}
	return nil
}

func (b *Backend) ClosePage(ctx context.Context, id engine.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.pages[id]; !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	delete(b.pages, id)
	return nil
}

func (b *Backend) Navigate(ctx context.Context, id engine.PageID, rawURL string) error {
	if b.opts.Latency > 0 {
		select {
		case <-time.After(b.opts.Latency):
		case <-ctx.Done():
			return fmt.Errorf("%w: %s", engine.ErrNavigationTimeout, rawURL)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	if b.opts.ProxyUsername == "invalid" {
		return fmt.Errorf("%w: upstream rejected credentials", engine.ErrProxyAuthFailure)
	}
	if err, found := b.failNav[rawURL]; found {
		return err
	}

	p.url = rawURL
	p.title = titleFor(rawURL)
	// Navigating truncates any forward history.
	p.history = append(p.history[:p.histIdx+1], rawURL)
	p.histIdx = len(p.history) - 1
	p.scrollX, p.scrollY = 0, 0
	return nil
}

func (b *Backend) NavigateBack(ctx context.Context, id engine.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	if p.histIdx == 0 {
		return nil // Nothing to go back to; browsers no-op here.
	}
	p.histIdx--
	p.url = p.history[p.histIdx]
	p.title = titleFor(p.url)
	return nil
}

func (b *Backend) NavigateForward(ctx context.Context, id engine.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	if p.histIdx >= len(p.history)-1 {
		return nil
	}
	p.histIdx++
	p.url = p.history[p.histIdx]
	p.title = titleFor(p.url)
	return nil
}

func (b *Backend) Reload(ctx context.Context, id engine.PageID) error {
	b.mu.RLock()
	p, ok := b.pages[id]
	if !ok {
		b.mu.RUnlock()
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	current := p.url
	b.mu.RUnlock()

	if current == "about:blank" {
		return nil
	}
	return b.Navigate(ctx, id, current)
}

func (b *Backend) PageInfo(ctx context.Context, id engine.PageID) (*schemas.PageInfo, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	return &schemas.PageInfo{URL: p.url, Title: p.title}, nil
}

func (b *Backend) DispatchMouse(ctx context.Context, id engine.PageID, ev schemas.MouseEventData) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	p.mouseLog = append(p.mouseLog, ev)
	return nil
}

func (b *Backend) DispatchKey(ctx context.Context, id engine.PageID, ev schemas.KeyEventData) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	p.keyLog = append(p.keyLog, ev)
	return nil
}

func (b *Backend) TypeText(ctx context.Context, id engine.PageID, text string) error {
	for _, r := range text {
		if err := b.DispatchKey(ctx, id, schemas.KeyEventData{Key: string(r)}); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) Scroll(ctx context.Context, id engine.PageID, dx, dy float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	p.scrollLog = append(p.scrollLog, ScrollStep{DX: dx, DY: dy})
	p.scrollX += dx
	p.scrollY += dy
	if p.scrollX < 0 {
		p.scrollX = 0
	}
	if p.scrollY < 0 {
		p.scrollY = 0
	}
	return nil
}

// EvaluateScript resolves a small set of common expressions against page
// state and echoes literals; everything else evaluates to null. Scripts
// containing the marker string "throw" fail the way a real page script does.
// With awaitPromise, Promise.resolve(x) settles to x and Promise.reject(...)
// fails with the rejection message; without it a promise serializes as an
// empty object, matching an unsettled remote handle.
func (b *Backend) EvaluateScript(ctx context.Context, id engine.PageID, script string, awaitPromise bool) (json.RawMessage, error) {
	b.mu.RLock()
	p, ok := b.pages[id]
	if !ok {
		b.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	pageURL, title := p.url, p.title
	b.mu.RUnlock()

	trimmed := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(script), ";"))

	if inner, ok := callArgument(trimmed, "Promise.reject"); ok {
		if !awaitPromise {
			return json.RawMessage("{}"), nil
		}
		return nil, fmt.Errorf("%w: %s", engine.ErrScriptError, rejectionMessage(inner))
	}
	if inner, ok := callArgument(trimmed, "Promise.resolve"); ok {
		if !awaitPromise {
			return json.RawMessage("{}"), nil
		}
		trimmed = strings.TrimSpace(inner)
	}

	if strings.Contains(trimmed, "throw") {
		return nil, fmt.Errorf("%w: uncaught exception", engine.ErrScriptError)
	}

	switch trimmed {
	case "document.title":
		return json.Marshal(title)
	case "window.location.href", "document.location.href", "location.href":
		return json.Marshal(pageURL)
	case "navigator.userAgent":
		return json.Marshal(b.opts.UserAgent)
	}
	// Literals echo back.
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return json.Marshal(n)
	}
	if len(trimmed) >= 2 {
		if (trimmed[0] == '\'' && trimmed[len(trimmed)-1] == '\'') ||
			(trimmed[0] == '"' && trimmed[len(trimmed)-1] == '"') {
			return json.Marshal(trimmed[1 : len(trimmed)-1])
		}
	}
	switch trimmed {
	case "true", "false":
		return json.RawMessage(trimmed), nil
	}
	return json.RawMessage("null"), nil
}

// QueryElement synthesizes stable geometry from the selector text. Selectors
// containing "#missing" simulate an element that is not on the page.
func (b *Backend) QueryElement(ctx context.Context, id engine.PageID, selector string) (*engine.ElementInfo, error) {
	b.mu.RLock()
	p, ok := b.pages[id]
	if !ok {
		b.mu.RUnlock()
		return nil, fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	width, height := p.width, p.height
	b.mu.RUnlock()

	selector = strings.TrimSpace(selector)
	if selector == "" || strings.HasPrefix(selector, ">") {
		return nil, fmt.Errorf("%w: %q", engine.ErrInvalidSelector, selector)
	}
	if strings.Contains(selector, "#missing") {
		return nil, fmt.Errorf("%w: %q", engine.ErrElementNotFound, selector)
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(selector))
	sum := h.Sum64()

	// Derive an on-screen box from the hash. Sizes stay element-plausible
	// and the box always fits the viewport.
	w := 40 + float64(sum%200)
	ht := 16 + float64((sum>>8)%48)
	x := float64((sum >> 16) % uint64(max(1, width-int(w)-1)))
	y := float64((sum >> 32) % uint64(max(1, height-int(ht)-1)))

	tags := []string{"DIV", "BUTTON", "INPUT", "A", "SPAN"}
	return &engine.ElementInfo{
		X:       x,
		Y:       y,
		Width:   w,
		Height:  ht,
		TagName: tags[sum%uint64(len(tags))],
	}, nil
}

func (b *Backend) CaptureScreenshot(ctx context.Context, id engine.PageID, opts schemas.ScreenshotOptions) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	_, ok := b.pages[id]
	b.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	return placeholderScreenshot(opts.Format), nil
}

func (b *Backend) SetViewport(ctx context.Context, id engine.PageID, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("viewport dimensions must be positive, got %dx%d", width, height)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	p.width = width
	p.height = height
	return nil
}

func (b *Backend) Cookies(ctx context.Context, id engine.PageID) ([]schemas.Cookie, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pages[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	out := make([]schemas.Cookie, len(p.cookies))
	copy(out, p.cookies)
	return out, nil
}

func (b *Backend) SetCookie(ctx context.Context, id engine.PageID, c schemas.Cookie) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	for i, existing := range p.cookies {
		if existing.Name == c.Name && existing.Domain == c.Domain && existing.Path == c.Path {
			p.cookies[i] = c
			return nil
		}
	}
	p.cookies = append(p.cookies, c)
	return nil
}

func (b *Backend) ClearCookies(ctx context.Context, id engine.PageID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.pages[id]
	if !ok {
		return fmt.Errorf("%w: %s", engine.ErrPageNotFound, id)
	}
	p.cookies = nil
	return nil
}

// MouseLog returns a copy of the mouse events dispatched to a page. Test
// helper.
func (b *Backend) MouseLog(id engine.PageID) []schemas.MouseEventData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pages[id]
	if !ok {
		return nil
	}
	out := make([]schemas.MouseEventData, len(p.mouseLog))
	copy(out, p.mouseLog)
	return out
}

// KeyLog returns a copy of the key events dispatched to a page. Test helper.
func (b *Backend) KeyLog(id engine.PageID) []schemas.KeyEventData {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pages[id]
	if !ok {
		return nil
	}
	out := make([]schemas.KeyEventData, len(p.keyLog))
	copy(out, p.keyLog)
	return out
}

// callArgument extracts the argument text when script is exactly a fn(...)
// call.
func callArgument(script, fn string) (string, bool) {
	if !strings.HasPrefix(script, fn+"(") || !strings.HasSuffix(script, ")") {
		return "", false
	}
	return script[len(fn)+1 : len(script)-1], true
}

// rejectionMessage recovers the page-side message from a rejection argument,
// favoring any quoted string inside it.
func rejectionMessage(inner string) string {
	inner = strings.TrimSpace(inner)
	if i := strings.IndexAny(inner, `'"`); i >= 0 {
		quote := inner[i]
		if j := strings.LastIndexByte(inner, quote); j > i {
			return inner[i+1 : j]
		}
	}
	if inner == "" {
		return "promise rejected"
	}
	return inner
}

// ScrollLog returns a copy of the wheel deltas applied to a page. Test
// helper.
func (b *Backend) ScrollLog(id engine.PageID) []ScrollStep {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.pages[id]
	if !ok {
		return nil
	}
	out := make([]ScrollStep, len(p.scrollLog))
	copy(out, p.scrollLog)
	return out
}

// titleFor synthesizes a page title from the URL host, the way the mock
// renderer names documents.
func titleFor(rawURL string) string {
	if rawURL == "about:blank" {
		return ""
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}
