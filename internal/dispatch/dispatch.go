// Package dispatch serializes commands onto tabs and broadcasts lifecycle
// events. Commands targeting the same tab execute strictly in order on a
// per-tab worker; commands for different tabs run concurrently under a global
// in-flight limit.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
	"github.com/7blacky7/ki-browser-standalone/internal/config"
	"github.com/7blacky7/ki-browser-standalone/internal/engine"
	"github.com/7blacky7/ki-browser-standalone/internal/humanoid"
	"github.com/7blacky7/ki-browser-standalone/internal/tabs"
)

var (
	// ErrCommandTimeout is returned when a command exceeds its deadline.
	ErrCommandTimeout = errors.New("command timed out")
	// ErrChannelClosed is returned for commands submitted to, or queued in, a
	// dispatcher that has shut down.
	ErrChannelClosed = errors.New("dispatcher closed")
	// ErrOperationInProgress is returned by TryNavigate when the target tab
	// already has a navigation in flight.
	ErrOperationInProgress = errors.New("operation already in progress")
)

// Options tunes dispatcher concurrency and buffering.
type Options struct {
	// MaxInFlight bounds commands executing concurrently across all tabs.
	MaxInFlight int64
	// RatePerSec throttles command admission. Zero disables throttling.
	RatePerSec float64
	// CommandTimeout is the per-command deadline.
	CommandTimeout time.Duration
	// QueueDepth is the per-tab pending command buffer.
	QueueDepth int
	// EventBuffer is the per-subscriber event channel capacity.
	EventBuffer int
}

// DefaultOptions derives dispatcher options from the browser settings.
func DefaultOptions(settings config.BrowserSettings) Options {
	return Options{
		MaxInFlight:    8,
		CommandTimeout: settings.DefaultTimeout(),
		QueueDepth:     16,
		EventBuffer:    32,
	}
}

// pending pairs a request with its reply channel. The channel is buffered so
// a worker never blocks on a caller that gave up.
type pending struct {
	ctx   context.Context
	req   schemas.CommandRequest
	reply chan schemas.CommandResponse
}

// tabWorker owns the serialized command queue of one tab. done is closed when
// the tab goes away or the dispatcher shuts down; the queue channel itself is
// never closed, so a racing submit cannot panic.
type tabWorker struct {
	id    uuid.UUID
	queue chan *pending
	sim   *humanoid.Simulator

	done     chan struct{}
	stopOnce sync.Once
}

func (w *tabWorker) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

type subscriber struct {
	ch    chan schemas.Event
	types map[schemas.EventType]bool
}

// Dispatcher routes commands to per-tab workers and fans lifecycle events out
// to subscribers.
type Dispatcher struct {
	backend  engine.Backend
	tabs     *tabs.Manager
	cfg      *config.Config
	opts     Options
	logger   *zap.Logger
	simMaker func(ex humanoid.Executor) *humanoid.Simulator

	nextID atomic.Uint64

	mu      sync.Mutex
	workers map[uuid.UUID]*tabWorker
	closed  bool

	navMu       sync.Mutex
	navInFlight map[uuid.UUID]bool

	sem     *semaphore.Weighted
	limiter *rate.Limiter

	group    *errgroup.Group
	groupCtx context.Context
	cancel   context.CancelFunc

	subMu   sync.Mutex
	subs    map[int]*subscriber
	nextSub int

	shutdownOnce sync.Once
}

// New wires a dispatcher onto a started backend and a tab manager. The
// dispatcher installs itself as the manager's change listener.
func New(backend engine.Backend, manager *tabs.Manager, cfg *config.Config, opts Options, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxInFlight <= 0 {
		opts.MaxInFlight = 8
	}
	if opts.CommandTimeout <= 0 {
		opts.CommandTimeout = 30 * time.Second
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 16
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 32
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, groupCtx := errgroup.WithContext(ctx)

	d := &Dispatcher{
		backend:     backend,
		tabs:        manager,
		cfg:         cfg,
		opts:        opts,
		logger:      logger.Named("dispatch"),
		workers:     make(map[uuid.UUID]*tabWorker),
		navInFlight: make(map[uuid.UUID]bool),
		sem:         semaphore.NewWeighted(opts.MaxInFlight),
		group:       group,
		groupCtx:    groupCtx,
		cancel:      cancel,
		subs:        make(map[int]*subscriber),
	}
	if opts.RatePerSec > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), int(opts.RatePerSec)+1)
	}
	d.simMaker = func(ex humanoid.Executor) *humanoid.Simulator {
		profile := config.InputProfileNormal
		if cfg != nil {
			profile = cfg.Input.Profile
		}
		return humanoid.New(humanoid.ConfigForProfile(profile), logger, ex)
	}

	manager.SetListener(d.publish)
	backend.SetCrashHandler(d.onPageCrash)
	return d
}

// onPageCrash handles an unsolicited page loss reported by the backend. The
// tab parks in Crashed and its subscribers hear about it; other tabs are
// untouched.
func (d *Dispatcher) onPageCrash(page engine.PageID, reason string) {
	id, err := uuid.Parse(string(page))
	if err != nil {
		d.logger.Warn("Crash report for unknown page", zap.String("page_id", string(page)))
		return
	}
	if err := d.tabs.MarkCrashed(id, reason); err != nil {
		d.logger.Debug("Crash report dropped", zap.String("tab_id", id.String()), zap.Error(err))
	}
}

// Send submits one command and waits for its correlated reply. Every accepted
// command is answered exactly once; ErrCommandTimeout and ErrChannelClosed
// are reflected in both the response and the returned error.
func (d *Dispatcher) Send(ctx context.Context, req schemas.CommandRequest) (schemas.CommandResponse, error) {
	if req.ID == 0 {
		req.ID = d.nextID.Add(1)
	}

	if err := req.Validate(); err != nil {
		return failure(req.ID, err), err
	}

	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return failure(req.ID, ErrChannelClosed), ErrChannelClosed
	}

	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return failure(req.ID, err), err
		}
	}

	switch req.Kind {
	case schemas.CmdCreateTab:
		return d.createTab(ctx, req)
	case schemas.CmdListTabs:
		return d.listTabs(req)
	case schemas.CmdShutdown:
		go d.Shutdown(context.Background())
		return success(req.ID, nil), nil
	}

	tabID, err := uuid.Parse(req.TabID)
	if err != nil {
		err = fmt.Errorf("invalid tab_id %q: %w", req.TabID, err)
		return failure(req.ID, err), nil
	}

	// A navigation racing one already in flight on the same tab is rejected,
	// not queued behind it.
	switch req.Kind {
	case schemas.CmdNavigate, schemas.CmdBack, schemas.CmdForward, schemas.CmdReload:
		d.navMu.Lock()
		busy := d.navInFlight[tabID]
		d.navMu.Unlock()
		if busy {
			return failure(req.ID, ErrOperationInProgress), nil
		}
	}

	p := &pending{
		ctx:   ctx,
		req:   req,
		reply: make(chan schemas.CommandResponse, 1),
	}

	if err := d.enqueue(tabID, p); err != nil {
		return failure(req.ID, err), errOnlySentinel(err)
	}

	timer := time.NewTimer(d.opts.CommandTimeout)
	defer timer.Stop()

	select {
	case resp := <-p.reply:
		var sentinel error
		switch {
		case resp.OK:
		case resp.Error == ErrChannelClosed.Error():
			sentinel = ErrChannelClosed
		case strings.HasPrefix(resp.Error, ErrCommandTimeout.Error()):
			sentinel = ErrCommandTimeout
		}
		return resp, sentinel
	case <-timer.C:
		return failure(req.ID, ErrCommandTimeout), ErrCommandTimeout
	case <-ctx.Done():
		return failure(req.ID, ctx.Err()), ctx.Err()
	case <-d.groupCtx.Done():
		return failure(req.ID, ErrChannelClosed), ErrChannelClosed
	}
}

// TryNavigate submits a navigation only when the tab has none in flight,
// returning ErrOperationInProgress otherwise.
func (d *Dispatcher) TryNavigate(ctx context.Context, tabID, url string) (schemas.CommandResponse, error) {
	id, err := uuid.Parse(tabID)
	if err != nil {
		return schemas.CommandResponse{}, fmt.Errorf("invalid tab_id %q: %w", tabID, err)
	}

	d.navMu.Lock()
	if d.navInFlight[id] {
		d.navMu.Unlock()
		return schemas.CommandResponse{}, ErrOperationInProgress
	}
	d.navMu.Unlock()

	return d.Send(ctx, schemas.CommandRequest{
		Kind:  schemas.CmdNavigate,
		TabID: tabID,
		URL:   url,
	})
}

// Subscribe registers an event listener, optionally filtered to the given
// types. The returned cancel function must be called to release the
// subscription; the channel is closed on cancel or dispatcher shutdown. Slow
// consumers never block the dispatcher: on overflow the oldest event in the
// buffer is dropped.
func (d *Dispatcher) Subscribe(types ...schemas.EventType) (<-chan schemas.Event, func()) {
	sub := &subscriber{ch: make(chan schemas.Event, d.opts.EventBuffer)}
	if len(types) > 0 {
		sub.types = make(map[schemas.EventType]bool, len(types))
		for _, t := range types {
			sub.types[t] = true
		}
	}

	d.subMu.Lock()
	id := d.nextSub
	d.nextSub++
	d.subs[id] = sub
	d.subMu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			d.subMu.Lock()
			if _, ok := d.subs[id]; ok {
				delete(d.subs, id)
				close(sub.ch)
			}
			d.subMu.Unlock()
		})
	}
	return sub.ch, cancel
}

// Shutdown drains all queues, answers queued commands with ErrChannelClosed
// and stops the workers. Safe to call more than once.
func (d *Dispatcher) Shutdown(ctx context.Context) {
	d.shutdownOnce.Do(func() {
		d.logger.Info("Dispatcher shutting down")

		d.mu.Lock()
		d.closed = true
		workers := make([]*tabWorker, 0, len(d.workers))
		for _, w := range d.workers {
			workers = append(workers, w)
		}
		d.workers = make(map[uuid.UUID]*tabWorker)
		d.mu.Unlock()

		for _, w := range workers {
			w.stop()
		}

		done := make(chan struct{})
		go func() {
			_ = d.group.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			d.cancel()
			<-done
		}
		d.cancel()

		d.tabs.CloseAll()
		d.publish(schemas.Event{Type: schemas.EventShutdown})

		d.subMu.Lock()
		for id, sub := range d.subs {
			delete(d.subs, id)
			close(sub.ch)
		}
		d.subMu.Unlock()
	})
}

// enqueue places a command on its tab's queue, spinning the worker up on
// first use.
func (d *Dispatcher) enqueue(tabID uuid.UUID, p *pending) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrChannelClosed
	}
	w, ok := d.workers[tabID]
	if !ok {
		if _, err := d.tabs.Get(tabID); err != nil {
			d.mu.Unlock()
			return err
		}
		w = d.startWorker(tabID)
	}
	d.mu.Unlock()

	select {
	case <-w.done:
		return fmt.Errorf("%w: %s", tabs.ErrTabNotFound, tabID)
	default:
	}

	select {
	case w.queue <- p:
		return nil
	case <-w.done:
		return fmt.Errorf("%w: %s", tabs.ErrTabNotFound, tabID)
	case <-p.ctx.Done():
		return p.ctx.Err()
	case <-d.groupCtx.Done():
		return ErrChannelClosed
	}
}

// startWorker creates the per-tab worker. Caller holds d.mu.
func (d *Dispatcher) startWorker(tabID uuid.UUID) *tabWorker {
	ex := &backendExecutor{backend: d.backend, page: engine.PageID(tabID.String())}
	w := &tabWorker{
		id:    tabID,
		queue: make(chan *pending, d.opts.QueueDepth),
		sim:   d.simMaker(ex),
		done:  make(chan struct{}),
	}
	d.workers[tabID] = w

	d.group.Go(func() error {
		d.runWorker(w)
		return nil
	})
	return w
}

// runWorker processes one tab's commands in submission order until the
// worker is stopped. Commands still queued at stop are answered with
// ErrChannelClosed.
func (d *Dispatcher) runWorker(w *tabWorker) {
	for {
		select {
		case <-w.done:
			d.drainQueue(w)
			return
		default:
		}

		select {
		case <-w.done:
			d.drainQueue(w)
			return
		case p := <-w.queue:
			if err := d.sem.Acquire(d.groupCtx, 1); err != nil {
				p.reply <- failure(p.req.ID, ErrChannelClosed)
				continue
			}

			ctx, cancelCmd := context.WithTimeout(d.groupCtx, d.opts.CommandTimeout)
			resp := d.execute(ctx, w, p.req)
			if !resp.OK && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				resp = failure(p.req.ID, fmt.Errorf("%w: %s", ErrCommandTimeout, p.req.Kind))
			}
			cancelCmd()
			d.sem.Release(1)

			p.reply <- resp
		}
	}
}

func (d *Dispatcher) drainQueue(w *tabWorker) {
	for {
		select {
		case p := <-w.queue:
			p.reply <- failure(p.req.ID, ErrChannelClosed)
		default:
			return
		}
	}
}

// removeWorker retires a closed tab's worker. Commands racing the close fail
// on submit with ErrTabNotFound; anything already queued is drained by the
// stopping worker.
func (d *Dispatcher) removeWorker(tabID uuid.UUID) {
	d.mu.Lock()
	w, ok := d.workers[tabID]
	if ok {
		delete(d.workers, tabID)
	}
	d.mu.Unlock()
	if ok {
		w.stop()
	}
}

// publish fans an event out to all matching subscribers, dropping the oldest
// buffered event when a subscriber's channel is full.
func (d *Dispatcher) publish(ev schemas.Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	d.subMu.Lock()
	defer d.subMu.Unlock()

	for _, sub := range d.subs {
		if sub.types != nil && !sub.types[ev.Type] {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			// Drop the oldest event to make room; never block.
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- ev:
			default:
			}
		}
	}
}

func success(id uint64, data []byte) schemas.CommandResponse {
	return schemas.CommandResponse{ID: id, OK: true, Data: data}
}

func failure(id uint64, err error) schemas.CommandResponse {
	return schemas.CommandResponse{ID: id, OK: false, Error: err.Error()}
}

// errOnlySentinel returns err only when it is one of the dispatcher
// sentinels; semantic failures are reported through the response alone.
func errOnlySentinel(err error) error {
	if errors.Is(err, ErrChannelClosed) || errors.Is(err, ErrCommandTimeout) {
		return err
	}
	return nil
}
