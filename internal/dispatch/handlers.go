package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
	"github.com/7blacky7/ki-browser-standalone/internal/engine"
	"github.com/7blacky7/ki-browser-standalone/internal/tabs"
)

// createTab runs outside the per-tab workers: the tab does not exist yet.
// The manager slot is reserved first so the limit holds under concurrent
// creates; a failed page allocation releases the slot again.
func (d *Dispatcher) createTab(ctx context.Context, req schemas.CommandRequest) (schemas.CommandResponse, error) {
	tab, err := d.tabs.Create()
	if err != nil {
		return failure(req.ID, err), nil
	}

	opts := engine.PageOptions{}
	if d.cfg != nil {
		opts.Width = d.cfg.Browser.WindowWidth
		opts.Height = d.cfg.Browser.WindowHeight
	}
	if err := d.backend.NewPage(ctx, engine.PageID(tab.ID.String()), opts); err != nil {
		_ = d.tabs.Close(tab.ID)
		return failure(req.ID, fmt.Errorf("failed to allocate page: %w", err)), nil
	}

	if req.Active {
		_ = d.tabs.SetActive(tab.ID)
	}

	// An initial URL rides through the normal navigation path so the tab's
	// worker, state machine and events all see it. The tab survives a failed
	// first load; it parks in Error with the cause like any other navigation.
	if req.URL != "" {
		resp, err := d.Send(ctx, schemas.CommandRequest{
			Kind:  schemas.CmdNavigate,
			TabID: tab.ID.String(),
			URL:   req.URL,
		})
		if err != nil {
			return failure(req.ID, err), nil
		}
		if !resp.OK {
			d.logger.Warn("Initial navigation failed",
				zap.String("tab_id", tab.ID.String()),
				zap.String("url", req.URL),
				zap.String("error", resp.Error))
		}
	}

	fresh, err := d.tabs.Get(tab.ID)
	if err != nil {
		return failure(req.ID, err), nil
	}
	active := d.tabs.Active()
	data, err := schemas.MarshalResult(fresh.Snapshot(active != nil && active.ID == tab.ID))
	if err != nil {
		return failure(req.ID, err), nil
	}
	return success(req.ID, data), nil
}

func (d *Dispatcher) listTabs(req schemas.CommandRequest) (schemas.CommandResponse, error) {
	data, err := schemas.MarshalResult(d.tabs.List())
	if err != nil {
		return failure(req.ID, err), nil
	}
	return success(req.ID, data), nil
}

// execute runs one tab-scoped command on its worker goroutine.
func (d *Dispatcher) execute(ctx context.Context, w *tabWorker, req schemas.CommandRequest) schemas.CommandResponse {
	d.logger.Debug("Executing command",
		zap.Uint64("id", req.ID),
		zap.String("kind", string(req.Kind)),
		zap.String("tab_id", req.TabID))

	page := engine.PageID(w.id.String())

	var (
		data []byte
		err  error
	)

	switch req.Kind {
	case schemas.CmdCloseTab:
		err = d.closeTab(ctx, w.id)

	case schemas.CmdActivateTab:
		err = d.tabs.SetActive(w.id)

	case schemas.CmdNavigate:
		data, err = d.navigate(ctx, w.id, func(c context.Context) error {
			return d.backend.Navigate(c, page, req.URL)
		})

	case schemas.CmdBack:
		data, err = d.navigate(ctx, w.id, func(c context.Context) error {
			return d.backend.NavigateBack(c, page)
		})

	case schemas.CmdForward:
		data, err = d.navigate(ctx, w.id, func(c context.Context) error {
			return d.backend.NavigateForward(c, page)
		})

	case schemas.CmdReload:
		data, err = d.navigate(ctx, w.id, func(c context.Context) error {
			return d.backend.Reload(c, page)
		})

	case schemas.CmdClickXY:
		err = w.sim.ClickAt(ctx, req.X, req.Y)

	case schemas.CmdClickElement:
		err = w.sim.ClickElement(ctx, req.Selector, nil)

	case schemas.CmdTypeText:
		if req.Selector != "" {
			err = w.sim.TypeInto(ctx, req.Selector, req.Text)
		} else {
			err = w.sim.Type(ctx, req.Text)
		}

	case schemas.CmdPressKey:
		err = w.sim.Press(ctx, req.Key, 0)

	case schemas.CmdEvaluateScript:
		var raw json.RawMessage
		raw, err = d.backend.EvaluateScript(ctx, page, req.Script, req.AwaitPromise)
		if err == nil {
			data, err = schemas.MarshalResult(map[string]interface{}{"result": raw})
		}

	case schemas.CmdCaptureScreenshot:
		data, err = d.captureScreenshot(ctx, page, req.Shot)

	case schemas.CmdScroll:
		switch req.Behavior {
		case schemas.ScrollInstant, schemas.ScrollAuto:
			err = d.backend.Scroll(ctx, page, req.DeltaX, req.DeltaY)
		default:
			err = w.sim.ScrollBy(ctx, req.DeltaX, req.DeltaY)
		}

	case schemas.CmdFindElement:
		var info *engine.ElementInfo
		info, err = d.findElement(ctx, page, req.Selector)
		if err == nil {
			data, err = schemas.MarshalResult(info)
		}

	case schemas.CmdGetPageInfo:
		var info *schemas.PageInfo
		info, err = d.backend.PageInfo(ctx, page)
		if err == nil {
			data, err = schemas.MarshalResult(info)
		}

	case schemas.CmdSetViewport:
		err = d.backend.SetViewport(ctx, page, req.Width, req.Height)

	case schemas.CmdGetCookies:
		var cookies []schemas.Cookie
		cookies, err = d.backend.Cookies(ctx, page)
		if err == nil {
			data, err = schemas.MarshalResult(cookies)
		}

	case schemas.CmdSetCookie:
		err = d.backend.SetCookie(ctx, page, *req.Cookie)

	case schemas.CmdClearCookies:
		err = d.backend.ClearCookies(ctx, page)

	default:
		err = fmt.Errorf("unknown command kind %q", req.Kind)
	}

	if err != nil {
		d.logger.Warn("Command failed",
			zap.Uint64("id", req.ID),
			zap.String("kind", string(req.Kind)),
			zap.Error(err))
		return failure(req.ID, err)
	}
	return success(req.ID, data)
}

// Elements that are not on the page yet get a short implicit wait before
// find_element gives up; the command does not retry indefinitely.
const (
	findElementWait = 500 * time.Millisecond
	findElementPoll = 50 * time.Millisecond
)

func (d *Dispatcher) findElement(ctx context.Context, page engine.PageID, selector string) (*engine.ElementInfo, error) {
	deadline := time.Now().Add(findElementWait)
	for {
		info, err := d.backend.QueryElement(ctx, page, selector)
		if err == nil || !errors.Is(err, engine.ErrElementNotFound) {
			return info, err
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-time.After(findElementPoll):
		case <-ctx.Done():
			return nil, err
		}
	}
}

// navigate drives the common navigation pipeline: the tab passes through
// Navigating, the backend move runs, and on success the page metadata is
// refreshed before the tab settles in Loaded. A failed move parks the tab in
// Error with the cause; the tab stays open for another attempt.
func (d *Dispatcher) navigate(ctx context.Context, tabID uuid.UUID, move func(context.Context) error) ([]byte, error) {
	d.navMu.Lock()
	d.navInFlight[tabID] = true
	d.navMu.Unlock()
	defer func() {
		d.navMu.Lock()
		delete(d.navInFlight, tabID)
		d.navMu.Unlock()
	}()

	if err := d.tabs.Transition(tabID, tabs.StateNavigating); err != nil {
		return nil, err
	}

	page := engine.PageID(tabID.String())
	if err := move(ctx); err != nil {
		_ = d.tabs.MarkError(tabID, err.Error())
		d.publish(schemas.Event{
			Type:  schemas.EventNavigationDone,
			TabID: tabID.String(),
			Error: err.Error(),
		})
		return nil, err
	}

	info, err := d.backend.PageInfo(ctx, page)
	if err != nil {
		_ = d.tabs.MarkError(tabID, err.Error())
		return nil, err
	}
	if err := d.tabs.UpdatePage(tabID, info.URL, info.Title); err != nil {
		return nil, err
	}
	if err := d.tabs.Transition(tabID, tabs.StateLoaded); err != nil {
		return nil, err
	}

	d.publish(schemas.Event{
		Type:  schemas.EventNavigationDone,
		TabID: tabID.String(),
		URL:   info.URL,
	})
	return schemas.MarshalResult(info)
}

// closeTab tears down the page, removes the tab and retires its worker. The
// worker keeps running long enough to reply to this command, then drains and
// exits.
func (d *Dispatcher) closeTab(ctx context.Context, tabID uuid.UUID) error {
	if err := d.backend.ClosePage(ctx, engine.PageID(tabID.String())); err != nil {
		d.logger.Warn("Page close failed", zap.String("tab_id", tabID.String()), zap.Error(err))
	}
	if err := d.tabs.Close(tabID); err != nil {
		return err
	}
	d.removeWorker(tabID)
	return nil
}

// screenshotResult is the wire payload for capture_screenshot. Data is
// base64-encoded by the JSON layer.
type screenshotResult struct {
	Format schemas.ScreenshotFormat `json:"format"`
	Data   []byte                   `json:"data"`
}

func (d *Dispatcher) captureScreenshot(ctx context.Context, page engine.PageID, opts *schemas.ScreenshotOptions) ([]byte, error) {
	shot := schemas.DefaultScreenshotOptions()
	if opts != nil {
		shot = *opts
	}
	if err := shot.Validate(); err != nil {
		return nil, err
	}
	img, err := d.backend.CaptureScreenshot(ctx, page, shot)
	if err != nil {
		return nil, err
	}
	return schemas.MarshalResult(screenshotResult{Format: shot.Format, Data: img})
}
