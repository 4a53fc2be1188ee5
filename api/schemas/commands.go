package schemas

import (
	"fmt"
	"time"

	json "github.com/json-iterator/go"
)

// -- Command Wire Schemas --
//
// These frames cross the dispatcher boundary: a client submits a
// CommandRequest and receives exactly one CommandResponse with the same id.
// Events flow one way, dispatcher to subscribers.

// CommandKind identifies the operation a request asks for.
type CommandKind string

const (
	CmdCreateTab         CommandKind = "create_tab"
	CmdCloseTab          CommandKind = "close_tab"
	CmdActivateTab       CommandKind = "activate_tab"
	CmdListTabs          CommandKind = "list_tabs"
	CmdNavigate          CommandKind = "navigate"
	CmdBack              CommandKind = "back"
	CmdForward           CommandKind = "forward"
	CmdReload            CommandKind = "reload"
	CmdClickXY           CommandKind = "click_xy"
	CmdClickElement      CommandKind = "click_element"
	CmdTypeText          CommandKind = "type_text"
	CmdPressKey          CommandKind = "press_key"
	CmdEvaluateScript    CommandKind = "evaluate_script"
	CmdCaptureScreenshot CommandKind = "capture_screenshot"
	CmdScroll            CommandKind = "scroll"
	CmdFindElement       CommandKind = "find_element"
	CmdGetPageInfo       CommandKind = "get_page_info"
	CmdSetViewport       CommandKind = "set_viewport"
	CmdGetCookies        CommandKind = "get_cookies"
	CmdSetCookie         CommandKind = "set_cookie"
	CmdClearCookies      CommandKind = "clear_cookies"
	CmdShutdown          CommandKind = "shutdown"
)

// Scroll behaviors accepted by CommandRequest.Behavior.
const (
	ScrollSmooth  = "smooth"
	ScrollInstant = "instant"
	ScrollAuto    = "auto"
)

// CommandRequest is the envelope for a single command submission.
type CommandRequest struct {
	ID   uint64      `json:"id"`
	Kind CommandKind `json:"kind"`
	// TabID targets an existing tab. Empty for tab-independent commands
	// (create_tab, list_tabs, shutdown).
	TabID string `json:"tab_id,omitempty"`

	URL      string  `json:"url,omitempty"`
	Selector string  `json:"selector,omitempty"`
	Text     string  `json:"text,omitempty"`
	Key      string  `json:"key,omitempty"`
	Script   string  `json:"script,omitempty"`
	X        float64 `json:"x,omitempty"`
	Y        float64 `json:"y,omitempty"`
	DeltaX   float64 `json:"delta_x,omitempty"`
	DeltaY   float64 `json:"delta_y,omitempty"`
	Width    int     `json:"width,omitempty"`
	Height   int     `json:"height,omitempty"`
	// AwaitPromise makes evaluate_script wait for a returned promise to
	// settle; a rejection fails the command with the page-side message.
	AwaitPromise bool `json:"await_promise,omitempty"`
	// Behavior selects the scroll delivery: "smooth" (default) paces the
	// deltas like a human, "instant"/"auto" applies them in one step.
	Behavior string             `json:"behavior,omitempty"`
	Button   MouseButton        `json:"button,omitempty"`
	Active   bool               `json:"active,omitempty"`
	Cookie   *Cookie            `json:"cookie,omitempty"`
	Shot     *ScreenshotOptions `json:"screenshot,omitempty"`
}

// Validate performs wire-level checks before the request enters the
// dispatcher. Semantic errors (unknown tab, bad selector) surface later.
func (r *CommandRequest) Validate() error {
	switch r.Kind {
	case CmdCreateTab, CmdListTabs, CmdShutdown:
		return nil
	case CmdNavigate:
		if r.URL == "" {
			return fmt.Errorf("navigate requires a url")
		}
	case CmdClickElement, CmdFindElement:
		if r.Selector == "" {
			return fmt.Errorf("%s requires a selector", r.Kind)
		}
	case CmdTypeText:
		if r.Text == "" {
			return fmt.Errorf("type_text requires text")
		}
	case CmdPressKey:
		if r.Key == "" {
			return fmt.Errorf("press_key requires a key")
		}
	case CmdEvaluateScript:
		if r.Script == "" {
			return fmt.Errorf("evaluate_script requires a script")
		}
	case CmdSetViewport:
		if r.Width <= 0 || r.Height <= 0 {
			return fmt.Errorf("set_viewport requires positive dimensions")
		}
	case CmdSetCookie:
		if r.Cookie == nil || r.Cookie.Name == "" {
			return fmt.Errorf("set_cookie requires a named cookie")
		}
	case CmdScroll:
		switch r.Behavior {
		case "", ScrollSmooth, ScrollInstant, ScrollAuto:
		default:
			return fmt.Errorf("scroll behavior must be one of smooth, instant, auto; got %q", r.Behavior)
		}
	case CmdCloseTab, CmdActivateTab, CmdBack, CmdForward, CmdReload,
		CmdClickXY, CmdCaptureScreenshot, CmdGetPageInfo,
		CmdGetCookies, CmdClearCookies:
	default:
		return fmt.Errorf("unknown command kind %q", r.Kind)
	}
	if r.TabID == "" {
		return fmt.Errorf("%s requires a tab_id", r.Kind)
	}
	return nil
}

// CommandResponse answers exactly one CommandRequest, correlated by ID.
type CommandResponse struct {
	ID    uint64          `json:"id"`
	OK    bool            `json:"ok"`
	Error string          `json:"error,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// -- Event Schemas --

// EventType classifies dispatcher broadcast events.
type EventType string

const (
	EventTabCreated      EventType = "tab_created"
	EventTabClosed       EventType = "tab_closed"
	EventTabActivated    EventType = "tab_activated"
	EventTabStateChanged EventType = "tab_state_changed"
	EventNavigationDone  EventType = "navigation_done"
	EventTabCrashed      EventType = "tab_crashed"
	EventShutdown        EventType = "shutdown"
)

// Event is a one-way notification frame from the dispatcher to subscribers.
// Timestamp is stamped at publish time.
type Event struct {
	Type      EventType `json:"type"`
	TabID     string    `json:"tab_id,omitempty"`
	State     TabState  `json:"state,omitempty"`
	URL       string    `json:"url,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// MarshalResult encodes arbitrary result data for a CommandResponse.
func MarshalResult(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode command result: %w", err)
	}
	return b, nil
}
