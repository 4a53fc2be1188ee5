// File: internal/tabs/tab.go
package tabs

import (
	"time"

	"github.com/google/uuid"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

// State is a tab's position in its lifecycle.
type State int

const (
	// StateCreated is the initial state before any navigation.
	StateCreated State = iota
	// StateNavigating means a navigation is in flight.
	StateNavigating
	// StateLoaded means the last navigation completed.
	StateLoaded
	// StateError means the last navigation failed; the tab remains usable
	// and may navigate again.
	StateError
	// StateCrashed means the underlying page is gone. Terminal apart from
	// closing.
	StateCrashed
	// StateClosing means teardown has begun.
	StateClosing
	// StateClosed is terminal.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateNavigating:
		return "navigating"
	case StateLoaded:
		return "loaded"
	case StateError:
		return "error"
	case StateCrashed:
		return "crashed"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Wire converts the state to its schema representation.
func (s State) Wire() schemas.TabState {
	switch s {
	case StateCreated:
		return schemas.TabCreated
	case StateNavigating:
		return schemas.TabNavigating
	case StateLoaded:
		return schemas.TabLoaded
	case StateError:
		return schemas.TabError
	case StateCrashed:
		return schemas.TabCrashed
	case StateClosing:
		return schemas.TabClosing
	default:
		return schemas.TabClosed
	}
}

// CanTransitionTo encodes the legal state machine. Crashed is reachable from
// every live state; Closing is reachable from everything except Closed.
func (s State) CanTransitionTo(next State) bool {
	if s == next {
		return false
	}
	switch next {
	case StateCrashed:
		return s != StateClosed && s != StateClosing
	case StateClosing:
		return s != StateClosed
	case StateClosed:
		return s == StateClosing
	}

	switch s {
	case StateCreated:
		return next == StateNavigating
	case StateNavigating:
		return next == StateLoaded || next == StateError
	case StateLoaded:
		return next == StateNavigating
	case StateError:
		// Recoverable: the tab may try again.
		return next == StateNavigating
	default:
		// Crashed, Closing and Closed only leave via the cases above.
		return false
	}
}

// Terminal reports whether the tab can make no further progress.
func (s State) Terminal() bool {
	return s == StateClosed
}

// Tab is a single browser tab tracked by the manager. Fields are guarded by
// the manager's lock; callers receive copies via Snapshot.
type Tab struct {
	ID          uuid.UUID
	URL         string
	Title       string
	State       State
	CreatedAt   time.Time
	LastUpdated time.Time
	// Err holds the message of the last failure when State is Error or
	// Crashed.
	Err string
}

// newTab initializes a tab in the Created state.
func newTab() *Tab {
	now := time.Now()
	return &Tab{
		ID:          uuid.New(),
		URL:         "about:blank",
		State:       StateCreated,
		CreatedAt:   now,
		LastUpdated: now,
	}
}

// Snapshot renders the tab as a wire-level view.
func (t *Tab) Snapshot(active bool) schemas.TabSnapshot {
	return schemas.TabSnapshot{
		ID:          t.ID.String(),
		URL:         t.URL,
		Title:       t.Title,
		State:       t.State.Wire(),
		Active:      active,
		CreatedAt:   t.CreatedAt,
		LastUpdated: t.LastUpdated,
		Error:       t.Err,
	}
}
