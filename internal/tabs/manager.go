// File: internal/tabs/manager.go
package tabs

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
)

var (
	// ErrTabLimitExceeded is returned by Create when the tab table is full.
	ErrTabLimitExceeded = errors.New("tab limit exceeded")
	// ErrTabNotFound is returned for ids not present in the table.
	ErrTabNotFound = errors.New("tab not found")
	// ErrInvalidTransition is returned when a state change violates the
	// lifecycle machine. The tab's state is left unchanged.
	ErrInvalidTransition = errors.New("invalid tab state transition")
)

// ChangeListener receives a notification after every successful state
// change, outside the manager lock.
type ChangeListener func(schemas.Event)

// Manager owns the tab table. All mutation goes through it; the max-tab
// limit and the transition matrix are enforced under its write lock.
type Manager struct {
	mu      sync.RWMutex
	tabs    map[uuid.UUID]*Tab
	active  uuid.UUID
	maxTabs int

	listener ChangeListener
	logger   *zap.Logger
}

// NewManager creates a Manager bounded to maxTabs entries.
func NewManager(maxTabs int, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		tabs:    make(map[uuid.UUID]*Tab),
		maxTabs: maxTabs,
		logger:  logger.Named("tabs"),
	}
}

// SetListener installs the change listener. Must be called before the
// manager is shared across goroutines.
func (m *Manager) SetListener(fn ChangeListener) {
	m.listener = fn
}

// Create adds a new tab in the Created state. The limit check and the
// insertion happen under one write lock, so concurrent creates at the limit
// admit exactly as many tabs as there are free slots.
func (m *Manager) Create() (*Tab, error) {
	m.mu.Lock()
	if len(m.tabs) >= m.maxTabs {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %d tabs open", ErrTabLimitExceeded, m.maxTabs)
	}
	t := newTab()
	m.tabs[t.ID] = t
	if m.active == uuid.Nil {
		m.active = t.ID
	}
	count := len(m.tabs)
	snapshot := *t
	m.mu.Unlock()

	m.logger.Info("Tab created", zap.String("tab_id", t.ID.String()), zap.Int("open_tabs", count))
	m.notify(schemas.Event{Type: schemas.EventTabCreated, TabID: t.ID.String(), State: schemas.TabCreated})
	return &snapshot, nil
}

// Get returns a copy of the tab.
func (m *Manager) Get(id uuid.UUID) (*Tab, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tabs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	snapshot := *t
	return &snapshot, nil
}

// List returns wire snapshots of all tabs ordered by creation time.
func (m *Manager) List() []schemas.TabSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]schemas.TabSnapshot, 0, len(m.tabs))
	for _, t := range m.tabs {
		out = append(out, t.Snapshot(t.ID == m.active))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Count returns the number of open tabs.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tabs)
}

// SetActive marks a tab as the focused one.
func (m *Manager) SetActive(id uuid.UUID) error {
	m.mu.Lock()
	if _, ok := m.tabs[id]; !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	m.active = id
	m.mu.Unlock()

	m.notify(schemas.Event{Type: schemas.EventTabActivated, TabID: id.String()})
	return nil
}

// Active returns the focused tab, or nil when no tabs are open.
func (m *Manager) Active() *Tab {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tabs[m.active]
	if !ok {
		return nil
	}
	snapshot := *t
	return &snapshot
}

// Transition moves a tab to the next state, enforcing the lifecycle matrix.
func (m *Manager) Transition(id uuid.UUID, next State) error {
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	if !t.State.CanTransitionTo(next) {
		current := t.State
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, next)
	}
	t.State = next
	t.LastUpdated = time.Now()
	if next == StateNavigating || next == StateLoaded {
		t.Err = ""
	}
	url := t.URL
	m.mu.Unlock()

	m.notify(schemas.Event{
		Type:  schemas.EventTabStateChanged,
		TabID: id.String(),
		State: next.Wire(),
		URL:   url,
	})
	return nil
}

// UpdatePage records the page's URL and title after a completed navigation.
func (m *Manager) UpdatePage(id uuid.UUID, url, title string) error {
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	t.URL = url
	t.Title = title
	t.LastUpdated = time.Now()
	m.mu.Unlock()
	return nil
}

// MarkError transitions the tab to Error with a message. The tab stays open
// and can navigate again.
func (m *Manager) MarkError(id uuid.UUID, msg string) error {
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	if !t.State.CanTransitionTo(StateError) {
		current := t.State
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, StateError)
	}
	t.State = StateError
	t.Err = msg
	t.LastUpdated = time.Now()
	url := t.URL
	m.mu.Unlock()

	m.notify(schemas.Event{
		Type:  schemas.EventTabStateChanged,
		TabID: id.String(),
		State: schemas.TabError,
		URL:   url,
		Error: msg,
	})
	return nil
}

// MarkCrashed transitions the tab to Crashed from any live state.
func (m *Manager) MarkCrashed(id uuid.UUID, msg string) error {
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	if !t.State.CanTransitionTo(StateCrashed) {
		current := t.State
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, StateCrashed)
	}
	t.State = StateCrashed
	t.Err = msg
	t.LastUpdated = time.Now()
	m.mu.Unlock()

	m.logger.Warn("Tab crashed", zap.String("tab_id", id.String()), zap.String("reason", msg))
	m.notify(schemas.Event{
		Type:  schemas.EventTabCrashed,
		TabID: id.String(),
		State: schemas.TabCrashed,
		Error: msg,
	})
	return nil
}

// Close walks the tab through Closing to Closed and removes it from the
// table. The slot is freed before the Closed notification is delivered, so
// a listener reacting to the event can immediately create a replacement.
func (m *Manager) Close(id uuid.UUID) error {
	m.mu.Lock()
	t, ok := m.tabs[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrTabNotFound, id)
	}
	if !t.State.CanTransitionTo(StateClosing) {
		current := t.State
		m.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, StateClosing)
	}
	t.State = StateClosed
	delete(m.tabs, id)
	if m.active == id {
		m.active = uuid.Nil
		// Promote the oldest surviving tab.
		var oldest *Tab
		for _, other := range m.tabs {
			if oldest == nil || other.CreatedAt.Before(oldest.CreatedAt) {
				oldest = other
			}
		}
		if oldest != nil {
			m.active = oldest.ID
		}
	}
	count := len(m.tabs)
	m.mu.Unlock()

	m.logger.Info("Tab closed", zap.String("tab_id", id.String()), zap.Int("open_tabs", count))
	m.notify(schemas.Event{Type: schemas.EventTabClosed, TabID: id.String(), State: schemas.TabClosed})
	return nil
}

// CloseAll tears down every tab, used during shutdown.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	ids := make([]uuid.UUID, 0, len(m.tabs))
	for id := range m.tabs {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		// Crashed tabs still pass through Closing.
		_ = m.Close(id)
	}
}

func (m *Manager) notify(ev schemas.Event) {
	if m.listener != nil {
		m.listener(ev)
	}
}
