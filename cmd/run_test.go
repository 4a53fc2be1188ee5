package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/7blacky7/ki-browser-standalone/api/schemas"
	"github.com/7blacky7/ki-browser-standalone/internal/config"
	"github.com/7blacky7/ki-browser-standalone/internal/dispatch"
	"github.com/7blacky7/ki-browser-standalone/internal/engine/mock"
	"github.com/7blacky7/ki-browser-standalone/internal/tabs"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// syncBuffer makes console output safe to read while the event pump may
// still be writing.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newConsoleDispatcher(t *testing.T) *dispatch.Dispatcher {
	t.Helper()

	backend := mock.New(mock.Options{}, zap.NewNop())
	require.NoError(t, backend.Start(context.Background()))

	cfg := &config.Config{
		Browser: config.BrowserSettings{
			Engine: "mock", WindowWidth: 1280, WindowHeight: 800,
			MaxTabs: 4, DefaultTimeoutMS: 5000,
		},
		Input: config.InputConfig{Profile: config.InputProfileInstant},
	}
	manager := tabs.NewManager(cfg.Browser.MaxTabs, zap.NewNop())
	d := dispatch.New(backend, manager, cfg, dispatch.DefaultOptions(cfg.Browser), zap.NewNop())

	t.Cleanup(func() {
		d.Shutdown(context.Background())
		require.NoError(t, backend.Stop(context.Background()))
	})
	return d
}

// consoleFrames parses every stdout line into a loosely-typed frame.
func consoleFrames(t *testing.T, raw string) []map[string]interface{} {
	t.Helper()
	var frames []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if line == "" {
			continue
		}
		var frame map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &frame), "bad frame: %s", line)
		frames = append(frames, frame)
	}
	return frames
}

func TestRunConsoleCommandRoundTrip(t *testing.T) {
	d := newConsoleDispatcher(t)

	in := strings.NewReader(`{"id":1,"kind":"create_tab"}` + "\n" + `{"id":2,"kind":"list_tabs"}` + "\n")
	out := &syncBuffer{}

	require.NoError(t, runConsole(context.Background(), d, in, out))

	var responses []schemas.CommandResponse
	for _, frame := range consoleFrames(t, out.String()) {
		if _, isEvent := frame["event"]; isEvent {
			continue
		}
		var resp schemas.CommandResponse
		b, err := json.Marshal(frame)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(b, &resp))
		responses = append(responses, resp)
	}

	require.Len(t, responses, 2)
	assert.Equal(t, uint64(1), responses[0].ID)
	assert.True(t, responses[0].OK, responses[0].Error)
	assert.Equal(t, uint64(2), responses[1].ID)
	assert.True(t, responses[1].OK, responses[1].Error)
}

func TestRunConsoleEmitsEventFrames(t *testing.T) {
	d := newConsoleDispatcher(t)

	in := strings.NewReader(`{"id":7,"kind":"create_tab"}` + "\n")
	out := &syncBuffer{}
	require.NoError(t, runConsole(context.Background(), d, in, out))

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), `"tab_created"`)
	}, time.Second, 10*time.Millisecond)
}

func TestRunConsoleRejectsMalformedLine(t *testing.T) {
	d := newConsoleDispatcher(t)

	in := strings.NewReader("{not json}\n")
	out := &syncBuffer{}
	require.NoError(t, runConsole(context.Background(), d, in, out))

	assert.Contains(t, out.String(), "invalid command frame")
}

func TestRunConsoleSkipsBlankLines(t *testing.T) {
	d := newConsoleDispatcher(t)

	in := strings.NewReader("\n\n")
	out := &syncBuffer{}
	require.NoError(t, runConsole(context.Background(), d, in, out))
	assert.Empty(t, strings.TrimSpace(out.String()))
}

func TestRunConsoleShutdownCommandEndsSession(t *testing.T) {
	d := newConsoleDispatcher(t)

	// No trailing newline reader EOF race: the shutdown command alone must
	// end the loop even if stdin stays open afterwards.
	pr, pw := newBlockingPipe()
	defer pw.close()
	go func() {
		fmt.Fprintln(pw, `{"id":1,"kind":"shutdown"}`)
	}()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- runConsole(context.Background(), d, pr, out) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("console did not stop after shutdown command")
	}
}

func TestRunConsoleStopsOnContextCancel(t *testing.T) {
	d := newConsoleDispatcher(t)

	ctx, cancel := context.WithCancel(context.Background())
	pr, pw := newBlockingPipe()
	defer pw.close()

	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() { done <- runConsole(ctx, d, pr, out) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("console did not stop on cancel")
	}
}

// blockingPipe feeds the console like an interactive stdin: reads block
// until data arrives or the writer closes.
type blockingPipe struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    bytes.Buffer
	closed bool
}

func newBlockingPipe() (*blockingPipe, *blockingPipe) {
	p := &blockingPipe{}
	p.cond = sync.NewCond(&p.mu)
	return p, p
}

func (p *blockingPipe) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.buf.Len() == 0 && !p.closed {
		p.cond.Wait()
	}
	if p.buf.Len() == 0 {
		return 0, io.EOF
	}
	return p.buf.Read(b)
}

func (p *blockingPipe) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, err := p.buf.Write(b)
	p.cond.Broadcast()
	return n, err
}

func (p *blockingPipe) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.cond.Broadcast()
}
