package schemas

import (
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRequestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		req     CommandRequest
		wantErr string
	}{
		{name: "create_tab_needs_nothing", req: CommandRequest{Kind: CmdCreateTab}},
		{name: "list_tabs_needs_nothing", req: CommandRequest{Kind: CmdListTabs}},
		{name: "shutdown_needs_nothing", req: CommandRequest{Kind: CmdShutdown}},
		{
			name: "navigate_ok",
			req:  CommandRequest{Kind: CmdNavigate, TabID: "t1", URL: "https://example.com"},
		},
		{
			name:    "navigate_without_url",
			req:     CommandRequest{Kind: CmdNavigate, TabID: "t1"},
			wantErr: "requires a url",
		},
		{
			name:    "navigate_without_tab",
			req:     CommandRequest{Kind: CmdNavigate, URL: "https://example.com"},
			wantErr: "requires a tab_id",
		},
		{
			name:    "click_element_without_selector",
			req:     CommandRequest{Kind: CmdClickElement, TabID: "t1"},
			wantErr: "requires a selector",
		},
		{
			name:    "press_key_without_key",
			req:     CommandRequest{Kind: CmdPressKey, TabID: "t1"},
			wantErr: "requires a key",
		},
		{
			name:    "set_viewport_zero_dims",
			req:     CommandRequest{Kind: CmdSetViewport, TabID: "t1"},
			wantErr: "positive dimensions",
		},
		{
			name:    "set_cookie_without_cookie",
			req:     CommandRequest{Kind: CmdSetCookie, TabID: "t1"},
			wantErr: "named cookie",
		},
		{
			name:    "unknown_kind",
			req:     CommandRequest{Kind: "teleport", TabID: "t1"},
			wantErr: "unknown command kind",
		},
		{
			name: "screenshot_ok",
			req:  CommandRequest{Kind: CmdCaptureScreenshot, TabID: "t1"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.req.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestScreenshotOptionsValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		opts    ScreenshotOptions
		wantErr bool
	}{
		{name: "default_ok", opts: DefaultScreenshotOptions()},
		{name: "webp_ok", opts: ScreenshotOptions{Format: FormatWebP, Quality: 80}},
		{name: "bad_format", opts: ScreenshotOptions{Format: "bmp"}, wantErr: true},
		{name: "quality_too_high", opts: ScreenshotOptions{Format: FormatJPEG, Quality: 101}, wantErr: true},
		{
			name:    "empty_clip",
			opts:    ScreenshotOptions{Format: FormatPNG, Clip: &ClipRegion{Width: 0, Height: 10}},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.opts.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScreenshotFormatMetadata(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "image/png", FormatPNG.MIMEType())
	assert.Equal(t, "image/jpeg", FormatJPEG.MIMEType())
	assert.Equal(t, "image/webp", FormatWebP.MIMEType())
	assert.Equal(t, "png", FormatPNG.Extension())
	assert.Equal(t, "jpg", FormatJPEG.Extension())
	assert.Equal(t, "webp", FormatWebP.Extension())
}

func TestElementGeometryCenter(t *testing.T) {
	t.Parallel()

	geom := &ElementGeometry{
		Vertices: []float64{100, 200, 180, 200, 180, 240, 100, 240},
		Width:    80,
		Height:   40,
	}
	x, y, ok := geom.Center()
	require.True(t, ok)
	assert.Equal(t, 140.0, x)
	assert.Equal(t, 220.0, y)

	_, _, ok = (&ElementGeometry{}).Center()
	assert.False(t, ok)

	var nilGeom *ElementGeometry
	_, _, ok = nilGeom.Center()
	assert.False(t, ok)
}

func TestCommandRequestRoundTrip(t *testing.T) {
	t.Parallel()

	req := CommandRequest{
		ID:    42,
		Kind:  CmdClickElement,
		TabID: "ab12",
		// Selector with characters that shake out escaping problems.
		Selector: `input[name="q"]`,
		Button:   ButtonLeft,
	}
	b, err := json.Marshal(req)
	require.NoError(t, err)

	var decoded CommandRequest
	require.NoError(t, json.Unmarshal(b, &decoded))
	assert.Equal(t, req, decoded)
}
