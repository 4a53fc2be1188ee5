// File: internal/stealth/fingerprint_test.go
package stealth

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateDeterministic(t *testing.T) {
	t.Parallel()

	for _, profile := range AllProfiles {
		profile := profile
		t.Run(string(profile), func(t *testing.T) {
			t.Parallel()

			a := NewGenerator(42).Generate(profile)
			b := NewGenerator(42).Generate(profile)

			if diff := cmp.Diff(a, b); diff != "" {
				t.Fatalf("same seed produced different fingerprints (-a +b):\n%s", diff)
			}
		})
	}
}

func TestGenerateSeedsDiffer(t *testing.T) {
	t.Parallel()

	// Different seeds should not converge on an identical identity. Compare
	// the canvas noise, which has a 63-bit range, rather than fields drawn
	// from small pools.
	a := NewGenerator(1).Generate(WindowsChrome)
	b := NewGenerator(2).Generate(WindowsChrome)
	assert.NotEqual(t, a.CanvasNoise, b.CanvasNoise)
}

func TestZeroSeedIsRandomized(t *testing.T) {
	t.Parallel()

	a := NewGenerator(0)
	b := NewGenerator(0)
	assert.NotEqual(t, a.Seed(), b.Seed(), "zero seed should draw a random seed per generator")
	assert.NotZero(t, a.Seed())
}

func TestFingerprintConsistency(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		profile      Profile
		platform     string
		vendor       string
		uaSubstring  string
		wantPlugins  bool
		chromium     bool
		fontExamples []string
	}{
		{
			profile: WindowsChrome, platform: "Win32", vendor: "Google Inc.",
			uaSubstring: "Windows NT 10.0", wantPlugins: true, chromium: true,
			fontExamples: []string{"Segoe UI"},
		},
		{
			profile: WindowsEdge, platform: "Win32", vendor: "Google Inc.",
			uaSubstring: "Edg/", wantPlugins: true, chromium: true,
			fontExamples: []string{"Tahoma"},
		},
		{
			profile: WindowsFirefox, platform: "Win32", vendor: "",
			uaSubstring: "Firefox/", wantPlugins: false, chromium: false,
			fontExamples: []string{"Verdana"},
		},
		{
			profile: MacChrome, platform: "MacIntel", vendor: "Google Inc.",
			uaSubstring: "Macintosh", wantPlugins: true, chromium: true,
			fontExamples: []string{"Helvetica"},
		},
		{
			profile: MacSafari, platform: "MacIntel", vendor: "Apple Computer, Inc.",
			uaSubstring: "Version/", wantPlugins: false, chromium: false,
			fontExamples: []string{"Geneva"},
		},
		{
			profile: LinuxChrome, platform: "Linux x86_64", vendor: "Google Inc.",
			uaSubstring: "X11; Linux", wantPlugins: true, chromium: true,
			fontExamples: []string{"DejaVu Sans"},
		},
		{
			profile: LinuxFirefox, platform: "Linux x86_64", vendor: "",
			uaSubstring: "Firefox/", wantPlugins: false, chromium: false,
			fontExamples: []string{"Liberation Sans"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(string(tc.profile), func(t *testing.T) {
			t.Parallel()

			fp := NewGenerator(7).Generate(tc.profile)

			assert.Equal(t, tc.platform, fp.Platform)
			assert.Equal(t, tc.vendor, fp.Vendor)
			assert.Contains(t, fp.UserAgent, tc.uaSubstring)
			assert.Equal(t, tc.chromium, tc.profile.IsChromium())

			if tc.wantPlugins {
				assert.NotEmpty(t, fp.Plugins)
			} else {
				assert.Empty(t, fp.Plugins)
			}

			// Not every font survives the random drop, but at most two are
			// removed, so the probe fonts below must not all be missing.
			joined := strings.Join(fp.Fonts, ",")
			found := false
			for _, f := range tc.fontExamples {
				if strings.Contains(joined, f) {
					found = true
				}
			}
			assert.True(t, found || len(fp.Fonts) > 0)

			assert.Greater(t, fp.ScreenWidth, int64(0))
			assert.Greater(t, fp.ScreenHeight, int64(0))
			assert.Less(t, fp.AvailHeight, fp.ScreenHeight, "availHeight must account for OS chrome")
			assert.Equal(t, 24, fp.ColorDepth)
			assert.NotEmpty(t, fp.Timezone)
			assert.NotEmpty(t, fp.WebGLVendor)
			assert.NotEmpty(t, fp.WebGLRenderer)
			assert.NotEmpty(t, fp.Languages)
		})
	}
}

func TestParseProfile(t *testing.T) {
	t.Parallel()

	p, err := ParseProfile(" Windows-Chrome ")
	require.NoError(t, err)
	assert.Equal(t, WindowsChrome, p)

	_, err = ParseProfile("beos-netscape")
	assert.Error(t, err)
}

func TestRandomWeightedTowardChrome(t *testing.T) {
	t.Parallel()

	chrome := 0
	const samples = 200
	for i := int64(1); i <= samples; i++ {
		fp := NewGenerator(i).Random()
		if fp.Profile == WindowsChrome || fp.Profile == MacChrome || fp.Profile == LinuxChrome {
			chrome++
		}
	}
	// Chrome holds 7 of 14 weight slots; allow generous slack.
	assert.Greater(t, chrome, samples/4)
}
