// File: internal/stealth/persona_test.go
package stealth

import (
	"strings"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildScript(t *testing.T) {
	t.Parallel()

	fp := NewGenerator(99).Generate(WindowsChrome)
	persona := NewPersona(fp)

	script, err := persona.BuildScript()
	require.NoError(t, err)

	// The prelude must bind the fingerprint before the evasion body runs.
	require.True(t, strings.HasPrefix(script, "const __KB_FINGERPRINT = "))
	assert.Contains(t, script, "navigator.webdriver")
	assert.Contains(t, script, "measureText")
	assert.Contains(t, script, "UNMASKED_VENDOR_WEBGL")

	// All three canvas read-back APIs are covered by the noise patch.
	assert.Contains(t, script, "getImageData")
	assert.Contains(t, script, "toDataURL")
	assert.Contains(t, script, "toBlob")

	// The embedded fingerprint JSON must round-trip.
	firstLine := script[:strings.Index(script, "\n")]
	payload := strings.TrimSuffix(strings.TrimPrefix(firstLine, "const __KB_FINGERPRINT = "), ";")
	var decoded Fingerprint
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	assert.Equal(t, fp.UserAgent, decoded.UserAgent)
	assert.Equal(t, fp.CanvasNoise, decoded.CanvasNoise)
}

func TestPersonaUserAgentOverride(t *testing.T) {
	t.Parallel()

	fp := NewGenerator(5).Generate(MacChrome)
	persona := NewPersona(fp)
	assert.Equal(t, fp.UserAgent, persona.UserAgent())

	persona.UserAgentOverride = "CustomAgent/1.0"
	assert.Equal(t, "CustomAgent/1.0", persona.UserAgent())
}

func TestClientHintsConsistency(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name         string
		profile      Profile
		wantPlatform string
		wantBrand    string
	}{
		{name: "windows_chrome", profile: WindowsChrome, wantPlatform: "Windows", wantBrand: "Google Chrome"},
		{name: "windows_edge", profile: WindowsEdge, wantPlatform: "Windows", wantBrand: "Microsoft Edge"},
		{name: "mac_chrome", profile: MacChrome, wantPlatform: "macOS", wantBrand: "Google Chrome"},
		{name: "linux_chrome", profile: LinuxChrome, wantPlatform: "Linux", wantBrand: "Google Chrome"},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			fp := NewGenerator(11).Generate(tc.profile)
			hints := clientHintsFor(fp)

			assert.Equal(t, tc.wantPlatform, hints.Platform)
			assert.False(t, hints.Mobile)
			assert.Equal(t, "64", hints.Bitness)

			brands := make([]string, 0, len(hints.Brands))
			for _, b := range hints.Brands {
				brands = append(brands, b.Brand)
			}
			assert.Contains(t, brands, tc.wantBrand)

			// The major version in the brand list must match the UA string.
			m := chromeVersionRe.FindStringSubmatch(fp.UserAgent)
			require.Len(t, m, 2)
			for _, b := range hints.Brands {
				if b.Brand == tc.wantBrand {
					assert.Equal(t, m[1], b.Version)
				}
			}
		})
	}
}

func TestApplyTaskCount(t *testing.T) {
	t.Parallel()

	// Apply returns the full action sequence; correctness of each CDP call is
	// covered by integration environments, but the task list shape is stable.
	fp := NewGenerator(3).Generate(LinuxChrome)
	tasks := NewPersona(fp).Apply(testLogger())
	assert.Len(t, tasks, 8)
}
