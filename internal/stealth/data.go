// File: internal/stealth/data.go
package stealth

// Static databases the fingerprint generator draws from. Values mirror what
// real browser populations report; keeping them in one file makes refreshing
// them against telemetry dumps painless.

// userAgents maps a profile to a pool of current, plausible UA strings.
var userAgents = map[Profile][]string{
	WindowsChrome: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	},
	WindowsFirefox: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:126.0) Gecko/20100101 Firefox/126.0",
	},
	WindowsEdge: {
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36 Edg/125.0.0.0",
	},
	MacChrome: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	},
	MacSafari: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	},
	MacFirefox: {
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:127.0) Gecko/20100101 Firefox/127.0",
	},
	LinuxChrome: {
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	},
	LinuxFirefox: {
		"Mozilla/5.0 (X11; Linux x86_64; rv:127.0) Gecko/20100101 Firefox/127.0",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:126.0) Gecko/20100101 Firefox/126.0",
	},
}

// commonResolutions are desktop resolutions ordered roughly by market share.
var commonResolutions = [][2]int64{
	{1920, 1080},
	{1366, 768},
	{1536, 864},
	{2560, 1440},
	{1440, 900},
	{1680, 1050},
	{1280, 720},
	{3840, 2160},
}

// commonTimezones are IANA zone names weighted toward large user populations.
var commonTimezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
	"Europe/London",
	"Europe/Berlin",
	"Europe/Paris",
	"Europe/Warsaw",
	"Asia/Tokyo",
	"Australia/Sydney",
}

// languageSets pair navigator.languages entries with a primary locale.
var languageSets = [][]string{
	{"en-US", "en"},
	{"en-GB", "en"},
	{"de-DE", "de", "en"},
	{"fr-FR", "fr", "en"},
}

var windowsFonts = []string{
	"Arial", "Arial Black", "Calibri", "Cambria", "Candara", "Comic Sans MS",
	"Consolas", "Constantia", "Corbel", "Courier New", "Georgia", "Impact",
	"Lucida Console", "Segoe UI", "Tahoma", "Times New Roman", "Trebuchet MS",
	"Verdana",
}

var macFonts = []string{
	"American Typewriter", "Arial", "Avenir", "Courier New", "Geneva",
	"Georgia", "Gill Sans", "Helvetica", "Helvetica Neue", "Lucida Grande",
	"Menlo", "Monaco", "Optima", "SF Pro Display", "SF Pro Text",
	"Times New Roman", "Verdana",
}

var linuxFonts = []string{
	"DejaVu Sans", "DejaVu Sans Mono", "DejaVu Serif", "Liberation Mono",
	"Liberation Sans", "Liberation Serif", "Noto Sans", "Noto Serif",
	"Ubuntu", "Ubuntu Mono",
}

// chromiumPlugins is the fixed plugin array modern Chromium exposes.
var chromiumPlugins = []string{
	"PDF Viewer",
	"Chrome PDF Viewer",
	"Chromium PDF Viewer",
	"Microsoft Edge PDF Viewer",
	"WebKit built-in PDF",
}

// webGLPair couples an unmasked vendor with a matching renderer string.
type webGLPair struct {
	Vendor   string
	Renderer string
}

var windowsWebGL = []webGLPair{
	{"Google Inc. (NVIDIA)", "ANGLE (NVIDIA, NVIDIA GeForce RTX 3060 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	{"Google Inc. (Intel)", "ANGLE (Intel, Intel(R) UHD Graphics 630 Direct3D11 vs_5_0 ps_5_0, D3D11)"},
	{"Google Inc. (AMD)", "ANGLE (AMD, AMD Radeon RX 6700 XT Direct3D11 vs_5_0 ps_5_0, D3D11)"},
}

var macWebGL = []webGLPair{
	{"Apple Inc.", "Apple M1"},
	{"Apple Inc.", "Apple M2"},
	{"Google Inc. (Apple)", "ANGLE (Apple, Apple M1, OpenGL 4.1)"},
}

var linuxWebGL = []webGLPair{
	{"Mesa", "Mesa Intel(R) UHD Graphics 630 (CFL GT2)"},
	{"Mesa", "AMD Radeon RX 6700 XT (radeonsi, navi22, LLVM 15.0.7)"},
}

var deviceMemoryChoices = []int{4, 8, 16, 32}

var hardwareConcurrencyChoices = []int{4, 6, 8, 12, 16}
