// File: internal/engine/probe.go
package engine

import (
	"os"
	"os/exec"
	"runtime"
)

// chromeCandidates are the executable names chromedp itself searches for, in
// preference order.
var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"chrome",
	"headless-shell",
	"headless_shell",
}

var macChromePaths = []string{
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	"/Applications/Chromium.app/Contents/MacOS/Chromium",
}

// ChromeAvailable reports whether a Chrome-compatible executable can be
// found on this host. It only checks presence; launch failures are still
// possible and surface as ErrBackendUnavailable from Start.
func ChromeAvailable() bool {
	for _, name := range chromeCandidates {
		if _, err := exec.LookPath(name); err == nil {
			return true
		}
	}
	if runtime.GOOS == "darwin" {
		for _, path := range macChromePaths {
			if _, err := os.Stat(path); err == nil {
				return true
			}
		}
	}
	return false
}
