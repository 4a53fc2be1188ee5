// File: internal/engine/cdp/errors.go
package cdp

import "strings"

// Chromium reports these net error codes when the upstream proxy rejects or
// requires credentials.
var proxyAuthMarkers = []string{
	"net::ERR_PROXY_AUTH_REQUESTED",
	"net::ERR_PROXY_AUTH_UNSUPPORTED",
	"net::ERR_PROXY_CONNECTION_FAILED",
	"net::ERR_TUNNEL_CONNECTION_FAILED",
}

func isProxyAuthError(err error) bool {
	msg := err.Error()
	for _, marker := range proxyAuthMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// isScriptException recognizes runtime evaluation failures surfaced by
// chromedp, which wraps Runtime.exceptionDetails into the error text.
func isScriptException(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "exception") ||
		strings.Contains(msg, "Uncaught") ||
		strings.Contains(msg, "encountered an undefined value")
}
