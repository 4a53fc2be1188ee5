// Package netprobe validates proxy configuration before the engine starts.
// It checks address shape and auth material locally; live reachability is
// deliberately out of scope, since a proxy that answers the probe can still
// reject the browser's CONNECT later.
package netprobe

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"golang.org/x/net/proxy"

	"github.com/7blacky7/ki-browser-standalone/internal/config"
)

// Validate checks that the proxy settings can produce a usable dialer or
// URL. A disabled proxy always validates.
func Validate(cfg config.ProxyConfig) error {
	if !cfg.Enabled() {
		return nil
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("proxy port %d out of range", cfg.Port)
	}

	switch cfg.Type {
	case config.ProxySOCKS5:
		return validateSOCKS5(cfg)
	case "", config.ProxyHTTP, config.ProxyHTTPS:
		return validateHTTP(cfg)
	default:
		return fmt.Errorf("unsupported proxy type %q", cfg.Type)
	}
}

// validateSOCKS5 builds the x/net dialer the same way a client would; a
// malformed address or credential set fails here instead of mid-session.
func validateSOCKS5(cfg config.ProxyConfig) error {
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	var auth *proxy.Auth
	if cfg.Username != "" {
		// SOCKS5 username/password subnegotiation caps both fields at 255
		// bytes (RFC 1929).
		if len(cfg.Username) > 255 || len(cfg.Password) > 255 {
			return fmt.Errorf("socks5 credentials exceed 255 bytes")
		}
		auth = &proxy.Auth{User: cfg.Username, Password: cfg.Password}
	}
	if _, err := proxy.SOCKS5("tcp", addr, auth, proxy.Direct); err != nil {
		return fmt.Errorf("invalid socks5 proxy %s: %w", addr, err)
	}
	return nil
}

func validateHTTP(cfg config.ProxyConfig) error {
	raw := cfg.URL()
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid proxy url %q: %w", raw, err)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("proxy url %q has no host", raw)
	}
	return nil
}
