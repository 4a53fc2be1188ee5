package netprobe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/7blacky7/ki-browser-standalone/internal/config"
)

func TestValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		cfg     config.ProxyConfig
		wantErr string
	}{
		{
			name: "disabled proxy always validates",
			cfg:  config.ProxyConfig{},
		},
		{
			name: "http proxy",
			cfg:  config.ProxyConfig{Host: "proxy.corp.local", Port: 8080, Type: config.ProxyHTTP},
		},
		{
			name: "https proxy with credentials",
			cfg: config.ProxyConfig{
				Host: "proxy.corp.local", Port: 443, Type: config.ProxyHTTPS,
				Username: "scanner", Password: "s3cret",
			},
		},
		{
			name: "empty type defaults to http",
			cfg:  config.ProxyConfig{Host: "10.0.0.1", Port: 3128},
		},
		{
			name: "socks5 proxy",
			cfg:  config.ProxyConfig{Host: "127.0.0.1", Port: 1080, Type: config.ProxySOCKS5},
		},
		{
			name: "socks5 with credentials",
			cfg: config.ProxyConfig{
				Host: "127.0.0.1", Port: 1080, Type: config.ProxySOCKS5,
				Username: "user", Password: "pass",
			},
		},
		{
			name: "socks5 oversized credentials",
			cfg: config.ProxyConfig{
				Host: "127.0.0.1", Port: 1080, Type: config.ProxySOCKS5,
				Username: strings.Repeat("u", 256), Password: "pass",
			},
			wantErr: "255 bytes",
		},
		{
			name:    "port out of range",
			cfg:     config.ProxyConfig{Host: "h", Port: 70000, Type: config.ProxyHTTP},
			wantErr: "out of range",
		},
		{
			name:    "zero port",
			cfg:     config.ProxyConfig{Host: "h", Type: config.ProxyHTTP},
			wantErr: "out of range",
		},
		{
			name:    "unsupported type",
			cfg:     config.ProxyConfig{Host: "h", Port: 9050, Type: "socks4"},
			wantErr: "unsupported proxy type",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := Validate(tc.cfg)
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.wantErr)
		})
	}
}
