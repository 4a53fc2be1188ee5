// File: internal/engine/cdp/errors_test.go
package cdp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/7blacky7/ki-browser-standalone/internal/engine"
)

func TestMapNavigationError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "nil_passthrough", err: nil, expected: nil},
		{
			name:     "deadline_becomes_navigation_timeout",
			err:      fmt.Errorf("page load: %w", context.DeadlineExceeded),
			expected: engine.ErrNavigationTimeout,
		},
		{
			name:     "proxy_auth_requested",
			err:      errors.New("page load error net::ERR_PROXY_AUTH_REQUESTED"),
			expected: engine.ErrProxyAuthFailure,
		},
		{
			name:     "tunnel_failure",
			err:      errors.New("page load error net::ERR_TUNNEL_CONNECTION_FAILED"),
			expected: engine.ErrProxyAuthFailure,
		},
		{
			name: "other_errors_pass_through",
			err:  errors.New("page load error net::ERR_NAME_NOT_RESOLVED"),
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			mapped := mapNavigationError(tc.err, "https://example.com")
			if tc.err == nil {
				assert.NoError(t, mapped)
				return
			}
			if tc.expected != nil {
				assert.ErrorIs(t, mapped, tc.expected)
			} else {
				assert.Equal(t, tc.err, mapped)
			}
		})
	}
}

func TestIsScriptException(t *testing.T) {
	t.Parallel()

	assert.True(t, isScriptException(errors.New("exception \"Uncaught\" (1:7): ReferenceError")))
	assert.True(t, isScriptException(errors.New("encountered an undefined value")))
	assert.False(t, isScriptException(errors.New("websocket closed")))
}
