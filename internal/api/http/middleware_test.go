package http

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_ClientIP(t *testing.T) {
	rl := NewRateLimiter(1, 1, []string{"10.0.0.0/8", "192.168.1.4", "bogus"})

	tests := []struct {
		name         string
		remoteAddr   string
		forwardedFor string
		want         string
	}{
		{name: "direct peer", remoteAddr: "203.0.113.7:5000", want: "203.0.113.7"},
		{name: "untrusted peer header ignored", remoteAddr: "203.0.113.7:5000", forwardedFor: "198.51.100.1", want: "203.0.113.7"},
		{name: "trusted cidr", remoteAddr: "10.1.2.3:443", forwardedFor: "198.51.100.1", want: "198.51.100.1"},
		{name: "trusted single ip", remoteAddr: "192.168.1.4:443", forwardedFor: "198.51.100.1", want: "198.51.100.1"},
		{name: "rightmost untrusted hop", remoteAddr: "10.1.2.3:443", forwardedFor: "192.0.2.1, 198.51.100.1, 10.9.9.9", want: "198.51.100.1"},
		{name: "only proxies", remoteAddr: "10.1.2.3:443", forwardedFor: "10.9.9.9", want: "10.1.2.3"},
		{name: "trusted peer without header", remoteAddr: "10.1.2.3:443", want: "10.1.2.3"},
		{name: "remote addr without port", remoteAddr: "203.0.113.7", want: "203.0.113.7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.forwardedFor != "" {
				req.Header.Set("X-Forwarded-For", tt.forwardedFor)
			}
			assert.Equal(t, tt.want, rl.clientIP(req))
		})
	}
}

func TestParseProxy(t *testing.T) {
	network, err := parseProxy("192.168.1.4")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.4/32", network.String())

	network, err = parseProxy("2001:db8::1")
	require.NoError(t, err)
	assert.Equal(t, "2001:db8::1/128", network.String())

	network, err = parseProxy(" 10.0.0.0/8 ")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.0/8", network.String())

	_, err = parseProxy("bogus")
	assert.Error(t, err)
}
