package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		headers    map[string]string
		remoteAddr string
		expected   string
	}{
		{"forwarded single", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "10.0.0.1:1234", "203.0.113.5"},
		{"forwarded chain takes first", map[string]string{"X-Forwarded-For": " 203.0.113.5 , 10.0.0.2"}, "10.0.0.1:1234", "203.0.113.5"},
		{"forwarded ipv6", map[string]string{"X-Forwarded-For": "2001:db8::1"}, "10.0.0.1:1234", "2001:db8::1"},
		{"forwarded garbage falls through", map[string]string{"X-Forwarded-For": "<script>", "X-Real-IP": "198.51.100.7"}, "10.0.0.1:1234", "198.51.100.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.7"}, "10.0.0.1:1234", "198.51.100.7"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "198.51.100.7"}, "10.0.0.1:1234", "203.0.113.5"},
		{"remote addr ipv4", nil, "192.0.2.10:5555", "192.0.2.10"},
		{"remote addr ipv6", nil, "[2001:db8::2]:443", "2001:db8::2"},
		{"malformed remote addr", nil, "not-an-addr", "not-an-addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, GetClientIP(r))
		})
	}
}
