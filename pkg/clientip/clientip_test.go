package clientip_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/mfakit/pkg/clientip"
)

func TestResolver_GetIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		headers    []string
		remoteAddr string
		set        map[string]string
		want       string
	}{
		{
			name:       "remote addr only",
			remoteAddr: "203.0.113.7:5555",
			want:       "203.0.113.7",
		},
		{
			name:       "untrusted forwarded header ignored",
			remoteAddr: "10.0.0.1:80",
			set:        map[string]string{"X-Forwarded-For": "198.51.100.1"},
			want:       "10.0.0.1",
		},
		{
			name:       "trusted forwarded header, first valid entry",
			headers:    []string{"X-Forwarded-For"},
			remoteAddr: "10.0.0.1:80",
			set:        map[string]string{"X-Forwarded-For": "garbage, 198.51.100.1, 10.0.0.2"},
			want:       "198.51.100.1",
		},
		{
			name:       "header order respected",
			headers:    []string{"CF-Connecting-IP", "X-Forwarded-For"},
			remoteAddr: "10.0.0.1:80",
			set:        map[string]string{"CF-Connecting-IP": "2001:db8::1", "X-Forwarded-For": "198.51.100.1"},
			want:       "2001:db8::1",
		},
		{
			name:       "ipv4-mapped ipv6 unmapped",
			remoteAddr: "[::ffff:192.0.2.5]:443",
			want:       "192.0.2.5",
		},
		{
			name:       "unparseable remote addr",
			remoteAddr: "not-an-ip",
			want:       "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.set {
				req.Header.Set(k, v)
			}
			r := clientip.NewResolver(clientip.Config{TrustedHeaders: tt.headers})
			assert.Equal(t, tt.want, r.GetIP(req))
		})
	}
}

func TestResolver_Middleware(t *testing.T) {
	t.Parallel()

	var got string
	h := clientip.Resolver{}.Middleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = clientip.GetIPFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:1234"
	h.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.10", got)
}
