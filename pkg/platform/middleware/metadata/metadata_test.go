package metadata

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"

	"sapp/pkg/requestcontext"
)

func TestClientIP(t *testing.T) {
	proxies := []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")}

	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		trusted    []netip.Prefix
		want       string
	}{
		{name: "plain ipv4 peer", remoteAddr: "192.168.1.10:5555", want: "192.168.1.10"},
		{name: "ipv6 peer", remoteAddr: "[::1]:8080", want: "::1"},
		{name: "empty remote addr", remoteAddr: "", want: "unknown"},
		{
			name:       "xff ignored from untrusted peer",
			remoteAddr: "203.0.113.7:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1"},
			trusted:    proxies,
			want:       "203.0.113.7",
		},
		{
			name:       "xff honoured from trusted proxy",
			remoteAddr: "10.1.2.3:1234",
			headers:    map[string]string{"X-Forwarded-For": "198.51.100.1, 10.1.2.3"},
			trusted:    proxies,
			want:       "198.51.100.1",
		},
		{
			name:       "malformed xff falls back to peer",
			remoteAddr: "10.1.2.3:1234",
			headers:    map[string]string{"X-Forwarded-For": "not-an-ip"},
			trusted:    proxies,
			want:       "10.1.2.3",
		},
		{
			name:       "x-real-ip honoured from trusted proxy",
			remoteAddr: "10.1.2.3:1234",
			headers:    map[string]string{"X-Real-IP": "198.51.100.9"},
			trusted:    proxies,
			want:       "198.51.100.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(req, tt.trusted))
		})
	}
}

func TestMiddlewareStoresMetadata(t *testing.T) {
	var ip, ua string
	handler := Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.4:9000"
	req.Header.Set("User-Agent", "credscan/1.0")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "192.0.2.4", ip)
	assert.Equal(t, "credscan/1.0", ua)
}
