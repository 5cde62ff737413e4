package device

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"sapp/pkg/requestcontext"
)

const (
	iphoneSafari = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
	linuxChrome  = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

func TestLabel(t *testing.T) {
	t.Run("mobile devices use platform", func(t *testing.T) {
		assert.Equal(t, "Safari on iPhone", Label(iphoneSafari))
	})

	t.Run("desktop devices use OS", func(t *testing.T) {
		assert.Contains(t, Label(linuxChrome), "Chrome on")
		assert.Contains(t, Label(linuxChrome), "Linux")
	})

	t.Run("empty user agent", func(t *testing.T) {
		assert.Equal(t, "unknown", Label(""))
	})
}

func TestMiddleware(t *testing.T) {
	var captured string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = requestcontext.Device(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("User-Agent", iphoneSafari)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, "Safari on iPhone", captured)
}
