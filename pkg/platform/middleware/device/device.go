// Package device labels the calling device from its User-Agent so scan and
// issuance events can say which handset presented or read a credential.
package device

import (
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"sapp/pkg/requestcontext"
)

// Label returns a short human-readable device label such as "Safari on iPhone"
// or "Chrome on Linux". An empty User-Agent yields "unknown".
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	if ua.Mobile() {
		if platform := ua.Platform(); platform != "" {
			return strings.TrimSpace(browser + " on " + platform)
		}
	}
	os := ua.OS()
	if os == "" {
		os = "Unknown OS"
	}
	return browser + " on " + os
}

// Middleware derives the device label from the User-Agent already placed in
// the context by the metadata middleware.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ua := requestcontext.UserAgent(ctx)
		if ua == "" {
			ua = r.UserAgent()
		}
		ctx = requestcontext.WithDevice(ctx, Label(ua))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
