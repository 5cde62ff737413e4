// Package requesttime captures one "now" per HTTP request so that issuance and
// validation inside a request agree on the clock.
package requesttime

import (
	"net/http"
	"time"

	"sapp/pkg/requestcontext"
)

// Middleware stores the current time in the request context. clock defaults to
// time.Now when nil.
func Middleware(clock func() time.Time) func(http.Handler) http.Handler {
	if clock == nil {
		clock = time.Now
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
