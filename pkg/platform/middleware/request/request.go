// Package request stamps each request with an ID and a single "now" so every
// timestamp written while serving it agrees.
package request

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"siwarga/pkg/requestcontext"
)

const HeaderRequestID = "X-Request-ID"

// Middleware reuses an inbound X-Request-ID or generates one, and captures
// the request time.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	return requestcontext.RequestID(ctx)
}
