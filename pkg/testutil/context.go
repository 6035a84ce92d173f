package testutil

import (
	"context"
	"net/http"
	"time"

	id "siwarga/pkg/domain"
	"siwarga/pkg/requestcontext"
)

// WithActor adds the authenticated actor to the request context.
// This simulates what the auth middleware does for authenticated requests.
func WithActor(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	return req.WithContext(requestcontext.WithActor(req.Context(), userID, role))
}

// WithTime pins the request clock.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
