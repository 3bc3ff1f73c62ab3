package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/paperalign/paperalign/pkg/logger"
)

type requestIDKey struct{}

const requestIDHeader = "X-Request-ID"

// RequestID returns middleware that assigns each request a unique id.
// An incoming X-Request-ID header is honoured; otherwise a UUID is
// generated. The id is stored in the context, attached to the
// request-scoped logger, and echoed in the response header.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			ctx = logger.WithRequestID(ctx, id)
			w.Header().Set(requestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetRequestID extracts the request id stored by RequestID, or "" if absent.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
