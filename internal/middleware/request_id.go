// Package middleware holds the HTTP middleware chain shared by the API
// server and the Lambda handler.
package middleware

import (
	"context"
	"net/http"

	"github.com/awslabs/aws-lambda-go-api-proxy/core"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLen bounds a client-supplied id; longer ones are replaced.
const maxRequestIDLen = 128

type requestIDKey struct{}

// newRequestID mints an id when neither the client nor the gateway sent one.
var newRequestID = func() string { return uuid.New().String() }

// RequestID tags each request with an id, exposed in the request context and
// echoed in the response header. A well-formed client X-Request-ID wins. Under
// Lambda the API Gateway request id comes next. Otherwise a fresh UUID is used.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := resolveRequestID(r)
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(WithRequestID(r.Context(), id)))
	})
}

func resolveRequestID(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); validRequestID(id) {
		return id
	}
	if proxy, ok := core.GetAPIGatewayV2ContextFromContext(r.Context()); ok && validRequestID(proxy.RequestID) {
		return proxy.RequestID
	}
	return newRequestID()
}

// validRequestID accepts short tokens of letters, digits and -_.: only, so a
// client cannot smuggle control characters into logs or headers.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		case c == '-', c == '_', c == '.', c == ':':
		default:
			return false
		}
	}
	return true
}

// WithRequestID returns a copy of ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// GetRequestID returns the id stored by RequestID, or "" outside a request.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
