// Package middleware provides HTTP middleware for request logging, timeouts and
// panic recovery. It integrates with zerolog and tags every request with an id.
package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/sessionactions/internal/common/httpx"
	"github.com/tansive/sessionactions/internal/common/logtrace"
	"github.com/tansive/sessionactions/internal/common/uuid"
)

// RequestIDHeader carries the request id. An id supplied by the caller is kept.
const RequestIDHeader = "X-Session-Actions-Request-ID"

// RequestLogger adds a request id to the context, the logger and the response
// headers, and logs the start and completion of each request.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = newRequestId()
		}
		ctx := logtrace.WithRequestId(r.Context(), requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)

		w.Header().Set(RequestIDHeader, requestID)
		rw := httpx.NewResponseWriter(w)

		log.Ctx(ctx).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_ip", r.RemoteAddr).
			Str("proto", r.Proto).
			Msg("incoming request")

		defer func() {
			log.Ctx(ctx).Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		}()

		next.ServeHTTP(rw, r.WithContext(ctx))
	})
}

func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return "fallback-" + time.Now().UTC().Format("20060102T150405.000000000")
}
