package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tansive/sessionactions/internal/common/httpx"
)

// TimeoutHeader reports the timeout applied to the request.
const TimeoutHeader = "X-Session-Actions-Timeout"

// SetTimeout bounds request handling. If the handler has not started writing
// when the deadline passes, the client receives 408 and later handler writes
// are discarded. A deadline already on the request context is kept if sooner.
func SetTimeout(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			w.Header().Set(TimeoutHeader, timeout.String())
			rw := httpx.NewResponseWriter(w)
			r = r.WithContext(ctx)

			done := make(chan struct{})
			go func() {
				defer func() {
					if p := recover(); p != nil {
						log.Ctx(ctx).Error().Msgf("panic in handler: %v", p)
						if rw.Claim() {
							httpx.ErrApplicationError().Send(w)
						}
					}
					close(done)
				}()
				next.ServeHTTP(rw, r)
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				if rw.Claim() {
					httpx.ErrRequestTimeout().Send(w)
				}
				log.Ctx(ctx).Error().Msg("request timed out")
				<-done
			}
		})
	}
}
