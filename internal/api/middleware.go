package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"solana-staking-ledger/internal/observability/tracing"
)

// RequestIDHeader carries the trace id back to the caller.
const RequestIDHeader = "X-Request-ID"

// traceRequests attaches a logger with a per-request trace id to the request
// context and logs the outcome of every request.
func traceRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		ctx := tracing.WithTraceID(r.Context(), id)

		w.Header().Set(RequestIDHeader, id)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r.WithContext(ctx))

		zerolog.Ctx(ctx).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("request served")
	})
}
