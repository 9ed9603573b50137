package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

const logFieldsKey contextKey = "log_fields"

// logFields is filled in by middleware further down the chain.
type logFields struct {
	userID string
}

// Logger returns a request logging middleware using zerolog.
func Logger(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			fields := &logFields{}

			// Wrap response writer to capture status code
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				event := logger.Info()
				if ww.Status() >= http.StatusInternalServerError {
					event = logger.Error()
				}
				event = event.
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Dur("latency", time.Since(start)).
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("remote_addr", r.RemoteAddr)
				if fields.userID != "" {
					event = event.Str("user_id", fields.userID)
				}
				event.Msg("request completed")
			}()

			ctx := context.WithValue(r.Context(), logFieldsKey, fields)
			next.ServeHTTP(ww, r.WithContext(ctx))
		})
	}
}

func setLogUser(ctx context.Context, userID string) {
	if fields, ok := ctx.Value(logFieldsKey).(*logFields); ok {
		fields.userID = userID
	}
}
