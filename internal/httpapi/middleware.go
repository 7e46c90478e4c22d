package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/metrics"
)

// requestLogger mirrors the teacher's request-scoped zerolog pattern:
// attach a request-scoped logger and emit one structured line per request.
func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			r = r.WithContext(log.WithContext(r.Context()))
			next.ServeHTTP(ww, r)
			dur := time.Since(start)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", dur).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
			metrics.HTTPRequestDuration.WithLabelValues(r.URL.Path).Observe(dur.Seconds())
		})
	}
}
