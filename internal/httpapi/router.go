// Package httpapi is the HTTP Transport (SPEC_FULL.md component K): a chi
// router exposing the webhook endpoints of spec §6, plus health and
// metrics.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/handler"
)

// NewRouter builds the chi router for the webhook endpoints. basePath
// matches spec §6's `/<base>/waha/webhook` and `/<base>/telegram/webhook`
// routes; requestDeadline bounds every request per spec §5.
func NewRouter(h *handler.Handler, basePath string, requestDeadline time.Duration, log zerolog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(log))
	// Recover panics into a logged HTTP 200 envelope, so a crashing
	// request never makes the transport retry.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					log.Error().Interface("panic", rec).Str("path", req.URL.Path).Msg("recovered panic")
					writeWebhookResponse(w, webhookResponse{Success: false})
				}
			}()
			next.ServeHTTP(w, req)
		})
	})
	r.Use(middleware.Timeout(requestDeadline))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	if basePath == "" {
		basePath = "/"
	}
	r.Route(basePath, func(r chi.Router) {
		r.Post("/waha/webhook", wahaWebhookHandler(h, log))
		r.Post("/telegram/webhook", botAPIWebhookHandler(h, log))
	})

	return r
}
