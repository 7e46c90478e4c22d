package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/handler"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/metrics"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/parser"
)

type webhookResponse struct {
	Success bool   `json:"success"`
	Type    string `json:"type,omitempty"`
}

func writeWebhookResponse(w http.ResponseWriter, resp webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// wahaWebhookHandler implements spec §6's WhatsApp-style inbound webhook.
// Responses are always HTTP 200 to prevent retry storms; errors are
// logged, not surfaced.
func wahaWebhookHandler(h *handler.Handler, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body parser.WahaPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			log.Warn().Err(err).Msg("waha webhook: invalid body")
			metrics.HTTPRequests.WithLabelValues("waha_webhook", "invalid_body").Inc()
			writeWebhookResponse(w, webhookResponse{Success: false})
			return
		}
		if !body.IsMessageEvent() {
			writeWebhookResponse(w, webhookResponse{Success: true, Type: "ignored"})
			return
		}

		msg := parser.FromWaha(body)
		switch parser.Validate(msg) {
		case parser.ReasonGroup:
			metrics.HTTPRequests.WithLabelValues("waha_webhook", "group_ignored").Inc()
			writeWebhookResponse(w, webhookResponse{Success: true, Type: "group_ignored"})
			return
		case parser.ReasonBroadcast:
			metrics.HTTPRequests.WithLabelValues("waha_webhook", "broadcast_ignored").Inc()
			writeWebhookResponse(w, webhookResponse{Success: true, Type: "broadcast_ignored"})
			return
		case parser.ReasonMissingID, parser.ReasonMissingUserID, parser.ReasonEmptyText:
			metrics.HTTPRequests.WithLabelValues("waha_webhook", "rejected").Inc()
			writeWebhookResponse(w, webhookResponse{Success: true, Type: "rejected"})
			return
		}

		result := h.Handle(r.Context(), msg)
		metrics.HTTPRequests.WithLabelValues("waha_webhook", resultLabel(result)).Inc()
		writeWebhookResponse(w, webhookResponse{Success: result.Success})
	}
}

func resultLabel(r handler.Result) string {
	if !r.Success {
		return "failed"
	}
	if r.ShouldReply {
		return "replied"
	}
	return "no_reply"
}
