package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/handler"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/metrics"
	"github.com/startfranchiseid/chatbot-leads-startfranchise/internal/parser"
)

// botAPIWebhookHandler implements spec §6's bot-transport inbound webhook.
// Non-text updates are acknowledged with no effect; everything else goes
// through the same validate gate as wahaWebhookHandler, which also stops
// group chats and bot-authored messages before the handler pipeline.
func botAPIWebhookHandler(h *handler.Handler, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body parser.BotAPIPayload
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			log.Warn().Err(err).Msg("bot webhook: invalid body")
			metrics.HTTPRequests.WithLabelValues("bot_webhook", "invalid_body").Inc()
			writeWebhookResponse(w, webhookResponse{Success: false})
			return
		}
		if !body.HasText() {
			writeWebhookResponse(w, webhookResponse{Success: true, Type: "ignored"})
			return
		}

		msg := parser.FromBotAPI(body)
		switch parser.Validate(msg) {
		case parser.ReasonGroup:
			metrics.HTTPRequests.WithLabelValues("bot_webhook", "group_ignored").Inc()
			writeWebhookResponse(w, webhookResponse{Success: true, Type: "group_ignored"})
			return
		case parser.ReasonBroadcast:
			metrics.HTTPRequests.WithLabelValues("bot_webhook", "broadcast_ignored").Inc()
			writeWebhookResponse(w, webhookResponse{Success: true, Type: "broadcast_ignored"})
			return
		case parser.ReasonMissingID, parser.ReasonMissingUserID, parser.ReasonEmptyText, parser.ReasonFromMe:
			metrics.HTTPRequests.WithLabelValues("bot_webhook", "rejected").Inc()
			writeWebhookResponse(w, webhookResponse{Success: true, Type: "rejected"})
			return
		}

		result := h.Handle(r.Context(), msg)
		metrics.HTTPRequests.WithLabelValues("bot_webhook", resultLabel(result)).Inc()
		writeWebhookResponse(w, webhookResponse{Success: result.Success})
	}
}
