// Package parser implements spec component G: normalizing raw transport
// webhook payloads into an InboundMessage and classifying rough intent.
package parser

import (
	"strings"
	"time"
)

// Transport mirrors leadstore.Transport but the parser package must not
// import leadstore (it sits below the handler, which imports both).
type Transport string

const (
	TransportWhatsApp Transport = "whatsapp"
	TransportTelegram Transport = "telegram"
)

// Intent is the result of heuristic intent detection. Per SPEC_FULL.md §9
// it is used only for logging/branch-refinement, never for correctness.
type Intent string

const (
	IntentGreeting     Intent = "greeting"
	IntentOptionSelect Intent = "option_select"
	IntentQuestion     Intent = "question"
	IntentFormResponse Intent = "form_response"
	IntentUnknown      Intent = "unknown"
)

// Metadata carries secondary identity hints extracted during normalization.
type Metadata struct {
	AltID    string
	Phone    string
	PushName string
}

// InboundMessage is the transport-agnostic shape the handler pipeline
// consumes, per spec §4.G.
type InboundMessage struct {
	Transport   Transport
	MessageID   string
	UserID      string
	Text        string
	FromMe      bool
	IsGroup     bool
	IsBroadcast bool
	Timestamp   time.Time
	Metadata    Metadata
}

// Reason explains why validate rejected a message.
type Reason string

const (
	ReasonNone          Reason = ""
	ReasonMissingID     Reason = "missing_message_id"
	ReasonMissingUserID Reason = "missing_user_id"
	ReasonFromMe        Reason = "from_me"
	ReasonGroup         Reason = "group_ignored"
	ReasonBroadcast     Reason = "broadcast_ignored"
	ReasonEmptyText     Reason = "empty_text"
)

// Validate implements spec §4.G validate. It does not reject FromMe, Group
// or Broadcast messages as errors — it tells the caller why dispatch should
// stop so the handler pipeline (or the transport adapter for group/broadcast)
// can respond appropriately without treating it as a processing failure.
func Validate(msg InboundMessage) Reason {
	if msg.MessageID == "" {
		return ReasonMissingID
	}
	if msg.UserID == "" {
		return ReasonMissingUserID
	}
	if msg.IsGroup {
		return ReasonGroup
	}
	if msg.IsBroadcast {
		return ReasonBroadcast
	}
	if msg.FromMe {
		return ReasonFromMe
	}
	if strings.TrimSpace(msg.Text) == "" {
		return ReasonEmptyText
	}
	return ReasonNone
}

var greetingWords = []string{
	"hi", "hello", "halo", "hai", "selamat", "salam", "hey", "pagi", "siang", "sore", "malam",
}

var interrogativeWords = []string{
	"apa", "bagaimana", "gimana", "berapa", "kapan", "dimana", "siapa", "mengapa", "kenapa",
	"what", "how", "when", "where", "who", "why",
}

var formKeywords = []string{
	"biodata", "nama", "domisili", "sumber", "source", "jenis bisnis", "tipe bisnis",
	"bisnis", "budget", "anggaran", "modal", "dana", "kapan", "mulai", "start", "timeline", "rencana",
}

// DetectIntent implements spec §4.G detect_intent.
func DetectIntent(text string) Intent {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	for _, w := range greetingWords {
		if strings.HasPrefix(lower, w) {
			return IntentGreeting
		}
	}

	if len(trimmed) == 1 && trimmed[0] >= '1' && trimmed[0] <= '9' {
		return IntentOptionSelect
	}

	if strings.HasSuffix(strings.TrimSpace(lower), "?") {
		return IntentQuestion
	}
	for _, w := range interrogativeWords {
		if strings.HasPrefix(lower, w) {
			return IntentQuestion
		}
	}

	if strings.Contains(text, "\n") {
		return IntentFormResponse
	}
	hits := 0
	for _, w := range formKeywords {
		if strings.Contains(lower, w) {
			hits++
			if hits >= 2 {
				return IntentFormResponse
			}
		}
	}

	return IntentUnknown
}
