package parser

import (
	"strconv"
	"time"
)

// BotAPIPayload mirrors spec §6's bot-transport webhook shape:
// {update_id, message.{message_id, from.{id,is_bot,first_name},
// chat.{id,type}, date, text}}.
type BotAPIPayload struct {
	UpdateID int64 `json:"update_id"`
	Message  struct {
		MessageID int64  `json:"message_id"`
		Text      string `json:"text"`
		Date      int64  `json:"date"`
		From      struct {
			ID        int64  `json:"id"`
			IsBot     bool   `json:"is_bot"`
			FirstName string `json:"first_name"`
		} `json:"from"`
		Chat struct {
			ID   int64  `json:"id"`
			Type string `json:"type"`
		} `json:"chat"`
	} `json:"message"`
}

// HasText reports whether the update carries a text message at all; a
// non-text update is acknowledged with no effect per spec §6.
func (p BotAPIPayload) HasText() bool {
	return p.Message.Text != ""
}

// FromBotAPI implements the bot-transport branch of spec §4.G
// normalization: only private chats are accepted, bot-author messages are
// rejected.
func FromBotAPI(p BotAPIPayload) InboundMessage {
	isGroup := p.Message.Chat.Type != "private"

	var ts time.Time
	if p.Message.Date > 0 {
		ts = time.Unix(p.Message.Date, 0).UTC()
	}

	return InboundMessage{
		Transport:   TransportTelegram,
		MessageID:   strconv.FormatInt(p.Message.MessageID, 10),
		UserID:      strconv.FormatInt(p.Message.From.ID, 10),
		Text:        p.Message.Text,
		FromMe:      p.Message.From.IsBot,
		IsGroup:     isGroup,
		IsBroadcast: false,
		Timestamp:   ts,
		Metadata: Metadata{
			PushName: p.Message.From.FirstName,
		},
	}
}
