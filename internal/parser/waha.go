package parser

import (
	"strconv"
	"strings"
	"time"
)

// WahaPayload mirrors the subset of the WAHA-style webhook body spec §6
// names: {event, session, payload.{id,from,to,body,fromMe,isGroup,timestamp,
// chatId}, payload._data.key.{remoteJid,remoteJidAlt,fromMe},
// payload._data.pushName}.
type WahaPayload struct {
	Event   string `json:"event"`
	Session string `json:"session"`
	Payload struct {
		ID        string `json:"id"`
		From      string `json:"from"`
		To        string `json:"to"`
		Body      string `json:"body"`
		FromMe    bool   `json:"fromMe"`
		IsGroup   bool   `json:"isGroup"`
		Timestamp int64  `json:"timestamp"`
		ChatID    string `json:"chatId"`
		Data      struct {
			Key struct {
				RemoteJid    string `json:"remoteJid"`
				RemoteJidAlt string `json:"remoteJidAlt"`
				FromMe       bool   `json:"fromMe"`
			} `json:"key"`
			PushName string `json:"pushName"`
		} `json:"_data"`
	} `json:"payload"`
}

// IsMessageEvent reports whether the event is one the handler should
// process at all; spec §6 says any other event returns 200 "ignored".
func (p WahaPayload) IsMessageEvent() bool {
	return p.Event == "message" || p.Event == "message.any"
}

// normalizeWhatsAppID implements spec §4.G's user_id normalization rules.
func normalizeWhatsAppID(raw string) string {
	raw = strings.TrimSpace(raw)
	switch {
	case strings.HasSuffix(raw, "@lid"):
		return raw
	case strings.HasSuffix(raw, "@s.whatsapp.net"):
		return raw
	case strings.HasSuffix(raw, "@c.us"):
		return strings.TrimSuffix(raw, "@c.us") + "@s.whatsapp.net"
	}
	digits := raw
	if idx := strings.Index(raw, "@"); idx >= 0 {
		digits = raw[:idx]
	}
	if len(digits) >= 10 {
		if _, err := strconv.ParseUint(digits, 10, 64); err == nil {
			return digits + "@s.whatsapp.net"
		}
	}
	return raw
}

func isGroupJid(jid string) bool {
	return strings.HasSuffix(jid, "@g.us")
}

func isBroadcastJid(jid string) bool {
	return strings.Contains(jid, "status@broadcast") || strings.Contains(jid, "@broadcast")
}

// FromWaha implements the WhatsApp-style branch of spec §4.G normalization.
func FromWaha(p WahaPayload) InboundMessage {
	remoteJid := p.Payload.Data.Key.RemoteJid
	if remoteJid == "" {
		remoteJid = p.Payload.From
	}
	chatID := p.Payload.ChatID
	if chatID == "" {
		chatID = remoteJid
	}

	fromMe := p.Payload.FromMe || p.Payload.Data.Key.FromMe
	isGroup := p.Payload.IsGroup || isGroupJid(chatID) || isGroupJid(remoteJid)
	isBroadcast := isBroadcastJid(chatID) || isBroadcastJid(remoteJid)

	userID := normalizeWhatsAppID(remoteJid)

	meta := Metadata{
		AltID:    normalizeWhatsAppID(p.Payload.Data.Key.RemoteJidAlt),
		PushName: p.Payload.Data.PushName,
	}
	if strings.HasSuffix(userID, "@s.whatsapp.net") {
		meta.Phone = strings.TrimSuffix(userID, "@s.whatsapp.net")
	}

	var ts time.Time
	if p.Payload.Timestamp > 0 {
		ts = time.Unix(p.Payload.Timestamp, 0).UTC()
	}

	return InboundMessage{
		Transport:   TransportWhatsApp,
		MessageID:   p.Payload.ID,
		UserID:      userID,
		Text:        p.Payload.Body,
		FromMe:      fromMe,
		IsGroup:     isGroup,
		IsBroadcast: isBroadcast,
		Timestamp:   ts,
		Metadata:    meta,
	}
}
