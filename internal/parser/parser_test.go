package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate(t *testing.T) {
	base := InboundMessage{MessageID: "m1", UserID: "u1", Text: "hi"}

	assert.Equal(t, ReasonNone, Validate(base))

	missingID := base
	missingID.MessageID = ""
	assert.Equal(t, ReasonMissingID, Validate(missingID))

	group := base
	group.IsGroup = true
	assert.Equal(t, ReasonGroup, Validate(group))

	broadcast := base
	broadcast.IsBroadcast = true
	assert.Equal(t, ReasonBroadcast, Validate(broadcast))

	empty := base
	empty.Text = "   "
	assert.Equal(t, ReasonEmptyText, Validate(empty))
}

func TestDetectIntent(t *testing.T) {
	assert.Equal(t, IntentGreeting, DetectIntent("Halo, selamat siang"))
	assert.Equal(t, IntentOptionSelect, DetectIntent("1"))
	assert.Equal(t, IntentQuestion, DetectIntent("Berapa budget minimum?"))
	assert.Equal(t, IntentFormResponse, DetectIntent("Nama: Budi\nDomisili: Jakarta"))
	assert.Equal(t, IntentUnknown, DetectIntent("ok"))
}

func TestNormalizeWhatsAppID(t *testing.T) {
	assert.Equal(t, "628123456789@s.whatsapp.net", normalizeWhatsAppID("628123456789@c.us"))
	assert.Equal(t, "628123456789@s.whatsapp.net", normalizeWhatsAppID("628123456789"))
	assert.Equal(t, "abc@lid", normalizeWhatsAppID("abc@lid"))
	assert.Equal(t, "628123456789@s.whatsapp.net", normalizeWhatsAppID("628123456789@s.whatsapp.net"))
}

func TestFromWaha_GroupAndBroadcast(t *testing.T) {
	var p WahaPayload
	p.Event = "message"
	p.Payload.ChatID = "12345@g.us"
	msg := FromWaha(p)
	assert.True(t, msg.IsGroup)

	var b WahaPayload
	b.Event = "message"
	b.Payload.ChatID = "status@broadcast"
	msg2 := FromWaha(b)
	assert.True(t, msg2.IsBroadcast)
}

func TestFromBotAPI_RejectsBotAndGroup(t *testing.T) {
	var p BotAPIPayload
	p.Message.Text = "hi"
	p.Message.From.IsBot = true
	p.Message.Chat.Type = "private"
	msg := FromBotAPI(p)
	assert.True(t, msg.FromMe)

	var g BotAPIPayload
	g.Message.Text = "hi"
	g.Message.Chat.Type = "group"
	msg2 := FromBotAPI(g)
	assert.True(t, msg2.IsGroup)
}
