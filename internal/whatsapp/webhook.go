package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnsupportedEvent marks webhook payloads that carry no lead text, such as
// receipts, group messages or messages sent from our own device.
var ErrUnsupportedEvent = errors.New("unsupported whatsapp event")

// WebhookPayload is the message webhook body posted by GoWA.
type WebhookPayload struct {
	SenderID  string `json:"sender_id"`
	ChatID    string `json:"chat_id"`
	From      string `json:"from"`
	PushName  string `json:"pushname"`
	Timestamp string `json:"timestamp"`
	IsFromMe  bool   `json:"is_from_me"`
	Event     string `json:"event"`
	Message   struct {
		ID            string `json:"id"`
		Text          string `json:"text"`
		RepliedID     string `json:"replied_id"`
		QuotedMessage string `json:"quoted_message"`
	} `json:"message"`
}

// Inbound is a text message from a lead.
type Inbound struct {
	Phone      string
	Name       string
	Text       string
	ExternalID string
	ReceivedAt time.Time
}

// ParseWebhook decodes a GoWA webhook body into an Inbound message.
func ParseWebhook(body []byte) (Inbound, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Inbound{}, fmt.Errorf("decode whatsapp webhook: %w", err)
	}
	if payload.IsFromMe {
		return Inbound{}, fmt.Errorf("%w: own message", ErrUnsupportedEvent)
	}

	jid := payload.From
	if jid == "" {
		jid = payload.SenderID
	}
	if strings.HasSuffix(jid, "@g.us") || strings.HasSuffix(payload.ChatID, "@g.us") {
		return Inbound{}, fmt.Errorf("%w: group message", ErrUnsupportedEvent)
	}
	// "5491122334455:12@s.whatsapp.net" carries a device suffix.
	if colon := strings.IndexByte(jid, ':'); colon > 0 {
		if at := strings.IndexByte(jid, '@'); at > colon {
			jid = jid[:colon] + jid[at:]
		}
	}

	text := strings.TrimSpace(payload.Message.Text)
	if jid == "" || text == "" {
		return Inbound{}, fmt.Errorf("%w: no text", ErrUnsupportedEvent)
	}

	receivedAt := time.Now().UTC()
	if ts, err := time.Parse(time.RFC3339, payload.Timestamp); err == nil {
		receivedAt = ts.UTC()
	}

	return Inbound{
		Phone:      jid,
		Name:       strings.TrimSpace(payload.PushName),
		Text:       text,
		ExternalID: payload.Message.ID,
		ReceivedAt: receivedAt,
	}, nil
}
