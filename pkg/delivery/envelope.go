package delivery

import (
	"fmt"
	"strings"
	"time"
)

// Topic is a named broadcast group. Connections join a topic to receive
// fan-out messages addressed to that name.
type Topic string

// UserTopic returns the reserved per-user topic. Every connection that
// registers as the user is implicitly a member; clients never join it
// explicitly.
func UserTopic(userID string) Topic {
	return Topic("user:" + userID)
}

// ChatTopic returns the per-conversation topic that connections join and
// leave on client request.
func ChatTopic(chatID string) Topic {
	return Topic("chat:" + chatID)
}

// IsUserTopic reports whether t is a reserved per-user topic.
func (t Topic) IsUserTopic() bool {
	return strings.HasPrefix(string(t), "user:")
}

// Envelope is the immutable message/event value routed by the delivery
// engine. It is constructed once per delivery attempt and never mutated.
// The JSON field names match the wire format consumed by existing clients.
type Envelope struct {
	ID          int64     `json:"id_mensaje"`
	SenderID    string    `json:"id_remitente"`
	RecipientID string    `json:"id_destinatario"`
	ChatID      string    `json:"id_chat,omitempty"`
	Content     string    `json:"contenido"`
	CreatedAt   time.Time `json:"timestamp"`
}

// NewEnvelope builds an envelope for a single delivery attempt. The message
// identifier is time-derived; uniqueness across service instances is not
// guaranteed.
func NewEnvelope(senderID, recipientID, chatID, content string) *Envelope {
	return &Envelope{
		ID:          time.Now().UnixMilli(),
		SenderID:    senderID,
		RecipientID: recipientID,
		ChatID:      chatID,
		Content:     content,
		CreatedAt:   time.Now().UTC(),
	}
}

// Validate rejects malformed envelopes at the control-surface boundary
// before they reach the delivery engine.
func (e *Envelope) Validate() error {
	if e == nil {
		return fmt.Errorf("envelope cannot be nil")
	}
	if e.RecipientID == "" {
		return fmt.Errorf("envelope is missing a recipient")
	}
	return nil
}
