package domain

import (
	"strconv"
	"time"
)

// Message is a durable direct message. IDs are assigned by the message
// store and travel as strings on the wire.
type Message struct {
	ID         int64
	SenderID   int64
	ReceiverID int64
	Content    string
	Timestamp  time.Time
	Read       bool
	ReadAt     *time.Time
}

// MessagePayload is the wire shape of a message, shared by the websocket
// events and the history endpoints.
type MessagePayload struct {
	ID         string  `json:"id"`
	SenderID   int64   `json:"sender_id"`
	ReceiverID int64   `json:"receiver_id"`
	Content    string  `json:"content"`
	Timestamp  string  `json:"timestamp"`
	Read       bool    `json:"read"`
	ReadAt     *string `json:"read_at"`
}

// Payload serializes the message for transport. Timestamps use RFC 3339
// with sub-second precision; read_at stays null until the receiver has
// seen the message.
func (m *Message) Payload() MessagePayload {
	p := MessagePayload{
		ID:         strconv.FormatInt(m.ID, 10),
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Content:    m.Content,
		Timestamp:  m.Timestamp.UTC().Format(time.RFC3339Nano),
		Read:       m.Read,
	}
	if m.ReadAt != nil {
		readAt := m.ReadAt.UTC().Format(time.RFC3339Nano)
		p.ReadAt = &readAt
	}
	return p
}
