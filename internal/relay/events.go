package relay

import "encoding/json"

// Event names produced by the relay.
const (
	EventUserConnected    = "user_connected"
	EventUserDisconnected = "user_disconnected"
	EventOnlineUsers      = "online_users"
	EventNewMessage       = "new_message"
	EventMessageSent      = "message_sent"
	EventUserTyping       = "user_typing"
	EventMessageRead      = "message_read"
	EventChatHistory      = "chat_history"
	EventHarmonicSync     = "harmonic_sync"
	EventError            = "error"
)

// Event names consumed by the relay.
const (
	EventSendMessage    = "send_message"
	EventTypingStart    = "typing_start"
	EventTypingStop     = "typing_stop"
	EventMarkRead       = "mark_read"
	EventGetChatHistory = "get_chat_history"
)

// Envelope is the JSON frame exchanged over the websocket in both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type sendMessageData struct {
	Token      string `json:"token"`
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

type typingData struct {
	Token      string `json:"token"`
	ReceiverID int64  `json:"receiver_id"`
}

type markReadData struct {
	Token     string `json:"token"`
	MessageID string `json:"message_id"`
	SenderID  int64  `json:"sender_id"`
}

type historyData struct {
	Token       string `json:"token"`
	OtherUserID int64  `json:"other_user_id"`
}

type userEvent struct {
	UserID int64 `json:"user_id"`
}

type onlineUsersEvent struct {
	Users []int64 `json:"users"`
}

type typingEvent struct {
	UserID   int64 `json:"user_id"`
	IsTyping bool  `json:"is_typing"`
}

type messageReadEvent struct {
	MessageID string `json:"message_id"`
	ReadBy    int64  `json:"read_by"`
	ReadAt    string `json:"read_at"`
}

type harmonicSyncEvent struct {
	Users []int64 `json:"users"`
	Phase float64 `json:"phase"`
	Mood  string  `json:"mood"`
}

type errorEvent struct {
	Message string `json:"message"`
}
