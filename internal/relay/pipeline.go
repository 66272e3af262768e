package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/driftline/driftline/internal/domain"
	"github.com/driftline/driftline/internal/metrics"
	"github.com/driftline/driftline/internal/shared"
)

var (
	// ErrUnauthorized means the caller's credential did not resolve to a
	// sender identity.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidMessage means the receiver or content was missing.
	ErrInvalidMessage = errors.New("invalid message data")
)

// Send runs the delivery pipeline for one message: mood-dependent jitter,
// timestamp capture with optional perturbation, a single best-effort
// insert, then fan-out. new_message goes to the receiver only while they
// hold an active session; message_sent always goes back to the
// originating session as the sender's delivery acknowledgment.
//
// The jitter sleep holds no locks and observes ctx; a send abandoned
// before the insert leaves no trace anywhere.
func (h *Hub) Send(ctx context.Context, senderID, receiverID int64, content string, origin Session) error {
	if senderID == 0 {
		return ErrUnauthorized
	}
	if receiverID == 0 || content == "" {
		return ErrInvalidMessage
	}

	delay := h.mood.Delay()
	metrics.DeliveryDelay.Observe(delay.Seconds())

	timer := time.NewTimer(delay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
	}

	timestamp := time.Now()
	if h.mood.ShouldPerturb() {
		// Artistic chronology: the recorded instant may drift up to two
		// seconds either way from true send order.
		timestamp = timestamp.Add(h.mood.PerturbAmount())
	}

	msg := &domain.Message{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Content:    content,
		Timestamp:  timestamp,
	}

	id, err := h.repo.InsertMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("persist message: %w", err)
	}
	msg.ID = id
	metrics.MessagesSent.Inc()

	payload := msg.Payload()
	if s, ok := h.registry.Lookup(receiverID); ok {
		h.emit(s, EventNewMessage, payload)
	}
	h.emit(origin, EventMessageSent, payload)
	return nil
}

// MarkRead flips read state on one message, constrained to messages
// addressed to userID. A malformed message ID and a receiver mismatch
// are both silent no-ops. When a row actually changed and the sender is
// online, they get a message_read receipt.
func (h *Hub) MarkRead(ctx context.Context, userID int64, messageID string, senderID int64) error {
	id, err := strconv.ParseInt(messageID, 10, 64)
	if err != nil {
		return nil
	}

	changed, err := h.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if !changed {
		return nil
	}

	if s, ok := h.registry.Lookup(senderID); ok {
		h.emit(s, EventMessageRead, messageReadEvent{
			MessageID: messageID,
			ReadBy:    userID,
			ReadAt:    time.Now().UTC().Format(time.RFC3339Nano),
		})
	}
	return nil
}

// History returns the conversation between userID and otherID ordered by
// timestamp ascending, paginated by skip/limit (limit < 0 means the full
// conversation). Calling it is itself a mutating operation: every unread
// message addressed to userID in the pair is flipped to read. The
// returned page reflects the state as fetched, before that flip.
func (h *Hub) History(ctx context.Context, userID, otherID int64, skip, limit int) ([]domain.MessagePayload, error) {
	msgs, err := h.repo.History(ctx, userID, otherID, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	h.markConversationRead(ctx, otherID, userID)

	payloads := make([]domain.MessagePayload, 0, len(msgs))
	for _, msg := range msgs {
		payloads = append(payloads, msg.Payload())
	}
	return payloads, nil
}

// markConversationRead is fire-and-forget relative to the returned page:
// a failure is retried on lock contention, then logged and dropped.
func (h *Hub) markConversationRead(ctx context.Context, senderID, receiverID int64) {
	var err error
	for attempt, delay := 0, 50*time.Millisecond; attempt < 3; attempt, delay = attempt+1, delay*2 {
		_, err = h.repo.MarkConversationRead(ctx, senderID, receiverID)
		if err == nil {
			return
		}
		if !shared.IsSQLiteConflictError(err) {
			break
		}
		time.Sleep(delay)
	}
	slog.Warn("History mark-as-read failed",
		"sender_id", senderID, "receiver_id", receiverID, "error", err)
}
