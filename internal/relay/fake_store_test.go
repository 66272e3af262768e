package relay

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/driftline/driftline/internal/domain"
	"github.com/driftline/driftline/internal/store"
)

// fakeStore is an in-memory store.Repository for pipeline tests.
type fakeStore struct {
	mu        sync.Mutex
	users     map[int64]*domain.User
	messages  map[int64]*domain.Message
	nextID    int64
	insertErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:    make(map[int64]*domain.User),
		messages: make(map[int64]*domain.Message),
	}
}

func (f *fakeStore) CreateUser(_ context.Context, user *domain.User) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	created := *user
	created.ID = f.nextID
	f.users[created.ID] = &created
	return &created, nil
}

func (f *fakeStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (f *fakeStore) GetUserByMobile(_ context.Context, mobile string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.MobileNumber == mobile {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListUsers(_ context.Context) ([]*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.User
	for _, u := range f.users {
		copied := *u
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateIdentityStability(_ context.Context, id int64, stability string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		u.IdentityStability = stability
	}
	return nil
}

func (f *fakeStore) InsertMessage(_ context.Context, msg *domain.Message) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	f.nextID++
	stored := *msg
	stored.ID = f.nextID
	f.messages[stored.ID] = &stored
	return stored.ID, nil
}

func (f *fakeStore) History(_ context.Context, userID, otherID int64, skip, limit int) ([]*domain.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Message
	for _, m := range f.messages {
		if (m.SenderID == userID && m.ReceiverID == otherID) ||
			(m.SenderID == otherID && m.ReceiverID == userID) {
			copied := *m
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	if skip >= len(out) {
		return nil, nil
	}
	out = out[skip:]
	if limit >= 0 && limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) MarkRead(_ context.Context, messageID, receiverID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.messages[messageID]
	if !ok || m.ReceiverID != receiverID || m.Read {
		return false, nil
	}
	now := time.Now()
	m.Read = true
	m.ReadAt = &now
	return true, nil
}

func (f *fakeStore) MarkConversationRead(_ context.Context, senderID, receiverID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	now := time.Now()
	for _, m := range f.messages {
		if m.SenderID == senderID && m.ReceiverID == receiverID && !m.Read {
			m.Read = true
			m.ReadAt = &now
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) Ping(context.Context) error { return nil }
func (f *fakeStore) Close() error               { return nil }

func (f *fakeStore) message(id int64) *domain.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m, ok := f.messages[id]; ok {
		copied := *m
		return &copied
	}
	return nil
}

func (f *fakeStore) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

var _ store.Repository = (*fakeStore)(nil)
