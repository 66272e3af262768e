package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/driftline/driftline/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Failed to close store: %v", err)
		}
	})
	return repo
}

func mustCreateUser(t *testing.T, repo Repository, mobile string) *domain.User {
	t.Helper()
	user, err := repo.CreateUser(context.Background(), &domain.User{
		MobileNumber:      mobile,
		Username:          domain.DefaultUsername(mobile),
		IsActive:          true,
		IdentityStability: domain.StabilityStable,
	})
	if err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func TestSQLiteStore_CreateAndGetUser(t *testing.T) {
	repo := newTestStore(t)

	created := mustCreateUser(t, repo, "5551234567890")
	if created.ID == 0 {
		t.Fatal("Expected assigned ID")
	}

	got, err := repo.GetUser(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got == nil || got.MobileNumber != "5551234567890" || !got.IsActive {
		t.Errorf("Unexpected user %+v", got)
	}

	byMobile, err := repo.GetUserByMobile(context.Background(), "5551234567890")
	if err != nil {
		t.Fatalf("GetUserByMobile failed: %v", err)
	}
	if byMobile == nil || byMobile.ID != created.ID {
		t.Errorf("Unexpected user %+v", byMobile)
	}
}

func TestSQLiteStore_GetUserAbsent(t *testing.T) {
	repo := newTestStore(t)

	got, err := repo.GetUser(context.Background(), 12345)
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for unknown user, got %+v", got)
	}
}

func TestSQLiteStore_DuplicateMobile(t *testing.T) {
	repo := newTestStore(t)
	mustCreateUser(t, repo, "5551234567890")

	_, err := repo.CreateUser(context.Background(), &domain.User{
		MobileNumber: "5551234567890",
		Username:     "other",
		IsActive:     true,
	})
	if !errors.Is(err, ErrDuplicateMobile) {
		t.Errorf("Expected ErrDuplicateMobile, got %v", err)
	}
}

func TestSQLiteStore_UpdateIdentityStability(t *testing.T) {
	repo := newTestStore(t)
	user := mustCreateUser(t, repo, "5551234567890")

	if err := repo.UpdateIdentityStability(context.Background(), user.ID, domain.StabilityUnstable); err != nil {
		t.Fatalf("UpdateIdentityStability failed: %v", err)
	}

	got, err := repo.GetUser(context.Background(), user.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.IdentityStability != domain.StabilityUnstable {
		t.Errorf("Expected unstable, got %q", got.IdentityStability)
	}
}

func insertMessage(t *testing.T, repo Repository, sender, receiver int64, content string, ts time.Time) int64 {
	t.Helper()
	id, err := repo.InsertMessage(context.Background(), &domain.Message{
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		Timestamp:  ts,
	})
	if err != nil {
		t.Fatalf("InsertMessage failed: %v", err)
	}
	return id
}

func TestSQLiteStore_InsertMessageStartsUnread(t *testing.T) {
	repo := newTestStore(t)
	id := insertMessage(t, repo, 1, 2, "hi", time.Now())

	msgs, err := repo.History(context.Background(), 1, 2, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 || msgs[0].ID != id {
		t.Fatalf("Unexpected history %+v", msgs)
	}
	if msgs[0].Read || msgs[0].ReadAt != nil {
		t.Errorf("New message must be unread with null read_at: %+v", msgs[0])
	}
}

func TestSQLiteStore_HistoryOrderAndPagination(t *testing.T) {
	repo := newTestStore(t)
	base := time.Now()

	// Inserted out of order; history sorts by timestamp.
	insertMessage(t, repo, 1, 2, "third", base.Add(2*time.Second))
	insertMessage(t, repo, 2, 1, "first", base)
	insertMessage(t, repo, 1, 2, "second", base.Add(time.Second))
	insertMessage(t, repo, 3, 4, "unrelated", base)

	msgs, err := repo.History(context.Background(), 1, 2, 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"first", "second", "third"} {
		if msgs[i].Content != want {
			t.Errorf("Position %d: expected %q, got %q", i, want, msgs[i].Content)
		}
	}

	page, err := repo.History(context.Background(), 1, 2, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].Content != "second" {
		t.Errorf("Expected page [second], got %+v", page)
	}
}

func TestSQLiteStore_MarkRead(t *testing.T) {
	repo := newTestStore(t)
	id := insertMessage(t, repo, 1, 2, "hi", time.Now())

	changed, err := repo.MarkRead(context.Background(), id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if !changed {
		t.Fatal("Expected the addressee's mark to change the row")
	}

	msgs, _ := repo.History(context.Background(), 1, 2, 0, -1)
	if !msgs[0].Read || msgs[0].ReadAt == nil {
		t.Errorf("Expected read with read_at set, got %+v", msgs[0])
	}

	// Marking again is a no-op.
	changed, err = repo.MarkRead(context.Background(), id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("Re-marking an already-read message should change nothing")
	}
}

func TestSQLiteStore_MarkReadReceiverMismatch(t *testing.T) {
	repo := newTestStore(t)
	id := insertMessage(t, repo, 1, 2, "hi", time.Now())

	changed, err := repo.MarkRead(context.Background(), id, 3)
	if err != nil {
		t.Fatal(err)
	}
	if changed {
		t.Error("A non-addressee must not change the row")
	}

	msgs, _ := repo.History(context.Background(), 1, 2, 0, -1)
	if msgs[0].Read || msgs[0].ReadAt != nil {
		t.Errorf("Record changed by mismatched receiver: %+v", msgs[0])
	}
}

func TestSQLiteStore_MarkConversationRead(t *testing.T) {
	repo := newTestStore(t)
	now := time.Now()
	insertMessage(t, repo, 1, 2, "a", now)
	insertMessage(t, repo, 1, 2, "b", now.Add(time.Second))
	insertMessage(t, repo, 2, 1, "reply", now.Add(2*time.Second))
	insertMessage(t, repo, 3, 2, "other sender", now)

	n, err := repo.MarkConversationRead(context.Background(), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Expected 2 rows changed, got %d", n)
	}

	msgs, _ := repo.History(context.Background(), 1, 2, 0, -1)
	for _, m := range msgs {
		wantRead := m.SenderID == 1 && m.ReceiverID == 2
		if m.Read != wantRead {
			t.Errorf("Message %q: read=%v, want %v", m.Content, m.Read, wantRead)
		}
		if m.Read != (m.ReadAt != nil) {
			t.Errorf("Message %q violates read_at iff read", m.Content)
		}
	}

	// The unrelated sender's message stays unread.
	other, _ := repo.History(context.Background(), 3, 2, 0, -1)
	if other[0].Read {
		t.Error("Unrelated pair was touched by MarkConversationRead")
	}
}
