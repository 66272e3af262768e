// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/driftline/driftline/internal/domain"
)

// ErrDuplicateMobile is returned when registering an already-known
// mobile number.
var ErrDuplicateMobile = errors.New("mobile number already registered")

// Repository defines the persistence interface for identity records and
// message documents. Lookups signal absence with (nil, nil), never an
// error.
type Repository interface {
	// CreateUser inserts a new identity record and returns it with the
	// assigned ID. Returns ErrDuplicateMobile for a known mobile number.
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id int64) (*domain.User, error)

	// GetUserByMobile retrieves a user by normalized mobile number.
	GetUserByMobile(ctx context.Context, mobile string) (*domain.User, error)

	// ListUsers returns all identity records ordered by ID.
	ListUsers(ctx context.Context) ([]*domain.User, error)

	// UpdateIdentityStability persists a re-rolled stability value.
	UpdateIdentityStability(ctx context.Context, id int64, stability string) error

	// InsertMessage appends a message document and returns the
	// store-assigned ID.
	InsertMessage(ctx context.Context, msg *domain.Message) (int64, error)

	// History returns messages exchanged between two users ordered by
	// timestamp ascending. limit < 0 means unbounded.
	History(ctx context.Context, userID, otherID int64, skip, limit int) ([]*domain.Message, error)

	// MarkRead flips read/read_at on the message with the given ID, but
	// only when it is addressed to receiverID. Reports whether a row
	// changed; a mismatched receiver or unknown ID is a no-op, not an
	// error.
	MarkRead(ctx context.Context, messageID, receiverID int64) (bool, error)

	// MarkConversationRead flips read/read_at on every unread message
	// from senderID to receiverID and returns the number of rows
	// changed.
	MarkConversationRead(ctx context.Context, senderID, receiverID int64) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
