package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/driftline/driftline/internal/domain"
	"github.com/driftline/driftline/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite. The users table holds
// identity records; the messages table is the append-only message store.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		mobile_number TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		identity_stability TEXT NOT NULL DEFAULT 'stable'
	);
	CREATE INDEX IF NOT EXISTS idx_users_mobile ON users(mobile_number);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL,
		receiver_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		read INTEGER NOT NULL DEFAULT 0,
		read_at INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(sender_id, receiver_id, timestamp);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CreateUser inserts a new identity record.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
	INSERT INTO users (mobile_number, username, created_at, is_active, identity_stability)
	VALUES (?, ?, ?, ?, ?)`

	createdAt := user.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, query,
		user.MobileNumber, user.Username, createdAt.Unix(),
		boolToInt(user.IsActive), user.IdentityStability,
	)
	if err != nil {
		if shared.IsSQLiteConstraintError(err) {
			return nil, ErrDuplicateMobile
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("user insert id: %w", err)
	}

	created := *user
	created.ID = id
	created.CreatedAt = time.Unix(createdAt.Unix(), 0)
	return &created, nil
}

const userColumns = `id, mobile_number, username, created_at, is_active, identity_stability`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	var user domain.User
	var createdAt int64
	var isActive int

	err := row.Scan(
		&user.ID, &user.MobileNumber, &user.Username,
		&createdAt, &isActive, &user.IdentityStability,
	)
	if err != nil {
		return nil, err
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.IsActive = isActive != 0
	return &user, nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// GetUserByMobile retrieves a user by normalized mobile number.
func (s *SQLiteStore) GetUserByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE mobile_number = ?`, mobile)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}
	return user, nil
}

// ListUsers returns all identity records ordered by ID.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

// UpdateIdentityStability persists a re-rolled stability value.
func (s *SQLiteStore) UpdateIdentityStability(ctx context.Context, id int64, stability string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET identity_stability = ? WHERE id = ?`, stability, id)
	if err != nil {
		return fmt.Errorf("update identity stability: %w", err)
	}
	return nil
}

// InsertMessage appends a message document and returns the assigned ID.
func (s *SQLiteStore) InsertMessage(ctx context.Context, msg *domain.Message) (int64, error) {
	query := `
	INSERT INTO messages (sender_id, receiver_id, content, timestamp, read, read_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	var readAt interface{}
	if msg.ReadAt != nil {
		readAt = msg.ReadAt.UnixNano()
	}

	res, err := s.db.ExecContext(ctx, query,
		msg.SenderID, msg.ReceiverID, msg.Content,
		msg.Timestamp.UnixNano(), boolToInt(msg.Read), readAt,
	)
	if err != nil {
		return 0, fmt.Errorf("insert message: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("message insert id: %w", err)
	}
	return id, nil
}

// History returns messages exchanged between two users ordered by
// timestamp ascending. Perturbed timestamps make this ordering cosmetic;
// callers needing call order must sort by ID.
func (s *SQLiteStore) History(ctx context.Context, userID, otherID int64, skip, limit int) ([]*domain.Message, error) {
	if limit == 0 {
		return nil, nil
	}
	if limit < 0 {
		limit = -1 // SQLite: no limit
	}

	query := `
	SELECT id, sender_id, receiver_id, content, timestamp, read, read_at
	FROM messages
	WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
	ORDER BY timestamp ASC
	LIMIT ? OFFSET ?`

	rows, err := s.db.QueryContext(ctx, query, userID, otherID, otherID, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var msgs []*domain.Message
	for rows.Next() {
		var msg domain.Message
		var ts int64
		var read int
		var readAt sql.NullInt64

		if err := rows.Scan(
			&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content,
			&ts, &read, &readAt,
		); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}

		msg.Timestamp = time.Unix(0, ts)
		msg.Read = read != 0
		if readAt.Valid {
			t := time.Unix(0, readAt.Int64)
			msg.ReadAt = &t
		}
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return msgs, nil
}

// MarkRead flips read state on a single message addressed to receiverID.
func (s *SQLiteStore) MarkRead(ctx context.Context, messageID, receiverID int64) (bool, error) {
	query := `
	UPDATE messages SET read = 1, read_at = ?
	WHERE id = ? AND receiver_id = ? AND read = 0`

	res, err := s.db.ExecContext(ctx, query, time.Now().UnixNano(), messageID, receiverID)
	if err != nil {
		return false, fmt.Errorf("mark read: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark read rows affected: %w", err)
	}
	return rows > 0, nil
}

// MarkConversationRead flips read state on all unread messages from
// senderID to receiverID.
func (s *SQLiteStore) MarkConversationRead(ctx context.Context, senderID, receiverID int64) (int64, error) {
	query := `
	UPDATE messages SET read = 1, read_at = ?
	WHERE sender_id = ? AND receiver_id = ? AND read = 0`

	res, err := s.db.ExecContext(ctx, query, time.Now().UnixNano(), senderID, receiverID)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
