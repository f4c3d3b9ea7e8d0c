package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"chatline/internal/model"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDuplicateUser = errors.New("username already registered")
)

// MessageStore is the ordered message log. IDs are assigned on append and
// grow monotonically; they are never reused.
type MessageStore interface {
	AppendMessage(ctx context.Context, content, createdBy string) (model.Message, error)
	// UpdateMessage replaces the content and stamps UpdatedAt. Returns
	// ErrNotFound when no message has the id.
	UpdateMessage(ctx context.Context, id int64, content string) (model.Message, error)
	// DeleteMessage returns ErrNotFound when no message has the id.
	DeleteMessage(ctx context.Context, id int64) error
	// ScanMessages returns up to limit messages, newest first. With
	// firstID <= 0 it starts at the newest message, otherwise at the
	// message immediately preceding firstID.
	ScanMessages(ctx context.Context, firstID int64, limit int) ([]model.Message, error)
}

type UserStore interface {
	// CreateUser returns ErrDuplicateUser when the username is taken.
	CreateUser(ctx context.Context, username, passwordHash string) (model.User, error)
	GetUserByUsername(ctx context.Context, username string) (model.User, error)
	UpdatePasswordHash(ctx context.Context, username, passwordHash string) error
}

type Store interface {
	MessageStore
	UserStore
	Ping(ctx context.Context) error
	Close() error
}

// Open connects to the store selected by driver: "memory", "sqlite3",
// "mysql" or "postgres".
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch strings.ToLower(driver) {
	case "", "memory":
		return New(), nil
	case "sqlite", "sqlite3", "mysql":
		return OpenSQL(ctx, driver, dsn)
	case "postgres", "postgresql", "pgx":
		return NewPostgresStore(ctx, dsn)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", driver)
	}
}
