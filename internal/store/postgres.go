package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"chatline/internal/model"
)

// PostgresStore handles PostgreSQL operations through a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresStore creates a connection pool and ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres database url must be provided")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &PostgresStore{pool: pool, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id BIGSERIAL PRIMARY KEY,
		content TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ,
		created_by TEXT NOT NULL
	);
	`
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate (postgres): %w", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	u := model.User{Username: username, PasswordHash: passwordHash}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, username, passwordHash, s.now().UTC()).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return model.User{}, ErrDuplicateUser
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = u.CreatedAt.UTC()
	return u, nil
}

func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE username = $2`, passwordHash, username)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) AppendMessage(ctx context.Context, content, createdBy string) (model.Message, error) {
	msg := model.Message{Content: content, CreatedBy: createdBy}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (content, created_at, created_by)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, content, s.now().UTC(), createdBy).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	return msg, nil
}

func (s *PostgresStore) UpdateMessage(ctx context.Context, id int64, content string) (model.Message, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE messages SET content = $1, updated_at = $2 WHERE id = $3
		RETURNING id, content, created_at, updated_at, created_by
	`, content, s.now().UTC(), id)
	msg, err := scanPgMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Message{}, ErrNotFound
		}
		return model.Message{}, fmt.Errorf("update message: %w", err)
	}
	return msg, nil
}

func (s *PostgresStore) DeleteMessage(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ScanMessages(ctx context.Context, firstID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}

	var (
		rows pgx.Rows
		err  error
	)
	if firstID > 0 {
		rows, err = s.pool.Query(ctx, `
			SELECT id, content, created_at, updated_at, created_by
			FROM messages WHERE id < $1 ORDER BY id DESC LIMIT $2
		`, firstID, limit)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, content, created_at, updated_at, created_by
			FROM messages ORDER BY id DESC LIMIT $1
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	defer rows.Close()

	result := make([]model.Message, 0, limit)
	for rows.Next() {
		msg, err := scanPgMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		result = append(result, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return result, nil
}

func scanPgMessage(row pgx.Row) (model.Message, error) {
	var msg model.Message
	if err := row.Scan(&msg.ID, &msg.Content, &msg.CreatedAt, &msg.UpdatedAt, &msg.CreatedBy); err != nil {
		return model.Message{}, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if msg.UpdatedAt != nil {
		at := msg.UpdatedAt.UTC()
		msg.UpdatedAt = &at
	}
	return msg, nil
}
