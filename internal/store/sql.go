package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"

	"chatline/internal/model"
)

// SQLStore implements Store on database/sql for the sqlite3 and mysql
// drivers. Both use '?' placeholders, so only the schema differs.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

// OpenSQL connects, pings and migrates. For mysql, parseTime=true is added
// to the DSN when missing so DATETIME columns scan into time.Time.
// Duplicate usernames are detected from the driver's error codes.
func OpenSQL(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	driver = strings.ToLower(driver)
	if driver == "sqlite" {
		driver = "sqlite3"
	}
	if dsn == "" {
		return nil, fmt.Errorf("%s dsn must be provided", driver)
	}

	switch driver {
	case "sqlite3":
	case "mysql":
		dsn = withDSNParam(dsn, "parseTime", "true")
		// Report matched rather than changed rows so an update with
		// identical content still counts as found.
		dsn = withDSNParam(dsn, "clientFoundRows", "true")
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}
	if driver == "sqlite3" {
		// A single connection keeps ":memory:" databases coherent and
		// avoids SQLITE_BUSY on concurrent writers.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable sqlite foreign keys: %w", err)
		}
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLStore{db: db, driver: driver, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	var stmts []string
	switch s.driver {
	case "sqlite3":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				username TEXT NOT NULL UNIQUE,
				password_hash TEXT NOT NULL,
				created_at DATETIME NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS messages (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				content TEXT NOT NULL,
				created_at DATETIME NOT NULL,
				updated_at DATETIME,
				created_by TEXT NOT NULL
			)`,
		}
	case "mysql":
		stmts = []string{
			`CREATE TABLE IF NOT EXISTS users (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				username VARCHAR(255) NOT NULL UNIQUE,
				password_hash VARCHAR(255) NOT NULL,
				created_at DATETIME(6) NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
			`CREATE TABLE IF NOT EXISTS messages (
				id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
				content MEDIUMTEXT NOT NULL,
				created_at DATETIME(6) NOT NULL,
				updated_at DATETIME(6) NULL,
				created_by VARCHAR(255) NOT NULL,
				PRIMARY KEY (id)
			) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
		}
	}

	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate (%s): %w", s.driver, err)
		}
	}
	return nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) CreateUser(ctx context.Context, username, passwordHash string) (model.User, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return model.User{}, ErrDuplicateUser
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, fmt.Errorf("user id: %w", err)
	}
	return model.User{ID: id, Username: username, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, password_hash, created_at FROM users WHERE username = ?`, username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, ErrNotFound
		}
		return model.User{}, fmt.Errorf("query user: %w", err)
	}
	return u, nil
}

func (s *SQLStore) UpdatePasswordHash(ctx context.Context, username, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE username = ?`, passwordHash, username,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLStore) AppendMessage(ctx context.Context, content, createdBy string) (model.Message, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (content, created_at, created_by) VALUES (?, ?, ?)`,
		content, now, createdBy,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("insert message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Message{}, fmt.Errorf("message id: %w", err)
	}
	return model.Message{ID: id, Content: content, CreatedAt: now, CreatedBy: createdBy}, nil
}

func (s *SQLStore) UpdateMessage(ctx context.Context, id int64, content string) (model.Message, error) {
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET content = ?, updated_at = ? WHERE id = ?`, content, now, id,
	)
	if err != nil {
		return model.Message{}, fmt.Errorf("update message: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return model.Message{}, err
	}
	return s.getMessage(ctx, id)
}

func (s *SQLStore) getMessage(ctx context.Context, id int64) (model.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, content, created_at, updated_at, created_by FROM messages WHERE id = ?`, id,
	)
	msg, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Message{}, ErrNotFound
		}
		return model.Message{}, fmt.Errorf("query message: %w", err)
	}
	return msg, nil
}

func (s *SQLStore) DeleteMessage(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	return requireAffected(res)
}

func (s *SQLStore) ScanMessages(ctx context.Context, firstID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}

	var (
		rows *sql.Rows
		err  error
	)
	if firstID > 0 {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, content, created_at, updated_at, created_by FROM messages
			 WHERE id < ? ORDER BY id DESC LIMIT ?`, firstID, limit,
		)
	} else {
		rows, err = s.db.QueryContext(ctx,
			`SELECT id, content, created_at, updated_at, created_by FROM messages
			 ORDER BY id DESC LIMIT ?`, limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("scan messages: %w", err)
	}
	defer rows.Close()

	result := make([]model.Message, 0, limit)
	for rows.Next() {
		msg, err := scanMessage(rows)
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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (model.Message, error) {
	var (
		msg       model.Message
		updatedAt sql.NullTime
	)
	if err := row.Scan(&msg.ID, &msg.Content, &msg.CreatedAt, &updatedAt, &msg.CreatedBy); err != nil {
		return model.Message{}, err
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if updatedAt.Valid {
		at := updatedAt.Time.UTC()
		msg.UpdatedAt = &at
	}
	return msg, nil
}

func withDSNParam(dsn, key, value string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + value
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}
