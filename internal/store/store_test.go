package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	testStore(t, New())
}

var sqliteDBCounter atomic.Int64

func TestSQLiteStore(t *testing.T) {
	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", sqliteDBCounter.Add(1))
	s, err := OpenSQL(context.Background(), "sqlite3", dsn)
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer s.Close()
	testStore(t, s)
}

func TestMySQLStore(t *testing.T) {
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("set TEST_MYSQL_DSN to run mysql-backed store tests")
	}
	s, err := OpenSQL(context.Background(), "mysql", dsn)
	if err != nil {
		t.Fatalf("OpenSQL: %v", err)
	}
	defer s.Close()
	resetSQL(t, s)
	testStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("set TEST_DATABASE_URL to run postgres-backed store tests")
	}
	s, err := NewPostgresStore(context.Background(), url)
	if err != nil {
		t.Fatalf("NewPostgresStore: %v", err)
	}
	defer s.Close()
	if _, err := s.pool.Exec(context.Background(), `TRUNCATE users, messages RESTART IDENTITY`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	testStore(t, s)
}

func TestOpen_UnknownDriver(t *testing.T) {
	if _, err := Open(context.Background(), "oracle", "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOpen_MemoryDefault(t *testing.T) {
	s, err := Open(context.Background(), "", "")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected memory store, got %T", s)
	}
}

func TestWithDSNParam(t *testing.T) {
	if got := withDSNParam("u:p@tcp(h:3306)/db", "parseTime", "true"); got != "u:p@tcp(h:3306)/db?parseTime=true" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := withDSNParam("u:p@tcp(h:3306)/db?charset=utf8mb4", "parseTime", "true"); got != "u:p@tcp(h:3306)/db?charset=utf8mb4&parseTime=true" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := withDSNParam("db?parseTime=false", "parseTime", "true"); got != "db?parseTime=false" {
		t.Fatalf("expected explicit value kept, got %q", got)
	}
}

func resetSQL(t *testing.T, s *SQLStore) {
	t.Helper()
	for _, stmt := range []string{`DELETE FROM messages`, `DELETE FROM users`, `ALTER TABLE messages AUTO_INCREMENT = 1`} {
		if _, err := s.db.Exec(stmt); err != nil {
			t.Fatalf("reset: %v", err)
		}
	}
}

func testStore(t *testing.T, s Store) {
	t.Helper()
	t.Run("Users", func(t *testing.T) { testUsers(t, s) })
	t.Run("Messages", func(t *testing.T) { testMessages(t, s) })
	t.Run("Scan", func(t *testing.T) { testScan(t, s) })
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "testname", "hash-1")
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID <= 0 || u.Username != "testname" {
		t.Fatalf("unexpected user %+v", u)
	}

	if _, err := s.CreateUser(ctx, "testname", "hash-2"); !errors.Is(err, ErrDuplicateUser) {
		t.Fatalf("expected ErrDuplicateUser, got %v", err)
	}

	got, err := s.GetUserByUsername(ctx, "testname")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.PasswordHash != "hash-1" {
		t.Fatalf("expected hash-1, got %q", got.PasswordHash)
	}

	if err := s.UpdatePasswordHash(ctx, "testname", "hash-3"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, _ = s.GetUserByUsername(ctx, "testname")
	if got.PasswordHash != "hash-3" {
		t.Fatalf("expected hash-3, got %q", got.PasswordHash)
	}

	if _, err := s.GetUserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdatePasswordHash(ctx, "nobody", "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testMessages(t *testing.T, s Store) {
	ctx := context.Background()

	msg, err := s.AppendMessage(ctx, "Hello world!", "testname")
	if err != nil {
		t.Fatalf("AppendMessage: %v", err)
	}
	if msg.ID != 1 {
		t.Fatalf("expected id 1, got %d", msg.ID)
	}
	if msg.UpdatedAt != nil {
		t.Fatalf("expected no updated_at on a fresh message")
	}

	msgs, err := s.ScanMessages(ctx, 0, 20)
	if err != nil {
		t.Fatalf("ScanMessages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "Hello world!" || msgs[0].CreatedBy != "testname" || msgs[0].UpdatedAt != nil {
		t.Fatalf("unexpected scan result %+v", msgs)
	}

	updated, err := s.UpdateMessage(ctx, msg.ID, "Bye world!")
	if err != nil {
		t.Fatalf("UpdateMessage: %v", err)
	}
	if updated.Content != "Bye world!" || updated.UpdatedAt == nil {
		t.Fatalf("unexpected updated message %+v", updated)
	}
	if !updated.CreatedAt.Equal(msgs[0].CreatedAt) || updated.CreatedBy != "testname" {
		t.Fatalf("immutable fields changed: %+v", updated)
	}

	msgs, _ = s.ScanMessages(ctx, 0, 20)
	if len(msgs) != 1 || msgs[0].Content != "Bye world!" {
		t.Fatalf("scan does not reflect update: %+v", msgs)
	}

	if _, err := s.UpdateMessage(ctx, 2, "Bye world!"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.DeleteMessage(ctx, msg.ID); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}
	if err := s.DeleteMessage(ctx, msg.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	msgs, _ = s.ScanMessages(ctx, 0, 20)
	if len(msgs) != 0 {
		t.Fatalf("expected empty log, got %d", len(msgs))
	}
}

func testScan(t *testing.T, s Store) {
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 5; i++ {
		msg, err := s.AppendMessage(ctx, fmt.Sprintf("m%d", i), "u")
		if err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
		ids = append(ids, msg.ID)
	}
	for i := 1; i < len(ids); i++ {
		if ids[i] <= ids[i-1] {
			t.Fatalf("expected increasing ids, got %v", ids)
		}
	}

	latest, err := s.ScanMessages(ctx, 0, 2)
	if err != nil {
		t.Fatalf("ScanMessages: %v", err)
	}
	if len(latest) != 2 || latest[0].ID != ids[4] || latest[1].ID != ids[3] {
		t.Fatalf("unexpected latest page %+v", latest)
	}

	older, err := s.ScanMessages(ctx, ids[3], 2)
	if err != nil {
		t.Fatalf("ScanMessages: %v", err)
	}
	if len(older) != 2 || older[0].ID != ids[2] || older[1].ID != ids[1] {
		t.Fatalf("unexpected older page %+v", older)
	}

	tail, _ := s.ScanMessages(ctx, ids[1], 10)
	if len(tail) != 1 || tail[0].ID != ids[0] {
		t.Fatalf("unexpected tail page %+v", tail)
	}

	none, _ := s.ScanMessages(ctx, 0, 0)
	if len(none) != 0 {
		t.Fatalf("expected empty page for zero limit")
	}
}
