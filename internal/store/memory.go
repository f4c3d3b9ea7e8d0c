package store

import (
	"context"
	"sync"
	"time"

	"chatline/internal/model"
)

// MemoryStore keeps users and messages in process memory. It is the
// default when no database is configured and backs most tests.
type MemoryStore struct {
	mu sync.RWMutex

	usersByName map[string]model.User
	userSeq     *seqGenerator

	messages *messageStore
	now      func() time.Time
}

func New() *MemoryStore {
	return NewWithOptions(Options{})
}

type Options struct {
	Now func() time.Time
}

func NewWithOptions(opts Options) *MemoryStore {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		usersByName: make(map[string]model.User),
		userSeq:     newSeqGenerator(),
		messages:    newMessageStore(now),
		now:         now,
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) CreateUser(_ context.Context, username, passwordHash string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByName[username]; exists {
		return model.User{}, ErrDuplicateUser
	}
	u := model.User{
		ID:           s.userSeq.next(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    s.now().UTC(),
	}
	s.usersByName[username] = u
	return u, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.usersByName[username]
	if !ok {
		return model.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) UpdatePasswordHash(_ context.Context, username, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.usersByName[username]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.usersByName[username] = u
	return nil
}

func (s *MemoryStore) AppendMessage(_ context.Context, content, createdBy string) (model.Message, error) {
	return s.messages.append(content, createdBy), nil
}

func (s *MemoryStore) UpdateMessage(_ context.Context, id int64, content string) (model.Message, error) {
	msg, ok := s.messages.update(id, content)
	if !ok {
		return model.Message{}, ErrNotFound
	}
	return msg, nil
}

func (s *MemoryStore) DeleteMessage(_ context.Context, id int64) error {
	if !s.messages.remove(id) {
		return ErrNotFound
	}
	return nil
}

func (s *MemoryStore) ScanMessages(_ context.Context, firstID int64, limit int) ([]model.Message, error) {
	if limit <= 0 {
		return []model.Message{}, nil
	}
	return s.messages.getBefore(firstID, limit), nil
}
