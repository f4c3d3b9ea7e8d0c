package store

import (
	"sort"
	"sync"
	"time"

	"chatline/internal/model"
)

// messageStore keeps the log sorted by ID; appends always land at the end
// because IDs come from a monotonic sequence.
type messageStore struct {
	mu   sync.RWMutex
	data []model.Message
	seq  *seqGenerator
	now  func() time.Time
}

func newMessageStore(now func() time.Time) *messageStore {
	return &messageStore{seq: newSeqGenerator(), now: now}
}

func (m *messageStore) append(content, createdBy string) model.Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	msg := model.Message{
		ID:        m.seq.next(),
		Content:   content,
		CreatedAt: m.now().UTC(),
		CreatedBy: createdBy,
	}
	m.data = append(m.data, msg)
	return msg
}

func (m *messageStore) indexOf(id int64) int {
	i := sort.Search(len(m.data), func(i int) bool { return m.data[i].ID >= id })
	if i < len(m.data) && m.data[i].ID == id {
		return i
	}
	return -1
}

func (m *messageStore) update(id int64, content string) (model.Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return model.Message{}, false
	}
	at := m.now().UTC()
	m.data[i].Content = content
	m.data[i].UpdatedAt = &at
	return copyMessage(m.data[i]), true
}

func (m *messageStore) remove(id int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(id)
	if i < 0 {
		return false
	}
	m.data = append(m.data[:i], m.data[i+1:]...)
	return true
}

func (m *messageStore) getBefore(firstID int64, limit int) []model.Message {
	m.mu.RLock()
	defer m.mu.RUnlock()

	end := len(m.data)
	if firstID > 0 {
		end = sort.Search(len(m.data), func(i int) bool { return m.data[i].ID >= firstID })
	}

	result := make([]model.Message, 0, limit)
	for i := end - 1; i >= 0 && len(result) < limit; i-- {
		result = append(result, copyMessage(m.data[i]))
	}
	return result
}

func copyMessage(msg model.Message) model.Message {
	if msg.UpdatedAt != nil {
		at := *msg.UpdatedAt
		msg.UpdatedAt = &at
	}
	return msg
}
