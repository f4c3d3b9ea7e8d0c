package hub

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatline/internal/metrics"
)

const DefaultSendBuffer = 256

var (
	// ErrFull is returned by Connect when MaxSessions sessions are live.
	ErrFull = errors.New("hub: session limit reached")
	// ErrClosed is returned by Connect after Shutdown.
	ErrClosed = errors.New("hub: shut down")
)

// Writer is the outbound half of a live connection. Write is only ever
// called from the session's writer goroutine; Close may race with it.
type Writer interface {
	Write(message []byte) error
	Close() error
}

// Session is a registered connection. Callers keep the handle returned by
// Connect and pass it back to Disconnect.
type Session struct {
	ID   string
	Name string

	writer    Writer
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func (s *Session) close() {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.writer.Close()
	})
}

type Options struct {
	Logger      zerolog.Logger
	SendBuffer  int
	MaxSessions int // 0 means unbounded
}

// Hub is the ordered registry of live sessions. Every broadcast enqueues
// to all sessions while holding the registry lock, so all sessions see
// frames in the same order.
type Hub struct {
	mu       sync.Mutex
	sessions []*Session
	index    map[string]*Session
	closed   bool

	sendBuffer  int
	maxSessions int
	log         zerolog.Logger
}

func New(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	return &Hub{
		index:       make(map[string]*Session),
		sendBuffer:  opts.SendBuffer,
		maxSessions: opts.MaxSessions,
		log:         opts.Logger.With().Str("component", "hub").Logger(),
	}
}

// Connect registers a session named name at the end of the registry and
// sends the new presence list to everyone, the new session included.
func (h *Hub) Connect(name string, w Writer) (*Session, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, ErrClosed
	}
	if h.maxSessions > 0 && len(h.sessions) >= h.maxSessions {
		h.mu.Unlock()
		return nil, ErrFull
	}

	s := &Session{
		ID:     uuid.NewString(),
		Name:   name,
		writer: w,
		send:   make(chan []byte, h.sendBuffer),
		done:   make(chan struct{}),
	}
	h.sessions = append(h.sessions, s)
	h.index[s.ID] = s
	metrics.WSSessions.Set(float64(len(h.sessions)))
	go h.writeLoop(s)

	failed := h.enqueueLocked(h.presenceLocked(), "presence")
	h.mu.Unlock()

	h.log.Debug().Str("session", s.ID).Str("name", name).Msg("session connected")
	h.drop(failed)
	return s, nil
}

// Disconnect removes s, closes its writer and sends the new presence list
// to the remaining sessions. It reports false if s was already gone.
func (h *Hub) Disconnect(s *Session) bool {
	if s == nil {
		return false
	}
	h.mu.Lock()
	if _, ok := h.index[s.ID]; !ok {
		h.mu.Unlock()
		return false
	}
	delete(h.index, s.ID)
	for i, cur := range h.sessions {
		if cur == s {
			h.sessions = append(h.sessions[:i], h.sessions[i+1:]...)
			break
		}
	}
	metrics.WSSessions.Set(float64(len(h.sessions)))
	s.close()

	var failed []*Session
	if len(h.sessions) > 0 {
		failed = h.enqueueLocked(h.presenceLocked(), "presence")
	}
	h.mu.Unlock()

	h.log.Debug().Str("session", s.ID).Str("name", s.Name).Msg("session disconnected")
	h.drop(failed)
	return true
}

// BroadcastText enqueues payload unchanged to every session.
func (h *Hub) BroadcastText(payload []byte) {
	h.mu.Lock()
	failed := h.enqueueLocked(payload, "text")
	h.mu.Unlock()
	h.drop(failed)
}

// BroadcastPresence enqueues the current presence list to every session.
func (h *Hub) BroadcastPresence() {
	h.mu.Lock()
	failed := h.enqueueLocked(h.presenceLocked(), "presence")
	h.mu.Unlock()
	h.drop(failed)
}

// Names returns the display names in registration order.
func (h *Hub) Names() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.namesLocked()
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Shutdown closes every session and refuses further connects.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = nil
	h.index = make(map[string]*Session)
	h.closed = true
	metrics.WSSessions.Set(0)
	h.mu.Unlock()

	for _, s := range sessions {
		s.close()
	}
	h.log.Info().Int("sessions", len(sessions)).Msg("hub shut down")
}

func (h *Hub) namesLocked() []string {
	names := make([]string, 0, len(h.sessions))
	for _, s := range h.sessions {
		names = append(names, s.Name)
	}
	return names
}

func (h *Hub) presenceLocked() []byte {
	payload, _ := json.Marshal(struct {
		Userlist []string `json:"userlist"`
	}{Userlist: h.namesLocked()})
	return payload
}

// enqueueLocked never blocks. Sessions whose queue is full are returned so
// the caller can drop them once the lock is released.
func (h *Hub) enqueueLocked(payload []byte, kind string) []*Session {
	var failed []*Session
	for _, s := range h.sessions {
		select {
		case s.send <- payload:
			metrics.WSFramesBroadcast.WithLabelValues(kind).Inc()
		default:
			metrics.WSSendFailures.Inc()
			h.log.Debug().Str("session", s.ID).Msg("send queue full")
			failed = append(failed, s)
		}
	}
	return failed
}

func (h *Hub) drop(failed []*Session) {
	for _, s := range failed {
		h.Disconnect(s)
	}
}

func (h *Hub) writeLoop(s *Session) {
	for {
		select {
		case <-s.done:
			return
		default:
		}

		select {
		case <-s.done:
			return
		case msg := <-s.send:
			if err := s.writer.Write(msg); err != nil {
				metrics.WSSendFailures.Inc()
				h.log.Debug().Err(err).Str("session", s.ID).Msg("write failed")
				h.Disconnect(s)
				return
			}
		}
	}
}
