package handler

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"chatline/internal/auth"
	"chatline/internal/hub"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	// closeTryAgainLater is the close code sent when the hub is full.
	closeTryAgainLater = 1013
)

type WebSocketHandler struct {
	Hub            *hub.Hub
	TokenConfig    auth.TokenConfig
	AllowedOrigins []string
	Logger         zerolog.Logger

	upgraderOnce sync.Once
	upgrader     websocket.Upgrader
}

type wsWriter struct {
	conn *websocket.Conn
}

func (w *wsWriter) Write(message []byte) error {
	w.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return w.conn.WriteMessage(websocket.TextMessage, message)
}

func (w *wsWriter) Close() error {
	return w.conn.Close()
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || len(h.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range h.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}

func (h *WebSocketHandler) getUpgrader() *websocket.Upgrader {
	h.upgraderOnce.Do(func() {
		h.upgrader = websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     h.checkOrigin,
		}
	})
	return &h.upgrader
}

// Serve authenticates the token query parameter, upgrades, registers the
// session with the hub and relays every text frame to all sessions until
// the client goes away.
func (h *WebSocketHandler) Serve(c *gin.Context) {
	v := auth.Verify(c.Query("token"), auth.AccessToken, h.TokenConfig)
	if !v.Valid() {
		h.Logger.Debug().Str("reason", string(v.Reason)).Msg("websocket auth rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication token"})
		return
	}
	name := v.Claims.Username

	ws, err := h.getUpgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	log := h.Logger.With().Str("user", name).Logger()

	session, err := h.Hub.Connect(name, &wsWriter{conn: ws})
	if err != nil {
		code := closeTryAgainLater
		if !errors.Is(err, hub.ErrFull) {
			code = websocket.CloseGoingAway
		}
		log.Warn().Err(err).Msg("websocket refused")
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(code, err.Error()), time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}
	log.Info().Str("session", session.ID).Msg("websocket connected")
	defer func() {
		h.Hub.Disconnect(session)
		log.Info().Str("session", session.ID).Msg("websocket disconnected")
	}()

	ws.SetReadLimit(maxMessageSize)
	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	done := make(chan struct{})
	defer close(done)
	go keepAlive(ws, done)

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		h.Hub.BroadcastText(data)
	}
}

func keepAlive(ws *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = ws.Close()
				return
			}
		}
	}
}
