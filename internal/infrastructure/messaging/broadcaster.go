package messaging

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/TwistedArtistsGuild/tag-web/internal/infrastructure/observability/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	clientBuffer   = 16
)

// ReactionHub manages websocket clients of the reaction feed.
type ReactionHub struct {
	clients  map[chan []byte]struct{}
	mu       sync.Mutex
	closed   bool
	writers  sync.WaitGroup
	upgrader websocket.Upgrader
	logger   *logging.ChanneledLogger
}

// NewReactionHub creates a hub accepting same-host origins plus allowedOrigins.
func NewReactionHub(logger *logging.ChanneledLogger, allowedOrigins []string) *ReactionHub {
	h := &ReactionHub{
		clients: make(map[chan []byte]struct{}),
		logger:  logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return u.Host == r.Host || slices.Contains(allowedOrigins, origin)
		},
	}
	return h
}

// AddClient registers a new client channel. It returns nil once the hub is
// closed.
func (h *ReactionHub) AddClient() chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	ch := make(chan []byte, clientBuffer)
	h.clients[ch] = struct{}{}
	h.logger.Reactions().Debug("Reaction feed client registered", "clients", len(h.clients))
	return ch
}

// RemoveClient unregisters and closes ch. Safe to call more than once.
func (h *ReactionHub) RemoveClient(ch chan []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[ch]; !ok {
		return
	}
	delete(h.clients, ch)
	close(ch)
	h.logger.Reactions().Debug("Reaction feed client unregistered", "clients", len(h.clients))
}

// ClientCount returns the number of connected clients.
func (h *ReactionHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends update to every client. Slow clients drop the message.
func (h *ReactionHub) Broadcast(update Update) {
	payload, err := json.Marshal(update)
	if err != nil {
		h.logger.Reactions().Error("Failed to encode reaction update", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- payload:
		default:
			h.logger.Reactions().Warn("Reaction feed channel full, message dropped",
				"kind", update.Kind, "id", update.ID, "reaction", update.Reaction)
		}
	}
}

// ServeWS upgrades the request and streams updates until either side closes.
func (h *ReactionHub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Reactions().Warn("Websocket upgrade failed", "error", err)
		return
	}

	ch := h.AddClient()
	if ch == nil {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		conn.Close()
		return
	}

	h.writers.Add(1)
	go h.writePump(conn, ch)
	h.readPump(conn, ch)
}

// readPump discards client messages; it exists to process control frames
// and notice disconnects.
func (h *ReactionHub) readPump(conn *websocket.Conn, ch chan []byte) {
	defer h.RemoveClient(ch)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Reactions().Debug("Reaction feed client closed unexpectedly", "error", err)
			}
			return
		}
	}
}

func (h *ReactionHub) writePump(conn *websocket.Conn, ch chan []byte) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		h.writers.Done()
	}()

	for {
		select {
		case msg, ok := <-ch:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close disconnects every client and waits for their writers to finish.
func (h *ReactionHub) Close() {
	h.mu.Lock()
	h.closed = true
	for ch := range h.clients {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()

	h.writers.Wait()
	h.logger.Shutdown().Info("Reaction feed closed")
}
