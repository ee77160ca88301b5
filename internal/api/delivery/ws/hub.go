// Package ws fans pipeline events out to websocket subscribers.
package ws

import (
	"context"
	"sync"
	"time"

	"golang-sentiment-quant/pkg/logger"
	"golang-sentiment-quant/pkg/metrics"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"nhooyr.io/websocket"
)

const writeTimeout = 5 * time.Second

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps the connected clients and broadcasts every event to all of them.
// A client whose send buffer is full is dropped.
type Hub struct {
	mu             sync.RWMutex
	clients        map[string]*client
	originPatterns []string
	sendBuffer     int
	logger         *logger.Logger
	metrics        *metrics.Registry
}

// NewHub creates a new Hub.
func NewHub(originPatterns []string, sendBuffer int, log *logger.Logger, registry *metrics.Registry) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Hub{
		clients:        make(map[string]*client),
		originPatterns: originPatterns,
		sendBuffer:     sendBuffer,
		logger:         log,
		metrics:        registry,
	}
}

// RegisterRoutes mounts the websocket endpoint on the group.
func (h *Hub) RegisterRoutes(g *echo.Group) {
	g.GET("", h.Handle)
}

// Run relays Redis pub/sub messages until ctx is done or the channel closes.
func (h *Hub) Run(ctx context.Context, messages <-chan *redis.Message) {
	defer h.closeAll()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			h.Broadcast([]byte(msg.Payload))
		}
	}
}

// Broadcast queues msg on every client without blocking.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, cl := range h.clients {
		select {
		case cl.send <- msg:
		default:
			h.logger.Warn("Dropping slow websocket client", logger.StringField("client_id", id))
			h.removeLocked(cl)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Handle upgrades the request and streams events until the peer goes away.
func (h *Hub) Handle(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", logger.ErrorField(err))
		return nil
	}

	cl := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, h.sendBuffer)}
	h.register(cl)
	defer h.unregister(cl)

	ctx := conn.CloseRead(c.Request().Context())
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case msg, ok := <-cl.send:
			if !ok {
				conn.Close(websocket.StatusPolicyViolation, "connection closed by server")
				return nil
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				h.logger.Debug("Websocket write failed", logger.StringField("client_id", cl.id), logger.ErrorField(err))
				conn.CloseNow()
				return nil
			}
		}
	}
}

func (h *Hub) register(cl *client) {
	h.mu.Lock()
	h.clients[cl.id] = cl
	h.mu.Unlock()
	h.metrics.WSClients(1)
	h.logger.Info("Websocket client connected", logger.StringField("client_id", cl.id))
}

func (h *Hub) unregister(cl *client) {
	h.mu.Lock()
	h.removeLocked(cl)
	h.mu.Unlock()
	h.logger.Info("Websocket client disconnected", logger.StringField("client_id", cl.id))
}

// removeLocked must be called with h.mu held.
func (h *Hub) removeLocked(cl *client) {
	if _, ok := h.clients[cl.id]; !ok {
		return
	}
	delete(h.clients, cl.id)
	close(cl.send)
	h.metrics.WSClients(-1)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, cl := range h.clients {
		h.removeLocked(cl)
	}
}
